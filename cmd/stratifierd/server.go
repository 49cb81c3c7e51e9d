// Command stratifierd is the stratifier's composition root: it loads
// configuration, wires the Template Manager, Client Registry, Share
// Validator, Difficulty Controller, Message Fabric and the generator/
// connector/ckdb collaborators together, and runs until signalled to stop
// (spec.md §1, §2, §4.10).
package main

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ckpool-go/stratifier/internal/ckdb"
	"github.com/ckpool-go/stratifier/internal/config"
	"github.com/ckpool-go/stratifier/internal/connector"
	"github.com/ckpool-go/stratifier/internal/fabric"
	"github.com/ckpool-go/stratifier/internal/generator"
	"github.com/ckpool-go/stratifier/internal/ipcsock"
	"github.com/ckpool-go/stratifier/internal/poolstats"
	"github.com/ckpool-go/stratifier/internal/registry"
	"github.com/ckpool-go/stratifier/internal/validator"
	"github.com/ckpool-go/stratifier/internal/vardiff"
	"github.com/ckpool-go/stratifier/internal/workbase"
)

// Server holds every long-lived collaborator the stratifier's goroutines
// share. It has no behaviour of its own beyond what main.go and the
// per-queue consumer functions drive.
type Server struct {
	cfg *config.Config
	log *zap.Logger

	registry  *registry.Registry
	workbases *workbase.Manager
	vardiff   *vardiff.Controller
	shares    *validator.ShareMap
	blocks    *validator.PendingBlocks

	fabric    *fabric.Fabric
	generator generator.Client
	connector connector.Sink
	recvLn    *connector.ReceiveListener

	authBackend registry.AuthBackend
	dbSink      ckdb.Sink
	identity    workbase.PoolIdentity

	aggregator *poolstats.Aggregator
	exporter   *poolstats.Exporter

	lastShares       int64
	lastRejects      int64
	lastTxnReqByConn sync.Map // clientID uint64 -> time.Time, for get_txnhashes rate limiting
	pending          sync.Map // clientID uint64 -> *registry.Client, pre-subscribe placeholders
}

// clientFor resolves a connector client id to the *registry.Client that
// should receive replies: the registry's own pointer once subscribed, or
// the placeholder created on the connector's "connect" notice otherwise.
func (s *Server) clientFor(id uint64) *registry.Client {
	if c, ok := s.registry.Get(id); ok {
		return c
	}
	if v, ok := s.pending.Load(id); ok {
		return v.(*registry.Client)
	}
	return nil
}

// handleInbound routes one connector envelope: a new connection, a drop,
// or a raw Stratum line to dispatch (spec.md §2, §4.3).
func (s *Server) handleInbound(ctx context.Context, frame connector.InboundFrame) {
	switch frame.Kind {
	case "connect":
		s.pending.Store(frame.ClientID, &registry.Client{
			ID:       frame.ClientID,
			IDHex:    hexUint64(frame.ClientID),
			PeerAddr: frame.PeerAddr,
		})
	case "disconnect":
		serverMode := s.cfg.Pool.Mode == "server" || s.cfg.Pool.Mode == "solo"
		s.registry.DropClient(frame.ClientID, serverMode)
		s.pending.Delete(frame.ClientID)
	case "line":
		c := s.clientFor(frame.ClientID)
		if c == nil {
			return
		}
		if err := s.fabric.Dispatch(ctx, fabric.ReceiveItem{Client: c, Line: frame.Line}); err != nil {
			s.log.Debug("dispatch failed", zap.Uint64("client_id", frame.ClientID), zap.Error(err))
		}
	}
}

func hexUint64(v uint64) string {
	const hextable = "0123456789abcdef"
	b := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		b[i] = hextable[v&0xf]
		v >>= 4
	}
	return string(b)
}

// newServer assembles a Server from cfg. It dials the generator and
// connector command sockets and opens the receive listener, but starts no
// consumer goroutine or polling loop; main starts those.
func newServer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		log:       log,
		workbases: workbase.NewManager(time.Now()),
		shares:    validator.NewShareMap(),
		blocks:    validator.NewPendingBlocks(),
		fabric:    fabric.New(),
		vardiff: vardiff.NewController(vardiff.Config{
			PoolMinDiff: cfg.Pool.PoolMinDiff,
			MaxDiff:     cfg.Pool.MaxDiff,
		}),
	}

	enonce1Width := 8
	s.registry = registry.NewRegistry(enonce1Width)

	identity, err := buildPoolIdentity(cfg)
	if err != nil {
		return nil, err
	}
	s.identity = identity

	if cfg.Database.Host != "" {
		db, err := openDB(cfg)
		if err != nil {
			return nil, err
		}
		s.authBackend = registry.NewDBAuthBackend(db)
	} else {
		s.authBackend = registry.LocalAuthBackend{}
	}

	sink, err := buildDBSink(cfg, log)
	if err != nil {
		return nil, err
	}
	s.dbSink = sink

	genConn, err := net.DialTimeout("unix", cfg.Generator.SocketPath, cfg.Generator.DialTimeout)
	if err != nil {
		return nil, err
	}
	transport := ipcsock.NewConnTransport(genConn)
	s.generator = generator.NewClient(ctx, transport)

	connConn, err := net.DialTimeout("unix", cfg.Connector.SocketPath, cfg.Connector.DialTimeout)
	if err != nil {
		return nil, err
	}
	s.connector = connector.NewIPCSink(connConn)

	recvAddr := cfg.Connector.SocketPath + ".recv"
	ln, err := net.Listen("unix", recvAddr)
	if err != nil {
		return nil, err
	}
	s.recvLn = connector.NewReceiveListener(ln)

	s.aggregator = poolstats.NewAggregator(s.registry, s.dbSink, cfg.Pool.LogDir, log)

	return s, nil
}
