package connector

import (
	"net"
	"sync"
)

// shardCount must be a power of two for the fast masking modulo, matching
// chimera-pool-core/internal/stratum/connection_manager.go's sharded
// connection map (DefaultShardCount = 64).
const shardCount = 64

// connState tracks the per-connection mode a TCPSink needs beyond the raw
// socket: whether the client has been switched to passthrough relay.
type connState struct {
	conn        net.Conn
	passthrough bool
}

type shard struct {
	mu    sync.RWMutex
	conns map[uint64]*connState
}

// TCPSink is an in-process Sink (the daemon itself wires IPCSink): a
// line-oriented net.Conn fanout sharded
// by client id, so a hot client on one shard never blocks a lookup for a
// client on another (spec.md §6; grounded on
// chimera-pool-core/internal/stratum/connection_manager.go's
// ConnectionManager).
type TCPSink struct {
	shards [shardCount]*shard
}

// NewTCPSink constructs an empty TCPSink.
func NewTCPSink() *TCPSink {
	s := &TCPSink{}
	for i := range s.shards {
		s.shards[i] = &shard{conns: make(map[uint64]*connState)}
	}
	return s
}

func (s *TCPSink) shardFor(clientID uint64) *shard {
	return s.shards[clientID%shardCount]
}

// Register associates clientID with conn, so later Send/DropClient/
// Passthrough calls can reach it. Called by the accept loop once a
// connection has been assigned a client id by internal/registry.
func (s *TCPSink) Register(clientID uint64, conn net.Conn) {
	sh := s.shardFor(clientID)
	sh.mu.Lock()
	sh.conns[clientID] = &connState{conn: conn}
	sh.mu.Unlock()
}

// Send writes payload followed by a newline to clientID's connection,
// the Stratum newline-delimited JSON framing (spec.md §2).
func (s *TCPSink) Send(clientID uint64, payload []byte) error {
	sh := s.shardFor(clientID)
	sh.mu.RLock()
	st, ok := sh.conns[clientID]
	sh.mu.RUnlock()
	if !ok {
		return ErrUnknownClient
	}
	if _, err := st.conn.Write(append(payload, '\n')); err != nil {
		return err
	}
	return nil
}

// DropClient closes and forgets clientID's connection.
func (s *TCPSink) DropClient(clientID uint64) error {
	sh := s.shardFor(clientID)
	sh.mu.Lock()
	st, ok := sh.conns[clientID]
	if ok {
		delete(sh.conns, clientID)
	}
	sh.mu.Unlock()
	if !ok {
		return ErrUnknownClient
	}
	return st.conn.Close()
}

// Passthrough marks clientID's connection as relayed rather than parsed,
// per spec.md §6's mining.passthrough method.
func (s *TCPSink) Passthrough(clientID uint64) error {
	sh := s.shardFor(clientID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	st, ok := sh.conns[clientID]
	if !ok {
		return ErrUnknownClient
	}
	st.passthrough = true
	return nil
}

// IsPassthrough reports whether clientID has been switched to relay mode.
func (s *TCPSink) IsPassthrough(clientID uint64) bool {
	sh := s.shardFor(clientID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	st, ok := sh.conns[clientID]
	return ok && st.passthrough
}
