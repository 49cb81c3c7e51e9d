package connector

import (
	"encoding/json"
	"net"

	"github.com/ckpool-go/stratifier/internal/ipcsock"
)

// InboundFrame is one envelope the connector pushes upstream over the
// receive socket: either a client lifecycle event or a raw Stratum line to
// dispatch (spec.md §1's connector/stratifier boundary runs both ways —
// this is the mirror image of IPCSink's outbound dropclient/passthrough/
// send commands).
type InboundFrame struct {
	ClientID  uint64          `json:"client_id"`
	Kind      string          `json:"kind"` // "connect", "disconnect", "line"
	PeerAddr  string          `json:"peer_addr,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Line      json.RawMessage `json:"line,omitempty"`
}

// ReceiveListener accepts the connector process's connection(s) and decodes
// its framed envelopes, handing each to a caller-supplied handler.
type ReceiveListener struct {
	ln net.Listener
}

// NewReceiveListener wraps an already-bound listener (a Unix-domain socket
// in production).
func NewReceiveListener(ln net.Listener) *ReceiveListener {
	return &ReceiveListener{ln: ln}
}

// Serve accepts connections and reads frames from each until the listener
// is closed. handle runs synchronously per frame on that connection's own
// goroutine, so a slow handler only backs up its own connection's reads.
func (l *ReceiveListener) Serve(handle func(InboundFrame)) error {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return err
		}
		go serveConn(conn, handle)
	}
}

func serveConn(conn net.Conn, handle func(InboundFrame)) {
	defer conn.Close()
	fr := ipcsock.NewFrameReader(conn)
	for {
		payload, err := fr.ReadFrame()
		if err != nil {
			return
		}
		var frame InboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			continue
		}
		handle(frame)
	}
}

// Close closes the underlying listener, unblocking Serve.
func (l *ReceiveListener) Close() error {
	return l.ln.Close()
}
