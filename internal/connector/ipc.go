package connector

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/ckpool-go/stratifier/internal/ipcsock"
)

// envelope is the outbound send frame spec.md §6 names: "full JSON
// messages (with client_id added) for sends".
type envelope struct {
	ClientID uint64          `json:"client_id"`
	Payload  json.RawMessage `json:"payload"`
}

// IPCSink is the production Sink against the out-of-process connector
// (spec.md §1: "The connector process that owns TCP sockets ... is
// treated as an external collaborator, only their interfaces are
// specified here"). It frames each command over a persistent connection
// using internal/ipcsock's length-prefixed codec, matching spec.md §6's
// textual "dropclient=<id>", "passthrough=<id>" commands and raw JSON
// sends.
type IPCSink struct {
	mu   sync.Mutex
	conn net.Conn
}

// NewIPCSink wraps an already-dialed connection to the connector's
// command socket.
func NewIPCSink(conn net.Conn) *IPCSink {
	return &IPCSink{conn: conn}
}

// Send wraps payload with clientID and writes it as one frame.
func (s *IPCSink) Send(clientID uint64, payload []byte) error {
	env := envelope{ClientID: clientID, Payload: json.RawMessage(payload)}
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("connector: marshal send: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return ipcsock.WriteFrame(s.conn, b)
}

// DropClient writes the "dropclient=<id>" command (spec.md §6).
func (s *IPCSink) DropClient(clientID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ipcsock.WriteFrame(s.conn, []byte(fmt.Sprintf("dropclient=%d", clientID)))
}

// Passthrough writes the "passthrough=<id>" command (spec.md §6).
func (s *IPCSink) Passthrough(clientID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ipcsock.WriteFrame(s.conn, []byte(fmt.Sprintf("passthrough=%d", clientID)))
}

// Close closes the underlying connection.
func (s *IPCSink) Close() error {
	return s.conn.Close()
}
