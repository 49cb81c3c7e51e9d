package ipcsock

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// ConnTransport round-trips one text command per call over a single
// persistent net.Conn (a unix-domain socket to the generator process in
// production), framing the command and response with WriteFrame/ReadFrame.
// Calls are serialized by a mutex: the wire protocol is strictly
// request-then-response, so a second caller must wait for the first
// round trip to finish reading its reply before writing its own request.
// Concurrent prioritization across callers is internal/generator's job
// (PriorityClient); ConnTransport only implements the wire leg.
type ConnTransport struct {
	mu   sync.Mutex
	conn net.Conn
}

// NewConnTransport wraps an already-dialed connection.
func NewConnTransport(conn net.Conn) *ConnTransport {
	return &ConnTransport{conn: conn}
}

// RoundTrip writes command as one frame and returns the next frame read
// back, honoring ctx's deadline via the connection's deadline support.
func (t *ConnTransport) RoundTrip(ctx context.Context, command string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetDeadline(deadline); err != nil {
			return "", err
		}
		defer t.conn.SetDeadline(time.Time{})
	}

	if err := WriteFrame(t.conn, []byte(command)); err != nil {
		return "", fmt.Errorf("ipcsock: write command: %w", err)
	}
	reply, err := ReadFrame(t.conn)
	if err != nil {
		return "", fmt.Errorf("ipcsock: read reply: %w", err)
	}
	return string(reply), nil
}

// Close closes the underlying connection.
func (t *ConnTransport) Close() error {
	return t.conn.Close()
}
