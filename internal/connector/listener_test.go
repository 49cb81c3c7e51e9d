package connector

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckpool-go/stratifier/internal/ipcsock"
)

func TestReceiveListenerDecodesFramedEnvelopes(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	l := NewReceiveListener(ln)
	defer l.Close()

	got := make(chan InboundFrame, 1)
	go func() {
		_ = l.Serve(func(f InboundFrame) { got <- f })
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	payload := []byte(`{"client_id":7,"kind":"connect","peer_addr":"1.2.3.4:5678"}`)
	require.NoError(t, ipcsock.WriteFrame(conn, payload))

	select {
	case frame := <-got:
		assert.Equal(t, uint64(7), frame.ClientID)
		assert.Equal(t, "connect", frame.Kind)
		assert.Equal(t, "1.2.3.4:5678", frame.PeerAddr)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for decoded frame")
	}
}

func TestReceiveListenerSkipsMalformedFrameAndKeepsReading(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	l := NewReceiveListener(ln)
	defer l.Close()

	got := make(chan InboundFrame, 1)
	go func() {
		_ = l.Serve(func(f InboundFrame) { got <- f })
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, ipcsock.WriteFrame(conn, []byte("not json")))
	require.NoError(t, ipcsock.WriteFrame(conn, []byte(`{"client_id":3,"kind":"disconnect"}`)))

	select {
	case frame := <-got:
		assert.Equal(t, uint64(3), frame.ClientID)
		assert.Equal(t, "disconnect", frame.Kind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for decoded frame")
	}
}
