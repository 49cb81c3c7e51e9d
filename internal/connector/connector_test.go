package connector

import (
	"bufio"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPSinkSendWritesNewlineFramedPayload(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	s := NewTCPSink()
	s.Register(1, server)

	go func() {
		_ = s.Send(1, []byte(`{"id":1}`))
	}()

	reader := bufio.NewReader(client)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":1}\n", line)
}

func TestTCPSinkSendUnknownClientReturnsError(t *testing.T) {
	s := NewTCPSink()
	err := s.Send(999, []byte("x"))
	assert.ErrorIs(t, err, ErrUnknownClient)
}

func TestTCPSinkDropClientClosesAndForgets(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	s := NewTCPSink()
	s.Register(5, server)

	require.NoError(t, s.DropClient(5))
	assert.ErrorIs(t, s.DropClient(5), ErrUnknownClient)
}

func TestTCPSinkPassthroughMarksConnection(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	s := NewTCPSink()
	s.Register(7, server)

	assert.False(t, s.IsPassthrough(7))
	require.NoError(t, s.Passthrough(7))
	assert.True(t, s.IsPassthrough(7))
}

func TestMemorySinkRecordsSentPayloads(t *testing.T) {
	m := NewMemorySink()
	m.Register(1)

	require.NoError(t, m.Send(1, []byte("a")))
	require.NoError(t, m.Send(1, []byte("b")))

	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, m.Sent[1])
}

func TestMemorySinkUnknownClientOperationsFail(t *testing.T) {
	m := NewMemorySink()
	assert.ErrorIs(t, m.Send(1, []byte("x")), ErrUnknownClient)
	assert.ErrorIs(t, m.DropClient(1), ErrUnknownClient)
	assert.ErrorIs(t, m.Passthrough(1), ErrUnknownClient)
}

func TestMemorySinkDropRemovesFromKnownSet(t *testing.T) {
	m := NewMemorySink()
	m.Register(2)
	require.NoError(t, m.DropClient(2))
	assert.True(t, m.Dropped[2])
	assert.ErrorIs(t, m.Send(2, []byte("x")), ErrUnknownClient)
}

var _ Sink = (*TCPSink)(nil)
var _ Sink = (*MemorySink)(nil)
