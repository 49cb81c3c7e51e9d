package generator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingTransport lets the test hold the worker on its first round trip
// so later Enqueue calls can be queued up before any are drained, making
// the priority ordering deterministic to observe.
type blockingTransport struct {
	mu      sync.Mutex
	order   []string
	release chan struct{}
	first   bool
}

func newBlockingTransport() *blockingTransport {
	return &blockingTransport{release: make(chan struct{}), first: true}
}

func (t *blockingTransport) RoundTrip(ctx context.Context, command string) (string, error) {
	t.mu.Lock()
	holdFirst := t.first
	t.first = false
	t.order = append(t.order, command)
	t.mu.Unlock()

	if holdFirst {
		<-t.release
	}
	return "ok:" + command, nil
}

func TestPriorityClientOrdersGenPriorityBeforeGenLax(t *testing.T) {
	transport := newBlockingTransport()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := NewPriorityClient(ctx, transport)

	results := make(chan string, 3)
	go func() {
		r, _ := c.Enqueue(ctx, GenLax, "lax-1")
		results <- r
	}()
	time.Sleep(20 * time.Millisecond) // let lax-1 become the blocking first round trip

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r, _ := c.Enqueue(ctx, GenLax, "lax-2")
		results <- r
	}()
	go func() {
		defer wg.Done()
		r, _ := c.Enqueue(ctx, GenPriority, "priority-1")
		results <- r
	}()
	time.Sleep(20 * time.Millisecond) // let both queue up behind the held first call

	close(transport.release)
	wg.Wait()
	<-results // drain lax-1's result

	transport.mu.Lock()
	order := append([]string{}, transport.order...)
	transport.mu.Unlock()

	require.Len(t, order, 3)
	assert.Equal(t, "lax-1", order[0])
	assert.Equal(t, "priority-1", order[1], "GenPriority must be dequeued before the already-queued GenLax command")
	assert.Equal(t, "lax-2", order[2])
}

func TestPriorityClientReturnsTransportError(t *testing.T) {
	transport := &errorTransport{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := NewPriorityClient(ctx, transport)

	_, err := c.Enqueue(ctx, GenPriority, "getbase")
	assert.Error(t, err)
}

type errorTransport struct{}

func (errorTransport) RoundTrip(ctx context.Context, command string) (string, error) {
	return "", assertError
}

var assertError = &transportError{"boom"}

type transportError struct{ msg string }

func (e *transportError) Error() string { return e.msg }

func TestPriorityClientStopsOnContextCancellation(t *testing.T) {
	transport := newBlockingTransport()
	close(transport.release) // never actually blocks
	ctx, cancel := context.WithCancel(context.Background())
	c := NewPriorityClient(ctx, transport)
	cancel()

	_, err := c.Enqueue(context.Background(), GenLax, "late")
	assert.Error(t, err)
}
