// Package generator implements the Generator collaborator (spec.md §1,
// §4.10, §6): the textual IPC client that asks a Bitcoin daemon for block
// templates, submits solved blocks, and answers best-hash/address-check
// queries. Commands are prioritized so a solved-block submission or an
// urgent base refresh is never stuck behind a backlog of lower-priority
// upstream share forwards (spec.md §9, REDESIGN FLAGS: "ad-hoc priority
// races vs. the generator -> generator.PriorityClient with an explicit
// Priority type and a priority-ordered internal queue").
package generator

import (
	"container/heap"
	"context"
	"sync"
)

// Priority orders pending commands. GenPriority commands (base/diff
// refreshes, submitblock) are always dequeued before any queued GenLax
// command (proxy-mode upstream share forwards), matching spec.md §4.6's
// "forward ... to the generator at GEN_LAX priority" versus "sent to the
// generator at GEN_PRIORITY".
type Priority int

const (
	GenLax Priority = iota
	GenPriority
)

// pendingCmd is one queued IPC round trip awaiting its turn on the wire.
type pendingCmd struct {
	priority Priority
	seq      uint64 // insertion order, breaks ties within a priority class
	text     string
	result   chan Result
}

// Result is the outcome of one IPC round trip.
type Result struct {
	Text string
	Err  error
}

// pendingHeap orders pendingCmd by priority (high first), then by
// insertion order (low first) within the same priority.
type pendingHeap []*pendingCmd

func (h pendingHeap) Len() int { return len(h) }
func (h pendingHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h pendingHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *pendingHeap) Push(x interface{}) {
	*h = append(*h, x.(*pendingCmd))
}
func (h *pendingHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Transport performs one textual IPC round trip against the generator
// process. internal/ipcsock's length-prefixed connection and a unix
// socket dialer both satisfy this.
type Transport interface {
	RoundTrip(ctx context.Context, command string) (string, error)
}

// PriorityClient serializes commands onto a Transport through a single
// worker goroutine, ordering them by Priority rather than arrival order.
type PriorityClient struct {
	transport Transport

	mu      sync.Mutex
	cond    *sync.Cond
	pending pendingHeap
	nextSeq uint64
	closed  bool
}

// NewPriorityClient constructs a PriorityClient over transport and starts
// its worker goroutine, stopping when ctx is cancelled.
func NewPriorityClient(ctx context.Context, transport Transport) *PriorityClient {
	c := &PriorityClient{transport: transport}
	c.cond = sync.NewCond(&c.mu)
	go c.run(ctx)
	return c
}

// Enqueue submits command at the given priority and blocks until its
// result is ready or ctx is cancelled.
func (c *PriorityClient) Enqueue(ctx context.Context, priority Priority, command string) (string, error) {
	cmd := &pendingCmd{priority: priority, text: command, result: make(chan Result, 1)}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", context.Canceled
	}
	cmd.seq = c.nextSeq
	c.nextSeq++
	heap.Push(&c.pending, cmd)
	c.cond.Signal()
	c.mu.Unlock()

	select {
	case res := <-cmd.result:
		return res.Text, res.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// run is the single worker loop: pop the highest-priority pending command,
// round-trip it, deliver the result, repeat. Idle waits on the condition
// variable rather than spinning.
func (c *PriorityClient) run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		c.mu.Lock()
		c.closed = true
		c.cond.Broadcast()
		c.mu.Unlock()
	}()

	for {
		c.mu.Lock()
		for c.pending.Len() == 0 && !c.closed {
			c.cond.Wait()
		}
		if c.closed && c.pending.Len() == 0 {
			c.mu.Unlock()
			return
		}
		cmd := heap.Pop(&c.pending).(*pendingCmd)
		c.mu.Unlock()

		text, err := c.transport.RoundTrip(ctx, cmd.text)
		cmd.result <- Result{Text: text, Err: err}
	}
}
