package ckdb

import (
	"context"
	"sync"
)

// MemorySink is an in-memory Sink test double, recording every event
// written to it in order.
type MemorySink struct {
	mu     sync.Mutex
	Events []Event
	Fail   bool // when true, Write returns ErrTimeout without recording
}

// NewMemorySink constructs an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Write(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrTimeout
	}
	m.Events = append(m.Events, event)
	return nil
}

// Len reports how many events have been recorded.
func (m *MemorySink) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Events)
}
