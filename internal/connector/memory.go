package connector

import "sync"

// MemorySink is an in-memory Sink test double: it records sent payloads
// and dropped/passthrough client ids instead of touching real sockets.
type MemorySink struct {
	mu           sync.Mutex
	Sent         map[uint64][][]byte
	Dropped      map[uint64]bool
	Passthroughs map[uint64]bool
	known        map[uint64]bool
}

// NewMemorySink constructs an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		Sent:         make(map[uint64][][]byte),
		Dropped:      make(map[uint64]bool),
		Passthroughs: make(map[uint64]bool),
		known:        make(map[uint64]bool),
	}
}

// Register marks clientID as a known connection, so Send/DropClient/
// Passthrough against it succeed rather than returning ErrUnknownClient.
func (m *MemorySink) Register(clientID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.known[clientID] = true
}

func (m *MemorySink) Send(clientID uint64, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.known[clientID] {
		return ErrUnknownClient
	}
	cp := append([]byte(nil), payload...)
	m.Sent[clientID] = append(m.Sent[clientID], cp)
	return nil
}

func (m *MemorySink) DropClient(clientID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.known[clientID] {
		return ErrUnknownClient
	}
	delete(m.known, clientID)
	m.Dropped[clientID] = true
	return nil
}

func (m *MemorySink) Passthrough(clientID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.known[clientID] {
		return ErrUnknownClient
	}
	m.Passthroughs[clientID] = true
	return nil
}
