package validator

import "sync"

// ShareMap deduplicates accepted share hashes for the lifetime of the
// workbase they applied to (spec.md §3: "a share's 32-byte hash appears at
// most once in the live share map; duplicates are rejected"). It is purged
// on block change by dropping entries for workbases older than the new
// blockchange_id.
type ShareMap struct {
	mu      sync.Mutex
	entries map[[32]byte]uint64 // hash -> workbase id
}

// NewShareMap constructs an empty ShareMap.
func NewShareMap() *ShareMap {
	return &ShareMap{entries: make(map[[32]byte]uint64)}
}

// CheckAndInsert reports whether hash is already present; if not, it
// records it against workbaseID and returns false.
func (m *ShareMap) CheckAndInsert(hash [32]byte, workbaseID uint64) (dupe bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[hash]; ok {
		return true
	}
	m.entries[hash] = workbaseID
	return false
}

// PurgeBelow drops every entry whose workbase id is less than
// blockchangeID, per spec.md §4.1's block-change purge.
func (m *ShareMap) PurgeBelow(blockchangeID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h, id := range m.entries {
		if id < blockchangeID {
			delete(m.entries, h)
		}
	}
}

// Len reports the number of tracked shares, for tests and stats.
func (m *ShareMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
