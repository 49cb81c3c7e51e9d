package registry

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// ErrClientNotFound is returned when an operation references a client id
// that isn't (or is no longer) live.
var ErrClientNotFound = errors.New("registry: client not found")

// Registry holds the live-client map, the disconnected-client index, and
// the per-user/per-workername aggregates, all under one reader-writer lock
// (spec.md §4.3, §5: "a single reader-writer lock protects both the live
// map and user/worker graph; the disconnected index is protected by the
// same lock").
type Registry struct {
	mu sync.RWMutex

	clients      map[uint64]*Client // live, keyed by connector client id
	byEnonce1    map[uint64]*Client // live, keyed by enonce1
	disconnected map[uint64]*Client // server mode only, keyed by enonce1
	users        map[string]*User

	enonce1 *enonce1Allocator

	nextUserID int64
	UserCount  int
	WorkerCount int
}

// NewRegistry constructs an empty Registry. enonce1Width is the byte width
// of the variable extranonce1 region for the pool's current mode: 8 in
// server mode, or the proxy-negotiated width from the subscribe response
// (spec.md §4.2/§4.5).
func NewRegistry(enonce1Width int) *Registry {
	return &Registry{
		clients:      make(map[uint64]*Client),
		byEnonce1:    make(map[uint64]*Client),
		disconnected: make(map[uint64]*Client),
		users:        make(map[string]*User),
		enonce1:      newEnonce1Allocator(enonce1Width),
		nextUserID:   1,
	}
}

// Subscribe registers a new client connection, allocating or resuming an
// extranonce1 value, per spec.md §4.3. sessionIDHex, if non-empty, is the
// 16-hex-char session id a reconnecting client presented.
func (r *Registry) Subscribe(clientID uint64, sessionIDHex string, peerAddr string, now time.Time) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var enonce1 uint64
	resumed := false
	if len(sessionIDHex) == 16 {
		if v, err := strconv.ParseUint(sessionIDHex, 16, 64); err == nil {
			if _, live := r.byEnonce1[v]; !live {
				if _, ok := r.disconnected[v]; ok {
					enonce1 = v
					resumed = true
					delete(r.disconnected, v)
				}
			}
		}
	}

	if !resumed {
		v, err := r.enonce1.allocate(func(candidate uint64) bool {
			_, live := r.byEnonce1[candidate]
			return !live
		})
		if err != nil {
			return nil, err
		}
		enonce1 = v
	}

	client := &Client{
		ID:         clientID,
		IDHex:      fmt.Sprintf("%x", clientID),
		Enonce1:    enonce1,
		Enonce1Hex: fmt.Sprintf("%016x", enonce1),
		PeerAddr:   peerAddr,
		Subscribed: true,
		StartTime:  now,
	}
	r.clients[clientID] = client
	r.byEnonce1[enonce1] = client
	return client, nil
}

// DropClient removes a client from the live map. In server mode, if it was
// the sole holder of its enonce1 value, the client is moved into the
// disconnected index so a later reconnect can resume the same value
// (spec.md §4.3).
func (r *Registry) DropClient(clientID uint64, serverMode bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[clientID]
	if !ok {
		return
	}
	delete(r.clients, clientID)
	delete(r.byEnonce1, client.Enonce1)

	if serverMode {
		if _, exists := r.disconnected[client.Enonce1]; !exists {
			r.disconnected[client.Enonce1] = client
		}
	}

	if client.Authorised {
		r.WorkerCount--
		if client.User != nil {
			client.User.Mu.Lock()
			client.User.liveClients--
			if client.User.liveClients == 0 {
				r.UserCount--
			}
			client.User.Mu.Unlock()
		}
	}
}

// Get returns a live client by id.
func (r *Registry) Get(clientID uint64) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[clientID]
	return c, ok
}

// LiveEnonce1Holder reports whether some live client currently holds the
// given enonce1 value (used by share validation to confirm a client's own
// claim, and by tests asserting the uniqueness invariant).
func (r *Registry) LiveEnonce1Holder(enonce1 uint64) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byEnonce1[enonce1]
	return c, ok
}

// Broadcast calls fn once for every live client, holding only a read lock
// for the duration of the snapshot — callers should not block inside fn
// for long (spec.md §4.8 groups sends under one send-queue lock acquire;
// here the registry-side analogue is a single read-lock snapshot).
func (r *Registry) Broadcast(fn func(*Client)) {
	r.mu.RLock()
	snapshot := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()

	for _, c := range snapshot {
		fn(c)
	}
}

// Users returns a snapshot of every known user, for the stats aggregator's
// per-user status-file and database-flush passes (spec.md §4.9).
func (r *Registry) Users() []*User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out
}

// ClientSnapshot returns a point-in-time copy of every live client,
// matching Broadcast's snapshot-under-read-lock shape but returning the
// slice directly for callers (like the idle-client pass) that need to
// inspect state rather than send.
func (r *Registry) ClientSnapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}
