package registry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var (
	// ErrInvalidWorkerName is returned when a workername fails the
	// username-derivation rules in spec.md §4.3.
	ErrInvalidWorkerName = errors.New("registry: invalid worker name")
	// ErrBackendTimeout is returned by an AuthBackend when it could not
	// complete its round trip within the caller's context deadline.
	ErrBackendTimeout = errors.New("registry: auth backend timeout")
)

// authTimeout bounds the synchronous database round trip spec.md §4.3
// allows for an authorise/addrauth exchange.
const authTimeout = 3 * time.Second

// ParseUsername derives the username from a full workername by splitting
// at the first "." or "_", rejecting names containing "/" or starting with
// "." or "_" (spec.md §4.3), and truncating to 127 bytes (spec.md §3).
func ParseUsername(workername string) (username string, err error) {
	if workername == "" {
		return "", ErrInvalidWorkerName
	}
	if strings.Contains(workername, "/") {
		return "", ErrInvalidWorkerName
	}
	if workername[0] == '.' || workername[0] == '_' {
		return "", ErrInvalidWorkerName
	}

	username = workername
	if idx := strings.IndexAny(workername, "._"); idx >= 0 {
		username = workername[:idx]
	}
	if len(username) > 127 {
		username = username[:127]
	}
	return username, nil
}

// AuthBackend performs the synchronous authorise/addrauth round trip
// against whatever backs authentication in the current mode. Local and
// standalone modes accept unconditionally; database mode talks to ckdb.
type AuthBackend interface {
	Authorise(ctx context.Context, username, workername, password, address string) (secondaryID int64, err error)
}

// LocalAuthBackend accepts every authorisation without a round trip,
// matching spec.md §4.3's "in solo or standalone mode the acceptance is
// local".
type LocalAuthBackend struct{}

// Authorise always succeeds with no assigned secondary id.
func (LocalAuthBackend) Authorise(ctx context.Context, username, workername, password, address string) (int64, error) {
	return 0, nil
}

// DBAuthBackend exchanges an authorise event with the database
// synchronously, bounded by authTimeout, grounded on
// chimera-pool-core/internal/stratum/db_authenticator.go's database/sql
// query shape but querying ckdb's authorise record rather than a user
// table directly (the stratifier treats the database as an event sink, not
// a relational store it queries for passwords).
type DBAuthBackend struct {
	db *sql.DB
}

// NewDBAuthBackend wraps an open database handle.
func NewDBAuthBackend(db *sql.DB) *DBAuthBackend {
	return &DBAuthBackend{db: db}
}

// Authorise looks up (or inserts) the user's secondary id, enforcing the
// 3 second timeout spec.md §4.3 names.
func (b *DBAuthBackend) Authorise(ctx context.Context, username, workername, password, address string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	const query = `
		INSERT INTO authorise (username, workername, address, authorised_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (username) DO UPDATE SET workername = excluded.workername
		RETURNING secondary_id
	`

	var secondaryID int64
	err := b.db.QueryRowContext(ctx, query, username, workername, address).Scan(&secondaryID)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return 0, ErrBackendTimeout
	}
	if err != nil {
		return 0, err
	}
	return secondaryID, nil
}

// AuthResult summarises the outcome of Registry.Authorise.
type AuthResult struct {
	Username string
	Delayed  bool // accepted without a live backend round trip (spec.md §4.3)
	NewUser  bool
}

// Authorise derives the client's username, finds or creates the User and
// Worker aggregates, and performs the backend round trip (spec.md §4.3).
// If the backend reports a timeout and the user already has a secondary
// id from a prior successful round trip, the authorisation is accepted as
// delayed rather than failed.
func (r *Registry) Authorise(ctx context.Context, clientID uint64, workername, password, address string, backend AuthBackend) (*AuthResult, error) {
	username, err := ParseUsername(workername)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	client, ok := r.clients[clientID]
	if !ok {
		r.mu.Unlock()
		return nil, ErrClientNotFound
	}
	user, existed := r.users[username]
	if !existed {
		user = newUser(r.nextUserID, username)
		r.nextUserID++
		r.users[username] = user
	}
	r.mu.Unlock()

	secondaryID, authErr := backend.Authorise(ctx, username, workername, password, address)
	delayed := false
	if authErr != nil {
		user.Mu.Lock()
		hasSecondary := user.SecondaryID != 0
		user.Mu.Unlock()
		if errors.Is(authErr, ErrBackendTimeout) && hasSecondary {
			delayed = true
		} else {
			return nil, authErr
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !delayed && secondaryID != 0 {
		user.Mu.Lock()
		user.SecondaryID = secondaryID
		user.Mu.Unlock()
	}

	worker, workerExisted := user.Workers[workername]
	if !workerExisted {
		worker = &Worker{Name: workername, User: user}
		user.Workers[workername] = worker
	}

	client.Authorised = true
	client.User = user
	client.Worker = worker
	client.WorkerName = workername
	client.Password = password

	user.Mu.Lock()
	user.liveClients++
	if user.liveClients == 1 {
		r.UserCount++
	}
	user.Mu.Unlock()
	r.WorkerCount++

	return &AuthResult{Username: username, Delayed: delayed, NewUser: !existed}, nil
}
