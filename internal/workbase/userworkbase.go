package workbase

import "sync"

// UserWorkbaseParams carries the per-user generation output that replaces
// the pool default when a solo-mode user has their own payout address
// (spec.md §3, "solo-mode per-user coinb2 variant").
type UserWorkbaseParams struct {
	UserID           int64
	GenerationScript [25]byte
	DonationValid    bool
	DonationScript   [25]byte
}

// BuildUserWorkbase regenerates wb's coinb2 with the given user's
// generation script instead of the pool default, leaving coinb1, the
// merkle branch and the header template untouched (only the coinbase
// transaction's output differs between users sharing one workbase).
func BuildUserWorkbase(wb *Workbase, p UserWorkbaseParams, signature []byte) *UserWorkbase {
	_, coinb2, _, _ := BuildCoinbase(BuildParams{
		Height:           wb.Height,
		Flags:            wb.Flags,
		GenTime:          wb.GenTime,
		Enonce1VarLen:    wb.Enonce1VarLen,
		Enonce2VarLen:    wb.Enonce2VarLen,
		Signature:        signature,
		CoinbaseValue:    wb.CoinbaseValue,
		GenerationScript: p.GenerationScript,
		DonationValid:    p.DonationValid,
		DonationScript:   p.DonationScript,
	})

	return &UserWorkbase{
		WorkbaseID: int64(wb.ID),
		UserID:     p.UserID,
		Coinb2:     coinb2,
	}
}

// userWorkbaseCache regenerates and caches a user's coinb2 variant lazily,
// once per (workbase, user) pair, matching how ckpool defers the per-user
// coinbase rebuild to a worker's first notify after authorisation rather
// than eagerly rebuilding for every registered user on every new workbase.
type userWorkbaseCache struct {
	mu     sync.Mutex
	params map[int64]UserWorkbaseParams
}

func newUserWorkbaseCache() *userWorkbaseCache {
	return &userWorkbaseCache{params: make(map[int64]UserWorkbaseParams)}
}

func (c *userWorkbaseCache) register(p UserWorkbaseParams) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params[p.UserID] = p
}

// Get returns the user's coinb2 for wb, building and caching it on wb if
// this is the first request for that pairing.
func (c *userWorkbaseCache) Get(wb *Workbase, userID int64, signature []byte) (*UserWorkbase, bool) {
	c.mu.Lock()
	p, ok := c.params[userID]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}

	wb.uwbMu.Lock()
	defer wb.uwbMu.Unlock()
	if uwb, ok := wb.UserWorkbases[userID]; ok {
		return uwb, true
	}
	uwb := BuildUserWorkbase(wb, p, signature)
	wb.UserWorkbases[userID] = uwb
	return uwb, true
}
