// Package registry implements the Client Registry (spec.md §4.3): the
// live-client map, the per-user and per-workername aggregates, and the
// disconnected-client index that supports session resumption.
package registry

import (
	"sync"
	"time"
)

// DspsWindows holds decayed diff-shares-per-second estimates at the five
// windows spec.md §3 names for users and workers: 1/5/60/1440/10080
// minutes. These are the same exponential windows internal/vardiff uses in
// seconds (60/300/3600/86400/604800); minutes here only because that's how
// spec.md's data model expresses them for reporting.
type DspsWindows struct {
	W1m     float64
	W5m     float64
	W60m    float64
	W1440m  float64
	W10080m float64
}

// User is addressed by ASCII username: the portion of a workername before
// the first "." or "_" (spec.md §3).
type User struct {
	ID            int64
	SecondaryID   int64 // 0 until the database assigns one
	Username      string
	IsAddress     bool
	Script        [25]byte
	Workers       map[string]*Worker
	Dsps          DspsWindows
	LastShare     time.Time
	liveClients   int // currently-authorised live connections under this user

	Mu sync.Mutex
}

func newUser(id int64, username string) *User {
	return &User{
		ID:       id,
		Username: username,
		Workers:  make(map[string]*Worker),
	}
}

// Worker aggregates every connection sharing one full workername under a
// user (spec.md §3).
type Worker struct {
	Name      string
	User      *User
	Dsps      DspsWindows
	LastShare time.Time
	MinDiff   float64

	Mu sync.Mutex
}

// Client is one stratum connection, keyed by the 64-bit id the connector
// assigns (spec.md §3).
type Client struct {
	ID  uint64
	IDHex string

	Enonce1    uint64
	Enonce1Hex string

	Diff            float64
	OldDiff         float64
	DiffChangeJobID uint64
	LastDiffChange  time.Time
	SharesSinceDiffChange int

	Dsps       DspsWindows
	FirstShare time.Time
	LastShare  time.Time
	StartTime  time.Time

	PeerAddr   string
	Subscribed bool
	Authorised bool
	Idle       bool
	RejectLevel int
	FirstInvalid time.Time

	User       *User
	Worker     *Worker
	UserAgent  string
	WorkerName string
	Password   string

	LastTxnHashRequest time.Time
	SuggestDiff        float64

	Mu sync.Mutex
}

// RecordAccept clears the reject-escalation state, per spec.md §4.7: "Any
// accepted share resets first_invalid = 0 and reject = 0."
func (c *Client) RecordAccept() {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.FirstInvalid = time.Time{}
	c.RejectLevel = 0
}

// RecordReject escalates the client's reject level based on how long
// rejects have been continuous, per spec.md §4.7: a fresh diff at 60s
// (level 1), a lazy drop at 120s (level 2).
func (c *Client) RecordReject(now time.Time) int {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if c.FirstInvalid.IsZero() {
		c.FirstInvalid = now
		return c.RejectLevel
	}
	span := now.Sub(c.FirstInvalid)
	switch {
	case span >= 120*time.Second:
		c.RejectLevel = 2
	case span >= 60*time.Second:
		if c.RejectLevel < 1 {
			c.RejectLevel = 1
		}
	}
	return c.RejectLevel
}
