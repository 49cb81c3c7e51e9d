// Package workbase implements the Template Manager and Coinbase Builder
// (spec.md §4.1, §4.2): it turns a block-template feed into workbases
// miners can mine against, ages them out, and assembles the per-workbase
// and per-user coinbase transactions and header templates.
package workbase

import (
	"encoding/binary"
	"sync"
	"time"
)

// MaxMerkleBranch bounds the number of merkle branch hashes retained per
// workbase (spec.md §3).
const MaxMerkleBranch = 16

// HeaderTemplateLen is the cached header buffer size: the 80-byte Bitcoin
// block header plus 32 bytes of scratch padding (spec.md §3/§4.2). Only the
// first 80 bytes are ever hashed (spec.md §4.6); the remainder exists so
// the cached buffer matches the capacity the spec calls for.
const HeaderTemplateLen = 112

// Workbase is one block-template instance, decorated with its coinbase
// parts, shared by every client currently mining against it (spec.md §3).
type Workbase struct {
	ID          uint64
	GenTime     time.Time
	NetworkDiff float64
	Height      uint64
	PrevHash    [32]byte // big-endian, as received from the template feed
	Version     [4]byte
	NTimeHex    [4]byte
	NBit        [4]byte
	NTime32     uint32
	Flags       []byte // raw coinbase signature flags
	CoinbaseValue uint64
	MerkleBranch  [][32]byte

	// TxHashes and RawTxnData retain the block's non-coinbase transactions
	// for mining.get_transactions/get_txnhashes (spec.md §6) and for
	// assembling the full block on a solve (spec.md §4.6); not part of
	// spec.md §3's own attribute list, but needed by operations it does
	// name.
	TxHashes   [][32]byte
	RawTxnData []byte

	Coinb1          []byte
	Coinb2          []byte
	ScriptLenOffset int // position of the patched script-length byte in Coinb1
	GenOffset       int // position of the 25-byte generation script in Coinb2

	Enonce1Const    []byte
	Enonce1ConstLen int
	Enonce1VarLen   int
	Enonce2VarLen   int

	HeaderTemplate [HeaderTemplateLen]byte

	// UserWorkbases holds the solo-mode per-user coinb2 variant, keyed by
	// user id. Empty in proxy/standard mode. uwbMu guards lazy inserts from
	// concurrent notify goroutines.
	UserWorkbases map[int64]*UserWorkbase
	uwbMu         sync.Mutex
}

// UserWorkbase is a per-user variant of a Workbase's coinb2, with the
// generation script overwritten for that user's address (spec.md §3).
type UserWorkbase struct {
	WorkbaseID int64
	UserID     int64
	Coinb2     []byte
}

// idGenerator produces a monotone, wall-clock-seeded workbase id: the high 32
// bits come from the Unix time at process start so ids keep increasing
// across a process restart even though no workbase state itself survives
// restarts (spec.md Non-goals), and the low 32 bits are a per-process
// sequence counter.
type idGenerator struct {
	base uint64
	seq  uint32
}

// newIDGenerator seeds the high bits from the given time, matching
// spec.md §3's "monotone integer id (wall-clock-seeded high bits to
// survive restart)".
func newIDGenerator(seed time.Time) *idGenerator {
	return &idGenerator{base: uint64(seed.Unix()) << 32}
}

func (g *idGenerator) next() uint64 {
	id := g.base | uint64(g.seq)
	g.seq++
	return id
}

// ntime32 parses a 4-byte big-endian ntime field (the on-wire compact
// representation) into its numeric form.
func ntime32(b [4]byte) uint32 {
	return binary.BigEndian.Uint32(b[:])
}
