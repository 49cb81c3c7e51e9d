package validator

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
)

// encodeVarInt encodes n using Bitcoin's CompactSize varint, resolving
// spec.md §9's open question in favor of the standard on-wire byte order:
// the 0xfd/0xfe/0xff marker byte is followed by the value in little-endian
// (spec.md §4.6: "uses 1/3/5 bytes per standard encoding" — "3/5" bytes
// here count the marker; the value itself is 2/4/8 bytes, for 3/5/9 total,
// and the 8-byte (0xff) form is included for completeness though no real
// block carries that many transactions).
func encodeVarInt(n uint64) []byte {
	switch {
	case n < 0xfd:
		return []byte{byte(n)}
	case n <= 0xffff:
		b := make([]byte, 3)
		b[0] = 0xfd
		binary.LittleEndian.PutUint16(b[1:], uint16(n))
		return b
	case n <= 0xffffffff:
		b := make([]byte, 5)
		b[0] = 0xfe
		binary.LittleEndian.PutUint32(b[1:], uint32(n))
		return b
	default:
		b := make([]byte, 9)
		b[0] = 0xff
		binary.LittleEndian.PutUint64(b[1:], n)
		return b
	}
}

// isBlockSolve reports whether shareDiff meets the block-solution threshold
// for the given network difficulty (spec.md §4.6: "≥ 0.99 × network
// difficulty"). A zero or negative networkDiff means no template has been
// ingested yet, so nothing can be a block solve.
func isBlockSolve(shareDiff, networkDiff float64) bool {
	return networkDiff > 0 && shareDiff >= blockSolveRatio*networkDiff
}

// BlockSolution is the full serialisation of a candidate block solution,
// sent to the generator at GEN_PRIORITY and mirrored to the database as a
// "block" event (spec.md §4.6).
type BlockSolution struct {
	Hash        string // display-order hex
	Header      [80]byte
	TxnCount    uint64
	CoinbaseHex string
	RawTxnData  []byte
	Height      uint64
	Confirmed   *bool // nil: pending, true: confirmed, false: rejected
}

// SubmitBlockCommand renders the textual IPC command sent to the generator
// (spec.md §6: "submitblock:<hash>,<hex>").
func (b *BlockSolution) SubmitBlockCommand() string {
	blob := make([]byte, 0, 80+9+len(b.CoinbaseHex)/2+len(b.RawTxnData))
	blob = append(blob, b.Header[:]...)
	blob = append(blob, encodeVarInt(b.TxnCount)...)
	coinbaseBytes, _ := hex.DecodeString(b.CoinbaseHex)
	blob = append(blob, coinbaseBytes...)
	blob = append(blob, b.RawTxnData...)
	return fmt.Sprintf("submitblock:%s,%s", b.Hash, hex.EncodeToString(blob))
}

// PendingBlocks tracks in-flight block solutions awaiting confirmation or
// rejection from the generator (spec.md §3, "block-solve pending list").
type PendingBlocks struct {
	mu      sync.Mutex
	pending map[string]*BlockSolution
}

// NewPendingBlocks constructs an empty tracker.
func NewPendingBlocks() *PendingBlocks {
	return &PendingBlocks{pending: make(map[string]*BlockSolution)}
}

// Add records a newly submitted candidate.
func (p *PendingBlocks) Add(b *BlockSolution) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[b.Hash] = b
}

// Resolve marks a pending solution confirmed or rejected, matching it by
// hash against a subsequent `block=<hash>` or `noblock=<hash>` instruction
// (spec.md §4.6). It returns the matched entry, or nil if none was found.
func (p *PendingBlocks) Resolve(hash string, confirmed bool) *BlockSolution {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.pending[hash]
	if !ok {
		return nil
	}
	b.Confirmed = &confirmed
	return b
}
