// Package validator implements the Share Validator (spec.md §4.6): header
// reconstruction from a submitted share, share-difficulty computation,
// classification, and block-solution detection. The ordered-checks,
// return-first-match classification flow is grounded on
// chimera-pool-core/internal/stratum/detector/detector.go's protocol
// auto-detection control flow, generalized from detecting a wire protocol
// to classifying a share outcome.
package validator

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"math/big"

	"github.com/ckpool-go/stratifier/internal/merkle"
)

// truediffone is the difficulty-1 target (compact bits 0x1d00ffff expanded
// to a 256-bit integer): 0xffff * 2^208.
var truediffone = new(big.Int).Lsh(big.NewInt(0xffff), 208)

func doubleSHA256(b []byte) [32]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}

// flipWords reverses the byte order of every 4-byte word in buf, matching
// ckpool's header-hashing quirk (spec.md §4.6: "the whole 80-byte header
// is endian-flipped word-wise").
func flipWords(buf []byte) []byte {
	out := make([]byte, len(buf))
	copy(out, buf)
	for i := 0; i+4 <= len(out); i += 4 {
		out[i], out[i+1], out[i+2], out[i+3] = out[i+3], out[i+2], out[i+1], out[i]
	}
	return out
}

// buildHeader splices a merkle root, ntime and nonce into a copy of the
// workbase's cached 80-byte template, per spec.md §4.6: merkle root at
// offset 36 (already byte-flipped by the caller), ntime at offset 68,
// nonce at offset 76, both big-endian.
func buildHeader(template [112]byte, merkleRoot [32]byte, ntime, nonce uint32) [80]byte {
	var h [80]byte
	copy(h[:], template[:80])
	copy(h[36:68], merkleRoot[:])
	binary.BigEndian.PutUint32(h[68:72], ntime)
	binary.BigEndian.PutUint32(h[76:80], nonce)
	return h
}

// headerHash computes the block hash ckpool's gen_hash produces: flip the
// 80-byte header word-wise, then double-SHA-256 it.
func headerHash(h [80]byte) [32]byte {
	return doubleSHA256(flipWords(h[:]))
}

// shareDifficulty computes the standard share-difficulty formula: truediffone
// divided by the hash interpreted as a little-endian 256-bit integer
// (spec.md §4.6).
func shareDifficulty(hash [32]byte) float64 {
	le := merkle.Reverse(hash)
	n := new(big.Int).SetBytes(le[:])
	if n.Sign() == 0 {
		return math.Inf(1)
	}
	ratio := new(big.Rat).SetFrac(truediffone, n)
	f, _ := ratio.Float64()
	return f
}

// hashHex renders a hash the way block-solution logs and database events
// display it: byte-reversed, matching Bitcoin's conventional display order.
func hashHex(hash [32]byte) string {
	return hex.EncodeToString(merkle.Reverse(hash)[:])
}
