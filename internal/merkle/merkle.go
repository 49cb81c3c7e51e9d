// Package merkle builds and evaluates the coinbase-rooted merkle branch
// used to fold a miner's coinbase transaction into a block's merkle root.
//
// Generalizes chimera-pool-core/internal/stratum/merkle/merkle.go's
// Builder: the teacher only ever combined a full transaction hash list at
// template-build time. The stratifier additionally needs to recombine a
// cached branch with a coinbase hash computed fresh for every submitted
// share (spec.md §4.6), so ComputeRootFromCoinbase is new here.
package merkle

import "crypto/sha256"

func doubleSHA256(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// BuildBranch computes the merkle branch for the coinbase transaction at
// index 0, given the hashes of every other transaction in block order. The
// branch is capped at 16 entries per spec.md §3 (2^16 transactions is far
// beyond any real block, but the cap bounds a workbase's on-wire size).
func BuildBranch(txHashes [][32]byte) [][32]byte {
	if len(txHashes) == 0 {
		return nil
	}

	hashes := make([][32]byte, len(txHashes))
	copy(hashes, txHashes)

	var branch [][32]byte
	for len(hashes) > 0 {
		branch = append(branch, hashes[0])
		if len(hashes) == 1 {
			break
		}

		var next [][32]byte
		for i := 1; i < len(hashes); i += 2 {
			left := hashes[i]
			right := left
			if i+1 < len(hashes) {
				right = hashes[i+1]
			}
			combined := append(append([]byte{}, left[:]...), right[:]...)
			next = append(next, doubleSHA256(combined))
		}
		hashes = next
	}

	if len(branch) > 16 {
		branch = branch[:16]
	}
	return branch
}

// ComputeRootFromCoinbase merges a freshly computed coinbase transaction
// hash with a cached merkle branch, producing the block's merkle root. The
// coinbase is always the left-hand operand at every level, matching
// Bitcoin's canonical merkle convention.
func ComputeRootFromCoinbase(coinbaseHash [32]byte, branch [][32]byte) [32]byte {
	current := coinbaseHash
	for _, sibling := range branch {
		combined := append(append([]byte{}, current[:]...), sibling[:]...)
		current = doubleSHA256(combined)
	}
	return current
}

// Reverse returns a byte-order-flipped copy of a 32-byte hash, used to
// convert between the internal big-endian accumulator representation and
// the little-endian on-wire header field (spec.md §4.6).
func Reverse(h [32]byte) [32]byte {
	var out [32]byte
	for i := 0; i < 32; i++ {
		out[i] = h[31-i]
	}
	return out
}
