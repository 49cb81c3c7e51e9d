package merkle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func hashOf(b byte) [32]byte {
	var h [32]byte
	h[0] = b
	return h
}

func TestBuildBranchEmpty(t *testing.T) {
	assert.Nil(t, BuildBranch(nil))
}

func TestBuildBranchSingleTx(t *testing.T) {
	tx := hashOf(1)
	branch := BuildBranch([][32]byte{tx})
	assert.Equal(t, [][32]byte{tx}, branch)
}

func TestComputeRootRoundTrip(t *testing.T) {
	coinbase := hashOf(0xaa)
	tx1 := hashOf(1)
	tx2 := hashOf(2)
	tx3 := hashOf(3)

	branch := BuildBranch([][32]byte{tx1, tx2, tx3})
	root := ComputeRootFromCoinbase(coinbase, branch)

	// Recompute independently by hand to confirm the branch/root pairing
	// reconstructs the same tree a direct build would produce.
	level0 := [][32]byte{coinbase, tx1, tx2, tx3}
	h01 := doubleSHA256(append(append([]byte{}, level0[0][:]...), level0[1][:]...))
	h23 := doubleSHA256(append(append([]byte{}, level0[2][:]...), level0[3][:]...))
	want := doubleSHA256(append(append([]byte{}, h01[:]...), h23[:]...))

	assert.Equal(t, want, root)
}

func TestReverseIsInvolution(t *testing.T) {
	h := hashOf(0x5a)
	assert.Equal(t, h, Reverse(Reverse(h)))
}

func TestBranchCappedAt16(t *testing.T) {
	txs := make([][32]byte, 40000)
	for i := range txs {
		txs[i] = hashOf(byte(i))
	}
	branch := BuildBranch(txs)
	assert.LessOrEqual(t, len(branch), 16)
}
