package workbase

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyFieldsRendersHexForEveryField(t *testing.T) {
	wb := &Workbase{
		ID:       0x1234,
		PrevHash: [32]byte{0x01, 0x02},
		Coinb1:   []byte{0xde, 0xad},
		Coinb2:   []byte{0xbe, 0xef},
		MerkleBranch: [][32]byte{
			{0xaa},
			{0xbb},
		},
		Version:  [4]byte{0x00, 0x00, 0x00, 0x20},
		NBit:     [4]byte{0x17, 0x03, 0x4d, 0xfe},
		NTimeHex: [4]byte{0x61, 0x00, 0x00, 0x00},
	}

	got := wb.NotifyFields()

	assert.Equal(t, "0000000000001234", got.JobIDHex)
	assert.Equal(t, hex.EncodeToString(wb.PrevHash[:]), got.PrevHash)
	assert.Equal(t, "dead", got.Coinb1Hex)
	assert.Equal(t, "beef", got.Coinb2Hex)
	require.Len(t, got.MerkleHex, 2)
	assert.Equal(t, hex.EncodeToString(wb.MerkleBranch[0][:]), got.MerkleHex[0])
	assert.Equal(t, hex.EncodeToString(wb.MerkleBranch[1][:]), got.MerkleHex[1])
	assert.Equal(t, "00000020", got.VersionHex)
	assert.Equal(t, "17034dfe", got.NBitHex)
	assert.Equal(t, "61000000", got.NTimeHex)
}

func TestIdHexIsSixteenCharsAndZeroPadded(t *testing.T) {
	assert.Equal(t, "0000000000000001", idHex(1))
	assert.Equal(t, "ffffffffffffffff", idHex(^uint64(0)))
}

func TestUserCoinb2HexFallsBackToSharedCoinb2(t *testing.T) {
	wb := &Workbase{
		Coinb2:        []byte{0xca, 0xfe},
		UserWorkbases: map[int64]*UserWorkbase{},
	}
	assert.Equal(t, "cafe", wb.UserCoinb2Hex(42))
}

func TestUserCoinb2HexPrefersBuiltVariant(t *testing.T) {
	wb := &Workbase{
		Coinb2: []byte{0xca, 0xfe},
		UserWorkbases: map[int64]*UserWorkbase{
			42: {UserID: 42, Coinb2: []byte{0x01, 0x02}},
		},
	}
	assert.Equal(t, "0102", wb.UserCoinb2Hex(42))
}
