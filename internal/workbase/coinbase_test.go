package workbase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerNumberSmallPositive(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0x42}, serNumber(0x42))
}

func TestSerNumberHighBitNeedsGuard(t *testing.T) {
	// 0x80 alone would look like a negative CScriptNum, so a zero guard
	// byte must be appended.
	got := serNumber(0x80)
	assert.Equal(t, []byte{0x02, 0x80, 0x00}, got)
}

func TestSerNumberZero(t *testing.T) {
	assert.Equal(t, []byte{0x00}, serNumber(0))
}

func TestEnonceLens(t *testing.T) {
	cases := []struct {
		nonce2Len              int
		wantE1, wantE2 int
	}{
		{8, 4, 4},
		{6, 2, 4},
		{5, 1, 4},
		{1, 1, 0},
	}
	for _, c := range cases {
		e1, e2 := EnonceLens(c.nonce2Len)
		assert.Equal(t, c.wantE1, e1, "nonce2Len=%d", c.nonce2Len)
		assert.Equal(t, c.wantE2, e2, "nonce2Len=%d", c.nonce2Len)
	}
}

func TestBuildCoinbaseScriptLenPatch(t *testing.T) {
	var gen [25]byte
	copy(gen[:], []byte{0x76, 0xa9, 0x14})

	coinb1, coinb2, scriptLenOffset, genOffset := BuildCoinbase(BuildParams{
		Height:           800000,
		Flags:            []byte("ckpool"),
		GenTime:          time.Unix(1700000000, 0),
		Enonce1VarLen:    4,
		Enonce2VarLen:    4,
		CoinbaseValue:    625000000,
		GenerationScript: gen,
	})

	require.Less(t, scriptLenOffset, len(coinb1))
	afterScriptLen := len(coinb1) - (scriptLenOffset + 1)
	wantScriptLen := afterScriptLen + 4 + 4 + len(coinb2)
	assert.Equal(t, byte(wantScriptLen), coinb1[scriptLenOffset])

	require.Less(t, genOffset+25, len(coinb2)+1)
	assert.Equal(t, gen[:], coinb2[genOffset:genOffset+25])
}

func TestBuildCoinbaseDonationSplit(t *testing.T) {
	var gen, don [25]byte
	_, coinb2, _, _ := BuildCoinbase(BuildParams{
		Height:           100,
		GenTime:          time.Unix(1700000000, 0),
		Enonce1VarLen:    4,
		Enonce2VarLen:    4,
		CoinbaseValue:    2000000000,
		GenerationScript: gen,
		DonationValid:    true,
		DonationScript:   don,
	})
	// two outputs were written: tx-out count byte is 0x02 right after the
	// sequence/locktime preamble (ckpool tag + 4-byte sequence).
	assert.Equal(t, byte(0x02), coinb2[len(ckpoolTag)+4])
}
