package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ckpool-go/stratifier/internal/protocol"
	"github.com/ckpool-go/stratifier/internal/validator"
)

func TestShareErrorForMapsEveryOutcome(t *testing.T) {
	cases := []struct {
		outcome validator.Outcome
		want    protocol.ShareError
	}{
		{validator.Accept, protocol.ShareErrNone},
		{validator.StaleUnknown, protocol.ShareErrInvalidJobID},
		{validator.Stale, protocol.ShareErrStale},
		{validator.NtimeInvalid, protocol.ShareErrNTimeInvalid},
		{validator.HighDiff, protocol.ShareErrHighDiff},
		{validator.Dupe, protocol.ShareErrDupe},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, shareErrorFor(c.outcome), "outcome=%v", c.outcome)
	}
}

func TestJsonNumberPassesThroughKnownType(t *testing.T) {
	assert.Equal(t, json.Number("42"), jsonNumber(json.Number("42")))
}

func TestJsonNumberDefaultsForUnknownType(t *testing.T) {
	assert.Equal(t, json.Number("0"), jsonNumber(nil))
	assert.Equal(t, json.Number("0"), jsonNumber("not-a-number"))
}

func TestConcatHashesHexConcatenatesInOrder(t *testing.T) {
	var a, b [32]byte
	a[0] = 0xaa
	b[0] = 0xbb

	got := concatHashesHex([][32]byte{a, b})
	assert.Len(t, got, 128)
	assert.Equal(t, "aa", got[:2])
	assert.Equal(t, "bb", got[64:66])
}

func TestHexUint64RendersSixteenLowercaseHexChars(t *testing.T) {
	assert.Equal(t, "0000000000000001", hexUint64(1))
	assert.Equal(t, "ffffffffffffffff", hexUint64(^uint64(0)))
}
