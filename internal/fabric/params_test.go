package fabric

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ckpool-go/stratifier/internal/protocol"
)

func TestParseAuthParamsHappyPath(t *testing.T) {
	worker, password, se := ParseAuthParams([]interface{}{"user.worker", "x"})
	assert.Equal(t, "user.worker", worker)
	assert.Equal(t, "x", password)
	assert.Equal(t, protocol.ShareErrNone, se)
}

func TestParseAuthParamsMissingPasswordIsFine(t *testing.T) {
	worker, password, se := ParseAuthParams([]interface{}{"user.worker"})
	assert.Equal(t, "user.worker", worker)
	assert.Empty(t, password)
	assert.Equal(t, protocol.ShareErrNone, se)
}

func TestParseAuthParamsEmptyArray(t *testing.T) {
	_, _, se := ParseAuthParams(nil)
	assert.Equal(t, protocol.ShareErrNoUsername, se)
}

func TestParseAuthParamsWrongType(t *testing.T) {
	_, _, se := ParseAuthParams([]interface{}{123})
	assert.Equal(t, protocol.ShareErrNoUsername, se)
}

func validSubmitParams() []interface{} {
	return []interface{}{"user.worker", "1a", "deadbeef", "61000000", "00000000"}
}

func TestParseSubmitParamsHappyPath(t *testing.T) {
	worker, sub, se := ParseSubmitParams(validSubmitParams())
	assert.Equal(t, protocol.ShareErrNone, se)
	assert.Equal(t, "user.worker", worker)
	assert.Equal(t, uint64(0x1a), sub.WorkbaseID)
	assert.Equal(t, "deadbeef", sub.Enonce2Hex)
	assert.Equal(t, "61000000", sub.NTimeHex)
	assert.Equal(t, "00000000", sub.NonceHex)
}

func TestParseSubmitParamsTooFewElements(t *testing.T) {
	_, _, se := ParseSubmitParams([]interface{}{"user.worker"})
	assert.Equal(t, protocol.ShareErrInvalidSize, se)
}

func TestParseSubmitParamsNoUsername(t *testing.T) {
	p := validSubmitParams()
	p[0] = ""
	_, _, se := ParseSubmitParams(p)
	assert.Equal(t, protocol.ShareErrNoUsername, se)
}

func TestParseSubmitParamsNoJobID(t *testing.T) {
	p := validSubmitParams()
	p[1] = ""
	_, _, se := ParseSubmitParams(p)
	assert.Equal(t, protocol.ShareErrNoJobID, se)
}

func TestParseSubmitParamsInvalidJobID(t *testing.T) {
	p := validSubmitParams()
	p[1] = "not-hex"
	_, _, se := ParseSubmitParams(p)
	assert.Equal(t, protocol.ShareErrInvalidJobID, se)
}

func TestParseSubmitParamsNoNonce2(t *testing.T) {
	p := validSubmitParams()
	p[2] = ""
	_, _, se := ParseSubmitParams(p)
	assert.Equal(t, protocol.ShareErrNoNonce2, se)
}

func TestParseSubmitParamsNoNTime(t *testing.T) {
	p := validSubmitParams()
	p[3] = ""
	_, _, se := ParseSubmitParams(p)
	assert.Equal(t, protocol.ShareErrNoNTime, se)
}

func TestParseSubmitParamsNoNonce(t *testing.T) {
	p := validSubmitParams()
	p[4] = ""
	_, _, se := ParseSubmitParams(p)
	assert.Equal(t, protocol.ShareErrNoNonce, se)
}
