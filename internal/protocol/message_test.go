package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(`{"id":1,"method":"mining.subscribe","params":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "mining.subscribe", req.Method)
}

func TestParseRequestMissingMethod(t *testing.T) {
	_, err := ParseRequest([]byte(`{"id":1,"params":[]}`))
	assert.Error(t, err)
}

func TestMethodOf(t *testing.T) {
	assert.Equal(t, MethodSubscribe, MethodOf("mining.subscribe"))
	assert.Equal(t, MethodAuthorize, MethodOf("mining.auth"))
	assert.Equal(t, MethodUnknown, MethodOf("mining.bogus"))
}

func TestSubscribeResponseShape(t *testing.T) {
	resp := NewSubscribeResponse(json.Number("1"), "0000000000000001", 8)
	b, err := Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"result":[[["mining.notify","0000000000000001"]],"0000000000000001",8],"error":null}`, string(b))
}

func TestShareErrorResponse(t *testing.T) {
	resp := NewShareErrorResponse(json.Number("5"), ShareErrStale)
	assert.Equal(t, false, resp.Result)
	errArr, ok := resp.Error.([]interface{})
	require.True(t, ok)
	assert.Equal(t, "Stale", errArr[1])
}
