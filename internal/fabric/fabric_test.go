package fabric

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckpool-go/stratifier/internal/registry"
)

func TestDispatchRoutesAuthorizeToAuthQueue(t *testing.T) {
	f := New()
	ctx := context.Background()
	line := []byte(`{"id":1,"method":"mining.authorize","params":["user.worker","x"]}`)

	require.NoError(t, f.Dispatch(ctx, ReceiveItem{Line: line}))
	assert.Equal(t, 1, f.Auth.Len())
	assert.Equal(t, 0, f.Share.Len())
}

func TestDispatchRoutesSubmitToShareQueue(t *testing.T) {
	f := New()
	ctx := context.Background()
	line := []byte(`{"id":2,"method":"mining.submit","params":[]}`)

	require.NoError(t, f.Dispatch(ctx, ReceiveItem{Line: line}))
	assert.Equal(t, 1, f.Share.Len())
}

func TestDispatchRoutesGetTransactionsToTxnQueue(t *testing.T) {
	f := New()
	ctx := context.Background()
	line := []byte(`{"id":3,"method":"mining.get_transactions","params":[]}`)

	require.NoError(t, f.Dispatch(ctx, ReceiveItem{Line: line}))
	item, err := f.Txn.Pop(ctx)
	require.NoError(t, err)
	assert.False(t, item.HashesOnly)
}

func TestDispatchRoutesGetTxnHashesAsHashesOnly(t *testing.T) {
	f := New()
	ctx := context.Background()
	line := []byte(`{"id":4,"method":"mining.get_txnhashes","params":[]}`)

	require.NoError(t, f.Dispatch(ctx, ReceiveItem{Line: line}))
	item, err := f.Txn.Pop(ctx)
	require.NoError(t, err)
	assert.True(t, item.HashesOnly)
}

func TestDispatchFallsThroughSubscribeToReceiveQueue(t *testing.T) {
	f := New()
	ctx := context.Background()
	line := []byte(`{"id":5,"method":"mining.subscribe","params":[]}`)

	require.NoError(t, f.Dispatch(ctx, ReceiveItem{Line: line}))
	assert.Equal(t, 1, f.Receive.Len())
}

func TestDispatchReturnsErrorOnMalformedLine(t *testing.T) {
	f := New()
	err := f.Dispatch(context.Background(), ReceiveItem{Line: []byte("not json")})
	assert.Error(t, err)
}

func TestBroadcastEnqueuesOneSendItemPerLiveClient(t *testing.T) {
	f := New()
	reg := registry.NewRegistry(16)
	now := time.Now()
	_, err := reg.Subscribe(1, "aaaaaaaaaaaaaaaa", "127.0.0.1:1", now)
	require.NoError(t, err)
	_, err = reg.Subscribe(2, "bbbbbbbbbbbbbbbb", "127.0.0.1:2", now)
	require.NoError(t, err)

	f.Broadcast(context.Background(), reg, []byte("payload"))
	assert.Equal(t, 2, f.Send.Len())
}
