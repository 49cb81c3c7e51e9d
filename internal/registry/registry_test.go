package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeFirstAllocationMatchesLiteralScenario(t *testing.T) {
	r := NewRegistry(8)
	c, err := r.Subscribe(1, "", "127.0.0.1:1234", time.Unix(1700000000, 0))
	require.NoError(t, err)
	assert.Equal(t, "0000000000000001", c.Enonce1Hex)
}

func TestSubscribeAssignsUniqueEnonce1(t *testing.T) {
	r := NewRegistry(8)
	c1, err := r.Subscribe(1, "", "a", time.Unix(0, 0))
	require.NoError(t, err)
	c2, err := r.Subscribe(2, "", "b", time.Unix(0, 0))
	require.NoError(t, err)
	assert.NotEqual(t, c1.Enonce1, c2.Enonce1)
}

func TestSubscribeResumesSessionFromDisconnected(t *testing.T) {
	r := NewRegistry(8)
	c1, err := r.Subscribe(1, "", "a", time.Unix(0, 0))
	require.NoError(t, err)
	r.DropClient(1, true)

	c2, err := r.Subscribe(2, c1.Enonce1Hex, "a", time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, c1.Enonce1, c2.Enonce1)

	_, stillDisconnected := r.disconnected[c1.Enonce1]
	assert.False(t, stillDisconnected)
}

func TestDropClientWithoutServerModeDoesNotIndexForResumption(t *testing.T) {
	r := NewRegistry(8)
	c, err := r.Subscribe(1, "", "a", time.Unix(0, 0))
	require.NoError(t, err)
	r.DropClient(1, false)

	_, ok := r.disconnected[c.Enonce1]
	assert.False(t, ok)
}

func TestNarrowEnonce1SpaceExhaustion(t *testing.T) {
	r := NewRegistry(1)
	for i := 0; i < 256; i++ {
		_, err := r.Subscribe(uint64(i+1), "", "a", time.Unix(0, 0))
		require.NoError(t, err)
	}
	_, err := r.Subscribe(1000, "", "a", time.Unix(0, 0))
	assert.ErrorIs(t, err, ErrProxyFull)
}

func TestAuthoriseLocalBackend(t *testing.T) {
	r := NewRegistry(8)
	_, err := r.Subscribe(1, "", "a", time.Unix(0, 0))
	require.NoError(t, err)

	res, err := r.Authorise(context.Background(), 1, "user1.rig1", "x", "", LocalAuthBackend{})
	require.NoError(t, err)
	assert.Equal(t, "user1", res.Username)
	assert.True(t, res.NewUser)
	assert.Equal(t, 1, r.UserCount)
	assert.Equal(t, 1, r.WorkerCount)

	c, _ := r.Get(1)
	assert.True(t, c.Authorised)
	assert.Equal(t, "user1.rig1", c.Worker.Name)
}

func TestParseUsernameRejectsSlash(t *testing.T) {
	_, err := ParseUsername("us/er.rig1")
	assert.ErrorIs(t, err, ErrInvalidWorkerName)
}

func TestParseUsernameRejectsLeadingDot(t *testing.T) {
	_, err := ParseUsername(".rig1")
	assert.ErrorIs(t, err, ErrInvalidWorkerName)
}

func TestParseUsernameSplitsOnUnderscore(t *testing.T) {
	username, err := ParseUsername("alice_worker1")
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestRejectEscalation(t *testing.T) {
	c := &Client{}
	start := time.Unix(1700000000, 0)

	assert.Equal(t, 0, c.RecordReject(start))
	assert.Equal(t, 0, c.RecordReject(start.Add(30*time.Second)))
	assert.Equal(t, 1, c.RecordReject(start.Add(61*time.Second)))
	assert.Equal(t, 2, c.RecordReject(start.Add(121*time.Second)))

	c.RecordAccept()
	assert.Equal(t, 0, c.RejectLevel)
	assert.True(t, c.FirstInvalid.IsZero())
}

type timeoutThenOKBackend struct{ calls int }

func (b *timeoutThenOKBackend) Authorise(ctx context.Context, username, workername, password, address string) (int64, error) {
	b.calls++
	if b.calls == 1 {
		return 42, nil
	}
	return 0, ErrBackendTimeout
}

func TestDelayedAuthAcceptedOnlyAfterPriorSecondaryID(t *testing.T) {
	r := NewRegistry(8)
	backend := &timeoutThenOKBackend{}

	r.Subscribe(1, "", "a", time.Unix(0, 0))
	_, err := r.Authorise(context.Background(), 1, "user1.rig1", "x", "", backend)
	require.NoError(t, err)

	r.Subscribe(2, "", "b", time.Unix(0, 0))
	res, err := r.Authorise(context.Background(), 2, "user1.rig2", "x", "", backend)
	require.NoError(t, err)
	assert.True(t, res.Delayed)
}

func TestDelayedAuthRejectedWithoutPriorSecondaryID(t *testing.T) {
	r := NewRegistry(8)
	backend := &timeoutThenOKBackend{calls: 1} // force immediate timeout path

	r.Subscribe(1, "", "a", time.Unix(0, 0))
	_, err := r.Authorise(context.Background(), 1, "newuser.rig1", "x", "", backend)
	assert.ErrorIs(t, err, ErrBackendTimeout)
}

func TestDropClientDecrementsCounters(t *testing.T) {
	r := NewRegistry(8)
	r.Subscribe(1, "", "a", time.Unix(0, 0))
	r.Authorise(context.Background(), 1, "user1.rig1", "x", "", LocalAuthBackend{})
	require.Equal(t, 1, r.UserCount)

	r.DropClient(1, false)
	assert.Equal(t, 0, r.UserCount)
	assert.Equal(t, 0, r.WorkerCount)
}
