package poolstats

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckpool-go/stratifier/internal/ckdb"
	"github.com/ckpool-go/stratifier/internal/registry"
)

func TestTickFoldsUnaccountedIntoAccountedAndResets(t *testing.T) {
	reg := registry.NewRegistry(8)
	agg := NewAggregator(reg, ckdb.NewMemorySink(), t.TempDir(), nil)

	agg.RecordShare(true, 10)
	agg.RecordShare(true, 20)
	agg.RecordShare(false, 5)

	start := agg.Snapshot().LastTick
	agg.Tick(start.Add(20 * time.Second))

	snap := agg.Snapshot()
	assert.Equal(t, int64(3), snap.AccountedShares)
	assert.Equal(t, float64(35), snap.AccountedDiffShares)
	assert.Equal(t, int64(1), snap.AccountedRejects)
	assert.Equal(t, int64(0), snap.UnaccountedShares)
	assert.Greater(t, snap.Dsps.W1m, 0.0)
}

func TestTickPicksUpLiveUserAndWorkerCounts(t *testing.T) {
	reg := registry.NewRegistry(8)
	client, err := reg.Subscribe(1, "", "1.2.3.4:1", time.Now())
	require.NoError(t, err)
	_, err = reg.Authorise(context.Background(), client.ID, "alice.rig1", "x", "", registry.LocalAuthBackend{})
	require.NoError(t, err)

	agg := NewAggregator(reg, ckdb.NewMemorySink(), t.TempDir(), nil)
	agg.Tick(time.Now())

	snap := agg.Snapshot()
	assert.Equal(t, 1, snap.Users)
	assert.Equal(t, 1, snap.Workers)
}

func TestWriteStatusFilesRendersPoolUserAndWorkerFiles(t *testing.T) {
	dir := t.TempDir()
	reg := registry.NewRegistry(8)
	client, err := reg.Subscribe(1, "", "1.2.3.4:1", time.Now())
	require.NoError(t, err)
	_, err = reg.Authorise(context.Background(), client.ID, "alice.rig1", "x", "", registry.LocalAuthBackend{})
	require.NoError(t, err)

	agg := NewAggregator(reg, ckdb.NewMemorySink(), dir, nil)
	agg.Tick(time.Now())
	require.NoError(t, agg.WriteStatusFiles(time.Now()))

	assert.FileExists(t, filepath.Join(dir, "pool", "pool.status"))
	assert.FileExists(t, filepath.Join(dir, "users", "alice"))
	assert.FileExists(t, filepath.Join(dir, "workers", "alice.rig1"))

	data, err := os.ReadFile(filepath.Join(dir, "pool", "pool.status"))
	require.NoError(t, err)
	lines := splitNonEmptyLines(string(data))
	assert.Len(t, lines, 3)
}

func TestFlushUserPhaseOnlyWritesUsersInCurrentPhase(t *testing.T) {
	reg := registry.NewRegistry(8)
	for i := uint64(1); i <= 3; i++ {
		client, err := reg.Subscribe(i, "", "1.2.3.4:1", time.Now())
		require.NoError(t, err)
		_, err = reg.Authorise(context.Background(), client.ID, fmt.Sprintf("user%d.rig", i), "x", "", registry.LocalAuthBackend{})
		require.NoError(t, err)
	}

	sink := ckdb.NewMemorySink()
	agg := NewAggregator(reg, sink, t.TempDir(), nil)

	for phase := 0; phase < phaseCount; phase++ {
		require.NoError(t, agg.FlushUserPhase(context.Background(), time.Now()))
	}
	assert.Equal(t, 3, sink.Len())
}

func TestNotifyIdleClientsFiresOnceOnTransition(t *testing.T) {
	reg := registry.NewRegistry(8)
	now := time.Now()
	client, err := reg.Subscribe(1, "", "1.2.3.4:1", now.Add(-1000*time.Second))
	require.NoError(t, err)

	agg := NewAggregator(reg, ckdb.NewMemorySink(), t.TempDir(), nil)

	calls := 0
	agg.NotifyIdleClients(now, func(c *registry.Client) { calls++ })
	assert.Equal(t, 1, calls)
	assert.True(t, client.Idle)

	agg.NotifyIdleClients(now.Add(time.Second), func(c *registry.Client) { calls++ })
	assert.Equal(t, 1, calls)
}

func TestNotifyIdleClientsDoesNotFireForRecentShare(t *testing.T) {
	reg := registry.NewRegistry(8)
	now := time.Now()
	_, err := reg.Subscribe(1, "", "1.2.3.4:1", now)
	require.NoError(t, err)

	agg := NewAggregator(reg, ckdb.NewMemorySink(), t.TempDir(), nil)
	calls := 0
	agg.NotifyIdleClients(now.Add(10*time.Second), func(c *registry.Client) { calls++ })
	assert.Equal(t, 0, calls)
}

func TestHeartbeatSkipsWriteWhenQueueNonEmpty(t *testing.T) {
	sink := ckdb.NewMemorySink()
	agg := NewAggregator(registry.NewRegistry(8), sink, t.TempDir(), nil)

	require.NoError(t, agg.Heartbeat(context.Background(), time.Now(), 5))
	assert.Equal(t, 0, sink.Len())

	require.NoError(t, agg.Heartbeat(context.Background(), time.Now(), 0))
	assert.Equal(t, 1, sink.Len())
}

func splitNonEmptyLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
