package ckdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMirror mirrors accepted-share and pool-stat events into sorted
// sets for a real-time dashboard feed (spec.md's AMBIENT/DOMAIN stack:
// "optionally mirrors accepted-share and pool-stat events ... for a
// real-time dashboard feed"), grounded on
// chimera-pool-core/internal/cache/redis_cache.go's client construction
// and Viddhanaa-pool's redis.go sorted-set mirroring of share events.
type RedisMirror struct {
	client *redis.Client
	prefix string
}

// NewRedisMirror wraps an existing go-redis client. keyPrefix namespaces
// the sorted sets this mirror writes to (e.g. "stratifier").
func NewRedisMirror(client *redis.Client, keyPrefix string) *RedisMirror {
	return &RedisMirror{client: client, prefix: keyPrefix}
}

func (m *RedisMirror) key(suffix string) string {
	return fmt.Sprintf("%s:%s", m.prefix, suffix)
}

// MirrorShare records an accepted share in a per-worker sorted set keyed
// by timestamp, trimmed to the most recent 1000 entries so the set stays
// bounded under sustained load.
func (m *RedisMirror) MirrorShare(ctx context.Context, workerName string, diff float64, at time.Time) error {
	member, err := json.Marshal(map[string]interface{}{
		"worker": workerName,
		"diff":   diff,
		"at":     at.Unix(),
	})
	if err != nil {
		return err
	}
	key := m.key("shares:" + workerName)
	if err := m.client.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixNano()), Member: member}).Err(); err != nil {
		return err
	}
	return m.client.ZRemRangeByRank(ctx, key, 0, -1001).Err()
}

// MirrorPoolStat records one pool-wide stat sample in a sorted set keyed
// by field name, scored by time, for a dashboard to graph.
func (m *RedisMirror) MirrorPoolStat(ctx context.Context, field string, value float64, at time.Time) error {
	member, err := json.Marshal(map[string]interface{}{
		"value": value,
		"at":    at.Unix(),
	})
	if err != nil {
		return err
	}
	key := m.key("poolstats:" + field)
	if err := m.client.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixNano()), Member: member}).Err(); err != nil {
		return err
	}
	return m.client.ZRemRangeByRank(ctx, key, 0, -1441).Err() // a day of minute samples
}

// MirroringSink wraps a Sink and additionally mirrors "shares" and
// "poolstats" events into Redis. A mirror failure is logged by the caller
// via the returned error but never blocks the primary write having
// already succeeded.
type MirroringSink struct {
	Sink
	mirror *RedisMirror
}

// NewMirroringSink wraps primary with mirror.
func NewMirroringSink(primary Sink, mirror *RedisMirror) *MirroringSink {
	return &MirroringSink{Sink: primary, mirror: mirror}
}

// Write delegates to the wrapped Sink, then best-effort mirrors shares
// and poolstats events. A mirror error is returned separately from a
// primary-write error: the primary write having already succeeded is not
// undone by a failed mirror.
func (s *MirroringSink) Write(ctx context.Context, event Event) error {
	if err := s.Sink.Write(ctx, event); err != nil {
		return err
	}
	switch event.IDName {
	case IDNameShares:
		if share, ok := event.Payload.(ShareMirrorPayload); ok {
			return s.mirror.MirrorShare(ctx, share.WorkerName, share.Diff, share.At)
		}
	case IDNamePoolstats:
		if stat, ok := event.Payload.(PoolStatMirrorPayload); ok {
			return s.mirror.MirrorPoolStat(ctx, stat.Field, stat.Value, stat.At)
		}
	}
	return nil
}

// ShareMirrorPayload is the subset of a "shares" event MirroringSink
// mirrors into Redis.
type ShareMirrorPayload struct {
	WorkerName string
	Diff       float64
	At         time.Time
}

// PoolStatMirrorPayload is the subset of a "poolstats" event
// MirroringSink mirrors into Redis.
type PoolStatMirrorPayload struct {
	Field string
	Value float64
	At    time.Time
}
