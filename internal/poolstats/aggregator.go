package poolstats

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ckpool-go/stratifier/internal/ckdb"
	"github.com/ckpool-go/stratifier/internal/registry"
)

// phaseCount is the number of flush phases a user rotates through, keyed by
// user_id & (phaseCount-1) (spec.md §4.9: "user stats are flushed to the
// database in 32 phases keyed by user_id & 0x1f, so each user appears in
// roughly one tick in every 32").
const phaseCount = 32

// idleThreshold is how long a client may go without a share before it is
// flagged idle and notified once (spec.md §4.9).
const idleThreshold = 600 * time.Second

// Aggregator owns the pool-level Stats and drives the periodic passes
// spec.md §4.9 describes: the 20s accounting tick, the 1-minute status-file
// write, the 32-phase user-stats database flush, idle-client notification,
// and the 1s heartbeat. One Aggregator per running pool, guarded by a single
// mutex (spec.md §5's "stats lock").
type Aggregator struct {
	mu    sync.Mutex
	stats Stats

	reg    *registry.Registry
	sink   ckdb.Sink
	logDir string
	log    *zap.Logger

	phase int
}

// NewAggregator constructs an Aggregator over reg, writing database events
// to sink and status files under logDir. log is stored but no Aggregator
// method writes to it, so it may be nil; idle-client notifications are
// delivered only through NotifyIdleClients' notify callback.
func NewAggregator(reg *registry.Registry, sink ckdb.Sink, logDir string, log *zap.Logger) *Aggregator {
	now := time.Now()
	return &Aggregator{
		reg:    reg,
		sink:   sink,
		logDir: logDir,
		log:    log,
		stats: Stats{
			StartTime: now,
			LastTick:  now,
		},
	}
}

// RecordShare folds one classified share into the unaccounted counters.
// accepted also covers stale-but-valid shares spec.md §4.7 still credits
// toward hashrate; diff is the share's computed difficulty.
func (a *Aggregator) RecordShare(accepted bool, diff float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.UnaccountedShares++
	a.stats.UnaccountedDiffShares += diff
	if !accepted {
		a.stats.UnaccountedRejects++
	}
}

// Snapshot returns a copy of the current pool stats.
func (a *Aggregator) Snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Tick runs the 20-second accounting pass: folding unaccounted counters
// into accounted and decaying the pool sps/dsps windows (spec.md §4.9: "a
// 20s tick (3x per minute) folds the unaccounted counters into accounted
// and decays pool sps/dsps windows").
func (a *Aggregator) Tick(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delta := now.Sub(a.stats.LastTick).Seconds()
	if delta < 0 {
		delta = 0
	}

	a.stats.Sps.decayAll(delta, float64(a.stats.UnaccountedShares))
	a.stats.Dsps.decayAll(delta, a.stats.UnaccountedDiffShares)

	a.stats.AccountedShares += a.stats.UnaccountedShares
	a.stats.AccountedDiffShares += a.stats.UnaccountedDiffShares
	a.stats.AccountedRejects += a.stats.UnaccountedRejects
	a.stats.UnaccountedShares = 0
	a.stats.UnaccountedDiffShares = 0
	a.stats.UnaccountedRejects = 0

	a.stats.Users = a.reg.UserCount
	a.stats.Workers = a.reg.WorkerCount
	a.stats.LastTick = now
}

type poolStatusRuntime struct {
	Runtime int64 `json:"runtime"`
	Users   int   `json:"users"`
	Workers int   `json:"workers"`
	Shares  int64 `json:"shares"`
	Rejects int64 `json:"rejects"`
}

type poolStatusHashrate struct {
	Hashrate1m     float64 `json:"hashrate1m"`
	Hashrate5m     float64 `json:"hashrate5m"`
	Hashrate15m    float64 `json:"hashrate15m"`
	Hashrate1hr    float64 `json:"hashrate1hr"`
	Hashrate6hr    float64 `json:"hashrate6hr"`
	Hashrate1d     float64 `json:"hashrate1d"`
	Hashrate7d     float64 `json:"hashrate7d"`
}

type poolStatusSps struct {
	Sps1m  float64 `json:"sps1m"`
	Sps5m  float64 `json:"sps5m"`
	Sps15m float64 `json:"sps15m"`
	Sps1hr float64 `json:"sps1hr"`
}

// WriteStatusFiles renders <logdir>/pool/pool.status (three JSON lines:
// runtime/counts, hashrates, sps), and one file per known user and worker
// under <logdir>/users and <logdir>/workers (spec.md §4.9, §6).
func (a *Aggregator) WriteStatusFiles(now time.Time) error {
	a.mu.Lock()
	stats := a.stats
	a.mu.Unlock()

	if err := a.writePoolStatus(stats, now); err != nil {
		return err
	}
	if err := a.writeUserAndWorkerStatus(); err != nil {
		return err
	}
	return nil
}

func (a *Aggregator) writePoolStatus(stats Stats, now time.Time) error {
	dir := filepath.Join(a.logDir, "pool")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	lines := []interface{}{
		poolStatusRuntime{
			Runtime: int64(now.Sub(stats.StartTime).Seconds()),
			Users:   stats.Users,
			Workers: stats.Workers,
			Shares:  stats.AccountedShares,
			Rejects: stats.AccountedRejects,
		},
		poolStatusHashrate{
			Hashrate1m:  stats.Dsps.W1m,
			Hashrate5m:  stats.Dsps.W5m,
			Hashrate15m: stats.Dsps.W15m,
			Hashrate1hr: stats.Dsps.W60m,
			Hashrate6hr: stats.Dsps.W360m,
			Hashrate1d:  stats.Dsps.W1440m,
			Hashrate7d:  stats.Dsps.W10080m,
		},
		poolStatusSps{
			Sps1m:  stats.Sps.W1m,
			Sps5m:  stats.Sps.W5m,
			Sps15m: stats.Sps.W15m,
			Sps1hr: stats.Sps.W60m,
		},
	}

	return writeJSONLines(filepath.Join(dir, "pool.status"), lines)
}

func (a *Aggregator) writeUserAndWorkerStatus() error {
	userDir := filepath.Join(a.logDir, "users")
	workerDir := filepath.Join(a.logDir, "workers")
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(workerDir, 0o755); err != nil {
		return err
	}

	for _, u := range a.reg.Users() {
		u.Mu.Lock()
		line := map[string]interface{}{
			"hashrate1m":  u.Dsps.W1m,
			"hashrate5m":  u.Dsps.W5m,
			"hashrate1hr": u.Dsps.W60m,
			"hashrate1d":  u.Dsps.W1440m,
			"hashrate7d":  u.Dsps.W10080m,
			"workers":     len(u.Workers),
			"lastshare":   u.LastShare.Unix(),
		}
		workers := make([]*registry.Worker, 0, len(u.Workers))
		for _, w := range u.Workers {
			workers = append(workers, w)
		}
		u.Mu.Unlock()

		if err := writeJSONLines(filepath.Join(userDir, u.Username), []interface{}{line}); err != nil {
			return err
		}

		for _, w := range workers {
			w.Mu.Lock()
			wline := map[string]interface{}{
				"hashrate1m":  w.Dsps.W1m,
				"hashrate5m":  w.Dsps.W5m,
				"hashrate1hr": w.Dsps.W60m,
				"hashrate1d":  w.Dsps.W1440m,
				"lastshare":   w.LastShare.Unix(),
				"mindiff":     w.MinDiff,
			}
			w.Mu.Unlock()
			if err := writeJSONLines(filepath.Join(workerDir, w.Name), []interface{}{wline}); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeJSONLines(path string, lines []interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, line := range lines {
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

// FlushUserPhase advances the 32-phase rotation by one tick and writes a
// userstats database event for every user whose id falls in the current
// phase (spec.md §4.9). Called once per accounting tick so that, at 20s per
// tick, the full rotation completes in roughly 32*20s ≈ 10.7 minutes — the
// closest match to spec.md's own "≈ 10 minutes" estimate.
func (a *Aggregator) FlushUserPhase(ctx context.Context, now time.Time) error {
	a.mu.Lock()
	phase := a.phase
	a.phase = (a.phase + 1) % phaseCount
	a.mu.Unlock()

	for _, u := range a.reg.Users() {
		if int(u.ID)&(phaseCount-1) != phase {
			continue
		}
		u.Mu.Lock()
		payload := map[string]interface{}{
			"username":    u.Username,
			"hashrate1m":  u.Dsps.W1m,
			"hashrate5m":  u.Dsps.W5m,
			"hashrate1hr": u.Dsps.W60m,
			"hashrate1d":  u.Dsps.W1440m,
			"hashrate7d":  u.Dsps.W10080m,
			"workers":     len(u.Workers),
		}
		u.Mu.Unlock()

		if err := a.sink.Write(ctx, ckdb.Event{IDName: ckdb.IDNameUserstats, ID: u.ID, Payload: payload}); err != nil {
			return err
		}
	}
	return nil
}

// NotifyIdleClients flags and reports clients that have submitted no share
// in idleThreshold, invoking notify exactly once per client on the
// live->idle transition (spec.md §4.9: "idle clients ... are notified once
// and then suppressed"). A client's LastShare being zero (never shared)
// counts from its StartTime instead, so a miner that never connects
// properly is still eventually flagged.
func (a *Aggregator) NotifyIdleClients(now time.Time, notify func(*registry.Client)) {
	for _, c := range a.reg.ClientSnapshot() {
		c.Mu.Lock()
		last := c.LastShare
		if last.IsZero() {
			last = c.StartTime
		}
		wasIdle := c.Idle
		isIdle := now.Sub(last) >= idleThreshold
		if isIdle && !wasIdle {
			c.Idle = true
		} else if !isIdle && wasIdle {
			c.Idle = false
		}
		transitioned := isIdle && !wasIdle
		c.Mu.Unlock()

		if transitioned && notify != nil {
			notify(c)
		}
	}
}

// Heartbeat writes a heartbeat database event unless the database queue is
// already backed up, per spec.md §4.9: "a separate 1s heartbeat emits a
// heartbeat event to the database unless the database queue is non-empty".
// queueDepth is read from whatever fronts sink (e.g. fabric.Fabric's
// database queue, or a ckdb.QueueingSink's QueueLen).
func (a *Aggregator) Heartbeat(ctx context.Context, now time.Time, queueDepth int) error {
	if queueDepth > 0 {
		return nil
	}
	return a.sink.Write(ctx, ckdb.Event{
		IDName:  ckdb.IDNameHeartbeat,
		ID:      now.Unix(),
		Payload: map[string]interface{}{"when": now.UTC().Format(time.RFC3339)},
	})
}
