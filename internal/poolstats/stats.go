// Package poolstats implements the Stats & Heartbeat component (spec.md
// §4.9): the 20s tick that folds unaccounted counters into accounted and
// decays the pool's rolling sps/dsps windows, the 1-minute pool/user/worker
// status-file writer, the 32-phase user-stats database flush, idle-client
// notification, and the separate 1s heartbeat. Grounded on
// chimera-pool-core/internal/stratum/hashrate/hashrate.go's decayed
// rolling-window shape (the same estimator internal/vardiff uses for
// per-client dsps) and internal/monitoring/prometheus.go for the exporter.
package poolstats

import (
	"math"
	"time"
)

// Windows are the seven rolling-average windows spec.md §3 names for pool
// level sps/dsps: 1/5/15/60/360/1440/10080 minutes, each expressed in
// seconds for the decay formula.
var decayWindows = [7]float64{60, 300, 900, 3600, 21600, 86400, 604800}

// PoolWindows holds one decayed rolling estimate per window, matching
// registry.DspsWindows's five-window shape but extended to the pool
// level's seven (spec.md §3: "pool stats ... rolling sps/dsps at
// 1/5/15/60/360/1440/10080-minute windows").
type PoolWindows struct {
	W1m     float64
	W5m     float64
	W15m    float64
	W60m    float64
	W360m   float64
	W1440m  float64
	W10080m float64
}

func decay(value, deltaSeconds, amount, tau float64) float64 {
	return value*math.Exp(-deltaSeconds/tau) + amount/tau
}

func (w *PoolWindows) decayAll(deltaSeconds, amount float64) {
	w.W1m = decay(w.W1m, deltaSeconds, amount, decayWindows[0])
	w.W5m = decay(w.W5m, deltaSeconds, amount, decayWindows[1])
	w.W15m = decay(w.W15m, deltaSeconds, amount, decayWindows[2])
	w.W60m = decay(w.W60m, deltaSeconds, amount, decayWindows[3])
	w.W360m = decay(w.W360m, deltaSeconds, amount, decayWindows[4])
	w.W1440m = decay(w.W1440m, deltaSeconds, amount, decayWindows[5])
	w.W10080m = decay(w.W10080m, deltaSeconds, amount, decayWindows[6])
}

// Stats is the pool-level counter and rolling-average aggregate spec.md §3
// describes: "users, workers, unaccounted/accounted shares,
// unaccounted/accounted diff shares, unaccounted/accounted rejects, and
// rolling sps/dsps at 1/5/15/60/360/1440/10080-minute windows".
type Stats struct {
	Users   int
	Workers int

	UnaccountedShares int64
	AccountedShares   int64

	UnaccountedDiffShares float64
	AccountedDiffShares   float64

	UnaccountedRejects int64
	AccountedRejects   int64

	Sps  PoolWindows // shares per second, amount=1 per share
	Dsps PoolWindows // diff-shares per second, amount=share diff

	StartTime  time.Time
	LastTick   time.Time
	LastStatus time.Time
}
