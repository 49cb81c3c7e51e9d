// Package vardiff implements the Difficulty Controller (spec.md §4.4): a
// per-client rolling hashrate estimator and retarget loop with clamps,
// grounded in spirit on chimera-pool-core/internal/stratum/difficulty's
// per-miner-lock, clamp-to-bounds shape, but replacing that teacher's
// target-share-time-ratio retarget with spec.md's exponential-decay dsps
// estimator and dead-band retarget rule.
package vardiff

import (
	"math"
	"time"

	"github.com/ckpool-go/stratifier/internal/registry"
)

// decayWindows are the rolling dsps windows spec.md §4.4 decays at, in
// seconds: 1 minute, 5 minutes, 1 hour, 1 day, 1 week.
var decayWindows = [5]float64{60, 300, 3600, 86400, 604800}

// ssdcThreshold and ldcThreshold gate how often a retarget is even
// considered (spec.md §4.4 step 2).
const (
	ssdcThreshold = 72
	ldcThreshold  = 240 * time.Second
	biasWindow    = 300 // seconds, the τ used for the bias-corrected dsps (step 4)
	biasCap       = 36  // Δt/τ cap before the bias formula saturates
)

// Config holds pool-wide difficulty bounds (spec.md §4.4 step 6).
type Config struct {
	PoolMinDiff float64
	MaxDiff     float64 // ckp.maxdiff; 0 means unconfigured
}

// Controller runs the retarget algorithm against registry.Client state.
type Controller struct {
	cfg Config
}

// NewController builds a Controller with the given pool-wide bounds.
func NewController(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

// Result reports what OnShareAccounted did.
type Result struct {
	Retargeted bool
	OldDiff    float64
	NewDiff    float64
}

// decay applies one exponential-decay step to a dsps window value.
func decay(dsps, deltaSeconds, diff, tau float64) float64 {
	return dsps*math.Exp(-deltaSeconds/tau) + diff/tau
}

func decayAll(w *registry.DspsWindows, deltaSeconds, diff float64) {
	w.W1m = decay(w.W1m, deltaSeconds, diff, decayWindows[0])
	w.W5m = decay(w.W5m, deltaSeconds, diff, decayWindows[1])
	w.W60m = decay(w.W60m, deltaSeconds, diff, decayWindows[2])
	w.W1440m = decay(w.W1440m, deltaSeconds, diff, decayWindows[3])
	w.W10080m = decay(w.W10080m, deltaSeconds, diff, decayWindows[4])
}

// bias computes b(Δt,τ) = 1 - 1/exp(Δt/τ), capped at Δt/τ ≤ 36 (spec.md
// §4.4 step 4) so a freshly connected client's dsps estimate isn't
// artificially deflated by dividing by a near-zero bias.
func bias(deltaSeconds, tau float64) float64 {
	ratio := deltaSeconds / tau
	if ratio > biasCap {
		ratio = biasCap
	}
	return 1 - 1/math.Exp(ratio)
}

// OnShareAccounted updates a client's (and its worker's and user's) rolling
// dsps estimates for an accepted or stale-reject share, then retargets the
// client's difficulty if the dead-band and change-frequency gates allow it
// (spec.md §4.4).
func (ctl *Controller) OnShareAccounted(c *registry.Client, w *registry.Worker, u *registry.User, shareDiff, networkDiff float64, currentWorkbaseID uint64, now time.Time) Result {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	firstShare := c.FirstShare.IsZero()
	var deltaSeconds float64
	if !firstShare {
		deltaSeconds = now.Sub(c.LastShare).Seconds()
		if deltaSeconds < 0 {
			deltaSeconds = 0
		}
	}

	decayAll(&c.Dsps, deltaSeconds, shareDiff)
	if w != nil {
		w.Mu.Lock()
		decayAll(&w.Dsps, deltaSeconds, shareDiff)
		w.LastShare = now
		w.Mu.Unlock()
	}
	if u != nil {
		u.Mu.Lock()
		decayAll(&u.Dsps, deltaSeconds, shareDiff)
		u.LastShare = now
		u.Mu.Unlock()
	}

	if firstShare {
		c.FirstShare = now
		c.LastDiffChange = now
	}
	c.LastShare = now

	c.SharesSinceDiffChange++

	if c.SharesSinceDiffChange < ssdcThreshold && now.Sub(c.LastDiffChange) < ldcThreshold {
		return Result{}
	}

	if shareDiff != c.Diff {
		c.SharesSinceDiffChange = 0
		return Result{}
	}

	bdiff := now.Sub(c.FirstShare).Seconds()
	if bdiff <= 0 {
		bdiff = 1
	}
	b := bias(bdiff, biasWindow)
	if b <= 0 {
		return Result{}
	}
	dsps := c.Dsps.W5m / b
	drr := dsps / c.Diff

	hasOverride := (w != nil && w.MinDiff > 0) || c.SuggestDiff > 0
	deadBandUpper := 0.4
	if hasOverride {
		deadBandUpper = 0.5
	}
	if drr > 0.15 && drr < deadBandUpper {
		return Result{}
	}

	multiplier := 3.33
	if hasOverride {
		multiplier = 2.4
	}
	target := math.Round(dsps * multiplier)

	poolMin := ctl.cfg.PoolMinDiff
	if poolMin <= 0 {
		poolMin = 1
	}
	if target < poolMin {
		target = poolMin
	}

	if networkDiff > 0 && target > networkDiff {
		target = networkDiff
	}

	floor := 0.0
	if w != nil && w.MinDiff > floor {
		floor = w.MinDiff
	}
	if c.SuggestDiff > floor {
		floor = c.SuggestDiff
	}
	if floor > 0 && target < floor {
		target = floor
	}

	if ctl.cfg.MaxDiff > 0 && target > ctl.cfg.MaxDiff {
		target = ctl.cfg.MaxDiff
	}

	if target == c.Diff {
		return Result{}
	}

	if target < c.Diff && c.SharesSinceDiffChange == 1 {
		c.LastDiffChange = now
		return Result{}
	}

	oldDiff := c.Diff
	c.OldDiff = oldDiff
	c.Diff = target
	c.DiffChangeJobID = currentWorkbaseID + 1
	c.SharesSinceDiffChange = 0
	c.LastDiffChange = now

	return Result{Retargeted: true, OldDiff: oldDiff, NewDiff: target}
}

// EffectiveAcceptDiff returns the minimum difficulty validator.go should
// accept a share at, given the workbase id it was submitted against (spec.md
// §4.4: "the validator accepts any share whose effective diff is ≥
// min(diff, old_diff) when its workbase id < diff_change_job_id").
func EffectiveAcceptDiff(c *registry.Client, submittedWorkbaseID uint64) float64 {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if submittedWorkbaseID < c.DiffChangeJobID {
		if c.OldDiff > 0 && c.OldDiff < c.Diff {
			return c.OldDiff
		}
	}
	return c.Diff
}
