package poolstats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Exporter mirrors an Aggregator's Stats into Prometheus gauges, grounded
// on chimera-pool-core/internal/monitoring/prometheus.go's
// register-once-update-on-read shape, narrowed to the fixed gauge set the
// pool-stats domain needs rather than that teacher's dynamic name->vec
// maps (the stratifier's metric set is known upfront).
type Exporter struct {
	agg *Aggregator

	users     prometheus.Gauge
	workers   prometheus.Gauge
	hashrate1m  prometheus.Gauge
	hashrate5m  prometheus.Gauge
	hashrate1hr prometheus.Gauge
	hashrate1d  prometheus.Gauge
	shares      prometheus.Counter
	rejects     prometheus.Counter
}

// NewExporter builds an Exporter for agg and registers its collectors
// against reg.
func NewExporter(agg *Aggregator, reg prometheus.Registerer) *Exporter {
	e := &Exporter{
		agg: agg,
		users: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stratifier_pool_users",
			Help: "Number of users with at least one live connection.",
		}),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stratifier_pool_workers",
			Help: "Number of authorised worker connections.",
		}),
		hashrate1m: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stratifier_pool_hashrate_1m",
			Help: "Pool diff-shares-per-second, 1 minute decayed window.",
		}),
		hashrate5m: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stratifier_pool_hashrate_5m",
			Help: "Pool diff-shares-per-second, 5 minute decayed window.",
		}),
		hashrate1hr: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stratifier_pool_hashrate_1hr",
			Help: "Pool diff-shares-per-second, 1 hour decayed window.",
		}),
		hashrate1d: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stratifier_pool_hashrate_1d",
			Help: "Pool diff-shares-per-second, 1 day decayed window.",
		}),
		shares: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stratifier_pool_shares_total",
			Help: "Accounted shares submitted pool-wide.",
		}),
		rejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stratifier_pool_rejects_total",
			Help: "Accounted rejected shares pool-wide.",
		}),
	}
	reg.MustRegister(e.users, e.workers, e.hashrate1m, e.hashrate5m, e.hashrate1hr, e.hashrate1d, e.shares, e.rejects)
	return e
}

// Refresh samples the Aggregator and updates every collector. Call this on
// the same cadence as WriteStatusFiles (spec.md §4.9's 1-minute tick) or
// let a Prometheus scrape drive it via a Collector instead; Refresh is the
// simpler push-style option used by cmd/stratifierd.
func (e *Exporter) Refresh() {
	s := e.agg.Snapshot()
	e.users.Set(float64(s.Users))
	e.workers.Set(float64(s.Workers))
	e.hashrate1m.Set(s.Dsps.W1m)
	e.hashrate5m.Set(s.Dsps.W5m)
	e.hashrate1hr.Set(s.Dsps.W60m)
	e.hashrate1d.Set(s.Dsps.W1440m)
}

// AddShares advances the share/reject counters by the accounted delta
// since the last call. Counters can only go up, so the Aggregator's
// absolute AccountedShares/AccountedRejects are diffed against prior
// calls rather than Set directly.
func (e *Exporter) AddShares(deltaShares, deltaRejects int64) {
	if deltaShares > 0 {
		e.shares.Add(float64(deltaShares))
	}
	if deltaRejects > 0 {
		e.rejects.Add(float64(deltaRejects))
	}
}
