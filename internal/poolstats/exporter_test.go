package poolstats

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckpool-go/stratifier/internal/ckdb"
	"github.com/ckpool-go/stratifier/internal/registry"
)

func TestExporterRefreshReflectsAggregatorSnapshot(t *testing.T) {
	reg := registry.NewRegistry(8)
	agg := NewAggregator(reg, ckdb.NewMemorySink(), t.TempDir(), nil)
	agg.RecordShare(true, 100)
	agg.Tick(agg.Snapshot().LastTick.Add(20 * time.Second))

	registerer := prometheus.NewRegistry()
	exp := NewExporter(agg, registerer)
	exp.Refresh()

	families, err := registerer.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
