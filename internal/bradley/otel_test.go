package bradley

import (
	"context"
	"testing"

	"github.com/rustmods/custombradley/pkg/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// collectSums reads every int64 counter from reader, summed across attributes.
func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			data, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range data.DataPoints {
				sums[m.Name] += dp.Value
			}
		}
	}
	return sums
}

func TestMetrics_CountersReachMeterProvider(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	t.Cleanup(func() {
		otel.SetMeterProvider(noop.NewMeterProvider())
		_ = mp.Shutdown(context.Background())
	})

	h := newHarness(t, configWith(at(0, 0, 0), at(99999, 0, 0)))
	assert.Equal(t, 1, h.ctrl.SpawnAll())

	vehicles := h.live(host.KindVehicle)
	require.Len(t, vehicles, 1)
	h.kill(vehicles[0])

	sums := collectSums(t, reader)
	assert.Equal(t, int64(1), sums["bradley.spawned"])
	assert.Equal(t, int64(1), sums["bradley.spawn.failed"])
	assert.Equal(t, int64(1), sums["bradley.deaths"])
	assert.Equal(t, int64(2), sums["bradley.loot.dropped"])

	require.NoError(t, h.run(h.admin, "/"+CommandRemove))
	assert.Equal(t, int64(1), collectSums(t, reader)["dispatcher.commands.processed"])
}
