package bradley

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/rustmods/custombradley/internal/bradley"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	spawned     metric.Int64Counter
	spawnFailed metric.Int64Counter
	deaths      metric.Int64Counter
	lootDropped metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	m := meter()
	out := &metrics{}

	var err error
	out.spawned, err = m.Int64Counter("bradley.spawned",
		metric.WithDescription("Custom Bradleys spawned"))
	if err != nil {
		return nil, fmt.Errorf("creating spawned counter: %w", err)
	}

	out.spawnFailed, err = m.Int64Counter("bradley.spawn.failed",
		metric.WithDescription("Spawn attempts the engine rejected"))
	if err != nil {
		return nil, fmt.Errorf("creating spawn failed counter: %w", err)
	}

	out.deaths, err = m.Int64Counter("bradley.deaths",
		metric.WithDescription("Custom Bradleys destroyed in combat"))
	if err != nil {
		return nil, fmt.Errorf("creating deaths counter: %w", err)
	}

	out.lootDropped, err = m.Int64Counter("bradley.loot.dropped",
		metric.WithDescription("Custom loot items dropped"))
	if err != nil {
		return nil, fmt.Errorf("creating loot counter: %w", err)
	}

	return out, nil
}
