package storage

import (
	"errors"

	"github.com/rustmods/custombradley/pkg/core"
)

// Fanout sends every event to each backend in order. Errors are joined; one
// failing backend does not stop the others.
type Fanout []Backend

var _ Backend = Fanout(nil)

func (f Fanout) each(fn func(Backend) error) error {
	var errs []error
	for _, b := range f {
		if err := fn(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Init() error  { return f.each(Backend.Init) }
func (f Fanout) Close() error { return f.each(Backend.Close) }

func (f Fanout) RecordSpawn(e *core.SpawnEvent) error {
	return f.each(func(b Backend) error { return b.RecordSpawn(e) })
}

func (f Fanout) RecordDeath(e *core.DeathEvent) error {
	return f.each(func(b Backend) error { return b.RecordDeath(e) })
}

func (f Fanout) RecordLootDrop(e *core.LootDropEvent) error {
	return f.each(func(b Backend) error { return b.RecordLootDrop(e) })
}

func (f Fanout) RecordCrateCleanup(e *core.CrateCleanupEvent) error {
	return f.each(func(b Backend) error { return b.RecordCrateCleanup(e) })
}

func (f Fanout) RecordRemoval(e *core.RemovalEvent) error {
	return f.each(func(b Backend) error { return b.RecordRemoval(e) })
}
