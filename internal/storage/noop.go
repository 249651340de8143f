package storage

import "github.com/rustmods/custombradley/pkg/core"

// Noop discards every event. It backs storage.type "none".
type Noop struct{}

var _ Backend = Noop{}

func (Noop) Init() error                                      { return nil }
func (Noop) Close() error                                     { return nil }
func (Noop) RecordSpawn(*core.SpawnEvent) error               { return nil }
func (Noop) RecordDeath(*core.DeathEvent) error               { return nil }
func (Noop) RecordLootDrop(*core.LootDropEvent) error         { return nil }
func (Noop) RecordCrateCleanup(*core.CrateCleanupEvent) error { return nil }
func (Noop) RecordRemoval(*core.RemovalEvent) error           { return nil }
