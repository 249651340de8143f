// internal/storage/storage.go
package storage

import "github.com/rustmods/custombradley/pkg/core"

// Backend is the interface all journal implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Event recording
	RecordSpawn(e *core.SpawnEvent) error
	RecordDeath(e *core.DeathEvent) error
	RecordLootDrop(e *core.LootDropEvent) error
	RecordCrateCleanup(e *core.CrateCleanupEvent) error
	RecordRemoval(e *core.RemovalEvent) error
}

// Exporter is an optional interface for backends that write a journal file on Close.
type Exporter interface {
	ExportedFilePath() string
}
