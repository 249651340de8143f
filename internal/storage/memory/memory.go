// internal/storage/memory/memory.go
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rustmods/custombradley/internal/config"
	"github.com/rustmods/custombradley/internal/storage"
	"github.com/rustmods/custombradley/pkg/core"
)

var (
	_ storage.Backend  = (*Backend)(nil)
	_ storage.Exporter = (*Backend)(nil)
)

// Backend keeps the journal in memory and exports it to JSON on Close.
type Backend struct {
	cfg     config.MemoryConfig
	session string
	started time.Time
	now     func() time.Time

	spawns   []core.SpawnEvent
	deaths   []core.DeathEvent
	loot     []core.LootDropEvent
	crates   []core.CrateCleanupEvent
	removals []core.RemovalEvent

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg: cfg,
		now: time.Now,
	}
}

// Init starts a new journal session, discarding anything recorded before.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = uuid.NewString()
	b.started = b.now()
	b.spawns = nil
	b.deaths = nil
	b.loot = nil
	b.crates = nil
	b.removals = nil
	b.lastExportPath = ""
	return nil
}

// Close exports the session to the configured output directory.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == "" {
		return nil
	}
	return b.exportJSON()
}

// ExportedFilePath returns the path of the last export, or "" before Close.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// SessionID returns the current session identifier.
func (b *Backend) SessionID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.session
}

func (b *Backend) RecordSpawn(e *core.SpawnEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spawns = append(b.spawns, *e)
	return nil
}

func (b *Backend) RecordDeath(e *core.DeathEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deaths = append(b.deaths, *e)
	return nil
}

func (b *Backend) RecordLootDrop(e *core.LootDropEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loot = append(b.loot, *e)
	return nil
}

func (b *Backend) RecordCrateCleanup(e *core.CrateCleanupEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.crates = append(b.crates, *e)
	return nil
}

func (b *Backend) RecordRemoval(e *core.RemovalEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removals = append(b.removals, *e)
	return nil
}
