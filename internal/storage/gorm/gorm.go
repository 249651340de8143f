// Package gormstorage implements the storage.Backend interface over GORM.
// Events are converted on the caller's goroutine, queued per table and written
// in batches by a background writer.
package gormstorage

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rustmods/custombradley/internal/database"
	"github.com/rustmods/custombradley/internal/model"
	"github.com/rustmods/custombradley/internal/model/convert"
	"github.com/rustmods/custombradley/internal/queue"
	"github.com/rustmods/custombradley/internal/storage"
	"github.com/rustmods/custombradley/pkg/core"

	"gorm.io/gorm"
)

// DefaultFlushInterval is used when Dependencies.FlushInterval is zero.
const DefaultFlushInterval = time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        zerolog.Logger
	FlushInterval time.Duration
}

// queues holds the write queues for batch insertion.
type queues struct {
	Spawns        *queue.Queue[model.SpawnRecord]
	Deaths        *queue.Queue[model.DeathRecord]
	LootDrops     *queue.Queue[model.LootDropRecord]
	CrateCleanups *queue.Queue[model.CrateCleanupRecord]
	Removals      *queue.Queue[model.RemovalRecord]
}

func newQueues() *queues {
	return &queues{
		Spawns:        queue.New[model.SpawnRecord](),
		Deaths:        queue.New[model.DeathRecord](),
		LootDrops:     queue.New[model.LootDropRecord](),
		CrateCleanups: queue.New[model.CrateCleanupRecord](),
		Removals:      queue.New[model.RemovalRecord](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	session   model.Session
	sessionID atomic.Uint64
	stopChan  chan struct{}
	wg        sync.WaitGroup
	flushMu   sync.Mutex
	closeOnce sync.Once
}

var _ storage.Backend = (*Backend)(nil)

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// SessionID returns the database ID of the current session, 0 before Init.
func (b *Backend) SessionID() uint {
	return uint(b.sessionID.Load())
}

// Init migrates the schema, opens a session row and starts the writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend has no database")
	}
	if err := database.Migrate(b.deps.DB, b.deps.Logger); err != nil {
		return err
	}

	host, _ := os.Hostname()
	b.session = model.Session{
		UUID:      uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Host:      host,
	}
	if err := b.deps.DB.Create(&b.session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	b.sessionID.Store(uint64(b.session.ID))
	b.deps.Logger.Info().Uint("session", b.session.ID).Str("uuid", b.session.UUID).Msg("Journal session started")

	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	go b.writer()
	return nil
}

// Close stops the writer, flushes what is queued and closes the session row.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if b.stopChan == nil {
			return
		}
		close(b.stopChan)
		b.wg.Wait()
		b.Flush()

		ended := sql.NullTime{Time: time.Now().UTC(), Valid: true}
		if e := b.deps.DB.Model(&b.session).Update("ended_at", ended).Error; e != nil {
			err = fmt.Errorf("failed to close session: %w", e)
		}
	})
	return err
}

func (b *Backend) RecordSpawn(e *core.SpawnEvent) error {
	b.queues.Spawns.Push(convert.SpawnEventToGorm(b.SessionID(), e))
	return nil
}

func (b *Backend) RecordDeath(e *core.DeathEvent) error {
	b.queues.Deaths.Push(convert.DeathEventToGorm(b.SessionID(), e))
	return nil
}

func (b *Backend) RecordLootDrop(e *core.LootDropEvent) error {
	b.queues.LootDrops.Push(convert.LootDropEventToGorm(b.SessionID(), e))
	return nil
}

func (b *Backend) RecordCrateCleanup(e *core.CrateCleanupEvent) error {
	b.queues.CrateCleanups.Push(convert.CrateCleanupEventToGorm(b.SessionID(), e))
	return nil
}

func (b *Backend) RecordRemoval(e *core.RemovalEvent) error {
	b.queues.Removals.Push(convert.RemovalEventToGorm(b.SessionID(), e))
	return nil
}

// Flush writes every queued record now.
func (b *Backend) Flush() {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	db := b.deps.DB
	log := b.deps.Logger
	writeQueue(db, b.queues.Spawns, "spawn records", log)
	writeQueue(db, b.queues.Deaths, "death records", log)
	writeQueue(db, b.queues.CrateCleanups, "crate cleanup records", log)
	writeQueue(db, b.queues.LootDrops, "loot drop records", log)
	writeQueue(db, b.queues.Removals, "removal records", log)
}

// writeQueue writes all items from a queue in one transaction. Failed batches
// go back on the queue for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log zerolog.Logger) {
	items := q.Drain()
	if len(items) == 0 {
		return
	}

	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log.Error().Err(err).Int("count", len(items)).Msgf("Error creating %s", name)
		tx.Rollback()
		q.Push(items...)
		return
	}
	if err := tx.Commit().Error; err != nil {
		log.Error().Err(err).Msgf("Error committing %s", name)
		q.Push(items...)
		return
	}
	log.Trace().Int("count", len(items)).Msgf("Wrote %s", name)
}

// writer periodically drains the queues into the database.
func (b *Backend) writer() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.Flush()
		}
	}
}
