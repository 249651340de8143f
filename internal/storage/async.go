package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rustmods/custombradley/pkg/core"
)

// ErrClosed is returned by Async after Close.
var ErrClosed = errors.New("journal closed")

// Async runs journal writes on a single-worker pool so the tick goroutine never
// waits on I/O unless the previous write is still running. Write errors are
// logged, not returned.
type Async struct {
	inner        Backend
	pool         *ants.Pool
	logger       *slog.Logger
	closeTimeout time.Duration
}

var _ Backend = (*Async)(nil)

// NewAsync wraps inner. One worker keeps events in submission order.
func NewAsync(inner Backend, logger *slog.Logger) (*Async, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Async{inner: inner, logger: logger, closeTimeout: 10 * time.Second}

	pool, err := ants.NewPool(1,
		ants.WithPreAlloc(true),
		ants.WithPanicHandler(func(p interface{}) {
			logger.Error("journal write panicked", "panic", fmt.Sprint(p))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create journal pool: %w", err)
	}
	a.pool = pool
	return a, nil
}

// Inner returns the wrapped backend.
func (a *Async) Inner() Backend {
	return a.inner
}

// Init initializes the wrapped backend synchronously.
func (a *Async) Init() error {
	return a.inner.Init()
}

// Close waits for pending writes, then closes the wrapped backend.
func (a *Async) Close() error {
	if a.pool.IsClosed() {
		return nil
	}
	if err := a.pool.ReleaseTimeout(a.closeTimeout); err != nil {
		a.logger.Warn("journal writes still running at close", "error", err)
	}
	return a.inner.Close()
}

func (a *Async) submit(kind string, write func() error) error {
	err := a.pool.Submit(func() {
		if err := write(); err != nil {
			a.logger.Error("journal write failed", "event", kind, "error", err)
		}
	})
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrClosed
	}
	return err
}

func (a *Async) RecordSpawn(e *core.SpawnEvent) error {
	ev := *e
	return a.submit("spawn", func() error { return a.inner.RecordSpawn(&ev) })
}

func (a *Async) RecordDeath(e *core.DeathEvent) error {
	ev := *e
	return a.submit("death", func() error { return a.inner.RecordDeath(&ev) })
}

func (a *Async) RecordLootDrop(e *core.LootDropEvent) error {
	ev := *e
	return a.submit("loot", func() error { return a.inner.RecordLootDrop(&ev) })
}

func (a *Async) RecordCrateCleanup(e *core.CrateCleanupEvent) error {
	ev := *e
	return a.submit("crates", func() error { return a.inner.RecordCrateCleanup(&ev) })
}

func (a *Async) RecordRemoval(e *core.RemovalEvent) error {
	ev := *e
	return a.submit("removal", func() error { return a.inner.RecordRemoval(&ev) })
}
