// internal/storage/storage_test.go
package storage_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rustmods/custombradley/internal/storage"
	"github.com/rustmods/custombradley/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Backend that remembers what it was asked to write.
type recorder struct {
	mu     sync.Mutex
	events []string
	inits  int
	closed bool
	fail   bool
	delay  time.Duration
}

func (r *recorder) add(kind string) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("disk full")
	}
	r.events = append(r.events, kind)
	return nil
}

func (r *recorder) Init() error { r.inits++; return nil }
func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
func (r *recorder) RecordSpawn(e *core.SpawnEvent) error       { return r.add("spawn") }
func (r *recorder) RecordDeath(e *core.DeathEvent) error       { return r.add("death") }
func (r *recorder) RecordLootDrop(e *core.LootDropEvent) error { return r.add("loot:" + e.ShortName) }
func (r *recorder) RecordCrateCleanup(e *core.CrateCleanupEvent) error {
	return r.add("crates")
}
func (r *recorder) RecordRemoval(e *core.RemovalEvent) error {
	return r.add("removal:" + string(e.Reason))
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestNoop(t *testing.T) {
	var b storage.Backend = storage.Noop{}
	require.NoError(t, b.Init())
	assert.NoError(t, b.RecordSpawn(&core.SpawnEvent{}))
	assert.NoError(t, b.RecordRemoval(&core.RemovalEvent{}))
	assert.NoError(t, b.Close())
}

func TestAsync_PreservesOrderAndFlushesOnClose(t *testing.T) {
	inner := &recorder{delay: time.Millisecond}
	a, err := storage.NewAsync(inner, nil)
	require.NoError(t, err)
	require.NoError(t, a.Init())
	assert.Equal(t, 1, inner.inits)

	require.NoError(t, a.RecordSpawn(&core.SpawnEvent{}))
	require.NoError(t, a.RecordDeath(&core.DeathEvent{}))
	require.NoError(t, a.RecordCrateCleanup(&core.CrateCleanupEvent{}))
	require.NoError(t, a.RecordLootDrop(&core.LootDropEvent{ShortName: "metal.refined"}))
	require.NoError(t, a.RecordLootDrop(&core.LootDropEvent{ShortName: "scrap"}))
	require.NoError(t, a.RecordRemoval(&core.RemovalEvent{Reason: core.RemovalUnload}))

	require.NoError(t, a.Close())
	assert.True(t, inner.closed)
	assert.Equal(t, []string{
		"spawn", "death", "crates", "loot:metal.refined", "loot:scrap", "removal:unload",
	}, inner.snapshot())
}

func TestAsync_CopiesEvents(t *testing.T) {
	inner := &recorder{delay: 5 * time.Millisecond}
	a, err := storage.NewAsync(inner, nil)
	require.NoError(t, err)

	ev := &core.LootDropEvent{ShortName: "scrap"}
	require.NoError(t, a.RecordLootDrop(ev))
	ev.ShortName = "mutated"
	require.NoError(t, a.Close())

	assert.Equal(t, []string{"loot:scrap"}, inner.snapshot())
}

func TestAsync_WriteErrorsAreNotReturned(t *testing.T) {
	inner := &recorder{fail: true}
	a, err := storage.NewAsync(inner, nil)
	require.NoError(t, err)

	assert.NoError(t, a.RecordSpawn(&core.SpawnEvent{}))
	require.NoError(t, a.Close())
	assert.Empty(t, inner.snapshot())
}

func TestAsync_AfterClose(t *testing.T) {
	a, err := storage.NewAsync(&recorder{}, nil)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	assert.ErrorIs(t, a.RecordSpawn(&core.SpawnEvent{}), storage.ErrClosed)
	assert.NoError(t, a.Close(), "second close is a no-op")
}

func TestFanout(t *testing.T) {
	a, b := &recorder{}, &recorder{fail: true}
	f := storage.Fanout{b, a}

	require.NoError(t, f.Init())
	assert.Equal(t, 1, a.inits)
	assert.Equal(t, 1, b.inits)

	err := f.RecordSpawn(&core.SpawnEvent{})
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, []string{"spawn"}, a.snapshot(), "a failing backend does not block the rest")

	assert.Error(t, f.RecordRemoval(&core.RemovalEvent{Reason: core.RemovalCommand}))
	assert.Equal(t, []string{"spawn", "removal:command"}, a.snapshot())
	require.NoError(t, f.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
