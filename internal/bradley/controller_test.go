package bradley

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustmods/custombradley/internal/config"
	"github.com/rustmods/custombradley/internal/dispatcher"
	"github.com/rustmods/custombradley/internal/engine"
	"github.com/rustmods/custombradley/internal/logging"
	"github.com/rustmods/custombradley/internal/permission"
	"github.com/rustmods/custombradley/pkg/core"
	"github.com/rustmods/custombradley/pkg/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = 100 * time.Millisecond

// journal records events in memory.
type journal struct {
	mu       sync.Mutex
	spawns   []core.SpawnEvent
	deaths   []core.DeathEvent
	loot     []core.LootDropEvent
	crates   []core.CrateCleanupEvent
	removals []core.RemovalEvent
	fail     bool
}

func (j *journal) Init() error  { return nil }
func (j *journal) Close() error { return nil }

func (j *journal) err() error {
	if j.fail {
		return errors.New("journal offline")
	}
	return nil
}

func (j *journal) RecordSpawn(e *core.SpawnEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.spawns = append(j.spawns, *e)
	return j.err()
}

func (j *journal) RecordDeath(e *core.DeathEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.deaths = append(j.deaths, *e)
	return j.err()
}

func (j *journal) RecordLootDrop(e *core.LootDropEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.loot = append(j.loot, *e)
	return j.err()
}

func (j *journal) RecordCrateCleanup(e *core.CrateCleanupEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.crates = append(j.crates, *e)
	return j.err()
}

func (j *journal) RecordRemoval(e *core.RemovalEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.removals = append(j.removals, *e)
	return j.err()
}

type harness struct {
	t        *testing.T
	dir      string
	engine   *engine.Engine
	sched    *engine.Scheduler
	perms    *permission.Registry
	commands *dispatcher.Dispatcher
	registry *host.Registry
	ctrl     *Controller
	journal  *journal
	logs     *bytes.Buffer
	admin    *engine.Player
}

// newHarness loads a controller against the engine stand-in. A non-nil cfg is
// written as the plugin document first.
func newHarness(t *testing.T, cfg *config.Plugin) *harness {
	t.Helper()

	h := &harness{t: t, dir: t.TempDir(), journal: &journal{}, logs: &bytes.Buffer{}}
	logger := slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if cfg != nil {
		store, err := config.NewStore(h.dir, Name, logger)
		require.NoError(t, err)
		require.NoError(t, store.Save(*cfg))
	}

	h.engine = engine.New(engine.Config{Logger: logger})
	h.sched = engine.NewScheduler(logger)
	h.perms = permission.New(logger)

	var err error
	h.commands, err = dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()), h.perms)
	require.NoError(t, err)

	h.registry = host.NewRegistry(&host.Host{
		Engine:      h.engine,
		Scheduler:   h.sched,
		Permissions: h.perms,
		Commands:    h.commands,
		ConfigDir:   h.dir,
		Logger:      logger,
	})
	h.engine.Subscribe(h.registry)

	h.ctrl = New(Dependencies{Journal: h.journal})
	require.NoError(t, h.registry.Load(h.ctrl))

	h.admin = h.engine.AddPlayer("76561198000000001", "admin", core.Vector3{X: 12.5, Y: 3, Z: -40}, core.Vector3{X: 10, Y: 135, Z: 5})
	h.perms.Grant(h.admin.UserID(), Permission)
	return h
}

func configWith(locations ...core.SpawnLocation) *config.Plugin {
	cfg := config.DefaultPlugin()
	cfg.SpawnLocations = locations
	return &cfg
}

func at(x, y, z float64) core.SpawnLocation {
	return core.SpawnLocation{Position: core.Vector3{X: x, Y: y, Z: z}}
}

func (h *harness) run(player host.Player, line string) error {
	ev, ok := dispatcher.Parse(line, player)
	require.True(h.t, ok)
	_, err := h.commands.Dispatch(ev)
	return err
}

func (h *harness) live(kind host.EntityKind) []host.Handle {
	return h.engine.Entities(kind)
}

func (h *harness) kill(vehicle host.Handle) core.Vector3 {
	h.t.Helper()
	pos, ok := h.engine.Position(vehicle)
	require.True(h.t, ok)
	require.True(h.t, h.engine.Damage(vehicle, 1e9, host.HitInfo{Initiator: "76561198000000002", Weapon: "rocket.basic"}))
	return pos
}

func TestInit_RegistersPermissionAndCommands(t *testing.T) {
	h := newHarness(t, nil)

	assert.Equal(t, []string{Permission}, h.perms.Registered())
	for _, cmd := range []string{CommandSpawn, CommandRemove, CommandAddLocation} {
		assert.True(t, h.commands.HasHandler(cmd), cmd)
	}
	assert.Equal(t, config.DefaultPlugin(), h.ctrl.Config())
	assert.FileExists(t, h.dir+"/CustomBradley.json")
	assert.Equal(t, Name, h.ctrl.Name())
}

func TestInit_IncompleteHost(t *testing.T) {
	c := New(Dependencies{})
	assert.Error(t, c.Init(&host.Host{}))
	assert.Error(t, c.Init(nil))
}

func TestInit_MalformedConfigSelfHeals(t *testing.T) {
	dir := t.TempDir()
	bad := []byte(`{"BradleyScale": "huge"`)
	require.NoError(t, os.WriteFile(dir+"/CustomBradley.json", bad, 0644))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	e := engine.New(engine.Config{Logger: logger})
	perms := permission.New(logger)
	cmds, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()), perms)
	require.NoError(t, err)

	c := New(Dependencies{})
	require.NoError(t, c.Init(&host.Host{
		Engine: e, Scheduler: engine.NewScheduler(logger), Permissions: perms, Commands: cmds,
		ConfigDir: dir, Logger: logger,
	}))

	assert.Equal(t, config.DefaultPlugin(), c.Config())
	preserved, err := os.ReadFile(dir + "/CustomBradley.jsonError")
	require.NoError(t, err)
	assert.Equal(t, bad, preserved)
	assert.Contains(t, logs.String(), "level=WARN")

	require.NoError(t, c.store.Save(c.Config()))
}

func TestServerInitialized_SpawnOnStart(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		want    int
	}{
		{name: "enabled", enabled: true, want: 1},
		{name: "disabled", enabled: false, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultPlugin()
			cfg.SpawnOnServerStart = tt.enabled
			h := newHarness(t, &cfg)

			h.registry.ServerInitialized()
			assert.Equal(t, tt.want, h.ctrl.ManagedCount())
			assert.Len(t, h.live(host.KindVehicle), tt.want)
		})
	}
}

func TestSpawnAll_DefaultConfigOneLocation(t *testing.T) {
	h := newHarness(t, nil)

	assert.Equal(t, 1, h.ctrl.SpawnAll())
	assert.Equal(t, 1, h.ctrl.ManagedCount())
	assert.Contains(t, h.logs.String(), `level=WARN msg="Bradley spawned at (0.00, 0.00, 0.00)"`)

	require.Len(t, h.journal.spawns, 1)
	assert.True(t, h.journal.spawns[0].Success)
	assert.Equal(t, h.ctrl.Managed()[0].ID(), h.journal.spawns[0].EntityID)
}

func TestSpawnAll_EmptyLocations(t *testing.T) {
	h := newHarness(t, configWith())

	assert.Zero(t, h.ctrl.SpawnAll())
	assert.Zero(t, h.ctrl.ManagedCount())
	assert.Empty(t, h.live(host.KindVehicle))
}

func TestSpawnAll_SkipsFailedLocations(t *testing.T) {
	h := newHarness(t, configWith(
		at(100, 0, 100),
		at(99999, 0, 0), // off the map
		at(-200, 5, 300),
	))

	assert.Equal(t, 2, h.ctrl.SpawnAll())
	assert.Equal(t, 2, h.ctrl.ManagedCount(), "locations minus failed creations")
	assert.Contains(t, h.logs.String(), "Failed to spawn Bradley APC!")
	assert.Contains(t, h.logs.String(), "level=ERROR")

	require.Len(t, h.journal.spawns, 3)
	assert.True(t, h.journal.spawns[0].Success)
	assert.False(t, h.journal.spawns[1].Success)
	assert.NotEmpty(t, h.journal.spawns[1].Error)
	assert.Equal(t, 1, h.journal.spawns[1].LocationIndex)
	assert.True(t, h.journal.spawns[2].Success)
}

func TestSpawnAll_ReplacesPreviousVehicles(t *testing.T) {
	h := newHarness(t, configWith(at(0, 0, 0), at(50, 0, 50)))

	h.ctrl.SpawnAll()
	first := h.ctrl.Managed()
	h.engine.Kill(first[0]) // destroyed behind the controller's back

	h.ctrl.SpawnAll()
	second := h.ctrl.Managed()
	require.Len(t, second, 2)
	for _, old := range first {
		assert.True(t, h.engine.IsDestroyed(old))
		assert.NotContains(t, second, old)
	}
	assert.Len(t, h.live(host.KindVehicle), 2)

	require.Len(t, h.journal.removals, 1)
	assert.Equal(t, core.RemovalRespawn, h.journal.removals[0].Reason)
	assert.Equal(t, 1, h.journal.removals[0].Count, "only the live one is killed")
}

func TestCustomize_AppliedNextTick(t *testing.T) {
	cfg := config.DefaultPlugin()
	cfg.BradleyScale = 2.5
	cfg.BradleyHealth = 4000
	cfg.BradleyDamage = 42
	h := newHarness(t, &cfg)

	h.ctrl.SpawnAll()
	v := h.ctrl.Managed()[0]

	tr, _ := h.engine.Transform(v)
	assert.Equal(t, core.Uniform(1), tr.Scale, "not customized during the spawn hook")

	h.sched.Tick(tick)

	tr, _ = h.engine.Transform(v)
	assert.Equal(t, core.Uniform(2.5), tr.Scale)
	hp, _ := h.engine.Health(v)
	assert.Equal(t, engine.Health{Current: 4000, Max: 4000}, hp)
	assert.Equal(t, 42.0, h.engine.Turret(v).BulletDamage())
	assert.False(t, h.engine.IsInvoking(v, SpawnScientistsInvoke))

	for _, em := range h.engine.Emitters(v) {
		if em.IsSmoke() {
			assert.False(t, em.IsPlaying(), em.Name())
			assert.False(t, em.IsActive(), em.Name())
		} else {
			assert.True(t, em.IsPlaying(), em.Name())
			assert.True(t, em.IsActive(), em.Name())
		}
	}
}

func TestCustomize_TogglesOff(t *testing.T) {
	cfg := config.DefaultPlugin()
	cfg.DisableNPCs = false
	cfg.DisableSmoke = false
	h := newHarness(t, &cfg)

	h.ctrl.SpawnAll()
	h.sched.Tick(tick)
	v := h.ctrl.Managed()[0]

	assert.True(t, h.engine.IsInvoking(v, SpawnScientistsInvoke))
	for _, em := range h.engine.Emitters(v) {
		assert.True(t, em.IsPlaying(), em.Name())
	}
}

func TestCustomize_Idempotent(t *testing.T) {
	cfg := config.DefaultPlugin()
	cfg.BradleyScale = 0.5
	cfg.BradleyHealth = 250
	cfg.BradleyDamage = 3
	h := newHarness(t, &cfg)

	h.ctrl.SpawnAll()
	h.sched.Tick(tick)
	v := h.ctrl.Managed()[0]

	snapshot := func() (engine.Transform, engine.Health, float64) {
		tr, _ := h.engine.Transform(v)
		hp, _ := h.engine.Health(v)
		return tr, hp, h.engine.Turret(v).BulletDamage()
	}
	tr1, hp1, dmg1 := snapshot()
	h.ctrl.Customize(v)
	tr2, hp2, dmg2 := snapshot()

	assert.Equal(t, tr1, tr2)
	assert.Equal(t, hp1, hp2)
	assert.Equal(t, dmg1, dmg2)
}

func TestCustomize_MissingSubcomponentsAreSkipped(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.RegisterPrefab(engine.PrefabDef{
		Path:   BradleyPrefab,
		Kind:   host.KindVehicle,
		Health: 1000,
	})

	h.ctrl.SpawnAll()
	v := h.ctrl.Managed()[0]
	assert.Nil(t, h.engine.Turret(v))

	assert.NotPanics(t, func() { h.sched.Tick(tick) })
	hp, ok := h.engine.Health(v)
	require.True(t, ok)
	assert.Equal(t, h.ctrl.Config().BradleyHealth, hp.Max)
}

func TestOnEntitySpawned_IgnoresForeignEntities(t *testing.T) {
	h := newHarness(t, nil)

	other, err := h.engine.CreateEntity(BradleyPrefab, core.Vector3{X: 500}, core.Vector3{})
	require.NoError(t, err)
	require.NoError(t, h.engine.Spawn(other))

	next, _ := h.sched.Pending()
	assert.Zero(t, next, "nothing deferred for an unmanaged vehicle")
	h.ctrl.OnEntitySpawned(host.Handle{})
	next, _ = h.sched.Pending()
	assert.Zero(t, next)
}

func TestOnEntitySpawned_DestroyedBeforeNextTick(t *testing.T) {
	h := newHarness(t, nil)

	h.ctrl.SpawnAll()
	v := h.ctrl.Managed()[0]
	h.engine.Kill(v)

	assert.NotPanics(t, func() { h.sched.Tick(tick) })
	assert.True(t, h.engine.IsDestroyed(v))
}

func TestOnEntityDeath_DefaultLootScenario(t *testing.T) {
	h := newHarness(t, configWith(at(100, 2, 100)))
	h.ctrl.SpawnAll()
	h.sched.Tick(tick)
	v := h.ctrl.Managed()[0]

	// a crate outside the radius survives
	far, err := h.engine.CreateEntity(engine.NormalCratePrefab, core.Vector3{X: 100, Y: 2, Z: 111}, core.Vector3{})
	require.NoError(t, err)

	deathPos := h.kill(v)
	assert.Zero(t, h.ctrl.ManagedCount(), "removed immediately, not deferred")
	assert.Len(t, h.engine.FindEntities(deathPos, CrateRadius, host.KindLootContainer), 3, "engine dropped default crates")

	h.sched.Tick(tick)

	assert.Empty(t, h.engine.FindEntities(deathPos, CrateRadius, host.KindLootContainer))
	assert.False(t, h.engine.IsDestroyed(far))

	dropped := map[string]engine.DroppedItem{}
	for _, item := range h.live(host.KindDroppedItem) {
		d, ok := h.engine.Dropped(item)
		require.True(t, ok)
		pos, _ := h.engine.Position(item)
		assert.Equal(t, deathPos.Add(core.Vector3{Y: 1}), pos)
		dropped[d.ShortName] = d
	}
	require.Len(t, dropped, 2)
	assert.Equal(t, 100, dropped["metal.refined"].Amount)
	assert.Equal(t, 500, dropped["scrap"].Amount)
	assert.Equal(t, core.Vector3{Y: 2}, dropped["scrap"].Velocity)

	_, timers := h.sched.Pending()
	assert.Equal(t, 1, timers)
	due, ok := h.sched.NextTimer()
	require.True(t, ok)
	assert.Equal(t, tick+RespawnDelay, due, "scheduled at the time of death")

	require.Len(t, h.journal.deaths, 1)
	assert.Equal(t, "76561198000000002", h.journal.deaths[0].Killer)
	require.Len(t, h.journal.crates, 1)
	assert.Equal(t, 3, h.journal.crates[0].Removed)
	assert.Len(t, h.journal.loot, 2)
}

func TestOnEntityDeath_RespawnAfterDelay(t *testing.T) {
	h := newHarness(t, configWith(at(0, 0, 0), at(300, 0, 300)))
	h.ctrl.SpawnAll()
	h.sched.Tick(tick)
	survivor := h.ctrl.Managed()[1]

	h.kill(h.ctrl.Managed()[0])
	assert.Equal(t, 1, h.ctrl.ManagedCount())

	h.sched.Advance(RespawnDelay-time.Second, time.Second)
	assert.Equal(t, 1, h.ctrl.ManagedCount(), "not before the delay")

	h.sched.Tick(time.Second)
	assert.Equal(t, 2, h.ctrl.ManagedCount())
	assert.True(t, h.engine.IsDestroyed(survivor), "respawn replaces every location")
	assert.Len(t, h.live(host.KindVehicle), 2)
}

func TestOnEntityDeath_RemovesExactlyOne(t *testing.T) {
	h := newHarness(t, configWith(at(0, 0, 0), at(300, 0, 300), at(-300, 0, -300)))
	h.ctrl.SpawnAll()
	managed := h.ctrl.Managed()

	h.kill(managed[1])
	assert.Equal(t, []host.Handle{managed[0], managed[2]}, h.ctrl.Managed())

	// a repeated broadcast for the same handle is ignored
	h.ctrl.OnEntityDeath(managed[1], host.HitInfo{})
	assert.Equal(t, []host.Handle{managed[0], managed[2]}, h.ctrl.Managed())
	assert.Len(t, h.journal.deaths, 1)
}

func TestOnEntityDeath_IgnoresForeignEntities(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.SpawnAll()

	other, err := h.engine.CreateEntity(BradleyPrefab, core.Vector3{X: -500}, core.Vector3{})
	require.NoError(t, err)
	require.NoError(t, h.engine.Spawn(other))
	h.kill(other)

	next, timers := h.sched.Pending()
	assert.Equal(t, 1, next, "only the managed vehicle's customization")
	assert.Zero(t, timers)
	assert.Equal(t, 1, h.ctrl.ManagedCount())
	assert.Empty(t, h.journal.deaths)
}

func TestDropLoot_FailedItemsAreSkipped(t *testing.T) {
	cfg := config.DefaultPlugin()
	cfg.DropItems = []core.DropItem{
		{ShortName: "not.an.item", Amount: 5},
		{ShortName: "scrap", Amount: 0},
		{ShortName: "sulfur", Amount: 1000},
	}
	h := newHarness(t, &cfg)
	h.ctrl.SpawnAll()
	h.sched.Tick(tick)

	h.kill(h.ctrl.Managed()[0])
	h.sched.Tick(tick)

	items := h.live(host.KindDroppedItem)
	require.Len(t, items, 1)
	d, _ := h.engine.Dropped(items[0])
	assert.Equal(t, "sulfur", d.ShortName)
	assert.Contains(t, h.logs.String(), "Failed to create item: not.an.item")
	assert.Contains(t, h.logs.String(), "Failed to create item: scrap")

	require.Len(t, h.journal.loot, 3)
	assert.False(t, h.journal.loot[0].Success)
	assert.True(t, h.journal.loot[2].Success)
}

func TestUnload_KillsEverything(t *testing.T) {
	h := newHarness(t, configWith(at(0, 0, 0), at(100, 0, 0), at(200, 0, 0)))
	h.ctrl.SpawnAll()
	managed := h.ctrl.Managed()

	h.registry.UnloadAll()

	assert.Zero(t, h.ctrl.ManagedCount())
	for _, v := range managed {
		assert.True(t, h.engine.IsDestroyed(v))
	}
	require.Len(t, h.journal.removals, 1)
	assert.Equal(t, core.RemovalUnload, h.journal.removals[0].Reason)
	assert.Equal(t, 3, h.journal.removals[0].Count)
}

func TestUnload_LateRespawnIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.SpawnAll()
	h.kill(h.ctrl.Managed()[0])

	h.ctrl.Unload()
	h.sched.Advance(RespawnDelay+time.Second, time.Second)

	assert.Zero(t, h.ctrl.ManagedCount())
	assert.Empty(t, h.live(host.KindVehicle))
}

func TestSpawnCommand(t *testing.T) {
	h := newHarness(t, configWith(at(0, 0, 0), at(99999, 0, 0)))

	require.NoError(t, h.run(h.admin, "/custombradley.spawn"))
	assert.Equal(t, "Spawned 2 custom Bradley(s)!", h.admin.LastReply(), "reports configured locations")
	assert.Equal(t, 1, h.ctrl.ManagedCount())
}

func TestRemoveCommand(t *testing.T) {
	h := newHarness(t, configWith(at(0, 0, 0), at(100, 0, 0)))
	h.ctrl.SpawnAll()
	h.engine.Kill(h.ctrl.Managed()[0])

	require.NoError(t, h.run(h.admin, "custombradley.remove"))
	assert.Equal(t, "Removed 2 custom Bradley(s)!", h.admin.LastReply())
	assert.Zero(t, h.ctrl.ManagedCount())
	assert.Empty(t, h.live(host.KindVehicle))

	require.Len(t, h.journal.removals, 1)
	assert.Equal(t, core.RemovalCommand, h.journal.removals[0].Reason)
	assert.Equal(t, 1, h.journal.removals[0].Count)
}

func TestAddLocationCommand(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.run(h.admin, "custombradley.addlocation"))
	assert.Equal(t, "Added spawn location at your position: (12.50, 3.00, -40.00)", h.admin.LastReply())

	cfg := h.ctrl.Config()
	require.Len(t, cfg.SpawnLocations, 2)
	assert.Equal(t, core.SpawnLocation{
		Position: core.Vector3{X: 12.5, Y: 3, Z: -40},
		Rotation: core.Vector3{Y: 135},
	}, cfg.SpawnLocations[1])

	store, err := config.NewStore(h.dir, Name, nil)
	require.NoError(t, err)
	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, persisted.SpawnLocations, 2)

	assert.Equal(t, 2, h.ctrl.SpawnAll(), "reflected in the next spawn")
}

// remotePlayer is an admin issuing commands from outside the world.
type remotePlayer struct {
	*engine.Player
}

func (remotePlayer) HasPosition() bool { return false }

func TestAddLocationCommand_CallerWithoutPosition(t *testing.T) {
	h := newHarness(t, nil)
	remote := remotePlayer{h.admin}

	require.NoError(t, h.run(remote, "custombradley.addlocation"))
	assert.Equal(t, NoPositionMessage, h.admin.LastReply())
	assert.Equal(t, config.DefaultPlugin().SpawnLocations, h.ctrl.Config().SpawnLocations)

	store, err := config.NewStore(h.dir, Name, nil)
	require.NoError(t, err)
	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, persisted.SpawnLocations, 1)
}

func TestCommands_PermissionDenied(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.SpawnAll()
	stranger := h.engine.AddPlayer("76561198000000009", "stranger", core.Vector3{X: 5}, core.Vector3{})

	for _, cmd := range []string{CommandSpawn, CommandRemove, CommandAddLocation} {
		err := h.run(stranger, cmd)
		assert.ErrorIs(t, err, dispatcher.ErrPermissionDenied, cmd)
		assert.Equal(t, "You don't have permission to use this command.", stranger.LastReply())
	}

	assert.Equal(t, 1, h.ctrl.ManagedCount(), "no state change")
	assert.Len(t, h.ctrl.Config().SpawnLocations, 1)
	assert.Len(t, h.journal.spawns, 1)
}

func TestJournalFailuresDoNotAffectGameplay(t *testing.T) {
	h := newHarness(t, nil)
	h.journal.fail = true

	assert.Equal(t, 1, h.ctrl.SpawnAll())
	assert.Contains(t, h.logs.String(), "journal write failed")
}
