// Package bradley spawns and customizes Bradley APCs at configured locations,
// replaces their death loot and respawns them on a fixed delay.
package bradley

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustmods/custombradley/internal/config"
	"github.com/rustmods/custombradley/internal/storage"
	"github.com/rustmods/custombradley/pkg/core"
	"github.com/rustmods/custombradley/pkg/host"
)

const (
	// Name is the plugin name. The config document is <Name>.json.
	Name = "CustomBradley"

	// Permission gates every command.
	Permission = "custombradley.use"

	BradleyPrefab         = "assets/prefabs/npc/m2bradley/bradleyapc.prefab"
	SpawnScientistsInvoke = "SpawnScientists"

	// RespawnDelay is how long after a death every location is respawned.
	RespawnDelay = 300 * time.Second

	// CrateRadius bounds the default loot containers removed after a death.
	CrateRadius = 10.0
)

var (
	lootOffset   = core.Vector3{Y: 1}
	lootVelocity = core.Up.Scale(2)
)

// Dependencies are optional collaborators. Zero values are replaced by no-ops.
type Dependencies struct {
	Journal storage.Backend
	Now     func() time.Time
}

// Controller is the Custom Bradley plugin. All methods run on the tick goroutine.
type Controller struct {
	engine    host.Engine
	scheduler host.Scheduler
	store     *config.Store
	cfg       config.Plugin
	managed   *ManagedSet
	filter    hookFilter
	journal   storage.Backend
	now       func() time.Time
	logger    *slog.Logger
	metrics   *metrics
	unloaded  bool
}

var _ host.Plugin = (*Controller)(nil)

// New creates an uninitialized controller.
func New(deps Dependencies) *Controller {
	if deps.Journal == nil {
		deps.Journal = storage.Noop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	managed := NewManagedSet()
	return &Controller{
		managed: managed,
		filter:  hookFilter{managed: managed},
		journal: deps.Journal,
		now:     deps.Now,
		logger:  slog.Default(),
	}
}

// Name implements host.Plugin.
func (c *Controller) Name() string { return Name }

// Init registers the permission, loads the configuration and registers commands.
func (c *Controller) Init(h *host.Host) error {
	if h == nil || h.Engine == nil || h.Scheduler == nil || h.Permissions == nil || h.Commands == nil {
		return errors.New("incomplete host")
	}
	c.engine = h.Engine
	c.scheduler = h.Scheduler
	if h.Logger != nil {
		c.logger = h.Logger.With("plugin", Name)
	}

	m, err := newMetrics()
	if err != nil {
		return err
	}
	c.metrics = m

	h.Permissions.RegisterPermission(Permission, Name)

	c.store, err = config.NewStore(h.ConfigDir, Name, c.logger)
	if err != nil {
		return err
	}
	c.cfg, err = c.store.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	c.registerCommands(h.Commands)
	c.unloaded = false
	return nil
}

// OnServerInitialized spawns every location when configured to.
func (c *Controller) OnServerInitialized() {
	if c.cfg.SpawnOnServerStart {
		c.SpawnAll()
	}
}

// Unload kills every live managed vehicle. Respawn timers still pending are
// ignored once unloaded.
func (c *Controller) Unload() {
	c.unloaded = true
	_, killed := c.killManaged()
	c.record(func(j storage.Backend) error {
		return j.RecordRemoval(&core.RemovalEvent{Time: c.now(), Reason: core.RemovalUnload, Count: killed})
	})
	c.logger.Debug("Unloaded", "killed", killed)
}

// Config returns a copy of the loaded configuration.
func (c *Controller) Config() config.Plugin {
	cfg := c.cfg
	cfg.SpawnLocations = append([]core.SpawnLocation(nil), c.cfg.SpawnLocations...)
	cfg.DropItems = append([]core.DropItem(nil), c.cfg.DropItems...)
	return cfg
}

// Managed returns the managed handles in spawn order.
func (c *Controller) Managed() []host.Handle {
	return c.managed.Handles()
}

// ManagedCount returns the size of the managed set.
func (c *Controller) ManagedCount() int {
	return c.managed.Len()
}

// SpawnAll replaces every managed vehicle with a fresh one per configured
// location and returns how many spawned. Failed locations are logged and skipped.
func (c *Controller) SpawnAll() int {
	if c.unloaded {
		c.logger.Debug("Ignoring spawn after unload")
		return 0
	}

	if _, killed := c.killManaged(); killed > 0 {
		c.record(func(j storage.Backend) error {
			return j.RecordRemoval(&core.RemovalEvent{Time: c.now(), Reason: core.RemovalRespawn, Count: killed})
		})
	}

	spawned := 0
	for i, loc := range c.cfg.SpawnLocations {
		if c.spawn(i, loc) {
			spawned++
		}
	}
	return spawned
}

func (c *Controller) spawn(index int, loc core.SpawnLocation) bool {
	ev := core.SpawnEvent{
		Time:          c.now(),
		LocationIndex: index,
		Position:      loc.Position,
		Rotation:      loc.Rotation,
	}
	defer c.record(func(j storage.Backend) error { return j.RecordSpawn(&ev) })

	h, err := c.engine.CreateEntity(BradleyPrefab, loc.Position, loc.Rotation)
	if err != nil {
		return c.spawnFailed(&ev, err)
	}

	// the spawned hook fires inside Spawn and must already see h as managed
	c.managed.Add(h)
	if err := c.engine.Spawn(h); err != nil {
		c.managed.Remove(h)
		c.engine.Kill(h)
		return c.spawnFailed(&ev, err)
	}

	ev.Success = true
	ev.EntityID = h.ID()
	c.metrics.spawned.Add(context.Background(), 1)
	c.logger.Warn(fmt.Sprintf("Bradley spawned at %s", loc.Position), "location", index, "entity", h.ID())
	return true
}

func (c *Controller) spawnFailed(ev *core.SpawnEvent, err error) bool {
	ev.Error = err.Error()
	c.metrics.spawnFailed.Add(context.Background(), 1)
	c.logger.Error("Failed to spawn Bradley APC!", "location", ev.LocationIndex, "error", err)
	return false
}

// killManaged kills every live member and clears the set. It returns the set
// size before clearing and the number of kills issued.
func (c *Controller) killManaged() (size, killed int) {
	handles := c.managed.Clear()
	for _, h := range handles {
		if h == (host.Handle{}) || c.engine.IsDestroyed(h) {
			continue
		}
		c.engine.Kill(h)
		killed++
	}
	return len(handles), killed
}

// record writes to the journal. Journal failures never reach gameplay.
func (c *Controller) record(write func(storage.Backend) error) {
	if err := write(c.journal); err != nil {
		c.logger.Warn("journal write failed", "error", err)
	}
}
