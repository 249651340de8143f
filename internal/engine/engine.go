// Package engine is an in-process stand-in for the game server's entity system.
// Entities live in an ark ECS world; handles are generational ECS entities, so a
// stale handle simply fails the liveness check. The engine is single-threaded and
// must only be touched from the tick goroutine.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"
	"github.com/rustmods/custombradley/pkg/core"
	"github.com/rustmods/custombradley/pkg/host"
)

var (
	ErrUnknownPrefab   = errors.New("unknown prefab")
	ErrOutOfBounds     = errors.New("position outside the map")
	ErrEntityDestroyed = errors.New("entity destroyed")
	ErrAlreadySpawned  = errors.New("entity already spawned")
	ErrUnknownItem     = errors.New("unknown item")
	ErrInvalidAmount   = errors.New("invalid item amount")
)

// DefaultWorldSize is the edge length of the playable square, centered on the origin.
const DefaultWorldSize = 4500

// crateScatter is how far default death crates land from the wreck.
const crateScatter = 3.0

// Config configures an Engine.
type Config struct {
	WorldSize float64
	Prefabs   map[string]PrefabDef
	Catalog   *Catalog
	Logger    *slog.Logger
}

// Engine implements host.Engine on an ECS world.
type Engine struct {
	world     ecs.World
	worldSize float64
	prefabs   map[string]PrefabDef
	catalog   *Catalog
	logger    *slog.Logger
	hooks     []host.Hooks
	players   map[string]*Player

	identities *ecs.Map[Identity]
	transforms *ecs.Map[Transform]
	healths    *ecs.Map[Health]
	turrets    *ecs.Map[Turret]
	invokes    *ecs.Map[Invokes]
	emitters   *ecs.Map[Emitters]
	crates     *ecs.Map[LootContainer]
	dropped    *ecs.Map[DroppedItem]
	spawned    *ecs.Map[Spawned]

	located *ecs.Filter2[Identity, Transform]
}

var _ host.Engine = (*Engine)(nil)

// New creates an engine. Zero config fields take the stock defaults.
func New(cfg Config) *Engine {
	if cfg.WorldSize <= 0 {
		cfg.WorldSize = DefaultWorldSize
	}
	if cfg.Prefabs == nil {
		cfg.Prefabs = DefaultPrefabs()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	e := &Engine{
		world:     ecs.NewWorld(),
		worldSize: cfg.WorldSize,
		prefabs:   cfg.Prefabs,
		catalog:   cfg.Catalog,
		logger:    cfg.Logger,
		players:   make(map[string]*Player),
	}
	w := &e.world
	e.identities = ecs.NewMap[Identity](w)
	e.transforms = ecs.NewMap[Transform](w)
	e.healths = ecs.NewMap[Health](w)
	e.turrets = ecs.NewMap[Turret](w)
	e.invokes = ecs.NewMap[Invokes](w)
	e.emitters = ecs.NewMap[Emitters](w)
	e.crates = ecs.NewMap[LootContainer](w)
	e.dropped = ecs.NewMap[DroppedItem](w)
	e.spawned = ecs.NewMap[Spawned](w)
	e.located = ecs.NewFilter2[Identity, Transform](w)
	return e
}

// Subscribe registers hooks that receive spawn and death broadcasts.
func (e *Engine) Subscribe(h host.Hooks) {
	e.hooks = append(e.hooks, h)
}

// RegisterPrefab adds or replaces a prefab definition.
func (e *Engine) RegisterPrefab(def PrefabDef) {
	e.prefabs[def.Path] = def
}

// Catalog returns the item catalog.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

func (e *Engine) alive(h host.Handle) bool {
	if h == (host.Handle{}) {
		return false
	}
	return e.world.Alive(h)
}

func (e *Engine) inBounds(p core.Vector3) bool {
	half := e.worldSize / 2
	return math.Abs(p.X) <= half && math.Abs(p.Z) <= half
}

// CreateEntity implements host.Engine.
func (e *Engine) CreateEntity(prefab string, position, rotation core.Vector3) (host.Handle, error) {
	def, ok := e.prefabs[prefab]
	if !ok {
		return host.Handle{}, fmt.Errorf("%w: %s", ErrUnknownPrefab, prefab)
	}
	if !e.inBounds(position) {
		return host.Handle{}, fmt.Errorf("%w: %s", ErrOutOfBounds, position)
	}

	h := e.identities.NewEntity(&Identity{Prefab: def.Path, Kind: def.Kind})
	e.transforms.Add(h, &Transform{Position: position, Rotation: rotation, Scale: core.Uniform(1)})
	if def.Health > 0 {
		e.healths.Add(h, &Health{Current: def.Health, Max: def.Health})
	}
	if def.BulletDamage > 0 {
		e.turrets.Add(h, &Turret{BulletDamage: def.BulletDamage})
	}
	if len(def.Invokes) > 0 {
		scheduled := make(map[string]bool, len(def.Invokes))
		for _, name := range def.Invokes {
			scheduled[name] = true
		}
		e.invokes.Add(h, &Invokes{Scheduled: scheduled})
	}
	if len(def.Emitters) > 0 {
		systems := make([]*Emitter, 0, len(def.Emitters))
		for _, name := range def.Emitters {
			systems = append(systems, NewEmitter(name))
		}
		e.emitters.Add(h, &Emitters{Systems: systems})
	}
	if def.Kind == host.KindLootContainer {
		e.crates.Add(h, &LootContainer{})
	}
	return h, nil
}

// Spawn implements host.Engine.
func (e *Engine) Spawn(h host.Handle) error {
	if !e.alive(h) {
		return ErrEntityDestroyed
	}
	if e.spawned.Has(h) {
		return ErrAlreadySpawned
	}
	e.spawned.Add(h, &Spawned{})

	e.logger.Debug("entity spawned", "entity", h.ID(), "prefab", e.identities.Get(h).Prefab)
	for _, hk := range e.hooks {
		hk.OnEntitySpawned(h)
	}
	return nil
}

// Kill implements host.Engine. No death hook fires.
func (e *Engine) Kill(h host.Handle) {
	if !e.alive(h) {
		return
	}
	e.world.RemoveEntity(h)
}

// IsDestroyed implements host.Engine. The null handle counts as destroyed.
func (e *Engine) IsDestroyed(h host.Handle) bool {
	return !e.alive(h)
}

// IsSpawned reports whether h is alive and activated.
func (e *Engine) IsSpawned(h host.Handle) bool {
	return e.alive(h) && e.spawned.Has(h)
}

// Prefab returns the prefab path h was created from.
func (e *Engine) Prefab(h host.Handle) (string, bool) {
	if !e.alive(h) {
		return "", false
	}
	return e.identities.Get(h).Prefab, true
}

// Position implements host.Engine.
func (e *Engine) Position(h host.Handle) (core.Vector3, bool) {
	if !e.alive(h) || !e.transforms.Has(h) {
		return core.Vector3{}, false
	}
	return e.transforms.Get(h).Position, true
}

// Transform returns a copy of the entity transform.
func (e *Engine) Transform(h host.Handle) (Transform, bool) {
	if !e.alive(h) || !e.transforms.Has(h) {
		return Transform{}, false
	}
	return *e.transforms.Get(h), true
}

// SetLocalScale implements host.Engine.
func (e *Engine) SetLocalScale(h host.Handle, scale core.Vector3) bool {
	if !e.alive(h) || !e.transforms.Has(h) {
		return false
	}
	e.transforms.Get(h).Scale = scale
	return true
}

// InitializeHealth implements host.Engine.
func (e *Engine) InitializeHealth(h host.Handle, health, maxHealth float64) bool {
	if !e.alive(h) {
		return false
	}
	if !e.healths.Has(h) {
		e.healths.Add(h, &Health{})
	}
	hp := e.healths.Get(h)
	hp.Max = maxHealth
	hp.Current = math.Min(health, maxHealth)
	return true
}

// SetHealth implements host.Engine.
func (e *Engine) SetHealth(h host.Handle, health float64) bool {
	if !e.alive(h) || !e.healths.Has(h) {
		return false
	}
	e.healths.Get(h).Current = health
	return true
}

// Health returns the current and maximum health of h.
func (e *Engine) Health(h host.Handle) (Health, bool) {
	if !e.alive(h) || !e.healths.Has(h) {
		return Health{}, false
	}
	return *e.healths.Get(h), true
}

// Turret implements host.Engine.
func (e *Engine) Turret(h host.Handle) host.Turret {
	if !e.alive(h) || !e.turrets.Has(h) {
		return nil
	}
	return turretRef{engine: e, handle: h}
}

// turretRef resolves the component on every access so it never outlives the entity.
type turretRef struct {
	engine *Engine
	handle host.Handle
}

func (t turretRef) BulletDamage() float64 {
	if !t.engine.alive(t.handle) || !t.engine.turrets.Has(t.handle) {
		return 0
	}
	return t.engine.turrets.Get(t.handle).BulletDamage
}

func (t turretRef) SetBulletDamage(damage float64) {
	if !t.engine.alive(t.handle) || !t.engine.turrets.Has(t.handle) {
		return
	}
	t.engine.turrets.Get(t.handle).BulletDamage = damage
}

// CancelInvoke implements host.Engine.
func (e *Engine) CancelInvoke(h host.Handle, behavior string) bool {
	if !e.alive(h) || !e.invokes.Has(h) {
		return false
	}
	inv := e.invokes.Get(h)
	if !inv.Scheduled[behavior] {
		return false
	}
	delete(inv.Scheduled, behavior)
	return true
}

// IsInvoking reports whether behavior is still scheduled on h.
func (e *Engine) IsInvoking(h host.Handle, behavior string) bool {
	if !e.alive(h) || !e.invokes.Has(h) {
		return false
	}
	return e.invokes.Get(h).Scheduled[behavior]
}

// ParticleSystems implements host.Engine.
func (e *Engine) ParticleSystems(h host.Handle) []host.ParticleSystem {
	if !e.alive(h) || !e.emitters.Has(h) {
		return nil
	}
	systems := e.emitters.Get(h).Systems
	out := make([]host.ParticleSystem, len(systems))
	for i, s := range systems {
		out[i] = s
	}
	return out
}

// Emitters returns the concrete emitters of h.
func (e *Engine) Emitters(h host.Handle) []*Emitter {
	if !e.alive(h) || !e.emitters.Has(h) {
		return nil
	}
	return e.emitters.Get(h).Systems
}

// FindEntities implements host.Engine.
func (e *Engine) FindEntities(center core.Vector3, radius float64, kind host.EntityKind) []host.Handle {
	var found []host.Handle
	query := e.located.Query()
	for query.Next() {
		id, tr := query.Get()
		if kind != host.KindAny && id.Kind != kind {
			continue
		}
		if tr.Position.Distance(center) < radius {
			found = append(found, query.Entity())
		}
	}
	return found
}

// Entities returns every live entity of kind.
func (e *Engine) Entities(kind host.EntityKind) []host.Handle {
	var found []host.Handle
	query := e.located.Query()
	for query.Next() {
		id, _ := query.Get()
		if kind == host.KindAny || id.Kind == kind {
			found = append(found, query.Entity())
		}
	}
	return found
}

// CreateItem implements host.Engine.
func (e *Engine) CreateItem(shortName string, amount int) (host.Item, error) {
	def, ok := e.catalog.Find(shortName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, shortName)
	}
	if amount < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	return &Item{def: def, amount: amount}, nil
}

// DropItem implements host.Engine. The dropped item is a spawned world entity.
func (e *Engine) DropItem(item host.Item, position, velocity core.Vector3) (host.Handle, error) {
	it, ok := item.(*Item)
	if !ok || it == nil {
		return host.Handle{}, fmt.Errorf("%w: foreign item", ErrUnknownItem)
	}

	h := e.identities.NewEntity(&Identity{Prefab: "item/" + it.def.ShortName, Kind: host.KindDroppedItem})
	e.transforms.Add(h, &Transform{Position: position, Scale: core.Uniform(1)})
	e.dropped.Add(h, &DroppedItem{ShortName: it.def.ShortName, Amount: it.amount, Velocity: velocity})
	if err := e.Spawn(h); err != nil {
		return host.Handle{}, err
	}
	return h, nil
}

// Dropped returns the item data of a dropped item entity.
func (e *Engine) Dropped(h host.Handle) (DroppedItem, bool) {
	if !e.alive(h) || !e.dropped.Has(h) {
		return DroppedItem{}, false
	}
	return *e.dropped.Get(h), true
}

// Damage applies damage to h. When health reaches zero the death hook fires while
// the entity is still alive, the prefab's default crates are dropped, and the
// entity is destroyed. It reports whether the entity died.
func (e *Engine) Damage(h host.Handle, amount float64, info host.HitInfo) bool {
	if !e.alive(h) || !e.healths.Has(h) {
		return false
	}
	hp := e.healths.Get(h)
	hp.Current -= amount
	if hp.Current > 0 {
		return false
	}
	hp.Current = 0

	pos := e.transforms.Get(h).Position
	id := *e.identities.Get(h)
	if info.Position == (core.Vector3{}) {
		info.Position = pos
	}

	e.logger.Debug("entity died", "entity", h.ID(), "prefab", id.Prefab, "initiator", info.Initiator)
	for _, hk := range e.hooks {
		hk.OnEntityDeath(h, info)
	}

	if def, ok := e.prefabs[id.Prefab]; ok && def.DeathCrates > 0 {
		e.dropDeathCrates(pos, def)
	}
	e.Kill(h)
	return true
}

func (e *Engine) dropDeathCrates(pos core.Vector3, def PrefabDef) {
	for i := 0; i < def.DeathCrates; i++ {
		angle := 2 * math.Pi * float64(i) / float64(def.DeathCrates)
		at := pos.Add(core.Vector3{X: crateScatter * math.Cos(angle), Z: crateScatter * math.Sin(angle)})
		crate, err := e.CreateEntity(def.CratePrefab, at, core.Vector3{})
		if err != nil {
			e.logger.Warn("failed to drop death crate", "prefab", def.CratePrefab, "error", err)
			continue
		}
		if err := e.Spawn(crate); err != nil {
			e.logger.Warn("failed to spawn death crate", "prefab", def.CratePrefab, "error", err)
		}
	}
}
