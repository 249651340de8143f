package engine

import (
	"strings"

	"github.com/rustmods/custombradley/pkg/core"
	"github.com/rustmods/custombradley/pkg/host"
)

// Identity names the prefab an entity was created from and its query kind.
type Identity struct {
	Prefab string
	Kind   host.EntityKind
}

// Transform is the world placement of an entity.
type Transform struct {
	Position core.Vector3
	Rotation core.Vector3
	Scale    core.Vector3
}

// Health holds current and maximum hit points.
type Health struct {
	Current float64
	Max     float64
}

// Turret is the primary weapon of an armed vehicle.
type Turret struct {
	BulletDamage float64
}

// Invokes are named behaviors the entity runs on a schedule.
type Invokes struct {
	Scheduled map[string]bool
}

// Emitters are the particle systems attached to an entity.
type Emitters struct {
	Systems []*Emitter
}

// LootContainer tags world-placed lootable crates.
type LootContainer struct{}

// DroppedItem is an item lying in the world.
type DroppedItem struct {
	ShortName string
	Amount    int
	Velocity  core.Vector3
}

// Spawned marks entities that have been activated.
type Spawned struct{}

// Emitter is a particle system. It implements host.ParticleSystem.
type Emitter struct {
	name    string
	playing bool
	active  bool
}

// NewEmitter returns a playing, active emitter.
func NewEmitter(name string) *Emitter {
	return &Emitter{name: name, playing: true, active: true}
}

func (e *Emitter) Name() string          { return e.name }
func (e *Emitter) Stop()                 { e.playing = false }
func (e *Emitter) SetActive(active bool) { e.active = active }
func (e *Emitter) IsPlaying() bool       { return e.playing }
func (e *Emitter) IsActive() bool        { return e.active }

// IsSmoke reports whether the emitter name contains "smoke" in any case.
func (e *Emitter) IsSmoke() bool {
	return strings.Contains(strings.ToLower(e.name), "smoke")
}
