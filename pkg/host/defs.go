// Package host describes the game server surface a plugin runs against: the engine
// calls it consumes and the lifecycle hooks it exposes.
package host

import (
	"log/slog"
	"time"

	"github.com/mlange-42/ark/ecs"
	"github.com/rustmods/custombradley/pkg/core"
)

// Handle is a non-owning reference to an engine entity. Handles are generational,
// so a handle to a destroyed entity never aliases a newer one. The zero Handle is null.
type Handle = ecs.Entity

// EntityKind selects entities in proximity queries.
type EntityKind int

const (
	KindAny EntityKind = iota
	KindVehicle
	KindLootContainer
	KindDroppedItem
)

// HitInfo describes the final blow that killed an entity.
type HitInfo struct {
	Initiator string
	Weapon    string
	Position  core.Vector3
}

// Turret is the primary weapon subcomponent of an armed vehicle.
type Turret interface {
	BulletDamage() float64
	SetBulletDamage(damage float64)
}

// ParticleSystem is a named particle emitter attached to an entity.
type ParticleSystem interface {
	Name() string
	Stop()
	SetActive(active bool)
}

// Item is an item instance that has not been placed in the world yet.
type Item interface {
	ShortName() string
	Amount() int
}

// Engine is the entity API consumed by plugins.
type Engine interface {
	// CreateEntity instantiates a prefab without spawning it.
	CreateEntity(prefab string, position, rotation core.Vector3) (Handle, error)
	// Spawn activates a created entity and broadcasts the spawned hook.
	Spawn(h Handle) error
	// Kill destroys an entity. Killing a destroyed entity is a no-op.
	Kill(h Handle)
	IsDestroyed(h Handle) bool

	Position(h Handle) (core.Vector3, bool)
	SetLocalScale(h Handle, scale core.Vector3) bool
	InitializeHealth(h Handle, health, maxHealth float64) bool
	SetHealth(h Handle, health float64) bool

	// Turret returns nil when the entity has no turret.
	Turret(h Handle) Turret
	// CancelInvoke cancels a scheduled entity behavior by name.
	CancelInvoke(h Handle, behavior string) bool
	ParticleSystems(h Handle) []ParticleSystem

	// FindEntities returns live entities of kind strictly within radius of center.
	FindEntities(center core.Vector3, radius float64, kind EntityKind) []Handle

	CreateItem(shortName string, amount int) (Item, error)
	DropItem(item Item, position, velocity core.Vector3) (Handle, error)
}

// Scheduler runs deferred work on the simulation thread.
type Scheduler interface {
	// NextTick runs fn once after the current tick completes.
	NextTick(fn func())
	// Once runs fn once after delay. There is no cancellation.
	Once(delay time.Duration, fn func())
}

// Permissions is the permission registry of the server.
type Permissions interface {
	RegisterPermission(name, owner string)
	UserHasPermission(userID, name string) bool
}

// Player is the actor invoking a chat command.
type Player interface {
	UserID() string
	DisplayName() string
	Position() core.Vector3
	// Rotation returns Euler angles in degrees.
	Rotation() core.Vector3
	Reply(message string)
}

// Positioned is implemented by players that may have no place in the world,
// such as a remote console user.
type Positioned interface {
	HasPosition() bool
}

// HasPosition reports whether p stands somewhere in the world. Players that do
// not implement Positioned always do.
func HasPosition(p Player) bool {
	if pp, ok := p.(Positioned); ok {
		return pp.HasPosition()
	}
	return true
}

// CommandFunc handles a chat command.
type CommandFunc func(player Player, command string, args []string)

// Commands registers chat commands. When permission is non-empty the router
// denies callers lacking it before fn runs.
type Commands interface {
	AddChatCommand(name, permission string, fn CommandFunc)
}

// Host bundles the collaborators handed to a plugin on Init.
type Host struct {
	Engine      Engine
	Scheduler   Scheduler
	Permissions Permissions
	Commands    Commands
	ConfigDir   string
	Logger      *slog.Logger
}

// Hooks are the entity callbacks the engine broadcasts.
type Hooks interface {
	OnEntitySpawned(h Handle)
	OnEntityDeath(h Handle, info HitInfo)
}

// Plugin is the full lifecycle surface exposed by a plugin.
type Plugin interface {
	Hooks
	Name() string
	Init(h *Host) error
	OnServerInitialized()
	Unload()
}
