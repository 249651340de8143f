// pkg/core/events.go
package core

import "time"

// RemovalReason explains why managed vehicles were killed by the plugin.
type RemovalReason string

const (
	RemovalCommand RemovalReason = "command"
	RemovalRespawn RemovalReason = "respawn"
	RemovalUnload  RemovalReason = "unload"
)

// SpawnEvent records one spawn attempt at a configured location.
type SpawnEvent struct {
	Time          time.Time
	LocationIndex int
	Position      Vector3
	Rotation      Vector3
	EntityID      uint32
	Success       bool
	Error         string
}

// DeathEvent records the death of a managed vehicle.
type DeathEvent struct {
	Time     time.Time
	EntityID uint32
	Position Vector3
	Killer   string
	Weapon   string
}

// LootDropEvent records one custom loot item dropped after a death.
type LootDropEvent struct {
	Time      time.Time
	Position  Vector3
	ShortName string
	Amount    int
	Success   bool
	Error     string
}

// CrateCleanupEvent records default loot containers removed after a death.
type CrateCleanupEvent struct {
	Time     time.Time
	Position Vector3
	Removed  int
}

// RemovalEvent records a bulk kill of managed vehicles.
type RemovalEvent struct {
	Time   time.Time
	Reason RemovalReason
	Count  int
}
