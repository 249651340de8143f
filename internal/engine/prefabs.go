package engine

import (
	"github.com/rustmods/custombradley/pkg/host"
)

// Prefab paths known to the engine.
const (
	BradleyPrefab      = "assets/prefabs/npc/m2bradley/bradleyapc.prefab"
	BradleyCratePrefab = "assets/prefabs/npc/m2bradley/bradley_crate.prefab"
	NormalCratePrefab  = "assets/bundled/prefabs/radtown/crate_normal.prefab"
)

// SpawnScientistsInvoke is the crew reinforcement behavior of the Bradley.
const SpawnScientistsInvoke = "SpawnScientists"

// PrefabDef describes how to build an entity.
type PrefabDef struct {
	Path   string
	Kind   host.EntityKind
	Health float64
	// BulletDamage > 0 attaches a turret.
	BulletDamage float64
	Invokes      []string
	Emitters     []string
	// DeathCrates are spawned around the wreck when the entity dies.
	DeathCrates int
	CratePrefab string
}

// DefaultPrefabs returns the prefab table of a stock server.
func DefaultPrefabs() map[string]PrefabDef {
	return map[string]PrefabDef{
		BradleyPrefab: {
			Path:         BradleyPrefab,
			Kind:         host.KindVehicle,
			Health:       1000,
			BulletDamage: 7,
			Invokes:      []string{SpawnScientistsInvoke},
			Emitters:     []string{"smoke_exhaust", "SmokeTrail", "muzzle_flash", "engine_dust"},
			DeathCrates:  3,
			CratePrefab:  BradleyCratePrefab,
		},
		BradleyCratePrefab: {
			Path:   BradleyCratePrefab,
			Kind:   host.KindLootContainer,
			Health: 100,
		},
		NormalCratePrefab: {
			Path:   NormalCratePrefab,
			Kind:   host.KindLootContainer,
			Health: 100,
		},
	}
}
