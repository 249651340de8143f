package convert

import (
	"testing"
	"time"

	"github.com/rustmods/custombradley/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionWKT(t *testing.T) {
	tests := []struct {
		name string
		pos  core.Vector3
	}{
		{name: "origin", pos: core.Vector3{}},
		{name: "positive", pos: core.Vector3{X: 120.5, Y: 14, Z: -300.25}},
		{name: "negative", pos: core.Vector3{X: -1, Y: -2, Z: -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wkt := PositionToWKT(tt.pos)
			assert.Contains(t, wkt, "POINT Z")

			got, err := WKTToPosition(wkt)
			require.NoError(t, err)
			assert.Equal(t, tt.pos, got)
		})
	}
}

func TestPositionWKT_HeightIsZ(t *testing.T) {
	assert.Equal(t, "POINT Z (1 3 2)", PositionToWKT(core.Vector3{X: 1, Y: 2, Z: 3}))
}

func TestWKTToPosition_Errors(t *testing.T) {
	_, err := WKTToPosition("not wkt")
	assert.Error(t, err)

	_, err = WKTToPosition("LINESTRING(0 0,1 1)")
	assert.Error(t, err)
}

func TestSpawnEvent_RoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := core.SpawnEvent{
		Time:          at,
		LocationIndex: 2,
		Position:      core.Vector3{X: 10, Y: 1, Z: 20},
		Rotation:      core.Vector3{Y: 90},
		EntityID:      7,
		Success:       true,
	}

	row := SpawnEventToGorm(3, &e)
	assert.Equal(t, uint(3), row.SessionID)
	assert.Equal(t, e, SpawnRecordToCore(row))
}

func TestOtherEvents_RoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pos := core.Vector3{X: 5, Y: 6, Z: 7}

	death := core.DeathEvent{Time: at, EntityID: 4, Position: pos, Killer: "player 7656", Weapon: "rocket.launcher"}
	assert.Equal(t, death, DeathRecordToCore(DeathEventToGorm(1, &death)))

	loot := core.LootDropEvent{Time: at, Position: pos, ShortName: "scrap", Amount: 500, Success: true}
	assert.Equal(t, loot, LootDropRecordToCore(LootDropEventToGorm(1, &loot)))

	crates := core.CrateCleanupEvent{Time: at, Position: pos, Removed: 3}
	assert.Equal(t, crates, CrateCleanupRecordToCore(CrateCleanupEventToGorm(1, &crates)))

	removal := core.RemovalEvent{Time: at, Reason: core.RemovalUnload, Count: 2}
	assert.Equal(t, removal, RemovalRecordToCore(RemovalEventToGorm(1, &removal)))
}
