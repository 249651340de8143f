package convert

import (
	"encoding/json"
	"fmt"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/rustmods/custombradley/internal/model"
	"github.com/rustmods/custombradley/pkg/core"
)

// WKTToPosition decodes a WKT point written by PositionToWKT.
func WKTToPosition(wkt string) (core.Vector3, error) {
	g, err := geom.UnmarshalWKT(wkt)
	if err != nil {
		return core.Vector3{}, fmt.Errorf("parse position %q: %w", wkt, err)
	}
	if g.Type() != geom.TypePoint {
		return core.Vector3{}, fmt.Errorf("position %q is a %s, not a point", wkt, g.Type())
	}
	coords, ok := g.AsPoint().Coordinates()
	if !ok {
		return core.Vector3{}, nil
	}
	return core.Vector3{X: coords.XY.X, Y: coords.Z, Z: coords.XY.Y}, nil
}

// positionOrZero is for rows whose position column was written by this package.
func positionOrZero(wkt string) core.Vector3 {
	v, err := WKTToPosition(wkt)
	if err != nil {
		return core.Vector3{}
	}
	return v
}

// SpawnRecordToCore converts a GORM SpawnRecord to a core.SpawnEvent.
func SpawnRecordToCore(r model.SpawnRecord) core.SpawnEvent {
	var rot core.Vector3
	if len(r.Rotation) > 0 {
		_ = json.Unmarshal(r.Rotation, &rot)
	}
	return core.SpawnEvent{
		Time:          r.Time,
		LocationIndex: r.LocationIndex,
		Position:      positionOrZero(r.Position),
		Rotation:      rot,
		EntityID:      r.EntityID,
		Success:       r.Success,
		Error:         r.Error,
	}
}

// DeathRecordToCore converts a GORM DeathRecord to a core.DeathEvent.
func DeathRecordToCore(r model.DeathRecord) core.DeathEvent {
	return core.DeathEvent{
		Time:     r.Time,
		EntityID: r.EntityID,
		Position: positionOrZero(r.Position),
		Killer:   r.Killer,
		Weapon:   r.Weapon,
	}
}

// LootDropRecordToCore converts a GORM LootDropRecord to a core.LootDropEvent.
func LootDropRecordToCore(r model.LootDropRecord) core.LootDropEvent {
	return core.LootDropEvent{
		Time:      r.Time,
		Position:  positionOrZero(r.Position),
		ShortName: r.ShortName,
		Amount:    r.Amount,
		Success:   r.Success,
		Error:     r.Error,
	}
}

// CrateCleanupRecordToCore converts a GORM CrateCleanupRecord to a core.CrateCleanupEvent.
func CrateCleanupRecordToCore(r model.CrateCleanupRecord) core.CrateCleanupEvent {
	return core.CrateCleanupEvent{
		Time:     r.Time,
		Position: positionOrZero(r.Position),
		Removed:  r.Removed,
	}
}

// RemovalRecordToCore converts a GORM RemovalRecord to a core.RemovalEvent.
func RemovalRecordToCore(r model.RemovalRecord) core.RemovalEvent {
	return core.RemovalEvent{
		Time:   r.Time,
		Reason: core.RemovalReason(r.Reason),
		Count:  r.Count,
	}
}
