// Package convert maps journal events to GORM rows and back.
package convert

import (
	"encoding/json"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/rustmods/custombradley/internal/model"
	"github.com/rustmods/custombradley/pkg/core"
	"gorm.io/datatypes"
)

// vectorToPoint maps engine world space (Y up) onto a 3D point with Z as height.
func vectorToPoint(v core.Vector3) geom.Point {
	coords := geom.Coordinates{XY: geom.XY{X: v.X, Y: v.Z}, Z: v.Y, Type: geom.DimXYZ}
	return geom.NewPoint(coords)
}

// PositionToWKT encodes a world position as WKT.
func PositionToWKT(v core.Vector3) string {
	return vectorToPoint(v).AsText()
}

func rotationJSON(v core.Vector3) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(b)
}

// SpawnEventToGorm converts a core.SpawnEvent to a GORM SpawnRecord.
func SpawnEventToGorm(sessionID uint, e *core.SpawnEvent) model.SpawnRecord {
	return model.SpawnRecord{
		SessionID:     sessionID,
		Time:          e.Time,
		LocationIndex: e.LocationIndex,
		Position:      PositionToWKT(e.Position),
		Rotation:      rotationJSON(e.Rotation),
		EntityID:      e.EntityID,
		Success:       e.Success,
		Error:         e.Error,
	}
}

// DeathEventToGorm converts a core.DeathEvent to a GORM DeathRecord.
func DeathEventToGorm(sessionID uint, e *core.DeathEvent) model.DeathRecord {
	return model.DeathRecord{
		SessionID: sessionID,
		Time:      e.Time,
		EntityID:  e.EntityID,
		Position:  PositionToWKT(e.Position),
		Killer:    e.Killer,
		Weapon:    e.Weapon,
	}
}

// LootDropEventToGorm converts a core.LootDropEvent to a GORM LootDropRecord.
func LootDropEventToGorm(sessionID uint, e *core.LootDropEvent) model.LootDropRecord {
	return model.LootDropRecord{
		SessionID: sessionID,
		Time:      e.Time,
		Position:  PositionToWKT(e.Position),
		ShortName: e.ShortName,
		Amount:    e.Amount,
		Success:   e.Success,
		Error:     e.Error,
	}
}

// CrateCleanupEventToGorm converts a core.CrateCleanupEvent to a GORM CrateCleanupRecord.
func CrateCleanupEventToGorm(sessionID uint, e *core.CrateCleanupEvent) model.CrateCleanupRecord {
	return model.CrateCleanupRecord{
		SessionID: sessionID,
		Time:      e.Time,
		Position:  PositionToWKT(e.Position),
		Removed:   e.Removed,
	}
}

// RemovalEventToGorm converts a core.RemovalEvent to a GORM RemovalRecord.
func RemovalEventToGorm(sessionID uint, e *core.RemovalEvent) model.RemovalRecord {
	return model.RemovalRecord{
		SessionID: sessionID,
		Time:      e.Time,
		Reason:    string(e.Reason),
		Count:     e.Count,
	}
}
