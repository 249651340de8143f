package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// JournalModels is a list of all the structs exported here which represent tables in the journal schema
var JournalModels = []interface{}{
	&Session{},
	&SpawnRecord{},
	&DeathRecord{},
	&LootDropRecord{},
	&CrateCleanupRecord{},
	&RemovalRecord{},
}

// Session is one run of the server. Every journal row belongs to a session.
type Session struct {
	ID        uint         `json:"id" gorm:"primarykey;autoIncrement;"`
	UUID      string       `json:"uuid" gorm:"size:36;uniqueIndex"`
	StartedAt time.Time    `json:"startedAt"`
	EndedAt   sql.NullTime `json:"endedAt"`
	Host      string       `json:"host" gorm:"size:255"`
}

func (*Session) TableName() string {
	return "sessions"
}

// SpawnRecord is one spawn attempt at a configured location.
// Positions are WKT points: X and Y are the horizontal world axes, Z is height.
type SpawnRecord struct {
	ID            uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID     uint           `json:"sessionId" gorm:"index:idx_spawn_session_id"`
	Session       Session        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Time          time.Time      `json:"time" gorm:"index:idx_spawn_time"`
	LocationIndex int            `json:"locationIndex"`
	Position      string         `json:"position" gorm:"size:255"`
	Rotation      datatypes.JSON `json:"rotation"`
	EntityID      uint32         `json:"entityId"`
	Success       bool           `json:"success"`
	Error         string         `json:"error" gorm:"size:255"`
}

func (*SpawnRecord) TableName() string {
	return "spawn_records"
}

// DeathRecord is the death of a managed vehicle.
type DeathRecord struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_death_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Time      time.Time `json:"time" gorm:"index:idx_death_time"`
	EntityID  uint32    `json:"entityId"`
	Position  string    `json:"position" gorm:"size:255"`
	Killer    string    `json:"killer" gorm:"size:127"`
	Weapon    string    `json:"weapon" gorm:"size:127"`
}

func (*DeathRecord) TableName() string {
	return "death_records"
}

// LootDropRecord is one custom loot item dropped after a death.
type LootDropRecord struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_loot_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Time      time.Time `json:"time"`
	Position  string    `json:"position" gorm:"size:255"`
	ShortName string    `json:"shortName" gorm:"size:127;index:idx_loot_short_name"`
	Amount    int       `json:"amount"`
	Success   bool      `json:"success"`
	Error     string    `json:"error" gorm:"size:255"`
}

func (*LootDropRecord) TableName() string {
	return "loot_drop_records"
}

// CrateCleanupRecord counts default loot containers removed after a death.
type CrateCleanupRecord struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_crate_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Time      time.Time `json:"time"`
	Position  string    `json:"position" gorm:"size:255"`
	Removed   int       `json:"removed"`
}

func (*CrateCleanupRecord) TableName() string {
	return "crate_cleanup_records"
}

// RemovalRecord is a bulk kill of managed vehicles.
type RemovalRecord struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_removal_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Time      time.Time `json:"time"`
	Reason    string    `json:"reason" gorm:"size:16"`
	Count     int       `json:"count"`
}

func (*RemovalRecord) TableName() string {
	return "removal_records"
}
