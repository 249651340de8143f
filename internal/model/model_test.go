package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"Session", &Session{}, "sessions"},
		{"SpawnRecord", &SpawnRecord{}, "spawn_records"},
		{"DeathRecord", &DeathRecord{}, "death_records"},
		{"LootDropRecord", &LootDropRecord{}, "loot_drop_records"},
		{"CrateCleanupRecord", &CrateCleanupRecord{}, "crate_cleanup_records"},
		{"RemovalRecord", &RemovalRecord{}, "removal_records"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestJournalModelsComplete(t *testing.T) {
	assert.Len(t, JournalModels, 6)
}
