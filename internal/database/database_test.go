package database

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rustmods/custombradley/internal/config"
	"github.com/rustmods/custombradley/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nopLog = zerolog.New(io.Discard)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.DBConfig{Host: "db", Port: "5432", Username: "u", Password: "p", Database: "journal"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=journal sslmode=disable", dsn)
}

func TestGetSqliteDB_MemoryDatabasesAreIsolated(t *testing.T) {
	a, err := GetSqliteDB("", nopLog)
	require.NoError(t, err)
	b, err := GetSqliteDB("", nopLog)
	require.NoError(t, err)

	require.NoError(t, Migrate(a, nopLog))
	require.NoError(t, a.Create(&model.Session{UUID: "a"}).Error)

	assert.True(t, a.Migrator().HasTable(&model.Session{}))
	assert.False(t, b.Migrator().HasTable(&model.Session{}))
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := GetSqliteDB("", nopLog)
	require.NoError(t, err)
	require.NoError(t, Migrate(db, nopLog))
	require.NoError(t, db.Create(&model.Session{UUID: "dumped"}).Error)

	path := filepath.Join(t.TempDir(), "journal.db")
	require.NoError(t, DumpMemoryDBToDisk(db, path))
	// a second dump replaces the first
	require.NoError(t, DumpMemoryDBToDisk(db, path))

	disk, err := GetSqliteDB(path, nopLog)
	require.NoError(t, err)
	var s model.Session
	require.NoError(t, disk.First(&s).Error)
	assert.Equal(t, "dumped", s.UUID)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	db, err := GetSqliteDB("", nopLog)
	require.NoError(t, err)
	assert.Error(t, DumpMemoryDBToDisk(db, ""))
}
