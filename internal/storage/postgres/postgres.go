// Package postgres implements the storage.Backend interface on PostgreSQL
// through the GORM backend's queued writer.
package postgres

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rustmods/custombradley/internal/config"
	"github.com/rustmods/custombradley/internal/database"
	"github.com/rustmods/custombradley/internal/storage"
	gormstorage "github.com/rustmods/custombradley/internal/storage/gorm"

	"gorm.io/gorm"
)

// Dependencies holds the dependencies for the PostgreSQL backend.
// DB may be nil, in which case Init connects using Config.
type Dependencies struct {
	DB     *gorm.DB
	Config config.DBConfig
	Logger zerolog.Logger
}

// Backend is the GORM backend bound to a PostgreSQL connection.
type Backend struct {
	*gormstorage.Backend
	deps Dependencies
}

var _ storage.Backend = (*Backend)(nil)

// New creates a new PostgreSQL storage backend. No connection is made until Init.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// Init connects if needed, then migrates and opens a session.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.GetPostgresDB(b.deps.Config, b.deps.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		b.deps.DB = db
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:     b.deps.DB,
		Logger: b.deps.Logger,
	})
	return b.Backend.Init()
}

// Close flushes and closes the session. It is a no-op if Init never succeeded.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}
