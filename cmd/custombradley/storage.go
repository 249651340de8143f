package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustmods/custombradley/internal/config"
	"github.com/rustmods/custombradley/internal/influx"
	"github.com/rustmods/custombradley/internal/storage"
	"github.com/rustmods/custombradley/internal/storage/memory"
	pgstorage "github.com/rustmods/custombradley/internal/storage/postgres"
	sqlitestorage "github.com/rustmods/custombradley/internal/storage/sqlite"
	"github.com/spf13/viper"
)

// openJournal builds the configured journal, adds InfluxDB when enabled and
// wraps the result so writes never block the tick goroutine. A journal that
// fails to start is replaced by a no-op.
func openJournal(storageCfg config.StorageConfig, influxCfg config.InfluxConfig, log zerolog.Logger, logger *slog.Logger, sessionStart time.Time) storage.Backend {
	backend, err := createStorageBackend(storageCfg, log, sessionStart)
	if err != nil {
		logger.Error("Failed to create storage backend", "error", err)
		return storage.Noop{}
	}

	sinks := storage.Fanout{backend}
	if influxCfg.Enabled {
		backupPath := filepath.Join(viper.GetString("logsDir"),
			fmt.Sprintf("%s_influx_%s.lp.gz", ExtensionName, sessionStart.Format("20060102_150405")))
		sinks = append(sinks, influx.NewManager(influxCfg, log.With().Str("component", "influx").Logger(), backupPath))
	}

	async, err := storage.NewAsync(sinks, logger)
	if err != nil {
		logger.Error("Failed to create journal writer", "error", err)
		return storage.Noop{}
	}
	if err := async.Init(); err != nil {
		logger.Error("Failed to initialize storage backend", "error", err)
		_ = async.Close()
		return storage.Noop{}
	}
	logger.Info("Journal initialized", "type", storageCfg.Type, "influx", influxCfg.Enabled)
	return async
}

func createStorageBackend(storageCfg config.StorageConfig, log zerolog.Logger, sessionStart time.Time) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		return pgstorage.New(pgstorage.Dependencies{
			Config: config.GetDBConfig(),
			Logger: log.With().Str("component", "postgres").Logger(),
		}), nil

	case "sqlite":
		sqliteCfg := storageCfg.SQLite
		if sqliteCfg.DumpPath == "" {
			sqliteCfg.DumpPath = filepath.Join(storageCfg.Memory.OutputDir,
				fmt.Sprintf("%s_%s.db", ExtensionName, sessionStart.Format("20060102_150405")))
		}
		backend, err := sqlitestorage.New(sqliteCfg, log.With().Str("component", "sqlite").Logger())
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		return backend, nil

	case "none":
		return storage.Noop{}, nil

	case "memory", "":
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// exportedPath finds the file written by the journal on Close, if any.
func exportedPath(b storage.Backend) string {
	switch j := b.(type) {
	case *storage.Async:
		return exportedPath(j.Inner())
	case storage.Fanout:
		for _, inner := range j {
			if path := exportedPath(inner); path != "" {
				return path
			}
		}
	case storage.Exporter:
		return j.ExportedFilePath()
	}
	return ""
}
