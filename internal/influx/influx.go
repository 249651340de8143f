package influx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/rustmods/custombradley/internal/config"
	"github.com/rustmods/custombradley/internal/storage"
	"github.com/rustmods/custombradley/pkg/core"
)

// ErrDisabled is returned by Connect when telemetry is turned off.
var ErrDisabled = errors.New("influx telemetry is disabled")

// Measurement names.
const (
	MeasurementSpawn   = "bradley_spawn"
	MeasurementDeath   = "bradley_death"
	MeasurementLoot    = "bradley_loot"
	MeasurementCrates  = "bradley_crates"
	MeasurementRemoval = "bradley_removal"
)

// Manager writes journal events to InfluxDB as points. When the server cannot
// be reached the points go to a gzipped line-protocol backup file instead.
type Manager struct {
	cfg        config.InfluxConfig
	client     influxdb2.Client
	writer     influxdb2_api.WriteAPI
	backup     *gzip.Writer
	backupFile *os.File
	valid      bool
	logger     zerolog.Logger
	backupPath string
	mu         sync.Mutex
}

var _ storage.Backend = (*Manager)(nil)

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		cfg:        cfg,
		logger:     log,
		backupPath: backupPath,
	}
}

// Init connects with a background context.
func (m *Manager) Init() error {
	return m.Connect(context.Background())
}

// Connect establishes a connection to InfluxDB, falling back to the backup file.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.client = influxdb2.NewClientWithOptions(
		m.cfg.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.client.Ping(ctx)
	if err != nil || !running {
		m.valid = false
		if m.backup == nil {
			m.logger.Info().Str("backupPath", m.backupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			file, err := os.OpenFile(m.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %w", err)
			}
			m.backupFile = file
			m.backup = gzip.NewWriter(file)
		}
		m.logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
		return nil
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.valid = true
	m.createWriter()
	m.logger.Info().Str("bucket", m.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

// Valid reports whether points go to the server rather than the backup file.
func (m *Manager) Valid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgName := m.cfg.Org

	// ensure org exists
	influxOrg, err := m.client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// ensure bucket exists with 90 day retention
	if _, err := m.client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err != nil {
		m.logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, m.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 90, // 90 days
		})
		if err != nil {
			m.logger.Error().Err(err).Str("bucket", m.cfg.Bucket).Msg("Error creating bucket")
			return err
		}
	}

	return nil
}

func (m *Manager) createWriter() {
	m.writer = m.client.WriteAPI(m.cfg.Org, m.cfg.Bucket)

	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(m.writer.Errors())
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid {
		m.writer.WritePoint(point)
		return nil
	}
	if m.backup == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := strings.TrimSuffix(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := m.backup.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending points and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writer != nil {
		m.writer.Flush()
	}
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	m.valid = false

	var errs []error
	if m.backup != nil {
		errs = append(errs, m.backup.Close())
		errs = append(errs, m.backupFile.Close())
		m.backup = nil
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

func (m *Manager) RecordSpawn(e *core.SpawnEvent) error {
	return m.WritePoint(SpawnPoint(e))
}

func (m *Manager) RecordDeath(e *core.DeathEvent) error {
	return m.WritePoint(DeathPoint(e))
}

func (m *Manager) RecordLootDrop(e *core.LootDropEvent) error {
	return m.WritePoint(LootPoint(e))
}

func (m *Manager) RecordCrateCleanup(e *core.CrateCleanupEvent) error {
	return m.WritePoint(CratesPoint(e))
}

func (m *Manager) RecordRemoval(e *core.RemovalEvent) error {
	return m.WritePoint(RemovalPoint(e))
}

func addPosition(p *influxdb2_write.Point, v core.Vector3) *influxdb2_write.Point {
	return p.AddField("x", v.X).AddField("y", v.Y).AddField("z", v.Z)
}

// SpawnPoint maps a spawn attempt to a point tagged by location and outcome.
func SpawnPoint(e *core.SpawnEvent) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(MeasurementSpawn).
		AddTag("location", strconv.Itoa(e.LocationIndex)).
		AddTag("success", strconv.FormatBool(e.Success)).
		AddField("entity_id", int64(e.EntityID)).
		SetTime(e.Time)
	if e.Error != "" {
		p.AddField("error", e.Error)
	}
	return addPosition(p, e.Position)
}

// DeathPoint maps a death to a point.
func DeathPoint(e *core.DeathEvent) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(MeasurementDeath).
		AddField("entity_id", int64(e.EntityID)).
		SetTime(e.Time)
	if e.Killer != "" {
		p.AddTag("killer", e.Killer)
	}
	if e.Weapon != "" {
		p.AddTag("weapon", e.Weapon)
	}
	return addPosition(p, e.Position)
}

func LootPoint(e *core.LootDropEvent) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(MeasurementLoot).
		AddTag("item", e.ShortName).
		AddTag("success", strconv.FormatBool(e.Success)).
		AddField("amount", int64(e.Amount)).
		SetTime(e.Time)
	return addPosition(p, e.Position)
}

func CratesPoint(e *core.CrateCleanupEvent) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(MeasurementCrates).
		AddField("removed", int64(e.Removed)).
		SetTime(e.Time)
	return addPosition(p, e.Position)
}

func RemovalPoint(e *core.RemovalEvent) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementRemoval).
		AddTag("reason", string(e.Reason)).
		AddField("count", int64(e.Count)).
		SetTime(e.Time)
}
