// internal/storage/memory/export.go
package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rustmods/custombradley/pkg/core"
)

// JournalExport is the root JSON structure of an exported session.
type JournalExport struct {
	Session       string             `json:"session"`
	StartedAt     time.Time          `json:"startedAt"`
	EndedAt       time.Time          `json:"endedAt"`
	Spawns        []SpawnJSON        `json:"spawns"`
	Deaths        []DeathJSON        `json:"deaths"`
	LootDrops     []LootDropJSON     `json:"lootDrops"`
	CrateCleanups []CrateCleanupJSON `json:"crateCleanups"`
	Removals      []RemovalJSON      `json:"removals"`
}

// Positions are [x, y, z] in world coordinates.

type SpawnJSON struct {
	Time          time.Time  `json:"time"`
	LocationIndex int        `json:"locationIndex"`
	Position      [3]float64 `json:"position"`
	Rotation      [3]float64 `json:"rotation"`
	EntityID      uint32     `json:"entityId,omitempty"`
	Success       bool       `json:"success"`
	Error         string     `json:"error,omitempty"`
}

type DeathJSON struct {
	Time     time.Time  `json:"time"`
	EntityID uint32     `json:"entityId"`
	Position [3]float64 `json:"position"`
	Killer   string     `json:"killer,omitempty"`
	Weapon   string     `json:"weapon,omitempty"`
}

type LootDropJSON struct {
	Time      time.Time  `json:"time"`
	Position  [3]float64 `json:"position"`
	ShortName string     `json:"shortName"`
	Amount    int        `json:"amount"`
	Success   bool       `json:"success"`
	Error     string     `json:"error,omitempty"`
}

type CrateCleanupJSON struct {
	Time     time.Time  `json:"time"`
	Position [3]float64 `json:"position"`
	Removed  int        `json:"removed"`
}

type RemovalJSON struct {
	Time   time.Time `json:"time"`
	Reason string    `json:"reason"`
	Count  int       `json:"count"`
}

func vec(v core.Vector3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// exportJSON writes the session to a (optionally gzipped) JSON file.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	timestamp := b.started.UTC().Format("20060102_150405")
	filename := fmt.Sprintf("journal_%s_%s.json", timestamp, strings.SplitN(b.session, "-", 2)[0])
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := writeExport(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() JournalExport {
	export := JournalExport{
		Session:       b.session,
		StartedAt:     b.started,
		EndedAt:       b.now(),
		Spawns:        make([]SpawnJSON, 0, len(b.spawns)),
		Deaths:        make([]DeathJSON, 0, len(b.deaths)),
		LootDrops:     make([]LootDropJSON, 0, len(b.loot)),
		CrateCleanups: make([]CrateCleanupJSON, 0, len(b.crates)),
		Removals:      make([]RemovalJSON, 0, len(b.removals)),
	}

	for _, e := range b.spawns {
		export.Spawns = append(export.Spawns, SpawnJSON{
			Time:          e.Time,
			LocationIndex: e.LocationIndex,
			Position:      vec(e.Position),
			Rotation:      vec(e.Rotation),
			EntityID:      e.EntityID,
			Success:       e.Success,
			Error:         e.Error,
		})
	}
	for _, e := range b.deaths {
		export.Deaths = append(export.Deaths, DeathJSON{
			Time:     e.Time,
			EntityID: e.EntityID,
			Position: vec(e.Position),
			Killer:   e.Killer,
			Weapon:   e.Weapon,
		})
	}
	for _, e := range b.loot {
		export.LootDrops = append(export.LootDrops, LootDropJSON{
			Time:      e.Time,
			Position:  vec(e.Position),
			ShortName: e.ShortName,
			Amount:    e.Amount,
			Success:   e.Success,
			Error:     e.Error,
		})
	}
	for _, e := range b.crates {
		export.CrateCleanups = append(export.CrateCleanups, CrateCleanupJSON{
			Time:     e.Time,
			Position: vec(e.Position),
			Removed:  e.Removed,
		})
	}
	for _, e := range b.removals {
		export.Removals = append(export.Removals, RemovalJSON{
			Time:   e.Time,
			Reason: string(e.Reason),
			Count:  e.Count,
		})
	}

	return export
}

func writeExport(path string, export JournalExport, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(f)
		w = gz
	}

	enc := json.NewEncoder(w)
	if !compress {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(export); err != nil {
		return fmt.Errorf("failed to encode journal: %w", err)
	}

	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("failed to finish gzip stream: %w", err)
		}
	}
	return f.Close()
}

// ReadExport loads an exported journal, transparently decompressing .gz files.
func ReadExport(path string) (*JournalExport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var export JournalExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode journal: %w", err)
	}
	return &export, nil
}
