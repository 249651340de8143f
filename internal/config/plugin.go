package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rustmods/custombradley/pkg/core"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
)

//go:embed plugin.schema.json
var pluginSchema string

// ErrInvalidPluginConfig is returned by Validate for documents that cannot be used.
var ErrInvalidPluginConfig = errors.New("invalid plugin configuration")

// Plugin is the administrator-editable plugin configuration.
type Plugin struct {
	BradleyScale       float64              `json:"BradleyScale" mapstructure:"BradleyScale"`
	BradleyHealth      float64              `json:"BradleyHealth" mapstructure:"BradleyHealth"`
	BradleyDamage      float64              `json:"BradleyDamage" mapstructure:"BradleyDamage"`
	DisableNPCs        bool                 `json:"DisableNPCs" mapstructure:"DisableNPCs"`
	DisableSmoke       bool                 `json:"DisableSmoke" mapstructure:"DisableSmoke"`
	SpawnLocations     []core.SpawnLocation `json:"SpawnLocations" mapstructure:"SpawnLocations"`
	DropItems          []core.DropItem      `json:"DropItems" mapstructure:"DropItems"`
	SpawnOnServerStart bool                 `json:"SpawnOnServerStart" mapstructure:"SpawnOnServerStart"`
}

// DefaultPlugin returns the stock configuration: one location at the origin and
// a refined metal plus scrap drop.
func DefaultPlugin() Plugin {
	return Plugin{
		BradleyScale:  1.0,
		BradleyHealth: 1000,
		BradleyDamage: 10,
		DisableNPCs:   true,
		DisableSmoke:  true,
		SpawnLocations: []core.SpawnLocation{
			{Position: core.Vector3{}, Rotation: core.Vector3{}},
		},
		DropItems: []core.DropItem{
			{ShortName: "metal.refined", Amount: 100},
			{ShortName: "scrap", Amount: 500},
		},
		SpawnOnServerStart: true,
	}
}

// Store persists a Plugin document as <dir>/<name>.json. A document that fails
// to parse or validate is preserved as <name>.jsonError and replaced by defaults.
type Store struct {
	dir    string
	name   string
	schema *jsonschema.Schema
	logger *slog.Logger
}

// NewStore creates a store for the named plugin.
func NewStore(dir, name string, logger *slog.Logger) (*Store, error) {
	schema, err := compilePluginSchema()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, name: name, schema: schema, logger: logger}, nil
}

func compilePluginSchema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.CompileString("plugin.schema.json", pluginSchema)
	if err != nil {
		return nil, fmt.Errorf("compile plugin schema: %w", err)
	}
	return schema, nil
}

// Path returns the location of the configuration document.
func (s *Store) Path() string {
	return filepath.Join(s.dir, s.name+".json")
}

// ErrorPath returns where a malformed document is preserved.
func (s *Store) ErrorPath() string {
	return filepath.Join(s.dir, s.name+".jsonError")
}

// Load reads the configuration. A missing document yields defaults. A malformed
// one is moved aside with a warning and replaced by defaults. The result is
// always written back. Only I/O failures are returned.
func (s *Store) Load() (Plugin, error) {
	data, err := os.ReadFile(s.Path())
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.logger.Info("No configuration found, creating default", "path", s.Path())
		cfg := DefaultPlugin()
		return cfg, s.Save(cfg)
	case err != nil:
		return Plugin{}, fmt.Errorf("read plugin config: %w", err)
	}

	cfg, err := s.decode(data)
	if err != nil {
		if werr := os.WriteFile(s.ErrorPath(), data, 0644); werr != nil {
			return Plugin{}, fmt.Errorf("preserve malformed plugin config: %w", werr)
		}
		s.logger.Warn("The configuration file contains an error and has been replaced with a default config. "+
			"The error configuration file was saved in the .jsonError extension",
			"path", s.ErrorPath(), "error", err)
		cfg = DefaultPlugin()
	}

	return cfg, s.Save(cfg)
}

// Validate checks a raw document without loading it.
func (s *Store) Validate(data []byte) error {
	_, err := s.Parse(data)
	return err
}

// Parse decodes a raw document with defaults filled in, without touching disk.
func (s *Store) Parse(data []byte) (Plugin, error) {
	return s.decode(data)
}

func (s *Store) decode(data []byte) (Plugin, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Plugin{}, fmt.Errorf("%w: %v", ErrInvalidPluginConfig, err)
	}
	if doc == nil {
		return Plugin{}, fmt.Errorf("%w: empty document", ErrInvalidPluginConfig)
	}
	if err := s.schema.Validate(doc); err != nil {
		return Plugin{}, fmt.Errorf("%w: %v", ErrInvalidPluginConfig, err)
	}

	v := viper.New()
	v.SetConfigType("json")
	setPluginDefaults(v)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return Plugin{}, fmt.Errorf("%w: %v", ErrInvalidPluginConfig, err)
	}

	var cfg Plugin
	if err := v.Unmarshal(&cfg); err != nil {
		return Plugin{}, fmt.Errorf("%w: %v", ErrInvalidPluginConfig, err)
	}
	return cfg, nil
}

// setPluginDefaults fills keys the document leaves out.
func setPluginDefaults(v *viper.Viper) {
	d := DefaultPlugin()
	v.SetDefault("BradleyScale", d.BradleyScale)
	v.SetDefault("BradleyHealth", d.BradleyHealth)
	v.SetDefault("BradleyDamage", d.BradleyDamage)
	v.SetDefault("DisableNPCs", d.DisableNPCs)
	v.SetDefault("DisableSmoke", d.DisableSmoke)
	v.SetDefault("SpawnLocations", d.SpawnLocations)
	v.SetDefault("DropItems", d.DropItems)
	v.SetDefault("SpawnOnServerStart", d.SpawnOnServerStart)
}

// Save writes the configuration, replacing the document atomically.
func (s *Store) Save(cfg Plugin) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plugin config: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, strings.ToLower(s.name)+".*.tmp")
	if err != nil {
		return fmt.Errorf("save plugin config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("save plugin config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save plugin config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		return fmt.Errorf("save plugin config: %w", err)
	}
	return nil
}
