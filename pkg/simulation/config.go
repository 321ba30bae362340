package simulation

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tochemey/goakt/v3/log"
	"gopkg.in/yaml.v3"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/spatial"
)

//go:embed flock.schema.json
var schemaJSON string

const schemaURL = "flock.schema.json"

// ErrInvalidConfig wraps every failure of Config.Validate.
var ErrInvalidConfig = errors.New("invalid config")

// SpeciesEntry is a species together with the id birds use to reference it.
type SpeciesEntry struct {
	ID               string `json:"id" yaml:"id"`
	behavior.Species `yaml:",inline"`
}

// TelemetryConfig controls the CSV stats output. An empty Path disables it.
type TelemetryConfig struct {
	Path  string `json:"path" yaml:"path"`
	Every int    `json:"every" yaml:"every"` // record one row every N ticks
}

type Config struct {
	// World Dimensions, centered on the origin
	WorldWidth  float64 `json:"worldWidth" yaml:"world_width"`
	WorldHeight float64 `json:"worldHeight" yaml:"world_height"`
	TimeStep    float64 `json:"timeStep" yaml:"time_step"`

	// Population
	Capacity     int    `json:"capacity" yaml:"capacity"`
	InitialBirds int    `json:"initialBirds" yaml:"initial_birds"`
	Eviction     string `json:"eviction" yaml:"eviction"`
	Seed         uint64 `json:"seed" yaml:"seed"`

	// Engine
	Index        string  `json:"index" yaml:"index"`
	GridCellSize float64 `json:"gridCellSize" yaml:"grid_cell_size"`
	Integrator   string  `json:"integrator" yaml:"integrator"`
	Layout       string  `json:"layout" yaml:"layout"`

	LogLevel  string          `json:"logLevel" yaml:"log_level"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`

	Species []SpeciesEntry `json:"species" yaml:"species"`
}

// BlackSheepSpecies is the rare, bigger bird that shows up about once in a hundred.
func BlackSheepSpecies() behavior.Species {
	s := behavior.DefaultSpecies()
	s.BirdSize = 15
	s.Color = behavior.Color{R: 0.05, G: 0.05, B: 0.08}
	s.Weight = 0.01
	return s
}

func DefaultConfig() *Config {
	return &Config{
		WorldWidth:   1280,
		WorldHeight:  720,
		TimeStep:     1,
		Capacity:     2000,
		InitialBirds: 400,
		Eviction:     flock.EvictOldest.String(),
		Seed:         1,
		Index:        spatial.KindKDTree.String(),
		GridCellSize: 200,
		Integrator:   behavior.SemiImplicit.String(),
		Layout:       flock.LineLoop.String(),
		LogLevel:     "info",
		Telemetry:    TelemetryConfig{Every: 60},
		Species: []SpeciesEntry{
			{ID: "default", Species: behavior.DefaultSpecies()},
			{ID: "black_sheep", Species: BlackSheepSpecies()},
		},
	}
}

// LoadConfig reads a JSON or YAML file (by extension) over DefaultConfig,
// validates the result against the embedded JSON schema and then runs
// Validate for the checks a schema cannot express.
func LoadConfig(configFile string) (*Config, error) {
	// 1. Read Config File
	b, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 2. Decode over the defaults. A species list in the file replaces the
	// default one as a whole instead of being merged into it element-wise.
	cfg := DefaultConfig()
	defaultSpecies := cfg.Species
	cfg.Species = nil
	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config yaml: %w", err)
		}
	case ".json", "":
		if err := json.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(configFile))
	}
	if cfg.Species == nil {
		cfg.Species = defaultSpecies
	}

	// 3. Schema. It sees the merged config, so keys missing from the file
	// already hold their defaults and the schema lists no required keys.
	if err := cfg.validateSchema(); err != nil {
		return nil, err
	}

	// 4. Cross-field checks
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validateSchema() error {
	sch, err := jsonschema.CompileString(schemaURL, schemaJSON)
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}
	// the schema validator wants generic JSON values
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("failed to decode config json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Validate checks what the schema cannot: unique species ids and enum
// strings the engine understands.
func (c *Config) Validate() error {
	if c.WorldWidth <= 0 || c.WorldHeight <= 0 {
		return fmt.Errorf("%w: world must have a positive size, got %vx%v", ErrInvalidConfig, c.WorldWidth, c.WorldHeight)
	}
	if c.TimeStep <= 0 {
		return fmt.Errorf("%w: timeStep must be > 0, got %v", ErrInvalidConfig, c.TimeStep)
	}
	if c.InitialBirds < 0 {
		return fmt.Errorf("%w: initialBirds must be >= 0, got %d", ErrInvalidConfig, c.InitialBirds)
	}
	if _, err := c.FlockOptions(nil); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if len(c.Species) == 0 {
		return fmt.Errorf("%w: at least one species is required", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Species))
	for _, s := range c.Species {
		if s.ID == "" {
			return fmt.Errorf("%w: species without id", ErrInvalidConfig)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate species id %q", ErrInvalidConfig, s.ID)
		}
		seen[s.ID] = true
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%w: species %q: %w", ErrInvalidConfig, s.ID, err)
		}
	}
	return nil
}

// FlockOptions translates the engine settings. logger may be nil.
func (c *Config) FlockOptions(logger log.Logger) (flock.Options, error) {
	eviction, err := flock.ParseEvictionPolicy(c.Eviction)
	if err != nil {
		return flock.Options{}, err
	}
	kind, err := spatial.ParseKind(c.Index)
	if err != nil {
		return flock.Options{}, err
	}
	integ, err := behavior.ParseIntegrator(c.Integrator)
	if err != nil {
		return flock.Options{}, err
	}
	layout, err := flock.ParseLayout(c.Layout)
	if err != nil {
		return flock.Options{}, err
	}
	if c.Capacity < 1 {
		return flock.Options{}, fmt.Errorf("%w: got %d", flock.ErrInvalidCapacity, c.Capacity)
	}
	return flock.Options{
		Capacity:     c.Capacity,
		Eviction:     eviction,
		Seed:         c.Seed,
		Index:        kind,
		GridCellSize: c.GridCellSize,
		Integrator:   integ,
		Layout:       layout,
		Logger:       logger,
	}, nil
}

// WriteYAML saves the effective configuration, e.g. next to a telemetry file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
