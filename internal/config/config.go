// Package config loads run configuration from YAML. Documents are checked
// against an embedded JSON schema before decoding; keys that are absent keep
// their defaults.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/talgya/stormfield/internal/agents"
	"github.com/talgya/stormfield/internal/weather"
	"github.com/talgya/stormfield/internal/world"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// AdminKeyEnv names the environment variable holding the admin bearer token.
const AdminKeyEnv = "STORMFIELD_ADMIN_KEY"

//go:embed schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("stormfield.schema.json", schemaJSON)

// Config is the full run configuration.
type Config struct {
	Seed     int64    `yaml:"seed"` // 0 = random
	LogLevel string   `yaml:"log_level"`
	Team     []string `yaml:"team"` // Variant names in registration order

	World   WorldConfig   `yaml:"world"`
	Agents  AgentConfig   `yaml:"agents"`
	Storm   StormConfig   `yaml:"storm"`
	Engine  EngineConfig  `yaml:"engine"`
	API     APIConfig     `yaml:"api"`
	Archive ArchiveConfig `yaml:"archive"`
}

type WorldConfig struct {
	Width             int             `yaml:"width"`
	Height            int             `yaml:"height"`
	Base              *world.Position `yaml:"base,omitempty"` // nil = centre
	Resources         map[string]int  `yaml:"resources"`
	Values            map[string]int  `yaml:"values"`
	RequiredAgents    map[string]int  `yaml:"required_agents"`
	ObstacleThreshold float64         `yaml:"obstacle_threshold"`
	NoiseScale        float64         `yaml:"noise_scale"`
	BaseClearance     int             `yaml:"base_clearance"`
}

type AgentConfig struct {
	SightRadius    int `yaml:"sight_radius"`
	PartnerTimeout int `yaml:"partner_timeout_ticks"`
}

type StormConfig struct {
	CalmTicks  int `yaml:"calm_ticks"`  // <= 0 disables storms
	StormTicks int `yaml:"storm_ticks"` // <= 0 disables storms
}

type EngineConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	MaxTicks     uint64        `yaml:"max_ticks"` // 0 = until stopped
	ReportEvery  uint64        `yaml:"report_every"`
	StopWhenDone bool          `yaml:"stop_when_done"`
}

type APIConfig struct {
	Addr           string `yaml:"addr"` // Empty = API disabled
	MaxStreamConns int    `yaml:"max_stream_conns"`
	AdminKey       string `yaml:"-"` // From STORMFIELD_ADMIN_KEY only
}

type ArchiveConfig struct {
	Path     string `yaml:"path"`      // Empty = no run archive
	TraceDir string `yaml:"trace_dir"` // Empty = no tick trace
}

// Default returns the classic setup: a 40×30 field with the base in the
// centre, 10 crystals, 10 metal, 5 structures, one agent of each variant, and
// a 10-tick storm every 50 ticks.
func Default() Config {
	gen := world.DefaultGenConfig()
	team := make([]string, 0, len(agents.AllVariants))
	for _, v := range agents.AllVariants {
		team = append(team, v.String())
	}
	return Config{
		LogLevel: "info",
		Team:     team,
		World: WorldConfig{
			Width:             gen.Width,
			Height:            gen.Height,
			Resources:         kindMap(gen.Counts),
			Values:            kindMap(gen.Catalog.Values),
			RequiredAgents:    kindMap(gen.Catalog.Crews),
			ObstacleThreshold: gen.ObstacleThreshold,
			NoiseScale:        gen.NoiseScale,
			BaseClearance:     gen.BaseClearance,
		},
		Agents: AgentConfig{
			SightRadius:    agents.DefaultSightRadius,
			PartnerTimeout: agents.DefaultPartnerTimeout,
		},
		Storm: StormConfig{
			CalmTicks:  weather.DefaultCalmTicks,
			StormTicks: weather.DefaultStormTicks,
		},
		Engine: EngineConfig{
			TickInterval: 100 * time.Millisecond,
			ReportEvery:  100,
			StopWhenDone: true,
		},
		API: APIConfig{
			Addr:           "127.0.0.1:8080",
			MaxStreamConns: 4,
		},
		Archive: ArchiveConfig{
			Path:     "data/stormfield.db",
			TraceDir: "data/traces",
		},
	}
}

func kindMap(m map[world.ResourceKind]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k.String()] = v
	}
	return out
}

// Load reads a YAML config file. An empty path returns the defaults. The
// admin key is always taken from the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.API.AdminKey = os.Getenv(AdminKeyEnv)
	return cfg, nil
}

// Parse validates a YAML document against the schema and decodes it over cfg.
func Parse(b []byte, cfg *Config) error {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if doc != nil {
		// Round-trip through JSON so the validator sees plain JSON types.
		raw, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		if err := schema.Validate(generic); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return cfg.Validate()
}

// Validate checks the constraints the schema cannot express.
func (c *Config) Validate() error {
	if c.World.Base != nil {
		b := world.Bounds{Width: c.World.Width, Height: c.World.Height}
		if !b.Contains(*c.World.Base) {
			return fmt.Errorf("%w: base %s outside %dx%d world", ErrInvalid, *c.World.Base, c.World.Width, c.World.Height)
		}
	}
	if _, err := c.Variants(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(c.Team) == 0 {
		return fmt.Errorf("%w: team is empty", ErrInvalid)
	}
	total := 0
	for _, n := range c.World.Resources {
		total += n
	}
	if total >= c.World.Width*c.World.Height {
		return fmt.Errorf("%w: %d resources do not fit a %dx%d world", ErrInvalid, total, c.World.Width, c.World.Height)
	}
	return nil
}

// Variants parses the team list.
func (c *Config) Variants() ([]agents.Variant, error) {
	out := make([]agents.Variant, 0, len(c.Team))
	for _, name := range c.Team {
		v, err := agents.ParseVariant(name)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// BasePosition returns the configured base, or the centre cell.
func (c *Config) BasePosition() world.Position {
	if c.World.Base != nil {
		return *c.World.Base
	}
	return world.Position{X: c.World.Width / 2, Y: c.World.Height / 2}
}

// GenConfig converts the world section into generator parameters.
func (c *Config) GenConfig() (world.GenConfig, error) {
	gen := world.DefaultGenConfig()
	gen.Width = c.World.Width
	gen.Height = c.World.Height
	gen.Base = c.BasePosition()
	gen.Seed = c.Seed
	gen.ObstacleThreshold = c.World.ObstacleThreshold
	gen.NoiseScale = c.World.NoiseScale
	gen.BaseClearance = c.World.BaseClearance

	var err error
	if gen.Counts, err = parseKindMap(c.World.Resources); err != nil {
		return gen, err
	}
	if gen.Catalog.Values, err = parseKindMap(c.World.Values); err != nil {
		return gen, err
	}
	if gen.Catalog.Crews, err = parseKindMap(c.World.RequiredAgents); err != nil {
		return gen, err
	}
	return gen, nil
}

func parseKindMap(m map[string]int) (map[world.ResourceKind]int, error) {
	out := make(map[world.ResourceKind]int, len(m))
	for name, v := range m {
		k, err := world.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		out[k] = v
	}
	return out, nil
}

// SlogLevel maps log_level onto a slog level (info when unset).
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
