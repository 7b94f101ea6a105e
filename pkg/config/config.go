package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/scamshield/syndicate/pkg/force"
	"github.com/scamshield/syndicate/pkg/render"
)

// EnvAPIURL overrides backend.url when set.
const EnvAPIURL = "SYNDICATE_API_URL"

// Config represents a configuration file (.syndicate/config.yaml)
type Config struct {
	Backend     BackendConfig     `yaml:"backend"`
	Canvas      CanvasConfig      `yaml:"canvas"`
	Physics     force.Params      `yaml:"physics"`
	Interaction InteractionConfig `yaml:"interaction"`
	Loop        LoopConfig        `yaml:"loop"`
	Render      render.Style      `yaml:"render"`
	Store       StoreConfig       `yaml:"store"`
	Log         LogConfig         `yaml:"log"`
}

// BackendConfig locates the intelligence API
type BackendConfig struct {
	// URL is the API base URL, without the /api prefix
	URL string `yaml:"url"`

	// Token is a static bearer token; the session store's token wins when set
	Token string `yaml:"token,omitempty"`

	// Timeout bounds each request (default: 30s)
	Timeout time.Duration `yaml:"timeout"`

	// GraphPath is the graph endpoint (default: /api/intelligence/graph)
	GraphPath string `yaml:"graph_path"`
}

// CanvasConfig is the logical drawing surface size
type CanvasConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Size returns the canvas as a simulation size.
func (c CanvasConfig) Size() force.Size {
	return force.Size{Width: c.Width, Height: c.Height}
}

// InteractionConfig tunes pointer picking
type InteractionConfig struct {
	HitRadius float64 `yaml:"hit_radius"`
}

// LoopConfig tunes the frame loop
type LoopConfig struct {
	FPS int `yaml:"fps"`
}

// StoreConfig locates the session database
type StoreConfig struct {
	// Path to the sqlite file (default: ~/.syndicate/session.db)
	Path string `yaml:"path"`
}

// LogConfig controls logging
type LogConfig struct {
	// Level is one of debug, info, warn, error (default: info)
	Level string `yaml:"level"`

	// File receives logs while the terminal UI owns stdout
	// (default: ~/.syndicate/syndicate.log)
	File string `yaml:"file"`
}

// Default backend settings.
const (
	DefaultBackendURL = "http://localhost:8000"
	DefaultGraphPath  = "/api/intelligence/graph"
	DefaultTimeout    = 30 * time.Second
)

// DefaultConfig returns the configuration used when no file is found
func DefaultConfig() Config {
	dir := DefaultDir()
	return Config{
		Backend: BackendConfig{
			URL:       DefaultBackendURL,
			Timeout:   DefaultTimeout,
			GraphPath: DefaultGraphPath,
		},
		Canvas: CanvasConfig{
			Width:  force.DefaultSize.Width,
			Height: force.DefaultSize.Height,
		},
		Physics:     force.DefaultParams(),
		Interaction: InteractionConfig{HitRadius: force.DefaultHitRadius},
		Loop:        LoopConfig{FPS: 60},
		Render:      render.DefaultStyle(),
		Store:       StoreConfig{Path: filepath.Join(dir, "session.db")},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "syndicate.log"),
		},
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Newf("backend.url: %q is not an absolute URL", c.Backend.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Newf("backend.url: unsupported scheme %q", u.Scheme)
	}
	if c.Backend.Timeout <= 0 {
		return errors.New("backend.timeout must be positive")
	}
	if !strings.HasPrefix(c.Backend.GraphPath, "/") {
		return errors.Newf("backend.graph_path: %q must start with /", c.Backend.GraphPath)
	}

	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return errors.Newf("canvas: dimensions must be positive, got %gx%g", c.Canvas.Width, c.Canvas.Height)
	}

	p := c.Physics
	if p.Damping <= 0 || p.Damping > 1 {
		return errors.Newf("physics.damping: %g outside (0, 1]", p.Damping)
	}
	for name, v := range map[string]float64{
		"repulsion":        p.Repulsion,
		"repulsion_cutoff": p.RepulsionCutoff,
		"repulsion_scale":  p.RepulsionScale,
		"spring_length":    p.SpringLength,
		"spring_stiffness": p.SpringStiffness,
		"gravity":          p.Gravity,
		"max_speed":        p.MaxSpeed,
	} {
		if v < 0 {
			return errors.Newf("physics.%s: must not be negative, got %g", name, v)
		}
	}

	if c.Interaction.HitRadius <= 0 {
		return errors.New("interaction.hit_radius must be positive")
	}
	if c.Loop.FPS <= 0 {
		return errors.New("loop.fps must be positive")
	}
	if err := c.Render.Validate(); err != nil {
		return errors.Wrap(err, "render")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf("log.level: unknown level %q", c.Log.Level)
	}
	return nil
}

// ApplyEnv applies environment overrides
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.Backend.URL = v
	}
}

// LoadConfig loads a configuration from a file. Defaults are applied first
// and the file is decoded over them.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	config.Backend.URL = strings.TrimRight(config.Backend.URL, "/")
	config.Store.Path = expandHome(config.Store.Path)
	config.Log.File = expandHome(config.Log.File)
	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &config, nil
}

// Load resolves the configuration: the explicit path when given, otherwise
// the nearest .syndicate/config.yaml above the working directory, otherwise
// the defaults. The returned path is empty when defaults were used.
func Load(explicit string) (*Config, string, error) {
	path := explicit
	if path == "" {
		found, err := FindConfig("")
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, "", err
		}
		path = found
	}
	if path == "" {
		config := DefaultConfig()
		config.ApplyEnv()
		if err := config.Validate(); err != nil {
			return nil, "", errors.Wrap(err, "invalid config")
		}
		return &config, "", nil
	}
	config, err := LoadConfig(path)
	if err != nil {
		return nil, path, err
	}
	return config, path, nil
}

// Save writes the configuration as YAML, creating the parent directory.
func Save(path string, c *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "writing config")
	}
	return nil
}
