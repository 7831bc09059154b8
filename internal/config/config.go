package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Driver  DriverConfig  `yaml:"driver"`
	Video   VideoConfig   `yaml:"video"`
	Desync  DesyncConfig  `yaml:"desync"`
	Headset HeadsetConfig `yaml:"headset"`
	Logging LogConfig     `yaml:"logging"`
	Journal JournalConfig `yaml:"journal"`
	Status  StatusConfig  `yaml:"status"`
	Mock    MockConfig    `yaml:"mock"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AuthToken      string   `yaml:"auth_token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DriverConfig struct {
	// PollInterval is how long the dispatch loop sleeps when the session
	// has no pending event. It bounds dispatch latency and shutdown latency.
	PollInterval time.Duration `yaml:"poll_interval"`

	// SetDefaultChaperone overrides the host's request to install a default
	// play-space. Nil defers to the host.
	SetDefaultChaperone *bool `yaml:"set_default_chaperone"`

	DefaultChaperone AreaConfig `yaml:"default_chaperone"`
}

type AreaConfig struct {
	Width  float32 `yaml:"width"`
	Height float32 `yaml:"height"`
}

type VideoConfig struct {
	OptimizeGameRenderLatency bool    `yaml:"optimize_game_render_latency"`
	RefreshRate               float32 `yaml:"refresh_rate"`
}

type DesyncConfig struct {
	// Detect overrides the platform default (enabled on linux only).
	Detect           *bool         `yaml:"detect"`
	LatencyThreshold time.Duration `yaml:"latency_threshold"`
	Cooldown         time.Duration `yaml:"cooldown"`
}

type HeadsetConfig struct {
	Serial       string `yaml:"serial"`
	Manufacturer string `yaml:"manufacturer"`
	Model        string `yaml:"model"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type StatusConfig struct {
	BroadcastThrottle time.Duration `yaml:"broadcast_throttle"`
	SnapshotInterval  time.Duration `yaml:"snapshot_interval"`
}

type MockConfig struct {
	Tick time.Duration `yaml:"tick"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8082,
			Host: "127.0.0.1",
		},
		Driver: DriverConfig{
			PollInterval:     5 * time.Millisecond,
			DefaultChaperone: AreaConfig{Width: 2.0, Height: 2.0},
		},
		Video: VideoConfig{
			OptimizeGameRenderLatency: true,
			RefreshRate:               90,
		},
		Desync: DesyncConfig{
			LatencyThreshold: 250 * time.Millisecond,
			Cooldown:         100 * time.Millisecond,
		},
		Headset: HeadsetConfig{
			Serial:       "1WMHH000X00000",
			Manufacturer: "StreamVR",
			Model:        "Remote Headset",
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    "streamvr.db",
		},
		Status: StatusConfig{
			BroadcastThrottle: 100 * time.Millisecond,
			SnapshotInterval:  5 * time.Second,
		},
		Mock: MockConfig{
			Tick: time.Second,
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to the defaults when the
// file does not exist. Any other error is returned.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

func (c *Config) Validate() error {
	if c.Driver.PollInterval <= 0 {
		return fmt.Errorf("driver.poll_interval must be positive")
	}
	if c.Driver.DefaultChaperone.Width <= 0 || c.Driver.DefaultChaperone.Height <= 0 {
		return fmt.Errorf("driver.default_chaperone must have positive width and height")
	}
	if c.Video.RefreshRate <= 0 {
		return fmt.Errorf("video.refresh_rate must be positive")
	}
	if c.Desync.LatencyThreshold <= 0 {
		return fmt.Errorf("desync.latency_threshold must be positive")
	}
	if c.Desync.Cooldown < 0 {
		return fmt.Errorf("desync.cooldown cannot be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}
	if c.Status.BroadcastThrottle <= 0 || c.Status.SnapshotInterval <= 0 {
		return fmt.Errorf("status intervals must be positive")
	}
	return nil
}

// FrameInterval is the duration of one display refresh.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / float64(c.Video.RefreshRate))
}

// Diff describes every field that differs between a and b as
// "yaml.key: old → new". Used to log what a reload actually changed.
func Diff(a, b *Config) []string {
	var changed []string
	diffValue("", reflect.ValueOf(*a), reflect.ValueOf(*b), &changed)
	return changed
}

func diffValue(prefix string, a, b reflect.Value, out *[]string) {
	if a.Kind() != reflect.Struct {
		if !reflect.DeepEqual(a.Interface(), b.Interface()) {
			*out = append(*out, fmt.Sprintf("%s: %s → %s", prefix, formatValue(a), formatValue(b)))
		}
		return
	}
	t := a.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Tag.Get("yaml")
		if prefix != "" {
			name = prefix + "." + name
		}
		diffValue(name, a.Field(i), b.Field(i), out)
	}
}

func formatValue(v reflect.Value) string {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "unset"
		}
		v = v.Elem()
	}
	return fmt.Sprintf("%v", v.Interface())
}
