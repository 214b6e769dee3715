// Package config loads the quicknote daemon configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/quicknote/pkg/daemon"
	"github.com/Veraticus/quicknote/pkg/preferences"
)

// Config holds all configuration for quicknote. User-facing behavior lives in
// preferences; this covers paths and timings.
type Config struct {
	// Locations
	SocketPath      string `yaml:"socket_path" env:"QUICKNOTE_SOCKET"`
	DataDir         string `yaml:"data_dir" env:"QUICKNOTE_DATA_DIR"`
	PreferencesPath string `yaml:"preferences_path" env:"QUICKNOTE_PREFERENCES"`

	Debug  bool   `yaml:"debug" env:"QUICKNOTE_DEBUG"`
	Editor string `yaml:"editor" env:"QUICKNOTE_EDITOR"`

	// Timings
	IdlePollInterval time.Duration `yaml:"idle_poll_interval"`
	GracePeriod      time.Duration `yaml:"grace_period" env:"QUICKNOTE_GRACE_PERIOD"`
	FocusDelay       time.Duration `yaml:"focus_delay"`
	NoteSaveDelay    time.Duration `yaml:"note_save_delay" env:"QUICKNOTE_NOTE_SAVE_DELAY"`
	BoundsSaveDelay  time.Duration `yaml:"bounds_save_delay"`

	HotCorner HotCornerConfig `yaml:"hotcorner"`
}

// HotCornerConfig tunes the pointer poller
type HotCornerConfig struct {
	// Locator is "xdotool" or "none".
	Locator      string        `yaml:"locator"`
	PollInterval time.Duration `yaml:"poll_interval"`
	EmitInterval time.Duration `yaml:"emit_interval"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		SocketPath:       daemon.SocketPath(),
		DataDir:          defaultDataDir(),
		PreferencesPath:  filepath.Join(configDir(), preferences.FileName),
		IdlePollInterval: 100 * time.Millisecond,
		GracePeriod:      50 * time.Millisecond,
		FocusDelay:       100 * time.Millisecond,
		NoteSaveDelay:    500 * time.Millisecond,
		BoundsSaveDelay:  500 * time.Millisecond,
		HotCorner: HotCornerConfig{
			Locator:      "xdotool",
			PollInterval: 50 * time.Millisecond,
			EmitInterval: 100 * time.Millisecond,
		},
	}
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if path := Path(); path != "" {
		if err := loadFromFile(cfg, path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Path returns the config file path
func Path() string {
	if path := os.Getenv("QUICKNOTE_CONFIG"); path != "" {
		return path
	}
	if dir := configDir(); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	return ""
}

func configDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "quicknote")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "quicknote")
	}
	return ""
}

func defaultDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "quicknote")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "quicknote")
	}
	return ""
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, path string) error {
	// #nosec G304 - The config file path comes from trusted sources (env var or standard locations)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("QUICKNOTE_SOCKET"); v != "" {
		cfg.SocketPath = v
	}
	if v := os.Getenv("QUICKNOTE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("QUICKNOTE_PREFERENCES"); v != "" {
		cfg.PreferencesPath = v
	}
	if v := os.Getenv("QUICKNOTE_EDITOR"); v != "" {
		cfg.Editor = v
	}

	if v := os.Getenv("QUICKNOTE_DEBUG"); v != "" {
		switch v {
		case "true", "1", "yes":
			cfg.Debug = true
		case "false", "0", "no":
			cfg.Debug = false
		default:
			return fmt.Errorf("invalid QUICKNOTE_DEBUG value: %q (use true/false)", v)
		}
	}

	durations := []struct {
		env    string
		target *time.Duration
	}{
		{"QUICKNOTE_GRACE_PERIOD", &cfg.GracePeriod},
		{"QUICKNOTE_NOTE_SAVE_DELAY", &cfg.NoteSaveDelay},
	}
	for _, d := range durations {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.env, err)
		}
		*d.target = parsed
	}

	return nil
}

// Validate checks paths are set and timings are usable
func (c *Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("socket_path is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.PreferencesPath == "" {
		return fmt.Errorf("preferences_path is required")
	}

	positive := []struct {
		name  string
		value time.Duration
	}{
		{"idle_poll_interval", c.IdlePollInterval},
		{"hotcorner.poll_interval", c.HotCorner.PollInterval},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive", p.name)
		}
	}

	nonNegative := []struct {
		name  string
		value time.Duration
	}{
		{"grace_period", c.GracePeriod},
		{"focus_delay", c.FocusDelay},
		{"note_save_delay", c.NoteSaveDelay},
		{"bounds_save_delay", c.BoundsSaveDelay},
		{"hotcorner.emit_interval", c.HotCorner.EmitInterval},
	}
	for _, n := range nonNegative {
		if n.value < 0 {
			return fmt.Errorf("%s must be non-negative", n.name)
		}
	}

	switch c.HotCorner.Locator {
	case "xdotool", "none":
	default:
		return fmt.Errorf("hotcorner.locator must be xdotool or none, got %q", c.HotCorner.Locator)
	}

	return nil
}
