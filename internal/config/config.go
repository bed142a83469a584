package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	appLog "gamecal/internal/log"
)

// Config file model with first-run creation and atomic 0600 saves.

// SnapshotConfig tells where the group snapshot (game, players, answers,
// sessions) comes from.
type SnapshotConfig struct {
	// Source is a local path or an http(s) URL to a YAML or JSON snapshot.
	Source string `yaml:"source" json:"source"`
	// CacheDir stores the last fetched body of a URL source.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
}

// CalendarConfig controls the exported ICS document.
type CalendarConfig struct {
	ProductID   string `yaml:"product_id" json:"product_id"`
	UIDDomain   string `yaml:"uid_domain" json:"uid_domain"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Location    string `yaml:"location,omitempty" json:"location,omitempty"`
	// UseDefaultTimezone labels events with Config.Timezone when the game
	// has no timezone of its own.
	UseDefaultTimezone bool `yaml:"use_default_timezone" json:"use_default_timezone"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone decides what "today" is (IANA name, e.g. "Europe/Berlin").
	Timezone string `yaml:"timezone" json:"timezone"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a standard 5-field cron spec for snapshot reloads.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// MinPlayers is the default suggestion threshold; 0 disables it.
	MinPlayers int `yaml:"min_players" json:"min_players"`

	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`
	Calendar CalendarConfig `yaml:"calendar" json:"calendar"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "UTC",
		LogLevel:    "info",
		RefreshCron: "*/5 * * * *",
		MinPlayers:  0,
		Snapshot: SnapshotConfig{
			Source:   "/var/lib/gamecal/snapshot.yaml",
			CacheDir: "/var/lib/gamecal/cache",
		},
		Calendar: CalendarConfig{
			ProductID: "-//gamecal//Game Night Scheduler//EN",
			UIDDomain: "gamecal.local",
		},
	}
}

// Normalize fills in missing/zero values so older or partial files behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.Snapshot.CacheDir == "" {
		c.Snapshot.CacheDir = def.Snapshot.CacheDir
	}
	if c.Calendar.ProductID == "" {
		c.Calendar.ProductID = def.Calendar.ProductID
	}
	if c.Calendar.UIDDomain == "" {
		c.Calendar.UIDDomain = def.Calendar.UIDDomain
	}
}

// Validate reports settings that cannot be fixed by Normalize.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	if _, err := appLog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("config: refresh %q: %w", c.RefreshCron, err)
	}
	if c.MinPlayers < 0 {
		return fmt.Errorf("config: min_players %d is negative", c.MinPlayers)
	}
	if c.Snapshot.Source == "" {
		return errors.New("config: snapshot.source is empty")
	}
	return nil
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to UTC", err, "name", c.Timezone)
		return time.UTC
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is decoded, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, ".gamecal-config-*.tmp")
}

// WriteFileAtomic writes data next to path and renames it into place.
func WriteFileAtomic(path string, data []byte, pattern string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
