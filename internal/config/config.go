package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// PlanStartLayout is the wall-clock layout of PlanConfig.Start, read in the
// configured timezone.
const PlanStartLayout = "2006-01-02T15:04"

// ICSConfig describes a subscribed class schedule (e.g. a gym's public
// calendar) whose sessions are shown as planned sessions.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// SourceID returns ID, falling back to Name and then URL.
func (c ICSConfig) SourceID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// PlanConfig is a recurring training plan, e.g. "Upper body every
// Monday and Thursday at 07:00".
type PlanConfig struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	// RRule is an RFC 5545 recurrence rule without the "RRULE:" prefix,
	// e.g. "FREQ=WEEKLY;BYDAY=MO,TH".
	RRule string `yaml:"rrule" json:"rrule"`
	// Start is the first occurrence in PlanStartLayout.
	Start string `yaml:"start" json:"start"`
	// DurationMinutes of each session; defaults to 60.
	DurationMinutes int    `yaml:"duration_minutes" json:"duration_minutes"`
	Location        string `yaml:"location,omitempty" json:"location,omitempty"`
	// ExDates lists skipped occurrences (PlanStartLayout).
	ExDates []string `yaml:"exdates,omitempty" json:"exdates,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone that defines calendar days
	// (e.g. "America/New_York"). Empty means the host local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// DataDir holds the SQLite database, ICS cache and preview snapshot.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a cron-style schedule string (e.g. "*/30 * * * *")
	// for prefetching class feeds and capturing the month snapshot.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Snapshot enables headless capture of the month page on refresh.
	Snapshot bool `yaml:"snapshot" json:"snapshot"`

	// Plans are recurring training plans expanded onto the calendar.
	Plans []PlanConfig `yaml:"plans" json:"plans"`

	// Classes is the list of subscribed class schedule ICS feeds.
	Classes []ICSConfig `yaml:"classes" json:"classes"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "",
		DataDir:     "/var/lib/fitcal",
		LogLevel:    "info",
		RefreshCron: "*/30 * * * *",
		Snapshot:    false,
		Plans:       []PlanConfig{},
		Classes:     []ICSConfig{},
		BasicAuth:   nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.DataDir == "" {
		c.DataDir = "/var/lib/fitcal"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/30 * * * *"
	}
	if c.Plans == nil {
		c.Plans = []PlanConfig{}
	}
	for i := range c.Plans {
		if c.Plans[i].DurationMinutes <= 0 {
			c.Plans[i].DurationMinutes = 60
		}
		if c.Plans[i].ID == "" {
			c.Plans[i].ID = fmt.Sprintf("plan-%d", i+1)
		}
	}
	if c.Classes == nil {
		c.Classes = []ICSConfig{}
	}
}

// Location resolves Timezone; an empty name means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// DBPath is the SQLite file inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "fitcal.db")
}

// CacheDir is the ICS feed cache inside DataDir.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "ics-cache")
}

// PreviewPath is the month snapshot PNG inside DataDir.
func (c *Config) PreviewPath() string {
	return filepath.Join(c.DataDir, "preview.png")
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (creating the parent directory) and returned.
//   - Otherwise the YAML is read, unmarshalled and normalized.
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
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", cfg.Timezone, err)
	}

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically via a
// temp file + rename, with 0600 permissions on the final file.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".fitcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
