package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harrisonrobin/planner/pkg/storage"
)

const (
	xdgAppName = "planner"
	configFile = "config.json"

	DefaultCalendarID  = "primary"
	DefaultRefreshDays = 30
	DefaultEstimate    = 30
	DefaultLogLevel    = "info"
)

type Config struct {
	CalendarID      string `json:"calendar_id"`
	Storage         string `json:"storage"`
	DataDir         string `json:"data_dir,omitempty"`
	RefreshDays     int    `json:"refresh_days"`
	DefaultEstimate int    `json:"default_estimate"`
	TimeZone        string `json:"time_zone,omitempty"`
	LogLevel        string `json:"log_level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		CalendarID:      DefaultCalendarID,
		Storage:         storage.KindSQLite,
		RefreshDays:     DefaultRefreshDays,
		DefaultEstimate: DefaultEstimate,
		LogLevel:        DefaultLogLevel,
	}
}

// Dir is ~/.config/planner, which also holds credentials.json and token.json.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, xdgAppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the config file, falling back to defaults when it is missing.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	defer f.Close()

	cfg := Default()
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.CalendarID == "" {
		c.CalendarID = d.CalendarID
	}
	if c.Storage == "" {
		c.Storage = d.Storage
	}
	if c.RefreshDays <= 0 {
		c.RefreshDays = d.RefreshDays
	}
	if c.DefaultEstimate <= 0 {
		c.DefaultEstimate = d.DefaultEstimate
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

func (c *Config) Validate() error {
	switch c.Storage {
	case storage.KindSQLite, storage.KindFile:
	default:
		return fmt.Errorf("unknown storage %q (want %q or %q)", c.Storage, storage.KindSQLite, storage.KindFile)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves TimeZone, defaulting to the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time_zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// ZoneName is the IANA name sent to the calendar, empty when only the
// process-local zone is known.
func (c *Config) ZoneName() string {
	if c.TimeZone != "" {
		return c.TimeZone
	}
	if name := time.Local.String(); name != "Local" {
		return name
	}
	return ""
}

// ResolveDataDir returns DataDir or ~/.local/share/planner.
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, xdgAppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", xdgAppName), nil
}

func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

func SaveFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}
