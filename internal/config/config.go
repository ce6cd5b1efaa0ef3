package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"gigcal/internal/classify"
)

var (
	ErrEmptyPath = errors.New("config path is empty")
	ErrNilConfig = errors.New("config is nil")
)

// SourceConfig describes one ticketing snapshot file.
type SourceConfig struct {
	// Source is the platform whose adapter reads the file.
	Source string `yaml:"source" json:"source" validate:"oneof=eventbrite tickettailor"`
	// Path is a JSON file holding the platform's event array.
	Path string `yaml:"path" json:"path" validate:"required"`
	// Prices optionally names a JSON object of ticket classes keyed by
	// event ID, for platforms that list pricing separately.
	Prices string `yaml:"prices,omitempty" json:"prices,omitempty"`
	// Name is a human-friendly label used in logs.
	Name string `yaml:"name" json:"name"`
}

// VenueConfig is the fallback venue for events that report none.
type VenueConfig struct {
	Name    string `yaml:"name" json:"name"`
	Address string `yaml:"address" json:"address"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" validate:"required"`
	Password string `yaml:"password" json:"password" validate:"required"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" validate:"required,hostname_port"`

	// Timezone is the venue's IANA timezone. Calendar days and date
	// filters are computed in it.
	Timezone string `yaml:"timezone" json:"timezone" validate:"required,timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`

	// RefreshCron is a standard 5-field cron schedule for reloading
	// snapshot files.
	RefreshCron string `yaml:"refresh" json:"refresh" validate:"required"`

	// DebounceMillis is the search debounce delay.
	DebounceMillis int `yaml:"debounce_ms" json:"debounce_ms" validate:"gt=0"`

	// Currency is assumed for payloads that name none.
	Currency string `yaml:"currency" json:"currency" validate:"len=3"`

	Venue        VenueConfig     `yaml:"venue" json:"venue"`
	Availability classify.Policy `yaml:"availability" json:"availability"`

	Sources []SourceConfig `yaml:"sources" json:"sources" validate:"dive"`

	// CalendarName titles the exported iCalendar feed.
	CalendarName string `yaml:"calendar_name" json:"calendar_name"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty" validate:"omitempty"`
}

const (
	defaultListen       = "127.0.0.1:8080"
	defaultTimezone     = "America/Chicago"
	defaultLogLevel     = "info"
	defaultRefreshCron  = "*/15 * * * *"
	defaultDebounce     = 300
	defaultCurrency     = "USD"
	defaultCalendarName = "Upcoming shows"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		Timezone:       defaultTimezone,
		LogLevel:       defaultLogLevel,
		RefreshCron:    defaultRefreshCron,
		DebounceMillis: defaultDebounce,
		Currency:       defaultCurrency,
		Availability:   classify.DefaultPolicy(),
		CalendarName:   defaultCalendarName,
		Sources: []SourceConfig{
			{Source: "eventbrite", Path: "./data/eventbrite.json", Name: "Eventbrite"},
			{Source: "tickettailor", Path: "./data/tickettailor.json", Name: "Ticket Tailor"},
		},
	}
}

// Normalize fills in missing/zero values so partially-filled configs still
// behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.DebounceMillis <= 0 {
		c.DebounceMillis = defaultDebounce
	}
	if c.Currency == "" {
		c.Currency = defaultCurrency
	}
	if c.Availability.LowStockRemaining < 0 {
		c.Availability.LowStockRemaining = 0
	}
	if c.CalendarName == "" {
		c.CalendarName = defaultCalendarName
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}
}

var validate = validator.New()

// Validate checks field constraints and the refresh schedule.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("invalid config: refresh %q: %w", c.RefreshCron, err)
	}
	return nil
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Debounce returns the search debounce delay.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMillis) * time.Millisecond
}

// Environment overrides, read from the process environment or a .env file.
const (
	EnvListen   = "GIGCAL_LISTEN"
	EnvTimezone = "GIGCAL_TIMEZONE"
	EnvLogLevel = "GIGCAL_LOG_LEVEL"
	EnvDebounce = "GIGCAL_DEBOUNCE_MS"
)

// ApplyEnv overrides fields from env. Unparsable numbers are ignored.
func (c *Config) ApplyEnv(env map[string]string) {
	if v := env[EnvListen]; v != "" {
		c.Listen = v
	}
	if v := env[EnvTimezone]; v != "" {
		c.Timezone = v
	}
	if v := env[EnvLogLevel]; v != "" {
		c.LogLevel = v
	}
	if v := env[EnvDebounce]; v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DebounceMillis = n
		}
	}
}

// ReadEnv merges the given .env file (if it exists) with the process
// environment; process variables win.
func ReadEnv(dotenvPath string) (map[string]string, error) {
	env := map[string]string{}
	if dotenvPath != "" {
		vals, err := godotenv.Read(dotenvPath)
		switch {
		case err == nil:
			env = vals
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", dotenvPath, err)
		}
	}
	for _, key := range []string{EnvListen, EnvTimezone, EnvLogLevel, EnvDebounce} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	return env, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is decoded and normalized.
//
// Validation is left to the caller so env overrides can apply first.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
	}
	if cfg == nil {
		return ErrNilConfig
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

	tmp, err := os.CreateTemp(dir, ".gigcal-config-*.tmp")
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

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
