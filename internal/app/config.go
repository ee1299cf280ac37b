package app

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/exambot/core/config"
	coredatabase "github.com/m3rciful/exambot/core/database"
)

// Storage drivers.
const (
	StorageFile     = "file"
	StorageSQLite   = coredatabase.DriverSQLite
	StoragePostgres = coredatabase.DriverPostgres
)

const (
	defaultDataFile        = "data.json"
	defaultCleanupInterval = 60
)

// StorageConfig selects the record store backend.
type StorageConfig struct {
	Driver   string              `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	DataFile string              `yaml:"data_file" envconfig:"DATA_FILE"`
	Database coredatabase.Config `yaml:"database"`
}

// ExamConfig holds exam scheduling settings.
type ExamConfig struct {
	// Timezone is an IANA zone name used to read and print exam times.
	Timezone               string `yaml:"timezone" envconfig:"EXAM_TIMEZONE"`
	CleanupIntervalSeconds int    `yaml:"cleanup_interval_seconds" envconfig:"CLEANUP_INTERVAL_SECONDS"`

	loc *time.Location
}

// Location returns the configured zone; valid after Normalize.
func (e ExamConfig) Location() *time.Location {
	if e.loc == nil {
		return time.Local
	}
	return e.loc
}

// CleanupInterval returns the cleanup period.
func (e ExamConfig) CleanupInterval() time.Duration {
	return time.Duration(e.CleanupIntervalSeconds) * time.Second
}

// Config is the full bot configuration.
type Config struct {
	Core    coreconfig.Config `yaml:",inline"`
	Storage StorageConfig     `yaml:"storage"`
	Exam    ExamConfig        `yaml:"exam"`
}

// CoreConfig exposes the shared runtime configuration.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Core }

// Load reads the YAML file at path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Core); err != nil {
		return err
	}

	driver := strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch driver {
	case "", "json", StorageFile:
		c.Storage.Driver = StorageFile
		c.Storage.DataFile = strings.TrimSpace(c.Storage.DataFile)
		if c.Storage.DataFile == "" {
			c.Storage.DataFile = defaultDataFile
		}
	case StorageSQLite, "sqlite3", StoragePostgres, "postgresql", "pg":
		c.Storage.Database.Driver = driver
		if err := c.Storage.Database.Normalize(); err != nil {
			return fmt.Errorf("storage.database: %w", err)
		}
		c.Storage.Driver = c.Storage.Database.Driver
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: file, sqlite, postgres", c.Storage.Driver)
	}

	if tz := strings.TrimSpace(c.Exam.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid exam.timezone %q: %w", tz, err)
		}
		c.Exam.loc = loc
	}
	if c.Exam.CleanupIntervalSeconds < 0 {
		return fmt.Errorf("exam.cleanup_interval_seconds must be >= 0")
	}
	if c.Exam.CleanupIntervalSeconds == 0 {
		c.Exam.CleanupIntervalSeconds = defaultCleanupInterval
	}
	return nil
}
