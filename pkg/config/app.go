package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AppConfig is the complete configuration of the library tool.
type AppConfig struct {
	Service  ServiceConfig  `koanf:"service"`
	Database DatabaseConfig `koanf:"database"`
	Logger   LoggerConfig   `koanf:"logger"`
	Library  LibraryConfig  `koanf:"library"`
	Events   EventsConfig   `koanf:"events"`
}

// ServiceConfig contains service metadata.
type ServiceConfig struct {
	Name        string `koanf:"name"`
	Environment string `koanf:"environment"` // dev, production
}

// DatabaseConfig contains catalog store connection settings.
type DatabaseConfig struct {
	Driver          string        `koanf:"driver"` // sqlite, postgres
	Path            string        `koanf:"path"`   // sqlite file, ":memory:" allowed
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxConnections  int           `koanf:"max_connections"`
	MinConnections  int           `koanf:"min_connections"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`
	SlowThreshold   time.Duration `koanf:"slow_threshold"`
	LogQueries      bool          `koanf:"log_queries"`
}

// LoggerConfig contains logging configuration.
type LoggerConfig struct {
	Level       string `koanf:"level"`  // debug, info, warn, error
	Format      string `koanf:"format"` // auto, json, console
	Development bool   `koanf:"development"`
	OutputPath  string `koanf:"output_path"`
}

// LibraryConfig controls the reconciliation run.
type LibraryConfig struct {
	Roots           []string `koanf:"roots"`
	CreateMissing   bool     `koanf:"create_missing"`
	Extensions      []string `koanf:"extensions"`
	GenericDirNames []string `koanf:"generic_dir_names"`
	HashFiles       bool     `koanf:"hash_files"`
	LockPath        string   `koanf:"lock_path"`
}

// EventsConfig configures optional forwarding of library events to NATS.
type EventsConfig struct {
	NatsURL       string `koanf:"nats_url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// Validate validates the configuration.
func (c *AppConfig) Validate() error {
	if c.Service.Name == "" {
		return errors.New("service name is required")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.Host == "" {
			return errors.New("database host is required for the postgres driver")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
		if c.Database.Name == "" {
			return errors.New("database name is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	switch c.Logger.Format {
	case "auto", "json", "console":
	default:
		return fmt.Errorf("unsupported log format: %q", c.Logger.Format)
	}

	if len(c.Library.Extensions) == 0 {
		return errors.New("at least one library extension is required")
	}
	for _, ext := range c.Library.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("library extension %q must start with a dot", ext)
		}
	}
	if c.Library.LockPath == "" {
		return errors.New("library lock path is required")
	}
	return nil
}

// GetDefaults returns default configuration values.
func GetDefaults() *AppConfig {
	return &AppConfig{
		Service: ServiceConfig{
			Name:        ServiceName,
			Environment: "dev",
		},
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			Path:            DefaultSQLitePath,
			Host:            "localhost",
			Port:            DefaultPostgresPort,
			User:            "animelib",
			Name:            "animelib",
			SSLMode:         "disable",
			MaxConnections:  DefaultMaxConnections,
			MinConnections:  DefaultMinConnections,
			MaxConnLifetime: DefaultMaxConnLifetime,
			SlowThreshold:   DefaultSlowThreshold,
		},
		Logger: LoggerConfig{
			Level:      "info",
			Format:     "auto",
			OutputPath: "stderr",
		},
		Library: LibraryConfig{
			CreateMissing:   true,
			Extensions:      []string{".mkv", ".mp4", ".avi"},
			GenericDirNames: []string{"anime", "anime movie", "media", "mediathek", "downloads", "videos", "tv", "series"},
			LockPath:        DefaultLockFile,
		},
		Events: EventsConfig{
			SubjectPrefix: DefaultSubjectPrefix,
		},
	}
}

// Load reads defaults, files and ANIMELIB_* environment overrides. An empty
// path searches the default locations.
func Load(path string) (*AppConfig, error) {
	cfg := GetDefaults()
	manager := NewManager(ServiceName)
	if path != "" {
		manager.WithConfigFile(path)
	}
	if err := manager.LoadConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
