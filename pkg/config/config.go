package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config is the interface that all loaded configs must implement.
type Config interface {
	Validate() error
}

// Manager handles configuration loading and parsing.
type Manager struct {
	k           *koanf.Koanf
	serviceName string
	envPrefix   string
	configPaths []string
	explicit    string
}

// NewManager creates a new configuration manager. Environment variables are
// read with the upper-cased service name as prefix.
func NewManager(serviceName string) *Manager {
	return &Manager{
		k:           koanf.New("."),
		serviceName: serviceName,
		envPrefix:   strings.ToUpper(strings.ReplaceAll(serviceName, "-", "")) + "_",
		configPaths: getDefaultConfigPaths(serviceName),
	}
}

// WithConfigFile makes the manager read exactly this file. Unlike the default
// search paths, a missing explicit file is an error.
func (m *Manager) WithConfigFile(path string) *Manager {
	m.explicit = path
	return m
}

// WithEnvPrefix overrides the environment variable prefix.
func (m *Manager) WithEnvPrefix(prefix string) *Manager {
	m.envPrefix = prefix
	return m
}

// EnvPrefix returns the prefix used for environment overrides.
func (m *Manager) EnvPrefix() string {
	return m.envPrefix
}

// LoadConfig loads configuration from all sources.
func (m *Manager) LoadConfig(cfg Config) error {
	// 1. Load defaults from the struct as passed in
	if err := m.loadDefaults(cfg); err != nil {
		return fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Load from config files
	if m.explicit != "" {
		if err := m.loadFromFile(m.explicit); err != nil {
			return fmt.Errorf("failed to load config from %s: %w", m.explicit, err)
		}
	} else {
		for _, path := range m.configPaths {
			if err := m.loadFromFile(path); err != nil {
				// Skip if file doesn't exist, error on parse failures
				if !os.IsNotExist(err) {
					return fmt.Errorf("failed to load config from %s: %w", path, err)
				}
			}
		}
	}

	// 3. Load from environment variables
	if err := m.loadFromEnv(); err != nil {
		return fmt.Errorf("failed to load from environment: %w", err)
	}

	// 4. Unmarshal into the config struct
	if err := m.k.Unmarshal("", cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Validate the configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// GetString returns a string value for the given key.
func (m *Manager) GetString(key string) string {
	return m.k.String(key)
}

// GetBool returns a bool value for the given key.
func (m *Manager) GetBool(key string) bool {
	return m.k.Bool(key)
}

func (m *Manager) loadDefaults(cfg Config) error {
	return m.k.Load(structs.Provider(cfg, "koanf"), nil)
}

func (m *Manager) loadFromFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	var parser koanf.Parser
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	return m.k.Load(file.Provider(path), parser)
}

// loadFromEnv maps ANIMELIB_LIBRARY_CREATE_MISSING to library.create_missing.
// Only the first underscore after the prefix separates the section, so keys
// keep their own underscores.
func (m *Manager) loadFromEnv() error {
	prefix := m.envPrefix
	return m.k.Load(env.ProviderWithValue(prefix, ".", func(key, value string) (string, interface{}) {
		k := envKey(prefix, key)
		if listKeys[k] {
			return k, splitList(value)
		}
		return k, value
	}), nil)
}

func envKey(prefix, key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, prefix))
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return section
	}
	return section + "." + rest
}

// listKeys are settings whose environment value is a comma separated list.
var listKeys = map[string]bool{
	"library.roots":             true,
	"library.extensions":        true,
	"library.generic_dir_names": true,
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getDefaultConfigPaths returns the default config paths to check, lowest
// precedence first.
func getDefaultConfigPaths(serviceName string) []string {
	paths := []string{
		"config.yaml",
		"config.json",
		fmt.Sprintf("%s.yaml", serviceName),
		fmt.Sprintf("%s.json", serviceName),
		"configs/config.yaml",
		"configs/config.json",
		fmt.Sprintf("configs/%s.yaml", serviceName),
		fmt.Sprintf("configs/%s.json", serviceName),
	}

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		paths = append(paths, configPath)
	}

	return paths
}
