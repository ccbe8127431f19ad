// Package config loads engine configuration from YAML files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Engine holds all configuration for the navigation engine.
type Engine struct {
	LogLevel string `yaml:"log_level"`

	// Route cache
	CacheCapacity int `yaml:"cache_capacity"`

	// Policy knobs
	Connectivity string `yaml:"connectivity"` // "eight" or "four"
	LineOfSight  bool   `yaml:"line_of_sight"`

	// Worker pool size for batch route building
	RouteWorkers int `yaml:"route_workers"`

	// Cost field sources
	CostFieldDir string         `yaml:"cost_field_dir"`
	Database     DatabaseConfig `yaml:"database"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the
// cost-field store.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Enabled reports whether a database source is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// DefaultEngine returns Engine config with sensible defaults.
func DefaultEngine() Engine {
	return Engine{
		LogLevel:      "info",
		CacheCapacity: 64,
		Connectivity:  "eight",
		LineOfSight:   false,
		RouteWorkers:  4,
	}
}

// LoadEngine loads engine config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadEngine(path string) (Engine, error) {
	cfg := DefaultEngine()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
