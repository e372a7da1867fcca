// Package config provides YAML-based configuration for the dashboard
// server with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	Dataset   DatasetConfig   `mapstructure:"dataset"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	BindAddress  string `mapstructure:"bindAddress"`
	EnableCORS   bool   `mapstructure:"enableCors"`
	AllowOrigins string `mapstructure:"allowOrigins"`
	ReadTimeout  int    `mapstructure:"readTimeoutSeconds"`
	WriteTimeout int    `mapstructure:"writeTimeoutSeconds"`
	IdleTimeout  int    `mapstructure:"idleTimeoutSeconds"`
	BodyLimit    string `mapstructure:"bodyLimit"`
}

// DatasetConfig locates the contracts file and selects the store backend.
type DatasetConfig struct {
	Path          string `mapstructure:"path"`
	Backend       string `mapstructure:"backend"` // memory | duckdb
	TempDirectory string `mapstructure:"tempDirectory"`
}

// DashboardConfig points at the optional views file.
type DashboardConfig struct {
	ViewsPath string `mapstructure:"viewsPath"`
}

// LoggingConfig holds logging options.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "1M",
		},
		Dataset: DatasetConfig{
			Path:          "./data/contracts.json",
			Backend:       "memory",
			TempDirectory: "./data/temp",
		},
		Dashboard: DashboardConfig{
			ViewsPath: "./views.yaml",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads the YAML configuration at configPath. A missing file
// yields the defaults; environment variables prefixed with DASHBOARD_
// (e.g. DASHBOARD_SERVER_PORT) override either way.
func LoadConfig(configPath string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.bindAddress", defaults.Server.BindAddress)
	v.SetDefault("server.enableCors", defaults.Server.EnableCORS)
	v.SetDefault("server.allowOrigins", defaults.Server.AllowOrigins)
	v.SetDefault("server.readTimeoutSeconds", defaults.Server.ReadTimeout)
	v.SetDefault("server.writeTimeoutSeconds", defaults.Server.WriteTimeout)
	v.SetDefault("server.idleTimeoutSeconds", defaults.Server.IdleTimeout)
	v.SetDefault("server.bodyLimit", defaults.Server.BodyLimit)
	v.SetDefault("dataset.path", defaults.Dataset.Path)
	v.SetDefault("dataset.backend", defaults.Dataset.Backend)
	v.SetDefault("dataset.tempDirectory", defaults.Dataset.TempDirectory)
	v.SetDefault("dashboard.viewsPath", defaults.Dashboard.ViewsPath)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
			// No config file: run on defaults plus env overrides.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &AppConfig{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Dataset.Backend != "memory" && config.Dataset.Backend != "duckdb" {
		return nil, fmt.Errorf("invalid dataset backend: %s", config.Dataset.Backend)
	}

	config.resolvePaths(filepath.Dir(configPath))
	return config, nil
}

// resolvePaths converts relative paths to absolute based on the config
// file location.
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Dataset.Path) {
		c.Dataset.Path = filepath.Join(configDir, c.Dataset.Path)
	}
	if !filepath.IsAbs(c.Dataset.TempDirectory) {
		c.Dataset.TempDirectory = filepath.Join(configDir, c.Dataset.TempDirectory)
	}
	if !filepath.IsAbs(c.Dashboard.ViewsPath) {
		c.Dashboard.ViewsPath = filepath.Join(configDir, c.Dashboard.ViewsPath)
	}
}

// GetServerAddr returns the server bind address.
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates the temp directory used by the DuckDB
// backend.
func (c *AppConfig) EnsureDirectories() error {
	if err := os.MkdirAll(c.Dataset.TempDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.Dataset.TempDirectory, err)
	}
	return nil
}
