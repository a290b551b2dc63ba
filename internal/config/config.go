// Package config handles configuration management for TimeFetch
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yaml"
	DataDirName    = ".timefetch"
	LogFileName    = "timefetch.log"
	HistoryDirName = "history"
	ExportDirName  = "exports"
)

// Config represents the main configuration structure
type Config struct {
	mu sync.RWMutex `yaml:"-"`

	// Client settings
	Client ClientConfig `yaml:"client"`

	// Reference cross-check settings
	Check CheckConfig `yaml:"check"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// ClientConfig holds the SNTP client settings
type ClientConfig struct {
	// NTP server to query (hostname or IP)
	Server string `yaml:"server"`

	// Server UDP port (default: 123)
	Port int `yaml:"port"`

	// Fixed timezone offset in hours from UTC
	TimezoneOffsetHours int `yaml:"timezone_offset_hours"`

	// How many seconds a fetched time is served from cache
	// (0 = fetch on every read)
	CacheSeconds int `yaml:"cache_seconds"`

	// Receive timeout in milliseconds
	TimeoutMillis int `yaml:"timeout_ms"`

	// Interval between reads in headless mode, in seconds
	ReadIntervalSeconds int `yaml:"read_interval_seconds"`
}

// CheckConfig holds reference cross-check settings
type CheckConfig struct {
	// Enable skew reporting against a reference NTP implementation
	Enabled bool `yaml:"enabled"`

	// Reference server (empty = same as client server)
	Server string `yaml:"server"`

	// Timeout for reference queries in seconds
	Timeout int `yaml:"timeout"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log to file
	LogToFile bool `yaml:"log_to_file"`

	// Record fetch history to disk
	RecordHistory bool `yaml:"record_history"`

	// Maximum log entries to keep in memory
	MaxLogEntries int `yaml:"max_log_entries"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			Server:              "0.pool.ntp.org",
			Port:                123,
			TimezoneOffsetHours: 0,
			CacheSeconds:        3600,
			TimeoutMillis:       1000,
			ReadIntervalSeconds: 10,
		},
		Check: CheckConfig{
			Enabled: false,
			Server:  "",
			Timeout: 5,
		},
		Logging: LoggingConfig{
			Level:         "info",
			LogToFile:     true,
			RecordHistory: true,
			MaxLogEntries: 1000,
		},
	}
}

// GetDataDir returns the data directory path
func GetDataDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	return filepath.Join(cwd, DataDirName), nil
}

// EnsureDataDir creates the data directory if it doesn't exist
func EnsureDataDir() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	subdirs := []string{HistoryDirName, ExportDirName}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("failed to create %s directory: %w", subdir, err)
		}
	}

	return dataDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, ConfigFileName), nil
}

// Load loads configuration from file
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig() // Start with defaults
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to file
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, err := EnsureDataDir(); err != nil {
		return err
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# TimeFetch Configuration File\n# Edit with care - invalid YAML will prevent startup\n# Use the TUI editor for safer editing\n\n")
	data = append(header, data...)

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetYAML returns the config as YAML string
func (c *Config) GetYAML() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UpdateFromYAML updates the config from a YAML string
func (c *Config) UpdateFromYAML(yamlStr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	newCfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(yamlStr), newCfg); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	c.Client = newCfg.Client
	c.Check = newCfg.Check
	c.Logging = newCfg.Logging

	return nil
}

// CheckServer returns the server the cross-check should query
func (c *Config) CheckServer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Check.Server != "" {
		return c.Check.Server
	}
	return c.Client.Server
}

// GetOSInfo returns OS-specific information
func GetOSInfo() string {
	return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
}
