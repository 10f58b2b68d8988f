/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package config provides configuration management for WrenDB.

The configuration system supports multiple sources with clear precedence:
 1. Environment variables (highest priority)
 2. Configuration file
 3. Default values (lowest priority)

Configuration File Format:
The configuration file uses TOML format for readability and ease of use.

Example configuration file:

	# WrenDB Configuration
	data_dir = "/var/lib/wrendb"
	plan_cache_entries = 64
	max_recursion_depth = 1000
	encryption_enabled = false
	collation = "BINARY"
	collation_locale = "en_US"
	log_level = "info"
	log_json = false

Environment Variables:
  - WRENDB_DATA_DIR: Directory for database storage
  - WRENDB_PLAN_CACHE_ENTRIES: Per-session capacity of each view plan cache partition
  - WRENDB_MAX_RECURSION_DEPTH: Iteration cap for recursive view evaluation
  - WRENDB_ENCRYPTION_ENABLED: Enable data-at-rest encryption (true/false)
  - WRENDB_ENCRYPTION_PASSPHRASE: Passphrase for encryption key derivation
  - WRENDB_COLLATION: Default string collation (BINARY, NOCASE, UNICODE)
  - WRENDB_COLLATION_LOCALE: Locale for UNICODE collation
  - WRENDB_LOG_LEVEL: Log level (debug, info, warn, error)
  - WRENDB_LOG_JSON: Enable JSON logging (true/false)
  - WRENDB_CONFIG_FILE: Path to configuration file
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Environment variable names for configuration.
const (
	EnvDataDir              = "WRENDB_DATA_DIR"
	EnvPlanCacheEntries     = "WRENDB_PLAN_CACHE_ENTRIES"
	EnvMaxRecursionDepth    = "WRENDB_MAX_RECURSION_DEPTH"
	EnvCompressionEnabled   = "WRENDB_COMPRESSION_ENABLED"
	EnvEncryptionEnabled    = "WRENDB_ENCRYPTION_ENABLED"
	EnvEncryptionPassphrase = "WRENDB_ENCRYPTION_PASSPHRASE"
	EnvCollation            = "WRENDB_COLLATION"
	EnvCollationLocale      = "WRENDB_COLLATION_LOCALE"
	EnvLogLevel             = "WRENDB_LOG_LEVEL"
	EnvLogJSON              = "WRENDB_LOG_JSON"
	EnvConfigFile           = "WRENDB_CONFIG_FILE"
)

// GetDefaultDataDir returns the default directory for database storage.
// For root users, it uses /var/lib/wrendb (Filesystem Hierarchy Standard).
// For non-root users, it uses ~/.local/share/wrendb (XDG Base Directory).
func GetDefaultDataDir() string {
	if os.Getuid() == 0 {
		return "/var/lib/wrendb"
	}
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "wrendb")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".local", "share", "wrendb")
	}
	// Last resort: current directory
	return "./data"
}

// Default configuration file paths (searched in order).
var DefaultConfigPaths = []string{
	"/etc/wrendb/wrendb.conf",
	"$HOME/.config/wrendb/wrendb.conf",
	"./wrendb.conf",
}

// Config holds all configuration values for WrenDB.
type Config struct {
	// Storage configuration
	DataDir string `toml:"data_dir" json:"data_dir"`

	// Query configuration
	PlanCacheEntries  int `toml:"plan_cache_entries" json:"plan_cache_entries"`   // Per-session capacity of each view plan cache partition
	MaxRecursionDepth int `toml:"max_recursion_depth" json:"max_recursion_depth"` // Iteration cap for recursive view evaluation

	// Collation configuration
	Collation       string `toml:"collation" json:"collation"`             // BINARY, NOCASE, or UNICODE
	CollationLocale string `toml:"collation_locale" json:"collation_locale"` // Locale for UNICODE collation

	// Value compression for stored records
	CompressionEnabled bool `toml:"compression_enabled" json:"compression_enabled"`

	// Encryption configuration for data at rest
	EncryptionEnabled    bool   `toml:"encryption_enabled" json:"encryption_enabled"`
	EncryptionPassphrase string `toml:"-" json:"-"` // Not persisted to file for security

	// Logging configuration
	LogLevel string `toml:"log_level" json:"log_level"`
	LogJSON  bool   `toml:"log_json" json:"log_json"`

	// Metadata
	ConfigFile string `toml:"-" json:"-"` // Path to loaded config file
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		DataDir:           GetDefaultDataDir(),
		PlanCacheEntries:  64,
		MaxRecursionDepth: 1000,
		Collation:         "BINARY",
		CollationLocale:   "en_US",
		EncryptionEnabled: false,
		LogLevel:          "info",
		LogJSON:           false,
	}
}

// Manager handles configuration loading, validation, and access.
type Manager struct {
	config *Config
	mu     sync.RWMutex
}

// NewManager creates a new configuration manager with default values.
func NewManager() *Manager {
	return &Manager{
		config: DefaultConfig(),
	}
}

// Global manager instance for convenience.
var globalManager = NewManager()

// Global returns the global configuration manager.
func Global() *Manager {
	return globalManager
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Return a copy to prevent external modification
	cfg := *m.config
	return &cfg
}

// Set updates the configuration.
func (m *Manager) Set(cfg *Config) {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	if c.DataDir == "" {
		errs = append(errs, "data_dir cannot be empty")
	}
	if c.PlanCacheEntries < 1 {
		errs = append(errs, fmt.Sprintf("invalid plan_cache_entries: %d (must be >= 1)", c.PlanCacheEntries))
	}
	if c.MaxRecursionDepth < 1 {
		errs = append(errs, fmt.Sprintf("invalid max_recursion_depth: %d (must be >= 1)", c.MaxRecursionDepth))
	}

	switch strings.ToUpper(c.Collation) {
	case "BINARY", "NOCASE", "UNICODE":
		// Valid collations
	default:
		errs = append(errs, fmt.Sprintf("invalid collation: %s (must be BINARY, NOCASE, or UNICODE)", c.Collation))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		// Valid log levels
	default:
		errs = append(errs, fmt.Sprintf("invalid log_level: %s (must be debug, info, warn, or error)", c.LogLevel))
	}

	if c.EncryptionEnabled && c.EncryptionPassphrase == "" {
		errs = append(errs, "encryption_passphrase is required when encryption is enabled (set WRENDB_ENCRYPTION_PASSPHRASE)")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// LoadFromFile loads configuration from a TOML file.
func (m *Manager) LoadFromFile(path string) error {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := parseTOML(string(data), cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ConfigFile = path
	m.Set(cfg)
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// This merges with existing configuration (env vars override file values).
func (m *Manager) LoadFromEnv() {
	cfg := m.Get()

	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvPlanCacheEntries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PlanCacheEntries = n
		}
	}
	if v := os.Getenv(EnvMaxRecursionDepth); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRecursionDepth = n
		}
	}
	if v := os.Getenv(EnvCompressionEnabled); v != "" {
		cfg.CompressionEnabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv(EnvEncryptionEnabled); v != "" {
		cfg.EncryptionEnabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv(EnvEncryptionPassphrase); v != "" {
		cfg.EncryptionPassphrase = v
	}
	if v := os.Getenv(EnvCollation); v != "" {
		cfg.Collation = v
	}
	if v := os.Getenv(EnvCollationLocale); v != "" {
		cfg.CollationLocale = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLogJSON); v != "" {
		cfg.LogJSON = strings.ToLower(v) == "true" || v == "1"
	}

	m.Set(cfg)
}

// FindConfigFile searches for a configuration file in default locations.
// Returns the path to the first file found, or empty string if none found.
func FindConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(EnvConfigFile); envPath != "" {
		if _, err := os.Stat(os.ExpandEnv(envPath)); err == nil {
			return os.ExpandEnv(envPath)
		}
	}

	// Search default paths
	for _, path := range DefaultConfigPaths {
		expandedPath := os.ExpandEnv(path)
		if _, err := os.Stat(expandedPath); err == nil {
			return expandedPath
		}
	}

	return ""
}

// Load loads configuration from all sources with proper precedence.
// Order: defaults -> config file -> environment variables
func (m *Manager) Load() error {
	configPath := FindConfigFile()
	if configPath != "" {
		if err := m.LoadFromFile(configPath); err != nil {
			return err
		}
	}

	// Apply environment variables (override file values)
	m.LoadFromEnv()

	return nil
}

// parseTOML is a simple TOML parser for our configuration format.
// It handles the subset of TOML we need without external dependencies.
func parseTOML(data string, cfg *Config) error {
	lines := strings.Split(data, "\n")

	for lineNum, line := range lines {
		// Remove comments
		if idx := strings.Index(line, "#"); idx != -1 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		// Parse key = value
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("line %d: invalid syntax: %s", lineNum+1, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes from string values
		if len(value) >= 2 && ((value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'')) {
			value = value[1 : len(value)-1]
		}

		if err := applyConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("line %d: %w", lineNum+1, err)
		}
	}

	return nil
}

// applyConfigValue applies a key-value pair to the configuration.
func applyConfigValue(cfg *Config, key, value string) error {
	switch key {
	case "data_dir":
		cfg.DataDir = value
	case "plan_cache_entries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid plan_cache_entries value: %s", value)
		}
		cfg.PlanCacheEntries = n
	case "max_recursion_depth":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid max_recursion_depth value: %s", value)
		}
		cfg.MaxRecursionDepth = n
	case "collation":
		cfg.Collation = value
	case "collation_locale":
		cfg.CollationLocale = value
	case "compression_enabled":
		cfg.CompressionEnabled = strings.ToLower(value) == "true" || value == "1"
	case "encryption_enabled":
		cfg.EncryptionEnabled = strings.ToLower(value) == "true" || value == "1"
	case "log_level":
		cfg.LogLevel = value
	case "log_json":
		cfg.LogJSON = strings.ToLower(value) == "true" || value == "1"
	default:
		// Ignore unknown keys for forward compatibility
	}

	return nil
}

// String returns a string representation of the configuration.
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("WrenDB Configuration:\n")
	sb.WriteString(fmt.Sprintf("  Data Dir:           %s\n", c.DataDir))
	sb.WriteString(fmt.Sprintf("  Plan Cache Entries: %d\n", c.PlanCacheEntries))
	sb.WriteString(fmt.Sprintf("  Recursion Depth:    %d\n", c.MaxRecursionDepth))
	sb.WriteString(fmt.Sprintf("  Collation:          %s\n", c.Collation))
	sb.WriteString(fmt.Sprintf("  Compression:        %v\n", c.CompressionEnabled))
	sb.WriteString(fmt.Sprintf("  Encryption:         %v\n", c.EncryptionEnabled))
	sb.WriteString(fmt.Sprintf("  Log Level:          %s\n", c.LogLevel))
	sb.WriteString(fmt.Sprintf("  Log JSON:           %v\n", c.LogJSON))
	if c.ConfigFile != "" {
		sb.WriteString(fmt.Sprintf("  Config File:        %s\n", c.ConfigFile))
	}
	return sb.String()
}

// ToTOML returns the configuration as a TOML string.
func (c *Config) ToTOML() string {
	var sb strings.Builder
	sb.WriteString("# WrenDB Configuration File\n")
	sb.WriteString("# Generated by WrenDB\n\n")
	sb.WriteString("# Storage\n")
	sb.WriteString(fmt.Sprintf("data_dir = \"%s\"\n\n", c.DataDir))
	sb.WriteString("# Query\n")
	sb.WriteString(fmt.Sprintf("plan_cache_entries = %d\n", c.PlanCacheEntries))
	sb.WriteString(fmt.Sprintf("max_recursion_depth = %d\n\n", c.MaxRecursionDepth))
	sb.WriteString("# Collation\n")
	sb.WriteString(fmt.Sprintf("collation = \"%s\"\n", c.Collation))
	sb.WriteString(fmt.Sprintf("collation_locale = \"%s\"\n\n", c.CollationLocale))
	sb.WriteString("# Record compression\n")
	sb.WriteString(fmt.Sprintf("compression_enabled = %v\n\n", c.CompressionEnabled))
	sb.WriteString("# Data-at-rest encryption\n")
	sb.WriteString("# When enabled, you MUST set WRENDB_ENCRYPTION_PASSPHRASE environment variable\n")
	sb.WriteString(fmt.Sprintf("encryption_enabled = %v\n\n", c.EncryptionEnabled))
	sb.WriteString("# Logging\n")
	sb.WriteString(fmt.Sprintf("log_level = \"%s\"\n", c.LogLevel))
	sb.WriteString(fmt.Sprintf("log_json = %v\n", c.LogJSON))
	return sb.String()
}

// SaveToFile saves the configuration to a file.
func (c *Config) SaveToFile(path string) error {
	path = os.ExpandEnv(path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(c.ToTOML()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
