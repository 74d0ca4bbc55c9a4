// Package config provides configuration management for abc-core.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Home     string         `yaml:"home"`
	Server   ServerConfig   `yaml:"server"`
	Security SecurityConfig `yaml:"security"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Warnings accumulates non-fatal issues found while applying
	// environment overrides (e.g. an insecure server URL). Not persisted.
	Warnings []string `yaml:"-"`
}

// ServerConfig defines the ABC login server endpoint settings.
type ServerConfig struct {
	// URL is the base URL of the login server (the "ABC server").
	URL string `yaml:"url"`

	// CABundle is an optional path to a PEM bundle of trusted CAs, for
	// servers behind self-signed or privately-issued certificates.
	CABundle string `yaml:"ca_bundle"`

	// Testnet selects the testnet account directory (Accounts-testnet)
	// when true. It does not change URL.
	Testnet bool `yaml:"testnet"`

	// TimeoutSeconds bounds how long a single server round trip may take.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// SecurityConfig defines security settings.
type SecurityConfig struct {
	SessionEnabled    bool `yaml:"session_enabled"`
	SessionTTLMinutes int  `yaml:"session_ttl_minutes"`

	// RequireRecoveryQuestions requires a recovery-questions package to
	// exist before allowing a login package to be written for an account.
	RequireRecoveryQuestions bool `yaml:"require_recovery_questions"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// GetHome returns the abc-core home directory path.
func (c *Config) GetHome() string {
	return c.Home
}

// GetServerURL returns the configured login server URL.
func (c *Config) GetServerURL() string {
	return c.Server.URL
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// GetSecurity returns the security configuration.
func (c *Config) GetSecurity() SecurityConfig {
	return c.Security
}

// DefaultHome returns the default abc-core home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".abc-core"
	}
	return filepath.Join(home, ".abc-core")
}
