package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/mrz1836/go-sanitize"
)

// ErrInsecureServerURL indicates a login server URL is using plaintext HTTP.
var ErrInsecureServerURL = errors.New("server URL must use HTTPS")

// Environment variable names.
const (
	EnvHome            = "ABC_CORE_HOME"
	EnvServerURL       = "ABC_CORE_SERVER_URL"
	EnvServerCABundle  = "ABC_CORE_CA_BUNDLE"
	EnvTestnet         = "ABC_CORE_TESTNET"
	EnvServerTimeout   = "ABC_CORE_SERVER_TIMEOUT"
	EnvOutputFormat    = "ABC_CORE_OUTPUT_FORMAT"
	EnvVerbose         = "ABC_CORE_VERBOSE"
	EnvLogLevel        = "ABC_CORE_LOG_LEVEL"
	EnvNoColor         = "NO_COLOR"
	EnvSessionTTL      = "ABC_CORE_SESSION_TTL"
	EnvRequireRecovery = "ABC_CORE_REQUIRE_RECOVERY_QUESTIONS"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvServerURL); v != "" {
		sanitized := SanitizeURL(v)
		if err := ValidateServerURL(sanitized); err != nil {
			// Log warning but still set the URL — validation errors are
			// surfaced at connection time by the login server client.
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("%s: %v", EnvServerURL, err))
		}
		cfg.Server.URL = sanitized
	}

	if v := os.Getenv(EnvServerCABundle); v != "" {
		cfg.Server.CABundle = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvTestnet); v != "" {
		cfg.Server.Testnet = parseBool(v)
	}

	if v := os.Getenv(EnvServerTimeout); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Server.TimeoutSeconds = n
		}
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}

	// ABC_CORE_SESSION_TTL sets session timeout in minutes
	if v := os.Getenv(EnvSessionTTL); v != "" {
		if ttl, err := strconv.Atoi(v); err == nil && ttl > 0 {
			cfg.Security.SessionTTLMinutes = ttl
		}
	}

	if v := os.Getenv(EnvRequireRecovery); v != "" {
		cfg.Security.RequireRecoveryQuestions = parseBool(v)
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL cleans a URL string by removing invalid characters and trimming whitespace.
// This is useful for cleaning user-provided server URLs that may contain copy-paste artifacts.
func SanitizeURL(rawURL string) string {
	return sanitize.URL(strings.TrimSpace(rawURL))
}

// ValidateServerURL validates that a login server URL uses HTTPS (or localhost for development).
// Returns an error if the URL scheme is not https and the host is not localhost.
func ValidateServerURL(rawURL string) error {
	if rawURL == "" {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	if u.Scheme == "https" || u.Scheme == "wss" {
		return nil
	}

	// Allow plaintext for localhost/loopback development
	host := u.Hostname()
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return nil
	}

	return fmt.Errorf("%w (got %s://%s): plaintext HTTP exposes login credentials to network attackers", ErrInsecureServerURL, u.Scheme, u.Host)
}
