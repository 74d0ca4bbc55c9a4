package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abcore/core/internal/config"
	"github.com/abcore/core/internal/output"
	coreerr "github.com/abcore/core/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage configuration",
	Long:    `View and modify abc-core configuration settings.`,
	GroupID: "config",
}

// configInitCmd initializes the configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.abc-core/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.`,
	Example: `  abc-core config init
  abc-core config init --force`,
	RunE: runConfigInit,
}

// configShowCmd shows the current configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the current configuration settings.`,
	Example: `  abc-core config show
  abc-core config show -o json`,
	RunE: runConfigShow,
}

// configGetCmd gets a specific configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value by its path.

The path uses dot notation to navigate the configuration tree.`,
	Example: `  abc-core config get server.url
  abc-core config get output.default_format
  abc-core config get logging.level`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets a configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value by its path.

The path uses dot notation to navigate the configuration tree.
The configuration file will be updated immediately.`,
	Example: `  abc-core config set server.url https://login.example.com
  abc-core config set output.default_format json
  abc-core config set logging.level debug`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

// errUnknownConfigKey and errInvalidConfigValue are returned by config
// get/set for paths and values this command doesn't recognize.
func errUnknownConfigKey(details map[string]string) error {
	return coreerr.WithDetails(coreerr.New("UNKNOWN_CONFIG_KEY", "unknown configuration key"), details)
}

func errInvalidConfigValue(value, valid string) error {
	return coreerr.WithDetails(
		coreerr.New("INVALID_CONFIG_VALUE", "invalid configuration value"),
		map[string]string{"value": value, "valid": valid},
	)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	configPath := config.Path(cfg.Home)

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return coreerr.WithSuggestion(
			coreerr.ErrGeneral,
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", configPath),
		)
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = cfg.Home

	if err := config.Save(defaultCfg, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - server.url: Your login server endpoint")
	outln(w, "  - security.session_ttl_minutes: Session cache lifetime")
	outln(w, "  - output.default_format: Output format (text/json)")
	outln(w, "  - logging.level: Log level (off/error/debug)")

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	format := formatter.Format()

	if format == output.FormatJSON {
		return displayConfigJSON(w, cfg)
	}

	return displayConfigText(w, cfg)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	path := args[0]

	value, err := getConfigValue(cfg, path)
	if err != nil {
		return coreerr.WithSuggestion(
			coreerr.ErrNotFound,
			fmt.Sprintf("configuration path '%s' not found", path),
		)
	}

	w := cmd.OutOrStdout()
	outln(w, value)

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path := args[0]
	value := args[1]

	if _, err := getConfigValue(cfg, path); err != nil {
		return coreerr.WithSuggestion(
			coreerr.ErrNotFound,
			fmt.Sprintf("configuration path '%s' not found", path),
		)
	}

	configPath := config.Path(cfg.Home)
	currentCfg, err := config.Load(configPath)
	if err != nil {
		currentCfg = config.Defaults()
	}

	if err := setConfigValue(currentCfg, path, value); err != nil {
		return fmt.Errorf("setting config value: %w", err)
	}

	if err := config.Save(currentCfg, configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	w := cmd.OutOrStdout()
	out(w, "Set %s = %s\n", path, value)

	return nil
}

// getConfigValue retrieves a value from the config using dot notation.
func getConfigValue(c *config.Config, path string) (string, error) {
	parts := strings.Split(path, ".")

	switch len(parts) {
	case 1:
		switch parts[0] {
		case "home":
			return c.Home, nil
		default:
			return "", errUnknownConfigKey(map[string]string{"key": parts[0]})
		}
	case 2:
		switch parts[0] {
		case "server":
			return getServerValue(c, parts[1])
		case "security":
			return getSecurityValue(c, parts[1])
		case "output":
			return getOutputValue(c, parts[1])
		case "logging":
			return getLoggingValue(c, parts[1])
		default:
			return "", errUnknownConfigKey(map[string]string{"section": parts[0]})
		}
	default:
		return "", errUnknownConfigKey(map[string]string{"path": path})
	}
}

func getServerValue(c *config.Config, key string) (string, error) {
	switch key {
	case "url":
		return c.Server.URL, nil
	case "ca_bundle":
		return c.Server.CABundle, nil
	case "testnet":
		return fmt.Sprintf("%t", c.Server.Testnet), nil
	case "timeout_seconds":
		return fmt.Sprintf("%d", c.Server.TimeoutSeconds), nil
	default:
		return "", errUnknownConfigKey(map[string]string{"section": "server", "key": key})
	}
}

func getSecurityValue(c *config.Config, key string) (string, error) {
	switch key {
	case "session_enabled":
		return fmt.Sprintf("%t", c.Security.SessionEnabled), nil
	case "session_ttl_minutes":
		return fmt.Sprintf("%d", c.Security.SessionTTLMinutes), nil
	case "require_recovery_questions":
		return fmt.Sprintf("%t", c.Security.RequireRecoveryQuestions), nil
	default:
		return "", errUnknownConfigKey(map[string]string{"section": "security", "key": key})
	}
}

func getOutputValue(c *config.Config, key string) (string, error) {
	switch key {
	case "default_format":
		return c.Output.DefaultFormat, nil
	case "verbose":
		return fmt.Sprintf("%t", c.Output.Verbose), nil
	case "color":
		return c.Output.Color, nil
	default:
		return "", errUnknownConfigKey(map[string]string{"section": "output", "key": key})
	}
}

func getLoggingValue(c *config.Config, key string) (string, error) {
	switch key {
	case "level":
		return c.Logging.Level, nil
	case "file":
		return c.Logging.File, nil
	default:
		return "", errUnknownConfigKey(map[string]string{"section": "logging", "key": key})
	}
}

// setConfigValue sets a value in the config using dot notation.
func setConfigValue(c *config.Config, path, value string) error {
	parts := strings.Split(path, ".")

	switch len(parts) {
	case 1:
		switch parts[0] {
		case "home":
			c.Home = value
			return nil
		default:
			return errUnknownConfigKey(map[string]string{"key": parts[0]})
		}
	case 2:
		switch parts[0] {
		case "server":
			return setServerValue(c, parts[1], value)
		case "security":
			return setSecurityValue(c, parts[1], value)
		case "output":
			return setOutputValue(c, parts[1], value)
		case "logging":
			return setLoggingValue(c, parts[1], value)
		default:
			return errUnknownConfigKey(map[string]string{"section": parts[0]})
		}
	default:
		return errUnknownConfigKey(map[string]string{"path": path})
	}
}

func setServerValue(c *config.Config, key, value string) error {
	switch key {
	case "url":
		c.Server.URL = value
		return nil
	case "ca_bundle":
		c.Server.CABundle = value
		return nil
	case "testnet":
		c.Server.Testnet = value == "true"
		return nil
	case "timeout_seconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errInvalidConfigValue(value, "an integer number of seconds")
		}
		c.Server.TimeoutSeconds = n
		return nil
	default:
		return errUnknownConfigKey(map[string]string{"section": "server", "key": key})
	}
}

func setSecurityValue(c *config.Config, key, value string) error {
	switch key {
	case "session_enabled":
		c.Security.SessionEnabled = value == "true"
		return nil
	case "session_ttl_minutes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errInvalidConfigValue(value, "an integer number of minutes")
		}
		c.Security.SessionTTLMinutes = n
		return nil
	case "require_recovery_questions":
		c.Security.RequireRecoveryQuestions = value == "true"
		return nil
	default:
		return errUnknownConfigKey(map[string]string{"section": "security", "key": key})
	}
}

func setOutputValue(c *config.Config, key, value string) error {
	switch key {
	case "default_format":
		if value != "text" && value != "json" && value != "auto" {
			return errInvalidConfigValue(value, "text, json, or auto")
		}
		c.Output.DefaultFormat = value
		return nil
	case "verbose":
		c.Output.Verbose = value == "true"
		return nil
	case "color":
		if value != "auto" && value != "always" && value != "never" {
			return errInvalidConfigValue(value, "auto, always, or never")
		}
		c.Output.Color = value
		return nil
	default:
		return errUnknownConfigKey(map[string]string{"section": "output", "key": key})
	}
}

func setLoggingValue(c *config.Config, key, value string) error {
	switch key {
	case "level":
		validLevels := []string{"off", "error", "debug"}
		for _, l := range validLevels {
			if value == l {
				c.Logging.Level = value
				return nil
			}
		}
		return errInvalidConfigValue(value, "off, error, or debug")
	case "file":
		c.Logging.File = value
		return nil
	default:
		return errUnknownConfigKey(map[string]string{"section": "logging", "key": key})
	}
}

// displayConfigText shows the config in text format.
func displayConfigText(w interface {
	Write(p []byte) (n int, err error)
}, c *config.Config,
) error {
	outln(w, "Configuration:")
	outln(w)
	out(w, "  Home: %s\n", c.Home)
	outln(w)
	outln(w, "  Server:")
	url := c.Server.URL
	if url == "" {
		url = "(not configured)"
	}
	out(w, "    url: %s\n", url)
	out(w, "    testnet: %t\n", c.Server.Testnet)
	out(w, "    timeout_seconds: %d\n", c.Server.TimeoutSeconds)
	outln(w)
	outln(w, "  Security:")
	out(w, "    session_enabled: %t\n", c.Security.SessionEnabled)
	out(w, "    session_ttl_minutes: %d\n", c.Security.SessionTTLMinutes)
	out(w, "    require_recovery_questions: %t\n", c.Security.RequireRecoveryQuestions)
	outln(w)
	outln(w, "  Output:")
	out(w, "    default_format: %s\n", c.Output.DefaultFormat)
	out(w, "    verbose: %t\n", c.Output.Verbose)
	out(w, "    color: %s\n", c.Output.Color)
	outln(w)
	outln(w, "  Logging:")
	out(w, "    level: %s\n", c.Logging.Level)
	out(w, "    file: %s\n", c.Logging.File)

	return nil
}

// displayConfigJSON shows the config in JSON format.
func displayConfigJSON(w interface {
	Write(p []byte) (n int, err error)
}, c *config.Config,
) error {
	type serverJSON struct {
		URL            string `json:"url,omitempty"`
		Testnet        bool   `json:"testnet"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	}
	type securityJSON struct {
		SessionEnabled           bool `json:"session_enabled"`
		SessionTTLMinutes        int  `json:"session_ttl_minutes"`
		RequireRecoveryQuestions bool `json:"require_recovery_questions"`
	}
	type configJSON struct {
		Version  int          `json:"version"`
		Home     string       `json:"home"`
		Server   serverJSON   `json:"server"`
		Security securityJSON `json:"security"`
		Output   struct {
			DefaultFormat string `json:"default_format"`
			Color         string `json:"color"`
			Verbose       bool   `json:"verbose"`
		} `json:"output"`
		Logging struct {
			Level string `json:"level"`
			File  string `json:"file"`
		} `json:"logging"`
	}

	outCfg := configJSON{
		Version: c.Version,
		Home:    c.Home,
		Server: serverJSON{
			URL:            c.Server.URL,
			Testnet:        c.Server.Testnet,
			TimeoutSeconds: c.Server.TimeoutSeconds,
		},
		Security: securityJSON{
			SessionEnabled:           c.Security.SessionEnabled,
			SessionTTLMinutes:        c.Security.SessionTTLMinutes,
			RequireRecoveryQuestions: c.Security.RequireRecoveryQuestions,
		},
	}
	outCfg.Output.DefaultFormat = c.Output.DefaultFormat
	outCfg.Output.Color = c.Output.Color
	outCfg.Output.Verbose = c.Output.Verbose
	outCfg.Logging.Level = c.Logging.Level
	outCfg.Logging.File = c.Logging.File

	return writeJSON(w, outCfg)
}
