package config

// DefaultServerURL is the production login server endpoint.
const DefaultServerURL = "https://login.abcore.example/api/v1"

// DefaultTestnetServerURL is the test login server endpoint. It is not
// selected automatically: Server.Testnet does not change Server.URL.
const DefaultTestnetServerURL = "https://login-test.abcore.example/api/v1"

// DefaultServerTimeoutSeconds bounds a single login-server round trip.
const DefaultServerTimeoutSeconds = 30

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.abc-core",
		Server: ServerConfig{
			URL:            DefaultServerURL,
			CABundle:       "",
			Testnet:        false,
			TimeoutSeconds: DefaultServerTimeoutSeconds,
		},
		Security: SecurityConfig{
			SessionEnabled:           true,
			SessionTTLMinutes:        15,
			RequireRecoveryQuestions: false,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.abc-core/abc-core.log",
		},
	}
}
