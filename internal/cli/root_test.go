package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abcore/core/internal/config"
	"github.com/abcore/core/internal/output"
	coreerr "github.com/abcore/core/pkg/errors"
)

// errTestRandom is used for testing non-CoreError error handling.
var errTestRandom = errors.New("some random error")

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "nil error returns success",
			err:  nil,
			want: coreerr.ExitSuccess,
		},
		{
			name: "general error",
			err:  coreerr.ErrGeneral,
			want: coreerr.ExitGeneral,
		},
		{
			name: "bad password error",
			err:  coreerr.ErrBadPassword,
			want: coreerr.ExitAuth,
		},
		{
			name: "account does not exist error",
			err:  coreerr.ErrAccountDoesNotExist,
			want: coreerr.ExitNotFound,
		},
		{
			name: "account already exists error",
			err:  coreerr.ErrAccountAlreadyExists,
			want: coreerr.ExitInput,
		},
		{
			name: "non-CoreError returns general",
			err:  errTestRandom,
			want: coreerr.ExitGeneral,
		},
		{
			name: "wrapped CoreError preserves exit code",
			err:  coreerr.Wrap(coreerr.ErrBadPassword, "login failed"),
			want: coreerr.ExitAuth,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ExitCode(tc.err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// TestGlobalGetters tests Config(), Logger(), Formatter(), Context() getters.
// NOT parallel: mutates package-level globals.
func TestGlobalGetters(t *testing.T) {
	origCfg := cfg
	origLogger := logger
	origFormatter := formatter
	origCmdCtx := cmdCtx
	defer func() {
		cfg = origCfg
		logger = origLogger
		formatter = origFormatter
		cmdCtx = origCmdCtx
	}()

	testCfg := config.Defaults()
	testLogger := config.NullLogger()
	testFmt := output.NewFormatter(output.FormatText, nil)
	testCtx := &CommandContext{Cfg: testCfg}

	cfg = testCfg
	logger = testLogger
	formatter = testFmt
	cmdCtx = testCtx

	assert.Equal(t, testCfg, Config())
	assert.Equal(t, testLogger, Logger())
	assert.Equal(t, testFmt, Formatter())
	assert.Equal(t, testCtx, Context())
}

// TestCleanup_NilLogger verifies cleanup doesn't panic with nil logger/context.
func TestCleanup_NilLogger(t *testing.T) {
	origLogger := logger
	origCmdCtx := cmdCtx
	defer func() {
		logger = origLogger
		cmdCtx = origCmdCtx
	}()

	logger = nil
	cmdCtx = nil
	assert.NotPanics(t, func() { cleanup() })
}

// TestCleanup_WithLogger verifies cleanup doesn't panic with a valid logger.
func TestCleanup_WithLogger(t *testing.T) {
	origLogger := logger
	defer func() { logger = origLogger }()

	logger = config.NullLogger()
	assert.NotPanics(t, func() { cleanup() })
}

// TestFormatErr_NilFormatter verifies formatErr with nil formatter doesn't panic.
func TestFormatErr_NilFormatter(t *testing.T) {
	origFormatter := formatter
	defer func() { formatter = origFormatter }()

	formatter = nil
	assert.NotPanics(t, func() { formatErr(coreerr.ErrGeneral) })
}

// TestFormatErr_WithFormatter verifies formatErr with a valid formatter doesn't panic.
func TestFormatErr_WithFormatter(t *testing.T) {
	origFormatter := formatter
	defer func() { formatter = origFormatter }()

	formatter = output.NewFormatter(output.FormatText, nil)
	assert.NotPanics(t, func() { formatErr(coreerr.ErrGeneral) })
}

// TestFormatErr_JSONFormat verifies formatErr with JSON formatter doesn't panic.
func TestFormatErr_JSONFormat(t *testing.T) {
	origFormatter := formatter
	defer func() { formatter = origFormatter }()

	formatter = output.NewFormatter(output.FormatJSON, nil)
	assert.NotPanics(t, func() { formatErr(coreerr.ErrBadPassword) })
}

// --- Tests for initGlobals ---

// saveGlobals saves all package-level globals and returns a restore function.
func saveGlobals(t *testing.T) func() {
	t.Helper()
	origCfg := cfg
	origLogger := logger
	origFormatter := formatter
	origCmdCtx := cmdCtx
	origHomeDir := homeDir
	origOutputFormat := outputFormat
	origVerbose := verbose
	return func() {
		cfg = origCfg
		logger = origLogger
		formatter = origFormatter
		cmdCtx = origCmdCtx
		homeDir = origHomeDir
		outputFormat = origOutputFormat
		verbose = origVerbose
	}
}

func TestInitGlobals_DefaultConfig(t *testing.T) {
	restore := saveGlobals(t)
	defer restore()

	tmpDir, err := os.MkdirTemp("", "abc-core-initglobals-test")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	homeDir = tmpDir
	outputFormat = ""
	verbose = false

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	err = initGlobals(cmd)
	require.NoError(t, err)

	require.NotNil(t, cfg, "cfg should be set")
	require.NotNil(t, logger, "logger should be set")
	require.NotNil(t, formatter, "formatter should be set")
	require.NotNil(t, cmdCtx, "cmdCtx should be set")
	require.NotNil(t, cmdCtx.Store, "store should be attached")
	require.NotNil(t, cmdCtx.Core, "login object should be attached")
	require.NotNil(t, cmdCtx.BackupSvc, "backup service should be attached")
	require.NotNil(t, cmdCtx.SessionMgr, "session manager should be attached")

	assert.Equal(t, tmpDir, cfg.Home)
}

func TestInitGlobals_VerboseFlag(t *testing.T) {
	restore := saveGlobals(t)
	defer restore()

	tmpDir, err := os.MkdirTemp("", "abc-core-initglobals-verbose")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	homeDir = tmpDir
	outputFormat = ""
	verbose = true

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	err = initGlobals(cmd)
	require.NoError(t, err)

	assert.True(t, cfg.Output.Verbose)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestInitGlobals_OutputFormatFlag(t *testing.T) {
	restore := saveGlobals(t)
	defer restore()

	tmpDir, err := os.MkdirTemp("", "abc-core-initglobals-format")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	homeDir = tmpDir
	outputFormat = "json"
	verbose = false

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	err = initGlobals(cmd)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Output.DefaultFormat)
}

func TestInitGlobals_WithExistingConfig(t *testing.T) {
	restore := saveGlobals(t)
	defer restore()

	tmpDir, err := os.MkdirTemp("", "abc-core-initglobals-existing")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	testCfg := config.Defaults()
	testCfg.Home = tmpDir
	testCfg.Logging.Level = "warn"
	configPath := config.Path(tmpDir)
	require.NoError(t, os.MkdirAll(tmpDir, 0o750))
	require.NoError(t, config.Save(testCfg, configPath))

	homeDir = tmpDir
	outputFormat = ""
	verbose = false

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	err = initGlobals(cmd)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestInitGlobals_EnvHome(t *testing.T) {
	restore := saveGlobals(t)
	defer restore()

	tmpDir, err := os.MkdirTemp("", "abc-core-initglobals-env")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	homeDir = ""
	outputFormat = ""
	verbose = false
	t.Setenv(config.EnvHome, tmpDir)

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	err = initGlobals(cmd)
	require.NoError(t, err)

	assert.Equal(t, tmpDir, cfg.Home)
}

func TestInitGlobals_WithServerURL(t *testing.T) {
	restore := saveGlobals(t)
	defer restore()

	tmpDir, err := os.MkdirTemp("", "abc-core-initglobals-server")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	testCfg := config.Defaults()
	testCfg.Home = tmpDir
	testCfg.Server.URL = "https://login.example.test"
	configPath := config.Path(tmpDir)
	require.NoError(t, os.MkdirAll(tmpDir, 0o750))
	require.NoError(t, config.Save(testCfg, configPath))

	homeDir = tmpDir
	outputFormat = ""
	verbose = false

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	err = initGlobals(cmd)
	require.NoError(t, err)

	require.NotNil(t, cmdCtx.Server, "login server client should be attached when a URL is configured")
}

// --- Tests for cleanup/Execute ---

func TestCleanup_LoggerCloseError(t *testing.T) {
	origLogger := logger
	defer func() { logger = origLogger }()

	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")
	testLogger, err := config.NewLogger(config.ParseLogLevel("debug"), logPath)
	require.NoError(t, err)

	require.NoError(t, testLogger.Close())

	logger = testLogger

	assert.NotPanics(t, func() { cleanup() })
}

func TestExecute_VersionCommand(t *testing.T) {
	restore := saveGlobals(t)
	defer restore()

	origArgs := os.Args
	os.Args = []string{"abc-core", "version"}
	defer func() { os.Args = origArgs }()

	err := Execute()
	assert.NoError(t, err)
}
