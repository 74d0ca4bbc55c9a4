package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/abcore/core/internal/accountbackup"
	"github.com/abcore/core/internal/accountstore"
	"github.com/abcore/core/internal/loginobject"
	"github.com/abcore/core/internal/loginserver"
	"github.com/abcore/core/internal/session"
)

// CommandContext bundles every collaborator a CLI command needs, built
// once in initGlobals and threaded through cobra's command context.
type CommandContext struct {
	Cfg ConfigProvider
	Log LogWriter
	Fmt FormatProvider

	Store      *accountstore.Store
	Server     *loginserver.Client
	Core       *loginobject.Core
	BackupSvc  *accountbackup.Service
	SessionMgr session.Manager
}

// NewCommandContext builds a CommandContext from the three bootstrap
// values initGlobals already has in hand. Collaborators that need the
// resolved home directory (Store, Server, Core, BackupSvc) are attached
// afterward via the With* builders once Cfg.GetHome()/GetServerURL() are
// known to be valid.
func NewCommandContext(cfg ConfigProvider, logger LogWriter, formatter FormatProvider) *CommandContext {
	return &CommandContext{Cfg: cfg, Log: logger, Fmt: formatter}
}

// WithStore attaches the Account Store.
func (c *CommandContext) WithStore(store *accountstore.Store) *CommandContext {
	c.Store = store
	return c
}

// WithServer attaches the Login Server Client.
func (c *CommandContext) WithServer(server *loginserver.Client) *CommandContext {
	c.Server = server
	return c
}

// WithCore attaches the Login Object.
func (c *CommandContext) WithCore(core *loginobject.Core) *CommandContext {
	c.Core = core
	return c
}

// WithBackupService attaches the account backup service.
func (c *CommandContext) WithBackupService(svc *accountbackup.Service) *CommandContext {
	c.BackupSvc = svc
	return c
}

// WithSessionManager attaches the session manager.
func (c *CommandContext) WithSessionManager(mgr session.Manager) *CommandContext {
	c.SessionMgr = mgr
	return c
}

type contextKey string

const cmdCtxKey contextKey = "abc-core-cmd-ctx"

// SetCmdContext stores cc on cmd's context so subcommands can retrieve it.
func SetCmdContext(cmd *cobra.Command, cc *CommandContext) {
	cmd.SetContext(context.WithValue(cmd.Context(), cmdCtxKey, cc))
}

// GetCmdContext retrieves the CommandContext previously stored by
// SetCmdContext, or nil if none is set.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	v := ctx.Value(cmdCtxKey)
	cc, _ := v.(*CommandContext)
	return cc
}
