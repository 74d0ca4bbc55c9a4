package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abcore/core/internal/output"
)

// syncCmd pulls/pushes the encrypted account repo (§4.5 "Sync").
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var syncCmd = &cobra.Command{
	Use:     "sync <username>",
	Short:   "Synchronize an account's encrypted repo",
	GroupID: "account",
	Long: `Synchronize the local copy of an account's encrypted sync repository
(Categories, Settings, Wallet Key Records) against the remote named by
its sync key.

Reuses a cached session when available; otherwise prompts for the
account password.`,
	Example: `  abc-core sync alice`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSync,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	username := args[0]

	login, err := resolveLogin(cmd, cc, username)
	if err != nil {
		return err
	}
	defer login.Destroy()

	ctx, cancel := contextWithTimeout(cmd, defaultCLITimeout)
	defer cancel()

	dirty, err := cc.Core.Sync(ctx, login)
	if err != nil {
		return fmt.Errorf("syncing: %w", err)
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.Format() == output.FormatJSON {
		out(w, `{"dirty": %t}`+"\n", dirty)
		return nil
	}

	if dirty {
		outln(w, "Sync complete — local state updated from remote.")
	} else {
		outln(w, "Sync complete — already up to date.")
	}
	return nil
}
