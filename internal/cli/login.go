package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abcore/core/internal/cryptocore"
	"github.com/abcore/core/internal/keyderivation"
	"github.com/abcore/core/internal/loginobject"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var loginUseRecovery bool

// loginCmd authenticates against an account (§4.5 "LoginFromPassword" /
// "LoginFromRecovery"). It is a top-level command, not nested under
// "account", because it is the most frequently run operation.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var loginCmd = &cobra.Command{
	Use:     "login <username>",
	Short:   "Authenticate against an account",
	GroupID: "account",
	Long: `Authenticate against an account, by password or (with --recovery) by
recovery answers.

On success the account's master key and sync key are unlocked in memory
for the duration of this command, and — when session caching is enabled
— cached in the OS keyring for subsequent commands to reuse.`,
	Example: `  abc-core login alice
  abc-core login alice --recovery`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().BoolVar(&loginUseRecovery, "recovery", false, "authenticate with recovery answers instead of a password")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	username := args[0]

	ctx, cancel := contextWithTimeout(cmd, defaultCLITimeout)
	defer cancel()

	var login *loginobject.Login
	var err error

	if loginUseRecovery {
		questions, qErr := cc.Core.GetRecoveryQuestions(ctx, username)
		if qErr != nil {
			return withUsernameSuggestion(cc, username, fmt.Errorf("fetching recovery questions: %w", qErr))
		}
		answers, aErr := promptRecoveryAnswersFn(questions)
		if aErr != nil {
			return aErr
		}
		login, err = cc.Core.LoginFromRecovery(ctx, username, answers)
	} else {
		password, pErr := promptPasswordFn("Enter account password: ")
		if pErr != nil {
			return pErr
		}
		defer cryptocore.ZeroBytes(password)
		login, err = cc.Core.LoginFromPassword(ctx, username, string(password))
	}

	if err != nil {
		return withUsernameSuggestion(cc, username, fmt.Errorf("login failed: %w", err))
	}
	defer login.Destroy()

	maybeStartSession(cc, login)

	w := cmd.OutOrStdout()
	outln(w, "Login successful!")
	outln(w)
	out(w, "  Username: %s\n", login.Username)
	out(w, "  Slot:     %d\n", login.Slot)
	out(w, "  Recovery: %t\n", login.HasRecovery())

	return nil
}

// resolveLogin returns an authenticated principal for username, reusing a
// cached session when one is valid and falling back to an interactive
// password login otherwise. Operations that only need MK/SyncKey (sync,
// wallet key records) use this; operations that mutate server-side
// authenticators (set-password, set-recovery) always force a fresh login
// instead (§5 "Operations that need the login keys... always require a
// fresh login").
func resolveLogin(cmd *cobra.Command, cc *CommandContext, username string) (*loginobject.Login, error) {
	norm, err := keyderivation.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}

	if cc.SessionMgr != nil && cc.SessionMgr.Available() {
		if principal, _, sErr := cc.SessionMgr.GetSession(norm); sErr == nil {
			return &loginobject.Login{
				Username:   principal.Username,
				Slot:       principal.Slot,
				MK:         principal.MK,
				SyncKey:    principal.SyncKey,
				SyncKeyHex: hex.EncodeToString(principal.SyncKey),
			}, nil
		}
	}

	ctx, cancel := contextWithTimeout(cmd, defaultCLITimeout)
	defer cancel()

	password, err := promptPasswordFn("Enter account password: ")
	if err != nil {
		return nil, err
	}
	defer cryptocore.ZeroBytes(password)

	login, err := cc.Core.LoginFromPassword(ctx, norm, string(password))
	if err != nil {
		return nil, withUsernameSuggestion(cc, username, fmt.Errorf("login failed: %w", err))
	}
	maybeStartSession(cc, login)
	return login, nil
}
