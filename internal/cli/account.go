package cli

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/cobra"

	"github.com/abcore/core/internal/cryptocore"
	"github.com/abcore/core/internal/keyderivation"
	"github.com/abcore/core/internal/loginobject"
	"github.com/abcore/core/internal/session"
	coreerr "github.com/abcore/core/pkg/errors"
)

// defaultCLITimeout bounds a single login-server round trip initiated
// from the CLI (account create/login/set-password/set-recovery/sync).
const defaultCLITimeout = 30 * time.Second

// maxUsernameSuggestDistance mirrors the teacher's MaxTypoDistance for
// BIP-39 word suggestions (internal/wallet/mnemonic.go), reused here for
// username typo suggestion (SPEC_FULL.md §D.4).
const maxUsernameSuggestDistance = 2

// accountCmd is the parent command for account-slot operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountCmd = &cobra.Command{
	Use:     "account",
	Short:   "Manage account slots",
	GroupID: "account",
	Long:    `Create accounts and manage the password and recovery credentials of an existing one.`,
}

// accountCreateCmd creates a brand-new account (§4.5 "Create").
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create a new account",
	Long: `Create a new account: registers it with the login server, allocates
a local account slot, and generates its master key and sync key.`,
	Example: `  abc-core account create alice`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAccountCreate,
}

// accountSetPasswordCmd changes an account's password (§4.5 "SetPassword").
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountSetPasswordCmd = &cobra.Command{
	Use:   "set-password <username>",
	Short: "Change an account's password",
	Long: `Change the password used to unlock an account's master key.

This always requires a fresh login with the current password — a cached
session is never used for this operation.`,
	Example: `  abc-core account set-password alice`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAccountSetPassword,
}

// accountSetRecoveryCmd installs or replaces recovery questions
// (§4.5 "SetRecovery").
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountSetRecoveryCmd = &cobra.Command{
	Use:   "set-recovery <username>",
	Short: "Set or replace recovery questions and answers",
	Long: `Install or replace the recovery-question path for an account, so it
can be unlocked with answers instead of a password.

This always requires a fresh login with the current password — a cached
session is never used for this operation.`,
	Example: `  abc-core account set-recovery alice`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAccountSetRecovery,
}

// accountRecoveryQuestionsCmd fetches an account's recovery questions
// (§4.5 "GetRecoveryQuestions").
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountRecoveryQuestionsCmd = &cobra.Command{
	Use:   "recovery-questions <username>",
	Short: "Show an account's recovery questions",
	Long: `Fetch and display the recovery questions configured for an account.
This does not require authentication beyond the username itself.`,
	Example: `  abc-core account recovery-questions alice`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAccountRecoveryQuestions,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountSetPasswordCmd)
	accountCmd.AddCommand(accountSetRecoveryCmd)
	accountCmd.AddCommand(accountRecoveryQuestionsCmd)
}

func runAccountCreate(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	username := args[0]

	password, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	defer cryptocore.ZeroBytes(password)

	ctx, cancel := contextWithTimeout(cmd, defaultCLITimeout)
	defer cancel()

	login, err := cc.Core.Create(ctx, username, string(password))
	if err != nil {
		return fmt.Errorf("creating account: %w", err)
	}
	defer login.Destroy()

	w := cmd.OutOrStdout()
	outln(w, "Account created successfully!")
	outln(w)
	out(w, "  Username: %s\n", login.Username)
	out(w, "  Slot:     %d\n", login.Slot)
	outln(w)
	outln(w, "Log in with: abc-core login "+login.Username)

	return nil
}

func runAccountSetPassword(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	username := args[0]

	ctx, cancel := contextWithTimeout(cmd, defaultCLITimeout)
	defer cancel()

	currentPassword, err := promptPasswordFn("Enter current password: ")
	if err != nil {
		return err
	}
	defer cryptocore.ZeroBytes(currentPassword)

	login, err := cc.Core.LoginFromPassword(ctx, username, string(currentPassword))
	if err != nil {
		return withUsernameSuggestion(cc, username, fmt.Errorf("login failed: %w", err))
	}
	defer login.Destroy()

	newPassword, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	defer cryptocore.ZeroBytes(newPassword)

	if err := cc.Core.SetPassword(ctx, login, string(newPassword)); err != nil {
		return fmt.Errorf("changing password: %w", err)
	}

	outln(cmd.OutOrStdout(), "Password changed successfully!")
	return nil
}

func runAccountSetRecovery(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	username := args[0]

	ctx, cancel := contextWithTimeout(cmd, defaultCLITimeout)
	defer cancel()

	password, err := promptPasswordFn("Enter current password: ")
	if err != nil {
		return err
	}
	defer cryptocore.ZeroBytes(password)

	login, err := cc.Core.LoginFromPassword(ctx, username, string(password))
	if err != nil {
		return withUsernameSuggestion(cc, username, fmt.Errorf("login failed: %w", err))
	}
	defer login.Destroy()

	questions, err := promptRecoveryQuestionsFn()
	if err != nil {
		return err
	}
	answers, err := promptRecoveryAnswersFn(questions)
	if err != nil {
		return err
	}

	if err := cc.Core.SetRecovery(ctx, login, questions, answers); err != nil {
		return fmt.Errorf("setting recovery: %w", err)
	}

	outln(cmd.OutOrStdout(), "Recovery questions set successfully!")
	return nil
}

func runAccountRecoveryQuestions(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	username := args[0]

	ctx, cancel := contextWithTimeout(cmd, defaultCLITimeout)
	defer cancel()

	questions, err := cc.Core.GetRecoveryQuestions(ctx, username)
	if err != nil {
		return withUsernameSuggestion(cc, username, fmt.Errorf("fetching recovery questions: %w", err))
	}

	w := cmd.OutOrStdout()
	outln(w, "Recovery questions:")
	out(w, "%s\n", questions)
	return nil
}

// usernameSuggestion returns the closest locally-known username to
// username by Levenshtein distance, or "" if none is close enough
// (SPEC_FULL.md §D.4, grounded on the teacher's
// internal/wallet/mnemonic.go SuggestWord).
func usernameSuggestion(cc *CommandContext, username string) string {
	if cc == nil || cc.Store == nil {
		return ""
	}
	names, err := cc.Store.ListUsernames()
	if err != nil || len(names) == 0 {
		return ""
	}

	norm, err := keyderivation.NormalizeUsername(username)
	if err != nil {
		norm = username
	}

	best := ""
	bestDist := math.MaxInt
	for _, name := range names {
		dist := levenshtein.ComputeDistance(norm, name)
		if dist < bestDist {
			bestDist = dist
			best = name
		}
	}

	if bestDist > 0 && bestDist <= maxUsernameSuggestDistance {
		return best
	}
	return ""
}

// withUsernameSuggestion attaches a "did you mean" suggestion to err when
// it is ErrAccountDoesNotExist and a known username lies within
// maxUsernameSuggestDistance; the closest one is suggested (the first
// listed, on a tie).
func withUsernameSuggestion(cc *CommandContext, username string, err error) error {
	if err == nil || !errors.Is(err, coreerr.ErrAccountDoesNotExist) {
		return err
	}
	if suggestion := usernameSuggestion(cc, username); suggestion != "" {
		return coreerr.WithSuggestion(err, fmt.Sprintf("did you mean %q?", suggestion))
	}
	return err
}

// maybeStartSession caches login's master key and sync key in the OS keyring
// when session caching is enabled and available (SPEC_FULL.md §D.3).
// Failures are silent: session caching is a convenience, never a
// requirement for the operation that just succeeded.
func maybeStartSession(cc *CommandContext, login *loginobject.Login) {
	if cc == nil || cc.SessionMgr == nil || !cc.SessionMgr.Available() {
		return
	}
	sec := cc.Cfg.GetSecurity()
	if !sec.SessionEnabled {
		return
	}

	ttl := time.Duration(sec.SessionTTLMinutes) * time.Minute
	switch {
	case ttl <= 0:
		ttl = session.DefaultTTL
	case ttl > session.MaxTTL:
		ttl = session.MaxTTL
	case ttl < session.MinTTL:
		ttl = session.MinTTL
	}

	_ = cc.SessionMgr.StartSession(&session.Principal{
		Username: login.Username,
		Slot:     login.Slot,
		MK:       login.MK,
		SyncKey:  login.SyncKey,
	}, ttl)
}
