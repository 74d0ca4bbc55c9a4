package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abcore/core/internal/recoveryshares"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	recoverySharesN      int
	recoverySharesK      int
	recoverySharesInputs []string
)

// recoverySharesCmd is the parent command for MK social-recovery splitting
// (SPEC_FULL.md §D.2, internal/recoveryshares).
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var recoverySharesCmd = &cobra.Command{
	Use:     "recovery-shares",
	Short:   "Split or reconstruct an account's master key via Shamir shares",
	GroupID: "account",
	Long: `Split an account's master key into shares that can be handed to trusted
contacts, or reconstruct it from a quorum of shares.

This is a purely additive, opt-in feature layered on top of the login
core: it does not change any account state on its own.`,
}

// recoverySharesSplitCmd splits an authenticated account's MK.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var recoverySharesSplitCmd = &cobra.Command{
	Use:   "split <username>",
	Short: "Split an account's master key into n shares requiring k to reconstruct",
	Long: `Split the authenticated account's master key into n shares, any k of
which reconstruct it. A cached session is reused when valid; otherwise the
account password is prompted for.`,
	Example: `  abc-core recovery-shares split alice --n 5 --k 3`,
	Args:    cobra.ExactArgs(1),
	RunE:    runRecoverySharesSplit,
}

// recoverySharesCombineCmd reconstructs MK from a quorum of shares.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var recoverySharesCombineCmd = &cobra.Command{
	Use:   "combine",
	Short: "Reconstruct a master key from a quorum of shares",
	Long: `Reconstruct a master key from at least k of its shares. The
reconstructed key is printed as hex; treat it as sensitive — anyone
holding it can decrypt the account's entire sync repo.`,
	Example: `  abc-core recovery-shares combine --share abc-mk-v1-3-1-... --share abc-mk-v1-3-2-... --share abc-mk-v1-3-4-...`,
	RunE:    runRecoverySharesCombine,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(recoverySharesCmd)
	recoverySharesCmd.AddCommand(recoverySharesSplitCmd)
	recoverySharesCmd.AddCommand(recoverySharesCombineCmd)

	recoverySharesSplitCmd.Flags().IntVar(&recoverySharesN, "n", 5, "total number of shares to generate")
	recoverySharesSplitCmd.Flags().IntVar(&recoverySharesK, "k", 3, "number of shares required to reconstruct the key")

	recoverySharesCombineCmd.Flags().StringArrayVar(&recoverySharesInputs, "share", nil, "a share string (required; repeat for each share)")
	_ = recoverySharesCombineCmd.MarkFlagRequired("share")
}

func runRecoverySharesSplit(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	username := args[0]

	login, err := resolveLogin(cmd, cc, username)
	if err != nil {
		return err
	}
	defer login.Destroy()

	shares, err := recoveryshares.Split(login.MK, recoverySharesN, recoverySharesK)
	if err != nil {
		return fmt.Errorf("splitting master key: %w", err)
	}

	w := cmd.OutOrStdout()
	outln(w, "Master key split successfully! Distribute each share to a different trusted contact.")
	outln(w)
	for i, share := range shares {
		out(w, "  Share %d: %s\n", i+1, share)
	}
	outln(w)
	out(w, "Any %d of these %d shares reconstruct the master key.\n", recoverySharesK, recoverySharesN)

	return nil
}

func runRecoverySharesCombine(cmd *cobra.Command, _ []string) error {
	mk, err := recoveryshares.Combine(recoverySharesInputs)
	if err != nil {
		return fmt.Errorf("reconstructing master key: %w", err)
	}

	w := cmd.OutOrStdout()
	outln(w, "Master key reconstructed. Handle this value as a secret.")
	out(w, "  MK: %s\n", hex.EncodeToString(mk))
	return nil
}
