package cli

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abcore/core/internal/cryptocore"
	"github.com/abcore/core/internal/output"
	"github.com/abcore/core/internal/walletkey"
	coreerr "github.com/abcore/core/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	walletSeedHex  string
	walletArchived bool
	walletUnset    bool
)

// walletCmd is the parent command for Wallet Key Record operations
// (§4.6).
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCmd = &cobra.Command{
	Use:     "wallet",
	Short:   "Manage an account's wallet key records",
	GroupID: "wallet",
	Long: `Manage the Wallet Key Records stored in an account's synced repo
(sync/Wallets/<UUID>.json), each encrypted under the account's master key.

abc-core stores and transports each wallet's Bitcoin seed only as an
opaque encrypted hex blob — it never derives addresses or keys from it.`,
}

// walletListCmd lists an account's wallet records (§4.6 "List").
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletListCmd = &cobra.Command{
	Use:     "list <username>",
	Short:   "List wallet key records, ordered by SortIndex",
	Long:    `List the Wallet Key Records stored in an account's sync repo, ordered by SortIndex.`,
	Aliases: []string{"ls"},
	Example: `  abc-core wallet list alice`,
	Args:    cobra.ExactArgs(1),
	RunE:    runWalletList,
}

// walletAddCmd creates a new wallet record (not a named §4.5/§4.6
// operation, but the natural write counterpart to List/Load/Save).
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a new wallet key record",
	Long: `Add a new wallet key record to an account's sync repo. A fresh
per-wallet master key and sync key are generated; the Bitcoin seed is
supplied by the caller as an opaque hex blob (§1 Non-goals: wallet seed
generation and derivation are out of scope).`,
	Example: `  abc-core wallet add alice --seed-hex 3f9a...`,
	Args:    cobra.ExactArgs(1),
	RunE:    runWalletAdd,
}

// walletArchiveCmd toggles a wallet record's Archived flag.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletArchiveCmd = &cobra.Command{
	Use:   "archive <username> <uuid>",
	Short: "Archive (or, with --unset, unarchive) a wallet key record",
	Long:  `Set a wallet key record's Archived flag, or clear it with --unset.`,
	Example: `  abc-core wallet archive alice 5a2e...
  abc-core wallet archive alice 5a2e... --unset`,
	Args: cobra.ExactArgs(2),
	RunE: runWalletArchive,
}

// walletReorderCmd rewrites SortIndex on a set of wallet records
// (§4.6 "Reorder").
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletReorderCmd = &cobra.Command{
	Use:   "reorder <username> <uuid>...",
	Short: "Reorder wallet key records",
	Long: `Rewrite SortIndex on each named wallet record to match the order the
UUIDs are given in. Only records whose SortIndex actually changes are
rewritten (§4.6 "Idempotent reorder").`,
	Example: `  abc-core wallet reorder alice 5a2e... 3f9a... 9c10...`,
	Args:    cobra.MinimumNArgs(2),
	RunE:    runWalletReorder,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletListCmd)
	walletCmd.AddCommand(walletAddCmd)
	walletCmd.AddCommand(walletArchiveCmd)
	walletCmd.AddCommand(walletReorderCmd)

	walletAddCmd.Flags().StringVar(&walletSeedHex, "seed-hex", "", "opaque hex-encoded Bitcoin seed blob (required)")
	_ = walletAddCmd.MarkFlagRequired("seed-hex")
	walletAddCmd.Flags().BoolVar(&walletArchived, "archived", false, "mark the new record archived")

	walletArchiveCmd.Flags().BoolVar(&walletUnset, "unset", false, "unarchive instead of archive")
}

func runWalletList(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	username := args[0]

	login, err := resolveLogin(cmd, cc, username)
	if err != nil {
		return err
	}
	defer login.Destroy()

	store := walletkey.New(cc.Store.SyncDir(login.Slot), login.MK)
	infos, skipped, err := store.List()
	if err != nil {
		return fmt.Errorf("listing wallets: %w", err)
	}
	for _, name := range skipped {
		cc.Log.Debug("skipped unreadable wallet record: %s", name)
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.Format() == output.FormatJSON {
		return printWalletListJSON(w, infos)
	}

	if len(infos) == 0 {
		outln(w, "No wallet key records found.")
		return nil
	}

	table := output.NewTable("UUID", "SORT INDEX", "ARCHIVED")
	for _, info := range infos {
		table.AddRow(info.UUID.String(), strconv.Itoa(info.SortIndex), strconv.FormatBool(info.Archived))
	}
	return table.Render(w)
}

func printWalletListJSON(w io.Writer, infos []*walletkey.Info) error {
	out(w, "[")
	for i, info := range infos {
		if i > 0 {
			out(w, ",")
		}
		out(w, `{"uuid": "%s", "sort_index": %d, "archived": %t}`, info.UUID.String(), info.SortIndex, info.Archived)
	}
	outln(w, "]")
	return nil
}

func runWalletAdd(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	username := args[0]

	login, err := resolveLogin(cmd, cc, username)
	if err != nil {
		return err
	}
	defer login.Destroy()

	seed, err := hex.DecodeString(walletSeedHex)
	if err != nil {
		return coreerr.WithSuggestion(
			coreerr.New("INVALID_SEED_HEX", "seed-hex is not valid hex"),
			"pass the Bitcoin seed as a hex-encoded string",
		)
	}

	walletMK, err := cryptocore.RandomBytes(walletkey.WalletMKLength)
	if err != nil {
		return fmt.Errorf("generating wallet master key: %w", err)
	}
	walletSyncKey, err := cryptocore.RandomBytes(walletkey.SyncKeyLength)
	if err != nil {
		return fmt.Errorf("generating wallet sync key: %w", err)
	}

	store := walletkey.New(cc.Store.SyncDir(login.Slot), login.MK)
	existing, _, err := store.List()
	if err != nil {
		return fmt.Errorf("listing existing wallets: %w", err)
	}

	info := &walletkey.Info{
		MK:          walletMK,
		BitcoinSeed: seed,
		SyncKey:     walletSyncKey,
		SortIndex:   len(existing),
		Archived:    walletArchived,
	}
	if err := store.Save(info); err != nil {
		return fmt.Errorf("saving wallet record: %w", err)
	}

	w := cmd.OutOrStdout()
	outln(w, "Wallet key record added!")
	out(w, "  UUID:       %s\n", info.UUID.String())
	out(w, "  SortIndex:  %d\n", info.SortIndex)
	return nil
}

func runWalletArchive(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	username, idArg := args[0], args[1]

	id, err := uuid.Parse(idArg)
	if err != nil {
		return coreerr.WithSuggestion(
			coreerr.New("INVALID_UUID", "not a valid wallet UUID"),
			"pass the UUID exactly as shown by 'abc-core wallet list'",
		)
	}

	login, err := resolveLogin(cmd, cc, username)
	if err != nil {
		return err
	}
	defer login.Destroy()

	store := walletkey.New(cc.Store.SyncDir(login.Slot), login.MK)
	info, err := store.Load(id)
	if err != nil {
		return fmt.Errorf("loading wallet record: %w", err)
	}

	info.Archived = !walletUnset
	if err := store.Save(info); err != nil {
		return fmt.Errorf("saving wallet record: %w", err)
	}

	if info.Archived {
		outln(cmd.OutOrStdout(), "Wallet archived.")
	} else {
		outln(cmd.OutOrStdout(), "Wallet unarchived.")
	}
	return nil
}

func runWalletReorder(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	username := args[0]

	order := make([]uuid.UUID, 0, len(args)-1)
	for _, idArg := range args[1:] {
		id, err := uuid.Parse(idArg)
		if err != nil {
			return coreerr.WithSuggestion(
				coreerr.New("INVALID_UUID", fmt.Sprintf("%q is not a valid wallet UUID", idArg)),
				"pass UUIDs exactly as shown by 'abc-core wallet list'",
			)
		}
		order = append(order, id)
	}

	login, err := resolveLogin(cmd, cc, username)
	if err != nil {
		return err
	}
	defer login.Destroy()

	store := walletkey.New(cc.Store.SyncDir(login.Slot), login.MK)
	if err := store.Reorder(order); err != nil {
		return fmt.Errorf("reordering wallets: %w", err)
	}

	outln(cmd.OutOrStdout(), "Wallet order updated.")
	return nil
}
