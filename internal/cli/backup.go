package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abcore/core/internal/cryptocore"
	"github.com/abcore/core/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// backupInput is the path to a backup file for restore/verify.
	backupInput string
	// backupUsername is the account username for backup operations.
	backupUsername string
	// restoreUsername is the username for the restored account.
	restoreUsername string
)

// backupCmd is the parent command for backup operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupCmd = &cobra.Command{
	Use:     "backup",
	Short:   "Manage account backups",
	Long:    `Create, verify, and restore encrypted account-slot backups.`,
	GroupID: "account",
}

// backupCreateCmd creates a backup.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account backup",
	Long: `Create an encrypted backup of an account slot.

The backup file is written to ~/.abc-core/backups/ with a timestamped
name. It bundles the CarePackage, LoginPackage, sync directory, and any
Wallet Key Records, encrypted with your account password.`,
	Example: `  abc-core backup create --username alice`,
	RunE:    runBackupCreate,
}

// backupVerifyCmd verifies a backup.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a backup file",
	Long: `Verify the structural integrity of a backup file.

This checks the archive format and SHA256 checksum without decrypting
the contents.`,
	Example: `  abc-core backup verify --input ~/.abc-core/backups/alice-2026-01-15-120000.abc-backup`,
	RunE:    runBackupVerify,
}

// backupRestoreCmd restores an account from backup.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore an account from backup",
	Long: `Restore an account slot from an encrypted backup file.

You will need the password used when creating the backup. The account
is allocated a fresh slot; optionally specify a new username.`,
	Example: `  abc-core backup restore --input alice-2026-01-15-120000.abc-backup
  abc-core backup restore --input backup.abc-backup --username alice-restored`,
	RunE: runBackupRestore,
}

// backupListCmd lists available backups.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available backups",
	Long:    `List all backup files in the backups directory.`,
	Example: `  abc-core backup list`,
	Aliases: []string{"ls"},
	RunE:    runBackupList,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupVerifyCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupListCmd)

	backupCreateCmd.Flags().StringVar(&backupUsername, "username", "", "account username (required)")
	_ = backupCreateCmd.MarkFlagRequired("username")

	backupVerifyCmd.Flags().StringVar(&backupInput, "input", "", "path to backup file (required)")
	_ = backupVerifyCmd.MarkFlagRequired("input")

	backupRestoreCmd.Flags().StringVar(&backupInput, "input", "", "path to backup file (required)")
	backupRestoreCmd.Flags().StringVar(&restoreUsername, "username", "", "new username for the restored account (optional)")
	_ = backupRestoreCmd.MarkFlagRequired("input")
}

func runBackupCreate(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	password, err := promptPasswordFn("Enter account password: ")
	if err != nil {
		return err
	}
	defer cryptocore.ZeroBytes(password)

	archive, backupPath, err := cc.BackupSvc.Create(backupUsername, password)
	if err != nil {
		return fmt.Errorf("creating backup: %w", err)
	}

	w := cmd.OutOrStdout()
	outln(w, "Backup created successfully!")
	outln(w)
	out(w, "  File:     %s\n", backupPath)
	out(w, "  Username: %s\n", archive.Manifest.Username)
	out(w, "  Files:    %d\n", archive.Manifest.FileCount)
	out(w, "  Wallets:  %d\n", archive.Manifest.WalletCount)
	out(w, "  Checksum: %s\n", archive.Checksum[:16]+"...")
	outln(w)
	outln(w, "Store this backup file securely. You will need your account password to restore it.")

	return nil
}

func runBackupVerify(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	manifest, err := cc.BackupSvc.Verify(backupInput)
	if err != nil {
		return fmt.Errorf("verifying backup: %w", err)
	}

	w := cmd.OutOrStdout()
	outln(w, "Backup structure verified successfully!")
	outln(w)
	out(w, "  Username: %s\n", manifest.Username)
	out(w, "  Created:  %s\n", manifest.CreatedAt.Format("2006-01-02 15:04:05"))
	out(w, "  Files:    %d\n", manifest.FileCount)
	out(w, "  Wallets:  %d\n", manifest.WalletCount)

	return nil
}

func runBackupRestore(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	manifest, err := cc.BackupSvc.Verify(backupInput)
	if err != nil {
		return fmt.Errorf("verifying backup: %w", err)
	}

	username := manifest.Username
	if restoreUsername != "" {
		username = restoreUsername
	}

	password, err := promptPasswordFn("Enter backup password: ")
	if err != nil {
		return err
	}
	defer cryptocore.ZeroBytes(password)

	if err := cc.BackupSvc.Restore(backupInput, password, restoreUsername); err != nil {
		return fmt.Errorf("restoring backup: %w", err)
	}

	w := cmd.OutOrStdout()
	outln(w, "Account restored successfully!")
	outln(w)
	out(w, "  Username: %s\n", username)
	outln(w)
	outln(w, "Log in with: abc-core login "+username)

	return nil
}

func runBackupList(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	backups, err := cc.BackupSvc.List()
	if err != nil {
		return fmt.Errorf("listing backups: %w", err)
	}

	w := cmd.OutOrStdout()
	format := cc.Fmt.Format()

	if len(backups) == 0 {
		if format == output.FormatJSON {
			outln(w, "[]")
		} else {
			outln(w, "No backups found.")
			outln(w, "Create one with: abc-core backup create --username <name>")
		}
		return nil
	}

	if format == output.FormatJSON {
		out(w, "[")
		for i, b := range backups {
			if i > 0 {
				out(w, ",")
			}
			out(w, `"%s"`, b)
		}
		outln(w, "]")
	} else {
		outln(w, "Backups:")
		for _, b := range backups {
			out(w, "  %s\n", b)
		}
	}

	return nil
}
