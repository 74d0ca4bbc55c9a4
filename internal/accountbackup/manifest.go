// Package accountbackup implements whole-slot account backup and restore:
// bundling an account slot's CarePackage, LoginPackage, and sync
// directory (including any Wallet Key Records under it) into a single
// password-encrypted archive that can restore the slot onto a fresh
// Account Store without contacting the login server.
package accountbackup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	coreerr "github.com/abcore/core/pkg/errors"
)

// BackupVersion is the current backup format version.
const BackupVersion = 1

// BackupExtension is the file extension for account backup archives.
const BackupExtension = ".abc-backup"

var (
	// ErrBackupNotFound indicates the backup file was not found.
	ErrBackupNotFound = coreerr.New("BACKUP_NOT_FOUND", "backup file not found")

	// ErrBackupCorrupted indicates the backup checksum failed.
	ErrBackupCorrupted = coreerr.New("BACKUP_CORRUPTED", "backup corrupted: checksum mismatch")

	// ErrInvalidFormat indicates the backup format is invalid.
	ErrInvalidFormat = coreerr.New("BACKUP_INVALID_FORMAT", "invalid backup format")
)

// Archive is a complete account-slot backup.
type Archive struct {
	// Version is the backup format version.
	Version int `json:"version"`

	// Manifest contains backup metadata.
	Manifest Manifest `json:"manifest"`

	// EncryptedData is the password-encrypted Bundle envelope.
	EncryptedData json.RawMessage `json:"encrypted_data"`

	// Checksum is the SHA256 hash of EncryptedData.
	Checksum string `json:"checksum"`
}

// Manifest contains metadata about the backup that is readable without
// decrypting the archive, so callers can verify a backup's shape before
// attempting to restore it.
type Manifest struct {
	// Username is the normalized username of the backed up account.
	Username string `json:"username"`

	// CreatedAt is when the backup was created.
	CreatedAt time.Time `json:"created_at"`

	// FileCount is the number of files bundled from the slot directory.
	FileCount int `json:"file_count"`

	// WalletCount is the number of Wallet Key Records bundled.
	WalletCount int `json:"wallet_count"`

	// EncryptionMethod describes the encryption used on EncryptedData.
	EncryptionMethod string `json:"encryption_method"`
}

// Bundle is the decrypted payload of an Archive: every file under the
// account slot directory, keyed by its path relative to the slot root.
type Bundle struct {
	Files map[string][]byte `json:"files"`
}

// NewManifest creates a new backup manifest.
func NewManifest(username string, fileCount, walletCount int) Manifest {
	return Manifest{
		Username:         username,
		CreatedAt:        time.Now().UTC(),
		FileCount:        fileCount,
		WalletCount:      walletCount,
		EncryptionMethod: "scrypt-aes256cbc",
	}
}

// CalculateChecksum computes the SHA256 checksum of data.
func CalculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// VerifyChecksum verifies that data matches the expected checksum.
func VerifyChecksum(data []byte, expected string) error {
	actual := CalculateChecksum(data)
	if actual != expected {
		return fmt.Errorf("%w: expected %s, got %s", ErrBackupCorrupted, expected, actual)
	}
	return nil
}

// NewArchive creates a new archive with the given manifest and encrypted
// bundle.
func NewArchive(manifest Manifest, encryptedData []byte) *Archive {
	return &Archive{
		Version:       BackupVersion,
		Manifest:      manifest,
		EncryptedData: encryptedData,
		Checksum:      CalculateChecksum(encryptedData),
	}
}

// Validate checks the archive for structural consistency.
func (a *Archive) Validate() error {
	if a.Version != BackupVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidFormat, a.Version)
	}
	if a.Manifest.Username == "" {
		return fmt.Errorf("%w: missing username", ErrInvalidFormat)
	}
	if len(a.EncryptedData) == 0 {
		return fmt.Errorf("%w: no encrypted data", ErrInvalidFormat)
	}
	return VerifyChecksum(a.EncryptedData, a.Checksum)
}
