package accountbackup

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abcore/core/internal/accountstore"
	"github.com/abcore/core/internal/cryptocore"
	"github.com/abcore/core/internal/fileutil"
	"github.com/abcore/core/internal/keyderivation"
	coreerr "github.com/abcore/core/pkg/errors"
)

const (
	archiveDirPermissions  = 0o700
	archiveFilePermissions = 0o600

	walletsDirName = "Wallets"
)

// Service provides account backup and restore operations, bundling an
// entire account slot (CarePackage, LoginPackage, sync directory, Wallet
// Key Records) into a single encrypted archive.
type Service struct {
	backupDir string
	store     *accountstore.Store
}

// NewService creates a new account backup service.
func NewService(backupDir string, store *accountstore.Store) *Service {
	return &Service{backupDir: backupDir, store: store}
}

// Create bundles the account slot resolved by username into a password-
// encrypted archive and writes it to the backup directory. The password
// should be zeroed by the caller after this call returns.
func (s *Service) Create(username string, password []byte) (*Archive, string, error) {
	normalized, err := keyderivation.NormalizeUsername(username)
	if err != nil {
		return nil, "", err
	}

	slot, err := s.store.Resolve(normalized)
	if err != nil {
		return nil, "", err
	}

	bundle, walletCount, err := readSlotBundle(s.store.SlotDir(slot))
	if err != nil {
		return nil, "", err
	}

	bundleJSON, err := json.Marshal(bundle)
	if err != nil {
		return nil, "", fmt.Errorf("%w: serializing bundle: %w", coreerr.ErrJSONError, err)
	}

	encrypted, err := cryptocore.Encrypt(bundleJSON, password, cryptocore.EncryptTypeScryptKey)
	if err != nil {
		return nil, "", err
	}

	manifest := NewManifest(normalized, len(bundle.Files), walletCount)
	archive := NewArchive(manifest, encrypted)

	path, err := s.writeArchive(archive)
	if err != nil {
		return nil, "", err
	}
	return archive, path, nil
}

// Verify checks an archive's structural integrity without decrypting it.
func (s *Service) Verify(backupPath string) (*Manifest, error) {
	archive, err := s.readArchive(backupPath)
	if err != nil {
		return nil, err
	}
	if err := archive.Validate(); err != nil {
		return nil, err
	}
	return &archive.Manifest, nil
}

// Restore decrypts an archive and writes its bundled files into a freshly
// allocated slot for newUsername (or the archive's own username if
// newUsername is empty). The password should be zeroed by the caller
// after this call returns.
func (s *Service) Restore(backupPath string, password []byte, newUsername string) error {
	archive, err := s.readArchive(backupPath)
	if err != nil {
		return err
	}
	if err := archive.Validate(); err != nil {
		return err
	}

	plaintext, err := cryptocore.Decrypt(archive.EncryptedData, password)
	if err != nil {
		return err
	}

	var bundle Bundle
	if err := json.Unmarshal(plaintext, &bundle); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	username := newUsername
	if username == "" {
		username = archive.Manifest.Username
	}
	normalized, err := keyderivation.NormalizeUsername(username)
	if err != nil {
		return err
	}

	slot, err := s.store.Allocate(normalized)
	if err != nil {
		return err
	}

	slotDir := s.store.SlotDir(slot)
	for relPath, data := range bundle.Files {
		dir := filepath.Dir(filepath.Join(slotDir, relPath))
		if err := os.MkdirAll(dir, archiveDirPermissions); err != nil {
			return fmt.Errorf("%w: creating %s: %w", coreerr.ErrFileWriteError, dir, err)
		}
		if err := s.store.Save(slot, relPath, data); err != nil {
			return err
		}
	}
	return nil
}

// List returns all backup archive filenames in the backup directory.
func (s *Service) List() ([]string, error) {
	if err := os.MkdirAll(s.backupDir, archiveDirPermissions); err != nil {
		return nil, fmt.Errorf("%w: creating backup directory: %w", coreerr.ErrFileWriteError, err)
	}

	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading backup directory: %w", coreerr.ErrFileReadError, err)
	}

	var backups []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) == BackupExtension {
			backups = append(backups, entry.Name())
		}
	}
	return backups, nil
}

// BackupPath returns the path to a backup file under the backup directory.
func (s *Service) BackupPath(filename string) string {
	return filepath.Join(s.backupDir, filename)
}

func (s *Service) writeArchive(archive *Archive) (string, error) {
	if err := os.MkdirAll(s.backupDir, archiveDirPermissions); err != nil {
		return "", fmt.Errorf("%w: creating backup directory: %w", coreerr.ErrFileWriteError, err)
	}

	timestamp := time.Now().Format("2006-01-02-150405")
	filename := fmt.Sprintf("%s-%s%s", archive.Manifest.Username, timestamp, BackupExtension)
	path := filepath.Join(s.backupDir, filename)

	data, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: serializing archive: %w", coreerr.ErrJSONError, err)
	}

	if err := fileutil.WriteAtomic(path, data, archiveFilePermissions); err != nil {
		return "", fmt.Errorf("%w: writing archive: %w", coreerr.ErrFileWriteError, err)
	}
	return path, nil
}

func (s *Service) readArchive(path string) (*Archive, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is caller-selected, same trust boundary as the CLI invoking it
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBackupNotFound
		}
		return nil, fmt.Errorf("%w: reading archive: %w", coreerr.ErrFileReadError, err)
	}

	var archive Archive
	if err := json.Unmarshal(data, &archive); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	return &archive, nil
}

// readSlotBundle walks an account slot directory and reads every regular
// file except UserName.json (which Allocate writes for the restored
// slot) into a Bundle keyed by its slot-relative path, also reporting how
// many of those files are Wallet Key Records (sync/Wallets/*.json).
func readSlotBundle(slotDir string) (*Bundle, int, error) {
	bundle := &Bundle{Files: make(map[string][]byte)}
	walletCount := 0

	err := filepath.WalkDir(slotDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(slotDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "UserName.json" {
			return nil
		}

		data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from WalkDir over a controlled slot directory
		if err != nil {
			return err
		}
		bundle.Files[rel] = data

		if strings.HasPrefix(rel, "sync/"+walletsDirName+"/") && strings.HasSuffix(rel, ".json") {
			walletCount++
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: walking slot directory: %w", coreerr.ErrFileReadError, err)
	}

	return bundle, walletCount, nil
}
