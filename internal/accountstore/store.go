// Package accountstore implements the Account Store (§4.3): the
// on-disk account-slot directory layout under a configured root,
// username-to-slot resolution, and raw slot file load/save.
package accountstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/abcore/core/internal/fileutil"
	"github.com/abcore/core/internal/keyderivation"
)

const (
	// MaxAccounts is ACCOUNT_MAX: the maximum number of account slots
	// under a root.
	MaxAccounts = 1024

	accountsDirName  = "Accounts"
	testnetSuffix    = "-testnet"
	slotPrefix       = "Account"
	syncSubdir       = "sync"
	usernameFileName = "UserName.json"

	// CarePackageFileName and LoginPackageFileName are the slot files LO
	// reads and writes (§6 filesystem layout).
	CarePackageFileName  = "CarePackage.json"
	LoginPackageFileName = "LoginPackage.json"

	dirPerm  = 0o700
	filePerm = 0o600
)

// Store is the Account Store: a configured root directory plus the
// slot-naming and resolution logic over it.
type Store struct {
	root string
}

// New returns a Store rooted at baseRoot/Accounts, or
// baseRoot/Accounts-testnet when testnet is true (§4.3 "Root directory
// selection").
func New(baseRoot string, testnet bool) *Store {
	name := accountsDirName
	if testnet {
		name += testnetSuffix
	}
	return &Store{root: filepath.Join(baseRoot, name)}
}

// Root returns the store's root directory (Accounts[-testnet]).
func (s *Store) Root() string {
	return s.root
}

// SlotDir returns the directory for a given slot number.
func (s *Store) SlotDir(slot int) string {
	return filepath.Join(s.root, fmt.Sprintf("%s%d", slotPrefix, slot))
}

// SyncDir returns Accounts/Account<N>/sync (§4.3 "sync_dir").
func (s *Store) SyncDir(slot int) string {
	return filepath.Join(s.SlotDir(slot), syncSubdir)
}

type usernameFile struct {
	UserName string `json:"userName"`
}

// Resolve scans Accounts/Account*/UserName.json for a slot whose
// normalized username matches. Returns ErrAccountDoesNotExist when no
// slot matches (§4.3 "resolve").
func (s *Store) Resolve(normalizedUsername string) (int, error) {
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return 0, ErrAccountDoesNotExist
	}
	if err != nil {
		return 0, fmt.Errorf("%w: scanning %s: %w", coreFileReadErr(), s.root, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), slotPrefix) {
			continue
		}
		slot, ok := parseSlotNumber(entry.Name())
		if !ok {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.root, entry.Name(), usernameFileName)) //nolint:gosec // G304: path built from a controlled root + validated slot dir name
		if err != nil {
			continue
		}

		var uf usernameFile
		if err := json.Unmarshal(data, &uf); err != nil {
			continue
		}

		normalized, err := keyderivation.NormalizeUsername(uf.UserName)
		if err != nil {
			continue
		}
		if normalized == normalizedUsername {
			return slot, nil
		}
	}

	return 0, ErrAccountDoesNotExist
}

func parseSlotNumber(dirName string) (int, bool) {
	numStr := strings.TrimPrefix(dirName, slotPrefix)
	n, err := strconv.Atoi(numStr)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Allocate picks the lowest free slot number, creates its directory, and
// writes UserName.json atomically. Fails ErrNoAvailAccountSpace if every
// slot in 0..MaxAccounts-1 is taken, ErrAccountAlreadyExists if the
// username already resolves to a slot (§4.3 "allocate").
func (s *Store) Allocate(normalizedUsername string) (int, error) {
	if _, err := s.Resolve(normalizedUsername); err == nil {
		return 0, ErrAccountAlreadyExists
	}

	if err := os.MkdirAll(s.root, dirPerm); err != nil {
		return 0, fmt.Errorf("%w: creating root %s: %w", coreFileWriteErr(), s.root, err)
	}

	taken := make(map[int]bool, MaxAccounts)
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("%w: scanning %s: %w", coreFileReadErr(), s.root, err)
	}
	for _, entry := range entries {
		if slot, ok := parseSlotNumber(entry.Name()); ok && entry.IsDir() {
			taken[slot] = true
		}
	}

	slot := -1
	for candidate := 0; candidate < MaxAccounts; candidate++ {
		if !taken[candidate] {
			slot = candidate
			break
		}
	}
	if slot == -1 {
		return 0, ErrNoAvailAccountSpace
	}

	if err := os.MkdirAll(s.SlotDir(slot), dirPerm); err != nil {
		return 0, fmt.Errorf("%w: creating slot dir: %w", coreFileWriteErr(), err)
	}

	data, err := json.Marshal(usernameFile{UserName: normalizedUsername})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", coreJSONErr(), err)
	}
	if err := fileutil.WriteAtomic(filepath.Join(s.SlotDir(slot), usernameFileName), data, filePerm); err != nil {
		return 0, fmt.Errorf("%w: writing UserName.json: %w", coreFileWriteErr(), err)
	}

	return slot, nil
}

// Exists reports whether slot/file is present.
func (s *Store) Exists(slot int, file string) bool {
	_, err := os.Stat(filepath.Join(s.SlotDir(slot), file))
	return err == nil
}

// Load reads slot/file's raw bytes.
func (s *Store) Load(slot int, file string) ([]byte, error) {
	path := filepath.Join(s.SlotDir(slot), file)
	data, err := os.ReadFile(path) //nolint:gosec // G304: path built from a controlled root + caller-selected slot file name
	if os.IsNotExist(err) {
		return nil, ErrFileDoesNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", coreFileReadErr(), path, err)
	}
	return data, nil
}

// Save atomically writes slot/file's raw bytes (§5 "replace-whole-file").
func (s *Store) Save(slot int, file string, data []byte) error {
	if err := os.MkdirAll(s.SlotDir(slot), dirPerm); err != nil {
		return fmt.Errorf("%w: creating slot dir: %w", coreFileWriteErr(), err)
	}
	path := filepath.Join(s.SlotDir(slot), file)
	if err := fileutil.WriteAtomic(path, data, filePerm); err != nil {
		return fmt.Errorf("%w: writing %s: %w", coreFileWriteErr(), path, err)
	}
	return nil
}

// ListUsernames returns the normalized username stored in every
// allocated slot, in ascending slot order. Slots whose UserName.json is
// missing or unreadable are skipped rather than failing the whole scan —
// the same tolerance Resolve applies to individual entries.
func (s *Store) ListUsernames() ([]string, error) {
	slots, err := s.ListSlots()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(slots))
	for _, slot := range slots {
		data, err := os.ReadFile(filepath.Join(s.SlotDir(slot), usernameFileName)) //nolint:gosec // G304: path built from a controlled root + validated slot number
		if err != nil {
			continue
		}
		var uf usernameFile
		if err := json.Unmarshal(data, &uf); err != nil {
			continue
		}
		names = append(names, uf.UserName)
	}
	return names, nil
}

// ListSlots returns every allocated slot number in ascending order.
func (s *Store) ListSlots() ([]int, error) {
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scanning %s: %w", coreFileReadErr(), s.root, err)
	}

	var slots []int
	for _, entry := range entries {
		if slot, ok := parseSlotNumber(entry.Name()); ok && entry.IsDir() {
			slots = append(slots, slot)
		}
	}
	sort.Ints(slots)
	return slots, nil
}
