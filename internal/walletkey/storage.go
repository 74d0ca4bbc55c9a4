// Package walletkey implements the Wallet Key Record (§4.6): per-wallet
// encrypted records living in the account's synced Wallets/ directory,
// each wrapping a per-wallet MK, Bitcoin seed, and sync key under the
// account master key.
package walletkey

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/abcore/core/internal/cryptocore"
	"github.com/abcore/core/internal/fileutil"
)

const (
	recordExtension = ".json"
	dirPerm         = 0o700
	filePerm        = 0o600

	walletMKLength  = 32
	syncKeyLength   = 20
)

// Info is one wallet's cleartext record (§4.6 "Fields: MK, BitcoinSeed,
// SyncKey, SortIndex, Archived").
type Info struct {
	UUID        uuid.UUID
	MK          []byte
	BitcoinSeed []byte
	SyncKey     []byte
	SortIndex   int
	Archived    bool
}

// record is the on-disk cleartext shape before/after MK-encryption, hex
// encoding byte fields the way CarePackage/LoginPackage hex-encode theirs.
type record struct {
	MK          string `json:"MK"`
	BitcoinSeed string `json:"BitcoinSeed"`
	SyncKey     string `json:"SyncKey"`
	SortIndex   int    `json:"SortIndex"`
	Archived    bool   `json:"Archived"`
}

// Store is the Wallet Key Record store: a Wallets/ directory under one
// account's sync dir, encrypted under that account's MK.
type Store struct {
	dir string
	mk  []byte
}

// New returns a Store rooted at syncDir/Wallets, encrypting and
// decrypting records under mk.
func New(syncDir string, mk []byte) *Store {
	return &Store{dir: filepath.Join(syncDir, "Wallets"), mk: mk}
}

func (s *Store) path(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+recordExtension)
}

func toRecord(info *Info) record {
	return record{
		MK:          hex.EncodeToString(info.MK),
		BitcoinSeed: hex.EncodeToString(info.BitcoinSeed),
		SyncKey:     hex.EncodeToString(info.SyncKey),
		SortIndex:   info.SortIndex,
		Archived:    info.Archived,
	}
}

func fromRecord(id uuid.UUID, r record) (*Info, error) {
	mk, err := hex.DecodeString(r.MK)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding MK: %w", coreJSONErr(), err)
	}
	seed, err := hex.DecodeString(r.BitcoinSeed)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding BitcoinSeed: %w", coreJSONErr(), err)
	}
	syncKey, err := hex.DecodeString(r.SyncKey)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding SyncKey: %w", coreJSONErr(), err)
	}
	return &Info{
		UUID: id, MK: mk, BitcoinSeed: seed, SyncKey: syncKey,
		SortIndex: r.SortIndex, Archived: r.Archived,
	}, nil
}

// Save encrypts and writes one wallet record, creating Wallets/ if
// necessary. If info.UUID is the zero value, a new UUID is generated.
func (s *Store) Save(info *Info) error {
	if info.UUID == uuid.Nil {
		info.UUID = uuid.New()
	}
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("%w: creating %s: %w", coreFileWriteErr(), s.dir, err)
	}

	plaintext, err := json.Marshal(toRecord(info))
	if err != nil {
		return fmt.Errorf("%w: %w", coreJSONErr(), err)
	}
	envelope, err := cryptocore.EncryptDirect(plaintext, s.mk)
	if err != nil {
		return err
	}
	if err := fileutil.WriteAtomic(s.path(info.UUID), envelope, filePerm); err != nil {
		return fmt.Errorf("%w: writing %s: %w", coreFileWriteErr(), s.path(info.UUID), err)
	}
	return nil
}

// Load reads and decrypts a single wallet record.
func (s *Store) Load(id uuid.UUID) (*Info, error) {
	data, err := os.ReadFile(s.path(id)) //nolint:gosec // G304: path built from a controlled root + a parsed UUID
	if os.IsNotExist(err) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", coreFileReadErr(), s.path(id), err)
	}
	return s.decode(id, data)
}

func (s *Store) decode(id uuid.UUID, envelopeJSON []byte) (*Info, error) {
	plaintext, err := cryptocore.Decrypt(envelopeJSON, s.mk)
	if err != nil {
		return nil, err
	}
	var r record
	if err := json.Unmarshal(plaintext, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", coreJSONErr(), err)
	}
	return fromRecord(id, r)
}

// List enumerates every decryptable wallet record in Wallets/, sorted by
// SortIndex ascending with a stable tie-break by load (directory scan)
// order (§4.6 "List"). Entries whose basename does not parse as a UUID,
// or that fail to decrypt/parse, are skipped rather than deleted (§4.6
// invariant) — skipped files are reported to the caller for logging.
func (s *Store) List() ([]*Info, []string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading %s: %w", coreFileReadErr(), s.dir, err)
	}

	var infos []*Info
	var skipped []string

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExtension) {
			continue
		}
		idStr := strings.TrimSuffix(entry.Name(), recordExtension)
		id, err := uuid.Parse(idStr)
		if err != nil {
			skipped = append(skipped, entry.Name())
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name())) //nolint:gosec // G304: path built from a controlled root + a directory listing
		if err != nil {
			skipped = append(skipped, entry.Name())
			continue
		}
		info, err := s.decode(id, data)
		if err != nil {
			skipped = append(skipped, entry.Name())
			continue
		}
		infos = append(infos, info)
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].SortIndex < infos[j].SortIndex
	})

	return infos, skipped, nil
}

// Reorder rewrites SortIndex on each record named in order (0-based
// position = new SortIndex), writing only the records whose SortIndex
// actually changes (§4.6 "Reorder").
func (s *Store) Reorder(order []uuid.UUID) error {
	for newIndex, id := range order {
		info, err := s.Load(id)
		if err != nil {
			return err
		}
		if info.SortIndex == newIndex {
			continue
		}
		info.SortIndex = newIndex
		if err := s.Save(info); err != nil {
			return err
		}
	}
	return nil
}

// WalletMKLength and SyncKeyLength document the expected sizes
// used when callers generate new wallet records (§4.6).
const (
	WalletMKLength = walletMKLength
	SyncKeyLength  = syncKeyLength
)
