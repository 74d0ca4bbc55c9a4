package walletkey_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abcore/core/internal/walletkey"
)

func testMK(t *testing.T) []byte {
	t.Helper()
	return bytesOf(t, 32, 0xAB)
}

func bytesOf(t *testing.T, n int, fill byte) []byte {
	t.Helper()
	b := make([]byte, n)
	for i := range b {
		b[i] = fill
	}
	return b
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	store := walletkey.New(t.TempDir(), testMK(t))

	info := &walletkey.Info{
		MK:          bytesOf(t, 32, 0x01),
		BitcoinSeed: bytesOf(t, 32, 0x02),
		SyncKey:     bytesOf(t, 20, 0x03),
		SortIndex:   0,
	}
	require.NoError(t, store.Save(info))
	assert.NotEqual(t, uuid.Nil, info.UUID)

	loaded, err := store.Load(info.UUID)
	require.NoError(t, err)
	assert.Equal(t, info.UUID, loaded.UUID)
	assert.Equal(t, info.MK, loaded.MK)
	assert.Equal(t, info.BitcoinSeed, loaded.BitcoinSeed)
	assert.Equal(t, info.SyncKey, loaded.SyncKey)
}

func TestStore_Load_NotFound(t *testing.T) {
	t.Parallel()
	store := walletkey.New(t.TempDir(), testMK(t))
	_, err := store.Load(uuid.New())
	require.ErrorIs(t, err, walletkey.ErrWalletNotFound)
}

func TestStore_List_SortsBySortIndex(t *testing.T) {
	t.Parallel()
	store := walletkey.New(t.TempDir(), testMK(t))

	third := &walletkey.Info{MK: bytesOf(t, 32, 1), BitcoinSeed: bytesOf(t, 32, 1), SyncKey: bytesOf(t, 20, 1), SortIndex: 2}
	first := &walletkey.Info{MK: bytesOf(t, 32, 2), BitcoinSeed: bytesOf(t, 32, 2), SyncKey: bytesOf(t, 20, 2), SortIndex: 0}
	second := &walletkey.Info{MK: bytesOf(t, 32, 3), BitcoinSeed: bytesOf(t, 32, 3), SyncKey: bytesOf(t, 20, 3), SortIndex: 1}

	require.NoError(t, store.Save(third))
	require.NoError(t, store.Save(first))
	require.NoError(t, store.Save(second))

	infos, skipped, err := store.List()
	require.NoError(t, err)
	require.Empty(t, skipped)
	require.Len(t, infos, 3)
	assert.Equal(t, first.UUID, infos[0].UUID)
	assert.Equal(t, second.UUID, infos[1].UUID)
	assert.Equal(t, third.UUID, infos[2].UUID)
}

func TestStore_List_SkipsNonUUIDAndUndecryptableFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store := walletkey.New(dir, testMK(t))

	good := &walletkey.Info{MK: bytesOf(t, 32, 9), BitcoinSeed: bytesOf(t, 32, 9), SyncKey: bytesOf(t, 20, 9)}
	require.NoError(t, store.Save(good))

	walletsDir := filepath.Join(dir, "Wallets")
	require.NoError(t, os.WriteFile(filepath.Join(walletsDir, "not-a-uuid.json"), []byte("{}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(walletsDir, uuid.New().String()+".json"), []byte("garbage"), 0o600))

	infos, skipped, err := store.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, good.UUID, infos[0].UUID)
	assert.Len(t, skipped, 2)
}

func TestStore_Reorder_OnlyRewritesChangedRecords(t *testing.T) {
	t.Parallel()
	store := walletkey.New(t.TempDir(), testMK(t))

	a := &walletkey.Info{MK: bytesOf(t, 32, 1), BitcoinSeed: bytesOf(t, 32, 1), SyncKey: bytesOf(t, 20, 1), SortIndex: 0}
	b := &walletkey.Info{MK: bytesOf(t, 32, 2), BitcoinSeed: bytesOf(t, 32, 2), SyncKey: bytesOf(t, 20, 2), SortIndex: 1}
	require.NoError(t, store.Save(a))
	require.NoError(t, store.Save(b))

	require.NoError(t, store.Reorder([]uuid.UUID{b.UUID, a.UUID}))

	loadedA, err := store.Load(a.UUID)
	require.NoError(t, err)
	assert.Equal(t, 1, loadedA.SortIndex)

	loadedB, err := store.Load(b.UUID)
	require.NoError(t, err)
	assert.Equal(t, 0, loadedB.SortIndex)
}

func TestStore_List_EmptyDirReturnsNoError(t *testing.T) {
	t.Parallel()
	store := walletkey.New(t.TempDir(), testMK(t))
	infos, skipped, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, infos)
	assert.Empty(t, skipped)
}
