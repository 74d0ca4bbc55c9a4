// Package syncrepo defines the external sync-repo collaborator boundary
// (§6): the git-like encrypted repository that Account Store's sync/
// directory is checked in and out of. The Login Core only needs to
// initialize a fresh repo and trigger a sync; the actual transport and
// merge strategy live outside this module's scope.
package syncrepo

import (
	"context"
	"os"

	"github.com/abcore/core/internal/fileutil"
)

// Repo is the external sync-repo collaborator (§6, §9). Init prepares a
// local directory to be tracked under syncKeyHex (the account's remote
// repo identifier); Sync exchanges local changes with the remote and
// reports whether local state changed as a result ("dirty").
type Repo interface {
	Init(ctx context.Context, dir, syncKeyHex string) error
	Sync(ctx context.Context, dir, syncKeyHex string) (dirty bool, err error)
}

// LocalRepo is a minimal Repo that only maintains the local directory
// structure — it performs no network exchange. It is the collaborator
// used by default (and by tests); a networked implementation satisfying
// the same interface can be substituted without touching loginobject.
type LocalRepo struct{}

// NewLocalRepo returns a Repo with no remote component.
func NewLocalRepo() *LocalRepo {
	return &LocalRepo{}
}

// Init creates the sync directory if absent (§4.5 step 10, "Initialize
// sync directory").
func (r *LocalRepo) Init(_ context.Context, dir, _ string) error {
	return os.MkdirAll(dir, 0o700)
}

// Sync is a no-op for the local-only repo: nothing to exchange, so
// local state is never marked dirty.
func (r *LocalRepo) Sync(_ context.Context, dir, _ string) (bool, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if mkErr := os.MkdirAll(dir, 0o700); mkErr != nil {
			return false, mkErr
		}
	}
	return false, nil
}

// WriteInitialAccountFiles commits the initial empty account state
// (§4.5 step 10: "empty categories list, no wallets") into a freshly
// initialized sync directory.
func WriteInitialAccountFiles(dir string, categoriesEnvelope, settingsEnvelope []byte) error {
	if err := os.MkdirAll(dir+"/Wallets", 0o700); err != nil {
		return err
	}
	if err := fileutil.WriteAtomic(dir+"/Categories.json", categoriesEnvelope, 0o600); err != nil {
		return err
	}
	return fileutil.WriteAtomic(dir+"/Settings.json", settingsEnvelope, 0o600)
}
