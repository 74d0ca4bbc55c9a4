package accountstore

import (
	"context"
	"sync"
)

// accountLock is the process-wide mutex protecting every operation in
// AS/LO/WK (§5 "the account lock"). It is a single package-level lock:
// the source's account-slot directories are cheap enough, and logins
// rare enough, that serializing the whole process is an acceptable
// trade for simplicity (§5 "acceptable: the work is interactive and
// infrequent").
var accountLock sync.Mutex

type lockHeldKey struct{}

// WithLock acquires the account lock and runs fn, unless ctx already
// carries proof that the calling goroutine holds it — which makes the
// lock effectively recursive (§5 "recursive to permit LO to call AS
// without deadlock") without requiring goroutine-local state: the Login
// Object locks once per public operation and threads the held-marker
// through every Account Store / Wallet Key call it makes underneath.
func WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(lockHeldKey{}) != nil {
		return fn(ctx)
	}

	accountLock.Lock()
	defer accountLock.Unlock()

	return fn(context.WithValue(ctx, lockHeldKey{}, true))
}
