package loginobject

import (
	"github.com/abcore/core/internal/cryptocore"
	"github.com/abcore/core/internal/keyderivation"
)

// Login is an authenticated principal (§4.5 "state machine of a Login
// principal"): the in-memory keys unlocked by a successful Create,
// LoginFromPassword, or LoginFromRecovery. When built by Core itself
// (newSecureLogin), L1/LP1/LRA1/MK/SyncKey are backed by mlock'd
// cryptocore.SecureBytes and these fields merely alias that protected
// memory; a principal rehydrated from a cached session instead (see
// internal/cli's resolveLogin) holds plain slices. Destroy wipes either
// kind.
type Login struct {
	Username string
	Slot     int

	L1   []byte
	LP1  []byte
	LRA1 []byte // nil unless recovery has been set and is cached

	MK         []byte
	SyncKey    []byte
	SyncKeyHex string

	l1Secure      *cryptocore.SecureBytes
	lp1Secure     *cryptocore.SecureBytes
	lra1Secure    *cryptocore.SecureBytes
	mkSecure      *cryptocore.SecureBytes
	syncKeySecure *cryptocore.SecureBytes

	snrp        *keyderivation.SNRPBundle
	hasRecovery bool

	cp *CarePackage
	lp *LoginPackage
}

// newSecureLogin builds a Login whose L1/LP1/LRA1/MK/SyncKey each live in
// their own mlock'd cryptocore.SecureBytes (§9 "must be explicitly wiped
// at end of scope"). l1/lp1/lra1/mk/syncKey are copied into that
// protected memory and then zeroed; lp1 or lra1 may be nil (exactly one
// of them is absent depending on whether the principal came from
// LoginFromPassword or LoginFromRecovery).
func newSecureLogin(username string, slot int, l1, lp1, lra1, mk, syncKey []byte) (*Login, error) {
	login := &Login{Username: username, Slot: slot}

	var err error
	if login.l1Secure, login.L1, err = wrapSecure(l1); err != nil {
		return nil, err
	}
	if login.lp1Secure, login.LP1, err = wrapSecure(lp1); err != nil {
		return nil, err
	}
	if login.lra1Secure, login.LRA1, err = wrapSecure(lra1); err != nil {
		return nil, err
	}
	if login.mkSecure, login.MK, err = wrapSecure(mk); err != nil {
		return nil, err
	}
	if login.syncKeySecure, login.SyncKey, err = wrapSecure(syncKey); err != nil {
		return nil, err
	}
	return login, nil
}

// wrapSecure copies raw into a new SecureBytes and zeroes raw in place;
// a nil raw (no recovery configured yet, or a password-only login with no
// LRA1) passes through as nil.
func wrapSecure(raw []byte) (*cryptocore.SecureBytes, []byte, error) {
	if raw == nil {
		return nil, nil, nil
	}
	sb, err := cryptocore.SecureBytesFromSlice(raw)
	if err != nil {
		return nil, nil, err
	}
	cryptocore.ZeroBytes(raw)
	return sb, sb.Bytes(), nil
}

// replaceLP1 swaps in a freshly derived LP1 after SetPassword, destroying
// whatever backed the old value first.
func (l *Login) replaceLP1(newLP1 []byte) error {
	destroySecure(l.lp1Secure, l.LP1)
	sb, data, err := wrapSecure(newLP1)
	if err != nil {
		return err
	}
	l.lp1Secure, l.LP1 = sb, data
	return nil
}

// replaceLRA1 swaps in a freshly derived LRA1 after SetRecovery,
// destroying whatever backed the old value first.
func (l *Login) replaceLRA1(newLRA1 []byte) error {
	destroySecure(l.lra1Secure, l.LRA1)
	sb, data, err := wrapSecure(newLRA1)
	if err != nil {
		return err
	}
	l.lra1Secure, l.LRA1 = sb, data
	return nil
}

// HasRecovery reports whether this account has recovery questions
// configured (ERQ present in its CarePackage).
func (l *Login) HasRecovery() bool {
	return l.hasRecovery
}

// SyncKeys is the bundle handed to the sync-repo collaborator (§4.5
// "GetSyncKeys").
type SyncKeys struct {
	SyncDirPath string
	MK          []byte
	SyncKeyHex  string
}

// Destroy wipes every sensitive buffer held by the principal (§9 "must
// be explicitly wiped at end of scope"), unlocking any mlock'd memory it
// owns. A principal rehydrated from a cached session holds plain slices
// instead and falls back to zeroing them directly.
func (l *Login) Destroy() {
	destroySecure(l.l1Secure, l.L1)
	destroySecure(l.lp1Secure, l.LP1)
	destroySecure(l.lra1Secure, l.LRA1)
	destroySecure(l.mkSecure, l.MK)
	destroySecure(l.syncKeySecure, l.SyncKey)
}

func destroySecure(sb *cryptocore.SecureBytes, fallback []byte) {
	if sb != nil {
		sb.Destroy()
		return
	}
	cryptocore.ZeroBytes(fallback)
}
