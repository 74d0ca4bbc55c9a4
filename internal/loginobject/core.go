// Package loginobject implements the Login Object (§4.5): the public
// surface that ties together key derivation, the account store, the
// login server client, and the sync-repo collaborator into the eight
// account operations.
package loginobject

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/abcore/core/internal/accountstore"
	"github.com/abcore/core/internal/cryptocore"
	"github.com/abcore/core/internal/keyderivation"
	"github.com/abcore/core/internal/loginserver"
	"github.com/abcore/core/internal/syncrepo"
	coreerr "github.com/abcore/core/pkg/errors"
)

const (
	mkLength      = 32
	syncKeyLength = 20
)

// Core is the Login Object: a process-lifetime handle bound to one
// account store, one login server, and one sync-repo collaborator. It
// replaces the source's process-global login cache (§9 "Manual
// buffer/pointer discipline") with an explicit, initializable value.
type Core struct {
	initMu      sync.Mutex
	initialized bool

	store  *accountstore.Store
	server *loginserver.Client
	repo   syncrepo.Repo
}

// NewCore returns an uninitialized Core. Callers must call Init before
// using any operation.
func NewCore() *Core {
	return &Core{}
}

// Init binds the Core to its collaborators. Calling Init twice without
// an intervening Terminate fails ErrReinitialization (§6, mirroring the
// source's ABC_Initialize guard).
func (c *Core) Init(store *accountstore.Store, server *loginserver.Client, repo syncrepo.Repo) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.initialized {
		return coreerr.ErrReinitialization
	}
	if repo == nil {
		repo = syncrepo.NewLocalRepo()
	}

	c.store = store
	c.server = server
	c.repo = repo
	c.initialized = true
	return nil
}

// Terminate releases the Core's collaborators, the counterpart to Init.
func (c *Core) Terminate() {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	c.store = nil
	c.server = nil
	c.repo = nil
	c.initialized = false
}

func (c *Core) requireInitialized() error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if !c.initialized {
		return coreerr.ErrNotInitialized
	}
	return nil
}

// requireServer reports ErrConnectionError when Init was given no login
// server (e.g. an empty/unset server URL): every operation below treats
// an absent server the same way it treats one it can't reach, so the
// same offline-fallback path in fetchCarePackage/fetchLoginPackage
// applies uniformly.
func (c *Core) requireServer() error {
	if c.server == nil {
		return coreerr.ErrConnectionError
	}
	return nil
}

// Create implements §4.5 "Create": register a brand-new account, both
// on the server and in the local slot directory, and return an
// authenticated principal.
func (c *Core) Create(ctx context.Context, username, password string) (*Login, error) {
	if err := c.requireInitialized(); err != nil {
		return nil, err
	}

	var result *Login
	err := accountstore.WithLock(ctx, func(ctx context.Context) error {
		norm, err := keyderivation.NormalizeUsername(username)
		if err != nil {
			return err
		}
		if _, err := c.store.Resolve(norm); err == nil {
			return coreerr.ErrAccountAlreadyExists
		}

		bundle, err := keyderivation.NewSNRPBundle()
		if err != nil {
			return err
		}
		pk, err := keyderivation.DerivePasswordKeys(norm, password, bundle)
		if err != nil {
			return err
		}

		mk, err := cryptocore.RandomBytes(mkLength)
		if err != nil {
			return fmt.Errorf("%w: generating MK: %w", coreerr.ErrGeneral, err)
		}
		syncKeyRaw, err := cryptocore.RandomBytes(syncKeyLength)
		if err != nil {
			return fmt.Errorf("%w: generating SyncKey: %w", coreerr.ErrGeneral, err)
		}
		syncKeyHex := hex.EncodeToString(syncKeyRaw)

		emkLP2, err := cryptocore.EncryptDirect(mk, pk.LP2)
		if err != nil {
			return err
		}
		eSyncKey, err := cryptocore.EncryptDirect([]byte(syncKeyHex), mk)
		if err != nil {
			return err
		}
		eLP1, err := cryptocore.EncryptDirect(pk.LP1, mk)
		if err != nil {
			return err
		}

		cp := &CarePackage{SNRP2: bundle.SNRP2, SNRP3: bundle.SNRP3, SNRP4: bundle.SNRP4}
		lpPkg := &LoginPackage{EMKLP2: emkLP2, ESyncKey: eSyncKey, ELP1: eLP1}

		cpJSON, err := marshalPackage(cp)
		if err != nil {
			return err
		}
		lpJSON, err := marshalPackage(lpPkg)
		if err != nil {
			return err
		}

		if err := c.requireServer(); err != nil {
			return err
		}
		if err := c.server.Create(ctx, pk.L1, pk.LP1, cpJSON, lpJSON, syncKeyHex); err != nil {
			return err
		}
		if err := c.server.Activate(ctx, pk.L1, pk.LP1); err != nil {
			return err
		}

		slot, err := c.store.Allocate(norm)
		if err != nil {
			return err
		}
		if err := c.store.Save(slot, accountstore.CarePackageFileName, []byte(cpJSON)); err != nil {
			return err
		}
		if err := c.store.Save(slot, accountstore.LoginPackageFileName, []byte(lpJSON)); err != nil {
			return err
		}

		syncDir := c.store.SyncDir(slot)
		if err := c.repo.Init(ctx, syncDir, syncKeyHex); err != nil {
			return err
		}
		categoriesEnv, err := cryptocore.EncryptDirect([]byte(`{"categories":[]}`), mk)
		if err != nil {
			return err
		}
		settingsEnv, err := cryptocore.EncryptDirect([]byte(`{}`), mk)
		if err != nil {
			return err
		}
		if err := syncrepo.WriteInitialAccountFiles(syncDir, categoriesEnv, settingsEnv); err != nil {
			return err
		}

		login, err := newSecureLogin(norm, slot, pk.L1, pk.LP1, nil, mk, syncKeyRaw)
		if err != nil {
			return err
		}
		login.SyncKeyHex = syncKeyHex
		login.snrp = bundle
		login.cp = cp
		login.lp = lpPkg
		result = login
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Core) fetchCarePackage(ctx context.Context, norm string, l1 []byte) (string, error) {
	err := c.requireServer()
	var cpJSON string
	if err == nil {
		cpJSON, err = c.server.GetCarePackage(ctx, l1)
	}
	if err == nil {
		return cpJSON, nil
	}
	if errors.Is(err, coreerr.ErrConnectionError) {
		if slot, rErr := c.store.Resolve(norm); rErr == nil {
			if data, lErr := c.store.Load(slot, accountstore.CarePackageFileName); lErr == nil {
				return string(data), nil
			}
		}
	}
	return "", err
}

func (c *Core) fetchLoginPackage(ctx context.Context, norm string, l1, lp1, lra1 []byte) (string, error) {
	err := c.requireServer()
	var lpJSON string
	if err == nil {
		lpJSON, err = c.server.GetLoginPackage(ctx, l1, lp1, lra1)
	}
	if err == nil {
		return lpJSON, nil
	}
	if errors.Is(err, coreerr.ErrConnectionError) {
		if slot, rErr := c.store.Resolve(norm); rErr == nil {
			if data, lErr := c.store.Load(slot, accountstore.LoginPackageFileName); lErr == nil {
				return string(data), nil
			}
		}
	}
	return "", err
}

func (c *Core) persistSlot(norm, cpJSON, lpJSON string) (int, error) {
	slot, err := c.store.Resolve(norm)
	if errors.Is(err, accountstore.ErrAccountDoesNotExist) {
		slot, err = c.store.Allocate(norm)
	}
	if err != nil {
		return 0, err
	}
	if err := c.store.Save(slot, accountstore.CarePackageFileName, []byte(cpJSON)); err != nil {
		return 0, err
	}
	if err := c.store.Save(slot, accountstore.LoginPackageFileName, []byte(lpJSON)); err != nil {
		return 0, err
	}
	return slot, nil
}

// LoginFromPassword implements §4.5 "LoginFromPassword".
func (c *Core) LoginFromPassword(ctx context.Context, username, password string) (*Login, error) {
	if err := c.requireInitialized(); err != nil {
		return nil, err
	}

	var result *Login
	err := accountstore.WithLock(ctx, func(ctx context.Context) error {
		norm, err := keyderivation.NormalizeUsername(username)
		if err != nil {
			return err
		}

		snrp1 := cryptocore.NewServerSNRP()
		l1, err := keyderivation.DeriveL1(norm, snrp1)
		if err != nil {
			return err
		}

		cpJSON, err := c.fetchCarePackage(ctx, norm, l1)
		if err != nil {
			return err
		}
		cp, err := unmarshalCarePackage(cpJSON)
		if err != nil {
			return err
		}

		lp1, err := keyderivation.DeriveLP1(norm, password, snrp1)
		if err != nil {
			return err
		}
		lp2, err := keyderivation.DeriveLP2(norm, password, cp.SNRP2)
		if err != nil {
			return err
		}

		lpJSON, err := c.fetchLoginPackage(ctx, norm, l1, lp1, nil)
		if err != nil {
			return err
		}
		lpPkg, err := unmarshalLoginPackage(lpJSON)
		if err != nil {
			return err
		}

		mk, err := cryptocore.Decrypt(lpPkg.EMKLP2, lp2)
		if err != nil {
			if errors.Is(err, cryptocore.ErrDecryptChecksum) {
				return coreerr.ErrBadPassword
			}
			return err
		}

		syncKeyHexBytes, err := cryptocore.Decrypt(lpPkg.ESyncKey, mk)
		if err != nil {
			return err
		}
		syncKeyHex := string(syncKeyHexBytes)
		syncKeyRaw, err := hex.DecodeString(syncKeyHex)
		if err != nil {
			return fmt.Errorf("%w: decoding SyncKey: %w", coreerr.ErrJSONError, err)
		}

		slot, err := c.persistSlot(norm, cpJSON, lpJSON)
		if err != nil {
			return err
		}

		login, err := newSecureLogin(norm, slot, l1, lp1, nil, mk, syncKeyRaw)
		if err != nil {
			return err
		}
		login.SyncKeyHex = syncKeyHex
		login.hasRecovery = len(cp.ERQ) > 0
		login.cp = cp
		login.lp = lpPkg
		result = login
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// LoginFromRecovery implements §4.5 "LoginFromRecovery": identical to
// the password path except the LRA3 key unlocks EMK_LRA3.
func (c *Core) LoginFromRecovery(ctx context.Context, username, recoveryAnswers string) (*Login, error) {
	if err := c.requireInitialized(); err != nil {
		return nil, err
	}

	var result *Login
	err := accountstore.WithLock(ctx, func(ctx context.Context) error {
		norm, err := keyderivation.NormalizeUsername(username)
		if err != nil {
			return err
		}

		snrp1 := cryptocore.NewServerSNRP()
		l1, err := keyderivation.DeriveL1(norm, snrp1)
		if err != nil {
			return err
		}

		cpJSON, err := c.fetchCarePackage(ctx, norm, l1)
		if err != nil {
			return err
		}
		cp, err := unmarshalCarePackage(cpJSON)
		if err != nil {
			return err
		}

		lra1, err := keyderivation.DeriveLRA1(norm, recoveryAnswers, snrp1)
		if err != nil {
			return err
		}
		lra3, err := keyderivation.DeriveLRA3(norm, recoveryAnswers, cp.SNRP3)
		if err != nil {
			return err
		}

		lpJSON, err := c.fetchLoginPackage(ctx, norm, l1, nil, lra1)
		if err != nil {
			return err
		}
		lpPkg, err := unmarshalLoginPackage(lpJSON)
		if err != nil {
			return err
		}

		mk, err := cryptocore.Decrypt(lpPkg.EMKLRA3, lra3)
		if err != nil {
			if errors.Is(err, cryptocore.ErrDecryptChecksum) {
				return coreerr.ErrInvalidAnswers
			}
			return err
		}

		syncKeyHexBytes, err := cryptocore.Decrypt(lpPkg.ESyncKey, mk)
		if err != nil {
			return err
		}
		syncKeyHex := string(syncKeyHexBytes)
		syncKeyRaw, err := hex.DecodeString(syncKeyHex)
		if err != nil {
			return fmt.Errorf("%w: decoding SyncKey: %w", coreerr.ErrJSONError, err)
		}

		slot, err := c.persistSlot(norm, cpJSON, lpJSON)
		if err != nil {
			return err
		}

		login, err := newSecureLogin(norm, slot, l1, nil, lra1, mk, syncKeyRaw)
		if err != nil {
			return err
		}
		login.SyncKeyHex = syncKeyHex
		login.hasRecovery = true
		login.cp = cp
		login.lp = lpPkg
		result = login
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetPassword implements §4.5 "SetPassword" on an authenticated
// principal: MK is unchanged, only its LP2 wrap and the server
// authenticator are rewrapped under new keys.
func (c *Core) SetPassword(ctx context.Context, login *Login, newPassword string) error {
	if err := c.requireInitialized(); err != nil {
		return err
	}

	return accountstore.WithLock(ctx, func(ctx context.Context) error {
		newSNRP2, err := cryptocore.NewClientSNRP()
		if err != nil {
			return err
		}
		newLP1, err := keyderivation.DeriveLP1(login.Username, newPassword, cryptocore.NewServerSNRP())
		if err != nil {
			return err
		}
		newLP2, err := keyderivation.DeriveLP2(login.Username, newPassword, newSNRP2)
		if err != nil {
			return err
		}

		emkLP2New, err := cryptocore.EncryptDirect(login.MK, newLP2)
		if err != nil {
			return err
		}
		eLP1New, err := cryptocore.EncryptDirect(newLP1, login.MK)
		if err != nil {
			return err
		}

		newCP := &CarePackage{SNRP2: newSNRP2, SNRP3: login.cp.SNRP3, SNRP4: login.cp.SNRP4, ERQ: login.cp.ERQ}
		newLP := &LoginPackage{
			EMKLP2: emkLP2New, EMKLRA3: login.lp.EMKLRA3,
			ESyncKey: login.lp.ESyncKey, ELP1: eLP1New, ELRA1: login.lp.ELRA1,
		}

		cpJSON, err := marshalPackage(newCP)
		if err != nil {
			return err
		}
		lpJSON, err := marshalPackage(newLP)
		if err != nil {
			return err
		}

		req := loginserver.ChangePasswordRequest{
			L1: login.L1, NewLP1: newLP1, CarePackage: cpJSON, LoginPackage: lpJSON,
		}
		if login.LP1 != nil {
			req.LP1 = login.LP1
		} else {
			req.LRA1 = login.LRA1
		}
		if err := c.requireServer(); err != nil {
			return err
		}
		if err := c.server.ChangePassword(ctx, req); err != nil {
			return err
		}

		if err := c.store.Save(login.Slot, accountstore.CarePackageFileName, []byte(cpJSON)); err != nil {
			return err
		}
		if err := c.store.Save(login.Slot, accountstore.LoginPackageFileName, []byte(lpJSON)); err != nil {
			return err
		}

		if err := login.replaceLP1(newLP1); err != nil {
			return err
		}
		login.cp = newCP
		login.lp = newLP
		if login.snrp != nil {
			login.snrp.SNRP2 = newSNRP2
		}
		return nil
	})
}

// SetRecovery implements §4.5 "SetRecovery" on an authenticated
// principal: installs or replaces the recovery path without disturbing
// MK, LP1, or LP2.
func (c *Core) SetRecovery(ctx context.Context, login *Login, questions, answers string) error {
	if err := c.requireInitialized(); err != nil {
		return err
	}

	return accountstore.WithLock(ctx, func(ctx context.Context) error {
		newLRA1, err := keyderivation.DeriveLRA1(login.Username, answers, cryptocore.NewServerSNRP())
		if err != nil {
			return err
		}
		newLRA3, err := keyderivation.DeriveLRA3(login.Username, answers, login.cp.SNRP3)
		if err != nil {
			return err
		}

		emkLRA3New, err := cryptocore.EncryptDirect(login.MK, newLRA3)
		if err != nil {
			return err
		}
		eLRA1New, err := cryptocore.EncryptDirect(newLRA1, login.MK)
		if err != nil {
			return err
		}

		l4, err := keyderivation.DeriveL4(login.Username, login.cp.SNRP4)
		if err != nil {
			return err
		}
		erq, err := cryptocore.EncryptDirect([]byte(questions), l4)
		if err != nil {
			return err
		}

		newCP := &CarePackage{SNRP2: login.cp.SNRP2, SNRP3: login.cp.SNRP3, SNRP4: login.cp.SNRP4, ERQ: erq}
		newLP := &LoginPackage{
			EMKLP2: login.lp.EMKLP2, EMKLRA3: emkLRA3New,
			ESyncKey: login.lp.ESyncKey, ELP1: login.lp.ELP1, ELRA1: eLRA1New,
		}

		cpJSON, err := marshalPackage(newCP)
		if err != nil {
			return err
		}
		lpJSON, err := marshalPackage(newLP)
		if err != nil {
			return err
		}

		req := loginserver.ChangePasswordRequest{
			L1: login.L1, NewLP1: login.LP1, NewLRA1: newLRA1,
			CarePackage: cpJSON, LoginPackage: lpJSON,
		}
		if login.LP1 != nil {
			req.LP1 = login.LP1
		} else {
			req.LRA1 = login.LRA1
		}
		if err := c.requireServer(); err != nil {
			return err
		}
		if err := c.server.ChangePassword(ctx, req); err != nil {
			return err
		}

		if err := c.store.Save(login.Slot, accountstore.CarePackageFileName, []byte(cpJSON)); err != nil {
			return err
		}
		if err := c.store.Save(login.Slot, accountstore.LoginPackageFileName, []byte(lpJSON)); err != nil {
			return err
		}

		if err := login.replaceLRA1(newLRA1); err != nil {
			return err
		}
		login.hasRecovery = true
		login.cp = newCP
		login.lp = newLP
		return nil
	})
}

// GetRecoveryQuestions implements §4.5 "GetRecoveryQuestions": it needs
// only a username, not an authenticated principal.
func (c *Core) GetRecoveryQuestions(ctx context.Context, username string) (string, error) {
	if err := c.requireInitialized(); err != nil {
		return "", err
	}

	var questions string
	err := accountstore.WithLock(ctx, func(ctx context.Context) error {
		norm, err := keyderivation.NormalizeUsername(username)
		if err != nil {
			return err
		}

		snrp1 := cryptocore.NewServerSNRP()
		l1, err := keyderivation.DeriveL1(norm, snrp1)
		if err != nil {
			return err
		}

		cpJSON, err := c.fetchCarePackage(ctx, norm, l1)
		if err != nil {
			return err
		}
		cp, err := unmarshalCarePackage(cpJSON)
		if err != nil {
			return err
		}
		if len(cp.ERQ) == 0 {
			return coreerr.ErrNoRecoveryQuestions
		}

		l4, err := keyderivation.DeriveL4(norm, cp.SNRP4)
		if err != nil {
			return err
		}
		plaintext, err := cryptocore.Decrypt(cp.ERQ, l4)
		if err != nil {
			return err
		}
		questions = string(plaintext)
		return nil
	})
	if err != nil {
		return "", err
	}
	return questions, nil
}

// GetSyncKeys implements §4.5 "GetSyncKeys".
func (c *Core) GetSyncKeys(login *Login) SyncKeys {
	return SyncKeys{
		SyncDirPath: c.store.SyncDir(login.Slot),
		MK:          login.MK,
		SyncKeyHex:  login.SyncKeyHex,
	}
}

// Sync implements §4.5 "Sync": delegate to the sync-repo collaborator
// and report whether local state changed.
func (c *Core) Sync(ctx context.Context, login *Login) (bool, error) {
	if err := c.requireInitialized(); err != nil {
		return false, err
	}

	var dirty bool
	err := accountstore.WithLock(ctx, func(ctx context.Context) error {
		d, err := c.repo.Sync(ctx, c.store.SyncDir(login.Slot), login.SyncKeyHex)
		dirty = d
		return err
	})
	return dirty, err
}
