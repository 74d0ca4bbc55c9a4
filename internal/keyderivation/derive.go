// Package keyderivation implements the pure scrypt-hardened key
// derivation graph (§3, §4.2): L1, LP1, LP2, LRA1, LRA3, L4. Every
// function here is a pure function over (username, password?, recovery
// answers?, SNRP) — no I/O, no package-level state, no mutation. Callers
// own the returned key material and are responsible for wiping it
// (cryptocore.ZeroBytes) once it is no longer needed.
package keyderivation

import (
	"github.com/abcore/core/internal/cryptocore"
)

// SNRPBundle holds the four SNRPs that accompany an account: SNRP1 is
// the fixed server preset shared by every account; SNRP2/3/4 are
// client-preset, random-salt, and generated once at account creation.
type SNRPBundle struct {
	SNRP1 *cryptocore.SNRP
	SNRP2 *cryptocore.SNRP
	SNRP3 *cryptocore.SNRP
	SNRP4 *cryptocore.SNRP
}

// NewSNRPBundle builds a fresh bundle: the fixed server preset for SNRP1,
// and three independent random-salt client presets for SNRP2/3/4 (§4.2
// step "Generate SNRP2/3/4").
func NewSNRPBundle() (*SNRPBundle, error) {
	snrp2, err := cryptocore.NewClientSNRP()
	if err != nil {
		return nil, err
	}
	snrp3, err := cryptocore.NewClientSNRP()
	if err != nil {
		return nil, err
	}
	snrp4, err := cryptocore.NewClientSNRP()
	if err != nil {
		return nil, err
	}
	return &SNRPBundle{
		SNRP1: cryptocore.NewServerSNRP(),
		SNRP2: snrp2,
		SNRP3: snrp3,
		SNRP4: snrp4,
	}, nil
}

// lpBytes builds LP = L + P, the concatenation of the normalized
// username and the raw password (§4.2).
func lpBytes(username, password string) []byte {
	return append([]byte(username), []byte(password)...)
}

// lraBytes builds LRA = L + RA, the concatenation of the normalized
// username and the raw recovery-answers text (§4.2).
func lraBytes(username, recoveryAnswers string) []byte {
	return append([]byte(username), []byte(recoveryAnswers)...)
}

// DeriveL1 computes L1 = scrypt(L, SNRP1), the server account identifier.
func DeriveL1(username string, snrp1 *cryptocore.SNRP) ([]byte, error) {
	if snrp1 == nil {
		return nil, ErrMissingSNRP
	}
	return cryptocore.Scrypt([]byte(username), snrp1)
}

// DeriveLP1 computes LP1 = scrypt(LP, SNRP1), the server password
// authenticator.
func DeriveLP1(username, password string, snrp1 *cryptocore.SNRP) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	if snrp1 == nil {
		return nil, ErrMissingSNRP
	}
	lp := lpBytes(username, password)
	defer cryptocore.ZeroBytes(lp)
	return cryptocore.Scrypt(lp, snrp1)
}

// DeriveLP2 computes LP2 = scrypt(LP, SNRP2), the client-only key that
// wraps MK via the password path.
func DeriveLP2(username, password string, snrp2 *cryptocore.SNRP) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	if snrp2 == nil {
		return nil, ErrMissingSNRP
	}
	lp := lpBytes(username, password)
	defer cryptocore.ZeroBytes(lp)
	return cryptocore.Scrypt(lp, snrp2)
}

// DeriveLRA1 computes LRA1 = scrypt(LRA, SNRP1), the server recovery
// authenticator.
func DeriveLRA1(username, recoveryAnswers string, snrp1 *cryptocore.SNRP) ([]byte, error) {
	if recoveryAnswers == "" {
		return nil, ErrEmptyRecoveryText
	}
	if snrp1 == nil {
		return nil, ErrMissingSNRP
	}
	lra := lraBytes(username, recoveryAnswers)
	defer cryptocore.ZeroBytes(lra)
	return cryptocore.Scrypt(lra, snrp1)
}

// DeriveLRA3 computes LRA3 = scrypt(LRA, SNRP3), the client-only key that
// wraps MK via the recovery path.
func DeriveLRA3(username, recoveryAnswers string, snrp3 *cryptocore.SNRP) ([]byte, error) {
	if recoveryAnswers == "" {
		return nil, ErrEmptyRecoveryText
	}
	if snrp3 == nil {
		return nil, ErrMissingSNRP
	}
	lra := lraBytes(username, recoveryAnswers)
	defer cryptocore.ZeroBytes(lra)
	return cryptocore.Scrypt(lra, snrp3)
}

// DeriveL4 computes L4 = scrypt(L, SNRP4), the key that wraps the
// recovery-questions blob (ERQ).
func DeriveL4(username string, snrp4 *cryptocore.SNRP) ([]byte, error) {
	if snrp4 == nil {
		return nil, ErrMissingSNRP
	}
	return cryptocore.Scrypt([]byte(username), snrp4)
}

// PasswordKeys bundles every key derivable from username + password
// (§4.2): L1, LP1, LP2.
type PasswordKeys struct {
	L1  []byte
	LP1 []byte
	LP2 []byte
}

// DerivePasswordKeys derives L1, LP1, LP2 in one call, the set needed by
// Create and the password half of LoginFromPassword/SetPassword.
func DerivePasswordKeys(username, password string, b *SNRPBundle) (*PasswordKeys, error) {
	l1, err := DeriveL1(username, b.SNRP1)
	if err != nil {
		return nil, err
	}
	lp1, err := DeriveLP1(username, password, b.SNRP1)
	if err != nil {
		return nil, err
	}
	lp2, err := DeriveLP2(username, password, b.SNRP2)
	if err != nil {
		return nil, err
	}
	return &PasswordKeys{L1: l1, LP1: lp1, LP2: lp2}, nil
}

// RecoveryKeys bundles every key derivable from username + recovery
// answers (§4.2): LRA1, LRA3.
type RecoveryKeys struct {
	LRA1 []byte
	LRA3 []byte
}

// DeriveRecoveryKeys derives LRA1, LRA3 in one call, the set needed by
// SetRecovery and the recovery half of LoginFromRecovery.
func DeriveRecoveryKeys(username, recoveryAnswers string, b *SNRPBundle) (*RecoveryKeys, error) {
	lra1, err := DeriveLRA1(username, recoveryAnswers, b.SNRP1)
	if err != nil {
		return nil, err
	}
	lra3, err := DeriveLRA3(username, recoveryAnswers, b.SNRP3)
	if err != nil {
		return nil, err
	}
	return &RecoveryKeys{LRA1: lra1, LRA3: lra3}, nil
}
