package keyderivation

import "errors"

// Sentinel errors for the pure derivation layer. These are parameter
// errors only (§4.2): bad username, missing SNRP, empty credential. The
// scrypt failures themselves surface as cryptocore errors and are passed
// through unwrapped.
var (
	ErrInvalidUsername   = errors.New("keyderivation: username contains a byte outside the printable ASCII range")
	ErrEmptyUsername     = errors.New("keyderivation: username is empty after normalization")
	ErrEmptyPassword     = errors.New("keyderivation: password is empty")
	ErrEmptyRecoveryText = errors.New("keyderivation: recovery answers are empty")
	ErrMissingSNRP       = errors.New("keyderivation: required SNRP is nil")
)
