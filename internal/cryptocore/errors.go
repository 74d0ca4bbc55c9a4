package cryptocore

import "errors"

// Sentinel errors for the crypto primitives layer. Callers higher up the
// stack (keyderivation, loginobject) map these onto the §7 error taxonomy;
// ErrDecryptChecksum in particular is kept distinct from the other
// decrypt failures so "wrong key" can be detected (§4.1, §7).
var (
	ErrScryptNilSNRP   = errors.New("scrypt: SNRP is nil")
	ErrScryptBadSalt   = errors.New("scrypt: salt is empty")
	ErrScryptBadN      = errors.New("scrypt: N must be a power of two greater than 1")
	ErrScryptBadParams = errors.New("scrypt: r and p must be positive")
	ErrScrypt          = errors.New("scrypt: derivation failed")

	ErrJSON = errors.New("encrypted-json: malformed envelope")

	ErrEncrypt          = errors.New("encrypted-json: encryption failed")
	ErrDecrypt          = errors.New("encrypted-json: decryption failed")
	ErrDecryptChecksum  = errors.New("encrypted-json: integrity checksum mismatch")
	ErrUnknownEncType   = errors.New("encrypted-json: unknown encryptionType")
	ErrMissingSNRP      = errors.New("encrypted-json: type 1 envelope missing SNRP")
	ErrPlaintextTooBig  = errors.New("encrypted-json: plaintext too large to encode a 4-byte length prefix")
	ErrCiphertextShort  = errors.New("encrypted-json: ciphertext shorter than one AES block")
	ErrCiphertextBlock  = errors.New("encrypted-json: ciphertext is not a multiple of the AES block size")
	ErrPreimageTooShort = errors.New("encrypted-json: decoded pre-image shorter than its framing")
)
