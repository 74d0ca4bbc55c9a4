package cryptocore

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// Scrypt output is always 32 bytes for every derived key in §3.
const scryptKeyLength = 32

// Server-preset scrypt parameters (§3 "Server preset"): used for L1, LP1,
// LRA1 — keys the server must be able to recompute and verify.
const (
	serverN = 16384
	serverR = 1
	serverP = 1
)

// Client-preset scrypt parameters (§3 "Client preset"): used for LP2,
// LRA3, L4 — keys that never leave the client.
const (
	clientN = 16384
	clientR = 1
	clientP = 1
)

// serverSalt is the fixed public salt baked into every Server-preset SNRP
// (SNRP1). It is not a secret: the server preset's security comes from the
// scrypt work factor, not the salt, since the salt must be identical on
// every client to let the server verify L1/LP1/LRA1.
var serverSalt = []byte{
	0xb5, 0x86, 0x5f, 0xfb, 0x9f, 0xa7, 0xb3, 0xbf,
	0xe4, 0xb2, 0x38, 0x4d, 0x47, 0xce, 0x83, 0x1b,
	0x00, 0x02, 0xa8, 0x03, 0x0e, 0x15, 0x0c, 0x3f,
	0x05, 0x69, 0xe5, 0x44, 0x6c, 0xea, 0x3c, 0x11,
}

// SNRP is a scrypt parameter bundle: salt, N (CPU/memory cost), r (block
// size), p (parallelization).
type SNRP struct {
	Salt []byte `json:"-"`
	N    int    `json:"n"`
	R    int    `json:"r"`
	P    int    `json:"p"`
}

// snrpJSON is the wire shape: { "salt_hex": ..., "n": ..., "r": ..., "p": ... }.
type snrpJSON struct {
	SaltHex string `json:"salt_hex"`
	N       int    `json:"n"`
	R       int    `json:"r"`
	P       int    `json:"p"`
}

// MarshalJSON implements json.Marshaler for the salt_hex wire field.
func (s *SNRP) MarshalJSON() ([]byte, error) {
	return marshalSNRP(s)
}

// UnmarshalJSON implements json.Unmarshaler for the salt_hex wire field.
func (s *SNRP) UnmarshalJSON(data []byte) error {
	return unmarshalSNRP(s, data)
}

// NewServerSNRP returns SNRP1, the fixed-salt server preset.
func NewServerSNRP() *SNRP {
	salt := make([]byte, len(serverSalt))
	copy(salt, serverSalt)
	return &SNRP{Salt: salt, N: serverN, R: serverR, P: serverP}
}

// NewClientSNRP returns a fresh client preset (SNRP2/3/4) with a random
// 32-byte salt.
func NewClientSNRP() (*SNRP, error) {
	salt, err := RandomBytes(32)
	if err != nil {
		return nil, fmt.Errorf("generating SNRP salt: %w", err)
	}
	return &SNRP{Salt: salt, N: clientN, R: clientR, P: clientP}, nil
}

// Scrypt derives a 32-byte key from data using the given SNRP.
func Scrypt(data []byte, s *SNRP) ([]byte, error) {
	if s == nil {
		return nil, ErrScryptNilSNRP
	}
	if len(s.Salt) == 0 {
		return nil, ErrScryptBadSalt
	}
	if s.N <= 1 || s.N&(s.N-1) != 0 {
		return nil, ErrScryptBadN
	}
	if s.R <= 0 || s.P <= 0 {
		return nil, ErrScryptBadParams
	}

	key, err := scrypt.Key(data, s.Salt, s.N, s.R, s.P, scryptKeyLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScrypt, err)
	}
	return key, nil
}

func marshalSNRP(s *SNRP) ([]byte, error) {
	wire := snrpJSON{
		SaltHex: hex.EncodeToString(s.Salt),
		N:       s.N,
		R:       s.R,
		P:       s.P,
	}
	return json.Marshal(wire)
}

func unmarshalSNRP(s *SNRP, data []byte) error {
	var wire snrpJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%w: %w", ErrJSON, err)
	}

	salt, err := hex.DecodeString(wire.SaltHex)
	if err != nil {
		return fmt.Errorf("%w: decoding salt_hex: %w", ErrJSON, err)
	}

	s.Salt = salt
	s.N = wire.N
	s.R = wire.R
	s.P = wire.P
	return nil
}
