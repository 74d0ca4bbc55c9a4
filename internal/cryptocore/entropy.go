package cryptocore

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"math/rand/v2"
	"os"
	"sync"
	"time"
)

// Reader is the cryptographically secure random source for all key
// material (SNRP salts, MK, SyncKey, IVs). It wraps crypto/rand.Reader so
// it can be swapped in tests.
//
//nolint:gochecknoglobals // package-level RNG required for testability
var Reader io.Reader = rand.Reader

// RandomBytes returns n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// RandomByte returns a single cryptographically secure random byte.
func RandomByte() (byte, error) {
	b, err := RandomBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// paddingRNG is a process-wide, non-cryptographic PRNG used only to
// fill the header/footer padding bytes of the Encrypted-JSON envelope
// (§4.1 step 2); the padding lengths themselves come from Reader. It is
// seeded from crypto/rand at package init and reseeded by Reseed from the
// caller-supplied seed mixed with OS entropy and volatile locals, never
// from key material, and is never used to generate keys, salts, or IVs.
var (
	paddingMu  sync.Mutex
	paddingRNG *rand.ChaCha8
)

//nolint:gochecknoinits // default seed so padding works before an explicit Reseed
func init() {
	var seed [32]byte
	_, _ = io.ReadFull(rand.Reader, seed[:])
	paddingRNG = rand.NewChaCha8(seed)
}

// Reseed mixes an externally supplied seed (see Core.Init, §6) with OS
// entropy, the current time, and the process id into the padding PRNG.
// It may be called exactly once per process lifetime, mirroring the
// single process-wide seed accepted by Init in §4.1.
func Reseed(externalSeed []byte) {
	paddingMu.Lock()
	defer paddingMu.Unlock()

	var osEntropy [32]byte
	_, _ = io.ReadFull(rand.Reader, osEntropy[:])

	var mix [32]byte
	copy(mix[:], osEntropy[:])
	for i, b := range externalSeed {
		mix[i%32] ^= b
	}

	var tbuf [8]byte
	binary.LittleEndian.PutUint64(tbuf[:], uint64(time.Now().UnixNano()))
	for i, b := range tbuf {
		mix[i%32] ^= b
	}

	pid := os.Getpid()
	var pbuf [8]byte
	binary.LittleEndian.PutUint64(pbuf[:], uint64(pid))
	for i, b := range pbuf {
		mix[(i+4)%32] ^= b
	}

	paddingRNG = rand.NewChaCha8(mix)
}

// PaddingLength returns a random value in 0..255 for envelope header/
// footer padding (§4.1 step 2). Not security-critical: padding is
// advisory, not a security property.
func PaddingLength() byte {
	paddingMu.Lock()
	defer paddingMu.Unlock()
	return byte(paddingRNG.Uint64() & 0xFF)
}

// PaddingBytes returns n bytes of non-cryptographic filler for envelope
// header/footer padding.
func PaddingBytes(n int) []byte {
	b := make([]byte, n)
	paddingMu.Lock()
	defer paddingMu.Unlock()
	for i := range b {
		b[i] = byte(paddingRNG.Uint64() & 0xFF)
	}
	return b
}
