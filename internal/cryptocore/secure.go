// Package cryptocore implements the ABC login core's crypto primitives:
// owned secret buffers, scrypt-SNRP key stretching, and the Encrypted-JSON
// authenticated envelope used for every encrypted artifact in the system.
package cryptocore

import (
	"runtime"
	"sync"
)

// SecureBytes wraps a sensitive byte slice with mlock (best effort) and
// explicit zeroing on Destroy. A long-lived derived key (L1, LP1, LRA1,
// MK, SyncKey — see loginobject.Login) should be held in a SecureBytes
// and Destroy'd as soon as it is no longer needed; a short-lived
// intermediate consumed immediately after derivation (LP2, LRA3, L4) is
// wiped with ZeroBytes instead.
type SecureBytes struct {
	data   []byte
	locked bool
	mu     sync.Mutex
}

// NewSecureBytes allocates a new SecureBytes of the given size.
func NewSecureBytes(size int) (*SecureBytes, error) {
	data := make([]byte, size)

	sb := &SecureBytes{data: data}
	sb.locked = mlock(data)

	runtime.SetFinalizer(sb, func(s *SecureBytes) {
		s.Destroy()
	})

	return sb, nil
}

// SecureBytesFromSlice copies data into a new owned SecureBytes.
func SecureBytesFromSlice(data []byte) (*SecureBytes, error) {
	sb, err := NewSecureBytes(len(data))
	if err != nil {
		return nil, err
	}
	copy(sb.data, data)
	return sb, nil
}

// Bytes returns the underlying slice, or nil once Destroy'd.
func (s *SecureBytes) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// IsLocked reports whether the backing memory is mlocked.
func (s *SecureBytes) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Len returns the length of the held data, or 0 once destroyed.
func (s *SecureBytes) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Destroy zeroes and unlocks the memory. Safe to call more than once.
func (s *SecureBytes) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return
	}

	for i := range s.data {
		s.data[i] = 0
	}

	if s.locked {
		munlock(s.data)
		s.locked = false
	}

	s.data = nil
	runtime.SetFinalizer(s, nil)
}

// ZeroBytes zeroes a plain byte slice in place. Used for short-lived
// buffers (e.g. password input) that never warranted a full SecureBytes.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
