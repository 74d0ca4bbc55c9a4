package session

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/abcore/core/internal/cryptocore"
	"github.com/abcore/core/internal/fileutil"
	"github.com/abcore/core/internal/keyderivation"
)

const (
	// sessionFileExtension is the extension for session files.
	sessionFileExtension = ".session"

	// sessionFilePermissions is the permission mode for session files.
	sessionFilePermissions = 0o600

	// sessionDirPermissions is the permission mode for the sessions directory.
	sessionDirPermissions = 0o700

	// sessionKeyLength is the length of the random session key in bytes.
	sessionKeyLength = 32
)

// sessionFile represents the encrypted session file structure.
type sessionFile struct {
	// Session contains the session metadata.
	Session *Session `json:"session"`

	// EncryptedPrincipal is the session-key-encrypted Principal (§4.1 envelope).
	EncryptedPrincipal json.RawMessage `json:"encrypted_principal"`
}

// FileManager implements the Manager interface using files and OS keyring.
type FileManager struct {
	basePath  string
	keyring   Keyring
	available bool
	mu        sync.RWMutex
}

// NewManager creates a new session manager.
// If keyring is nil, it uses the OS keyring.
// The manager probes the keyring on creation to determine availability.
func NewManager(basePath string, keyring Keyring) *FileManager {
	if keyring == nil {
		keyring = NewOSKeyring()
	}

	m := &FileManager{
		basePath:  basePath,
		keyring:   keyring,
		available: false,
	}

	m.available = m.probeKeyring()

	return m
}

// Available returns true if session caching is available.
func (m *FileManager) Available() bool {
	return m.available
}

// StartSession caches principal's keys for ttl.
//
//nolint:gocyclo // Sequential validation and error-handling steps are inherent to the operation
func (m *FileManager) StartSession(principal *Principal, ttl time.Duration) error {
	username, err := keyderivation.NormalizeUsername(principal.Username)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.available {
		return ErrKeyringUnavailable
	}

	if ttl < MinTTL {
		ttl = MinTTL
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}

	sessionKey := make([]byte, sessionKeyLength)
	if _, err := rand.Read(sessionKey); err != nil {
		return fmt.Errorf("generating session key: %w", err)
	}
	defer cryptocore.ZeroBytes(sessionKey)

	principalJSON, err := json.Marshal(principal)
	if err != nil {
		return fmt.Errorf("serializing principal: %w", err)
	}

	encryptedPrincipal, err := cryptocore.EncryptDirect(principalJSON, sessionKey)
	if err != nil {
		return fmt.Errorf("encrypting principal: %w", err)
	}

	keyringKey := m.keyringKey(username)
	encodedKey := base64.StdEncoding.EncodeToString(sessionKey)
	if setErr := m.keyring.Set(ServiceName, keyringKey, encodedKey); setErr != nil {
		return fmt.Errorf("storing session key in keyring: %w", setErr)
	}

	now := time.Now()
	sess := &Session{
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	sf := sessionFile{
		Session:            sess,
		EncryptedPrincipal: encryptedPrincipal,
	}

	if mkdirErr := os.MkdirAll(m.basePath, sessionDirPermissions); mkdirErr != nil {
		_ = m.keyring.Delete(ServiceName, keyringKey)
		return fmt.Errorf("creating sessions directory: %w", mkdirErr)
	}

	data, marshalErr := json.MarshalIndent(sf, "", "  ")
	if marshalErr != nil {
		_ = m.keyring.Delete(ServiceName, keyringKey)
		return fmt.Errorf("marshaling session: %w", marshalErr)
	}

	sessionPath := m.sessionPath(username)
	if writeErr := fileutil.WriteAtomic(sessionPath, data, sessionFilePermissions); writeErr != nil {
		_ = m.keyring.Delete(ServiceName, keyringKey)
		return fmt.Errorf("writing session file: %w", writeErr)
	}

	return nil
}

// GetSession retrieves the cached principal for an active session.
func (m *FileManager) GetSession(username string) (*Principal, *Session, error) {
	normalized, err := keyderivation.NormalizeUsername(username)
	if err != nil {
		return nil, nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.available {
		return nil, nil, ErrKeyringUnavailable
	}

	sessionPath := m.sessionPath(normalized)
	//nolint:gosec // G304: path constructed from internal session path
	data, err := os.ReadFile(sessionPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("reading session file: %w", err)
	}

	var sf sessionFile
	if unmarshalErr := json.Unmarshal(data, &sf); unmarshalErr != nil {
		_ = m.cleanupSession(normalized)
		return nil, nil, ErrSessionCorrupted
	}

	if !sf.Session.IsValid() {
		_ = m.cleanupSession(normalized)
		return nil, nil, ErrSessionExpired
	}

	keyringKey := m.keyringKey(normalized)
	encodedKey, getErr := m.keyring.Get(ServiceName, keyringKey)
	if getErr != nil {
		_ = m.cleanupSession(normalized)
		return nil, nil, ErrSessionNotFound
	}

	sessionKey, decodeErr := base64.StdEncoding.DecodeString(encodedKey)
	if decodeErr != nil {
		_ = m.cleanupSession(normalized)
		return nil, nil, ErrSessionCorrupted
	}
	defer cryptocore.ZeroBytes(sessionKey)

	principalJSON, decryptErr := cryptocore.Decrypt(sf.EncryptedPrincipal, sessionKey)
	if decryptErr != nil {
		_ = m.cleanupSession(normalized)
		return nil, nil, ErrSessionCorrupted
	}

	var principal Principal
	if err := json.Unmarshal(principalJSON, &principal); err != nil {
		_ = m.cleanupSession(normalized)
		return nil, nil, ErrSessionCorrupted
	}

	return &principal, sf.Session, nil
}

// HasValidSession returns true if a valid session exists for the username.
func (m *FileManager) HasValidSession(username string) bool {
	normalized, err := keyderivation.NormalizeUsername(username)
	if err != nil {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.available {
		return false
	}

	sessionPath := m.sessionPath(normalized)
	//nolint:gosec // G304: path constructed from internal session path
	data, err := os.ReadFile(sessionPath)
	if err != nil {
		return false
	}

	var sf sessionFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return false
	}

	return sf.Session.IsValid()
}

// EndSession removes the session for a username.
func (m *FileManager) EndSession(username string) error {
	normalized, err := keyderivation.NormalizeUsername(username)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.cleanupSession(normalized)
}

// EndAllSessions removes all active sessions and returns the count.
func (m *FileManager) EndAllSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.listSessionsLocked()
	if err != nil {
		return 0
	}

	count := 0
	for _, sess := range sessions {
		if cleanupErr := m.cleanupSession(sess.Username); cleanupErr == nil {
			count++
		}
	}

	return count
}

// ListSessions returns all active sessions.
func (m *FileManager) ListSessions() ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.listSessionsLocked()
}

// probeKeyringTimeout is the maximum time to wait for a keyring probe.
// Prevents CLI startup from blocking if the OS keyring daemon is slow or hung.
const probeKeyringTimeout = 3 * time.Second

// probeKeyring tests if the keyring is available, with a timeout to prevent
// blocking CLI startup if the OS keyring daemon is unresponsive.
func (m *FileManager) probeKeyring() bool {
	ch := make(chan bool, 1)
	go func() {
		ch <- m.probeKeyringSync()
	}()

	select {
	case result := <-ch:
		return result
	case <-time.After(probeKeyringTimeout):
		return false
	}
}

// probeKeyringSync performs the actual synchronous keyring probe.
func (m *FileManager) probeKeyringSync() bool {
	const (
		testService = "abc-core-probe"
		testUser    = "probe"
		testValue   = "test"
	)

	if err := m.keyring.Set(testService, testUser, testValue); err != nil {
		return false
	}

	val, err := m.keyring.Get(testService, testUser)
	if err != nil || val != testValue {
		_ = m.keyring.Delete(testService, testUser)
		return false
	}

	if err := m.keyring.Delete(testService, testUser); err != nil {
		return false
	}

	return true
}

// listSessionsLocked returns all active sessions (must be called with lock held).
//
//nolint:gocognit // Iterating sessions requires multiple checks
func (m *FileManager) listSessionsLocked() ([]*Session, error) {
	if !m.available {
		return nil, ErrKeyringUnavailable
	}

	entries, err := os.ReadDir(m.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading sessions directory: %w", err)
	}

	var sessions []*Session
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, sessionFileExtension) {
			continue
		}

		username := strings.TrimSuffix(name, sessionFileExtension)
		sessionPath := m.sessionPath(username)

		//nolint:gosec // G304: path constructed from internal session path
		data, readErr := os.ReadFile(sessionPath)
		if readErr != nil {
			continue
		}

		var sf sessionFile
		if unmarshalErr := json.Unmarshal(data, &sf); unmarshalErr != nil {
			continue
		}

		if sf.Session.IsValid() {
			sessions = append(sessions, sf.Session)
		}
	}

	return sessions, nil
}

// cleanupSession removes both the session file and keyring entry.
// Must be called with appropriate lock held.
func (m *FileManager) cleanupSession(username string) error {
	keyringKey := m.keyringKey(username)
	sessionPath := m.sessionPath(username)

	_ = m.keyring.Delete(ServiceName, keyringKey)

	if err := os.Remove(sessionPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session file: %w", err)
	}

	return nil
}

// keyringKey returns the keyring key for a username.
func (m *FileManager) keyringKey(username string) string {
	return "account:" + username
}

// sessionPath returns the full path for a session file.
func (m *FileManager) sessionPath(username string) string {
	path := filepath.Join(m.basePath, username+sessionFileExtension)

	// Defensive check: ensure no directory traversal
	cleanPath := filepath.Clean(path)
	expectedSuffix := string(filepath.Separator) + username + sessionFileExtension
	if !strings.HasSuffix(cleanPath, expectedSuffix) {
		return ""
	}

	return cleanPath
}
