// Package auth keeps the bearer token between runs and inspects its claims.
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/langhelper/internal/storage/local"
)

// tokenFile is the document name of the persisted token
const tokenFile = "auth"

// MemoryStore keeps the token for the lifetime of the process
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore creates an empty in-memory token store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *MemoryStore) SetToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Clear() error {
	return m.SetToken("")
}

// Credentials is the persisted form of a login
type Credentials struct {
	Token   string    `json:"token"`
	Email   string    `json:"email,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// FileStore persists the token to auth.json (0600) in the config directory.
// Reads are served from memory after the first load.
type FileStore struct {
	store *local.Store

	mu     sync.RWMutex
	loaded bool
	creds  Credentials
}

// NewFileStore opens the token file under dir
func NewFileStore(dir string) (*FileStore, error) {
	store, err := local.NewStore(dir, local.WithFileMode(0600))
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}
	return &FileStore{store: store}, nil
}

func (f *FileStore) load() {
	f.mu.RLock()
	loaded := f.loaded
	f.mu.RUnlock()
	if loaded {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loaded {
		return
	}
	var creds Credentials
	if err := f.store.Load("", tokenFile, &creds); err == nil {
		f.creds = creds
	}
	f.loaded = true
}

// Token returns the stored token or ""
func (f *FileStore) Token() string {
	f.load()
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.creds.Token
}

// Credentials returns the stored login
func (f *FileStore) Credentials() Credentials {
	f.load()
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.creds
}

// SetToken stores token, keeping the recorded email
func (f *FileStore) SetToken(token string) error {
	f.load()
	f.mu.Lock()
	defer f.mu.Unlock()

	creds := Credentials{Token: token, Email: f.creds.Email, SavedAt: time.Now().UTC()}
	if err := f.store.Save("", tokenFile, creds); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	f.creds = creds
	return nil
}

// SetEmail records which account the token belongs to
func (f *FileStore) SetEmail(email string) error {
	f.load()
	f.mu.Lock()
	defer f.mu.Unlock()

	creds := f.creds
	creds.Email = email
	if err := f.store.Save("", tokenFile, creds); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	f.creds = creds
	return nil
}

// Clear removes the token file
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creds = Credentials{}
	f.loaded = true
	if err := f.store.Delete("", tokenFile); err != nil && !errors.Is(err, local.ErrNotFound) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}
