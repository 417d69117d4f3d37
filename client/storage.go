package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cppla/blogd/models"
)

// SessionData is what a Storage persists.
type SessionData struct {
	Token string       `json:"token"`
	User  *models.User `json:"user,omitempty"`
}

// Storage persists session data between runs. Load returns (nil, nil) when nothing is stored.
type Storage interface {
	Load() (*SessionData, error)
	Save(SessionData) error
	Clear() error
}

// MemoryStorage keeps the session in process memory.
type MemoryStorage struct {
	mu   sync.Mutex
	data *SessionData
}

// NewMemoryStorage returns an empty in-process Storage.
func NewMemoryStorage() *MemoryStorage { return &MemoryStorage{} }

// Load returns the saved session, or nil when none is stored.
func (m *MemoryStorage) Load() (*SessionData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	cp := *m.data
	return &cp, nil
}

// Save replaces the stored session.
func (m *MemoryStorage) Save(d SessionData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = &d
	return nil
}

// Clear forgets the stored session.
func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

// FileStorage stores the session as JSON in a file readable only by its owner.
type FileStorage struct {
	Path string
	mu   sync.Mutex
}

// NewFileStorage persists sessions as JSON at path.
func NewFileStorage(path string) *FileStorage { return &FileStorage{Path: path} }

// Load reads the session file. A missing file is not an error.
func (f *FileStorage) Load() (*SessionData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var d SessionData
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	return &d, nil
}

// Save writes the session file with owner-only permissions.
func (f *FileStorage) Save(d SessionData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}

// Clear removes the session file.
func (f *FileStorage) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
