// Package prefs persists the user's backend choice across restarts.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"poetryhub/internal/backend"
)

// Key is the name the choice is stored under.
const Key = "preferred-backend"

// Store loads and saves the preferred backend. Load reports false when no
// choice has been saved yet.
type Store interface {
	Load() (backend.ID, bool, error)
	Save(id backend.ID) error
}

// File keeps preferences in a small JSON object on disk. Processes sharing
// the file serialize through a sibling lock file.
type File struct {
	path string
	lock *flock.Flock
}

// NewFile stores preferences in dir/prefs.json.
func NewFile(dir string) *File {
	path := filepath.Join(dir, "prefs.json")
	return &File{path: path, lock: flock.New(path + ".lock")}
}

func (f *File) Path() string { return f.path }

func (f *File) Load() (backend.ID, bool, error) {
	if err := f.ensureDir(); err != nil {
		return "", false, err
	}
	if err := f.lock.RLock(); err != nil {
		return "", false, fmt.Errorf("lock prefs: %w", err)
	}
	defer f.lock.Unlock()

	values, err := f.read()
	if err != nil {
		return "", false, err
	}
	raw, ok := values[Key]
	if !ok || raw == "" {
		return "", false, nil
	}
	id, err := backend.ParseID(raw)
	if err != nil {
		return "", false, fmt.Errorf("prefs %s: %w", Key, err)
	}
	return id, true, nil
}

// Save writes id under Key, keeping any other keys in the file.
func (f *File) Save(id backend.ID) error {
	if !id.Valid() {
		return fmt.Errorf("save prefs: unknown backend %q", id)
	}
	if err := f.ensureDir(); err != nil {
		return err
	}
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("lock prefs: %w", err)
	}
	defer f.lock.Unlock()

	values, err := f.read()
	if err != nil {
		values = map[string]string{}
	}
	values[Key] = string(id)

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	// Write atomically via temp file
	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (f *File) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create prefs directory: %w", err)
	}
	return nil
}

func (f *File) read() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("read prefs: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse prefs: %w", err)
	}
	return values, nil
}

// Memory is an in-process Store for tools that must not touch disk.
type Memory struct {
	mu    sync.Mutex
	id    backend.ID
	saves int
}

func (m *Memory) Load() (backend.ID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, m.id != "", nil
}

func (m *Memory) Save(id backend.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = id
	m.saves++
	return nil
}

// Saves counts calls to Save.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
