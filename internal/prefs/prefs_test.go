package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"poetryhub/internal/backend"
)

func TestFileRoundTrip(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "state"))

	if _, ok, err := f.Load(); err != nil || ok {
		t.Fatalf("fresh Load() = %v, %v; want no choice", ok, err)
	}

	if err := f.Save(backend.Store); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	id, ok, err := f.Load()
	if err != nil || !ok || id != backend.Store {
		t.Fatalf("Load() = %q, %v, %v", id, ok, err)
	}

	// a second handle on the same directory sees the same choice
	other := NewFile(filepath.Dir(f.Path()))
	if id, _, _ := other.Load(); id != backend.Store {
		t.Errorf("second handle loaded %q", id)
	}
}

func TestFileKeepsOtherKeysAndReadsLegacyNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prefs.json")
	data, _ := json.Marshal(map[string]string{Key: "supabase", "theme": "dark"})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFile(dir)
	id, ok, err := f.Load()
	if err != nil || !ok || id != backend.Store {
		t.Fatalf("legacy Load() = %q, %v, %v", id, ok, err)
	}

	if err := f.Save(backend.Remote); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	raw, _ := os.ReadFile(path)
	var values map[string]string
	if err := json.Unmarshal(raw, &values); err != nil {
		t.Fatal(err)
	}
	if values["theme"] != "dark" || values[Key] != "remote" {
		t.Errorf("file after save = %v", values)
	}
}

func TestFileRejectsUnknown(t *testing.T) {
	dir := t.TempDir()
	f := NewFile(dir)
	if err := f.Save("mongo"); err == nil {
		t.Error("Save should reject unknown backends")
	}

	if err := os.WriteFile(filepath.Join(dir, "prefs.json"), []byte(`{"preferred-backend":"mongo"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.Load(); err == nil {
		t.Error("Load should report an unknown stored backend")
	}
}

func TestMemory(t *testing.T) {
	var m Memory
	if _, ok, _ := m.Load(); ok {
		t.Fatal("empty memory store reported a choice")
	}
	_ = m.Save(backend.Remote)
	if id, ok, _ := m.Load(); !ok || id != backend.Remote || m.Saves() != 1 {
		t.Errorf("Load() = %q, %v; saves %d", id, ok, m.Saves())
	}
}
