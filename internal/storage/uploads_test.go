package storage

import (
	"os"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestSave_StoresFileWithGeneratedName(t *testing.T) {
	store := newTestStore(t)

	name, err := store.Save("me.png", strings.NewReader("fake image bytes"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if name == "me.png" {
		t.Error("Save() should generate a new name, not reuse the upload's")
	}
	if !strings.HasSuffix(name, ".png") {
		t.Errorf("Save() name = %q, want .png extension preserved", name)
	}

	data, err := os.ReadFile(store.Path(name))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(data) != "fake image bytes" {
		t.Errorf("stored content = %q, want %q", data, "fake image bytes")
	}
}

func TestSave_RejectsUnknownExtension(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Save("malware.exe", strings.NewReader("x")); err == nil {
		t.Fatal("Save() should reject non-image extensions")
	}
}

func TestRemove(t *testing.T) {
	store := newTestStore(t)

	name, err := store.Save("me.jpg", strings.NewReader("bytes"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := store.Remove(name); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(store.Path(name)); !os.IsNotExist(err) {
		t.Error("Remove() did not delete the file")
	}

	// Idempotent: removing again is not an error.
	if err := store.Remove(name); err != nil {
		t.Errorf("Remove() second call error = %v, want nil", err)
	}
}

func TestPath_SanitisesName(t *testing.T) {
	store := newTestStore(t)

	path := store.Path("../../etc/passwd")
	if strings.Contains(path, "..") {
		t.Errorf("Path() = %q, traversal components must be stripped", path)
	}
}
