// Package storage persists uploaded profile pictures on the local
// filesystem. Accounts store only the generated file name; resolving it
// to a path (or serving it) goes through the Store.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/xid"
)

// allowedExtensions are the image types accepted for profile pictures.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Store writes uploaded files under a single root directory.
//
// Stored names are generated (xid + original extension), never taken
// from the upload, so a crafted filename cannot escape the root.
type Store struct {
	root string
}

// NewStore creates the root directory if needed and returns a Store.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating upload directory %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Save writes the upload to the store and returns the generated name.
// originalName is only consulted for its extension; unknown extensions
// are rejected.
//
// The caller owns the lifecycle: if the record the file belongs to fails
// to persist, call Remove with the returned name so no orphan is left
// behind.
func (s *Store) Save(originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("storage: unsupported image type %q", ext)
	}

	name := xid.New().String() + ext
	path := filepath.Join(s.root, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: creating %s: %w", name, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("storage: writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("storage: closing %s: %w", name, err)
	}

	return name, nil
}

// Remove deletes a stored file. Removing a name that no longer exists is
// not an error — deletion must be idempotent for cleanup paths.
func (s *Store) Remove(name string) error {
	if name == "" {
		return nil
	}
	path := filepath.Join(s.root, filepath.Base(name))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: removing %s: %w", name, err)
	}
	return nil
}

// Path resolves a stored name to its filesystem path. The name is
// sanitised to its base component.
func (s *Store) Path(name string) string {
	return filepath.Join(s.root, filepath.Base(name))
}
