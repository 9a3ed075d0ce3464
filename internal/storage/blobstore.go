// Package storage is the on-disk blob store for uploaded vehicle images.
// Blobs are opaque to the rest of the system: callers hold only the ref
// returned by Save.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStore is the capability the catalog needs from image storage.
type BlobStore interface {
	Save(vehicleID, ext string, r io.Reader) (ref string, err error)
	Remove(ref string) error
}

// DiskStore stores blobs as files under a base directory.
type DiskStore struct {
	basePath string
}

// NewDiskStore creates a DiskStore rooted at basePath, creating the
// directory if needed.
func NewDiskStore(basePath string) (*DiskStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &DiskStore{basePath: basePath}, nil
}

// Save writes the payload to disk and returns its opaque reference. The ref
// embeds the owning vehicle ID so files group per vehicle on disk.
func (s *DiskStore) Save(vehicleID, ext string, r io.Reader) (string, error) {
	ext = strings.TrimPrefix(ext, ".")
	ref := filepath.Join(vehicleID, uuid.New().String()+"."+ext)

	path := filepath.Join(s.basePath, ref)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", err
	}
	return ref, nil
}

// Remove deletes the blob for ref. A missing file is not an error; the row
// is the source of truth and the file may already be gone.
func (s *DiskStore) Remove(ref string) error {
	err := os.Remove(filepath.Join(s.basePath, ref))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
