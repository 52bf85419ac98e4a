// Package storage persists uploaded profile pictures on disk under a
// media root, keyed by generated filenames so uploads can never collide
// or overwrite each other.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	pictureDir = "profile_pictures"

	// MaxPictureSize is the largest accepted upload, in bytes.
	MaxPictureSize = 5 << 20
)

// allowedExtensions maps the accepted image file extensions.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// PictureStore saves uploaded picture content and returns the stored
// reference path.
type PictureStore interface {
	Save(filename string, content []byte) (string, error)
}

// DiskPictureStore stores pictures on the local filesystem under a
// configured media root.
type DiskPictureStore struct {
	root string
}

// NewDiskPictureStore creates a DiskPictureStore rooted at mediaRoot,
// creating the picture directory if needed.
func NewDiskPictureStore(mediaRoot string) (*DiskPictureStore, error) {
	dir := filepath.Join(mediaRoot, pictureDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create picture directory %s: %w", dir, err)
	}
	return &DiskPictureStore{root: mediaRoot}, nil
}

// Save validates the upload and writes it under the picture namespace with
// a generated name, preserving the original extension. The returned path
// is relative to the media root and is what gets persisted on the profile.
func (s *DiskPictureStore) Save(filename string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("empty picture upload")
	}
	if len(content) > MaxPictureSize {
		return "", fmt.Errorf("picture exceeds maximum size of %d bytes", MaxPictureSize)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("unsupported picture type %q", ext)
	}

	name := uuid.New().String() + ext
	relPath := filepath.Join(pictureDir, name)
	if err := os.WriteFile(filepath.Join(s.root, relPath), content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write picture %s: %w", relPath, err)
	}
	return filepath.ToSlash(relPath), nil
}
