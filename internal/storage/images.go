// Package storage holds the profile image store. The HTTP layer hands it
// uploaded doctor images; the roster service asks it to clean up on removal.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrImageNotFound = errors.New("image not found")
	ErrBadReference  = errors.New("image reference is not managed by this store")
)

// ImageStore persists doctor profile images and returns opaque references.
// Delete is best-effort for callers: the roster service logs failures and
// carries on.
type ImageStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

const refPrefix = "/uploads/doctors/"

// DiskImageStore writes images under a single directory with unique names.
type DiskImageStore struct {
	dir string
}

func NewDiskImageStore(dir string) (*DiskImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskImageStore{dir: dir}, nil
}

var _ ImageStore = (*DiskImageStore)(nil)

// Save copies the image to disk under a unique name and returns its
// reference. The original filename only contributes its sanitized base name.
func (s *DiskImageStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + "-" + sanitize(filepath.Base(filename))
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close image file: %w", err)
	}

	return refPrefix + name, nil
}

// Delete removes a previously saved image. References outside this store's
// namespace (e.g. external URLs seeded for demo doctors) are rejected rather
// than touched.
func (s *DiskImageStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, ok := strings.CutPrefix(ref, refPrefix)
	if !ok || name == "" || strings.Contains(name, "/") {
		return ErrBadReference
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return ErrImageNotFound
	}
	return err
}

// Managed reports whether ref points into this store, i.e. whether Delete
// could ever succeed for it.
func Managed(ref string) bool {
	return strings.HasPrefix(ref, refPrefix)
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
