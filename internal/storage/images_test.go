package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carewell/clinic-scheduling/internal/storage"
)

func TestDiskImageStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDiskImageStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	ref, err := store.Save(ctx, "dr wilson.png", strings.NewReader("fake image bytes"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !storage.Managed(ref) {
		t.Errorf("ref %q not managed", ref)
	}
	if strings.Contains(ref, " ") {
		t.Errorf("ref %q contains unsanitized spaces", ref)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("files on disk = %d, want 1", len(entries))
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != "fake image bytes" {
		t.Errorf("stored content = %q", data)
	}

	if err := store.Delete(ctx, ref); err != nil {
		t.Fatalf("delete: %v", err)
	}
	entries, _ = os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("files after delete = %d, want 0", len(entries))
	}
}

func TestDiskImageStoreDeleteRejectsForeignRefs(t *testing.T) {
	store, err := storage.NewDiskImageStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	for _, ref := range []string{
		"https://example.com/photo.png",
		"/uploads/doctors/../../../etc/passwd",
		"/uploads/doctors/",
		"",
	} {
		if err := store.Delete(ctx, ref); !errors.Is(err, storage.ErrBadReference) {
			t.Errorf("Delete(%q) = %v, want ErrBadReference", ref, err)
		}
	}

	if err := store.Delete(ctx, "/uploads/doctors/missing.png"); !errors.Is(err, storage.ErrImageNotFound) {
		t.Errorf("missing file err = %v, want ErrImageNotFound", err)
	}
}

func TestDiskImageStoreUniqueNames(t *testing.T) {
	store, err := storage.NewDiskImageStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	a, err := store.Save(ctx, "photo.png", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("save a: %v", err)
	}
	b, err := store.Save(ctx, "photo.png", strings.NewReader("b"))
	if err != nil {
		t.Fatalf("save b: %v", err)
	}
	if a == b {
		t.Errorf("same ref for two saves: %q", a)
	}
}
