package localfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFetchReadsBucketRelativeFile(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "imports", "uploads"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "imports", "uploads", "chest.bpx"), []byte("<x/>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	storage, err := New(root)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	text, err := storage.Fetch(context.Background(), "imports", "uploads/chest.bpx")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if text != "<x/>" {
		t.Fatalf("unexpected content %q", text)
	}
}

func TestFetchRejectsEscapingPaths(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, path := range []string{"../../etc/passwd", "/etc/passwd/../../../x"} {
		if _, err := storage.Fetch(context.Background(), "imports", path); err == nil {
			t.Fatalf("expected error for %q", path)
		}
	}
	if _, err := storage.Fetch(context.Background(), "", "a.bpx"); err == nil {
		t.Fatalf("expected error for empty bucket")
	}
}

func TestFetchMissingFile(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := storage.Fetch(context.Background(), "imports", "missing.bpx"); err == nil {
		t.Fatalf("expected error")
	}
}
