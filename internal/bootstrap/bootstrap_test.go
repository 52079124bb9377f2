package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/bpx-import-service/internal/config"
)

func localConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		BlobStore:              config.BlobStoreLocalFS,
		StoragePath:            t.TempDir(),
		RecordStore:            config.RecordStoreREST,
		SupabaseURL:            "http://127.0.0.1:1",
		SupabaseServiceRoleKey: "service-key",
		ReimportPolicy:         "version",
		ToolWorkers:            2,
	}
}

func TestNewWiresSyncImportWithoutQueue(t *testing.T) {
	app, err := New(context.Background(), localConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if app.ImportUC == nil {
		t.Fatalf("expected import use case")
	}
	if app.Queue != nil || app.EnqueueUC != nil {
		t.Fatalf("expected no queue when async imports are disabled")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := localConfig(t)
	cfg.RecordStore = "mongo"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatalf("expected config error")
	}
}

func TestNewRejectsBadClassifierTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classifier.yaml")
	if err := os.WriteFile(path, []byte("kinds:\n  polyline: volume\n"), 0o600); err != nil {
		t.Fatalf("write table: %v", err)
	}
	cfg := localConfig(t)
	cfg.ClassifierTablePath = path

	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatalf("expected unknown kind to fail startup")
	}
}
