package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kirillkom/bpx-import-service/internal/config"
	"github.com/kirillkom/bpx-import-service/internal/core/bpx"
	"github.com/kirillkom/bpx-import-service/internal/core/domain"
	"github.com/kirillkom/bpx-import-service/internal/core/ports"
	"github.com/kirillkom/bpx-import-service/internal/core/usecase"
	"github.com/kirillkom/bpx-import-service/internal/infrastructure/queue/nats"
	"github.com/kirillkom/bpx-import-service/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/bpx-import-service/internal/infrastructure/resilience"
	"github.com/kirillkom/bpx-import-service/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/bpx-import-service/internal/infrastructure/supabase"
)

type App struct {
	Config config.Config

	// Queue and EnqueueUC are nil unless async imports are enabled.
	Queue     ports.ImportQueue
	ImportUC  ports.BPXImporter
	EnqueueUC ports.ImportEnqueuer

	closers []func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	app := &App{Config: cfg}

	overrides, err := config.LoadClassifierOverrides(cfg.ClassifierTablePath)
	if err != nil {
		return nil, err
	}
	classifier, err := bpx.NewClassifierWithOverrides(overrides)
	if err != nil {
		return nil, fmt.Errorf("init classifier: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: cfg.HTTPRetryMaxAttempts,
		BreakerEnabled:   cfg.HTTPBreakerEnabled,
	})
	var client *supabase.Client
	if cfg.BlobStore == config.BlobStoreSupabase || cfg.RecordStore == config.RecordStoreREST {
		client = supabase.New(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, supabase.Options{
			HTTPClient:         &http.Client{Timeout: 60 * time.Second},
			ResilienceExecutor: executor,
		})
	}

	blobs, err := newBlobStore(cfg, client)
	if err != nil {
		return nil, err
	}
	repo, err := app.newRecordStore(ctx, cfg, client)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.ImportUC = usecase.NewImportBPXUseCase(blobs, repo, classifier, usecase.ImportOptions{
		Policy:             domain.ReimportPolicy(cfg.ReimportPolicy),
		ExcludedToolsets:   cfg.ExcludedToolsets,
		ToolWorkers:        cfg.ToolWorkers,
		RawDecodedMaxBytes: cfg.RawDecodedMaxBytes,
	})

	if cfg.AsyncImportsEnabled {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
			DrainTimeout:       time.Duration(cfg.WorkerDrainTimeoutSeconds) * time.Second,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.closers = append(app.closers, queue.Close)
		app.Queue = queue
		app.EnqueueUC = usecase.NewEnqueueImportUseCase(queue)
	}

	return app, nil
}

func newBlobStore(cfg config.Config, client *supabase.Client) (ports.BlobStore, error) {
	if cfg.BlobStore == config.BlobStoreLocalFS {
		storage, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		return storage, nil
	}
	return supabase.NewStorage(client, cfg.SignedURLExpiresSeconds), nil
}

func (a *App) newRecordStore(ctx context.Context, cfg config.Config, client *supabase.Client) (ports.ImportRepository, error) {
	if cfg.RecordStore != config.RecordStorePostgres {
		return supabase.NewRecordStore(client), nil
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	a.closers = append(a.closers, func() { _ = db.Close() })

	repo := postgres.NewImportRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
