package ports

import (
	"context"

	"github.com/kirillkom/bpx-import-service/internal/core/domain"
)

// BlobStore returns the full text of a stored BPX document.
type BlobStore interface {
	Fetch(ctx context.Context, bucket, path string) (string, error)
}

// ImportRepository persists import records. Create methods set the generated ID on the record.
type ImportRepository interface {
	CreateProfile(ctx context.Context, profile *domain.Profile) error
	CreateToolset(ctx context.Context, toolset *domain.Toolset) error
	CreateTool(ctx context.Context, tool *domain.Tool) error
	CreatePreset(ctx context.Context, preset *domain.Preset) error
	// DeleteProfileImports removes a profile with its toolsets, tools and presets.
	// Missing rows are not an error.
	DeleteProfileImports(ctx context.Context, profileID string) error
}

// ImportQueue publishes/consumes asynchronous import jobs.
type ImportQueue interface {
	PublishImportRequested(ctx context.Context, job domain.ImportJob) error
	SubscribeImportRequested(ctx context.Context, handler func(context.Context, domain.ImportJob) error) error
}
