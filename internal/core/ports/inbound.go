package ports

import (
	"context"

	"github.com/kirillkom/bpx-import-service/internal/core/domain"
)

// BPXImporter is the inbound contract for a synchronous BPX import run.
type BPXImporter interface {
	Import(ctx context.Context, job domain.ImportJob) (*domain.ImportSummary, error)
}

// ImportEnqueuer is the inbound contract for handing an import to the worker.
type ImportEnqueuer interface {
	Enqueue(ctx context.Context, job domain.ImportJob) (domain.ImportJob, error)
}
