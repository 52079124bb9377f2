package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/bpx-import-service/internal/core/domain"
	"github.com/kirillkom/bpx-import-service/internal/core/ports"
)

type EnqueueImportUseCase struct {
	queue ports.ImportQueue
	now   func() time.Time
}

func NewEnqueueImportUseCase(queue ports.ImportQueue) *EnqueueImportUseCase {
	return &EnqueueImportUseCase{queue: queue, now: time.Now}
}

func (uc *EnqueueImportUseCase) Enqueue(ctx context.Context, job domain.ImportJob) (domain.ImportJob, error) {
	job, err := normalizeJob(job)
	if err != nil {
		return domain.ImportJob{}, err
	}
	job.RequestedAt = uc.now().UTC()
	if err := uc.queue.PublishImportRequested(ctx, job); err != nil {
		return domain.ImportJob{}, fmt.Errorf("publish import job: %w", err)
	}
	return job, nil
}
