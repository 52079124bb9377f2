package usecase

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/bpx-import-service/internal/core/domain"
)

const defaultStorageBucket = "imports"

func normalizeJob(job domain.ImportJob) (domain.ImportJob, error) {
	job.ID = strings.TrimSpace(job.ID)
	job.ProjectID = strings.TrimSpace(job.ProjectID)
	job.PriorProfileID = strings.TrimSpace(job.PriorProfileID)
	job.StorageBucket = strings.TrimSpace(job.StorageBucket)
	job.StoragePath = strings.TrimSpace(job.StoragePath)
	job.CreatedBy = strings.TrimSpace(job.CreatedBy)

	if job.ProjectID == "" {
		return job, domain.WrapError(domain.ErrInvalidInput, "validate import job", errors.New("project_id is required"))
	}
	if job.StoragePath == "" {
		return job, domain.WrapError(domain.ErrInvalidInput, "validate import job", errors.New("storage_path is required"))
	}
	if job.StorageBucket == "" {
		job.StorageBucket = defaultStorageBucket
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	return job, nil
}
