package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mediaforge/generation-ledger/internal/domain/job"
)

// JobServiceImpl implements the JobService interface
type JobServiceImpl struct {
	jobRepo job.Repository
	logger  *slog.Logger
}

// NewJobService creates a new job read service
func NewJobService(logger *slog.Logger, jobRepo job.Repository) JobService {
	return &JobServiceImpl{
		jobRepo: jobRepo,
		logger:  logger,
	}
}

// GetJob retrieves a job by its ID
func (s *JobServiceImpl) GetJob(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	return s.jobRepo.GetByID(ctx, id)
}

// ListJobsByAccount retrieves paginated job history for an account
// Returns jobs, total count, and any error
func (s *JobServiceImpl) ListJobsByAccount(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*job.Job, int64, error) {
	offset := (page - 1) * perPage

	jobs, err := s.jobRepo.GetByAccountID(ctx, accountID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.jobRepo.CountByAccountID(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}

	return jobs, total, nil
}
