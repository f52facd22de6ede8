package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mediaforge/generation-ledger/internal/domain/job"
	"github.com/mediaforge/generation-ledger/internal/domain/provider"
)

type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Create(ctx context.Context, j *job.Job) error {
	args := m.Called(ctx, j)
	return args.Error(0)
}

func (m *MockJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func (m *MockJobRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*job.Job, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*job.Job), args.Error(1)
}

func (m *MockJobRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockJobRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockJobRepository) MarkCompleted(ctx context.Context, id uuid.UUID, result *job.Result, actualCost decimal.Decimal) error {
	args := m.Called(ctx, id, result, actualCost)
	return args.Error(0)
}

func (m *MockJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	args := m.Called(ctx, id, errMsg)
	return args.Error(0)
}

func (m *MockJobRepository) GetUnsettled(ctx context.Context, olderThan time.Time, limit int) ([]*job.UnsettledJob, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*job.UnsettledJob), args.Error(1)
}

func (m *MockJobRepository) WithTx(tx pgx.Tx) job.Repository {
	return m
}

func TestJobService_GetJob(t *testing.T) {
	logger := slog.Default()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockJobRepository)
		svc := NewJobService(logger, mockRepo)
		jobID := uuid.New()
		expected := &job.Job{
			ID:          jobID,
			AccountID:   uuid.New(),
			ContentType: provider.ContentTypeText,
			Status:      job.StatusCompleted,
		}

		mockRepo.On("GetByID", mock.Anything, jobID).Return(expected, nil).Once()

		result, err := svc.GetJob(context.Background(), jobID)
		require.NoError(t, err)
		assert.Equal(t, expected, result)
		mockRepo.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockRepo := new(MockJobRepository)
		svc := NewJobService(logger, mockRepo)
		jobID := uuid.New()

		mockRepo.On("GetByID", mock.Anything, jobID).
			Return(nil, job.ErrJobNotFound{JobID: jobID}).Once()

		result, err := svc.GetJob(context.Background(), jobID)
		assert.ErrorIs(t, err, job.ErrJobNotFound{})
		assert.Nil(t, result)
	})
}

func TestJobService_ListJobsByAccount(t *testing.T) {
	logger := slog.Default()

	t.Run("PaginatesWithOffset", func(t *testing.T) {
		mockRepo := new(MockJobRepository)
		svc := NewJobService(logger, mockRepo)
		accountID := uuid.New()
		jobs := []*job.Job{{ID: uuid.New()}, {ID: uuid.New()}}

		mockRepo.On("GetByAccountID", mock.Anything, accountID, 10, 10).
			Return(jobs, nil).Once()
		mockRepo.On("CountByAccountID", mock.Anything, accountID).
			Return(int64(12), nil).Once()

		result, total, err := svc.ListJobsByAccount(context.Background(), accountID, 2, 10)
		require.NoError(t, err)
		assert.Len(t, result, 2)
		assert.Equal(t, int64(12), total)
		mockRepo.AssertExpectations(t)
	})

	t.Run("CountError", func(t *testing.T) {
		mockRepo := new(MockJobRepository)
		svc := NewJobService(logger, mockRepo)
		accountID := uuid.New()

		mockRepo.On("GetByAccountID", mock.Anything, accountID, 10, 0).
			Return([]*job.Job{}, nil).Once()
		mockRepo.On("CountByAccountID", mock.Anything, accountID).
			Return(int64(0), errors.New("db error")).Once()

		_, _, err := svc.ListJobsByAccount(context.Background(), accountID, 1, 10)
		assert.Error(t, err)
	})
}
