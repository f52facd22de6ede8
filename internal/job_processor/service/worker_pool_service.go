package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/mediaforge/generation-ledger/internal/domain/shared"
)

// WorkerPoolProcessingService implements the ProcessingService interface
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
	// Use a mutex to protect access to the results map
	mu      sync.Mutex
	results map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan error),
	}, nil
}

// ProcessDispatch submits a job dispatch to the worker pool for processing.
func (s *WorkerPoolProcessingService) ProcessDispatch(ctx context.Context, dispatch *shared.JobDispatch) error {
	logger := s.logger
	if dispatch.CorrelationID != "" {
		logger = s.logger.With("correlation_id", dispatch.CorrelationID)
	}

	logger.Info("Submitting job to worker pool",
		"job_id", dispatch.JobID.String(),
		"account_id", dispatch.AccountID.String(),
	)

	// Create a channel to receive the result of the job processing
	resultChan := make(chan error, 1)

	jobID := dispatch.JobID.String()
	s.mu.Lock()
	s.results[jobID] = resultChan
	s.mu.Unlock()

	// Create a copy of the dispatch to avoid data races
	dispatchCopy := *dispatch

	err := s.pool.Submit(func() {
		err := s.baseService.ProcessDispatch(ctx, &dispatchCopy)

		resultChan <- err

		s.mu.Lock()
		delete(s.results, jobID)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		// If we couldn't submit the task to the pool, remove the result channel
		s.mu.Lock()
		delete(s.results, jobID)
		close(resultChan)
		s.mu.Unlock()

		logger.Error("Failed to submit job to worker pool",
			"job_id", dispatch.JobID.String(),
			"error", err,
		)
		return err
	}

	// Wait for the result from the worker
	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
