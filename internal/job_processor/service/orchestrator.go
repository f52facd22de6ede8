package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mediaforge/generation-ledger/internal/config"
	"github.com/mediaforge/generation-ledger/internal/domain/job"
	"github.com/mediaforge/generation-ledger/internal/domain/metric"
	"github.com/mediaforge/generation-ledger/internal/domain/shared"
	"github.com/mediaforge/generation-ledger/internal/domain/wallet"
	"github.com/mediaforge/generation-ledger/internal/platform/metrics"
	"github.com/mediaforge/generation-ledger/internal/platform/storage"
	"github.com/mediaforge/generation-ledger/internal/providers/adapters"
	"github.com/mediaforge/generation-ledger/internal/retry"
)

// costPrecision matches the ledger's fixed decimal precision
const costPrecision = 6

// OrchestratorService drives one dispatched job from PROCESSING to a terminal state.
//
// Failure policy: business outcomes (provider rejected the prompt, retries exhausted,
// reservation already settled) are recorded on the job and acknowledged, returning nil
// so the Kafka offset commits. Infrastructure errors (store unreachable) propagate so
// the message is redelivered.
type OrchestratorService struct {
	jobRepo    job.Repository
	walletRepo wallet.Repository
	catalog    ProviderCatalog
	resolver   GeneratorResolver
	artifacts  storage.ArtifactStore
	recorder   metric.Recorder
	retryCfg   config.RetryConfig
	logger     *slog.Logger
}

// NewOrchestratorService creates the job orchestrator
func NewOrchestratorService(
	logger *slog.Logger,
	jobRepo job.Repository,
	walletRepo wallet.Repository,
	catalog ProviderCatalog,
	resolver GeneratorResolver,
	artifacts storage.ArtifactStore,
	recorder metric.Recorder,
	retryCfg config.RetryConfig,
) ProcessingService {
	return &OrchestratorService{
		jobRepo:    jobRepo,
		walletRepo: walletRepo,
		catalog:    catalog,
		resolver:   resolver,
		artifacts:  artifacts,
		recorder:   recorder,
		retryCfg:   retryCfg,
		logger:     logger,
	}
}

// ProcessDispatch handles the core logic for one dispatched job
func (s *OrchestratorService) ProcessDispatch(ctx context.Context, dispatch *shared.JobDispatch) error {
	logger := s.logger
	if dispatch.CorrelationID != "" {
		logger = s.logger.With("correlation_id", dispatch.CorrelationID)
	}

	logger.Info("Processing job dispatch",
		"job_id", dispatch.JobID.String(),
		"provider", dispatch.ProviderName,
		"content_type", string(dispatch.ContentType),
	)

	// The dispatch message is a pointer; the job row is the record
	j, err := s.jobRepo.GetByID(ctx, dispatch.JobID)
	if err != nil {
		var notFound job.ErrJobNotFound
		if errors.As(err, &notFound) {
			logger.Error("Dispatch references a job that does not exist, dropping", "job_id", dispatch.JobID.String())
			return nil
		}
		return err // Let Kafka retry
	}

	// Idempotent re-entry: a redelivered dispatch for a finished job is a no-op
	if j.Status.Terminal() {
		logger.Info("Job already terminal, acknowledging redelivered dispatch",
			"job_id", j.ID.String(),
			"status", string(j.Status),
		)
		return nil
	}

	if j.Status == job.StatusPending {
		if err := s.jobRepo.MarkProcessing(ctx, j.ID); err != nil {
			var invalid job.ErrInvalidTransition
			if errors.As(err, &invalid) {
				// Lost the claim race; reload and decide again
				current, getErr := s.jobRepo.GetByID(ctx, j.ID)
				if getErr != nil {
					return getErr
				}
				if current.Status.Terminal() {
					return nil
				}
				j = current
			} else {
				return err
			}
		}
	}

	prov, err := s.catalog.Provider(dispatch.ProviderName)
	if err != nil {
		// Catalog lost the provider between intake and processing; terminal failure
		logger.Error("Provider no longer in catalog", "provider", dispatch.ProviderName, "error", err)
		return s.failJob(ctx, logger, j, dispatch, fmt.Sprintf("provider %s is not available", dispatch.ProviderName))
	}

	generator, err := s.resolver.Generator(prov)
	if err != nil {
		logger.Error("No adapter for provider", "provider", prov.Name, "error", err)
		return s.failJob(ctx, logger, j, dispatch, fmt.Sprintf("provider %s has no usable adapter", prov.Name))
	}

	started := time.Now()
	var result *adapters.Response
	genErr := retry.Do(ctx, retry.Policy{MaxAttempts: s.retryCfg.MaxAttempts, BaseDelay: s.retryCfg.BaseDelay}, func(ctx context.Context) error {
		var opErr error
		result, opErr = generator.Generate(ctx, adapters.Request{
			JobID:    j.ID,
			Prompt:   j.Prompt,
			Model:    modelOverride(j.Settings),
			Settings: j.Settings,
		})
		return opErr
	})
	elapsed := time.Since(started)
	metrics.JobDuration.WithLabelValues(string(j.ContentType), prov.Name).Observe(elapsed.Seconds())

	if genErr != nil {
		logger.Error("Generation failed after retries",
			"job_id", j.ID.String(),
			"provider", prov.Name,
			"elapsed", elapsed,
			"error", genErr,
		)
		return s.failJob(ctx, logger, j, dispatch, genErr.Error())
	}

	jobResult, err := s.buildResult(ctx, j, result)
	if err != nil {
		logger.Error("Failed to store generated artifact",
			"job_id", j.ID.String(),
			"error", err,
		)
		return s.failJob(ctx, logger, j, dispatch, "failed to store generated artifact")
	}

	actualCost := prov.CostPerUnit.Mul(result.Units).Round(costPrecision)

	// Ledger first, job status second: a crash between the two leaves a terminal-bound
	// job with a settled reservation, which the reconciler can recognize, rather than a
	// completed job whose credits were never charged.
	if _, err := s.walletRepo.ConfirmDeduction(ctx, dispatch.TransactionID, actualCost); err != nil {
		var settled wallet.ErrReservationSettled
		if errors.As(err, &settled) {
			logger.Warn("Reservation already settled, continuing to job status write",
				"job_id", j.ID.String(),
				"reservation_id", dispatch.TransactionID.String(),
			)
		} else {
			logger.Error("Failed to confirm credit deduction",
				"job_id", j.ID.String(),
				"reservation_id", dispatch.TransactionID.String(),
				"error", err,
			)
			return err // Infrastructure failure, let Kafka retry
		}
	}

	if err := s.jobRepo.MarkCompleted(ctx, j.ID, jobResult, actualCost); err != nil {
		var invalid job.ErrInvalidTransition
		if errors.As(err, &invalid) {
			logger.Warn("Job reached terminal state concurrently", "job_id", j.ID.String())
			return nil
		}
		// The ledger settled but the status write failed; the reconciler will finish
		// the job from the settled reservation.
		logger.Error("Failed to mark job completed after ledger settle",
			"job_id", j.ID.String(),
			"error", err,
		)
		return err
	}

	costFloat, _ := actualCost.Float64()
	metrics.JobsProcessed.WithLabelValues(string(j.ContentType), prov.Name, "completed").Inc()
	metrics.CreditsSettled.Add(costFloat)
	if err := s.recorder.Record(ctx, metric.New("job_completed", costFloat, "job_processor", map[string]any{
		"job_id":      j.ID.String(),
		"provider":    prov.Name,
		"duration_ms": elapsed.Milliseconds(),
	})); err != nil {
		logger.Warn("Failed to record completion metric", "job_id", j.ID.String(), "error", err)
	}

	logger.Info("Job completed",
		"job_id", j.ID.String(),
		"provider", prov.Name,
		"actual_cost", actualCost.String(),
		"elapsed", elapsed,
	)
	return nil
}

// buildResult turns the adapter response into a stored job result, uploading binary
// payloads to the artifact store
func (s *OrchestratorService) buildResult(ctx context.Context, j *job.Job, resp *adapters.Response) (*job.Result, error) {
	if len(resp.Data) == 0 {
		return &job.Result{
			Content:  resp.Content,
			Metadata: resp.Metadata,
		}, nil
	}

	url, err := s.artifacts.Save(ctx, j.AccountID, j.ID, resp.Extension, resp.Data)
	if err != nil {
		return nil, err
	}
	return &job.Result{
		ContentURL: url,
		Metadata:   resp.Metadata,
	}, nil
}

// failJob runs the failure path: release the reservation, then record the failure on
// the job. The two steps are ordered ledger-first for the same crash-recovery reason
// as completion. A release failure is logged as its own problem and never masks the
// original generation error; the reconciler picks up the still-pending reservation.
func (s *OrchestratorService) failJob(ctx context.Context, logger *slog.Logger, j *job.Job, dispatch *shared.JobDispatch, reason string) error {
	if _, err := s.walletRepo.ReleaseReservation(ctx, dispatch.TransactionID, nil); err != nil {
		var settled wallet.ErrReservationSettled
		if errors.As(err, &settled) {
			logger.Warn("Reservation already settled during failure handling",
				"job_id", j.ID.String(),
				"reservation_id", dispatch.TransactionID.String(),
			)
		} else {
			logger.Error("Failed to release reservation for failed job, reconciler will settle it",
				"job_id", j.ID.String(),
				"reservation_id", dispatch.TransactionID.String(),
				"release_error", err,
				"job_error", reason,
			)
		}
	} else {
		metrics.ReservationsReleased.WithLabelValues("job_failed").Inc()
	}

	if err := s.jobRepo.MarkFailed(ctx, j.ID, reason); err != nil {
		var invalid job.ErrInvalidTransition
		if errors.As(err, &invalid) {
			logger.Warn("Job reached terminal state concurrently during failure handling", "job_id", j.ID.String())
			return nil
		}
		logger.Error("Failed to mark job failed", "job_id", j.ID.String(), "error", err)
		return err // Infrastructure failure, let Kafka retry
	}

	metrics.JobsProcessed.WithLabelValues(string(j.ContentType), dispatch.ProviderName, "failed").Inc()
	if err := s.recorder.Record(ctx, metric.New("job_failed", 1, "job_processor", map[string]any{
		"job_id":   j.ID.String(),
		"provider": dispatch.ProviderName,
		"reason":   reason,
	})); err != nil {
		logger.Warn("Failed to record failure metric", "job_id", j.ID.String(), "error", err)
	}

	return nil // Business failure recorded; acknowledge the message
}

// modelOverride honors a per-request model choice in the job settings
func modelOverride(settings map[string]any) string {
	if m, ok := settings["model"].(string); ok {
		return m
	}
	return ""
}

