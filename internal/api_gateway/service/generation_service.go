package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mediaforge/generation-ledger/internal/domain/job"
	"github.com/mediaforge/generation-ledger/internal/domain/metric"
	"github.com/mediaforge/generation-ledger/internal/domain/provider"
	"github.com/mediaforge/generation-ledger/internal/domain/shared"
	"github.com/mediaforge/generation-ledger/internal/domain/wallet"
	"github.com/mediaforge/generation-ledger/internal/platform/messaging/producers"
	"github.com/mediaforge/generation-ledger/internal/platform/metrics"
	"github.com/mediaforge/generation-ledger/internal/platform/persistence"
	"github.com/mediaforge/generation-ledger/internal/providers"
)

// GenerationServiceImpl implements the GenerationService interface
type GenerationServiceImpl struct {
	db         *persistence.PostgresDB
	walletRepo wallet.Repository
	jobRepo    job.Repository
	registry   *providers.Registry
	producer   producers.DispatchPublisher
	recorder   metric.Recorder
	logger     *slog.Logger
}

// NewGenerationService creates a new generation intake service
func NewGenerationService(
	logger *slog.Logger,
	db *persistence.PostgresDB,
	walletRepo wallet.Repository,
	jobRepo job.Repository,
	registry *providers.Registry,
	producer producers.DispatchPublisher,
	recorder metric.Recorder,
) GenerationService {
	return &GenerationServiceImpl{
		db:         db,
		walletRepo: walletRepo,
		jobRepo:    jobRepo,
		registry:   registry,
		producer:   producer,
		recorder:   recorder,
		logger:     logger,
	}
}

// CreateJob admits one generation request. The job row and its credit reservation are
// written in a single database transaction: a job can never exist without a held
// reservation, and an insufficient balance rolls back both.
func (s *GenerationServiceImpl) CreateJob(ctx context.Context, params CreateJobParams) (*job.Job, error) {
	prov, err := s.resolveProvider(params)
	if err != nil {
		return nil, err
	}

	estimate := s.registry.EstimateCost(prov, params.Prompt)

	jobID := uuid.New()
	now := time.Now()
	newJob := &job.Job{
		ID:            jobID,
		AccountID:     params.AccountID,
		ProviderID:    prov.ID,
		ContentType:   params.ContentType,
		Status:        job.StatusPending,
		Prompt:        params.Prompt,
		Settings:      params.Settings,
		EstimatedCost: estimate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		reservation, err := s.walletRepo.WithTx(tx).ReserveCredits(ctx, params.AccountID, estimate, &jobID)
		if err != nil {
			return err
		}
		newJob.TransactionID = reservation.ID
		return s.jobRepo.WithTx(tx).Create(ctx, newJob)
	})
	if err != nil {
		var insufficient wallet.ErrInsufficientCredits
		if errors.As(err, &insufficient) {
			s.logger.Info("Generation request rejected, insufficient credits",
				"account_id", params.AccountID.String(),
				"available", insufficient.Available.String(),
				"required", insufficient.Required.String(),
			)
			return nil, err
		}
		s.logger.Error("Failed to admit generation job",
			"account_id", params.AccountID.String(),
			"content_type", string(params.ContentType),
			"error", err,
		)
		return nil, err
	}

	dispatch := &shared.JobDispatch{
		JobID:         jobID,
		AccountID:     params.AccountID,
		TransactionID: newJob.TransactionID,
		ProviderName:  prov.Name,
		ContentType:   params.ContentType,
		CorrelationID: params.CorrelationID,
		Timestamp:     now,
	}
	if err := s.producer.Publish(ctx, params.AccountID.String(), dispatch); err != nil {
		// The job and reservation were committed but the processor will never see
		// them. Undo both rather than stranding credits until the reconciler runs.
		s.logger.Error("Failed to publish dispatch, compensating admitted job",
			"job_id", jobID.String(),
			"error", err,
		)
		s.compensate(ctx, newJob)
		return nil, err
	}

	estimateFloat, _ := estimate.Float64()
	metrics.JobsAccepted.WithLabelValues(string(params.ContentType), prov.Name).Inc()
	metrics.CreditsReserved.Add(estimateFloat)
	if err := s.recorder.Record(ctx, metric.New("job_accepted", estimateFloat, "api_gateway", map[string]any{
		"job_id":       jobID.String(),
		"content_type": string(params.ContentType),
		"provider":     prov.Name,
	})); err != nil {
		s.logger.Warn("Failed to record intake metric", "job_id", jobID.String(), "error", err)
	}

	s.logger.Info("Generation job admitted",
		"job_id", jobID.String(),
		"account_id", params.AccountID.String(),
		"provider", prov.Name,
		"content_type", string(params.ContentType),
		"estimated_cost", estimate.String(),
	)
	return newJob, nil
}

// resolveProvider applies the selection rule: an explicit provider name takes
// precedence over the registry default, but must still be active and support the
// requested content type.
func (s *GenerationServiceImpl) resolveProvider(params CreateJobParams) (*provider.Provider, error) {
	if params.ProviderName == "" {
		return s.registry.DefaultProvider(params.ContentType)
	}

	prov, err := s.registry.Provider(params.ProviderName)
	if err != nil {
		return nil, err
	}
	if !prov.Active || !prov.Supports(params.ContentType) {
		return nil, provider.ErrNoProviderAvailable{ContentType: params.ContentType}
	}
	return prov, nil
}

// compensate unwinds a committed job whose dispatch never reached Kafka. The job is
// failed first so the reservation is released against a terminal job, which the
// reconciliation sweep can finish if the release itself fails.
func (s *GenerationServiceImpl) compensate(ctx context.Context, j *job.Job) {
	if err := s.jobRepo.MarkFailed(ctx, j.ID, "dispatch publish failed"); err != nil {
		s.logger.Error("Failed to fail undispatched job, reservation stays held",
			"job_id", j.ID.String(),
			"reservation_id", j.TransactionID.String(),
			"error", err,
		)
		return
	}

	if _, err := s.walletRepo.ReleaseReservation(ctx, j.TransactionID, nil); err != nil {
		s.logger.Error("Failed to release reservation for undispatched job, reconciler will settle it",
			"job_id", j.ID.String(),
			"reservation_id", j.TransactionID.String(),
			"error", err,
		)
	}
}
