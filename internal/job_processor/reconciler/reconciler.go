package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mediaforge/generation-ledger/internal/config"
	"github.com/mediaforge/generation-ledger/internal/domain/job"
	"github.com/mediaforge/generation-ledger/internal/domain/wallet"
	"github.com/mediaforge/generation-ledger/internal/platform/metrics"
)

// Reconciler sweeps for jobs whose credit reservation is still PENDING long after
// the job should have settled it: processors that died mid-flight, or crashes in
// the window between the ledger write and the job status write. Every reservation
// it touches ends in exactly one of CONFIRMED or RELEASED, never both, because the
// wallet store rejects a second settlement with ErrReservationSettled.
type Reconciler struct {
	jobRepo      job.Repository
	walletRepo   wallet.Repository
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int
	minAge       time.Duration
}

func NewReconciler(
	cfg *config.ReconcilerConfig,
	jobRepo job.Repository,
	walletRepo wallet.Repository,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		jobRepo:      jobRepo,
		walletRepo:   walletRepo,
		logger:       logger,
		pollInterval: cfg.PollingInterval,
		batchSize:    cfg.BatchSize,
		minAge:       cfg.MinAge,
	}
}

// Start begins sweeping until context is canceled
func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("Starting settlement reconciler",
		"poll_interval", r.pollInterval.String(),
		"batch_size", r.batchSize,
		"min_age", r.minAge.String(),
	)
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Settlement reconciler stopping due to context cancellation.")
			return
		case <-ticker.C:
			r.logger.Debug("Reconciler tick: sweeping for unsettled reservations")
			if err := r.sweep(ctx); err != nil {
				r.logger.Error("Error during reconciliation sweep", "error", err)
			}
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-r.minAge)
	unsettled, err := r.jobRepo.GetUnsettled(ctx, cutoff, r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch unsettled jobs: %w", err)
	}

	if len(unsettled) == 0 {
		r.logger.Debug("No unsettled reservations found.")
		return nil
	}

	r.logger.Info("Fetched unsettled reservations", "count", len(unsettled))

	for _, u := range unsettled {
		if err := r.settle(ctx, u); err != nil {
			r.logger.Error("Failed to reconcile job",
				"job_id", u.Job.ID, "reservation_id", u.ReservationID, "status", u.Job.Status, "error", err,
			)
		}
	}
	return nil
}

// settle resolves one job's pending reservation according to the job's status.
func (r *Reconciler) settle(ctx context.Context, u *job.UnsettledJob) error {
	logger := r.logger.With("job_id", u.Job.ID, "reservation_id", u.ReservationID)

	switch u.Job.Status {
	case job.StatusCompleted:
		// The job finished but its deduction never confirmed. Settle at the recorded
		// actual cost, falling back to the estimate when the crash lost it.
		cost := u.Job.EstimatedCost
		if u.Job.ActualCost != nil {
			cost = *u.Job.ActualCost
		} else {
			logger.Warn("Completed job has no actual cost, settling at estimate", "estimated_cost", u.Job.EstimatedCost)
		}
		if _, err := r.walletRepo.ConfirmDeduction(ctx, u.ReservationID, cost); err != nil {
			if errors.Is(err, wallet.ErrReservationSettled{}) {
				logger.Warn("Reservation settled between sweep fetch and confirm")
				return nil
			}
			return fmt.Errorf("failed to confirm deduction: %w", err)
		}
		logger.Info("Reconciled completed job: deduction confirmed", "amount", cost)
		metrics.ReconcilerSweeps.WithLabelValues("confirmed").Inc()

	case job.StatusFailed:
		// The job failed but its reservation was never returned.
		if _, err := r.walletRepo.ReleaseReservation(ctx, u.ReservationID, nil); err != nil {
			if errors.Is(err, wallet.ErrReservationSettled{}) {
				logger.Warn("Reservation settled between sweep fetch and release")
				return nil
			}
			return fmt.Errorf("failed to release reservation: %w", err)
		}
		logger.Info("Reconciled failed job: reservation released")
		metrics.ReconcilerSweeps.WithLabelValues("released").Inc()
		metrics.ReservationsReleased.WithLabelValues("reconciler").Inc()

	case job.StatusProcessing:
		// Stuck in PROCESSING past the age cutoff: the processor died mid-flight.
		// Fail the job first so a late-arriving worker cannot complete it, then
		// return the reservation.
		if err := r.jobRepo.MarkFailed(ctx, u.Job.ID, "processing timed out"); err != nil {
			if !errors.Is(err, job.ErrInvalidTransition{}) {
				return fmt.Errorf("failed to mark stuck job failed: %w", err)
			}
			// Someone beat us to a terminal state; the next sweep will settle it.
			logger.Warn("Stuck job reached a terminal state before the sweep could fail it")
			return nil
		}
		if _, err := r.walletRepo.ReleaseReservation(ctx, u.ReservationID, nil); err != nil {
			if errors.Is(err, wallet.ErrReservationSettled{}) {
				logger.Warn("Reservation settled between mark-failed and release")
				return nil
			}
			return fmt.Errorf("failed to release reservation for stuck job: %w", err)
		}
		logger.Info("Reconciled stuck job: marked failed and reservation released")
		metrics.ReconcilerSweeps.WithLabelValues("timed_out").Inc()
		metrics.ReservationsReleased.WithLabelValues("reconciler").Inc()

	case job.StatusPending:
		// Still waiting for a worker to pick it up. The dispatch may be delayed
		// rather than lost, so leave it for a later sweep.
		logger.Debug("Skipping pending job with live reservation")
		metrics.ReconcilerSweeps.WithLabelValues("skipped").Inc()
	}

	return nil
}
