package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mediaforge/generation-ledger/internal/domain/job"
	"github.com/mediaforge/generation-ledger/internal/domain/provider"
	"github.com/mediaforge/generation-ledger/internal/domain/wallet"
	"github.com/mediaforge/generation-ledger/internal/platform/persistence"
)

// JobRepository implements the job.Repository interface for PostgreSQL
type JobRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewJobRepository creates a new PostgreSQL job repository
func NewJobRepository(logger *slog.Logger, db *persistence.PostgresDB) job.Repository {
	return &JobRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so job creation can share the
// transaction that reserves the credits
func (r *JobRepository) WithTx(tx pgx.Tx) job.Repository {
	return &JobRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new job record
func (r *JobRepository) Create(ctx context.Context, j *job.Job) error {
	query := `
		INSERT INTO jobs (id, account_id, provider_id, transaction_id, content_type, status, prompt, settings,
		                  result, error, estimated_cost, actual_cost, started_at, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.querier.Exec(ctx, query,
		j.ID,
		j.AccountID,
		j.ProviderID,
		j.TransactionID,
		j.ContentType,
		j.Status,
		j.Prompt,
		j.Settings,
		j.Result,
		j.Error,
		j.EstimatedCost,
		j.ActualCost,
		j.StartedAt,
		j.CompletedAt,
		j.CreatedAt,
		j.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create job", "id", j.ID.String(), "error", err)
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetByID retrieves a job by its ID
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	query := selectJobQuery + ` WHERE id = $1`

	j, err := scanJob(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, job.ErrJobNotFound{JobID: id}
		}
		r.logger.Error("Failed to get job", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return j, nil
}

// GetByAccountID retrieves an account's jobs, newest first
func (r *JobRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*job.Job, error) {
	query := selectJobQuery + `
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list jobs", "accountID", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}

	return jobs, nil
}

// CountByAccountID returns the total number of jobs for an account
func (r *JobRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM jobs WHERE account_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		r.logger.Error("Failed to count jobs", "accountID", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	return count, nil
}

// MarkProcessing moves a PENDING job to PROCESSING. The status guard lives in the
// WHERE clause: a job that already left PENDING matches no row, which callers use to
// detect redelivered dispatch messages.
func (r *JobRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE jobs
		SET status = $2, started_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3
	`

	result, err := r.querier.Exec(ctx, query, id, job.StatusProcessing, job.StatusPending)
	if err != nil {
		r.logger.Error("Failed to mark job processing", "id", id.String(), "error", err)
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	if result.RowsAffected() == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return job.ErrInvalidTransition{JobID: id, From: current.Status, To: job.StatusProcessing}
	}

	return nil
}

// MarkCompleted records the result and actual cost and stamps completed_at.
// Only a PROCESSING job can complete.
func (r *JobRepository) MarkCompleted(ctx context.Context, id uuid.UUID, result *job.Result, actualCost decimal.Decimal) error {
	query := `
		UPDATE jobs
		SET status = $2, result = $3, actual_cost = $4, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $5
	`

	tag, err := r.querier.Exec(ctx, query, id, job.StatusCompleted, result, actualCost, job.StatusProcessing)
	if err != nil {
		r.logger.Error("Failed to mark job completed", "id", id.String(), "error", err)
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return job.ErrInvalidTransition{JobID: id, From: current.Status, To: job.StatusCompleted}
	}

	return nil
}

// MarkFailed records the failure message and stamps completed_at. Both PENDING and
// PROCESSING jobs can fail; terminal jobs cannot.
func (r *JobRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	query := `
		UPDATE jobs
		SET status = $2, error = $3, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ($4, $5)
	`

	tag, err := r.querier.Exec(ctx, query, id, job.StatusFailed, errMsg, job.StatusPending, job.StatusProcessing)
	if err != nil {
		r.logger.Error("Failed to mark job failed", "id", id.String(), "error", err)
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return job.ErrInvalidTransition{JobID: id, From: current.Status, To: job.StatusFailed}
	}

	return nil
}

// GetUnsettled returns jobs older than the cutoff whose credit reservation is still
// PENDING. These are jobs that crashed between settling the ledger and writing the
// terminal status, or that a dead processor left in PROCESSING.
func (r *JobRepository) GetUnsettled(ctx context.Context, olderThan time.Time, limit int) ([]*job.UnsettledJob, error) {
	query := `
		SELECT j.id, j.account_id, j.provider_id, j.transaction_id, j.content_type, j.status, j.prompt, j.settings,
		       j.result, j.error, j.estimated_cost, j.actual_cost, j.started_at, j.completed_at, j.created_at, j.updated_at,
		       t.id
		FROM jobs j
		JOIN transactions t ON t.id = j.transaction_id
		WHERE t.status = $1
		  AND j.created_at < $2
		ORDER BY j.created_at
		LIMIT $3
	`

	rows, err := r.querier.Query(ctx, query, wallet.TransactionStatusPending, olderThan, limit)
	if err != nil {
		r.logger.Error("Failed to query unsettled jobs", "error", err)
		return nil, fmt.Errorf("failed to query unsettled jobs: %w", err)
	}
	defer rows.Close()

	var unsettled []*job.UnsettledJob
	for rows.Next() {
		var j job.Job
		var reservationID uuid.UUID
		if err := scanJobColumns(rows, &j, &reservationID); err != nil {
			return nil, fmt.Errorf("failed to scan unsettled job: %w", err)
		}
		unsettled = append(unsettled, &job.UnsettledJob{Job: &j, ReservationID: reservationID})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unsettled jobs: %w", err)
	}

	return unsettled, nil
}

const selectJobQuery = `
	SELECT id, account_id, provider_id, transaction_id, content_type, status, prompt, settings,
	       result, error, estimated_cost, actual_cost, started_at, completed_at, created_at, updated_at
	FROM jobs
`

func scanJob(row pgx.Row) (*job.Job, error) {
	var j job.Job
	var contentType string
	err := row.Scan(
		&j.ID,
		&j.AccountID,
		&j.ProviderID,
		&j.TransactionID,
		&contentType,
		&j.Status,
		&j.Prompt,
		&j.Settings,
		&j.Result,
		&j.Error,
		&j.EstimatedCost,
		&j.ActualCost,
		&j.StartedAt,
		&j.CompletedAt,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.ContentType = provider.ContentType(contentType)
	return &j, nil
}

func scanJobColumns(row pgx.Row, j *job.Job, reservationID *uuid.UUID) error {
	var contentType string
	err := row.Scan(
		&j.ID,
		&j.AccountID,
		&j.ProviderID,
		&j.TransactionID,
		&contentType,
		&j.Status,
		&j.Prompt,
		&j.Settings,
		&j.Result,
		&j.Error,
		&j.EstimatedCost,
		&j.ActualCost,
		&j.StartedAt,
		&j.CompletedAt,
		&j.CreatedAt,
		&j.UpdatedAt,
		reservationID,
	)
	if err != nil {
		return err
	}
	j.ContentType = provider.ContentType(contentType)
	return nil
}
