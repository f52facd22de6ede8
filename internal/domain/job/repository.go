package job

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UnsettledJob pairs a terminal-or-stuck job with its still-pending reservation,
// surfaced by the reconciliation sweep.
type UnsettledJob struct {
	Job           *Job
	ReservationID uuid.UUID
}

// Repository manages job persistence with guarded status transitions
type Repository interface {
	Create(ctx context.Context, j *Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Job, error)
	CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error)

	// MarkProcessing moves a PENDING job to PROCESSING and stamps started_at.
	// Fails with ErrInvalidTransition if the job already left PENDING, which is how
	// redelivered dispatch messages are detected and skipped.
	MarkProcessing(ctx context.Context, id uuid.UUID) error

	// MarkCompleted records result and actual cost and stamps completed_at.
	MarkCompleted(ctx context.Context, id uuid.UUID, result *Result, actualCost decimal.Decimal) error

	// MarkFailed records the failure message and stamps completed_at.
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error

	// GetUnsettled returns jobs older than the cutoff whose reservation transaction
	// is still PENDING: terminal jobs that crashed between ledger settle and status
	// write, or jobs stuck in PROCESSING after a processor died mid-flight.
	GetUnsettled(ctx context.Context, olderThan time.Time, limit int) ([]*UnsettledJob, error)

	WithTx(tx pgx.Tx) Repository
}
