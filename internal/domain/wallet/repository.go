package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines the ledger store contract for wallets and transactions.
//
// Reserve, Confirm, Release and AddCredits are single atomic operations at the store
// layer: each one runs the balance check/mutation and the ledger entry write inside one
// database transaction, so concurrent reservations against the same wallet serialize on
// the store and can never jointly overdraw it.
type Repository interface {
	Create(ctx context.Context, w *Wallet) error
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*Wallet, error)

	// ReserveCredits atomically checks credits_available >= amount, decrements it,
	// and inserts a PENDING RESERVATION entry. amount must be positive
	// (ErrInvalidAmount otherwise). Returns ErrInsufficientCredits with the live
	// balance when the check fails.
	ReserveCredits(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, reference *uuid.UUID) (*Transaction, error)

	// ConfirmDeduction settles a PENDING reservation at the actual amount. Settlement
	// is capped at the reserved amount; any over-reservation is returned to
	// credits_available and credits_used grows by the settled amount. A negative
	// actual fails with ErrInvalidAmount; zero settles as a full refund.
	ConfirmDeduction(ctx context.Context, reservationID uuid.UUID, actualAmount decimal.Decimal) (*Transaction, error)

	// ReleaseReservation returns some or all of a PENDING reservation to
	// credits_available and records a paired RELEASE entry. amount == nil releases
	// the full reservation; a partial amount must be positive. A reservation that
	// already settled fails with ErrReservationSettled rather than
	// double-crediting.
	ReleaseReservation(ctx context.Context, reservationID uuid.UUID, amount *decimal.Decimal) (*Transaction, error)

	// AddCredits increases credits_available and logs a COMPLETED DEPOSIT entry.
	AddCredits(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, reference *uuid.UUID) (*Transaction, error)

	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetTransactionsByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Transaction, error)
	CountTransactionsByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error)

	WithTx(tx pgx.Tx) Repository
}
