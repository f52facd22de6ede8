// Package postgres provides PostgreSQL implementations of the domain repositories.
// It handles all database operations while maintaining transaction safety and
// proper error handling for the generation ledger system.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/mediaforge/generation-ledger/internal/domain/wallet"
	"github.com/mediaforge/generation-ledger/internal/platform/persistence"
)

const pgUniqueViolation = "23505"

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	db      *persistence.PostgresDB
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	tx      pgx.Tx
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL wallet repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewWalletRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.Repository {
	return &WalletRepository{
		db:      db,
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls. The returned repository will use the provided
// transaction for all database operations.
func (r *WalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return &WalletRepository{
		db:      r.db,
		querier: tx,
		tx:      tx,
		logger:  r.logger,
	}
}

// inTx runs fn against a transactional copy of the repository. If the repository is
// already bound to a transaction the caller's transaction is reused, so multi-statement
// balance operations stay atomic whether invoked standalone or inside a wider unit of work.
func (r *WalletRepository) inTx(ctx context.Context, fn func(repo *WalletRepository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	return r.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		return fn(r.WithTx(tx).(*WalletRepository))
	})
}

// Create stores a new wallet. Each account may hold at most one wallet; a second
// insert for the same account returns wallet.ErrDuplicateWallet.
func (r *WalletRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	query := `
		INSERT INTO wallets (id, account_id, credits_available, credits_used, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		w.ID,
		w.AccountID,
		w.CreditsAvailable,
		w.CreditsUsed,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return wallet.ErrDuplicateWallet{AccountID: w.AccountID}
		}
		r.logger.Error("Failed to create wallet", "error", err)
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	return nil
}

// GetByAccountID retrieves the wallet owned by an account
func (r *WalletRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*wallet.Wallet, error) {
	query := `
		SELECT id, account_id, credits_available, credits_used, created_at, updated_at
		FROM wallets
		WHERE account_id = $1
	`

	var w wallet.Wallet
	err := r.querier.QueryRow(ctx, query, accountID).Scan(
		&w.ID,
		&w.AccountID,
		&w.CreditsAvailable,
		&w.CreditsUsed,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{AccountID: accountID}
		}
		r.logger.Error("Failed to get wallet", "accountID", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return &w, nil
}

// ReserveCredits atomically decrements credits_available and records a PENDING
// RESERVATION ledger entry. The balance guard lives in the UPDATE's WHERE clause,
// so two concurrent reservations can never jointly overdraw the wallet.
func (r *WalletRepository) ReserveCredits(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, reference *uuid.UUID) (*wallet.Transaction, error) {
	// A zero reservation would write a zero-amount ledger entry and a negative one
	// would credit the wallet through the subtraction, so neither may reach the SQL.
	if !amount.IsPositive() {
		return nil, wallet.ErrInvalidAmount
	}

	var txn *wallet.Transaction
	err := r.inTx(ctx, func(repo *WalletRepository) error {
		query := `
			UPDATE wallets
			SET credits_available = credits_available - $2, updated_at = NOW()
			WHERE account_id = $1 AND credits_available >= $2
			RETURNING id
		`

		var walletID uuid.UUID
		err := repo.querier.QueryRow(ctx, query, accountID, amount).Scan(&walletID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repo.reservationShortfall(ctx, accountID, amount)
			}
			repo.logger.Error("Failed to reserve credits", "accountID", accountID.String(), "error", err)
			return fmt.Errorf("failed to reserve credits: %w", err)
		}

		now := time.Now()
		entry := &wallet.Transaction{
			ID:          uuid.New(),
			WalletID:    walletID,
			Amount:      amount,
			Type:        wallet.TransactionTypeReservation,
			Status:      wallet.TransactionStatusPending,
			ReferenceID: reference,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.insertTransaction(ctx, entry); err != nil {
			return err
		}

		txn = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	return txn, nil
}

// reservationShortfall distinguishes a missing wallet from an insufficient balance
// after the guarded UPDATE matched no row.
func (r *WalletRepository) reservationShortfall(ctx context.Context, accountID uuid.UUID, required decimal.Decimal) error {
	query := `SELECT credits_available FROM wallets WHERE account_id = $1`

	var available decimal.Decimal
	err := r.querier.QueryRow(ctx, query, accountID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return wallet.ErrWalletNotFound{AccountID: accountID}
		}
		return fmt.Errorf("failed to check wallet balance: %w", err)
	}

	return wallet.ErrInsufficientCredits{Available: available, Required: required}
}

// ConfirmDeduction settles a PENDING reservation at the actual cost. The settled
// amount is capped at the reserved amount; any over-reservation flows back to
// credits_available and credits_used grows by what was settled. The reservation row
// is locked FOR UPDATE so a concurrent release cannot settle it twice.
func (r *WalletRepository) ConfirmDeduction(ctx context.Context, reservationID uuid.UUID, actualAmount decimal.Decimal) (*wallet.Transaction, error) {
	// A negative actual would over-refund the wallet through the settlement math.
	// Zero is allowed: a job that consumed nothing settles as a full refund.
	if actualAmount.IsNegative() {
		return nil, wallet.ErrInvalidAmount
	}

	var txn *wallet.Transaction
	err := r.inTx(ctx, func(repo *WalletRepository) error {
		reservation, err := repo.lockReservation(ctx, reservationID)
		if err != nil {
			return err
		}

		settled := actualAmount
		if settled.GreaterThan(reservation.Amount) {
			// The provider reported a cost above what was reserved. The wallet is
			// never charged beyond the reservation; the difference is surfaced to
			// callers through the ledger entry metadata.
			repo.logger.Warn("Actual cost exceeds reservation, capping settlement",
				"reservationID", reservationID.String(),
				"reserved", reservation.Amount.String(),
				"actual", actualAmount.String(),
			)
			settled = reservation.Amount
		}
		refund := reservation.Amount.Sub(settled)

		updateWallet := `
			UPDATE wallets
			SET credits_available = credits_available + $2,
			    credits_used = credits_used + $3,
			    updated_at = NOW()
			WHERE id = $1
		`
		if _, err := repo.querier.Exec(ctx, updateWallet, reservation.WalletID, refund, settled); err != nil {
			repo.logger.Error("Failed to settle wallet balance", "reservationID", reservationID.String(), "error", err)
			return fmt.Errorf("failed to settle wallet balance: %w", err)
		}

		updateEntry := `
			UPDATE transactions
			SET status = $2, updated_at = NOW()
			WHERE id = $1
		`
		if _, err := repo.querier.Exec(ctx, updateEntry, reservationID, wallet.TransactionStatusCompleted); err != nil {
			repo.logger.Error("Failed to settle reservation entry", "reservationID", reservationID.String(), "error", err)
			return fmt.Errorf("failed to settle reservation entry: %w", err)
		}

		metadata := map[string]any{
			"reserved_amount": reservation.Amount.String(),
			"actual_amount":   actualAmount.String(),
		}
		if actualAmount.GreaterThan(reservation.Amount) {
			metadata["cost_overrun"] = true
		}

		// Ledger entries carry positive amounts only (enforced by the schema), so
		// a zero-cost settlement writes just the refund entry and no DEBIT.
		now := time.Now()
		if settled.IsPositive() {
			debit := &wallet.Transaction{
				ID:          uuid.New(),
				WalletID:    reservation.WalletID,
				Amount:      settled,
				Type:        wallet.TransactionTypeDebit,
				Status:      wallet.TransactionStatusCompleted,
				ReferenceID: &reservationID,
				Metadata:    metadata,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := repo.insertTransaction(ctx, debit); err != nil {
				return err
			}
			txn = debit
		}

		if refund.IsPositive() {
			refundEntry := &wallet.Transaction{
				ID:          uuid.New(),
				WalletID:    reservation.WalletID,
				Amount:      refund,
				Type:        wallet.TransactionTypeRefund,
				Status:      wallet.TransactionStatusCompleted,
				ReferenceID: &reservationID,
				Metadata:    metadata,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := repo.insertTransaction(ctx, refundEntry); err != nil {
				return err
			}
			if txn == nil {
				txn = refundEntry
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return txn, nil
}

// ReleaseReservation returns a PENDING reservation to credits_available and records a
// paired RELEASE entry referencing the reservation. amount == nil releases the full
// reservation; a partial amount is capped at what was reserved. Idempotency is
// enforced here, not by callers: a reservation that already settled fails with
// wallet.ErrReservationSettled and no balance is touched.
func (r *WalletRepository) ReleaseReservation(ctx context.Context, reservationID uuid.UUID, amount *decimal.Decimal) (*wallet.Transaction, error) {
	// A partial release must name a positive amount; nil means release everything.
	if amount != nil && !amount.IsPositive() {
		return nil, wallet.ErrInvalidAmount
	}

	var txn *wallet.Transaction
	err := r.inTx(ctx, func(repo *WalletRepository) error {
		reservation, err := repo.lockReservation(ctx, reservationID)
		if err != nil {
			return err
		}

		released := reservation.Amount
		if amount != nil && amount.LessThan(released) {
			released = *amount
		}

		updateWallet := `
			UPDATE wallets
			SET credits_available = credits_available + $2, updated_at = NOW()
			WHERE id = $1
		`
		if _, err := repo.querier.Exec(ctx, updateWallet, reservation.WalletID, released); err != nil {
			repo.logger.Error("Failed to release reserved credits", "reservationID", reservationID.String(), "error", err)
			return fmt.Errorf("failed to release reserved credits: %w", err)
		}

		updateEntry := `
			UPDATE transactions
			SET status = $2, updated_at = NOW()
			WHERE id = $1
		`
		if _, err := repo.querier.Exec(ctx, updateEntry, reservationID, wallet.TransactionStatusFailed); err != nil {
			repo.logger.Error("Failed to mark reservation released", "reservationID", reservationID.String(), "error", err)
			return fmt.Errorf("failed to mark reservation released: %w", err)
		}

		now := time.Now()
		entry := &wallet.Transaction{
			ID:          uuid.New(),
			WalletID:    reservation.WalletID,
			Amount:      released,
			Type:        wallet.TransactionTypeRelease,
			Status:      wallet.TransactionStatusCompleted,
			ReferenceID: &reservationID,
			Metadata: map[string]any{
				"reserved_amount": reservation.Amount.String(),
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.insertTransaction(ctx, entry); err != nil {
			return err
		}

		txn = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	return txn, nil
}

// AddCredits increases the wallet balance and records a COMPLETED DEPOSIT entry
func (r *WalletRepository) AddCredits(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, reference *uuid.UUID) (*wallet.Transaction, error) {
	var txn *wallet.Transaction
	err := r.inTx(ctx, func(repo *WalletRepository) error {
		query := `
			UPDATE wallets
			SET credits_available = credits_available + $2, updated_at = NOW()
			WHERE account_id = $1
			RETURNING id
		`

		var walletID uuid.UUID
		err := repo.querier.QueryRow(ctx, query, accountID, amount).Scan(&walletID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return wallet.ErrWalletNotFound{AccountID: accountID}
			}
			repo.logger.Error("Failed to add credits", "accountID", accountID.String(), "error", err)
			return fmt.Errorf("failed to add credits: %w", err)
		}

		now := time.Now()
		entry := &wallet.Transaction{
			ID:          uuid.New(),
			WalletID:    walletID,
			Amount:      amount,
			Type:        wallet.TransactionTypeDeposit,
			Status:      wallet.TransactionStatusCompleted,
			ReferenceID: reference,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.insertTransaction(ctx, entry); err != nil {
			return err
		}

		txn = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	return txn, nil
}

// GetTransaction retrieves a single ledger entry by ID
func (r *WalletRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*wallet.Transaction, error) {
	query := `
		SELECT id, wallet_id, amount, type, status, reference_id, metadata, created_at, updated_at
		FROM transactions
		WHERE id = $1
	`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrReservationNotFound{ReservationID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// GetTransactionsByAccountID retrieves the account's ledger entries, newest first
func (r *WalletRepository) GetTransactionsByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*wallet.Transaction, error) {
	query := `
		SELECT t.id, t.wallet_id, t.amount, t.type, t.status, t.reference_id, t.metadata, t.created_at, t.updated_at
		FROM transactions t
		JOIN wallets w ON w.id = t.wallet_id
		WHERE w.account_id = $1
		ORDER BY t.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list transactions", "accountID", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*wallet.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}

// CountTransactionsByAccountID returns the total number of ledger entries for an account
func (r *WalletRepository) CountTransactionsByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM transactions t
		JOIN wallets w ON w.id = t.wallet_id
		WHERE w.account_id = $1
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		r.logger.Error("Failed to count transactions", "accountID", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return count, nil
}

// lockReservation loads a PENDING RESERVATION row with FOR UPDATE so the settlement
// path holds the row until commit
func (r *WalletRepository) lockReservation(ctx context.Context, reservationID uuid.UUID) (*wallet.Transaction, error) {
	query := `
		SELECT id, wallet_id, amount, type, status, reference_id, metadata, created_at, updated_at
		FROM transactions
		WHERE id = $1 AND type = $2
		FOR UPDATE
	`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, reservationID, wallet.TransactionTypeReservation))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrReservationNotFound{ReservationID: reservationID}
		}
		r.logger.Error("Failed to lock reservation", "reservationID", reservationID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock reservation: %w", err)
	}

	if txn.Status != wallet.TransactionStatusPending {
		return nil, wallet.ErrReservationSettled{ReservationID: reservationID, Status: txn.Status}
	}

	return txn, nil
}

func (r *WalletRepository) insertTransaction(ctx context.Context, txn *wallet.Transaction) error {
	query := `
		INSERT INTO transactions (id, wallet_id, amount, type, status, reference_id, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		txn.ID,
		txn.WalletID,
		txn.Amount,
		txn.Type,
		txn.Status,
		txn.ReferenceID,
		txn.Metadata,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert transaction", "id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// scanTransaction reads one transaction row from either a pgx.Row or pgx.Rows
func scanTransaction(row pgx.Row) (*wallet.Transaction, error) {
	var txn wallet.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.WalletID,
		&txn.Amount,
		&txn.Type,
		&txn.Status,
		&txn.ReferenceID,
		&txn.Metadata,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
