package wallet

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Wallet holds the prepaid credit balance for one account.
// Balances are mutated only through Repository operations, never directly, so that
// credits_available can never be observed below zero at a committed state.
type Wallet struct {
	ID               uuid.UUID       `json:"id"`
	AccountID        uuid.UUID       `json:"account_id"`
	CreditsAvailable decimal.Decimal `json:"credits_available"`
	CreditsUsed      decimal.Decimal `json:"credits_used"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewWallet creates a wallet for an account with the given opening balance
func NewWallet(accountID uuid.UUID, openingBalance decimal.Decimal) (*Wallet, error) {
	if openingBalance.IsNegative() {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	return &Wallet{
		ID:               uuid.New(),
		AccountID:        accountID,
		CreditsAvailable: openingBalance,
		CreditsUsed:      decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// TransactionType defines the ledger entry kinds
type TransactionType string

const (
	TransactionTypeDeposit     TransactionType = "DEPOSIT"
	TransactionTypeReservation TransactionType = "RESERVATION"
	TransactionTypeDebit       TransactionType = "DEBIT"
	TransactionTypeRefund      TransactionType = "REFUND"
	TransactionTypeRelease     TransactionType = "RELEASE"
)

// TransactionStatus defines ledger entry states
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction is one append-only ledger entry. A RESERVATION is created PENDING and
// later settles to COMPLETED (confirm) or FAILED with a paired RELEASE entry; it never
// silently disappears.
type Transaction struct {
	ID          uuid.UUID         `json:"id"`
	WalletID    uuid.UUID         `json:"wallet_id"`
	Amount      decimal.Decimal   `json:"amount"`
	Type        TransactionType   `json:"type"`
	Status      TransactionStatus `json:"status"`
	ReferenceID *uuid.UUID        `json:"reference_id,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ErrWalletNotFound indicates no wallet exists for the account
type ErrWalletNotFound struct {
	AccountID uuid.UUID
}

func (e ErrWalletNotFound) Error() string {
	return "wallet not found for account: " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrWalletNotFound
func (e ErrWalletNotFound) Is(target error) bool {
	t, ok := target.(ErrWalletNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}

// ErrInsufficientCredits carries the exact shortfall so callers can render
// "you have X, you need Y"
type ErrInsufficientCredits struct {
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e ErrInsufficientCredits) Error() string {
	return fmt.Sprintf("insufficient credits: available %s, required %s",
		e.Available.String(), e.Required.String())
}

// Is implements the errors.Is interface for ErrInsufficientCredits
func (e ErrInsufficientCredits) Is(target error) bool {
	_, ok := target.(ErrInsufficientCredits)
	return ok
}

// ErrReservationNotFound indicates a missing or non-reservation transaction
type ErrReservationNotFound struct {
	ReservationID uuid.UUID
}

func (e ErrReservationNotFound) Error() string {
	return "reservation not found: " + e.ReservationID.String()
}

// Is implements the errors.Is interface for ErrReservationNotFound
func (e ErrReservationNotFound) Is(target error) bool {
	t, ok := target.(ErrReservationNotFound)
	if !ok {
		return false
	}
	if t.ReservationID == uuid.Nil {
		return true
	}
	return e.ReservationID == t.ReservationID
}

// ErrReservationSettled indicates the reservation already left PENDING, so a second
// confirm or release must not double-settle it
type ErrReservationSettled struct {
	ReservationID uuid.UUID
	Status        TransactionStatus
}

func (e ErrReservationSettled) Error() string {
	return "reservation already settled: " + e.ReservationID.String() + " (status " + string(e.Status) + ")"
}

// Is implements the errors.Is interface for ErrReservationSettled
func (e ErrReservationSettled) Is(target error) bool {
	t, ok := target.(ErrReservationSettled)
	if !ok {
		return false
	}
	if t.ReservationID == uuid.Nil {
		return true
	}
	return e.ReservationID == t.ReservationID
}

// ErrDuplicateWallet indicates account uniqueness violation
type ErrDuplicateWallet struct {
	AccountID uuid.UUID
}

func (e ErrDuplicateWallet) Error() string {
	return "wallet already exists for account: " + e.AccountID.String()
}
