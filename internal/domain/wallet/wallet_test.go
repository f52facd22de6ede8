package wallet

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		accountID := uuid.New()
		openingBalance := decimal.RequireFromString("100.5")

		beforeCreation := time.Now()
		w, err := NewWallet(accountID, openingBalance)
		afterCreation := time.Now()

		require.NoError(t, err)
		require.NotNil(t, w)

		assert.NotEqual(t, uuid.Nil, w.ID, "Wallet ID should not be nil")
		assert.Equal(t, accountID, w.AccountID)
		assert.True(t, w.CreditsAvailable.Equal(openingBalance))
		assert.True(t, w.CreditsUsed.IsZero(), "A new wallet has no used credits")

		assert.WithinDuration(t, beforeCreation, w.CreatedAt, afterCreation.Sub(beforeCreation)+time.Millisecond)
		assert.WithinDuration(t, w.CreatedAt, w.UpdatedAt, time.Millisecond)
	})

	t.Run("ZeroOpeningBalance", func(t *testing.T) {
		w, err := NewWallet(uuid.New(), decimal.Zero)
		require.NoError(t, err)
		assert.True(t, w.CreditsAvailable.IsZero())
	})

	t.Run("NegativeOpeningBalance", func(t *testing.T) {
		w, err := NewWallet(uuid.New(), decimal.NewFromInt(-1))
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.Nil(t, w)
	})
}

func TestWalletErrors_Is(t *testing.T) {
	t.Run("InsufficientCreditsMatchesAnyInstance", func(t *testing.T) {
		err := ErrInsufficientCredits{
			Available: decimal.NewFromInt(1),
			Required:  decimal.NewFromInt(5),
		}
		assert.True(t, errors.Is(err, ErrInsufficientCredits{}))
	})

	t.Run("WalletNotFoundMatchesAnyInstance", func(t *testing.T) {
		err := ErrWalletNotFound{AccountID: uuid.New()}
		assert.True(t, errors.Is(err, ErrWalletNotFound{}))
	})

	t.Run("ReservationSettledMatchesAnyInstance", func(t *testing.T) {
		err := ErrReservationSettled{ReservationID: uuid.New(), Status: TransactionStatusCompleted}
		assert.True(t, errors.Is(err, ErrReservationSettled{}))
	})

	t.Run("ReservationSettledCarriesTheSettledStatus", func(t *testing.T) {
		id := uuid.New()
		err := ErrReservationSettled{ReservationID: id, Status: TransactionStatusFailed}
		assert.Contains(t, err.Error(), id.String())
		assert.Contains(t, err.Error(), string(TransactionStatusFailed))
	})

	t.Run("DifferentErrorKindsDoNotMatch", func(t *testing.T) {
		assert.False(t, errors.Is(ErrWalletNotFound{}, ErrReservationNotFound{}))
		assert.False(t, errors.Is(ErrInsufficientCredits{}, ErrReservationSettled{}))
	})
}
