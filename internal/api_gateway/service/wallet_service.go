package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mediaforge/generation-ledger/internal/domain/wallet"
)

// WalletServiceImpl implements the WalletService interface
type WalletServiceImpl struct {
	walletRepo wallet.Repository
	logger     *slog.Logger
}

// NewWalletService creates a new wallet service
func NewWalletService(logger *slog.Logger, walletRepo wallet.Repository) WalletService {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		logger:     logger,
	}
}

// CreateWallet provisions a wallet with an opening balance
func (s *WalletServiceImpl) CreateWallet(ctx context.Context, accountID uuid.UUID, openingBalance decimal.Decimal) (*wallet.Wallet, error) {
	w, err := wallet.NewWallet(accountID, openingBalance)
	if err != nil {
		return nil, err
	}

	if err := s.walletRepo.Create(ctx, w); err != nil {
		s.logger.Error("Failed to create wallet", "account_id", accountID.String(), "error", err)
		return nil, err
	}

	s.logger.Info("Wallet created",
		"account_id", accountID.String(),
		"opening_balance", openingBalance.String(),
	)
	return w, nil
}

// GetWallet retrieves the wallet for an account
func (s *WalletServiceImpl) GetWallet(ctx context.Context, accountID uuid.UUID) (*wallet.Wallet, error) {
	return s.walletRepo.GetByAccountID(ctx, accountID)
}

// AddCredits tops up the wallet balance
func (s *WalletServiceImpl) AddCredits(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*wallet.Transaction, error) {
	if !amount.IsPositive() {
		return nil, wallet.ErrInvalidAmount
	}

	txn, err := s.walletRepo.AddCredits(ctx, accountID, amount, nil)
	if err != nil {
		s.logger.Error("Failed to add credits", "account_id", accountID.String(), "error", err)
		return nil, err
	}

	s.logger.Info("Credits added",
		"account_id", accountID.String(),
		"amount", amount.String(),
		"transaction_id", txn.ID.String(),
	)
	return txn, nil
}

// ListTransactions retrieves paginated ledger history for an account
// Returns entries, total count, and any error
func (s *WalletServiceImpl) ListTransactions(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*wallet.Transaction, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.walletRepo.GetTransactionsByAccountID(ctx, accountID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.walletRepo.CountTransactionsByAccountID(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
