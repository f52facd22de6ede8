package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mediaforge/generation-ledger/internal/domain/job"
	"github.com/mediaforge/generation-ledger/internal/domain/provider"
	"github.com/mediaforge/generation-ledger/internal/domain/wallet"
)

// CreateJobParams carries a validated intake request into the generation service
type CreateJobParams struct {
	AccountID     uuid.UUID
	ContentType   provider.ContentType
	Prompt        string
	Settings      map[string]any
	ProviderName  string // Optional; overrides the registry default
	CorrelationID string
}

// GenerationService admits content-generation jobs: provider resolution, cost
// estimation, the atomic job+reservation write, and dispatch to the processor
type GenerationService interface {
	// CreateJob resolves the provider, estimates cost, atomically creates the job
	// row and its credit reservation, and publishes the dispatch message.
	// Returns wallet.ErrInsufficientCredits when the wallet cannot cover the
	// estimate and provider.ErrNoProviderAvailable when nothing can serve the
	// requested content type; neither leaves any row behind.
	CreateJob(ctx context.Context, params CreateJobParams) (*job.Job, error)
}

// WalletService defines the interface for wallet operations
type WalletService interface {
	// CreateWallet provisions a wallet with an opening balance
	// Returns ErrDuplicateWallet if the account already has one
	CreateWallet(ctx context.Context, accountID uuid.UUID, openingBalance decimal.Decimal) (*wallet.Wallet, error)

	// GetWallet retrieves the wallet for an account
	// Returns ErrWalletNotFound if the account has no wallet
	GetWallet(ctx context.Context, accountID uuid.UUID) (*wallet.Wallet, error)

	// AddCredits tops up the wallet and records a DEPOSIT ledger entry
	AddCredits(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*wallet.Transaction, error)

	// ListTransactions retrieves a paginated ledger history for an account
	// Returns entries, total count, and any error
	ListTransactions(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*wallet.Transaction, int64, error)
}

// JobService defines the read interface for job records
type JobService interface {
	// GetJob retrieves a job by its ID
	// Returns ErrJobNotFound if the job doesn't exist
	GetJob(ctx context.Context, id uuid.UUID) (*job.Job, error)

	// ListJobsByAccount retrieves a paginated job history for an account
	// Returns jobs, total count, and any error
	ListJobsByAccount(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*job.Job, int64, error)
}

// ProviderService defines the interface for provider catalog operations
type ProviderService interface {
	// ListProviders returns the full cached catalog
	ListProviders(ctx context.Context) []*provider.Provider

	// RefreshProviders reloads the catalog from the store
	RefreshProviders(ctx context.Context) error
}
