package service

import (
	"context"
	"log/slog"

	"github.com/mediaforge/generation-ledger/internal/domain/provider"
	"github.com/mediaforge/generation-ledger/internal/providers"
)

// ProviderServiceImpl implements the ProviderService interface
type ProviderServiceImpl struct {
	registry *providers.Registry
	logger   *slog.Logger
}

// NewProviderService creates a new provider catalog service
func NewProviderService(logger *slog.Logger, registry *providers.Registry) ProviderService {
	return &ProviderServiceImpl{
		registry: registry,
		logger:   logger,
	}
}

// ListProviders returns the full cached catalog
func (s *ProviderServiceImpl) ListProviders(_ context.Context) []*provider.Provider {
	return s.registry.AllProviders()
}

// RefreshProviders reloads the catalog from the store
func (s *ProviderServiceImpl) RefreshProviders(ctx context.Context) error {
	return s.registry.Refresh(ctx)
}
