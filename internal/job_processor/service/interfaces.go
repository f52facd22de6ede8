package service

import (
	"context"

	"github.com/mediaforge/generation-ledger/internal/domain/provider"
	"github.com/mediaforge/generation-ledger/internal/domain/shared"
	"github.com/mediaforge/generation-ledger/internal/providers/adapters"
)

// ProcessingService defines the interface for processing dispatched generation jobs
type ProcessingService interface {
	ProcessDispatch(ctx context.Context, dispatch *shared.JobDispatch) error
}

// ProviderCatalog resolves provider rows by name; satisfied by the provider registry
type ProviderCatalog interface {
	Provider(name string) (*provider.Provider, error)
}

// GeneratorResolver maps a provider row to its back-end adapter; satisfied by the
// adapter factory
type GeneratorResolver interface {
	Generator(p *provider.Provider) (adapters.Generator, error)
}
