package provider

import (
	"context"

	"github.com/google/uuid"
)

// Repository manages provider row persistence. The registry caches rows in memory;
// the store is only consulted on startup, seed, and explicit refresh.
type Repository interface {
	GetAll(ctx context.Context) ([]*Provider, error)
	GetByName(ctx context.Context, name string) (*Provider, error)
	Create(ctx context.Context, p *Provider) error
	Update(ctx context.Context, p *Provider) error
	Delete(ctx context.Context, id uuid.UUID) error
}
