package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mediaforge/generation-ledger/internal/domain/provider"
	"github.com/mediaforge/generation-ledger/internal/platform/persistence"
)

// ProviderRepository implements the provider.Repository interface for PostgreSQL
type ProviderRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewProviderRepository creates a new PostgreSQL provider repository
func NewProviderRepository(logger *slog.Logger, db *persistence.PostgresDB) provider.Repository {
	return &ProviderRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetAll retrieves every provider row, active or not. The registry filters on
// Active when selecting.
func (r *ProviderRepository) GetAll(ctx context.Context) ([]*provider.Provider, error) {
	query := `
		SELECT id, name, display_name, active, content_types, cost_per_unit, priority, config, created_at, updated_at
		FROM providers
		ORDER BY priority, cost_per_unit, name
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list providers", "error", err)
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var providers []*provider.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate providers: %w", err)
	}

	return providers, nil
}

// GetByName retrieves a provider by its unique name
func (r *ProviderRepository) GetByName(ctx context.Context, name string) (*provider.Provider, error) {
	query := `
		SELECT id, name, display_name, active, content_types, cost_per_unit, priority, config, created_at, updated_at
		FROM providers
		WHERE name = $1
	`

	p, err := scanProvider(r.querier.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, provider.ErrProviderNotFound{Name: name}
		}
		r.logger.Error("Failed to get provider", "name", name, "error", err)
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}

	return p, nil
}

// Create stores a new provider row. Names are unique; duplicates return an error
// wrapping the constraint violation.
func (r *ProviderRepository) Create(ctx context.Context, p *provider.Provider) error {
	query := `
		INSERT INTO providers (id, name, display_name, active, content_types, cost_per_unit, priority, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		p.ID,
		p.Name,
		p.DisplayName,
		p.Active,
		contentTypeStrings(p.ContentTypes),
		p.CostPerUnit,
		p.Priority,
		p.Config,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("provider %q already exists: %w", p.Name, err)
		}
		r.logger.Error("Failed to create provider", "name", p.Name, "error", err)
		return fmt.Errorf("failed to create provider: %w", err)
	}

	return nil
}

// Update replaces the mutable fields of an existing provider row
func (r *ProviderRepository) Update(ctx context.Context, p *provider.Provider) error {
	query := `
		UPDATE providers
		SET display_name = $2, active = $3, content_types = $4, cost_per_unit = $5, priority = $6, config = $7, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.querier.Exec(ctx, query,
		p.ID,
		p.DisplayName,
		p.Active,
		contentTypeStrings(p.ContentTypes),
		p.CostPerUnit,
		p.Priority,
		p.Config,
	)
	if err != nil {
		r.logger.Error("Failed to update provider", "name", p.Name, "error", err)
		return fmt.Errorf("failed to update provider: %w", err)
	}

	if result.RowsAffected() == 0 {
		return provider.ErrProviderNotFound{Name: p.Name}
	}

	return nil
}

// Delete removes a provider row
func (r *ProviderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM providers WHERE id = $1`

	if _, err := r.querier.Exec(ctx, query, id); err != nil {
		r.logger.Error("Failed to delete provider", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete provider: %w", err)
	}

	return nil
}

func contentTypeStrings(types []provider.ContentType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func scanProvider(row pgx.Row) (*provider.Provider, error) {
	var p provider.Provider
	var contentTypes []string
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.DisplayName,
		&p.Active,
		&contentTypes,
		&p.CostPerUnit,
		&p.Priority,
		&p.Config,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ContentTypes = make([]provider.ContentType, len(contentTypes))
	for i, t := range contentTypes {
		p.ContentTypes[i] = provider.ContentType(t)
	}

	return &p, nil
}
