package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaforge/generation-ledger/internal/domain/provider"
)

var providerColumns = []string{
	"id", "name", "display_name", "active", "content_types", "cost_per_unit", "priority", "config", "created_at", "updated_at",
}

func testProvider() *provider.Provider {
	now := time.Now()
	return &provider.Provider{
		ID:           uuid.New(),
		Name:         "openai",
		DisplayName:  "OpenAI",
		Active:       true,
		ContentTypes: []provider.ContentType{provider.ContentTypeText},
		CostPerUnit:  decimal.NewFromFloat(0.00002),
		Priority:     1,
		Config:       map[string]any{"adapter": "text", "billing_unit": "token"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func providerRow(p *provider.Provider) *pgxmock.Rows {
	return pgxmock.NewRows(providerColumns).AddRow(
		p.ID, p.Name, p.DisplayName, p.Active, contentTypeStrings(p.ContentTypes),
		p.CostPerUnit, p.Priority, p.Config, p.CreatedAt, p.UpdatedAt,
	)
}

func TestProviderRepository_GetAll(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProviderRepository{querier: mock, logger: newTestLogger()}
	p := testProvider()

	query := `
		SELECT id, name, display_name, active, content_types, cost_per_unit, priority, config, created_at, updated_at
		FROM providers
		ORDER BY priority, cost_per_unit, name
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WillReturnRows(providerRow(p))

		providers, err := repo.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, providers, 1)
		assert.Equal(t, "openai", providers[0].Name)
		assert.Equal(t, []provider.ContentType{provider.ContentTypeText}, providers[0].ContentTypes)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("connection refused")
		mock.ExpectQuery(query).WillReturnError(dbErr)

		providers, err := repo.GetAll(ctx)
		assert.Nil(t, providers)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProviderRepository_GetByName(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProviderRepository{querier: mock, logger: newTestLogger()}
	p := testProvider()

	query := `
		SELECT id, name, display_name, active, content_types, cost_per_unit, priority, config, created_at, updated_at
		FROM providers
		WHERE name = \$1
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("openai").WillReturnRows(providerRow(p))

		got, err := repo.GetByName(ctx, "openai")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("nope").WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByName(ctx, "nope")
		assert.Nil(t, got)
		var notFoundErr provider.ErrProviderNotFound
		require.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, "nope", notFoundErr.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProviderRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProviderRepository{querier: mock, logger: newTestLogger()}
	p := testProvider()

	query := `
		INSERT INTO providers \(id, name, display_name, active, content_types, cost_per_unit, priority, config, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(p.ID, p.Name, p.DisplayName, p.Active, contentTypeStrings(p.ContentTypes), p.CostPerUnit, p.Priority, p.Config, p.CreatedAt, p.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, p)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate name", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(p.ID, p.Name, p.DisplayName, p.Active, contentTypeStrings(p.ContentTypes), p.CostPerUnit, p.Priority, p.Config, p.CreatedAt, p.UpdatedAt).
			WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

		err := repo.Create(ctx, p)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProviderRepository_Update(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProviderRepository{querier: mock, logger: newTestLogger()}
	p := testProvider()

	query := `
		UPDATE providers
		SET display_name = \$2, active = \$3, content_types = \$4, cost_per_unit = \$5, priority = \$6, config = \$7, updated_at = NOW\(\)
		WHERE id = \$1
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(p.ID, p.DisplayName, p.Active, contentTypeStrings(p.ContentTypes), p.CostPerUnit, p.Priority, p.Config).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, p)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(p.ID, p.DisplayName, p.Active, contentTypeStrings(p.ContentTypes), p.CostPerUnit, p.Priority, p.Config).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, p)
		assert.ErrorIs(t, err, provider.ErrProviderNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
