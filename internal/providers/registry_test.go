package providers

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaforge/generation-ledger/internal/domain/provider"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// fakeProviderRepo is an in-memory provider.Repository for registry tests
type fakeProviderRepo struct {
	providers []*provider.Provider
	getAllErr error
	created   []*provider.Provider
}

func (f *fakeProviderRepo) GetAll(_ context.Context) ([]*provider.Provider, error) {
	if f.getAllErr != nil {
		return nil, f.getAllErr
	}
	return f.providers, nil
}

func (f *fakeProviderRepo) GetByName(_ context.Context, name string) (*provider.Provider, error) {
	for _, p := range f.providers {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, provider.ErrProviderNotFound{Name: name}
}

func (f *fakeProviderRepo) Create(_ context.Context, p *provider.Provider) error {
	f.created = append(f.created, p)
	return nil
}

func (f *fakeProviderRepo) Update(_ context.Context, _ *provider.Provider) error { return nil }

func (f *fakeProviderRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

func catalogProvider(name string, ct provider.ContentType, cost string, priority int, active bool) *provider.Provider {
	now := time.Now()
	return &provider.Provider{
		ID:           uuid.New(),
		Name:         name,
		DisplayName:  name,
		Active:       active,
		ContentTypes: []provider.ContentType{ct},
		CostPerUnit:  decimal.RequireFromString(cost),
		Priority:     priority,
		Config:       map[string]any{"billing_unit": "token"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestRegistry_Init(t *testing.T) {
	ctx := context.Background()

	t.Run("loads existing catalog", func(t *testing.T) {
		repo := &fakeProviderRepo{providers: []*provider.Provider{
			catalogProvider("alpha", provider.ContentTypeText, "0.001", 1, true),
		}}
		r := NewRegistry(newTestLogger(), repo)

		require.NoError(t, r.Init(ctx))
		assert.False(t, r.Degraded())
		assert.Len(t, r.AllProviders(), 1)
		assert.Empty(t, repo.created, "a populated store must not be re-seeded")
	})

	t.Run("seeds an empty store", func(t *testing.T) {
		repo := &fakeProviderRepo{}
		r := NewRegistry(newTestLogger(), repo)

		require.NoError(t, r.Init(ctx))
		assert.False(t, r.Degraded())
		assert.NotEmpty(t, r.AllProviders())
		assert.Len(t, repo.created, len(r.AllProviders()), "seeded defaults must be persisted")
	})

	t.Run("falls back to defaults when the store is unreachable", func(t *testing.T) {
		repo := &fakeProviderRepo{getAllErr: errors.New("connection refused")}
		r := NewRegistry(newTestLogger(), repo)

		require.NoError(t, r.Init(ctx))
		assert.True(t, r.Degraded())
		assert.NotEmpty(t, r.AllProviders(), "degraded mode still serves the built-in catalog")
	})
}

func TestRegistry_Refresh(t *testing.T) {
	ctx := context.Background()
	repo := &fakeProviderRepo{providers: []*provider.Provider{
		catalogProvider("alpha", provider.ContentTypeText, "0.001", 1, true),
	}}
	r := NewRegistry(newTestLogger(), repo)
	require.NoError(t, r.Init(ctx))

	t.Run("replaces the catalog", func(t *testing.T) {
		repo.providers = append(repo.providers,
			catalogProvider("beta", provider.ContentTypeImage, "0.02", 1, true))

		require.NoError(t, r.Refresh(ctx))
		assert.Len(t, r.AllProviders(), 2)
	})

	t.Run("keeps the current catalog on store failure", func(t *testing.T) {
		repo.getAllErr = errors.New("timeout")

		err := r.Refresh(ctx)
		assert.Error(t, err)
		assert.Len(t, r.AllProviders(), 2, "a failed refresh must not drop the cache")
	})
}

func TestRegistry_DefaultProvider(t *testing.T) {
	ctx := context.Background()
	repo := &fakeProviderRepo{providers: []*provider.Provider{
		catalogProvider("expensive-high-prio", provider.ContentTypeText, "0.05", 1, true),
		catalogProvider("cheap-high-prio", provider.ContentTypeText, "0.001", 1, true),
		catalogProvider("cheap-low-prio", provider.ContentTypeText, "0.0001", 5, true),
		catalogProvider("inactive", provider.ContentTypeText, "0.00001", 1, false),
		catalogProvider("imager", provider.ContentTypeImage, "0.02", 1, true),
	}}
	r := NewRegistry(newTestLogger(), repo)
	require.NoError(t, r.Init(ctx))

	t.Run("priority wins over cost", func(t *testing.T) {
		p, err := r.DefaultProvider(provider.ContentTypeText)
		require.NoError(t, err)
		assert.Equal(t, "cheap-high-prio", p.Name, "lowest priority first, then lowest cost")
	})

	t.Run("inactive providers are never selected", func(t *testing.T) {
		for _, p := range r.ProvidersByType(provider.ContentTypeText) {
			assert.True(t, p.Active)
		}
	})

	t.Run("no provider for the content type", func(t *testing.T) {
		_, err := r.DefaultProvider(provider.ContentTypeVideo)
		var noProviderErr provider.ErrNoProviderAvailable
		require.ErrorAs(t, err, &noProviderErr)
		assert.Equal(t, provider.ContentTypeVideo, noProviderErr.ContentType)
	})

	t.Run("name breaks full ties deterministically", func(t *testing.T) {
		tieRepo := &fakeProviderRepo{providers: []*provider.Provider{
			catalogProvider("zeta", provider.ContentTypeText, "0.001", 1, true),
			catalogProvider("alpha", provider.ContentTypeText, "0.001", 1, true),
		}}
		tied := NewRegistry(newTestLogger(), tieRepo)
		require.NoError(t, tied.Init(ctx))

		p, err := tied.DefaultProvider(provider.ContentTypeText)
		require.NoError(t, err)
		assert.Equal(t, "alpha", p.Name)
	})
}

func TestRegistry_Provider(t *testing.T) {
	ctx := context.Background()
	repo := &fakeProviderRepo{providers: []*provider.Provider{
		catalogProvider("alpha", provider.ContentTypeText, "0.001", 1, true),
		catalogProvider("dormant", provider.ContentTypeText, "0.001", 1, false),
	}}
	r := NewRegistry(newTestLogger(), repo)
	require.NoError(t, r.Init(ctx))

	t.Run("finds by name regardless of active flag", func(t *testing.T) {
		p, err := r.Provider("dormant")
		require.NoError(t, err)
		assert.False(t, p.Active)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := r.Provider("ghost")
		assert.ErrorIs(t, err, provider.ErrProviderNotFound{})
	})
}

func TestRegistry_EstimateCost(t *testing.T) {
	r := NewRegistry(newTestLogger(), &fakeProviderRepo{})

	tokenProvider := catalogProvider("tokens", provider.ContentTypeText, "0.00002", 1, true)
	tokenProvider.Config = map[string]any{"billing_unit": "token"}

	charProvider := catalogProvider("chars", provider.ContentTypeAudio, "0.0003", 1, true)
	charProvider.Config = map[string]any{"billing_unit": "character"}

	assetProvider := catalogProvider("assets", provider.ContentTypeImage, "0.04", 1, true)
	assetProvider.Config = map[string]any{"billing_unit": "asset"}

	t.Run("token billing uses a length proxy", func(t *testing.T) {
		prompt := "0123456789abcdef" // 16 chars -> 4 tokens
		cost := r.EstimateCost(tokenProvider, prompt)
		assert.True(t, cost.Equal(decimal.RequireFromString("0.00008")), "got %s", cost)
	})

	t.Run("token billing charges at least one unit", func(t *testing.T) {
		cost := r.EstimateCost(tokenProvider, "hi")
		assert.True(t, cost.Equal(decimal.RequireFromString("0.00002")), "got %s", cost)
	})

	t.Run("character billing counts every byte", func(t *testing.T) {
		cost := r.EstimateCost(charProvider, "hello")
		assert.True(t, cost.Equal(decimal.RequireFromString("0.0015")), "got %s", cost)
	})

	t.Run("asset billing is prompt-independent", func(t *testing.T) {
		short := r.EstimateCost(assetProvider, "cat")
		long := r.EstimateCost(assetProvider, "a very long and detailed description of a cat")
		assert.True(t, short.Equal(long))
		assert.True(t, short.Equal(decimal.RequireFromString("0.04")))
	})

	t.Run("estimates are deterministic", func(t *testing.T) {
		prompt := "same prompt every time"
		first := r.EstimateCost(tokenProvider, prompt)
		for i := 0; i < 10; i++ {
			assert.True(t, first.Equal(r.EstimateCost(tokenProvider, prompt)))
		}
	})

	t.Run("longer prompts never cost less", func(t *testing.T) {
		prompt := ""
		prev := decimal.Zero
		for i := 0; i < 64; i++ {
			prompt += "word "
			cost := r.EstimateCost(tokenProvider, prompt)
			assert.True(t, cost.GreaterThanOrEqual(prev), "cost must grow monotonically with prompt length")
			prev = cost
		}
	})
}

func TestDefaultProviders_NoVideoBackend(t *testing.T) {
	for _, p := range defaultProviders() {
		assert.False(t, p.Supports(provider.ContentTypeVideo),
			"video requests must fail selection, not validation")
	}
}
