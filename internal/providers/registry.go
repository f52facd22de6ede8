// Package providers maintains the in-memory provider catalog, selection rules and
// cost estimation used by both the gateway and the job processor.
package providers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mediaforge/generation-ledger/internal/domain/provider"
)

// costPrecision is the ledger's fixed decimal precision. Every estimate is rounded
// here so repeated estimation of the same prompt never drifts.
const costPrecision = 6

// Registry caches provider rows in memory. Reads are lock-free apart from an RWMutex;
// writes (Init, Refresh) replace the whole slice so readers never observe a
// half-updated catalog.
type Registry struct {
	mu        sync.RWMutex
	providers []*provider.Provider
	degraded  bool

	repo   provider.Repository
	logger *slog.Logger
}

// NewRegistry creates an empty registry; call Init before serving traffic
func NewRegistry(logger *slog.Logger, repo provider.Repository) *Registry {
	return &Registry{
		repo:   repo,
		logger: logger,
	}
}

// Init loads the catalog from the store. An empty store is seeded with the default
// back-ends and persisted. If the store is unreachable the registry falls back to an
// in-memory copy of the defaults so the system stays partially functional.
func (r *Registry) Init(ctx context.Context) error {
	loaded, err := r.repo.GetAll(ctx)
	if err != nil {
		r.logger.Error("Provider store unreachable, running with in-memory defaults (degraded)", "error", err)
		r.replace(defaultProviders(), true)
		return nil
	}

	if len(loaded) == 0 {
		r.logger.Info("Provider store empty, seeding default providers")
		seeded := defaultProviders()
		for _, p := range seeded {
			if err := r.repo.Create(ctx, p); err != nil {
				r.logger.Error("Failed to persist seeded provider", "name", p.Name, "error", err)
			}
		}
		r.replace(seeded, false)
		return nil
	}

	r.replace(loaded, false)
	r.logger.Info("Provider registry initialized", "providers", len(loaded))
	return nil
}

// Refresh reloads the catalog from the store. On failure the current cache is kept.
func (r *Registry) Refresh(ctx context.Context) error {
	loaded, err := r.repo.GetAll(ctx)
	if err != nil {
		r.logger.Error("Failed to refresh provider registry, keeping current catalog", "error", err)
		return err
	}

	r.replace(loaded, false)
	r.logger.Info("Provider registry refreshed", "providers", len(loaded))
	return nil
}

// Degraded reports whether the registry is running on in-memory defaults only
func (r *Registry) Degraded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.degraded
}

// AllProviders returns a copy of the full catalog, active or not
func (r *Registry) AllProviders() []*provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*provider.Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// ProvidersByType returns the active providers supporting a content type
func (r *Registry) ProvidersByType(ct provider.ContentType) []*provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*provider.Provider
	for _, p := range r.providers {
		if p.Active && p.Supports(ct) {
			out = append(out, p)
		}
	}
	return out
}

// DefaultProvider picks the active provider for a content type: lowest priority wins,
// cost-per-unit breaks ties, name keeps the result deterministic.
func (r *Registry) DefaultProvider(ct provider.ContentType) (*provider.Provider, error) {
	candidates := r.ProvidersByType(ct)
	if len(candidates) == 0 {
		return nil, provider.ErrNoProviderAvailable{ContentType: ct}
	}

	best := candidates[0]
	for _, p := range candidates[1:] {
		if p.Preferred(best) {
			best = p
		}
	}
	return best, nil
}

// Provider looks up a provider by name regardless of active flag; callers decide
// whether an inactive provider is acceptable
func (r *Registry) Provider(name string) (*provider.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.providers {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, provider.ErrProviderNotFound{Name: name}
}

// EstimateCost prices a prompt against a provider's billing rule. The unit count is
// characters for per-character billing, a fixed single unit for per-asset billing, and
// a length/4 token proxy for per-token billing. Results are deterministic for a given
// provider and prompt and rounded to the ledger precision.
func (r *Registry) EstimateCost(p *provider.Provider, prompt string) decimal.Decimal {
	var units decimal.Decimal
	switch billingUnit(p) {
	case "character":
		units = decimal.NewFromInt(int64(len(prompt)))
	case "asset":
		units = decimal.NewFromInt(1)
	default: // token
		tokens := len(prompt) / 4
		if tokens < 1 {
			tokens = 1
		}
		units = decimal.NewFromInt(int64(tokens))
	}

	return p.CostPerUnit.Mul(units).Round(costPrecision)
}

func billingUnit(p *provider.Provider) string {
	if unit, ok := p.Config["billing_unit"].(string); ok {
		return unit
	}
	return "token"
}

func (r *Registry) replace(providers []*provider.Provider, degraded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = providers
	r.degraded = degraded
}

// defaultProviders is the seed catalog: one entry per wired back-end. Video is
// deliberately absent; it is a valid request type but no back-end serves it yet, so
// selection fails with a no-provider error rather than a validation error.
func defaultProviders() []*provider.Provider {
	now := time.Now()
	return []*provider.Provider{
		{
			ID:           uuid.New(),
			Name:         "openai",
			DisplayName:  "OpenAI Text Generation",
			Active:       true,
			ContentTypes: []provider.ContentType{provider.ContentTypeText},
			CostPerUnit:  decimal.RequireFromString("0.00002"),
			Priority:     1,
			Config: map[string]any{
				"adapter":      "text",
				"billing_unit": "token",
				"model":        "gpt-4o-mini",
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:           uuid.New(),
			Name:         "stability",
			DisplayName:  "Stability Image Synthesis",
			Active:       true,
			ContentTypes: []provider.ContentType{provider.ContentTypeImage},
			CostPerUnit:  decimal.RequireFromString("0.04"),
			Priority:     1,
			Config: map[string]any{
				"adapter":      "image",
				"billing_unit": "asset",
				"model":        "stable-diffusion-xl-1024-v1-0",
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:           uuid.New(),
			Name:         "elevenlabs",
			DisplayName:  "ElevenLabs Speech Synthesis",
			Active:       true,
			ContentTypes: []provider.ContentType{provider.ContentTypeAudio},
			CostPerUnit:  decimal.RequireFromString("0.0003"),
			Priority:     1,
			Config: map[string]any{
				"adapter":      "speech",
				"billing_unit": "character",
				"model":        "eleven_monolingual_v1",
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}
