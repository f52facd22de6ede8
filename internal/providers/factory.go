package providers

import (
	"fmt"
	"sync"

	"github.com/mediaforge/generation-ledger/internal/config"
	"github.com/mediaforge/generation-ledger/internal/domain/provider"
	"github.com/mediaforge/generation-ledger/internal/providers/adapters"
)

// AdapterFactory builds and caches one Generator per provider. The adapter kind comes
// from the provider's config ("adapter" key), falling back to the provider's first
// supported content type.
type AdapterFactory struct {
	mu    sync.Mutex
	cache map[string]adapters.Generator
	cfg   *config.ProvidersConfig
}

// NewAdapterFactory creates a factory bound to the configured back-end credentials
func NewAdapterFactory(cfg *config.ProvidersConfig) *AdapterFactory {
	return &AdapterFactory{
		cache: make(map[string]adapters.Generator),
		cfg:   cfg,
	}
}

// Generator returns the adapter for a provider, building it on first use
func (f *AdapterFactory) Generator(p *provider.Provider) (adapters.Generator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if g, ok := f.cache[p.Name]; ok {
		return g, nil
	}

	g, err := f.build(p)
	if err != nil {
		return nil, err
	}
	f.cache[p.Name] = g
	return g, nil
}

func (f *AdapterFactory) build(p *provider.Provider) (adapters.Generator, error) {
	switch adapterKind(p) {
	case "text":
		return adapters.NewTextAdapter(p.Name, f.cfg.Text)
	case "image":
		return adapters.NewImageAdapter(p.Name, f.cfg.Image)
	case "speech":
		return adapters.NewSpeechAdapter(p.Name, f.cfg.Speech)
	}
	return nil, fmt.Errorf("no adapter available for provider %q", p.Name)
}

func adapterKind(p *provider.Provider) string {
	if kind, ok := p.Config["adapter"].(string); ok && kind != "" {
		return kind
	}
	if len(p.ContentTypes) == 0 {
		return ""
	}
	switch p.ContentTypes[0] {
	case provider.ContentTypeText:
		return "text"
	case provider.ContentTypeImage:
		return "image"
	case provider.ContentTypeAudio:
		return "speech"
	}
	return ""
}
