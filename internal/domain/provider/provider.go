package provider

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContentType enumerates the kinds of content a job can request
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
	ContentTypeVideo ContentType = "video"
	ContentTypeAudio ContentType = "audio"
)

var ErrInvalidContentType = errors.New("invalid content type")

// ParseContentType validates and converts a raw string to a ContentType
func ParseContentType(raw string) (ContentType, error) {
	switch ContentType(raw) {
	case ContentTypeText, ContentTypeImage, ContentTypeVideo, ContentTypeAudio:
		return ContentType(raw), nil
	}
	return "", ErrInvalidContentType
}

// Provider describes one external content-generation back-end.
// Core fields are statically typed; per-back-end tuning lives in the Config side-map
// so unknown keys round-trip without touching dispatch code.
type Provider struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	DisplayName  string          `json:"display_name"`
	Active       bool            `json:"active"`
	ContentTypes []ContentType   `json:"content_types"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
	Priority     int             `json:"priority"` // Lower is preferred
	Config       map[string]any  `json:"config,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Supports reports whether the provider can serve the given content type
func (p *Provider) Supports(ct ContentType) bool {
	for _, t := range p.ContentTypes {
		if t == ct {
			return true
		}
	}
	return false
}

// Preferred orders providers for default selection: priority ascending, then
// cost-per-unit ascending, then name for a stable tiebreak.
func (p *Provider) Preferred(other *Provider) bool {
	if p.Priority != other.Priority {
		return p.Priority < other.Priority
	}
	if cmp := p.CostPerUnit.Cmp(other.CostPerUnit); cmp != 0 {
		return cmp < 0
	}
	return p.Name < other.Name
}

// ErrNoProviderAvailable indicates no active provider supports the content type
type ErrNoProviderAvailable struct {
	ContentType ContentType
}

func (e ErrNoProviderAvailable) Error() string {
	return "no provider available for content type: " + string(e.ContentType)
}

// Is implements the errors.Is interface for ErrNoProviderAvailable
func (e ErrNoProviderAvailable) Is(target error) bool {
	t, ok := target.(ErrNoProviderAvailable)
	if !ok {
		return false
	}
	if t.ContentType == "" {
		return true
	}
	return e.ContentType == t.ContentType
}

// ErrProviderNotFound indicates an unknown provider name
type ErrProviderNotFound struct {
	Name string
}

func (e ErrProviderNotFound) Error() string {
	return "provider not found: " + e.Name
}

// Is implements the errors.Is interface for ErrProviderNotFound
func (e ErrProviderNotFound) Is(target error) bool {
	t, ok := target.(ErrProviderNotFound)
	if !ok {
		return false
	}
	if t.Name == "" {
		return true
	}
	return e.Name == t.Name
}
