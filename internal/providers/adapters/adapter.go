// Package adapters contains the clients for external content-generation back-ends.
// Every back-end, whatever its wire protocol, is exposed through the same Generator
// contract so the orchestrator never branches on provider specifics.
package adapters

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request is the uniform generation input handed to any adapter
type Request struct {
	JobID    uuid.UUID
	Prompt   string
	Model    string // Optional; adapters fall back to their configured default
	Settings map[string]any
}

// Response is the uniform generation output. Text back-ends fill Content; binary
// back-ends fill Data plus Extension and leave Content empty.
type Response struct {
	Content   string
	Data      []byte
	Extension string
	// Units is the billable quantity the back-end reported or the adapter derived:
	// tokens for text, assets for images, characters for speech.
	Units    decimal.Decimal
	Metadata map[string]any
}

// Generator is the contract every provider adapter satisfies
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
}

// ProviderError normalizes back-end failures. StatusCode 0 means the call never
// reached the back-end (network failure, timeout).
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Details    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether the failure is transient: network errors, rate limits,
// timeouts and server-side errors are retried; everything else fails immediately.
func (e *ProviderError) Retryable() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == 408 || e.StatusCode == 429:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}
