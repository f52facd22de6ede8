package job

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mediaforge/generation-ledger/internal/domain/provider"
)

// Status defines job processing states. The machine is
// pending -> processing -> {completed | failed}; terminal states never transition.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether the status admits no further transitions
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Result carries the generated artifact reference and provider metadata
type Result struct {
	ContentURL string         `json:"content_url,omitempty"`
	Content    string         `json:"content,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Job is one content-generation request, tracked from intake through completion or
// failure. Jobs are durable audit records; the orchestrator never deletes one.
type Job struct {
	ID            uuid.UUID            `json:"id"`
	AccountID     uuid.UUID            `json:"account_id"`
	ProviderID    uuid.UUID            `json:"provider_id"`
	TransactionID uuid.UUID            `json:"transaction_id"` // The credit reservation
	ContentType   provider.ContentType `json:"content_type"`
	Status        Status               `json:"status"`
	Prompt        string               `json:"prompt"`
	Settings      map[string]any       `json:"settings,omitempty"`
	Result        *Result              `json:"result,omitempty"`
	Error         string               `json:"error,omitempty"`
	EstimatedCost decimal.Decimal      `json:"estimated_cost"`
	ActualCost    *decimal.Decimal     `json:"actual_cost,omitempty"`
	StartedAt     *time.Time           `json:"started_at,omitempty"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// ErrJobNotFound indicates missing job
type ErrJobNotFound struct {
	JobID uuid.UUID
}

func (e ErrJobNotFound) Error() string {
	return "job not found: " + e.JobID.String()
}

// Is implements the errors.Is interface for ErrJobNotFound
func (e ErrJobNotFound) Is(target error) bool {
	t, ok := target.(ErrJobNotFound)
	if !ok {
		return false
	}
	if t.JobID == uuid.Nil {
		return true
	}
	return e.JobID == t.JobID
}

// ErrInvalidTransition indicates an attempted move the state machine forbids,
// e.g. re-processing a job that already reached a terminal state
type ErrInvalidTransition struct {
	JobID uuid.UUID
	From  Status
	To    Status
}

func (e ErrInvalidTransition) Error() string {
	return "invalid job transition for " + e.JobID.String() + ": " + string(e.From) + " -> " + string(e.To)
}

// Is implements the errors.Is interface for ErrInvalidTransition
func (e ErrInvalidTransition) Is(target error) bool {
	t, ok := target.(ErrInvalidTransition)
	if !ok {
		return false
	}
	if t.JobID == uuid.Nil {
		return true
	}
	return e.JobID == t.JobID
}
