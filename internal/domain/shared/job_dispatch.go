package shared

import (
	"time"

	"github.com/google/uuid"

	"github.com/mediaforge/generation-ledger/internal/domain/provider"
)

// JobDispatch is the Kafka message that hands an admitted job to the processor.
// It is a pointer, not the record: the processor reloads the job row before acting,
// so redelivered messages are harmless.
type JobDispatch struct {
	JobID         uuid.UUID            `json:"job_id"`
	AccountID     uuid.UUID            `json:"account_id"`
	TransactionID uuid.UUID            `json:"transaction_id"`
	ProviderName  string               `json:"provider_name"`
	ContentType   provider.ContentType `json:"content_type"`
	CorrelationID string               `json:"correlation_id,omitempty"`
	Timestamp     time.Time            `json:"timestamp"`
}
