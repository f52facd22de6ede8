package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mediaforge/generation-ledger/internal/domain/shared"
	"github.com/mediaforge/generation-ledger/internal/job_processor/service"
	"github.com/mediaforge/generation-ledger/internal/platform/messaging/producers"
)

// JobEventHandler handles incoming job dispatch messages from Kafka
type JobEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewJobEventHandler creates a new handler
func NewJobEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *JobEventHandler {
	return &JobEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *JobEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var dispatch shared.JobDispatch
	if err := json.Unmarshal(value, &dispatch); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal job dispatch from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if dispatch.CorrelationID != "" {
		logger = h.logger.With("correlation_id", dispatch.CorrelationID)
	}

	logger.Info("Received job dispatch for processing",
		"job_id", dispatch.JobID.String(),
		"account_id", dispatch.AccountID.String(),
		"content_type", dispatch.ContentType,
		"provider", dispatch.ProviderName,
	)

	if err := h.processingService.ProcessDispatch(ctx, &dispatch); err != nil {
		logger.Error("Failed to process job dispatch",
			"job_id", dispatch.JobID.String(),
			"account_id", dispatch.AccountID.String(),
			"error", err,
		)
		return fmt.Errorf("processing job %s failed: %w", dispatch.JobID.String(), err)
	}

	logger.Info("Successfully processed job dispatch", "job_id", dispatch.JobID.String())
	return nil // Success, commit offset
}
