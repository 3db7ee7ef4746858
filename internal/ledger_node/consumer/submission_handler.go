package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aidledger-audit/internal/domain/ledger"
	"github.com/aidledger-audit/internal/domain/shared"
	"github.com/aidledger-audit/internal/ledger_node/service"
	"github.com/aidledger-audit/internal/platform/messaging/producers"
)

// SubmissionHandler handles ledger submissions consumed from Kafka
type SubmissionHandler struct {
	sealingService service.SealingService
	producer       producers.DeadLetterPublisher
	logger         *slog.Logger
}

// NewSubmissionHandler creates a new handler. producer may be nil when no DLQ
// topic is configured.
func NewSubmissionHandler(
	logger *slog.Logger,
	sealingService service.SealingService,
	producer producers.DeadLetterPublisher,
) *SubmissionHandler {
	return &SubmissionHandler{
		sealingService: sealingService,
		producer:       producer,
		logger:         logger,
	}
}

// HandleMessage seals one submission. A nil return commits the offset.
func (h *SubmissionHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var submission ledger.Submission
	if err := json.Unmarshal(value, &submission); err != nil {
		h.logger.Error("Failed to unmarshal ledger submission", "error", err, "message_key", string(key))
		return h.deadLetter(ctx, key, value, fmt.Sprintf("unmarshal failed: %v", err), err)
	}

	logger := h.logger.With("tx_hash", submission.TxHash, "subject", submission.Subject)
	logger.Debug("Received ledger submission", "kind", submission.Kind)

	record, err := h.sealingService.Seal(ctx, &submission)
	if err != nil {
		if errors.Is(err, shared.ErrValidation) {
			return h.deadLetter(ctx, key, value, err.Error(), err)
		}
		logger.Error("Failed to seal submission", "error", err)
		return fmt.Errorf("sealing submission %s failed: %w", submission.TxHash, err)
	}

	logger.Info("Processed ledger submission", "block_number", record.BlockNumber, "state", record.State)
	return nil
}

// deadLetter parks a message that can never be sealed. Without a configured
// DLQ the message is dropped; if publishing fails cause is returned so the
// offset is not committed.
func (h *SubmissionHandler) deadLetter(ctx context.Context, key, value []byte, reason string, cause error) error {
	if h.producer == nil {
		h.logger.Warn("Dropping unprocessable submission, no DLQ configured", "message_key", string(key), "reason", reason)
		return nil
	}

	if err := h.producer.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		if errors.Is(err, producers.ErrDLQDisabled) {
			h.logger.Warn("Dropping unprocessable submission, no DLQ configured", "message_key", string(key), "reason", reason)
			return nil
		}
		h.logger.Error("Failed to publish submission to DLQ",
			"dlq_error", err,
			"original_error", cause,
			"message_key", string(key),
		)
		return fmt.Errorf("unprocessable submission: %w", cause)
	}

	h.logger.Info("Published unprocessable submission to DLQ", "message_key", string(key), "reason", reason)
	return nil
}
