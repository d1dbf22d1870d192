package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FraudGuard/internal/domain/models"
	domrepo "FraudGuard/internal/domain/repository"
	pkgkafka "FraudGuard/pkg/kafka"
)

// TransactionIngestHandler consumes raw transactions from Kafka and lands
// them in the archive, feeding the offline corpus the training sets and
// corpus-wide stats are built from.
type TransactionIngestHandler struct {
	topic   string
	archive domrepo.Archive
	metrics domrepo.Metrics
}

// NewTransactionIngestHandler creates the handler for the given topic.
func NewTransactionIngestHandler(topic string, archive domrepo.Archive, metrics domrepo.Metrics) *TransactionIngestHandler {
	return &TransactionIngestHandler{topic: topic, archive: archive, metrics: metrics}
}

// Topic returns the subscribed topic.
func (h *TransactionIngestHandler) Topic() string { return h.topic }

// Handle decodes one transaction message and stores it. Malformed messages
// are rejected (the consumer's retry/DLQ policy takes over); storage errors
// are retried upstream the same way.
func (h *TransactionIngestHandler) Handle(ctx context.Context, b []byte) error {
	var tx models.Transaction
	if err := json.Unmarshal(b, &tx); err != nil {
		h.metrics.RecordError("ingest_unmarshal")
		return fmt.Errorf("decode transaction: %w", err)
	}
	if tx.UserID == "" || tx.Amount <= 0 || tx.Timestamp.IsZero() {
		h.metrics.RecordError("ingest_invalid")
		return fmt.Errorf("invalid transaction %q for user %q", tx.TransactionID, tx.UserID)
	}

	start := time.Now()
	if err := h.archive.Store(ctx, &tx); err != nil {
		h.metrics.RecordError("ingest_store")
		return err
	}
	h.metrics.RecordLatency("archive_insert", time.Since(start).Seconds())
	return nil
}

var _ pkgkafka.MessageHandler = (*TransactionIngestHandler)(nil)
