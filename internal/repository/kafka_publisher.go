package repository

import (
	"context"
	"time"

	"FraudGuard/internal/domain/models"
	domrepo "FraudGuard/internal/domain/repository"
	pkgkafka "FraudGuard/pkg/kafka"
)

// AssessmentEvent is the Kafka envelope for a scored transaction. The
// assessment payload is the unmodified prediction schema; identifiers and
// event time live at the envelope level.
type AssessmentEvent struct {
	TransactionID string                 `json:"transaction_id"`
	UserID        string                 `json:"user_id"`
	Assessment    *models.RiskAssessment `json:"assessment"`
	EmittedAt     time.Time              `json:"emitted_at"`
}

// KafkaAssessmentPublisher emits assessment events, keyed by user so
// downstream consumers see one user's verdicts in order.
type KafkaAssessmentPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaAssessmentPublisher creates the publisher.
func NewKafkaAssessmentPublisher(producer *pkgkafka.Producer, topic string) *KafkaAssessmentPublisher {
	return &KafkaAssessmentPublisher{producer: producer, topic: topic}
}

// PublishAssessment emits one event; callers treat failures as best-effort.
func (p *KafkaAssessmentPublisher) PublishAssessment(ctx context.Context, tx *models.Transaction, a *models.RiskAssessment) error {
	return p.producer.Publish(ctx, p.topic, []byte(tx.UserID), AssessmentEvent{
		TransactionID: tx.TransactionID,
		UserID:        tx.UserID,
		Assessment:    a,
		EmittedAt:     time.Now().UTC(),
	})
}

// Close closes the underlying producer.
func (p *KafkaAssessmentPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.Publisher = (*KafkaAssessmentPublisher)(nil)
