package usecase

import (
	"context"

	"github.com/segmentio/kafka-go"

	domrepo "FraudGuard/internal/domain/repository"
	pkgkafka "FraudGuard/pkg/kafka"
	applogger "FraudGuard/pkg/logger"
)

// ConsumeHook surfaces consumer-side failures that the ingest handler never
// sees, such as messages exhausting their retries on the way to the DLQ.
type ConsumeHook struct {
	pkgkafka.NoopHook

	logger  *applogger.Logger
	metrics domrepo.Metrics
}

func NewConsumeHook(logger *applogger.Logger, metrics domrepo.Metrics) *ConsumeHook {
	return &ConsumeHook{logger: logger, metrics: metrics}
}

func (h *ConsumeHook) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	h.metrics.RecordError("kafka_consume")
	h.logger.Warn("consume failed",
		applogger.String("topic", topic),
		applogger.Int("partition", km.Partition),
		applogger.Error(err),
	)
}

var _ pkgkafka.ConsumerHook = (*ConsumeHook)(nil)
