package repository

import (
	"context"

	"FraudGuard/internal/domain/models"
)

// HistoryStore is the per-user append-only transaction log consumed by the
// real-time path. GetRecent returns at most limit transactions ascending by
// timestamp; implementations surface fetch failures so the caller can degrade
// to an empty history, and Append failures must never panic into the caller.
type HistoryStore interface {
	GetRecent(ctx context.Context, userID string, limit int) ([]*models.Transaction, error)
	Append(ctx context.Context, tx *models.Transaction) error
	Health(ctx context.Context) error
	Close() error
}

// Archive is the offline store: the full transaction corpus used to build
// training sets, plus the derived feature table.
type Archive interface {
	Store(ctx context.Context, tx *models.Transaction) error
	QueryAll(ctx context.Context, limit int) ([]*models.Transaction, error)
	StoreFeatures(ctx context.Context, rows []*models.FeatureRow) error
	AmountStats(ctx context.Context) (mean, std float64, err error)
	Health(ctx context.Context) error
	Close() error
}

// Publisher emits assessment events for downstream consumers (alerting,
// case management). Best-effort; never on the response path.
type Publisher interface {
	PublishAssessment(ctx context.Context, tx *models.Transaction, a *models.RiskAssessment) error
	Close() error
}

// Metrics abstracts the Prometheus recorder.
type Metrics interface {
	RecordAssessment(level models.RiskLevel)
	RecordError(kind string)
	RecordAnomalyScore(score float64)
	RecordLatency(op string, seconds float64)
}
