package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FraudGuard/internal/domain/models"
	domrepo "FraudGuard/internal/domain/repository"
	domsvc "FraudGuard/internal/domain/service"
	mid "FraudGuard/internal/middleware"
	"FraudGuard/internal/services/features"
	"FraudGuard/internal/services/risk"
	"FraudGuard/internal/syncutil"
	applogger "FraudGuard/pkg/logger"
)

// Predictor is the real-time orchestrator: bounded history fetch, feature
// derivation over the candidate-terminated sequence, scorer round trip,
// risk classification, best-effort persistence and event publication.
//
// History read, scoring and persist are serialized per user via a sharded
// key lock; without it two concurrent requests for the same user would each
// derive recent-activity features as if the other's transaction did not
// exist yet.
type Predictor struct {
	history      domrepo.HistoryStore
	scorer       domsvc.AnomalyScorer
	stats        *GlobalStats
	events       domrepo.Publisher
	retrier      *mid.PersistRetrier
	metrics      domrepo.Metrics
	locks        syncutil.ShardedMutex
	historyLimit int
	l            *applogger.Logger
}

// NewPredictor wires the orchestrator. events may be nil when no broker is
// configured; historyLimit bounds the per-request history window.
func NewPredictor(
	history domrepo.HistoryStore,
	scorer domsvc.AnomalyScorer,
	stats *GlobalStats,
	events domrepo.Publisher,
	retrier *mid.PersistRetrier,
	metrics domrepo.Metrics,
	historyLimit int,
	l *applogger.Logger,
) *Predictor {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &Predictor{
		history:      history,
		scorer:       scorer,
		stats:        stats,
		events:       events,
		retrier:      retrier,
		metrics:      metrics,
		historyLimit: historyLimit,
		l:            l,
	}
}

// Assess scores one candidate transaction and returns its risk assessment.
// A missing or unreachable history degrades to documented defaults; an
// unreachable scorer fails the request; a failed persist is logged, retried
// in the background and never alters the returned assessment.
func (p *Predictor) Assess(ctx context.Context, tx *models.Transaction) (*models.RiskAssessment, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction is nil")
	}
	start := time.Now()

	unlock := p.locks.Lock(tx.UserID)
	defer unlock()

	hist, err := p.history.GetRecent(ctx, tx.UserID, p.historyLimit)
	if err != nil {
		// degrade, don't fail: all history-derived features take their
		// no-history defaults
		p.metrics.RecordError("history_fetch")
		p.l.Warn("history unavailable, scoring with empty history",
			applogger.String("user_id", tx.UserID),
			applogger.Error(err),
		)
		hist = nil
	}

	seq := append(hist, tx)
	models.SortByTimestamp(seq)

	engine := p.engine(ctx)
	vectors, err := engine.BuildVectors(seq)
	if err != nil {
		p.metrics.RecordError("feature_build")
		return nil, fmt.Errorf("build features: %w", err)
	}
	fv := vectors[len(vectors)-1]

	raw := features.ModelInput(tx.Amount, fv)
	normalized, err := p.scorer.Normalize(ctx, raw)
	if err != nil {
		p.metrics.RecordError("scorer")
		return nil, fmt.Errorf("normalize: %w", err)
	}
	isAnomaly, err := p.scorer.Predict(ctx, normalized)
	if err != nil {
		p.metrics.RecordError("scorer")
		return nil, fmt.Errorf("predict: %w", err)
	}
	score, err := p.scorer.Score(ctx, normalized)
	if err != nil {
		p.metrics.RecordError("scorer")
		return nil, fmt.Errorf("score: %w", err)
	}

	level, recommendation := risk.Classify(isAnomaly, score, fv)

	assessment := &models.RiskAssessment{
		AnomalyScore:   score,
		IsAnomaly:      isAnomaly,
		RiskLevel:      level,
		Recommendation: recommendation,
		Features: models.AssessmentFeatures{
			VelocityKmh:         fv.VelocityKmh,
			DistanceFromHomeKm:  fv.DistanceFromHomeKm,
			SpendingZScore:      fv.SpendingZScore,
			TxCount1h:           fv.TxCountRolling1h,
			DistinctMerchants1h: fv.DistinctMerchantsRolling1h,
		},
	}

	// persist inside the lock so the next same-user request sees this
	// transaction; failure is non-fatal and handed to the retrier
	if err := p.history.Append(ctx, tx); err != nil {
		p.metrics.RecordError("persist")
		p.l.Warn("history append failed, queued for retry",
			applogger.String("transaction_id", tx.TransactionID),
			applogger.String("user_id", tx.UserID),
			applogger.Error(err),
		)
		if p.retrier != nil && errors.Is(err, models.ErrPersistence) {
			p.retrier.Enqueue(tx)
		}
	}

	if p.events != nil {
		if err := p.events.PublishAssessment(ctx, tx, assessment); err != nil {
			p.metrics.RecordError("publish_assessment")
			p.l.Warn("assessment publish failed", applogger.Error(err))
		}
	}

	p.metrics.RecordAssessment(level)
	p.metrics.RecordAnomalyScore(score)
	p.metrics.RecordLatency("assess", time.Since(start).Seconds())
	p.l.Info("transaction assessed",
		applogger.String("transaction_id", tx.TransactionID),
		applogger.String("user_id", tx.UserID),
		applogger.String("risk_level", string(level)),
		applogger.Float64("anomaly_score", score),
		applogger.Bool("is_anomaly", isAnomaly),
	)
	return assessment, nil
}

// AssessBatch scores transactions in submission order through the same
// single-transaction path.
func (p *Predictor) AssessBatch(ctx context.Context, txs []*models.Transaction) ([]*models.RiskAssessment, error) {
	out := make([]*models.RiskAssessment, 0, len(txs))
	for _, tx := range txs {
		a, err := p.Assess(ctx, tx)
		if err != nil {
			return nil, fmt.Errorf("assess %s: %w", tx.TransactionID, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (p *Predictor) engine(ctx context.Context) *features.Engine {
	if p.stats != nil {
		if mean, std, ok := p.stats.Amount(ctx); ok {
			return features.NewEngine(features.WithGlobalStats(mean, std))
		}
	}
	return features.NewEngine()
}
