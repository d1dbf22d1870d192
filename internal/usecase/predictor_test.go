package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FraudGuard/internal/domain/models"
	"FraudGuard/internal/services/risk"
	applogger "FraudGuard/pkg/logger"
)

type fakeHistory struct {
	byUser    map[string][]*models.Transaction
	getErr    error
	appendErr error
	appended  []*models.Transaction
}

func (f *fakeHistory) GetRecent(_ context.Context, userID string, limit int) ([]*models.Transaction, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	hist := f.byUser[userID]
	if len(hist) > limit {
		hist = hist[len(hist)-limit:]
	}
	out := make([]*models.Transaction, len(hist))
	copy(out, hist)
	return out, nil
}

func (f *fakeHistory) Append(_ context.Context, tx *models.Transaction) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, tx)
	if f.byUser == nil {
		f.byUser = make(map[string][]*models.Transaction)
	}
	f.byUser[tx.UserID] = append(f.byUser[tx.UserID], tx)
	return nil
}

func (f *fakeHistory) Health(context.Context) error { return nil }
func (f *fakeHistory) Close() error                 { return nil }

type fakeScorer struct {
	isAnomaly bool
	score     float64
	err       error
	lastInput []float64
}

func (f *fakeScorer) Normalize(_ context.Context, in []float64) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastInput = in
	return in, nil
}

func (f *fakeScorer) Predict(context.Context, []float64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.isAnomaly, nil
}

func (f *fakeScorer) Score(context.Context, []float64) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.score, nil
}

type fakePublisher struct {
	events []models.Transaction
	err    error
}

func (f *fakePublisher) PublishAssessment(_ context.Context, tx *models.Transaction, _ *models.RiskAssessment) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, *tx)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type nopMetrics struct{ errors map[string]int }

func (m *nopMetrics) RecordAssessment(models.RiskLevel) {}
func (m *nopMetrics) RecordError(kind string) {
	if m.errors == nil {
		m.errors = make(map[string]int)
	}
	m.errors[kind]++
}
func (m *nopMetrics) RecordAnomalyScore(float64)    {}
func (m *nopMetrics) RecordLatency(string, float64) {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func candidate(userID string, ts time.Time, amount float64) *models.Transaction {
	return &models.Transaction{
		TransactionID: fmt.Sprintf("tx-%s-%d", userID, ts.Unix()),
		UserID:        userID,
		Amount:        amount,
		MerchantName:  "loja",
		Timestamp:     ts,
	}
}

func TestAssessNoHistoryProducesDefaults(t *testing.T) {
	hist := &fakeHistory{}
	scorer := &fakeScorer{isAnomaly: false, score: 0.12}
	m := &nopMetrics{}
	p := NewPredictor(hist, scorer, nil, nil, nil, m, 100, testLogger(t))

	ts := time.Date(2024, 5, 6, 15, 0, 0, 0, time.UTC)
	a, err := p.Assess(context.Background(), candidate("u1", ts, 80))
	require.NoError(t, err)

	assert.Equal(t, models.RiskBaixo, a.RiskLevel)
	assert.Equal(t, risk.RecommendBaixo, a.Recommendation)
	assert.False(t, a.IsAnomaly)
	assert.Equal(t, 0.12, a.AnomalyScore)
	assert.Equal(t, 0.0, a.Features.VelocityKmh)
	assert.Equal(t, 0, a.Features.TxCount1h)

	// no-history gap feeds the model input at index 1
	require.Len(t, scorer.lastInput, 11)
	assert.Equal(t, 86400.0, scorer.lastInput[1])

	// candidate persisted for the next request
	require.Len(t, hist.appended, 1)
}

func TestAssessHistoryUnavailableDegrades(t *testing.T) {
	hist := &fakeHistory{getErr: models.ErrHistoryUnavailable}
	m := &nopMetrics{}
	p := NewPredictor(hist, &fakeScorer{}, nil, nil, nil, m, 100, testLogger(t))

	ts := time.Date(2024, 5, 6, 15, 0, 0, 0, time.UTC)
	a, err := p.Assess(context.Background(), candidate("u1", ts, 80))
	require.NoError(t, err)
	assert.Equal(t, models.RiskBaixo, a.RiskLevel)
	assert.Equal(t, 1, m.errors["history_fetch"])
}

func TestAssessScorerUnavailableFails(t *testing.T) {
	scorer := &fakeScorer{err: fmt.Errorf("%w: connection refused", models.ErrScorerUnavailable)}
	p := NewPredictor(&fakeHistory{}, scorer, nil, nil, nil, &nopMetrics{}, 100, testLogger(t))

	ts := time.Date(2024, 5, 6, 15, 0, 0, 0, time.UTC)
	_, err := p.Assess(context.Background(), candidate("u1", ts, 80))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrScorerUnavailable))
}

func TestAssessPersistFailureIsNonFatal(t *testing.T) {
	hist := &fakeHistory{appendErr: fmt.Errorf("%w: redis down", models.ErrPersistence)}
	m := &nopMetrics{}
	p := NewPredictor(hist, &fakeScorer{score: 0.2}, nil, nil, nil, m, 100, testLogger(t))

	ts := time.Date(2024, 5, 6, 15, 0, 0, 0, time.UTC)
	a, err := p.Assess(context.Background(), candidate("u1", ts, 80))
	require.NoError(t, err)
	assert.Equal(t, models.RiskBaixo, a.RiskLevel)
	assert.Equal(t, 1, m.errors["persist"])
}

func TestAssessPublishFailureIsNonFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	m := &nopMetrics{}
	p := NewPredictor(&fakeHistory{}, &fakeScorer{}, nil, pub, nil, m, 100, testLogger(t))

	ts := time.Date(2024, 5, 6, 15, 0, 0, 0, time.UTC)
	_, err := p.Assess(context.Background(), candidate("u1", ts, 80))
	require.NoError(t, err)
	assert.Equal(t, 1, m.errors["publish_assessment"])
}

func TestAssessUsesHistoryForFeatures(t *testing.T) {
	ts := time.Date(2024, 5, 6, 15, 0, 0, 0, time.UTC)
	hist := &fakeHistory{byUser: map[string][]*models.Transaction{
		"u1": {
			candidate("u1", ts.Add(-30*time.Minute), 50),
			candidate("u1", ts.Add(-10*time.Minute), 60),
		},
	}}
	scorer := &fakeScorer{}
	p := NewPredictor(hist, scorer, nil, nil, nil, &nopMetrics{}, 100, testLogger(t))

	a, err := p.Assess(context.Background(), candidate("u1", ts, 70))
	require.NoError(t, err)

	assert.Equal(t, 2, a.Features.TxCount1h)
	assert.Equal(t, 1, a.Features.DistinctMerchants1h)
	// gap to the previous transaction, not the no-history default
	assert.Equal(t, 600.0, scorer.lastInput[1])
}

func TestAssessAnomalyEscalatesByScore(t *testing.T) {
	ts := time.Date(2024, 5, 6, 15, 0, 0, 0, time.UTC)

	p := NewPredictor(&fakeHistory{}, &fakeScorer{isAnomaly: true, score: -0.35}, nil, nil, nil, &nopMetrics{}, 100, testLogger(t))
	a, err := p.Assess(context.Background(), candidate("u1", ts, 80))
	require.NoError(t, err)
	assert.Equal(t, models.RiskAlto, a.RiskLevel)

	p = NewPredictor(&fakeHistory{}, &fakeScorer{isAnomaly: true, score: -0.05}, nil, nil, nil, &nopMetrics{}, 100, testLogger(t))
	a, err = p.Assess(context.Background(), candidate("u1", ts, 80))
	require.NoError(t, err)
	assert.Equal(t, models.RiskMedio, a.RiskLevel)
}

func TestAssessBatchSequentialHistory(t *testing.T) {
	hist := &fakeHistory{}
	scorer := &fakeScorer{}
	p := NewPredictor(hist, scorer, nil, nil, nil, &nopMetrics{}, 100, testLogger(t))

	base := time.Date(2024, 5, 6, 15, 0, 0, 0, time.UTC)
	txs := []*models.Transaction{
		candidate("u1", base, 80),
		candidate("u1", base.Add(5*time.Minute), 85),
	}
	out, err := p.AssessBatch(context.Background(), txs)
	require.NoError(t, err)
	require.Len(t, out, 2)

	// the second request sees the first as history
	assert.Equal(t, 1, out[1].Features.TxCount1h)
	assert.Equal(t, 300.0, scorer.lastInput[1])
}

func TestAssessNilTransaction(t *testing.T) {
	p := NewPredictor(&fakeHistory{}, &fakeScorer{}, nil, nil, nil, &nopMetrics{}, 100, testLogger(t))
	_, err := p.Assess(context.Background(), nil)
	assert.Error(t, err)
}
