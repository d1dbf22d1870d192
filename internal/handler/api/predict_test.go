package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FraudGuard/internal/domain/models"
	"FraudGuard/internal/service/ratelimit"
	"FraudGuard/internal/usecase"
	applogger "FraudGuard/pkg/logger"
)

type memHistory struct {
	byUser map[string][]*models.Transaction
}

func (m *memHistory) GetRecent(_ context.Context, userID string, limit int) ([]*models.Transaction, error) {
	hist := m.byUser[userID]
	if len(hist) > limit {
		hist = hist[len(hist)-limit:]
	}
	out := make([]*models.Transaction, len(hist))
	copy(out, hist)
	return out, nil
}

func (m *memHistory) Append(_ context.Context, tx *models.Transaction) error {
	if m.byUser == nil {
		m.byUser = make(map[string][]*models.Transaction)
	}
	m.byUser[tx.UserID] = append(m.byUser[tx.UserID], tx)
	return nil
}

func (m *memHistory) Health(context.Context) error { return nil }
func (m *memHistory) Close() error                 { return nil }

type stubScorer struct {
	isAnomaly bool
	score     float64
	err       error
}

func (s *stubScorer) Normalize(_ context.Context, in []float64) ([]float64, error) {
	return in, s.err
}
func (s *stubScorer) Predict(context.Context, []float64) (bool, error) { return s.isAnomaly, s.err }
func (s *stubScorer) Score(context.Context, []float64) (float64, error) {
	return s.score, s.err
}

type silentMetrics struct{}

func (silentMetrics) RecordAssessment(models.RiskLevel) {}
func (silentMetrics) RecordError(string)                {}
func (silentMetrics) RecordAnomalyScore(float64)        {}
func (silentMetrics) RecordLatency(string, float64)     {}

func newTestHandler(t *testing.T, scorer *stubScorer) (*PredictHandler, *echo.Echo) {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	predictor := usecase.NewPredictor(&memHistory{}, scorer, nil, nil, nil, silentMetrics{}, 100, l)
	h := NewPredictHandler(l, predictor, nil, nil)
	e := echo.New()
	h.RegisterRoutes(e)
	return h, e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const validBody = `{
	"user_id": "u1",
	"amount": 150.5,
	"merchant_name": "Padaria Central",
	"merchant_category": "food",
	"latitude": -23.5505,
	"longitude": -46.6333,
	"timestamp": "2024-05-06T15:00:00Z"
}`

func TestPredictReturnsWireContract(t *testing.T) {
	_, e := newTestHandler(t, &stubScorer{isAnomaly: true, score: -0.31})

	rec := doJSON(e, http.MethodPost, "/predict", validBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(resp.Data, &payload))
	for _, key := range []string{"anomaly_score", "is_anomaly", "risk_level", "recommendation", "features"} {
		assert.Contains(t, payload, key)
	}
	// identifiers never leak into the prediction payload
	assert.NotContains(t, payload, "transaction_id")
	assert.NotContains(t, payload, "user_id")

	var features map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload["features"], &features))
	for _, key := range []string{"velocity_kmh", "distance_from_home_km", "spending_zscore", "tx_count_1h", "distinct_merchants_1h"} {
		assert.Contains(t, features, key)
	}

	var level string
	require.NoError(t, json.Unmarshal(payload["risk_level"], &level))
	assert.Equal(t, "ALTO", level)
}

func TestPredictValidationFailure(t *testing.T) {
	_, e := newTestHandler(t, &stubScorer{})

	rec := doJSON(e, http.MethodPost, "/predict", `{"user_id":"u1","amount":-5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictZeroCoordinatesAreValid(t *testing.T) {
	_, e := newTestHandler(t, &stubScorer{})

	body := `{"user_id":"u1","amount":10,"merchant_name":"m","merchant_category":"c","latitude":0,"longitude":0}`
	rec := doJSON(e, http.MethodPost, "/predict", body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPredictMalformedTimestampRejected(t *testing.T) {
	_, e := newTestHandler(t, &stubScorer{})

	body := `{"user_id":"u1","amount":10,"merchant_name":"m","merchant_category":"c","latitude":0,"longitude":0,"timestamp":"yesterday"}`
	rec := doJSON(e, http.MethodPost, "/predict", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_TIMESTAMP")
}

func TestPredictBatchOrderPreserved(t *testing.T) {
	_, e := newTestHandler(t, &stubScorer{})

	body := `{"transactions":[` + validBody + `,` + validBody + `]}`
	rec := doJSON(e, http.MethodPost, "/predict/batch", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data models.PredictBatchResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Predictions, 2)
}

func TestPredictBatchEmptyRejected(t *testing.T) {
	_, e := newTestHandler(t, &stubScorer{})

	rec := doJSON(e, http.MethodPost, "/predict/batch", `{"transactions":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictRateLimited(t *testing.T) {
	h, e := newTestHandler(t, &stubScorer{})
	h.SetRateLimit(ratelimit.New(1, 0))

	rec := doJSON(e, http.MethodPost, "/predict", validBody)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPost, "/predict", validBody)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestPredictScorerUnavailable(t *testing.T) {
	_, e := newTestHandler(t, &stubScorer{err: fmt.Errorf("%w: connection refused", models.ErrScorerUnavailable)})

	rec := doJSON(e, http.MethodPost, "/predict", validBody)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	_, e := newTestHandler(t, &stubScorer{})

	rec := doJSON(e, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
	assert.Contains(t, rec.Body.String(), "Isolation Forest")
}

func TestHomeEndpoint(t *testing.T) {
	_, e := newTestHandler(t, &stubScorer{})

	rec := doJSON(e, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Fraud Detection API")
}
