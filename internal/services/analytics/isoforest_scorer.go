package analytics

import (
	"context"
	"fmt"

	"FraudGuard/internal/domain/models"
	domsvc "FraudGuard/internal/domain/service"
	"FraudGuard/pkg/config"
)

// HTTPIsoForestScorer adapts the offline-fitted isolation-forest model
// service to the AnomalyScorer interface. The model and scaler live in the
// sidecar; this handle is immutable and shared across requests. Any
// transport or decode failure maps to ErrScorerUnavailable: the model is
// mandatory for a verdict.
type HTTPIsoForestScorer struct {
	base     *HTTPServiceBase
	attempts int
}

// NewHTTPIsoForestScorer builds the scorer adapter from config.
func NewHTTPIsoForestScorer(cfg *config.Config) *HTTPIsoForestScorer {
	attempts := cfg.Scorer.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &HTTPIsoForestScorer{
		base:     NewHTTPServiceBase(cfg),
		attempts: attempts,
	}
}

type vectorPayload struct {
	Features []float64 `json:"features"`
}

type transformResp struct {
	Features []float64 `json:"features"`
}

type predictResp struct {
	// -1 = anomaly, 1 = normal, matching the fitted model's convention
	Prediction int `json:"prediction"`
}

type scoreResp struct {
	Score float64 `json:"score"`
}

// Normalize applies the fitted scaler transform to a raw model input vector.
func (s *HTTPIsoForestScorer) Normalize(ctx context.Context, vec []float64) ([]float64, error) {
	var out transformResp
	if err := s.base.PostJSONWithRetry(ctx, "/scaler/transform", vectorPayload{Features: vec}, &out, s.attempts); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrScorerUnavailable, err)
	}
	if len(out.Features) != len(vec) {
		return nil, fmt.Errorf("%w: scaler returned %d features, want %d",
			models.ErrScorerUnavailable, len(out.Features), len(vec))
	}
	return out.Features, nil
}

// Predict returns the discrete verdict for a normalized vector.
func (s *HTTPIsoForestScorer) Predict(ctx context.Context, vec []float64) (bool, error) {
	var out predictResp
	if err := s.base.PostJSONWithRetry(ctx, "/model/predict", vectorPayload{Features: vec}, &out, s.attempts); err != nil {
		return false, fmt.Errorf("%w: %v", models.ErrScorerUnavailable, err)
	}
	return out.Prediction == -1, nil
}

// Score returns the continuous anomaly score; lower means more anomalous.
func (s *HTTPIsoForestScorer) Score(ctx context.Context, vec []float64) (float64, error) {
	var out scoreResp
	if err := s.base.PostJSONWithRetry(ctx, "/model/score", vectorPayload{Features: vec}, &out, s.attempts); err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrScorerUnavailable, err)
	}
	return out.Score, nil
}

var _ domsvc.AnomalyScorer = (*HTTPIsoForestScorer)(nil)
