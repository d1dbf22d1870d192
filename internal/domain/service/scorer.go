package service

import "context"

// AnomalyScorer is the pre-fitted model consumed as a black box. Vectors are
// the 11-dimension model input in training column order. Implementations are
// immutable after construction and safe for concurrent use.
//
// Predict returns true for an anomalous vector. Score is the continuous
// anomaly score; lower (more negative) means more anomalous.
type AnomalyScorer interface {
	Normalize(ctx context.Context, vec []float64) ([]float64, error)
	Predict(ctx context.Context, vec []float64) (bool, error)
	Score(ctx context.Context, vec []float64) (float64, error)
}
