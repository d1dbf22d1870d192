package models

// RiskLevel is the terminal tier assigned by the risk classifier.
type RiskLevel string

const (
	RiskBaixo   RiskLevel = "BAIXO"
	RiskMedio   RiskLevel = "MÉDIO"
	RiskAlto    RiskLevel = "ALTO"
	RiskCritico RiskLevel = "CRÍTICO"
)

// AssessmentFeatures is the reduced feature projection returned to callers
// for observability. Field names are part of the wire contract.
type AssessmentFeatures struct {
	VelocityKmh         float64 `json:"velocity_kmh"`
	DistanceFromHomeKm  float64 `json:"distance_from_home_km"`
	SpendingZScore      float64 `json:"spending_zscore"`
	TxCount1h           int     `json:"tx_count_1h"`
	DistinctMerchants1h int     `json:"distinct_merchants_1h"`
}

// RiskAssessment is the outcome of scoring one transaction. AnomalyScore is
// the scorer's continuous output; more negative means more anomalous.
// The field set and names are the prediction wire contract; identifiers
// travel in the surrounding event envelope, not here.
type RiskAssessment struct {
	AnomalyScore   float64            `json:"anomaly_score"`
	IsAnomaly      bool               `json:"is_anomaly"`
	RiskLevel      RiskLevel          `json:"risk_level"`
	Recommendation string             `json:"recommendation"`
	Features       AssessmentFeatures `json:"features"`
}
