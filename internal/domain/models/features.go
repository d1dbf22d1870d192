package models

// FeatureVector holds the per-transaction behavioral, temporal and geospatial
// features derived from one user's ordered history. It is computed fresh on
// every request and never persisted in the real-time path.
type FeatureVector struct {
	TimeSinceLastTxSec         float64 `json:"time_since_last_tx_sec"`
	UserAvgAmount7d            float64 `json:"user_avg_amount_7d"`
	UserStdAmount7d            float64 `json:"user_std_amount_7d"`
	DistanceFromHomeKm         float64 `json:"distance_from_home_km"`
	VelocityKmh                float64 `json:"velocity_kmh"`
	IsUnusualHour              int     `json:"is_unusual_hour"`
	SpendingZScore             float64 `json:"spending_zscore"`
	HourOfDay                  int     `json:"hour_of_day"`
	DayOfWeek                  int     `json:"day_of_week"`
	IsWeekend                  int     `json:"is_weekend"`
	TxCountRolling1h           int     `json:"tx_count_rolling_1h_user"`
	DistinctMerchantsRolling1h int     `json:"distinct_merchants_rolling_1h_user"`
	IsNewMerchantCategory      int     `json:"is_new_merchant_category_user"`
	RapidSequenceFlag          int     `json:"rapid_sequence_flag"`
	ValueAnomalyFlag           int     `json:"value_anomaly_flag"`
	CombinedAnomalyScore       int     `json:"combined_anomaly_score"`
}

// FeatureRow is an offline artifact: one transaction joined with its derived
// vector, written to the feature table when building training sets.
type FeatureRow struct {
	TransactionID string
	UserID        string
	Amount        float64
	Vector        FeatureVector
}
