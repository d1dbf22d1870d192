package models

// Request DTOs for the prediction endpoints. Defined in domain for reuse by
// handlers and tests; validation tags mirror the input transaction schema.

// PredictRequest is the body of POST /predict. Latitude/longitude are
// pointers so that 0 survives the required check.
type PredictRequest struct {
	UserID           string   `json:"user_id" validate:"required"`
	Amount           float64  `json:"amount" validate:"required,gt=0"`
	MerchantName     string   `json:"merchant_name" validate:"required"`
	MerchantCategory string   `json:"merchant_category" validate:"required"`
	Latitude         *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude        *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Timestamp        string   `json:"timestamp" validate:"omitempty"`
	Country          string   `json:"country" validate:"omitempty"`
	CardLast4        string   `json:"card_last4" validate:"omitempty,len=4,numeric"`
}

// PredictBatchRequest is the body of POST /predict/batch.
type PredictBatchRequest struct {
	Transactions []PredictRequest `json:"transactions" validate:"required,min=1,max=500,dive"`
}

// PredictBatchResponse wraps batch results in submission order.
type PredictBatchResponse struct {
	Predictions []*RiskAssessment `json:"predictions"`
}

// RebuildFeaturesRequest triggers an offline feature-table rebuild.
type RebuildFeaturesRequest struct {
	Limit int `json:"limit" query:"limit" default:"100000" validate:"gte=1,lte=1000000"`
}
