package api

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"FraudGuard/internal/domain/models"
	"FraudGuard/internal/service/ratelimit"
	"FraudGuard/internal/services/features"
	"FraudGuard/internal/usecase"
	xhttp "FraudGuard/pkg/http"
	xlogger "FraudGuard/pkg/logger"
	"FraudGuard/pkg/util"
)

const serviceVersion = "1.0.0"

// PredictHandler exposes the fraud scoring API over Echo.
type PredictHandler struct {
	logger    *xlogger.Logger
	predictor *usecase.Predictor
	builder   *usecase.BatchFeatureBuilder
	hub       *AssessmentHub

	limiter *ratelimit.Limiter
}

// NewPredictHandler creates the handler. builder and hub are optional.
func NewPredictHandler(logger *xlogger.Logger, predictor *usecase.Predictor, builder *usecase.BatchFeatureBuilder, hub *AssessmentHub) *PredictHandler {
	return &PredictHandler{logger: logger, predictor: predictor, builder: builder, hub: hub}
}

// SetRateLimit enables per-user token bucket limiting on the predict routes.
func (h *PredictHandler) SetRateLimit(limiter *ratelimit.Limiter) {
	h.limiter = limiter
}

// RegisterRoutes wires the API routes.
func (h *PredictHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Home)
	e.GET("/health", h.Health)
	e.POST("/predict", h.Predict)
	e.POST("/predict/batch", h.PredictBatch)
	if h.builder != nil {
		e.POST("/api/features/rebuild", h.RebuildFeatures)
	}
	if h.hub != nil {
		e.GET("/ws/assessments", h.hub.Serve)
	}
}

// Home reports basic service identity.
func (h *PredictHandler) Home(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"service": "Fraud Detection API",
		"version": serviceVersion,
		"status":  "running",
	})
}

// Health reports scoring readiness.
func (h *PredictHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":   "healthy",
		"model":    "Isolation Forest",
		"features": features.ModelInputDim,
	})
}

// Predict scores a single transaction.
func (h *PredictHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tx, verr := toTransaction(req)
	if verr != nil {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{*verr})
	}
	if h.limiter != nil && !h.limiter.Allow(tx.UserID) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests for user"))
	}

	assessment, err := h.predictor.Assess(c.Request().Context(), tx)
	if err != nil {
		return h.assessError(c, err)
	}
	if h.hub != nil {
		h.hub.Broadcast(tx, assessment)
	}
	return xhttp.SuccessResponse(c, assessment)
}

// PredictBatch scores multiple transactions in submission order.
func (h *PredictHandler) PredictBatch(c echo.Context) error {
	req := &models.PredictBatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	txs := make([]*models.Transaction, 0, len(req.Transactions))
	for i := range req.Transactions {
		tx, verr := toTransaction(&req.Transactions[i])
		if verr != nil {
			return xhttp.BadRequestResponse(c, []xhttp.ValidationError{*verr})
		}
		txs = append(txs, tx)
	}

	assessments, err := h.predictor.AssessBatch(c.Request().Context(), txs)
	if err != nil {
		return h.assessError(c, err)
	}
	if h.hub != nil {
		for i, a := range assessments {
			h.hub.Broadcast(txs[i], a)
		}
	}
	return xhttp.SuccessResponse(c, &models.PredictBatchResponse{Predictions: assessments})
}

// RebuildFeatures triggers an offline feature-table rebuild.
func (h *PredictHandler) RebuildFeatures(c echo.Context) error {
	req := &models.RebuildFeaturesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.builder.Rebuild(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("feature rebuild error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("feature rebuild failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"rows": rows})
}

func (h *PredictHandler) assessError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrScorerUnavailable):
		h.logger.Error("scorer unavailable", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("anomaly scorer unavailable").WithError(err))
	case errors.Is(err, models.ErrInvalidTimestamp), errors.Is(err, models.ErrUnorderedHistory):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	default:
		h.logger.Error("prediction error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("prediction failed").WithError(err))
	}
}

// toTransaction converts a validated request into a domain transaction,
// minting its identifier and defaulting a missing timestamp to now. A
// present-but-malformed timestamp is a validation error, never defaulted.
func toTransaction(req *models.PredictRequest) (*models.Transaction, *xhttp.ValidationError) {
	ts := time.Now().UTC()
	if req.Timestamp != "" {
		parsed, ok := util.ParseTime(req.Timestamp)
		if !ok {
			return nil, &xhttp.ValidationError{
				Code:    "ERR_TIMESTAMP",
				Field:   "timestamp",
				Message: "timestamp must be ISO-8601 or unix seconds",
			}
		}
		ts = parsed
	}

	tx := &models.Transaction{
		TransactionID:    uuid.NewString(),
		UserID:           req.UserID,
		Amount:           req.Amount,
		MerchantName:     req.MerchantName,
		MerchantCategory: req.MerchantCategory,
		Timestamp:        ts,
		Country:          req.Country,
		CardLast4:        req.CardLast4,
	}
	if req.Latitude != nil && req.Longitude != nil {
		tx.Location = &models.GeoPoint{Lat: *req.Latitude, Lon: *req.Longitude}
	}
	return tx, nil
}
