package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"FraudGuard/internal/domain/models"
)

func TestClassifyCriticalOverridesScorer(t *testing.T) {
	// two critical signals: impossible velocity + far from home
	fv := models.FeatureVector{VelocityKmh: 900, DistanceFromHomeKm: 6000}

	level, rec := Classify(false, 0.3, fv)
	assert.Equal(t, models.RiskCritico, level)
	assert.Equal(t, RecommendCritico, rec)

	// scorer verdict is irrelevant once the override fires
	level, _ = Classify(true, -0.9, fv)
	assert.Equal(t, models.RiskCritico, level)
}

func TestClassifySingleCriticalSignalDoesNotOverride(t *testing.T) {
	fv := models.FeatureVector{VelocityKmh: 900}

	level, rec := Classify(false, 0.1, fv)
	assert.Equal(t, models.RiskBaixo, level)
	assert.Equal(t, RecommendBaixo, rec)
}

func TestClassifyBurstSignalNeedsBothCounts(t *testing.T) {
	// high count alone is not a critical signal
	fv := models.FeatureVector{TxCountRolling1h: 10, DistinctMerchantsRolling1h: 2, DistanceFromHomeKm: 6000}
	level, _ := Classify(false, 0, fv)
	assert.Equal(t, models.RiskBaixo, level)

	// count and distinct merchants together count as one signal
	fv.DistinctMerchantsRolling1h = 4
	level, _ = Classify(false, 0, fv)
	assert.Equal(t, models.RiskCritico, level)
}

func TestClassifyAnomalyEscalation(t *testing.T) {
	var fv models.FeatureVector

	level, rec := Classify(true, -0.5, fv)
	assert.Equal(t, models.RiskAlto, level)
	assert.Equal(t, RecommendAlto, rec)

	level, rec = Classify(true, -0.1, fv)
	assert.Equal(t, models.RiskMedio, level)
	assert.Equal(t, RecommendMedio, rec)

	// boundary: exactly the cut stays MÉDIO
	level, _ = Classify(true, -0.2, fv)
	assert.Equal(t, models.RiskMedio, level)
}

func TestClassifyNormal(t *testing.T) {
	level, rec := Classify(false, 0.4, models.FeatureVector{})
	assert.Equal(t, models.RiskBaixo, level)
	assert.Equal(t, RecommendBaixo, rec)
}
