package risk

import "FraudGuard/internal/domain/models"

// Recommendation texts, one fixed string per tier. These are operator-facing
// and part of the prediction contract.
const (
	RecommendCritico = "BLOQUEAR transação e LIGAR para cliente imediatamente"
	RecommendAlto    = "Enviar para FILA DE ANÁLISE HUMANA (prioridade alta)"
	RecommendMedio   = "Enviar para FILA DE ANÁLISE HUMANA (prioridade normal)"
	RecommendBaixo   = "APROVAR automaticamente"
)

// Thresholds for the critical-signal count and the scorer escalation cut.
const (
	criticalVelocityKmh   = 800  // faster than a commercial flight
	criticalDistanceKm    = 5000 // different continent
	criticalTxCount1h     = 5
	criticalMerchants1h   = 3
	urgentAnomalyScoreCut = -0.2
)

// Classify assigns a risk tier from the scorer verdict plus the raw
// multi-signal features, in strict priority order:
//
//  1. two or more critical signals force CRÍTICO regardless of the scorer;
//  2. a scorer anomaly escalates to ALTO below the urgent score cut,
//     otherwise MÉDIO;
//  3. everything else is BAIXO.
//
// The function is pure and stateless; each call is independent.
func Classify(isAnomaly bool, anomalyScore float64, fv models.FeatureVector) (models.RiskLevel, string) {
	criticalSignals := 0
	if fv.VelocityKmh > criticalVelocityKmh {
		criticalSignals++
	}
	if fv.DistanceFromHomeKm > criticalDistanceKm {
		criticalSignals++
	}
	if fv.TxCountRolling1h > criticalTxCount1h && fv.DistinctMerchantsRolling1h > criticalMerchants1h {
		criticalSignals++
	}
	if criticalSignals >= 2 {
		return models.RiskCritico, RecommendCritico
	}

	if isAnomaly {
		if anomalyScore < urgentAnomalyScoreCut {
			return models.RiskAlto, RecommendAlto
		}
		return models.RiskMedio, RecommendMedio
	}

	return models.RiskBaixo, RecommendBaixo
}
