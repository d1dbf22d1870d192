package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FraudGuard/internal/domain/models"
)

var saoPaulo = models.GeoPoint{Lat: -23.5505, Lon: -46.6333}

// tx builds one transaction; merchant doubles as category unless overridden.
func tx(ts time.Time, amount float64, merchant string, loc *models.GeoPoint) *models.Transaction {
	return &models.Transaction{
		TransactionID:    merchant + ts.Format("150405"),
		UserID:           "u1",
		Amount:           amount,
		MerchantName:     merchant,
		MerchantCategory: merchant,
		Location:         loc,
		Timestamp:        ts,
	}
}

func TestBuildVectorsFirstTransactionDefaults(t *testing.T) {
	ts := time.Date(2024, 3, 12, 14, 30, 0, 0, time.UTC) // a Tuesday
	vs, err := NewEngine().BuildVectors([]*models.Transaction{
		tx(ts, 250, "padaria", &saoPaulo),
	})
	require.NoError(t, err)
	require.Len(t, vs, 1)

	fv := vs[0]
	assert.Equal(t, float64(NoHistoryGapSec), fv.TimeSinceLastTxSec)
	assert.Equal(t, 250.0, fv.UserAvgAmount7d)
	assert.Equal(t, 0.0, fv.UserStdAmount7d) // dataset std of one row is zero
	assert.Equal(t, 0.0, fv.SpendingZScore)
	assert.Equal(t, 0.0, fv.DistanceFromHomeKm)
	assert.Equal(t, 0.0, fv.VelocityKmh)
	assert.Equal(t, 0, fv.TxCountRolling1h)
	assert.Equal(t, 0, fv.DistinctMerchantsRolling1h)
	assert.Equal(t, 14, fv.HourOfDay)
	assert.Equal(t, 1, fv.DayOfWeek) // Tuesday
	assert.Equal(t, 0, fv.IsWeekend)
	assert.Equal(t, 0, fv.IsUnusualHour)
	assert.Equal(t, 1, fv.IsNewMerchantCategory)
}

func TestBuildVectorsGlobalStdFallback(t *testing.T) {
	ts := time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC)
	e := NewEngine(WithGlobalStats(80, 42.5))
	vs, err := e.BuildVectors([]*models.Transaction{tx(ts, 100, "m", nil)})
	require.NoError(t, err)
	assert.Equal(t, 42.5, vs[0].UserStdAmount7d)
	// zscore against the single-row mean, divisor max(std, 1)
	assert.InDelta(t, 0.0, vs[0].SpendingZScore, 1e-12)
}

func TestBuildVectorsSpendWindowIsSevenRows(t *testing.T) {
	base := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)
	var txs []*models.Transaction
	amounts := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90}
	for i, a := range amounts {
		txs = append(txs, tx(base.Add(time.Duration(i)*24*time.Hour), a, "m", nil))
	}
	vs, err := NewEngine().BuildVectors(txs)
	require.NoError(t, err)

	// row 8: window is rows 2..8 (30..90), mean 60
	assert.InDelta(t, 60.0, vs[8].UserAvgAmount7d, 1e-9)

	// sample std of {30,40,50,60,70,80,90}
	want := math.Sqrt(2800.0 / 6.0)
	assert.InDelta(t, want, vs[8].UserStdAmount7d, 1e-9)
	assert.InDelta(t, (90.0-60.0)/want, vs[8].SpendingZScore, 1e-9)
}

func TestBuildVectorsZScoreDivisorFloor(t *testing.T) {
	base := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)
	// identical amounts give std 0; divisor floors at 1
	txs := []*models.Transaction{
		tx(base, 50, "m", nil),
		tx(base.Add(2*time.Hour), 50, "m", nil),
		tx(base.Add(4*time.Hour), 50.5, "m", nil),
	}
	vs, err := NewEngine().BuildVectors(txs)
	require.NoError(t, err)
	last := vs[2]
	assert.Less(t, last.UserStdAmount7d, 1.0)
	mean := (50 + 50 + 50.5) / 3.0
	assert.InDelta(t, 50.5-mean, last.SpendingZScore, 1e-9)
}

func TestBuildVectorsVelocityAndDistance(t *testing.T) {
	home := saoPaulo
	tokyo := models.GeoPoint{Lat: 35.6762, Lon: 139.6503}
	base := time.Date(2024, 3, 12, 1, 0, 0, 0, time.UTC)
	txs := []*models.Transaction{
		tx(base, 100, "a", &home),
		tx(base.Add(90*time.Minute), 120, "b", &tokyo),
	}
	vs, err := NewEngine().BuildVectors(txs)
	require.NoError(t, err)

	fv := vs[1]
	assert.Greater(t, fv.DistanceFromHomeKm, 18000.0)
	// 18k+ km in 90 minutes clamps at the cap
	assert.Equal(t, float64(MaxVelocityKmh), fv.VelocityKmh)
	assert.Equal(t, 1, fv.IsUnusualHour) // 02:30
}

func TestBuildVectorsVelocityZeroElapsed(t *testing.T) {
	lisbon := models.GeoPoint{Lat: 38.7223, Lon: -9.1393}
	ts := time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
	txs := []*models.Transaction{
		tx(ts, 10, "a", &saoPaulo),
		tx(ts, 20, "b", &lisbon), // same instant, huge distance
	}
	vs, err := NewEngine().BuildVectors(txs)
	require.NoError(t, err)
	assert.Equal(t, 0.0, vs[1].VelocityKmh)
}

func TestBuildVectorsMissingCoordinates(t *testing.T) {
	base := time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
	txs := []*models.Transaction{
		tx(base, 10, "a", nil), // home unknown
		tx(base.Add(time.Hour), 20, "b", &saoPaulo),
	}
	vs, err := NewEngine().BuildVectors(txs)
	require.NoError(t, err)
	assert.Equal(t, 0.0, vs[1].DistanceFromHomeKm)
	assert.Equal(t, 0.0, vs[1].VelocityKmh)
}

func TestBuildVectorsRollingHourStrictlyEarlier(t *testing.T) {
	base := time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
	txs := []*models.Transaction{
		tx(base.Add(-90*time.Minute), 10, "old", nil), // outside the window
		tx(base.Add(-40*time.Minute), 10, "m1", nil),
		tx(base.Add(-10*time.Minute), 10, "m2", nil),
		tx(base, 10, "m2", nil),
		tx(base, 10, "m3", nil), // same timestamp as previous row
	}
	vs, err := NewEngine().BuildVectors(txs)
	require.NoError(t, err)

	// row 3: prior rows within (t-1h, t) are m1 and m2
	assert.Equal(t, 2, vs[3].TxCountRolling1h)
	assert.Equal(t, 2, vs[3].DistinctMerchantsRolling1h)

	// row 4 shares row 3's timestamp; equal-timestamp rows are excluded
	assert.Equal(t, 2, vs[4].TxCountRolling1h)
	assert.Equal(t, 2, vs[4].DistinctMerchantsRolling1h)
}

func TestBuildVectorsWindowBoundaryInclusive(t *testing.T) {
	base := time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
	txs := []*models.Transaction{
		tx(base.Add(-time.Hour), 10, "edge", nil), // exactly 1h earlier: excluded
		tx(base.Add(-59*time.Minute), 10, "in", nil),
		tx(base, 10, "cur", nil),
	}
	vs, err := NewEngine().BuildVectors(txs)
	require.NoError(t, err)
	assert.Equal(t, 1, vs[2].TxCountRolling1h)
	assert.Equal(t, 1, vs[2].DistinctMerchantsRolling1h)
}

func TestBuildVectorsNewCategoryPerSequence(t *testing.T) {
	base := time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
	txs := []*models.Transaction{
		tx(base, 10, "food", nil),
		tx(base.Add(time.Hour), 10, "food", nil),
		tx(base.Add(2*time.Hour), 10, "travel", nil),
	}
	vs, err := NewEngine().BuildVectors(txs)
	require.NoError(t, err)
	assert.Equal(t, 1, vs[0].IsNewMerchantCategory)
	assert.Equal(t, 0, vs[1].IsNewMerchantCategory)
	assert.Equal(t, 1, vs[2].IsNewMerchantCategory)
}

func TestBuildVectorsCombinedScoreWeights(t *testing.T) {
	fv := models.FeatureVector{
		VelocityKmh:                150,
		DistanceFromHomeKm:         1500,
		SpendingZScore:             2.5,
		IsUnusualHour:              1,
		TimeSinceLastTxSec:         30,
		TxCountRolling1h:           4,
		DistinctMerchantsRolling1h: 2,
	}
	assert.Equal(t, 15, combinedScore(&fv))
	assert.Equal(t, 0, combinedScore(&models.FeatureVector{TimeSinceLastTxSec: NoHistoryGapSec}))
}

func TestBuildVectorsRejectsBadSequences(t *testing.T) {
	base := time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)

	_, err := NewEngine().BuildVectors([]*models.Transaction{
		tx(time.Time{}, 10, "m", nil),
	})
	assert.ErrorIs(t, err, models.ErrInvalidTimestamp)

	_, err = NewEngine().BuildVectors([]*models.Transaction{
		tx(base, 10, "m", nil),
		tx(base.Add(-time.Minute), 10, "m", nil),
	})
	assert.ErrorIs(t, err, models.ErrUnorderedHistory)
}

func TestBuildVectorsEmptyInput(t *testing.T) {
	vs, err := NewEngine().BuildVectors(nil)
	require.NoError(t, err)
	assert.Nil(t, vs)
}

// Each row's vector depends only on its prefix, so scoring the tail of a
// growing history must reproduce the batch rows exactly.
func TestBuildVectorsPrefixConsistency(t *testing.T) {
	base := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)
	var txs []*models.Transaction
	merchants := []string{"a", "b", "a", "c", "b", "d", "a", "e"}
	for i, m := range merchants {
		loc := models.GeoPoint{Lat: saoPaulo.Lat + float64(i)*0.01, Lon: saoPaulo.Lon}
		txs = append(txs, tx(base.Add(time.Duration(i*17)*time.Minute), float64(20+i*13), m, &loc))
	}

	full, err := NewEngine().BuildVectors(txs)
	require.NoError(t, err)

	for n := 1; n <= len(txs); n++ {
		part, err := NewEngine().BuildVectors(txs[:n])
		require.NoError(t, err)
		// the dataset-wide std fallback only affects single-row prefixes;
		// skip index 0 where the fallback differs by construction
		for i := 1; i < n; i++ {
			assert.Equal(t, full[i], part[i], "row %d of prefix %d", i, n)
		}
	}
}

func TestBuildVectorsDeterminism(t *testing.T) {
	base := time.Date(2024, 3, 16, 2, 0, 0, 0, time.UTC) // Saturday, unusual hour
	txs := []*models.Transaction{
		tx(base, 12, "a", &saoPaulo),
		tx(base.Add(30*time.Second), 900, "b", &saoPaulo),
	}
	first, err := NewEngine().BuildVectors(txs)
	require.NoError(t, err)
	second, err := NewEngine().BuildVectors(txs)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, 1, first[1].IsWeekend)
	assert.Equal(t, 1, first[1].RapidSequenceFlag)
	assert.Equal(t, 1, first[1].ValueAnomalyFlag) // 900 > 3*mean
}

func TestModelInputLayout(t *testing.T) {
	fv := models.FeatureVector{
		TimeSinceLastTxSec: 120,
		UserAvgAmount7d:    50,
		UserStdAmount7d:    10,
		DistanceFromHomeKm: 3,
		VelocityKmh:        1.5,
		IsUnusualHour:      1,
		SpendingZScore:     0.5,
		HourOfDay:          2,
		DayOfWeek:          6,
		IsWeekend:          1,
	}
	in := ModelInput(75, fv)
	require.Len(t, in, ModelInputDim)
	assert.Equal(t, []float64{75, 120, 50, 10, 3, 1.5, 1, 0.5, 2, 6, 1}, in)
}
