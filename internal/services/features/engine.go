package features

import (
	"fmt"
	"math"
	"time"

	"FraudGuard/internal/domain/models"
)

const (
	// NoHistoryGapSec is the time-since-last default when a user has no
	// preceding transaction (24h in seconds).
	NoHistoryGapSec = 86400

	// MaxVelocityKmh caps the implied travel speed between consecutive
	// transactions; anything above is clamped, not rejected.
	MaxVelocityKmh = 10000

	// SpendWindowRows is the trailing row-count window for the spend
	// mean/std. The persisted column names say "7d" for schema
	// compatibility with the offline training set, but the window is the
	// 7 most recent entries, not a calendar week.
	SpendWindowRows = 7

	rollingWindow = time.Hour
)

// Engine derives feature vectors from a single user's time-ordered history.
// It is pure: no I/O, no shared state, identical input yields identical
// output. The zero-value Engine derives dataset-wide fallback statistics
// from the supplied slice itself, matching the offline builder; the
// real-time path injects corpus-wide stats instead.
type Engine struct {
	globalMean float64
	globalStd  float64
	hasGlobal  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithGlobalStats supplies dataset-wide amount mean/std used as fallback
// when a user's rolling window is too short to define a deviation.
func WithGlobalStats(mean, std float64) Option {
	return func(e *Engine) {
		e.globalMean = mean
		e.globalStd = std
		e.hasGlobal = true
	}
}

// NewEngine creates a feature engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildVectors computes one FeatureVector per row of txs, which must belong
// to exactly one user and be ascending by timestamp. Each row's vector is a
// function only of the prefix ending at that row, so the tail vector equals
// the real-time value and every row equals its batch value (same prefix in,
// same vector out).
//
// Home location is the coordinates of the first row of the supplied slice.
// When the slice is a bounded recent window rather than a true prefix, home
// can disagree with the user's first-ever transaction; that asymmetry is
// inherited from the offline builder and deliberately not papered over here.
func (e *Engine) BuildVectors(txs []*models.Transaction) ([]models.FeatureVector, error) {
	if err := validateSequence(txs); err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}

	globalStd := e.globalStd
	if !e.hasGlobal {
		_, globalStd = amountStats(txs)
	}

	home := txs[0].Location
	seenCategories := make(map[string]struct{}, 16)
	window := newHourWindow()

	// O(1)-amortized rolling sums over the trailing SpendWindowRows
	// entries (current row included).
	var spendSum, spendSumSq float64

	out := make([]models.FeatureVector, len(txs))
	lo := 0
	for i, tx := range txs {
		t := tx.Timestamp
		var fv models.FeatureVector

		// temporal
		fv.HourOfDay = t.Hour()
		fv.DayOfWeek = (int(t.Weekday()) + 6) % 7 // 0=Monday
		if fv.DayOfWeek >= 5 {
			fv.IsWeekend = 1
		}
		if fv.HourOfDay < 5 {
			fv.IsUnusualHour = 1
		}

		// gap to the immediately preceding transaction
		if i == 0 {
			fv.TimeSinceLastTxSec = NoHistoryGapSec
		} else {
			fv.TimeSinceLastTxSec = t.Sub(txs[i-1].Timestamp).Seconds()
		}

		// trailing spend window, row-count based, min period 1
		spendSum += tx.Amount
		spendSumSq += tx.Amount * tx.Amount
		if i >= SpendWindowRows {
			old := txs[i-SpendWindowRows].Amount
			spendSum -= old
			spendSumSq -= old * old
		}
		n := float64(min(i+1, SpendWindowRows))
		fv.UserAvgAmount7d = spendSum / n
		if n >= 2 {
			variance := (spendSumSq - n*fv.UserAvgAmount7d*fv.UserAvgAmount7d) / (n - 1)
			if variance < 0 {
				variance = 0
			}
			fv.UserStdAmount7d = math.Sqrt(variance)
		} else {
			fv.UserStdAmount7d = globalStd
		}
		fv.SpendingZScore = (tx.Amount - fv.UserAvgAmount7d) / math.Max(fv.UserStdAmount7d, 1)

		// geospatial
		if d, ok := Distance(home, tx.Location); ok {
			fv.DistanceFromHomeKm = d
		}
		if i > 0 {
			prev := txs[i-1]
			dist, ok := Distance(prev.Location, tx.Location)
			if !ok {
				dist = 0
			}
			if elapsedH := t.Sub(prev.Timestamp).Hours(); elapsedH > 0 {
				fv.VelocityKmh = math.Min(dist/elapsedH, MaxVelocityKmh)
			}
		}

		// trailing 60-minute activity among strictly earlier transactions
		if i > 0 {
			window.add(txs[i-1].MerchantName)
		}
		cutoff := t.Add(-rollingWindow)
		for lo < i && !txs[lo].Timestamp.After(cutoff) {
			window.remove(txs[lo].MerchantName)
			lo++
		}
		fv.TxCountRolling1h, fv.DistinctMerchantsRolling1h = window.snapshotExcludingAt(txs, lo, i, t)

		// first appearance of the merchant category in the sequence
		if _, ok := seenCategories[tx.MerchantCategory]; !ok {
			seenCategories[tx.MerchantCategory] = struct{}{}
			fv.IsNewMerchantCategory = 1
		}

		if fv.TimeSinceLastTxSec < 60 {
			fv.RapidSequenceFlag = 1
		}
		if tx.Amount < 30 || tx.Amount > 3*fv.UserAvgAmount7d {
			fv.ValueAnomalyFlag = 1
		}
		fv.CombinedAnomalyScore = combinedScore(&fv)

		out[i] = fv
	}
	return out, nil
}

// combinedScore sums the weighted indicator rules; range [0, 15].
func combinedScore(fv *models.FeatureVector) int {
	s := 0
	if fv.VelocityKmh > 100 {
		s += 3
	}
	if fv.DistanceFromHomeKm > 1000 {
		s += 2
	}
	if fv.SpendingZScore > 2 {
		s += 2
	}
	if fv.IsUnusualHour == 1 {
		s += 1
	}
	if fv.TimeSinceLastTxSec < 60 {
		s += 2
	}
	if fv.TxCountRolling1h > 3 {
		s += 3
	}
	if fv.DistinctMerchantsRolling1h > 1 {
		s += 2
	}
	return s
}

func validateSequence(txs []*models.Transaction) error {
	for i, tx := range txs {
		if tx == nil {
			return fmt.Errorf("row %d: nil transaction", i)
		}
		if tx.Timestamp.IsZero() {
			return fmt.Errorf("row %d: %w", i, models.ErrInvalidTimestamp)
		}
		if i > 0 && tx.Timestamp.Before(txs[i-1].Timestamp) {
			return fmt.Errorf("row %d: %w", i, models.ErrUnorderedHistory)
		}
	}
	return nil
}

// amountStats returns mean and sample std of amount over the whole slice.
func amountStats(txs []*models.Transaction) (mean, std float64) {
	n := float64(len(txs))
	if n == 0 {
		return 0, 0
	}
	var sum, sumSq float64
	for _, tx := range txs {
		sum += tx.Amount
		sumSq += tx.Amount * tx.Amount
	}
	mean = sum / n
	if n >= 2 {
		variance := (sumSq - n*mean*mean) / (n - 1)
		if variance > 0 {
			std = math.Sqrt(variance)
		}
	}
	return mean, std
}

// hourWindow is a merchant multiset over the sliding one-hour window,
// maintained in O(1) amortized per row.
type hourWindow struct {
	counts   map[string]int
	size     int
	distinct int
}

func newHourWindow() *hourWindow {
	return &hourWindow{counts: make(map[string]int, 16)}
}

func (w *hourWindow) add(merchant string) {
	w.counts[merchant]++
	w.size++
	if w.counts[merchant] == 1 {
		w.distinct++
	}
}

func (w *hourWindow) remove(merchant string) {
	w.counts[merchant]--
	w.size--
	if w.counts[merchant] == 0 {
		w.distinct--
		delete(w.counts, merchant)
	}
}

// snapshotExcludingAt reads the window count and distinct-merchant count
// while excluding rows whose timestamp equals t: "prior" means strictly
// earlier, and sorted input puts any equal-timestamp rows immediately
// before index i. The exclusion run is almost always empty.
func (w *hourWindow) snapshotExcludingAt(txs []*models.Transaction, lo, i int, t time.Time) (count, distinct int) {
	j := i - 1
	for j >= lo && txs[j].Timestamp.Equal(t) {
		w.remove(txs[j].MerchantName)
		j--
	}
	count, distinct = w.size, w.distinct
	for k := j + 1; k < i; k++ {
		w.add(txs[k].MerchantName)
	}
	return count, distinct
}

// ModelInputDim is the dimensionality of the model input vector.
const ModelInputDim = 11

// ModelInput projects a transaction amount and its feature vector into the
// model input layout used when the scorer was fitted. Order is part of the
// model contract and must not change without refitting.
func ModelInput(amount float64, fv models.FeatureVector) []float64 {
	return []float64{
		amount,
		fv.TimeSinceLastTxSec,
		fv.UserAvgAmount7d,
		fv.UserStdAmount7d,
		fv.DistanceFromHomeKm,
		fv.VelocityKmh,
		float64(fv.IsUnusualHour),
		fv.SpendingZScore,
		float64(fv.HourOfDay),
		float64(fv.DayOfWeek),
		float64(fv.IsWeekend),
	}
}
