package usecase

import (
	"context"
	"time"

	domrepo "FraudGuard/internal/domain/repository"
	icache "FraudGuard/internal/service/cache"
	applogger "FraudGuard/pkg/logger"
)

const statsCacheKey = "corpus_amount_stats"

type amountStats struct {
	mean float64
	std  float64
}

// GlobalStats serves corpus-wide amount mean/std from the archive, cached
// in-process. The engine uses these as fallback defaults when a user's
// rolling window is too short; a stale value there is harmless, a blocking
// archive query per prediction is not.
type GlobalStats struct {
	archive domrepo.Archive
	cache   *icache.TTLCache
	ttl     time.Duration
	l       *applogger.Logger
}

// NewGlobalStats creates the provider. archive may be nil when no offline
// store is configured; Amount then always reports not-ok and the engine
// falls back to slice-derived stats.
func NewGlobalStats(archive domrepo.Archive, ttl time.Duration, l *applogger.Logger) *GlobalStats {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &GlobalStats{
		archive: archive,
		cache:   icache.NewTTLCache(),
		ttl:     ttl,
		l:       l,
	}
}

// Amount returns the cached corpus mean/std of transaction amount.
func (g *GlobalStats) Amount(ctx context.Context) (mean, std float64, ok bool) {
	if g.archive == nil {
		return 0, 0, false
	}
	if v, hit := g.cache.Get(statsCacheKey); hit {
		s := v.(amountStats)
		return s.mean, s.std, true
	}
	mean, std, err := g.archive.AmountStats(ctx)
	if err != nil {
		if g.l != nil {
			g.l.Warn("corpus amount stats fetch failed", applogger.Error(err))
		}
		return 0, 0, false
	}
	g.cache.Set(statsCacheKey, amountStats{mean: mean, std: std}, g.ttl)
	return mean, std, true
}
