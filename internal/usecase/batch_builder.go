package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FraudGuard/internal/domain/models"
	domrepo "FraudGuard/internal/domain/repository"
	"FraudGuard/internal/services/features"
	applogger "FraudGuard/pkg/logger"
)

// BatchFeatureBuilder rebuilds the offline feature table from the archived
// transaction corpus. Feature derivation is parallel across users and
// strictly sequential within one user's ordered rows, so every row's vector
// equals what the real-time path would compute from the prefix ending at it.
type BatchFeatureBuilder struct {
	archive domrepo.Archive
	metrics domrepo.Metrics
	workers int
	l       *applogger.Logger
}

// NewBatchFeatureBuilder creates the builder; workers bounds user-level
// parallelism.
func NewBatchFeatureBuilder(archive domrepo.Archive, metrics domrepo.Metrics, workers int, l *applogger.Logger) *BatchFeatureBuilder {
	if workers <= 0 {
		workers = 4
	}
	return &BatchFeatureBuilder{archive: archive, metrics: metrics, workers: workers, l: l}
}

// Rebuild reads up to limit transactions, derives per-row vectors per user
// and writes the resulting rows to the feature table. Returns the number of
// feature rows written.
func (b *BatchFeatureBuilder) Rebuild(ctx context.Context, limit int) (int, error) {
	start := time.Now()
	txs, err := b.archive.QueryAll(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("load corpus: %w", err)
	}
	if len(txs) == 0 {
		return 0, nil
	}

	// dataset-wide fallback stats come from the whole corpus, as the
	// offline builder defines them
	mean, std, err := b.archive.AmountStats(ctx)
	if err != nil {
		return 0, fmt.Errorf("corpus stats: %w", err)
	}
	engine := features.NewEngine(features.WithGlobalStats(mean, std))

	byUser := groupByUser(txs)
	userCh := make(chan []*models.Transaction, len(byUser))
	for _, seq := range byUser {
		userCh <- seq
	}
	close(userCh)

	var (
		mu       sync.Mutex
		rows     []*models.FeatureRow
		wg       sync.WaitGroup
		buildErr error
	)
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seq := range userCh {
				models.SortByTimestamp(seq)
				vectors, err := engine.BuildVectors(seq)
				if err != nil {
					b.metrics.RecordError("batch_feature_build")
					mu.Lock()
					if buildErr == nil {
						buildErr = fmt.Errorf("user %s: %w", seq[0].UserID, err)
					}
					mu.Unlock()
					continue
				}
				userRows := make([]*models.FeatureRow, len(seq))
				for i, tx := range seq {
					userRows[i] = &models.FeatureRow{
						TransactionID: tx.TransactionID,
						UserID:        tx.UserID,
						Amount:        tx.Amount,
						Vector:        vectors[i],
					}
				}
				mu.Lock()
				rows = append(rows, userRows...)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if buildErr != nil {
		return 0, buildErr
	}

	if err := b.archive.StoreFeatures(ctx, rows); err != nil {
		return 0, fmt.Errorf("write feature table: %w", err)
	}
	if b.l != nil {
		b.l.Info("feature table rebuilt",
			applogger.Int("users", len(byUser)),
			applogger.Int("rows", len(rows)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	b.metrics.RecordLatency("batch_rebuild", time.Since(start).Seconds())
	return len(rows), nil
}

func groupByUser(txs []*models.Transaction) map[string][]*models.Transaction {
	byUser := make(map[string][]*models.Transaction)
	for _, tx := range txs {
		byUser[tx.UserID] = append(byUser[tx.UserID], tx)
	}
	return byUser
}
