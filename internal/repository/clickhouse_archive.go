package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FraudGuard/internal/domain/models"
	domrepo "FraudGuard/internal/domain/repository"
	applogger "FraudGuard/pkg/logger"
)

// ClickHouseArchive is the offline store: the full transaction corpus the
// training sets are built from, plus the derived feature table written by
// the batch builder.
type ClickHouseArchive struct {
	db            *sql.DB
	txTable       string
	featuresTable string
	l             *applogger.Logger
}

// NewClickHouseArchive creates the archive over an initialized ClickHouse
// connection.
func NewClickHouseArchive(db *sql.DB, txTable, featuresTable string) *ClickHouseArchive {
	return &ClickHouseArchive{db: db, txTable: txTable, featuresTable: featuresTable}
}

// SetLogger injects a structured logger.
func (a *ClickHouseArchive) SetLogger(l *applogger.Logger) { a.l = l }

// Store inserts one transaction into the corpus.
func (a *ClickHouseArchive) Store(ctx context.Context, tx *models.Transaction) error {
	q := fmt.Sprintf(`INSERT INTO %s
        (transaction_id, user_id, amount, merchant_name, merchant_category, lat, lon, ts, country, card_last4)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, a.txTable)
	var lat, lon interface{}
	if tx.Location != nil {
		lat, lon = tx.Location.Lat, tx.Location.Lon
	}
	_, err := a.db.ExecContext(ctx, q,
		tx.TransactionID,
		tx.UserID,
		tx.Amount,
		tx.MerchantName,
		tx.MerchantCategory,
		lat,
		lon,
		tx.Timestamp,
		tx.Country,
		tx.CardLast4,
	)
	if err != nil {
		return fmt.Errorf("archive store: %w", err)
	}
	return nil
}

// QueryAll reads up to limit transactions ordered by user and timestamp,
// the shape the batch feature builder consumes.
func (a *ClickHouseArchive) QueryAll(ctx context.Context, limit int) ([]*models.Transaction, error) {
	start := time.Now()
	q := fmt.Sprintf(`SELECT transaction_id, user_id, amount, merchant_name, merchant_category, lat, lon, ts, country, card_last4
        FROM %s ORDER BY user_id, ts ASC LIMIT ?`, a.txTable)
	rows, err := a.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("archive query: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Transaction, 0, 1024)
	for rows.Next() {
		var tx models.Transaction
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&tx.TransactionID, &tx.UserID, &tx.Amount, &tx.MerchantName,
			&tx.MerchantCategory, &lat, &lon, &tx.Timestamp, &tx.Country, &tx.CardLast4); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if lat.Valid && lon.Valid {
			tx.Location = &models.GeoPoint{Lat: lat.Float64, Lon: lon.Float64}
		}
		out = append(out, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if a.l != nil {
		a.l.Info("archive query ok",
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// StoreFeatures writes derived feature rows in multi-row chunks.
func (a *ClickHouseArchive) StoreFeatures(ctx context.Context, frs []*models.FeatureRow) error {
	if len(frs) == 0 {
		return nil
	}
	const chunkSize = 2000
	const cols = 19
	for start := 0; start < len(frs); start += chunkSize {
		end := start + chunkSize
		if end > len(frs) {
			end = len(frs)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*cols)
		for _, fr := range frs[start:end] {
			if fr == nil {
				continue
			}
			v := fr.Vector
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				fr.TransactionID,
				fr.UserID,
				fr.Amount,
				v.TimeSinceLastTxSec,
				v.UserAvgAmount7d,
				v.UserStdAmount7d,
				v.DistanceFromHomeKm,
				v.VelocityKmh,
				uint8(v.IsUnusualHour),
				v.SpendingZScore,
				uint8(v.HourOfDay),
				uint8(v.DayOfWeek),
				uint8(v.IsWeekend),
				uint16(v.TxCountRolling1h),
				uint16(v.DistinctMerchantsRolling1h),
				uint8(v.IsNewMerchantCategory),
				uint8(v.RapidSequenceFlag),
				uint8(v.ValueAnomalyFlag),
				uint8(v.CombinedAnomalyScore),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf(`INSERT INTO %s
            (transaction_id, user_id, amount, time_since_last_tx_sec, user_avg_amount_7d, user_std_amount_7d,
             distance_from_home_km, velocity_kmh, is_unusual_hour, spending_zscore, hour_of_day, day_of_week,
             is_weekend, tx_count_rolling_1h_user, distinct_merchants_rolling_1h_user,
             is_new_merchant_category_user, rapid_sequence_flag, value_anomaly_flag, combined_anomaly_score)
            VALUES %s`, a.featuresTable, strings.Join(values, ","))
		if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store features: %w", err)
		}
	}
	return nil
}

// AmountStats returns corpus-wide mean and sample std of amount, the
// fallback defaults for short rolling windows in the real-time path.
func (a *ClickHouseArchive) AmountStats(ctx context.Context) (float64, float64, error) {
	q := fmt.Sprintf("SELECT avg(amount), stddevSamp(amount) FROM %s", a.txTable)
	var mean, std sql.NullFloat64
	if err := a.db.QueryRowContext(ctx, q).Scan(&mean, &std); err != nil {
		return 0, 0, fmt.Errorf("amount stats: %w", err)
	}
	return mean.Float64, std.Float64, nil
}

// Health pings ClickHouse.
func (a *ClickHouseArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// Close is a no-op; the connection is owned by the client package.
func (a *ClickHouseArchive) Close() error { return nil }

var _ domrepo.Archive = (*ClickHouseArchive)(nil)
