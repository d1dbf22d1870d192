package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"FraudGuard/internal/domain/models"
	domrepo "FraudGuard/internal/domain/repository"
)

// RedisHistoryStore keeps each user's transaction log in a Redis list,
// appended in arrival order and trimmed to a bounded length. GetRecent
// re-sorts the tail range: every derived feature assumes ascending
// timestamps and writers outside the per-user lock cannot be ruled out.
type RedisHistoryStore struct {
	client *redis.Client
	prefix string
	maxLen int
}

// NewRedisHistoryStore creates the store. maxLen bounds the retained
// per-user log; zero or negative keeps the default of 1000 entries.
func NewRedisHistoryStore(client *redis.Client, prefix string, maxLen int) *RedisHistoryStore {
	if prefix == "" {
		prefix = "fraudguard"
	}
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &RedisHistoryStore{client: client, prefix: prefix, maxLen: maxLen}
}

func (s *RedisHistoryStore) key(userID string) string {
	return s.prefix + ":history:" + userID
}

// GetRecent returns at most limit of the user's most recent transactions,
// ascending by timestamp. Fetch failures are wrapped as history-unavailable
// so the caller can degrade to an empty history.
func (s *RedisHistoryStore) GetRecent(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	raw, err := s.client.LRange(ctx, s.key(userID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: lrange %s: %v", models.ErrHistoryUnavailable, userID, err)
	}

	out := make([]*models.Transaction, 0, len(raw))
	for _, item := range raw {
		var tx models.Transaction
		if err := json.Unmarshal([]byte(item), &tx); err != nil {
			// a corrupt entry invalidates derived features for the whole
			// sequence; treat the fetch as unavailable rather than guess
			return nil, fmt.Errorf("%w: decode history entry for %s: %v", models.ErrHistoryUnavailable, userID, err)
		}
		out = append(out, &tx)
	}
	models.SortByTimestamp(out)
	return out, nil
}

// Append pushes the transaction onto the user's log and trims to maxLen.
func (s *RedisHistoryStore) Append(ctx context.Context, tx *models.Transaction) error {
	b, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", models.ErrPersistence, tx.TransactionID, err)
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key(tx.UserID), b)
	pipe.LTrim(ctx, s.key(tx.UserID), int64(-s.maxLen), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: rpush %s: %v", models.ErrPersistence, tx.UserID, err)
	}
	return nil
}

// Health pings Redis.
func (s *RedisHistoryStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisHistoryStore) Close() error {
	return s.client.Close()
}

var _ domrepo.HistoryStore = (*RedisHistoryStore)(nil)
