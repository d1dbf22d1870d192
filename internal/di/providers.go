package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domrepo "FraudGuard/internal/domain/repository"
	domsvc "FraudGuard/internal/domain/service"
	"FraudGuard/internal/handler/api"
	appmw "FraudGuard/internal/middleware"
	internalrepo "FraudGuard/internal/repository"
	"FraudGuard/internal/service/ratelimit"
	"FraudGuard/internal/services/analytics"
	"FraudGuard/internal/usecase"
	pkgch "FraudGuard/pkg/clickhouse"
	"FraudGuard/pkg/config"
	xhttp "FraudGuard/pkg/http"
	pkgkafka "FraudGuard/pkg/kafka"
	applogger "FraudGuard/pkg/logger"
	"FraudGuard/pkg/metrics"
	"FraudGuard/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "console"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return applogger.New(lc)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideRedisClient creates the Redis connection used for per-user history.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// ProvideHistoryStore creates the Redis-backed history repository.
func ProvideHistoryStore(client *redis.Client, cfg *config.Config) domrepo.HistoryStore {
	return internalrepo.NewRedisHistoryStore(client, cfg.Redis.Prefix, cfg.Redis.HistoryMaxLen)
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.ClickHouse.Host == "" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + txTable(cfg) + ` (
			transaction_id String, user_id String, amount Float64,
			merchant_name String, merchant_category String,
			lat Nullable(Float64), lon Nullable(Float64),
			ts DateTime64(3), country String, card_last4 String
		) ENGINE=MergeTree ORDER BY (user_id, ts)`,
		"CREATE TABLE IF NOT EXISTS " + featureTable(cfg) + ` (
			transaction_id String, user_id String, amount Float64,
			time_since_last_tx_sec Float64, user_avg_amount_7d Float64, user_std_amount_7d Float64,
			distance_from_home_km Float64, velocity_kmh Float64, is_unusual_hour UInt8,
			spending_zscore Float64, hour_of_day UInt8, day_of_week UInt8, is_weekend UInt8,
			tx_count_rolling_1h_user UInt16, distinct_merchants_rolling_1h_user UInt16,
			is_new_merchant_category_user UInt8, rapid_sequence_flag UInt8,
			value_anomaly_flag UInt8, combined_anomaly_score UInt8
		) ENGINE=MergeTree ORDER BY (user_id, transaction_id)`,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

func txTable(cfg *config.Config) string {
	t := cfg.ClickHouse.TransactionTable
	if t == "" {
		t = "transactions"
	}
	return cfg.ClickHouse.Database + "." + t
}

func featureTable(cfg *config.Config) string {
	t := cfg.ClickHouse.FeatureTable
	if t == "" {
		t = "transaction_features"
	}
	return cfg.ClickHouse.Database + "." + t
}

// ProvideArchive creates the ClickHouse archive repository. Returns nil when
// ClickHouse is not configured; consumers treat a nil archive as "no corpus".
func ProvideArchive(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) domrepo.Archive {
	if chClient == nil {
		return nil
	}
	archive := internalrepo.NewClickHouseArchive(chClient.DB(), txTable(cfg), featureTable(cfg))
	archive.SetLogger(l)
	return archive
}

// ProvideKafkaProducer creates a Kafka producer, or nil without brokers.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideAssessmentPublisher creates the Kafka event publisher.
func ProvideAssessmentPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.Publisher {
	if producer == nil || cfg.Kafka.Topics.Assessments == "" {
		return nil
	}
	return internalrepo.NewKafkaAssessmentPublisher(producer, cfg.Kafka.Topics.Assessments)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger, m domrepo.Metrics) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(usecase.NewConsumeHook(l, m))
	return consumer, nil
}

// ProvideIngestHandler registers the raw transaction landing handler.
func ProvideIngestHandler(archive domrepo.Archive, m domrepo.Metrics, cfg *config.Config) pkgkafka.MessageHandler {
	if archive == nil || cfg.Kafka.Topics.Transactions == "" {
		return nil
	}
	return usecase.NewTransactionIngestHandler(cfg.Kafka.Topics.Transactions, archive, m)
}

// ProvideScorer creates the HTTP client for the anomaly scoring service.
func ProvideScorer(cfg *config.Config) domsvc.AnomalyScorer {
	return analytics.NewHTTPIsoForestScorer(cfg)
}

// ProvideGlobalStats creates the cached corpus-wide amount statistics.
func ProvideGlobalStats(archive domrepo.Archive, cfg *config.Config, l *applogger.Logger) *usecase.GlobalStats {
	return usecase.NewGlobalStats(archive, cfg.Predictor.StatsTTL, l)
}

// ProvidePersistRetrier creates the background history-append retry loop.
func ProvidePersistRetrier(history domrepo.HistoryStore, m domrepo.Metrics, cfg *config.Config) *appmw.PersistRetrier {
	opts := []appmw.RetrierOption{}
	if cfg.Predictor.RetryBuffer > 0 {
		opts = append(opts, appmw.WithRetryBuffer(cfg.Predictor.RetryBuffer))
	}
	return appmw.NewPersistRetrier(history, m, opts...)
}

// ProvidePredictor creates the risk assessment orchestrator.
func ProvidePredictor(
	history domrepo.HistoryStore,
	scorer domsvc.AnomalyScorer,
	stats *usecase.GlobalStats,
	events domrepo.Publisher,
	retrier *appmw.PersistRetrier,
	m domrepo.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.Predictor {
	return usecase.NewPredictor(history, scorer, stats, events, retrier, m, cfg.Predictor.HistoryLimit, l)
}

// ProvideBatchBuilder creates the offline feature rebuild use case.
func ProvideBatchBuilder(archive domrepo.Archive, m domrepo.Metrics, cfg *config.Config, l *applogger.Logger) *usecase.BatchFeatureBuilder {
	if archive == nil {
		return nil
	}
	return usecase.NewBatchFeatureBuilder(archive, m, cfg.Predictor.BatchWorkers, l)
}

// ProvideHTTPHandler wires the Echo handler with its optional extras.
func ProvideHTTPHandler(
	cfg *config.Config,
	l *applogger.Logger,
	predictor *usecase.Predictor,
	builder *usecase.BatchFeatureBuilder,
) xhttp.Handler {
	hub := api.NewAssessmentHub(l)
	h := api.NewPredictHandler(l, predictor, builder, hub)
	if cfg.RateLimit.Enabled {
		h.SetRateLimit(ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec))
	}
	return h
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpHandler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	retrier *appmw.PersistRetrier,
	history domrepo.HistoryStore,
	publisher domrepo.Publisher,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, l, httpHandler, consumer, kh, retrier, history, publisher, chClient)
}
