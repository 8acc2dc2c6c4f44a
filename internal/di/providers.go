package di

import (
	"context"
	"fmt"
	"time"

	"CreditGate/internal/domain/repository"
	domsvc "CreditGate/internal/domain/service"
	"CreditGate/internal/handler/api"
	mid "CreditGate/internal/middleware"
	internalrepo "CreditGate/internal/repository"
	"CreditGate/internal/service/feed"
	"CreditGate/internal/service/ratelimit"
	"CreditGate/internal/services/scoring"
	"CreditGate/internal/usecase"
	"CreditGate/pkg/cache"
	pkgch "CreditGate/pkg/clickhouse"
	"CreditGate/pkg/config"
	xhttp "CreditGate/pkg/http"
	pkgkafka "CreditGate/pkg/kafka"
	"CreditGate/pkg/logger"
	"CreditGate/pkg/metrics"
	"CreditGate/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	level, format := "info", "json"
	if cfg.Environment == "development" {
		level, format = "debug", "console"
	}
	return logger.New(&logger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideSessionCache creates the Redis client the session store runs on.
func ProvideSessionCache(cfg *config.Config) (cache.Service, error) {
	c, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Session.Redis.Host),
		cache.WithRedisPort(cfg.Session.Redis.Port),
		cache.WithRedisPassword(cfg.Session.Redis.Password),
		cache.WithRedisDB(cfg.Session.Redis.DB),
		cache.WithRedisPool(cfg.Session.Redis.PoolSize, cfg.Session.Redis.MinIdleConns, 5*time.Second),
		cache.WithRedisPrefix("creditgate"),
	)
	if err != nil {
		return nil, fmt.Errorf("session redis: %w", err)
	}
	return c, nil
}

// ProvideSessionStore creates the Redis-backed session store.
func ProvideSessionStore(c cache.Service, cfg *config.Config) *internalrepo.RedisSessionStore {
	return internalrepo.NewRedisSessionStore(c, cfg.Session.TTL, cfg.Session.VerifyMaxRPS, cfg.Session.VerifyWindow)
}

// ProvideGate creates the session gate.
func ProvideGate(store *internalrepo.RedisSessionStore, m repository.Metrics) *usecase.SessionGate {
	return usecase.NewSessionGate(store, m)
}

// ProvideScorer selects the scoring engine from config.
func ProvideScorer(cfg *config.Config) domsvc.Scorer {
	if cfg.Scoring.Engine == "http" {
		return scoring.NewHTTPScorer(cfg)
	}
	return scoring.NewRuleEngine()
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the
// decision archive schema exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.decisions (
			ts DateTime64(3),
			event_id String,
			identity_id String,
			applicant_email String,
			amount Float64,
			term Int32,
			purpose LowCardinality(String),
			employment_type LowCardinality(String),
			risk_score Float64,
			raw_risk_score Float64,
			approved UInt8,
			confidence Float64,
			clamped UInt8
		) ENGINE=MergeTree ORDER BY (identity_id, ts)`, db),
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideDecisionArchive creates the ClickHouse decision archive.
func ProvideDecisionArchive(chClient *pkgch.Client, cfg *config.Config) repository.DecisionArchive {
	return internalrepo.NewClickHouseDecisionArchive(chClient.DB(), cfg.ClickHouse.Database+".decisions")
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
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

// ProvideDecisionPublisher creates the Kafka decision publisher.
func ProvideDecisionPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.DecisionPublisher {
	return internalrepo.NewKafkaDecisionPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
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
	return consumer, nil
}

// ProvideKafkaDecisionsHandler consumes the decisions topic into the archive.
func ProvideKafkaDecisionsHandler(archive repository.DecisionArchive, m repository.Metrics, cfg *config.Config) *usecase.KafkaDecisionsHandler {
	return usecase.NewKafkaDecisionsHandler(cfg.Kafka.Topic, archive, m)
}

// ProvideDecisionProcessor routes audit records to the configured backend.
func ProvideDecisionProcessor(
	pub repository.DecisionPublisher,
	archive repository.DecisionArchive,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.DecisionProcessor {
	return usecase.NewDecisionProcessor(pub, archive, m, cfg.Audit.Backend)
}

// ProvideBroadcaster creates the live decision feed.
func ProvideBroadcaster(log *logger.Logger) *feed.Broadcaster {
	return feed.NewBroadcaster(log)
}

// ProvideAuditPipeline wires the audit path between the orchestrator and the
// backend, with the live feed as a fan-out hook.
func ProvideAuditPipeline(
	proc *usecase.DecisionProcessor,
	m repository.Metrics,
	broadcaster *feed.Broadcaster,
	cfg *config.Config,
) *mid.AuditPipeline {
	return mid.NewAuditPipeline(proc, m,
		mid.WithMaxRPS(cfg.Audit.MaxRPS),
		mid.WithBufferSize(cfg.Audit.Buffer),
		mid.WithBroadcast(broadcaster.Publish),
	)
}

// ProvideOrchestrator creates the decision request orchestrator.
func ProvideOrchestrator(
	gate *usecase.SessionGate,
	scorer domsvc.Scorer,
	pipeline *mid.AuditPipeline,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(gate, scorer, pipeline, m, cfg.Scoring.DefaultDeadline)
}

// ProvideAuthService creates the login/logout service.
func ProvideAuthService(store *internalrepo.RedisSessionStore, m repository.Metrics) *usecase.AuthService {
	return usecase.NewAuthService(store, m)
}

// ProvideHTTPHandler assembles all route handlers behind one registration
// point with per-IP rate limiting.
func ProvideHTTPHandler(
	log *logger.Logger,
	orch *usecase.Orchestrator,
	gate *usecase.SessionGate,
	archive repository.DecisionArchive,
	broadcaster *feed.Broadcaster,
	auth *usecase.AuthService,
	cfg *config.Config,
) xhttp.Handler {
	decisions := api.NewDecisionsEchoHandler(log, orch, gate, archive, broadcaster)
	authHandler := api.NewAuthEchoHandler(log, auth)
	limit := mid.IPRateLimit(ratelimit.New(), cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
	return api.NewRouter(decisions, authHandler, limit)
}

// logPublisher adapts the Kafka producer to the log collector's interface.
type logPublisher struct {
	producer *pkgkafka.Producer
}

func (p logPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	producer *pkgkafka.Producer,
	pipeline *mid.AuditPipeline,
	proc *usecase.DecisionProcessor,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaDecisionsHandler,
	chClient *pkgch.Client,
	broadcaster *feed.Broadcaster,
	httpHandler xhttp.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	// Aggregate repeated error logs onto a side topic.
	log.AddCollector(&logger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          cfg.Kafka.Topic + ".logs",
		Publisher:      logPublisher{producer: producer},
	})
	return server.New(cfg, log, pipeline, proc, consumer, kh, chClient, broadcaster, httpHandler)
}
