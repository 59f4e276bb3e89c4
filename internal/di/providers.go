package di

import (
	"context"
	"fmt"
	"time"

	domrepo "SignalGate/internal/domain/repository"
	domsvc "SignalGate/internal/domain/service"
	"SignalGate/internal/handler/api"
	internalrepo "SignalGate/internal/repository"
	"SignalGate/internal/rules"
	"SignalGate/internal/service/cache"
	"SignalGate/internal/service/ratelimit"
	"SignalGate/internal/services/providers"
	"SignalGate/internal/usecase"
	pkgch "SignalGate/pkg/clickhouse"
	"SignalGate/pkg/config"
	xhttp "SignalGate/pkg/http"
	pkgkafka "SignalGate/pkg/kafka"
	"SignalGate/pkg/logger"
	pkgmetrics "SignalGate/pkg/metrics"
	pkgpostgres "SignalGate/pkg/postgres"
	"SignalGate/pkg/queue"
	"SignalGate/pkg/server"

	"github.com/redis/go-redis/v9"
)

const schemaTimeout = 10 * time.Second

// ProvideLogger creates the application logger from the logger block.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry returns the frozen production registry.
func ProvideRegistry() *rules.Registry {
	return rules.Default()
}

// ProvideMetrics creates a Prometheus recorder on the default registerer.
func ProvideMetrics() *pkgmetrics.Recorder {
	return pkgmetrics.New(nil)
}

// ProvideClickHouseClient connects only when a component reads from ClickHouse.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.NeedsClickHouse() {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvidePostgresClient connects only for the postgres ledger backend.
func ProvidePostgresClient(cfg *config.Config) (*pkgpostgres.Client, func(), error) {
	if cfg.Ledger.Backend != "postgres" {
		return nil, func() {}, nil
	}
	client, err := pkgpostgres.NewClient(
		pkgpostgres.WithDSN(cfg.Postgres.DSN),
		pkgpostgres.WithPool(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, cfg.Postgres.ConnMaxLifetime, cfg.Postgres.ConnMaxIdleTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideRedisClient connects when redis is enabled.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func()) {
	if !cfg.Redis.Enabled {
		return nil, func() {}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return rdb, func() { _ = rdb.Close() }
}

// ProvideLedger builds the configured ledger backend and ensures its schema.
func ProvideLedger(cfg *config.Config, pg *pkgpostgres.Client, ch *pkgch.Client, l *logger.Logger) (domrepo.Ledger, error) {
	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	stamp := internalrepo.NewStamper(nil)

	switch cfg.Ledger.Backend {
	case "postgres":
		if err := pg.InitSchema(ctx, internalrepo.PostgresLedgerSchema(cfg.Ledger.Table)); err != nil {
			return nil, fmt.Errorf("postgres ledger schema: %w", err)
		}
		ledger := internalrepo.NewPostgresLedger(pg.DB(), cfg.Ledger.Table, cfg.Ledger.QueryTimeout, stamp)
		ledger.SetLogger(l)
		return ledger, nil
	case "clickhouse":
		if err := ch.InitSchema(ctx, internalrepo.ClickHouseLedgerSchema(cfg.ClickHouse.Database, cfg.Ledger.Table)); err != nil {
			return nil, fmt.Errorf("clickhouse ledger schema: %w", err)
		}
		return internalrepo.NewClickHouseLedger(ch, cfg.ClickHouse.Database, cfg.Ledger.Table, cfg.Ledger.QueryTimeout, stamp), nil
	default:
		l.Warn("using in-memory ledger, decisions are not durable")
		return internalrepo.NewMemoryLedger(stamp), nil
	}
}

// ProvideProviderCache caches provider responses in redis when available,
// in process otherwise.
func ProvideProviderCache(rdb *redis.Client) cache.BytesCache {
	if rdb == nil {
		return cache.NewTTLCache()
	}
	return cache.NewRedisCache(rdb, "signalgate:provider:")
}

func ProvideOptionsProvider(cfg *config.Config, c cache.BytesCache, l *logger.Logger) domsvc.OptionsProvider {
	base := providers.NewHTTPProviderBase(usecase.ProviderOptions, cfg.Providers.Options,
		providers.WithCache(c, cfg.Redis.CacheTTL),
		providers.WithProviderLogger(l),
	)
	return providers.NewOptionsClient(base)
}

// ProvideVolatilityProvider reads ATR/RV from the stats service or derives
// them from ClickHouse candles.
func ProvideVolatilityProvider(cfg *config.Config, c cache.BytesCache, ch *pkgch.Client, l *logger.Logger) domsvc.VolatilityProvider {
	vc := cfg.Providers.Volatility
	if vc.Source == "clickhouse" {
		store := internalrepo.NewCHCandleStore(ch, cfg.ClickHouse.Database, cfg.ClickHouse.CandleTable)
		return providers.NewCandleVolatility(store, vc.Candles)
	}
	base := providers.NewHTTPProviderBase(usecase.ProviderVolatility, vc.ProviderConfig,
		providers.WithCache(c, cfg.Redis.CacheTTL),
		providers.WithProviderLogger(l),
	)
	return providers.NewVolatilityClient(base)
}

func ProvideLiquidityProvider(cfg *config.Config, c cache.BytesCache, l *logger.Logger) domsvc.LiquidityProvider {
	base := providers.NewHTTPProviderBase(usecase.ProviderLiquidity, cfg.Providers.Liquidity,
		providers.WithCache(c, cfg.Redis.CacheTTL),
		providers.WithProviderLogger(l),
	)
	return providers.NewLiquidityClient(base)
}

func ProvideContextBuilder(
	cfg *config.Config,
	options domsvc.OptionsProvider,
	volatility domsvc.VolatilityProvider,
	liquidity domsvc.LiquidityProvider,
	metrics *pkgmetrics.Recorder,
	l *logger.Logger,
) *usecase.ContextBuilder {
	b := usecase.NewContextBuilder(options, volatility, liquidity, usecase.ProviderTimeouts{
		Options:    cfg.Providers.Options.Timeout,
		Volatility: cfg.Providers.Volatility.Timeout,
		Liquidity:  cfg.Providers.Liquidity.Timeout,
	}, metrics)
	b.SetLogger(l)
	return b
}

func ProvideOrchestrator(reg *rules.Registry) *usecase.Orchestrator {
	return usecase.NewOrchestrator(reg)
}

func ProvideScorer(reg *rules.Registry) *usecase.Scorer {
	return usecase.NewScorer(reg)
}

// ProvideKafkaProducer creates a producer when kafka is enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideRedisQueue creates the ledger retry queue when enabled.
func ProvideRedisQueue(cfg *config.Config, rdb *redis.Client, l *logger.Logger) *queue.RedisQueue {
	if rdb == nil || !cfg.Redis.Retry.Enabled {
		return nil
	}
	return queue.NewRedisQueue(l, queue.QueueConfig{
		Workers:    cfg.Redis.Retry.Workers,
		RetryLimit: cfg.Redis.Retry.RetryLimit,
		RetryDelay: cfg.Redis.Retry.RetryDelay,
	}, rdb, queue.WithKeyPrefix(cfg.Redis.Retry.KeyPrefix))
}

// ProvideDecisionService assembles the decision workflow and its optional
// publisher, retry buffer and limiter.
func ProvideDecisionService(
	cfg *config.Config,
	reg *rules.Registry,
	builder *usecase.ContextBuilder,
	orch *usecase.Orchestrator,
	scorer *usecase.Scorer,
	ledger domrepo.Ledger,
	metrics *pkgmetrics.Recorder,
	producer *pkgkafka.Producer,
	rq *queue.RedisQueue,
	l *logger.Logger,
) *usecase.DecisionService {
	svc := usecase.NewDecisionService(reg, builder, orch, scorer, ledger, metrics)
	svc.SetLogger(l)

	rl := reg.RateLimit()
	svc.SetLimiter(ratelimit.New(rl.PerMinute, rl.Burst))

	var publisher domrepo.DecisionPublisher
	if producer != nil {
		publisher = internalrepo.NewKafkaDecisionPublisher(producer, cfg.Kafka.DecisionsTopic)
		svc.SetPublisher(publisher)
	}
	if rq != nil {
		svc.SetRetryBuffer(internalrepo.NewQueueRetryBuffer(rq, usecase.LedgerAppendMessageType))
		rq.RegisterJob(usecase.NewLedgerRetryJob(ledger, publisher, metrics, l))
	}
	return svc
}

func ProvideLedgerQuery(ledger domrepo.Ledger) *usecase.LedgerQueryUseCase {
	return usecase.NewLedgerQueryUseCase(ledger)
}

// ProvideKafkaConsumer creates the signal consumer when enabled.
func ProvideKafkaConsumer(cfg *config.Config, svc *usecase.DecisionService, metrics *pkgmetrics.Recorder, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
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
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	h := usecase.NewKafkaSignalHandler(cfg.Kafka.SignalsTopic, svc, metrics)
	h.SetLogger(l)
	consumer.RegisterHandler(h)
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.TracingHook(), pkgkafka.LoggingHook(l)))
	return consumer, nil
}

// ProvideGuard verifies the registry once and returns the periodic guard,
// or nil when the guard is disabled.
func ProvideGuard(cfg *config.Config, reg *rules.Registry, metrics *pkgmetrics.Recorder, l *logger.Logger) (*rules.Guard, error) {
	g := rules.NewGuard(reg,
		rules.WithInterval(cfg.Guard.Interval),
		rules.WithTerminate(!cfg.Guard.AlertOnly),
		rules.WithOnTamper(func(error) { metrics.RecordTamper() }),
		rules.WithGuardLogger(l),
	)
	if err := g.Verify(); err != nil {
		return nil, err
	}
	if !cfg.GuardEnabled() {
		return nil, nil
	}
	return g, nil
}

func ProvideHTTPHandler(
	svc *usecase.DecisionService,
	query *usecase.LedgerQueryUseCase,
	reg *rules.Registry,
	l *logger.Logger,
) *api.DecisionsEchoHandler {
	return api.NewDecisionsEchoHandler(l, svc, query, reg)
}

func ProvideHTTPServer(cfg *config.Config, h *api.DecisionsEchoHandler, l *logger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp registers the runnable components. Alerts are attached here
// because they need the producer and must be flushed before it closes.
func ProvideApp(
	cfg *config.Config,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	rq *queue.RedisQueue,
	guard *rules.Guard,
	producer *pkgkafka.Producer,
	l *logger.Logger,
) *server.App {
	opts := []server.AppOption{
		server.WithAppLogger(l),
		server.WithComponent("http", srv),
	}
	if consumer != nil {
		opts = append(opts, server.WithComponent("kafka_consumer", consumer))
	}
	if rq != nil {
		opts = append(opts, server.WithComponent("ledger_retry_queue", rq))
	}
	if guard != nil {
		opts = append(opts, server.WithComponent("config_guard", guard))
	}
	if cfg.Logger.Alerts.Enabled && producer != nil {
		l.AttachAlerts(&logger.AlertConfig{
			FlushInterval: cfg.Logger.Alerts.FlushInterval,
			MaxDistinct:   cfg.Logger.Alerts.MaxDistinct,
			Topic:         cfg.Kafka.AlertsTopic,
			Publisher:     internalrepo.NewKafkaAlertPublisher(producer),
		})
		opts = append(opts, server.WithCloser("alerts", func() error {
			l.DetachAlerts()
			return nil
		}))
	}
	return server.New(opts...)
}
