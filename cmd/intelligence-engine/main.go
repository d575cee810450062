// Command intelligence-engine is the C10 consumer engine's entrypoint:
// it loads config, wires every internal collaborator (bus, cache,
// breaker, analyzer/embedder clients, stores, dispatcher, DLQ, health
// server), and runs until an OS signal or unrecoverable error triggers
// graceful shutdown. Grounded on pkg/consumer/lifecycle.go's bootstrap
// shape, generalized from a single Server to the engine + health-server
// pair that must shut down together.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/archon-labs/intelligence-engine/internal/analyzer"
	"github.com/archon-labs/intelligence-engine/internal/breaker"
	"github.com/archon-labs/intelligence-engine/internal/bus"
	"github.com/archon-labs/intelligence-engine/internal/cache"
	"github.com/archon-labs/intelligence-engine/internal/config"
	"github.com/archon-labs/intelligence-engine/internal/dlq"
	"github.com/archon-labs/intelligence-engine/internal/embedder"
	"github.com/archon-labs/intelligence-engine/internal/engine"
	"github.com/archon-labs/intelligence-engine/internal/envelope"
	"github.com/archon-labs/intelligence-engine/internal/handlers"
	"github.com/archon-labs/intelligence-engine/internal/health"
	"github.com/archon-labs/intelligence-engine/internal/retryclassifier"
	"github.com/archon-labs/intelligence-engine/internal/store"
	"github.com/archon-labs/intelligence-engine/pkg/database/pgxpool_manager"
	"github.com/archon-labs/intelligence-engine/pkg/httpclient"
	"github.com/archon-labs/intelligence-engine/pkg/messaging/kafka"
	"github.com/archon-labs/intelligence-engine/pkg/observability"
	"github.com/archon-labs/intelligence-engine/pkg/observability/noop"
	"github.com/archon-labs/intelligence-engine/pkg/observability/otel"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "intelligence-engine:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, shutdownObs, err := newObservability(ctx, cfg)
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	defer func() { _ = shutdownObs(context.Background()) }()

	obs.Logger().Info(ctx, "starting intelligence-engine",
		observability.String("service_version", cfg.ServiceVersion),
		observability.String("environment", cfg.Environment))

	messageBus, err := newBus(cfg)
	if err != nil {
		return fmt.Errorf("bus: %w", err)
	}

	dlqPublisher, closeDLQClient, err := newDLQPublisher(cfg, obs)
	if err != nil {
		return fmt.Errorf("dlq: %w", err)
	}
	defer closeDLQClient()

	resultCache, closeCache, err := newCache(cfg)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer closeCache()
	isQualifying := breaker.ExcludeTimeouts
	if !cfg.CircuitBreakerExcludeTimeouts {
		isQualifying = breaker.CountAll
	}
	analyzerBreaker := breaker.New(breaker.Config{
		FailureThreshold: cfg.CircuitBreakerThreshold,
		ResetTimeout:     cfg.CircuitBreakerTimeout,
		SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
		IsQualifying:     isQualifying,
	})

	httpClient := httpclient.NewHTTPClientWithTimeout(cfg.AnalyzerTimeout)
	analyzerClient := analyzer.New(cfg.AnalyzerURL, cfg.AnalyzerTimeout, httpClient, resultCache, analyzerBreaker)

	embedderClient := embedder.New(embedder.Config{
		BaseURL:       cfg.EmbedderURL,
		MaxConcurrent: cfg.EmbedderMaxConcurrent,
	}, httpclient.NewHTTPClient())

	stores, closeStores, err := newStores(ctx, cfg, obs)
	if err != nil {
		return fmt.Errorf("stores: %w", err)
	}
	defer closeStores()

	dispatcher := handlers.NewDispatcher(handlers.Deps{
		Analyzer: analyzerClient,
		Embedder: embedderClient,
		Stores:   stores,
		Obs:      obs,
	})

	heartbeat := health.NewHeartbeat(time.Now())
	metrics := health.NewMetrics()

	retryMode := engine.RetryModeRepublish
	if cfg.RetryMode == "inprocess" {
		retryMode = engine.RetryModeInProcess
	}

	eng := engine.New(
		engine.Config{
			Concurrency:     cfg.ProcessingConcurrency,
			MaxPollRecords:  cfg.MaxPollRecords,
			ShutdownTimeout: cfg.ShutdownTimeout,
			HandlerTimeout:  cfg.HandlerTimeout,
			RetryMode:       retryMode,
		},
		messageBus,
		dispatcher,
		retryclassifier.BackoffConfig{
			Base:       cfg.RetryBackoffBase,
			Cap:        cfg.RetryBackoffMax,
			MaxRetries: cfg.MaxRetryAttempts,
		},
		dlqPublisher,
		messageBus,
		resultTopicFor(cfg),
		obs,
		engine.WithMetrics(metrics),
		engine.WithHeartbeat(heartbeat),
	)

	healthServer, err := health.NewServer(
		fmt.Sprintf(":%d", cfg.HealthCheckPort),
		cfg.ServiceName, cfg.ServiceVersion, cfg.Environment,
		obs,
		health.ReadinessInput{
			Subscribed:      func() bool { return true },
			AnalyzerBreaker: analyzerBreaker,
			LivenessWindow:  90 * time.Second,
			Heartbeat:       heartbeat,
		},
	)
	if err != nil {
		return fmt.Errorf("health server: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("health server: %w", err)
		}
	}()
	go func() {
		if err := eng.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("engine: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		obs.Logger().Info(context.Background(), "shutdown signal received")
	case err := <-errCh:
		obs.Logger().Error(context.Background(), "component failed", observability.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	var shutdownErrs []error
	if err := eng.Shutdown(shutdownCtx); err != nil {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("engine shutdown: %w", err))
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("health server shutdown: %w", err))
	}
	if err := messageBus.Close(); err != nil {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("bus close: %w", err))
	}

	return errors.Join(shutdownErrs...)
}

// newObservability picks the otel provider when OTLP_ENDPOINT is set
// (spec §6's expanded env var table), falling back to the noop provider
// for local/dev runs without a collector, mirroring
// pkg/observability/otel/config.go's own DefaultConfig fallback shape.
func newObservability(ctx context.Context, cfg config.Config) (observability.Observability, func(context.Context) error, error) {
	endpoint := os.Getenv("OTLP_ENDPOINT")
	if endpoint == "" {
		return noop.NewProvider(), func(context.Context) error { return nil }, nil
	}

	otelCfg := otel.DefaultConfig(cfg.ServiceName)
	otelCfg.ServiceVersion = cfg.ServiceVersion
	otelCfg.Environment = cfg.Environment
	otelCfg.OTLPEndpoint = endpoint
	if proto := os.Getenv("OTLP_PROTOCOL"); proto != "" {
		otelCfg.OTLPProtocol = otel.OTLPProtocol(proto)
	}
	provider, err := otel.NewProvider(ctx, otelCfg)
	if err != nil {
		return nil, nil, err
	}
	return provider, provider.Shutdown, nil
}

// newBus selects the Kafka or RabbitMQ bus adapter per BUS_DRIVER (spec
// §6 expansion; "kafka" is the default, answering the retry-deployment
// Open Question for environments without a Kafka cluster).
func newBus(cfg config.Config) (bus.Bus, error) {
	switch os.Getenv("BUS_DRIVER") {
	case "rabbitmq":
		return bus.NewRabbitMQ(bus.RabbitMQConfig{
			URL:        os.Getenv("RABBITMQ_URL"),
			Queue:      cfg.KafkaConsumerGroup,
			Exchange:   cfg.KafkaTopicPrefix,
			RoutingKey: firstOr(cfg.RequestTopics, ""),
			Prefetch:   cfg.ProcessingConcurrency * 2,
		})
	default:
		return bus.NewKafka(bus.KafkaConfig{
			Brokers:        cfg.KafkaBootstrapServers,
			GroupID:        cfg.KafkaConsumerGroup,
			Topics:         cfg.RequestTopics,
			CommitInterval: 0,
		})
	}
}

func firstOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return items[0]
}

// newDLQPublisher builds a Sarama-backed DLQ publisher per
// pkg/messaging/kafka/publisher.go, returning a close func that tears
// down the underlying client.
func newDLQPublisher(cfg config.Config, obs observability.Observability) (*dlq.Publisher, func(), error) {
	client, err := kafka.NewClient(cfg.KafkaBootstrapServers)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka client: %w", err)
	}
	publisher, err := kafka.NewPublisher(client)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka publisher: %w", err)
	}
	closeFn := func() { _ = publisher.Close() }
	return dlq.New(publisher, cfg.DLQTopic, obs), closeFn, nil
}

// newCache wires a SQLite-backed spill store for evicted cache entries
// when CACHE_SPILL_PATH (spec §6 expansion) is set, so a restart doesn't
// force every in-flight entry to re-analyze cold.
func newCache(cfg config.Config) (*cache.Cache, func(), error) {
	path := os.Getenv("CACHE_SPILL_PATH")
	if path == "" {
		return cache.New(cfg.CacheMaxSize, cfg.CacheTTLSeconds), func() {}, nil
	}

	spill, err := cache.NewSQLiteSpill(path)
	if err != nil {
		return nil, nil, err
	}
	return cache.New(cfg.CacheMaxSize, cfg.CacheTTLSeconds, cache.WithSecondaryStore(spill)),
		func() { _ = spill.Close() }, nil
}

// newStores wires a Postgres-backed pattern store when PATTERN_STORE_DSN
// (spec §6 expansion) is set, running its golang-migrate migrations
// before opening the pool, and noop stubs for vector/graph/schema
// stores until a concrete backend is chosen — their consuming handlers
// complete with empty results.
func newStores(ctx context.Context, cfg config.Config, obs observability.Observability) (store.Stores, func(), error) {
	dsn := os.Getenv("PATTERN_STORE_DSN")
	if dsn == "" {
		return store.Stores{
			Vectors: store.NoopVectorStore{},
			Graph:   store.NoopGraphStore{},
			Schema:  store.NoopSchemaStore{},
		}, func() {}, nil
	}

	if err := store.RunMigrations(ctx, dsn, "", obs); err != nil {
		return store.Stores{}, nil, fmt.Errorf("pattern store migrations: %w", err)
	}

	poolCfg := pgxpool_manager.DefaultConfig(dsn, cfg.ServiceName)
	manager, err := pgxpool_manager.NewPgxPoolManager(ctx, poolCfg)
	if err != nil {
		return store.Stores{}, nil, fmt.Errorf("pgx pool: %w", err)
	}

	return store.Stores{
		Patterns: store.NewPostgresPatternStore(manager),
		Vectors:  store.NoopVectorStore{},
		Graph:    store.NoopGraphStore{},
		Schema:   store.NoopSchemaStore{},
	}, func() { _ = manager.Shutdown(context.Background()) }, nil
}

// resultTopicFor builds the {prefix}.{service}.results.{operation}.v1
// topic name per operation type, matching config.Topic's
// {prefix}.{service}.{domain}.{event}.{version} convention.
func resultTopicFor(cfg config.Config) func(envelope.OperationType) string {
	return func(op envelope.OperationType) string {
		return cfg.Topic("results", string(op), "v1")
	}
}
