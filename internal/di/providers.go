package di

import (
	"context"
	"fmt"
	"time"

	"StockCast/internal/domain/repository"
	domsvc "StockCast/internal/domain/service"
	"StockCast/internal/handler/api"
	mid "StockCast/internal/middleware"
	"StockCast/internal/registry"
	internalrepo "StockCast/internal/repository"
	icache "StockCast/internal/service/cache"
	"StockCast/internal/service/marketfeed"
	"StockCast/internal/usecase"
	pkgch "StockCast/pkg/clickhouse"
	"StockCast/pkg/config"
	pkgkafka "StockCast/pkg/kafka"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/metrics"
	"StockCast/pkg/server"
)

// ProvideLogger creates the application logger from config. When an error
// topic is configured, aggregated error logs are shipped through Kafka.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Logging.ErrorTopic != "" && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Logging.ErrorTopic,
			Publisher:      logPublisher{producer},
		})
	}
	return l, nil
}

// logPublisher adapts the Kafka producer to the log collector sink.
type logPublisher struct {
	p *pkgkafka.Producer
}

func (lp logPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return lp.p.Publish(ctx, topic, nil, payload)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client.
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

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
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

// ProvidePriceStore creates the ClickHouse tick store and ensures its table.
func ProvidePriceStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) (repository.PriceStore, error) {
	store := internalrepo.NewCHPriceStore(chClient, cfg.ClickHouse.Table)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("price store init: %w", err)
	}
	return store, nil
}

// ProvidePriceProvider adapts the tick store into a price window source.
func ProvidePriceProvider(store repository.PriceStore) domsvc.PriceProvider {
	return domsvc.PriceProviderFunc(store.LatestPrices)
}

// ProvideResultCache selects Redis or in-process TTL cache for prediction results.
func ProvideResultCache(cfg *config.Config) icache.BytesCache {
	if cfg.Predict.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Predict.Redis.Addr,
			Password: cfg.Predict.Redis.Password,
			DB:       cfg.Predict.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideRegistryLoader creates the artifact loader over the model directories.
func ProvideRegistryLoader(cfg *config.Config, l *applogger.Logger) *registry.Loader {
	return registry.NewLoader(cfg.Models.SpecificDir, cfg.Models.GeneralDir, l)
}

// ProvideRegistry creates the model registry and reports initial coverage.
func ProvideRegistry(loader *registry.Loader, cfg *config.Config, l *applogger.Logger, rec *metrics.Recorder) *registry.Registry {
	reg := registry.New(cfg.Models.CacheSize, loader, l, rec)
	avail := reg.Available()
	rec.RecordCoverage(len(avail.Specific), len(avail.General))
	return reg
}

// ProvideTickPublisher creates the Kafka tick publisher repository.
func ProvideTickPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.TickPublisher {
	return internalrepo.NewKafkaTickPublisher(producer, cfg.Kafka.Topic)
}

// ProvidePredictionPublisher creates the prediction publisher, or nil when no
// publish topic is configured.
func ProvidePredictionPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.PredictionPublisher {
	if cfg.Predict.PublishTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaPredictionPublisher(producer, cfg.Predict.PublishTopic)
}

// ProvidePredictor creates the prediction use case.
func ProvidePredictor(
	reg *registry.Registry,
	prices domsvc.PriceProvider,
	results icache.BytesCache,
	pub repository.PredictionPublisher,
	rec *metrics.Recorder,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.Predictor {
	return usecase.NewPredictor(reg, prices, results, cfg.Predict.ResultCacheTTL, pub, rec, l)
}

// ProvideMarketStream creates the market data WebSocket stream.
func ProvideMarketStream(cfg *config.Config) repository.MarketStream {
	return marketfeed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.Symbols,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
}

// ProvideTickProcessor creates the tick routing use case.
func ProvideTickProcessor(
	pub repository.TickPublisher,
	store repository.PriceStore,
	rec *metrics.Recorder,
	cfg *config.Config,
) *usecase.TickProcessor {
	return usecase.NewTickProcessor(pub, store, rec, cfg.Backend.Type)
}

// ProvideTickCollector creates the tick collector use case.
func ProvideTickCollector(
	stream repository.MarketStream,
	processor *usecase.TickProcessor,
	rec *metrics.Recorder,
) *usecase.TickCollector {
	// Build middleware pipeline between WebSocket and the backend
	pipe := mid.NewRealtimePipeline(processor, rec,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewTickCollector(stream, processor, rec, pipe)
}

// ProvideKafkaTicksHandler registers handler for the ticks topic.
func ProvideKafkaTicksHandler(store repository.PriceStore, rec *metrics.Recorder, cfg *config.Config) *usecase.KafkaTicksHandler {
	return usecase.NewKafkaTicksHandler(cfg.Kafka.Topic, store, rec)
}

// ProvidePredictionsHandler creates the HTTP prediction handler.
func ProvidePredictionsHandler(l *applogger.Logger, predictor *usecase.Predictor, reg *registry.Registry, store repository.PriceStore) *api.PredictionsHandler {
	return api.NewPredictionsHandler(l, predictor, reg, store)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.TickCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTicksHandler,
	chClient *pkgch.Client,
	handler *api.PredictionsHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, l, collector, consumer, kh, chClient)
	if collector != nil {
		app.TickProc = collector.Processor()
	}
	app.SetHTTPHandler(handler)
	return app
}
