package di

import (
	"context"
	"fmt"
	"time"

	"CoinCast/internal/domain/repository"
	"CoinCast/internal/handler/api"
	internalrepo "CoinCast/internal/repository"
	"CoinCast/internal/scheduler"
	"CoinCast/internal/service/coingecko"
	"CoinCast/internal/services/model"
	"CoinCast/internal/usecase"
	pkgch "CoinCast/pkg/clickhouse"
	"CoinCast/pkg/config"
	xhttp "CoinCast/pkg/http"
	applogger "CoinCast/pkg/logger"
	"CoinCast/pkg/metrics"
	"CoinCast/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
		internalrepo.HistorySchema(cfg.ClickHouse.Database + ".price_history"),
		internalrepo.PredictionSchema(cfg.ClickHouse.Database + ".predictions"),
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideMetrics creates the Prometheus recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideHistoryStore creates the ClickHouse price history store.
func ProvideHistoryStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.HistoryStore {
	store := internalrepo.NewCHHistoryStore(chClient, cfg.ClickHouse.Database+".price_history")
	store.SetLogger(l)
	return store
}

// ProvidePredictionLog creates the ClickHouse prediction log.
func ProvidePredictionLog(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.PredictionLog {
	log := internalrepo.NewCHPredictionLog(chClient, cfg.ClickHouse.Database+".predictions")
	log.SetLogger(l)
	return log
}

// ProvidePriceSource creates the CoinGecko client.
func ProvidePriceSource(cfg *config.Config) repository.PriceSource {
	return coingecko.New(cfg.Source.BaseURL, cfg.Source.Asset, cfg.Source.VsCurrency, cfg.Source.Timeout)
}

// ProvideArtifactStore creates the on-disk model artifact store.
func ProvideArtifactStore(cfg *config.Config) repository.ArtifactStore {
	return internalrepo.NewFileArtifactStore(cfg.Model.Dir)
}

// ProvideEventPublisher creates the configured event sink.
func ProvideEventPublisher(cfg *config.Config) repository.EventPublisher {
	switch cfg.Events.Sink {
	case "kafka":
		return internalrepo.NewKafkaEventPublisher(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic)
	case "redis":
		return internalrepo.NewRedisEventPublisher(cfg.Events.Redis.Addr, cfg.Events.Redis.Password, cfg.Events.Redis.DB, cfg.Events.Redis.Channel)
	default:
		return internalrepo.NewNoopEventPublisher()
	}
}

// ProvideLifecycle creates the model lifecycle service.
func ProvideLifecycle(
	store repository.HistoryStore,
	artifacts repository.ArtifactStore,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *model.Lifecycle {
	return model.NewLifecycle(store, artifacts, m, l, cfg.Model.HorizonDays, cfg.Model.Alpha)
}

// ProvideIngestionPipeline creates the ingestion use case.
func ProvideIngestionPipeline(
	source repository.PriceSource,
	store repository.HistoryStore,
	preds repository.PredictionLog,
	lifecycle *model.Lifecycle,
	events repository.EventPublisher,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.IngestionPipeline {
	return usecase.NewIngestionPipeline(source, store, preds, lifecycle, events, m, l,
		cfg.Source.BootstrapDays, cfg.Model.LookbackDays)
}

// ProvideForecastService creates the forecast use case.
func ProvideForecastService(
	store repository.HistoryStore,
	preds repository.PredictionLog,
	lifecycle *model.Lifecycle,
	events repository.EventPublisher,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.ForecastService {
	return usecase.NewForecastService(store, preds, lifecycle, events, m, l, cfg.Model.LookbackDays)
}

// ProvideHTTPHandler creates the Echo route handler.
func ProvideHTTPHandler(l *applogger.Logger, pipeline *usecase.IngestionPipeline, forecast *usecase.ForecastService) xhttp.Handler {
	return api.NewForecastEchoHandler(l, pipeline, forecast)
}

// ProvideScheduler creates the daily ingestion scheduler.
func ProvideScheduler(pipeline *usecase.IngestionPipeline, l *applogger.Logger, cfg *config.Config) *scheduler.Scheduler {
	return scheduler.New(context.Background(), pipeline, l, cfg.Scheduler.Cron)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	sched *scheduler.Scheduler,
	chClient *pkgch.Client,
	publisher repository.EventPublisher,
) *server.App {
	return server.New(cfg, l, handler, sched, chClient, publisher)
}
