package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventpro/internal/api"
	"github.com/vladislavdragonenkov/inventpro/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/inventpro/internal/health"
	"github.com/vladislavdragonenkov/inventpro/internal/messaging/kafka"
	idemsvc "github.com/vladislavdragonenkov/inventpro/internal/service/idempotency"
	ordersvc "github.com/vladislavdragonenkov/inventpro/internal/service/order"
	outboxsvc "github.com/vladislavdragonenkov/inventpro/internal/service/outbox"
	"github.com/vladislavdragonenkov/inventpro/internal/storage/memory"
	"github.com/vladislavdragonenkov/inventpro/internal/storage/postgres"
	"github.com/vladislavdragonenkov/inventpro/internal/version"
)

const kafkaClientID = "inventpro-server"

// Run собирает зависимости и держит приложение до отмены ctx:
// хранилище (PostgreSQL либо in-memory), Kafka producer с outbox worker'ом,
// воркер очистки idempotency-ключей, HTTP API и сервер метрик.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	store, pgStore, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pgStore != nil {
		defer func() {
			if err := pgStore.Close(); err != nil {
				logger.WithError(err).Warn("failed to close postgres store")
			}
		}()
	}

	svc := ordersvc.NewService(store, logger.WithField("layer", "order-service"))

	kafkaProducer, outboxWorker := initKafka(cfg, store, logger)
	if kafkaProducer != nil {
		defer func() {
			if err := kafkaProducer.Close(); err != nil {
				logger.WithError(err).Warn("failed to close kafka producer")
			}
		}()
	}
	if outboxWorker != nil {
		go outboxWorker.Run(ctx)
	}

	cleanupWorker := idemsvc.NewCleanupWorker(
		store.Idempotency(),
		idemsvc.WithInterval(cfg.IdempotencyCleanupInterval),
		idemsvc.WithLogger(logger.WithField("component", "idempotency-cleanup-worker")),
	)
	go cleanupWorker.Run(ctx)

	healthHandler := healthcheck.NewHandler(version.String())
	if pgStore != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewPingChecker("postgres", 2*time.Second, pgStore.Ping))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewRouter(svc, store.Idempotency(), logger.WithField("component", "api")),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, cfg.ShutdownTimeout, logger)
		shutdownHTTP(metricsSrv, cfg.ShutdownTimeout, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, cfg.ShutdownTimeout, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// initStorage выбирает backend хранилища: PostgreSQL при заданном DSN,
// иначе in-memory (для разработки и тестов).
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (domain.Store, *postgres.Store, error) {
	if cfg.PostgresDSN == "" {
		logger.Info("postgres DSN не задан, используем in-memory хранилище")
		return memory.NewStore(), nil, nil
	}

	pgStore, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := pgStore.EnsureSchema(ctx); err != nil {
		_ = pgStore.Close()
		return nil, nil, err
	}

	logger.Info("postgres хранилище инициализировано")
	return pgStore, pgStore, nil
}

// initKafka создаёт producer и outbox worker, если брокеры настроены.
// Без Kafka приложение работает, но события outbox остаются pending.
func initKafka(cfg Config, store domain.Store, logger *log.Entry) (*kafka.Producer, *outboxsvc.Worker) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("kafka брокеры не заданы, публикация событий выключена")
		return nil, nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafkaClientID)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, nil
	}
	logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")

	publisher := kafka.NewOutboxPublisher(producer, cfg.KafkaTopic)
	dlqPublisher := kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)

	worker := outboxsvc.NewWorker(
		store.Outbox(),
		publisher,
		outboxsvc.WithDLQPublisher(dlqPublisher),
		outboxsvc.WithPollInterval(cfg.OutboxPollInterval),
		outboxsvc.WithBatchSize(cfg.OutboxBatchSize),
		outboxsvc.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outboxsvc.WithLogger(logger.WithField("component", "outbox-worker")),
	)
	return producer, worker
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, 5*time.Second, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
