package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/xela07ax/clickpulse/internal/audit"
	"github.com/xela07ax/clickpulse/internal/connectors"
	"github.com/xela07ax/clickpulse/internal/console/handler"
	"github.com/xela07ax/clickpulse/internal/console/server"
	"github.com/xela07ax/clickpulse/internal/console/service"
	"github.com/xela07ax/clickpulse/internal/console/stream"
	"github.com/xela07ax/clickpulse/internal/domain"
	"github.com/xela07ax/clickpulse/internal/engine"
	"github.com/xela07ax/clickpulse/internal/infra"
	"github.com/xela07ax/clickpulse/internal/realtime"
	"github.com/xela07ax/clickpulse/internal/repository/postgres"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config file (default: ./config.yaml or ./configs/config.yaml)")
	pflag.Parse()

	cfg, err := infra.LoadConfig(*configPath)
	if err != nil {
		// Логгера ещё нет, пишем как есть
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("clickpulse stopped with error", zap.Error(err))
	}
}

func run(cfg *infra.Config, logger *zap.Logger) error {
	// Контекст для управления жизненным циклом фоновых горутин.
	// SIGINT/SIGTERM отменяет его и запускает остановку
	appCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	unitConfigs, err := cfg.UnitConfigs()
	if err != nil {
		return err
	}

	// 1. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(reg)

	// 2. Транспорт + Reliability (лимитер, предохранитель, ретраи)
	base, closeTransport, err := newTransport(cfg.API, logger)
	if err != nil {
		return err
	}
	defer closeTransport()

	transport := engine.NewReliabilityWrapper(base, engine.ReliabilitySettings{
		CBMaxRequests:  cfg.Reliability.CBMaxRequests,
		CBInterval:     cfg.Reliability.CBInterval,
		CBTimeout:      cfg.Reliability.CBTimeout,
		CBFailures:     cfg.Reliability.CBFailures,
		RetryAttempts:  cfg.Reliability.RetryAttempts,
		RetryDelay:     cfg.Reliability.RetryDelay,
		AttemptTimeout: cfg.Reliability.AttemptTimeout,
		RateLimit:      cfg.Reliability.RateLimit,
		RateBurst:      cfg.Reliability.RateBurst,
	}, metrics, logger)

	opts := []realtime.Option{realtime.WithMetrics(metrics)}

	// 3. История загрузок в Postgres (опционально)
	var historyRepo service.HistoryProvider
	if cfg.Database.URL != "" {
		repo, err := postgres.NewLoadRepo(cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return err
		}
		defer func() { _ = repo.Close() }()

		// Проверяем соединение с таймаутом
		pingCtx, cancel := context.WithTimeout(appCtx, 5*time.Second)
		err = repo.Ping(pingCtx)
		if err == nil {
			err = repo.EnsureSchema(pingCtx)
		}
		cancel()
		if err != nil {
			return err
		}

		history := audit.NewHistory(repo, audit.HistoryOptions{
			BufferSize:    cfg.History.BufferSize,
			BatchSize:     cfg.History.BatchSize,
			FlushInterval: cfg.History.FlushInterval,
		}, logger)
		history.Start()
		// Stop после закрытия юнитов: последние попытки тоже должны попасть в базу
		defer history.Stop()
		go trackDropped(appCtx, history, metrics)

		opts = append(opts, realtime.WithRecorder(history))
		historyRepo = repo
	} else {
		logger.Warn("database.url is empty, load history is disabled")
	}

	// 4. Redis: публикация снимков и сигналы real-time (опционально)
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(appCtx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return err
		}

		publisher := engine.NewStatePublisher(rdb, cfg.Redis.SnapshotTTL, logger)
		publisher.Start()
		defer publisher.Stop()
		opts = append(opts, realtime.WithObserver(publisher.Observe))
	}

	// 5. WebSocket-стрим. initial читает хаб, который ещё не создан, поэтому через замыкание
	var hub *realtime.Hub
	streamHub := stream.NewHub(func() []domain.Snapshot { return hub.Snapshots() }, logger)
	opts = append(opts, realtime.WithObserver(streamHub.Observe))

	// 6. Core: юниты
	hub = realtime.BuildHub(transport, unitConfigs, logger, opts...)
	defer hub.CloseAll()
	logger.Info("analytics units started", zap.Int("units", len(hub.Kinds())), zap.String("transport", cfg.API.Transport))

	streamCtx, stopStream := context.WithCancel(context.Background())
	defer stopStream()
	go streamHub.Run(streamCtx)

	var announcer service.RealtimeAnnouncer
	if rdb != nil {
		sw := engine.NewRealtimeSwitch(rdb, hub, logger)
		if err := sw.Init(appCtx); err != nil {
			return err
		}
		go sw.StartListener(appCtx)
		announcer = sw
	}

	// 7. Console API
	console := server.NewConsoleServer(logger,
		handler.NewUnitsHandler(service.NewUnitService(hub, announcer, infra.Validator(), logger)),
		handler.NewHistoryHandler(service.NewHistoryService(historyRepo)),
		streamHub.ServeWS,
	)
	srv := &http.Server{
		Addr:        cfg.Server.Addr(),
		Handler:     console,
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout не ставим: он рвёт WebSocket. Ответы ограничены middleware.Timeout
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("console API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	// 8. Graceful Shutdown
	select {
	case <-appCtx.Done():
		logger.Info("clickpulse stopping...")
	case err := <-errCh:
		logger.Error("server failed", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("console shutdown failed", zap.Error(err))
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	// Порядок defer: стрим -> юниты -> publisher -> history -> соединения
	logger.Info("clickpulse exited properly")
	return nil
}

func newTransport(cfg infra.APIConfig, logger *zap.Logger) (connectors.Transport, func(), error) {
	switch cfg.Transport {
	case "grpc":
		conn, err := grpc.NewClient(cfg.GRPCAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, nil, err
		}
		return connectors.NewGRPCAdapter(conn, cfg.GRPCMethod), func() { _ = conn.Close() }, nil
	case "mock":
		return &connectors.MockAnalyticsConnector{MinLatency: 50 * time.Millisecond, MaxLatency: 400 * time.Millisecond}, func() {}, nil
	default:
		return connectors.NewHTTPClient(cfg.BaseURL, cfg.Token, cfg.Timeout, logger), func() {}, nil
	}
}

func trackDropped(ctx context.Context, h *audit.History, m *engine.Metrics) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.HistoryDropped.Set(float64(h.Dropped()))
		}
	}
}
