// exosphere-scheduler — сервис планирования jobs с выбором ведущего
// экземпляра.
//
// Все экземпляры замеряют задержку до хранилища реестра и выбирают
// primary с наименьшим score. Только primary проверяет готовность
// jobs и публикует их в RabbitMQ.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/exosphere/internal/api"
	"github.com/shaiso/exosphere/internal/config"
	"github.com/shaiso/exosphere/internal/election"
	"github.com/shaiso/exosphere/internal/mq"
	"github.com/shaiso/exosphere/internal/probe"
	"github.com/shaiso/exosphere/internal/readiness"
	"github.com/shaiso/exosphere/internal/registry"
	"github.com/shaiso/exosphere/internal/scheduler"
	"github.com/shaiso/exosphere/internal/storage"
	"github.com/shaiso/exosphere/internal/telemetry"
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting exosphere-scheduler")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Хранилище реестра
	st, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open registry store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer st.Close()
	logger.Info("registry store opened", "backend", cfg.StoreBackend, "probe_addr", st.Addr)

	reg := registry.NewClient(registry.Config{
		Store:   st.Store,
		Timeout: cfg.RegistryTimeout,
		Logger:  logger,
	})

	// RabbitMQ
	conn, err := mq.NewConnection(ctx, cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := mq.SetupTopology(ctx, conn); err != nil {
		logger.Error("failed to declare rabbitmq topology", "error", err)
		os.Exit(1)
	}
	conn.OnReconnect(func(ch *amqp.Channel) error {
		return mq.DeclareTopology(ch)
	})
	logger.Info("rabbitmq topology declared", "topology", mq.TopologyInfo())

	// Выборы
	hostname, err := os.Hostname()
	if err != nil {
		logger.Error("failed to resolve hostname", "error", err)
		os.Exit(1)
	}

	prober := probe.New(probe.Config{
		Pinger:  newPinger(cfg.ProbeMode, cfg.ProbeTimeout),
		Addr:    st.Addr,
		Timeout: cfg.ProbeTimeout,
		Logger:  logger,
	})

	coordinator := election.New(election.Config{
		Registry:     reg,
		Scorer:       prober,
		Hostname:     hostname,
		PollInterval: cfg.ElectionPollInterval,
		Logger:       logger,
	})

	// Цикл планирования
	evaluator := readiness.New(readiness.Config{
		Catalog:   reg,
		Existence: st.Existence,
		Logger:    logger,
	})

	loop := scheduler.New(scheduler.Config{
		Leadership:    coordinator,
		Jobs:          reg,
		Evaluator:     evaluator,
		Publisher:     mq.NewPublisher(conn, logger),
		SweepInterval: cfg.SweepInterval,
		Logger:        logger,
	})

	// HTTP: /healthz, /status, /metrics
	mux := http.NewServeMux()
	api.NewHandler(api.Config{
		Election: coordinator,
		Sweeps:   loop,
		Registry: reg,
		Logger:   logger,
	}).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	if err := coordinator.Run(ctx, loop); err != nil {
		logger.Error("leader election stopped", "error", err)
	}
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

func newPinger(mode config.ProbeMode, timeout time.Duration) probe.Pinger {
	if mode == config.ProbeHTTP {
		return &probe.HTTPPinger{Client: &http.Client{Timeout: timeout}}
	}
	return &probe.TCPPinger{}
}
