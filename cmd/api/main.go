package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/berfenger/natureremo2mqtt/internal/adapter/actor"
	"github.com/berfenger/natureremo2mqtt/internal/adapter/metrics"
	"github.com/berfenger/natureremo2mqtt/internal/config"
	"github.com/berfenger/natureremo2mqtt/internal/core/actor"
	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/internal/server"
	"github.com/berfenger/natureremo2mqtt/internal/util/actorutil"
	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	slog.Info("Using", "config", cfg.Redacted())

	if err := run(cfg); err != nil {
		slog.Error("bridge stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	// shared by the actors and the metrics collector
	eventStream := &eventstream.EventStream{}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewMetricsCollector()
	registry.MustRegister(collector)
	defer eventStream.Unsubscribe(collector.Subscribe(eventStream))

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, eventStream, cloudActorProvider(cfg, logger), mqttActorProvider(cfg, logger), logger)
	})
	master, err := as.Root.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return err
	}

	httpServer := server.NewServer(*cfg, as.Root, master, registry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	case <-ctx.Done():
		logger.Info("shutting down gracefully, press Ctrl+C again to force")
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("http server forced to shutdown", zap.Error(serr))
		}
	}

	// stopping the master publishes the offline bridge state
	if perr := as.Root.StopFuture(master).Wait(); perr != nil {
		logger.Warn("master did not stop cleanly", zap.Error(perr))
	}
	return err
}

func cloudActorProvider(cfg *config.Config, logger *zap.Logger) actor.CloudActorProvider {
	timeout := time.Duration(cfg.NatureRemo.RequestTimeoutMillis) * time.Millisecond
	client := natureremo.NewClient(cfg.NatureRemo.BaseURL, cfg.NatureRemo.Token, timeout, logger)
	return func() *adactor.CloudActor {
		return adactor.NewCloudActor(client, timeout, logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func() *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, logger)
	}
}
