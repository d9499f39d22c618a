package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/natureremo2mqtt/internal/config"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	healthCheckTimeout = 10 * time.Second
)

// Server exposes the bridge health and metrics over HTTP.
type Server struct {
	port          uint
	httpLog       bool
	rootContext   *actor.RootContext
	masterActor   *actor.PID
	registry      *prometheus.Registry
	healthTimeout time.Duration
}

// NewServer builds the HTTP server. A nil registry disables /metrics.
func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, registry *prometheus.Registry) *http.Server {
	s := &Server{
		port:          cfg.Port,
		rootContext:   rootContext,
		masterActor:   masterActor,
		httpLog:       cfg.HttpLog,
		registry:      registry,
		healthTimeout: healthCheckTimeout,
	}

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.RegisterRoutes(),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}
