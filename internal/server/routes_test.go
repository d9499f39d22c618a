package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthActor(healthy bool) actor.ReceiveFunc {
	return func(ctx actor.Context) {
		if _, ok := ctx.Message().(domain.ActorHealthRequest); ok {
			ctx.Respond(domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MASTER,
				Healthy: healthy,
				Components: map[string]bool{
					domain.ACTOR_ID_CLOUD: true,
					domain.ACTOR_ID_MQTT:  healthy,
				},
			})
		}
	}
}

func TestHealthCheck(t *testing.T) {
	as := actor.NewActorSystem()
	defer as.Shutdown()
	cfg := util.LoadTestConfig()

	for _, tc := range []struct {
		healthy bool
		status  int
		body    string
	}{
		{true, http.StatusOK, "health_check: OK"},
		{false, http.StatusServiceUnavailable, "health_check: FAIL"},
	} {
		pid := as.Root.Spawn(actor.PropsFromFunc(healthActor(tc.healthy)))
		srv := NewServer(cfg, as.Root, pid, nil)

		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
		assert.Equal(t, tc.status, rec.Code)
		assert.Equal(t, tc.body, rec.Body.String())
	}
}

func TestStatus(t *testing.T) {
	as := actor.NewActorSystem()
	defer as.Shutdown()

	pid := as.Root.Spawn(actor.PropsFromFunc(healthActor(false)))
	srv := NewServer(util.LoadTestConfig(), as.Root, pid, nil)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Healthy)
	assert.Equal(t, map[string]bool{"cloud": true, "mqtt": false}, status.Components)
}

func TestMetricsEndpoint(t *testing.T) {
	as := actor.NewActorSystem()
	defer as.Shutdown()

	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "natureremo_test_total", Help: "test"})
	registry.MustRegister(counter)
	counter.Inc()

	pid := as.Root.Spawn(actor.PropsFromFunc(healthActor(true)))
	srv := NewServer(util.LoadTestConfig(), as.Root, pid, registry)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "natureremo_test_total 1")

	// without a registry the endpoint is not exposed
	srv = NewServer(util.LoadTestConfig(), as.Root, pid, nil)
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
