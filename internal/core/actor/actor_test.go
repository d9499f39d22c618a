package actor

import (
	"context"
	"sync"
	"testing"
	"time"

	adactor "github.com/berfenger/natureremo2mqtt/internal/adapter/actor"
	"github.com/berfenger/natureremo2mqtt/internal/config"
	"github.com/berfenger/natureremo2mqtt/internal/util"
	"github.com/berfenger/natureremo2mqtt/internal/util/actorutil"
	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []any
}

func recordEvents(es *eventstream.EventStream) *eventRecorder {
	r := &eventRecorder{}
	es.Subscribe(func(evt any) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, evt)
	})
	return r
}

func eventsOf[T any](r *eventRecorder) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []T
	for _, evt := range r.events {
		if e, ok := evt.(T); ok {
			found = append(found, e)
		}
	}
	return found
}

type testEnv struct {
	system      *actor.ActorSystem
	config      config.Config
	logger      *zap.Logger
	client      *natureremo.TestClient
	eventStream *eventstream.EventStream
	events      *eventRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	es := &eventstream.EventStream{}
	env := &testEnv{
		system:      actorutil.NewActorSystemWithZapLogger(logger),
		config:      cfg,
		logger:      logger,
		client:      natureremo.NewTestClient(),
		eventStream: es,
		events:      recordEvents(es),
	}
	t.Cleanup(env.system.Shutdown)
	return env
}

// spawnCoordinator starts a cloud actor backed by the test client and a
// coordinator on top of it.
func (env *testEnv) spawnCoordinator(t *testing.T) *actor.PID {
	cloud := env.system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewCloudActor(env.client, 2*time.Second, env.logger)
	}))
	coordinator := env.system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewCoordinatorActor(&env.config, cloud, env.eventStream, env.logger)
	}))
	require.NotNil(t, coordinator)
	return coordinator
}

func (env *testEnv) appliance(t *testing.T, id string) natureremo.Appliance {
	appliances, err := env.client.GetAppliances(context.Background())
	require.NoError(t, err)
	for _, a := range appliances {
		if a.Id == id {
			return a
		}
	}
	t.Fatalf("appliance %s not found", id)
	return natureremo.Appliance{}
}
