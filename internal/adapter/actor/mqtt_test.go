package actor

import (
	"testing"
	"time"

	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/internal/util"
	"github.com/berfenger/natureremo2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, logger) })
	pid := context.Spawn(props)

	time.Sleep(500 * time.Millisecond)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.Equal(t, domain.ACTOR_ID_MQTT, resp.Id)

	target := 24.5
	context.Send(pid, domain.PublishSensorUpdateRequest{
		Event: domain.FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: "dev-te"},
			Value:                  24.46,
		},
	})
	context.Send(pid, domain.PublishSensorUpdateRequest{
		Event: domain.ClimateUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: "ac1"},
			Mode:                   "cool",
			TargetTemperature:      &target,
			FanMode:                "auto",
			Attributes: map[string]any{
				domain.ATTRIBUTE_PREVIOUS_TARGET_TEMP: map[string]float64{"cool": 24.5},
			},
		},
	})

	result, err = context.RequestFuture(pid, PublishedMessagesRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	published := result.(PublishedMessagesResponse).Messages

	require.Len(t, published, 7)
	assert.Equal(t, PublishedMessage{Topic: "natureremo/sensor/dev-te/state", Payload: "24.46"}, published[0])
	assert.Equal(t, PublishedMessage{Topic: "natureremo/climate/ac1/mode/state", Payload: "cool", Retain: true}, published[1])
	assert.Equal(t, "24.5", published[2].Payload)
	assert.Equal(t, "None", published[3].Payload, "no current temperature")
	assert.Equal(t, "auto", published[4].Payload)
	assert.Equal(t, "None", published[5].Payload, "no swing mode")
	assert.Equal(t, "natureremo/climate/ac1/attributes", published[6].Topic)
	assert.JSONEq(t, `{"previous_target_temperature":{"cool":24.5}}`, published[6].Payload)

	context.Stop(pid)

	time.Sleep(500 * time.Millisecond)

	as.Shutdown()
}

func TestMQTTActorDiscoveryReply(t *testing.T) {
	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, logger) }))

	sensors := domain.BridgeSensors(domain.BridgeDevice(cfg.MQTT.BaseTopic))
	result, err := as.Root.RequestFuture(pid, domain.PublishDiscoveryRequest{Sensors: sensors}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.False(t, result.(domain.PublishDiscoveryResponse).HasResponseError())

	result, err = as.Root.RequestFuture(pid, PublishedMessagesRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.Len(t, result.(PublishedMessagesResponse).Sensors, len(sensors))
}

func TestWithRetain(t *testing.T) {
	messages := []PublishedMessage{{Topic: "a"}, {Topic: "b", Retain: true}}
	assert.Equal(t, messages, withRetain(messages, false))
	for _, m := range withRetain(messages, true) {
		assert.True(t, m.Retain, m.Topic)
	}
}
