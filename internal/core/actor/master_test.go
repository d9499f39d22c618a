package actor

import (
	"fmt"
	"strings"
	"testing"
	"time"

	adactor "github.com/berfenger/natureremo2mqtt/internal/adapter/actor"
	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/internal/mqtt"
	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawnMaster(t *testing.T, env *testEnv) *actor.PID {
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(env.config, env.eventStream, func() *adactor.CloudActor {
			return adactor.NewCloudActor(env.client, 2*time.Second, env.logger)
		}, func() *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&env.config, env.logger)
		}, env.logger)
	})
	pid, err := env.system.Root.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	require.NoError(t, err)
	return pid
}

func published(t *testing.T, env *testEnv) adactor.PublishedMessagesResponse {
	mqttPID := env.system.NewLocalPID(fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_MQTT))
	res, err := env.system.Root.RequestFuture(mqttPID, adactor.PublishedMessagesRequest{}, time.Second).Result()
	require.NoError(t, err)
	return res.(adactor.PublishedMessagesResponse)
}

func lastPayload(messages []adactor.PublishedMessage, topic string) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Topic == topic {
			return messages[i].Payload, true
		}
	}
	return "", false
}

func TestMasterActor(t *testing.T) {
	env := newTestEnv(t)
	env.config.MQTT.HADiscoveryEnable = true
	pid := spawnMaster(t, env)

	assert.Eventually(t, func() bool {
		return len(eventsOf[domain.BridgeStateUpdateEvent](env.events)) > 0
	}, 5*time.Second, 50*time.Millisecond)

	res, err := env.system.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	healthResp, ok := res.(domain.ActorHealthResponse)
	require.True(t, ok)
	assert.True(t, healthResp.Healthy, "healthy is true")

	climateMode := fmt.Sprintf("natureremo/climate/%s/mode/state", natureremo.TEST_APPLIANCE_AC_ID)
	temperature := fmt.Sprintf("natureremo/sensor/%s-te/state", natureremo.TEST_DEVICE_ID)
	assert.Eventually(t, func() bool {
		messages := published(t, env).Messages
		_, hasClimate := lastPayload(messages, climateMode)
		_, hasSensor := lastPayload(messages, temperature)
		_, hasBridge := lastPayload(messages, "natureremo/bridge/state")
		return hasClimate && hasSensor && hasBridge
	}, 5*time.Second, 50*time.Millisecond)

	resp := published(t, env)
	payload, _ := lastPayload(resp.Messages, climateMode)
	assert.Equal(t, "cool", payload)
	payload, _ = lastPayload(resp.Messages, temperature)
	assert.Equal(t, "24.5", payload)
	payload, _ = lastPayload(resp.Messages, "natureremo/cloud/state")
	assert.Equal(t, mqtt.MQTT_PAYLOAD_ONLINE, payload)
	payload, _ = lastPayload(resp.Messages, fmt.Sprintf("natureremo/binary_sensor/%s-mo/state", natureremo.TEST_DEVICE_ID))
	assert.Equal(t, mqtt.MQTT_PAYLOAD_ON, payload)

	// every state survives a Home Assistant restart
	for _, msg := range resp.Messages {
		assert.True(t, msg.Retain, msg.Topic)
	}

	// 2 bridge sensors, 4 on the Remo and 1 on the mini
	assert.Len(t, resp.Sensors, 7)
	require.Len(t, resp.Climates, 2)
	assert.Equal(t, natureremo.TEST_APPLIANCE_AC_ID, resp.Climates[0].Id)
	assert.Equal(t, "Living Room - Daikin AC 001", resp.Climates[0].Name)

	env.system.Root.Stop(pid)
}

func TestMasterActorRoutesCommands(t *testing.T) {
	env := newTestEnv(t)
	pid := spawnMaster(t, env)

	assert.Eventually(t, func() bool {
		return len(eventsOf[domain.BridgeStateUpdateEvent](env.events)) > 0
	}, 5*time.Second, 50*time.Millisecond)

	env.system.Root.Send(pid, adactor.ParsedCommand{Command: &mqtt.ParsedMQTTCommand{
		DeviceId: natureremo.TEST_APPLIANCE_AC2_ID,
		Command:  mqtt.COMMAND_CLIMATE,
		Param:    mqtt.CLIMATE_ATTR_TEMPERATURE,
		Payload:  "18",
	}})
	// unknown climates are dropped
	env.system.Root.Send(pid, adactor.ParsedCommand{Command: &mqtt.ParsedMQTTCommand{
		DeviceId: "unknown",
		Command:  mqtt.COMMAND_CLIMATE,
		Param:    mqtt.CLIMATE_ATTR_MODE,
		Payload:  "cool",
	}})

	topic := fmt.Sprintf("natureremo/climate/%s/temperature/state", natureremo.TEST_APPLIANCE_AC2_ID)
	assert.Eventually(t, func() bool {
		payload, ok := lastPayload(published(t, env).Messages, topic)
		return ok && payload == "18"
	}, 5*time.Second, 50*time.Millisecond)

	updates := env.client.SentUpdates()
	require.Len(t, updates, 1)
	assert.Equal(t, "18", *updates[0].Temperature)

	for _, msg := range published(t, env).Messages {
		assert.False(t, strings.Contains(msg.Topic, "unknown"))
	}
	assert.Empty(t, published(t, env).Climates, "discovery disabled")

	env.system.Root.Stop(pid)
}

func TestMasterActorWaitsForConfiguredDevice(t *testing.T) {
	env := newTestEnv(t)
	env.config.NatureRemo.DeviceIds = []string{"missing-device"}
	pid := spawnMaster(t, env)

	_, err := env.system.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	assert.Error(t, err, "health requests wait until the entities exist")
	assert.Empty(t, eventsOf[domain.BridgeStateUpdateEvent](env.events))

	env.system.Root.Stop(pid)
}
