package actor

import (
	"context"
	"testing"
	"time"

	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cloudSnapshot(t *testing.T, client *natureremo.TestClient) *domain.CloudData {
	devices, err := client.GetDevices(context.Background())
	require.NoError(t, err)
	appliances, err := client.GetAppliances(context.Background())
	require.NoError(t, err)
	return domain.NewCloudData(devices, appliances, time.Now())
}

func lastBinaryState(env *testEnv, id string) *domain.BinarySensorUpdateEvent {
	states := eventsOf[domain.BinarySensorUpdateEvent](env.events)
	for i := len(states) - 1; i >= 0; i-- {
		if states[i].Id == id {
			return &states[i]
		}
	}
	return nil
}

func TestSensorActorPublishesReadings(t *testing.T) {
	env := newTestEnv(t)
	pid := env.system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewSensorActor(natureremo.TEST_DEVICE_ID, env.eventStream, env.logger)
	}))

	env.system.Root.Send(pid, domain.CoordinatorUpdateEvent{
		Success: true,
		Data:    cloudSnapshot(t, env.client),
	})

	assert.Eventually(t, func() bool {
		return len(eventsOf[domain.FloatSensorUpdateEvent](env.events)) == 3
	}, 2*time.Second, 20*time.Millisecond)

	values := map[string]float64{}
	for _, ev := range eventsOf[domain.FloatSensorUpdateEvent](env.events) {
		values[ev.Id] = ev.Value
	}
	assert.Equal(t, map[string]float64{
		natureremo.TEST_DEVICE_ID + "-te": 24.5,
		natureremo.TEST_DEVICE_ID + "-hu": 48,
		natureremo.TEST_DEVICE_ID + "-il": 120,
	}, values)

	motion := lastBinaryState(env, natureremo.TEST_DEVICE_ID+"-mo")
	require.NotNil(t, motion)
	assert.True(t, motion.Value)
}

func TestSensorActorIgnoresFailedRefresh(t *testing.T) {
	env := newTestEnv(t)
	pid := env.system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewSensorActor(natureremo.TEST_DEVICE_ID, env.eventStream, env.logger)
	}))

	env.system.Root.Send(pid, domain.CoordinatorUpdateEvent{Success: false})

	res, err := env.system.Root.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	assert.True(t, res.(domain.ActorHealthResponse).Healthy)
	assert.Empty(t, eventsOf[domain.FloatSensorUpdateEvent](env.events))
}

func TestSensorActorMotionExpires(t *testing.T) {
	env := newTestEnv(t)
	env.client.SetSensorValue(natureremo.TEST_DEVICE_ID, natureremo.SENSOR_KIND_MOTION, natureremo.SensorValue{
		Val:       1,
		CreatedAt: time.Now().Add(-59 * time.Second),
	})
	pid := env.system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewSensorActor(natureremo.TEST_DEVICE_ID, env.eventStream, env.logger)
	}))

	env.system.Root.Send(pid, domain.CoordinatorUpdateEvent{
		Success: true,
		Data:    cloudSnapshot(t, env.client),
	})

	assert.Eventually(t, func() bool {
		motion := lastBinaryState(env, natureremo.TEST_DEVICE_ID+"-mo")
		return motion != nil && motion.Value
	}, time.Second, 10*time.Millisecond)

	// OFF is published when the window closes, without a new poll
	assert.Eventually(t, func() bool {
		motion := lastBinaryState(env, natureremo.TEST_DEVICE_ID+"-mo")
		return motion != nil && !motion.Value
	}, 5*time.Second, 50*time.Millisecond)
}
