package actor

import (
	"errors"
	"testing"
	"time"

	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinatorFetchOnStart(t *testing.T) {
	env := newTestEnv(t)
	coordinator := env.spawnCoordinator(t)

	res, err := env.system.Root.RequestFuture(coordinator, domain.GetCloudDataRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.GetCloudDataResponse)
	require.True(t, ok)
	require.False(t, resp.HasResponseError())
	assert.Len(t, resp.Data.Devices, 2)
	assert.Len(t, resp.Data.Appliances, 3)

	getMe, devices, appliances := env.client.Calls()
	assert.Equal(t, 1, getMe)
	assert.Equal(t, 1, devices)
	assert.Equal(t, 1, appliances)

	updates := eventsOf[domain.CoordinatorUpdateEvent](env.events)
	require.Len(t, updates, 1)
	assert.True(t, updates[0].Success)
	assert.Same(t, resp.Data, updates[0].Data)

	cloudStates := eventsOf[domain.CloudStateUpdateEvent](env.events)
	require.NotEmpty(t, cloudStates)
	assert.True(t, cloudStates[len(cloudStates)-1].Value)
}

func TestCoordinatorRefreshFailureKeepsData(t *testing.T) {
	env := newTestEnv(t)
	coordinator := env.spawnCoordinator(t)

	res, err := env.system.Root.RequestFuture(coordinator, domain.GetCloudDataRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	first := res.(domain.GetCloudDataResponse).Data

	env.client.SetError(&natureremo.Error{Code: 500001, Message: "internal"})
	env.system.Root.Send(coordinator, domain.RefreshRequest{})

	assert.Eventually(t, func() bool {
		updates := eventsOf[domain.CoordinatorUpdateEvent](env.events)
		return len(updates) == 2 && !updates[1].Success
	}, 5*time.Second, 50*time.Millisecond)

	updates := eventsOf[domain.CoordinatorUpdateEvent](env.events)
	var apiErr *natureremo.Error
	assert.True(t, errors.As(updates[1].Error, &apiErr))
	cloudStates := eventsOf[domain.CloudStateUpdateEvent](env.events)
	assert.False(t, cloudStates[len(cloudStates)-1].Value)

	// cached snapshot survives the failed refresh
	res, err = env.system.Root.RequestFuture(coordinator, domain.GetCloudDataRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	assert.Same(t, first, res.(domain.GetCloudDataResponse).Data)
}

func TestCoordinatorPostApplianceSettings(t *testing.T) {
	env := newTestEnv(t)
	coordinator := env.spawnCoordinator(t)

	temp := "24"
	res, err := env.system.Root.RequestFuture(coordinator, domain.PostApplianceSettingsRequest{
		ApplianceId: natureremo.TEST_APPLIANCE_AC_ID,
		Update:      natureremo.AirconSettingsUpdate{Temperature: &temp},
	}, 5*time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.PostApplianceSettingsResponse)
	require.True(t, ok)
	require.False(t, resp.HasResponseError())
	assert.Equal(t, natureremo.TEST_APPLIANCE_AC_ID, resp.ApplianceId)
	assert.Equal(t, "24", resp.Settings.Temp)
	assert.Equal(t, natureremo.AIRCON_MODE_COOL, resp.Settings.Mode)

	require.Len(t, env.client.SentUpdates(), 1)

	// the write triggers an out of band refresh carrying the new settings
	assert.Eventually(t, func() bool {
		updates := eventsOf[domain.CoordinatorUpdateEvent](env.events)
		if len(updates) < 2 {
			return false
		}
		last := updates[len(updates)-1]
		appliance, ok := last.Data.Appliance(natureremo.TEST_APPLIANCE_AC_ID)
		return ok && appliance.Settings.Temp == "24"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestCoordinatorPostUnknownAppliance(t *testing.T) {
	env := newTestEnv(t)
	coordinator := env.spawnCoordinator(t)

	temp := "24"
	res, err := env.system.Root.RequestFuture(coordinator, domain.PostApplianceSettingsRequest{
		ApplianceId: "missing",
		Update:      natureremo.AirconSettingsUpdate{Temperature: &temp},
	}, 5*time.Second).Result()
	require.NoError(t, err)
	resp := res.(domain.PostApplianceSettingsResponse)
	require.True(t, resp.HasResponseError())
	assert.True(t, natureremo.IsNotFound(resp.GetResponseError()))
}

func TestCoordinatorHealth(t *testing.T) {
	env := newTestEnv(t)
	coordinator := env.spawnCoordinator(t)

	_, err := env.system.Root.RequestFuture(coordinator, domain.GetCloudDataRequest{}, 5*time.Second).Result()
	require.NoError(t, err)

	res, err := env.system.Root.RequestFuture(coordinator, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	health := res.(domain.ActorHealthResponse)
	assert.Equal(t, domain.ACTOR_ID_COORDINATOR, health.Id)
	assert.True(t, health.Healthy)
}

func coordinatorState(t *testing.T, env *testEnv, coordinator *actor.PID) string {
	res, err := env.system.Root.RequestFuture(coordinator, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	return res.(domain.ActorHealthResponse).State
}

func TestCoordinatorRestartsOnInvalidToken(t *testing.T) {
	env := newTestEnv(t)
	env.client.FailTimes(&natureremo.Error{Code: 401001, Message: "invalid token"}, 2)
	env.spawnCoordinator(t)

	// two failed validations restart the actor, the third one succeeds
	assert.Eventually(t, func() bool {
		updates := eventsOf[domain.CoordinatorUpdateEvent](env.events)
		return len(updates) == 1 && updates[0].Success
	}, 5*time.Second, 50*time.Millisecond)

	getMe, devices, _ := env.client.Calls()
	assert.Equal(t, 3, getMe)
	assert.Equal(t, 1, devices)

	cloudStates := eventsOf[domain.CloudStateUpdateEvent](env.events)
	require.Len(t, cloudStates, 3)
	assert.False(t, cloudStates[0].Value)
	assert.False(t, cloudStates[1].Value)
	assert.True(t, cloudStates[2].Value)
}

func TestCoordinatorMergesRefreshRequests(t *testing.T) {
	env := newTestEnv(t)
	coordinator := env.spawnCoordinator(t)

	_, err := env.system.Root.RequestFuture(coordinator, domain.GetCloudDataRequest{}, 5*time.Second).Result()
	require.NoError(t, err)

	release := env.client.Hold()
	defer release()
	for i := 0; i < 3; i++ {
		env.system.Root.Send(coordinator, domain.RefreshRequest{})
	}
	assert.Equal(t, "fetching", coordinatorState(t, env, coordinator))
	release()

	assert.Eventually(t, func() bool {
		return len(eventsOf[domain.CoordinatorUpdateEvent](env.events)) == 2
	}, 5*time.Second, 50*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	_, devices, appliances := env.client.Calls()
	assert.Equal(t, 2, devices)
	assert.Equal(t, 2, appliances)
	assert.Len(t, eventsOf[domain.CoordinatorUpdateEvent](env.events), 2)
}

func TestCoordinatorWriteDuringFetchQueuesOneRefresh(t *testing.T) {
	env := newTestEnv(t)
	coordinator := env.spawnCoordinator(t)

	_, err := env.system.Root.RequestFuture(coordinator, domain.GetCloudDataRequest{}, 5*time.Second).Result()
	require.NoError(t, err)

	release := env.client.Hold()
	defer release()
	temp := "22"
	future := env.system.Root.RequestFuture(coordinator, domain.PostApplianceSettingsRequest{
		ApplianceId: natureremo.TEST_APPLIANCE_AC_ID,
		Update:      natureremo.AirconSettingsUpdate{Temperature: &temp},
	}, 5*time.Second)
	// this fetch may read the appliance before the write lands
	env.system.Root.Send(coordinator, domain.RefreshRequest{})
	assert.Equal(t, "fetching", coordinatorState(t, env, coordinator))
	release()

	res, err := future.Result()
	require.NoError(t, err)
	require.False(t, res.(domain.PostApplianceSettingsResponse).HasResponseError())

	assert.Eventually(t, func() bool {
		_, devices, _ := env.client.Calls()
		return devices == 3
	}, 5*time.Second, 50*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	_, devices, _ := env.client.Calls()
	assert.Equal(t, 3, devices, "initial fetch, in flight fetch and one queued refresh")

	updates := eventsOf[domain.CoordinatorUpdateEvent](env.events)
	require.Len(t, updates, 3)
	appliance, ok := updates[2].Data.Appliance(natureremo.TEST_APPLIANCE_AC_ID)
	require.True(t, ok)
	assert.Equal(t, "22", appliance.Settings.Temp)
}
