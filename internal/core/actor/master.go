package actor

import (
	"errors"
	"fmt"
	"time"

	adactor "github.com/berfenger/natureremo2mqtt/internal/adapter/actor"
	"github.com/berfenger/natureremo2mqtt/internal/config"
	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/internal/core/events"
	"github.com/berfenger/natureremo2mqtt/internal/core/service"
	. "github.com/berfenger/natureremo2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const (
	startupRetryDelay = 10 * time.Second
)

type CloudActorProvider func() *adactor.CloudActor

type MQTTActorProvider func() *adactor.MQTTActor

type MasterOfPuppetsActor struct {
	config    config.Config
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	currentHealthCheck healthCheckResult
	eventStream        *eventstream.EventStream
	subscription       *eventstream.Subscription
	cloudActor         *actor.PID
	mqttActor          *actor.PID
	coordinatorActor   *actor.PID
	haDiscoveryActor   *actor.PID
	aircons            map[string]*actor.PID
	sensors            map[string]*actor.PID
	cloudActorProvider CloudActorProvider
	mqttActorProvider  MQTTActorProvider
	stopping           bool
	logger             *zap.Logger
}

type healthCheckResult struct {
	healthy        map[string]bool
	checksReceived int
	respondTo      *actor.PID
}

// streamEvent wraps a value published on the event stream so it is handled
// inside the master's mailbox.
type streamEvent struct {
	value any
}

type retryStartup struct {
}

func NewMasterOfPuppetsActor(config config.Config, eventStream *eventstream.EventStream, cloudActorProvider CloudActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:             config,
		behavior:           actor.NewBehavior(),
		stash:              &Stash{},
		logger:             ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:        eventStream,
		aircons:            map[string]*actor.PID{},
		sensors:            map[string]*actor.PID{},
		cloudActorProvider: cloudActorProvider,
		mqttActorProvider:  mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)

		system := ctx.ActorSystem()
		self := ctx.Self()
		state.subscription = state.eventStream.Subscribe(func(evt any) {
			system.Root.Send(self, streamEvent{value: evt})
		})

		// start Cloud child
		cloudActorPID, err := state.startCloudActor(ctx)
		if err != nil {
			panic(err)
		}
		state.cloudActor = cloudActorPID

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start Coordinator child
		coordinatorActorPID, err := state.startCoordinatorActor(ctx)
		if err != nil {
			panic(err)
		}
		state.coordinatorActor = coordinatorActorPID

		state.requestCloudData(ctx)
		state.behavior.Become(state.WaitingDataReceive)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// WaitingDataReceive waits for the first successful refresh. Entities can only
// be created once the devices and appliances of the account are known.
func (state *MasterOfPuppetsActor) WaitingDataReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetCloudDataResponse:
		if msg.HasResponseError() {
			state.logger.Warn("master@waitingdata cloud data not available yet", zap.Error(msg.GetResponseError()))
			state.scheduler.RequestOnce(startupRetryDelay, ctx.Self(), retryStartup{})
			return
		}
		if err := state.startEntities(ctx, msg.Data); err != nil {
			state.logger.Error("master@waitingdata cannot create entities", zap.Error(err))
			state.scheduler.RequestOnce(startupRetryDelay, ctx.Self(), retryStartup{})
			return
		}
		state.eventStream.Publish(events.BridgeStateToUpdateEvent(true))
		state.logger.Info("master@waitingdata bridge ready",
			zap.Int("climates", len(state.aircons)), zap.Int("devices", len(state.sensors)))
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case retryStartup:
		state.requestCloudData(ctx)
	case streamEvent:
		state.routeEvent(ctx, msg.value)
	case *actor.Stopping:
		state.stop()
	default:
		state.logger.Debug("master@waitingdata stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		for id, pid := range state.healthChecked() {
			id := id
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      id,
					Healthy: false,
				}
			})
		}

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case adactor.ParsedCommand:
		// redirect parsedCommand to actor
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command == nil {
			return
		}
		cmd, err := ParsedMQTTCommandToCommand(*msg.Command)
		if err != nil {
			state.logger.Warn("master@default invalid command", zap.Any("command", msg.Command), zap.Error(err))
			return
		}
		pid, ok := state.aircons[cmd.TargetAppliance()]
		if !ok {
			state.logger.Warn("master@default command for unknown climate", zap.String("climate", cmd.TargetAppliance()))
			return
		}
		ctx.Send(pid, cmd)
	case streamEvent:
		state.routeEvent(ctx, msg.value)
	case *actor.Stopping:
		state.stop()
	case *actor.Terminated:
		// the adapters are supervised, losing one means the bridge cannot work
		if state.stopping {
			return
		}
		for id, pid := range state.healthChecked() {
			if msg.Who.Equal(pid) {
				state.logger.Error("master@default child terminated", zap.String("child", id))
				panic(errors.New(id + " terminated"))
			}
		}
	case domain.ActorHealthResponse:
		// late answer of a check that already timed out
	default:
		state.logger.Debug("master@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		ctx.CancelReceiveTimeout()
		state.currentHealthCheck.respond(ctx, len(state.healthChecked()))
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		state.currentHealthCheck.healthy[msg.Id] = msg.Healthy
		if state.currentHealthCheck.allReceived(len(state.healthChecked())) {
			ctx.CancelReceiveTimeout()
			state.currentHealthCheck.respond(ctx, len(state.healthChecked()))

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	case streamEvent:
		state.routeEvent(ctx, msg.value)
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) routeEvent(ctx actor.Context, event any) {
	switch ev := event.(type) {
	case domain.SensorUpdateEvent:
		ctx.Send(state.mqttActor, domain.PublishSensorUpdateRequest{
			Retain: true,
			Event:  ev,
		})
	case domain.CoordinatorUpdateEvent:
		for _, pid := range state.aircons {
			ctx.Send(pid, ev)
		}
		for _, pid := range state.sensors {
			ctx.Send(pid, ev)
		}
	case domain.ClimateDiscoveryUpdateEvent:
		if state.haDiscoveryActor != nil {
			ctx.Send(state.haDiscoveryActor, ev)
		}
	}
}

func (state *MasterOfPuppetsActor) requestCloudData(ctx actor.Context) {
	timeout := time.Duration(state.config.NatureRemo.PollIntervalSeconds)*time.Second +
		2*time.Duration(state.config.NatureRemo.RequestTimeoutMillis)*time.Millisecond
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.coordinatorActor, domain.GetCloudDataRequest{}, timeout), func(err error) any {
		return domain.GetCloudDataResponse{
			ActorResponseMixIn: domain.ErrorResponse(err),
		}
	})
}

// startEntities spawns one actor per device and per air conditioner and
// feeds them the snapshot they were created from.
func (state *MasterOfPuppetsActor) startEntities(ctx actor.Context, data *domain.CloudData) error {
	bridgeDevice := domain.BridgeDevice(state.config.MQTT.BaseTopic)
	plan, err := service.PlanEntities(data, state.config.NatureRemo.DeviceIds, bridgeDevice)
	if err != nil {
		return err
	}

	var climates []domain.GenericClimate
	for _, appliance := range plan.Aircons() {
		logic, err := service.NewAircon(appliance, bridgeDevice, state.logger)
		if err != nil {
			return err
		}
		pid, err := state.startAirconActor(ctx, appliance.Id, logic)
		if err != nil {
			return err
		}
		state.aircons[appliance.Id] = pid
		climates = append(climates, logic.Climate())
	}
	for _, device := range plan.Devices {
		pid, err := state.startSensorActor(ctx, device.Device.Id)
		if err != nil {
			return err
		}
		state.sensors[device.Device.Id] = pid
	}

	// start HA Discovery
	if state.config.MQTT.HADiscoveryEnable {
		sensors := append(domain.BridgeSensors(bridgeDevice), plan.Sensors()...)
		pid, err := state.startHADiscoveryActor(ctx, sensors, climates)
		if err != nil {
			return err
		}
		state.haDiscoveryActor = pid
	}

	state.routeEvent(ctx, domain.CoordinatorUpdateEvent{
		Success: true,
		Data:    data,
	})
	return nil
}

func (state *MasterOfPuppetsActor) healthChecked() map[string]*actor.PID {
	return map[string]*actor.PID{
		domain.ACTOR_ID_CLOUD:       state.cloudActor,
		domain.ACTOR_ID_MQTT:        state.mqttActor,
		domain.ACTOR_ID_COORDINATOR: state.coordinatorActor,
	}
}

func (state *MasterOfPuppetsActor) childDecider(child string) actor.DeciderFunc {
	return func(reason interface{}) actor.Directive {
		state.logger.Warn("master: handling failure for child", zap.String("child", child), zap.Any("reason", reason))
		return actor.RestartDirective
	}
}

func (state *MasterOfPuppetsActor) startCloudActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	cloudProps := actor.PropsFromProducer(func() actor.Actor {
		return state.cloudActorProvider()
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(cloudProps, domain.ACTOR_ID_CLOUD)
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider()
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
}

func (state *MasterOfPuppetsActor) startCoordinatorActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(30*time.Second, 2*time.Second)

	coordinatorProps := actor.PropsFromProducer(func() actor.Actor {
		return NewCoordinatorActor(&state.config, state.cloudActor, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(coordinatorProps, domain.ACTOR_ID_COORDINATOR)
}

func (state *MasterOfPuppetsActor) startAirconActor(ctx actor.Context, applianceId string, logic *service.Aircon) (*actor.PID, error) {

	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, state.childDecider(domain.ACTOR_ID_AIRCON))

	airconProps := actor.PropsFromProducer(func() actor.Actor {
		return NewAirconActor(&state.config, logic, applianceId, state.coordinatorActor, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(airconProps, fmt.Sprintf("%s-%s", domain.ACTOR_ID_AIRCON, applianceId))
}

func (state *MasterOfPuppetsActor) startSensorActor(ctx actor.Context, deviceId string) (*actor.PID, error) {

	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, state.childDecider(domain.ACTOR_ID_SENSOR))

	sensorProps := actor.PropsFromProducer(func() actor.Actor {
		return NewSensorActor(deviceId, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(sensorProps, fmt.Sprintf("%s-%s", domain.ACTOR_ID_SENSOR, deviceId))
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context, sensors []domain.GenericSensor, climates []domain.GenericClimate) (*actor.PID, error) {

	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, state.childDecider(domain.ACTOR_ID_HA_DISCOVERY))

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(state.mqttActor, sensors, climates, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
}

func (state *MasterOfPuppetsActor) stop() {
	state.stopping = true
	if state.subscription != nil {
		state.eventStream.Unsubscribe(state.subscription)
		state.subscription = nil
	}
}

func (state *healthCheckResult) reset() {
	state.healthy = map[string]bool{}
	state.checksReceived = 0
	state.respondTo = nil
}

func (state *healthCheckResult) allReceived(expected int) bool {
	return state.checksReceived >= expected
}

func (state *healthCheckResult) allHealthy(expected int) bool {
	if len(state.healthy) < expected {
		return false
	}
	for _, healthy := range state.healthy {
		if !healthy {
			return false
		}
	}
	return true
}

func (state *healthCheckResult) respond(ctx actor.Context, expected int) {
	resp := domain.ActorHealthResponse{
		Id:         domain.ACTOR_ID_MASTER,
		Healthy:    state.allHealthy(expected),
		Components: state.healthy,
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
