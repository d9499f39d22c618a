package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/internal/core/events"
	"github.com/berfenger/natureremo2mqtt/internal/core/service"
	. "github.com/berfenger/natureremo2mqtt/internal/util/actorutil"
	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const (
	motionExpiryMargin = 500 * time.Millisecond
)

// SensorActor publishes the sensor readings of one Nature Remo device.
type SensorActor struct {
	behavior  actor.Behavior
	scheduler *scheduler.TimerScheduler

	deviceId     string
	device       *natureremo.Device
	eventStream  *eventstream.EventStream
	cancelMotion scheduler.CancelFunc
	now          func() time.Time

	logger *zap.Logger
}

type motionExpired struct {
	createdAt time.Time
}

func NewSensorActor(deviceId string, eventStream *eventstream.EventStream, logger *zap.Logger) *SensorActor {
	act := &SensorActor{
		deviceId:    deviceId,
		eventStream: eventStream,
		now:         time.Now,
		behavior:    actor.NewBehavior(),
		logger:      ActorLogger(fmt.Sprintf("%s/%s", domain.ACTOR_ID_SENSOR, deviceId), logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *SensorActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *SensorActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("sensor@default started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
	case *actor.Stopping:
		state.cancelMotionTimer()
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SENSOR,
			Healthy: true,
			State:   "idle",
		})
	case domain.CoordinatorUpdateEvent:
		if !msg.Success {
			return
		}
		device, ok := msg.Data.Device(state.deviceId)
		if !ok {
			state.logger.Warn("sensor@default device missing from cloud data")
			return
		}
		state.device = &device
		now := state.now()
		for _, ev := range events.DeviceToUpdateEvents(state.device, now) {
			state.eventStream.Publish(ev)
		}
		state.scheduleMotionExpiry(ctx, now)
	case motionExpired:
		if state.device == nil {
			return
		}
		motion, ok := state.device.NewestEvents[natureremo.SENSOR_KIND_MOTION]
		// a newer event rescheduled the timer
		if !ok || !motion.CreatedAt.Equal(msg.createdAt) {
			return
		}
		state.logger.Debug("sensor@default motion window expired")
		if ev := events.MotionToUpdateEvent(state.device, state.now()); ev != nil {
			state.eventStream.Publish(*ev)
		}
	default:
		state.logger.Debug("sensor@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *SensorActor) scheduleMotionExpiry(ctx actor.Context, now time.Time) {
	state.cancelMotionTimer()
	motion, ok := state.device.NewestEvents[natureremo.SENSOR_KIND_MOTION]
	if !ok || !service.MotionDetected(motion.CreatedAt, now) {
		return
	}
	expiresIn := service.MotionExpiresIn(motion.CreatedAt, now)
	state.cancelMotion = state.scheduler.RequestOnce(expiresIn+motionExpiryMargin, ctx.Self(), motionExpired{createdAt: motion.CreatedAt})
}

func (state *SensorActor) cancelMotionTimer() {
	if state.cancelMotion != nil {
		state.cancelMotion()
		state.cancelMotion = nil
	}
}
