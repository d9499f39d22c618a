package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/natureremo2mqtt/internal/config"
	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/internal/core/port"
	"github.com/berfenger/natureremo2mqtt/internal/core/service"
	. "github.com/berfenger/natureremo2mqtt/internal/util/actorutil"
	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// AirconActor owns the climate state of one air conditioner. Commands are
// serialized: while a write is in flight new commands wait in the stash.
type AirconActor struct {
	ActorWithStates
	stash            *Stash
	applianceId      string
	logic            port.AirconControlLogic
	climate          domain.GenericClimate
	coordinatorActor *actor.PID
	eventStream      *eventstream.EventStream
	requestTimeout   time.Duration

	logger *zap.Logger
}

func NewAirconActor(config *config.Config, logic port.AirconControlLogic, applianceId string, coordinatorActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *AirconActor {
	act := &AirconActor{
		applianceId:      applianceId,
		logic:            logic,
		coordinatorActor: coordinatorActor,
		eventStream:      eventStream,
		requestTimeout:   time.Duration(config.NatureRemo.RequestTimeoutMillis) * time.Millisecond,
		stash:            &Stash{},
		logger:           ActorLogger(fmt.Sprintf("%s/%s", domain.ACTOR_ID_AIRCON, applianceId), logger),
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(AirconIdleState{
		actor: act,
	})
	return act
}

func (state *AirconActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Idle state

type AirconIdleState struct {
	ActorState
	actor *AirconActor
}

func (state AirconIdleState) Name() string {
	return "idle"
}

func (state AirconIdleState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("aircon@idle started")
		state.actor.climate = state.actor.logic.Climate()
		state.actor.publishState()
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_AIRCON,
			Healthy: true,
			State:   state.actor.StateName(),
		})
	case domain.CoordinatorUpdateEvent:
		state.actor.onCoordinatorUpdate(msg)
	case domain.AirconRequest:
		state.actor.logger.Debug("aircon@idle command", zap.String("command", fmt.Sprintf("%T", msg)))
		replyTo := ForRequest(msg).ReplyTo(ctx)
		update, err := state.actor.buildUpdate(msg)
		if err != nil {
			state.actor.logger.Warn("aircon@idle rejected command", zap.String("command", fmt.Sprintf("%T", msg)), zap.Error(err))
			state.actor.respondCommand(ctx, replyTo, err)
			return
		}
		state.actor.BecomeStacked(AirconWaitingPostState{
			actor:   state.actor,
			replyTo: replyTo,
		}.OnEnterAction(ctx, update))
	default:
		state.actor.logger.Debug("aircon@idle recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Waiting post state

type AirconWaitingPostState struct {
	ActorState
	actor   *AirconActor
	replyTo *actor.PID
}

func (state AirconWaitingPostState) Name() string {
	return "waitingPost"
}

func (state AirconWaitingPostState) OnEnterAction(ctx actor.Context, update natureremo.AirconSettingsUpdate) AirconWaitingPostState {
	applianceId := state.actor.applianceId
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.coordinatorActor, domain.PostApplianceSettingsRequest{
		ApplianceId: applianceId,
		Update:      update,
	}, 2*state.actor.requestTimeout+time.Second), func(err error) any {
		return domain.PostApplianceSettingsResponse{
			ActorResponseMixIn: domain.ErrorResponse(err),
			ApplianceId:        applianceId,
		}
	})
	return state
}

func (state AirconWaitingPostState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_AIRCON,
			Healthy: true,
			State:   state.actor.StateName(),
		})
	case domain.PostApplianceSettingsResponse:
		if msg.HasResponseError() {
			state.actor.logger.Error("aircon@waitingPost failed to update settings", zap.Error(msg.GetResponseError()))
		} else {
			state.actor.logic.Update(msg.Settings, nil)
			state.actor.publishState()
		}
		state.actor.respondCommand(ctx, state.replyTo, msg.GetResponseError())
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case *actor.Stopping, *actor.Stopped:
	default:
		state.actor.logger.Debug("aircon@waitingPost stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state *AirconActor) onCoordinatorUpdate(msg domain.CoordinatorUpdateEvent) {
	if !msg.Success {
		return
	}
	appliance, ok := msg.Data.Appliance(state.applianceId)
	if !ok {
		state.logger.Warn("aircon@idle appliance missing from cloud data")
		return
	}
	var device *natureremo.Device
	if d, ok := msg.Data.Device(appliance.Device.Id); ok {
		device = &d
	}
	state.logic.Update(appliance.Settings, device)
	state.publishState()
}

func (state *AirconActor) buildUpdate(req domain.AirconRequest) (natureremo.AirconSettingsUpdate, error) {
	switch r := req.(type) {
	case domain.AirconSetTemperatureRequest:
		return state.logic.SetTemperature(r.Temperature)
	case domain.AirconSetHVACModeRequest:
		return state.logic.SetHVACMode(r.Mode)
	case domain.AirconSetFanModeRequest:
		return state.logic.SetFanMode(r.FanMode)
	case domain.AirconSetSwingModeRequest:
		return state.logic.SetSwingMode(r.SwingMode)
	}
	return natureremo.AirconSettingsUpdate{}, fmt.Errorf("%T: %w", req, service.ErrInvalidValue)
}

// publishState sends the climate state and, when the current mode changed the
// announced capabilities, a new discovery config.
func (state *AirconActor) publishState() {
	state.eventStream.Publish(state.logic.State())
	climate := state.logic.Climate()
	if !service.SameCapabilities(state.climate, climate) {
		state.logger.Debug("aircon: capabilities changed")
		state.climate = climate
		state.eventStream.Publish(domain.ClimateDiscoveryUpdateEvent{Climate: climate})
	}
}

func (state *AirconActor) respondCommand(ctx actor.Context, replyTo *actor.PID, err error) {
	if replyTo == nil {
		return
	}
	ctx.Send(replyTo, domain.AirconCommandResponse{
		ActorResponseMixIn: domain.ErrorResponse(err),
		ApplianceId:        state.applianceId,
	})
}
