package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	// covers the MQTT connect timeout
	discoveryAckTimeout = 15 * time.Second
)

// HADiscoveryActor announces every entity to Home Assistant through the MQTT
// actor, then re-announces climates whose capabilities change.
type HADiscoveryActor struct {
	actorutil.ActorWithStates
	stash     *actorutil.Stash
	mqttActor *actor.PID
	sensors   []domain.GenericSensor
	climates  []domain.GenericClimate

	logger *zap.Logger
}

func NewHADiscoveryActor(mqttActor *actor.PID, sensors []domain.GenericSensor, climates []domain.GenericClimate, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		mqttActor: mqttActor,
		sensors:   sensors,
		climates:  climates,
		stash:     &actorutil.Stash{},
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
		ActorWithStates: actorutil.ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(HADAnnouncingState{actor: act})
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Announcing state

type HADAnnouncingState struct {
	actorutil.ActorState
	actor *HADiscoveryActor
}

func (state HADAnnouncingState) Name() string {
	return "announcing"
}

func (state HADAnnouncingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("hadiscovery@announcing started",
			zap.Int("sensors", len(state.actor.sensors)), zap.Int("climates", len(state.actor.climates)))
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.mqttActor, domain.PublishDiscoveryRequest{
			Sensors:  state.actor.sensors,
			Climates: state.actor.climates,
		}, discoveryAckTimeout), func(err error) any {
			return domain.PublishDiscoveryResponse{
				ActorResponseMixIn: domain.ErrorResponse(err),
			}
		})
	case domain.PublishDiscoveryResponse:
		if msg.HasResponseError() {
			// let the supervisor retry
			panic(fmt.Errorf("discovery not published: %w", msg.GetResponseError()))
		}
		state.actor.logger.Info("hadiscovery@announcing entities announced")
		state.actor.Become(HADDoneState{actor: state.actor})
		state.actor.stash.UnstashAll(ctx)
	case *actor.Restarting, *actor.Stopping:
	default:
		state.actor.logger.Debug("hadiscovery@announcing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Done state

type HADDoneState struct {
	actorutil.ActorState
	actor *HADiscoveryActor
}

func (state HADDoneState) Name() string {
	return "done"
}

func (state HADDoneState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ClimateDiscoveryUpdateEvent:
		state.actor.logger.Debug("hadiscovery@done climate changed", zap.String("climate", msg.Climate.Id))
		ctx.Send(state.actor.mqttActor, domain.PublishDiscoveryRequest{
			Climates: []domain.GenericClimate{msg.Climate},
		})
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_HA_DISCOVERY,
			Healthy: true,
			State:   state.actor.StateName(),
		})
	default:
		state.actor.logger.Debug("hadiscovery@done unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}
