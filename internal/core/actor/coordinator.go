package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/natureremo2mqtt/internal/config"
	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/internal/core/events"
	. "github.com/berfenger/natureremo2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// CoordinatorActor polls the cloud and owns the last fetched snapshot.
type CoordinatorActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	cloudActor     *actor.PID
	eventStream    *eventstream.EventStream
	pollInterval   time.Duration
	requestTimeout time.Duration
	data           *domain.CloudData
	fetching       bool
	refreshPending bool

	logger *zap.Logger
}

type pollTick struct {
}

func NewCoordinatorActor(config *config.Config, cloudActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *CoordinatorActor {
	act := &CoordinatorActor{
		cloudActor:     cloudActor,
		eventStream:    eventStream,
		pollInterval:   time.Duration(config.NatureRemo.PollIntervalSeconds) * time.Second,
		requestTimeout: time.Duration(config.NatureRemo.RequestTimeoutMillis) * time.Millisecond,
		behavior:       actor.NewBehavior(),
		stash:          &Stash{},
		logger:         ActorLogger(domain.ACTOR_ID_COORDINATOR, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *CoordinatorActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *CoordinatorActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("coordinator@starting started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)

		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.cloudActor, domain.ValidateTokenRequest{}, state.requestTimeout+time.Second), func(err error) any {
			return domain.ValidateTokenResponse{
				ActorResponseMixIn: domain.ErrorResponse(err),
			}
		})
		state.behavior.Become(state.WaitingTokenReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("coordinator@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *CoordinatorActor) WaitingTokenReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ValidateTokenResponse:
		if msg.HasResponseError() {
			// let the supervisor retry with backoff
			state.logger.Error("coordinator@token invalid Nature Remo token", zap.Error(msg.GetResponseError()))
			state.publishCloudState(false)
			panic(msg.GetResponseError())
		}
		if msg.User != nil {
			state.logger.Info("coordinator@token authenticated", zap.String("user", msg.User.Nickname))
		}
		state.behavior.Become(state.DefaultReceive)
		ctx.Send(ctx.Self(), pollTick{})
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("coordinator@token: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *CoordinatorActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("coordinator@default: ActorHealthRequest")
		s := "idle"
		if state.fetching {
			s = "fetching"
		}
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_COORDINATOR,
			Healthy: true,
			State:   s,
		})
	case pollTick:
		state.logger.Debug("coordinator@default tick")
		state.fetch(ctx, false)
		// schedule next tick
		state.scheduler.RequestOnce(state.pollInterval, ctx.Self(), pollTick{})
	case domain.RefreshRequest:
		state.logger.Debug("coordinator@default RefreshRequest")
		state.fetch(ctx, false)
	case domain.FetchCloudDataResponse:
		state.fetching = false
		if msg.HasResponseError() {
			state.logger.Error(fmt.Sprintf("Error communicating with Nature Remo API: %s", msg.GetResponseError()))
			state.eventStream.Publish(domain.CoordinatorUpdateEvent{
				Success: false,
				Error:   msg.GetResponseError(),
			})
			state.publishCloudState(false)
		} else if msg.Data != nil {
			state.logger.Debug("coordinator@default FetchCloudDataResponse",
				zap.Int("devices", len(msg.Data.Devices)), zap.Int("appliances", len(msg.Data.Appliances)))
			state.data = msg.Data
			state.eventStream.Publish(domain.CoordinatorUpdateEvent{
				Success: true,
				Data:    msg.Data,
			})
			state.publishCloudState(true)
			// release requests waiting for the first snapshot
			state.stash.UnstashAll(ctx)
		}
		if state.refreshPending {
			state.refreshPending = false
			state.fetch(ctx, false)
		}
	case domain.GetCloudDataRequest:
		if state.data == nil {
			state.logger.Debug("coordinator@default GetCloudDataRequest: no data yet, stash")
			state.stash.Stash(ctx, msg)
			return
		}
		ForRequest(msg).Respond(ctx, domain.GetCloudDataResponse{
			Data: state.data,
		})
	case domain.PostApplianceSettingsRequest:
		state.logger.Debug("coordinator@default PostApplianceSettingsRequest", zap.String("appliance", msg.ApplianceId))
		state.postApplianceSettings(ctx, msg)
	default:
		state.logger.Debug("coordinator@default: unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// fetch starts a refresh unless one is in flight. With afterWrite the in
// flight data may predate the write so another refresh is queued.
func (state *CoordinatorActor) fetch(ctx actor.Context, afterWrite bool) {
	if state.fetching {
		if afterWrite {
			state.refreshPending = true
		}
		return
	}
	state.fetching = true
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.cloudActor, domain.FetchCloudDataRequest{}, 2*state.requestTimeout+time.Second), func(err error) any {
		return domain.FetchCloudDataResponse{
			ActorResponseMixIn: domain.ErrorResponse(err),
		}
	})
}

func (state *CoordinatorActor) postApplianceSettings(ctx actor.Context, msg domain.PostApplianceSettingsRequest) {
	replyTo := ForRequest(msg).ReplyTo(ctx)
	future := ctx.RequestFuture(state.cloudActor, domain.UpdateAirconSettingsRequest{
		ApplianceId: msg.ApplianceId,
		Update:      msg.Update,
	}, state.requestTimeout+time.Second)
	ctx.ReenterAfter(future, func(res any, err error) {
		resp := domain.PostApplianceSettingsResponse{ApplianceId: msg.ApplianceId}
		if err != nil {
			resp.ResponseError = err
		} else if update, ok := res.(domain.UpdateAirconSettingsResponse); ok {
			resp.ResponseError = update.ResponseError
			resp.Settings = update.Settings
		} else {
			resp.ResponseError = errors.New("unexpected cloud response")
		}
		if replyTo != nil {
			ctx.Send(replyTo, resp)
		}
		if resp.HasResponseError() {
			state.logger.Error("coordinator@post aircon settings failed", zap.String("appliance", msg.ApplianceId), zap.Error(resp.ResponseError))
			return
		}
		state.fetch(ctx, true)
	})
}

func (state *CoordinatorActor) publishCloudState(online bool) {
	state.eventStream.Publish(events.CloudStateToUpdateEvent(online))
}
