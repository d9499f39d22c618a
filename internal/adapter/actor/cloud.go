package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/internal/util/actorutil"
	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// CloudActor serializes every call to the Nature Remo cloud.
type CloudActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	client   natureremo.CloudClient
	timeout  time.Duration
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewCloudActor(client natureremo.CloudClient, timeout time.Duration, logger *zap.Logger) *CloudActor {
	act := &CloudActor{
		client:   client,
		timeout:  timeout,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_CLOUD, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *CloudActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *CloudActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("cloud@default started")
	case domain.ActorHealthRequest:
		state.logger.Debug("cloud@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_CLOUD,
			Healthy: true,
			State:   "idle",
		})
	case domain.ValidateTokenRequest:
		state.logger.Debug("cloud@default: ValidateTokenRequest")
		runCloudCall(state, ctx, actorutil.ForRequest(msg).ReplyTo(ctx), state.timeout, state.validateToken,
			func(err error) domain.ValidateTokenResponse {
				return domain.ValidateTokenResponse{ActorResponseMixIn: domain.ErrorResponse(err)}
			})
	case domain.FetchCloudDataRequest:
		state.logger.Debug("cloud@default: FetchCloudDataRequest")
		// devices and appliances are two requests
		runCloudCall(state, ctx, actorutil.ForRequest(msg).ReplyTo(ctx), 2*state.timeout, state.fetchCloudData,
			func(err error) domain.FetchCloudDataResponse {
				return domain.FetchCloudDataResponse{ActorResponseMixIn: domain.ErrorResponse(err)}
			})
	case domain.UpdateAirconSettingsRequest:
		state.logger.Debug("cloud@default: UpdateAirconSettingsRequest", zap.String("appliance", msg.ApplianceId))
		update := func(ctx context.Context) (domain.UpdateAirconSettingsResponse, error) {
			return state.updateAirconSettings(ctx, msg.ApplianceId, msg.Update)
		}
		runCloudCall(state, ctx, actorutil.ForRequest(msg).ReplyTo(ctx), state.timeout, update,
			func(err error) domain.UpdateAirconSettingsResponse {
				return domain.UpdateAirconSettingsResponse{
					ActorResponseMixIn: domain.ErrorResponse(err),
					ApplianceId:        msg.ApplianceId,
				}
			})
	default:
		state.logger.Debug("cloud@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *CloudActor) WaitingCloud(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("cloud@WaitingCloud backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("cloud@WaitingCloud stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *CloudActor) validateToken(ctx context.Context) (domain.ValidateTokenResponse, error) {
	user, err := state.client.GetMe(ctx)
	if err != nil {
		state.logger.Error("cloud: token validation failed", zap.Error(err))
		return domain.ValidateTokenResponse{}, err
	}
	return domain.ValidateTokenResponse{User: user}, nil
}

func (state *CloudActor) fetchCloudData(ctx context.Context) (domain.FetchCloudDataResponse, error) {
	devices, err := state.client.GetDevices(ctx)
	if err != nil {
		return domain.FetchCloudDataResponse{}, err
	}
	appliances, err := state.client.GetAppliances(ctx)
	if err != nil {
		return domain.FetchCloudDataResponse{}, err
	}
	return domain.FetchCloudDataResponse{
		Data: domain.NewCloudData(devices, appliances, time.Now()),
	}, nil
}

func (state *CloudActor) updateAirconSettings(ctx context.Context, applianceId string, update natureremo.AirconSettingsUpdate) (domain.UpdateAirconSettingsResponse, error) {
	settings, err := state.client.UpdateAirconSettings(ctx, applianceId, update)
	if err != nil {
		state.logger.Error("cloud: aircon settings update failed", zap.String("appliance", applianceId), zap.Error(err))
		return domain.UpdateAirconSettingsResponse{}, err
	}
	return domain.UpdateAirconSettingsResponse{
		ApplianceId: applianceId,
		Settings:    settings,
	}, nil
}

// runCloudCall runs call in the background and parks the actor until the
// response, or the error built by onError, is sent to replyTo.
func runCloudCall[T any](state *CloudActor, ctx actor.Context, replyTo *actor.PID, timeout time.Duration,
	call func(context.Context) (T, error), onError func(error) T) {
	actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, call), func(resp T) backgroundTaskResult {
		return backgroundTaskResult{message: resp, replyTo: replyTo}
	}).Recover(func(err error) backgroundTaskResult {
		return backgroundTaskResult{message: onError(wrapCloudError(err)), replyTo: replyTo}
	}).WithTimeout(timeout).PipeTo(ctx.Self())
	state.behavior.BecomeStacked(state.WaitingCloud)
}

// timeouts and panics from the background task are reported as cloud errors
func wrapCloudError(err error) error {
	var cloudErr *natureremo.Error
	if errors.As(err, &cloudErr) {
		return err
	}
	return &natureremo.Error{Cause: err}
}
