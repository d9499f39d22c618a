package actorutil

import (
	"github.com/berfenger/natureremo2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
)

type forRequest struct {
	req domain.ActorRequest
}

// ExtendedRequest answers a request either to its explicit ReplyToRef or to
// the sender of the current message.
type ExtendedRequest interface {
	Respond(ctx actor.Context, resp domain.ActorResponse)
	RespondIfAsked(ctx actor.Context, resp domain.ActorResponse)
	ReplyTo(ctx actor.Context) *actor.PID
}

func ForRequest(r domain.ActorRequest) ExtendedRequest {
	return forRequest{req: r}
}

func (r forRequest) Respond(ctx actor.Context, resp domain.ActorResponse) {
	if r.req.ReplyTo() != nil {
		ctx.Send((*actor.PID)(r.req.ReplyTo()), resp)
	} else {
		ctx.Respond(resp)
	}
}

// RespondIfAsked drops the response of fire and forget messages.
func (r forRequest) RespondIfAsked(ctx actor.Context, resp domain.ActorResponse) {
	if replyTo := r.ReplyTo(ctx); replyTo != nil {
		ctx.Send(replyTo, resp)
	}
}

func (r forRequest) ReplyTo(ctx actor.Context) *actor.PID {
	if r.req.ReplyTo() != nil {
		return (*actor.PID)(r.req.ReplyTo())
	}
	return ctx.Sender()
}
