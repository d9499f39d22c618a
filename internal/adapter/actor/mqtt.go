package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/natureremo2mqtt/internal/config"
	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/internal/mqtt"
	"github.com/berfenger/natureremo2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	connectTimeout   = 10 * time.Second
	subscribeTimeout = time.Second
	publishTimeout   = 5 * time.Second
	offlineTimeout   = 500 * time.Millisecond
)

// MQTTActor owns the broker connection. Publications are processed one batch
// at a time; requests arriving meanwhile wait in the stash.
type MQTTActor struct {
	config   *config.Config
	behavior actor.Behavior
	stash    *actorutil.Stash
	client   *mqtt.MQTTClient
	inFlight *publishBatch
	dummy    *PublishedMessagesResponse
	logger   *zap.Logger
}

type MQTTConnected struct {
}

type MQTTSubscribed struct {
}

type MQTTConnectionLost struct {
	Error error
}

type ParsedCommand struct {
	Command *mqtt.ParsedMQTTCommand
}

type publishResult struct {
	Error error
}

type publishBatch struct {
	pending int
	err     error
	done    func(ctx actor.Context, err error)
}

func NewMQTTActor(config *config.Config, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:   config,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MQTTActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MQTTActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("mqtt@starting started")

		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), nil, func(_ pahomqtt.Client, err error) {
			ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
		})
		state.client.Connect(state.continueWith(ctx, MQTTConnected{}), connectTimeout)
	case MQTTConnected:
		state.logger.Info("mqtt@starting connected", zap.String("host", state.config.MQTT.Host), zap.Int("port", state.config.MQTT.Port))
		state.client.Publish(mqtt.Outgoing{
			Topic:   state.client.BridgeStateTopic(),
			Payload: mqtt.MQTT_PAYLOAD_ONLINE,
			Retain:  true,
		}, func(error) {}, offlineTimeout)

		state.client.SubscribeToCommandTopic(func(_ pahomqtt.Client, m pahomqtt.Message) {
			cmd, err := state.client.ParseMQTTCommand(m)
			if err != nil {
				state.logger.Warn("mqtt: ignoring command", zap.String("topic", m.Topic()), zap.Error(err))
				return
			}
			ctx.Send(ctx.Self(), ParsedCommand{Command: cmd})
		}, state.continueWith(ctx, MQTTSubscribed{}), subscribeTimeout)
	case MQTTSubscribed:
		state.logger.Debug("mqtt@starting subscribed")
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case MQTTConnectionLost:
		// let the supervisor decide
		state.logger.Error("mqtt@starting connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting, *actor.Stopping:
		state.stop()
	default:
		state.logger.Debug("mqtt@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting, *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case ParsedCommand:
		state.logger.Debug("mqtt@default parsedCommand", zap.Any("command", msg.Command))
		ctx.Send(ctx.Parent(), msg)
	case domain.PublishSensorUpdateRequest:
		state.logger.Debug("mqtt@default PublishSensorUpdateRequest", zap.String("sensor", msg.Event.SensorId()))
		messages, err := mqtt.StateMessages(state.client, msg.Event)
		if err != nil {
			state.logger.Error("mqtt@default cannot render state", zap.String("sensor", msg.Event.SensorId()), zap.Error(err))
			return
		}
		state.publish(ctx, withRetain(messages, msg.Retain), nil)
	case domain.PublishDiscoveryRequest:
		state.logger.Debug("mqtt@default PublishDiscoveryRequest",
			zap.Int("sensors", len(msg.Sensors)), zap.Int("climates", len(msg.Climates)))
		replyTo := actorutil.ForRequest(msg).ReplyTo(ctx)
		reply := func(ctx actor.Context, err error) {
			if err != nil {
				state.logger.Error("mqtt@default PublishDiscoveryRequest error", zap.Error(err))
			}
			if replyTo != nil {
				ctx.Send(replyTo, domain.PublishDiscoveryResponse{ActorResponseMixIn: domain.ErrorResponse(err)})
			}
		}
		messages, err := mqtt.DiscoveryMessages(state.client, msg.Sensors, msg.Climates)
		if err != nil {
			reply(ctx, err)
			return
		}
		state.publish(ctx, messages, reply)
	case MQTTConnectionLost:
		// let the supervisor decide
		state.logger.Error("mqtt@default connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		state.logger.Debug("mqtt@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// PublishingReceive waits for every message of the in flight batch.
func (state *MQTTActor) PublishingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case publishResult:
		batch := state.inFlight
		if msg.Error != nil {
			state.logger.Error("mqtt@publishing could not publish a message", zap.Error(msg.Error))
			if batch.err == nil {
				batch.err = msg.Error
			}
		}
		batch.pending--
		if batch.pending > 0 {
			return
		}
		state.inFlight = nil
		if batch.done != nil {
			batch.done(ctx, batch.err)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case MQTTConnectionLost:
		state.logger.Error("mqtt@publishing connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting, *actor.Stopping:
		state.stop()
	default:
		state.logger.Debug("mqtt@publishing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) publish(ctx actor.Context, messages []mqtt.Outgoing, done func(ctx actor.Context, err error)) {
	if len(messages) == 0 {
		if done != nil {
			done(ctx, nil)
		}
		return
	}
	state.inFlight = &publishBatch{pending: len(messages), done: done}
	for _, m := range messages {
		state.logger.Sugar().Debugf("mqtt@publish: %s => %s", m.Topic, m.Payload)
		state.client.Publish(m, func(err error) {
			ctx.Send(ctx.Self(), publishResult{Error: err})
		}, publishTimeout)
	}
	state.behavior.BecomeStacked(state.PublishingReceive)
}

// continueWith turns a broker continuation into a message to self.
func (state *MQTTActor) continueWith(ctx actor.Context, onSuccess any) func(error) {
	return func(err error) {
		if err != nil {
			ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			return
		}
		ctx.Send(ctx.Self(), onSuccess)
	}
}

func (state *MQTTActor) stop() {
	if state.client == nil {
		return
	}
	state.logger.Debug("mqtt: disconnect")
	state.client.Publish(mqtt.Outgoing{
		Topic:   state.client.BridgeStateTopic(),
		Payload: mqtt.MQTT_PAYLOAD_OFFLINE,
		Retain:  true,
	}, func(error) {}, offlineTimeout)
	state.client.Disconnect(offlineTimeout)
	state.client = nil
}

func withRetain(messages []mqtt.Outgoing, retain bool) []mqtt.Outgoing {
	if retain {
		for i := range messages {
			messages[i].Retain = true
		}
	}
	return messages
}

// Dummy actor

// PublishedMessage is what the dummy actor would have sent to the broker.
type PublishedMessage = mqtt.Outgoing

// PublishedMessagesRequest returns every message recorded by the dummy actor.
type PublishedMessagesRequest struct {
}

type PublishedMessagesResponse struct {
	Messages []PublishedMessage
	Sensors  []domain.GenericSensor
	Climates []domain.GenericClimate
}

// NewTestMQTTActor records publications instead of talking to a broker.
func NewTestMQTTActor(config *config.Config, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:   config,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.DummyReceive)
	return act
}

func (state *MQTTActor) DummyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), nil, nil)
		state.dummy = &PublishedMessagesResponse{}
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case ParsedCommand:
		ctx.Send(ctx.Parent(), msg)
	case domain.PublishSensorUpdateRequest:
		messages, _ := mqtt.StateMessages(state.client, msg.Event)
		state.dummy.Messages = append(state.dummy.Messages, withRetain(messages, msg.Retain)...)
	case domain.PublishDiscoveryRequest:
		state.dummy.Sensors = append(state.dummy.Sensors, msg.Sensors...)
		state.dummy.Climates = append(state.dummy.Climates, msg.Climates...)
		actorutil.ForRequest(msg).RespondIfAsked(ctx, domain.PublishDiscoveryResponse{})
	case PublishedMessagesRequest:
		ctx.Respond(PublishedMessagesResponse{
			Messages: append([]PublishedMessage(nil), state.dummy.Messages...),
			Sensors:  append([]domain.GenericSensor(nil), state.dummy.Sensors...),
			Climates: append([]domain.GenericClimate(nil), state.dummy.Climates...),
		})
	}
}
