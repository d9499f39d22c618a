package actorutil

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {

		// create a new logger
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps a climate command topic to the request
// understood by the aircon actor of that appliance.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) (domain.AirconRequest, error) {
	if cmd.Command != mqtt.COMMAND_CLIMATE {
		return nil, fmt.Errorf("%w: %s", mqtt.ErrInvalidCommand, cmd.Command)
	}
	target := domain.AirconRequestMixIn{ApplianceId: cmd.DeviceId}
	switch cmd.Param {
	case mqtt.CLIMATE_ATTR_MODE:
		return domain.AirconSetHVACModeRequest{
			AirconRequestMixIn: target,
			Mode:               cmd.Payload,
		}, nil
	case mqtt.CLIMATE_ATTR_TEMPERATURE:
		value, err := strconv.ParseFloat(cmd.Payload, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", mqtt.ErrInvalidCommand, err)
		}
		return domain.AirconSetTemperatureRequest{
			AirconRequestMixIn: target,
			Temperature:        value,
		}, nil
	case mqtt.CLIMATE_ATTR_FAN_MODE:
		return domain.AirconSetFanModeRequest{
			AirconRequestMixIn: target,
			FanMode:            cmd.Payload,
		}, nil
	case mqtt.CLIMATE_ATTR_SWING_MODE:
		return domain.AirconSetSwingModeRequest{
			AirconRequestMixIn: target,
			SwingMode:          cmd.Payload,
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", mqtt.ErrInvalidCommand, cmd.Param)
}
