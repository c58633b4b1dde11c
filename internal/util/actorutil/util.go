package actorutil

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/internal/mqtt"

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
	case zap.ErrorLevel, zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps a command received on
// <base>/<entity type>/<object id>/<command>/set to an entity command.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) (*domain.EntityCommandRequest, error) {
	switch cmd.Command {
	case domain.ENTITY_TYPE_CLIMATE, domain.ENTITY_TYPE_WATER_HEATER:
	default:
		return nil, fmt.Errorf("%w: unsupported entity type %q", domain.ErrInvalidArgument, cmd.Command)
	}
	if cmd.DeviceId == "" || cmd.Param == "" {
		return nil, fmt.Errorf("%w: incomplete command", domain.ErrInvalidArgument)
	}
	return &domain.EntityCommandRequest{
		EntityType: cmd.Command,
		EntityId:   cmd.DeviceId,
		Command:    cmd.Param,
		Value:      cmd.Payload,
	}, nil
}
