package actor

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/berfenger/melcloud2mqtt/internal/config"
	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// HADiscoveryActor publishes Home Assistant discovery for the bridge and for
// every account the master forwards to it.
type HADiscoveryActor struct {
	config    *config.Config
	behavior  actor.Behavior
	stash     *actorutil.Stash
	mqttActor *actor.PID
	announced map[string]domain.AccountEntitiesEvent

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:    config,
		mqttActor: mqttActor,
		behavior:  actor.NewBehavior(),
		stash:     &actorutil.Stash{},
		announced: map[string]domain.AccountEntitiesEvent{},
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	default:
		state.logger.Debug("hadiscovery@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		if !msg.Healthy {
			panic(errors.New("MQTT actor is not healthy"))
		}
		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			Sensors: domain.BridgeSensors(domain.BridgeDevice(state.config.MQTT.BaseTopic)),
		})
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("hadiscovery@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.AccountEntitiesEvent:
		state.logger.Debug("hadiscovery@default AccountEntitiesEvent", zap.String("entry_id", msg.EntryId))
		if previous, ok := state.announced[msg.EntryId]; ok {
			if removed := discoveryRemoved(previous, msg); removed != nil {
				ctx.Send(state.mqttActor, *removed)
			}
		}
		state.announced[msg.EntryId] = msg
		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			Sensors:      msg.Sensors,
			Climates:     msg.Climates,
			WaterHeaters: msg.WaterHeaters,
		})
	case domain.AccountRemovedEvent:
		state.logger.Debug("hadiscovery@default AccountRemovedEvent", zap.String("entry_id", msg.EntryId))
		if previous, ok := state.announced[msg.EntryId]; ok {
			ctx.Send(state.mqttActor, domain.RemoveDiscoveryRequest{
				Sensors:      previous.Sensors,
				Climates:     previous.Climates,
				WaterHeaters: previous.WaterHeaters,
			})
			delete(state.announced, msg.EntryId)
		}
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_HA_DISCOVERY,
			Healthy: true,
			State:   "idle",
		})
	default:
		state.logger.Debug("hadiscovery@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// discoveryRemoved returns the entities of previous missing from current, or
// nil when nothing disappeared.
func discoveryRemoved(previous, current domain.AccountEntitiesEvent) *domain.RemoveDiscoveryRequest {
	req := domain.RemoveDiscoveryRequest{}
	for _, s := range previous.Sensors {
		if !slices.ContainsFunc(current.Sensors, func(o domain.GenericSensor) bool { return o.UniqueId == s.UniqueId }) {
			req.Sensors = append(req.Sensors, s)
		}
	}
	for _, c := range previous.Climates {
		if !slices.ContainsFunc(current.Climates, func(o domain.GenericClimate) bool { return o.UniqueId == c.UniqueId }) {
			req.Climates = append(req.Climates, c)
		}
	}
	for _, w := range previous.WaterHeaters {
		if !slices.ContainsFunc(current.WaterHeaters, func(o domain.GenericWaterHeater) bool { return o.UniqueId == w.UniqueId }) {
			req.WaterHeaters = append(req.WaterHeaters, w)
		}
	}
	if len(req.Sensors)+len(req.Climates)+len(req.WaterHeaters) == 0 {
		return nil
	}
	return &req
}
