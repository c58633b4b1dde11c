package actor

import (
	"fmt"
	"slices"

	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/internal/core/port"
	"github.com/berfenger/melcloud2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// MetricsActor feeds the metrics recorder from the event stream. Account
// lifecycle events are sent to it by the master.
type MetricsActor struct {
	recorder     port.MetricsRecorder
	eventStream  *eventstream.EventStream
	subscription *eventstream.Subscription
	entities     map[string][]string

	logger *zap.Logger
}

func NewMetricsActor(recorder port.MetricsRecorder, eventStream *eventstream.EventStream, logger *zap.Logger) *MetricsActor {
	return &MetricsActor{
		recorder:    recorder,
		eventStream: eventStream,
		entities:    map[string][]string{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_METRICS, logger),
	}
}

func (state *MetricsActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("metrics@default started")
		root := ctx.ActorSystem().Root
		self := ctx.Self()
		state.subscription = state.eventStream.Subscribe(func(evt any) {
			switch evt.(type) {
			case domain.EntityAvailabilityUpdateEvent, domain.ClimateStateUpdateEvent,
				domain.WaterHeaterStateUpdateEvent, domain.FloatSensorUpdateEvent,
				domain.CommandResultEvent, domain.PollResultEvent:
				root.Send(self, evt)
			}
		})
	case *actor.Stopping, *actor.Restarting:
		if state.subscription != nil {
			state.eventStream.Unsubscribe(state.subscription)
			state.subscription = nil
		}
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_METRICS,
			Healthy: true,
			State:   "idle",
		})
	case domain.AccountEntitiesEvent:
		ids := entityIds(msg)
		if previous, ok := state.entities[msg.EntryId]; ok {
			state.recorder.ForgetEntities(missing(previous, ids))
		}
		state.entities[msg.EntryId] = ids
		state.recorder.SetAccounts(len(state.entities))
	case domain.AccountRemovedEvent:
		state.recorder.ForgetEntities(state.entities[msg.EntryId])
		delete(state.entities, msg.EntryId)
		state.recorder.SetAccounts(len(state.entities))
	case domain.EntityAvailabilityUpdateEvent:
		state.recorder.SetEntityAvailable(msg.EntityType, msg.Id, msg.Value)
	case domain.ClimateStateUpdateEvent:
		state.recorder.SetClimateTemperatures(msg.Id, msg.CurrentTemperature, msg.TargetTemperature)
	case domain.WaterHeaterStateUpdateEvent:
		state.recorder.SetClimateTemperatures(msg.Id, msg.CurrentTemperature, msg.TargetTemperature)
	case domain.FloatSensorUpdateEvent:
		state.recorder.SetSensorValue(msg.Id, msg.Value)
	case domain.CommandResultEvent:
		state.recorder.ObserveCommand(msg.EntityType, msg.Command, msg.Error)
	case domain.PollResultEvent:
		state.recorder.ObservePoll(msg.EntryId, msg.Duration, msg.Error)
	default:
		state.logger.Debug("metrics@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func entityIds(ev domain.AccountEntitiesEvent) []string {
	var ids []string
	for _, s := range ev.Sensors {
		ids = append(ids, s.Id)
	}
	for _, c := range ev.Climates {
		ids = append(ids, c.Id)
	}
	for _, w := range ev.WaterHeaters {
		ids = append(ids, w.Id)
	}
	return ids
}

func missing(previous, current []string) []string {
	var out []string
	for _, id := range previous {
		if !slices.Contains(current, id) {
			out = append(out, id)
		}
	}
	return out
}
