package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/melcloud2mqtt/internal/config"
	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/internal/core/entity"
	"github.com/berfenger/melcloud2mqtt/internal/core/events"
	. "github.com/berfenger/melcloud2mqtt/internal/util/actorutil"
	"github.com/berfenger/melcloud2mqtt/pkg/melcloud"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const (
	ACCOUNT_STATE_POLLING = "polling"
	ACCOUNT_STATE_FAILED  = "failed"
)

// AccountActor owns the entities of one config entry. Polls, commands and
// device refreshes run one at a time, in arrival order.
type AccountActor struct {
	config      *config.Config
	entry       domain.ConfigEntry
	cloud       melcloud.Cloud
	eventStream *eventstream.EventStream
	behavior    actor.Behavior
	stash       *Stash
	scheduler   *scheduler.TimerScheduler
	cancelPoll  scheduler.CancelFunc
	entities    *entity.Entities
	setupError  error

	logger *zap.Logger
}

type pollTick struct {
}

func NewAccountActor(config *config.Config, entry domain.ConfigEntry, cloud melcloud.Cloud, eventStream *eventstream.EventStream, logger *zap.Logger) *AccountActor {
	act := &AccountActor{
		config:      config,
		entry:       entry,
		cloud:       cloud,
		eventStream: eventStream,
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		logger:      ActorLogger(AccountActorId(entry.Id), logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func AccountActorId(entryId string) string {
	return fmt.Sprintf("%s/%s", domain.ACTOR_ID_ACCOUNT_PREFIX, entryId)
}

func (state *AccountActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *AccountActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("account@starting started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.setup(ctx)
	case *actor.Restarting:
		state.stopPolling()
	default:
		state.logger.Debug("account@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *AccountActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case pollTick:
		state.logger.Debug("account@default tick")
		state.poll(ctx)
		state.schedulePoll(ctx)
	case domain.EntityCommandRequest:
		state.logger.Debug("account@default EntityCommandRequest", zap.Stringer("command", msg))
		state.execute(ctx, msg)
	case domain.RefreshDevicesRequest:
		state.logger.Debug("account@default RefreshDevicesRequest")
		state.refresh(ctx)
	case domain.GetEntitiesRequest:
		ForRequest(msg).Respond(ctx, domain.GetEntitiesResponse{
			Entities: events.EntitiesSnapshot(state.entry.Id, state.entities),
		})
	case domain.ActorHealthRequest:
		state.logger.Debug("account@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      AccountActorId(state.entry.Id),
			Healthy: true,
			State:   ACCOUNT_STATE_POLLING,
		})
	case *actor.Stopping:
		state.logger.Debug("account@default stopping")
		state.stopPolling()
		state.publishUnavailable()
	case *actor.Restarting:
		state.stopPolling()
	default:
		state.logger.Debug("account@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// FailedReceive is entered when the entry cannot be set up for a reason a
// retry will not fix, like a rejected token.
func (state *AccountActor) FailedReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      AccountActorId(state.entry.Id),
			Healthy: false,
			State:   ACCOUNT_STATE_FAILED,
		})
	case domain.RefreshDevicesRequest:
		state.logger.Info("account@failed retrying setup")
		state.behavior.Become(state.StartingReceive)
		state.setup(ctx)
	case domain.EntityCommandRequest:
		ForRequest(msg).Respond(ctx, domain.EntityCommandResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: state.setupError},
			EntityId:           msg.EntityId,
		})
	case domain.GetEntitiesRequest:
		ForRequest(msg).Respond(ctx, domain.GetEntitiesResponse{})
	default:
		state.logger.Debug("account@failed unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// setup lists the devices of the account. Timeouts and connection errors
// make the actor fail so its supervisor retries later.
func (state *AccountActor) setup(ctx actor.Context) {
	devices, err := state.fetchDevices(ctx)
	if err != nil {
		if isNotReady(err) {
			state.logger.Warn("account@starting not ready", zap.Error(err))
			panic(fmt.Errorf("%w: %s: %w", domain.ErrNotReady, state.entry.Id, err))
		}
		state.logger.Error("account@starting setup failed", zap.Error(err))
		state.setupError = err
		state.behavior.Become(state.FailedReceive)
		state.stash.UnstashAll(ctx)
		return
	}

	state.entities = entity.BuildEntities(devices, hubTemperatureUnit(state.config), state.logger)
	state.logger.Info("account@starting ready",
		zap.Int("devices", len(state.entities.Devices)),
		zap.Int("climates", len(state.entities.Climates)),
		zap.Int("sensors", len(state.entities.Sensors)),
		zap.Int("water_heaters", len(state.entities.WaterHeaters)))
	state.announce(ctx)
	state.publishState()
	state.schedulePoll(ctx)

	state.behavior.Become(state.DefaultReceive)
	state.stash.UnstashAll(ctx)
}

func (state *AccountActor) fetchDevices(ctx actor.Context) ([]*melcloud.Device, error) {
	var devices []*melcloud.Device
	err := state.runTask(func(c context.Context) error {
		var err error
		devices, err = state.cloud.GetDevices(c, state.entry.Token)
		return err
	})
	return devices, err
}

func (state *AccountActor) poll(ctx actor.Context) {
	start := time.Now()
	err := state.runTask(func(c context.Context) error {
		return state.entities.Update(c)
	})
	if err != nil {
		state.logger.Warn("account@default poll failed", zap.Error(err))
	}
	state.eventStream.Publish(domain.PollResultEvent{
		EntryId:  state.entry.Id,
		Duration: time.Since(start),
		Error:    err,
	})
	state.publishState()
}

func (state *AccountActor) execute(ctx actor.Context, cmd domain.EntityCommandRequest) {
	err := state.runTask(func(c context.Context) error {
		return state.entities.Execute(c, cmd)
	})
	if err != nil {
		state.logger.Warn("account@default command failed", zap.Stringer("command", cmd), zap.Error(err))
	} else {
		state.logger.Info("account@default command done", zap.Stringer("command", cmd))
	}
	state.eventStream.Publish(domain.CommandResultEvent{
		EntryId:    state.entry.Id,
		EntityType: cmd.EntityType,
		Command:    cmd.Command,
		Error:      err,
	})
	state.publishState()
	ForRequest(cmd).Respond(ctx, domain.EntityCommandResponse{
		ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
		EntityId:           cmd.EntityId,
	})
}

// refresh rebuilds the entities from a fresh device list and announces them
// again, so devices added or removed on the vendor side show up.
func (state *AccountActor) refresh(ctx actor.Context) {
	devices, err := state.fetchDevices(ctx)
	if err != nil {
		state.logger.Warn("account@default refresh failed", zap.Error(err))
		return
	}
	state.entities = entity.BuildEntities(devices, hubTemperatureUnit(state.config), state.logger)
	state.announce(ctx)
	state.publishState()
}

// runTask runs fn synchronously with the call timeout.
func (state *AccountActor) runTask(fn func(context.Context) error) error {
	timeout := state.callTimeout()
	var taskErr error
	NewBackgroundTaskErr(func() error {
		c, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return fn(c)
	}).WithTimeout(timeout + time.Second).OnError(func(err error) {
		taskErr = err
	}).Run()
	return taskErr
}

func (state *AccountActor) announce(ctx actor.Context) {
	sensors, climates, waterHeaters := events.EntitiesDiscovery(state.entities, domain.BridgeDevice(state.config.MQTT.BaseTopic))
	ev := domain.AccountEntitiesEvent{
		EntryId:      state.entry.Id,
		EntityIds:    state.entities.ObjectIds(),
		Sensors:      sensors,
		Climates:     climates,
		WaterHeaters: waterHeaters,
	}
	if parent := ctx.Parent(); parent != nil {
		ctx.Send(parent, ev)
	}
}

func (state *AccountActor) publishState() {
	for _, ev := range events.EntitiesToUpdateEvents(state.entities) {
		state.eventStream.Publish(ev)
	}
}

func (state *AccountActor) publishUnavailable() {
	if state.entities == nil {
		return
	}
	for _, ev := range events.EntitiesToUpdateEvents(state.entities) {
		if availability, ok := ev.(domain.EntityAvailabilityUpdateEvent); ok {
			availability.Value = false
			state.eventStream.Publish(availability)
		}
	}
}

func (state *AccountActor) schedulePoll(ctx actor.Context) {
	interval := state.config.MELCloud.PollInterval()
	if interval <= 0 {
		interval = entity.MIN_TIME_BETWEEN_UPDATES
	}
	state.cancelPoll = state.scheduler.RequestOnce(interval, ctx.Self(), pollTick{})
}

func (state *AccountActor) stopPolling() {
	if state.cancelPoll != nil {
		state.cancelPoll()
		state.cancelPoll = nil
	}
}

func (state *AccountActor) callTimeout() time.Duration {
	if timeout := state.config.MELCloud.LoginTimeout(); timeout > 0 {
		return timeout
	}
	return 10 * time.Second
}

func isNotReady(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, melcloud.ErrConnection)
}

func hubTemperatureUnit(cfg *config.Config) string {
	if cfg.Units.TemperatureUnit == config.TEMPERATURE_UNIT_FAHRENHEIT {
		return entity.TEMP_FAHRENHEIT
	}
	return entity.TEMP_CELSIUS
}
