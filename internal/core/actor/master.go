package actor

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	adactor "github.com/berfenger/melcloud2mqtt/internal/adapter/actor"
	"github.com/berfenger/melcloud2mqtt/internal/config"
	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/internal/core/port"
	. "github.com/berfenger/melcloud2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const (
	REFRESH_JOB_KEY = "refresh-devices"
	FAN_OUT_TIMEOUT = 2 * time.Second
)

type MQTTActorProvider func() *adactor.MQTTActor

type AccountActorProvider func(entry domain.ConfigEntry, eventStream *eventstream.EventStream) actor.Actor

type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	currentQuery       entitiesQuery
	eventStream        *eventstream.EventStream
	subscription       *eventstream.Subscription
	store              port.EntryStore
	recorder           port.MetricsRecorder
	refreshScheduler   quartz.Scheduler
	mqttActor          *actor.PID
	haDiscoveryActor   *actor.PID
	metricsActor       *actor.PID
	accounts           map[string]*actor.PID
	owners             map[string]string
	accountProvider    AccountActorProvider
	mqttActorProvider  MQTTActorProvider
	baseLogger         *zap.Logger
	logger             *zap.Logger
}

type healthCheckResult struct {
	expected  int
	received  int
	healthy   bool
	respondTo *actor.PID
}

type entitiesQuery struct {
	expected  int
	received  int
	entities  []domain.EntitySnapshot
	respondTo *actor.PID
}

// MasterProps wraps a master producer with the supervision applied to every
// child: failing children are restarted with an exponential backoff.
func MasterProps(producer actor.Producer) *actor.Props {
	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)
	return actor.PropsFromProducer(producer, actor.WithSupervisor(supervisor))
}

func NewMasterOfPuppetsActor(config config.Config, store port.EntryStore, accountProvider AccountActorProvider,
	mqttActorProvider MQTTActorProvider, recorder port.MetricsRecorder, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:            config,
		behavior:          actor.NewBehavior(),
		stash:             &Stash{},
		baseLogger:        logger,
		logger:            ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:       &eventstream.EventStream{},
		store:             store,
		recorder:          recorder,
		accounts:          map[string]*actor.PID{},
		owners:            map[string]string{},
		accountProvider:   accountProvider,
		mqttActorProvider: mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID
		state.subscribeStateEvents(ctx)

		if state.recorder != nil {
			metricsActorPID, err := state.startMetricsActor(ctx)
			if err != nil {
				panic(err)
			}
			state.metricsActor = metricsActorPID
		}

		if state.config.MQTT.HADiscoveryEnable {
			haDiscPID, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
			state.haDiscoveryActor = haDiscPID
		}

		entries, err := state.store.List()
		if err != nil {
			panic(err)
		}
		for _, entry := range entries {
			state.startAccountActor(ctx, entry)
		}

		if err := state.startRefreshJob(ctx); err != nil {
			panic(err)
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.startHealthCheck(ctx)
	case domain.EntityCommandRequest:
		state.logger.Debug("master@default EntityCommandRequest", zap.Stringer("command", msg))
		pid, ok := state.ownerOf(msg.EntityId)
		if !ok {
			state.logger.Warn("master@default command for unknown entity", zap.Stringer("command", msg))
			ForRequest(msg).Respond(ctx, domain.EntityCommandResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: fmt.Errorf("%w: %s", domain.ErrUnknownEntity, msg.EntityId),
				},
				EntityId: msg.EntityId,
			})
			return
		}
		ctx.Forward(pid)
	case domain.AccountEntitiesEvent:
		state.logger.Debug("master@default AccountEntitiesEvent", zap.String("entry_id", msg.EntryId), zap.Strings("entities", msg.EntityIds))
		if _, ok := state.accounts[msg.EntryId]; !ok {
			// late announcement of an unloaded entry
			return
		}
		state.forgetOwner(msg.EntryId)
		for _, id := range msg.EntityIds {
			if owner, ok := state.owners[id]; ok && owner != msg.EntryId {
				state.logger.Warn("master@default entity announced by two entries", zap.String("entity", id),
					zap.String("entry_id", owner), zap.String("other_entry_id", msg.EntryId))
			}
			state.owners[id] = msg.EntryId
		}
		state.notifyObservers(ctx, msg)
	case domain.LoadEntryRequest:
		state.logger.Info("master@default LoadEntryRequest", zap.String("entry_id", msg.Entry.Id))
		state.stopAccountActor(ctx, msg.Entry.Id)
		state.startAccountActor(ctx, msg.Entry)
		ForRequest(msg).Respond(ctx, domain.LoadEntryResponse{})
	case domain.UnloadEntryRequest:
		state.logger.Info("master@default UnloadEntryRequest", zap.String("entry_id", msg.EntryId))
		found := state.stopAccountActor(ctx, msg.EntryId)
		if found {
			state.notifyObservers(ctx, domain.AccountRemovedEvent{EntryId: msg.EntryId})
		}
		ForRequest(msg).Respond(ctx, domain.UnloadEntryResponse{Found: found})
	case domain.RefreshDevicesRequest:
		state.logger.Debug("master@default RefreshDevicesRequest")
		for _, pid := range state.accounts {
			ctx.Send(pid, msg)
		}
	case domain.GetEntitiesRequest:
		state.logger.Debug("master@default GetEntitiesRequest")
		state.startEntitiesQuery(ctx, msg)
	case *actor.Terminated:
		if msg.Who.Equal(state.mqttActor) {
			state.logger.Error("master@default mqtt terminated")
			panic(fmt.Errorf("%w: mqtt terminated", domain.ErrNotReady))
		}
		for entryId, pid := range state.accounts {
			if msg.Who.Equal(pid) {
				state.logger.Error("master@default account terminated", zap.String("entry_id", entryId))
				delete(state.accounts, entryId)
				state.forgetOwner(entryId)
			}
		}
	case *actor.Stopping:
		state.stop()
	case *actor.Restarting:
		state.stop()
	case *actor.ReceiveTimeout:
		ctx.CancelReceiveTimeout()
	default:
		state.logger.Debug("master@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterOfPuppetsActor) startHealthCheck(ctx actor.Context) {
	targets := []*actor.PID{state.mqttActor}
	if state.haDiscoveryActor != nil {
		targets = append(targets, state.haDiscoveryActor)
	}
	if state.metricsActor != nil {
		targets = append(targets, state.metricsActor)
	}
	for _, pid := range state.accounts {
		targets = append(targets, pid)
	}

	state.currentHealthCheck = healthCheckResult{
		expected:  len(targets),
		healthy:   true,
		respondTo: ctx.Sender(),
	}
	for _, pid := range targets {
		id := pid.Id
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, FAN_OUT_TIMEOUT/2), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      id,
				Healthy: false,
			}
		})
	}

	ctx.SetReceiveTimeout(FAN_OUT_TIMEOUT)
	state.behavior.BecomeStacked(state.HealthCheckReceive)
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// missing answers count as unhealthy
		state.finishHealthCheck(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy), zap.String("state", msg.State))
		state.currentHealthCheck.received++
		if !msg.Healthy {
			state.currentHealthCheck.healthy = false
		}
		if state.currentHealthCheck.allReceived() {
			state.finishHealthCheck(ctx)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) finishHealthCheck(ctx actor.Context) {
	ctx.CancelReceiveTimeout()
	state.currentHealthCheck.respond(ctx)
	state.behavior.UnbecomeStacked()
	state.stash.UnstashAll(ctx)
}

func (state *MasterOfPuppetsActor) startEntitiesQuery(ctx actor.Context, msg domain.GetEntitiesRequest) {
	state.currentQuery = entitiesQuery{
		expected:  len(state.accounts),
		respondTo: ForRequest(msg).ReplyTo(ctx),
	}
	if state.currentQuery.expected == 0 {
		state.currentQuery.respond(ctx)
		return
	}
	for _, pid := range state.accounts {
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.GetEntitiesRequest{}, FAN_OUT_TIMEOUT/2), func(err error) any {
			return domain.GetEntitiesResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			}
		})
	}
	ctx.SetReceiveTimeout(FAN_OUT_TIMEOUT)
	state.behavior.BecomeStacked(state.EntitiesReceive)
}

func (state *MasterOfPuppetsActor) EntitiesReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		state.finishEntitiesQuery(ctx)
	case domain.GetEntitiesResponse:
		state.currentQuery.received++
		if msg.HasResponseError() {
			state.logger.Warn("master@entities account did not answer", zap.Error(msg.GetResponseError()))
		}
		state.currentQuery.entities = append(state.currentQuery.entities, msg.Entities...)
		if state.currentQuery.received >= state.currentQuery.expected {
			state.finishEntitiesQuery(ctx)
		}
	default:
		state.logger.Debug("master@entities stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) finishEntitiesQuery(ctx actor.Context) {
	ctx.CancelReceiveTimeout()
	state.currentQuery.respond(ctx)
	state.behavior.UnbecomeStacked()
	state.stash.UnstashAll(ctx)
}

// subscribeStateEvents forwards every state event published by the accounts
// to the MQTT actor.
func (state *MasterOfPuppetsActor) subscribeStateEvents(ctx actor.Context) {
	root := ctx.ActorSystem().Root
	mqttActor := state.mqttActor
	state.subscription = state.eventStream.Subscribe(func(evt any) {
		if ev, ok := evt.(domain.SensorUpdateEvent); ok {
			root.Send(mqttActor, domain.PublishSensorUpdateRequest{Event: ev})
		}
	})
}

// startRefreshJob re-lists the devices of every account periodically.
func (state *MasterOfPuppetsActor) startRefreshJob(ctx actor.Context) error {
	interval := state.config.MELCloud.RefreshInterval()
	if interval <= 0 {
		return nil
	}
	root := ctx.ActorSystem().Root
	self := ctx.Self()
	refreshJob := job.NewFunctionJob(func(_ context.Context) (int, error) {
		root.Send(self, domain.RefreshDevicesRequest{})
		return 0, nil
	})
	state.refreshScheduler = quartz.NewStdScheduler()
	state.refreshScheduler.Start(context.Background())
	return state.refreshScheduler.ScheduleJob(quartz.NewJobDetail(refreshJob, quartz.NewJobKey(REFRESH_JOB_KEY)),
		quartz.NewSimpleTrigger(interval))
}

func (state *MasterOfPuppetsActor) stop() {
	if state.refreshScheduler != nil {
		state.refreshScheduler.Stop()
		state.refreshScheduler = nil
	}
	if state.subscription != nil {
		state.eventStream.Unsubscribe(state.subscription)
		state.subscription = nil
	}
}

// notifyObservers hands account lifecycle events to the discovery and
// metrics actors.
func (state *MasterOfPuppetsActor) notifyObservers(ctx actor.Context, msg any) {
	if state.haDiscoveryActor != nil {
		ctx.Send(state.haDiscoveryActor, msg)
	}
	if state.metricsActor != nil {
		ctx.Send(state.metricsActor, msg)
	}
}

func (state *MasterOfPuppetsActor) ownerOf(objectId string) (*actor.PID, bool) {
	entryId, ok := state.owners[objectId]
	if !ok {
		return nil, false
	}
	pid, ok := state.accounts[entryId]
	return pid, ok
}

func (state *MasterOfPuppetsActor) forgetOwner(entryId string) {
	for id, owner := range state.owners {
		if owner == entryId {
			delete(state.owners, id)
		}
	}
}

func (state *MasterOfPuppetsActor) startAccountActor(ctx actor.Context, entry domain.ConfigEntry) {
	props := actor.PropsFromProducer(func() actor.Actor {
		return state.accountProvider(entry, state.eventStream)
	})
	// a reloaded entry may still have its previous actor stopping
	pid := ctx.SpawnPrefix(props, fmt.Sprintf("%s-%s-", domain.ACTOR_ID_ACCOUNT_PREFIX, entry.Id))
	state.accounts[entry.Id] = pid
}

func (state *MasterOfPuppetsActor) stopAccountActor(ctx actor.Context, entryId string) bool {
	pid, ok := state.accounts[entryId]
	if !ok {
		return false
	}
	delete(state.accounts, entryId)
	state.forgetOwner(entryId)
	ctx.Stop(pid)
	return true
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {
	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider()
	})
	return ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {
	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.mqttActor, state.baseLogger)
	})
	return ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
}

func (state *MasterOfPuppetsActor) startMetricsActor(ctx actor.Context) (*actor.PID, error) {
	metricsProps := actor.PropsFromProducer(func() actor.Actor {
		return NewMetricsActor(state.recorder, state.eventStream, state.baseLogger)
	})
	return ctx.SpawnNamed(metricsProps, domain.ACTOR_ID_METRICS)
}

func (state *healthCheckResult) allReceived() bool {
	return state.received >= state.expected
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.healthy && state.allReceived(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}

func (state *entitiesQuery) respond(ctx actor.Context) {
	slices.SortFunc(state.entities, func(a, b domain.EntitySnapshot) int {
		return cmp.Or(
			cmp.Compare(a.EntryId, b.EntryId),
			cmp.Compare(a.EntityType, b.EntityType),
			cmp.Compare(a.Id, b.Id),
		)
	})
	if state.respondTo != nil {
		ctx.Send(state.respondTo, domain.GetEntitiesResponse{Entities: state.entities})
	}
}
