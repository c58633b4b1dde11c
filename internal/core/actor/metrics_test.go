package actor

import (
	"sync"
	"testing"
	"time"

	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRecorder struct {
	mu        sync.Mutex
	accounts  int
	available map[string]bool
	sensors   map[string]float64
	commands  int
	polls     int
	forgotten []string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{available: map[string]bool{}, sensors: map[string]float64{}}
}

func (r *fakeRecorder) SetAccounts(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = count
}

func (r *fakeRecorder) SetEntityAvailable(entityType, id string, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.available[id] = available
}

func (r *fakeRecorder) SetClimateTemperatures(id string, current, target *float64) {}

func (r *fakeRecorder) SetSensorValue(id string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sensors[id] = value
}

func (r *fakeRecorder) ObserveCommand(entityType, command string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands++
}

func (r *fakeRecorder) ObservePoll(entryId string, duration time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls++
}

func (r *fakeRecorder) ForgetEntities(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forgotten = append(r.forgotten, ids...)
}

type recorderCounts struct {
	accounts  int
	commands  int
	polls     int
	forgotten []string
}

func (r *fakeRecorder) snapshot() recorderCounts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return recorderCounts{
		accounts:  r.accounts,
		commands:  r.commands,
		polls:     r.polls,
		forgotten: append([]string(nil), r.forgotten...),
	}
}

func TestMetricsActor(t *testing.T) {
	logger := zap.NewNop()
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()
	es := &eventstream.EventStream{}
	recorder := newFakeRecorder()

	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewMetricsActor(recorder, es, logger)
	}))
	defer as.Root.Stop(pid)

	// subscription is in place once the actor answers
	resp := healthOf(t, as, pid)
	assert.Equal(t, domain.ACTOR_ID_METRICS, resp.Id)

	as.Root.Send(pid, domain.AccountEntitiesEvent{
		EntryId:  "entry1",
		Sensors:  []domain.GenericSensor{{Id: "s1"}, {Id: "s2"}},
		Climates: []domain.GenericClimate{{Id: "c1"}},
	})
	es.Publish(domain.FloatSensorUpdateEvent{SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: "s1"}, Value: 4.2})
	es.Publish(domain.EntityAvailabilityUpdateEvent{SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: "c1"}, EntityType: domain.ENTITY_TYPE_CLIMATE, Value: true})
	es.Publish(domain.CommandResultEvent{EntryId: "entry1", EntityType: domain.ENTITY_TYPE_CLIMATE, Command: domain.COMMAND_MODE})
	es.Publish(domain.PollResultEvent{EntryId: "entry1", Duration: time.Second})

	require.Eventually(t, func() bool {
		s := recorder.snapshot()
		return s.accounts == 1 && s.commands == 1 && s.polls == 1
	}, time.Second, 10*time.Millisecond)

	recorder.mu.Lock()
	assert.Equal(t, 4.2, recorder.sensors["s1"])
	assert.True(t, recorder.available["c1"])
	recorder.mu.Unlock()

	as.Root.Send(pid, domain.AccountEntitiesEvent{
		EntryId:  "entry1",
		Sensors:  []domain.GenericSensor{{Id: "s1"}},
		Climates: []domain.GenericClimate{{Id: "c1"}},
	})
	as.Root.Send(pid, domain.AccountRemovedEvent{EntryId: "entry1"})

	require.Eventually(t, func() bool {
		s := recorder.snapshot()
		return s.accounts == 0 && len(s.forgotten) == 3
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"s2", "s1", "c1"}, recorder.snapshot().forgotten)
}
