package actor

import (
	"testing"
	"time"

	adactor "github.com/berfenger/melcloud2mqtt/internal/adapter/actor"
	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/internal/util"
	"github.com/berfenger/melcloud2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func climate(uid string) domain.GenericClimate {
	return domain.GenericClimate{Id: domain.ObjectId(uid), UniqueId: uid, Name: uid}
}

func TestHADiscoveryActor(t *testing.T) {
	cfg := util.LoadTestConfig()
	logger := zap.NewNop()
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	published := &eventRecorder{}
	mqttPID := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewTestMQTTActor(&cfg, logger, published.record)
	}))
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&cfg, mqttPID, logger)
	}))
	defer as.Root.Stop(pid)

	// bridge sensors first
	require.Eventually(t, func() bool {
		return len(eventsOf[domain.PublishDiscoveryRequest](published)) == 1
	}, 2*time.Second, 10*time.Millisecond)
	bridge := eventsOf[domain.PublishDiscoveryRequest](published)[0]
	assert.NotEmpty(t, bridge.Sensors)
	assert.Empty(t, bridge.Climates)

	as.Root.Send(pid, domain.AccountEntitiesEvent{
		EntryId:  "entry1",
		Climates: []domain.GenericClimate{climate("a-1"), climate("b-2")},
	})
	as.Root.Send(pid, domain.AccountEntitiesEvent{
		EntryId:  "entry1",
		Climates: []domain.GenericClimate{climate("a-1")},
	})

	require.Eventually(t, func() bool {
		return len(eventsOf[domain.PublishDiscoveryRequest](published)) == 3
	}, 2*time.Second, 10*time.Millisecond)
	removed := eventsOf[domain.RemoveDiscoveryRequest](published)
	require.Len(t, removed, 1)
	require.Len(t, removed[0].Climates, 1)
	assert.Equal(t, "b-2", removed[0].Climates[0].UniqueId)

	as.Root.Send(pid, domain.AccountRemovedEvent{EntryId: "entry1"})
	require.Eventually(t, func() bool {
		return len(eventsOf[domain.RemoveDiscoveryRequest](published)) == 2
	}, 2*time.Second, 10*time.Millisecond)
	removed = eventsOf[domain.RemoveDiscoveryRequest](published)
	require.Len(t, removed[1].Climates, 1)
	assert.Equal(t, "a-1", removed[1].Climates[0].UniqueId)

	// unknown entries are ignored
	as.Root.Send(pid, domain.AccountRemovedEvent{EntryId: "entry1"})
	resp := healthOf(t, as, pid)
	assert.True(t, resp.Healthy)
	assert.Len(t, eventsOf[domain.RemoveDiscoveryRequest](published), 2)
}

func TestDiscoveryRemoved(t *testing.T) {
	previous := domain.AccountEntitiesEvent{
		Sensors:      []domain.GenericSensor{{UniqueId: "s1"}, {UniqueId: "s2"}},
		WaterHeaters: []domain.GenericWaterHeater{{UniqueId: "w1"}},
	}
	assert.Nil(t, discoveryRemoved(previous, previous))

	removed := discoveryRemoved(previous, domain.AccountEntitiesEvent{
		Sensors: []domain.GenericSensor{{UniqueId: "s2"}},
	})
	require.NotNil(t, removed)
	assert.Equal(t, []domain.GenericSensor{{UniqueId: "s1"}}, removed.Sensors)
	assert.Equal(t, []domain.GenericWaterHeater{{UniqueId: "w1"}}, removed.WaterHeaters)
	assert.Empty(t, removed.Climates)
}
