package events

import (
	"context"
	"testing"

	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/internal/core/entity"
	"github.com/berfenger/melcloud2mqtt/pkg/melcloud"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEntities(t *testing.T) *entity.Entities {
	cloud := melcloud.NewTestCloud()
	devices, err := cloud.GetDevices(context.Background(), melcloud.TEST_TOKEN)
	require.NoError(t, err)
	return entity.BuildEntities(devices, entity.TEMP_CELSIUS, zap.NewNop())
}

func TestEntitiesDiscovery(t *testing.T) {
	bridge := domain.BridgeDevice("melcloud")
	sensors, climates, waterHeaters := EntitiesDiscovery(testEntities(t), bridge)

	require.Len(t, climates, 7)
	require.Len(t, waterHeaters, 1)
	require.Len(t, sensors, 6)

	ata := climates[0]
	assert.Equal(t, domain.MANUFACTURER_MITSUBISHI, ata.Device.Manufacturer)
	assert.Equal(t, bridge.Id, ata.Device.ViaDevice)
	assert.Equal(t, []string{"auto", "1", "2", "3"}, ata.FanModes)
	assert.Equal(t, entity.TEMP_CELSIUS, ata.TemperatureUnit)

	// the ATA sensors only reference the device
	assert.Equal(t, ata.Device.Id, sensors[0].Device.Id)
	assert.Empty(t, sensors[0].Device.Manufacturer)

	assert.Equal(t, 0.1, waterHeaters[0].Precision)
	assert.Equal(t, []string{"heat"}, waterHeaters[0].Modes)
}

func TestEntitiesToUpdateEvents(t *testing.T) {
	evts := EntitiesToUpdateEvents(testEntities(t))

	var climateEvents []domain.ClimateStateUpdateEvent
	var floatEvents []domain.FloatSensorUpdateEvent
	availability := 0
	for _, evt := range evts {
		switch e := evt.(type) {
		case domain.ClimateStateUpdateEvent:
			climateEvents = append(climateEvents, e)
		case domain.FloatSensorUpdateEvent:
			floatEvents = append(floatEvents, e)
		case domain.EntityAvailabilityUpdateEvent:
			assert.True(t, e.Value)
			availability++
		}
	}
	assert.Len(t, climateEvents, 7)
	assert.Len(t, floatEvents, 6)
	assert.Equal(t, 14, availability)

	ata := climateEvents[0]
	assert.Equal(t, entity.HVAC_MODE_HEAT, ata.Mode)
	assert.Equal(t, 21.5, *ata.CurrentTemperature)
	assert.Equal(t, "swing", ata.SwingMode)
}

func TestEntitiesSnapshot(t *testing.T) {
	snapshots := EntitiesSnapshot("entry-1", testEntities(t))

	require.Len(t, snapshots, 14)
	for _, s := range snapshots {
		assert.Equal(t, "entry-1", s.EntryId)
		assert.Equal(t, domain.ObjectId(s.UniqueId), s.Id)
	}
}
