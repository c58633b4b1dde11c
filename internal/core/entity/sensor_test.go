package entity

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/pkg/melcloud"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtaSensors(t *testing.T) {
	api := newTestDevice(melcloud.NewTestCloud(), melcloud.TestATAConf(), melcloud.UNIT_TEMP_FAHRENHEIT)
	sensors := NewSensors(api)
	require.Len(t, sensors, 2)

	room, energy := sensors[0], sensors[1]
	assert.Equal(t, "Living Room Room Temperature", room.Name())
	assert.Equal(t, TEMP_FAHRENHEIT, room.Unit())
	require.NotNil(t, room.State())
	assert.Equal(t, 21.5, *room.State())

	assert.Equal(t, "kWh", energy.Unit())
	assert.Equal(t, domain.STATE_CLASS_TOTAL_INCREASING, energy.Description.StateClass)
	require.NotNil(t, energy.State())
	assert.InDelta(t, 123.4, *energy.State(), 0.0001)
	assert.True(t, energy.Available())
}

func TestSensorUniqueIdsDifferBySuffix(t *testing.T) {
	api := newTestDevice(melcloud.NewTestCloud(), melcloud.TestATAConf(), "")
	sensors := NewSensors(api)

	prefix := fmt.Sprintf("%s-%s-", melcloud.TEST_ATA_SERIAL, melcloud.TEST_ATA_MAC)
	seen := map[string]bool{}
	for _, s := range sensors {
		id := s.UniqueID()
		require.True(t, strings.HasPrefix(id, prefix), id)
		suffix := strings.TrimPrefix(id, prefix)
		assert.Equal(t, s.Description.Key, suffix)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestEnergySensorWithoutMeter(t *testing.T) {
	conf := melcloud.TestATAConf()
	conf.Device["HasEnergyConsumedMeter"] = false
	energy := NewSensors(newTestDevice(melcloud.NewTestCloud(), conf, ""))[1]

	assert.False(t, energy.Available())
	assert.Nil(t, energy.State())
}

func TestAtwSensors(t *testing.T) {
	api := newTestDevice(melcloud.NewTestCloud(), melcloud.TestATWConf(), "")
	sensors := NewSensors(api)
	require.Len(t, sensors, 4)

	prefix := fmt.Sprintf("%s-%s-", melcloud.TEST_ATW_SERIAL, melcloud.TEST_ATW_MAC)
	assert.Equal(t, prefix+"outside_temperature", sensors[0].UniqueID())
	assert.Equal(t, 6.0, *sensors[0].State())
	assert.Equal(t, prefix+"tank_temperature", sensors[1].UniqueID())
	assert.Equal(t, 47.5, *sensors[1].State())

	zone2 := sensors[3]
	assert.Equal(t, prefix+"zone2-room_temperature", zone2.UniqueID())
	assert.Equal(t, "Heat Pump Zone 2 Room Temperature", zone2.Name())
	assert.Equal(t, 19.0, *zone2.State())
	assert.True(t, zone2.Available())
	assert.Equal(t, TEMP_CELSIUS, zone2.Unit())
}

func TestWaterHeater(t *testing.T) {
	cloud := melcloud.NewTestCloud()
	api := newTestDevice(cloud, melcloud.TestATWConf(), "")
	heaters := NewWaterHeaters(api, TEMP_CELSIUS)
	require.Len(t, heaters, 1)
	w := heaters[0]

	assert.Equal(t, fmt.Sprintf("%s-%s-water_heater", melcloud.TEST_ATW_SERIAL, melcloud.TEST_ATW_MAC), w.UniqueID())
	assert.Equal(t, WATER_HEATER_OPERATION_HEAT, w.CurrentOperation())
	assert.Equal(t, []string{WATER_HEATER_OPERATION_HEAT}, w.OperationList())
	assert.Equal(t, 47.5, w.CurrentTemperature())
	assert.Equal(t, 50.0, w.TargetTemperature())
	assert.Equal(t, 40.0, w.MinTemp())
	assert.Equal(t, 60.0, w.MaxTemp())
	assert.Equal(t, melcloud.STATUS_HEAT_ZONES, w.Attributes()[ATTR_STATUS])

	require.NoError(t, w.SetTemperature(context.Background(), 55))
	calls := cloud.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(melcloud.FLAG_TARGET_TANK_TEMPERATURE), calls[0].State["EffectiveFlags"])
	assert.Equal(t, 55.0, w.TargetTemperature())

	assert.ErrorIs(t, w.SetOperationMode(context.Background(), "eco"), domain.ErrNotImplemented)
	assert.ErrorIs(t, w.TurnAwayModeOn(context.Background()), domain.ErrNotImplemented)
	assert.ErrorIs(t, w.TurnAwayModeOff(context.Background()), domain.ErrNotImplemented)
	assert.Len(t, cloud.Calls(), 1)
}

func TestWaterHeaterPrecision(t *testing.T) {
	api := newTestDevice(melcloud.NewTestCloud(), melcloud.TestATWConf(), "")

	assert.Equal(t, 0.1, NewWaterHeaters(api, TEMP_CELSIUS)[0].Precision())
	assert.Equal(t, 1.0, NewWaterHeaters(api, TEMP_FAHRENHEIT)[0].Precision())
	assert.Empty(t, NewWaterHeaters(newTestDevice(melcloud.NewTestCloud(), melcloud.TestATAConf(), ""), TEMP_CELSIUS))
}
