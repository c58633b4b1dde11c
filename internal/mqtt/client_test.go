package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/berfenger/melcloud2mqtt/internal/config"
	"github.com/berfenger/melcloud2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *MQTTClient {
	return newMQTTClient(config.MQTTConfig{BaseTopic: "melcloud", HADiscoveryTopic: "homeassistant"}, nil)
}

func TestEntityCommandParse(t *testing.T) {
	client := testClient()

	cmd, err := client.parseEntityCommand("melcloud/climate/ata0001_aa_bb_cc_00_00_01/mode/set", "heat")
	require.NoError(t, err)
	assert.Equal(t, ParsedMQTTCommand{
		DeviceId: "ata0001_aa_bb_cc_00_00_01",
		Command:  domain.ENTITY_TYPE_CLIMATE,
		Param:    domain.COMMAND_MODE,
		Payload:  "heat",
	}, *cmd)

	cmd, err = client.parseEntityCommand("melcloud/water_heater/atw_water_heater/temperature/set", "50")
	require.NoError(t, err)
	assert.Equal(t, domain.ENTITY_TYPE_WATER_HEATER, cmd.Command)
	assert.Equal(t, domain.COMMAND_TEMPERATURE, cmd.Param)
}

func TestEntityCommandParseFail(t *testing.T) {
	client := testClient()

	for _, topic := range []string{
		"melcloud/climate/ata/state",
		"melcloud/sensor/ata_energy/value/set",
		"other/climate/ata/mode/set",
		"melcloud/climate/ata/mode/set/extra",
		"melcloud/bridge/state",
	} {
		_, err := client.parseEntityCommand(topic, "x")
		assert.ErrorIs(t, err, ErrInvalidCommand, topic)
	}
}

func TestEntityCommandParseQuotesBaseTopic(t *testing.T) {
	client := newMQTTClient(config.MQTTConfig{BaseTopic: "a.b"}, nil)

	_, err := client.parseEntityCommand("aXb/climate/ata/mode/set", "heat")
	assert.ErrorIs(t, err, ErrInvalidCommand)
	_, err = client.parseEntityCommand("a.b/climate/ata/mode/set", "heat")
	assert.NoError(t, err)
}

func TestTopics(t *testing.T) {
	client := testClient()

	assert.Equal(t, "melcloud/bridge/state", client.BridgeStateTopic())
	assert.Equal(t, "melcloud/climate/x/state", client.ClimateStateTopic("x"))
	assert.Equal(t, "melcloud/water_heater/x/state", client.WaterHeaterStateTopic("x"))
	assert.Equal(t, "melcloud/sensor/x/availability", client.AvailabilityTopic(domain.ENTITY_TYPE_SENSOR, "x"))
	assert.Equal(t, "melcloud/climate/x/fan_mode/set", client.EntityCommandTopic(domain.ENTITY_TYPE_CLIMATE, "x", domain.COMMAND_FAN_MODE))
	assert.Equal(t, "melcloud/+/+/+/set", client.commandTopic())
}

func TestClimateDiscoveryMessage(t *testing.T) {
	client := testClient()
	climate := domain.GenericClimate{
		Device:          domain.Device{Id: "aa:bb:cc:00:00:01-ATA0001", Name: "Living Room"},
		Id:              "ata0001_aa_bb_cc_00_00_01",
		Name:            "Living Room",
		UniqueId:        "ATA0001-aa:bb:cc:00:00:01",
		Modes:           []string{"off", "heat", "cool"},
		FanModes:        []string{"auto", "1", "2"},
		MinTemp:         10,
		MaxTemp:         31,
		TempStep:        0.5,
		Precision:       0.1,
		TemperatureUnit: "°C",
	}

	assert.Equal(t, "homeassistant/climate/aa_bb_cc_00_00_01_ata0001/ata0001_aa_bb_cc_00_00_01/config", client.HADiscoveryClimateTopic(climate))

	msg := GenericClimateToHADiscoveryMessage(client, climate)
	assert.Equal(t, "melcloud/climate/ata0001_aa_bb_cc_00_00_01/mode/set", msg.ModeCommandTopic)
	assert.Equal(t, "melcloud/climate/ata0001_aa_bb_cc_00_00_01/state", msg.ModeStateTopic)
	assert.Equal(t, "{{ value_json.mode }}", msg.ModeStateTemplate)
	assert.Equal(t, "melcloud/climate/ata0001_aa_bb_cc_00_00_01/fan_mode/set", msg.FanModeCommandTopic)
	assert.Empty(t, msg.SwingModeCommandTopic)
	assert.Equal(t, "C", msg.TemperatureUnit)
	assert.Equal(t, availabilityModeAll, msg.AvMode)
	require.Len(t, msg.Availability, 2)
	assert.Equal(t, "melcloud/bridge/state", msg.Availability[0].Topic)
	assert.Equal(t, "melcloud/climate/ata0001_aa_bb_cc_00_00_01/availability", msg.Availability[1].Topic)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.NotContains(t, doc, "swing_modes")
	assert.Equal(t, 10.0, doc["min_temp"])
}

func TestWaterHeaterDiscoveryMessage(t *testing.T) {
	client := testClient()
	msg := GenericWaterHeaterToHADiscoveryMessage(client, domain.GenericWaterHeater{
		Device:          domain.Device{Id: "dev"},
		Id:              "atw_water_heater",
		Modes:           []string{"off", "heat_pump"},
		MinTemp:         40,
		MaxTemp:         60,
		TemperatureUnit: "°F",
	})

	assert.Equal(t, "melcloud/water_heater/atw_water_heater/temperature/set", msg.TemperatureCommandTopic)
	assert.Equal(t, "melcloud/water_heater/atw_water_heater/power/set", msg.PowerCommandTopic)
	assert.Equal(t, "F", msg.TemperatureUnit)
}

func TestSensorDiscoveryMessage(t *testing.T) {
	client := testClient()

	bridge := GenericSensorToHADiscoveryMessage(client, domain.BridgeSensors(domain.BridgeDevice("melcloud"))[0])
	assert.Equal(t, "melcloud/bridge/state", bridge.StateTopic)
	assert.Equal(t, "melcloud/bridge/state", bridge.AvTopic)
	assert.Equal(t, MQTT_PAYLOAD_ONLINE, bridge.PayloadOn)
	assert.Empty(t, bridge.Availability)

	sensor := GenericSensorToHADiscoveryMessage(client, domain.GenericSensor{
		Device:       domain.Device{Id: "dev"},
		Id:           "ata_energy",
		SensorType:   domain.SENSOR_TYPE_SENSOR,
		Availability: true,
	})
	assert.Equal(t, "melcloud/sensor/ata_energy/state", sensor.StateTopic)
	assert.Empty(t, sensor.AvTopic)
	require.Len(t, sensor.Availability, 2)
	assert.Equal(t, "melcloud/sensor/ata_energy/availability", sensor.Availability[1].Topic)
}
