package mqtt

import (
	"fmt"
	"strings"

	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
)

const (
	jsonAttributesTemplate = "{{ value_json.attributes | tojson }}"
	availabilityModeAll    = "all"
)

type HADiscoveryAvailability struct {
	Topic string `json:"topic"`
}

type HADiscoveryConfig struct {
	Device            HADiscoveryDevice         `json:"device"`
	StateTopic        string                    `json:"state_topic"`
	CommandTopic      string                    `json:"command_topic,omitempty"`
	StateClass        string                    `json:"state_class,omitempty"`
	DeviceClass       string                    `json:"device_class,omitempty"`
	UnitOfMeasurement string                    `json:"unit_of_measurement,omitempty"`
	AvTopic           string                    `json:"availability_topic,omitempty"`
	Availability      []HADiscoveryAvailability `json:"availability,omitempty"`
	AvMode            string                    `json:"availability_mode,omitempty"`
	EntityCategory    string                    `json:"entity_category,omitempty"`
	Name              string                    `json:"name"`
	UniqueId          string                    `json:"unique_id"`
	ObjectId          string                    `json:"object_id,omitempty"`
	Platform          string                    `json:"platform"`
	EnabledByDefault  *bool                     `json:"enabled_by_default,omitempty"`
	PayloadOn         string                    `json:"payload_on,omitempty"`
	PayloadOff        string                    `json:"payload_off,omitempty"`
	Icon              string                    `json:"icon,omitempty"`
}

// HAClimateDiscoveryConfig describes an MQTT climate. Every state template
// reads from the single JSON state document of the entity.
type HAClimateDiscoveryConfig struct {
	Device                     HADiscoveryDevice         `json:"device"`
	Name                       string                    `json:"name"`
	UniqueId                   string                    `json:"unique_id"`
	ObjectId                   string                    `json:"object_id"`
	Platform                   string                    `json:"platform"`
	Icon                       string                    `json:"icon,omitempty"`
	Availability               []HADiscoveryAvailability `json:"availability"`
	AvMode                     string                    `json:"availability_mode"`
	Modes                      []string                  `json:"modes"`
	ModeCommandTopic           string                    `json:"mode_command_topic"`
	ModeStateTopic             string                    `json:"mode_state_topic"`
	ModeStateTemplate          string                    `json:"mode_state_template"`
	TemperatureCommandTopic    string                    `json:"temperature_command_topic"`
	TemperatureStateTopic      string                    `json:"temperature_state_topic"`
	TemperatureStateTemplate   string                    `json:"temperature_state_template"`
	CurrentTemperatureTopic    string                    `json:"current_temperature_topic"`
	CurrentTemperatureTemplate string                    `json:"current_temperature_template"`
	FanModes                   []string                  `json:"fan_modes,omitempty"`
	FanModeCommandTopic        string                    `json:"fan_mode_command_topic,omitempty"`
	FanModeStateTopic          string                    `json:"fan_mode_state_topic,omitempty"`
	FanModeStateTemplate       string                    `json:"fan_mode_state_template,omitempty"`
	SwingModes                 []string                  `json:"swing_modes,omitempty"`
	SwingModeCommandTopic      string                    `json:"swing_mode_command_topic,omitempty"`
	SwingModeStateTopic        string                    `json:"swing_mode_state_topic,omitempty"`
	SwingModeStateTemplate     string                    `json:"swing_mode_state_template,omitempty"`
	PowerCommandTopic          string                    `json:"power_command_topic"`
	PayloadOn                  string                    `json:"payload_on"`
	PayloadOff                 string                    `json:"payload_off"`
	JSONAttributesTopic        string                    `json:"json_attributes_topic"`
	JSONAttributesTemplate     string                    `json:"json_attributes_template"`
	MinTemp                    float64                   `json:"min_temp"`
	MaxTemp                    float64                   `json:"max_temp"`
	TempStep                   float64                   `json:"temp_step,omitempty"`
	Precision                  float64                   `json:"precision,omitempty"`
	TemperatureUnit            string                    `json:"temperature_unit,omitempty"`
}

type HAWaterHeaterDiscoveryConfig struct {
	Device                     HADiscoveryDevice         `json:"device"`
	Name                       string                    `json:"name"`
	UniqueId                   string                    `json:"unique_id"`
	ObjectId                   string                    `json:"object_id"`
	Platform                   string                    `json:"platform"`
	Icon                       string                    `json:"icon,omitempty"`
	Availability               []HADiscoveryAvailability `json:"availability"`
	AvMode                     string                    `json:"availability_mode"`
	Modes                      []string                  `json:"modes"`
	ModeCommandTopic           string                    `json:"mode_command_topic"`
	ModeStateTopic             string                    `json:"mode_state_topic"`
	ModeStateTemplate          string                    `json:"mode_state_template"`
	TemperatureCommandTopic    string                    `json:"temperature_command_topic"`
	TemperatureStateTopic      string                    `json:"temperature_state_topic"`
	TemperatureStateTemplate   string                    `json:"temperature_state_template"`
	CurrentTemperatureTopic    string                    `json:"current_temperature_topic"`
	CurrentTemperatureTemplate string                    `json:"current_temperature_template"`
	PowerCommandTopic          string                    `json:"power_command_topic"`
	PayloadOn                  string                    `json:"payload_on"`
	PayloadOff                 string                    `json:"payload_off"`
	JSONAttributesTopic        string                    `json:"json_attributes_topic"`
	JSONAttributesTemplate     string                    `json:"json_attributes_template"`
	MinTemp                    float64                   `json:"min_temp"`
	MaxTemp                    float64                   `json:"max_temp"`
	Precision                  float64                   `json:"precision,omitempty"`
	TemperatureUnit            string                    `json:"temperature_unit,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

func (c *MQTTClient) HADiscoverySensorTopic(sensor domain.GenericSensor) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", c.discoveryTopic(), sensor.SensorType, domain.ObjectId(sensor.Device.Id), sensor.Id)
}

func (c *MQTTClient) HADiscoveryClimateTopic(climate domain.GenericClimate) string {
	return fmt.Sprintf("%s/climate/%s/%s/config", c.discoveryTopic(), domain.ObjectId(climate.Device.Id), climate.Id)
}

func (c *MQTTClient) HADiscoveryWaterHeaterTopic(waterHeater domain.GenericWaterHeater) string {
	return fmt.Sprintf("%s/water_heater/%s/%s/config", c.discoveryTopic(), domain.ObjectId(waterHeater.Device.Id), waterHeater.Id)
}

func GenericSensorToHADiscoveryMessage(client *MQTTClient, sensor domain.GenericSensor) HADiscoveryConfig {
	var topic string
	switch {
	case sensor.Id == domain.SENSOR_ID_BRIDGE_STATE:
		topic = client.BridgeStateTopic()
	case sensor.SensorType == domain.SENSOR_TYPE_BINARY:
		topic = client.BinarySensorStateTopic(sensor.Id)
	default:
		topic = client.SensorStateTopic(sensor.Id)
	}
	disConfig := HADiscoveryConfig{
		Device:            device(sensor.Device),
		StateTopic:        topic,
		StateClass:        sensor.StateClass,
		DeviceClass:       sensor.DeviceClass,
		UnitOfMeasurement: sensor.UnitOfMeasurement,
		EntityCategory:    sensor.EntityCategory,
		Name:              sensor.Name,
		UniqueId:          sensor.UniqueId,
		Icon:              sensor.Icon,
		EnabledByDefault:  sensor.EnabledByDefault,
		Platform:          "mqtt",
	}
	if sensor.Availability {
		disConfig.Availability = client.entityAvailability(domain.ENTITY_TYPE_SENSOR, sensor.Id)
		disConfig.AvMode = availabilityModeAll
		disConfig.ObjectId = sensor.Id
	} else {
		disConfig.AvTopic = client.BridgeStateTopic()
	}
	if sensor.Id == domain.SENSOR_ID_BRIDGE_STATE {
		disConfig.PayloadOn = MQTT_PAYLOAD_ONLINE
		disConfig.PayloadOff = MQTT_PAYLOAD_OFFLINE
	} else if sensor.SensorType == domain.SENSOR_TYPE_BINARY {
		disConfig.PayloadOn = MQTT_PAYLOAD_ON
		disConfig.PayloadOff = MQTT_PAYLOAD_OFF
	}
	return disConfig
}

func GenericClimateToHADiscoveryMessage(client *MQTTClient, climate domain.GenericClimate) HAClimateDiscoveryConfig {
	stateTopic := client.ClimateStateTopic(climate.Id)
	cmd := func(command string) string {
		return client.EntityCommandTopic(domain.ENTITY_TYPE_CLIMATE, climate.Id, command)
	}
	disConfig := HAClimateDiscoveryConfig{
		Device:                     device(climate.Device),
		Name:                       climate.Name,
		UniqueId:                   climate.UniqueId,
		ObjectId:                   climate.Id,
		Platform:                   "mqtt",
		Icon:                       climate.Icon,
		Availability:               client.entityAvailability(domain.ENTITY_TYPE_CLIMATE, climate.Id),
		AvMode:                     availabilityModeAll,
		Modes:                      climate.Modes,
		ModeCommandTopic:           cmd(domain.COMMAND_MODE),
		ModeStateTopic:             stateTopic,
		ModeStateTemplate:          valueTemplate("mode"),
		TemperatureCommandTopic:    cmd(domain.COMMAND_TEMPERATURE),
		TemperatureStateTopic:      stateTopic,
		TemperatureStateTemplate:   valueTemplate("temperature"),
		CurrentTemperatureTopic:    stateTopic,
		CurrentTemperatureTemplate: valueTemplate("current_temperature"),
		PowerCommandTopic:          cmd(domain.COMMAND_POWER),
		PayloadOn:                  MQTT_PAYLOAD_ON,
		PayloadOff:                 MQTT_PAYLOAD_OFF,
		JSONAttributesTopic:        stateTopic,
		JSONAttributesTemplate:     jsonAttributesTemplate,
		MinTemp:                    climate.MinTemp,
		MaxTemp:                    climate.MaxTemp,
		TempStep:                   climate.TempStep,
		Precision:                  climate.Precision,
		TemperatureUnit:            haTemperatureUnit(climate.TemperatureUnit),
	}
	if len(climate.FanModes) > 0 {
		disConfig.FanModes = climate.FanModes
		disConfig.FanModeCommandTopic = cmd(domain.COMMAND_FAN_MODE)
		disConfig.FanModeStateTopic = stateTopic
		disConfig.FanModeStateTemplate = valueTemplate("fan_mode")
	}
	if len(climate.SwingModes) > 0 {
		disConfig.SwingModes = climate.SwingModes
		disConfig.SwingModeCommandTopic = cmd(domain.COMMAND_SWING_MODE)
		disConfig.SwingModeStateTopic = stateTopic
		disConfig.SwingModeStateTemplate = valueTemplate("swing_mode")
	}
	return disConfig
}

func GenericWaterHeaterToHADiscoveryMessage(client *MQTTClient, waterHeater domain.GenericWaterHeater) HAWaterHeaterDiscoveryConfig {
	stateTopic := client.WaterHeaterStateTopic(waterHeater.Id)
	cmd := func(command string) string {
		return client.EntityCommandTopic(domain.ENTITY_TYPE_WATER_HEATER, waterHeater.Id, command)
	}
	return HAWaterHeaterDiscoveryConfig{
		Device:                     device(waterHeater.Device),
		Name:                       waterHeater.Name,
		UniqueId:                   waterHeater.UniqueId,
		ObjectId:                   waterHeater.Id,
		Platform:                   "mqtt",
		Icon:                       waterHeater.Icon,
		Availability:               client.entityAvailability(domain.ENTITY_TYPE_WATER_HEATER, waterHeater.Id),
		AvMode:                     availabilityModeAll,
		Modes:                      waterHeater.Modes,
		ModeCommandTopic:           cmd(domain.COMMAND_MODE),
		ModeStateTopic:             stateTopic,
		ModeStateTemplate:          valueTemplate("mode"),
		TemperatureCommandTopic:    cmd(domain.COMMAND_TEMPERATURE),
		TemperatureStateTopic:      stateTopic,
		TemperatureStateTemplate:   valueTemplate("temperature"),
		CurrentTemperatureTopic:    stateTopic,
		CurrentTemperatureTemplate: valueTemplate("current_temperature"),
		PowerCommandTopic:          cmd(domain.COMMAND_POWER),
		PayloadOn:                  MQTT_PAYLOAD_ON,
		PayloadOff:                 MQTT_PAYLOAD_OFF,
		JSONAttributesTopic:        stateTopic,
		JSONAttributesTemplate:     jsonAttributesTemplate,
		MinTemp:                    waterHeater.MinTemp,
		MaxTemp:                    waterHeater.MaxTemp,
		Precision:                  waterHeater.Precision,
		TemperatureUnit:            haTemperatureUnit(waterHeater.TemperatureUnit),
	}
}

// entityAvailability makes an entity available only while both the bridge
// and the entity itself report online.
func (c *MQTTClient) entityAvailability(entityType string, id string) []HADiscoveryAvailability {
	return []HADiscoveryAvailability{
		{Topic: c.BridgeStateTopic()},
		{Topic: c.AvailabilityTopic(entityType, id)},
	}
}

func valueTemplate(key string) string {
	return fmt.Sprintf("{{ value_json.%s }}", key)
}

// haTemperatureUnit converts °C and °F to the C and F expected by MQTT climates.
func haTemperatureUnit(unit string) string {
	return strings.TrimPrefix(unit, "°")
}

func device(d domain.Device) HADiscoveryDevice {
	return HADiscoveryDevice{
		Id:           []string{d.Id},
		Manufacturer: d.Manufacturer,
		Version:      d.Version,
		Model:        d.Model,
		Name:         d.Name,
		ViaDevice:    d.ViaDevice,
	}
}
