package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE       = "bridge"
	ENTITY_TYPE_CLIMATE          = "climate"
	ENTITY_TYPE_WATER_HEATER     = "water_heater"
	ENTITY_TYPE_SENSOR           = "sensor"
	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_ENERGY          = "energy"
	DEVICE_CLASS_TEMPERATURE     = "temperature"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
	MANUFACTURER_MITSUBISHI      = "Mitsubishi Electric"
)

var objectIdInvalidChars = regexp.MustCompile("[^a-z0-9_]+")

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("melcloud_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "MELCloud2MQTT",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("MELCloud %s", md5HashShort(baseTopic)),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{
		{
			Device:           bridgeDevice,
			Id:               SENSOR_ID_BRIDGE_STATE,
			SensorType:       SENSOR_TYPE_BINARY,
			Name:             "Bridge state",
			DeviceClass:      DEVICE_CLASS_CONNECTIVITY,
			EntityCategory:   ENTITY_CLASS_DIAGNOSTIC,
			EnabledByDefault: optionalBool(true),
			UniqueId:         uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
		},
	}
}

// ObjectId turns a unique id into an id usable as an MQTT topic level and a
// discovery object id.
func ObjectId(uid string) string {
	id := objectIdInvalidChars.ReplaceAllString(strings.ToLower(uid), "_")
	return strings.Trim(id, "_")
}

func uniqueId(baseId string, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	return md5Hash(text)[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}
