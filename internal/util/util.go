package util

import (
	"github.com/berfenger/melcloud2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		MQTT: config.MQTTConfig{
			Host:              "localhost",
			Port:              1883,
			BaseTopic:         "melcloud",
			HADiscoveryEnable: true,
			HADiscoveryTopic:  "homeassistant",
		},
		MELCloud: config.MELCloudConfig{
			PollIntervalSeconds:    60,
			LoginTimeoutMillis:     2000,
			RefreshIntervalMinutes: 5,
		},
		Units: config.UnitsConfig{
			TemperatureUnit: config.TEMPERATURE_UNIT_CELSIUS,
		},
		Port: 8080,
	}
}
