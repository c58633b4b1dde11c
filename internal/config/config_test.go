package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckMQTTTopic(t *testing.T) {
	topic, err := CheckMQTTTopic("MELCloud_1")
	require.NoError(t, err)
	assert.Equal(t, "melcloud_1", topic)

	_, err = CheckMQTTTopic("mel/cloud")
	assert.Error(t, err)
	_, err = CheckMQTTTopic("")
	assert.Error(t, err)
}

func TestCheckTemperatureUnit(t *testing.T) {
	unit, err := CheckTemperatureUnit("Fahrenheit")
	require.NoError(t, err)
	assert.Equal(t, TEMPERATURE_UNIT_FAHRENHEIT, unit)

	_, err = CheckTemperatureUnit("kelvin")
	assert.Error(t, err)
}

func TestMELCloudDurations(t *testing.T) {
	cfg := MELCloudConfig{
		PollIntervalSeconds:    60,
		LoginTimeoutMillis:     10000,
		RefreshIntervalMinutes: 5,
	}
	assert.Equal(t, time.Minute, cfg.PollInterval())
	assert.Equal(t, 10*time.Second, cfg.LoginTimeout())
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval())

	assert.False(t, cfg.HasImport())
	cfg.Email = "user@example.com"
	assert.False(t, cfg.HasImport())
	cfg.Token = "tok"
	assert.True(t, cfg.HasImport())
}
