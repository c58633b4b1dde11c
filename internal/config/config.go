package config

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

const (
	TEMPERATURE_UNIT_CELSIUS    = "celsius"
	TEMPERATURE_UNIT_FAHRENHEIT = "fahrenheit"
)

type Config struct {
	LogLevel zapcore.Level
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	MELCloud MELCloudConfig `mapstructure:"melcloud"`
	Units    UnitsConfig    `mapstructure:"units"`
	Entries  EntriesConfig  `mapstructure:"entries"`
	Port     uint           `mapstructure:"port"`
	HttpLog  bool           `mapstructure:"http_log"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

// MELCloudConfig holds the vendor endpoint and, optionally, an account to
// import at startup.
type MELCloudConfig struct {
	BaseURL                string `mapstructure:"base_url"`
	Email                  string
	Password               string
	Token                  string
	PollIntervalSeconds    uint32 `mapstructure:"poll_interval_seconds"`
	LoginTimeoutMillis     uint32 `mapstructure:"login_timeout_millis"`
	RefreshIntervalMinutes uint32 `mapstructure:"refresh_interval_minutes"`
}

type UnitsConfig struct {
	TemperatureUnit string `mapstructure:"temperature_unit"`
}

type EntriesConfig struct {
	Path string
}

func (c MELCloudConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c MELCloudConfig) LoginTimeout() time.Duration {
	return time.Duration(c.LoginTimeoutMillis) * time.Millisecond
}

func (c MELCloudConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMinutes) * time.Minute
}

// HasImport reports whether an account is configured in the config file.
func (c MELCloudConfig) HasImport() bool {
	return c.Email != "" && (c.Token != "" || c.Password != "")
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

func CheckTemperatureUnit(unit string) (string, error) {
	switch lower := strings.ToLower(unit); lower {
	case TEMPERATURE_UNIT_CELSIUS, TEMPERATURE_UNIT_FAHRENHEIT:
		return lower, nil
	}
	return "", errors.New("invalid temperature unit. must be celsius or fahrenheit")
}
