package domain

import "fmt"

type SensorUpdateEventMixIn struct {
	Id string `json:"-"`
}

type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

type TextSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value string
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

// EntityAvailabilityUpdateEvent reports the availability of one entity.
type EntityAvailabilityUpdateEvent struct {
	SensorUpdateEventMixIn
	EntityType string
	Value      bool
}

// ClimateStateUpdateEvent is published as a single JSON state document.
type ClimateStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Mode               string         `json:"mode"`
	CurrentTemperature *float64       `json:"current_temperature,omitempty"`
	TargetTemperature  *float64       `json:"temperature,omitempty"`
	FanMode            string         `json:"fan_mode,omitempty"`
	SwingMode          string         `json:"swing_mode,omitempty"`
	Attributes         map[string]any `json:"attributes,omitempty"`
}

type WaterHeaterStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Mode               string         `json:"mode"`
	CurrentTemperature *float64       `json:"current_temperature,omitempty"`
	TargetTemperature  *float64       `json:"temperature,omitempty"`
	Attributes         map[string]any `json:"attributes,omitempty"`
}
