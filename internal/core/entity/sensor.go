package entity

import (
	"fmt"

	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/pkg/melcloud"
)

// Handle is what a sensor description is evaluated against. Zone is nil for
// device level sensors.
type Handle struct {
	Device *melcloud.Device
	Zone   *melcloud.Zone
}

type SensorDescription struct {
	Key             string
	MeasurementName string
	Icon            string
	DeviceClass     string
	StateClass      string
	Decimals        uint
	UnitFn          func(h Handle) string
	ValueFn         func(h Handle) *float64
	AvailableFn     func(h Handle) bool
}

func temperatureUnit(h Handle) string {
	return TemperatureUnit(h.Device.TempUnit())
}

func kwh(Handle) string {
	return "kWh"
}

func value(v float64) *float64 {
	return &v
}

var ATA_SENSORS = []SensorDescription{
	{
		Key:             "room_temperature",
		MeasurementName: "Room Temperature",
		Icon:            "mdi:thermometer",
		DeviceClass:     domain.DEVICE_CLASS_TEMPERATURE,
		StateClass:      domain.STATE_CLASS_MEASUREMENT,
		Decimals:        1,
		UnitFn:          temperatureUnit,
		ValueFn:         func(h Handle) *float64 { return value(h.Device.RoomTemperature()) },
	},
	{
		Key:             "energy",
		MeasurementName: "Energy",
		Icon:            "mdi:factory",
		DeviceClass:     domain.DEVICE_CLASS_ENERGY,
		StateClass:      domain.STATE_CLASS_TOTAL_INCREASING,
		Decimals:        3,
		UnitFn:          kwh,
		ValueFn:         func(h Handle) *float64 { return h.Device.TotalEnergyConsumed() },
		AvailableFn:     func(h Handle) bool { return h.Device.HasEnergyConsumedMeter() },
	},
}

var ATW_SENSORS = []SensorDescription{
	{
		Key:             "outside_temperature",
		MeasurementName: "Outside Temperature",
		Icon:            "mdi:thermometer",
		DeviceClass:     domain.DEVICE_CLASS_TEMPERATURE,
		StateClass:      domain.STATE_CLASS_MEASUREMENT,
		Decimals:        1,
		UnitFn:          temperatureUnit,
		ValueFn:         func(h Handle) *float64 { return value(h.Device.OutsideTemperature()) },
	},
	{
		Key:             "tank_temperature",
		MeasurementName: "Tank Temperature",
		Icon:            "mdi:thermometer",
		DeviceClass:     domain.DEVICE_CLASS_TEMPERATURE,
		StateClass:      domain.STATE_CLASS_MEASUREMENT,
		Decimals:        1,
		UnitFn:          temperatureUnit,
		ValueFn:         func(h Handle) *float64 { return value(h.Device.TankTemperature()) },
	},
}

var ATW_ZONE_SENSORS = []SensorDescription{
	{
		Key:             "room_temperature",
		MeasurementName: "Room Temperature",
		Icon:            "mdi:thermometer",
		DeviceClass:     domain.DEVICE_CLASS_TEMPERATURE,
		StateClass:      domain.STATE_CLASS_MEASUREMENT,
		Decimals:        1,
		UnitFn:          temperatureUnit,
		ValueFn:         func(h Handle) *float64 { return value(h.Zone.RoomTemperature()) },
		AvailableFn:     func(h Handle) bool { return len(h.Device.Zones()) >= h.Zone.Index() },
	},
}

type Sensor struct {
	Api         *MelCloudDevice
	Zone        *melcloud.Zone
	Description SensorDescription
}

func (s *Sensor) handle() Handle {
	return Handle{Device: s.Api.Device, Zone: s.Zone}
}

func (s *Sensor) UniqueID() string {
	if s.Zone != nil {
		return s.Api.uniqueId(fmt.Sprintf("zone%d", s.Zone.Index()), s.Description.Key)
	}
	return s.Api.uniqueId(s.Description.Key)
}

func (s *Sensor) Name() string {
	if s.Zone != nil {
		return fmt.Sprintf("%s %s %s", s.Api.Name(), s.Zone.Name(), s.Description.MeasurementName)
	}
	return fmt.Sprintf("%s %s", s.Api.Name(), s.Description.MeasurementName)
}

// State returns nil when the device has no value for the measurement.
func (s *Sensor) State() *float64 {
	return s.Description.ValueFn(s.handle())
}

func (s *Sensor) Unit() string {
	return s.Description.UnitFn(s.handle())
}

func (s *Sensor) Available() bool {
	if !s.Api.Available() {
		return false
	}
	if s.Description.AvailableFn == nil {
		return true
	}
	return s.Description.AvailableFn(s.handle())
}

func NewSensors(api *MelCloudDevice) []*Sensor {
	var sensors []*Sensor
	switch api.Device.Type() {
	case melcloud.DEVICE_TYPE_ATA:
		for _, d := range ATA_SENSORS {
			sensors = append(sensors, &Sensor{Api: api, Description: d})
		}
	case melcloud.DEVICE_TYPE_ATW:
		for _, d := range ATW_SENSORS {
			sensors = append(sensors, &Sensor{Api: api, Description: d})
		}
		for _, zone := range api.Device.Zones() {
			for _, d := range ATW_ZONE_SENSORS {
				sensors = append(sensors, &Sensor{Api: api, Zone: zone, Description: d})
			}
		}
	}
	return sensors
}
