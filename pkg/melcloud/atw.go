package melcloud

import (
	"context"
	"fmt"
	"slices"
)

const (
	PROPERTY_TARGET_TANK_TEMPERATURE = "target_tank_temperature"
	PROPERTY_FORCED_HOT_WATER        = "forced_hot_water"
	PROPERTY_ZONE_1_OPERATION_MODE   = "zone_1_operation_mode"
	PROPERTY_ZONE_2_OPERATION_MODE   = "zone_2_operation_mode"

	FLAG_ZONE_1_OPERATION_MODE     = 0x08
	FLAG_ZONE_2_OPERATION_MODE     = 0x10
	FLAG_ZONE_1_TARGET_TEMPERATURE = 0x200000080
	FLAG_ZONE_2_TARGET_TEMPERATURE = 0x800000200
	FLAG_FLOW_TEMPERATURE          = 0x1000000000000
	FLAG_TARGET_TANK_TEMPERATURE   = 0x1000000000020
	FLAG_FORCED_HOT_WATER          = 0x10000

	DEFAULT_TANK_TEMPERATURE_MIN = 40
	DEFAULT_TANK_TEMPERATURE_MAX = 60

	ZONE_OPERATION_MODE_HEAT_THERM = "heat-thermostat"
	ZONE_OPERATION_MODE_HEAT_FLOW  = "heat-flow"
	ZONE_OPERATION_MODE_CURVE      = "curve"
	ZONE_OPERATION_MODE_COOL_THERM = "cool-thermostat"
	ZONE_OPERATION_MODE_COOL_FLOW  = "cool-flow"

	ZONE_STATUS_HEAT = "heat"
	ZONE_STATUS_COOL = "cool"
	ZONE_STATUS_IDLE = "idle"

	STATUS_IDLE       = "idle"
	STATUS_HEAT_WATER = "heat_water"
	STATUS_HEAT_ZONES = "heat_zones"
	STATUS_COOL       = "cool"
	STATUS_DEFROST    = "defrost"
	STATUS_STANDBY    = "standby"
	STATUS_LEGIONELLA = "legionella"
	STATUS_UNKNOWN    = "unknown"
)

const (
	zoneTargetTemperaturePropFormat = "zone_%d_target_temperature"
	zoneHeatFlowPropFormat          = "zone_%d_target_heat_flow_temperature"
	zoneCoolFlowPropFormat          = "zone_%d_target_cool_flow_temperature"
)

var zoneOperationModes = map[int]string{
	0: ZONE_OPERATION_MODE_HEAT_THERM,
	1: ZONE_OPERATION_MODE_HEAT_FLOW,
	2: ZONE_OPERATION_MODE_CURVE,
	3: ZONE_OPERATION_MODE_COOL_THERM,
	4: ZONE_OPERATION_MODE_COOL_FLOW,
}

var atwStatus = map[int]string{
	0: STATUS_IDLE,
	1: STATUS_HEAT_WATER,
	2: STATUS_HEAT_ZONES,
	3: STATUS_COOL,
	4: STATUS_DEFROST,
	5: STATUS_STANDBY,
	6: STATUS_LEGIONELLA,
}

// Status returns the air-to-water unit status.
func (d *Device) Status() string {
	if s, ok := atwStatus[d.intProp("OperationMode")]; ok {
		return s
	}
	return STATUS_UNKNOWN
}

func (d *Device) CanCool() bool {
	return d.confBool("CanCool")
}

func (d *Device) TankTemperature() float64 {
	return d.floatProp("TankWaterTemperature")
}

func (d *Device) TargetTankTemperature() float64 {
	return d.floatProp("SetTankWaterTemperature")
}

func (d *Device) TargetTankTemperatureMin() float64 {
	if v := d.confFloat("MinTankTemperature"); v > 0 {
		return v
	}
	return DEFAULT_TANK_TEMPERATURE_MIN
}

func (d *Device) TargetTankTemperatureMax() float64 {
	if v := d.confFloat("MaxTankTemperature"); v > 0 {
		return v
	}
	return DEFAULT_TANK_TEMPERATURE_MAX
}

func (d *Device) OutsideTemperature() float64 {
	return d.floatProp("OutdoorTemperature")
}

func (d *Device) ForcedHotWater() bool {
	return d.boolProp("ForcedHotWaterMode")
}

// Zones returns the heating zones of an air-to-water device: zone 1 always,
// zone 2 when the installation has one.
func (d *Device) Zones() []*Zone {
	if d.conf.Type != DEVICE_TYPE_ATW {
		return nil
	}
	zones := []*Zone{{device: d, index: 1}}
	if d.confBool("HasZone2") {
		zones = append(zones, &Zone{device: d, index: 2})
	}
	return zones
}

// Zone is a heating zone of an air-to-water device. It reads from and writes
// through its parent device.
type Zone struct {
	device *Device
	index  int
}

func (z *Zone) Index() int {
	return z.index
}

func (z *Zone) Device() *Device {
	return z.device
}

func (z *Zone) Name() string {
	if name := z.device.confString(fmt.Sprintf("Zone%dName", z.index)); name != "" {
		return name
	}
	return fmt.Sprintf("Zone %d", z.index)
}

func (z *Zone) key(format string) string {
	return fmt.Sprintf(format, z.index)
}

func (z *Zone) Status() string {
	if z.device.boolProp(z.key("IdleZone%d")) {
		return ZONE_STATUS_IDLE
	}
	switch z.OperationMode() {
	case ZONE_OPERATION_MODE_COOL_THERM, ZONE_OPERATION_MODE_COOL_FLOW:
		return ZONE_STATUS_COOL
	}
	return ZONE_STATUS_HEAT
}

// OperationMode returns the zone operation mode or "" if unknown.
func (z *Zone) OperationMode() string {
	return zoneOperationModes[z.device.intProp(z.key("OperationModeZone%d"))]
}

func (z *Zone) OperationModes() []string {
	modes := []string{ZONE_OPERATION_MODE_HEAT_THERM, ZONE_OPERATION_MODE_HEAT_FLOW, ZONE_OPERATION_MODE_CURVE}
	if z.device.CanCool() {
		modes = append(modes, ZONE_OPERATION_MODE_COOL_THERM, ZONE_OPERATION_MODE_COOL_FLOW)
	}
	return modes
}

func (z *Zone) RoomTemperature() float64 {
	return z.device.floatProp(z.key("RoomTemperatureZone%d"))
}

func (z *Zone) TargetTemperature() float64 {
	return z.device.floatProp(z.key("SetTemperatureZone%d"))
}

func (z *Zone) FlowTemperature() float64 {
	return z.device.floatProp(z.key("FlowTemperatureZone%d"))
}

func (z *Zone) ReturnTemperature() float64 {
	return z.device.floatProp(z.key("ReturnTemperatureZone%d"))
}

func (z *Zone) TargetHeatFlowTemperature() float64 {
	return z.device.floatProp(z.key("SetHeatFlowTemperatureZone%d"))
}

func (z *Zone) TargetCoolFlowTemperature() float64 {
	return z.device.floatProp(z.key("SetCoolFlowTemperatureZone%d"))
}

// OperationModeProperty is the device property that sets this zone mode.
func (z *Zone) OperationModeProperty() string {
	if z.index == 1 {
		return PROPERTY_ZONE_1_OPERATION_MODE
	}
	return PROPERTY_ZONE_2_OPERATION_MODE
}

func (z *Zone) SetOperationMode(ctx context.Context, mode string) error {
	return z.device.Set(ctx, map[string]any{z.OperationModeProperty(): mode})
}

func (z *Zone) SetTargetTemperature(ctx context.Context, value float64) error {
	return z.device.Set(ctx, map[string]any{z.key(zoneTargetTemperaturePropFormat): value})
}

func (z *Zone) SetTargetHeatFlowTemperature(ctx context.Context, value float64) error {
	return z.device.Set(ctx, map[string]any{z.key(zoneHeatFlowPropFormat): value})
}

func (z *Zone) SetTargetCoolFlowTemperature(ctx context.Context, value float64) error {
	return z.device.Set(ctx, map[string]any{z.key(zoneCoolFlowPropFormat): value})
}

func (d *Device) applyAtwProp(state map[string]any, key string, value any) (int64, error) {
	for _, idx := range []int{1, 2} {
		if idx == 2 && !d.confBool("HasZone2") {
			continue
		}
		switch key {
		case fmt.Sprintf("zone_%d_operation_mode", idx):
			s, err := stringValue(key, value)
			if err != nil {
				return 0, err
			}
			zone := &Zone{device: d, index: idx}
			mode, ok := reverse(zoneOperationModes, s)
			if !ok || !slices.Contains(zone.OperationModes(), s) {
				return 0, fmt.Errorf("invalid zone operation mode %q", s)
			}
			state[fmt.Sprintf("OperationModeZone%d", idx)] = mode
			if idx == 1 {
				return FLAG_ZONE_1_OPERATION_MODE, nil
			}
			return FLAG_ZONE_2_OPERATION_MODE, nil
		case fmt.Sprintf(zoneTargetTemperaturePropFormat, idx):
			f, err := floatValue(key, value)
			if err != nil {
				return 0, err
			}
			state[fmt.Sprintf("SetTemperatureZone%d", idx)] = d.roundTemperature(f)
			if idx == 1 {
				return FLAG_ZONE_1_TARGET_TEMPERATURE, nil
			}
			return FLAG_ZONE_2_TARGET_TEMPERATURE, nil
		case fmt.Sprintf(zoneHeatFlowPropFormat, idx):
			f, err := floatValue(key, value)
			if err != nil {
				return 0, err
			}
			state[fmt.Sprintf("SetHeatFlowTemperatureZone%d", idx)] = d.roundTemperature(f)
			return FLAG_FLOW_TEMPERATURE, nil
		case fmt.Sprintf(zoneCoolFlowPropFormat, idx):
			f, err := floatValue(key, value)
			if err != nil {
				return 0, err
			}
			state[fmt.Sprintf("SetCoolFlowTemperatureZone%d", idx)] = d.roundTemperature(f)
			return FLAG_FLOW_TEMPERATURE, nil
		}
	}

	switch key {
	case PROPERTY_POWER:
		b, err := boolValue(key, value)
		if err != nil {
			return 0, err
		}
		state["Power"] = b
		return FLAG_POWER, nil
	case PROPERTY_TARGET_TANK_TEMPERATURE:
		f, err := floatValue(key, value)
		if err != nil {
			return 0, err
		}
		state["SetTankWaterTemperature"] = d.roundTemperature(f)
		return FLAG_TARGET_TANK_TEMPERATURE, nil
	case PROPERTY_FORCED_HOT_WATER:
		b, err := boolValue(key, value)
		if err != nil {
			return 0, err
		}
		state["ForcedHotWaterMode"] = b
		return FLAG_FORCED_HOT_WATER, nil
	}
	return 0, fmt.Errorf("unsupported atw property %q", key)
}
