package melcloud

import (
	"fmt"
	"slices"
	"strconv"
)

const (
	PROPERTY_TARGET_TEMPERATURE = "target_temperature"
	PROPERTY_OPERATION_MODE     = "operation_mode"
	PROPERTY_FAN_SPEED          = "fan_speed"
	PROPERTY_VANE_HORIZONTAL    = "vane_horizontal"
	PROPERTY_VANE_VERTICAL      = "vane_vertical"

	FLAG_OPERATION_MODE  = 0x02
	FLAG_TARGET_TEMP     = 0x04
	FLAG_FAN_SPEED       = 0x08
	FLAG_VANE_VERTICAL   = 0x10
	FLAG_VANE_HORIZONTAL = 0x100

	OPERATION_MODE_HEAT      = "heat"
	OPERATION_MODE_DRY       = "dry"
	OPERATION_MODE_COOL      = "cool"
	OPERATION_MODE_FAN_ONLY  = "fan_only"
	OPERATION_MODE_HEAT_COOL = "heat_cool"

	FAN_SPEED_AUTO = "auto"

	V_VANE_POSITION_AUTO  = "auto"
	V_VANE_POSITION_1     = "1_up"
	V_VANE_POSITION_2     = "2"
	V_VANE_POSITION_3     = "3"
	V_VANE_POSITION_4     = "4"
	V_VANE_POSITION_5     = "5_down"
	V_VANE_POSITION_SWING = "swing"

	H_VANE_POSITION_AUTO  = "auto"
	H_VANE_POSITION_1     = "1_left"
	H_VANE_POSITION_2     = "2"
	H_VANE_POSITION_3     = "3"
	H_VANE_POSITION_4     = "4"
	H_VANE_POSITION_5     = "5_right"
	H_VANE_POSITION_SPLIT = "split"
	H_VANE_POSITION_SWING = "swing"
)

var ataOperationModes = map[int]string{
	1: OPERATION_MODE_HEAT,
	2: OPERATION_MODE_DRY,
	3: OPERATION_MODE_COOL,
	7: OPERATION_MODE_FAN_ONLY,
	8: OPERATION_MODE_HEAT_COOL,
}

var vVanePositions = map[int]string{
	0: V_VANE_POSITION_AUTO,
	1: V_VANE_POSITION_1,
	2: V_VANE_POSITION_2,
	3: V_VANE_POSITION_3,
	4: V_VANE_POSITION_4,
	5: V_VANE_POSITION_5,
	7: V_VANE_POSITION_SWING,
}

var hVanePositions = map[int]string{
	0:  H_VANE_POSITION_AUTO,
	1:  H_VANE_POSITION_1,
	2:  H_VANE_POSITION_2,
	3:  H_VANE_POSITION_3,
	4:  H_VANE_POSITION_4,
	5:  H_VANE_POSITION_5,
	8:  H_VANE_POSITION_SPLIT,
	12: H_VANE_POSITION_SWING,
}

func reverse(m map[int]string, value string) (int, bool) {
	for k, v := range m {
		if v == value {
			return k, true
		}
	}
	return 0, false
}

func sortedValues(m map[int]string) []string {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, m[k])
	}
	return values
}

// OperationMode returns the ATA operation mode or "" if unknown.
func (d *Device) OperationMode() string {
	return ataOperationModes[d.intProp("OperationMode")]
}

func (d *Device) OperationModes() []string {
	var modes []string
	if d.confBool("ModelSupportsHeat") {
		modes = append(modes, OPERATION_MODE_HEAT)
	}
	if d.confBool("ModelSupportsDry") {
		modes = append(modes, OPERATION_MODE_DRY)
	}
	modes = append(modes, OPERATION_MODE_COOL)
	if d.confBool("ModelSupportsFan") {
		modes = append(modes, OPERATION_MODE_FAN_ONLY)
	}
	if d.confBool("ModelSupportsAuto") {
		modes = append(modes, OPERATION_MODE_HEAT_COOL)
	}
	return modes
}

func (d *Device) RoomTemperature() float64 {
	return d.floatProp("RoomTemperature")
}

func (d *Device) TargetTemperature() float64 {
	return d.floatProp("SetTemperature")
}

// TargetTemperatureMin returns the lower bound for the current mode, nil when
// the model does not report one.
func (d *Device) TargetTemperatureMin() *float64 {
	var key string
	switch d.OperationMode() {
	case OPERATION_MODE_HEAT:
		key = "MinTempHeat"
	case OPERATION_MODE_HEAT_COOL:
		key = "MinTempAutomatic"
	default:
		key = "MinTempCoolDry"
	}
	return d.confOptionalFloat(key)
}

func (d *Device) TargetTemperatureMax() *float64 {
	var key string
	switch d.OperationMode() {
	case OPERATION_MODE_HEAT:
		key = "MaxTempHeat"
	case OPERATION_MODE_HEAT_COOL:
		key = "MaxTempAutomatic"
	default:
		key = "MaxTempCoolDry"
	}
	return d.confOptionalFloat(key)
}

func (d *Device) FanSpeed() string {
	speed := d.intProp("SetFanSpeed")
	if speed == 0 {
		return FAN_SPEED_AUTO
	}
	return strconv.Itoa(speed)
}

func (d *Device) FanSpeeds() []string {
	n := int(d.confFloat("NumberOfFanSpeeds"))
	if n <= 0 {
		return nil
	}
	speeds := []string{FAN_SPEED_AUTO}
	for i := 1; i <= n; i++ {
		speeds = append(speeds, strconv.Itoa(i))
	}
	return speeds
}

func (d *Device) VaneHorizontal() string {
	if !d.confBool("ModelSupportsVaneHorizontal") {
		return ""
	}
	return hVanePositions[d.intProp("VaneHorizontal")]
}

func (d *Device) VaneHorizontalPositions() []string {
	if !d.confBool("ModelSupportsVaneHorizontal") {
		return nil
	}
	return sortedValues(hVanePositions)
}

func (d *Device) VaneVertical() string {
	if !d.confBool("ModelSupportsVaneVertical") {
		return ""
	}
	return vVanePositions[d.intProp("VaneVertical")]
}

func (d *Device) VaneVerticalPositions() []string {
	if !d.confBool("ModelSupportsVaneVertical") {
		return nil
	}
	return sortedValues(vVanePositions)
}

func (d *Device) HasEnergyConsumedMeter() bool {
	return d.confBool("HasEnergyConsumedMeter")
}

// TotalEnergyConsumed returns kWh, nil when the unit has no energy meter.
func (d *Device) TotalEnergyConsumed() *float64 {
	if !d.HasEnergyConsumedMeter() {
		return nil
	}
	wh, ok := d.floatPropOk("CurrentEnergyConsumed")
	if !ok {
		return nil
	}
	kwh := wh / 1000
	return &kwh
}

func (d *Device) confOptionalFloat(key string) *float64 {
	v, ok := d.conf.Device[key]
	if !ok || v == nil {
		return nil
	}
	f := toFloat(v)
	return &f
}

func (d *Device) applyAtaProp(state map[string]any, key string, value any) (int64, error) {
	switch key {
	case PROPERTY_POWER:
		b, err := boolValue(key, value)
		if err != nil {
			return 0, err
		}
		state["Power"] = b
		return FLAG_POWER, nil
	case PROPERTY_TARGET_TEMPERATURE:
		f, err := floatValue(key, value)
		if err != nil {
			return 0, err
		}
		state["SetTemperature"] = d.roundTemperature(f)
		return FLAG_TARGET_TEMP, nil
	case PROPERTY_OPERATION_MODE:
		s, err := stringValue(key, value)
		if err != nil {
			return 0, err
		}
		mode, ok := reverse(ataOperationModes, s)
		if !ok {
			return 0, fmt.Errorf("invalid operation mode %q", s)
		}
		state["OperationMode"] = mode
		return FLAG_OPERATION_MODE, nil
	case PROPERTY_FAN_SPEED:
		s, err := stringValue(key, value)
		if err != nil {
			return 0, err
		}
		if !slices.Contains(d.FanSpeeds(), s) {
			return 0, fmt.Errorf("invalid fan speed %q", s)
		}
		speed := 0
		if s != FAN_SPEED_AUTO {
			speed, _ = strconv.Atoi(s)
		}
		state["SetFanSpeed"] = speed
		return FLAG_FAN_SPEED, nil
	case PROPERTY_VANE_HORIZONTAL:
		s, err := stringValue(key, value)
		if err != nil {
			return 0, err
		}
		pos, ok := reverse(hVanePositions, s)
		if !ok {
			return 0, fmt.Errorf("invalid horizontal vane position %q", s)
		}
		state["VaneHorizontal"] = pos
		return FLAG_VANE_HORIZONTAL, nil
	case PROPERTY_VANE_VERTICAL:
		s, err := stringValue(key, value)
		if err != nil {
			return 0, err
		}
		pos, ok := reverse(vVanePositions, s)
		if !ok {
			return 0, fmt.Errorf("invalid vertical vane position %q", s)
		}
		state["VaneVertical"] = pos
		return FLAG_VANE_VERTICAL, nil
	}
	return 0, fmt.Errorf("unsupported ata property %q", key)
}
