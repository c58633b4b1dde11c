package entity

import (
	"fmt"

	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/pkg/melcloud"
)

const (
	HVAC_MODE_OFF       = "off"
	HVAC_MODE_HEAT      = "heat"
	HVAC_MODE_DRY       = "dry"
	HVAC_MODE_COOL      = "cool"
	HVAC_MODE_FAN_ONLY  = "fan_only"
	HVAC_MODE_HEAT_COOL = "heat_cool"

	TEMP_CELSIUS    = "°C"
	TEMP_FAHRENHEIT = "°F"
)

var hvacModeLookup = map[string]string{
	melcloud.OPERATION_MODE_HEAT:      HVAC_MODE_HEAT,
	melcloud.OPERATION_MODE_DRY:       HVAC_MODE_DRY,
	melcloud.OPERATION_MODE_COOL:      HVAC_MODE_COOL,
	melcloud.OPERATION_MODE_FAN_ONLY:  HVAC_MODE_FAN_ONLY,
	melcloud.OPERATION_MODE_HEAT_COOL: HVAC_MODE_HEAT_COOL,
}

var hvacModeReverseLookup = reverseLookup(hvacModeLookup)

var tempUnitLookup = map[string]string{
	melcloud.UNIT_TEMP_CELSIUS:    TEMP_CELSIUS,
	melcloud.UNIT_TEMP_FAHRENHEIT: TEMP_FAHRENHEIT,
}

var tempUnitReverseLookup = reverseLookup(tempUnitLookup)

func reverseLookup(m map[string]string) map[string]string {
	r := make(map[string]string, len(m))
	for k, v := range m {
		r[v] = k
	}
	return r
}

// HVACMode maps an ATA operation mode to a hub HVAC mode.
func HVACMode(operationMode string) (string, bool) {
	mode, ok := hvacModeLookup[operationMode]
	return mode, ok
}

func OperationMode(hvacMode string) (string, error) {
	mode, ok := hvacModeReverseLookup[hvacMode]
	if !ok {
		return "", fmt.Errorf("%w: unknown hvac mode %q", domain.ErrInvalidArgument, hvacMode)
	}
	return mode, nil
}

// TemperatureUnit maps a vendor unit to the hub unit. Unknown units are Celsius.
func TemperatureUnit(vendorUnit string) string {
	if unit, ok := tempUnitLookup[vendorUnit]; ok {
		return unit
	}
	return TEMP_CELSIUS
}

func VendorTemperatureUnit(unit string) (string, error) {
	vendorUnit, ok := tempUnitReverseLookup[unit]
	if !ok {
		return "", fmt.Errorf("%w: unknown temperature unit %q", domain.ErrInvalidArgument, unit)
	}
	return vendorUnit, nil
}
