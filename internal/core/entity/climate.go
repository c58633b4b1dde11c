package entity

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/pkg/melcloud"
)

type ClimateKind int

const (
	CLIMATE_KIND_ATA ClimateKind = iota
	CLIMATE_KIND_ZONE_THERMOSTAT
	CLIMATE_KIND_ZONE_FLOW_HEAT
	CLIMATE_KIND_ZONE_FLOW_COOL
)

const (
	ATA_DEFAULT_MIN_TEMP     = 7
	ATA_DEFAULT_MAX_TEMP     = 35
	ZONE_THERMOSTAT_MIN_TEMP = 10
	ZONE_THERMOSTAT_MAX_TEMP = 30
	ZONE_HEAT_FLOW_MIN_TEMP  = 25
	ZONE_HEAT_FLOW_MAX_TEMP  = 60
	ZONE_COOL_FLOW_MIN_TEMP  = 5
	ZONE_COOL_FLOW_MAX_TEMP  = 25

	ATTR_VANE_HORIZONTAL           = "vane_horizontal"
	ATTR_VANE_HORIZONTAL_POSITIONS = "vane_horizontal_positions"
	ATTR_VANE_VERTICAL             = "vane_vertical"
	ATTR_VANE_VERTICAL_POSITIONS   = "vane_vertical_positions"
	ATTR_STATUS                    = "status"
	ATTR_RETURN_TEMPERATURE        = "return_temperature"
)

func (k ClimateKind) String() string {
	switch k {
	case CLIMATE_KIND_ATA:
		return "ata"
	case CLIMATE_KIND_ZONE_THERMOSTAT:
		return "zone_thermostat"
	case CLIMATE_KIND_ZONE_FLOW_HEAT:
		return "zone_flow_heat"
	case CLIMATE_KIND_ZONE_FLOW_COOL:
		return "zone_flow_cool"
	}
	return "unknown"
}

// Climate is one thermostat exposed to the hub. ATA devices have a single
// climate; every ATW zone has a thermostat and optional flow climates.
type Climate struct {
	Kind ClimateKind
	Api  *MelCloudDevice
	Zone *melcloud.Zone
	// hub temperature unit, drives the reported precision
	HubUnit string
}

func NewClimates(api *MelCloudDevice) []*Climate {
	var climates []*Climate
	switch api.Device.Type() {
	case melcloud.DEVICE_TYPE_ATA:
		climates = append(climates, &Climate{Kind: CLIMATE_KIND_ATA, Api: api})
	case melcloud.DEVICE_TYPE_ATW:
		for _, zone := range api.Device.Zones() {
			climates = append(climates, &Climate{Kind: CLIMATE_KIND_ZONE_THERMOSTAT, Api: api, Zone: zone})
			modes := zone.OperationModes()
			if slices.Contains(modes, melcloud.ZONE_OPERATION_MODE_HEAT_FLOW) {
				climates = append(climates, &Climate{Kind: CLIMATE_KIND_ZONE_FLOW_HEAT, Api: api, Zone: zone})
			}
			if slices.Contains(modes, melcloud.ZONE_OPERATION_MODE_COOL_FLOW) {
				climates = append(climates, &Climate{Kind: CLIMATE_KIND_ZONE_FLOW_COOL, Api: api, Zone: zone})
			}
		}
	}
	return climates
}

func (c *Climate) device() *melcloud.Device {
	return c.Api.Device
}

func (c *Climate) UniqueID() string {
	switch c.Kind {
	case CLIMATE_KIND_ZONE_THERMOSTAT:
		return c.Api.uniqueId(strconv.Itoa(c.Zone.Index()))
	case CLIMATE_KIND_ZONE_FLOW_HEAT:
		return c.Api.uniqueId(strconv.Itoa(c.Zone.Index()), "heat-flow")
	case CLIMATE_KIND_ZONE_FLOW_COOL:
		return c.Api.uniqueId(strconv.Itoa(c.Zone.Index()), "cool-flow")
	}
	return c.Api.uniqueId()
}

func (c *Climate) Name() string {
	switch c.Kind {
	case CLIMATE_KIND_ZONE_THERMOSTAT:
		return fmt.Sprintf("%s %s", c.Api.Name(), c.Zone.Name())
	case CLIMATE_KIND_ZONE_FLOW_HEAT:
		return fmt.Sprintf("%s %s Heat Flow", c.Api.Name(), c.Zone.Name())
	case CLIMATE_KIND_ZONE_FLOW_COOL:
		return fmt.Sprintf("%s %s Cool Flow", c.Api.Name(), c.Zone.Name())
	}
	return c.Api.Name()
}

func (c *Climate) Available() bool {
	return c.Api.Available()
}

// zoneModeFor returns the zone operation mode this climate drives for a hub
// mode, or "" when the kind has no such mode.
func (c *Climate) zoneModeFor(hvacMode string) string {
	switch {
	case c.Kind == CLIMATE_KIND_ZONE_THERMOSTAT && hvacMode == HVAC_MODE_HEAT:
		return melcloud.ZONE_OPERATION_MODE_HEAT_THERM
	case c.Kind == CLIMATE_KIND_ZONE_THERMOSTAT && hvacMode == HVAC_MODE_COOL:
		return melcloud.ZONE_OPERATION_MODE_COOL_THERM
	case c.Kind == CLIMATE_KIND_ZONE_FLOW_HEAT && hvacMode == HVAC_MODE_HEAT:
		return melcloud.ZONE_OPERATION_MODE_HEAT_FLOW
	case c.Kind == CLIMATE_KIND_ZONE_FLOW_COOL && hvacMode == HVAC_MODE_COOL:
		return melcloud.ZONE_OPERATION_MODE_COOL_FLOW
	}
	return ""
}

// HVACMode is "off" whenever the device is powered off.
func (c *Climate) HVACMode() string {
	if !c.device().Power() {
		return HVAC_MODE_OFF
	}
	if c.Kind == CLIMATE_KIND_ATA {
		if mode, ok := HVACMode(c.device().OperationMode()); ok {
			return mode
		}
		return HVAC_MODE_OFF
	}
	current := c.Zone.OperationMode()
	for _, mode := range []string{HVAC_MODE_HEAT, HVAC_MODE_COOL} {
		if zm := c.zoneModeFor(mode); zm != "" && zm == current {
			return mode
		}
	}
	return HVAC_MODE_OFF
}

func (c *Climate) HVACModes() []string {
	modes := []string{HVAC_MODE_OFF}
	if c.Kind == CLIMATE_KIND_ATA {
		for _, op := range c.device().OperationModes() {
			if mode, ok := HVACMode(op); ok {
				modes = append(modes, mode)
			}
		}
		return modes
	}
	available := c.Zone.OperationModes()
	for _, mode := range []string{HVAC_MODE_HEAT, HVAC_MODE_COOL} {
		if zm := c.zoneModeFor(mode); zm != "" && slices.Contains(available, zm) {
			modes = append(modes, mode)
		}
	}
	return modes
}

func (c *Climate) SetHVACMode(ctx context.Context, hvacMode string) error {
	if hvacMode == HVAC_MODE_OFF {
		return c.Api.Set(ctx, map[string]any{melcloud.PROPERTY_POWER: false})
	}
	if !slices.Contains(c.HVACModes(), hvacMode) {
		return fmt.Errorf("%w: hvac mode %q not supported by %s", domain.ErrInvalidArgument, hvacMode, c.Name())
	}

	props := map[string]any{}
	if c.Kind == CLIMATE_KIND_ATA {
		operationMode, err := OperationMode(hvacMode)
		if err != nil {
			return err
		}
		props[melcloud.PROPERTY_OPERATION_MODE] = operationMode
	} else {
		props[c.Zone.OperationModeProperty()] = c.zoneModeFor(hvacMode)
	}
	if c.HVACMode() == HVAC_MODE_OFF {
		props[melcloud.PROPERTY_POWER] = true
	}
	return c.Api.Set(ctx, props)
}

func (c *Climate) CurrentTemperature() float64 {
	switch c.Kind {
	case CLIMATE_KIND_ZONE_THERMOSTAT:
		return c.Zone.RoomTemperature()
	case CLIMATE_KIND_ZONE_FLOW_HEAT, CLIMATE_KIND_ZONE_FLOW_COOL:
		return c.Zone.FlowTemperature()
	}
	return c.device().RoomTemperature()
}

func (c *Climate) TargetTemperature() float64 {
	switch c.Kind {
	case CLIMATE_KIND_ZONE_THERMOSTAT:
		return c.Zone.TargetTemperature()
	case CLIMATE_KIND_ZONE_FLOW_HEAT:
		return c.Zone.TargetHeatFlowTemperature()
	case CLIMATE_KIND_ZONE_FLOW_COOL:
		return c.Zone.TargetCoolFlowTemperature()
	}
	return c.device().TargetTemperature()
}

func (c *Climate) SetTemperature(ctx context.Context, value float64) error {
	switch c.Kind {
	case CLIMATE_KIND_ZONE_THERMOSTAT:
		return c.Api.Call(ctx, func(ctx context.Context) error {
			return c.Zone.SetTargetTemperature(ctx, value)
		})
	case CLIMATE_KIND_ZONE_FLOW_HEAT:
		return c.Api.Call(ctx, func(ctx context.Context) error {
			return c.Zone.SetTargetHeatFlowTemperature(ctx, value)
		})
	case CLIMATE_KIND_ZONE_FLOW_COOL:
		return c.Api.Call(ctx, func(ctx context.Context) error {
			return c.Zone.SetTargetCoolFlowTemperature(ctx, value)
		})
	}
	return c.Api.Set(ctx, map[string]any{melcloud.PROPERTY_TARGET_TEMPERATURE: value})
}

func (c *Climate) TargetTemperatureStep() float64 {
	return c.device().TemperatureIncrement()
}

func (c *Climate) MinTemp() float64 {
	switch c.Kind {
	case CLIMATE_KIND_ZONE_THERMOSTAT:
		return ZONE_THERMOSTAT_MIN_TEMP
	case CLIMATE_KIND_ZONE_FLOW_HEAT:
		return ZONE_HEAT_FLOW_MIN_TEMP
	case CLIMATE_KIND_ZONE_FLOW_COOL:
		return ZONE_COOL_FLOW_MIN_TEMP
	}
	if lo := c.device().TargetTemperatureMin(); lo != nil {
		return *lo
	}
	return c.defaultBound(ATA_DEFAULT_MIN_TEMP)
}

func (c *Climate) MaxTemp() float64 {
	switch c.Kind {
	case CLIMATE_KIND_ZONE_THERMOSTAT:
		return ZONE_THERMOSTAT_MAX_TEMP
	case CLIMATE_KIND_ZONE_FLOW_HEAT:
		return ZONE_HEAT_FLOW_MAX_TEMP
	case CLIMATE_KIND_ZONE_FLOW_COOL:
		return ZONE_COOL_FLOW_MAX_TEMP
	}
	if hi := c.device().TargetTemperatureMax(); hi != nil {
		return *hi
	}
	return c.defaultBound(ATA_DEFAULT_MAX_TEMP)
}

// defaultBound converts a Celsius fallback bound to the device unit.
func (c *Climate) defaultBound(celsius float64) float64 {
	if c.TemperatureUnit() == TEMP_FAHRENHEIT {
		return celsius*9/5 + 32
	}
	return celsius
}

func (c *Climate) TemperatureUnit() string {
	return TemperatureUnit(c.device().TempUnit())
}

// Precision is tenths under a Celsius hub, whole degrees otherwise.
func (c *Climate) Precision() float64 {
	if c.HubUnit == TEMP_CELSIUS {
		return 0.1
	}
	return 1.0
}

func (c *Climate) FanMode() string {
	if c.Kind != CLIMATE_KIND_ATA {
		return ""
	}
	return c.device().FanSpeed()
}

func (c *Climate) FanModes() []string {
	if c.Kind != CLIMATE_KIND_ATA {
		return nil
	}
	return c.device().FanSpeeds()
}

func (c *Climate) SetFanMode(ctx context.Context, fanMode string) error {
	if c.Kind != CLIMATE_KIND_ATA {
		return fmt.Errorf("%w: fan mode on %s", domain.ErrNotImplemented, c.Name())
	}
	if !slices.Contains(c.FanModes(), fanMode) {
		return fmt.Errorf("%w: invalid fan mode %q", domain.ErrInvalidArgument, fanMode)
	}
	return c.Api.Set(ctx, map[string]any{melcloud.PROPERTY_FAN_SPEED: fanMode})
}

// SwingMode mirrors the vertical vane.
func (c *Climate) SwingMode() string {
	if c.Kind != CLIMATE_KIND_ATA {
		return ""
	}
	return c.device().VaneVertical()
}

func (c *Climate) SwingModes() []string {
	if c.Kind != CLIMATE_KIND_ATA {
		return nil
	}
	return c.device().VaneVerticalPositions()
}

func (c *Climate) SetSwingMode(ctx context.Context, swingMode string) error {
	return c.SetVaneVertical(ctx, swingMode)
}

func (c *Climate) SetVaneHorizontal(ctx context.Context, position string) error {
	if c.Kind != CLIMATE_KIND_ATA {
		return fmt.Errorf("%w: horizontal vane on %s", domain.ErrNotImplemented, c.Name())
	}
	if !slices.Contains(c.device().VaneHorizontalPositions(), position) {
		return fmt.Errorf("%w: invalid horizontal vane position %q", domain.ErrInvalidArgument, position)
	}
	return c.Api.Set(ctx, map[string]any{melcloud.PROPERTY_VANE_HORIZONTAL: position})
}

func (c *Climate) SetVaneVertical(ctx context.Context, position string) error {
	if c.Kind != CLIMATE_KIND_ATA {
		return fmt.Errorf("%w: vertical vane on %s", domain.ErrNotImplemented, c.Name())
	}
	if !slices.Contains(c.device().VaneVerticalPositions(), position) {
		return fmt.Errorf("%w: invalid vertical vane position %q", domain.ErrInvalidArgument, position)
	}
	return c.Api.Set(ctx, map[string]any{melcloud.PROPERTY_VANE_VERTICAL: position})
}

func (c *Climate) TurnOn(ctx context.Context) error {
	return c.Api.Set(ctx, map[string]any{melcloud.PROPERTY_POWER: true})
}

func (c *Climate) TurnOff(ctx context.Context) error {
	return c.Api.Set(ctx, map[string]any{melcloud.PROPERTY_POWER: false})
}

func (c *Climate) Attributes() map[string]any {
	attrs := map[string]any{}
	if c.Kind != CLIMATE_KIND_ATA {
		attrs[ATTR_STATUS] = c.Zone.Status()
		if c.Kind != CLIMATE_KIND_ZONE_THERMOSTAT {
			attrs[ATTR_RETURN_TEMPERATURE] = c.Zone.ReturnTemperature()
		}
		return attrs
	}
	if vane := c.device().VaneHorizontal(); vane != "" {
		attrs[ATTR_VANE_HORIZONTAL] = vane
		attrs[ATTR_VANE_HORIZONTAL_POSITIONS] = c.device().VaneHorizontalPositions()
	}
	if vane := c.device().VaneVertical(); vane != "" {
		attrs[ATTR_VANE_VERTICAL] = vane
		attrs[ATTR_VANE_VERTICAL_POSITIONS] = c.device().VaneVerticalPositions()
	}
	return attrs
}

func (c *Climate) Update(ctx context.Context) error {
	return c.Api.Update(ctx)
}
