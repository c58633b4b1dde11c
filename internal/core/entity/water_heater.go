package entity

import (
	"context"
	"fmt"

	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/pkg/melcloud"
)

const (
	WATER_HEATER_OPERATION_HEAT = "heat"

	ATTR_FORCED_HOT_WATER = "forced_hot_water"
)

// WaterHeater exposes the hot water tank of an ATW device.
type WaterHeater struct {
	Api *MelCloudDevice
	// temperature unit of the hub, TEMP_CELSIUS or TEMP_FAHRENHEIT
	HubUnit string
}

func NewWaterHeaters(api *MelCloudDevice, hubUnit string) []*WaterHeater {
	if api.Device.Type() != melcloud.DEVICE_TYPE_ATW {
		return nil
	}
	return []*WaterHeater{{Api: api, HubUnit: hubUnit}}
}

func (w *WaterHeater) UniqueID() string {
	return w.Api.uniqueId("water_heater")
}

func (w *WaterHeater) Name() string {
	return w.Api.Name()
}

func (w *WaterHeater) Available() bool {
	return w.Api.Available()
}

func (w *WaterHeater) CurrentOperation() string {
	return WATER_HEATER_OPERATION_HEAT
}

func (w *WaterHeater) OperationList() []string {
	return []string{WATER_HEATER_OPERATION_HEAT}
}

func (w *WaterHeater) CurrentTemperature() float64 {
	return w.Api.Device.TankTemperature()
}

func (w *WaterHeater) TargetTemperature() float64 {
	return w.Api.Device.TargetTankTemperature()
}

func (w *WaterHeater) MinTemp() float64 {
	return w.Api.Device.TargetTankTemperatureMin()
}

func (w *WaterHeater) MaxTemp() float64 {
	return w.Api.Device.TargetTankTemperatureMax()
}

func (w *WaterHeater) TemperatureUnit() string {
	return TemperatureUnit(w.Api.Device.TempUnit())
}

// Precision is tenths when the hub runs in Celsius, whole degrees otherwise.
func (w *WaterHeater) Precision() float64 {
	if w.HubUnit == TEMP_CELSIUS {
		return 0.1
	}
	return 1.0
}

func (w *WaterHeater) SetTemperature(ctx context.Context, value float64) error {
	return w.Api.Set(ctx, map[string]any{melcloud.PROPERTY_TARGET_TANK_TEMPERATURE: value})
}

func (w *WaterHeater) SetOperationMode(ctx context.Context, mode string) error {
	return fmt.Errorf("%w: water heater operation mode", domain.ErrNotImplemented)
}

func (w *WaterHeater) TurnAwayModeOn(ctx context.Context) error {
	return fmt.Errorf("%w: water heater away mode", domain.ErrNotImplemented)
}

func (w *WaterHeater) TurnAwayModeOff(ctx context.Context) error {
	return fmt.Errorf("%w: water heater away mode", domain.ErrNotImplemented)
}

func (w *WaterHeater) TurnOn(ctx context.Context) error {
	return w.Api.Set(ctx, map[string]any{melcloud.PROPERTY_POWER: true})
}

func (w *WaterHeater) TurnOff(ctx context.Context) error {
	return w.Api.Set(ctx, map[string]any{melcloud.PROPERTY_POWER: false})
}

func (w *WaterHeater) Attributes() map[string]any {
	return map[string]any{
		ATTR_STATUS:           w.Api.Device.Status(),
		ATTR_FORCED_HOT_WATER: w.Api.Device.ForcedHotWater(),
	}
}

func (w *WaterHeater) Update(ctx context.Context) error {
	return w.Api.Update(ctx)
}
