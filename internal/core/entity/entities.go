package entity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/pkg/melcloud"

	"go.uber.org/zap"
)

// Entities holds every entity built for one account.
type Entities struct {
	Devices      []*MelCloudDevice
	Climates     []*Climate
	Sensors      []*Sensor
	WaterHeaters []*WaterHeater
}

func BuildEntities(devices []*melcloud.Device, hubUnit string, logger *zap.Logger) *Entities {
	entities := &Entities{}
	for _, device := range devices {
		api := NewMelCloudDevice(device, logger)
		entities.Devices = append(entities.Devices, api)
		for _, c := range NewClimates(api) {
			c.HubUnit = hubUnit
			entities.Climates = append(entities.Climates, c)
		}
		entities.Sensors = append(entities.Sensors, NewSensors(api)...)
		entities.WaterHeaters = append(entities.WaterHeaters, NewWaterHeaters(api, hubUnit)...)
	}
	return entities
}

// Update refreshes every device once. Errors are joined, a failing device
// does not stop the others.
func (e *Entities) Update(ctx context.Context) error {
	var errs []error
	for _, device := range e.Devices {
		if err := device.Update(ctx); err != nil {
			errs = append(errs, fmt.Errorf("update %s: %w", device.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (e *Entities) Climate(objectId string) (*Climate, bool) {
	for _, c := range e.Climates {
		if domain.ObjectId(c.UniqueID()) == objectId {
			return c, true
		}
	}
	return nil, false
}

func (e *Entities) WaterHeater(objectId string) (*WaterHeater, bool) {
	for _, w := range e.WaterHeaters {
		if domain.ObjectId(w.UniqueID()) == objectId {
			return w, true
		}
	}
	return nil, false
}

// ObjectIds lists the object ids of every commandable entity.
func (e *Entities) ObjectIds() []string {
	var ids []string
	for _, c := range e.Climates {
		ids = append(ids, domain.ObjectId(c.UniqueID()))
	}
	for _, w := range e.WaterHeaters {
		ids = append(ids, domain.ObjectId(w.UniqueID()))
	}
	return ids
}

// Execute runs a user command against the matching entity.
func (e *Entities) Execute(ctx context.Context, cmd domain.EntityCommandRequest) error {
	switch cmd.EntityType {
	case domain.ENTITY_TYPE_CLIMATE:
		climate, ok := e.Climate(cmd.EntityId)
		if !ok {
			return fmt.Errorf("%w: climate %s", domain.ErrUnknownEntity, cmd.EntityId)
		}
		return executeClimate(ctx, climate, cmd)
	case domain.ENTITY_TYPE_WATER_HEATER:
		waterHeater, ok := e.WaterHeater(cmd.EntityId)
		if !ok {
			return fmt.Errorf("%w: water heater %s", domain.ErrUnknownEntity, cmd.EntityId)
		}
		return executeWaterHeater(ctx, waterHeater, cmd)
	}
	return fmt.Errorf("%w: entity type %q", domain.ErrInvalidArgument, cmd.EntityType)
}

func executeClimate(ctx context.Context, c *Climate, cmd domain.EntityCommandRequest) error {
	switch cmd.Command {
	case domain.COMMAND_MODE:
		return c.SetHVACMode(ctx, cmd.Value)
	case domain.COMMAND_TEMPERATURE:
		value, err := parseTemperature(cmd.Value)
		if err != nil {
			return err
		}
		return c.SetTemperature(ctx, value)
	case domain.COMMAND_FAN_MODE:
		return c.SetFanMode(ctx, cmd.Value)
	case domain.COMMAND_SWING_MODE:
		return c.SetSwingMode(ctx, cmd.Value)
	case domain.COMMAND_VANE_HORIZONTAL:
		return c.SetVaneHorizontal(ctx, cmd.Value)
	case domain.COMMAND_VANE_VERTICAL:
		return c.SetVaneVertical(ctx, cmd.Value)
	case domain.COMMAND_POWER:
		on, err := parseSwitch(cmd.Value)
		if err != nil {
			return err
		}
		if on {
			return c.TurnOn(ctx)
		}
		return c.TurnOff(ctx)
	}
	return fmt.Errorf("%w: climate command %q", domain.ErrInvalidArgument, cmd.Command)
}

func executeWaterHeater(ctx context.Context, w *WaterHeater, cmd domain.EntityCommandRequest) error {
	switch cmd.Command {
	case domain.COMMAND_TEMPERATURE:
		value, err := parseTemperature(cmd.Value)
		if err != nil {
			return err
		}
		return w.SetTemperature(ctx, value)
	case domain.COMMAND_MODE:
		return w.SetOperationMode(ctx, cmd.Value)
	case domain.COMMAND_AWAY_MODE:
		on, err := parseSwitch(cmd.Value)
		if err != nil {
			return err
		}
		if on {
			return w.TurnAwayModeOn(ctx)
		}
		return w.TurnAwayModeOff(ctx)
	case domain.COMMAND_POWER:
		on, err := parseSwitch(cmd.Value)
		if err != nil {
			return err
		}
		if on {
			return w.TurnOn(ctx)
		}
		return w.TurnOff(ctx)
	}
	return fmt.Errorf("%w: water heater command %q", domain.ErrInvalidArgument, cmd.Command)
}

func parseTemperature(value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: temperature %q", domain.ErrInvalidArgument, value)
	}
	return f, nil
}

func parseSwitch(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: switch value %q", domain.ErrInvalidArgument, value)
}
