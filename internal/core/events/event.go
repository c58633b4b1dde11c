package events

import (
	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/internal/core/entity"
)

// EntitiesDiscovery builds the discovery records of an account. The first
// entity of every physical device carries the full device description, the
// rest only reference it.
func EntitiesDiscovery(entities *entity.Entities, bridgeDevice domain.Device) ([]domain.GenericSensor, []domain.GenericClimate, []domain.GenericWaterHeater) {
	var sensors []domain.GenericSensor
	var climates []domain.GenericClimate
	var waterHeaters []domain.GenericWaterHeater

	described := map[string]bool{}
	deviceFor := func(api *entity.MelCloudDevice) domain.Device {
		dev := api.DeviceInfo(bridgeDevice)
		if described[dev.Id] {
			return domain.IdDevice(dev)
		}
		described[dev.Id] = true
		return dev
	}

	for _, c := range entities.Climates {
		climates = append(climates, domain.GenericClimate{
			Device:          deviceFor(c.Api),
			Id:              domain.ObjectId(c.UniqueID()),
			Name:            c.Name(),
			UniqueId:        c.UniqueID(),
			Modes:           c.HVACModes(),
			FanModes:        c.FanModes(),
			SwingModes:      c.SwingModes(),
			MinTemp:         c.MinTemp(),
			MaxTemp:         c.MaxTemp(),
			TempStep:        c.TargetTemperatureStep(),
			Precision:       c.Precision(),
			TemperatureUnit: c.TemperatureUnit(),
		})
	}
	for _, w := range entities.WaterHeaters {
		waterHeaters = append(waterHeaters, domain.GenericWaterHeater{
			Device:          deviceFor(w.Api),
			Id:              domain.ObjectId(w.UniqueID()),
			Name:            w.Name(),
			UniqueId:        w.UniqueID(),
			Icon:            "mdi:water-boiler",
			Modes:           w.OperationList(),
			MinTemp:         w.MinTemp(),
			MaxTemp:         w.MaxTemp(),
			Precision:       w.Precision(),
			TemperatureUnit: w.TemperatureUnit(),
		})
	}
	for _, s := range entities.Sensors {
		sensors = append(sensors, domain.GenericSensor{
			Device:            deviceFor(s.Api),
			Id:                domain.ObjectId(s.UniqueID()),
			SensorType:        domain.SENSOR_TYPE_SENSOR,
			Name:              s.Name(),
			UniqueId:          s.UniqueID(),
			UnitOfMeasurement: s.Unit(),
			StateClass:        s.Description.StateClass,
			DeviceClass:       s.Description.DeviceClass,
			Icon:              s.Description.Icon,
			Availability:      true,
		})
	}
	return sensors, climates, waterHeaters
}

// EntitiesToUpdateEvents returns the state and availability events of every
// entity of an account.
func EntitiesToUpdateEvents(entities *entity.Entities) []any {
	var events []any

	for _, c := range entities.Climates {
		id := domain.ObjectId(c.UniqueID())
		events = append(events, availabilityEvent(id, domain.ENTITY_TYPE_CLIMATE, c.Available()))
		events = append(events, ClimateToUpdateEvent(c))
	}
	for _, w := range entities.WaterHeaters {
		id := domain.ObjectId(w.UniqueID())
		events = append(events, availabilityEvent(id, domain.ENTITY_TYPE_WATER_HEATER, w.Available()))
		events = append(events, WaterHeaterToUpdateEvent(w))
	}
	for _, s := range entities.Sensors {
		id := domain.ObjectId(s.UniqueID())
		events = append(events, availabilityEvent(id, domain.ENTITY_TYPE_SENSOR, s.Available()))
		// no value, nothing to publish
		if value := s.State(); value != nil {
			events = append(events, domain.FloatSensorUpdateEvent{
				SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
					Id: id,
				},
				Value:    *value,
				Decimals: s.Description.Decimals,
			})
		}
	}
	return events
}

func ClimateToUpdateEvent(c *entity.Climate) domain.ClimateStateUpdateEvent {
	current := c.CurrentTemperature()
	target := c.TargetTemperature()
	return domain.ClimateStateUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: domain.ObjectId(c.UniqueID()),
		},
		Mode:               c.HVACMode(),
		CurrentTemperature: &current,
		TargetTemperature:  &target,
		FanMode:            c.FanMode(),
		SwingMode:          c.SwingMode(),
		Attributes:         c.Attributes(),
	}
}

func WaterHeaterToUpdateEvent(w *entity.WaterHeater) domain.WaterHeaterStateUpdateEvent {
	current := w.CurrentTemperature()
	target := w.TargetTemperature()
	return domain.WaterHeaterStateUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: domain.ObjectId(w.UniqueID()),
		},
		Mode:               w.CurrentOperation(),
		CurrentTemperature: &current,
		TargetTemperature:  &target,
		Attributes:         w.Attributes(),
	}
}

// EntitiesSnapshot summarizes the current state of an account for the HTTP API.
func EntitiesSnapshot(entryId string, entities *entity.Entities) []domain.EntitySnapshot {
	var snapshots []domain.EntitySnapshot
	for _, c := range entities.Climates {
		snapshots = append(snapshots, domain.EntitySnapshot{
			EntryId:    entryId,
			EntityType: domain.ENTITY_TYPE_CLIMATE,
			Id:         domain.ObjectId(c.UniqueID()),
			UniqueId:   c.UniqueID(),
			Name:       c.Name(),
			Available:  c.Available(),
			State:      ClimateToUpdateEvent(c),
		})
	}
	for _, w := range entities.WaterHeaters {
		snapshots = append(snapshots, domain.EntitySnapshot{
			EntryId:    entryId,
			EntityType: domain.ENTITY_TYPE_WATER_HEATER,
			Id:         domain.ObjectId(w.UniqueID()),
			UniqueId:   w.UniqueID(),
			Name:       w.Name(),
			Available:  w.Available(),
			State:      WaterHeaterToUpdateEvent(w),
		})
	}
	for _, s := range entities.Sensors {
		snapshot := domain.EntitySnapshot{
			EntryId:    entryId,
			EntityType: domain.ENTITY_TYPE_SENSOR,
			Id:         domain.ObjectId(s.UniqueID()),
			UniqueId:   s.UniqueID(),
			Name:       s.Name(),
			Available:  s.Available(),
			Attributes: map[string]any{"unit_of_measurement": s.Unit()},
		}
		if value := s.State(); value != nil {
			snapshot.State = *value
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots
}

func availabilityEvent(id string, entityType string, available bool) domain.EntityAvailabilityUpdateEvent {
	return domain.EntityAvailabilityUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: id,
		},
		EntityType: entityType,
		Value:      available,
	}
}
