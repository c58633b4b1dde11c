package entity

import (
	"context"
	"testing"

	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/pkg/melcloud"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func buildTestEntities(t *testing.T, cloud *melcloud.TestCloud) *Entities {
	devices, err := cloud.GetDevices(context.Background(), melcloud.TEST_TOKEN)
	require.NoError(t, err)
	return BuildEntities(devices, TEMP_CELSIUS, zap.NewNop())
}

func TestBuildEntities(t *testing.T) {
	entities := buildTestEntities(t, melcloud.NewTestCloud())

	assert.Len(t, entities.Devices, 2)
	assert.Len(t, entities.Climates, 7)
	assert.Len(t, entities.Sensors, 6)
	assert.Len(t, entities.WaterHeaters, 1)
	assert.Len(t, entities.ObjectIds(), 8)
}

func TestExecuteClimateCommands(t *testing.T) {
	cloud := melcloud.NewTestCloud()
	entities := buildTestEntities(t, cloud)
	id := domain.ObjectId(entities.Climates[0].UniqueID())
	assert.Equal(t, "ata0001_aa_bb_cc_00_00_01", id)

	cmd := func(command, value string) domain.EntityCommandRequest {
		return domain.EntityCommandRequest{EntityType: domain.ENTITY_TYPE_CLIMATE, EntityId: id, Command: command, Value: value}
	}

	require.NoError(t, entities.Execute(context.Background(), cmd(domain.COMMAND_TEMPERATURE, "23.5")))
	assert.Equal(t, 23.5, entities.Climates[0].TargetTemperature())

	require.NoError(t, entities.Execute(context.Background(), cmd(domain.COMMAND_FAN_MODE, "2")))
	assert.Equal(t, "2", entities.Climates[0].FanMode())

	require.NoError(t, entities.Execute(context.Background(), cmd(domain.COMMAND_POWER, "OFF")))
	assert.Equal(t, HVAC_MODE_OFF, entities.Climates[0].HVACMode())

	assert.ErrorIs(t, entities.Execute(context.Background(), cmd(domain.COMMAND_TEMPERATURE, "warm")), domain.ErrInvalidArgument)
	for _, value := range []string{"NaN", "Inf", "-Inf", "+Inf"} {
		assert.ErrorIs(t, entities.Execute(context.Background(), cmd(domain.COMMAND_TEMPERATURE, value)), domain.ErrInvalidArgument, value)
	}
	assert.ErrorIs(t, entities.Execute(context.Background(), cmd("defrost", "on")), domain.ErrInvalidArgument)
	assert.Len(t, cloud.Calls(), 3)
}

func TestClimatePrecisionFollowsHubUnit(t *testing.T) {
	devices, err := melcloud.NewTestCloud().GetDevices(context.Background(), melcloud.TEST_TOKEN)
	require.NoError(t, err)

	for _, c := range BuildEntities(devices, TEMP_CELSIUS, zap.NewNop()).Climates {
		assert.Equal(t, 0.1, c.Precision(), c.UniqueID())
	}
	for _, c := range BuildEntities(devices, TEMP_FAHRENHEIT, zap.NewNop()).Climates {
		assert.Equal(t, 1.0, c.Precision(), c.UniqueID())
	}
}

func TestExecuteUnknownEntity(t *testing.T) {
	entities := buildTestEntities(t, melcloud.NewTestCloud())

	err := entities.Execute(context.Background(), domain.EntityCommandRequest{
		EntityType: domain.ENTITY_TYPE_CLIMATE,
		EntityId:   "nope",
		Command:    domain.COMMAND_MODE,
		Value:      HVAC_MODE_HEAT,
	})
	assert.ErrorIs(t, err, domain.ErrUnknownEntity)
}

func TestExecuteWaterHeaterCommands(t *testing.T) {
	cloud := melcloud.NewTestCloud()
	entities := buildTestEntities(t, cloud)
	id := domain.ObjectId(entities.WaterHeaters[0].UniqueID())

	err := entities.Execute(context.Background(), domain.EntityCommandRequest{
		EntityType: domain.ENTITY_TYPE_WATER_HEATER, EntityId: id, Command: domain.COMMAND_AWAY_MODE, Value: "ON",
	})
	assert.ErrorIs(t, err, domain.ErrNotImplemented)

	err = entities.Execute(context.Background(), domain.EntityCommandRequest{
		EntityType: domain.ENTITY_TYPE_WATER_HEATER, EntityId: id, Command: domain.COMMAND_TEMPERATURE, Value: "52",
	})
	require.NoError(t, err)
	assert.Equal(t, 52.0, entities.WaterHeaters[0].TargetTemperature())
}

func TestEntitiesUpdateRefreshesEveryDevice(t *testing.T) {
	cloud := melcloud.NewTestCloud()
	entities := buildTestEntities(t, cloud)

	require.NoError(t, entities.Update(context.Background()))
	assert.Equal(t, 2, cloud.FetchCalls)
}
