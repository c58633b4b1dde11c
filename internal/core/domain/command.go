package domain

import "fmt"

const (
	COMMAND_MODE            = "mode"
	COMMAND_TEMPERATURE     = "temperature"
	COMMAND_FAN_MODE        = "fan_mode"
	COMMAND_SWING_MODE      = "swing_mode"
	COMMAND_VANE_HORIZONTAL = "vane_horizontal"
	COMMAND_VANE_VERTICAL   = "vane_vertical"
	COMMAND_POWER           = "power"
	COMMAND_AWAY_MODE       = "away_mode"
)

// EntityCommandRequest

type EntityCommand interface {
	ActorRequest
	TargetEntity() string
}

// EntityCommandRequest carries a user command for one entity. EntityId is the
// topic-safe object id of the entity.
type EntityCommandRequest struct {
	ActorRequestMixIn
	EntityType string
	EntityId   string
	Command    string
	Value      string
}

func (r EntityCommandRequest) TargetEntity() string {
	return r.EntityId
}

func (r EntityCommandRequest) String() string {
	return fmt.Sprintf("%s/%s/%s=%q", r.EntityType, r.EntityId, r.Command, r.Value)
}

type EntityCommandResponse struct {
	ActorResponseMixIn
	EntityId string
}

// ensure interface compliance
var _ EntityCommand = (*EntityCommandRequest)(nil)
