package domain

import "time"

const (
	ACTOR_ID_MASTER         = "master"
	ACTOR_ID_MQTT           = "mqtt"
	ACTOR_ID_HA_DISCOVERY   = "hadiscovery"
	ACTOR_ID_METRICS        = "metrics"
	ACTOR_ID_ACCOUNT_PREFIX = "account"
)

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Climates     []GenericClimate
	WaterHeaters []GenericWaterHeater
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

// Config entries

type LoadEntryRequest struct {
	ActorRequestMixIn
	Entry ConfigEntry
}

type LoadEntryResponse struct {
	ActorResponseMixIn
}

type UnloadEntryRequest struct {
	ActorRequestMixIn
	EntryId string
}

type UnloadEntryResponse struct {
	ActorResponseMixIn
	Found bool
}

// RefreshDevicesRequest asks an account to re-list its devices and publish
// discovery again.
type RefreshDevicesRequest struct {
	ActorRequestMixIn
}

// Entities

type GetEntitiesRequest struct {
	ActorRequestMixIn
}

type GetEntitiesResponse struct {
	ActorResponseMixIn
	Entities []EntitySnapshot
}

type EntitySnapshot struct {
	EntryId    string         `json:"entry_id"`
	EntityType string         `json:"entity_type"`
	Id         string         `json:"id"`
	UniqueId   string         `json:"unique_id"`
	Name       string         `json:"name"`
	Available  bool           `json:"available"`
	State      any            `json:"state,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// AccountEntitiesEvent is sent to the master every time an account (re)builds
// its entities.
type AccountEntitiesEvent struct {
	EntryId      string
	EntityIds    []string
	Sensors      []GenericSensor
	Climates     []GenericClimate
	WaterHeaters []GenericWaterHeater
}

// AccountRemovedEvent is sent by the master when a config entry is unloaded.
type AccountRemovedEvent struct {
	EntryId string
}

// RemoveDiscoveryRequest clears the retained discovery config of entities
// that no longer exist.
type RemoveDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Climates     []GenericClimate
	WaterHeaters []GenericWaterHeater
}

// CommandResultEvent is published after every executed entity command.
type CommandResultEvent struct {
	EntryId    string
	EntityType string
	Command    string
	Error      error
}

// PollResultEvent is published after every poll of an account.
type PollResultEvent struct {
	EntryId  string
	Duration time.Duration
	Error    error
}
