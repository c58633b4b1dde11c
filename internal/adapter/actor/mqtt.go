package actor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/berfenger/melcloud2mqtt/internal/config"
	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/internal/mqtt"
	"github.com/berfenger/melcloud2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type MQTTActor struct {
	config   *config.Config
	behavior actor.Behavior
	stash    *actorutil.Stash
	client   *mqtt.MQTTClient
	logger   *zap.Logger
	record   func(any)
}

type MQTTConnected struct {
}

type MQTTSubscribed struct {
}

type MQTTConnectionLost struct {
	Error error
}

type publishResult struct {
	ReplyTo *actor.PID
	Error   error
}

type ParsedCommand struct {
	Command *mqtt.ParsedMQTTCommand
}

type rawMessage struct {
	topic   string
	message string
	retain  bool
}

func NewMQTTActor(config *config.Config, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:   config,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MQTTActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MQTTActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("mqtt@starting started")

		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), func(_ pahomqtt.Client) {
		}, func(_ pahomqtt.Client, err error) {
			ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
		})

		state.client.Connect(func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTConnected{})
			}
		}, 10*time.Second)

	case MQTTConnected:
		state.logger.Debug("mqtt@starting connected")

		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_ONLINE, 0, true, func(error) {}, 500*time.Millisecond)

		state.client.SubscribeToCommandTopic(func(c pahomqtt.Client, m pahomqtt.Message) {
			cmd, err := state.client.ParseMQTTCommand(m)
			if err != nil {
				state.logger.Debug("mqtt: ignored message", zap.String("topic", m.Topic()), zap.Error(err))
				return
			}
			ctx.Send(ctx.Self(), ParsedCommand{Command: cmd})
		}, func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTSubscribed{})
			}
		}, 1*time.Second)
	case MQTTSubscribed:
		state.logger.Debug("mqtt@starting subscribed")
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case MQTTConnectionLost:
		// let the supervisor restart us
		state.logger.Error("mqtt@starting connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	default:
		state.logger.Debug("mqtt@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case ParsedCommand:
		state.routeCommand(ctx, msg)
	case domain.PublishMessageRequest:
		state.logger.Debug("mqtt@default PublishMessageRequest", zap.String("topic", msg.Topic))
		state.publishMessage(ctx, msg.Topic, msg.Payload, msg.Retain, actorutil.ForRequest(msg).ReplyTo(ctx))
	case domain.PublishSensorUpdateRequest:
		state.logger.Debug("mqtt@default PublishSensorUpdateRequest", zap.String("type", fmt.Sprintf("%T", msg.Event)))
		state.publishSensorValue(ctx, msg.Event, msg.Retain)
	case domain.PublishDiscoveryRequest:
		state.logger.Debug("mqtt@default PublishDiscoveryRequest",
			zap.Int("sensors", len(msg.Sensors)), zap.Int("climates", len(msg.Climates)), zap.Int("water_heaters", len(msg.WaterHeaters)))
		err := state.PublishHomeAssistantDiscovery(msg.Sensors, msg.Climates, msg.WaterHeaters)
		if err != nil {
			state.logger.Error("mqtt@default PublishDiscoveryRequest error", zap.Error(err))
		}
		actorutil.ForRequest(msg).Respond(ctx, domain.PublishDiscoveryResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
		})
	case domain.RemoveDiscoveryRequest:
		state.logger.Debug("mqtt@default RemoveDiscoveryRequest")
		state.RemoveHomeAssistantDiscovery(msg.Sensors, msg.Climates, msg.WaterHeaters)
	case MQTTConnectionLost:
		state.logger.Error("mqtt@default connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		state.logger.Debug("mqtt@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// routeCommand forwards a command received from the broker to the parent,
// which knows the account owning the entity.
func (state *MQTTActor) routeCommand(ctx actor.Context, msg ParsedCommand) {
	cmd, err := actorutil.ParsedMQTTCommandToCommand(*msg.Command)
	if err != nil {
		state.logger.Warn("mqtt@default invalid command", zap.Any("command", msg.Command), zap.Error(err))
		return
	}
	state.logger.Debug("mqtt@default command", zap.Stringer("command", cmd))
	ctx.Send(ctx.Parent(), *cmd)
}

func (state *MQTTActor) event2MQTTMessage(event any) (*rawMessage, error) {
	switch msg := event.(type) {
	case domain.FloatSensorUpdateEvent:
		return &rawMessage{
			topic:   state.client.SensorStateTopic(msg.Id),
			message: fmt.Sprintf(fmt.Sprintf("%%.%df", msg.Decimals), msg.Value),
		}, nil
	case domain.TextSensorUpdateEvent:
		return &rawMessage{
			topic:   state.client.SensorStateTopic(msg.Id),
			message: msg.Value,
		}, nil
	case domain.EntityAvailabilityUpdateEvent:
		return &rawMessage{
			topic:   state.client.AvailabilityTopic(msg.EntityType, msg.Id),
			message: availabilityPayload(msg.Value),
			retain:  true,
		}, nil
	case domain.ClimateStateUpdateEvent:
		payload, err := json.Marshal(msg)
		if err != nil {
			return nil, err
		}
		return &rawMessage{
			topic:   state.client.ClimateStateTopic(msg.Id),
			message: string(payload),
			retain:  true,
		}, nil
	case domain.WaterHeaterStateUpdateEvent:
		payload, err := json.Marshal(msg)
		if err != nil {
			return nil, err
		}
		return &rawMessage{
			topic:   state.client.WaterHeaterStateTopic(msg.Id),
			message: string(payload),
			retain:  true,
		}, nil
	case domain.BridgeStateUpdateEvent:
		return &rawMessage{
			topic:   state.client.BridgeStateTopic(),
			message: availabilityPayload(msg.Value),
			retain:  true,
		}, nil
	default:
		return nil, nil
	}
}

func (state *MQTTActor) publishSensorValue(ctx actor.Context, event domain.SensorUpdateEvent, retain bool) {
	msg, err := state.event2MQTTMessage(event)
	if err != nil {
		state.logger.Error("mqtt@publish: cannot encode event", zap.String("type", fmt.Sprintf("%T", event)), zap.Error(err))
		return
	}
	if msg != nil {
		state.logger.Sugar().Debugf("mqtt@publish: sensor publish %s => %s", msg.topic, msg.message)
		state.client.Publish(msg.topic, msg.message, 1, msg.retain || retain, func(err error) {
			ctx.Send(ctx.Self(), publishResult{Error: err})
		}, 5*time.Second)
		state.behavior.BecomeStacked(state.PublishResultReceive)
	}
}

func (state *MQTTActor) publishMessage(ctx actor.Context, topic, payload string, retain bool, replyTo *actor.PID) {
	state.logger.Sugar().Debugf("mqtt@publish: message publish %s => %s", topic, payload)
	state.client.Publish(topic, payload, 1, retain, func(err error) {
		ctx.Send(ctx.Self(), publishResult{ReplyTo: replyTo, Error: err})
	}, 5*time.Second)
	state.behavior.BecomeStacked(state.PublishResultReceive)
}

// PublishResultReceive waits for the broker ack of the last publish. Messages
// are published one at a time, in order.
func (state *MQTTActor) PublishResultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case publishResult:
		if msg.Error != nil {
			state.logger.Error("mqtt@publishing could not publish a message", zap.Error(msg.Error))
		}
		if msg.ReplyTo != nil {
			ctx.Send(msg.ReplyTo, domain.PublishMessageResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: msg.Error,
				},
			})
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashOldest(ctx)
	case MQTTConnectionLost:
		state.logger.Error("mqtt@publishing connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Stopping:
		state.stop()
	default:
		state.logger.Debug("mqtt@publishing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) discoveryMessages(sensors []domain.GenericSensor, climates []domain.GenericClimate,
	waterHeaters []domain.GenericWaterHeater) (map[string][]byte, error) {
	messages := map[string][]byte{}
	for i := range sensors {
		payload, err := json.Marshal(mqtt.GenericSensorToHADiscoveryMessage(state.client, sensors[i]))
		if err != nil {
			return nil, err
		}
		messages[state.client.HADiscoverySensorTopic(sensors[i])] = payload
	}
	for i := range climates {
		payload, err := json.Marshal(mqtt.GenericClimateToHADiscoveryMessage(state.client, climates[i]))
		if err != nil {
			return nil, err
		}
		messages[state.client.HADiscoveryClimateTopic(climates[i])] = payload
	}
	for i := range waterHeaters {
		payload, err := json.Marshal(mqtt.GenericWaterHeaterToHADiscoveryMessage(state.client, waterHeaters[i]))
		if err != nil {
			return nil, err
		}
		messages[state.client.HADiscoveryWaterHeaterTopic(waterHeaters[i])] = payload
	}
	return messages, nil
}

func (state *MQTTActor) PublishHomeAssistantDiscovery(sensors []domain.GenericSensor, climates []domain.GenericClimate,
	waterHeaters []domain.GenericWaterHeater) error {
	messages, err := state.discoveryMessages(sensors, climates, waterHeaters)
	if err != nil {
		return err
	}
	for topic, payload := range messages {
		state.client.Publish(topic, payload, 0, true, state.logPublishError(topic), 1*time.Second)
	}
	return nil
}

// RemoveHomeAssistantDiscovery publishes an empty retained config for every
// entity, which removes it from Home Assistant.
func (state *MQTTActor) RemoveHomeAssistantDiscovery(sensors []domain.GenericSensor, climates []domain.GenericClimate,
	waterHeaters []domain.GenericWaterHeater) {
	messages, _ := state.discoveryMessages(sensors, climates, waterHeaters)
	for topic := range messages {
		state.client.Publish(topic, []byte{}, 0, true, state.logPublishError(topic), 1*time.Second)
	}
}

func (state *MQTTActor) logPublishError(topic string) func(error) {
	return func(err error) {
		if err != nil {
			state.logger.Warn("mqtt: discovery publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}
}

func (state *MQTTActor) stop() {
	if state.client == nil {
		return
	}
	state.logger.Debug("mqtt: disconnect")
	state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_OFFLINE, 0, true, func(error) {}, 500*time.Millisecond)
	state.client.Disconnect(500 * time.Millisecond)
	state.client = nil
}

func availabilityPayload(value bool) string {
	if value {
		return mqtt.MQTT_PAYLOAD_ONLINE
	}
	return mqtt.MQTT_PAYLOAD_OFFLINE
}

// NewTestMQTTActor never connects to a broker. Every message it receives is
// handed to record, when given.
func NewTestMQTTActor(config *config.Config, logger *zap.Logger, record func(any)) *MQTTActor {
	act := &MQTTActor{
		config:   config,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
		record:   record,
	}
	act.behavior.Become(act.DummyReceive)
	return act
}

func (state *MQTTActor) DummyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), nil, nil)
		return
	case *actor.Stopping, *actor.Stopped, *actor.Restarting:
		return
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case ParsedCommand:
		state.routeCommand(ctx, msg)
	case domain.PublishSensorUpdateRequest:
		if msg.ReplyToRef != nil {
			ctx.Respond(domain.PublishSensorUpdateResponse{})
		}
	case domain.PublishMessageRequest:
		actorutil.ForRequest(msg).Respond(ctx, domain.PublishMessageResponse{})
	case domain.PublishDiscoveryRequest:
		actorutil.ForRequest(msg).Respond(ctx, domain.PublishDiscoveryResponse{})
	}
	if state.record != nil {
		state.record(ctx.Message())
	}
}
