package mqtt

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"time"

	"github.com/berfenger/natureremo2mqtt/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	MQTT_PAYLOAD_ONLINE              = "online"
	MQTT_PAYLOAD_OFFLINE             = "offline"
	MQTT_PAYLOAD_ON                  = "on"
	MQTT_PAYLOAD_OFF                 = "off"
	MQTT_PAYLOAD_NONE                = "None"
	CLIMATE_ATTR_MODE                = "mode"
	CLIMATE_ATTR_TEMPERATURE         = "temperature"
	CLIMATE_ATTR_CURRENT_TEMPERATURE = "current_temperature"
	CLIMATE_ATTR_FAN_MODE            = "fan_mode"
	CLIMATE_ATTR_SWING_MODE          = "swing_mode"
	COMMAND_CLIMATE                  = "climate"
)

var (
	ErrInvalidCommand = errors.New("invalid command")
	ErrTimeout        = errors.New("MQTT operation timed out")
)

// Outgoing is a message to be published by MQTTClient.
type Outgoing struct {
	Topic   string
	Payload string
	Retain  bool
}

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	clientId := cfg.MQTT.ClientId
	if clientId == "" {
		clientId = fmt.Sprintf("natureremo_%d", rand.Intn(1000))
	}
	opts.SetClientID(clientId)
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	// reconnection is handled by restarting the actor
	opts.SetAutoReconnect(false)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetWill(bridgeStateTopic(cfg.MQTT.BaseTopic), MQTT_PAYLOAD_OFFLINE, 0, true)

	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client:               mqtt.NewClient(opts),
		cfg:                  cfg.MQTT,
		climateCommandRegexp: climateCommandExtractor(cfg.MQTT.BaseTopic),
	}
}

type MQTTClient struct {
	client               mqtt.Client
	cfg                  config.MQTTConfig
	climateCommandRegexp *regexp.Regexp
}

// ParsedMQTTCommand is a command received on a climate command topic.
type ParsedMQTTCommand struct {
	DeviceId string
	Command  string
	Param    string
	Payload  string
}

func (c *MQTTClient) baseTopic() string {
	return c.cfg.BaseTopic
}

func (c *MQTTClient) Qos() byte {
	return c.cfg.Qos
}

func (c *MQTTClient) DiscoveryPrefix() string {
	if c.cfg.HADiscoveryTopic == "" {
		return config.DEFAULT_HA_TOPIC
	}
	return c.cfg.HADiscoveryTopic
}

// Topics

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.baseTopic())
}

func (c *MQTTClient) CloudStateTopic() string {
	return fmt.Sprintf("%s/cloud/state", c.baseTopic())
}

func (c *MQTTClient) SensorStateTopic(sensorId string) string {
	return fmt.Sprintf("%s/sensor/%s/state", c.baseTopic(), sensorId)
}

func (c *MQTTClient) BinarySensorStateTopic(sensorId string) string {
	return fmt.Sprintf("%s/binary_sensor/%s/state", c.baseTopic(), sensorId)
}

func (c *MQTTClient) ClimateStateTopic(climateId string, attr string) string {
	return fmt.Sprintf("%s/climate/%s/%s/state", c.baseTopic(), climateId, attr)
}

func (c *MQTTClient) ClimateCommandTopic(climateId string, attr string) string {
	return fmt.Sprintf("%s/climate/%s/%s/set", c.baseTopic(), climateId, attr)
}

func (c *MQTTClient) ClimateAttributesTopic(climateId string) string {
	return fmt.Sprintf("%s/climate/%s/attributes", c.baseTopic(), climateId)
}

func (c *MQTTClient) commandTopic() string {
	return fmt.Sprintf("%s/climate/+/+/set", c.baseTopic())
}

// Commands

func (c *MQTTClient) ParseMQTTCommand(msg mqtt.Message) (*ParsedMQTTCommand, error) {
	return parseClimateCommand(c.climateCommandRegexp, msg.Topic(), string(msg.Payload()))
}

func parseClimateCommand(r *regexp.Regexp, topic string, payload string) (*ParsedMQTTCommand, error) {
	m := r.FindStringSubmatch(topic)
	if len(m) != 3 {
		return nil, ErrInvalidCommand
	}
	if m[2] == CLIMATE_ATTR_TEMPERATURE {
		if _, err := strconv.ParseFloat(payload, 64); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
	}
	return &ParsedMQTTCommand{
		DeviceId: m[1],
		Command:  COMMAND_CLIMATE,
		Param:    m[2],
		Payload:  payload,
	}, nil
}

// Broker operations. Each one completes asynchronously through continuation.

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	awaitToken(c.client.Connect(), timeout, continuation)
}

func (c *MQTTClient) Publish(msg Outgoing, continuation func(error), timeout time.Duration) {
	awaitToken(c.client.Publish(msg.Topic, c.cfg.Qos, msg.Retain, msg.Payload), timeout, continuation)
}

func (c *MQTTClient) SubscribeToCommandTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	awaitToken(c.client.Subscribe(c.commandTopic(), c.cfg.Qos, handler), timeout, continuation)
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func awaitToken(token mqtt.Token, timeout time.Duration, continuation func(error)) {
	go func() {
		if !token.WaitTimeout(timeout) {
			continuation(ErrTimeout)
			return
		}
		continuation(token.Error())
	}()
}

func climateCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/climate/([a-zA-Z0-9_-]+)/(mode|temperature|fan_mode|swing_mode)/set$", regexp.QuoteMeta(baseTopic)))
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}
