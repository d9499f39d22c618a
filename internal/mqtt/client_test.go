package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/berfenger/natureremo2mqtt/internal/config"
	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMessage struct {
	topic   string
	payload []byte
}

func (m testMessage) Duplicate() bool   { return false }
func (m testMessage) Qos() byte         { return 1 }
func (m testMessage) Retained() bool    { return false }
func (m testMessage) Topic() string     { return m.topic }
func (m testMessage) MessageID() uint16 { return 0 }
func (m testMessage) Payload() []byte   { return m.payload }
func (m testMessage) Ack()              {}

func testClient() *MQTTClient {
	cfg := config.Config{
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "loremTopic",
			HADiscoveryTopic: "ha",
		},
	}
	return CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)
}

func TestClimateCommandParse(t *testing.T) {

	assert := assert.New(t)

	r := climateCommandExtractor("loremTopic")
	cmd, err := parseClimateCommand(r, "loremTopic/climate/a1c3e5f7-1111_x/fan_mode/set", "auto")

	assert.NoError(err)
	assert.Equal("a1c3e5f7-1111_x", cmd.DeviceId, "device extract")
	assert.Equal(COMMAND_CLIMATE, cmd.Command)
	assert.Equal(CLIMATE_ATTR_FAN_MODE, cmd.Param)
	assert.Equal("auto", cmd.Payload)
}

func TestClimateCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	r := climateCommandExtractor("loremTopic")

	_, err := parseClimateCommand(r, "loremTopic/climate/my_device/mode/state", "cool")
	assert.ErrorIs(err, ErrInvalidCommand, "state topic")

	_, err = parseClimateCommand(r, "loremTopic/climate/my_device/power/set", "on")
	assert.ErrorIs(err, ErrInvalidCommand, "unknown attribute")

	_, err = parseClimateCommand(r, "otherTopic/climate/my_device/mode/set", "cool")
	assert.ErrorIs(err, ErrInvalidCommand, "other base topic")

	_, err = parseClimateCommand(r, "loremTopic/climate/my_device/temperature/set", "warm")
	assert.ErrorIs(err, ErrInvalidCommand, "temperature must be a number")
}

func TestParseMQTTCommand(t *testing.T) {
	c := testClient()
	cmd, err := c.ParseMQTTCommand(testMessage{topic: "loremTopic/climate/ac1/temperature/set", payload: []byte("24.5")})
	require.NoError(t, err)
	assert.Equal(t, "ac1", cmd.DeviceId)
	assert.Equal(t, CLIMATE_ATTR_TEMPERATURE, cmd.Param)
	assert.Equal(t, "24.5", cmd.Payload)
}

func TestTopics(t *testing.T) {
	assert := assert.New(t)
	c := testClient()

	assert.Equal("loremTopic/bridge/state", c.BridgeStateTopic())
	assert.Equal("loremTopic/cloud/state", c.CloudStateTopic())
	assert.Equal("loremTopic/sensor/dev-te/state", c.SensorStateTopic("dev-te"))
	assert.Equal("loremTopic/binary_sensor/dev-mo/state", c.BinarySensorStateTopic("dev-mo"))
	assert.Equal("loremTopic/climate/ac1/mode/state", c.ClimateStateTopic("ac1", CLIMATE_ATTR_MODE))
	assert.Equal("loremTopic/climate/ac1/mode/set", c.ClimateCommandTopic("ac1", CLIMATE_ATTR_MODE))
	assert.Equal("loremTopic/climate/ac1/attributes", c.ClimateAttributesTopic("ac1"))
	assert.Equal("loremTopic/climate/+/+/set", c.commandTopic())
}

func TestSensorDiscoveryMessage(t *testing.T) {
	assert := assert.New(t)
	c := testClient()
	sensor := domain.GenericSensor{
		Device:      domain.Device{Id: "dev", Name: "Living Room"},
		Id:          "dev-mo",
		SensorType:  domain.SENSOR_TYPE_BINARY,
		Name:        "Living Room Motion Sensor",
		DeviceClass: domain.DEVICE_CLASS_MOTION,
		UniqueId:    "dev-mo",
	}

	assert.Equal("ha/binary_sensor/dev/dev-mo/config", HADiscoverySensorTopic(c, sensor))

	msg := GenericSensorToHADiscoveryMessage(c, sensor)
	assert.Equal("loremTopic/binary_sensor/dev-mo/state", msg.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ON, msg.PayloadOn)
	assert.Equal(MQTT_PAYLOAD_OFF, msg.PayloadOff)
	assert.Equal(AVAILABILITY_MODE_ALL, msg.AvailabilityMode)
	assert.Equal([]HADiscoveryAvailability{{Topic: "loremTopic/bridge/state"}, {Topic: "loremTopic/cloud/state"}}, msg.Availability)
}

func TestBridgeSensorsDiscoveryMessage(t *testing.T) {
	assert := assert.New(t)
	c := testClient()
	sensors := domain.BridgeSensors(domain.BridgeDevice("loremTopic"))

	bridge := GenericSensorToHADiscoveryMessage(c, sensors[0])
	assert.Equal("loremTopic/bridge/state", bridge.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ONLINE, bridge.PayloadOn)
	assert.Empty(bridge.Availability)

	cloud := GenericSensorToHADiscoveryMessage(c, sensors[1])
	assert.Equal("loremTopic/cloud/state", cloud.StateTopic)
	assert.Equal([]HADiscoveryAvailability{{Topic: "loremTopic/bridge/state"}}, cloud.Availability)
}

func TestClimateDiscoveryMessage(t *testing.T) {
	assert := assert.New(t)
	c := testClient()
	climate := domain.GenericClimate{
		Device:          domain.Device{Id: "ac1", Name: "Daikin"},
		Id:              "ac1",
		Name:            "Living Room - Daikin",
		UniqueId:        "ac1",
		Modes:           []string{"cool", "off"},
		FanModes:        []string{"1", "auto"},
		MinTemp:         18,
		MaxTemp:         30,
		TempStep:        0.5,
		TemperatureUnit: domain.TEMPERATURE_UNIT_CELSIUS,
	}

	assert.Equal("ha/climate/ac1/ac1/config", HADiscoveryClimateTopic(c, climate))

	msg := GenericClimateToHADiscoveryMessage(c, climate)
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal("loremTopic/climate/ac1/mode/set", decoded["mode_command_topic"])
	assert.Equal("loremTopic/climate/ac1/current_temperature/state", decoded["current_temperature_topic"])
	assert.Equal("loremTopic/climate/ac1/fan_mode/set", decoded["fan_mode_command_topic"])
	assert.Equal(0.5, decoded["temp_step"])
	assert.Equal("all", decoded["availability_mode"])
	// no swing modes reported
	assert.NotContains(decoded, "swing_mode_command_topic")
	assert.NotContains(decoded, "swing_modes")
}
