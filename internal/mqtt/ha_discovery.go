package mqtt

import (
	"encoding/json"
	"fmt"

	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
)

const (
	AVAILABILITY_MODE_ALL = "all"
)

type HADiscoveryConfig struct {
	Device            HADiscoveryDevice         `json:"device"`
	StateTopic        string                    `json:"state_topic"`
	StateClass        string                    `json:"state_class,omitempty"`
	DeviceClass       string                    `json:"device_class,omitempty"`
	UnitOfMeasurement string                    `json:"unit_of_measurement,omitempty"`
	Availability      []HADiscoveryAvailability `json:"availability,omitempty"`
	AvailabilityMode  string                    `json:"availability_mode,omitempty"`
	EntityCategory    string                    `json:"entity_category,omitempty"`
	Name              string                    `json:"name"`
	UniqueId          string                    `json:"unique_id"`
	Platform          string                    `json:"platform"`
	EnabledByDefault  *bool                     `json:"enabled_by_default,omitempty"`
	PayloadOn         string                    `json:"payload_on,omitempty"`
	PayloadOff        string                    `json:"payload_off,omitempty"`
	Icon              string                    `json:"icon,omitempty"`
}

type HAClimateDiscoveryConfig struct {
	Device                  HADiscoveryDevice         `json:"device"`
	Availability            []HADiscoveryAvailability `json:"availability,omitempty"`
	AvailabilityMode        string                    `json:"availability_mode,omitempty"`
	Name                    string                    `json:"name"`
	UniqueId                string                    `json:"unique_id"`
	Platform                string                    `json:"platform"`
	Icon                    string                    `json:"icon,omitempty"`
	ModeCommandTopic        string                    `json:"mode_command_topic"`
	ModeStateTopic          string                    `json:"mode_state_topic"`
	Modes                   []string                  `json:"modes"`
	TemperatureCommandTopic string                    `json:"temperature_command_topic"`
	TemperatureStateTopic   string                    `json:"temperature_state_topic"`
	CurrentTemperatureTopic string                    `json:"current_temperature_topic"`
	FanModeCommandTopic     string                    `json:"fan_mode_command_topic,omitempty"`
	FanModeStateTopic       string                    `json:"fan_mode_state_topic,omitempty"`
	FanModes                []string                  `json:"fan_modes,omitempty"`
	SwingModeCommandTopic   string                    `json:"swing_mode_command_topic,omitempty"`
	SwingModeStateTopic     string                    `json:"swing_mode_state_topic,omitempty"`
	SwingModes              []string                  `json:"swing_modes,omitempty"`
	MinTemp                 float64                   `json:"min_temp"`
	MaxTemp                 float64                   `json:"max_temp"`
	TempStep                float64                   `json:"temp_step"`
	Precision               float64                   `json:"precision"`
	TemperatureUnit         string                    `json:"temperature_unit,omitempty"`
	JsonAttributesTopic     string                    `json:"json_attributes_topic"`
}

type HADiscoveryAvailability struct {
	Topic string `json:"topic"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

func HADiscoverySensorTopic(client *MQTTClient, sensor domain.GenericSensor) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", client.DiscoveryPrefix(), sensor.SensorType, sensor.Device.Id, sensor.Id)
}

func HADiscoveryClimateTopic(client *MQTTClient, climate domain.GenericClimate) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", client.DiscoveryPrefix(), domain.COMPONENT_CLIMATE, climate.Device.Id, climate.Id)
}

func GenericSensorToHADiscoveryMessage(client *MQTTClient, sensor domain.GenericSensor) HADiscoveryConfig {
	dev := device(sensor.Device)
	var topic string
	switch {
	case sensor.Id == domain.SENSOR_ID_BRIDGE_STATE:
		topic = client.BridgeStateTopic()
	case sensor.Id == domain.SENSOR_ID_CLOUD_STATE:
		topic = client.CloudStateTopic()
	case sensor.SensorType == domain.SENSOR_TYPE_SENSOR:
		topic = client.SensorStateTopic(sensor.Id)
	case sensor.SensorType == domain.SENSOR_TYPE_BINARY:
		topic = client.BinarySensorStateTopic(sensor.Id)
	}
	disConfig := HADiscoveryConfig{
		Device:            dev,
		StateTopic:        topic,
		StateClass:        sensor.StateClass,
		DeviceClass:       sensor.DeviceClass,
		UnitOfMeasurement: sensor.UnitOfMeasurement,
		EntityCategory:    sensor.EntityCategory,
		Name:              sensor.Name,
		UniqueId:          sensor.UniqueId,
		Icon:              sensor.Icon,
		EnabledByDefault:  sensor.EnabledByDefault,
		Platform:          "mqtt",
	}
	switch sensor.Id {
	case domain.SENSOR_ID_BRIDGE_STATE:
		disConfig.PayloadOn = MQTT_PAYLOAD_ONLINE
		disConfig.PayloadOff = MQTT_PAYLOAD_OFFLINE
	case domain.SENSOR_ID_CLOUD_STATE:
		// only depends on the bridge so it can report the cloud as down
		disConfig.PayloadOn = MQTT_PAYLOAD_ONLINE
		disConfig.PayloadOff = MQTT_PAYLOAD_OFFLINE
		disConfig.Availability = []HADiscoveryAvailability{{Topic: client.BridgeStateTopic()}}
	default:
		disConfig.Availability = availability(client)
		disConfig.AvailabilityMode = AVAILABILITY_MODE_ALL
		if sensor.SensorType == domain.SENSOR_TYPE_BINARY {
			disConfig.PayloadOn = MQTT_PAYLOAD_ON
			disConfig.PayloadOff = MQTT_PAYLOAD_OFF
		}
	}
	return disConfig
}

func GenericClimateToHADiscoveryMessage(client *MQTTClient, climate domain.GenericClimate) HAClimateDiscoveryConfig {
	disConfig := HAClimateDiscoveryConfig{
		Device:                  device(climate.Device),
		Availability:            availability(client),
		AvailabilityMode:        AVAILABILITY_MODE_ALL,
		Name:                    climate.Name,
		UniqueId:                climate.UniqueId,
		Platform:                "mqtt",
		Icon:                    climate.Icon,
		ModeCommandTopic:        client.ClimateCommandTopic(climate.Id, CLIMATE_ATTR_MODE),
		ModeStateTopic:          client.ClimateStateTopic(climate.Id, CLIMATE_ATTR_MODE),
		Modes:                   climate.Modes,
		TemperatureCommandTopic: client.ClimateCommandTopic(climate.Id, CLIMATE_ATTR_TEMPERATURE),
		TemperatureStateTopic:   client.ClimateStateTopic(climate.Id, CLIMATE_ATTR_TEMPERATURE),
		CurrentTemperatureTopic: client.ClimateStateTopic(climate.Id, CLIMATE_ATTR_CURRENT_TEMPERATURE),
		MinTemp:                 climate.MinTemp,
		MaxTemp:                 climate.MaxTemp,
		TempStep:                climate.TempStep,
		Precision:               climate.TempStep,
		TemperatureUnit:         climate.TemperatureUnit,
		JsonAttributesTopic:     client.ClimateAttributesTopic(climate.Id),
	}
	if len(climate.FanModes) > 0 {
		disConfig.FanModeCommandTopic = client.ClimateCommandTopic(climate.Id, CLIMATE_ATTR_FAN_MODE)
		disConfig.FanModeStateTopic = client.ClimateStateTopic(climate.Id, CLIMATE_ATTR_FAN_MODE)
		disConfig.FanModes = climate.FanModes
	}
	if len(climate.SwingModes) > 0 {
		disConfig.SwingModeCommandTopic = client.ClimateCommandTopic(climate.Id, CLIMATE_ATTR_SWING_MODE)
		disConfig.SwingModeStateTopic = client.ClimateStateTopic(climate.Id, CLIMATE_ATTR_SWING_MODE)
		disConfig.SwingModes = climate.SwingModes
	}
	return disConfig
}

func availability(client *MQTTClient) []HADiscoveryAvailability {
	return []HADiscoveryAvailability{
		{Topic: client.BridgeStateTopic()},
		{Topic: client.CloudStateTopic()},
	}
}

func device(d domain.Device) HADiscoveryDevice {
	return HADiscoveryDevice{
		Id:           []string{d.Id},
		Manufacturer: d.Manufacturer,
		Version:      d.Version,
		Model:        d.Model,
		Name:         d.Name,
		ViaDevice:    d.ViaDevice,
	}
}

// DiscoveryMessages renders the retained discovery config of every entity.
func DiscoveryMessages(client *MQTTClient, sensors []domain.GenericSensor, climates []domain.GenericClimate) ([]Outgoing, error) {
	messages := make([]Outgoing, 0, len(sensors)+len(climates))
	for i := range sensors {
		payload, err := json.Marshal(GenericSensorToHADiscoveryMessage(client, sensors[i]))
		if err != nil {
			return nil, err
		}
		messages = append(messages, Outgoing{
			Topic:   HADiscoverySensorTopic(client, sensors[i]),
			Payload: string(payload),
			Retain:  true,
		})
	}
	for i := range climates {
		payload, err := json.Marshal(GenericClimateToHADiscoveryMessage(client, climates[i]))
		if err != nil {
			return nil, err
		}
		messages = append(messages, Outgoing{
			Topic:   HADiscoveryClimateTopic(client, climates[i]),
			Payload: string(payload),
			Retain:  true,
		})
	}
	return messages, nil
}
