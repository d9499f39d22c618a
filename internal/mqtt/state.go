package mqtt

import (
	"encoding/json"
	"strconv"

	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
)

// StateMessages renders a sensor or climate update as the messages of its
// state topics. Unknown events render nothing.
func StateMessages(client *MQTTClient, event domain.SensorUpdateEvent) ([]Outgoing, error) {
	switch ev := event.(type) {
	case domain.FloatSensorUpdateEvent:
		return []Outgoing{{
			Topic:   client.SensorStateTopic(ev.Id),
			Payload: formatFloat(ev.Value),
		}}, nil
	case domain.BinarySensorUpdateEvent:
		return []Outgoing{{
			Topic:   client.BinarySensorStateTopic(ev.Id),
			Payload: onOff(ev.Value),
		}}, nil
	case domain.BridgeStateUpdateEvent:
		return []Outgoing{{
			Topic:   client.BridgeStateTopic(),
			Payload: onlineOffline(ev.Value),
			Retain:  true,
		}}, nil
	case domain.CloudStateUpdateEvent:
		return []Outgoing{{
			Topic:   client.CloudStateTopic(),
			Payload: onlineOffline(ev.Value),
			Retain:  true,
		}}, nil
	case domain.ClimateUpdateEvent:
		return climateMessages(client, ev)
	}
	return nil, nil
}

func climateMessages(client *MQTTClient, ev domain.ClimateUpdateEvent) ([]Outgoing, error) {
	attrs, err := json.Marshal(ev.Attributes)
	if err != nil {
		return nil, err
	}
	values := []struct {
		attr  string
		value string
	}{
		{CLIMATE_ATTR_MODE, ev.Mode},
		{CLIMATE_ATTR_TEMPERATURE, optionalFloat(ev.TargetTemperature)},
		{CLIMATE_ATTR_CURRENT_TEMPERATURE, optionalFloat(ev.CurrentTemperature)},
		{CLIMATE_ATTR_FAN_MODE, ev.FanMode},
		{CLIMATE_ATTR_SWING_MODE, ev.SwingMode},
	}
	messages := make([]Outgoing, 0, len(values)+1)
	for _, v := range values {
		// HA rejects None as a fan or swing mode
		if v.value == "" {
			continue
		}
		messages = append(messages, Outgoing{
			Topic:   client.ClimateStateTopic(ev.Id, v.attr),
			Payload: v.value,
			Retain:  true,
		})
	}
	return append(messages, Outgoing{
		Topic:   client.ClimateAttributesTopic(ev.Id),
		Payload: string(attrs),
		Retain:  true,
	}), nil
}

func onOff(value bool) string {
	if value {
		return MQTT_PAYLOAD_ON
	}
	return MQTT_PAYLOAD_OFF
}

func onlineOffline(value bool) string {
	if value {
		return MQTT_PAYLOAD_ONLINE
	}
	return MQTT_PAYLOAD_OFFLINE
}

func optionalFloat(value *float64) string {
	if value == nil {
		return MQTT_PAYLOAD_NONE
	}
	return formatFloat(*value)
}

// formatFloat renders the reading as reported by the cloud, without rounding.
func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

