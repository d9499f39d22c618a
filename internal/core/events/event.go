package events

import (
	"time"

	. "github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/internal/core/service"
	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"
)

// DeviceToUpdateEvents converts the newest events of a device into sensor
// updates. Motion is evaluated against now.
func DeviceToUpdateEvents(device *natureremo.Device, now time.Time) []any {
	var events []any

	for _, kind := range []string{
		natureremo.SENSOR_KIND_TEMPERATURE,
		natureremo.SENSOR_KIND_HUMIDITY,
		natureremo.SENSOR_KIND_ILLUMINANCE,
	} {
		value, ok := device.NewestEvents[kind]
		if !ok {
			continue
		}
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SensorId(device.Id, kind),
			},
			Value: value.Val,
		})
	}

	if ev := MotionToUpdateEvent(device, now); ev != nil {
		events = append(events, *ev)
	}

	return events
}

func MotionToUpdateEvent(device *natureremo.Device, now time.Time) *BinarySensorUpdateEvent {
	motion, ok := device.NewestEvents[natureremo.SENSOR_KIND_MOTION]
	if !ok {
		return nil
	}
	return &BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SensorId(device.Id, natureremo.SENSOR_KIND_MOTION),
		},
		Value: service.MotionDetected(motion.CreatedAt, now),
	}
}

func CloudStateToUpdateEvent(online bool) CloudStateUpdateEvent {
	return CloudStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_CLOUD_STATE,
		},
		Value: online,
	}
}

func BridgeStateToUpdateEvent(online bool) BridgeStateUpdateEvent {
	return BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BRIDGE_STATE,
		},
		Value: online,
	}
}
