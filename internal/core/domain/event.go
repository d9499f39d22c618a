package domain

import "fmt"

type SensorUpdateEventMixIn struct {
	Id string
}

type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value float64
}

type BinarySensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type CloudStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

// ClimateUpdateEvent carries the full state of one air conditioner. Nil
// temperatures and empty fan/swing modes are published as "None".
type ClimateUpdateEvent struct {
	SensorUpdateEventMixIn
	Mode               string
	TargetTemperature  *float64
	CurrentTemperature *float64
	FanMode            string
	SwingMode          string
	Attributes         map[string]any
}

// Non-sensor events published on the event stream

// CoordinatorUpdateEvent is published after every coordinator refresh.
type CoordinatorUpdateEvent struct {
	Success bool
	Error   error
	Data    *CloudData
}

// ClimateDiscoveryUpdateEvent is published when the capabilities of a climate
// change and its discovery config has to be sent again.
type ClimateDiscoveryUpdateEvent struct {
	Climate GenericClimate
}

var _ SensorUpdateEvent = (*ClimateUpdateEvent)(nil)
