package domain

import "fmt"

// AirconRequest

type AirconRequest interface {
	ActorRequest
	AirconCommand() string
	TargetAppliance() string
}

type AirconRequestMixIn struct {
	ActorRequestMixIn
	ApplianceId string
}

func (r AirconRequestMixIn) AirconCommand() string {
	return fmt.Sprintf("%T", r)
}

func (r AirconRequestMixIn) TargetAppliance() string {
	return r.ApplianceId
}

// Aircon commands

type AirconSetTemperatureRequest struct {
	AirconRequestMixIn
	Temperature float64
}

type AirconSetHVACModeRequest struct {
	AirconRequestMixIn
	Mode string
}

type AirconSetFanModeRequest struct {
	AirconRequestMixIn
	FanMode string
}

type AirconSetSwingModeRequest struct {
	AirconRequestMixIn
	SwingMode string
}

type AirconCommandResponse struct {
	ActorResponseMixIn
	ApplianceId string
}

// ensure interface compliance
var _ AirconRequest = (*AirconSetTemperatureRequest)(nil)
var _ AirconRequest = (*AirconSetHVACModeRequest)(nil)
var _ AirconRequest = (*AirconSetFanModeRequest)(nil)
var _ AirconRequest = (*AirconSetSwingModeRequest)(nil)
