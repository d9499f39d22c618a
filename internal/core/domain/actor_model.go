package domain

import (
	"github.com/asynkron/protoactor-go/actor"
	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_CLOUD        = "cloud"
	ACTOR_ID_COORDINATOR  = "coordinator"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
	ACTOR_ID_AIRCON       = "aircon"
	ACTOR_ID_SENSOR       = "sensor"
)

type ActorRef actor.PID

type ActorRequestMixIn struct {
	ReplyToRef *ActorRef
}

type ActorRequest interface {
	ReplyTo() *ActorRef
}

func (r ActorRequestMixIn) ReplyTo() *ActorRef {
	return r.ReplyToRef
}

type ActorResponseMixIn struct {
	ResponseError error
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ActorResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}

type ActorResponse interface {
	GetResponseError() error
	HasResponseError() bool
}

func ErrorResponse(err error) ActorResponseMixIn {
	return ActorResponseMixIn{ResponseError: err}
}

// Cloud actor

type ValidateTokenRequest struct {
	ActorRequestMixIn
}

type ValidateTokenResponse struct {
	ActorResponseMixIn
	User *natureremo.User
}

type FetchCloudDataRequest struct {
	ActorRequestMixIn
}

type FetchCloudDataResponse struct {
	ActorResponseMixIn
	Data *CloudData
}

type UpdateAirconSettingsRequest struct {
	ActorRequestMixIn
	ApplianceId string
	Update      natureremo.AirconSettingsUpdate
}

type UpdateAirconSettingsResponse struct {
	ActorResponseMixIn
	ApplianceId string
	Settings    *natureremo.AirconSettings
}

// Coordinator actor

type RefreshRequest struct {
	ActorRequestMixIn
}

type GetCloudDataRequest struct {
	ActorRequestMixIn
}

type GetCloudDataResponse struct {
	ActorResponseMixIn
	Data *CloudData
}

type PostApplianceSettingsRequest struct {
	ActorRequestMixIn
	ApplianceId string
	Update      natureremo.AirconSettingsUpdate
}

type PostApplianceSettingsResponse struct {
	ActorResponseMixIn
	ApplianceId string
	Settings    *natureremo.AirconSettings
}

// MQTT actor

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors  []GenericSensor
	Climates []GenericClimate
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

// Health

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
	// per child health, only set by supervisors
	Components map[string]bool
}
