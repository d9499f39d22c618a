package port

import (
	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"
)

type AirconControlLogic interface {
	Update(settings *natureremo.AirconSettings, device *natureremo.Device)
	State() domain.ClimateUpdateEvent
	Climate() domain.GenericClimate
	SetTemperature(temperature float64) (natureremo.AirconSettingsUpdate, error)
	SetHVACMode(mode string) (natureremo.AirconSettingsUpdate, error)
	SetFanMode(fanMode string) (natureremo.AirconSettingsUpdate, error)
	SetSwingMode(swingMode string) (natureremo.AirconSettingsUpdate, error)
}
