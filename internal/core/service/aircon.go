package service

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/internal/core/port"
	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"
	"go.uber.org/zap"
)

const (
	HVAC_MODE_AUTO             = "auto"
	HVAC_MODE_FAN_ONLY         = "fan_only"
	HVAC_MODE_COOL             = "cool"
	HVAC_MODE_DRY              = "dry"
	HVAC_MODE_HEAT             = "heat"
	HVAC_MODE_OFF              = "off"
	DEFAULT_TARGET_TEMPERATURE = 20
)

var (
	ErrNotAnAircon       = errors.New("appliance is not an air conditioner")
	ErrUnsupportedMode   = errors.New("unsupported hvac mode")
	ErrUnsupportedOption = errors.New("unsupported option for current mode")
	ErrInvalidValue      = errors.New("invalid value")
)

var remoModeToHVAC = map[string]string{
	natureremo.AIRCON_MODE_AUTO:        HVAC_MODE_AUTO,
	natureremo.AIRCON_MODE_BLOW:        HVAC_MODE_FAN_ONLY,
	natureremo.AIRCON_MODE_COOL:        HVAC_MODE_COOL,
	natureremo.AIRCON_MODE_DRY:         HVAC_MODE_DRY,
	natureremo.AIRCON_MODE_WARM:        HVAC_MODE_HEAT,
	natureremo.AIRCON_BUTTON_POWER_OFF: HVAC_MODE_OFF,
}

var hvacToRemoMode = map[string]string{
	HVAC_MODE_AUTO:     natureremo.AIRCON_MODE_AUTO,
	HVAC_MODE_FAN_ONLY: natureremo.AIRCON_MODE_BLOW,
	HVAC_MODE_COOL:     natureremo.AIRCON_MODE_COOL,
	HVAC_MODE_DRY:      natureremo.AIRCON_MODE_DRY,
	HVAC_MODE_HEAT:     natureremo.AIRCON_MODE_WARM,
	HVAC_MODE_OFF:      natureremo.AIRCON_BUTTON_POWER_OFF,
}

// used when the cloud order of the modes is unknown
var remoModeOrder = []string{
	natureremo.AIRCON_MODE_AUTO,
	natureremo.AIRCON_MODE_BLOW,
	natureremo.AIRCON_MODE_COOL,
	natureremo.AIRCON_MODE_DRY,
	natureremo.AIRCON_MODE_WARM,
}

var defaultTargetTemperature = map[string]float64{
	HVAC_MODE_COOL: DEFAULT_TARGET_TEMPERATURE,
	HVAC_MODE_HEAT: DEFAULT_TARGET_TEMPERATURE,
}

func RemoModeToHVAC(remoMode string) (string, bool) {
	mode, ok := remoModeToHVAC[remoMode]
	return mode, ok
}

func HVACToRemoMode(mode string) (string, bool) {
	remoMode, ok := hvacToRemoMode[mode]
	return remoMode, ok
}

// Aircon translates between the cloud representation of an air conditioner
// and the climate entity exposed over MQTT.
type Aircon struct {
	applianceId         string
	name                string
	device              domain.Device
	tempUnit            string
	modes               map[string]natureremo.AirconModeRange
	modeOrder           []string
	remoMode            string
	hvacMode            string
	targetTemperature   *float64
	currentTemperature  *float64
	fanMode             string
	swingMode           string
	previousTargetTemps map[string]float64
	Logger              *zap.Logger
}

func NewAircon(appliance natureremo.Appliance, bridge domain.Device, logger *zap.Logger) (*Aircon, error) {
	if appliance.Aircon == nil {
		return nil, fmt.Errorf("%s: %w", appliance.Id, ErrNotAnAircon)
	}
	a := &Aircon{
		applianceId:         appliance.Id,
		name:                fmt.Sprintf("%s - %s", appliance.Device.Name, domain.ApplianceModelName(appliance)),
		device:              domain.ApplianceDevice(appliance, bridge),
		tempUnit:            domain.TEMPERATURE_UNIT_CELSIUS,
		modes:               appliance.Aircon.Range.Modes,
		modeOrder:           appliance.Aircon.Range.ModeOrder,
		hvacMode:            HVAC_MODE_OFF,
		previousTargetTemps: map[string]float64{},
		Logger:              logger,
	}
	a.Update(appliance.Settings, nil)
	return a, nil
}

func (a *Aircon) ApplianceId() string {
	return a.applianceId
}

// Update applies the settings reported by the cloud. The current temperature
// is only refreshed when device is given.
func (a *Aircon) Update(settings *natureremo.AirconSettings, device *natureremo.Device) {
	if settings != nil {
		a.remoMode = settings.Mode
		if settings.Temp != "" {
			if temp, err := strconv.ParseFloat(settings.Temp, 64); err == nil {
				a.targetTemperature = &temp
				a.previousTargetTemps[settings.Mode] = temp
			} else {
				a.Logger.Warn("aircon: cannot parse target temperature", zap.String("temp", settings.Temp))
				a.targetTemperature = nil
			}
		} else {
			a.targetTemperature = nil
		}
		if settings.Button == natureremo.AIRCON_BUTTON_POWER_OFF {
			a.hvacMode = HVAC_MODE_OFF
		} else if mode, ok := remoModeToHVAC[settings.Mode]; ok {
			a.hvacMode = mode
		} else {
			a.Logger.Warn("aircon: unknown operation mode", zap.String("mode", settings.Mode))
		}
		a.fanMode = settings.Vol
		a.swingMode = settings.Dir
	}
	if device != nil {
		if te, ok := device.NewestEvents[natureremo.SENSOR_KIND_TEMPERATURE]; ok {
			val := te.Val
			a.currentTemperature = &val
		}
	}
}

func (a *Aircon) HVACMode() string {
	return a.hvacMode
}

func (a *Aircon) TargetTemperature() *float64 {
	return a.targetTemperature
}

func (a *Aircon) CurrentTemperature() *float64 {
	return a.currentTemperature
}

func (a *Aircon) currentTempRange() []float64 {
	var temps []float64
	for _, t := range a.modes[a.remoMode].Temp {
		if t == "" {
			continue
		}
		v, err := strconv.ParseFloat(t, 64)
		if err != nil {
			continue
		}
		temps = append(temps, v)
	}
	return temps
}

func (a *Aircon) MinTemp() float64 {
	temps := a.currentTempRange()
	if len(temps) == 0 {
		return 0
	}
	return slices.Min(temps)
}

func (a *Aircon) MaxTemp() float64 {
	temps := a.currentTempRange()
	if len(temps) == 0 {
		return 0
	}
	return slices.Max(temps)
}

func (a *Aircon) TargetTemperatureStep() float64 {
	temps := a.currentTempRange()
	if len(temps) >= 2 {
		step := math.Round((temps[1]-temps[0])*10) / 10
		if step == 1.0 || step == 0.5 {
			return step
		}
	}
	return 1
}

func (a *Aircon) HVACModes() []string {
	order := a.modeOrder
	if len(order) == 0 {
		order = remoModeOrder
	}
	var modes []string
	for _, remoMode := range order {
		if _, ok := a.modes[remoMode]; !ok {
			continue
		}
		if mode, ok := remoModeToHVAC[remoMode]; ok && mode != HVAC_MODE_OFF {
			modes = append(modes, mode)
		}
	}
	return append(modes, HVAC_MODE_OFF)
}

func (a *Aircon) FanModes() []string {
	return a.modes[a.remoMode].Vol
}

func (a *Aircon) SwingModes() []string {
	return a.modes[a.remoMode].Dir
}

func (a *Aircon) PreviousTargetTemperatures() map[string]float64 {
	prev := make(map[string]float64, len(a.previousTargetTemps))
	for k, v := range a.previousTargetTemps {
		prev[k] = v
	}
	return prev
}

func (a *Aircon) SetTemperature(temperature float64) (natureremo.AirconSettingsUpdate, error) {
	if math.IsNaN(temperature) || math.IsInf(temperature, 0) {
		return natureremo.AirconSettingsUpdate{}, fmt.Errorf("temperature %v: %w", temperature, ErrInvalidValue)
	}
	temp := formatTemperature(temperature)
	return natureremo.AirconSettingsUpdate{Temperature: &temp}, nil
}

func (a *Aircon) SetHVACMode(mode string) (natureremo.AirconSettingsUpdate, error) {
	if mode == HVAC_MODE_OFF {
		button := natureremo.AIRCON_BUTTON_POWER_OFF
		return natureremo.AirconSettingsUpdate{Button: &button}, nil
	}
	remoMode, ok := hvacToRemoMode[mode]
	if !ok {
		return natureremo.AirconSettingsUpdate{}, fmt.Errorf("%s: %w", mode, ErrUnsupportedMode)
	}
	if _, ok := a.modes[remoMode]; !ok {
		return natureremo.AirconSettingsUpdate{}, fmt.Errorf("%s: %w", mode, ErrUnsupportedMode)
	}
	update := natureremo.AirconSettingsUpdate{OperationMode: &remoMode}
	if prev, ok := a.previousTargetTemps[remoMode]; ok {
		temp := formatTemperature(prev)
		update.Temperature = &temp
	} else if def, ok := defaultTargetTemperature[mode]; ok {
		temp := formatTemperature(def)
		update.Temperature = &temp
	}
	if a.hvacMode == HVAC_MODE_OFF {
		button := natureremo.AIRCON_BUTTON_POWER_ON
		update.Button = &button
	}
	return update, nil
}

func (a *Aircon) SetFanMode(fanMode string) (natureremo.AirconSettingsUpdate, error) {
	if modes := a.FanModes(); len(modes) > 0 && !slices.Contains(modes, fanMode) {
		return natureremo.AirconSettingsUpdate{}, fmt.Errorf("fan mode %s: %w", fanMode, ErrUnsupportedOption)
	}
	return natureremo.AirconSettingsUpdate{AirVolume: &fanMode}, nil
}

func (a *Aircon) SetSwingMode(swingMode string) (natureremo.AirconSettingsUpdate, error) {
	if modes := a.SwingModes(); len(modes) > 0 && !slices.Contains(modes, swingMode) {
		return natureremo.AirconSettingsUpdate{}, fmt.Errorf("swing mode %s: %w", swingMode, ErrUnsupportedOption)
	}
	return natureremo.AirconSettingsUpdate{AirDirection: &swingMode}, nil
}

func (a *Aircon) State() domain.ClimateUpdateEvent {
	return domain.ClimateUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: a.applianceId,
		},
		Mode:               a.hvacMode,
		TargetTemperature:  a.targetTemperature,
		CurrentTemperature: a.currentTemperature,
		FanMode:            a.fanMode,
		SwingMode:          a.swingMode,
		Attributes: map[string]any{
			domain.ATTRIBUTE_PREVIOUS_TARGET_TEMP: a.PreviousTargetTemperatures(),
		},
	}
}

func (a *Aircon) Climate() domain.GenericClimate {
	return domain.GenericClimate{
		Device:          a.device,
		Id:              a.applianceId,
		Name:            a.name,
		UniqueId:        a.applianceId,
		Icon:            "mdi:air-conditioner",
		Modes:           a.HVACModes(),
		FanModes:        a.FanModes(),
		SwingModes:      a.SwingModes(),
		MinTemp:         a.MinTemp(),
		MaxTemp:         a.MaxTemp(),
		TempStep:        a.TargetTemperatureStep(),
		TemperatureUnit: a.tempUnit,
	}
}

// SameCapabilities reports whether two climate descriptions announce the same
// modes and temperature limits.
func SameCapabilities(a, b domain.GenericClimate) bool {
	return slices.Equal(a.Modes, b.Modes) &&
		slices.Equal(a.FanModes, b.FanModes) &&
		slices.Equal(a.SwingModes, b.SwingModes) &&
		a.MinTemp == b.MinTemp &&
		a.MaxTemp == b.MaxTemp &&
		a.TempStep == b.TempStep
}

// integral temperatures are sent without decimals
func formatTemperature(temperature float64) string {
	if temperature == math.Trunc(temperature) {
		return strconv.FormatInt(int64(temperature), 10)
	}
	return strconv.FormatFloat(temperature, 'f', -1, 64)
}

var _ port.AirconControlLogic = (*Aircon)(nil)
