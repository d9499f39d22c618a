package domain

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement
	DeviceClass       string // temperature, humidity, illuminance, motion, connectivity
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
	Icon              string
}

// GenericClimate describes an air conditioner. Mode lists and temperature
// bounds follow the unit's current operation mode.
type GenericClimate struct {
	Device          Device
	Id              string
	Name            string
	UniqueId        string
	Icon            string
	Modes           []string
	FanModes        []string
	SwingModes      []string
	MinTemp         float64
	MaxTemp         float64
	TempStep        float64
	TemperatureUnit string
}
