package natureremo

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

const (
	SENSOR_KIND_TEMPERATURE = "te"
	SENSOR_KIND_HUMIDITY    = "hu"
	SENSOR_KIND_ILLUMINANCE = "il"
	SENSOR_KIND_MOTION      = "mo"

	APPLIANCE_TYPE_AC    = "AC"
	APPLIANCE_TYPE_TV    = "TV"
	APPLIANCE_TYPE_LIGHT = "LIGHT"
	APPLIANCE_TYPE_IR    = "IR"

	AIRCON_MODE_AUTO = "auto"
	AIRCON_MODE_BLOW = "blow"
	AIRCON_MODE_COOL = "cool"
	AIRCON_MODE_DRY  = "dry"
	AIRCON_MODE_WARM = "warm"

	AIRCON_BUTTON_POWER_ON  = ""
	AIRCON_BUTTON_POWER_OFF = "power-off"
)

type User struct {
	Id       string `json:"id"`
	Nickname string `json:"nickname"`
}

type DeviceCore struct {
	Id                string    `json:"id"`
	Name              string    `json:"name"`
	TemperatureOffset float64   `json:"temperature_offset"`
	HumidityOffset    float64   `json:"humidity_offset"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	FirmwareVersion   string    `json:"firmware_version"`
	MacAddress        string    `json:"mac_address"`
	SerialNumber      string    `json:"serial_number"`
}

// Device is a Nature Remo hub with its latest sensor readings, keyed by
// sensor kind (te, hu, il, mo).
type Device struct {
	DeviceCore
	NewestEvents map[string]SensorValue `json:"newest_events"`
}

type SensorValue struct {
	Val       float64   `json:"val"`
	CreatedAt time.Time `json:"created_at"`
}

// Appliance is a remote-controlled unit registered on a device. Model,
// Settings and Aircon are only present for some appliance types.
type Appliance struct {
	Id       string          `json:"id"`
	Device   DeviceCore      `json:"device"`
	Model    *ApplianceModel `json:"model"`
	Type     string          `json:"type"`
	Nickname string          `json:"nickname"`
	Image    string          `json:"image"`
	Settings *AirconSettings `json:"settings"`
	Aircon   *Aircon         `json:"aircon"`
}

type ApplianceModel struct {
	Id           string `json:"id"`
	Manufacturer string `json:"manufacturer"`
	RemoteName   string `json:"remote_name"`
	Name         string `json:"name"`
	Image        string `json:"image"`
}

type Aircon struct {
	Range    AirconRange `json:"range"`
	TempUnit string      `json:"tempUnit"`
}

type AirconRange struct {
	Modes        map[string]AirconModeRange `json:"modes"`
	FixedButtons []string                   `json:"fixedButtons"`
	// ModeOrder lists the keys of Modes in the order the cloud sent them.
	ModeOrder []string `json:"-" yaml:"-"`
}

func (r *AirconRange) UnmarshalJSON(data []byte) error {
	type plainRange AirconRange
	var raw struct {
		plainRange
		Modes json.RawMessage `json:"modes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = AirconRange(raw.plainRange)
	if len(raw.Modes) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw.Modes, &r.Modes); err != nil {
		return err
	}
	order, err := objectKeys(raw.Modes)
	if err != nil {
		return err
	}
	r.ModeOrder = order
	return nil
}

// objectKeys returns the keys of a JSON object in document order.
func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil || tok == nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("modes is not an object")
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		keys = append(keys, key)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// AirconModeRange lists the values accepted in one operation mode. Temp may
// contain empty strings for modes without a temperature setting.
type AirconModeRange struct {
	Temp []string `json:"temp"`
	Vol  []string `json:"vol"`
	Dir  []string `json:"dir"`
}

type AirconSettings struct {
	Temp      string    `json:"temp"`
	TempUnit  string    `json:"temp_unit"`
	Mode      string    `json:"mode"`
	Vol       string    `json:"vol"`
	Dir       string    `json:"dir"`
	Button    string    `json:"button"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AirconSettingsUpdate holds the fields of an aircon_settings request. Nil
// fields are not sent.
type AirconSettingsUpdate struct {
	Temperature   *string
	OperationMode *string
	AirVolume     *string
	AirDirection  *string
	Button        *string
}

func (u AirconSettingsUpdate) IsEmpty() bool {
	return u.Temperature == nil && u.OperationMode == nil && u.AirVolume == nil &&
		u.AirDirection == nil && u.Button == nil
}

func (u AirconSettingsUpdate) Fields() map[string]string {
	fields := map[string]string{}
	if u.Temperature != nil {
		fields["temperature"] = *u.Temperature
	}
	if u.OperationMode != nil {
		fields["operation_mode"] = *u.OperationMode
	}
	if u.AirVolume != nil {
		fields["air_volume"] = *u.AirVolume
	}
	if u.AirDirection != nil {
		fields["air_direction"] = *u.AirDirection
	}
	if u.Button != nil {
		fields["button"] = *u.Button
	}
	return fields
}

// ApplySettingsUpdate returns the settings an appliance would report after
// receiving update.
func ApplySettingsUpdate(settings AirconSettings, update AirconSettingsUpdate) AirconSettings {
	if update.Temperature != nil {
		settings.Temp = *update.Temperature
	}
	if update.OperationMode != nil {
		settings.Mode = *update.OperationMode
	}
	if update.AirVolume != nil {
		settings.Vol = *update.AirVolume
	}
	if update.AirDirection != nil {
		settings.Dir = *update.AirDirection
	}
	if update.Button != nil {
		settings.Button = *update.Button
	}
	return settings
}
