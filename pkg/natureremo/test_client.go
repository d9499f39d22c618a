package natureremo

import (
	"context"
	"sync"
	"time"
)

const (
	TEST_DEVICE_ID        = "2d5a5b9e-6c1f-4d3b-9a55-0c6f7e1d2a01"
	TEST_DEVICE_MINI_ID   = "8e0c1f2a-3b4d-4e5f-8a9b-1c2d3e4f5a6b"
	TEST_APPLIANCE_AC_ID  = "a1c3e5f7-1111-4aaa-9bbb-0123456789ab"
	TEST_APPLIANCE_TV_ID  = "b2d4f6a8-2222-4ccc-8ddd-0123456789ab"
	TEST_APPLIANCE_AC2_ID = "c3e5a7b9-3333-4eee-8fff-0123456789ab"
)

// TestClient is an in-memory CloudClient holding one Nature Remo 3 with an
// air conditioner and a TV, and one Nature Remo mini with a second air
// conditioner.
type TestClient struct {
	mu         sync.Mutex
	devices    []Device
	appliances []Appliance

	Err            error
	failuresLeft   int
	gate           chan struct{}
	GetMeCalls     int
	DevicesCalls   int
	ApplianceCalls int
	Updates        []AirconSettingsUpdate
}

func NewTestClient() *TestClient {
	now := time.Now().UTC()
	remo := DeviceCore{
		Id:              TEST_DEVICE_ID,
		Name:            "Living Room",
		FirmwareVersion: "Remo/1.14.6",
		MacAddress:      "aa:bb:cc:dd:ee:01",
		SerialNumber:    "1W320100000001",
	}
	mini := DeviceCore{
		Id:              TEST_DEVICE_MINI_ID,
		Name:            "Bedroom",
		FirmwareVersion: "Remo-mini/1.14.6",
		MacAddress:      "aa:bb:cc:dd:ee:02",
		SerialNumber:    "2W120100000002",
	}
	return &TestClient{
		devices: []Device{
			{
				DeviceCore: remo,
				NewestEvents: map[string]SensorValue{
					SENSOR_KIND_TEMPERATURE: {Val: 24.5, CreatedAt: now.Add(-2 * time.Minute)},
					SENSOR_KIND_HUMIDITY:    {Val: 48, CreatedAt: now.Add(-2 * time.Minute)},
					SENSOR_KIND_ILLUMINANCE: {Val: 120, CreatedAt: now.Add(-2 * time.Minute)},
					SENSOR_KIND_MOTION:      {Val: 1, CreatedAt: now.Add(-10 * time.Second)},
				},
			},
			{
				DeviceCore: mini,
				NewestEvents: map[string]SensorValue{
					SENSOR_KIND_TEMPERATURE: {Val: 21, CreatedAt: now.Add(-1 * time.Minute)},
				},
			},
		},
		appliances: []Appliance{
			{
				Id:     TEST_APPLIANCE_AC_ID,
				Device: remo,
				Type:   APPLIANCE_TYPE_AC,
				Model: &ApplianceModel{
					Id:           "model-ac-1",
					Manufacturer: "daikin",
					RemoteName:   "arc478a30",
					Name:         "Daikin AC 001",
				},
				Nickname: "Living AC",
				Settings: &AirconSettings{
					Temp:     "26",
					TempUnit: "c",
					Mode:     AIRCON_MODE_COOL,
					Vol:      "auto",
					Dir:      "swing",
					Button:   AIRCON_BUTTON_POWER_ON,
				},
				Aircon: &Aircon{
					TempUnit: "c",
					Range: AirconRange{
						Modes: map[string]AirconModeRange{
							AIRCON_MODE_COOL: {
								Temp: []string{"18", "18.5", "19", "19.5", "20", "26", "30"},
								Vol:  []string{"1", "2", "3", "auto"},
								Dir:  []string{"1", "2", "swing"},
							},
							AIRCON_MODE_WARM: {
								Temp: []string{"14", "15", "16", "30"},
								Vol:  []string{"1", "2", "auto"},
								Dir:  []string{"1", "swing"},
							},
							AIRCON_MODE_DRY: {
								Temp: []string{"-2", "-1", "0", "1", "2"},
								Vol:  []string{"auto"},
								Dir:  []string{"swing"},
							},
							AIRCON_MODE_BLOW: {
								Temp: []string{""},
								Vol:  []string{"1", "2", "3"},
								Dir:  []string{"swing"},
							},
						},
						FixedButtons: []string{AIRCON_BUTTON_POWER_OFF},
					},
				},
			},
			{
				Id:       TEST_APPLIANCE_TV_ID,
				Device:   remo,
				Type:     APPLIANCE_TYPE_TV,
				Nickname: "TV",
				Model: &ApplianceModel{
					Id:           "model-tv-1",
					Manufacturer: "sony",
					Name:         "Sony TV",
				},
			},
			{
				Id:     TEST_APPLIANCE_AC2_ID,
				Device: mini,
				Type:   APPLIANCE_TYPE_AC,
				Model: &ApplianceModel{
					Id:           "model-ac-2",
					Manufacturer: "panasonic",
					Name:         "Panasonic AC",
				},
				Nickname: "Bedroom AC",
				Settings: &AirconSettings{
					Temp:   "22",
					Mode:   AIRCON_MODE_WARM,
					Vol:    "auto",
					Dir:    "1",
					Button: AIRCON_BUTTON_POWER_OFF,
				},
				Aircon: &Aircon{
					TempUnit: "c",
					Range: AirconRange{
						Modes: map[string]AirconModeRange{
							AIRCON_MODE_WARM: {
								Temp: []string{"16", "17", "18", "22"},
								Vol:  []string{"auto"},
								Dir:  []string{"1"},
							},
						},
					},
				},
			},
		},
	}
}

func (c *TestClient) GetMe(ctx context.Context) (*User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GetMeCalls++
	if err := c.failure(); err != nil {
		return nil, err
	}
	return &User{Id: "user-1", Nickname: "remo"}, nil
}

func (c *TestClient) GetDevices(ctx context.Context) ([]Device, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DevicesCalls++
	if err := c.failure(); err != nil {
		return nil, err
	}
	return append([]Device(nil), c.devices...), nil
}

func (c *TestClient) GetAppliances(ctx context.Context) ([]Appliance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ApplianceCalls++
	if err := c.failure(); err != nil {
		return nil, err
	}
	appliances := make([]Appliance, len(c.appliances))
	for i, a := range c.appliances {
		if a.Settings != nil {
			settings := *a.Settings
			a.Settings = &settings
		}
		appliances[i] = a
	}
	return appliances, nil
}

func (c *TestClient) UpdateAirconSettings(ctx context.Context, applianceId string, update AirconSettingsUpdate) (*AirconSettings, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failure(); err != nil {
		return nil, err
	}
	for i := range c.appliances {
		a := &c.appliances[i]
		if a.Id != applianceId {
			continue
		}
		if a.Settings == nil {
			return nil, &Error{Code: 400001, Message: "not an air conditioner"}
		}
		c.Updates = append(c.Updates, update)
		settings := ApplySettingsUpdate(*a.Settings, update)
		settings.UpdatedAt = time.Now().UTC()
		a.Settings = &settings
		result := settings
		return &result, nil
	}
	return nil, NotFoundError()
}

func (c *TestClient) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Err = err
	c.failuresLeft = 0
}

// FailTimes makes the next n calls fail with err.
func (c *TestClient) FailTimes(err error, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Err = err
	c.failuresLeft = n
}

// Hold makes GetDevices and UpdateAirconSettings wait until release is
// called or their context is done.
func (c *TestClient) Hold() (release func()) {
	gate := make(chan struct{})
	c.mu.Lock()
	c.gate = gate
	c.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.gate = nil
			c.mu.Unlock()
			close(gate)
		})
	}
}

func (c *TestClient) wait(ctx context.Context) error {
	c.mu.Lock()
	gate := c.gate
	c.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// failure must be called with mu held.
func (c *TestClient) failure() error {
	err := c.Err
	if err != nil && c.failuresLeft > 0 {
		c.failuresLeft--
		if c.failuresLeft == 0 {
			c.Err = nil
		}
	}
	return err
}

func (c *TestClient) SetSensorValue(deviceId, kind string, value SensorValue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.devices {
		if c.devices[i].Id == deviceId {
			events := make(map[string]SensorValue, len(c.devices[i].NewestEvents)+1)
			for k, v := range c.devices[i].NewestEvents {
				events[k] = v
			}
			events[kind] = value
			c.devices[i].NewestEvents = events
		}
	}
}

func (c *TestClient) Calls() (getMe, devices, appliances int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.GetMeCalls, c.DevicesCalls, c.ApplianceCalls
}

func (c *TestClient) SentUpdates() []AirconSettingsUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]AirconSettingsUpdate(nil), c.Updates...)
}

var _ CloudClient = (*TestClient)(nil)
