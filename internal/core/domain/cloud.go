package domain

import (
	"time"

	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"
)

// CloudData is one coordinator refresh: every device and appliance of the
// account keyed by their cloud id.
type CloudData struct {
	Devices    map[string]natureremo.Device
	Appliances map[string]natureremo.Appliance
	FetchedAt  time.Time
}

func NewCloudData(devices []natureremo.Device, appliances []natureremo.Appliance, fetchedAt time.Time) *CloudData {
	data := &CloudData{
		Devices:    make(map[string]natureremo.Device, len(devices)),
		Appliances: make(map[string]natureremo.Appliance, len(appliances)),
		FetchedAt:  fetchedAt,
	}
	for _, d := range devices {
		data.Devices[d.Id] = d
	}
	for _, a := range appliances {
		data.Appliances[a.Id] = a
	}
	return data
}

func (d *CloudData) Device(id string) (natureremo.Device, bool) {
	if d == nil {
		return natureremo.Device{}, false
	}
	dev, ok := d.Devices[id]
	return dev, ok
}

func (d *CloudData) Appliance(id string) (natureremo.Appliance, bool) {
	if d == nil {
		return natureremo.Appliance{}, false
	}
	app, ok := d.Appliances[id]
	return app, ok
}
