package service

import (
	"sort"

	"github.com/berfenger/natureremo2mqtt/internal/core/domain"
	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"
)

type DevicePlan struct {
	Device  natureremo.Device
	Sensors []domain.GenericSensor
	Aircons []natureremo.Appliance
}

type EntityPlan struct {
	Devices []DevicePlan
}

func (p *EntityPlan) Sensors() []domain.GenericSensor {
	var sensors []domain.GenericSensor
	for _, d := range p.Devices {
		sensors = append(sensors, d.Sensors...)
	}
	return sensors
}

func (p *EntityPlan) Aircons() []natureremo.Appliance {
	var aircons []natureremo.Appliance
	for _, d := range p.Devices {
		aircons = append(aircons, d.Aircons...)
	}
	return aircons
}

// PlanEntities selects the entities exposed for the given devices. An empty
// deviceIds selects every device of the account.
func PlanEntities(data *domain.CloudData, deviceIds []string, bridge domain.Device) (*EntityPlan, error) {
	if len(deviceIds) == 0 {
		for id := range data.Devices {
			deviceIds = append(deviceIds, id)
		}
		sort.Strings(deviceIds)
	}
	plan := &EntityPlan{}
	for _, deviceId := range deviceIds {
		device, ok := data.Device(deviceId)
		if !ok {
			return nil, natureremo.NotFoundError()
		}
		plan.Devices = append(plan.Devices, DevicePlan{
			Device:  device,
			Sensors: domain.RemoSensors(device, bridge),
			Aircons: deviceAircons(data, deviceId),
		})
	}
	return plan, nil
}

func deviceAircons(data *domain.CloudData, deviceId string) []natureremo.Appliance {
	var aircons []natureremo.Appliance
	for _, appliance := range data.Appliances {
		if appliance.Type == natureremo.APPLIANCE_TYPE_AC && appliance.Device.Id == deviceId && appliance.Aircon != nil {
			aircons = append(aircons, appliance)
		}
	}
	sort.Slice(aircons, func(i, j int) bool {
		return aircons[i].Id < aircons[j].Id
	})
	return aircons
}
