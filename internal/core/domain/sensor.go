package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"
	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE         = "bridge"
	SENSOR_ID_CLOUD_STATE          = "cloud"
	STATE_CLASS_MEASUREMENT        = "measurement"
	DEVICE_CLASS_TEMPERATURE       = "temperature"
	DEVICE_CLASS_HUMIDITY          = "humidity"
	DEVICE_CLASS_ILLUMINANCE       = "illuminance"
	DEVICE_CLASS_MOTION            = "motion"
	DEVICE_CLASS_CONNECTIVITY      = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC        = "diagnostic"
	SENSOR_TYPE_SENSOR             = "sensor"
	SENSOR_TYPE_BINARY             = "binary_sensor"
	COMPONENT_CLIMATE              = "climate"
	MANUFACTURER_NATURE_REMO       = "Nature Remo"
	TEMPERATURE_UNIT_CELSIUS       = "C"
	UNIT_CELSIUS                   = "°C"
	UNIT_PERCENTAGE                = "%"
	UNIT_LUX                       = "lx"
	ATTRIBUTE_PREVIOUS_TARGET_TEMP = "previous_target_temperature"
)

type sensorKind struct {
	label       string
	deviceClass string
	unit        string
}

var sensorKinds = map[string]sensorKind{
	natureremo.SENSOR_KIND_TEMPERATURE: {"Temperature", DEVICE_CLASS_TEMPERATURE, UNIT_CELSIUS},
	natureremo.SENSOR_KIND_HUMIDITY:    {"Humidity", DEVICE_CLASS_HUMIDITY, UNIT_PERCENTAGE},
	natureremo.SENSOR_KIND_ILLUMINANCE: {"Illumination", DEVICE_CLASS_ILLUMINANCE, UNIT_LUX},
}

func SensorId(deviceId string, kind string) string {
	return fmt.Sprintf("%s-%s", deviceId, kind)
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("natureremo_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "NatureRemo2MQTT",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Nature Remo Bridge %s", md5HashShort(baseTopic)),
	}
}

func RemoDevice(device natureremo.DeviceCore, bridge Device) Device {
	return Device{
		Id:           device.Id,
		Name:         device.Name,
		Manufacturer: MANUFACTURER_NATURE_REMO,
		Model:        device.SerialNumber,
		Version:      device.FirmwareVersion,
		ViaDevice:    bridge.Id,
	}
}

func ApplianceDevice(appliance natureremo.Appliance, bridge Device) Device {
	return Device{
		Id:           appliance.Id,
		Name:         ApplianceModelName(appliance),
		Manufacturer: MANUFACTURER_NATURE_REMO,
		Model:        appliance.Device.SerialNumber,
		Version:      appliance.Device.FirmwareVersion,
		ViaDevice:    bridge.Id,
	}
}

// ApplianceModelName falls back to the nickname for appliances registered
// without a model.
func ApplianceModelName(appliance natureremo.Appliance) string {
	if appliance.Model != nil && appliance.Model.Name != "" {
		return appliance.Model.Name
	}
	return appliance.Nickname
}

// RemoSensors builds one sensor per supported measurement reported by the
// device and a motion binary sensor when the device reports motion.
func RemoSensors(device natureremo.Device, bridge Device) []GenericSensor {
	remoDevice := RemoDevice(device.DeviceCore, bridge)
	var sensors []GenericSensor
	for _, kind := range []string{
		natureremo.SENSOR_KIND_TEMPERATURE,
		natureremo.SENSOR_KIND_HUMIDITY,
		natureremo.SENSOR_KIND_ILLUMINANCE,
	} {
		if _, ok := device.NewestEvents[kind]; !ok {
			continue
		}
		info := sensorKinds[kind]
		id := SensorId(device.Id, kind)
		sensors = append(sensors, GenericSensor{
			Device:            remoDevice,
			Id:                id,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              fmt.Sprintf("%s %s Sensor", device.Name, info.label),
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       info.deviceClass,
			UnitOfMeasurement: info.unit,
			UniqueId:          id,
		})
	}
	if _, ok := device.NewestEvents[natureremo.SENSOR_KIND_MOTION]; ok {
		sensors = append(sensors, MotionSensor(device.DeviceCore, bridge))
	}
	return sensors
}

func MotionSensor(device natureremo.DeviceCore, bridge Device) GenericSensor {
	id := SensorId(device.Id, natureremo.SENSOR_KIND_MOTION)
	return GenericSensor{
		Device:      RemoDevice(device, bridge),
		Id:          id,
		SensorType:  SENSOR_TYPE_BINARY,
		Name:        fmt.Sprintf("%s Motion Sensor", device.Name),
		DeviceClass: DEVICE_CLASS_MOTION,
		UniqueId:    id,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{
		{
			Device:         bridgeDevice,
			Id:             SENSOR_ID_BRIDGE_STATE,
			SensorType:     SENSOR_TYPE_BINARY,
			Name:           "Connection state",
			DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
		},
		{
			Device:         bridgeDevice,
			Id:             SENSOR_ID_CLOUD_STATE,
			SensorType:     SENSOR_TYPE_BINARY,
			Name:           "Cloud state",
			DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_CLOUD_STATE),
		},
	}
}

func uniqueId(baseId string, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(str string) string {
	hash := md5.Sum([]byte(str))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(str string) string {
	hash := md5Hash(str)
	return hash[0:8]
}
