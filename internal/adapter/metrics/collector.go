package metrics

import (
	"github.com/berfenger/natureremo2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector mirrors the bridge event stream into Prometheus metrics.
type MetricsCollector struct {
	cloudUp            prometheus.Gauge
	lastSuccess        prometheus.Gauge
	polls              *prometheus.CounterVec
	sensorValue        *prometheus.GaugeVec
	motionDetected     *prometheus.GaugeVec
	targetTemperature  *prometheus.GaugeVec
	currentTemperature *prometheus.GaugeVec
	climateOn          *prometheus.GaugeVec
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		cloudUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "natureremo_cloud_up",
			Help: "Last cloud refresh success (1=ok, 0=error)",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "natureremo_cloud_last_success_timestamp_seconds",
			Help: "Last successful cloud refresh timestamp (epoch seconds)",
		}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "natureremo_cloud_refresh_total",
			Help: "Cloud refreshes by result",
		}, []string{"result"}),
		sensorValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "natureremo_sensor_value",
			Help: "Latest sensor reading",
		}, []string{"sensor_id"}),
		motionDetected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "natureremo_motion_detected",
			Help: "1 while motion is detected",
		}, []string{"sensor_id"}),
		targetTemperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "natureremo_climate_target_temperature_celsius",
			Help: "Air conditioner target temperature",
		}, []string{"appliance_id"}),
		currentTemperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "natureremo_climate_current_temperature_celsius",
			Help: "Room temperature reported for the air conditioner",
		}, []string{"appliance_id"}),
		climateOn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "natureremo_climate_on",
			Help: "1 when the air conditioner is not off",
		}, []string{"appliance_id", "mode"}),
	}
}

func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	c.cloudUp.Describe(ch)
	c.lastSuccess.Describe(ch)
	c.polls.Describe(ch)
	c.sensorValue.Describe(ch)
	c.motionDetected.Describe(ch)
	c.targetTemperature.Describe(ch)
	c.currentTemperature.Describe(ch)
	c.climateOn.Describe(ch)
}

func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	c.cloudUp.Collect(ch)
	c.lastSuccess.Collect(ch)
	c.polls.Collect(ch)
	c.sensorValue.Collect(ch)
	c.motionDetected.Collect(ch)
	c.targetTemperature.Collect(ch)
	c.currentTemperature.Collect(ch)
	c.climateOn.Collect(ch)
}

// Subscribe feeds the collector from the event stream.
func (c *MetricsCollector) Subscribe(eventStream *eventstream.EventStream) *eventstream.Subscription {
	return eventStream.Subscribe(c.Handle)
}

func (c *MetricsCollector) Handle(event any) {
	switch ev := event.(type) {
	case domain.CoordinatorUpdateEvent:
		if ev.Success {
			c.polls.WithLabelValues("success").Inc()
			if ev.Data != nil {
				c.lastSuccess.Set(float64(ev.Data.FetchedAt.Unix()))
			}
		} else {
			c.polls.WithLabelValues("failure").Inc()
		}
	case domain.CloudStateUpdateEvent:
		c.cloudUp.Set(boolToFloat(ev.Value))
	case domain.FloatSensorUpdateEvent:
		c.sensorValue.WithLabelValues(ev.Id).Set(ev.Value)
	case domain.BinarySensorUpdateEvent:
		c.motionDetected.WithLabelValues(ev.Id).Set(boolToFloat(ev.Value))
	case domain.ClimateUpdateEvent:
		if ev.TargetTemperature != nil {
			c.targetTemperature.WithLabelValues(ev.Id).Set(*ev.TargetTemperature)
		} else {
			c.targetTemperature.DeleteLabelValues(ev.Id)
		}
		if ev.CurrentTemperature != nil {
			c.currentTemperature.WithLabelValues(ev.Id).Set(*ev.CurrentTemperature)
		}
		c.climateOn.DeletePartialMatch(prometheus.Labels{"appliance_id": ev.Id})
		c.climateOn.WithLabelValues(ev.Id, ev.Mode).Set(boolToFloat(ev.Mode != "off"))
	}
}

func boolToFloat(value bool) float64 {
	if value {
		return 1
	}
	return 0
}
