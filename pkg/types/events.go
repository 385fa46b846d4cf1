package types

import (
	"encoding/json"
	"time"
)

// Controller event bodies published on the internal bus. Event names are
// stable; downstream consumers (persistence, control loops, alerting)
// subscribe by topic.

type TemperatureUpdated struct {
	UnitID      int64     `json:"unit_id"`
	SensorID    int64     `json:"sensor_id"`
	Temperature float64   `json:"temperature"`
	Humidity    *float64  `json:"humidity,omitempty"`
	VPD         *float64  `json:"vpd,omitempty"`
	DewPoint    *float64  `json:"dew_point,omitempty"`
	HeatIndex   *float64  `json:"heat_index,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e *TemperatureUpdated) ContentType() string {
	return "application/json"
}
func (e *TemperatureUpdated) TopicName() string {
	return "sensor.temperature_update"
}
func (e *TemperatureUpdated) Body() []byte {
	b, _ := json.Marshal(e)
	return b
}

// MetricUpdated carries single valued metric events. The topic varies with
// the metric, so the event name is resolved through metricTopics.
type MetricUpdated struct {
	UnitID    int64     `json:"unit_id"`
	SensorID  int64     `json:"sensor_id"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

var metricTopics = map[string]string{
	MetricHumidity:     "sensor.humidity_update",
	MetricCO2:          "sensor.co2_update",
	MetricVOC:          "sensor.voc_update",
	MetricLux:          "sensor.light_update",
	MetricPressure:     "sensor.pressure_update",
	MetricSoilMoisture: "sensor.soil_moisture_update",
	MetricPH:           "sensor.ph_update",
	MetricEC:           "sensor.ec_update",
}

// MetricEventTopic returns the bus topic for a metric event, or an empty
// string when the metric has no event of its own.
func MetricEventTopic(metric string) string {
	return metricTopics[metric]
}

func (e *MetricUpdated) ContentType() string {
	return "application/json"
}
func (e *MetricUpdated) TopicName() string {
	return metricTopics[e.Metric]
}
func (e *MetricUpdated) Body() []byte {
	b, _ := json.Marshal(e)
	return b
}

type SensorCreated struct {
	SensorID  int64     `json:"sensor_id"`
	UnitID    int64     `json:"unit_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *SensorCreated) ContentType() string {
	return "application/json"
}
func (e *SensorCreated) TopicName() string {
	return "device.sensor_created"
}
func (e *SensorCreated) Body() []byte {
	b, _ := json.Marshal(e)
	return b
}

type SensorDeleted struct {
	SensorID  int64     `json:"sensor_id"`
	UnitID    int64     `json:"unit_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *SensorDeleted) ContentType() string {
	return "application/json"
}
func (e *SensorDeleted) TopicName() string {
	return "device.sensor_deleted"
}
func (e *SensorDeleted) Body() []byte {
	b, _ := json.Marshal(e)
	return b
}

type AvailabilityChanged struct {
	SensorID     int64     `json:"sensor_id"`
	UnitID       int64     `json:"unit_id"`
	FriendlyName string    `json:"friendly_name"`
	Online       bool      `json:"online"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e *AvailabilityChanged) ContentType() string {
	return "application/json"
}
func (e *AvailabilityChanged) TopicName() string {
	return "device.availability_changed"
}
func (e *AvailabilityChanged) Body() []byte {
	b, _ := json.Marshal(e)
	return b
}

// BridgeMessage carries sysgrow bridge traffic (info, health and command
// responses) onto the bus without entering the reading pipeline.
type BridgeMessage struct {
	Kind      string         `json:"kind"`
	Command   string         `json:"command,omitempty"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

func (e *BridgeMessage) ContentType() string {
	return "application/json"
}
func (e *BridgeMessage) TopicName() string {
	if e.Kind == "response" && e.Command != "" {
		return "bridge.response." + e.Command
	}
	return "bridge." + e.Kind
}
func (e *BridgeMessage) Body() []byte {
	b, _ := json.Marshal(e)
	return b
}
