package pipeline

import (
	"context"
	"math"
	"time"

	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/infrastructure/events"
	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

//go:generate moq -rm -out pipeline_mock.go . Processor

// Processor runs the per sensor processing pipeline and assembles the
// outbound payload bundle for a reading.
type Processor interface {
	Process(ctx context.Context, sensor types.Sensor, raw map[string]any) (types.Reading, error)
	BuildPayloads(ctx context.Context, sensor types.Sensor, reading types.Reading) *Bundle
}

// Arbiter is the narrow view of the priority arbitrator the pipeline needs.
type Arbiter interface {
	Ingest(ctx context.Context, sensor types.Sensor, reading types.Reading) *types.DashboardSnapshot
	PrimaryFor(unitID int64, metric string) (int64, bool)
}

// Bundle carries everything the fan-out stage pushes for one reading. A nil
// bundle means the reading was dropped.
type Bundle struct {
	UnitID   int64
	Device   *types.DevicePayload
	Snapshot *types.DashboardSnapshot
	Events   []events.TopicMessage
}

type processor struct {
	arbiter Arbiter
	now     func() time.Time
}

func New(arbiter Arbiter) Processor {
	return &processor{arbiter: arbiter, now: time.Now}
}

// Process runs canonicalization, validation, calibration, transformation and
// enrichment in order, producing an immutable reading.
func (p *processor) Process(ctx context.Context, sensor types.Sensor, raw map[string]any) (types.Reading, error) {
	data := restrictToVocabulary(Canonicalize(raw))

	err := Validate(ctx, sensor.Category, data)
	if err != nil {
		return types.Reading{}, err
	}

	data = Calibrate(ctx, sensor.Calibration, data)

	reading := Transform(sensor, data, p.now().UTC())

	return Enrich(ctx, reading), nil
}

// restrictToVocabulary drops canonical keys outside the closed metric
// vocabulary before validation. The error and status signal keys survive
// because the validator and transformer consume them.
func restrictToVocabulary(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if types.IsCanonicalMetric(k) || types.IsMetaKey(k) || k == "error" || k == "status" {
			out[k] = v
		}
	}
	return out
}

// BuildPayloads ingests the reading into the arbitrator and returns the
// device payload, the refreshed unit snapshot and the controller events. It
// returns nil when the reading fails a drop condition.
func (p *processor) BuildPayloads(ctx context.Context, sensor types.Sensor, reading types.Reading) *Bundle {
	if reading.UnitID <= 0 || reading.SensorID <= 0 {
		return nil
	}

	readings := numericReadings(reading.Data)
	if len(readings) == 0 {
		return nil
	}

	snapshot := p.arbiter.Ingest(ctx, sensor, reading)

	return &Bundle{
		UnitID:   reading.UnitID,
		Device:   buildDevicePayload(sensor, reading, readings),
		Snapshot: snapshot,
		Events:   p.buildControllerEvents(sensor, reading),
	}
}

// numericReadings filters the data map down to numeric canonical metrics,
// excluding meta keys and the derived values enrichment has written back.
// Derived metrics travel in the temperature event and the snapshot, never in
// the raw readings map. Multi channel soil lists contribute their mean so a
// multi probe sensor is not dropped as empty.
func numericReadings(data map[string]any) map[string]float64 {
	out := map[string]float64{}

	for k, v := range data {
		if types.IsMetaKey(k) || !types.IsCanonicalMetric(k) {
			continue
		}

		if n, ok := types.AsFloat(v); ok {
			out[k] = n
			continue
		}

		if k == types.MetricSoilMoisture {
			if values := flattenSoilChannels(v); len(values) > 0 {
				out[k] = round1(mean(values))
			}
		}
	}

	return out
}

// flattenSoilChannels extracts moisture values from a list of channel
// objects, accepting either moisture_percentage or value keys.
func flattenSoilChannels(v any) []float64 {
	list, ok := v.([]any)
	if !ok {
		return nil
	}

	values := make([]float64, 0, len(list))
	for _, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if n, ok := types.AsFloat(obj["moisture_percentage"]); ok {
			values = append(values, n)
			continue
		}
		if n, ok := types.AsFloat(obj["value"]); ok {
			values = append(values, n)
		}
	}

	return values
}

func buildDevicePayload(sensor types.Sensor, reading types.Reading, readings map[string]float64) *types.DevicePayload {
	units := make(map[string]string, len(readings))
	for k := range readings {
		units[k] = types.MetricUnit(k)
	}

	payload := &types.DevicePayload{
		SchemaVersion: types.SchemaVersion,
		SensorID:      reading.SensorID,
		UnitID:        reading.UnitID,
		SensorName:    reading.SensorName,
		SensorType:    reading.Category,
		Readings:      readings,
		Units:         units,
		Status:        string(reading.Status),
		Timestamp:     types.FormatTimestamp(reading.Timestamp),

		PowerSource: powerSource(sensor, reading.Data),

		QualityScore:       reading.QualityScore,
		IsAnomaly:          reading.IsAnomaly,
		CalibrationApplied: reading.CalibrationApplied,
	}

	if battery, ok := types.AsFloat(reading.Data[types.MetaBattery]); ok {
		b := int(battery)
		payload.Battery = &b
	}
	if lqi, ok := types.AsFloat(reading.Data[types.MetaLinkquality]); ok {
		l := int(lqi)
		payload.Linkquality = &l
	}
	if reading.AnomalyReason != "" {
		reason := reading.AnomalyReason
		payload.AnomalyReason = &reason
	}

	return payload
}

func powerSource(sensor types.Sensor, data map[string]any) types.PowerSource {
	if _, ok := types.AsFloat(data[types.MetaBattery]); ok {
		return types.PowerSourceBattery
	}
	if sensor.Protocol.Wired() {
		return types.PowerSourceMains
	}
	return types.PowerSourceUnknown
}

// gatedMetrics only produce controller events from the elected primary for
// the metric (or, before any election, from a declared primary).
var gatedMetrics = []string{
	types.MetricTemperature,
	types.MetricHumidity,
	types.MetricCO2,
	types.MetricVOC,
	types.MetricLux,
	types.MetricPressure,
}

// ungatedMetrics produce controller events per sensor.
var ungatedMetrics = []string{
	types.MetricSoilMoisture,
	types.MetricPH,
	types.MetricEC,
}

func (p *processor) buildControllerEvents(sensor types.Sensor, reading types.Reading) []events.TopicMessage {
	out := []events.TopicMessage{}

	tempEmitted := false

	for _, metric := range gatedMetrics {
		value, present := reading.Numeric(metric)
		if !present {
			continue
		}
		if !p.passesGate(reading.UnitID, metric, sensor) {
			continue
		}

		switch metric {
		case types.MetricTemperature:
			out = append(out, p.temperatureEvent(reading, value))
			tempEmitted = true
		case types.MetricHumidity:
			// humidity rides along in the temperature event, but falls
			// back to its own event when the temperature event was gated
			// out or temperature is absent
			if tempEmitted {
				continue
			}
			out = append(out, metricEvent(reading, metric, value))
		default:
			out = append(out, metricEvent(reading, metric, value))
		}
	}

	for _, metric := range ungatedMetrics {
		value, present := reading.Numeric(metric)
		if !present {
			continue
		}
		out = append(out, metricEvent(reading, metric, value))
	}

	return out
}

// passesGate implements primary gating: the producing sensor must match the
// elected primary for the metric, or, when no primary has been elected yet,
// declare the metric primary itself.
func (p *processor) passesGate(unitID int64, metric string, sensor types.Sensor) bool {
	primaryID, elected := p.arbiter.PrimaryFor(unitID, metric)
	if elected {
		return primaryID == sensor.ID
	}
	return sensor.DeclaresPrimary(metric)
}

func (p *processor) temperatureEvent(reading types.Reading, temperature float64) events.TopicMessage {
	evt := &types.TemperatureUpdated{
		UnitID:      reading.UnitID,
		SensorID:    reading.SensorID,
		Temperature: temperature,
		Timestamp:   reading.Timestamp,
	}

	attach := func(metric string, target **float64) {
		if v, ok := reading.Numeric(metric); ok {
			*target = &v
		}
	}

	attach(types.MetricHumidity, &evt.Humidity)
	attach(types.MetricVPD, &evt.VPD)
	attach(types.MetricDewPoint, &evt.DewPoint)
	attach(types.MetricHeatIndex, &evt.HeatIndex)

	return evt
}

func metricEvent(reading types.Reading, metric string, value float64) events.TopicMessage {
	return &types.MetricUpdated{
		UnitID:    reading.UnitID,
		SensorID:  reading.SensorID,
		Metric:    metric,
		Value:     value,
		Timestamp: reading.Timestamp,
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
