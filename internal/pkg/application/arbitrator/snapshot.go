package arbitrator

import (
	"math"
	"sort"
	"time"

	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

// trendStabilityThreshold is uniform across metrics even though their units
// differ by orders of magnitude. Documented constant; do not retune.
const trendStabilityThreshold = 0.1

const soilAggregateName = "Soil Moisture (avg)"

// buildSnapshot assembles the per unit dashboard snapshot. Callers hold the
// arbitrator mutex.
func (a *Arbitrator) buildSnapshot(unitID int64, now time.Time) *types.DashboardSnapshot {
	snapshot := &types.DashboardSnapshot{
		SchemaVersion: types.SchemaVersion,
		UnitID:        unitID,
		Timestamp:     types.FormatTimestamp(now),
		Metrics:       map[string]types.SnapshotMetric{},
	}

	for _, metric := range types.DashboardMetrics {
		var entry *types.SnapshotMetric

		switch metric {
		case types.MetricSoilMoisture:
			entry = a.aggregateSoilMoisture(unitID, now)
		case types.MetricLux:
			entry = a.selectLux(unitID, now)
		default:
			entry = a.selectMetric(unitID, metric, now)
		}

		if entry != nil {
			snapshot.Metrics[metric] = *entry
		}
	}

	a.attachDerivedMetrics(snapshot)
	a.applyTrends(unitID, snapshot)

	return snapshot
}

// aggregateSoilMoisture averages every non-stale soil moisture reporter in
// the unit, flattening multi channel lists, under a synthetic aggregate
// source.
func (a *Arbitrator) aggregateSoilMoisture(unitID int64, now time.Time) *types.SnapshotMetric {
	values := []float64{}

	for sensorID := range a.unitSensors[unitID] {
		seen, ok := a.lastSeen[sensorID]
		if !ok || now.Sub(seen) > maxStaleBound {
			continue
		}

		reading, ok := a.lastReading[sensorID]
		if !ok {
			continue
		}

		v, present := reading.Data[types.MetricSoilMoisture]
		if !present {
			continue
		}

		if n, ok := types.AsFloat(v); ok {
			values = append(values, n)
			continue
		}
		values = append(values, soilChannelValues(v)...)
	}

	if len(values) == 0 {
		return nil
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	name := soilAggregateName
	return &types.SnapshotMetric{
		Value: round1(sum / float64(len(values))),
		Unit:  types.MetricUnit(types.MetricSoilMoisture),
		Source: types.SnapshotSource{
			SensorID:    0,
			SensorName:  &name,
			SensorType:  types.SourceCategoryAggregate,
			PowerSource: string(types.PowerSourceUnknown),
			Status:      string(types.StatusSuccess),
		},
	}
}

// soilChannelValues flattens a multi channel soil reading list, extracting
// moisture_percentage or value from each channel object.
func soilChannelValues(v any) []float64 {
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

// selectLux uses the elected primary within the maximum stale bound (light
// sensors report infrequently), otherwise probes the unit's sensors for the
// first one carrying a lux value and adopts it as primary.
func (a *Arbitrator) selectLux(unitID int64, now time.Time) *types.SnapshotMetric {
	key := primaryKey{unitID: unitID, metric: types.MetricLux}

	if primaryID, ok := a.primaries[key]; ok {
		if seen, tracked := a.lastSeen[primaryID]; tracked && now.Sub(seen) <= maxStaleBound {
			if reading, ok := a.lastReading[primaryID]; ok {
				if v, ok := reading.Numeric(types.MetricLux); ok {
					return a.metricEntry(types.MetricLux, v, primaryID)
				}
			}
		}
	}

	for sensorID := range a.unitSensors[unitID] {
		reading, ok := a.lastReading[sensorID]
		if !ok {
			continue
		}
		if seen, tracked := a.lastSeen[sensorID]; !tracked || now.Sub(seen) > maxStaleBound {
			continue
		}
		if v, ok := reading.Numeric(types.MetricLux); ok {
			a.setPrimary(key, sensorID)
			return a.metricEntry(types.MetricLux, v, sensorID)
		}
	}

	return nil
}

// selectMetric returns the current primary when it is fresh and carries the
// metric, falling back to the best non-stale candidate otherwise. The
// fallback path never writes the primary map; election stays conservative
// while snapshot assembly is permissive.
func (a *Arbitrator) selectMetric(unitID int64, metric string, now time.Time) *types.SnapshotMetric {
	key := primaryKey{unitID: unitID, metric: metric}

	if primaryID, ok := a.primaries[key]; ok {
		if seen, tracked := a.lastSeen[primaryID]; tracked && now.Sub(seen) <= a.staleAfter() {
			if reading, ok := a.lastReading[primaryID]; ok {
				if v, ok := reading.Numeric(metric); ok {
					return a.metricEntry(metric, v, primaryID)
				}
			}
		}
	}

	type candidate struct {
		sensorID int64
		value    float64
		priority int
		age      time.Duration
		quality  float64
		declared bool
	}

	candidates := []candidate{}

	for sensorID := range a.unitSensors[unitID] {
		seen, tracked := a.lastSeen[sensorID]
		if !tracked || now.Sub(seen) > a.staleAfter() {
			continue
		}

		reading, ok := a.lastReading[sensorID]
		if !ok {
			continue
		}

		v, ok := reading.Numeric(metric)
		if !ok {
			continue
		}

		sensor := a.lastSensor[sensorID]
		quality := 0.0
		if reading.QualityScore != nil {
			quality = *reading.QualityScore
		}

		candidates = append(candidates, candidate{
			sensorID: sensorID,
			value:    v,
			priority: a.effectivePriority(sensor, metric),
			age:      now.Sub(seen),
			quality:  quality,
			declared: sensor.DeclaresPrimary(metric),
		})
	}

	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.declared != cj.declared {
			return ci.declared
		}
		if ci.priority != cj.priority {
			return ci.priority < cj.priority
		}
		if ci.age != cj.age {
			return ci.age < cj.age
		}
		return ci.quality > cj.quality
	})

	best := candidates[0]
	return a.metricEntry(metric, best.value, best.sensorID)
}

func (a *Arbitrator) metricEntry(metric string, value float64, sensorID int64) *types.SnapshotMetric {
	return &types.SnapshotMetric{
		Value:  value,
		Unit:   types.MetricUnit(metric),
		Source: a.sourceFor(sensorID),
	}
}

// sourceFor describes the sensor behind a snapshot entry from the last
// tracked reading and sensor metadata.
func (a *Arbitrator) sourceFor(sensorID int64) types.SnapshotSource {
	sensor := a.lastSensor[sensorID]
	reading := a.lastReading[sensorID]

	name := sensor.Name
	protocol := types.NormalizeProtocol(string(sensor.Protocol))

	source := types.SnapshotSource{
		SensorID:     sensorID,
		SensorName:   &name,
		SensorType:   string(sensor.Category),
		Protocol:     &protocol,
		PowerSource:  string(types.PowerSourceUnknown),
		QualityScore: reading.QualityScore,
		Status:       string(reading.Status),
		IsAnomaly:    reading.IsAnomaly,
	}

	if battery, ok := types.AsFloat(reading.Data[types.MetaBattery]); ok {
		b := int(battery)
		source.Battery = &b
		source.PowerSource = string(types.PowerSourceBattery)
	} else if sensor.Protocol.Wired() {
		source.PowerSource = string(types.PowerSourceMains)
	}

	if lqi, ok := types.AsFloat(reading.Data[types.MetaLinkquality]); ok {
		l := int(lqi)
		source.Linkquality = &l
	}

	return source
}

// attachDerivedMetrics computes vpd, dew point and heat index from the
// snapshot's own temperature and humidity when both are present and the
// derived metric is not already carried by a physical sensor.
func (a *Arbitrator) attachDerivedMetrics(snapshot *types.DashboardSnapshot) {
	temp, hasTemp := snapshot.Metrics[types.MetricTemperature]
	hum, hasHum := snapshot.Metrics[types.MetricHumidity]
	if !hasTemp || !hasHum {
		return
	}

	derived := map[string]func(t, rh float64) (float64, bool){
		types.MetricVPD:       vpd,
		types.MetricDewPoint:  dewPoint,
		types.MetricHeatIndex: heatIndex,
	}

	for metric, fn := range derived {
		if _, present := snapshot.Metrics[metric]; present {
			continue
		}

		v, ok := fn(temp.Value, hum.Value)
		if !ok {
			continue
		}

		snapshot.Metrics[metric] = types.SnapshotMetric{
			Value: round2(v),
			Unit:  types.MetricUnit(metric),
			Source: types.SnapshotSource{
				SensorID:    0,
				SensorType:  types.SourceCategoryDerived,
				PowerSource: string(types.PowerSourceUnknown),
				Status:      string(types.StatusSuccess),
			},
		}
	}
}

// applyTrends compares each snapshot metric with the previously stored
// value for the (unit, metric) pair and records direction and delta.
func (a *Arbitrator) applyTrends(unitID int64, snapshot *types.DashboardSnapshot) {
	for metric, entry := range snapshot.Metrics {
		key := primaryKey{unitID: unitID, metric: metric}

		prev, hasPrev := a.prevValues[key]
		if !hasPrev {
			entry.Trend = types.TrendUnknown
		} else {
			delta := round3(entry.Value - prev)
			entry.TrendDelta = &delta
			switch {
			case math.Abs(delta) <= trendStabilityThreshold:
				entry.Trend = types.TrendStable
			case delta > 0:
				entry.Trend = types.TrendRising
			default:
				entry.Trend = types.TrendFalling
			}
		}

		a.prevValues[key] = entry.Value
		snapshot.Metrics[metric] = entry
	}
}

// Magnus saturation pressure approximation, same constants as the pipeline
// enricher; snapshot level derivation tolerates out of range inputs by
// omitting the metric.
func vpd(t, rh float64) (float64, bool) {
	if t < -45 || t > 60 || rh < 0 || rh > 100 {
		return 0, false
	}
	es := 0.6108 * math.Exp(17.27*t/(t+237.3))
	return es * (1 - rh/100), true
}

func dewPoint(t, rh float64) (float64, bool) {
	if t < -45 || t > 60 || rh <= 0 || rh > 100 {
		return 0, false
	}
	gamma := math.Log(rh/100) + 17.27*t/(237.3+t)
	return 237.3 * gamma / (17.27 - gamma), true
}

func heatIndex(t, rh float64) (float64, bool) {
	if rh < 0 || rh > 100 {
		return 0, false
	}
	if t < 26 || rh < 40 {
		return t, true
	}

	tf := t*9/5 + 32
	hi := -42.379 +
		2.04901523*tf +
		10.14333127*rh -
		0.22475541*tf*rh -
		0.00683783*tf*tf -
		0.05481717*rh*rh +
		0.00122874*tf*tf*rh +
		0.00085282*tf*rh*rh -
		0.00000199*tf*tf*rh*rh

	return (hi - 32) * 5 / 9, true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
