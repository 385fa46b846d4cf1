package arbitrator

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/infrastructure/events"
	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

type Config struct {
	StaleSeconds      int `yaml:"staleSeconds"`
	MaxTrackedSensors int `yaml:"maxTrackedSensors"`
}

const (
	defaultStaleSeconds      = 180
	minStaleSeconds          = 10
	maxStaleSeconds          = 3600
	defaultMaxTrackedSensors = 500
	minTrackedSensors        = 10
	maxTrackedSensors        = 10000
)

// snapshotCacheTTL equals the minimum stale bound.
const snapshotCacheTTL = minStaleSeconds * time.Second

// maxStaleBound is the longest a reading is considered usable at all; soil
// moisture and light reporters are tolerated up to this age because they
// report infrequently.
const maxStaleBound = maxStaleSeconds * time.Second

func (c Config) normalized() Config {
	if c.StaleSeconds == 0 {
		c.StaleSeconds = defaultStaleSeconds
	}
	c.StaleSeconds = min(max(c.StaleSeconds, minStaleSeconds), maxStaleSeconds)

	if c.MaxTrackedSensors == 0 {
		c.MaxTrackedSensors = defaultMaxTrackedSensors
	}
	c.MaxTrackedSensors = min(max(c.MaxTrackedSensors, minTrackedSensors), maxTrackedSensors)

	return c
}

//go:generate moq -rm -out resolver_mock.go . SensorResolver

// SensorResolver resolves sensor ids against the registry. The arbitrator
// references sensors by id only and revalidates on lookup; cache entries may
// dangle after deletion.
type SensorResolver interface {
	GetSensor(ctx context.Context, sensorID int64) (types.Sensor, error)
}

// Override assigns a manual priority to a sensor, optionally restricted to a
// set of metrics. Lower priorities win elections.
type Override struct {
	Priority int
	Metrics  []string
}

func (o Override) applies(metric string) bool {
	return len(o.Metrics) == 0 || slices.Contains(o.Metrics, metric)
}

type primaryKey struct {
	unitID int64
	metric string
}

type cachedSnapshot struct {
	snapshot *types.DashboardSnapshot
	cachedAt time.Time
}

// Stats exposes the arbitrator's observability counters together with the
// instantaneous sizes of its tracking maps.
type Stats struct {
	IngestCount    uint64 `json:"ingest_count"`
	PrimaryChanges uint64 `json:"primary_changes"`
	Evictions      uint64 `json:"evictions"`
	CacheHits      uint64 `json:"cache_hits"`
	CacheMisses    uint64 `json:"cache_misses"`

	TrackedSensors    int `json:"tracked_sensors"`
	TrackedUnits      int `json:"tracked_units"`
	PrimarySelections int `json:"primary_selections"`
	ManualOverrides   int `json:"manual_overrides"`
	CachedSnapshots   int `json:"cached_snapshots"`
}

// Arbitrator elects one primary sensor per (unit, metric) pair, tracks
// staleness and trends, aggregates multi channel soil readings and maintains
// a TTL cached dashboard snapshot per unit. All state is in-process; mutation
// is serialized through a single mutex.
type Arbitrator struct {
	cfg      Config
	resolver SensorResolver

	mu          sync.Mutex
	lastSeen    map[int64]time.Time
	lastReading map[int64]types.Reading
	lastSensor  map[int64]types.Sensor
	unitSensors map[int64]map[int64]struct{}
	primaries   map[primaryKey]int64
	prevValues  map[primaryKey]float64
	overrides   map[int64]Override
	snapshots   map[int64]cachedSnapshot

	ingestCount    uint64
	primaryChanges uint64
	evictions      uint64
	cacheHits      uint64
	cacheMisses    uint64

	now func() time.Time
}

func New(cfg Config, resolver SensorResolver, bus events.Bus) *Arbitrator {
	a := &Arbitrator{
		cfg:      cfg.normalized(),
		resolver: resolver,

		lastSeen:    map[int64]time.Time{},
		lastReading: map[int64]types.Reading{},
		lastSensor:  map[int64]types.Sensor{},
		unitSensors: map[int64]map[int64]struct{}{},
		primaries:   map[primaryKey]int64{},
		prevValues:  map[primaryKey]float64{},
		overrides:   map[int64]Override{},
		snapshots:   map[int64]cachedSnapshot{},

		now: time.Now,
	}

	if bus != nil {
		bus.RegisterTopicMessageHandler("device.sensor_created", a.registryChangedHandler())
		bus.RegisterTopicMessageHandler("device.sensor_deleted", a.sensorDeletedHandler())
	}

	return a
}

func (a *Arbitrator) staleAfter() time.Duration {
	return time.Duration(a.cfg.StaleSeconds) * time.Second
}

// Ingest records the reading, runs eviction if the tracked sensor ceiling is
// exceeded, considers primary election for every dashboard metric the
// reading carries, and returns a freshly built unit snapshot.
func (a *Arbitrator) Ingest(ctx context.Context, sensor types.Sensor, reading types.Reading) *types.DashboardSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()

	a.lastSeen[sensor.ID] = now
	a.lastReading[sensor.ID] = reading
	a.lastSensor[sensor.ID] = sensor

	unit := a.unitSensors[reading.UnitID]
	if unit == nil {
		unit = map[int64]struct{}{}
		a.unitSensors[reading.UnitID] = unit
	}
	unit[sensor.ID] = struct{}{}

	if len(a.lastSeen) > a.cfg.MaxTrackedSensors {
		a.evict(now)
	}

	for metric := range reading.Data {
		if !types.IsDashboardMetric(metric) {
			continue
		}
		if !carriesMetric(reading, metric) {
			continue
		}
		a.electPrimary(ctx, reading.UnitID, metric, sensor, now)
	}

	snapshot := a.buildSnapshot(reading.UnitID, now)
	a.snapshots[reading.UnitID] = cachedSnapshot{snapshot: snapshot, cachedAt: now}
	a.ingestCount++

	return snapshot
}

// carriesMetric reports whether the reading holds a usable value for the
// metric: a numeric scalar, or for soil moisture also a channel list.
func carriesMetric(reading types.Reading, metric string) bool {
	v, present := reading.Data[metric]
	if !present || v == nil {
		return false
	}
	if _, ok := types.AsFloat(v); ok {
		return true
	}
	if metric == types.MetricSoilMoisture {
		return len(soilChannelValues(v)) > 0
	}
	return false
}

// electPrimary applies the ordered election rules for one (unit, metric)
// pair. Election is deliberately conservative: an empty slot is only claimed
// by a sensor that declares the metric primary; snapshot assembly is the
// permissive fallback path.
func (a *Arbitrator) electPrimary(ctx context.Context, unitID int64, metric string, sensor types.Sensor, now time.Time) {
	key := primaryKey{unitID: unitID, metric: metric}

	current, exists := a.primaries[key]
	if !exists {
		if sensor.DeclaresPrimary(metric) {
			a.setPrimary(key, sensor.ID)
		}
		return
	}

	if current == sensor.ID {
		return
	}

	currentSeen, tracked := a.lastSeen[current]
	if !tracked || now.Sub(currentSeen) > a.staleAfter() {
		a.setPrimary(key, sensor.ID)
		return
	}

	currentSensor, err := a.resolver.GetSensor(ctx, current)
	if err != nil {
		a.setPrimary(key, sensor.ID)
		return
	}

	if sensor.DeclaresPrimary(metric) && !currentSensor.DeclaresPrimary(metric) {
		a.setPrimary(key, sensor.ID)
		return
	}

	if a.effectivePriority(sensor, metric) < a.effectivePriority(currentSensor, metric) {
		a.setPrimary(key, sensor.ID)
	}
}

func (a *Arbitrator) setPrimary(key primaryKey, sensorID int64) {
	a.primaries[key] = sensorID
	a.primaryChanges++
}

var airMetrics = map[string]struct{}{
	types.MetricTemperature: {},
	types.MetricHumidity:    {},
	types.MetricPressure:    {},
	types.MetricCO2:         {},
	types.MetricVOC:         {},
	types.MetricAirQuality:  {},
}

// effectivePriority is the manual override when one applies, otherwise the
// automatic priority derived from declarations and category. Lower wins.
func (a *Arbitrator) effectivePriority(sensor types.Sensor, metric string) int {
	if ov, ok := a.overrides[sensor.ID]; ok && ov.applies(metric) {
		return ov.Priority
	}

	if sensor.DeclaresPrimary(metric) {
		return 10
	}
	if len(sensor.Config.PrimaryMetrics) > 0 {
		return 50
	}

	if _, air := airMetrics[metric]; air {
		if sensor.Category == types.CategoryEnvironmental {
			return 20
		}
		return 40
	}

	if metric == types.MetricSoilMoisture {
		if sensor.Category == types.CategoryPlant {
			return 20
		}
		return 40
	}

	return 50
}

// PrimaryFor returns the elected primary for a (unit, metric) pair.
func (a *Arbitrator) PrimaryFor(unitID int64, metric string) (int64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, ok := a.primaries[primaryKey{unitID: unitID, metric: metric}]
	return id, ok
}

// SetOverride installs a manual priority for a sensor.
func (a *Arbitrator) SetOverride(sensorID int64, priority int, metrics ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.overrides[sensorID] = Override{Priority: priority, Metrics: metrics}
}

func (a *Arbitrator) ClearOverride(sensorID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.overrides, sensorID)
}

// Snapshot returns the cached snapshot for a unit when it is younger than
// the cache TTL, rebuilding it otherwise. The boolean is false when the unit
// has no tracked sensors at all.
func (a *Arbitrator) Snapshot(unitID int64) (*types.DashboardSnapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()

	if entry, ok := a.snapshots[unitID]; ok && now.Sub(entry.cachedAt) <= snapshotCacheTTL {
		a.cacheHits++
		return entry.snapshot, true
	}

	a.cacheMisses++

	if len(a.unitSensors[unitID]) == 0 {
		return nil, false
	}

	snapshot := a.buildSnapshot(unitID, now)
	a.snapshots[unitID] = cachedSnapshot{snapshot: snapshot, cachedAt: now}

	return snapshot, true
}

// evict removes sensors whose last-seen age exceeds twice the stale bound,
// keeping soil moisture and light reporters within the maximum stale bound.
func (a *Arbitrator) evict(now time.Time) {
	cutoff := 2 * a.staleAfter()

	for sensorID, seen := range a.lastSeen {
		age := now.Sub(seen)
		if age <= cutoff {
			continue
		}

		if reading, ok := a.lastReading[sensorID]; ok && age <= maxStaleBound {
			if carriesMetric(reading, types.MetricSoilMoisture) || carriesMetric(reading, types.MetricLux) {
				continue
			}
		}

		a.purgeSensor(sensorID)
		a.evictions++
	}
}

// purgeSensor removes every trace of a sensor id from the tracking maps and
// drops cached snapshots of the units it touched.
func (a *Arbitrator) purgeSensor(sensorID int64) {
	delete(a.lastSeen, sensorID)
	delete(a.lastReading, sensorID)
	delete(a.lastSensor, sensorID)
	delete(a.overrides, sensorID)

	for unitID, members := range a.unitSensors {
		if _, ok := members[sensorID]; !ok {
			continue
		}
		delete(members, sensorID)
		if len(members) == 0 {
			delete(a.unitSensors, unitID)
		}
		delete(a.snapshots, unitID)
	}

	for key, id := range a.primaries {
		if id == sensorID {
			delete(a.primaries, key)
		}
	}
}

// ResetElections clears the primary map and the snapshot cache so elections
// recompute after the registry changes.
func (a *Arbitrator) ResetElections() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.primaries = map[primaryKey]int64{}
	a.snapshots = map[int64]cachedSnapshot{}
}

func (a *Arbitrator) registryChangedHandler() events.TopicMessageHandler {
	return func(ctx context.Context, itm events.IncomingTopicMessage, l *slog.Logger) {
		a.ResetElections()
	}
}

func (a *Arbitrator) sensorDeletedHandler() events.TopicMessageHandler {
	return func(ctx context.Context, itm events.IncomingTopicMessage, l *slog.Logger) {
		evt := types.SensorDeleted{}
		if err := json.Unmarshal(itm.Body(), &evt); err != nil {
			l.Error("failed to unmarshal message", "err", err.Error())
			return
		}

		a.mu.Lock()
		a.purgeSensor(evt.SensorID)
		a.mu.Unlock()

		a.ResetElections()
	}
}

func (a *Arbitrator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Stats{
		IngestCount:    a.ingestCount,
		PrimaryChanges: a.primaryChanges,
		Evictions:      a.evictions,
		CacheHits:      a.cacheHits,
		CacheMisses:    a.cacheMisses,

		TrackedSensors:    len(a.lastSeen),
		TrackedUnits:      len(a.unitSensors),
		PrimarySelections: len(a.primaries),
		ManualOverrides:   len(a.overrides),
		CachedSnapshots:   len(a.snapshots),
	}
}
