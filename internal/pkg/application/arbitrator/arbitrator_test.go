package arbitrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/infrastructure/events"
	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

func TestDeclaredSensorClaimsEmptyPrimarySlot(t *testing.T) {
	is, a, f := testArbitrator(t)

	declared := f.addSensor(1, 3, types.CategoryEnvironmental, types.MetricTemperature)
	a.Ingest(context.Background(), declared, readingFor(declared, map[string]any{types.MetricTemperature: 21.0}))

	id, ok := a.PrimaryFor(3, types.MetricTemperature)
	is.True(ok)
	is.Equal(id, int64(1))
}

func TestUndeclaredSensorDoesNotClaimButStillFeedsSnapshot(t *testing.T) {
	is, a, f := testArbitrator(t)

	plain := f.addSensor(2, 3, types.CategoryEnvironmental)
	snapshot := a.Ingest(context.Background(), plain, readingFor(plain, map[string]any{types.MetricTemperature: 19.5}))

	_, ok := a.PrimaryFor(3, types.MetricTemperature)
	is.True(!ok)

	entry, ok := snapshot.Metrics[types.MetricTemperature]
	is.True(ok)
	is.Equal(entry.Value, 19.5)
	is.Equal(entry.Source.SensorID, int64(2))
}

func TestDeclaredSensorWinsElectionRegardlessOfIngestOrder(t *testing.T) {
	for _, declaredFirst := range []bool{true, false} {
		is, a, f := testArbitrator(t)

		declared := f.addSensor(1, 3, types.CategoryEnvironmental, types.MetricTemperature)
		plain := f.addSensor(2, 3, types.CategoryEnvironmental)

		order := []types.Sensor{declared, plain}
		if !declaredFirst {
			order = []types.Sensor{plain, declared}
		}

		for _, s := range order {
			a.Ingest(context.Background(), s, readingFor(s, map[string]any{types.MetricTemperature: 21.0}))
		}

		id, ok := a.PrimaryFor(3, types.MetricTemperature)
		is.True(ok)
		is.Equal(id, int64(1))
	}
}

func TestStalePrimaryIsReplaced(t *testing.T) {
	is, a, f := testArbitrator(t)

	holder := f.addSensor(1, 3, types.CategoryEnvironmental, types.MetricTemperature)
	challenger := f.addSensor(2, 3, types.CategoryEnvironmental)

	a.Ingest(context.Background(), holder, readingFor(holder, map[string]any{types.MetricTemperature: 21.0}))

	f.advance(a, time.Duration(a.cfg.StaleSeconds+1)*time.Second)
	a.Ingest(context.Background(), challenger, readingFor(challenger, map[string]any{types.MetricTemperature: 20.0}))

	id, ok := a.PrimaryFor(3, types.MetricTemperature)
	is.True(ok)
	is.Equal(id, int64(2))
}

func TestDeletedPrimaryIsReplacedOnResolverMiss(t *testing.T) {
	is, a, f := testArbitrator(t)

	holder := f.addSensor(1, 3, types.CategoryEnvironmental, types.MetricTemperature)
	challenger := f.addSensor(2, 3, types.CategoryEnvironmental)

	a.Ingest(context.Background(), holder, readingFor(holder, map[string]any{types.MetricTemperature: 21.0}))

	delete(f.sensors, 1)

	a.Ingest(context.Background(), challenger, readingFor(challenger, map[string]any{types.MetricTemperature: 20.0}))

	id, _ := a.PrimaryFor(3, types.MetricTemperature)
	is.Equal(id, int64(2))
}

func TestManualOverrideWinsElection(t *testing.T) {
	is, a, f := testArbitrator(t)

	holder := f.addSensor(1, 3, types.CategoryEnvironmental, types.MetricTemperature)
	challenger := f.addSensor(2, 3, types.CategoryEnvironmental, types.MetricTemperature)

	a.Ingest(context.Background(), holder, readingFor(holder, map[string]any{types.MetricTemperature: 21.0}))
	a.Ingest(context.Background(), challenger, readingFor(challenger, map[string]any{types.MetricTemperature: 20.0}))

	id, _ := a.PrimaryFor(3, types.MetricTemperature)
	is.Equal(id, int64(1))

	a.SetOverride(2, 1, types.MetricTemperature)
	a.Ingest(context.Background(), challenger, readingFor(challenger, map[string]any{types.MetricTemperature: 20.5}))

	id, _ = a.PrimaryFor(3, types.MetricTemperature)
	is.Equal(id, int64(2))

	a.ClearOverride(2)
	is.Equal(a.Stats().ManualOverrides, 0)
}

func TestSnapshotCacheHitWithinTTL(t *testing.T) {
	is, a, f := testArbitrator(t)

	s := f.addSensor(1, 3, types.CategoryEnvironmental, types.MetricTemperature)
	a.Ingest(context.Background(), s, readingFor(s, map[string]any{types.MetricTemperature: 21.0}))

	_, ok := a.Snapshot(3)
	is.True(ok)
	is.Equal(a.Stats().CacheHits, uint64(1))
	is.Equal(a.Stats().CacheMisses, uint64(0))

	f.advance(a, snapshotCacheTTL+time.Second)

	_, ok = a.Snapshot(3)
	is.True(ok)
	is.Equal(a.Stats().CacheMisses, uint64(1))
}

func TestSnapshotOfUnknownUnit(t *testing.T) {
	is, a, _ := testArbitrator(t)

	_, ok := a.Snapshot(99)
	is.True(!ok)
	is.Equal(a.Stats().CacheMisses, uint64(1))
}

func TestTrendsAreStableWithinThreshold(t *testing.T) {
	is, a, f := testArbitrator(t)

	s := f.addSensor(1, 3, types.CategoryEnvironmental, types.MetricTemperature)

	snapshot := a.Ingest(context.Background(), s, readingFor(s, map[string]any{types.MetricTemperature: 20.0}))
	is.Equal(snapshot.Metrics[types.MetricTemperature].Trend, types.TrendUnknown)

	snapshot = a.Ingest(context.Background(), s, readingFor(s, map[string]any{types.MetricTemperature: 20.05}))
	entry := snapshot.Metrics[types.MetricTemperature]
	is.Equal(entry.Trend, types.TrendStable)
	is.True(entry.TrendDelta != nil)
	is.Equal(*entry.TrendDelta, 0.05)

	snapshot = a.Ingest(context.Background(), s, readingFor(s, map[string]any{types.MetricTemperature: 25.0}))
	is.Equal(snapshot.Metrics[types.MetricTemperature].Trend, types.TrendRising)

	snapshot = a.Ingest(context.Background(), s, readingFor(s, map[string]any{types.MetricTemperature: 18.0}))
	is.Equal(snapshot.Metrics[types.MetricTemperature].Trend, types.TrendFalling)
}

func TestSoilMoistureIsAggregatedAcrossReporters(t *testing.T) {
	is, a, f := testArbitrator(t)

	probe1 := f.addSensor(1, 2, types.CategoryPlant)
	probe2 := f.addSensor(2, 2, types.CategoryPlant)

	a.Ingest(context.Background(), probe1, readingFor(probe1, map[string]any{types.MetricSoilMoisture: 40.0}))
	snapshot := a.Ingest(context.Background(), probe2, readingFor(probe2, map[string]any{
		types.MetricSoilMoisture: []any{
			map[string]any{"channel": 0.0, "moisture_percentage": 50.0},
			map[string]any{"channel": 1.0, "moisture_percentage": 60.0},
		},
	}))

	entry, ok := snapshot.Metrics[types.MetricSoilMoisture]
	is.True(ok)
	is.Equal(entry.Value, 50.0)
	is.Equal(entry.Source.SensorID, int64(0))
	is.Equal(entry.Source.SensorType, types.SourceCategoryAggregate)
}

func TestDerivedMetricsAreAttachedToSnapshots(t *testing.T) {
	is, a, f := testArbitrator(t)

	s := f.addSensor(1, 3, types.CategoryEnvironmental, types.MetricTemperature, types.MetricHumidity)
	snapshot := a.Ingest(context.Background(), s, readingFor(s, map[string]any{
		types.MetricTemperature: 25.0,
		types.MetricHumidity:    50.0,
	}))

	entry, ok := snapshot.Metrics["vpd"]
	is.True(ok)
	is.Equal(entry.Source.SensorType, types.SourceCategoryDerived)
	is.True(entry.Value > 1.4 && entry.Value < 1.8)

	_, ok = snapshot.Metrics["dew_point"]
	is.True(ok)
}

func TestEvictionKeepsInfrequentReporters(t *testing.T) {
	is := is.New(t)

	f := newFixture()
	a := New(Config{StaleSeconds: 10, MaxTrackedSensors: 10}, f.resolver(), nil)
	a.now = f.now

	for i := int64(1); i <= 9; i++ {
		s := f.addSensor(i, 1, types.CategoryEnvironmental)
		a.Ingest(context.Background(), s, readingFor(s, map[string]any{types.MetricTemperature: 20.0}))
	}
	soil := f.addSensor(10, 1, types.CategoryPlant)
	a.Ingest(context.Background(), soil, readingFor(soil, map[string]any{types.MetricSoilMoisture: 42.0}))

	// past twice the stale bound, everything but the soil reporter is
	// evictable
	f.advance(a, 21*time.Second)

	fresh := f.addSensor(11, 1, types.CategoryEnvironmental)
	a.Ingest(context.Background(), fresh, readingFor(fresh, map[string]any{types.MetricTemperature: 21.0}))

	stats := a.Stats()
	is.Equal(stats.Evictions, uint64(9))
	is.Equal(stats.TrackedSensors, 2)
}

func TestSensorDeletedEventPurgesTrackingState(t *testing.T) {
	is := is.New(t)

	f := newFixture()
	bus := events.NewBus()
	a := New(Config{}, f.resolver(), bus)
	a.now = f.now

	s := f.addSensor(1, 3, types.CategoryEnvironmental, types.MetricTemperature)
	a.Ingest(context.Background(), s, readingFor(s, map[string]any{types.MetricTemperature: 21.0}))

	is.Equal(a.Stats().TrackedSensors, 1)

	err := bus.PublishOnTopic(context.Background(), &types.SensorDeleted{SensorID: 1, UnitID: 3, Timestamp: f.now()})
	is.NoErr(err)

	stats := a.Stats()
	is.Equal(stats.TrackedSensors, 0)
	is.Equal(stats.PrimarySelections, 0)
	is.Equal(stats.CachedSnapshots, 0)
}

func TestSensorCreatedEventResetsElections(t *testing.T) {
	is := is.New(t)

	f := newFixture()
	bus := events.NewBus()
	a := New(Config{}, f.resolver(), bus)
	a.now = f.now

	s := f.addSensor(1, 3, types.CategoryEnvironmental, types.MetricTemperature)
	a.Ingest(context.Background(), s, readingFor(s, map[string]any{types.MetricTemperature: 21.0}))

	_, ok := a.PrimaryFor(3, types.MetricTemperature)
	is.True(ok)

	err := bus.PublishOnTopic(context.Background(), &types.SensorCreated{SensorID: 2, UnitID: 3, Timestamp: f.now()})
	is.NoErr(err)

	_, ok = a.PrimaryFor(3, types.MetricTemperature)
	is.True(!ok)
}

func TestConfigNormalization(t *testing.T) {
	is := is.New(t)

	cfg := Config{}.normalized()
	is.Equal(cfg.StaleSeconds, defaultStaleSeconds)
	is.Equal(cfg.MaxTrackedSensors, defaultMaxTrackedSensors)

	cfg = Config{StaleSeconds: 1, MaxTrackedSensors: 1}.normalized()
	is.Equal(cfg.StaleSeconds, minStaleSeconds)
	is.Equal(cfg.MaxTrackedSensors, minTrackedSensors)

	cfg = Config{StaleSeconds: 100000, MaxTrackedSensors: 100000}.normalized()
	is.Equal(cfg.StaleSeconds, maxStaleSeconds)
	is.Equal(cfg.MaxTrackedSensors, maxTrackedSensors)
}

func TestStatsCountsIngests(t *testing.T) {
	is, a, f := testArbitrator(t)

	s := f.addSensor(1, 3, types.CategoryEnvironmental)
	a.Ingest(context.Background(), s, readingFor(s, map[string]any{types.MetricTemperature: 21.0}))
	a.Ingest(context.Background(), s, readingFor(s, map[string]any{types.MetricTemperature: 21.1}))

	stats := a.Stats()
	is.Equal(stats.IngestCount, uint64(2))
	is.Equal(stats.TrackedUnits, 1)
}

type fixture struct {
	sensors map[int64]types.Sensor
	clock   time.Time
}

func newFixture() *fixture {
	return &fixture{
		sensors: map[int64]types.Sensor{},
		clock:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) now() time.Time {
	return f.clock
}

func (f *fixture) advance(a *Arbitrator, d time.Duration) {
	f.clock = f.clock.Add(d)
	a.now = f.now
}

func (f *fixture) addSensor(id, unitID int64, category types.SensorCategory, primaries ...string) types.Sensor {
	s := types.Sensor{
		ID: id, UnitID: unitID,
		Name:     "sensor",
		Category: category,
		Protocol: types.ProtocolZigbee,
		Config:   types.SensorConfig{PrimaryMetrics: primaries},
	}
	f.sensors[id] = s
	return s
}

func (f *fixture) resolver() *SensorResolverMock {
	return &SensorResolverMock{
		GetSensorFunc: func(ctx context.Context, sensorID int64) (types.Sensor, error) {
			if s, ok := f.sensors[sensorID]; ok {
				return s, nil
			}
			return types.Sensor{}, errors.New("sensor not found")
		},
	}
}

func readingFor(s types.Sensor, data map[string]any) types.Reading {
	return types.Reading{
		SensorID: s.ID, UnitID: s.UnitID,
		SensorName: s.Name, Category: string(s.Category),
		Data: data, Status: types.StatusSuccess,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testArbitrator(t *testing.T) (*is.I, *Arbitrator, *fixture) {
	is := is.New(t)

	f := newFixture()
	a := New(Config{StaleSeconds: 60, MaxTrackedSensors: 100}, f.resolver(), nil)
	a.now = f.now

	return is, a, f
}
