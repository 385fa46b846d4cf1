package polling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/pipeline"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/registry"
	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	is := is.New(t)

	is.Equal(backoffFor(1), 5*time.Second)
	is.Equal(backoffFor(2), 10*time.Second)
	is.Equal(backoffFor(3), 20*time.Second)
	is.Equal(backoffFor(7), 320*time.Second)
	is.Equal(backoffFor(8), 600*time.Second)
	is.Equal(backoffFor(20), 600*time.Second)
}

func TestStartIsNoopWithoutWiredSensors(t *testing.T) {
	is := is.New(t)

	reg := &registry.SensorRegistryMock{
		WiredSensorsFunc: func() []types.Sensor { return nil },
	}

	w := New(reg, nil, nil, nil, time.Second)

	is.NoErr(w.Start(context.Background()))
	is.NoErr(w.Stop(context.Background()))
}

func TestPollOneDispatchesThroughPipeline(t *testing.T) {
	is := is.New(t)

	sensor := wiredSensor(1, 2)

	reg := &registry.SensorRegistryMock{
		ReadFunc: func(ctx context.Context, sensorID int64) (map[string]any, error) {
			return map[string]any{"temperature": 21.5}, nil
		},
		StoreLastValueFunc: func(sensorID int64, reading types.Reading) {},
	}

	processor := &pipeline.ProcessorMock{
		ProcessFunc: func(ctx context.Context, s types.Sensor, raw map[string]any) (types.Reading, error) {
			return types.Reading{SensorID: s.ID, UnitID: s.UnitID, Data: raw}, nil
		},
		BuildPayloadsFunc: func(ctx context.Context, s types.Sensor, reading types.Reading) *pipeline.Bundle {
			return &pipeline.Bundle{
				UnitID: s.UnitID,
				Device: &types.DevicePayload{SensorID: s.ID, UnitID: s.UnitID},
			}
		},
	}

	broadcaster := &pipeline.BroadcasterMock{
		PushDeviceFunc:   func(ctx context.Context, unitID int64, payload *types.DevicePayload) {},
		PushSnapshotFunc: func(ctx context.Context, unitID int64, snapshot *types.DashboardSnapshot) {},
	}

	w := New(reg, processor, broadcaster, nil, time.Second).(*worker)
	w.pollOne(context.Background(), sensor)

	is.Equal(len(processor.ProcessCalls()), 1)
	is.Equal(len(broadcaster.PushDeviceCalls()), 1)
	is.Equal(broadcaster.PushDeviceCalls()[0].UnitID, int64(2))

	state, ok := w.Health(1)
	is.True(ok)
	is.Equal(state.Status, types.HealthHealthy)
	is.Equal(state.ConsecutiveFailures, 0)
}

func TestFailuresAccumulateIntoBackoffAndUnhealthy(t *testing.T) {
	is := is.New(t)

	sensor := wiredSensor(1, 2)

	reg := &registry.SensorRegistryMock{
		ReadFunc: func(ctx context.Context, sensorID int64) (map[string]any, error) {
			return nil, errors.New("bus timeout")
		},
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	w := New(reg, nil, nil, nil, time.Second).(*worker)
	w.now = func() time.Time { return now }

	for i := 0; i < unhealthyAfter; i++ {
		w.pollOne(context.Background(), sensor)
	}

	state, ok := w.Health(1)
	is.True(ok)
	is.Equal(state.Status, types.HealthUnhealthy)
	is.Equal(state.ConsecutiveFailures, 10)
	is.Equal(state.LastError, "bus timeout")
	is.Equal(state.BackoffUntil, now.Add(600*time.Second))
}

func TestBackoffSkipsSensorUntilDeadline(t *testing.T) {
	is := is.New(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	w := New(&registry.SensorRegistryMock{}, nil, nil, nil, time.Second).(*worker)
	w.now = func() time.Time { return now }

	w.health[1] = &types.HealthState{SensorID: 1, BackoffUntil: now.Add(10 * time.Second)}

	is.True(w.inBackoff(1, now))
	is.True(!w.inBackoff(1, now.Add(10*time.Second)))
	is.True(!w.inBackoff(2, now))
}

func TestRecoveryResetsFailureCount(t *testing.T) {
	is := is.New(t)

	w := New(&registry.SensorRegistryMock{}, nil, nil, nil, time.Second).(*worker)

	w.recordFailure(context.Background(), wiredSensor(1, 2), errors.New("nope"))
	w.recordFailure(context.Background(), wiredSensor(1, 2), errors.New("nope"))
	w.recordSuccess(1)

	state, ok := w.Health(1)
	is.True(ok)
	is.Equal(state.ConsecutiveFailures, 0)
	is.Equal(state.Status, types.HealthHealthy)
}

func TestStopJoinsWorker(t *testing.T) {
	is := is.New(t)

	reg := &registry.SensorRegistryMock{
		WiredSensorsFunc: func() []types.Sensor { return []types.Sensor{wiredSensor(1, 2)} },
		ReadFunc: func(ctx context.Context, sensorID int64) (map[string]any, error) {
			return nil, errors.New("not attached")
		},
	}

	w := New(reg, nil, nil, nil, time.Second)

	is.NoErr(w.Start(context.Background()))
	is.NoErr(w.Stop(context.Background()))
}

func wiredSensor(id, unitID int64) types.Sensor {
	return types.Sensor{
		ID:       id,
		UnitID:   unitID,
		Name:     "probe",
		Category: types.CategoryEnvironmental,
		Protocol: types.ProtocolI2C,
	}
}
