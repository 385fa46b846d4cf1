package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/matryer/is"

	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/arbitrator"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/pipeline"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/registry"
	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

func TestHealthEndpoint(t *testing.T) {
	is, server, _ := testServer(t)
	defer server.Close()

	resp, _ := testRequest(t, server, http.MethodGet, "/health", nil)
	is.Equal(resp.StatusCode, http.StatusNoContent)
}

func TestGetSensor(t *testing.T) {
	is, server, deps := testServer(t)
	defer server.Close()

	deps.sensors[1] = types.Sensor{ID: 1, UnitID: 2, Name: "greenhouse_temp", Category: types.CategoryEnvironmental, Protocol: types.ProtocolZigbee}

	resp, body := testRequest(t, server, http.MethodGet, "/api/v0/sensors/1", nil)
	is.Equal(resp.StatusCode, http.StatusOK)

	sensor := types.Sensor{}
	is.NoErr(json.Unmarshal(body, &sensor))
	is.Equal(sensor.Name, "greenhouse_temp")

	resp, _ = testRequest(t, server, http.MethodGet, "/api/v0/sensors/99", nil)
	is.Equal(resp.StatusCode, http.StatusNotFound)

	resp, _ = testRequest(t, server, http.MethodGet, "/api/v0/sensors/notanumber", nil)
	is.Equal(resp.StatusCode, http.StatusBadRequest)
}

func TestCreateSensor(t *testing.T) {
	is, server, deps := testServer(t)
	defer server.Close()

	body := []byte(`{"id": 5, "unitID": 2, "name": "soil_probe", "category": "plant", "protocol": "adc"}`)

	resp, _ := testRequest(t, server, http.MethodPost, "/api/v0/sensors/", bytes.NewReader(body))
	is.Equal(resp.StatusCode, http.StatusCreated)
	is.Equal(len(deps.registry.RegisterCalls()), 1)

	resp, _ = testRequest(t, server, http.MethodPost, "/api/v0/sensors/", bytes.NewReader([]byte(`{"id": 0}`)))
	is.Equal(resp.StatusCode, http.StatusBadRequest)
}

func TestDeleteSensor(t *testing.T) {
	is, server, deps := testServer(t)
	defer server.Close()

	deps.sensors[1] = types.Sensor{ID: 1, UnitID: 2}

	resp, _ := testRequest(t, server, http.MethodDelete, "/api/v0/sensors/1", nil)
	is.Equal(resp.StatusCode, http.StatusNoContent)

	resp, _ = testRequest(t, server, http.MethodDelete, "/api/v0/sensors/42", nil)
	is.Equal(resp.StatusCode, http.StatusNotFound)
}

func TestUnitSnapshot(t *testing.T) {
	is, server, deps := testServer(t)
	defer server.Close()

	deps.snapshot = &types.DashboardSnapshot{
		SchemaVersion: types.SchemaVersion,
		UnitID:        3,
		Metrics: map[string]types.SnapshotMetric{
			"temperature": {Value: 21.5, Unit: "°C"},
		},
	}

	resp, body := testRequest(t, server, http.MethodGet, "/api/v0/units/3/snapshot", nil)
	is.Equal(resp.StatusCode, http.StatusOK)

	snapshot := types.DashboardSnapshot{}
	is.NoErr(json.Unmarshal(body, &snapshot))
	is.Equal(snapshot.Metrics["temperature"].Value, 21.5)

	deps.snapshot = nil
	resp, _ = testRequest(t, server, http.MethodGet, "/api/v0/units/3/snapshot", nil)
	is.Equal(resp.StatusCode, http.StatusNotFound)

	resp, _ = testRequest(t, server, http.MethodGet, "/api/v0/units/0/snapshot", nil)
	is.Equal(resp.StatusCode, http.StatusBadRequest)
}

func TestSensorHealth(t *testing.T) {
	is, server, deps := testServer(t)
	defer server.Close()

	deps.healthState = types.HealthState{SensorID: 1, Status: types.HealthUnhealthy, ConsecutiveFailures: 12}

	resp, body := testRequest(t, server, http.MethodGet, "/api/v0/sensors/1/health", nil)
	is.Equal(resp.StatusCode, http.StatusOK)

	state := types.HealthState{}
	is.NoErr(json.Unmarshal(body, &state))
	is.Equal(state.Status, types.HealthUnhealthy)
}

func TestOnDemandRead(t *testing.T) {
	is, server, deps := testServer(t)
	defer server.Close()

	deps.sensors[1] = types.Sensor{ID: 1, UnitID: 2, Name: "probe", Category: types.CategoryEnvironmental, Protocol: types.ProtocolI2C}

	resp, body := testRequest(t, server, http.MethodPost, "/api/v0/sensors/1/read", nil)
	is.Equal(resp.StatusCode, http.StatusOK)

	reading := types.Reading{}
	is.NoErr(json.Unmarshal(body, &reading))
	is.Equal(reading.SensorID, int64(1))
	is.Equal(len(deps.registry.ReadCalls()), 1)
}

func TestOnDemandReadOfWirelessSensorIsRejected(t *testing.T) {
	is, server, deps := testServer(t)
	defer server.Close()

	deps.sensors[1] = types.Sensor{ID: 1, UnitID: 2, Name: "remote", Category: types.CategoryEnvironmental, Protocol: types.ProtocolZigbee}

	resp, _ := testRequest(t, server, http.MethodPost, "/api/v0/sensors/1/read", nil)
	is.Equal(resp.StatusCode, http.StatusConflict)
}

func TestStats(t *testing.T) {
	is, server, _ := testServer(t)
	defer server.Close()

	resp, body := testRequest(t, server, http.MethodGet, "/api/v0/stats", nil)
	is.Equal(resp.StatusCode, http.StatusOK)

	result := map[string]any{}
	is.NoErr(json.Unmarshal(body, &result))

	_, hasArbiter := result["arbitrator"]
	is.True(hasArbiter)
}

type apiDeps struct {
	sensors     map[int64]types.Sensor
	snapshot    *types.DashboardSnapshot
	healthState types.HealthState
	registry    *registry.SensorRegistryMock
}

func (d *apiDeps) Snapshot(unitID int64) (*types.DashboardSnapshot, bool) {
	if d.snapshot == nil || d.snapshot.UnitID != unitID {
		return nil, false
	}
	return d.snapshot, true
}

func (d *apiDeps) Stats() arbitrator.Stats {
	return arbitrator.Stats{}
}

func (d *apiDeps) Health(sensorID int64) (types.HealthState, bool) {
	return d.healthState, d.healthState.SensorID == sensorID
}

func testServer(t *testing.T) (*is.I, *httptest.Server, *apiDeps) {
	is := is.New(t)

	deps := &apiDeps{sensors: map[int64]types.Sensor{}}

	deps.registry = &registry.SensorRegistryMock{
		GetSensorFunc: func(ctx context.Context, sensorID int64) (types.Sensor, error) {
			if s, ok := deps.sensors[sensorID]; ok {
				return s, nil
			}
			return types.Sensor{}, registry.ErrSensorNotFound
		},
		RegisterFunc: func(ctx context.Context, sensor types.Sensor) (bool, error) {
			if sensor.ID <= 0 || sensor.UnitID <= 0 {
				return false, registry.ErrInvalidSensor
			}
			_, existed := deps.sensors[sensor.ID]
			deps.sensors[sensor.ID] = sensor
			return !existed, nil
		},
		DeleteFunc: func(ctx context.Context, sensorID int64) error {
			if _, ok := deps.sensors[sensorID]; !ok {
				return registry.ErrSensorNotFound
			}
			delete(deps.sensors, sensorID)
			return nil
		},
		QueryFunc: func(ctx context.Context, params map[string][]string) (types.Collection[types.Sensor], error) {
			return types.Collection[types.Sensor]{}, nil
		},
		ReadFunc: func(ctx context.Context, sensorID int64) (map[string]any, error) {
			s := deps.sensors[sensorID]
			if !s.Protocol.Wired() {
				return nil, registry.ErrNotWired
			}
			return map[string]any{"temperature": 21.0, "status": "MOCK"}, nil
		},
		StoreLastValueFunc: func(sensorID int64, reading types.Reading) {},
	}

	processor := &pipeline.ProcessorMock{
		ProcessFunc: func(ctx context.Context, s types.Sensor, raw map[string]any) (types.Reading, error) {
			return types.Reading{SensorID: s.ID, UnitID: s.UnitID, Data: raw, Status: types.StatusMock}, nil
		},
		BuildPayloadsFunc: func(ctx context.Context, s types.Sensor, reading types.Reading) *pipeline.Bundle {
			return nil
		},
	}

	a := New(deps.registry, deps, deps, nil, processor, nil, nil)

	router, err := a.RegisterHandlers(context.Background(), chi.NewRouter())
	is.NoErr(err)

	return is, httptest.NewServer(router), deps
}

func testRequest(t *testing.T, ts *httptest.Server, method, path string, body *bytes.Reader) (*http.Response, []byte) {
	var req *http.Request
	var err error

	if body != nil {
		req, err = http.NewRequest(method, ts.URL+path, body)
	} else {
		req, err = http.NewRequest(method, ts.URL+path, nil)
	}
	if err != nil {
		t.Fatal(err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	respBody := new(bytes.Buffer)
	_, _ = respBody.ReadFrom(resp.Body)

	return resp, respBody.Bytes()
}
