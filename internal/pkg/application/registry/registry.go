package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"

	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/infrastructure/events"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/infrastructure/hardware"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/infrastructure/storage"
	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

var tracer = otel.Tracer("iot-sensor-ingest/registry")

var ErrSensorNotFound = fmt.Errorf("sensor not found")
var ErrInvalidSensor = fmt.Errorf("sensor is invalid")
var ErrNotWired = fmt.Errorf("sensor is not locally attached")

const defaultReadTimeout = 5 * time.Second

//go:generate moq -rm -out registry_mock.go . SensorRegistry
type SensorRegistry interface {
	Register(ctx context.Context, sensor types.Sensor) (bool, error)
	Delete(ctx context.Context, sensorID int64) error

	GetSensor(ctx context.Context, sensorID int64) (types.Sensor, error)
	GetSensorByFriendlyName(ctx context.Context, name string) (types.Sensor, error)
	Query(ctx context.Context, params map[string][]string) (types.Collection[types.Sensor], error)

	SensorsByCategory(category types.SensorCategory) []types.Sensor
	WiredSensors() []types.Sensor

	SetOnline(ctx context.Context, friendlyName string, online bool) error

	Read(ctx context.Context, sensorID int64) (map[string]any, error)

	StoreLastValue(sensorID int64, reading types.Reading)
	LastValue(sensorID int64) (types.Reading, bool)
}

//go:generate moq -rm -out sensorstorage_mock.go . SensorStorage
type SensorStorage interface {
	CreateOrUpdateSensor(ctx context.Context, sensor types.Sensor) error
	DeleteSensor(ctx context.Context, sensorID int64) error
	SetSensorOnline(ctx context.Context, sensorID int64, online bool) error
	QuerySensors(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.Sensor], error)
}

type registry struct {
	mu sync.RWMutex

	sensors    map[int64]types.Sensor
	byCategory map[types.SensorCategory][]int64
	wired      []int64
	wireless   []int64

	lastValues map[int64]types.Reading
	adapters   map[int64]hardware.Adapter

	storage SensorStorage
	bus     events.Bus
}

func New(storage SensorStorage, bus events.Bus) SensorRegistry {
	return &registry{
		sensors:    map[int64]types.Sensor{},
		byCategory: map[types.SensorCategory][]int64{},
		lastValues: map[int64]types.Reading{},
		adapters:   map[int64]hardware.Adapter{},
		storage:    storage,
		bus:        bus,
	}
}

// Hydrate loads all persisted sensors into the in-memory map. It is called
// once on startup, before the MQTT router connects.
func (r *registry) Hydrate(ctx context.Context) error {
	if r.storage == nil {
		return nil
	}

	result, err := r.storage.QuerySensors(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sensor := range result.Data {
		r.sensors[sensor.ID] = sensor
	}
	r.rebuildIndices()

	return nil
}

func (r *registry) Register(ctx context.Context, sensor types.Sensor) (created bool, err error) {
	ctx, span := tracer.Start(ctx, "register-sensor")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	log := logging.GetFromContext(ctx)

	if sensor.ID <= 0 || sensor.UnitID <= 0 {
		return false, fmt.Errorf("%w: id and unit id are required", ErrInvalidSensor)
	}

	if _, err := types.ParseSensorCategory(string(sensor.Category)); err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidSensor, err)
	}

	if _, err := types.ParseProtocol(string(sensor.Protocol)); err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidSensor, err)
	}

	if sensor.Calibration != nil {
		if err := sensor.Calibration.Validate(); err != nil {
			return false, fmt.Errorf("%w: %w", ErrInvalidSensor, err)
		}
	}

	if r.storage != nil {
		if err := r.storage.CreateOrUpdateSensor(ctx, sensor); err != nil {
			return false, err
		}
	}

	r.mu.Lock()
	_, existed := r.sensors[sensor.ID]
	r.sensors[sensor.ID] = sensor
	delete(r.adapters, sensor.ID)
	r.rebuildIndices()
	r.mu.Unlock()

	if existed {
		log.Debug("sensor re-registered", "sensor_id", sensor.ID)
	}

	err = r.bus.PublishOnTopic(ctx, &types.SensorCreated{
		SensorID:  sensor.ID,
		UnitID:    sensor.UnitID,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		log.Error("failed to publish sensor created event", "err", err.Error())
		err = nil
	}

	return !existed, nil
}

func (r *registry) Delete(ctx context.Context, sensorID int64) (err error) {
	ctx, span := tracer.Start(ctx, "delete-sensor")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	log := logging.GetFromContext(ctx)

	r.mu.Lock()
	sensor, ok := r.sensors[sensorID]
	if !ok {
		r.mu.Unlock()
		return ErrSensorNotFound
	}

	delete(r.sensors, sensorID)
	delete(r.lastValues, sensorID)
	delete(r.adapters, sensorID)
	r.rebuildIndices()
	r.mu.Unlock()

	if r.storage != nil {
		if err := r.storage.DeleteSensor(ctx, sensorID); err != nil {
			return err
		}
	}

	err = r.bus.PublishOnTopic(ctx, &types.SensorDeleted{
		SensorID:  sensorID,
		UnitID:    sensor.UnitID,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		log.Error("failed to publish sensor deleted event", "err", err.Error())
		err = nil
	}

	return nil
}

func (r *registry) GetSensor(ctx context.Context, sensorID int64) (types.Sensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sensor, ok := r.sensors[sensorID]
	if !ok {
		return types.Sensor{}, ErrSensorNotFound
	}

	return sensor, nil
}

// GetSensorByFriendlyName scans the registered sensors for one matching the
// query by name, zigbee friendly name, extra config or topic substring. The
// scan is linear but sits behind the router's identity cache.
func (r *registry) GetSensorByFriendlyName(ctx context.Context, name string) (types.Sensor, error) {
	if name == "" {
		return types.Sensor{}, ErrSensorNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sensor := range r.sensors {
		if sensor.Name == name {
			return sensor, nil
		}
		if sensor.Config.FriendlyName == name {
			return sensor, nil
		}
		if sensor.Config.Extra["friendly_name"] == name {
			return sensor, nil
		}
		if sensor.Config.MQTTTopic != "" && strings.Contains(sensor.Config.MQTTTopic, name) {
			return sensor, nil
		}
	}

	return types.Sensor{}, ErrSensorNotFound
}

func (r *registry) Query(ctx context.Context, params map[string][]string) (types.Collection[types.Sensor], error) {
	if r.storage == nil {
		return types.Collection[types.Sensor]{}, fmt.Errorf("no storage configured")
	}

	conditions := storage.ParseConditions(ctx, params)
	return r.storage.QuerySensors(ctx, conditions...)
}

func (r *registry) SensorsByCategory(category types.SensorCategory) []types.Sensor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(r.byCategory[category])
}

func (r *registry) WiredSensors() []types.Sensor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(r.wired)
}

func (r *registry) SetOnline(ctx context.Context, friendlyName string, online bool) error {
	log := logging.GetFromContext(ctx)

	sensor, err := r.GetSensorByFriendlyName(ctx, friendlyName)
	if err != nil {
		return err
	}

	r.mu.Lock()
	changed := sensor.Online != online
	sensor.Online = online
	r.sensors[sensor.ID] = sensor
	r.mu.Unlock()

	if !changed {
		return nil
	}

	if r.storage != nil {
		if err := r.storage.SetSensorOnline(ctx, sensor.ID, online); err != nil {
			log.Error("failed to persist availability", "sensor_id", sensor.ID, "err", err.Error())
		}
	}

	err = r.bus.PublishOnTopic(ctx, &types.AvailabilityChanged{
		SensorID:     sensor.ID,
		UnitID:       sensor.UnitID,
		FriendlyName: friendlyName,
		Online:       online,
		Timestamp:    time.Now().UTC(),
	})
	if err != nil {
		log.Error("failed to publish availability event", "err", err.Error())
	}

	return nil
}

// Read performs a hardware read of a wired sensor, bounded by the sensor's
// configured timeout.
func (r *registry) Read(ctx context.Context, sensorID int64) (data map[string]any, err error) {
	ctx, span := tracer.Start(ctx, "read-sensor")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	sensor, err := r.GetSensor(ctx, sensorID)
	if err != nil {
		return nil, err
	}

	if !sensor.Protocol.Wired() {
		return nil, fmt.Errorf("%w: %s uses %s", ErrNotWired, sensor.Name, sensor.Protocol)
	}

	adapter, err := r.adapterFor(sensor)
	if err != nil {
		return nil, err
	}

	timeout := defaultReadTimeout
	if sensor.Config.ReadTimeout > 0 {
		timeout = time.Duration(sensor.Config.ReadTimeout) * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return adapter.Read(ctx, sensor)
}

func (r *registry) StoreLastValue(sensorID int64, reading types.Reading) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastValues[sensorID] = reading
}

func (r *registry) LastValue(sensorID int64) (types.Reading, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reading, ok := r.lastValues[sensorID]
	return reading, ok
}

func (r *registry) adapterFor(sensor types.Sensor) (hardware.Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if adapter, ok := r.adapters[sensor.ID]; ok {
		return adapter, nil
	}

	adapter, err := hardware.NewAdapter(sensor)
	if err != nil {
		return nil, err
	}

	r.adapters[sensor.ID] = adapter
	return adapter, nil
}

// rebuildIndices recreates the category and protocol grouping indices from
// the sensor map. Callers hold the write lock.
func (r *registry) rebuildIndices() {
	r.byCategory = map[types.SensorCategory][]int64{}
	r.wired = r.wired[:0]
	r.wireless = r.wireless[:0]

	for id, sensor := range r.sensors {
		r.byCategory[sensor.Category] = append(r.byCategory[sensor.Category], id)
		if sensor.Protocol.Wired() {
			r.wired = append(r.wired, id)
		} else {
			r.wireless = append(r.wireless, id)
		}
	}
}

func (r *registry) collect(ids []int64) []types.Sensor {
	sensors := make([]types.Sensor, 0, len(ids))
	for _, id := range ids {
		sensors = append(sensors, r.sensors[id])
	}
	return sensors
}

// Hydrator is implemented by registries that can preload state from
// persistent storage.
type Hydrator interface {
	Hydrate(ctx context.Context) error
}

var _ Hydrator = &registry{}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrSensorNotFound)
}
