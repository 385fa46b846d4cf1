package polling

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"

	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/pipeline"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/registry"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/infrastructure/events"
	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

const (
	defaultInterval = 10 * time.Second
	minSleep        = 100 * time.Millisecond

	baseBackoff = 5 * time.Second
	maxBackoff  = 600 * time.Second

	unhealthyAfter = 10

	stopGrace = 5 * time.Second
)

// Worker periodically reads all wired sensors and feeds the results through
// the processing pipeline.
type Worker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(sensorID int64) (types.HealthState, bool)
}

type worker struct {
	registry    registry.SensorRegistry
	processor   pipeline.Processor
	broadcaster pipeline.Broadcaster
	bus         events.Bus

	interval time.Duration

	mu     sync.RWMutex
	health map[int64]*types.HealthState

	done    chan struct{}
	stopped sync.WaitGroup
	started bool

	now func() time.Time
}

func New(r registry.SensorRegistry, p pipeline.Processor, b pipeline.Broadcaster, bus events.Bus, interval time.Duration) Worker {
	if interval <= 0 {
		interval = defaultInterval
	}

	return &worker{
		registry:    r,
		processor:   p,
		broadcaster: b,
		bus:         bus,
		interval:    interval,
		health:      map[int64]*types.HealthState{},
		done:        make(chan struct{}),
		now:         time.Now,
	}
}

// Start launches the background worker. It is a no-op when no wired sensors
// are registered at startup.
func (w *worker) Start(ctx context.Context) error {
	log := logging.GetFromContext(ctx)

	sensors := w.registry.WiredSensors()
	if len(sensors) == 0 {
		log.Info("no wired sensors registered, polling disabled")
		return nil
	}

	w.started = true
	w.stopped.Add(1)

	go w.run(ctx)

	log.Info("polling started", "sensors", len(sensors), "interval", w.interval.String())

	return nil
}

// Stop signals the worker and waits for it to join within the grace period.
func (w *worker) Stop(ctx context.Context) error {
	if !w.started {
		return nil
	}

	close(w.done)

	joined := make(chan struct{})
	go func() {
		w.stopped.Wait()
		close(joined)
	}()

	select {
	case <-joined:
		return nil
	case <-time.After(stopGrace):
		return fmt.Errorf("polling worker did not stop within %s", stopGrace)
	}
}

func (w *worker) Health(sensorID int64) (types.HealthState, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	state, ok := w.health[sensorID]
	if !ok {
		return types.HealthState{SensorID: sensorID, Status: types.HealthUnknown}, false
	}

	return *state, true
}

func (w *worker) run(ctx context.Context) {
	defer w.stopped.Done()

	for {
		tickStart := w.now()

		w.pollAll(ctx)

		sleep := w.interval - w.now().Sub(tickStart)
		if sleep < minSleep {
			sleep = minSleep
		}

		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

func (w *worker) pollAll(ctx context.Context) {
	now := w.now()

	for _, sensor := range w.registry.WiredSensors() {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		if w.inBackoff(sensor.ID, now) {
			continue
		}

		w.pollOne(ctx, sensor)
	}
}

func (w *worker) pollOne(ctx context.Context, sensor types.Sensor) {
	log := logging.GetFromContext(ctx)

	raw, err := w.registry.Read(ctx, sensor.ID)
	if err != nil {
		w.recordFailure(ctx, sensor, err)
		return
	}

	reading, err := w.processor.Process(ctx, sensor, raw)
	if err != nil {
		w.recordFailure(ctx, sensor, err)
		return
	}

	w.registry.StoreLastValue(sensor.ID, reading)

	bundle := w.processor.BuildPayloads(ctx, sensor, reading)
	pipeline.Dispatch(ctx, bundle, w.broadcaster, w.bus)

	w.recordSuccess(sensor.ID)

	log.Debug("polled sensor", "sensor_id", sensor.ID, "status", string(reading.Status))
}

func (w *worker) inBackoff(sensorID int64, now time.Time) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	state, ok := w.health[sensorID]
	return ok && now.Before(state.BackoffUntil)
}

func (w *worker) recordSuccess(sensorID int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.health[sensorID] = &types.HealthState{
		SensorID: sensorID,
		Status:   types.HealthHealthy,
		LastSeen: w.now(),
	}
}

// recordFailure increments the consecutive failure count and schedules the
// next attempt with exponential backoff. Logging happens on the first
// failure and every tenth thereafter to keep a flapping sensor from
// flooding the log.
func (w *worker) recordFailure(ctx context.Context, sensor types.Sensor, err error) {
	log := logging.GetFromContext(ctx)

	w.mu.Lock()

	state, ok := w.health[sensor.ID]
	if !ok {
		state = &types.HealthState{SensorID: sensor.ID, Status: types.HealthHealthy}
		w.health[sensor.ID] = state
	}

	state.ConsecutiveFailures++
	state.LastError = err.Error()

	if state.ConsecutiveFailures >= unhealthyAfter {
		state.Status = types.HealthUnhealthy
	}

	backoff := backoffFor(state.ConsecutiveFailures)
	state.BackoffUntil = w.now().Add(backoff)

	failures := state.ConsecutiveFailures
	w.mu.Unlock()

	if failures == 1 || failures%10 == 0 {
		log.Error("sensor read failed",
			"sensor_id", sensor.ID,
			"name", sensor.Name,
			"failures", failures,
			"backoff", backoff.String(),
			"err", err.Error(),
		)
	}
}

func backoffFor(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}

	d := time.Duration(float64(baseBackoff) * math.Pow(2, float64(failures-1)))
	if d > maxBackoff || d < 0 {
		return maxBackoff
	}

	return d
}
