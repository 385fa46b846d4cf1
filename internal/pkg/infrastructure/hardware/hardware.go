package hardware

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

var ErrUnsupportedProtocol = errors.New("no driver registered for protocol")

//go:generate moq -rm -out adapter_mock.go . Adapter

// Adapter reads raw values from a locally attached sensor. Implementations
// must honour the context deadline and return partial data as an error.
type Adapter interface {
	Read(ctx context.Context, sensor types.Sensor) (map[string]any, error)
}

// DriverFactory creates an adapter for a single sensor. Factories are
// registered per protocol and invoked lazily on first read.
type DriverFactory func(sensor types.Sensor) (Adapter, error)

var (
	driversMu sync.RWMutex
	drivers   = map[types.Protocol]DriverFactory{}
)

// RegisterDriver binds a factory to a wired protocol, replacing any
// previous registration.
func RegisterDriver(protocol types.Protocol, factory DriverFactory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[protocol] = factory
}

// NewAdapter resolves the registered driver factory for the sensor's
// protocol and creates an adapter for it.
func NewAdapter(sensor types.Sensor) (Adapter, error) {
	driversMu.RLock()
	factory, ok := drivers[sensor.Protocol]
	driversMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, sensor.Protocol)
	}

	return factory(sensor)
}
