package hardware

import (
	"context"
	"math/rand"

	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

func init() {
	for _, p := range []types.Protocol{
		types.ProtocolGPIO, types.ProtocolI2C, types.ProtocolADC,
		types.ProtocolSPI, types.ProtocolOneWire,
	} {
		RegisterDriver(p, NewSimulatedDriver)
	}
}

// SimulatedDriver produces plausible readings for sensors without real
// hardware attached. Readings are tagged with status MOCK so they are
// distinguishable downstream.
type SimulatedDriver struct {
	sensor types.Sensor
}

func NewSimulatedDriver(sensor types.Sensor) (Adapter, error) {
	return &SimulatedDriver{sensor: sensor}, nil
}

func (d *SimulatedDriver) Read(ctx context.Context, sensor types.Sensor) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]any{
		"status": "MOCK",
	}

	jitter := func(base, spread float64) float64 {
		return base + (rand.Float64()*2-1)*spread
	}

	switch sensor.Category {
	case types.CategoryPlant:
		data[types.MetricSoilMoisture] = jitter(42, 8)
		data[types.MetricPH] = jitter(6.2, 0.4)
		data[types.MetricEC] = jitter(1.4, 0.3)
	default:
		data[types.MetricTemperature] = jitter(22, 3)
		data[types.MetricHumidity] = jitter(55, 10)
		data[types.MetricCO2] = jitter(650, 120)
	}

	return data, nil
}
