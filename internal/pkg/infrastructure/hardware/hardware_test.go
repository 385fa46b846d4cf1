package hardware

import (
	"context"
	"testing"

	"github.com/matryer/is"
	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

func TestSimulatedDriverIsRegisteredForWiredProtocols(t *testing.T) {
	is := is.New(t)

	for _, p := range []types.Protocol{
		types.ProtocolGPIO, types.ProtocolI2C, types.ProtocolADC,
		types.ProtocolSPI, types.ProtocolOneWire,
	} {
		adapter, err := NewAdapter(types.Sensor{ID: 1, Protocol: p})
		is.NoErr(err)
		is.True(adapter != nil)
	}
}

func TestNewAdapterFailsForWirelessProtocol(t *testing.T) {
	is := is.New(t)

	_, err := NewAdapter(types.Sensor{ID: 1, Protocol: types.ProtocolZigbee})
	is.True(err != nil)
}

func TestSimulatedReadIsTaggedAsMock(t *testing.T) {
	is := is.New(t)

	sensor := types.Sensor{ID: 1, Protocol: types.ProtocolI2C, Category: types.CategoryEnvironmental}

	adapter, err := NewAdapter(sensor)
	is.NoErr(err)

	data, err := adapter.Read(context.Background(), sensor)
	is.NoErr(err)
	is.Equal(data["status"], "MOCK")

	_, hasTemp := data[types.MetricTemperature]
	is.True(hasTemp)
}

func TestSimulatedReadForPlantSensors(t *testing.T) {
	is := is.New(t)

	sensor := types.Sensor{ID: 2, Protocol: types.ProtocolADC, Category: types.CategoryPlant}

	adapter, err := NewAdapter(sensor)
	is.NoErr(err)

	data, err := adapter.Read(context.Background(), sensor)
	is.NoErr(err)

	_, hasSoil := data[types.MetricSoilMoisture]
	is.True(hasSoil)
}
