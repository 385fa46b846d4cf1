package registry

import (
	"context"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/infrastructure/events"
	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

func TestRegisterIsIdempotentOnSameID(t *testing.T) {
	is, r, _ := testSetup(t)

	created, err := r.Register(context.Background(), testSensor(1, 1))
	is.NoErr(err)
	is.True(created)

	created, err = r.Register(context.Background(), testSensor(1, 1))
	is.NoErr(err)
	is.True(!created)
}

func TestRegisterPublishesSensorCreated(t *testing.T) {
	is, r, bus := testSetup(t)

	_, err := r.Register(context.Background(), testSensor(1, 3))
	is.NoErr(err)

	calls := bus.PublishOnTopicCalls()
	is.Equal(len(calls), 1)
	is.Equal(calls[0].Msg.TopicName(), "device.sensor_created")
}

func TestRegisterRejectsInvalidSensors(t *testing.T) {
	is, r, _ := testSetup(t)

	_, err := r.Register(context.Background(), types.Sensor{ID: 0, UnitID: 1})
	is.True(err != nil)

	s := testSensor(1, 1)
	s.Category = "submarine"
	_, err = r.Register(context.Background(), s)
	is.True(err != nil)

	s = testSensor(2, 1)
	slope := 1.02
	s.Calibration = &types.Calibration{Type: types.CalibrationLinear, Slope: &slope}
	_, err = r.Register(context.Background(), s)
	is.True(err != nil)
}

func TestDeletePublishesSensorDeleted(t *testing.T) {
	is, r, bus := testSetup(t)

	_, err := r.Register(context.Background(), testSensor(1, 1))
	is.NoErr(err)

	err = r.Delete(context.Background(), 1)
	is.NoErr(err)

	calls := bus.PublishOnTopicCalls()
	is.Equal(len(calls), 2)
	is.Equal(calls[1].Msg.TopicName(), "device.sensor_deleted")

	_, err = r.GetSensor(context.Background(), 1)
	is.True(IsNotFound(err))
}

func TestDeleteUnknownSensor(t *testing.T) {
	is, r, _ := testSetup(t)
	is.True(IsNotFound(r.Delete(context.Background(), 42)))
}

func TestFriendlyNameResolution(t *testing.T) {
	is, r, _ := testSetup(t)

	byName := testSensor(1, 1)
	byName.Name = "greenhouse_temp"

	byConfig := testSensor(2, 1)
	byConfig.Config.FriendlyName = "soil_probe_a"

	byExtra := testSensor(3, 1)
	byExtra.Config.Extra = map[string]string{"friendly_name": "legacy_sensor"}

	byTopic := testSensor(4, 1)
	byTopic.Config.MQTTTopic = "zigbee2mqtt/bench_sensor_04"

	for _, s := range []types.Sensor{byName, byConfig, byExtra, byTopic} {
		_, err := r.Register(context.Background(), s)
		is.NoErr(err)
	}

	for query, want := range map[string]int64{
		"greenhouse_temp": 1,
		"soil_probe_a":    2,
		"legacy_sensor":   3,
		"bench_sensor_04": 4,
	} {
		sensor, err := r.GetSensorByFriendlyName(context.Background(), query)
		is.NoErr(err)
		is.Equal(sensor.ID, want)
	}

	_, err := r.GetSensorByFriendlyName(context.Background(), "does_not_exist")
	is.True(IsNotFound(err))
}

func TestIndicesGroupByCategoryAndProtocol(t *testing.T) {
	is, r, _ := testSetup(t)

	env := testSensor(1, 1)
	env.Protocol = types.ProtocolZigbee

	plant := testSensor(2, 1)
	plant.Category = types.CategoryPlant
	plant.Protocol = types.ProtocolADC

	for _, s := range []types.Sensor{env, plant} {
		_, err := r.Register(context.Background(), s)
		is.NoErr(err)
	}

	is.Equal(len(r.SensorsByCategory(types.CategoryPlant)), 1)
	is.Equal(len(r.SensorsByCategory(types.CategoryEnvironmental)), 1)

	wired := r.WiredSensors()
	is.Equal(len(wired), 1)
	is.Equal(wired[0].ID, int64(2))
}

func TestSetOnlinePublishesAvailabilityOnChange(t *testing.T) {
	is, r, bus := testSetup(t)

	s := testSensor(1, 1)
	s.Name = "greenhouse_temp"
	_, err := r.Register(context.Background(), s)
	is.NoErr(err)

	err = r.SetOnline(context.Background(), "greenhouse_temp", true)
	is.NoErr(err)

	err = r.SetOnline(context.Background(), "greenhouse_temp", true)
	is.NoErr(err)

	availability := 0
	for _, c := range bus.PublishOnTopicCalls() {
		if c.Msg.TopicName() == "device.availability_changed" {
			availability++
		}
	}
	is.Equal(availability, 1)
}

func TestReadRequiresWiredProtocol(t *testing.T) {
	is, r, _ := testSetup(t)

	s := testSensor(1, 1)
	s.Protocol = types.ProtocolZigbee
	_, err := r.Register(context.Background(), s)
	is.NoErr(err)

	_, err = r.Read(context.Background(), 1)
	is.True(err != nil)
}

func TestReadUsesHardwareAdapter(t *testing.T) {
	is, r, _ := testSetup(t)

	s := testSensor(1, 1)
	s.Protocol = types.ProtocolI2C
	_, err := r.Register(context.Background(), s)
	is.NoErr(err)

	data, err := r.Read(context.Background(), 1)
	is.NoErr(err)
	is.Equal(data["status"], "MOCK")
}

func TestLastValueRoundTrip(t *testing.T) {
	is, r, _ := testSetup(t)

	_, ok := r.LastValue(1)
	is.True(!ok)

	r.StoreLastValue(1, types.Reading{SensorID: 1, UnitID: 1})

	reading, ok := r.LastValue(1)
	is.True(ok)
	is.Equal(reading.SensorID, int64(1))
}

func TestSeedSensorsFromYAML(t *testing.T) {
	is, r, _ := testSetup(t)

	seed := `
sensors:
  - id: 1
    unitID: 2
    name: greenhouse_temp
    category: environmental
    protocol: zigbee
    config:
      primaryMetrics:
        - temperature
  - id: 2
    unitID: 2
    name: soil_probe
    category: plant
    protocol: adc
    config:
      pollingInterval: 30
`

	err := SeedSensors(context.Background(), r, strings.NewReader(seed))
	is.NoErr(err)

	sensor, err := r.GetSensor(context.Background(), 1)
	is.NoErr(err)
	is.True(sensor.DeclaresPrimary("temperature"))

	sensor, err = r.GetSensor(context.Background(), 2)
	is.NoErr(err)
	is.Equal(sensor.Config.PollingInterval, 30)
}

func testSetup(t *testing.T) (*is.I, SensorRegistry, *events.BusMock) {
	is := is.New(t)

	bus := &events.BusMock{
		PublishOnTopicFunc: func(ctx context.Context, msg events.TopicMessage) error {
			return nil
		},
	}

	return is, New(nil, bus), bus
}

func testSensor(id, unitID int64) types.Sensor {
	return types.Sensor{
		ID:       id,
		UnitID:   unitID,
		Name:     "sensor",
		Category: types.CategoryEnvironmental,
		Protocol: types.ProtocolZigbee,
	}
}
