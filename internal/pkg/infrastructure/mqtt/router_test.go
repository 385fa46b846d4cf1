package mqtt

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/pipeline"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/registry"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/infrastructure/events"
	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

func TestZigbeeBridgeMessagesAreCountedAndDropped(t *testing.T) {
	is, r, deps := testRouter(t)

	r.handleMessage(context.Background(), "zigbee2mqtt/bridge/state", []byte(`{"state":"online"}`))
	r.handleMessage(context.Background(), "zigbee2mqtt/bridge/logging", []byte(`{}`))

	is.Equal(r.Stats().BridgeMessages, uint64(2))
	is.Equal(len(deps.processor.ProcessCalls()), 0)
}

func TestNonObjectStatePayloadIsDropped(t *testing.T) {
	is, r, deps := testRouter(t)

	r.handleMessage(context.Background(), "zigbee2mqtt/greenhouse_temp", []byte(`[1,2,3]`))
	r.handleMessage(context.Background(), "zigbee2mqtt/greenhouse_temp", []byte(`not json`))

	is.Equal(r.Stats().InvalidPayload, uint64(2))
	is.Equal(len(deps.processor.ProcessCalls()), 0)
}

func TestResolvedStateReachesPipelineAndBroadcast(t *testing.T) {
	is, r, deps := testRouter(t)

	deps.sensors["greenhouse_temp"] = types.Sensor{
		ID: 1, UnitID: 3, Name: "greenhouse_temp",
		Category: types.CategoryEnvironmental, Protocol: types.ProtocolZigbee,
	}

	r.handleMessage(context.Background(), "zigbee2mqtt/greenhouse_temp", []byte(`{"temperature": 21.5}`))

	is.Equal(len(deps.processor.ProcessCalls()), 1)
	is.Equal(len(deps.registry.StoreLastValueCalls()), 1)
	is.Equal(len(deps.broadcaster.PushDeviceCalls()), 1)
	is.Equal(deps.broadcaster.PushDeviceCalls()[0].UnitID, int64(3))
}

func TestUnregisteredZigbeeDeviceEmitsNothing(t *testing.T) {
	is, r, deps := testRouter(t)

	r.handleMessage(context.Background(), "zigbee2mqtt/mystery_device", []byte(`{"temperature": 21.5}`))

	is.Equal(r.Stats().Unregistered, uint64(1))
	is.Equal(len(deps.processor.ProcessCalls()), 0)
	is.Equal(len(deps.broadcaster.PushDiscoveryCalls()), 0)
}

func TestUnregisteredSysgrowDeviceSelfAnnounces(t *testing.T) {
	is, r, deps := testRouter(t)

	body := []byte(`{"temperature": 23.1, "humidity": 55, "mac_address": "00:AA:BB:CC:DD:EE"}`)
	r.handleMessage(context.Background(), "sysgrow/sysgrow-AABBCCDD", body)

	is.Equal(r.Stats().Unregistered, uint64(1))
	is.Equal(len(deps.processor.ProcessCalls()), 0)

	calls := deps.broadcaster.PushDiscoveryCalls()
	is.Equal(len(calls), 1)
	is.Equal(calls[0].UnitID, int64(0))

	payload := calls[0].Payload
	is.Equal(payload.FriendlyName, "sysgrow-AABBCCDD")
	is.Equal(payload.PublisherID, "sysgrow:sysgrow-AABBCCDD")
	is.True(!payload.Registered)
	is.Equal(payload.DetectedCapabilities, []string{"humidity", "temperature"})

	// no device_type in the body, so the suggestion falls back to the
	// detected capabilities
	is.Equal(payload.SuggestedSensorType, "environmental")
}

func TestDiscoveryUsesAnnouncedDeviceType(t *testing.T) {
	is, r, deps := testRouter(t)

	body := []byte(`{"soil_moisture": 40, "device_type": "soil_probe", "mac_address": "00:AA:BB:CC:DD:EE"}`)
	r.handleMessage(context.Background(), "sysgrow/sysgrow-CCDDEE", body)

	calls := deps.broadcaster.PushDiscoveryCalls()
	is.Equal(len(calls), 1)
	is.Equal(calls[0].Payload.SuggestedSensorType, "soil_probe")
}

func TestPipelineRejectionIsCountedAsProcessingError(t *testing.T) {
	is, r, deps := testRouter(t)

	deps.sensors["greenhouse_temp"] = types.Sensor{
		ID: 1, UnitID: 3, Name: "greenhouse_temp",
		Category: types.CategoryEnvironmental, Protocol: types.ProtocolZigbee,
	}
	deps.processor.ProcessFunc = func(ctx context.Context, s types.Sensor, raw map[string]any) (types.Reading, error) {
		return types.Reading{}, pipeline.ErrDataInvalid
	}

	r.handleMessage(context.Background(), "zigbee2mqtt/greenhouse_temp", []byte(`{"error":"boom"}`))

	is.Equal(r.Stats().ProcessingErrors, uint64(1))
	is.Equal(r.Stats().InvalidPayload, uint64(0))
	is.Equal(len(deps.registry.StoreLastValueCalls()), 0)
	is.Equal(len(deps.broadcaster.PushDeviceCalls()), 0)
}

func TestSysgrowMacFallbackResolution(t *testing.T) {
	is, r, deps := testRouter(t)

	deps.sensors["sysgrow-CCDDEE"] = types.Sensor{
		ID: 7, UnitID: 2, Name: "sysgrow-CCDDEE",
		Category: types.CategoryPlant, Protocol: types.ProtocolWireless,
	}

	body := []byte(`{"soil_moisture": 40, "mac_address": "00:AA:BB:CC:DD:EE"}`)
	r.handleMessage(context.Background(), "sysgrow/some_new_alias", body)

	is.Equal(len(deps.processor.ProcessCalls()), 1)
	is.Equal(deps.processor.ProcessCalls()[0].Sensor.ID, int64(7))
	is.Equal(r.Stats().Unregistered, uint64(0))
}

func TestAvailabilityUpdatesRegistry(t *testing.T) {
	is, r, deps := testRouter(t)

	r.handleMessage(context.Background(), "zigbee2mqtt/greenhouse_temp/availability", []byte("offline"))

	calls := deps.registry.SetOnlineCalls()
	is.Equal(len(calls), 1)
	is.Equal(calls[0].FriendlyName, "greenhouse_temp")
	is.True(!calls[0].Online)
}

func TestJSONAvailabilityBodyIsTreatedAsBridgeHealth(t *testing.T) {
	is, r, deps := testRouter(t)

	r.handleMessage(context.Background(), "zigbee2mqtt/greenhouse_temp/availability", []byte(`{"state":"online"}`))

	is.Equal(len(deps.registry.SetOnlineCalls()), 0)
	is.Equal(r.Stats().BridgeMessages, uint64(1))
}

func TestSysgrowBridgeMessagesBecomeBusEvents(t *testing.T) {
	is, r, deps := testRouter(t)

	seen := []string{}
	err := deps.bus.RegisterTopicMessageHandler("bridge.#", func(ctx context.Context, msg events.IncomingTopicMessage, l *slog.Logger) {
		seen = append(seen, msg.TopicName())
	})
	is.NoErr(err)

	r.handleMessage(context.Background(), "sysgrow/bridge/info", []byte(`{"devices":[{"friendly_name":"a"}]}`))
	r.handleMessage(context.Background(), "sysgrow/bridge/health", []byte(`{"status":"ok","uptime":12}`))
	r.handleMessage(context.Background(), "sysgrow/bridge/response/restart", []byte(`{"status":"ok"}`))

	is.Equal(r.Stats().BridgeMessages, uint64(3))
	is.Equal(seen, []string{"bridge.info", "bridge.health", "bridge.response.restart"})
	is.Equal(len(deps.processor.ProcessCalls()), 0)
}

func TestSensorWithoutUnitContextIsDropped(t *testing.T) {
	is, r, deps := testRouter(t)

	deps.sensors["orphan"] = types.Sensor{
		ID: 9, UnitID: 0, Name: "orphan",
		Category: types.CategoryEnvironmental, Protocol: types.ProtocolZigbee,
	}

	r.handleMessage(context.Background(), "zigbee2mqtt/orphan", []byte(`{"temperature": 20}`))

	is.Equal(r.Stats().DroppedInvalidUnit, uint64(1))
	is.Equal(len(deps.broadcaster.PushDeviceCalls()), 0)
}

func TestIdentityCacheInvalidationOnSensorEvents(t *testing.T) {
	is, r, deps := testRouter(t)

	deps.sensors["greenhouse_temp"] = types.Sensor{
		ID: 1, UnitID: 3, Name: "greenhouse_temp",
		Category: types.CategoryEnvironmental, Protocol: types.ProtocolZigbee,
	}

	r.handleMessage(context.Background(), "zigbee2mqtt/greenhouse_temp", []byte(`{"temperature": 21}`))

	_, cached := r.identities.Get("greenhouse_temp")
	is.True(cached)

	err := deps.bus.PublishOnTopic(context.Background(), &types.SensorDeleted{SensorID: 1, UnitID: 3, Timestamp: time.Now()})
	is.NoErr(err)

	_, cached = r.identities.Get("greenhouse_temp")
	is.True(!cached)
}

func TestPanicInHandlerIsContained(t *testing.T) {
	is, r, deps := testRouter(t)

	deps.sensors["greenhouse_temp"] = types.Sensor{
		ID: 1, UnitID: 3, Name: "greenhouse_temp",
		Category: types.CategoryEnvironmental, Protocol: types.ProtocolZigbee,
	}
	deps.processor.ProcessFunc = func(ctx context.Context, s types.Sensor, raw map[string]any) (types.Reading, error) {
		panic("boom")
	}

	r.handleMessage(context.Background(), "zigbee2mqtt/greenhouse_temp", []byte(`{"temperature": 21}`))

	is.Equal(r.Stats().ProcessingErrors, uint64(1))
}

func TestMacCandidates(t *testing.T) {
	is := is.New(t)

	candidates := macCandidates("00:AA:BB:CC:DD:EE")
	is.Equal(candidates, []string{
		"00:AA:BB:CC:DD:EE",
		"00AABBCCDDEE",
		"sysgrow-00AABBCCDDEE",
		"sysgrow-BBCCDDEE",
		"sysgrow-CCDDEE",
	})

	is.Equal(len(macCandidates("")), 0)
}

type routerDeps struct {
	sensors     map[string]types.Sensor
	registry    *registry.SensorRegistryMock
	processor   *pipeline.ProcessorMock
	broadcaster *pipeline.BroadcasterMock
	bus         events.Bus
}

func testRouter(t *testing.T) (*is.I, *Router, *routerDeps) {
	is := is.New(t)

	deps := &routerDeps{
		sensors: map[string]types.Sensor{},
		bus:     events.NewBus(),
	}

	deps.registry = &registry.SensorRegistryMock{
		GetSensorFunc: func(ctx context.Context, sensorID int64) (types.Sensor, error) {
			for _, s := range deps.sensors {
				if s.ID == sensorID {
					return s, nil
				}
			}
			return types.Sensor{}, registry.ErrSensorNotFound
		},
		GetSensorByFriendlyNameFunc: func(ctx context.Context, name string) (types.Sensor, error) {
			if s, ok := deps.sensors[name]; ok {
				return s, nil
			}
			return types.Sensor{}, registry.ErrSensorNotFound
		},
		SetOnlineFunc: func(ctx context.Context, friendlyName string, online bool) error {
			if _, ok := deps.sensors[friendlyName]; !ok {
				return registry.ErrSensorNotFound
			}
			return nil
		},
		StoreLastValueFunc: func(sensorID int64, reading types.Reading) {},
	}

	deps.processor = &pipeline.ProcessorMock{
		ProcessFunc: func(ctx context.Context, s types.Sensor, raw map[string]any) (types.Reading, error) {
			return types.Reading{SensorID: s.ID, UnitID: s.UnitID, Data: raw, Status: types.StatusSuccess}, nil
		},
		BuildPayloadsFunc: func(ctx context.Context, s types.Sensor, reading types.Reading) *pipeline.Bundle {
			return &pipeline.Bundle{
				UnitID: s.UnitID,
				Device: &types.DevicePayload{SensorID: s.ID, UnitID: s.UnitID},
			}
		},
	}

	deps.broadcaster = &pipeline.BroadcasterMock{
		PushDeviceFunc:    func(ctx context.Context, unitID int64, payload *types.DevicePayload) {},
		PushSnapshotFunc:  func(ctx context.Context, unitID int64, snapshot *types.DashboardSnapshot) {},
		PushDiscoveryFunc: func(ctx context.Context, unitID int64, payload *types.UnregisteredDevicePayload) {},
	}

	r := New(Config{}, deps.registry, deps.processor, deps.broadcaster, deps.bus)

	return is, r, deps
}
