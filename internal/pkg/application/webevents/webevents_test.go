package webevents

import (
	"context"
	"testing"

	"github.com/matryer/is"

	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

func TestRoomChannel(t *testing.T) {
	is := is.New(t)
	is.Equal(RoomChannel(DevicesChannel, 3), "/api/v0/events/devices/unit_3")
	is.Equal(RoomChannel(DashboardChannel, 12), "/api/v0/events/dashboard/unit_12")
}

func TestPushWithoutSubscribersDoesNotPanic(t *testing.T) {
	we := New()
	defer we.Shutdown()

	ctx := context.Background()

	we.PushDevice(ctx, 1, &types.DevicePayload{SensorID: 1, UnitID: 1})
	we.PushSnapshot(ctx, 1, &types.DashboardSnapshot{UnitID: 1})
	we.PushDiscovery(ctx, 0, &types.UnregisteredDevicePayload{FriendlyName: "new_device"})
}
