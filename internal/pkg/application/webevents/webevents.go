package webevents

import (
	"context"
	"encoding/json"
	"fmt"

	gosse "github.com/alexandrevicenzi/go-sse"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/google/uuid"

	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

const (
	DevicesChannel   = "/api/v0/events/devices"
	DashboardChannel = "/api/v0/events/dashboard"
)

const (
	EventDeviceReading     = "device_reading"
	EventDashboardSnapshot = "dashboard_snapshot"
	EventDeviceDiscovered  = "device_discovered"
)

// WebEvents is the room addressed broadcast surface. Per sensor readings go
// out on the devices channel, per unit snapshots on the dashboard channel.
// Subscribers pick a room by appending /unit_<id> to the channel path.
// Delivery is best effort; a saturated subscriber drops messages rather
// than blocking ingestion.
type WebEvents interface {
	PushDevice(ctx context.Context, unitID int64, payload *types.DevicePayload)
	PushSnapshot(ctx context.Context, unitID int64, snapshot *types.DashboardSnapshot)
	PushDiscovery(ctx context.Context, unitID int64, payload *types.UnregisteredDevicePayload)

	Server() *gosse.Server
	Shutdown()
}

type webEvents struct {
	s *gosse.Server
}

func New() WebEvents {
	return &webEvents{
		s: gosse.NewServer(&gosse.Options{}),
	}
}

func (we *webEvents) Server() *gosse.Server {
	return we.s
}

func (we *webEvents) Shutdown() {
	we.s.Shutdown()
}

func (we *webEvents) PushDevice(ctx context.Context, unitID int64, payload *types.DevicePayload) {
	we.publish(ctx, DevicesChannel, unitID, EventDeviceReading, payload)
}

func (we *webEvents) PushSnapshot(ctx context.Context, unitID int64, snapshot *types.DashboardSnapshot) {
	we.publish(ctx, DashboardChannel, unitID, EventDashboardSnapshot, snapshot)
}

// PushDiscovery publishes unknown device payloads. Payloads without a known
// unit go to the bare channel only, never to a per unit room.
func (we *webEvents) PushDiscovery(ctx context.Context, unitID int64, payload *types.UnregisteredDevicePayload) {
	we.publish(ctx, DevicesChannel, unitID, EventDeviceDiscovered, payload)
}

func (we *webEvents) publish(ctx context.Context, channel string, unitID int64, event string, data any) {
	b, err := json.Marshal(data)
	if err != nil {
		logging.GetFromContext(ctx).Error("could not marshal web event", "event", event, "err", err.Error())
		return
	}

	message := gosse.NewMessage(uuid.NewString(), string(b), event)

	we.s.SendMessage(channel, message)

	if unitID > 0 {
		we.s.SendMessage(RoomChannel(channel, unitID), message)
	}
}

// RoomChannel returns the channel path for a unit room under a base
// channel.
func RoomChannel(channel string, unitID int64) string {
	return fmt.Sprintf("%s/unit_%d", channel, unitID)
}
