package pipeline

import (
	"context"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"

	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/infrastructure/events"
	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

//go:generate moq -rm -out broadcaster_mock.go . Broadcaster

// Broadcaster pushes payloads to room addressed subscribers. Delivery is
// best effort; a slow subscriber must never block the caller.
type Broadcaster interface {
	PushDevice(ctx context.Context, unitID int64, payload *types.DevicePayload)
	PushSnapshot(ctx context.Context, unitID int64, snapshot *types.DashboardSnapshot)
	PushDiscovery(ctx context.Context, unitID int64, payload *types.UnregisteredDevicePayload)
}

// Dispatch fans a bundle out to the broadcast surface and the event bus.
// Broadcast pushes are fire and forget; bus publishes are synchronous and
// publish failures are logged, never propagated. The number of failed
// publishes is returned so callers can keep error counters.
func Dispatch(ctx context.Context, bundle *Bundle, broadcaster Broadcaster, bus events.Bus) (emitErrors int) {
	if bundle == nil {
		return 0
	}

	log := logging.GetFromContext(ctx)

	if broadcaster != nil {
		if bundle.Device != nil {
			broadcaster.PushDevice(ctx, bundle.UnitID, bundle.Device)
		}
		if bundle.Snapshot != nil {
			broadcaster.PushSnapshot(ctx, bundle.UnitID, bundle.Snapshot)
		}
	}

	if bus == nil {
		return 0
	}

	for _, ev := range bundle.Events {
		err := bus.PublishOnTopic(ctx, ev)
		if err != nil {
			log.Error("failed to publish controller event", "topic", ev.TopicName(), "err", err.Error())
			emitErrors++
		}
	}

	return emitErrors
}
