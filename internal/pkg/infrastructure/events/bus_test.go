package events

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

func TestPublishReachesExactMatchSubscriber(t *testing.T) {
	is := is.New(t)
	b := NewBus()

	received := 0
	b.RegisterTopicMessageHandler("sensor.temperature_update", func(ctx context.Context, msg IncomingTopicMessage, l *slog.Logger) {
		received++
	})

	err := b.PublishOnTopic(context.Background(), &types.TemperatureUpdated{UnitID: 1, SensorID: 2, Temperature: 21.5, Timestamp: time.Now()})
	is.NoErr(err)
	is.Equal(received, 1)
}

func TestWildcardSubscriptions(t *testing.T) {
	is := is.New(t)
	b := NewBus()

	var topics []string
	b.RegisterTopicMessageHandler("sensor.#", func(ctx context.Context, msg IncomingTopicMessage, l *slog.Logger) {
		topics = append(topics, msg.TopicName())
	})
	b.RegisterTopicMessageHandler("device.*", func(ctx context.Context, msg IncomingTopicMessage, l *slog.Logger) {
		topics = append(topics, msg.TopicName())
	})

	b.PublishOnTopic(context.Background(), &types.MetricUpdated{Metric: types.MetricCO2, Value: 600})
	b.PublishOnTopic(context.Background(), &types.SensorCreated{SensorID: 1})
	b.PublishOnTopic(context.Background(), &types.BridgeMessage{Kind: "health"})

	is.Equal(topics, []string{"sensor.co2_update", "device.sensor_created"})
}

func TestSubscriberPanicDoesNotStopOthers(t *testing.T) {
	is := is.New(t)
	b := NewBus()

	b.RegisterTopicMessageHandler("device.sensor_deleted", func(ctx context.Context, msg IncomingTopicMessage, l *slog.Logger) {
		panic("boom")
	})

	survived := false
	b.RegisterTopicMessageHandler("device.sensor_deleted", func(ctx context.Context, msg IncomingTopicMessage, l *slog.Logger) {
		survived = true
	})

	err := b.PublishOnTopic(context.Background(), &types.SensorDeleted{SensorID: 9})
	is.NoErr(err)
	is.True(survived)
}

func TestMatchTopic(t *testing.T) {
	is := is.New(t)

	is.True(matchTopic("#", "anything.at.all"))
	is.True(matchTopic("sensor.#", "sensor.ph_update"))
	is.True(matchTopic("bridge.*", "bridge.info"))
	is.True(!matchTopic("bridge.*", "bridge.response.restart"))
	is.True(matchTopic("bridge.response.#", "bridge.response.restart"))
	is.True(!matchTopic("sensor.temperature_update", "sensor.humidity_update"))
}
