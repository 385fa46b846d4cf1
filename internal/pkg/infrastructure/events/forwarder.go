package events

import (
	"context"
	"log/slog"

	"github.com/diwise/messaging-golang/pkg/messaging"
)

type forwarded struct {
	topic       string
	contentType string
	body        []byte
}

func (f *forwarded) TopicName() string    { return f.topic }
func (f *forwarded) ContentType() string  { return f.contentType }
func (f *forwarded) Body() []byte         { return f.body }

// RegisterAMQPForwarder bridges bus events to the external message broker so
// that out-of-process consumers (persistence, control loops, alerting) see
// the same stream. Forwarding is best effort; a broker failure is logged and
// never propagated to the publisher.
func RegisterAMQPForwarder(bus Bus, messenger messaging.MsgContext, routingKeys ...string) error {
	handler := func(ctx context.Context, msg IncomingTopicMessage, log *slog.Logger) {
		err := messenger.PublishOnTopic(ctx, &forwarded{
			topic:       msg.TopicName(),
			contentType: msg.ContentType(),
			body:        msg.Body(),
		})
		if err != nil {
			log.Error("failed to forward event to broker", "topic", msg.TopicName(), "kind", "emit_errors", "err", err.Error())
		}
	}

	for _, key := range routingKeys {
		if err := bus.RegisterTopicMessageHandler(key, handler); err != nil {
			return err
		}
	}

	return nil
}
