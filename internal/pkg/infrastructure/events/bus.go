package events

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

// TopicMessage is what publishers hand to the bus. The shape matches
// messaging-golang's topic messages so event bodies can be forwarded to an
// AMQP broker without adaptation.
type TopicMessage interface {
	TopicName() string
	ContentType() string
	Body() []byte
}

type IncomingTopicMessage interface {
	TopicName() string
	ContentType() string
	Body() []byte
}

type TopicMessageHandler func(ctx context.Context, msg IncomingTopicMessage, l *slog.Logger)

//go:generate moq -rm -out bus_mock.go . Bus

// Bus is a synchronous in-process publish/subscribe fabric. Subscribers run
// inline on the publisher's goroutine and must not assume a thread identity.
// A subscriber panic is recovered and logged; remaining subscribers still run.
type Bus interface {
	RegisterTopicMessageHandler(routingKey string, handler TopicMessageHandler) error
	PublishOnTopic(ctx context.Context, msg TopicMessage) error
}

type subscription struct {
	routingKey string
	handler    TopicMessageHandler
}

type bus struct {
	mu   sync.RWMutex
	subs []subscription
}

func NewBus() Bus {
	return &bus{}
}

func (b *bus) RegisterTopicMessageHandler(routingKey string, handler TopicMessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = append(b.subs, subscription{routingKey: routingKey, handler: handler})
	return nil
}

func (b *bus) PublishOnTopic(ctx context.Context, msg TopicMessage) error {
	topic := msg.TopicName()
	if topic == "" {
		return nil
	}

	b.mu.RLock()
	matched := make([]TopicMessageHandler, 0, len(b.subs))
	for _, s := range b.subs {
		if matchTopic(s.routingKey, topic) {
			matched = append(matched, s.handler)
		}
	}
	b.mu.RUnlock()

	log := logging.GetFromContext(ctx)

	// handlers are invoked outside the lock so that a subscriber may
	// register or publish without deadlocking
	for _, h := range matched {
		invoke(ctx, h, msg, log)
	}

	return nil
}

func invoke(ctx context.Context, h TopicMessageHandler, msg IncomingTopicMessage, log *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("subscriber panicked", "topic", msg.TopicName(), "kind", "subscriber_panic", "err", panicString(r))
		}
	}()
	h(ctx, msg, log)
}

func panicString(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	if s, ok := r.(string); ok {
		return s
	}
	return "unknown panic"
}

// matchTopic implements AMQP topic exchange semantics: "*" matches exactly
// one dot separated segment, "#" matches zero or more trailing segments.
func matchTopic(pattern, topic string) bool {
	if pattern == topic || pattern == "#" {
		return true
	}

	pp := strings.Split(pattern, ".")
	tp := strings.Split(topic, ".")

	for i, p := range pp {
		if p == "#" {
			return true
		}
		if i >= len(tp) {
			return false
		}
		if p != "*" && p != tp[i] {
			return false
		}
	}

	return len(pp) == len(tp)
}
