package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/pipeline"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/registry"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/infrastructure/events"
	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

const (
	DialectZigbee2MQTT = "zigbee2mqtt"
	DialectSysgrow     = "sysgrow"
)

var subscriptions = []string{
	"zigbee2mqtt/+",
	"zigbee2mqtt/+/availability",
	"zigbee2mqtt/bridge/#",
	"sysgrow/+",
	"sysgrow/+/availability",
	"sysgrow/bridge/#",
}

type Config struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
}

func LoadConfiguration(ctx context.Context) Config {
	return Config{
		BrokerURL: env.GetVariableOrDefault(ctx, "MQTT_BROKER", "tcp://localhost:1883"),
		ClientID:  env.GetVariableOrDefault(ctx, "MQTT_CLIENT_ID", "iot-sensor-ingest"),
		Username:  env.GetVariableOrDefault(ctx, "MQTT_USERNAME", ""),
		Password:  env.GetVariableOrDefault(ctx, "MQTT_PASSWORD", ""),
	}
}

// Stats is a point in time copy of the router's error counters.
type Stats struct {
	BridgeMessages     uint64 `json:"bridge_messages"`
	InvalidPayload     uint64 `json:"invalid_payload"`
	Unregistered       uint64 `json:"unregistered"`
	DroppedInvalidUnit uint64 `json:"dropped_invalid_unit"`
	ProcessingErrors   uint64 `json:"processing_errors"`
	EmitErrors         uint64 `json:"emit_errors"`
}

// Router subscribes to both MQTT dialects and feeds resolved readings into
// the processing pipeline. Every message follows a single execution path
// that never lets a panic or error escape the callback.
type Router struct {
	cfg Config

	registry    registry.SensorRegistry
	processor   pipeline.Processor
	broadcaster pipeline.Broadcaster
	bus         events.Bus

	identities *identityCache
	cooldown   *cooldownLog

	client paho.Client

	bridgeMessages     atomic.Uint64
	invalidPayload     atomic.Uint64
	unregistered       atomic.Uint64
	droppedInvalidUnit atomic.Uint64
	processingErrors   atomic.Uint64
	emitErrors         atomic.Uint64
}

func New(cfg Config, r registry.SensorRegistry, p pipeline.Processor, b pipeline.Broadcaster, bus events.Bus) *Router {
	router := &Router{
		cfg:         cfg,
		registry:    r,
		processor:   p,
		broadcaster: b,
		bus:         bus,
		identities:  newIdentityCache(),
		cooldown:    newCooldownLog(),
	}

	invalidate := func(ctx context.Context, msg events.IncomingTopicMessage, l *slog.Logger) {
		router.identities.Purge()
		router.cooldown.Purge()
		l.Debug("identity caches invalidated", "trigger", msg.TopicName())
	}

	if bus != nil {
		bus.RegisterTopicMessageHandler("device.sensor_created", invalidate)
		bus.RegisterTopicMessageHandler("device.sensor_deleted", invalidate)
	}

	return router
}

// Connect dials the broker and subscribes. Reconnects and resubscription
// are handled by the client's OnConnect hook.
func (r *Router) Connect(ctx context.Context) error {
	log := logging.GetFromContext(ctx)

	opts := paho.NewClientOptions().
		AddBroker(r.cfg.BrokerURL).
		SetClientID(r.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(true)

	if r.cfg.Username != "" {
		opts.SetUsername(r.cfg.Username)
		opts.SetPassword(r.cfg.Password)
	}

	opts.SetOnConnectHandler(func(client paho.Client) {
		log.Info("connected to mqtt broker", "broker", r.cfg.BrokerURL)
		r.subscribe(ctx, client)
	})

	opts.SetConnectionLostHandler(func(client paho.Client, err error) {
		log.Warn("mqtt connection lost", "err", err.Error())
	})

	r.client = paho.NewClient(opts)

	token := r.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("could not connect to %s: %w", r.cfg.BrokerURL, token.Error())
	}

	return nil
}

func (r *Router) Connected() bool {
	return r.client != nil && r.client.IsConnectionOpen()
}

func (r *Router) Disconnect() {
	if r.client != nil {
		r.client.Disconnect(250)
	}
}

func (r *Router) Stats() Stats {
	return Stats{
		BridgeMessages:     r.bridgeMessages.Load(),
		InvalidPayload:     r.invalidPayload.Load(),
		Unregistered:       r.unregistered.Load(),
		DroppedInvalidUnit: r.droppedInvalidUnit.Load(),
		ProcessingErrors:   r.processingErrors.Load(),
		EmitErrors:         r.emitErrors.Load(),
	}
}

func (r *Router) subscribe(ctx context.Context, client paho.Client) {
	log := logging.GetFromContext(ctx)

	handler := func(client paho.Client, msg paho.Message) {
		r.handleMessage(ctx, msg.Topic(), msg.Payload())
	}

	for _, filter := range subscriptions {
		token := client.Subscribe(filter, 0, handler)
		if token.Wait() && token.Error() != nil {
			log.Error("could not subscribe", "filter", filter, "err", token.Error().Error())
		}
	}
}

// handleMessage is the single entry point for all inbound traffic. It is
// also called directly by tests, bypassing the network client.
func (r *Router) handleMessage(ctx context.Context, topic string, payload []byte) {
	log := logging.GetFromContext(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			r.processingErrors.Add(1)
			log.Error("panic in mqtt handler", "topic", topic, "recovered", fmt.Sprintf("%v", rec))
		}
	}()

	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		r.invalidPayload.Add(1)
		return
	}

	dialect := parts[0]

	if parts[1] == "bridge" {
		r.handleBridge(ctx, dialect, parts[2:], payload)
		return
	}

	if len(parts) == 3 && parts[2] == "availability" {
		r.handleAvailability(ctx, parts[1], payload)
		return
	}

	if len(parts) == 2 {
		r.handleState(ctx, dialect, topic, parts[1], payload)
		return
	}

	log.Debug("unhandled topic", "topic", topic)
}

func (r *Router) handleBridge(ctx context.Context, dialect string, sub []string, payload []byte) {
	r.bridgeMessages.Add(1)

	if dialect != DialectSysgrow || len(sub) == 0 {
		return
	}

	body := map[string]any{}
	if err := json.Unmarshal(payload, &body); err != nil {
		r.invalidPayload.Add(1)
		logging.GetFromContext(ctx).Error("bridge payload could not be decoded", "kind", sub[0], "err", err.Error())
		return
	}

	ev := &types.BridgeMessage{
		Data:      body,
		Timestamp: time.Now().UTC(),
	}

	switch sub[0] {
	case "info", "health":
		ev.Kind = sub[0]
	case "response":
		if len(sub) < 2 {
			return
		}
		ev.Kind = "response"
		ev.Command = sub[1]
	default:
		return
	}

	if err := r.bus.PublishOnTopic(ctx, ev); err != nil {
		r.emitErrors.Add(1)
	}
}

// handleAvailability parses the textual online/offline payload. JSON bodies
// on availability topics are bridge health chatter and are dropped.
func (r *Router) handleAvailability(ctx context.Context, friendlyName string, payload []byte) {
	log := logging.GetFromContext(ctx)

	text := strings.TrimSpace(string(payload))
	if strings.HasPrefix(text, "{") {
		r.bridgeMessages.Add(1)
		return
	}

	var online bool
	switch strings.ToLower(text) {
	case "online":
		online = true
	case "offline":
		online = false
	default:
		r.invalidPayload.Add(1)
		return
	}

	err := r.registry.SetOnline(ctx, friendlyName, online)
	if err != nil {
		if registry.IsNotFound(err) {
			log.Debug("availability for unknown device", "friendly_name", friendlyName)
			return
		}
		r.processingErrors.Add(1)
		log.Error("could not update availability", "friendly_name", friendlyName, "err", err.Error())
	}
}

func (r *Router) handleState(ctx context.Context, dialect, topic, friendlyName string, payload []byte) {
	log := logging.GetFromContext(ctx)

	raw := map[string]any{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		r.invalidPayload.Add(1)
		log.Error("non object state payload dropped", "topic", topic, "err", err.Error())
		return
	}

	sensor, resolved := r.resolve(ctx, dialect, friendlyName, raw)
	if !resolved {
		r.handleUnresolved(ctx, dialect, topic, friendlyName, raw)
		return
	}

	if sensor.UnitID <= 0 {
		r.droppedInvalidUnit.Add(1)
		if r.cooldown.ShouldLog(friendlyName) {
			log.Warn("sensor has no unit context, reading dropped", "friendly_name", friendlyName, "sensor_id", sensor.ID)
		}
		return
	}

	reading, err := r.processor.Process(ctx, sensor, raw)
	if err != nil {
		r.processingErrors.Add(1)
		log.Error("reading rejected", "kind", "processor_error", "friendly_name", friendlyName, "err", err.Error())
		return
	}

	r.registry.StoreLastValue(sensor.ID, reading)

	bundle := r.processor.BuildPayloads(ctx, sensor, reading)
	r.emitErrors.Add(uint64(pipeline.Dispatch(ctx, bundle, r.broadcaster, r.bus)))
}

// resolve maps a friendly name to a sensor via the TTL cache, a registry
// scan and, for the sysgrow dialect, mac address derived fallback names.
func (r *Router) resolve(ctx context.Context, dialect, friendlyName string, raw map[string]any) (types.Sensor, bool) {
	if id, ok := r.identities.Get(friendlyName); ok {
		if sensor, err := r.registry.GetSensor(ctx, id); err == nil {
			return sensor, true
		}
		// cache pointed at a deleted sensor
	}

	if sensor, err := r.registry.GetSensorByFriendlyName(ctx, friendlyName); err == nil {
		r.identities.Put(friendlyName, sensor.ID)
		return sensor, true
	}

	if dialect != DialectSysgrow {
		return types.Sensor{}, false
	}

	mac, _ := raw["mac_address"].(string)
	for _, candidate := range macCandidates(mac) {
		if sensor, err := r.registry.GetSensorByFriendlyName(ctx, candidate); err == nil {
			r.identities.Put(friendlyName, sensor.ID)
			return sensor, true
		}
	}

	return types.Sensor{}, false
}

// macCandidates derives the name formats sysgrow firmware has been seen
// announcing itself under.
func macCandidates(mac string) []string {
	if mac == "" {
		return nil
	}

	plain := strings.ToUpper(strings.ReplaceAll(mac, ":", ""))

	candidates := []string{
		mac,
		plain,
		"sysgrow-" + plain,
	}

	if len(plain) >= 8 {
		candidates = append(candidates, "sysgrow-"+plain[len(plain)-8:])
	}
	if len(plain) >= 6 {
		candidates = append(candidates, "sysgrow-"+plain[len(plain)-6:])
	}

	return candidates
}

// handleUnresolved drops zigbee readings from unknown devices but lets
// sysgrow devices self announce with a discovery payload, since their
// onboarding flow starts from the device side.
func (r *Router) handleUnresolved(ctx context.Context, dialect, topic, friendlyName string, raw map[string]any) {
	log := logging.GetFromContext(ctx)

	r.unregistered.Add(1)

	shouldLog := r.cooldown.ShouldLog(friendlyName)

	if dialect != DialectSysgrow {
		if shouldLog {
			log.Warn("reading from unregistered device dropped", "dialect", dialect, "friendly_name", friendlyName)
		}
		return
	}

	if shouldLog {
		log.Info("unregistered sysgrow device announced itself", "friendly_name", friendlyName)
	}

	capabilities := detectCapabilities(raw)

	// devices that announce a device_type know best what they are; fall
	// back to inferring a category from the detected capabilities
	suggested, _ := raw["device_type"].(string)
	if suggested == "" {
		suggested = suggestCategory(capabilities)
	}

	payload := &types.UnregisteredDevicePayload{
		SchemaVersion:        types.SchemaVersion,
		UnitID:               0,
		PublisherID:          DialectSysgrow + ":" + friendlyName,
		Topic:                topic,
		FriendlyName:         friendlyName,
		Registered:           false,
		Timestamp:            types.FormatTimestamp(time.Now().UTC()),
		RawData:              raw,
		SuggestedSensorType:  suggested,
		DetectedCapabilities: capabilities,
	}

	if r.broadcaster != nil {
		r.broadcaster.PushDiscovery(ctx, 0, payload)
	}
}

func detectCapabilities(raw map[string]any) []string {
	capabilities := []string{}
	for key := range pipeline.Canonicalize(raw) {
		if types.IsCanonicalMetric(key) {
			capabilities = append(capabilities, key)
		}
	}
	sort.Strings(capabilities)
	return capabilities
}

func suggestCategory(capabilities []string) string {
	for _, c := range capabilities {
		switch c {
		case types.MetricSoilMoisture, types.MetricPH, types.MetricEC:
			return string(types.CategoryPlant)
		}
	}
	if len(capabilities) == 0 {
		return ""
	}
	return string(types.CategoryEnvironmental)
}
