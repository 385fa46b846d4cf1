package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"

	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/arbitrator"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/pipeline"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/registry"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/webevents"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/infrastructure/events"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/infrastructure/mqtt"
	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

var tracer = otel.Tracer("iot-sensor-ingest/api")

// SnapshotProvider is the arbitrator surface the API consumes.
type SnapshotProvider interface {
	Snapshot(unitID int64) (*types.DashboardSnapshot, bool)
	Stats() arbitrator.Stats
}

// HealthProvider exposes the polling worker's per sensor health state.
type HealthProvider interface {
	Health(sensorID int64) (types.HealthState, bool)
}

// RouterStats exposes the MQTT router's error counters.
type RouterStats interface {
	Stats() mqtt.Stats
}

type API struct {
	registry    registry.SensorRegistry
	snapshots   SnapshotProvider
	health      HealthProvider
	router      RouterStats
	processor   pipeline.Processor
	broadcaster pipeline.Broadcaster
	bus         events.Bus
	webevents   webevents.WebEvents
}

func New(r registry.SensorRegistry, snapshots SnapshotProvider, health HealthProvider, router RouterStats, processor pipeline.Processor, we webevents.WebEvents, bus events.Bus) *API {
	return &API{
		registry:    r,
		snapshots:   snapshots,
		health:      health,
		router:      router,
		processor:   processor,
		broadcaster: we,
		bus:         bus,
		webevents:   we,
	}
}

func (a *API) RegisterHandlers(ctx context.Context, router *chi.Mux) (*chi.Mux, error) {
	log := logging.GetFromContext(ctx)

	router.Use(cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
	}).Handler)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/api/v0", func(r chi.Router) {
		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", a.querySensorsHandler(log))
			r.Post("/", a.createSensorHandler(log))
			r.Get("/{sensorID}", a.getSensorHandler(log))
			r.Patch("/{sensorID}", a.patchSensorHandler(log))
			r.Delete("/{sensorID}", a.deleteSensorHandler(log))
			r.Get("/{sensorID}/health", a.sensorHealthHandler(log))
			r.Post("/{sensorID}/read", a.readSensorHandler(log))
		})

		r.Get("/units/{unitID}/snapshot", a.unitSnapshotHandler(log))
		r.Get("/stats", a.statsHandler(log))

		if a.webevents != nil {
			r.Mount("/events", a.webevents.Server())
		}
	})

	return router, nil
}

func (a *API) createSensorHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "create-sensor")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			requestLogger.Error("unable to read body", "err", err.Error())
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var sensor types.Sensor
		err = json.Unmarshal(body, &sensor)
		if err != nil {
			requestLogger.Error("unable to unmarshal body", "err", err.Error())
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		created, err := a.registry.Register(ctx, sensor)
		if err != nil {
			if errors.Is(err, registry.ErrInvalidSensor) {
				requestLogger.Debug("invalid sensor rejected", "err", err.Error())
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			requestLogger.Error("unable to register sensor", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Add("Content-Type", "application/json")
		if created {
			w.WriteHeader(http.StatusCreated)
		} else {
			w.WriteHeader(http.StatusOK)
		}
	}
}

func (a *API) querySensorsHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "query-sensors")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		result, err := a.registry.Query(ctx, r.URL.Query())
		if err != nil {
			requestLogger.Error("unable to query sensors", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, result.Data)
	}
}

func (a *API) getSensorHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "get-sensor")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		sensorID, ok := sensorIDFromRequest(r)
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		sensor, err := a.registry.GetSensor(ctx, sensorID)
		if err != nil {
			if registry.IsNotFound(err) {
				requestLogger.Debug("sensor not found", "sensor_id", sensorID)
				w.WriteHeader(http.StatusNotFound)
				err = nil
				return
			}
			requestLogger.Error("could not fetch sensor", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, sensor)
	}
}

func (a *API) patchSensorHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "patch-sensor")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		sensorID, ok := sensorIDFromRequest(r)
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		sensor, err := a.registry.GetSensor(ctx, sensorID)
		if err != nil {
			if registry.IsNotFound(err) {
				w.WriteHeader(http.StatusNotFound)
				err = nil
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// patch by overlaying the incoming fields on the stored sensor
		err = json.Unmarshal(body, &sensor)
		if err != nil || sensor.ID != sensorID {
			requestLogger.Debug("invalid patch body", "sensor_id", sensorID)
			w.WriteHeader(http.StatusBadRequest)
			err = nil
			return
		}

		_, err = a.registry.Register(ctx, sensor)
		if err != nil {
			if errors.Is(err, registry.ErrInvalidSensor) {
				w.WriteHeader(http.StatusBadRequest)
				err = nil
				return
			}
			requestLogger.Error("unable to update sensor", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, sensor)
	}
}

func (a *API) deleteSensorHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "delete-sensor")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		sensorID, ok := sensorIDFromRequest(r)
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		err = a.registry.Delete(ctx, sensorID)
		if err != nil {
			if registry.IsNotFound(err) {
				w.WriteHeader(http.StatusNotFound)
				err = nil
				return
			}
			requestLogger.Error("unable to delete sensor", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *API) sensorHealthHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		sensorID, ok := sensorIDFromRequest(r)
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if a.health == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		state, ok := a.health.Health(sensorID)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, state)
	}
}

// readSensorHandler triggers an immediate hardware read and runs the result
// through the full pipeline, so an on demand read behaves exactly like a
// scheduled one.
func (a *API) readSensorHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "read-sensor")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		sensorID, ok := sensorIDFromRequest(r)
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		sensor, err := a.registry.GetSensor(ctx, sensorID)
		if err != nil {
			if registry.IsNotFound(err) {
				w.WriteHeader(http.StatusNotFound)
				err = nil
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		raw, err := a.registry.Read(ctx, sensorID)
		if err != nil {
			if errors.Is(err, registry.ErrNotWired) {
				requestLogger.Debug("on demand read rejected", "sensor_id", sensorID, "err", err.Error())
				w.WriteHeader(http.StatusConflict)
				err = nil
				return
			}
			requestLogger.Error("hardware read failed", "sensor_id", sensorID, "err", err.Error())
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		reading, err := a.processor.Process(ctx, sensor, raw)
		if err != nil {
			requestLogger.Error("could not process reading", "sensor_id", sensorID, "err", err.Error())
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}

		a.registry.StoreLastValue(sensorID, reading)

		bundle := a.processor.BuildPayloads(ctx, sensor, reading)
		pipeline.Dispatch(ctx, bundle, a.broadcaster, a.bus)

		writeJSON(w, http.StatusOK, reading)
	}
}

func (a *API) unitSnapshotHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		unitID, err := strconv.ParseInt(chi.URLParam(r, "unitID"), 10, 64)
		if err != nil || unitID <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		snapshot, ok := a.snapshots.Snapshot(unitID)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, snapshot)
	}
}

func (a *API) statsHandler(log *slog.Logger) http.HandlerFunc {
	type stats struct {
		Router  any `json:"router,omitempty"`
		Arbiter any `json:"arbitrator,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		s := stats{}
		if a.router != nil {
			s.Router = a.router.Stats()
		}
		if a.snapshots != nil {
			s.Arbiter = a.snapshots.Stats()
		}

		writeJSON(w, http.StatusOK, s)
	}
}

func sensorIDFromRequest(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "sensorID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}
