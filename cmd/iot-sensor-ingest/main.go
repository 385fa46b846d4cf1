package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/diwise/messaging-golang/pkg/messaging"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	k8shandlers "github.com/diwise/service-chassis/pkg/infrastructure/net/http/handlers"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/servicerunner"
	"github.com/go-chi/chi/v5"

	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/arbitrator"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/pipeline"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/polling"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/registry"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/application/webevents"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/infrastructure/events"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/infrastructure/mqtt"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/infrastructure/storage"
	"github.com/sysgrow/iot-sensor-ingest/internal/pkg/presentation/api"
)

const serviceName string = "iot-sensor-ingest"

type flagType int
type flagMap map[flagType]string

const (
	listenAddress flagType = iota
	servicePort
	controlPort
	enableTracing

	sensorsFile

	dbHost
	dbUser
	dbPassword
	dbPort
	dbName
	dbSSLMode

	pollInterval
	staleSeconds
	maxTrackedSensors

	devmode
)

type appConfig struct {
}

var (
	webserver  = servicerunner.WithHTTPServeMux[appConfig]
	listen     = servicerunner.WithListenAddr[appConfig]
	port       = servicerunner.WithPort[appConfig]
	pprof      = servicerunner.WithPPROF[appConfig]
	liveness   = servicerunner.WithK8SLivenessProbe[appConfig]
	readiness  = servicerunner.WithK8SReadinessProbes[appConfig]
	tracing    = servicerunner.WithTracing[appConfig]
	muxinit    = servicerunner.OnMuxInit[appConfig]
	oninit     = servicerunner.OnInit[appConfig]
	onstarting = servicerunner.OnStarting[appConfig]
	onshutdown = servicerunner.OnShutdown[appConfig]
)

func defaultFlags() flagMap {
	return flagMap{
		listenAddress: "0.0.0.0",
		servicePort:   "8080",
		controlPort:   "8000",
		enableTracing: "true",

		sensorsFile: "/opt/sysgrow/config/sensors.yaml",

		dbHost:     "",
		dbUser:     "",
		dbPassword: "",
		dbPort:     "5432",
		dbName:     "sysgrow",
		dbSSLMode:  "disable",

		pollInterval:      "10",
		staleSeconds:      "180",
		maxTrackedSensors: "500",

		devmode: "false",
	}
}

func main() {
	ctx, flags := parseExternalConfig(context.Background(), defaultFlags())

	serviceVersion := buildinfo.SourceVersion()
	ctx, logger, cleanup := o11y.Init(ctx, serviceName, serviceVersion, "json")
	defer cleanup()

	runner, err := initialize(ctx, flags)
	exitIf(err, logger, "failed to initialize service runner")

	err = runner.Run(ctx)
	exitIf(err, logger, "failed to start service runner")
}

func initialize(ctx context.Context, flags flagMap) (servicerunner.Runner[appConfig], error) {
	log := logging.GetFromContext(ctx)

	bus := events.NewBus()

	var store *storage.Storage
	var sensorStorage registry.SensorStorage

	if flags[devmode] != "true" {
		s, err := storage.New(ctx, storage.NewConfig(
			flags[dbHost], flags[dbUser], flags[dbPassword],
			flags[dbPort], flags[dbName], flags[dbSSLMode],
		))
		exitIf(err, log, "could not create or connect to database")
		store = s
		sensorStorage = s
	}

	messenger, err := messaging.Initialize(ctx, messaging.LoadConfiguration(ctx, serviceName, log))
	exitIf(err, log, "failed to init messenger")

	err = events.RegisterAMQPForwarder(bus, messenger,
		"sensor.#", "device.#", "bridge.#",
	)
	exitIf(err, log, "failed to register broker forwarder")

	reg := registry.New(sensorStorage, bus)

	arb := arbitrator.New(arbitratorConfig(flags), reg, bus)

	processor := pipeline.New(arb)
	we := webevents.New()

	router := mqtt.New(mqtt.LoadConfiguration(ctx), reg, processor, we, bus)

	interval := time.Duration(atoi(flags[pollInterval], 10)) * time.Second
	poller := polling.New(reg, processor, we, bus, interval)

	probes := map[string]k8shandlers.ServiceProber{
		"rabbitmq": func(context.Context) (string, error) { return "ok", nil },
		"timescale": func(ctx context.Context) (string, error) {
			if store == nil {
				return "disabled", nil
			}
			if err := store.Ping(ctx); err != nil {
				return "", err
			}
			return "ok", nil
		},
		"mqtt": func(context.Context) (string, error) {
			if !router.Connected() {
				return "", errors.New("not connected to broker")
			}
			return "ok", nil
		},
	}

	_, runner := servicerunner.New(ctx, appConfig{},
		webserver("control", listen(flags[listenAddress]), port(flags[controlPort]),
			pprof(), liveness(func() error { return nil }), readiness(probes),
		),
		webserver("public", listen(flags[listenAddress]), port(flags[servicePort]), tracing(flags[enableTracing] == "true"),
			muxinit(func(ctx context.Context, identifier string, port string, appCfg *appConfig, handler *http.ServeMux) error {
				impl := api.New(reg, arb, poller, router, processor, we, bus)

				mux, err := impl.RegisterHandlers(ctx, chi.NewRouter())
				if err != nil {
					return err
				}

				handler.Handle("/", mux)
				return nil
			}),
		),
		oninit(func(ctx context.Context, ac *appConfig) error {
			log.Debug("initializing servicerunner")
			return nil
		}),
		onstarting(func(ctx context.Context, appCfg *appConfig) (err error) {
			log.Debug("starting servicerunner")

			if store != nil {
				err = store.Initialize(ctx)
				if err != nil {
					return
				}
			}

			if h, ok := reg.(registry.Hydrator); ok {
				err = h.Hydrate(ctx)
				if err != nil {
					return
				}
			}

			if seed, err := os.Open(flags[sensorsFile]); err == nil {
				defer seed.Close()
				if err := registry.SeedSensors(ctx, reg, seed); err != nil {
					log.Error("could not seed sensors", "err", err.Error())
				}
			} else {
				log.Info("no sensor seed file found", "path", flags[sensorsFile])
			}

			messenger.Start()

			err = router.Connect(ctx)
			if err != nil {
				return
			}

			return poller.Start(ctx)
		}),
		onshutdown(func(ctx context.Context, appCfg *appConfig) error {
			log.Debug("shutdown servicerunner")

			err := poller.Stop(ctx)
			router.Disconnect()
			we.Shutdown()
			messenger.Close()

			if store != nil {
				store.Close()
			}

			return err
		}),
	)

	return runner, nil
}

func arbitratorConfig(flags flagMap) arbitrator.Config {
	return arbitrator.Config{
		StaleSeconds:      atoi(flags[staleSeconds], 180),
		MaxTrackedSensors: atoi(flags[maxTrackedSensors], 500),
	}
}

func atoi(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func parseExternalConfig(ctx context.Context, flags flagMap) (context.Context, flagMap) {
	// Allow environment variables to override certain defaults
	envOrDef := env.GetVariableOrDefault

	flags[listenAddress] = envOrDef(ctx, "LISTEN_ADDRESS", flags[listenAddress])
	flags[controlPort] = envOrDef(ctx, "CONTROL_PORT", flags[controlPort])
	flags[servicePort] = envOrDef(ctx, "SERVICE_PORT", flags[servicePort])

	flags[sensorsFile] = envOrDef(ctx, "SENSORS_FILE", flags[sensorsFile])

	flags[dbHost] = envOrDef(ctx, "POSTGRES_HOST", flags[dbHost])
	flags[dbPort] = envOrDef(ctx, "POSTGRES_PORT", flags[dbPort])
	flags[dbName] = envOrDef(ctx, "POSTGRES_DBNAME", flags[dbName])
	flags[dbUser] = envOrDef(ctx, "POSTGRES_USER", flags[dbUser])
	flags[dbPassword] = envOrDef(ctx, "POSTGRES_PASSWORD", flags[dbPassword])
	flags[dbSSLMode] = envOrDef(ctx, "POSTGRES_SSLMODE", flags[dbSSLMode])

	flags[enableTracing] = envOrDef(ctx, "ENABLE_TRACING", flags[enableTracing])

	flags[pollInterval] = envOrDef(ctx, "POLL_INTERVAL_SECONDS", flags[pollInterval])
	flags[staleSeconds] = envOrDef(ctx, "STALE_SECONDS", flags[staleSeconds])
	flags[maxTrackedSensors] = envOrDef(ctx, "MAX_TRACKED_SENSORS", flags[maxTrackedSensors])

	apply := func(f flagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	// Allow command line arguments to override defaults and environment variables
	flag.Func("sensors", "list of known sensors", apply(sensorsFile))
	flag.Func("devmode", "enable dev mode", apply(devmode))
	flag.Parse()

	return ctx, flags
}

func exitIf(err error, logger *slog.Logger, msg string, args ...any) {
	if err != nil {
		logger.With(args...).Error(msg, "err", err.Error())
		time.Sleep(2 * time.Second)
		os.Exit(1)
	}
}
