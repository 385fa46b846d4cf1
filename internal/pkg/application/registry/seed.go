package registry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"gopkg.in/yaml.v2"

	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

type seedFile struct {
	Sensors []types.Sensor `yaml:"sensors"`
}

// SeedSensors registers every sensor in the YAML document. Invalid entries
// are skipped with a log line so a single bad row does not block startup.
func SeedSensors(ctx context.Context, r SensorRegistry, reader io.Reader) error {
	log := logging.GetFromContext(ctx)

	b, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	seed := seedFile{}
	err = yaml.Unmarshal(b, &seed)
	if err != nil {
		return fmt.Errorf("could not parse seed file: %w", err)
	}

	var errs []error

	for _, sensor := range seed.Sensors {
		created, err := r.Register(ctx, sensor)
		if err != nil {
			log.Error("could not seed sensor", "sensor_id", sensor.ID, "err", err.Error())
			errs = append(errs, err)
			continue
		}

		if created {
			log.Debug("seeded sensor", "sensor_id", sensor.ID, "name", sensor.Name)
		}
	}

	if len(errs) == len(seed.Sensors) && len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
