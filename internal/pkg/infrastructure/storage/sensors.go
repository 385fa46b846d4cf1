package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

func (s *Storage) CreateOrUpdateSensor(ctx context.Context, sensor types.Sensor) error {
	if sensor.ID <= 0 {
		return ErrNoID
	}

	config, _ := json.Marshal(sensor.Config)

	var calibration *string
	if sensor.Calibration != nil {
		b, _ := json.Marshal(sensor.Calibration)
		c := string(b)
		calibration = &c
	}

	args := pgx.NamedArgs{
		"sensor_id":   sensor.ID,
		"unit_id":     sensor.UnitID,
		"name":        sensor.Name,
		"category":    string(sensor.Category),
		"protocol":    string(sensor.Protocol),
		"model":       sensor.Model,
		"online":      sensor.Online,
		"config":      string(config),
		"calibration": calibration,
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO sensors (sensor_id, unit_id, name, category, protocol, model, online, config, calibration)
		VALUES (@sensor_id, @unit_id, @name, @category, @protocol, @model, @online, @config, @calibration)
		ON CONFLICT (sensor_id) DO UPDATE
		SET unit_id = @unit_id, name = @name, category = @category, protocol = @protocol,
		    model = @model, online = @online, config = @config, calibration = @calibration,
		    modified_on = CURRENT_TIMESTAMP
	`, args)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}

	return nil
}

func (s *Storage) DeleteSensor(ctx context.Context, sensorID int64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM sensors WHERE sensor_id = @sensor_id
	`, pgx.NamedArgs{"sensor_id": sensorID})
	return err
}

func (s *Storage) SetSensorOnline(ctx context.Context, sensorID int64, online bool) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sensors SET online = @online, modified_on = CURRENT_TIMESTAMP
		WHERE sensor_id = @sensor_id
	`, pgx.NamedArgs{"sensor_id": sensorID, "online": online})
	return err
}

func (s *Storage) GetSensor(ctx context.Context, conditions ...ConditionFunc) (types.Sensor, error) {
	condition := &Condition{}
	for _, f := range conditions {
		f(condition)
	}

	query := fmt.Sprintf(`
		SELECT sensor_id, unit_id, name, category, protocol, model, online, config, calibration
		FROM sensors
		%s
	`, condition.Where())

	row := s.pool.QueryRow(ctx, query, condition.NamedArgs())

	sensor, err := scanSensor(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Sensor{}, ErrNoRows
		}
		return types.Sensor{}, err
	}

	return sensor, nil
}

func (s *Storage) QuerySensors(ctx context.Context, conditions ...ConditionFunc) (types.Collection[types.Sensor], error) {
	condition := &Condition{}
	for _, f := range conditions {
		f(condition)
	}

	offsetLimit := ""
	if condition.offset != nil {
		offsetLimit += fmt.Sprintf("OFFSET %d ", *condition.offset)
	}
	if condition.limit != nil {
		offsetLimit += fmt.Sprintf("LIMIT %d ", *condition.limit)
	}

	query := fmt.Sprintf(`
		SELECT sensor_id, unit_id, name, category, protocol, model, online, config, calibration, count(*) OVER () AS count
		FROM sensors
		%s
		ORDER BY sensor_id ASC
		%s
	`, condition.Where(), offsetLimit)

	rows, err := s.pool.Query(ctx, query, condition.NamedArgs())
	if err != nil {
		return types.Collection[types.Sensor]{}, err
	}

	var sensorID, unitID, count int64
	var name, category, protocol, model string
	var online bool
	var config json.RawMessage
	var calibration *json.RawMessage

	sensors := make([]types.Sensor, 0)

	_, err = pgx.ForEachRow(rows, []any{&sensorID, &unitID, &name, &category, &protocol, &model, &online, &config, &calibration, &count}, func() error {
		sensor := types.Sensor{
			ID:       sensorID,
			UnitID:   unitID,
			Name:     name,
			Category: types.SensorCategory(category),
			Protocol: types.Protocol(protocol),
			Model:    model,
			Online:   online,
		}

		var errs []error
		errs = append(errs, json.Unmarshal(config, &sensor.Config))

		if calibration != nil {
			cal := types.Calibration{}
			errs = append(errs, json.Unmarshal(*calibration, &cal))
			sensor.Calibration = &cal
		}

		sensors = append(sensors, sensor)
		return errors.Join(errs...)
	})
	if err != nil {
		return types.Collection[types.Sensor]{}, err
	}

	limit := uint64(len(sensors))
	if condition.limit != nil {
		limit = uint64(*condition.limit)
	}
	offset := uint64(0)
	if condition.offset != nil {
		offset = uint64(*condition.offset)
	}

	return types.Collection[types.Sensor]{
		Data:       sensors,
		Count:      uint64(len(sensors)),
		Offset:     offset,
		Limit:      limit,
		TotalCount: uint64(count),
	}, nil
}

type scanFunc func(dest ...any) error

func scanSensor(scan scanFunc) (types.Sensor, error) {
	var sensorID, unitID int64
	var name, category, protocol, model string
	var online bool
	var config json.RawMessage
	var calibration *json.RawMessage

	err := scan(&sensorID, &unitID, &name, &category, &protocol, &model, &online, &config, &calibration)
	if err != nil {
		return types.Sensor{}, err
	}

	sensor := types.Sensor{
		ID:       sensorID,
		UnitID:   unitID,
		Name:     name,
		Category: types.SensorCategory(category),
		Protocol: types.Protocol(protocol),
		Model:    model,
		Online:   online,
	}

	var errs []error
	errs = append(errs, json.Unmarshal(config, &sensor.Config))

	if calibration != nil {
		cal := types.Calibration{}
		errs = append(errs, json.Unmarshal(*calibration, &cal))
		sensor.Calibration = &cal
	}

	return sensor, errors.Join(errs...)
}
