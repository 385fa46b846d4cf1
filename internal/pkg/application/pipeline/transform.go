package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

// Transform produces the immutable reading from the calibrated data map.
// Status is derived from data signals in order: error field, mock marker,
// low battery or weak link, otherwise success.
func Transform(sensor types.Sensor, data map[string]any, now time.Time) types.Reading {
	r := types.Reading{
		SensorID:           sensor.ID,
		UnitID:             sensor.UnitID,
		Category:           string(sensor.Category),
		SensorName:         sensor.Name,
		Data:               data,
		Timestamp:          now,
		Status:             statusFromData(data),
		CalibrationApplied: sensor.Calibration != nil,
	}

	r.IsAnomaly, r.AnomalyReason = detectAnomaly(sensor, data)

	return r
}

func statusFromData(data map[string]any) types.ReadingStatus {
	if _, present := data["error"]; present {
		return types.StatusError
	}

	if s, ok := data["status"].(string); ok && strings.EqualFold(s, "MOCK") {
		return types.StatusMock
	}

	if battery, ok := types.AsFloat(data[types.MetaBattery]); ok && battery < 20 {
		return types.StatusWarning
	}
	if lqi, ok := types.AsFloat(data[types.MetaLinkquality]); ok && lqi < 50 {
		return types.StatusWarning
	}

	return types.StatusSuccess
}

// detectAnomaly flags readings that fall outside the threshold bounds the
// sensor configuration declares.
func detectAnomaly(sensor types.Sensor, data map[string]any) (bool, string) {
	for metric, bounds := range sensor.Config.Thresholds {
		v, ok := types.AsFloat(data[metric])
		if !ok {
			continue
		}

		if bounds.Min != nil && v < *bounds.Min {
			return true, fmt.Sprintf("%s %.2f below threshold %.2f", metric, v, *bounds.Min)
		}
		if bounds.Max != nil && v > *bounds.Max {
			return true, fmt.Sprintf("%s %.2f above threshold %.2f", metric, v, *bounds.Max)
		}
	}

	return false, ""
}
