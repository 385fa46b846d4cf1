package pipeline

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

// calibratableMetrics is the fixed set of metric names a calibration record
// may be applied to.
var calibratableMetrics = []string{
	types.MetricTemperature,
	types.MetricHumidity,
	types.MetricSoilMoisture,
	types.MetricCO2,
	types.MetricVOC,
	types.MetricEC,
	types.MetricPH,
	types.MetricPressure,
	types.MetricLux,
}

var customCalibrations = map[string]func(float64) float64{}

// RegisterCustomCalibration installs a named transform for calibration
// records of type custom. Not safe for concurrent use; call during startup.
func RegisterCustomCalibration(functionID string, fn func(float64) float64) {
	customCalibrations[functionID] = fn
}

// Calibrate returns a copy of the data map with the calibration applied to
// every present numeric calibratable metric. A calibration that fails to
// apply logs and leaves the raw value in place; it never halts the pipeline.
func Calibrate(ctx context.Context, cal *types.Calibration, data map[string]any) map[string]any {
	if cal == nil {
		return data
	}

	log := logging.GetFromContext(ctx)
	out := maps.Clone(data)

	for _, metric := range calibratableMetrics {
		v, ok := types.AsFloat(out[metric])
		if !ok {
			continue
		}

		corrected, err := applyCalibration(cal, v)
		if err != nil {
			log.Warn("could not apply calibration", "metric", metric, "kind", "calibration", "err", err.Error())
			continue
		}

		out[metric] = corrected
	}

	return out
}

func applyCalibration(cal *types.Calibration, v float64) (float64, error) {
	if err := cal.Validate(); err != nil {
		return 0, err
	}

	switch cal.Type {
	case types.CalibrationLinear:
		return *cal.Slope*v + *cal.Offset, nil
	case types.CalibrationPolynomial:
		return evalPolynomial(cal.Coefficients, v), nil
	case types.CalibrationLookup:
		return interpolateLookup(cal.Lookup, v), nil
	case types.CalibrationCustom:
		fn, ok := customCalibrations[cal.FunctionID]
		if !ok {
			return 0, fmt.Errorf("%w: no custom calibration registered for %q", types.ErrCalibrationInvalid, cal.FunctionID)
		}
		return fn(v), nil
	}

	return 0, fmt.Errorf("%w: unknown calibration type %q", types.ErrCalibrationInvalid, cal.Type)
}

// evalPolynomial evaluates ascending-order coefficients c0 + c1·x + c2·x² + …
func evalPolynomial(coefficients []float64, x float64) float64 {
	sum := 0.0
	for i, c := range coefficients {
		sum += c * math.Pow(x, float64(i))
	}
	return sum
}

// interpolateLookup performs linear interpolation between adjacent keys,
// clamping to the nearest endpoint outside the key range.
func interpolateLookup(points []types.LookupPoint, v float64) float64 {
	sorted := make([]types.LookupPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Raw < sorted[j].Raw })

	if v <= sorted[0].Raw {
		return sorted[0].Corrected
	}
	if v >= sorted[len(sorted)-1].Raw {
		return sorted[len(sorted)-1].Corrected
	}

	for i := 1; i < len(sorted); i++ {
		lo, hi := sorted[i-1], sorted[i]
		if v > hi.Raw {
			continue
		}
		if hi.Raw == lo.Raw {
			return lo.Corrected
		}
		frac := (v - lo.Raw) / (hi.Raw - lo.Raw)
		return lo.Corrected + frac*(hi.Corrected-lo.Corrected)
	}

	return sorted[len(sorted)-1].Corrected
}
