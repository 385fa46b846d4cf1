package pipeline

import (
	"context"
	"fmt"
	"maps"
	"math"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

// Enrich computes derived psychrometric metrics from temperature and
// humidity and assigns the reading a quality score. A failing derivation is
// logged and omitted; the pipeline continues.
func Enrich(ctx context.Context, reading types.Reading) types.Reading {
	log := logging.GetFromContext(ctx)

	data := maps.Clone(reading.Data)

	temp, hasTemp := types.AsFloat(data[types.MetricTemperature])
	hum, hasHum := types.AsFloat(data[types.MetricHumidity])

	if hasTemp && hasHum && reading.Status != types.StatusError {
		derive := func(metric string, fn func(t, rh float64) (float64, error)) {
			v, err := fn(temp, hum)
			if err != nil {
				log.Warn("could not derive metric", "metric", metric, "kind", "enrichment", "err", err.Error())
				return
			}
			data[metric] = round2(v)
		}

		derive(types.MetricVPD, VPD)
		derive(types.MetricDewPoint, DewPoint)
		derive(types.MetricHeatIndex, HeatIndex)
	}

	enriched := reading.WithData(data)

	score := qualityScore(data)
	enriched.QualityScore = &score

	return enriched
}

// Magnus-style saturation approximation, valid roughly -45 to 60 °C.
const (
	magnusA    = 17.27
	magnusB    = 237.3
	magnusMinT = -45.0
	magnusMaxT = 60.0
)

// SaturationVaporPressure returns es in kPa for a temperature in °C.
func SaturationVaporPressure(t float64) (float64, error) {
	if t < magnusMinT || t > magnusMaxT {
		return 0, fmt.Errorf("temperature %.1f outside magnus approximation range", t)
	}
	return 0.6108 * math.Exp(magnusA*t/(t+magnusB)), nil
}

// VPD returns the vapor pressure deficit in kPa.
func VPD(t, rh float64) (float64, error) {
	es, err := SaturationVaporPressure(t)
	if err != nil {
		return 0, err
	}
	if rh < 0 || rh > 100 {
		return 0, fmt.Errorf("relative humidity %.1f outside [0, 100]", rh)
	}
	return es * (1 - rh/100), nil
}

// DewPoint returns the dew point in °C.
func DewPoint(t, rh float64) (float64, error) {
	if t < magnusMinT || t > magnusMaxT {
		return 0, fmt.Errorf("temperature %.1f outside magnus approximation range", t)
	}
	if rh <= 0 || rh > 100 {
		return 0, fmt.Errorf("relative humidity %.1f outside (0, 100]", rh)
	}

	gamma := math.Log(rh/100) + magnusA*t/(magnusB+t)
	return magnusB * gamma / (magnusA - gamma), nil
}

// HeatIndex returns the NOAA heat index in °C. The regression is only valid
// for T ≥ 26 °C and RH ≥ 40 %; below that the air temperature is returned.
func HeatIndex(t, rh float64) (float64, error) {
	if rh < 0 || rh > 100 {
		return 0, fmt.Errorf("relative humidity %.1f outside [0, 100]", rh)
	}

	if t < 26 || rh < 40 {
		return t, nil
	}

	tf := t*9/5 + 32

	hi := -42.379 +
		2.04901523*tf +
		10.14333127*rh -
		0.22475541*tf*rh -
		0.00683783*tf*tf -
		0.05481717*rh*rh +
		0.00122874*tf*tf*rh +
		0.00085282*tf*rh*rh -
		0.00000199*tf*tf*rh*rh

	return (hi - 32) * 5 / 9, nil
}

// qualityScore starts at 1.0 and multiplies by penalties for incompleteness,
// weak battery, weak link and error markers. Rounded to three decimals.
func qualityScore(data map[string]any) float64 {
	score := completeness(data)

	if battery, ok := types.AsFloat(data[types.MetaBattery]); ok {
		switch {
		case battery < 20:
			score *= 0.7
		case battery <= 50:
			score *= 0.9
		}
	}

	if lqi, ok := types.AsFloat(data[types.MetaLinkquality]); ok {
		switch {
		case lqi < 50:
			score *= 0.7
		case lqi <= 100:
			score *= 0.9
		}
	}

	if _, present := data["error"]; present {
		score *= 0.3
	}

	return round3(score)
}

// completeness is the fraction of expected fields present. The expected set
// is inferred from which metrics appeared: a sensor reporting either of the
// temperature/humidity pair is expected to report both.
func completeness(data map[string]any) float64 {
	expected, present := 0, 0

	count := func(metric string) {
		expected++
		if _, ok := data[metric]; ok {
			present++
		}
	}

	_, hasTemp := data[types.MetricTemperature]
	_, hasHum := data[types.MetricHumidity]
	if hasTemp || hasHum {
		count(types.MetricTemperature)
		count(types.MetricHumidity)
	}

	for k := range data {
		if k == types.MetricTemperature || k == types.MetricHumidity {
			continue
		}
		if types.IsDashboardMetric(k) {
			count(k)
		}
	}

	if expected == 0 {
		return 1.0
	}

	return float64(present) / float64(expected)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
