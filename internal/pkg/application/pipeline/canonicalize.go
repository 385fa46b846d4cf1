package pipeline

import (
	"strings"

	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

// aliases maps vendor field spellings (compared lowercased and trimmed) to
// canonical metric names. Unknown keys pass through lowercased so downstream
// stages can ignore them.
var aliases = map[string]string{
	"temp":                types.MetricTemperature,
	"temperature_c":       types.MetricTemperature,
	"temp_c":              types.MetricTemperature,
	"hum":                 types.MetricHumidity,
	"rh":                  types.MetricHumidity,
	"relative_humidity":   types.MetricHumidity,
	"soil moisture":       types.MetricSoilMoisture,
	"soil":                types.MetricSoilMoisture,
	"moisture":            types.MetricSoilMoisture,
	"soil_humidity":       types.MetricSoilMoisture,
	"co2_ppm":             types.MetricCO2,
	"eco2":                types.MetricCO2,
	"carbon_dioxide":      types.MetricCO2,
	"tvoc":                types.MetricVOC,
	"voc_ppb":             types.MetricVOC,
	"aqi":                 types.MetricAirQuality,
	"air_quality_index":   types.MetricAirQuality,
	"conductivity":        types.MetricEC,
	"acidity":             types.MetricPH,
	"pressure_hpa":        types.MetricPressure,
	"barometric_pressure": types.MetricPressure,
	"illuminance":         types.MetricLux,
	"illuminance_lux":     types.MetricLux,
	"light":               types.MetricLux,
	"light_level":         types.MetricLux,
	"ir":                  types.MetricInfrared,
	"vis":                 types.MetricVisible,
	"battery_percent":     types.MetricBattery,
	"battery_level":       types.MetricBattery,
	"lqi":                 types.MetricLinkquality,
	"link_quality":        types.MetricLinkquality,
}

// Canonicalize maps vendor field names onto the canonical metric vocabulary
// and flattens shallow nested reading objects. Lists are preserved as-is;
// the arbitrator flattens multi channel soil readings later.
func Canonicalize(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))

	for k, v := range raw {
		key := strings.ToLower(strings.TrimSpace(k))

		canonical, ok := aliases[key]
		if !ok {
			canonical = strings.ReplaceAll(key, " ", "_")
		}

		out[canonical] = flatten(canonical, v)
	}

	return out
}

// flatten extracts "value" or "<key>_value" from object values, leaving
// objects without either intact so later stages drop them.
func flatten(key string, v any) any {
	obj, ok := v.(map[string]any)
	if !ok {
		return v
	}

	if inner, ok := obj["value"]; ok {
		return inner
	}
	if inner, ok := obj[key+"_value"]; ok {
		return inner
	}

	return v
}
