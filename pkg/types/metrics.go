package types

// Canonical metric names. All pipeline stages downstream of the
// canonicalizer operate on this vocabulary only.
const (
	MetricTemperature  = "temperature"
	MetricHumidity     = "humidity"
	MetricSoilMoisture = "soil_moisture"
	MetricCO2          = "co2"
	MetricVOC          = "voc"
	MetricAirQuality   = "air_quality"
	MetricEC           = "ec"
	MetricPH           = "ph"
	MetricSmoke        = "smoke"
	MetricPressure     = "pressure"
	MetricLux          = "lux"
	MetricFullSpectrum = "full_spectrum"
	MetricInfrared     = "infrared"
	MetricVisible      = "visible"
	MetricBattery      = "battery"
	MetricLinkquality  = "linkquality"
)

// Derived metrics added by the enrichment stage.
const (
	MetricVPD       = "vpd"
	MetricDewPoint  = "dew_point"
	MetricHeatIndex = "heat_index"
)

// Meta keys are carried through to payloads in dedicated fields but are
// never treated as readings.
const (
	MetaBattery        = "battery"
	MetaLinkquality    = "linkquality"
	MetaReportInterval = "report_interval"
)

var canonicalMetrics = map[string]struct{}{
	MetricTemperature:  {},
	MetricHumidity:     {},
	MetricSoilMoisture: {},
	MetricCO2:          {},
	MetricVOC:          {},
	MetricAirQuality:   {},
	MetricEC:           {},
	MetricPH:           {},
	MetricSmoke:        {},
	MetricPressure:     {},
	MetricLux:          {},
	MetricFullSpectrum: {},
	MetricInfrared:     {},
	MetricVisible:      {},
	MetricBattery:      {},
	MetricLinkquality:  {},
}

var derivedMetrics = map[string]struct{}{
	MetricVPD:       {},
	MetricDewPoint:  {},
	MetricHeatIndex: {},
}

var metaKeys = map[string]struct{}{
	MetaBattery:        {},
	MetaLinkquality:    {},
	MetaReportInterval: {},
}

// DashboardMetrics is the subset of canonical metrics that can appear on a
// per unit snapshot, in sorted order. Battery and link quality are meta keys
// and belong to the source descriptor instead.
var DashboardMetrics = []string{
	MetricAirQuality,
	MetricCO2,
	MetricEC,
	MetricFullSpectrum,
	MetricHumidity,
	MetricInfrared,
	MetricLux,
	MetricPH,
	MetricPressure,
	MetricSmoke,
	MetricSoilMoisture,
	MetricTemperature,
	MetricVisible,
	MetricVOC,
}

func IsCanonicalMetric(key string) bool {
	_, ok := canonicalMetrics[key]
	return ok
}

func IsDerivedMetric(key string) bool {
	_, ok := derivedMetrics[key]
	return ok
}

func IsMetaKey(key string) bool {
	_, ok := metaKeys[key]
	return ok
}

func IsDashboardMetric(key string) bool {
	if IsMetaKey(key) {
		return false
	}
	return IsCanonicalMetric(key)
}

var metricUnits = map[string]string{
	MetricTemperature:  "°C",
	MetricHumidity:     "%",
	MetricSoilMoisture: "%",
	MetricPressure:     "hPa",
	MetricCO2:          "ppm",
	MetricVOC:          "ppb",
	MetricLux:          "lx",
	MetricEC:           "mS/cm",
	MetricPH:           "",
	MetricVPD:          "kPa",
	MetricDewPoint:     "°C",
	MetricHeatIndex:    "°C",
	MetricBattery:      "%",
	MetricLinkquality:  "lqi",
}

// MetricUnit returns the display unit for a metric, or an empty string for
// unitless and unknown metrics.
func MetricUnit(metric string) string {
	return metricUnits[metric]
}
