package types

import "time"

// SchemaVersion is carried on every outbound push payload.
const SchemaVersion = 1

type PowerSource string

const (
	PowerSourceBattery PowerSource = "battery"
	PowerSourceMains   PowerSource = "mains"
	PowerSourceUnknown PowerSource = "unknown"
)

// DevicePayload is the per reading snapshot pushed to the /devices channel.
// The readings map carries numeric canonical metrics only; meta keys travel
// in their dedicated fields.
type DevicePayload struct {
	SchemaVersion int    `json:"schema_version"`
	SensorID      int64  `json:"sensor_id"`
	UnitID        int64  `json:"unit_id"`
	SensorName    string `json:"sensor_name"`
	SensorType    string `json:"sensor_type"`

	Readings map[string]float64 `json:"readings"`
	Units    map[string]string  `json:"units"`

	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`

	Battery     *int        `json:"battery"`
	PowerSource PowerSource `json:"power_source"`
	Linkquality *int        `json:"linkquality"`

	QualityScore       *float64 `json:"quality_score"`
	IsAnomaly          bool     `json:"is_anomaly"`
	AnomalyReason      *string  `json:"anomaly_reason"`
	CalibrationApplied bool     `json:"calibration_applied"`
}

type TrendDirection string

const (
	TrendRising  TrendDirection = "rising"
	TrendFalling TrendDirection = "falling"
	TrendStable  TrendDirection = "stable"
	TrendUnknown TrendDirection = "unknown"
)

// Source categories for synthetic snapshot entries.
const (
	SourceCategoryAggregate = "aggregate"
	SourceCategoryDerived   = "derived"
)

type SnapshotSource struct {
	SensorID     int64    `json:"sensor_id"`
	SensorName   *string  `json:"sensor_name"`
	SensorType   string   `json:"sensor_type"`
	Protocol     *string  `json:"protocol"`
	Battery      *int     `json:"battery"`
	PowerSource  string   `json:"power_source"`
	Linkquality  *int     `json:"linkquality"`
	QualityScore *float64 `json:"quality_score"`
	Status       string   `json:"status"`
	IsAnomaly    bool     `json:"is_anomaly"`
}

type SnapshotMetric struct {
	Value      float64        `json:"value"`
	Unit       string         `json:"unit"`
	Trend      TrendDirection `json:"trend"`
	TrendDelta *float64       `json:"trend_delta"`
	Source     SnapshotSource `json:"source"`
}

// DashboardSnapshot is the per unit view pushed to the /dashboard channel.
type DashboardSnapshot struct {
	SchemaVersion int                       `json:"schema_version"`
	UnitID        int64                     `json:"unit_id"`
	Timestamp     string                    `json:"timestamp"`
	Metrics       map[string]SnapshotMetric `json:"metrics"`
}

// UnregisteredDevicePayload announces a sysgrow device that could not be
// resolved against the registry, so that onboarding tooling can pick it up.
type UnregisteredDevicePayload struct {
	SchemaVersion int    `json:"schema_version"`
	UnitID        int64  `json:"unit_id"`
	PublisherID   string `json:"publisher_id"`
	Topic         string `json:"topic"`
	FriendlyName  string `json:"friendly_name"`
	Registered    bool   `json:"registered"`
	Timestamp     string `json:"timestamp"`

	RawData map[string]any `json:"raw_data"`

	SuggestedSensorType  string   `json:"suggested_sensor_type,omitempty"`
	DetectedCapabilities []string `json:"detected_capabilities,omitempty"`
}

// Timestamp formatting used on all outbound payloads.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
