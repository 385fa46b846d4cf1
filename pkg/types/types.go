package types

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

type SensorCategory string

const (
	CategoryEnvironmental SensorCategory = "environmental"
	CategoryPlant         SensorCategory = "plant"
)

func ParseSensorCategory(s string) (SensorCategory, error) {
	switch SensorCategory(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryEnvironmental:
		return CategoryEnvironmental, nil
	case CategoryPlant:
		return CategoryPlant, nil
	}
	return "", fmt.Errorf("unknown sensor category %q", s)
}

type Protocol string

const (
	ProtocolGPIO        Protocol = "gpio"
	ProtocolI2C         Protocol = "i2c"
	ProtocolADC         Protocol = "adc"
	ProtocolSPI         Protocol = "spi"
	ProtocolOneWire     Protocol = "onewire"
	ProtocolMQTT        Protocol = "mqtt"
	ProtocolZigbee      Protocol = "zigbee"
	ProtocolZigbee2MQTT Protocol = "zigbee2mqtt"
	ProtocolWireless    Protocol = "wireless"
	ProtocolHTTP        Protocol = "http"
	ProtocolModbus      Protocol = "modbus"
)

var protocols = []Protocol{
	ProtocolGPIO, ProtocolI2C, ProtocolADC, ProtocolSPI, ProtocolOneWire,
	ProtocolMQTT, ProtocolZigbee, ProtocolZigbee2MQTT, ProtocolWireless,
	ProtocolHTTP, ProtocolModbus,
}

// ParseProtocol resolves a protocol name, treating unknown values as a
// decode error rather than propagating them.
func ParseProtocol(s string) (Protocol, error) {
	p := Protocol(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(protocols, p) {
		return p, nil
	}
	return "", fmt.Errorf("unknown protocol %q", s)
}

// NormalizeProtocol maps a protocol onto the closed payload set, with
// "other" for anything unrecognized.
func NormalizeProtocol(s string) string {
	if p, err := ParseProtocol(s); err == nil {
		return string(p)
	}
	return "other"
}

// Wired reports whether sensors on this protocol are read by the local
// polling engine.
func (p Protocol) Wired() bool {
	switch p {
	case ProtocolGPIO, ProtocolI2C, ProtocolADC, ProtocolSPI, ProtocolOneWire:
		return true
	}
	return false
}

type Threshold struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// SensorConfig carries the immutable, protocol specific configuration of a
// sensor. Registration replaces the whole value; individual fields are never
// mutated in place.
type SensorConfig struct {
	PrimaryMetrics []string `json:"primaryMetrics,omitempty" yaml:"primaryMetrics,omitempty"`

	FriendlyName string `json:"friendlyName,omitempty" yaml:"friendlyName,omitempty"`
	IEEEAddress  string `json:"ieeeAddress,omitempty" yaml:"ieeeAddress,omitempty"`
	MQTTTopic    string `json:"mqttTopic,omitempty" yaml:"mqttTopic,omitempty"`

	GPIOPin         int    `json:"gpioPin,omitempty" yaml:"gpioPin,omitempty"`
	I2CAddress      int    `json:"i2cAddress,omitempty" yaml:"i2cAddress,omitempty"`
	PollingInterval int    `json:"pollingInterval,omitempty" yaml:"pollingInterval,omitempty"`
	ReadTimeout     int    `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`
	CalibrationRef  string `json:"calibrationRef,omitempty" yaml:"calibrationRef,omitempty"`

	Thresholds map[string]Threshold `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`

	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

type Sensor struct {
	ID       int64          `json:"id" yaml:"id"`
	UnitID   int64          `json:"unitID" yaml:"unitID"`
	Name     string         `json:"name" yaml:"name"`
	Category SensorCategory `json:"category" yaml:"category"`
	Protocol Protocol       `json:"protocol" yaml:"protocol"`
	Model    string         `json:"model,omitempty" yaml:"model,omitempty"`
	Online   bool           `json:"online"`

	Config      SensorConfig `json:"config" yaml:"config"`
	Calibration *Calibration `json:"calibration,omitempty" yaml:"calibration,omitempty"`
}

// DeclaresPrimary reports whether the sensor configuration claims authority
// over the given metric.
func (s Sensor) DeclaresPrimary(metric string) bool {
	return slices.Contains(s.Config.PrimaryMetrics, metric)
}

type CalibrationType string

const (
	CalibrationLinear     CalibrationType = "linear"
	CalibrationPolynomial CalibrationType = "polynomial"
	CalibrationLookup     CalibrationType = "lookup"
	CalibrationCustom     CalibrationType = "custom"
)

var ErrCalibrationInvalid = errors.New("calibration has missing or invalid parameters")

type LookupPoint struct {
	Raw       float64 `json:"raw" yaml:"raw"`
	Corrected float64 `json:"corrected" yaml:"corrected"`
}

type Calibration struct {
	Type CalibrationType `json:"type" yaml:"type"`

	Slope        *float64      `json:"slope,omitempty" yaml:"slope,omitempty"`
	Offset       *float64      `json:"offset,omitempty" yaml:"offset,omitempty"`
	Coefficients []float64     `json:"coefficients,omitempty" yaml:"coefficients,omitempty"`
	Lookup       []LookupPoint `json:"lookup,omitempty" yaml:"lookup,omitempty"`
	FunctionID   string        `json:"functionID,omitempty" yaml:"functionID,omitempty"`

	ReferenceValues []float64 `json:"referenceValues,omitempty" yaml:"referenceValues,omitempty"`
	MeasuredValues  []float64 `json:"measuredValues,omitempty" yaml:"measuredValues,omitempty"`

	CalibratedAt time.Time `json:"calibratedAt,omitzero" yaml:"calibratedAt,omitempty"`
	CalibratedBy string    `json:"calibratedBy,omitempty" yaml:"calibratedBy,omitempty"`
}

// Validate checks the structural invariants of the record: linear needs both
// slope and offset, lookup needs at least two distinct raw keys.
func (c Calibration) Validate() error {
	switch c.Type {
	case CalibrationLinear:
		if c.Slope == nil || c.Offset == nil {
			return fmt.Errorf("%w: linear calibration requires slope and offset", ErrCalibrationInvalid)
		}
	case CalibrationPolynomial:
		if len(c.Coefficients) == 0 {
			return fmt.Errorf("%w: polynomial calibration requires coefficients", ErrCalibrationInvalid)
		}
	case CalibrationLookup:
		distinct := map[float64]struct{}{}
		for _, p := range c.Lookup {
			distinct[p.Raw] = struct{}{}
		}
		if len(distinct) < 2 {
			return fmt.Errorf("%w: lookup calibration requires at least two distinct raw keys", ErrCalibrationInvalid)
		}
	case CalibrationCustom:
		if c.FunctionID == "" {
			return fmt.Errorf("%w: custom calibration requires a function identifier", ErrCalibrationInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown calibration type %q", ErrCalibrationInvalid, c.Type)
	}
	return nil
}

type ReadingStatus string

const (
	StatusSuccess ReadingStatus = "success"
	StatusWarning ReadingStatus = "warning"
	StatusError   ReadingStatus = "error"
	StatusMock    ReadingStatus = "mock"
)

// Reading is the immutable result of the processing pipeline. Stages that
// add information return a new value instead of mutating in place.
type Reading struct {
	SensorID   int64  `json:"sensorID"`
	UnitID     int64  `json:"unitID"`
	Category   string `json:"category"`
	SensorName string `json:"sensorName"`

	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
	Status    ReadingStatus  `json:"status"`

	QualityScore       *float64 `json:"qualityScore,omitempty"`
	IsAnomaly          bool     `json:"isAnomaly"`
	AnomalyReason      string   `json:"anomalyReason,omitempty"`
	CalibrationApplied bool     `json:"calibrationApplied"`
}

// WithData returns a copy of the reading carrying the given data map.
func (r Reading) WithData(data map[string]any) Reading {
	r.Data = data
	return r
}

// Numeric returns the value of a metric if present and numeric.
func (r Reading) Numeric(metric string) (float64, bool) {
	return AsFloat(r.Data[metric])
}

// AsFloat coerces the numeric types a decoded JSON or hardware payload can
// carry into a float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	}
	return 0, false
}

type HealthStatus string

const (
	HealthUnknown   HealthStatus = "unknown"
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type HealthState struct {
	SensorID            int64        `json:"sensorID"`
	Status              HealthStatus `json:"status"`
	LastSeen            time.Time    `json:"lastSeen,omitzero"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	LastError           string       `json:"lastError,omitempty"`
	BackoffUntil        time.Time    `json:"backoffUntil,omitzero"`
}

type Collection[T any] struct {
	Data       []T
	Count      uint64
	Offset     uint64
	Limit      uint64
	TotalCount uint64
}
