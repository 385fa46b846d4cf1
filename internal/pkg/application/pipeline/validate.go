package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/sysgrow/iot-sensor-ingest/pkg/types"
)

// ErrDataInvalid halts the pipeline for a reading when a critical rule is
// violated. The router swallows it and proceeds to the next message.
var ErrDataInvalid = errors.New("data invalid")

type RuleKind string

const (
	RuleRequiredFields  RuleKind = "required-fields"
	RuleTypeCheck       RuleKind = "type-check"
	RuleRangeCheck      RuleKind = "range-check"
	RulePatternMatch    RuleKind = "pattern-match"
	RuleCustomPredicate RuleKind = "custom-predicate"
)

type Rule struct {
	Name     string
	Kind     RuleKind
	Metric   string
	Min      float64
	Max      float64
	Message  string
	Critical bool

	// Predicate returns true when the rule is violated. Used by
	// custom-predicate rules only.
	Predicate func(data map[string]any) bool
}

// violated reports whether the rule fails for the given data. Range rules
// are conditional on the presence of their target metric; a missing field is
// never a violation.
func (r Rule) violated(data map[string]any) bool {
	switch r.Kind {
	case RuleRangeCheck:
		v, ok := types.AsFloat(data[r.Metric])
		if !ok {
			return false
		}
		return v < r.Min || v > r.Max
	case RuleTypeCheck:
		raw, present := data[r.Metric]
		if !present {
			return false
		}
		_, ok := types.AsFloat(raw)
		return !ok
	case RuleRequiredFields:
		_, present := data[r.Metric]
		return !present
	case RuleCustomPredicate:
		return r.Predicate != nil && r.Predicate(data)
	}
	return false
}

func rangeRule(name, metric string, min, max float64) Rule {
	return Rule{
		Name:    name,
		Kind:    RuleRangeCheck,
		Metric:  metric,
		Min:     min,
		Max:     max,
		Message: fmt.Sprintf("%s outside [%g, %g]", metric, min, max),
	}
}

// rejectErrors applies to every payload regardless of category.
var rejectErrors = Rule{
	Name:     "reject-error-payloads",
	Kind:     RuleCustomPredicate,
	Message:  "payload contains an error field",
	Critical: true,
	Predicate: func(data map[string]any) bool {
		_, present := data["error"]
		return present
	},
}

var environmentalRules = []Rule{
	rangeRule("temperature-range", types.MetricTemperature, -40, 85),
	rangeRule("humidity-range", types.MetricHumidity, 0, 100),
	rangeRule("co2-range", types.MetricCO2, 0, 10000),
	rangeRule("pressure-range", types.MetricPressure, 300, 1100),
	rangeRule("light-range", types.MetricLux, 0, 200000),
}

var plantRules = []Rule{
	rangeRule("soil-moisture-range", types.MetricSoilMoisture, 0, 100),
	rangeRule("ph-range", types.MetricPH, 0, 14),
	rangeRule("ec-range", types.MetricEC, 0, 20),
	// plant sensors may emit air metrics as well
	rangeRule("temperature-range", types.MetricTemperature, -40, 85),
	rangeRule("humidity-range", types.MetricHumidity, 0, 100),
}

func rulesFor(category types.SensorCategory) []Rule {
	switch category {
	case types.CategoryEnvironmental:
		return environmentalRules
	case types.CategoryPlant:
		return plantRules
	}
	return nil
}

// Validate applies the per category rule set. Critical violations return a
// wrapped ErrDataInvalid; non critical violations are logged and the reading
// continues through the pipeline.
func Validate(ctx context.Context, category types.SensorCategory, data map[string]any) error {
	log := logging.GetFromContext(ctx)

	rules := append([]Rule{rejectErrors}, rulesFor(category)...)

	for _, r := range rules {
		if !r.violated(data) {
			continue
		}

		if r.Critical {
			return fmt.Errorf("%w: %s", ErrDataInvalid, r.Message)
		}

		log.Warn("validation rule violated", "rule", r.Name, "kind", "validation", "msg", r.Message)
	}

	return nil
}
