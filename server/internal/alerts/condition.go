package alerts

import (
	"strconv"
	"strings"

	"github.com/fleetpulse/fleetpulse/pkg/types"
)

// evalCondition evaluates a rule condition string against a cycle report.
//
// Supported expressions (field operator value):
//
//	status == critical
//	status == anomalous
//	severity == alarm
//	rul_seconds < 300
//	slope > 0.5
//	latest_value > 110
//	window_size < 10
//
// The rul_seconds field only fires when the report carries a defined
// remaining-useful-life estimate (rul_seconds > 0).
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, report *types.CycleReport) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	switch field {
	case "status":
		if op == "==" {
			return report.Status == rhs, 0
		}
		return false, 0

	case "severity":
		if op == "==" {
			return report.Severity == rhs, 0
		}
		return false, 0

	case "rul_seconds":
		if report.RULSeconds <= 0 {
			return false, 0
		}
		threshold, err := strconv.ParseFloat(rhs, 64)
		if err != nil {
			return false, 0
		}
		return compareFloat(report.RULSeconds, op, threshold), report.RULSeconds

	default:
		v, ok := numericField(field, report)
		if !ok {
			return false, 0
		}
		threshold, err := strconv.ParseFloat(rhs, 64)
		if err != nil {
			return false, 0
		}
		return compareFloat(v, op, threshold), v
	}
}

// numericField maps a field name to its value in the report.
func numericField(field string, report *types.CycleReport) (float64, bool) {
	switch field {
	case "slope":
		return report.Slope, true
	case "latest_value":
		return report.LatestValue, true
	case "window_size":
		return float64(report.WindowSize), true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
