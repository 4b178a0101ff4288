package alerts

import (
	"github.com/benchboard/benchboard/pkg/regress"
)

// Severities assigned to fired alerts.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// criticalFactor scales the threshold above which an alert is critical.
const criticalFactor = 2.0

// evalChange reports whether c breaches threshold and with which severity.
// A change twice as far over the threshold is critical, e.g. a 4x slowdown
// against a 200% threshold.
func evalChange(c regress.Change, threshold float64) (fires bool, severity string) {
	if c.Ratio <= threshold {
		return false, ""
	}
	if c.Ratio > threshold*criticalFactor {
		return true, SeverityCritical
	}
	return true, SeverityWarning
}
