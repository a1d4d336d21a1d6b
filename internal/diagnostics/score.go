package diagnostics

import (
	"math"

	"engine-health-monitor/internal/models"
)

// bandPivot is the sub-score at the acceptable-band boundary.
const bandPivot = 0.7

// Thresholds that map a score to a health status.
const (
	ThresholdExcellent = 0.85
	ThresholdGood      = 0.70
	ThresholdFair      = 0.50
	ThresholdPoor      = 0.30
)

// Health status labels.
const (
	StatusExcellent = "Excellent"
	StatusGood      = "Good"
	StatusFair      = "Fair"
	StatusPoor      = "Poor"
	StatusCritical  = "Critical"
)

// ParameterScore scores a single reading against its ideal and acceptable bands.
//
//	inside ideal             -> 1.0
//	inside acceptable        -> linear 0.7 (acceptable edge) .. 1.0 (ideal edge)
//	below acceptable minimum -> max(0, 0.7 * v / accMin)
//	above acceptable maximum -> max(0, 0.7 * accMax / v)
func ParameterScore(spec ParameterSpec, v float64) float64 {
	ideal, acc := spec.Ideal, spec.Acceptable

	switch {
	case ideal.Contains(v):
		return 1.0
	case acc.Contains(v):
		if v < ideal.Min {
			return bandPivot + (1-bandPivot)*(v-acc.Min)/(ideal.Min-acc.Min)
		}
		return bandPivot + (1-bandPivot)*(acc.Max-v)/(acc.Max-ideal.Max)
	case v < acc.Min:
		return math.Max(0, bandPivot*(v/acc.Min))
	default:
		return math.Max(0, bandPivot*(acc.Max/v))
	}
}

// Score combines all parameters into a weighted health score in [0, 1],
// rounded to two decimals. Parameters the snapshot does not carry add nothing.
func (t *Table) Score(s models.SensorSnapshot) float64 {
	var total float64
	for _, spec := range t.specs {
		v, ok := s.Value(spec.Name)
		if !ok {
			continue
		}
		total += ParameterScore(spec, v) * spec.Weight
	}
	return clamp01(round(total, 2))
}

// Status maps a health score to its descriptive label.
func Status(score float64) string {
	switch {
	case score >= ThresholdExcellent:
		return StatusExcellent
	case score >= ThresholdGood:
		return StatusGood
	case score >= ThresholdFair:
		return StatusFair
	case score >= ThresholdPoor:
		return StatusPoor
	default:
		return StatusCritical
	}
}
