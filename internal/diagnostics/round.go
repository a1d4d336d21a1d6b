package diagnostics

import (
	"math"

	"github.com/shopspring/decimal"
)

// round rounds v to the given number of decimal places, half away from zero.
// Going through decimal avoids binary artefacts such as 0.8400000000000001.
func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// clamp01 restricts v to the range [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
