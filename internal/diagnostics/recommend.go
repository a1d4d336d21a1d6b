package diagnostics

import "engine-health-monitor/internal/models"

// Operational recommendation texts.
const (
	RecIncreaseRPM     = "Increase engine RPM to prevent stalling"
	RecReduceLoad      = "Reduce engine load to prevent excessive wear"
	RecOilTemp         = "Monitor oil temperature - Consider reducing load"
	RecCooling         = "Check cooling system efficiency"
	RecOilPressure     = "Check oil level and pressure system"
	RecFuelPressure    = "Inspect fuel delivery system"
	RecImmediate       = "Schedule immediate maintenance inspection"
	RecPlanMaintenance = "Plan maintenance within next 1000 " + DistanceUnit
)

// Compose builds the operational recommendations for a snapshot and its
// health score. These thresholds are independent of the zone tables.
func Compose(s models.SensorSnapshot, score float64) []string {
	recs := []string{}

	if s.EngineRPM < 600 {
		recs = append(recs, RecIncreaseRPM)
	} else if s.EngineRPM > 2500 {
		recs = append(recs, RecReduceLoad)
	}

	if s.LubOilTemp > 82 {
		recs = append(recs, RecOilTemp)
	}
	if s.CoolantTemp > 85 {
		recs = append(recs, RecCooling)
	}

	if s.LubOilPressure < 2.5 {
		recs = append(recs, RecOilPressure)
	}
	if s.FuelPressure < 3.5 {
		recs = append(recs, RecFuelPressure)
	}

	if score < 0.4 {
		recs = append(recs, RecImmediate)
	} else if score < 0.6 {
		recs = append(recs, RecPlanMaintenance)
	}
	return recs
}
