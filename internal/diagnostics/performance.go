package diagnostics

import (
	"math"

	"engine-health-monitor/internal/models"
)

// Efficiency indicator weights.
const (
	efficiencyRPM      = 0.4
	efficiencyOil      = 0.3
	efficiencyFuel     = 0.3
	thermalSpreadLimit = 10.0
)

// Performance labels.
const (
	BalanceOptimal    = "Optimal"
	BalanceSuboptimal = "Suboptimal"

	PressureNormal   = "Normal"
	PressureWarning  = "Warning"
	PressureCritical = "Critical"

	PowerLow      = "Low - Potential stalling risk"
	PowerNormal   = "Normal - Optimal operating range"
	PowerHigh     = "High - Increased wear risk"
	PowerCritical = "Critical - Immediate attention required"

	StateImmediate   = "Requires immediate attention"
	StateMaintenance = "Maintenance recommended"
	StateMonitor     = "Monitor closely"
	StateNormal      = "Normal operation"
)

var pressureParameters = []models.Parameter{
	models.LubOilPressure,
	models.FuelPressure,
	models.CoolantPressure,
}

// Analyze derives the performance bundle from the snapshot's zones.
func (t *Table) Analyze(s models.SensorSnapshot) models.PerformanceAnalysis {
	zones := t.Zones(s)
	return models.PerformanceAnalysis{
		EfficiencyScore:   efficiency(zones),
		PowerOutputStatus: PowerOutputStatus(s.EngineRPM),
		ThermalBalance:    thermalBalance(s.LubOilTemp, s.CoolantTemp),
		PressureSystems:   pressureSystems(zones),
		OperationalState:  OperationalState(zones),
	}
}

func efficiency(zones map[models.Parameter]models.Zone) float64 {
	var score float64
	if zones[models.EngineRPM] == models.ZoneOptimal {
		score += efficiencyRPM
	}
	if zones[models.LubOilPressure] == models.ZoneOptimal {
		score += efficiencyOil
	}
	if zones[models.FuelPressure] == models.ZoneOptimal {
		score += efficiencyFuel
	}
	return round(score, 2)
}

func thermalBalance(oilTemp, coolantTemp float64) string {
	if math.Abs(oilTemp-coolantTemp) > thermalSpreadLimit {
		return BalanceSuboptimal
	}
	return BalanceOptimal
}

func pressureSystems(zones map[models.Parameter]models.Zone) string {
	for _, p := range pressureParameters {
		if zones[p] == models.ZoneCritical {
			return PressureCritical
		}
	}
	for _, p := range pressureParameters {
		if zones[p] == models.ZoneWarning {
			return PressureWarning
		}
	}
	return PressureNormal
}

// PowerOutputStatus bands the engine RPM.
func PowerOutputStatus(rpm float64) string {
	switch {
	case rpm < 600:
		return PowerLow
	case rpm <= 1500:
		return PowerNormal
	case rpm <= 2500:
		return PowerHigh
	default:
		return PowerCritical
	}
}

// OperationalState summarizes the zone counts across all parameters.
func OperationalState(zones map[models.Parameter]models.Zone) string {
	var critical, warning int
	for _, z := range zones {
		switch z {
		case models.ZoneCritical:
			critical++
		case models.ZoneWarning:
			warning++
		}
	}

	switch {
	case critical > 0:
		return StateImmediate
	case warning > 1:
		return StateMaintenance
	case warning == 1:
		return StateMonitor
	default:
		return StateNormal
	}
}
