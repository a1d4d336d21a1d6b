package diagnostics

import (
	"fmt"
	"strings"

	"engine-health-monitor/internal/models"
)

// Maintenance advisor constants.
const (
	DefaultNextService = 5000
	WarningNextService = 2500
	UrgentThreshold    = 1000
)

// Advise turns per-parameter zones into maintenance actions.
//
// A critical parameter forces High risk and immediate service. A warning
// parameter raises risk to at least Medium and caps the next service at
// WarningNextService. Risk is never downgraded within one evaluation.
func (t *Table) Advise(s models.SensorSnapshot) models.MaintenancePlan {
	plan := models.MaintenancePlan{
		UrgentActions:       []string{},
		PreventiveActions:   []string{},
		RiskLevel:           models.RiskLow,
		NextServiceDistance: DefaultNextService,
		UrgentThreshold:     UrgentThreshold,
	}

	for _, spec := range t.specs {
		v, ok := s.Value(spec.Name)
		if !ok {
			continue
		}
		label := strings.ToLower(spec.Label)

		switch classify(spec, v) {
		case models.ZoneCritical:
			plan.UrgentActions = append(plan.UrgentActions,
				fmt.Sprintf("Immediate inspection of %s required", label))
			plan.RiskLevel = models.RiskHigh
			plan.NextServiceDistance = 0
		case models.ZoneWarning:
			plan.PreventiveActions = append(plan.PreventiveActions,
				fmt.Sprintf("Schedule %s inspection", label))
			plan.RiskLevel = raiseRisk(plan.RiskLevel, models.RiskMedium)
			plan.NextServiceDistance = min(plan.NextServiceDistance, WarningNextService)
		}
	}
	return plan
}

// raiseRisk returns the higher of current and floor.
func raiseRisk(current, floor models.RiskLevel) models.RiskLevel {
	if floor.Rank() > current.Rank() {
		return floor
	}
	return current
}

// MaintenanceDue returns the distance left before urgent maintenance.
func MaintenanceDue(remaining int) int {
	return max(0, remaining-UrgentThreshold)
}
