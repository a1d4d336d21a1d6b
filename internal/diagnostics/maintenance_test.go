package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"engine-health-monitor/internal/models"
)

func TestAdvise_AllOptimal(t *testing.T) {
	plan := DefaultTable().Advise(idealSnapshot())

	assert.Empty(t, plan.UrgentActions)
	assert.Empty(t, plan.PreventiveActions)
	assert.Equal(t, models.RiskLow, plan.RiskLevel)
	assert.Equal(t, DefaultNextService, plan.NextServiceDistance)
	assert.Equal(t, UrgentThreshold, plan.UrgentThreshold)
}

func TestAdvise_WarningCapsNextService(t *testing.T) {
	s := idealSnapshot()
	s.EngineRPM = 700

	plan := DefaultTable().Advise(s)

	assert.Equal(t, []string{"Schedule engine rpm inspection"}, plan.PreventiveActions)
	assert.Empty(t, plan.UrgentActions)
	assert.Equal(t, models.RiskMedium, plan.RiskLevel)
	assert.Equal(t, WarningNextService, plan.NextServiceDistance)
}

func TestAdvise_CriticalForcesImmediateService(t *testing.T) {
	s := idealSnapshot()
	s.LubOilPressure = 0.5

	plan := DefaultTable().Advise(s)

	assert.Equal(t, []string{"Immediate inspection of lub oil pressure required"}, plan.UrgentActions)
	assert.Equal(t, models.RiskHigh, plan.RiskLevel)
	assert.Equal(t, 0, plan.NextServiceDistance)
}

func TestAdvise_HighRiskIsNeverDowngraded(t *testing.T) {
	// Critical oil pressure is visited before the warning coolant temperature.
	s := idealSnapshot()
	s.LubOilPressure = 0.5
	s.CoolantTemp = 66

	plan := DefaultTable().Advise(s)

	assert.Equal(t, models.RiskHigh, plan.RiskLevel)
	assert.Equal(t, 0, plan.NextServiceDistance)
	assert.Equal(t, []string{"Schedule coolant temp inspection"}, plan.PreventiveActions)
}

func TestAdvise_WarningThenCritical(t *testing.T) {
	s := idealSnapshot()
	s.EngineRPM = 650
	s.CoolantTemp = 120

	plan := DefaultTable().Advise(s)

	assert.Equal(t, models.RiskHigh, plan.RiskLevel)
	assert.Equal(t, 0, plan.NextServiceDistance)
	assert.Len(t, plan.PreventiveActions, 1)
	assert.Len(t, plan.UrgentActions, 1)
}

func TestRaiseRisk(t *testing.T) {
	assert.Equal(t, models.RiskMedium, raiseRisk(models.RiskLow, models.RiskMedium))
	assert.Equal(t, models.RiskHigh, raiseRisk(models.RiskHigh, models.RiskMedium))
	assert.Equal(t, models.RiskMedium, raiseRisk(models.RiskMedium, models.RiskLow))
}

func TestMaintenanceDue(t *testing.T) {
	assert.Equal(t, 8200, MaintenanceDue(9200))
	assert.Equal(t, 0, MaintenanceDue(1000))
	assert.Equal(t, 0, MaintenanceDue(300))
}
