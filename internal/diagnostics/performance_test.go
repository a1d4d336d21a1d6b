package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"engine-health-monitor/internal/models"
)

func TestAnalyze_AllOptimal(t *testing.T) {
	got := DefaultTable().Analyze(idealSnapshot())

	assert.Equal(t, models.PerformanceAnalysis{
		EfficiencyScore:   1.0,
		PowerOutputStatus: PowerNormal,
		ThermalBalance:    BalanceOptimal,
		PressureSystems:   PressureNormal,
		OperationalState:  StateNormal,
	}, got)
}

func TestAnalyze_Efficiency(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.SensorSnapshot)
		want   float64
	}{
		{"rpm off", func(s *models.SensorSnapshot) { s.EngineRPM = 700 }, 0.6},
		{"oil off", func(s *models.SensorSnapshot) { s.LubOilPressure = 1.9 }, 0.7},
		{"fuel off", func(s *models.SensorSnapshot) { s.FuelPressure = 17 }, 0.7},
		{"all off", func(s *models.SensorSnapshot) {
			s.EngineRPM, s.LubOilPressure, s.FuelPressure = 100, 0.1, 40
		}, 0},
		{"coolant ignored", func(s *models.SensorSnapshot) { s.CoolantPressure = 9 }, 1.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := idealSnapshot()
			tc.mutate(&s)
			assert.Equal(t, tc.want, DefaultTable().Analyze(s).EfficiencyScore)
		})
	}
}

func TestAnalyze_ThermalBalance(t *testing.T) {
	s := idealSnapshot()
	s.LubOilTemp, s.CoolantTemp = 78, 88
	assert.Equal(t, BalanceOptimal, DefaultTable().Analyze(s).ThermalBalance)

	s.LubOilTemp, s.CoolantTemp = 90, 78
	assert.Equal(t, BalanceSuboptimal, DefaultTable().Analyze(s).ThermalBalance)
}

func TestAnalyze_PressureSystemsPriority(t *testing.T) {
	s := idealSnapshot()
	s.FuelPressure = 17
	assert.Equal(t, PressureWarning, DefaultTable().Analyze(s).PressureSystems)

	s.CoolantPressure = 5
	assert.Equal(t, PressureCritical, DefaultTable().Analyze(s).PressureSystems)

	// Temperatures do not count towards pressure systems.
	s = idealSnapshot()
	s.CoolantTemp = 120
	assert.Equal(t, PressureNormal, DefaultTable().Analyze(s).PressureSystems)
}

func TestPowerOutputStatus(t *testing.T) {
	tests := []struct {
		rpm  float64
		want string
	}{
		{0, PowerLow},
		{599.9, PowerLow},
		{600, PowerNormal},
		{1500, PowerNormal},
		{1500.5, PowerHigh},
		{2500, PowerHigh},
		{2501, PowerCritical},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, PowerOutputStatus(tc.rpm), "rpm %.1f", tc.rpm)
	}
}

func TestOperationalState(t *testing.T) {
	z := func(zs ...models.Zone) map[models.Parameter]models.Zone {
		out := map[models.Parameter]models.Zone{}
		for i, p := range models.Parameters {
			out[p] = models.ZoneOptimal
			if i < len(zs) {
				out[p] = zs[i]
			}
		}
		return out
	}

	assert.Equal(t, StateNormal, OperationalState(z()))
	assert.Equal(t, StateMonitor, OperationalState(z(models.ZoneWarning)))
	assert.Equal(t, StateMaintenance, OperationalState(z(models.ZoneWarning, models.ZoneWarning)))
	assert.Equal(t, StateImmediate, OperationalState(z(models.ZoneWarning, models.ZoneCritical)))
	assert.Equal(t, StateNormal, OperationalState(z(models.ZoneUnknown)))
}
