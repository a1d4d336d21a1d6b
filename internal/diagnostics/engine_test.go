package diagnostics

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engine-health-monitor/internal/models"
)

func TestEvaluate_IdealEngine(t *testing.T) {
	engine := NewEngine(nil, fixedSource(0.5))

	a, err := engine.Evaluate(idealSnapshot())
	require.NoError(t, err)

	assert.Equal(t, 1.0, a.Health.OverallScore)
	assert.Equal(t, StatusExcellent, a.Health.Status)
	assert.Equal(t, 9200, a.Health.RemainingDistance)
	assert.Equal(t, 8200, a.Health.EstimatedMaintenanceDue)
	assert.Equal(t, DistanceUnit, a.Health.DistanceUnit)

	require.Len(t, a.Readings, 6)
	for _, r := range a.Readings {
		assert.Equal(t, models.ZoneOptimal, r.Status, r.Parameter)
	}

	assert.Equal(t, models.RiskLow, a.Maintenance.RiskLevel)
	assert.Equal(t, 5000, a.Maintenance.NextServiceDistance)
	assert.Equal(t, StateNormal, a.Performance.OperationalState)
	assert.Empty(t, a.Recommendations)
}

func TestEvaluate_CriticalOilPressure(t *testing.T) {
	s := idealSnapshot()
	s.LubOilPressure = 0.5

	a, err := NewEngine(nil, fixedSource(0.5)).Evaluate(s)
	require.NoError(t, err)

	assert.Less(t, a.Health.OverallScore, 1.0)
	assert.Equal(t, 0.84, a.Health.OverallScore)
	assert.Equal(t, StatusGood, a.Health.Status)

	assert.Equal(t, models.ZoneCritical, a.Readings[1].Status)
	assert.Equal(t, models.LubOilPressure, a.Readings[1].Parameter)

	assert.Equal(t, models.RiskHigh, a.Maintenance.RiskLevel)
	assert.Equal(t, 0, a.Maintenance.NextServiceDistance)
	assert.Contains(t, a.Maintenance.UrgentActions, "Immediate inspection of lub oil pressure required")

	assert.Equal(t, PressureCritical, a.Performance.PressureSystems)
	assert.Equal(t, StateImmediate, a.Performance.OperationalState)
	assert.Equal(t, []string{RecOilPressure}, a.Recommendations)
}

func TestEvaluate_CriticalAlwaysHighRisk(t *testing.T) {
	engine := NewEngine(nil, nil)

	// Any single critical parameter dominates whatever the others are.
	criticals := map[models.Parameter]float64{
		models.EngineRPM:       3300,
		models.LubOilPressure:  7,
		models.FuelPressure:    1,
		models.CoolantPressure: 0.2,
		models.LubOilTemp:      99,
		models.CoolantTemp:     40,
	}
	for p, v := range criticals {
		s := models.SensorSnapshot{
			EngineRPM: 650, LubOilPressure: 1.9, FuelPressure: 17,
			CoolantPressure: 3.8, LubOilTemp: 88, CoolantTemp: 90,
		}
		setValue(&s, p, v)

		a, err := engine.Evaluate(s)
		require.NoError(t, err)
		assert.Equal(t, models.RiskHigh, a.Maintenance.RiskLevel, p)
		assert.Equal(t, 0, a.Maintenance.NextServiceDistance, p)
	}
}

func TestEvaluate_RejectsNonFinite(t *testing.T) {
	s := idealSnapshot()
	s.CoolantTemp = math.NaN()

	a, err := NewEngine(nil, nil).Evaluate(s)
	assert.Nil(t, a)

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "coolant_temp", verr.Field)

	s = idealSnapshot()
	s.EngineRPM = math.Inf(1)
	_, err = NewEngine(nil, nil).Evaluate(s)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "engine_rpm", verr.Field)
}

func TestEvaluate_ConcurrentWithLockedSource(t *testing.T) {
	engine := NewEngine(nil, NewLockedSource(3))

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := engine.Evaluate(idealSnapshot())
			if err != nil {
				t.Error(err)
				return
			}
			if a.Health.RemainingDistance < 8740 || a.Health.RemainingDistance > 9660 {
				t.Errorf("remaining %d outside jitter band", a.Health.RemainingDistance)
			}
		}()
	}
	wg.Wait()
}

func TestWithSourceKeepsTable(t *testing.T) {
	base := NewEngine(nil, nil)
	seeded := base.WithSource(fixedSource(0))

	assert.Same(t, base.Table(), seeded.Table())

	a, err := seeded.Evaluate(idealSnapshot())
	require.NoError(t, err)
	assert.Equal(t, 8740, a.Health.RemainingDistance)
}

func setValue(s *models.SensorSnapshot, p models.Parameter, v float64) {
	switch p {
	case models.EngineRPM:
		s.EngineRPM = v
	case models.LubOilPressure:
		s.LubOilPressure = v
	case models.FuelPressure:
		s.FuelPressure = v
	case models.CoolantPressure:
		s.CoolantPressure = v
	case models.LubOilTemp:
		s.LubOilTemp = v
	case models.CoolantTemp:
		s.CoolantTemp = v
	}
}
