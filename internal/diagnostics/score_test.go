package diagnostics

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engine-health-monitor/internal/models"
)

// idealSnapshot has every reading inside its ideal band.
func idealSnapshot() models.SensorSnapshot {
	return models.SensorSnapshot{
		EngineRPM:       1000,
		LubOilPressure:  3.0,
		FuelPressure:    8.0,
		CoolantPressure: 2.0,
		LubOilTemp:      78,
		CoolantTemp:     80,
	}
}

func rpmSpec(t *testing.T) ParameterSpec {
	spec, ok := DefaultTable().Lookup(models.EngineRPM)
	require.True(t, ok)
	return spec
}

func TestParameterScore_Bands(t *testing.T) {
	spec := rpmSpec(t)

	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{"ideal lower edge", 800, 1.0},
		{"ideal upper edge", 2200, 1.0},
		{"inside ideal", 1500, 1.0},
		{"acceptable lower edge", 600, 0.7},
		{"acceptable upper edge", 2800, 0.7},
		{"halfway below ideal", 700, 0.85},
		{"halfway above ideal", 2500, 0.85},
		{"below acceptable", 300, 0.35},
		{"above acceptable", 3500, 0.56},
		{"negative reading floors at zero", -50, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, ParameterScore(spec, tc.value), 1e-9)
		})
	}
}

func TestScore_AllIdeal(t *testing.T) {
	assert.Equal(t, 1.0, DefaultTable().Score(idealSnapshot()))
}

func TestScore_IdealBoundaries(t *testing.T) {
	lower := models.SensorSnapshot{
		EngineRPM: 800, LubOilPressure: 2.0, FuelPressure: 3.0,
		CoolantPressure: 1.2, LubOilTemp: 70, CoolantTemp: 70,
	}
	upper := models.SensorSnapshot{
		EngineRPM: 2200, LubOilPressure: 5.0, FuelPressure: 16.0,
		CoolantPressure: 3.5, LubOilTemp: 85, CoolantTemp: 88,
	}
	assert.Equal(t, 1.0, DefaultTable().Score(lower))
	assert.Equal(t, 1.0, DefaultTable().Score(upper))
}

func TestScore_LowOilPressure(t *testing.T) {
	s := idealSnapshot()
	s.LubOilPressure = 0.5

	spec, _ := DefaultTable().Lookup(models.LubOilPressure)
	assert.InDelta(t, 0.7*0.5/1.8, ParameterScore(spec, 0.5), 1e-9)

	// 0.8 from the ideal parameters + 0.2 * 0.1944
	assert.Equal(t, 0.84, DefaultTable().Score(s))
}

func TestScore_RoundedToTwoDecimals(t *testing.T) {
	s := idealSnapshot()
	s.EngineRPM = 700  // 0.85 * 0.20 = 0.17
	s.CoolantTemp = 91 // 0.775 * 0.15 = 0.11625

	// 0.65 + 0.17 + 0.11625 = 0.93625
	assert.Equal(t, 0.94, DefaultTable().Score(s))
}

func TestScore_AlwaysInUnitInterval(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	table := DefaultTable()

	for i := 0; i < 2000; i++ {
		s := models.SensorSnapshot{
			EngineRPM:       rnd.Float64()*8000 - 500,
			LubOilPressure:  rnd.Float64()*60 - 5,
			FuelPressure:    rnd.Float64()*60 - 5,
			CoolantPressure: rnd.Float64()*60 - 5,
			LubOilTemp:      rnd.Float64()*200 - 40,
			CoolantTemp:     rnd.Float64()*200 - 40,
		}
		score := table.Score(s)
		require.GreaterOrEqual(t, score, 0.0, "snapshot %+v", s)
		require.LessOrEqual(t, score, 1.0, "snapshot %+v", s)
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{1.0, StatusExcellent},
		{0.85, StatusExcellent},
		{0.84, StatusGood},
		{0.70, StatusGood},
		{0.69, StatusFair},
		{0.50, StatusFair},
		{0.49, StatusPoor},
		{0.30, StatusPoor},
		{0.29, StatusCritical},
		{0, StatusCritical},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Status(tc.score), "score %.2f", tc.score)
	}
}
