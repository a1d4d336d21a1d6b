package main

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engine-health-monitor/internal/config"
	"engine-health-monitor/internal/diagnostics"
	"engine-health-monitor/internal/generator"
	"engine-health-monitor/internal/models"
)

func fleet(t *testing.T, n int) []models.SensorReading {
	t.Helper()
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	return generator.New(11).Fleet(4, n, start)
}

func TestAssessReadings_Deterministic(t *testing.T) {
	readings := fleet(t, 40)
	engine := diagnostics.NewEngine(nil, nil)

	first, err := assessReadings(context.Background(), engine, readings, 99, 8)
	require.NoError(t, err)
	second, err := assessReadings(context.Background(), engine, readings, 99, 1)
	require.NoError(t, err)

	require.Len(t, first, len(readings))
	require.Len(t, second, len(readings))
	for i := range first {
		assert.NotEqual(t, first[i].ID, second[i].ID)
		first[i].ID, second[i].ID = "", ""
		assert.Equal(t, first[i], second[i], "reading %d", i)
	}
}

func TestAssessReadings_PreservesOrder(t *testing.T) {
	readings := fleet(t, 25)

	results, err := assessReadings(context.Background(), diagnostics.NewEngine(nil, nil), readings, 1, 4)
	require.NoError(t, err)

	for i, a := range results {
		assert.Equal(t, readings[i].VehicleID, a.VehicleID)
		assert.True(t, readings[i].Timestamp.Equal(a.Timestamp))
		assert.NotEmpty(t, a.ID)
	}
}

func TestAssessReadings_InvalidReading(t *testing.T) {
	readings := fleet(t, 5)
	readings[3].CoolantTemp = math.NaN()

	_, err := assessReadings(context.Background(), diagnostics.NewEngine(nil, nil), readings, 1, 2)
	require.Error(t, err)

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, string(models.CoolantTemp), verr.Field)
	assert.Contains(t, err.Error(), "reading 4")
}

func TestAssessReadings_ZeroWorkers(t *testing.T) {
	results, err := assessReadings(context.Background(), diagnostics.NewEngine(nil, nil), fleet(t, 3), 5, 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSeedFromConfig(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev })

	cfg = config.Default()
	cfg.Engine.Seed = 42
	assert.Equal(t, int64(7), seedFromConfig(7))
	assert.Equal(t, int64(42), seedFromConfig(0))

	cfg.Engine.Seed = 0
	assert.NotZero(t, seedFromConfig(0))
}
