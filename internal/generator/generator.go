// Package generator produces random sensor snapshots for testing the
// diagnostic pipeline. It never touches a global random source.
package generator

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"engine-health-monitor/internal/models"
)

// Reading ranges. Pressures are kPa, temperatures °C.
const (
	MinRPM      = 400.0
	MaxRPM      = 1500.0
	MinPressure = 2.0
	MaxPressure = 30.0
	MinTemp     = 20.0
	MaxTemp     = 90.0
)

// Generator draws snapshots from a seeded source. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// New creates a Generator seeded with seed.
func New(seed int64) *Generator {
	return &Generator{
		rnd: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// Reseed restarts the generator's sequence from seed.
func (g *Generator) Reseed(seed int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rnd.Seed(seed)
}

// Snapshot returns a random snapshot within the configured ranges.
func (g *Generator) Snapshot() models.SensorSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	return models.SensorSnapshot{
		EngineRPM:       g.uniform(MinRPM, MaxRPM),
		LubOilPressure:  g.uniform(MinPressure, MaxPressure),
		FuelPressure:    g.uniform(MinPressure, MaxPressure),
		CoolantPressure: g.uniform(MinPressure, MaxPressure),
		LubOilTemp:      g.uniform(MinTemp, MaxTemp),
		CoolantTemp:     g.uniform(MinTemp, MaxTemp),
	}
}

// Reading returns a random reading for vehicleID stamped with the current time.
func (g *Generator) Reading(vehicleID string) models.SensorReading {
	return models.SensorReading{
		VehicleID:      vehicleID,
		Timestamp:      g.now().UTC(),
		SensorSnapshot: g.Snapshot(),
	}
}

// Fleet generates count readings spread across vehicles VEH-001..VEH-n,
// one second apart starting at start.
func (g *Generator) Fleet(vehicles, count int, start time.Time) []models.SensorReading {
	if vehicles < 1 {
		vehicles = 1
	}
	records := make([]models.SensorReading, 0, count)
	for i := 0; i < count; i++ {
		g.mu.Lock()
		v := g.rnd.Intn(vehicles) + 1
		g.mu.Unlock()

		records = append(records, models.SensorReading{
			VehicleID:      VehicleID(v),
			Timestamp:      start.Add(time.Duration(i) * time.Second),
			SensorSnapshot: g.Snapshot(),
		})
	}
	return records
}

// VehicleID formats the n-th sample vehicle identifier.
func VehicleID(n int) string {
	return fmt.Sprintf("VEH-%03d", n)
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*g.rnd.Float64()
}
