package diagnostics

import (
	"math"

	"engine-health-monitor/internal/models"
)

// Engine runs the full evaluation pass over a snapshot.
// The zero value is not usable; call NewEngine.
type Engine struct {
	table *Table
	src   RandomSource
}

// NewEngine creates an engine over table, drawing distance jitter from src.
// A nil table selects DefaultTable. A nil src disables jitter.
func NewEngine(table *Table, src RandomSource) *Engine {
	if table == nil {
		table = DefaultTable()
	}
	return &Engine{table: table, src: src}
}

// WithSource returns a copy of the engine that draws jitter from src.
func (e *Engine) WithSource(src RandomSource) *Engine {
	return &Engine{table: e.table, src: src}
}

// Table returns the parameter table the engine evaluates against.
func (e *Engine) Table() *Table {
	return e.table
}

// Evaluate validates the snapshot and derives its health assessment.
// The returned assessment is freshly allocated and owned by the caller.
func (e *Engine) Evaluate(s models.SensorSnapshot) (*models.HealthAssessment, error) {
	if err := ValidateSnapshot(s); err != nil {
		return nil, err
	}

	score := e.table.Score(s)
	remaining := EstimateDistance(score, e.src)

	return &models.HealthAssessment{
		Health: models.HealthMetrics{
			OverallScore:            score,
			Status:                  Status(score),
			RemainingDistance:       remaining,
			EstimatedMaintenanceDue: MaintenanceDue(remaining),
			DistanceUnit:            DistanceUnit,
		},
		Readings:        e.table.Readings(s),
		Maintenance:     e.table.Advise(s),
		Performance:     e.table.Analyze(s),
		Recommendations: Compose(s, score),
	}, nil
}

// ValidateSnapshot rejects snapshots carrying NaN or infinite readings.
func ValidateSnapshot(s models.SensorSnapshot) error {
	for _, p := range models.Parameters {
		v, _ := s.Value(p)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &models.ValidationError{Field: string(p), Reason: "must be a finite number"}
		}
	}
	return nil
}
