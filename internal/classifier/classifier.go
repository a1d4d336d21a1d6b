// Package classifier adapts an external engine-condition model to the
// monitor. The model itself is opaque: it maps the six readings to a score
// in [0,1] and the monitor only interprets that score.
package classifier

import (
	"context"
	"errors"

	"engine-health-monitor/internal/models"
)

// HealthyCutoff is the score above which an engine is reported healthy.
const HealthyCutoff = 0.5

// ErrUnavailable is returned when no classifier can serve a prediction.
var ErrUnavailable = errors.New("classifier: unavailable")

// Classifier predicts engine condition from a snapshot.
type Classifier interface {
	Predict(ctx context.Context, s models.SensorSnapshot) (models.Prediction, error)
}

// ConditionFromScore maps a model score to the stored verdict.
func ConditionFromScore(score float64) models.PredictionResult {
	if score > HealthyCutoff {
		return models.PredictionHealthy
	}
	return models.PredictionFaulty
}

// Disabled is the classifier used when no endpoint is configured.
type Disabled struct{}

// Predict always fails with ErrUnavailable.
func (Disabled) Predict(context.Context, models.SensorSnapshot) (models.Prediction, error) {
	return models.Prediction{}, ErrUnavailable
}
