package models

import "time"

// Parameter names one of the six engine sensor channels
type Parameter string

const (
	EngineRPM       Parameter = "engine_rpm"
	LubOilPressure  Parameter = "lub_oil_pressure"
	FuelPressure    Parameter = "fuel_pressure"
	CoolantPressure Parameter = "coolant_pressure"
	LubOilTemp      Parameter = "lub_oil_temp"
	CoolantTemp     Parameter = "coolant_temp"
)

// Parameters lists every sensor channel in evaluation order
var Parameters = []Parameter{
	EngineRPM,
	LubOilPressure,
	FuelPressure,
	CoolantPressure,
	LubOilTemp,
	CoolantTemp,
}

// SensorSnapshot is one complete set of engine readings at a point in time
type SensorSnapshot struct {
	EngineRPM       float64 `json:"engine_rpm"`
	LubOilPressure  float64 `json:"lub_oil_pressure"` // kPa
	FuelPressure    float64 `json:"fuel_pressure"`    // kPa
	CoolantPressure float64 `json:"coolant_pressure"` // kPa
	LubOilTemp      float64 `json:"lub_oil_temp"`     // Celsius
	CoolantTemp     float64 `json:"coolant_temp"`     // Celsius
}

// Value returns the reading for p. The boolean is false for unknown parameters.
func (s SensorSnapshot) Value(p Parameter) (float64, bool) {
	switch p {
	case EngineRPM:
		return s.EngineRPM, true
	case LubOilPressure:
		return s.LubOilPressure, true
	case FuelPressure:
		return s.FuelPressure, true
	case CoolantPressure:
		return s.CoolantPressure, true
	case LubOilTemp:
		return s.LubOilTemp, true
	case CoolantTemp:
		return s.CoolantTemp, true
	}
	return 0, false
}

// PredictionResult is the stored classifier verdict for a reading
type PredictionResult string

const (
	PredictionHealthy PredictionResult = "H"
	PredictionFaulty  PredictionResult = "F"
)

// Display returns the human readable form of the verdict
func (p PredictionResult) Display() string {
	switch p {
	case PredictionHealthy:
		return "Healthy"
	case PredictionFaulty:
		return "Faulty"
	}
	return ""
}

// SensorReading is a stored snapshot for a vehicle
type SensorReading struct {
	ID        int64     `json:"id"`
	VehicleID string    `json:"vehicle_id"`
	Timestamp time.Time `json:"timestamp"`
	SensorSnapshot
	PredictionResult PredictionResult `json:"prediction_result,omitempty"`
	PredictionScore  *float64         `json:"prediction_score,omitempty"`
}

// ReadingQuery represents query parameters for reading searches
type ReadingQuery struct {
	VehicleID string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// Page is one page of vehicle history
type Page struct {
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Results  []SensorReading `json:"results"`
}

// Prediction is the opaque engine-condition classifier output
type Prediction struct {
	Score     float64          `json:"score"`
	Condition PredictionResult `json:"condition"`
}
