package models

import "time"

// Zone is the discrete health classification of a single reading
type Zone string

const (
	ZoneOptimal  Zone = "Optimal"
	ZoneWarning  Zone = "Warning"
	ZoneCritical Zone = "Critical"
	ZoneUnknown  Zone = "Unknown"
)

// RiskLevel summarizes maintenance urgency across all parameters
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Rank orders risk levels Low < Medium < High. Unknown levels rank below Low.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	}
	return 0
}

// HealthAssessment is the full diagnostic result for one snapshot
type HealthAssessment struct {
	ID              string              `json:"id,omitempty"`
	VehicleID       string              `json:"vehicle_id,omitempty"`
	Timestamp       time.Time           `json:"timestamp"`
	Health          HealthMetrics       `json:"health_metrics"`
	Readings        []ParameterReading  `json:"current_readings"`
	Maintenance     MaintenancePlan     `json:"maintenance_recommendations"`
	Performance     PerformanceAnalysis `json:"performance_analysis"`
	Recommendations []string            `json:"operational_recommendations"`
}

// HealthMetrics holds the aggregate score and derived distance figures
type HealthMetrics struct {
	OverallScore            float64 `json:"overall_score"`
	Status                  string  `json:"status"`
	RemainingDistance       int     `json:"remaining_distance"`
	EstimatedMaintenanceDue int     `json:"estimated_maintenance_due"`
	DistanceUnit            string  `json:"distance_unit"`
}

// ParameterReading annotates one sensor value with its zone and deviation
type ParameterReading struct {
	Parameter Parameter `json:"parameter"`
	Label     string    `json:"label"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Status    Zone      `json:"status"`
	Deviation float64   `json:"deviation_from_ideal"`
}

// MaintenancePlan is the maintenance advisor output
type MaintenancePlan struct {
	UrgentActions       []string  `json:"urgent_actions"`
	PreventiveActions   []string  `json:"preventive_actions"`
	RiskLevel           RiskLevel `json:"risk_level"`
	NextServiceDistance int       `json:"next_service_estimate"`
	UrgentThreshold     int       `json:"urgent_maintenance_threshold"`
}

// PerformanceAnalysis is the performance analyst output
type PerformanceAnalysis struct {
	EfficiencyScore   float64 `json:"efficiency_score"`
	PowerOutputStatus string  `json:"power_output_status"`
	ThermalBalance    string  `json:"thermal_balance"`
	PressureSystems   string  `json:"pressure_systems"`
	OperationalState  string  `json:"operational_state"`
}

// AssessmentSummary is the stored, queryable view of an assessment
type AssessmentSummary struct {
	ID                string    `json:"id"`
	VehicleID         string    `json:"vehicle_id"`
	CreatedAt         time.Time `json:"created_at"`
	OverallScore      float64   `json:"overall_score"`
	Status            string    `json:"status"`
	RiskLevel         RiskLevel `json:"risk_level"`
	RemainingDistance int       `json:"remaining_distance"`
}
