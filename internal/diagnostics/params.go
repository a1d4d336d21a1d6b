package diagnostics

import (
	"errors"
	"fmt"
	"math"

	"engine-health-monitor/internal/models"
)

// weightTolerance bounds the float error allowed when summing weights.
const weightTolerance = 1e-9

// Range is an inclusive [Min, Max] interval
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies inside the inclusive bounds
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Within reports whether r is nested inside outer
func (r Range) Within(outer Range) bool {
	return r.Min >= outer.Min && r.Max <= outer.Max
}

// Midpoint returns the centre of the range
func (r Range) Midpoint() float64 {
	return (r.Min + r.Max) / 2
}

// ParameterSpec is the static configuration for one sensor channel.
type ParameterSpec struct {
	Name  models.Parameter
	Label string
	Unit  string

	// Health scorer bands. Ideal must sit inside Acceptable.
	Ideal      Range
	Acceptable Range

	// Zone classifier bands. Optimal ⊆ Warning ⊆ Critical.
	Optimal  Range
	Warning  Range
	Critical Range

	// DeviationRef is the band whose midpoint anchors deviation percentages.
	DeviationRef Range

	Weight float64
}

// DefaultSpecs returns the engine parameter tables. Weights sum to 1.0.
func DefaultSpecs() []ParameterSpec {
	return []ParameterSpec{
		{
			Name: models.EngineRPM, Label: "Engine rpm", Unit: "RPM",
			Ideal: Range{800, 2200}, Acceptable: Range{600, 2800},
			Optimal: Range{800, 2200}, Warning: Range{600, 2800}, Critical: Range{400, 3200},
			DeviationRef: Range{700, 2500},
			Weight:       0.20,
		},
		{
			Name: models.LubOilPressure, Label: "Lub oil pressure", Unit: "kPa",
			Ideal: Range{2.0, 5.0}, Acceptable: Range{1.8, 5.5},
			Optimal: Range{2.0, 5.0}, Warning: Range{1.8, 5.5}, Critical: Range{1.5, 6.0},
			DeviationRef: Range{2.5, 4.5},
			Weight:       0.20,
		},
		{
			Name: models.FuelPressure, Label: "Fuel pressure", Unit: "kPa",
			Ideal: Range{3.0, 16.0}, Acceptable: Range{2.5, 18.0},
			Optimal: Range{3.0, 16.0}, Warning: Range{2.5, 18.0}, Critical: Range{2.0, 20.0},
			DeviationRef: Range{3.5, 15.0},
			Weight:       0.15,
		},
		{
			Name: models.CoolantPressure, Label: "Coolant pressure", Unit: "kPa",
			Ideal: Range{1.2, 3.5}, Acceptable: Range{1.0, 4.0},
			Optimal: Range{1.2, 3.5}, Warning: Range{1.0, 4.0}, Critical: Range{0.8, 4.5},
			DeviationRef: Range{1.5, 3.0},
			Weight:       0.15,
		},
		{
			Name: models.LubOilTemp, Label: "Lub oil temp", Unit: "°C",
			Ideal: Range{70.0, 85.0}, Acceptable: Range{65.0, 90.0},
			Optimal: Range{70.0, 85.0}, Warning: Range{65.0, 90.0}, Critical: Range{60.0, 95.0},
			DeviationRef: Range{75.0, 82.0},
			Weight:       0.15,
		},
		{
			Name: models.CoolantTemp, Label: "Coolant temp", Unit: "°C",
			Ideal: Range{70.0, 88.0}, Acceptable: Range{65.0, 92.0},
			Optimal: Range{70.0, 88.0}, Warning: Range{65.0, 92.0}, Critical: Range{60.0, 97.0},
			DeviationRef: Range{75.0, 85.0},
			Weight:       0.15,
		},
	}
}

// Table is an immutable, validated set of parameter specs.
// It is safe for concurrent use.
type Table struct {
	specs []ParameterSpec
	index map[models.Parameter]int
}

// NewTable validates specs and returns a Table holding a private copy.
func NewTable(specs []ParameterSpec) (*Table, error) {
	if len(specs) == 0 {
		return nil, errors.New("parameter table is empty")
	}

	t := &Table{
		specs: make([]ParameterSpec, len(specs)),
		index: make(map[models.Parameter]int, len(specs)),
	}
	copy(t.specs, specs)

	var total float64
	for i, s := range t.specs {
		if _, dup := t.index[s.Name]; dup {
			return nil, fmt.Errorf("parameter %s: duplicate entry", s.Name)
		}
		if err := validateSpec(s); err != nil {
			return nil, fmt.Errorf("parameter %s: %w", s.Name, err)
		}
		t.index[s.Name] = i
		total += s.Weight
	}

	if math.Abs(total-1.0) > weightTolerance {
		return nil, fmt.Errorf("weights sum to %.6f, want 1.0", total)
	}
	return t, nil
}

// MustTable is like NewTable but panics on a configuration error.
func MustTable(specs []ParameterSpec) *Table {
	t, err := NewTable(specs)
	if err != nil {
		panic("diagnostics: " + err.Error())
	}
	return t
}

func validateSpec(s ParameterSpec) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if !(s.Weight > 0) {
		return fmt.Errorf("weight must be > 0, got %v", s.Weight)
	}

	ranges := []struct {
		name string
		r    Range
	}{
		{"ideal", s.Ideal},
		{"acceptable", s.Acceptable},
		{"optimal", s.Optimal},
		{"warning", s.Warning},
		{"critical", s.Critical},
		{"deviation reference", s.DeviationRef},
	}
	for _, nr := range ranges {
		if math.IsNaN(nr.r.Min) || math.IsNaN(nr.r.Max) || nr.r.Min > nr.r.Max {
			return fmt.Errorf("%s range [%v, %v] is inverted", nr.name, nr.r.Min, nr.r.Max)
		}
	}

	if !s.Ideal.Within(s.Acceptable) {
		return errors.New("ideal range must lie inside acceptable range")
	}
	// The out-of-band decay divides by the acceptable bounds and the reading.
	if s.Acceptable.Min <= 0 {
		return errors.New("acceptable minimum must be positive")
	}
	if !s.Optimal.Within(s.Warning) {
		return errors.New("optimal range must lie inside warning range")
	}
	if !s.Warning.Within(s.Critical) {
		return errors.New("warning range must lie inside critical range")
	}
	if s.DeviationRef.Midpoint() == 0 {
		return errors.New("deviation midpoint must be non-zero")
	}
	return nil
}

// Specs returns a copy of the table entries in evaluation order.
func (t *Table) Specs() []ParameterSpec {
	out := make([]ParameterSpec, len(t.specs))
	copy(out, t.specs)
	return out
}

// Lookup returns the spec for name.
func (t *Table) Lookup(name models.Parameter) (ParameterSpec, bool) {
	i, ok := t.index[name]
	if !ok {
		return ParameterSpec{}, false
	}
	return t.specs[i], true
}

// defaultTable is built at process start; a bad table stops the process.
var defaultTable = MustTable(DefaultSpecs())

// DefaultTable returns the validated built-in parameter table.
func DefaultTable() *Table {
	return defaultTable
}
