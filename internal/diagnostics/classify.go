package diagnostics

import "engine-health-monitor/internal/models"

// Classify maps a reading to its zone. Unknown parameters yield ZoneUnknown.
func (t *Table) Classify(name models.Parameter, value float64) models.Zone {
	spec, ok := t.Lookup(name)
	if !ok {
		return models.ZoneUnknown
	}
	return classify(spec, value)
}

func classify(spec ParameterSpec, value float64) models.Zone {
	switch {
	case spec.Optimal.Contains(value):
		return models.ZoneOptimal
	case spec.Warning.Contains(value):
		return models.ZoneWarning
	default:
		return models.ZoneCritical
	}
}

// Deviation returns the percentage distance of value from the parameter's
// reference midpoint, rounded to one decimal. Unknown parameters yield 0.
func (t *Table) Deviation(name models.Parameter, value float64) float64 {
	spec, ok := t.Lookup(name)
	if !ok {
		return 0
	}
	mid := spec.DeviationRef.Midpoint()
	return round((value-mid)/mid*100, 1)
}

// Zones classifies every parameter of the snapshot in table order.
func (t *Table) Zones(s models.SensorSnapshot) map[models.Parameter]models.Zone {
	zones := make(map[models.Parameter]models.Zone, len(t.specs))
	for _, spec := range t.specs {
		v, ok := s.Value(spec.Name)
		if !ok {
			zones[spec.Name] = models.ZoneUnknown
			continue
		}
		zones[spec.Name] = classify(spec, v)
	}
	return zones
}

// Readings annotates every snapshot value with its unit, zone and deviation.
func (t *Table) Readings(s models.SensorSnapshot) []models.ParameterReading {
	out := make([]models.ParameterReading, 0, len(t.specs))
	for _, spec := range t.specs {
		v, ok := s.Value(spec.Name)
		if !ok {
			continue
		}
		out = append(out, models.ParameterReading{
			Parameter: spec.Name,
			Label:     spec.Label,
			Value:     v,
			Unit:      spec.Unit,
			Status:    classify(spec, v),
			Deviation: t.Deviation(spec.Name, v),
		})
	}
	return out
}
