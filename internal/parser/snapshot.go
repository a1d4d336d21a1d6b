package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"engine-health-monitor/internal/diagnostics"
	"engine-health-monitor/internal/models"
)

// fieldAliases maps each parameter to the keys accepted for it. The display
// labels ("Engine rpm", ...) are what the prediction endpoint historically took.
var fieldAliases = buildAliases()

func buildAliases() map[models.Parameter][]string {
	aliases := make(map[models.Parameter][]string, len(models.Parameters))
	for _, p := range models.Parameters {
		keys := []string{string(p)}
		if spec, ok := diagnostics.DefaultTable().Lookup(p); ok {
			keys = append(keys, spec.Label)
		}
		aliases[p] = keys
	}
	return aliases
}

// DecodeSnapshot parses a JSON object carrying all six readings.
// The first missing or non-numeric field refuses the whole payload with a
// *models.ValidationError.
func DecodeSnapshot(data []byte) (models.SensorSnapshot, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return models.SensorSnapshot{}, err
	}
	return snapshotFromFields(fields)
}

// DecodeReading parses a JSON object carrying a vehicle id, an optional
// timestamp and the six readings.
func DecodeReading(data []byte) (models.SensorReading, error) {
	var r models.SensorReading

	fields, err := decodeObject(data)
	if err != nil {
		return r, err
	}

	if raw, ok := fields["vehicle_id"]; ok {
		var id any
		if err := json.Unmarshal(raw, &id); err != nil {
			return r, &models.ValidationError{Field: "vehicle_id", Reason: "is malformed"}
		}
		switch v := id.(type) {
		case string:
			r.VehicleID = strings.TrimSpace(v)
		case float64:
			r.VehicleID = fmt.Sprintf("%v", v)
		}
	}

	if raw, ok := fields["timestamp"]; ok {
		var ts string
		if err := json.Unmarshal(raw, &ts); err == nil && ts != "" {
			t, err := parseTimestamp(ts)
			if err != nil {
				return r, &models.ValidationError{Field: "timestamp", Reason: err.Error()}
			}
			r.Timestamp = t
		}
	}

	r.SensorSnapshot, err = snapshotFromFields(fields)
	return r, err
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &fields); err != nil {
		return nil, &models.ValidationError{Field: "body", Reason: "must be a JSON object"}
	}
	if fields == nil {
		return nil, &models.ValidationError{Field: "body", Reason: "must be a JSON object"}
	}
	return fields, nil
}

func snapshotFromFields(fields map[string]json.RawMessage) (models.SensorSnapshot, error) {
	values := make(map[models.Parameter]float64, len(models.Parameters))

	for _, p := range models.Parameters {
		raw, found := lookupField(fields, p)
		if !found {
			return models.SensorSnapshot{}, &models.ValidationError{Field: string(p), Reason: "is required"}
		}
		v, err := parseNumber(raw)
		if err != nil {
			return models.SensorSnapshot{}, &models.ValidationError{Field: string(p), Reason: "must be numeric"}
		}
		values[p] = v
	}

	return models.SensorSnapshot{
		EngineRPM:       values[models.EngineRPM],
		LubOilPressure:  values[models.LubOilPressure],
		FuelPressure:    values[models.FuelPressure],
		CoolantPressure: values[models.CoolantPressure],
		LubOilTemp:      values[models.LubOilTemp],
		CoolantTemp:     values[models.CoolantTemp],
	}, nil
}

func lookupField(fields map[string]json.RawMessage, p models.Parameter) (json.RawMessage, bool) {
	for _, key := range fieldAliases[p] {
		if raw, ok := fields[key]; ok && string(raw) != "null" {
			return raw, true
		}
	}
	return nil, false
}

// parseNumber accepts JSON numbers only; numeric strings are refused.
func parseNumber(raw json.RawMessage) (float64, error) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not finite")
	}
	return v, nil
}
