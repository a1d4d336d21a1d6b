package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"engine-health-monitor/internal/diagnostics"
	"engine-health-monitor/internal/models"
)

// Parser handles parsing of sensor reading files
type Parser struct {
	format string
	log    *slog.Logger
}

// NewParser creates a new parser with the specified format
func NewParser(format string) *Parser {
	return &Parser{format: format, log: slog.Default()}
}

// ParseFile parses a sensor reading file
func (p *Parser) ParseFile(filename string) ([]models.SensorReading, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return p.Parse(file)
}

// Parse reads sensor readings from r in the parser's format
func (p *Parser) Parse(r io.Reader) ([]models.SensorReading, error) {
	switch strings.ToLower(p.format) {
	case "csv":
		return p.parseCSV(r)
	case "json":
		return p.parseJSON(r)
	case "jsonl":
		return p.parseJSONLines(r)
	case "log":
		return p.parseLog(r)
	default:
		return nil, fmt.Errorf("unsupported format: %s", p.format)
	}
}

// parseCSV parses CSV formatted readings keyed by header names
func (p *Parser) parseCSV(r io.Reader) ([]models.SensorReading, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable fields

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	indices := make(map[string]int)
	for i, h := range header {
		indices[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, param := range models.Parameters {
		if _, ok := indices[string(param)]; !ok {
			return nil, fmt.Errorf("header is missing column %s", param)
		}
	}

	var results []models.SensorReading
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return results, fmt.Errorf("error at line %d: %w", lineNum, err)
		}
		lineNum++

		reading, err := recordToReading(record, indices)
		if err != nil {
			p.log.Warn("skipping record", "line", lineNum, "err", err)
			continue
		}
		results = append(results, reading)
	}

	return results, nil
}

// recordToReading converts a CSV record to a SensorReading
func recordToReading(record []string, indices map[string]int) (models.SensorReading, error) {
	var r models.SensorReading

	getValue := func(key string) string {
		if idx, ok := indices[key]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	r.VehicleID = getValue("vehicle_id")
	if r.VehicleID == "" {
		return r, &models.ValidationError{Field: "vehicle_id", Reason: "is required"}
	}

	if ts := getValue("timestamp"); ts != "" {
		t, err := parseTimestamp(ts)
		if err != nil {
			return r, fmt.Errorf("invalid timestamp: %w", err)
		}
		r.Timestamp = t
	}

	values := make([]string, len(models.Parameters))
	for i, p := range models.Parameters {
		values[i] = getValue(string(p))
	}
	snap, err := snapshotFromStrings(values)
	if err != nil {
		return r, err
	}
	r.SensorSnapshot = snap
	return r, nil
}

// snapshotFromStrings parses the six readings in models.Parameters order
func snapshotFromStrings(values []string) (models.SensorSnapshot, error) {
	parsed := make([]float64, len(models.Parameters))
	for i, p := range models.Parameters {
		if i >= len(values) || strings.TrimSpace(values[i]) == "" {
			return models.SensorSnapshot{}, &models.ValidationError{Field: string(p), Reason: "is required"}
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(values[i]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return models.SensorSnapshot{}, &models.ValidationError{Field: string(p), Reason: "must be numeric"}
		}
		parsed[i] = v
	}
	return models.SensorSnapshot{
		EngineRPM:       parsed[0],
		LubOilPressure:  parsed[1],
		FuelPressure:    parsed[2],
		CoolantPressure: parsed[3],
		LubOilTemp:      parsed[4],
		CoolantTemp:     parsed[5],
	}, nil
}

// parseJSON parses a JSON array of readings, falling back to JSON lines
func (p *Parser) parseJSON(r io.Reader) ([]models.SensorReading, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return p.parseJSONLines(bytes.NewReader(data))
	}

	var results []models.SensorReading
	for i, item := range raw {
		reading, err := DecodeReading(item)
		if err != nil {
			p.log.Warn("skipping record", "index", i, "err", err)
			continue
		}
		results = append(results, reading)
	}
	return results, nil
}

// parseJSONLines parses newline-delimited JSON
func (p *Parser) parseJSONLines(r io.Reader) ([]models.SensorReading, error) {
	var results []models.SensorReading
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == "[" || line == "]" {
			continue
		}

		// Remove trailing comma if present
		line = strings.TrimSuffix(line, ",")

		reading, err := DecodeReading([]byte(line))
		if err != nil {
			p.log.Warn("skipping record", "line", lineNum, "err", err)
			continue
		}
		results = append(results, reading)
	}

	return results, scanner.Err()
}

// parseLog parses pipe-delimited lines:
// timestamp|vehicle_id|rpm|oil_pressure|fuel_pressure|coolant_pressure|oil_temp|coolant_temp
func (p *Parser) parseLog(r io.Reader) ([]models.SensorReading, error) {
	var results []models.SensorReading
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "|")
		if len(parts) < 2+len(models.Parameters) {
			p.log.Warn("skipping record", "line", lineNum, "err", "insufficient fields")
			continue
		}

		ts, err := parseTimestamp(strings.TrimSpace(parts[0]))
		if err != nil {
			p.log.Warn("skipping record", "line", lineNum, "err", err)
			continue
		}

		snap, err := snapshotFromStrings(parts[2:])
		if err != nil {
			p.log.Warn("skipping record", "line", lineNum, "err", err)
			continue
		}

		results = append(results, models.SensorReading{
			VehicleID:      strings.TrimSpace(parts[1]),
			Timestamp:      ts,
			SensorSnapshot: snap,
		})
	}

	return results, scanner.Err()
}

// parseTimestamp tries multiple timestamp formats
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006/01/02 15:04:05",
		"01/02/2006 15:04:05",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	// Try Unix timestamp
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(ts, 0).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", s)
}

// ValidateReading validates a sensor reading
func ValidateReading(r *models.SensorReading) []string {
	var errs []string

	if strings.TrimSpace(r.VehicleID) == "" {
		errs = append(errs, "vehicle_id is required")
	}
	if len(r.VehicleID) > 50 {
		errs = append(errs, "vehicle_id must be at most 50 characters")
	}
	if err := diagnostics.ValidateSnapshot(r.SensorSnapshot); err != nil {
		errs = append(errs, err.Error())
	}
	if r.EngineRPM < 0 {
		errs = append(errs, "engine_rpm cannot be negative")
	}

	return errs
}
