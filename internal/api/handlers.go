package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"engine-health-monitor/internal/classifier"
	"engine-health-monitor/internal/db"
	"engine-health-monitor/internal/models"
	"engine-health-monitor/internal/parser"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	maxBodyBytes        = 1 << 20
	defaultQueryLimit   = 100
	maxQueryLimit       = 1000
	defaultPageSize     = 10
	maxPageSize         = 100
	defaultAssessLimit  = 20
	maxAssessmentsLimit = 100
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		s.log.Error("health check failed", "err", err)
		respondError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"storage": s.db.Backend(),
	})
}

// handleLatestSensors returns a generated test snapshot; nothing is stored
func (s *Server) handleLatestSensors(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["vehicle_id"]
	reading := s.gen.Reading(vehicleID)
	respondJSON(w, http.StatusOK, reading)
}

func (s *Server) handleQueryReadings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	values := r.URL.Query()

	q := models.ReadingQuery{
		VehicleID: values.Get("vehicle_id"),
		Limit:     defaultQueryLimit,
	}

	var err error
	if q.Limit, err = intParam(values.Get("limit"), defaultQueryLimit, 1, maxQueryLimit); err != nil {
		respondError(w, http.StatusBadRequest, "limit "+err.Error())
		return
	}
	if q.Offset, err = intParam(values.Get("offset"), 0, 0, -1); err != nil {
		respondError(w, http.StatusBadRequest, "offset "+err.Error())
		return
	}
	if v := values.Get("start_time"); v != "" {
		if q.StartTime, err = time.Parse(time.RFC3339, v); err != nil {
			respondError(w, http.StatusBadRequest, "start_time must be RFC3339")
			return
		}
	}
	if v := values.Get("end_time"); v != "" {
		if q.EndTime, err = time.Parse(time.RFC3339, v); err != nil {
			respondError(w, http.StatusBadRequest, "end_time must be RFC3339")
			return
		}
	}

	results, err := s.db.QueryReadings(r.Context(), q)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondWithMeta(w, results, &meta{
		Total:   len(results),
		Limit:   q.Limit,
		Offset:  q.Offset,
		QueryMs: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleCreateReading(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	reading, err := parser.DecodeReading(body)
	if err != nil {
		respondDecodeError(w, err)
		return
	}
	if errs := parser.ValidateReading(&reading); len(errs) > 0 {
		respondError(w, http.StatusBadRequest, errs[0])
		return
	}

	if err := s.db.InsertReading(r.Context(), &reading); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.metrics.ReadingsIngested(1)

	respondJSON(w, http.StatusCreated, reading)
}

func (s *Server) handleBatchReadings(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON array")
		return
	}
	if len(raw) == 0 {
		respondError(w, http.StatusBadRequest, "empty array")
		return
	}

	records := make([]models.SensorReading, 0, len(raw))
	for i, item := range raw {
		reading, err := parser.DecodeReading(item)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("record %d: %v", i, err))
			return
		}
		if errs := parser.ValidateReading(&reading); len(errs) > 0 {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("record %d: %s", i, errs[0]))
			return
		}
		records = append(records, reading)
	}

	count, err := s.db.InsertReadingBatch(r.Context(), records)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.metrics.ReadingsIngested(int(count))

	respondJSON(w, http.StatusCreated, map[string]int64{"inserted": count})
}

func (s *Server) handleGetReading(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	reading, err := s.db.GetReading(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reading)
}

func (s *Server) handleDeleteReading(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.db.DeleteReading(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	vehicleID := mux.Vars(r)["vehicle_id"]
	values := r.URL.Query()

	page, err := intParam(values.Get("page"), 1, 1, -1)
	if err != nil {
		respondError(w, http.StatusBadRequest, "page "+err.Error())
		return
	}
	pageSize, err := intParam(values.Get("page_size"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, "page_size "+err.Error())
		return
	}

	result, err := s.db.History(r.Context(), vehicleID, page, pageSize)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if page > 1 && len(result.Results) == 0 {
		respondError(w, http.StatusNotFound, "invalid page")
		return
	}

	respondWithMeta(w, result.Results, &meta{
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
		QueryMs:  time.Since(start).Milliseconds(),
	})
}

// handleRemainingKM evaluates a freshly generated snapshot for the vehicle
func (s *Server) handleRemainingKM(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["vehicle_id"]
	reading := s.gen.Reading(vehicleID)

	a, err := s.evaluate(r.Context(), vehicleID, reading.Timestamp, reading.SensorSnapshot)
	if err != nil {
		respondDecodeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// handleAssess evaluates a posted snapshot. Assessments for a named vehicle
// are stored and published; anonymous ones are only returned.
func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	reading, err := parser.DecodeReading(body)
	if err != nil {
		respondDecodeError(w, err)
		return
	}

	a, err := s.evaluate(r.Context(), reading.VehicleID, reading.Timestamp, reading.SensorSnapshot)
	if err != nil {
		respondDecodeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// evaluate runs the engine, then records, stores and publishes the result.
// Storage and publish failures are logged and do not fail the request.
func (s *Server) evaluate(ctx context.Context, vehicleID string, ts time.Time, snap models.SensorSnapshot) (*models.HealthAssessment, error) {
	a, err := s.engine.Evaluate(snap)
	if err != nil {
		return nil, err
	}

	a.ID = uuid.NewString()
	a.VehicleID = vehicleID
	a.Timestamp = ts
	if a.Timestamp.IsZero() {
		a.Timestamp = s.now().UTC()
	}
	s.metrics.ObserveAssessment(a)

	if vehicleID == "" {
		return a, nil
	}

	if err := s.db.InsertAssessment(ctx, a); err != nil {
		s.log.Error("failed to store assessment", "vehicle_id", vehicleID, "assessment_id", a.ID, "err", err)
	}
	if err := s.publisher.Publish(ctx, a); err != nil {
		s.log.Warn("failed to publish assessment", "vehicle_id", vehicleID, "assessment_id", a.ID, "err", err)
	}
	return a, nil
}

func (s *Server) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["vehicle_id"]

	limit, err := intParam(r.URL.Query().Get("limit"), defaultAssessLimit, 1, maxAssessmentsLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, "limit "+err.Error())
		return
	}

	list, err := s.db.ListAssessments(r.Context(), vehicleID, limit)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondWithMeta(w, list, &meta{Total: len(list), Limit: limit})
}

func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	a, err := s.db.GetAssessment(r.Context(), vars["id"])
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if a.VehicleID != vars["vehicle_id"] {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	respondJSON(w, http.StatusOK, a)
}

type predictResponse struct {
	VehicleID  string                  `json:"vehicle_id"`
	Prediction models.Prediction       `json:"prediction"`
	Status     models.PredictionResult `json:"status"`
	Score      float64                 `json:"score"`
	ReadingID  int64                   `json:"reading_id,omitempty"`
}

// handlePredict asks the classifier for a verdict and keeps the reading in
// history. A failed save is logged only.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	reading, err := parser.DecodeReading(body)
	if err != nil {
		respondDecodeError(w, err)
		return
	}
	if reading.VehicleID == "" {
		respondError(w, http.StatusBadRequest, "vehicle_id is required")
		return
	}

	prediction, err := s.classifier.Predict(r.Context(), reading.SensorSnapshot)
	s.metrics.ObservePrediction(prediction, err)
	if err != nil {
		if errors.Is(err, classifier.ErrUnavailable) {
			s.log.Warn("classifier unavailable", "err", err)
			respondError(w, http.StatusServiceUnavailable, "prediction service unavailable")
			return
		}
		if errors.Is(err, context.Canceled) {
			s.log.Debug("prediction abandoned by client", "vehicle_id", reading.VehicleID)
			return
		}
		s.log.Error("prediction failed", "err", err)
		respondError(w, http.StatusInternalServerError, "error processing prediction")
		return
	}

	score := prediction.Score
	reading.PredictionResult = prediction.Condition
	reading.PredictionScore = &score

	resp := predictResponse{
		VehicleID:  reading.VehicleID,
		Prediction: prediction,
		Status:     prediction.Condition,
		Score:      score,
	}
	if err := s.db.InsertReading(r.Context(), &reading); err != nil {
		s.log.Error("failed to save prediction history", "vehicle_id", reading.VehicleID, "err", err)
	} else {
		s.metrics.ReadingsIngested(1)
		resp.ReadingID = reading.ID
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Helpers

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		respondError(w, http.StatusBadRequest, "failed to read body")
		return nil, false
	}
	return body, true
}

func respondDecodeError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		respondError(w, http.StatusBadRequest, verr.Error())
		return
	}
	respondError(w, http.StatusBadRequest, err.Error())
}

func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	s.log.Error("storage error", "err", err)
	respondError(w, http.StatusInternalServerError, "internal server error")
}

// intParam parses an optional integer query value. Values above hi are
// clamped; a negative hi leaves it unbounded.
func intParam(raw string, def, lo, hi int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if v < lo {
		return 0, fmt.Errorf("must be at least %d", lo)
	}
	if hi >= 0 && v > hi {
		v = hi
	}
	return v, nil
}
