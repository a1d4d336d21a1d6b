package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"engine-health-monitor/internal/auth"
	"engine-health-monitor/internal/classifier"
	"engine-health-monitor/internal/db"
	"engine-health-monitor/internal/diagnostics"
	"engine-health-monitor/internal/generator"
	"engine-health-monitor/internal/metrics"
	"engine-health-monitor/internal/publish"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Options carries the server's collaborators. Nil fields fall back to
// inert defaults.
type Options struct {
	Engine      *diagnostics.Engine
	Generator   *generator.Generator
	Classifier  classifier.Classifier
	Publisher   *publish.Publisher
	Metrics     *metrics.Metrics
	Verifier    *auth.Verifier
	Logger      *slog.Logger
	CORSOrigins []string
}

// Server represents the API server
type Server struct {
	db          *db.Database
	router      *mux.Router
	engine      *diagnostics.Engine
	gen         *generator.Generator
	classifier  classifier.Classifier
	publisher   *publish.Publisher
	metrics     *metrics.Metrics
	verifier    *auth.Verifier
	log         *slog.Logger
	corsOrigins []string
	now         func() time.Time
}

// NewServer creates a new API server
func NewServer(database *db.Database, opts Options) *Server {
	s := &Server{
		db:          database,
		router:      mux.NewRouter(),
		engine:      opts.Engine,
		gen:         opts.Generator,
		classifier:  opts.Classifier,
		publisher:   opts.Publisher,
		metrics:     opts.Metrics,
		verifier:    opts.Verifier,
		log:         opts.Logger,
		corsOrigins: opts.CORSOrigins,
		now:         time.Now,
	}
	if s.engine == nil {
		s.engine = diagnostics.NewEngine(nil, diagnostics.NewLockedSource(time.Now().UnixNano()))
	}
	if s.gen == nil {
		s.gen = generator.New(time.Now().UnixNano())
	}
	if s.classifier == nil {
		s.classifier = classifier.Disabled{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.Use(s.authMiddleware)

	// Sensor readings
	v1.HandleFunc("/sensors", s.handleQueryReadings).Methods("GET")
	v1.HandleFunc("/sensors", s.handleCreateReading).Methods("POST")
	v1.HandleFunc("/sensors/batch", s.handleBatchReadings).Methods("POST")
	v1.HandleFunc("/sensors/latest/{vehicle_id}", s.handleLatestSensors).Methods("GET")
	v1.HandleFunc("/sensors/{id:[0-9]+}", s.handleGetReading).Methods("GET")
	v1.HandleFunc("/sensors/{id:[0-9]+}", s.handleDeleteReading).Methods("DELETE")
	v1.HandleFunc("/history/{vehicle_id}", s.handleHistory).Methods("GET")

	// Health assessment
	v1.HandleFunc("/remaining-km/{vehicle_id}", s.handleRemainingKM).Methods("GET")
	v1.HandleFunc("/assess", s.handleAssess).Methods("POST")
	v1.HandleFunc("/assessments/{vehicle_id}", s.handleListAssessments).Methods("GET")
	v1.HandleFunc("/assessments/{vehicle_id}/{id}", s.handleGetAssessment).Methods("GET")

	// Condition classifier
	v1.HandleFunc("/predict/engine", s.handlePredict).Methods("POST")

	v1.HandleFunc("/stats", s.handleStats).Methods("GET")

	s.router.Use(s.metricsMiddleware)
	s.router.Use(jsonMiddleware)

	// Router middleware only runs on matched routes.
	s.router.NotFoundHandler = s.unmatched("not_found", http.StatusNotFound, "route not found")
	s.router.MethodNotAllowedHandler = s.unmatched("method_not_allowed", http.StatusMethodNotAllowed, "method not allowed")
}

// unmatched answers requests no route accepted, counted under label
func (s *Server) unmatched(label string, status int, message string) http.Handler {
	return s.metrics.WrapHandler(label, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		respondError(w, status, message)
	}))
}

// Router returns the configured router
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the router wrapped with CORS, panic recovery and access
// logging. Every request is logged, including unmatched and panicking ones.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	if len(s.corsOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(s.corsOrigins),
			handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		)(h)
	}
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.log}),
		handlers.PrintRecoveryStack(false),
	)(h)
	return s.loggingMiddleware(h)
}

type recoveryLogger struct {
	log *slog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error("panic recovered", "detail", fmt.Sprint(v...))
}

// Middleware

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

const requestIDHeader = "X-Request-ID"

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", id,
		)
	})
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.WrapHandler(route, next).ServeHTTP(w, r)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.verifier == nil {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := s.verifier.Verify(r.Header.Get("Authorization"))
		if err != nil {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Response helpers
type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    *meta       `json:"meta,omitempty"`
}

type meta struct {
	Total    int   `json:"total,omitempty"`
	Limit    int   `json:"limit,omitempty"`
	Offset   int   `json:"offset,omitempty"`
	Page     int   `json:"page,omitempty"`
	PageSize int   `json:"page_size,omitempty"`
	QueryMs  int64 `json:"query_ms,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: false, Error: message})
}

func respondWithMeta(w http.ResponseWriter, data interface{}, m *meta) {
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data, Meta: m})
}
