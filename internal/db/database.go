package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"engine-health-monitor/internal/models"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported storage backends
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("db: not found")

// Database wraps the SQL connection for readings and assessments
type Database struct {
	conn    *sql.DB
	backend string
}

// New opens a SQLite database at dbPath
func New(dbPath string) (*Database, error) {
	return Open(BackendSQLite, dbPath)
}

// Open connects to the given backend. For sqlite dsn is a file path, for
// postgres a lib/pq connection string.
func Open(backend, dsn string) (*Database, error) {
	var (
		conn *sql.DB
		err  error
	)

	switch backend {
	case BackendSQLite, "":
		backend = BackendSQLite
		// Enable WAL mode and other optimizations via connection string
		connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000", dsn)
		conn, err = sql.Open("sqlite3", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		conn.SetMaxOpenConns(1) // SQLite works best with single writer
		conn.SetMaxIdleConns(1)
	case BackendPostgres:
		conn, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(5)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", backend)
	}
	conn.SetConnMaxLifetime(time.Hour)

	db := &Database{conn: conn, backend: backend}

	if err := db.initialize(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	vehicle_id TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	engine_rpm REAL NOT NULL,
	lub_oil_pressure REAL NOT NULL,
	fuel_pressure REAL NOT NULL,
	coolant_pressure REAL NOT NULL,
	lub_oil_temp REAL NOT NULL,
	coolant_temp REAL NOT NULL,
	prediction_result TEXT,
	prediction_score REAL
);

CREATE INDEX IF NOT EXISTS idx_readings_vehicle_timestamp ON readings(vehicle_id, timestamp);

CREATE TABLE IF NOT EXISTS assessments (
	id TEXT PRIMARY KEY,
	vehicle_id TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	overall_score REAL NOT NULL,
	status TEXT NOT NULL,
	risk_level TEXT NOT NULL,
	remaining_distance INTEGER NOT NULL,
	payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_vehicle_created ON assessments(vehicle_id, created_at);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS readings (
	id BIGSERIAL PRIMARY KEY,
	vehicle_id TEXT NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL,
	engine_rpm DOUBLE PRECISION NOT NULL,
	lub_oil_pressure DOUBLE PRECISION NOT NULL,
	fuel_pressure DOUBLE PRECISION NOT NULL,
	coolant_pressure DOUBLE PRECISION NOT NULL,
	lub_oil_temp DOUBLE PRECISION NOT NULL,
	coolant_temp DOUBLE PRECISION NOT NULL,
	prediction_result TEXT,
	prediction_score DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_readings_vehicle_timestamp ON readings(vehicle_id, timestamp);

CREATE TABLE IF NOT EXISTS assessments (
	id TEXT PRIMARY KEY,
	vehicle_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	overall_score DOUBLE PRECISION NOT NULL,
	status TEXT NOT NULL,
	risk_level TEXT NOT NULL,
	remaining_distance INTEGER NOT NULL,
	payload JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_vehicle_created ON assessments(vehicle_id, created_at);
`

// initialize creates tables and indexes
func (db *Database) initialize() error {
	schema := sqliteSchema
	if db.backend == BackendPostgres {
		schema = postgresSchema
	}
	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.conn.Close()
}

// Ping checks the connection is alive
func (db *Database) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Backend reports which storage backend is in use
func (db *Database) Backend() string {
	return db.backend
}

// rebind rewrites ? placeholders to $n for postgres
func (db *Database) rebind(query string) string {
	if db.backend != BackendPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const insertReading = `
	INSERT INTO readings
	(vehicle_id, timestamp, engine_rpm, lub_oil_pressure, fuel_pressure,
	 coolant_pressure, lub_oil_temp, coolant_temp, prediction_result, prediction_score)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const readingColumns = `
	id, vehicle_id, timestamp, engine_rpm, lub_oil_pressure, fuel_pressure,
	coolant_pressure, lub_oil_temp, coolant_temp, prediction_result, prediction_score
`

func readingArgs(r *models.SensorReading) []interface{} {
	var result sql.NullString
	if r.PredictionResult != "" {
		result = sql.NullString{String: string(r.PredictionResult), Valid: true}
	}
	var score sql.NullFloat64
	if r.PredictionScore != nil {
		score = sql.NullFloat64{Float64: *r.PredictionScore, Valid: true}
	}
	return []interface{}{
		r.VehicleID, r.Timestamp, r.EngineRPM, r.LubOilPressure, r.FuelPressure,
		r.CoolantPressure, r.LubOilTemp, r.CoolantTemp, result, score,
	}
}

// stamp fills in a missing timestamp and normalizes to UTC so stored
// values order correctly as text in SQLite
func stamp(r *models.SensorReading) {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	r.Timestamp = r.Timestamp.UTC()
}

// InsertReading adds a single reading and sets its ID
func (db *Database) InsertReading(ctx context.Context, r *models.SensorReading) error {
	stamp(r)
	args := readingArgs(r)

	if db.backend == BackendPostgres {
		return db.conn.QueryRowContext(ctx, db.rebind(insertReading)+" RETURNING id", args...).Scan(&r.ID)
	}

	result, err := db.conn.ExecContext(ctx, insertReading, args...)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// InsertReadingBatch inserts multiple readings in one transaction
func (db *Database) InsertReadingBatch(ctx context.Context, records []models.SensorReading) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, db.rebind(insertReading))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var count int64
	for i := range records {
		stamp(&records[i])
		if _, err := stmt.ExecContext(ctx, readingArgs(&records[i])...); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReading(s rowScanner) (models.SensorReading, error) {
	var (
		r      models.SensorReading
		result sql.NullString
		score  sql.NullFloat64
	)
	err := s.Scan(
		&r.ID, &r.VehicleID, &r.Timestamp, &r.EngineRPM, &r.LubOilPressure, &r.FuelPressure,
		&r.CoolantPressure, &r.LubOilTemp, &r.CoolantTemp, &result, &score,
	)
	if err != nil {
		return r, err
	}
	if result.Valid {
		r.PredictionResult = models.PredictionResult(result.String)
	}
	if score.Valid {
		v := score.Float64
		r.PredictionScore = &v
	}
	return r, nil
}

func (db *Database) queryReadings(ctx context.Context, query string, args ...interface{}) ([]models.SensorReading, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []models.SensorReading{}
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetReading retrieves a reading by ID
func (db *Database) GetReading(ctx context.Context, id int64) (*models.SensorReading, error) {
	query := `SELECT ` + readingColumns + ` FROM readings WHERE id = ?`

	r, err := scanReading(db.conn.QueryRowContext(ctx, db.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteReading removes a reading by ID
func (db *Database) DeleteReading(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, db.rebind(`DELETE FROM readings WHERE id = ?`), id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// QueryReadings retrieves readings matching the query, newest first
func (db *Database) QueryReadings(ctx context.Context, q models.ReadingQuery) ([]models.SensorReading, error) {
	var conditions []string
	var args []interface{}

	query := `SELECT ` + readingColumns + ` FROM readings`

	if q.VehicleID != "" {
		conditions = append(conditions, "vehicle_id = ?")
		args = append(args, q.VehicleID)
	}
	if !q.StartTime.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, q.StartTime.UTC())
	}
	if !q.EndTime.IsZero() {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, q.EndTime.UTC())
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY timestamp DESC, id DESC"

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
		if q.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", q.Offset)
		}
	}

	return db.queryReadings(ctx, query, args...)
}

// GetLatestReading returns the most recent reading for a vehicle
func (db *Database) GetLatestReading(ctx context.Context, vehicleID string) (*models.SensorReading, error) {
	results, err := db.QueryReadings(ctx, models.ReadingQuery{VehicleID: vehicleID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return &results[0], nil
}

// History returns one page of a vehicle's readings, newest first, along
// with the total number of readings stored for it. page is 1-based.
func (db *Database) History(ctx context.Context, vehicleID string, page, pageSize int) (*models.Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}

	var total int
	err := db.conn.QueryRowContext(ctx, db.rebind(`SELECT COUNT(*) FROM readings WHERE vehicle_id = ?`), vehicleID).Scan(&total)
	if err != nil {
		return nil, err
	}

	results, err := db.QueryReadings(ctx, models.ReadingQuery{
		VehicleID: vehicleID,
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
	})
	if err != nil {
		return nil, err
	}

	return &models.Page{Total: total, Page: page, PageSize: pageSize, Results: results}, nil
}

// InsertAssessment stores an evaluated assessment. The assessment must carry
// an ID and vehicle ID.
func (db *Database) InsertAssessment(ctx context.Context, a *models.HealthAssessment) error {
	if a.ID == "" || a.VehicleID == "" {
		return errors.New("assessment requires id and vehicle_id")
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	a.Timestamp = a.Timestamp.UTC()

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode assessment: %w", err)
	}

	query := `
		INSERT INTO assessments
		(id, vehicle_id, created_at, overall_score, status, risk_level, remaining_distance, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.conn.ExecContext(ctx, db.rebind(query),
		a.ID, a.VehicleID, a.Timestamp, a.Health.OverallScore, a.Health.Status,
		string(a.Maintenance.RiskLevel), a.Health.RemainingDistance, string(payload),
	)
	return err
}

// GetAssessment loads the full stored assessment by ID
func (db *Database) GetAssessment(ctx context.Context, id string) (*models.HealthAssessment, error) {
	var payload []byte
	err := db.conn.QueryRowContext(ctx, db.rebind(`SELECT payload FROM assessments WHERE id = ?`), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var a models.HealthAssessment
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decode assessment %s: %w", id, err)
	}
	return &a, nil
}

// ListAssessments returns stored assessment summaries for a vehicle, newest first
func (db *Database) ListAssessments(ctx context.Context, vehicleID string, limit int) ([]models.AssessmentSummary, error) {
	query := `
		SELECT id, vehicle_id, created_at, overall_score, status, risk_level, remaining_distance
		FROM assessments
		WHERE vehicle_id = ?
		ORDER BY created_at DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.conn.QueryContext(ctx, db.rebind(query), vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []models.AssessmentSummary{}
	for rows.Next() {
		var s models.AssessmentSummary
		var risk string
		if err := rows.Scan(&s.ID, &s.VehicleID, &s.CreatedAt, &s.OverallScore, &s.Status, &risk, &s.RemainingDistance); err != nil {
			return nil, err
		}
		s.RiskLevel = models.RiskLevel(risk)
		results = append(results, s)
	}
	return results, rows.Err()
}

// Stats summarizes the stored data
type Stats struct {
	TotalReadings       int64   `json:"total_readings"`
	TotalVehicles       int64   `json:"total_vehicles"`
	TotalAssessments    int64   `json:"total_assessments"`
	HighRiskAssessments int64   `json:"high_risk_assessments"`
	AverageScore        float64 `json:"average_score"`
	Backend             string  `json:"backend"`
}

// GetStats returns database statistics
func (db *Database) GetStats(ctx context.Context) (*Stats, error) {
	s := &Stats{Backend: db.backend}

	queries := []struct {
		query string
		dest  interface{}
	}{
		{`SELECT COUNT(*) FROM readings`, &s.TotalReadings},
		{`SELECT COUNT(DISTINCT vehicle_id) FROM readings`, &s.TotalVehicles},
		{`SELECT COUNT(*) FROM assessments`, &s.TotalAssessments},
		{`SELECT COUNT(*) FROM assessments WHERE risk_level = 'High'`, &s.HighRiskAssessments},
		{`SELECT COALESCE(AVG(overall_score), 0) FROM assessments`, &s.AverageScore},
	}
	for _, q := range queries {
		if err := db.conn.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	return s, nil
}
