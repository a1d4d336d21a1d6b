package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engine-health-monitor/internal/models"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWriter) messages() []kafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafka.Message(nil), f.msgs...)
}

type countingRecorder struct {
	mu sync.Mutex
	n  int
}

func (c *countingRecorder) PublishFailed() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *countingRecorder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func assessment(vehicle string) *models.HealthAssessment {
	return &models.HealthAssessment{
		ID:        "6f1c2a",
		VehicleID: vehicle,
		Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Health: models.HealthMetrics{
			OverallScore: 0.84, Status: "Good", RemainingDistance: 8800, DistanceUnit: "km",
		},
		Maintenance: models.MaintenancePlan{RiskLevel: models.RiskMedium, UrgentActions: []string{}},
	}
}

func TestPublishDelivers(t *testing.T) {
	w := &fakeWriter{}
	p := newWithWriter(Config{Enabled: true, Topic: "assessments"}, quietLogger, w, w, nil)
	p.Start(context.Background())

	require.NoError(t, p.Publish(context.Background(), assessment("VEH-001")))
	require.NoError(t, p.Stop(context.Background()))

	msgs := w.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "VEH-001", string(msgs[0].Key))
	assert.True(t, w.closed)

	var ev Event
	require.NoError(t, json.Unmarshal(msgs[0].Value, &ev))
	assert.Equal(t, EventTypeAssessment, ev.Type)
	assert.Equal(t, "v1", ev.SchemaVersion)
	assert.Equal(t, 0.84, ev.OverallScore)
	assert.Equal(t, models.RiskMedium, ev.RiskLevel)
	assert.Equal(t, 8800, ev.RemainingDistance)
}

func TestPublishWriteFailureIsCounted(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	rec := &countingRecorder{}
	p := newWithWriter(Config{Enabled: true, Topic: "assessments"}, quietLogger, w, w, rec)
	p.Start(context.Background())

	require.NoError(t, p.Publish(context.Background(), assessment("VEH-001")))
	require.NoError(t, p.Stop(context.Background()))
	assert.Equal(t, 1, rec.count())
}

func TestPublishBeforeStart(t *testing.T) {
	w := &fakeWriter{}
	p := newWithWriter(Config{Enabled: true, Topic: "assessments"}, quietLogger, w, w, nil)
	assert.ErrorIs(t, p.Publish(context.Background(), assessment("VEH-001")), errNotStarted)
}

func TestDisabledPublisherIsNoop(t *testing.T) {
	p, err := New(Config{}, quietLogger, nil)
	require.NoError(t, err)
	assert.False(t, p.Enabled())

	p.Start(context.Background())
	assert.NoError(t, p.Publish(context.Background(), assessment("VEH-001")))
	assert.NoError(t, p.Stop(context.Background()))
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Enabled: true, Brokers: []string{"localhost:9092"}}, quietLogger, nil)
	assert.ErrorContains(t, err, "topic")

	_, err = New(Config{Enabled: true, Topic: "assessments"}, quietLogger, nil)
	assert.ErrorContains(t, err, "broker")

	p, err := New(Config{Enabled: true, Topic: "assessments", Brokers: []string{"localhost:9092"}}, quietLogger, nil)
	require.NoError(t, err)
	assert.True(t, p.Enabled())
}
