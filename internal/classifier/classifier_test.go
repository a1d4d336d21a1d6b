package classifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engine-health-monitor/internal/models"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var snapshot = models.SensorSnapshot{
	EngineRPM: 1000, LubOilPressure: 3, FuelPressure: 8,
	CoolantPressure: 2, LubOilTemp: 78, CoolantTemp: 80,
}

func TestConditionFromScore(t *testing.T) {
	assert.Equal(t, models.PredictionHealthy, ConditionFromScore(0.51))
	assert.Equal(t, models.PredictionFaulty, ConditionFromScore(0.5))
	assert.Equal(t, models.PredictionFaulty, ConditionFromScore(0))
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Predict(context.Background(), snapshot)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClassifier_Predict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var got models.SensorSnapshot
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, snapshot, got)
		w.Write([]byte(`{"lstm_prediction": 0.73, "engine_condition": 1}`))
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, HTTPOptions{Logger: quietLogger})
	p, err := c.Predict(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Equal(t, 0.73, p.Score)
	assert.Equal(t, models.PredictionHealthy, p.Condition)
}

func TestHTTPClassifier_BadResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"server error", http.StatusInternalServerError, `{}`},
		{"missing score", http.StatusOK, `{"engine_condition": 1}`},
		{"score out of range", http.StatusOK, `{"lstm_prediction": 1.7}`},
		{"garbage", http.StatusOK, `not json`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.payload))
			}))
			defer srv.Close()

			c := NewHTTPClassifier(srv.URL, HTTPOptions{Logger: quietLogger})
			_, err := c.Predict(context.Background(), snapshot)
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestHTTPClassifier_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, HTTPOptions{Timeout: 20 * time.Millisecond, Logger: quietLogger})
	_, err := c.Predict(context.Background(), snapshot)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClassifier_BreakerOpensAndRecovers(t *testing.T) {
	var calls atomic.Int32
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !healthy.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"lstm_prediction": 0.2}`))
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, HTTPOptions{MaxFailures: 2, ResetTimeout: time.Minute, Logger: quietLogger})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.brk.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_, err := c.Predict(context.Background(), snapshot)
		require.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, int32(2), calls.Load())

	_, err := c.Predict(context.Background(), snapshot)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not reach the service")

	healthy.Store(true)
	now = now.Add(2 * time.Minute)
	p, err := c.Predict(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Equal(t, models.PredictionFaulty, p.Condition)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBreaker_HalfOpenAdmitsOneTrial(t *testing.T) {
	b := newBreaker(1, time.Minute, quietLogger)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	require.True(t, b.allow())
	b.failure(assert.AnError)
	assert.Equal(t, stateOpen, b.current())
	assert.False(t, b.allow())

	now = now.Add(2 * time.Minute)
	admitted := 0
	for i := 0; i < 5; i++ {
		if b.allow() {
			admitted++
		}
	}
	assert.Equal(t, 1, admitted)
	assert.Equal(t, stateHalfOpen, b.current())

	b.success()
	assert.Equal(t, stateClosed, b.current())
	assert.True(t, b.allow())
	assert.True(t, b.allow())
}

func TestBreaker_FailedTrialReopens(t *testing.T) {
	b := newBreaker(3, time.Minute, quietLogger)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		require.True(t, b.allow())
		b.failure(assert.AnError)
	}
	now = now.Add(2 * time.Minute)
	require.True(t, b.allow())
	b.failure(assert.AnError)

	assert.Equal(t, stateOpen, b.current())
	assert.False(t, b.allow(), "reset timeout restarts from the failed trial")

	now = now.Add(2 * time.Minute)
	assert.True(t, b.allow())
}

func TestBreaker_ReleasedTrialLetsNextCallerIn(t *testing.T) {
	b := newBreaker(1, time.Minute, quietLogger)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.failure(assert.AnError)
	now = now.Add(2 * time.Minute)
	require.True(t, b.allow())
	require.False(t, b.allow())

	b.release()
	assert.Equal(t, stateOpen, b.current())
	assert.True(t, b.allow())
}

func TestHTTPClassifier_CancelledCallerDoesNotTrip(t *testing.T) {
	started := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, HTTPOptions{MaxFailures: 1, Timeout: 5 * time.Second, Logger: quietLogger})

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-started
			cancel()
		}()
		_, err := c.Predict(ctx, snapshot)
		require.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrUnavailable)
		cancel()
	}
	assert.Equal(t, stateClosed, c.brk.current())
}
