package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"engine-health-monitor/internal/models"
)

// HTTPOptions configures an HTTPClassifier.
type HTTPOptions struct {
	Timeout      time.Duration
	MaxFailures  int
	ResetTimeout time.Duration
	Client       *http.Client
	Logger       *slog.Logger
}

// HTTPClassifier posts snapshots to an inference service. The service
// answers {"lstm_prediction": <score>}.
type HTTPClassifier struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	brk      *breaker
}

// NewHTTPClassifier creates a classifier for endpoint.
func NewHTTPClassifier(endpoint string, opts HTTPOptions) *HTTPClassifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 3
	}
	if opts.ResetTimeout <= 0 {
		opts.ResetTimeout = 30 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &HTTPClassifier{
		endpoint: endpoint,
		timeout:  opts.Timeout,
		client:   opts.Client,
		brk:      newBreaker(opts.MaxFailures, opts.ResetTimeout, opts.Logger.With("component", "classifier")),
	}
}

type predictResponse struct {
	Score *float64 `json:"lstm_prediction"`
}

// Predict sends s to the inference service. Transport failures, non-2xx
// answers and an open breaker all wrap ErrUnavailable. If ctx ends first,
// ctx.Err() is returned and the breaker is left as it was.
func (c *HTTPClassifier) Predict(ctx context.Context, s models.SensorSnapshot) (models.Prediction, error) {
	if !c.brk.allow() {
		return models.Prediction{}, fmt.Errorf("%w: circuit open", ErrUnavailable)
	}

	score, err := c.call(ctx, s)
	if err != nil {
		// The caller gave up; that says nothing about the service.
		if ctx.Err() != nil {
			c.brk.release()
			return models.Prediction{}, ctx.Err()
		}
		c.brk.failure(err)
		return models.Prediction{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.brk.success()

	return models.Prediction{Score: score, Condition: ConditionFromScore(score)}, nil
}

func (c *HTTPClassifier) call(ctx context.Context, s models.SensorSnapshot) (float64, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.CopyN(io.Discard, resp.Body, 512)
		return 0, fmt.Errorf("bad status: %d", resp.StatusCode)
	}

	var out predictResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if out.Score == nil || math.IsNaN(*out.Score) || *out.Score < 0 || *out.Score > 1 {
		return 0, fmt.Errorf("response carries no score in [0,1]")
	}
	return *out.Score, nil
}
