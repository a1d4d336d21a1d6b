// Package publish emits assessment events to Kafka. Delivery is
// asynchronous and best effort: a failed write is logged and counted,
// never surfaced to the API caller.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"engine-health-monitor/internal/models"
)

// EventTypeAssessment tags every published payload
const EventTypeAssessment = "engine.assessment"

const (
	schemaVersion = "v1"
	queueSize     = 256
)

// Config holds the publisher options
type Config struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// Event is the wire payload for one assessment
type Event struct {
	Type              string           `json:"type"`
	SchemaVersion     string           `json:"schemaVersion"`
	ID                string           `json:"id"`
	VehicleID         string           `json:"vehicleId"`
	Timestamp         time.Time        `json:"timestamp"`
	OverallScore      float64          `json:"overallScore"`
	Status            string           `json:"status"`
	RiskLevel         models.RiskLevel `json:"riskLevel"`
	RemainingDistance int              `json:"remainingDistance"`
	DistanceUnit      string           `json:"distanceUnit"`
	UrgentActions     []string         `json:"urgentActions"`
}

// NewEvent builds the event for an assessment
func NewEvent(a *models.HealthAssessment) Event {
	return Event{
		Type:              EventTypeAssessment,
		SchemaVersion:     schemaVersion,
		ID:                a.ID,
		VehicleID:         a.VehicleID,
		Timestamp:         a.Timestamp.UTC(),
		OverallScore:      a.Health.OverallScore,
		Status:            a.Health.Status,
		RiskLevel:         a.Maintenance.RiskLevel,
		RemainingDistance: a.Health.RemainingDistance,
		DistanceUnit:      a.Health.DistanceUnit,
		UrgentActions:     a.Maintenance.UrgentActions,
	}
}

type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type kafkaWriteCloser interface {
	Close() error
}

// FailureRecorder counts failed deliveries
type FailureRecorder interface {
	PublishFailed()
}

var (
	errNotStarted = errors.New("publisher not started")
	errStopped    = errors.New("publisher stopped")
)

// Publisher queues assessment events and writes them from a background loop
type Publisher struct {
	cfg     Config
	log     *slog.Logger
	writer  kafkaMessageWriter
	closer  kafkaWriteCloser
	failed  FailureRecorder
	enabled bool

	queue     chan kafka.Message
	runCtx    context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
}

// New creates a publisher. A disabled config yields a publisher whose
// methods are no-ops.
func New(cfg Config, log *slog.Logger, failed FailureRecorder) (*Publisher, error) {
	if log == nil {
		log = slog.Default()
	}
	if !cfg.Enabled {
		log.Info("publisher_disabled")
		return &Publisher{cfg: cfg, log: log}, nil
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("publish topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newWithWriter(cfg, log, w, w, failed), nil
}

func newWithWriter(cfg Config, log *slog.Logger, writer kafkaMessageWriter, closer kafkaWriteCloser, failed FailureRecorder) *Publisher {
	return &Publisher{
		cfg:     cfg,
		log:     log.With(slog.String("component", "publisher")),
		writer:  writer,
		closer:  closer,
		failed:  failed,
		enabled: true,
		queue:   make(chan kafka.Message, queueSize),
	}
}

// Enabled reports whether events are actually sent
func (p *Publisher) Enabled() bool {
	return p != nil && p.enabled
}

// Start launches the delivery loop
func (p *Publisher) Start(ctx context.Context) {
	if !p.Enabled() {
		return
	}
	p.startOnce.Do(func() {
		p.runCtx, p.cancel = context.WithCancel(ctx)
		p.started.Store(true)
		p.wg.Add(1)
		go p.run()
		p.log.Info("publisher_started", slog.String("topic", p.cfg.Topic))
	})
}

// Stop ends the loop after draining queued events, or when ctx expires
func (p *Publisher) Stop(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	var stopErr error
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			stopErr = ctx.Err()
		}
		if p.closer != nil {
			if err := p.closer.Close(); err != nil {
				p.log.Error("publisher_close_err", slog.Any("err", err))
			}
		}
		p.log.Info("publisher_stopped")
	})
	return stopErr
}

// Publish queues the assessment, keyed by vehicle id
func (p *Publisher) Publish(ctx context.Context, a *models.HealthAssessment) error {
	if !p.Enabled() {
		return nil
	}
	if !p.started.Load() {
		return errNotStarted
	}

	value, err := json.Marshal(NewEvent(a))
	if err != nil {
		p.fail()
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{Key: []byte(a.VehicleID), Value: value}

	select {
	case p.queue <- msg:
		return nil
	case <-ctx.Done():
		p.fail()
		return ctx.Err()
	case <-p.runCtx.Done():
		p.fail()
		return errStopped
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.runCtx.Done():
			p.drain()
			p.started.Store(false)
			return
		case msg := <-p.queue:
			p.deliver(p.runCtx, msg)
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case msg := <-p.queue:
			p.deliver(ctx, msg)
		default:
			return
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, msg kafka.Message) {
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.fail()
		p.log.Error("publish_err", slog.Any("err", err), slog.String("vehicle", string(msg.Key)))
		return
	}
	p.log.Debug("publish_success", slog.String("vehicle", string(msg.Key)))
}

func (p *Publisher) fail() {
	if p.failed != nil {
		p.failed.PublishFailed()
	}
}
