// Package usage records token and cost accounting for model calls. Recording
// runs on its own queue and worker: a slow or failing recorder never blocks
// or fails the call being accounted.
package usage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fadilmartias/interview-coach/internal/llm"
	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultQueueSize = 256
	recordTimeout    = 5 * time.Second
)

// Recorder persists usage records.
type Recorder interface {
	RecordUsage(ctx context.Context, rec *model.UsageRecord) error
}

// Tracker accepts usage events without blocking.
type Tracker interface {
	Track(ev Event)
}

type Event struct {
	SessionID string
	Operation string
	Provider  string
	Model     string
	Usage     llm.Usage
	At        time.Time
}

type Meter struct {
	recorder Recorder
	pricing  Pricing
	logger   *zap.Logger

	queue   chan Event
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewMeter starts the recording worker. Close must be called to drain it.
func NewMeter(recorder Recorder, pricing Pricing, queueSize int, log *zap.Logger) *Meter {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	if pricing == nil {
		pricing = DefaultPricing()
	}
	m := &Meter{
		recorder: recorder,
		pricing:  pricing,
		logger:   log.Named("usage"),
		queue:    make(chan Event, queueSize),
		done:     make(chan struct{}),
	}
	go m.run()
	return m
}

// Track enqueues ev. When the queue is full or the meter is closed the event
// is dropped with a warning.
func (m *Meter) Track(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		m.logger.Warn("usage meter closed, dropping event", zap.String("operation", ev.Operation))
		m.dropped.Add(1)
		return
	}
	select {
	case m.queue <- ev:
	default:
		m.dropped.Add(1)
		m.logger.Warn("usage queue full, dropping event",
			zap.String("operation", ev.Operation),
			zap.String("model", ev.Model),
		)
	}
}

// Dropped returns the number of events that were never recorded.
func (m *Meter) Dropped() int64 {
	return m.dropped.Load()
}

// Close stops accepting events and waits until queued ones are recorded.
func (m *Meter) Close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.queue)
	}
	m.mu.Unlock()
	<-m.done
}

func (m *Meter) run() {
	defer close(m.done)
	for ev := range m.queue {
		m.record(ev)
	}
}

func (m *Meter) record(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("usage recorder panicked", zap.Any("panic", r))
		}
	}()

	rec := &model.UsageRecord{
		Operation:    ev.Operation,
		Provider:     ev.Provider,
		Model:        ev.Model,
		PromptTokens: ev.Usage.PromptTokens,
		OutputTokens: ev.Usage.OutputTokens,
		CostUSD:      m.pricing.Cost(ev.Model, ev.Usage),
		CreatedAt:    ev.At,
	}
	if id, err := uuid.Parse(ev.SessionID); err == nil {
		rec.SessionID = &id
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := m.recorder.RecordUsage(ctx, rec); err != nil {
		m.logger.Warn("failed to record usage",
			zap.String("operation", ev.Operation),
			zap.Error(err),
		)
		return
	}
	m.logger.Debug("usage recorded",
		zap.String("operation", ev.Operation),
		zap.String("model", ev.Model),
		zap.String("cost_usd", fmt.Sprintf("%.6f", rec.CostUSD)),
	)
}
