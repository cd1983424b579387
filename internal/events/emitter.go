package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"swimslot/internal/logger"
	"swimslot/internal/metrics"
)

const (
	BookingCreated           = "booking.created"
	BookingCancelled         = "booking.cancelled"
	BookingRescheduled       = "booking.rescheduled"
	BookingStatusChanged     = "booking.status_changed"
	BookingInstructorChanged = "booking.instructor_changed"
)

type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Emitter publishes booking events after their transaction has committed.
// Publishing is best effort and happens off the caller's goroutine; failures
// are logged and counted.
type Emitter struct {
	pub     Publisher
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewEmitter(pub Publisher) *Emitter {
	if pub == nil {
		pub = NoopPublisher{}
	}
	return &Emitter{pub: pub, timeout: 5 * time.Second, now: time.Now}
}

func (e *Emitter) Emit(ctx context.Context, eventType string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("event payload not serializable", "type", eventType, "error", err)
		metrics.RecordEvent(eventType, "error")
		return
	}

	data, err := json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: e.now().UTC(),
		Payload:    body,
	})
	if err != nil {
		metrics.RecordEvent(eventType, "error")
		return
	}

	pubCtx := context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.publish(pubCtx, eventType, data)
	}()
}

func (e *Emitter) publish(ctx context.Context, eventType string, data []byte) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.pub.Publish(ctx, eventType, data); err != nil {
		logger.Warn("event publish failed", "type", eventType, "error", err)
		metrics.RecordEvent(eventType, "error")
		return
	}

	metrics.RecordEvent(eventType, "ok")
}

// Wait blocks until every in-flight publish has finished.
func (e *Emitter) Wait() {
	e.wg.Wait()
}
