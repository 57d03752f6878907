// Package notify delivers domain events (recognition approved, redemption
// settled) to interested consumers. Delivery is best effort and happens
// strictly after the database transaction that produced the event commits.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	EventRecognitionApproved = "recognition.approved"
	EventRecognitionDeclined = "recognition.declined"
	EventRecognitionReceived = "recognition.received"
	EventRedemptionCompleted = "redemption.completed"
	EventRedemptionFailed    = "redemption.failed"
)

// Event is one domain notification.
type Event struct {
	Type        string     `json:"type"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	UserID      uuid.UUID  `json:"user_id"`
	ActorID     *uuid.UUID `json:"actor_id,omitempty"`
	ReferenceID uuid.UUID  `json:"reference_id"`
	Amount      int64      `json:"amount"`
	Message     string     `json:"message,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// Handler consumes events. Handlers run on the bus goroutine and must not
// block for long.
type Handler func(ctx context.Context, e Event)

// Bus fans events out to registered handlers on a single background
// goroutine. Publish never blocks the caller: if the buffer is full the
// event is dropped with a warning, since notifications are not part of the
// transactional contract.
type Bus struct {
	mu       sync.Mutex
	closed   bool
	ch       chan Event
	handlers []Handler
	logger   *slog.Logger
	done     chan struct{}
}

func NewBus(logger *slog.Logger, handlers ...Handler) *Bus {
	b := &Bus{
		ch:       make(chan Event, 256),
		handlers: handlers,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bus) run() {
	defer close(b.done)
	for e := range b.ch {
		ctx := context.Background()
		for _, h := range b.handlers {
			h(ctx, e)
		}
	}
}

// Publish enqueues an event without blocking. Events published after
// Close are dropped.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		b.logger.Warn("notify bus closed, dropping event", "type", e.Type, "tenant_id", e.TenantID)
		return
	}
	select {
	case b.ch <- e:
	default:
		b.logger.Warn("notify buffer full, dropping event", "type", e.Type, "tenant_id", e.TenantID)
	}
}

// Close stops the bus after draining buffered events. It is idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.ch)
	b.mu.Unlock()
	<-b.done
}

// LogHandler returns a handler that writes each event to the logger. It is
// the default consumer in deployments without an outbound channel.
func LogHandler(logger *slog.Logger) Handler {
	return func(_ context.Context, e Event) {
		logger.Info("domain event",
			"type", e.Type,
			"tenant_id", e.TenantID,
			"user_id", e.UserID,
			"reference_id", e.ReferenceID,
			"amount", e.Amount,
		)
	}
}
