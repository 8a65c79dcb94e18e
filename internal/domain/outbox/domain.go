package outbox

import (
	"context"
	"time"
)

// Status is the lifecycle of an outbox row: created by the writer's
// transaction, claimed by a runner, then marked delivered.
type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusSuccess    Status = "SUCCESS"
)

// Kind selects the handler that publishes a message.
type Kind string

const KindNotificationCreated Kind = "notification.created"

type Message struct {
	IdempotencyKey string
	Kind           Kind
	Data           []byte
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// W3C trace context captured when the message was enqueued.
	Traceparent string
	Tracestate  string
	Baggage     string
}

// TraceCarrier returns the stored trace context in propagator form.
func (m Message) TraceCarrier() map[string]string {
	return map[string]string{
		"traceparent": m.Traceparent,
		"tracestate":  m.Tracestate,
		"baggage":     m.Baggage,
	}
}

type Repository interface {
	Enqueue(ctx context.Context, key string, kind Kind, data []byte) error
	PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]Message, error)
	MarkSuccess(ctx context.Context, keys []string) error
	// Release hands claimed messages back so the next pick sees them first.
	Release(ctx context.Context, keys []string) error
}

// Purger removes delivered messages; run out of band by the maintenance CLI.
type Purger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

type KindHandler func(ctx context.Context, data []byte) error

type GlobalHandler func(kind Kind) (KindHandler, error)
