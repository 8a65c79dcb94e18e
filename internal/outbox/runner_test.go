package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/Studiobell/internal/domain/notification"
	"github.com/NordCoder/Studiobell/internal/domain/outbox"
	"github.com/NordCoder/Studiobell/internal/obs/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRepo struct {
	mu       sync.Mutex
	pending  []outbox.Message
	inflight []outbox.Message
	done     []string
	pickErr  error
}

func (m *memRepo) Enqueue(_ context.Context, key string, kind outbox.Kind, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, outbox.Message{IdempotencyKey: key, Kind: kind, Data: data, Status: outbox.StatusCreated})
	return nil
}

func (m *memRepo) PickBatch(_ context.Context, batch int, _ time.Duration) ([]outbox.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pickErr != nil {
		return nil, m.pickErr
	}
	if batch > len(m.pending) {
		batch = len(m.pending)
	}
	out := append([]outbox.Message(nil), m.pending[:batch]...)
	m.pending = m.pending[batch:]
	m.inflight = append(m.inflight, out...)
	return out, nil
}

// Release puts messages back at the head of the queue in their original order.
func (m *memRepo) Release(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[string]bool{}
	for _, k := range keys {
		want[k] = true
	}
	var back, keep []outbox.Message
	for _, msg := range m.inflight {
		if want[msg.IdempotencyKey] {
			back = append(back, msg)
		} else {
			keep = append(keep, msg)
		}
	}
	m.inflight = keep
	m.pending = append(back, m.pending...)
	return nil
}

func (m *memRepo) MarkSuccess(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = append(m.done, keys...)
	return nil
}

func (m *memRepo) Done() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.done...)
}

type memPublisher struct {
	mu   sync.Mutex
	got  []*notification.Notification
	fail map[int64]int
}

func (p *memPublisher) PublishNotificationCreated(_ context.Context, n *notification.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail[n.ID] > 0 {
		p.fail[n.ID]--
		return errors.New("broker unavailable")
	}
	p.got = append(p.got, n)
	return nil
}

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{
		Attempts:  attempts,
		Backoff:   retry.ExpoJitter{Base: time.Millisecond, Max: 2 * time.Millisecond},
		Retryable: func(err error) bool { return err != nil },
	}
}

func enqueue(t *testing.T, repo *memRepo, n *notification.Notification) {
	t.Helper()
	data, err := EncodeNotificationCreated(n)
	require.NoError(t, err)
	require.NoError(t, repo.Enqueue(context.Background(), n.DedupKey, outbox.KindNotificationCreated, data))
}

func TestRunner_PublishesAndMarksSuccess(t *testing.T) {
	repo := &memRepo{}
	pub := &memPublisher{fail: map[int64]int{2: 1}}
	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	enqueue(t, repo, &notification.Notification{ID: 1, RecipientID: 7, Type: notification.InvoiceOverdue, DedupKey: "k1", CreatedAt: created,
		Payload: map[string]any{"message": "Invoice INV-7 is 1 day overdue"}})
	enqueue(t, repo, &notification.Notification{ID: 2, RecipientID: 7, Type: notification.JobReminder, DedupKey: "k2", CreatedAt: created})

	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(pub, fastPolicy(3)), Config{BatchSize: 10})
	r.tick(context.Background())

	assert.ElementsMatch(t, []string{"k1", "k2"}, repo.Done())
	require.Len(t, pub.got, 2)
	assert.Equal(t, "Invoice INV-7 is 1 day overdue", pub.got[0].Message())
	assert.True(t, created.Equal(pub.got[0].CreatedAt))
}

func TestRunner_FailedMessageStaysPending(t *testing.T) {
	repo := &memRepo{}
	pub := &memPublisher{fail: map[int64]int{1: 5}}
	enqueue(t, repo, &notification.Notification{ID: 1, RecipientID: 7, Type: notification.JobReminder, DedupKey: "k1"})
	require.NoError(t, repo.Enqueue(context.Background(), "k-unknown", outbox.Kind("invoice.paid"), nil))

	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(pub, fastPolicy(2)), Config{})
	r.tick(context.Background())

	assert.Empty(t, repo.Done())
	assert.Empty(t, pub.got)
}

func TestRunner_FailureHoldsBackLaterMessages(t *testing.T) {
	repo := &memRepo{}
	pub := &memPublisher{fail: map[int64]int{1: 1}}
	for i, key := range []string{"p1", "p2", "p3"} {
		enqueue(t, repo, &notification.Notification{ID: int64(i + 1), RecipientID: 7, Type: notification.PaymentOverdue, DedupKey: key})
	}

	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(pub, fastPolicy(1)), Config{BatchSize: 10})
	r.tick(context.Background())
	assert.Empty(t, pub.got, "nothing newer goes out ahead of the failed message")
	assert.Empty(t, repo.Done())

	r.tick(context.Background())
	require.Len(t, pub.got, 3)
	for i, n := range pub.got {
		assert.EqualValues(t, i+1, n.ID)
	}
	assert.Equal(t, []string{"p1", "p2", "p3"}, repo.Done())
}

func TestRunner_PermanentFailureDoesNotBlock(t *testing.T) {
	repo := &memRepo{}
	pub := &memPublisher{}
	require.NoError(t, repo.Enqueue(context.Background(), "bad", outbox.KindNotificationCreated, []byte("{")))
	enqueue(t, repo, &notification.Notification{ID: 2, RecipientID: 7, Type: notification.JobReminder, DedupKey: "j2"})

	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(pub, fastPolicy(3)), Config{})
	r.tick(context.Background())
	assert.Equal(t, []string{"j2"}, repo.Done())
	require.Len(t, pub.got, 1)
}

func TestRunner_PickErrorIsLogged(t *testing.T) {
	repo := &memRepo{pickErr: errors.New("db down")}
	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(&memPublisher{}, fastPolicy(1)), Config{})
	r.tick(context.Background())
	assert.Empty(t, repo.Done())
}

func TestRunner_StartAndWait(t *testing.T) {
	repo := &memRepo{}
	pub := &memPublisher{}
	enqueue(t, repo, &notification.Notification{ID: 1, RecipientID: 7, Type: notification.JobReminder, DedupKey: "k1"})

	ctx, cancel := context.WithCancel(context.Background())
	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(pub, fastPolicy(1)), Config{WaitTime: 5 * time.Millisecond})
	r.Start(ctx)
	require.Eventually(t, func() bool { return len(repo.Done()) == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	r.Wait()
}

func TestHandler_RejectsBadPayload(t *testing.T) {
	h, err := MakeGlobalOutboxHandler(&memPublisher{}, fastPolicy(3))(outbox.KindNotificationCreated)
	require.NoError(t, err)
	err = h(context.Background(), []byte("{"))
	require.Error(t, err)
	assert.True(t, retry.IsPermanent(err))

	_, err = MakeGlobalOutboxHandler(&memPublisher{}, fastPolicy(1))(outbox.Kind("bogus"))
	assert.Error(t, err)
}
