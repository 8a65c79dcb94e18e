// Package inbox is the notification store: deduplicated creation, read state,
// unread queries and retention.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NordCoder/Studiobell/internal/domain"
	"github.com/NordCoder/Studiobell/internal/domain/notification"
	"github.com/NordCoder/Studiobell/internal/domain/outbox"
	"github.com/NordCoder/Studiobell/internal/domain/signal"
	outboxx "github.com/NordCoder/Studiobell/internal/outbox"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrSkipped reports that a notification with the same recipient, type and
// dedup key already exists for the current day.
var ErrSkipped = errors.New("duplicate notification for today")

const (
	DefaultRetention = 30 * 24 * time.Hour
	DefaultListLimit = 50
	MaxListLimit     = 200
)

var (
	mCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inbox_notifications_created_total", Help: "Notifications stored.",
	}, []string{"type"})
	mSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inbox_notifications_skipped_total", Help: "Notifications dropped as same-day duplicates.",
	}, []string{"type", "by"})
	mSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inbox_notifications_swept_total", Help: "Read notifications deleted by retention.",
	})
)

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Enqueuer interface {
	Enqueue(ctx context.Context, key string, kind outbox.Kind, data []byte) error
}

// Gate is an optional fast-path duplicate check in front of storage.
type Gate interface {
	Acquire(ctx context.Context, key string, day time.Time) bool
	Release(ctx context.Context, key string)
}

type Service struct {
	repo      notification.Repo
	outbox    Enqueuer
	tx        Transactor
	gate      Gate
	gateKey   func(recipientID int64, typ, dedupKey string, day time.Time) string
	clock     notification.Clock
	retention time.Duration
	log       *zap.Logger
}

type Option func(*Service)

// WithGate puts g in front of every Create. keyFn builds the gate key.
func WithGate(g Gate, keyFn func(recipientID int64, typ, dedupKey string, day time.Time) string) Option {
	return func(s *Service) { s.gate, s.gateKey = g, keyFn }
}

func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

func New(repo notification.Repo, ob Enqueuer, tx Transactor, clock notification.Clock, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		outbox:    ob,
		tx:        tx,
		clock:     clock,
		retention: DefaultRetention,
		log:       log.With(zap.String("component", "inbox")),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create stores a notification for today unless one with the same recipient,
// type and dedup key exists already, in which case it returns ErrSkipped. The
// notification row and its outbox message are committed together.
func (s *Service) Create(ctx context.Context, recipientID int64, typ notification.Category, payload map[string]any, dedupKey string) (*notification.Notification, error) {
	if recipientID <= 0 {
		return nil, fmt.Errorf("%w: recipient id %d", domain.ErrInvalid, recipientID)
	}
	if strings.TrimSpace(string(typ)) == "" {
		return nil, fmt.Errorf("%w: empty notification type", domain.ErrInvalid)
	}

	ctx, span := otel.Tracer("inbox").Start(ctx, "inbox.create")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("recipient.id", recipientID),
		attribute.String("notification.type", string(typ)),
		attribute.String("notification.dedup_key", dedupKey),
	)

	now := s.clock.Now()
	day := signal.Day(now, now.Location())

	var gateKey string
	if s.gate != nil {
		gateKey = s.gateKey(recipientID, string(typ), dedupKey, day)
		if !s.gate.Acquire(ctx, gateKey, day) {
			mSkipped.WithLabelValues(string(typ), "gate").Inc()
			return nil, ErrSkipped
		}
	}

	n := &notification.Notification{
		RecipientID: recipientID,
		Type:        typ,
		Payload:     payload,
		CreatedAt:   now,
		DedupKey:    dedupKey,
		DedupDay:    day,
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		created, err := s.repo.Create(ctx, n)
		if err != nil {
			return err
		}
		if !created {
			return ErrSkipped
		}
		data, err := outboxx.EncodeNotificationCreated(n)
		if err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, outboxKey(n), outbox.KindNotificationCreated, data)
	})
	switch {
	case errors.Is(err, ErrSkipped):
		mSkipped.WithLabelValues(string(typ), "store").Inc()
		return nil, ErrSkipped
	case err != nil:
		span.RecordError(err)
		if s.gate != nil {
			// The caller's ctx may be the one that was canceled.
			s.gate.Release(context.WithoutCancel(ctx), gateKey)
		}
		return nil, fmt.Errorf("create notification: %w", err)
	}

	mCreated.WithLabelValues(string(typ)).Inc()
	span.SetAttributes(attribute.Int64("notification.id", n.ID))
	return n, nil
}

// outboxKey is stable per notification so a retried enqueue collapses onto one row.
func outboxKey(n *notification.Notification) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("notification.created:"+strconv.FormatInt(n.ID, 10))).String()
}

func (s *Service) Exists(ctx context.Context, recipientID int64, typ notification.Category, dedupKey string, day time.Time) (bool, error) {
	return s.repo.Exists(ctx, recipientID, typ, dedupKey, signal.Day(day, day.Location()))
}

// Today is the dedup day for the current instant.
func (s *Service) Today() time.Time {
	now := s.clock.Now()
	return signal.Day(now, now.Location())
}

// MarkRead is idempotent for records the recipient owns. Unknown ids and
// records of another recipient report domain.ErrNotFound.
func (s *Service) MarkRead(ctx context.Context, recipientID, id int64) error {
	if err := s.repo.MarkRead(ctx, recipientID, id); err != nil {
		return fmt.Errorf("mark read %d: %w", id, err)
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return n, nil
}

// ListUnread returns unread records newest first.
func (s *Service) ListUnread(ctx context.Context, recipientID int64, limit int) ([]*notification.Notification, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	out, err := s.repo.ListUnread(ctx, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list unread: %w", err)
	}
	return out, nil
}

func (s *Service) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	n, err := s.repo.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// SweepExpired deletes read records older than the retention window. Unread
// records are never removed.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.retention)
	n, err := s.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}
	mSwept.Add(float64(n))
	s.log.Info("swept read notifications", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	return n, nil
}
