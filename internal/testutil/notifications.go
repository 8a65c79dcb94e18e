package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NordCoder/Studiobell/internal/domain"
	"github.com/NordCoder/Studiobell/internal/domain/notification"
	"github.com/NordCoder/Studiobell/internal/domain/outbox"
)

var _ notification.Repo = (*Notifications)(nil)

// Notifications enforces the same uniqueness as the notifications_dedup_uidx index.
type Notifications struct {
	mu     sync.Mutex
	nextID int64
	rows   []*notification.Notification

	CreateErr   error
	MarkReadErr error
}

func NewNotifications() *Notifications { return &Notifications{} }

type dedupKey struct {
	recipient int64
	typ       notification.Category
	key       string
	day       string
}

func keyOf(n *notification.Notification) dedupKey {
	return dedupKey{n.RecipientID, n.Type, n.DedupKey, n.DedupDay.Format(time.DateOnly)}
}

func (f *Notifications) Create(_ context.Context, n *notification.Notification) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return false, f.CreateErr
	}
	k := keyOf(n)
	for _, r := range f.rows {
		if keyOf(r) == k {
			return false, nil
		}
	}
	f.nextID++
	n.ID = f.nextID
	cp := *n
	f.rows = append(f.rows, &cp)
	return true, nil
}

func (f *Notifications) Exists(_ context.Context, recipientID int64, typ notification.Category, key string, day time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := dedupKey{recipientID, typ, key, day.Format(time.DateOnly)}
	for _, r := range f.rows {
		if keyOf(r) == k {
			return true, nil
		}
	}
	return false, nil
}

func (f *Notifications) MarkRead(_ context.Context, recipientID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MarkReadErr != nil {
		return f.MarkReadErr
	}
	for _, r := range f.rows {
		if r.ID == id && r.RecipientID == recipientID {
			r.Read = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *Notifications) MarkAllRead(_ context.Context, recipientID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MarkReadErr != nil {
		return 0, f.MarkReadErr
	}
	var n int64
	for _, r := range f.rows {
		if r.RecipientID == recipientID && !r.Read {
			r.Read = true
			n++
		}
	}
	return n, nil
}

func (f *Notifications) ListUnread(_ context.Context, recipientID int64, limit int) ([]*notification.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*notification.Notification
	for _, r := range f.rows {
		if r.RecipientID == recipientID && !r.Read {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *Notifications) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	l, err := f.ListUnread(ctx, recipientID, 0)
	return len(l), err
}

func (f *Notifications) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	var n int64
	for _, r := range f.rows {
		if r.Read && r.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return n, nil
}

// All returns a copy of every stored row in insertion order.
func (f *Notifications) All() []notification.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notification.Notification, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, *r)
	}
	return out
}

// Outbox records enqueued messages.
type Outbox struct {
	mu       sync.Mutex
	Messages []outbox.Message
	Err      error
}

func (o *Outbox) Enqueue(_ context.Context, key string, kind outbox.Kind, data []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.Messages = append(o.Messages, outbox.Message{IdempotencyKey: key, Kind: kind, Data: data, Status: outbox.StatusCreated})
	return nil
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.Messages)
}

// NoTx runs the function inline.
type NoTx struct{}

func (NoTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type Settings struct {
	mu   sync.Mutex
	rows map[int64]*notification.Settings
	Err  error
}

func NewSettings(rows ...*notification.Settings) *Settings {
	s := &Settings{rows: map[int64]*notification.Settings{}}
	for _, r := range rows {
		s.rows[r.RecipientID] = r
	}
	return s
}

func (s *Settings) Get(_ context.Context, recipientID int64) (*notification.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	r, ok := s.rows[recipientID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Settings) Upsert(_ context.Context, in *notification.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	cp := *in
	s.rows[in.RecipientID] = &cp
	return nil
}

// AllOn enables every category for recipientID.
func AllOn(recipientID int64) *notification.Settings {
	flags := map[notification.Category]bool{}
	for _, c := range notification.Categories {
		flags[c] = true
	}
	return &notification.Settings{RecipientID: recipientID, Flags: flags, SoundsEnabled: true}
}
