package delivery

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/NordCoder/Studiobell/internal/domain/notification"
)

// Remote is the authoritative notification store as seen by a session.
type Remote interface {
	ListUnread(ctx context.Context, recipientID int64, limit int) ([]*notification.Notification, error)
	CountUnread(ctx context.Context, recipientID int64) (int, error)
	MarkRead(ctx context.Context, recipientID, id int64) error
	MarkAllRead(ctx context.Context, recipientID int64) (int64, error)
}

// View is what the bell renders.
type View struct {
	Count  int                          `json:"count"`
	Unread []*notification.Notification `json:"unread"`
}

// Inbox is a session-local unread cache. Local mutations apply at once and are
// reconciled with Remote afterwards: a failed remote write restores the prior
// entries and every settle ends with a refetch.
type Inbox struct {
	recipientID int64
	remote      Remote
	limit       int

	mu     sync.Mutex
	items  []*notification.Notification // newest first
	count  int
	seen   map[int64]bool
	OnSync func(View)
}

func NewInbox(recipientID int64, remote Remote, limit int) *Inbox {
	if limit <= 0 {
		limit = 50
	}
	return &Inbox{recipientID: recipientID, remote: remote, limit: limit, seen: map[int64]bool{}}
}

func (b *Inbox) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewLocked()
}

func (b *Inbox) viewLocked() View {
	out := make([]*notification.Notification, len(b.items))
	copy(out, b.items)
	return View{Count: b.count, Unread: out}
}

// Apply records a freshly created notification. Replays of an id already seen
// are ignored.
func (b *Inbox) Apply(n *notification.Notification) View {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n == nil || n.Read || b.seen[n.ID] {
		return b.viewLocked()
	}
	b.seen[n.ID] = true
	b.insertLocked(n)
	b.count++
	return b.viewLocked()
}

func (b *Inbox) insertLocked(n *notification.Notification) {
	b.items = append(b.items, n)
	sort.SliceStable(b.items, func(i, j int) bool {
		if !b.items[i].CreatedAt.Equal(b.items[j].CreatedAt) {
			return b.items[i].CreatedAt.After(b.items[j].CreatedAt)
		}
		return b.items[i].ID > b.items[j].ID
	})
	if len(b.items) > b.limit {
		b.items = b.items[:b.limit]
	}
}

func (b *Inbox) removeLocked(id int64) (*notification.Notification, bool) {
	for i, n := range b.items {
		if n.ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return n, true
		}
	}
	return nil, false
}

func (b *Inbox) containsLocked(id int64) bool {
	for _, n := range b.items {
		if n.ID == id {
			return true
		}
	}
	return false
}

// MarkRead hides id locally, then writes through. On failure the entry comes back.
func (b *Inbox) MarkRead(ctx context.Context, id int64) error {
	b.mu.Lock()
	prior, had := b.removeLocked(id)
	if had {
		b.count--
	}
	b.mu.Unlock()

	err := b.remote.MarkRead(ctx, b.recipientID, id)
	if err != nil && had {
		b.mu.Lock()
		if !b.containsLocked(prior.ID) {
			b.insertLocked(prior)
			b.count++
		}
		b.mu.Unlock()
	}
	b.settle(ctx)
	if err != nil {
		return fmt.Errorf("mark read %d: %w", id, err)
	}
	return nil
}

func (b *Inbox) MarkAllRead(ctx context.Context) error {
	b.mu.Lock()
	prior, priorCount := b.items, b.count
	b.items, b.count = nil, 0
	b.mu.Unlock()

	_, err := b.remote.MarkAllRead(ctx, b.recipientID)
	if err != nil {
		b.mu.Lock()
		added := b.count
		for _, n := range prior {
			if !b.containsLocked(n.ID) {
				b.insertLocked(n)
			}
		}
		b.count = priorCount + added
		b.mu.Unlock()
	}
	b.settle(ctx)
	if err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}

// Refetch replaces the cache with the store's state. Notifications applied
// while the fetch was in flight and missing from its result are newer than
// the snapshot, so they stay on top of it. The count is read before the list
// so such a notification is never in the count already.
func (b *Inbox) Refetch(ctx context.Context) error {
	b.mu.Lock()
	before := make(map[int64]bool, len(b.items))
	for _, n := range b.items {
		before[n.ID] = true
	}
	b.mu.Unlock()

	count, err := b.remote.CountUnread(ctx, b.recipientID)
	if err != nil {
		return fmt.Errorf("refetch count: %w", err)
	}
	list, err := b.remote.ListUnread(ctx, b.recipientID, b.limit)
	if err != nil {
		return fmt.Errorf("refetch unread: %w", err)
	}

	b.mu.Lock()
	fetched := make(map[int64]bool, len(list))
	for _, n := range list {
		fetched[n.ID] = true
		b.seen[n.ID] = true
	}
	var arrived []*notification.Notification
	for _, n := range b.items {
		if !before[n.ID] && !fetched[n.ID] {
			arrived = append(arrived, n)
		}
	}
	b.items = list
	b.count = count
	for _, n := range arrived {
		b.insertLocked(n)
		b.count++
	}
	v := b.viewLocked()
	b.mu.Unlock()

	if b.OnSync != nil {
		b.OnSync(v)
	}
	return nil
}

// settle refetches after a write whether or not it succeeded. A failed refetch
// leaves the local state as is until the next one.
func (b *Inbox) settle(ctx context.Context) {
	_ = b.Refetch(ctx)
}
