//go:build integration

package integration

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/Studiobell/internal/domain/notification"
	pg "github.com/NordCoder/Studiobell/internal/repository/postgres"
	"github.com/NordCoder/Studiobell/internal/services/inbox"
	"github.com/NordCoder/Studiobell/internal/services/scheduler"
	"github.com/NordCoder/Studiobell/internal/services/scheduler/repo"
	"github.com/NordCoder/Studiobell/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stack struct {
	db     *pg.DB
	store  *inbox.Service
	outbox *pg.OutboxRepo
	clock  *testutil.Clock
}

func newStack(t *testing.T, now time.Time) *stack {
	t.Helper()
	cfg := LoadCfg()
	DBOpen(t, cfg.DBDSN)

	db, err := pg.NewDB(context.Background(), pg.Config{DSN: cfg.DBDSN, QueryTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	clock := testutil.NewClock(now)
	ob := pg.NewOutboxRepo(db)
	store := inbox.New(pg.NewNotificationRepo(db), ob, pg.NewTransactor(db, zap.NewNop()), clock, zap.NewNop())
	return &stack{db: db, store: store, outbox: ob, clock: clock}
}

func TestStore_ConcurrentCreateKeepsOne(t *testing.T) {
	s := newStack(t, time.Now().UTC())
	recipient := RandID()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		skipped int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Create(context.Background(), recipient, notification.PaymentOverdue,
				map[string]any{"message": "A payment is 7 days overdue"}, "payment:1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, inbox.ErrSkipped):
				skipped++
			default:
				t.Errorf("create: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 15, skipped)
	assert.Equal(t, 1, CountNotifications(t, openRaw(t), recipient, string(notification.PaymentOverdue)))

	// next civil day is a new dedup day
	s.clock.Advance(24 * time.Hour)
	_, err := s.store.Create(context.Background(), recipient, notification.PaymentOverdue, nil, "payment:1")
	require.NoError(t, err)
}

func TestStore_ReadAndSweep(t *testing.T) {
	ctx := context.Background()
	old := time.Now().UTC().Add(-40 * 24 * time.Hour)
	s := newStack(t, old)
	recipient := RandID()

	a, err := s.store.Create(ctx, recipient, notification.JobReminder, nil, "job:1")
	require.NoError(t, err)
	_, err = s.store.Create(ctx, recipient, notification.JobReminder, nil, "job:2")
	require.NoError(t, err)

	require.NoError(t, s.store.MarkRead(ctx, recipient, a.ID))
	require.NoError(t, s.store.MarkRead(ctx, recipient, a.ID))
	assert.Error(t, s.store.MarkRead(ctx, recipient+1, a.ID))

	n, err := s.store.CountUnread(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	s.clock.Set(time.Now().UTC())
	deleted, err := s.store.SweepExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, deleted, int64(1))

	list, err := s.store.ListUnread(ctx, recipient, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "job:2", list[0].DedupKey)
}

func TestScheduler_OverdueInvoiceEndToEnd(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	s := newStack(t, now)
	raw := openRaw(t)
	recipient := RandID()

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	overdue := SeedInvoice(t, raw, recipient, "INV-7", "issued", today.AddDate(0, 0, -20), today.AddDate(0, 0, -1))
	dueToday := SeedInvoice(t, raw, recipient, "INV-8", "issued", today.AddDate(0, 0, -20), today)
	SeedSettings(t, raw, recipient, `{"invoice_overdue": true}`)

	entities := pg.NewEntityRepo(s.db)
	uc := &scheduler.Usecase{
		Tx:         pg.NewTransactor(s.db, zap.NewNop()),
		Entities:   entities,
		Invoices:   entities,
		Settings:   pg.NewSettingsRepo(s.db),
		Store:      s.store,
		Recipients: repo.Recipients{Static: []int64{recipient}},
		Clock:      s.clock,
		Log:        zap.NewNop(),
	}

	st, err := uc.RunFor(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Transitions)
	assert.Equal(t, 1, st.Created)
	assert.Equal(t, "overdue", InvoiceStatus(t, raw, overdue))
	assert.Equal(t, "issued", InvoiceStatus(t, raw, dueToday))

	st, err = uc.RunFor(ctx, recipient)
	require.NoError(t, err)
	assert.Zero(t, st.Transitions)
	assert.Equal(t, 1, CountNotifications(t, raw, recipient, string(notification.InvoiceOverdue)))

	msgs, err := s.outbox.PickBatch(ctx, 1000, time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, msgs)
}

func TestScheduler_MissingSettingsSkips(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	s := newStack(t, now)
	raw := openRaw(t)
	recipient := RandID()

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	id := SeedInvoice(t, raw, recipient, "INV-9", "issued", today.AddDate(0, 0, -20), today.AddDate(0, 0, -3))

	entities := pg.NewEntityRepo(s.db)
	uc := &scheduler.Usecase{
		Entities: entities, Invoices: entities, Settings: pg.NewSettingsRepo(s.db),
		Store: s.store, Clock: s.clock, Log: zap.NewNop(),
	}
	st, err := uc.RunFor(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Skipped)
	assert.Equal(t, "issued", InvoiceStatus(t, raw, id))
}

func openRaw(t *testing.T) *sql.DB {
	t.Helper()
	return DBOpen(t, LoadCfg().DBDSN)
}
