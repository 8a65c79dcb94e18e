package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NordCoder/Studiobell/internal/domain/entity"
	"github.com/NordCoder/Studiobell/internal/domain/notification"
	"github.com/NordCoder/Studiobell/internal/services/inbox"
	"github.com/NordCoder/Studiobell/internal/services/scheduler/repo"
	"github.com/NordCoder/Studiobell/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type env struct {
	uc       *Usecase
	entities *testutil.Entities
	settings *testutil.Settings
	notifs   *testutil.Notifications
	clock    *testutil.Clock
}

func newEnv(t *testing.T, now time.Time) *env {
	t.Helper()
	e := &env{
		entities: testutil.NewEntities(),
		settings: testutil.NewSettings(),
		notifs:   testutil.NewNotifications(),
		clock:    testutil.NewClock(now),
	}
	store := inbox.New(e.notifs, &testutil.Outbox{}, testutil.NoTx{}, e.clock, zap.NewNop())
	e.uc = &Usecase{
		Tx:         e.entities,
		Entities:   e.entities,
		Invoices:   e.entities,
		Settings:   e.settings,
		Store:      store,
		Recipients: repo.Recipients{R: e.entities},
		Clock:      e.clock,
		Log:        zap.NewNop(),
	}
	return e
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func at(t time.Time) *time.Time { return &t }

var now = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func TestRunFor_PaymentOverdueOncePerDay(t *testing.T) {
	e := newEnv(t, now)
	require.NoError(t, e.settings.Upsert(context.Background(), &notification.Settings{
		RecipientID: 1,
		Flags:       map[notification.Category]bool{notification.PaymentOverdue: true},
	}))
	e.entities.Put(1, &entity.Collections{
		Payments: []*entity.Payment{{ID: 10, OwnerID: 1, Status: entity.PaymentPending, DueDate: date(2024, 6, 1)}},
	})

	st, err := e.uc.RunFor(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Created)

	all := e.notifs.All()
	require.Len(t, all, 1)
	assert.Equal(t, notification.PaymentOverdue, all[0].Type)
	assert.Equal(t, "10", all[0].DedupKey)
	assert.Equal(t, "A payment is 14 days overdue", all[0].Message())

	e.clock.Advance(3 * time.Hour)
	st, err = e.uc.RunFor(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, st.Created)
	assert.Equal(t, 1, st.Duplicates)
	assert.Len(t, e.notifs.All(), 1)
}

func TestRunFor_NoSettingsNoNotifications(t *testing.T) {
	e := newEnv(t, now)
	e.entities.Put(1, &entity.Collections{
		Payments: []*entity.Payment{{ID: 10, OwnerID: 1, Status: entity.PaymentPending, DueDate: date(2024, 6, 1)}},
		Invoices: []*entity.Invoice{{ID: 20, OwnerID: 1, Status: entity.InvoiceIssued, DueDate: date(2024, 6, 1)}},
	})

	st, err := e.uc.RunFor(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Skipped)
	assert.Empty(t, e.notifs.All())
	assert.Zero(t, e.entities.Writes, "no transition either")
}

func TestRunFor_PaymentCadence(t *testing.T) {
	cases := []struct {
		due  *time.Time
		want int
	}{
		{date(2024, 6, 8), 1},  // 7 days
		{date(2024, 6, 1), 1},  // 14 days
		{date(2024, 6, 9), 0},  // 6 days
		{date(2024, 6, 7), 0},  // 8 days
		{date(2024, 6, 15), 0}, // due today
		{date(2024, 6, 22), 0}, // future
	}
	for _, tc := range cases {
		t.Run(tc.due.Format(time.DateOnly), func(t *testing.T) {
			e := newEnv(t, now)
			require.NoError(t, e.settings.Upsert(context.Background(), testutil.AllOn(1)))
			e.entities.Put(1, &entity.Collections{
				Payments: []*entity.Payment{{ID: 10, OwnerID: 1, Status: entity.PaymentPending, DueDate: tc.due}},
			})

			_, err := e.uc.RunFor(context.Background(), 1)
			require.NoError(t, err)
			assert.Len(t, e.notifs.All(), tc.want)
		})
	}
}

func TestRunFor_CustomCadence(t *testing.T) {
	e := newEnv(t, now)
	e.uc.PaymentCadenceDays = 3
	require.NoError(t, e.settings.Upsert(context.Background(), testutil.AllOn(1)))
	e.entities.Put(1, &entity.Collections{
		Payments: []*entity.Payment{
			{ID: 1, OwnerID: 1, Status: entity.PaymentPending, DueDate: date(2024, 6, 12)}, // 3 days
			{ID: 2, OwnerID: 1, Status: entity.PaymentPending, DueDate: date(2024, 6, 8)},  // 7 days
		},
	})

	_, err := e.uc.RunFor(context.Background(), 1)
	require.NoError(t, err)
	all := e.notifs.All()
	require.Len(t, all, 1)
	assert.Equal(t, "1", all[0].DedupKey)
}

func TestRunFor_PaymentFlagOff(t *testing.T) {
	e := newEnv(t, now)
	require.NoError(t, e.settings.Upsert(context.Background(), &notification.Settings{
		RecipientID: 1,
		Flags:       map[notification.Category]bool{notification.PaymentOverdue: false, notification.JobReminder: true},
	}))
	e.entities.Put(1, &entity.Collections{
		Payments: []*entity.Payment{{ID: 10, OwnerID: 1, Status: entity.PaymentPending, DueDate: date(2024, 6, 1)}},
	})

	_, err := e.uc.RunFor(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, e.notifs.All())
}

func TestRunFor_InvoiceTransitionIdempotent(t *testing.T) {
	e := newEnv(t, now)
	require.NoError(t, e.settings.Upsert(context.Background(), testutil.AllOn(1)))
	inv := &entity.Invoice{ID: 20, OwnerID: 1, Number: "INV-7", Status: entity.InvoiceIssued, DueDate: date(2024, 6, 14)}
	e.entities.Put(1, &entity.Collections{
		Invoices: []*entity.Invoice{
			inv,
			{ID: 21, OwnerID: 1, Status: entity.InvoiceIssued, DueDate: date(2024, 6, 15)}, // due today
			{ID: 22, OwnerID: 1, Status: entity.InvoiceDraft, DueDate: date(2024, 6, 1)},
		},
	})

	st, err := e.uc.RunFor(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Transitions)
	assert.Equal(t, 1, e.entities.Writes)
	assert.Equal(t, entity.InvoiceOverdue, inv.Status)

	all := e.notifs.All()
	require.Len(t, all, 1)
	assert.Equal(t, notification.InvoiceOverdue, all[0].Type)
	assert.Equal(t, "Invoice INV-7 is 1 day overdue", all[0].Message())

	e.clock.Advance(24 * time.Hour)
	st, err = e.uc.RunFor(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Transitions, "invoice 21 is now past due")
	assert.Equal(t, 2, e.entities.Writes)

	st, err = e.uc.RunFor(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, st.Transitions)
	assert.Equal(t, 2, e.entities.Writes, "rerun writes nothing")
}

func TestRunFor_InvoiceTransitionWithoutNotification(t *testing.T) {
	e := newEnv(t, now)
	require.NoError(t, e.settings.Upsert(context.Background(), &notification.Settings{RecipientID: 1}))
	e.entities.Put(1, &entity.Collections{
		Invoices: []*entity.Invoice{{ID: 20, OwnerID: 1, Status: entity.InvoiceIssued, DueDate: date(2024, 6, 1)}},
	})

	st, err := e.uc.RunFor(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Transitions)
	assert.Empty(t, e.notifs.All())
}

func TestRunFor_FailureIsolation(t *testing.T) {
	e := newEnv(t, now)
	require.NoError(t, e.settings.Upsert(context.Background(), testutil.AllOn(1)))
	e.entities.Put(1, &entity.Collections{
		Invoices: []*entity.Invoice{
			{ID: 20, OwnerID: 1, Status: entity.InvoiceIssued, DueDate: date(2024, 6, 1)},
			{ID: 21, OwnerID: 1, Status: entity.InvoiceIssued, DueDate: date(2024, 6, 2)},
		},
		Payments: []*entity.Payment{{ID: 10, OwnerID: 1, Status: entity.PaymentPending, DueDate: date(2024, 6, 8)}},
	})
	e.entities.MarkOverdueErr[20] = errors.New("deadlock detected")

	st, err := e.uc.RunFor(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Errors)
	assert.Equal(t, 1, st.Transitions)
	assert.Equal(t, 2, st.Created, "invoice 21 and payment 10")
}

func TestRunFor_InvoiceNotificationFailureRetriesNextRun(t *testing.T) {
	e := newEnv(t, now)
	require.NoError(t, e.settings.Upsert(context.Background(), testutil.AllOn(1)))
	inv := &entity.Invoice{ID: 20, OwnerID: 1, Number: "INV-3", Status: entity.InvoiceIssued, DueDate: date(2024, 6, 1)}
	e.entities.Put(1, &entity.Collections{Invoices: []*entity.Invoice{inv}})
	e.notifs.CreateErr = errors.New("connection reset")

	st, err := e.uc.RunFor(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Errors)
	assert.Zero(t, st.Transitions)
	assert.Equal(t, entity.InvoiceIssued, inv.Status, "status rolled back with the failed notification")
	assert.Zero(t, e.entities.Writes)

	e.notifs.CreateErr = nil
	e.clock.Advance(time.Hour)
	st, err = e.uc.RunFor(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Transitions)
	assert.Equal(t, 1, st.Created)
	assert.Equal(t, entity.InvoiceOverdue, inv.Status)

	all := e.notifs.All()
	require.Len(t, all, 1)
	assert.Equal(t, "20", all[0].DedupKey)
}

func TestRunFor_JobReminderTomorrow(t *testing.T) {
	e := newEnv(t, now)
	require.NoError(t, e.settings.Upsert(context.Background(), testutil.AllOn(1)))
	e.entities.Put(1, &entity.Collections{
		Jobs: []*entity.Job{
			{ID: 1, OwnerID: 1, Title: "Wedding", Status: entity.JobConfirmed, StartAt: at(time.Date(2024, 6, 16, 23, 30, 0, 0, time.UTC))},
			{ID: 2, OwnerID: 1, Status: entity.JobScheduled, StartAt: at(time.Date(2024, 6, 15, 23, 0, 0, 0, time.UTC))},
			{ID: 3, OwnerID: 1, Status: entity.JobCompleted, StartAt: at(time.Date(2024, 6, 16, 9, 0, 0, 0, time.UTC))},
			{ID: 4, OwnerID: 1, Status: entity.JobScheduled, StartAt: at(time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC))},
		},
	})

	_, err := e.uc.RunFor(context.Background(), 1)
	require.NoError(t, err)
	all := e.notifs.All()
	require.Len(t, all, 1)
	assert.Equal(t, notification.JobReminder, all[0].Type)
	assert.Equal(t, "1", all[0].DedupKey)
	assert.Equal(t, `"Wedding" starts tomorrow`, all[0].Message())
}

func TestTick_VisitsEveryRecipient(t *testing.T) {
	e := newEnv(t, now)
	ctx := context.Background()
	require.NoError(t, e.settings.Upsert(ctx, testutil.AllOn(1)))
	require.NoError(t, e.settings.Upsert(ctx, testutil.AllOn(3)))
	for _, id := range []int64{1, 2, 3} {
		e.entities.Put(id, &entity.Collections{
			Payments: []*entity.Payment{{ID: id * 100, OwnerID: id, Status: entity.PaymentPending, DueDate: date(2024, 6, 8)}},
		})
	}

	st, err := e.uc.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Recipients)
	assert.Equal(t, 1, st.Skipped)
	assert.Equal(t, 2, st.Created)
}

func TestTick_StaticRecipients(t *testing.T) {
	e := newEnv(t, now)
	e.uc.Recipients = repo.Recipients{Static: []int64{3, 1}}
	ctx := context.Background()
	require.NoError(t, e.settings.Upsert(ctx, testutil.AllOn(1)))
	e.entities.Put(1, &entity.Collections{
		Payments: []*entity.Payment{{ID: 5, OwnerID: 1, Status: entity.PaymentPending, DueDate: date(2024, 6, 8)}},
	})
	e.entities.Put(2, &entity.Collections{
		Payments: []*entity.Payment{{ID: 6, OwnerID: 2, Status: entity.PaymentPending, DueDate: date(2024, 6, 8)}},
	})

	st, err := e.uc.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Recipients)
	assert.Equal(t, 1, st.Created)
}
