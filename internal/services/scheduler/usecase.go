package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/NordCoder/Studiobell/internal/domain"
	"github.com/NordCoder/Studiobell/internal/domain/entity"
	"github.com/NordCoder/Studiobell/internal/domain/notification"
	"github.com/NordCoder/Studiobell/internal/domain/signal"
	"github.com/NordCoder/Studiobell/internal/obs"
	"github.com/NordCoder/Studiobell/internal/services/inbox"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const DefaultPaymentCadenceDays = 7

type Store interface {
	Create(ctx context.Context, recipientID int64, typ notification.Category, payload map[string]any, dedupKey string) (*notification.Notification, error)
	Exists(ctx context.Context, recipientID int64, typ notification.Category, dedupKey string, day time.Time) (bool, error)
}

type RecipientSource interface {
	List(ctx context.Context) ([]int64, error)
}

// Stats counts what one run did.
type Stats struct {
	Recipients  int
	Skipped     int // recipients without settings
	Transitions int
	Created     int
	Duplicates  int
	Errors      int
}

func (s *Stats) add(o Stats) {
	s.Recipients += o.Recipients
	s.Skipped += o.Skipped
	s.Transitions += o.Transitions
	s.Created += o.Created
	s.Duplicates += o.Duplicates
	s.Errors += o.Errors
}

// Transactor groups writes; the inbox store joins a transaction carried in ctx.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type directTx struct{}

func (directTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type Usecase struct {
	Tx         Transactor
	Entities   entity.Reader
	Invoices   entity.InvoiceWriter
	Settings   notification.SettingsRepo
	Store      Store
	Recipients RecipientSource
	Clock      notification.Clock
	Log        *zap.Logger

	// PaymentCadenceDays spaces overdue-payment reminders: one on every Nth overdue day.
	PaymentCadenceDays int
}

func (u *Usecase) tx() Transactor {
	if u.Tx == nil {
		return directTx{}
	}
	return u.Tx
}

func (u *Usecase) cadence() int {
	if u.PaymentCadenceDays <= 0 {
		return DefaultPaymentCadenceDays
	}
	return u.PaymentCadenceDays
}

// Tick runs every recipient sequentially. A failing recipient is counted and
// does not stop the others.
func (u *Usecase) Tick(ctx context.Context) (Stats, error) {
	tr := otel.Tracer("scheduler.uc")
	ctx, span := tr.Start(ctx, "scheduler.tick")
	defer span.End()

	var total Stats
	ids, err := u.Recipients.List(ctx)
	if err != nil {
		span.RecordError(err)
		total.Errors++
		return total, err
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		st, err := u.RunFor(ctx, id)
		total.add(st)
		if err != nil {
			total.Errors++
			obs.WithTrace(ctx, u.Log).Warn("recipient run failed", zap.Int64("recipient_id", id), zap.Error(err))
		}
	}

	span.SetAttributes(
		attribute.Int("run.recipients", total.Recipients),
		attribute.Int("run.transitions", total.Transitions),
		attribute.Int("run.created", total.Created),
		attribute.Int("run.errors", total.Errors),
	)
	return total, nil
}

// RunFor applies the time-based automations for one recipient. Missing settings
// disable every automation, the invoice transition included.
func (u *Usecase) RunFor(ctx context.Context, recipientID int64) (Stats, error) {
	ctx, span, log := obs.Span(ctx, u.Log, "scheduler.uc", "scheduler.recipient", attribute.Int64("recipient.id", recipientID))
	defer span.End()
	log = log.With(zap.Int64("recipient_id", recipientID))

	st := Stats{Recipients: 1}

	settings, err := u.Settings.Get(ctx, recipientID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Info("settings missing, skipping")
		st.Skipped++
		return st, nil
	}
	if err != nil {
		span.RecordError(err)
		return st, fmt.Errorf("load settings: %w", err)
	}

	now := u.Clock.Now()

	u.overdueInvoices(ctx, log, recipientID, settings, now, &st)
	u.overduePayments(ctx, log, recipientID, settings, now, &st)
	u.jobReminders(ctx, log, recipientID, settings, now, &st)

	span.SetAttributes(
		attribute.Int("recipient.transitions", st.Transitions),
		attribute.Int("recipient.created", st.Created),
		attribute.Int("recipient.errors", st.Errors),
	)
	return st, nil
}

func (u *Usecase) overdueInvoices(ctx context.Context, log *zap.Logger, recipientID int64, s *notification.Settings, now time.Time, st *Stats) {
	invoices, err := u.Entities.IssuedInvoices(ctx, recipientID)
	if err != nil {
		st.Errors++
		log.Error("load issued invoices", zap.Error(err))
		return
	}

	for _, inv := range invoices {
		if inv.Status != entity.InvoiceIssued || inv.DueDate == nil {
			continue
		}
		days := signal.DaysPastDate(*inv.DueDate, now)
		if days <= 0 {
			continue
		}

		u.transitionInvoice(ctx, log, recipientID, inv, days, s.Enabled(notification.InvoiceOverdue), st)
	}
}

var errUnchanged = errors.New("invoice already left issued")

// transitionInvoice writes the overdue status and its notification in one
// transaction. A failed notification rolls the status back, so the invoice is
// still issued on the next run and both are retried together.
func (u *Usecase) transitionInvoice(ctx context.Context, log *zap.Logger, recipientID int64, inv *entity.Invoice, days int, notify bool, st *Stats) {
	var created, duplicate bool
	err := u.tx().WithTx(ctx, func(ctx context.Context) error {
		changed, err := u.Invoices.MarkOverdue(ctx, inv.ID)
		if err != nil {
			return fmt.Errorf("mark invoice overdue: %w", err)
		}
		if !changed {
			return errUnchanged
		}
		if !notify {
			return nil
		}
		payload := map[string]any{
			"message":      invoiceMessage(inv, days),
			"entity_type":  string(entity.KindInvoice),
			"entity_id":    inv.ID,
			"number":       inv.Number,
			"days_overdue": days,
		}
		_, err = u.Store.Create(ctx, recipientID, notification.InvoiceOverdue, payload, idKey(inv.ID))
		switch {
		case errors.Is(err, inbox.ErrSkipped):
			duplicate = true
		case err != nil:
			return fmt.Errorf("create notification: %w", err)
		default:
			created = true
		}
		return nil
	})
	switch {
	case errors.Is(err, errUnchanged):
		return
	case err != nil:
		st.Errors++
		log.Error("invoice overdue transition", zap.Int64("invoice_id", inv.ID), zap.Error(err))
		return
	}
	st.Transitions++
	if created {
		st.Created++
	}
	if duplicate {
		st.Duplicates++
	}
}

func (u *Usecase) overduePayments(ctx context.Context, log *zap.Logger, recipientID int64, s *notification.Settings, now time.Time, st *Stats) {
	if !s.Enabled(notification.PaymentOverdue) {
		return
	}
	payments, err := u.Entities.PendingPayments(ctx, recipientID)
	if err != nil {
		st.Errors++
		log.Error("load pending payments", zap.Error(err))
		return
	}

	cadence := u.cadence()
	today := signal.Day(now, now.Location())
	for _, p := range payments {
		if p.Status != entity.PaymentPending || p.DueDate == nil {
			continue
		}
		days := signal.DaysPastDate(*p.DueDate, now)
		if days <= 0 || days%cadence != 0 {
			continue
		}

		key := idKey(p.ID)
		exists, err := u.Store.Exists(ctx, recipientID, notification.PaymentOverdue, key, today)
		if err != nil {
			st.Errors++
			log.Error("check existing reminder", zap.Int64("payment_id", p.ID), zap.Error(err))
			continue
		}
		if exists {
			st.Duplicates++
			continue
		}
		payload := map[string]any{
			"message":      paymentMessage(p, days),
			"entity_type":  string(entity.KindPayment),
			"entity_id":    p.ID,
			"amount_cents": p.AmountCents,
			"days_overdue": days,
		}
		u.create(ctx, log, recipientID, notification.PaymentOverdue, payload, key, st)
	}
}

func (u *Usecase) jobReminders(ctx context.Context, log *zap.Logger, recipientID int64, s *notification.Settings, now time.Time, st *Stats) {
	if !s.Enabled(notification.JobReminder) {
		return
	}
	jobs, err := u.Entities.UpcomingJobs(ctx, recipientID)
	if err != nil {
		st.Errors++
		log.Error("load upcoming jobs", zap.Error(err))
		return
	}

	for _, j := range jobs {
		if j.StartAt == nil || (j.Status != entity.JobConfirmed && j.Status != entity.JobScheduled) {
			continue
		}
		if signal.CalendarDays(now, j.StartAt.In(now.Location())) != 1 {
			continue
		}
		payload := map[string]any{
			"message":     jobMessage(j),
			"entity_type": string(entity.KindJob),
			"entity_id":   j.ID,
			"start_at":    j.StartAt.UTC().Format(time.RFC3339),
		}
		u.create(ctx, log, recipientID, notification.JobReminder, payload, idKey(j.ID), st)
	}
}

func (u *Usecase) create(ctx context.Context, log *zap.Logger, recipientID int64, typ notification.Category, payload map[string]any, key string, st *Stats) {
	_, err := u.Store.Create(ctx, recipientID, typ, payload, key)
	switch {
	case errors.Is(err, inbox.ErrSkipped):
		st.Duplicates++
	case err != nil:
		st.Errors++
		log.Error("create notification", zap.String("type", string(typ)), zap.String("dedup_key", key), zap.Error(err))
	default:
		st.Created++
	}
}

func idKey(id int64) string { return strconv.FormatInt(id, 10) }

func invoiceMessage(inv *entity.Invoice, days int) string {
	name := "Invoice"
	if inv.Number != "" {
		name = "Invoice " + inv.Number
	}
	return fmt.Sprintf("%s is %d %s overdue", name, days, dayWord(days))
}

func paymentMessage(p *entity.Payment, days int) string {
	name := "A payment"
	if p.Description != "" {
		name = "Payment \"" + p.Description + "\""
	}
	return fmt.Sprintf("%s is %d %s overdue", name, days, dayWord(days))
}

func jobMessage(j *entity.Job) string {
	if j.Title == "" {
		return "You have a job starting tomorrow"
	}
	return fmt.Sprintf("%q starts tomorrow", j.Title)
}

func dayWord(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}
