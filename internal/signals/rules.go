package signals

import (
	"fmt"
	"time"

	"github.com/NordCoder/Studiobell/internal/domain/entity"
	"github.com/NordCoder/Studiobell/internal/domain/signal"
)

const (
	QuoteNoResponseDays        = 7
	InvoiceLongPendingDays     = 30
	ContractAwaitSignatureDays = 5
	LeadStaleDays              = 14
)

const (
	BadgeQuoteNoResponse      = "quote-no-response"
	BadgeQuoteExpired         = "quote-expired"
	BadgeQuoteAcceptedNoJob   = "quote-accepted-no-job"
	BadgeInvoiceOverdue       = "invoice-overdue"
	BadgeInvoiceLongPending   = "invoice-long-pending"
	BadgeJobNoContract        = "job-no-contract"
	BadgeJobNoDeliverables    = "job-no-deliverables"
	BadgeJobStaleSchedule     = "job-stale-schedule"
	BadgePaymentOverdue       = "payment-overdue"
	BadgeContractAwaitingSign = "contract-awaiting-signature"
	BadgeContractSignedNoJob  = "contract-signed-no-job"
	BadgeLeadStale            = "lead-stale"
)

type hit struct {
	days    int
	tooltip string
}

// Rule is one predicate plus its message template for a single entity kind.
type Rule struct {
	ID       string
	Kind     entity.Kind
	Label    string
	Severity signal.Severity

	match func(s entity.Snapshot, now time.Time) (hit, bool)
}

func ruleFor[T entity.Snapshot](kind entity.Kind, id, label string, sev signal.Severity, fn func(T, time.Time) (hit, bool)) Rule {
	return Rule{
		ID: id, Kind: kind, Label: label, Severity: sev,
		match: func(s entity.Snapshot, now time.Time) (hit, bool) {
			v, ok := s.(T)
			if !ok {
				return hit{}, false
			}
			return fn(v, now)
		},
	}
}

func defaultRules() []Rule {
	return []Rule{
		ruleFor(entity.KindQuote, BadgeQuoteNoResponse, "No response", signal.Attention,
			func(q *entity.Quote, now time.Time) (hit, bool) {
				if q.Status != entity.QuoteSent || q.CreatedAt.IsZero() {
					return hit{}, false
				}
				d := signal.DaysSince(q.CreatedAt, now)
				if d <= QuoteNoResponseDays {
					return hit{}, false
				}
				return hit{days: d, tooltip: fmt.Sprintf("Sent %d days ago without a response", d)}, true
			}),
		ruleFor(entity.KindQuote, BadgeQuoteExpired, "Expired", signal.Urgent,
			func(q *entity.Quote, now time.Time) (hit, bool) {
				if q.ValidityDate == nil {
					return hit{}, false
				}
				d := signal.DaysPastDate(*q.ValidityDate, now)
				if d <= 0 {
					return hit{}, false
				}
				return hit{days: d, tooltip: fmt.Sprintf("Validity ended %d days ago", d)}, true
			}),
		ruleFor(entity.KindQuote, BadgeQuoteAcceptedNoJob, "Convert to job", signal.Attention,
			func(q *entity.Quote, _ time.Time) (hit, bool) {
				if q.Status != entity.QuoteAccepted || q.JobID != nil {
					return hit{}, false
				}
				return hit{tooltip: "Quote accepted but no job has been created"}, true
			}),

		ruleFor(entity.KindInvoice, BadgeInvoiceOverdue, "Overdue", signal.Urgent,
			func(i *entity.Invoice, now time.Time) (hit, bool) {
				if i.DueDate == nil || i.Status == entity.InvoicePaid || i.Status == entity.InvoiceCancelled {
					return hit{}, false
				}
				d := signal.DaysPastDate(*i.DueDate, now)
				if d <= 0 {
					return hit{}, false
				}
				return hit{days: d, tooltip: fmt.Sprintf("%d days overdue", d)}, true
			}),
		ruleFor(entity.KindInvoice, BadgeInvoiceLongPending, "Long pending", signal.Attention,
			func(i *entity.Invoice, now time.Time) (hit, bool) {
				if i.Status != entity.InvoiceIssued || i.IssueDate == nil {
					return hit{}, false
				}
				d := signal.DaysPastDate(*i.IssueDate, now)
				if d <= InvoiceLongPendingDays {
					return hit{}, false
				}
				return hit{days: d, tooltip: fmt.Sprintf("Issued %d days ago and still unpaid", d)}, true
			}),

		ruleFor(entity.KindJob, BadgeJobNoContract, "No contract", signal.Attention,
			func(j *entity.Job, _ time.Time) (hit, bool) {
				if j.Status != entity.JobConfirmed || j.ContractID != nil {
					return hit{}, false
				}
				return hit{tooltip: "Confirmed job without a contract"}, true
			}),
		ruleFor(entity.KindJob, BadgeJobNoDeliverables, "No deliverables", signal.Attention,
			func(j *entity.Job, _ time.Time) (hit, bool) {
				if j.Status != entity.JobCompleted || j.DeliverableCount > 0 {
					return hit{}, false
				}
				return hit{tooltip: "Completed job has no deliverables"}, true
			}),
		ruleFor(entity.KindJob, BadgeJobStaleSchedule, "Update status", signal.Attention,
			func(j *entity.Job, now time.Time) (hit, bool) {
				if j.Status != entity.JobScheduled || j.EndAt == nil || !j.EndAt.Before(now) {
					return hit{}, false
				}
				return hit{
					days:    signal.DaysSince(*j.EndAt, now),
					tooltip: "Scheduled job ended on " + j.EndAt.In(now.Location()).Format("2006-01-02"),
				}, true
			}),

		ruleFor(entity.KindPayment, BadgePaymentOverdue, "Overdue", signal.Urgent,
			func(p *entity.Payment, now time.Time) (hit, bool) {
				if p.Status != entity.PaymentPending || p.DueDate == nil {
					return hit{}, false
				}
				d := signal.DaysPastDate(*p.DueDate, now)
				if d <= 0 {
					return hit{}, false
				}
				return hit{days: d, tooltip: fmt.Sprintf("%d days overdue", d)}, true
			}),

		ruleFor(entity.KindContract, BadgeContractAwaitingSign, "Awaiting signature", signal.Attention,
			func(c *entity.Contract, now time.Time) (hit, bool) {
				if c.Status != entity.ContractSent && c.Status != entity.ContractPendingSignature {
					return hit{}, false
				}
				if c.IssuedAt == nil {
					return hit{}, false
				}
				d := signal.DaysSince(*c.IssuedAt, now)
				if d <= ContractAwaitSignatureDays {
					return hit{}, false
				}
				return hit{days: d, tooltip: fmt.Sprintf("Sent %d days ago and not signed", d)}, true
			}),
		ruleFor(entity.KindContract, BadgeContractSignedNoJob, "No job", signal.Info,
			func(c *entity.Contract, _ time.Time) (hit, bool) {
				if c.Status != entity.ContractSigned || c.JobID != nil {
					return hit{}, false
				}
				return hit{tooltip: "Signed contract has no job linked"}, true
			}),

		ruleFor(entity.KindLead, BadgeLeadStale, "Follow up", signal.Attention,
			func(l *entity.Lead, now time.Time) (hit, bool) {
				if l.Status == entity.LeadWon || l.Status == entity.LeadLost || l.UpdatedAt == nil {
					return hit{}, false
				}
				d := signal.DaysSince(*l.UpdatedAt, now)
				if d <= LeadStaleDays {
					return hit{}, false
				}
				return hit{days: d, tooltip: fmt.Sprintf("No activity for %d days", d)}, true
			}),
	}
}
