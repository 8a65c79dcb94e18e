package signals

import (
	"fmt"
	"time"

	"github.com/NordCoder/Studiobell/internal/domain/entity"
	"github.com/NordCoder/Studiobell/internal/domain/signal"
)

const (
	InvoiceDueSoonDays = 3
	JobsAheadDays      = 7
)

// AlertRule counts matching entities of one kind; a positive count yields one summary.
type AlertRule struct {
	ID         string
	Severity   signal.Severity
	EntityType entity.Kind
	Title      string
	ActionPath string
	Describe   func(n int) string
	Count      func(r *Registry, c *entity.Collections, now time.Time) int
}

// Aggregate computes dashboard alerts from fresh collections using the default rules.
func Aggregate(c *entity.Collections, now time.Time) []signal.AlertSummary {
	return AggregateWith(defaultRegistry, DefaultAlertRules(), c, now)
}

func AggregateWith(r *Registry, rules []AlertRule, c *entity.Collections, now time.Time) []signal.AlertSummary {
	if c == nil {
		return nil
	}
	out := make([]signal.AlertSummary, 0, len(rules))
	for _, rule := range rules {
		n := safeCount(rule, r, c, now)
		if n <= 0 {
			continue
		}
		out = append(out, signal.AlertSummary{
			ID:          rule.ID,
			Title:       rule.Title,
			Description: rule.Describe(n),
			Severity:    rule.Severity,
			EntityType:  rule.EntityType,
			MatchCount:  n,
			ActionPath:  rule.ActionPath,
		})
	}
	signal.SortStable(out)
	return out
}

func safeCount(rule AlertRule, r *Registry, c *entity.Collections, now time.Time) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	return rule.Count(r, c, now)
}

func countBadge[T entity.Snapshot](r *Registry, items []T, badgeID string, now time.Time, also func(T) bool) int {
	n := 0
	for _, it := range items {
		if !r.Has(it, badgeID, now) {
			continue
		}
		if also != nil && !also(it) {
			continue
		}
		n++
	}
	return n
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

// DefaultAlertRules is the fixed priority list; its order is the display order within a severity.
func DefaultAlertRules() []AlertRule {
	return []AlertRule{
		{
			ID: "overdue-invoices", Severity: signal.Urgent, EntityType: entity.KindInvoice,
			Title: "Overdue invoices", ActionPath: "/invoices?status=overdue",
			Describe: func(n int) string { return plural(n, "invoice is", "invoices are") + " past due" },
			Count: func(r *Registry, c *entity.Collections, now time.Time) int {
				return countBadge(r, c.Invoices, BadgeInvoiceOverdue, now, nil)
			},
		},
		{
			ID: "overdue-payments", Severity: signal.Urgent, EntityType: entity.KindPayment,
			Title: "Overdue payments", ActionPath: "/payments?status=overdue",
			Describe: func(n int) string {
				return plural(n, "scheduled payment has", "scheduled payments have") + " not been received"
			},
			Count: func(r *Registry, c *entity.Collections, now time.Time) int {
				return countBadge(r, c.Payments, BadgePaymentOverdue, now, nil)
			},
		},
		{
			ID: "expired-quotes", Severity: signal.Urgent, EntityType: entity.KindQuote,
			Title: "Expired quotes", ActionPath: "/quotes?status=expired",
			Describe: func(n int) string {
				return plural(n, "open quote has", "open quotes have") + " passed the validity date"
			},
			Count: func(r *Registry, c *entity.Collections, now time.Time) int {
				return countBadge(r, c.Quotes, BadgeQuoteExpired, now, func(q *entity.Quote) bool {
					return q.Status == entity.QuoteDraft || q.Status == entity.QuoteSent
				})
			},
		},
		{
			ID: "unsigned-contracts", Severity: signal.Attention, EntityType: entity.KindContract,
			Title: "Contracts awaiting signature", ActionPath: "/contracts?status=pending_signature",
			Describe: func(n int) string {
				return plural(n, "contract", "contracts") + fmt.Sprintf(" sent more than %d days ago", ContractAwaitSignatureDays)
			},
			Count: func(r *Registry, c *entity.Collections, now time.Time) int {
				return countBadge(r, c.Contracts, BadgeContractAwaitingSign, now, nil)
			},
		},
		{
			ID: "quotes-no-response", Severity: signal.Attention, EntityType: entity.KindQuote,
			Title: "Quotes without response", ActionPath: "/quotes?status=sent",
			Describe: func(n int) string {
				return plural(n, "quote", "quotes") + fmt.Sprintf(" sent more than %d days ago", QuoteNoResponseDays)
			},
			Count: func(r *Registry, c *entity.Collections, now time.Time) int {
				return countBadge(r, c.Quotes, BadgeQuoteNoResponse, now, nil)
			},
		},
		{
			ID: "new-leads-no-followup", Severity: signal.Attention, EntityType: entity.KindLead,
			Title: "Leads need follow-up", ActionPath: "/leads?stale=true",
			Describe: func(n int) string {
				return plural(n, "lead", "leads") + fmt.Sprintf(" without activity for %d days", LeadStaleDays)
			},
			Count: func(r *Registry, c *entity.Collections, now time.Time) int {
				return countBadge(r, c.Leads, BadgeLeadStale, now, nil)
			},
		},
		{
			ID: "jobs-no-contract", Severity: signal.Attention, EntityType: entity.KindJob,
			Title: "Confirmed jobs without contract", ActionPath: "/jobs?status=confirmed&contract=none",
			Describe: func(n int) string { return plural(n, "confirmed job needs", "confirmed jobs need") + " a contract" },
			Count: func(r *Registry, c *entity.Collections, now time.Time) int {
				return countBadge(r, c.Jobs, BadgeJobNoContract, now, nil)
			},
		},
		{
			ID: "jobs-no-deliverables", Severity: signal.Attention, EntityType: entity.KindJob,
			Title: "Completed jobs without deliverables", ActionPath: "/jobs?status=completed&deliverables=none",
			Describe: func(n int) string { return plural(n, "completed job has", "completed jobs have") + " no deliverables" },
			Count: func(r *Registry, c *entity.Collections, now time.Time) int {
				return countBadge(r, c.Jobs, BadgeJobNoDeliverables, now, nil)
			},
		},
		{
			ID: "jobs-stale-schedule", Severity: signal.Attention, EntityType: entity.KindJob,
			Title: "Jobs to update", ActionPath: "/jobs?status=scheduled&ended=true",
			Describe: func(n int) string { return plural(n, "job has", "jobs have") + " ended but are still scheduled" },
			Count: func(r *Registry, c *entity.Collections, now time.Time) int {
				return countBadge(r, c.Jobs, BadgeJobStaleSchedule, now, nil)
			},
		},
		{
			ID: "invoices-long-pending", Severity: signal.Attention, EntityType: entity.KindInvoice,
			Title: "Long pending invoices", ActionPath: "/invoices?status=issued",
			Describe: func(n int) string {
				return plural(n, "invoice", "invoices") + fmt.Sprintf(" issued more than %d days ago", InvoiceLongPendingDays)
			},
			Count: func(r *Registry, c *entity.Collections, now time.Time) int {
				return countBadge(r, c.Invoices, BadgeInvoiceLongPending, now, nil)
			},
		},
		{
			ID: "accepted-quotes-no-job", Severity: signal.Attention, EntityType: entity.KindQuote,
			Title: "Accepted quotes to convert", ActionPath: "/quotes?status=accepted",
			Describe: func(n int) string { return plural(n, "accepted quote has", "accepted quotes have") + " no job yet" },
			Count: func(r *Registry, c *entity.Collections, now time.Time) int {
				return countBadge(r, c.Quotes, BadgeQuoteAcceptedNoJob, now, nil)
			},
		},
		{
			ID: "signed-contracts-no-job", Severity: signal.Info, EntityType: entity.KindContract,
			Title: "Signed contracts without job", ActionPath: "/contracts?status=signed",
			Describe: func(n int) string { return plural(n, "signed contract", "signed contracts") + " not linked to a job" },
			Count: func(r *Registry, c *entity.Collections, now time.Time) int {
				return countBadge(r, c.Contracts, BadgeContractSignedNoJob, now, nil)
			},
		},
		{
			ID: "invoices-due-soon", Severity: signal.Info, EntityType: entity.KindInvoice,
			Title: "Invoices due soon", ActionPath: "/invoices?due=soon",
			Describe: func(n int) string {
				return plural(n, "invoice", "invoices") + fmt.Sprintf(" due within %d days", InvoiceDueSoonDays)
			},
			Count: func(_ *Registry, c *entity.Collections, now time.Time) int {
				n := 0
				for _, inv := range c.Invoices {
					if inv == nil || inv.Status != entity.InvoiceIssued || inv.DueDate == nil {
						continue
					}
					if until := -signal.DaysPastDate(*inv.DueDate, now); until >= 0 && until <= InvoiceDueSoonDays {
						n++
					}
				}
				return n
			},
		},
		{
			ID: "jobs-this-week", Severity: signal.Info, EntityType: entity.KindJob,
			Title: "Upcoming jobs", ActionPath: "/jobs?upcoming=week",
			Describe: func(n int) string {
				return plural(n, "job", "jobs") + fmt.Sprintf(" in the next %d days", JobsAheadDays)
			},
			Count: func(_ *Registry, c *entity.Collections, now time.Time) int {
				n := 0
				for _, j := range c.Jobs {
					if j == nil || j.StartAt == nil {
						continue
					}
					if j.Status != entity.JobConfirmed && j.Status != entity.JobScheduled {
						continue
					}
					if ahead := -signal.DaysSince(*j.StartAt, now); ahead >= 0 && ahead <= JobsAheadDays && !j.StartAt.Before(now) {
						n++
					}
				}
				return n
			},
		},
	}
}
