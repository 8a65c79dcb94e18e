package signals

import (
	"testing"
	"time"

	"github.com/NordCoder/Studiobell/internal/domain/entity"
	"github.com/NordCoder/Studiobell/internal/domain/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alertIDs(list []signal.AlertSummary) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}

func findAlert(list []signal.AlertSummary, id string) (signal.AlertSummary, bool) {
	for _, a := range list {
		if a.ID == id {
			return a, true
		}
	}
	return signal.AlertSummary{}, false
}

func TestAggregate_LeadFollowupScenario(t *testing.T) {
	now := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	lead := &entity.Lead{ID: 1, Status: entity.LeadNew, UpdatedAt: ptr(now.AddDate(0, 0, -20))}

	got := Aggregate(&entity.Collections{Leads: []*entity.Lead{lead}}, now)
	a, ok := findAlert(got, "new-leads-no-followup")
	require.True(t, ok)
	assert.Equal(t, 1, a.MatchCount)
	assert.Equal(t, entity.KindLead, a.EntityType)

	lead.Status = entity.LeadWon
	got = Aggregate(&entity.Collections{Leads: []*entity.Lead{lead}}, now)
	_, ok = findAlert(got, "new-leads-no-followup")
	assert.False(t, ok)
}

func TestAggregate_OneSummaryPerCategory(t *testing.T) {
	now := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	c := &entity.Collections{Invoices: []*entity.Invoice{
		{ID: 1, Status: entity.InvoiceIssued, DueDate: date(2024, 8, 1)},
		{ID: 2, Status: entity.InvoiceOverdue, DueDate: date(2024, 8, 20)},
		{ID: 3, Status: entity.InvoicePaid, DueDate: date(2024, 8, 20)},
		nil,
	}}
	got := Aggregate(c, now)
	a, ok := findAlert(got, "overdue-invoices")
	require.True(t, ok)
	assert.Equal(t, 2, a.MatchCount)
	assert.Equal(t, "2 invoices are past due", a.Description)
}

func TestAggregate_SortedBySeverityThenPriority(t *testing.T) {
	now := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	c := &entity.Collections{
		Quotes: []*entity.Quote{
			{ID: 1, Status: entity.QuoteSent, CreatedAt: now.AddDate(0, 0, -10), ValidityDate: date(2024, 8, 1)},
			{ID: 2, Status: entity.QuoteAccepted, CreatedAt: now},
		},
		Invoices: []*entity.Invoice{{ID: 1, Status: entity.InvoiceIssued, DueDate: date(2024, 8, 31), IssueDate: date(2024, 7, 1)}},
		Contracts: []*entity.Contract{
			{ID: 1, Status: entity.ContractSigned},
			{ID: 2, Status: entity.ContractSent, IssuedAt: ptr(now.AddDate(0, 0, -9))},
		},
		Jobs: []*entity.Job{
			{ID: 1, Status: entity.JobConfirmed, StartAt: ptr(now.Add(48 * time.Hour))},
		},
		Leads: []*entity.Lead{{ID: 1, Status: entity.LeadContacted, UpdatedAt: ptr(now.AddDate(0, 0, -30))}},
	}

	got := Aggregate(c, now)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Severity, got[i].Severity, "%v", alertIDs(got))
	}
	assert.Equal(t, []string{
		"overdue-invoices",
		"expired-quotes",
		"unsigned-contracts",
		"quotes-no-response",
		"new-leads-no-followup",
		"jobs-no-contract",
		"invoices-long-pending",
		"accepted-quotes-no-job",
		"signed-contracts-no-job",
		"jobs-this-week",
	}, alertIDs(got))
}

func TestAggregate_DueSoon(t *testing.T) {
	now := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	c := &entity.Collections{Invoices: []*entity.Invoice{
		{ID: 1, Status: entity.InvoiceIssued, DueDate: date(2024, 9, 1)},
		{ID: 2, Status: entity.InvoiceIssued, DueDate: date(2024, 9, 4)},
		{ID: 3, Status: entity.InvoiceIssued, DueDate: date(2024, 9, 5)},
	}}
	a, ok := findAlert(Aggregate(c, now), "invoices-due-soon")
	require.True(t, ok)
	assert.Equal(t, 2, a.MatchCount)
}

func TestAggregate_EmptyAndNil(t *testing.T) {
	assert.Nil(t, Aggregate(nil, time.Now()))
	assert.Empty(t, Aggregate(&entity.Collections{}, time.Now()))
}
