package notification

import "time"

type Category string

const (
	PaymentOverdue  Category = "payment_overdue"
	InvoiceOverdue  Category = "invoice_overdue"
	JobReminder     Category = "job_reminder"
	ContractSigned  Category = "contract_signed"
	PaymentReceived Category = "payment_received"
)

var Categories = []Category{PaymentOverdue, InvoiceOverdue, JobReminder, ContractSigned, PaymentReceived}

func (c Category) Known() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// Settings are per-recipient category switches. A recipient without a row has
// every category disabled.
type Settings struct {
	RecipientID   int64             `json:"recipient_id"`
	Flags         map[Category]bool `json:"flags"`
	SoundsEnabled bool              `json:"sounds_enabled"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (s *Settings) Enabled(c Category) bool {
	if s == nil || s.Flags == nil {
		return false
	}
	return s.Flags[c]
}
