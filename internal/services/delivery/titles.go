package delivery

import "github.com/NordCoder/Studiobell/internal/domain/notification"

const GenericTitle = "Studiobell"

var titles = map[notification.Category]string{
	notification.PaymentOverdue:  "Payment overdue",
	notification.InvoiceOverdue:  "Invoice overdue",
	notification.JobReminder:     "Job tomorrow",
	notification.ContractSigned:  "Contract signed",
	notification.PaymentReceived: "Payment received",
}

// Title is the OS notification title for a type. Unknown types get GenericTitle.
func Title(t notification.Category) string {
	if s, ok := titles[t]; ok {
		return s
	}
	return GenericTitle
}

// SoundSeverity selects the audio cue. It is a delivery concern and does not
// follow signal.Severity.
type SoundSeverity string

const (
	SoundUrgent    SoundSeverity = "urgent"
	SoundImportant SoundSeverity = "important"
	SoundInfo      SoundSeverity = "info"
	SoundSuccess   SoundSeverity = "success"
)

func SoundFor(t notification.Category) SoundSeverity {
	switch t {
	case notification.PaymentOverdue, notification.InvoiceOverdue:
		return SoundUrgent
	case notification.JobReminder:
		return SoundImportant
	case notification.ContractSigned, notification.PaymentReceived:
		return SoundSuccess
	default:
		return SoundInfo
	}
}
