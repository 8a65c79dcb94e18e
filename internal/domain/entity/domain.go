package entity

import "time"

type Kind string

const (
	KindQuote    Kind = "quote"
	KindInvoice  Kind = "invoice"
	KindPayment  Kind = "payment"
	KindContract Kind = "contract"
	KindJob      Kind = "job"
	KindLead     Kind = "lead"
)

func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindQuote, KindInvoice, KindPayment, KindContract, KindJob, KindLead:
		return k, true
	}
	return "", false
}

// Snapshot is a read-only view of one business entity owned by the data layer.
// The set of implementations is closed: Quote, Invoice, Payment, Contract, Job, Lead.
type Snapshot interface {
	Kind() Kind
	EntityID() int64
	Owner() int64
	snapshot()
}

type QuoteStatus string

const (
	QuoteDraft    QuoteStatus = "draft"
	QuoteSent     QuoteStatus = "sent"
	QuoteAccepted QuoteStatus = "accepted"
	QuoteRejected QuoteStatus = "rejected"
	QuoteExpired  QuoteStatus = "expired"
)

type Quote struct {
	ID           int64       `json:"id"`
	OwnerID      int64       `json:"owner_id"`
	ClientID     int64       `json:"client_id"`
	JobID        *int64      `json:"job_id"`
	Status       QuoteStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	ValidityDate *time.Time  `json:"validity_date"` // civil date
}

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceIssued    InvoiceStatus = "issued"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

type Invoice struct {
	ID        int64         `json:"id"`
	OwnerID   int64         `json:"owner_id"`
	ClientID  int64         `json:"client_id"`
	JobID     *int64        `json:"job_id"`
	Number    string        `json:"number"`
	Status    InvoiceStatus `json:"status"`
	IssueDate *time.Time    `json:"issue_date"` // civil date
	DueDate   *time.Time    `json:"due_date"`   // civil date
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

type Payment struct {
	ID          int64         `json:"id"`
	OwnerID     int64         `json:"owner_id"`
	InvoiceID   *int64        `json:"invoice_id"`
	JobID       *int64        `json:"job_id"`
	Description string        `json:"description"`
	AmountCents int64         `json:"amount_cents"`
	Status      PaymentStatus `json:"status"`
	DueDate     *time.Time    `json:"due_date"` // civil date
}

type ContractStatus string

const (
	ContractDraft            ContractStatus = "draft"
	ContractSent             ContractStatus = "sent"
	ContractPendingSignature ContractStatus = "pending_signature"
	ContractSigned           ContractStatus = "signed"
	ContractCancelled        ContractStatus = "cancelled"
)

type Contract struct {
	ID       int64          `json:"id"`
	OwnerID  int64          `json:"owner_id"`
	JobID    *int64         `json:"job_id"`
	QuoteID  *int64         `json:"quote_id"`
	Status   ContractStatus `json:"status"`
	IssuedAt *time.Time     `json:"issued_at"`
}

type JobStatus string

const (
	JobLead      JobStatus = "lead"
	JobConfirmed JobStatus = "confirmed"
	JobScheduled JobStatus = "scheduled"
	JobCompleted JobStatus = "completed"
	JobCancelled JobStatus = "cancelled"
)

type Job struct {
	ID               int64      `json:"id"`
	OwnerID          int64      `json:"owner_id"`
	ClientID         int64      `json:"client_id"`
	ContractID       *int64     `json:"contract_id"`
	Title            string     `json:"title"`
	Status           JobStatus  `json:"status"`
	StartAt          *time.Time `json:"start_at"`
	EndAt            *time.Time `json:"end_at"`
	DeliverableCount int        `json:"deliverable_count"`
}

type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadContacted LeadStatus = "contacted"
	LeadQualified LeadStatus = "qualified"
	LeadWon       LeadStatus = "won"
	LeadLost      LeadStatus = "lost"
)

type Lead struct {
	ID        int64      `json:"id"`
	OwnerID   int64      `json:"owner_id"`
	ClientID  int64      `json:"client_id"`
	Name      string     `json:"name"`
	Status    LeadStatus `json:"status"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func (*Quote) Kind() Kind    { return KindQuote }
func (*Invoice) Kind() Kind  { return KindInvoice }
func (*Payment) Kind() Kind  { return KindPayment }
func (*Contract) Kind() Kind { return KindContract }
func (*Job) Kind() Kind      { return KindJob }
func (*Lead) Kind() Kind     { return KindLead }

func (q *Quote) EntityID() int64    { return q.ID }
func (i *Invoice) EntityID() int64  { return i.ID }
func (p *Payment) EntityID() int64  { return p.ID }
func (c *Contract) EntityID() int64 { return c.ID }
func (j *Job) EntityID() int64      { return j.ID }
func (l *Lead) EntityID() int64     { return l.ID }

func (q *Quote) Owner() int64    { return q.OwnerID }
func (i *Invoice) Owner() int64  { return i.OwnerID }
func (p *Payment) Owner() int64  { return p.OwnerID }
func (c *Contract) Owner() int64 { return c.OwnerID }
func (j *Job) Owner() int64      { return j.OwnerID }
func (l *Lead) Owner() int64     { return l.OwnerID }

func (*Quote) snapshot()    {}
func (*Invoice) snapshot()  {}
func (*Payment) snapshot()  {}
func (*Contract) snapshot() {}
func (*Job) snapshot()      {}
func (*Lead) snapshot()     {}

// Collections holds every snapshot of one recipient for a single evaluation pass.
type Collections struct {
	Quotes    []*Quote    `json:"quotes"`
	Invoices  []*Invoice  `json:"invoices"`
	Payments  []*Payment  `json:"payments"`
	Contracts []*Contract `json:"contracts"`
	Jobs      []*Job      `json:"jobs"`
	Leads     []*Lead     `json:"leads"`
}
