package entity

import "context"

type Reader interface {
	Collections(ctx context.Context, ownerID int64) (*Collections, error)
	Get(ctx context.Context, ownerID int64, kind Kind, id int64) (Snapshot, error)
	IssuedInvoices(ctx context.Context, ownerID int64) ([]*Invoice, error)
	PendingPayments(ctx context.Context, ownerID int64) ([]*Payment, error)
	UpcomingJobs(ctx context.Context, ownerID int64) ([]*Job, error)
	Owners(ctx context.Context) ([]int64, error)
}

type InvoiceWriter interface {
	// MarkOverdue moves an issued invoice to overdue. changed is false when the
	// invoice was not in the issued state anymore.
	MarkOverdue(ctx context.Context, invoiceID int64) (changed bool, err error)
}
