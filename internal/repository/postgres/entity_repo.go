package postgres

import (
	"context"
	"fmt"

	"github.com/NordCoder/Studiobell/internal/domain/entity"
	"github.com/jackc/pgx/v5"
)

var (
	_ entity.Reader        = (*EntityRepo)(nil)
	_ entity.InvoiceWriter = (*EntityRepo)(nil)
)

// EntityRepo reads the studio records the rules evaluate. The only write it
// performs is the issued -> overdue invoice transition.
type EntityRepo struct{ db *DB }

func NewEntityRepo(db *DB) *EntityRepo { return &EntityRepo{db: db} }

const (
	colsQuote    = `id, owner_id, client_id, job_id, status, created_at, validity_date`
	colsInvoice  = `id, owner_id, client_id, job_id, number, status, issue_date, due_date`
	colsPayment  = `id, owner_id, invoice_id, job_id, description, amount_cents, status, due_date`
	colsContract = `id, owner_id, job_id, quote_id, status, issued_at`
	colsJob      = `j.id, j.owner_id, j.client_id, j.contract_id, j.title, j.status, j.start_at, j.end_at,
       (SELECT count(*) FROM deliverables d WHERE d.job_id = j.id)`
	colsLead = `id, owner_id, client_id, name, status, updated_at`

	qQuotes    = `SELECT ` + colsQuote + ` FROM quotes WHERE owner_id = $1 ORDER BY id;`
	qInvoices  = `SELECT ` + colsInvoice + ` FROM invoices WHERE owner_id = $1 ORDER BY id;`
	qPayments  = `SELECT ` + colsPayment + ` FROM payments WHERE owner_id = $1 ORDER BY id;`
	qContracts = `SELECT ` + colsContract + ` FROM contracts WHERE owner_id = $1 ORDER BY id;`
	qJobs      = `SELECT ` + colsJob + ` FROM jobs j WHERE j.owner_id = $1 ORDER BY j.id;`
	qLeads     = `SELECT ` + colsLead + ` FROM leads WHERE owner_id = $1 ORDER BY id;`

	qQuote    = `SELECT ` + colsQuote + ` FROM quotes WHERE owner_id = $1 AND id = $2;`
	qInvoice  = `SELECT ` + colsInvoice + ` FROM invoices WHERE owner_id = $1 AND id = $2;`
	qPayment  = `SELECT ` + colsPayment + ` FROM payments WHERE owner_id = $1 AND id = $2;`
	qContract = `SELECT ` + colsContract + ` FROM contracts WHERE owner_id = $1 AND id = $2;`
	qJob      = `SELECT ` + colsJob + ` FROM jobs j WHERE j.owner_id = $1 AND j.id = $2;`
	qLead     = `SELECT ` + colsLead + ` FROM leads WHERE owner_id = $1 AND id = $2;`

	qIssuedInvoices = `
SELECT ` + colsInvoice + `
FROM invoices
WHERE owner_id = $1 AND status = 'issued' AND due_date IS NOT NULL
ORDER BY due_date, id;`

	qPendingPayments = `
SELECT ` + colsPayment + `
FROM payments
WHERE owner_id = $1 AND status = 'pending' AND due_date IS NOT NULL
ORDER BY due_date, id;`

	qUpcomingJobs = `
SELECT ` + colsJob + `
FROM jobs j
WHERE j.owner_id = $1
  AND j.status IN ('confirmed', 'scheduled')
  AND j.start_at IS NOT NULL
  AND j.start_at >= now() - INTERVAL '1 day'
  AND j.start_at <  now() + INTERVAL '3 days'
ORDER BY j.start_at, j.id;`

	qOwners = `
SELECT owner_id FROM invoices
UNION SELECT owner_id FROM payments
UNION SELECT owner_id FROM jobs
UNION SELECT recipient_id FROM notification_settings
ORDER BY 1;`

	qMarkOverdue = `
UPDATE invoices SET status = 'overdue'
WHERE id = $1 AND status = 'issued';`
)

func scanQuote(row pgx.Row) (*entity.Quote, error) {
	var q entity.Quote
	var status string
	if err := row.Scan(&q.ID, &q.OwnerID, &q.ClientID, &q.JobID, &status, &q.CreatedAt, &q.ValidityDate); err != nil {
		return nil, err
	}
	q.Status = entity.QuoteStatus(status)
	return &q, nil
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var i entity.Invoice
	var status string
	if err := row.Scan(&i.ID, &i.OwnerID, &i.ClientID, &i.JobID, &i.Number, &status, &i.IssueDate, &i.DueDate); err != nil {
		return nil, err
	}
	i.Status = entity.InvoiceStatus(status)
	return &i, nil
}

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var p entity.Payment
	var status string
	if err := row.Scan(&p.ID, &p.OwnerID, &p.InvoiceID, &p.JobID, &p.Description, &p.AmountCents, &status, &p.DueDate); err != nil {
		return nil, err
	}
	p.Status = entity.PaymentStatus(status)
	return &p, nil
}

func scanContract(row pgx.Row) (*entity.Contract, error) {
	var c entity.Contract
	var status string
	if err := row.Scan(&c.ID, &c.OwnerID, &c.JobID, &c.QuoteID, &status, &c.IssuedAt); err != nil {
		return nil, err
	}
	c.Status = entity.ContractStatus(status)
	return &c, nil
}

func scanJob(row pgx.Row) (*entity.Job, error) {
	var j entity.Job
	var status string
	if err := row.Scan(&j.ID, &j.OwnerID, &j.ClientID, &j.ContractID, &j.Title, &status, &j.StartAt, &j.EndAt, &j.DeliverableCount); err != nil {
		return nil, err
	}
	j.Status = entity.JobStatus(status)
	return &j, nil
}

func scanLead(row pgx.Row) (*entity.Lead, error) {
	var l entity.Lead
	var status string
	if err := row.Scan(&l.ID, &l.OwnerID, &l.ClientID, &l.Name, &status, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Status = entity.LeadStatus(status)
	return &l, nil
}

// queryAll runs q and scans each row with scan.
func queryAll[T any](ctx context.Context, db *DB, q string, scan func(pgx.Row) (T, error), args ...any) ([]T, error) {
	rows, err := db.execQueryer(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *EntityRepo) Collections(ctx context.Context, ownerID int64) (*entity.Collections, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var (
		c   entity.Collections
		err error
	)
	if c.Quotes, err = queryAll(ctx, r.db, qQuotes, scanQuote, ownerID); err != nil {
		return nil, fmt.Errorf("load quotes: %w", err)
	}
	if c.Invoices, err = queryAll(ctx, r.db, qInvoices, scanInvoice, ownerID); err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}
	if c.Payments, err = queryAll(ctx, r.db, qPayments, scanPayment, ownerID); err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	if c.Contracts, err = queryAll(ctx, r.db, qContracts, scanContract, ownerID); err != nil {
		return nil, fmt.Errorf("load contracts: %w", err)
	}
	if c.Jobs, err = queryAll(ctx, r.db, qJobs, scanJob, ownerID); err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	if c.Leads, err = queryAll(ctx, r.db, qLeads, scanLead, ownerID); err != nil {
		return nil, fmt.Errorf("load leads: %w", err)
	}
	return &c, nil
}

func (r *EntityRepo) Get(ctx context.Context, ownerID int64, kind entity.Kind, id int64) (entity.Snapshot, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	var (
		s   entity.Snapshot
		err error
	)
	switch kind {
	case entity.KindQuote:
		s, err = scanQuote(eq.QueryRow(ctx, qQuote, ownerID, id))
	case entity.KindInvoice:
		s, err = scanInvoice(eq.QueryRow(ctx, qInvoice, ownerID, id))
	case entity.KindPayment:
		s, err = scanPayment(eq.QueryRow(ctx, qPayment, ownerID, id))
	case entity.KindContract:
		s, err = scanContract(eq.QueryRow(ctx, qContract, ownerID, id))
	case entity.KindJob:
		s, err = scanJob(eq.QueryRow(ctx, qJob, ownerID, id))
	case entity.KindLead:
		s, err = scanLead(eq.QueryRow(ctx, qLead, ownerID, id))
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}

func (r *EntityRepo) IssuedInvoices(ctx context.Context, ownerID int64) ([]*entity.Invoice, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()
	out, err := queryAll(ctx, r.db, qIssuedInvoices, scanInvoice, ownerID)
	if err != nil {
		return nil, fmt.Errorf("issued invoices: %w", err)
	}
	return out, nil
}

func (r *EntityRepo) PendingPayments(ctx context.Context, ownerID int64) ([]*entity.Payment, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()
	out, err := queryAll(ctx, r.db, qPendingPayments, scanPayment, ownerID)
	if err != nil {
		return nil, fmt.Errorf("pending payments: %w", err)
	}
	return out, nil
}

func (r *EntityRepo) UpcomingJobs(ctx context.Context, ownerID int64) ([]*entity.Job, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()
	out, err := queryAll(ctx, r.db, qUpcomingJobs, scanJob, ownerID)
	if err != nil {
		return nil, fmt.Errorf("upcoming jobs: %w", err)
	}
	return out, nil
}

func (r *EntityRepo) Owners(ctx context.Context) ([]int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()
	out, err := queryAll(ctx, r.db, qOwners, func(row pgx.Row) (int64, error) {
		var id int64
		return id, row.Scan(&id)
	})
	if err != nil {
		return nil, fmt.Errorf("owners: %w", err)
	}
	return out, nil
}

func (r *EntityRepo) MarkOverdue(ctx context.Context, invoiceID int64) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()
	cmd, err := r.db.execQueryer(ctx).Exec(ctx, qMarkOverdue, invoiceID)
	if err != nil {
		return false, fmt.Errorf("mark overdue: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}
