package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/NordCoder/Studiobell/internal/domain"
	"github.com/NordCoder/Studiobell/internal/domain/entity"
)

var (
	_ entity.Reader        = (*Entities)(nil)
	_ entity.InvoiceWriter = (*Entities)(nil)
)

// Entities serves snapshots per owner and counts real invoice writes.
type Entities struct {
	mu     sync.Mutex
	owners map[int64]*entity.Collections

	Writes         int
	MarkOverdueErr map[int64]error
	PaymentsErr    error
}

func NewEntities() *Entities {
	return &Entities{owners: map[int64]*entity.Collections{}, MarkOverdueErr: map[int64]error{}}
}

func (e *Entities) Put(ownerID int64, c *entity.Collections) {
	e.mu.Lock()
	e.owners[ownerID] = c
	e.mu.Unlock()
}

func (e *Entities) Collections(_ context.Context, ownerID int64) (*entity.Collections, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.owners[ownerID]
	if !ok {
		return &entity.Collections{}, nil
	}
	return c, nil
}

func (e *Entities) Get(_ context.Context, ownerID int64, kind entity.Kind, id int64) (entity.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.owners[ownerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	var all []entity.Snapshot
	switch kind {
	case entity.KindQuote:
		for _, x := range c.Quotes {
			all = append(all, x)
		}
	case entity.KindInvoice:
		for _, x := range c.Invoices {
			all = append(all, x)
		}
	case entity.KindPayment:
		for _, x := range c.Payments {
			all = append(all, x)
		}
	case entity.KindContract:
		for _, x := range c.Contracts {
			all = append(all, x)
		}
	case entity.KindJob:
		for _, x := range c.Jobs {
			all = append(all, x)
		}
	case entity.KindLead:
		for _, x := range c.Leads {
			all = append(all, x)
		}
	}
	for _, s := range all {
		if s.EntityID() == id {
			return s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (e *Entities) IssuedInvoices(_ context.Context, ownerID int64) ([]*entity.Invoice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*entity.Invoice
	if c, ok := e.owners[ownerID]; ok {
		for _, i := range c.Invoices {
			if i.Status == entity.InvoiceIssued && i.DueDate != nil {
				out = append(out, i)
			}
		}
	}
	return out, nil
}

func (e *Entities) PendingPayments(_ context.Context, ownerID int64) ([]*entity.Payment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.PaymentsErr != nil {
		return nil, e.PaymentsErr
	}
	var out []*entity.Payment
	if c, ok := e.owners[ownerID]; ok {
		for _, p := range c.Payments {
			if p.Status == entity.PaymentPending && p.DueDate != nil {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (e *Entities) UpcomingJobs(_ context.Context, ownerID int64) ([]*entity.Job, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*entity.Job
	if c, ok := e.owners[ownerID]; ok {
		for _, j := range c.Jobs {
			if (j.Status == entity.JobConfirmed || j.Status == entity.JobScheduled) && j.StartAt != nil {
				out = append(out, j)
			}
		}
	}
	return out, nil
}

func (e *Entities) Owners(_ context.Context) ([]int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]int64, 0, len(e.owners))
	for id := range e.owners {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// MarkOverdue mirrors the guarded UPDATE: only an issued invoice changes and
// only a change counts as a write.
func (e *Entities) MarkOverdue(_ context.Context, invoiceID int64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.MarkOverdueErr[invoiceID]; err != nil {
		return false, err
	}
	for _, c := range e.owners {
		for _, i := range c.Invoices {
			if i.ID != invoiceID {
				continue
			}
			if i.Status != entity.InvoiceIssued {
				return false, nil
			}
			i.Status = entity.InvoiceOverdue
			e.Writes++
			return true, nil
		}
	}
	return false, errors.New("invoice not found")
}

// WithTx restores invoice statuses and the write count when fn fails, the way
// a rolled back transaction would.
func (e *Entities) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	e.mu.Lock()
	saved := map[*entity.Invoice]entity.InvoiceStatus{}
	for _, c := range e.owners {
		for _, i := range c.Invoices {
			saved[i] = i.Status
		}
	}
	writes := e.Writes
	e.mu.Unlock()

	if err := fn(ctx); err != nil {
		e.mu.Lock()
		for i, st := range saved {
			i.Status = st
		}
		e.Writes = writes
		e.mu.Unlock()
		return err
	}
	return nil
}
