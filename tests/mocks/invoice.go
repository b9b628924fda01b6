package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	billingDomain "github.com/davicafu/tiendalab/internal/billing/domain"
	sharedDomain "github.com/davicafu/tiendalab/internal/shared/domain"
)

// InMemoryInvoiceRepo simula InvoiceRepository con outbox incluido.
// Como InMemoryOrderRepo, también sirve de OutboxRepository en tests.
type InMemoryInvoiceRepo struct {
	Invoices map[uuid.UUID]*billingDomain.Invoice
	Outbox   []sharedDomain.OutboxEvent
	counter  int64
	mu       sync.Mutex
}

var (
	_ billingDomain.InvoiceRepository = (*InMemoryInvoiceRepo)(nil)
	_ sharedDomain.OutboxRepository   = (*InMemoryInvoiceRepo)(nil)
)

func NewInMemoryInvoiceRepo() *InMemoryInvoiceRepo {
	return &InMemoryInvoiceRepo{
		Invoices: make(map[uuid.UUID]*billingDomain.Invoice),
		Outbox:   []sharedDomain.OutboxEvent{},
	}
}

func (r *InMemoryInvoiceRepo) Create(ctx context.Context, inv *billingDomain.Invoice, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.Invoices {
		if existing.OrderNumber == inv.OrderNumber {
			return billingDomain.ErrInvoiceAlreadyExists
		}
	}
	r.Invoices[inv.ID] = inv
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *InMemoryInvoiceRepo) Update(ctx context.Context, inv *billingDomain.Invoice, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Invoices[inv.ID]; !ok {
		return billingDomain.ErrInvoiceNotFound
	}
	r.Invoices[inv.ID] = inv
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *InMemoryInvoiceRepo) Save(ctx context.Context, inv *billingDomain.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Invoices[inv.ID]; !ok {
		return billingDomain.ErrInvoiceNotFound
	}
	r.Invoices[inv.ID] = inv
	return nil
}

func (r *InMemoryInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*billingDomain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.Invoices[id]
	if !ok {
		return nil, billingDomain.ErrInvoiceNotFound
	}
	return inv, nil
}

func (r *InMemoryInvoiceRepo) GetByNumber(ctx context.Context, number string) (*billingDomain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.Invoices {
		if inv.InvoiceNumber == number {
			return inv, nil
		}
	}
	return nil, billingDomain.ErrInvoiceNotFound
}

func (r *InMemoryInvoiceRepo) GetByOrderNumber(ctx context.Context, orderNumber string) (*billingDomain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.Invoices {
		if inv.OrderNumber == orderNumber {
			return inv, nil
		}
	}
	return nil, billingDomain.ErrInvoiceNotFound
}

func (r *InMemoryInvoiceRepo) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*billingDomain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billingDomain.Invoice
	for _, inv := range r.Invoices {
		if inv.CustomerID == customerID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *InMemoryInvoiceRepo) ListByStatus(ctx context.Context, status billingDomain.InvoiceStatus, limit, offset int) ([]*billingDomain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billingDomain.Invoice
	for _, inv := range r.Invoices {
		if inv.Status == status {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *InMemoryInvoiceRepo) ListOverdue(ctx context.Context, now time.Time) ([]*billingDomain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billingDomain.Invoice
	for _, inv := range r.Invoices {
		if inv.IsOverdue(now) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *InMemoryInvoiceRepo) Revenue(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, inv := range r.Invoices {
		if inv.Status == billingDomain.InvoicePaid &&
			!inv.IssueDate.Before(start) && !inv.IssueDate.After(end) {
			total = total.Add(inv.TotalAmount)
		}
	}
	return total, nil
}

func (r *InMemoryInvoiceRepo) NextSequence(ctx context.Context, year int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	return r.counter, nil
}

// ---------- OutboxRepository ----------

func (r *InMemoryInvoiceRepo) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []sharedDomain.OutboxEvent
	for _, evt := range r.Outbox {
		if !evt.Processed {
			pending = append(pending, evt)
			if len(pending) >= limit {
				break
			}
		}
	}
	return pending, nil
}

func (r *InMemoryInvoiceRepo) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.Outbox {
		if r.Outbox[i].ID == id {
			r.Outbox[i].Processed = true
			return nil
		}
	}
	return fmt.Errorf("outbox event not found: %s", id)
}
