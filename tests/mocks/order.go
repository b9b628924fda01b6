package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	orderDomain "github.com/davicafu/tiendalab/internal/order/domain"
	sharedDomain "github.com/davicafu/tiendalab/internal/shared/domain"
)

// InMemoryOrderRepo simula OrderRepository con outbox incluido. También
// implementa sharedDomain.OutboxRepository, de modo que un worker puede
// drenar su outbox en los tests de pipeline.
type InMemoryOrderRepo struct {
	Orders  map[uuid.UUID]*orderDomain.Order
	Outbox  []sharedDomain.OutboxEvent
	counter int64
	mu      sync.Mutex
}

var (
	_ orderDomain.OrderRepository  = (*InMemoryOrderRepo)(nil)
	_ sharedDomain.OutboxRepository = (*InMemoryOrderRepo)(nil)
)

func NewInMemoryOrderRepo() *InMemoryOrderRepo {
	return &InMemoryOrderRepo{
		Orders: make(map[uuid.UUID]*orderDomain.Order),
		Outbox: []sharedDomain.OutboxEvent{},
	}
}

func (r *InMemoryOrderRepo) Create(ctx context.Context, o *orderDomain.Order, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.Orders {
		if existing.OrderNumber == o.OrderNumber {
			return orderDomain.ErrOrderAlreadyExists
		}
	}
	r.Orders[o.ID] = o
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *InMemoryOrderRepo) Update(ctx context.Context, o *orderDomain.Order, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Orders[o.ID]; !ok {
		return orderDomain.ErrOrderNotFound
	}
	r.Orders[o.ID] = o
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *InMemoryOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.Orders[id]
	if !ok {
		return nil, orderDomain.ErrOrderNotFound
	}
	return o, nil
}

func (r *InMemoryOrderRepo) GetByNumber(ctx context.Context, number string) (*orderDomain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.Orders {
		if o.OrderNumber == number {
			return o, nil
		}
	}
	return nil, orderDomain.ErrOrderNotFound
}

func (r *InMemoryOrderRepo) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*orderDomain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*orderDomain.Order
	for _, o := range r.Orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *InMemoryOrderRepo) ListByStatus(ctx context.Context, status orderDomain.OrderStatus, limit, offset int) ([]*orderDomain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*orderDomain.Order
	for _, o := range r.Orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *InMemoryOrderRepo) NextSequence(ctx context.Context, year int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	return r.counter, nil
}

// ---------- OutboxRepository ----------

func (r *InMemoryOrderRepo) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
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

func (r *InMemoryOrderRepo) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
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
