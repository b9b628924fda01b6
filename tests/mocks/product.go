package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	catalogDomain "github.com/davicafu/tiendalab/internal/catalog/domain"
	sharedDomain "github.com/davicafu/tiendalab/internal/shared/domain"
)

// InMemoryProductRepo simula ProductRepository con outbox incluido.
type InMemoryProductRepo struct {
	Products map[uuid.UUID]*catalogDomain.Product
	Outbox   []sharedDomain.OutboxEvent
	mu       sync.Mutex
}

var _ catalogDomain.ProductRepository = (*InMemoryProductRepo)(nil)

func NewInMemoryProductRepo() *InMemoryProductRepo {
	return &InMemoryProductRepo{
		Products: make(map[uuid.UUID]*catalogDomain.Product),
		Outbox:   []sharedDomain.OutboxEvent{},
	}
}

func (r *InMemoryProductRepo) Create(ctx context.Context, p *catalogDomain.Product, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.Products {
		if existing.SKU == p.SKU {
			return catalogDomain.ErrProductAlreadyExists
		}
	}
	r.Products[p.ID] = p
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *InMemoryProductRepo) Update(ctx context.Context, p *catalogDomain.Product, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Products[p.ID]; !ok {
		return catalogDomain.ErrProductNotFound
	}
	r.Products[p.ID] = p
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *InMemoryProductRepo) Delete(ctx context.Context, id uuid.UUID, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Products[id]; !ok {
		return catalogDomain.ErrProductNotFound
	}
	delete(r.Products, id)
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *InMemoryProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*catalogDomain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Products[id]
	if !ok {
		return nil, catalogDomain.ErrProductNotFound
	}
	return p, nil
}

func (r *InMemoryProductRepo) GetBySKU(ctx context.Context, sku string) (*catalogDomain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.Products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return nil, catalogDomain.ErrProductNotFound
}

func (r *InMemoryProductRepo) ListActive(ctx context.Context, limit, offset int) ([]*catalogDomain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*catalogDomain.Product
	for _, p := range r.Products {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}
