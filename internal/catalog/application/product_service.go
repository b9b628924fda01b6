package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	catalogDomain "github.com/davicafu/tiendalab/internal/catalog/domain"
	sharedDomain "github.com/davicafu/tiendalab/internal/shared/domain"
	sharedEvents "github.com/davicafu/tiendalab/internal/shared/domain/events"
)

// ProductService define los casos de uso del catálogo. Cada mutación
// persiste el nuevo estado junto con su hecho (vía outbox).
type ProductService struct {
	repo catalogDomain.ProductRepository
	log  *zap.Logger
}

func NewProductService(repo catalogDomain.ProductRepository, log *zap.Logger) *ProductService {
	return &ProductService{repo: repo, log: log}
}

func (s *ProductService) CreateProduct(ctx context.Context, sku, name, description string, price decimal.Decimal, stock int) (*catalogDomain.Product, error) {
	product, err := catalogDomain.NewProduct(sku, name, description, price, stock)
	if err != nil {
		return nil, err
	}

	s.log.Info("Creating product", zap.String("sku", product.SKU))

	evt := s.outboxEvent(catalogDomain.ProductCreatedEvent, product)
	if err := s.repo.Create(ctx, product, evt); err != nil {
		return nil, err
	}

	return product, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, name, description string, price decimal.Decimal) (*catalogDomain.Product, error) {
	return s.mutate(ctx, id, func(p *catalogDomain.Product) error {
		return p.UpdateDetails(name, description, price)
	})
}

// DecreaseStock descuenta unidades del inventario, por ejemplo al
// confirmar un pedido. ErrInsufficientStock cuando no hay existencias.
func (s *ProductService) DecreaseStock(ctx context.Context, id uuid.UUID, qty int) (*catalogDomain.Product, error) {
	return s.mutate(ctx, id, func(p *catalogDomain.Product) error {
		return p.DecreaseStock(qty)
	})
}

func (s *ProductService) IncreaseStock(ctx context.Context, id uuid.UUID, qty int) (*catalogDomain.Product, error) {
	return s.mutate(ctx, id, func(p *catalogDomain.Product) error {
		return p.IncreaseStock(qty)
	})
}

// DeleteProduct desactiva y borra el producto, publicando PRODUCT_DELETED.
func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	product.Deactivate()
	evt := s.outboxEvent(catalogDomain.ProductDeletedEvent, product)
	return s.repo.Delete(ctx, id, evt)
}

func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*catalogDomain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ProductService) GetProductBySKU(ctx context.Context, sku string) (*catalogDomain.Product, error) {
	return s.repo.GetBySKU(ctx, sku)
}

func (s *ProductService) ListActiveProducts(ctx context.Context, limit, offset int) ([]*catalogDomain.Product, error) {
	return s.repo.ListActive(ctx, limit, offset)
}

// ---------- helpers ----------

func (s *ProductService) mutate(ctx context.Context, id uuid.UUID, apply func(*catalogDomain.Product) error) (*catalogDomain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := apply(product); err != nil {
		return nil, err
	}

	evt := s.outboxEvent(catalogDomain.ProductUpdatedEvent, product)
	if err := s.repo.Update(ctx, product, evt); err != nil {
		return nil, err
	}

	return product, nil
}

func (s *ProductService) outboxEvent(eventType string, p *catalogDomain.Product) sharedDomain.OutboxEvent {
	return sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "product",
		AggregateID:   p.SKU,
		EventType:     eventType,
		CorrelationID: p.SKU,
		Payload:       ToFact(p),
		CreatedAt:     time.Now().UTC(),
	}
}

// ToFact proyecta el agregado al contrato de integración.
func ToFact(p *catalogDomain.Product) sharedEvents.ProductFact {
	return sharedEvents.ProductFact{
		ID:            p.ID,
		SKU:           p.SKU,
		Name:          p.Name,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Active:        p.Active,
	}
}
