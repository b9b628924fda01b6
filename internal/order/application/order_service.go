package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	orderDomain "github.com/davicafu/tiendalab/internal/order/domain"
	sharedDomain "github.com/davicafu/tiendalab/internal/shared/domain"
	sharedEvents "github.com/davicafu/tiendalab/internal/shared/domain/events"
)

// OrderService define los casos de uso del ciclo de vida del pedido.
// Cada operación administrativa persiste el nuevo estado junto con su hecho
// (vía outbox) y por tanto publica exactamente un evento por transición.
type OrderService struct {
	repo   orderDomain.OrderRepository
	prefix string
	log    *zap.Logger
}

func NewOrderService(repo orderDomain.OrderRepository, prefix string, log *zap.Logger) *OrderService {
	return &OrderService{
		repo:   repo,
		prefix: prefix,
		log:    log,
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, customerID, customerEmail string, items []orderDomain.OrderItem, addr *orderDomain.ShippingAddress) (*orderDomain.Order, error) {
	number, err := s.nextOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	order, err := orderDomain.NewOrder(number, customerID, customerEmail, items, addr)
	if err != nil {
		return nil, err
	}

	s.log.Info("🛒 Creating order",
		zap.String("order_number", order.OrderNumber),
		zap.String("customer_id", customerID),
	)

	evt := s.outboxEvent(orderDomain.OrderCreatedEvent, order)
	if err := s.repo.Create(ctx, order, evt); err != nil {
		return nil, err
	}

	return order, nil
}

// ConfirmOrder dispara la transición PENDING→CONFIRMED. El hecho
// ORDER_CONFIRMED es el disparador de la facturación aguas abajo.
func (s *OrderService) ConfirmOrder(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error) {
	return s.transition(ctx, id, orderDomain.OrderConfirmedEvent, func(o *orderDomain.Order) error {
		return o.Confirm()
	})
}

func (s *OrderService) ShipOrder(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error) {
	return s.transition(ctx, id, orderDomain.OrderShippedEvent, func(o *orderDomain.Order) error {
		return o.Ship()
	})
}

func (s *OrderService) DeliverOrder(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error) {
	return s.transition(ctx, id, orderDomain.OrderDeliveredEvent, func(o *orderDomain.Order) error {
		return o.Deliver()
	})
}

// CancelOrder dispara la compensación aguas abajo (cancelación de factura
// salvo que esté pagada) vía ORDER_CANCELLED.
func (s *OrderService) CancelOrder(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error) {
	return s.transition(ctx, id, orderDomain.OrderCancelledEvent, func(o *orderDomain.Order) error {
		return o.Cancel()
	})
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *OrderService) GetOrderByNumber(ctx context.Context, number string) (*orderDomain.Order, error) {
	return s.repo.GetByNumber(ctx, number)
}

func (s *OrderService) ListOrdersByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*orderDomain.Order, error) {
	return s.repo.ListByCustomer(ctx, customerID, limit, offset)
}

func (s *OrderService) ListOrdersByStatus(ctx context.Context, status orderDomain.OrderStatus, limit, offset int) ([]*orderDomain.Order, error) {
	return s.repo.ListByStatus(ctx, status, limit, offset)
}

// ---------- helpers ----------

func (s *OrderService) transition(ctx context.Context, id uuid.UUID, eventType string, apply func(*orderDomain.Order) error) (*orderDomain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := apply(order); err != nil {
		return nil, err
	}

	evt := s.outboxEvent(eventType, order)
	if err := s.repo.Update(ctx, order, evt); err != nil {
		return nil, err
	}

	s.log.Info("Order transition committed",
		zap.String("order_number", order.OrderNumber),
		zap.String("event_type", eventType),
	)
	return order, nil
}

// nextOrderNumber usa el contador atómico del repositorio: la numeración
// nunca se deriva de un recuento de filas, que es propenso a colisiones
// con escritores concurrentes.
func (s *OrderService) nextOrderNumber(ctx context.Context) (string, error) {
	year := time.Now().UTC().Year()
	seq, err := s.repo.NextSequence(ctx, year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%06d", s.prefix, year, seq), nil
}

func (s *OrderService) outboxEvent(eventType string, order *orderDomain.Order) sharedDomain.OutboxEvent {
	return sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "order",
		AggregateID:   order.OrderNumber,
		EventType:     eventType,
		CorrelationID: order.CustomerID,
		Payload:       ToFact(order),
		CreatedAt:     time.Now().UTC(),
	}
}

// ToFact proyecta el agregado al contrato de integración que viaja en el bus.
func ToFact(o *orderDomain.Order) sharedEvents.OrderFact {
	items := make([]sharedEvents.OrderItemFact, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, sharedEvents.OrderItemFact{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			ProductSKU:  it.ProductSKU,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		})
	}

	var addr *sharedEvents.AddressFact
	if o.ShippingAddr != nil {
		addr = &sharedEvents.AddressFact{
			FullName:     o.ShippingAddr.FullName,
			AddressLine1: o.ShippingAddr.AddressLine1,
			AddressLine2: o.ShippingAddr.AddressLine2,
			City:         o.ShippingAddr.City,
			State:        o.ShippingAddr.State,
			ZipCode:      o.ShippingAddr.ZipCode,
			Country:      o.ShippingAddr.Country,
			Phone:        o.ShippingAddr.Phone,
		}
	}

	return sharedEvents.OrderFact{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		CustomerEmail:   o.CustomerEmail,
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount,
		Items:           items,
		ShippingAddress: addr,
		CreatedAt:       o.CreatedAt,
	}
}
