package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	sharedBus "github.com/davicafu/tiendalab/internal/shared/infra/platform/bus"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// orderTransitions es la tabla explícita de transiciones permitidas.
// Solo hacia delante, salvo la cancelación, que es alcanzable desde
// cualquier estado no terminal (DELIVERED y CANCELLED son terminales).
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderShipped, OrderCancelled},
	OrderShipped:   {OrderDelivered, OrderCancelled},
	OrderDelivered: {},
	OrderCancelled: {},
}

// CanTransition indica si el cambio de estado solicitado está permitido.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// OrderItem es una línea de pedido. TotalPrice se calcula al añadir la
// línea y no vuelve a recalcularse.
type OrderItem struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// ShippingAddress es la instantánea de la dirección de envío copiada al
// crear el pedido. Ediciones posteriores de la dirección del cliente no
// afectan a pedidos pasados.
type ShippingAddress struct {
	FullName     string `json:"full_name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state,omitempty"`
	ZipCode      string `json:"zip_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone,omitempty"`
}

// Order es el agregado de pedido. TotalAmount es la suma de las líneas en
// el momento de la creación y nunca se recalcula: descuentos y reembolsos
// son asunto de facturación, no del pedido.
type Order struct {
	ID            uuid.UUID        `json:"id"`
	OrderNumber   string           `json:"order_number"`
	CustomerID    string           `json:"customer_id"`
	CustomerEmail string           `json:"customer_email"`
	Status        OrderStatus      `json:"status"`
	TotalAmount   decimal.Decimal  `json:"total_amount"`
	Items         []OrderItem      `json:"items"`
	ShippingAddr  *ShippingAddress `json:"shipping_address,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	ConfirmedAt   *time.Time       `json:"confirmed_at,omitempty"`
	ShippedAt     *time.Time       `json:"shipped_at,omitempty"`
	DeliveredAt   *time.Time       `json:"delivered_at,omitempty"`
	CancelledAt   *time.Time       `json:"cancelled_at,omitempty"`
}

func (o *Order) PartitionKey() string {
	return o.OrderNumber
}

var _ sharedBus.Keyer = (*Order)(nil)

// NewOrder construye el pedido en PENDING calculando el total de cada línea
// y el total del agregado.
func NewOrder(orderNumber, customerID, customerEmail string, items []OrderItem, addr *ShippingAddress) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	now := time.Now().UTC()
	total := decimal.Zero
	for i := range items {
		if items[i].Quantity <= 0 {
			return nil, ErrInvalidOrder
		}
		items[i].TotalPrice = items[i].UnitPrice.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
		total = total.Add(items[i].TotalPrice)
	}

	return &Order{
		ID:            uuid.New(),
		OrderNumber:   orderNumber,
		CustomerID:    customerID,
		CustomerEmail: customerEmail,
		Status:        OrderPending,
		TotalAmount:   total,
		Items:         items,
		ShippingAddr:  addr,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// --- Métodos de dominio: máquina de estados ---

func (o *Order) Confirm() error {
	if !o.Status.CanTransition(OrderConfirmed) {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	o.Status = OrderConfirmed
	o.ConfirmedAt = &now
	o.UpdatedAt = now
	return nil
}

func (o *Order) Ship() error {
	if !o.Status.CanTransition(OrderShipped) {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	o.Status = OrderShipped
	o.ShippedAt = &now
	o.UpdatedAt = now
	return nil
}

func (o *Order) Deliver() error {
	if !o.Status.CanTransition(OrderDelivered) {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	o.Status = OrderDelivered
	o.DeliveredAt = &now
	o.UpdatedAt = now
	return nil
}

// Cancel solo es válido antes de la entrega.
func (o *Order) Cancel() error {
	if !o.Status.CanTransition(OrderCancelled) {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	o.Status = OrderCancelled
	o.CancelledAt = &now
	o.UpdatedAt = now
	return nil
}
