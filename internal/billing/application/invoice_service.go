package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	billingDomain "github.com/davicafu/tiendalab/internal/billing/domain"
	sharedDomain "github.com/davicafu/tiendalab/internal/shared/domain"
	sharedEvents "github.com/davicafu/tiendalab/internal/shared/domain/events"
	sharedCache "github.com/davicafu/tiendalab/internal/shared/infra/platform/cache"
)

// InvoiceService define los casos de uso de facturación.
type InvoiceService struct {
	repo      billingDomain.InvoiceRepository
	cache     sharedCache.Cache
	analytics billingDomain.RevenueAnalytics
	taxRate   decimal.Decimal
	prefix    string
	dueDays   int
	log       *zap.Logger
}

func NewInvoiceService(
	repo billingDomain.InvoiceRepository,
	cache sharedCache.Cache,
	analytics billingDomain.RevenueAnalytics,
	taxRate decimal.Decimal,
	prefix string,
	dueDays int,
	log *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		repo:      repo,
		cache:     cache,
		analytics: analytics,
		taxRate:   taxRate,
		prefix:    prefix,
		dueDays:   dueDays,
		log:       log,
	}
}

// CreateInvoiceFromOrderFact genera la factura a partir de la instantánea
// de un pedido confirmado. Si ya existe factura para ese pedido devuelve
// ErrInvoiceAlreadyExists: ante una re-entrega, el consumidor la trata
// como resultado esperado, no como error.
func (s *InvoiceService) CreateInvoiceFromOrderFact(ctx context.Context, fact sharedEvents.OrderFact) (*billingDomain.Invoice, error) {
	s.log.Info("💰 Creating invoice for order", zap.String("order_number", fact.OrderNumber))

	// Guarda de idempotencia: buscar antes de crear.
	if _, err := s.repo.GetByOrderNumber(ctx, fact.OrderNumber); err == nil {
		return nil, billingDomain.ErrInvoiceAlreadyExists
	} else if !errors.Is(err, billingDomain.ErrInvoiceNotFound) {
		return nil, err
	}

	number, err := s.nextInvoiceNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	issueDate := now.Truncate(24 * time.Hour)

	inv := &billingDomain.Invoice{
		ID:             uuid.New(),
		InvoiceNumber:  number,
		OrderID:        fact.ID,
		OrderNumber:    fact.OrderNumber,
		CustomerID:     fact.CustomerID,
		CustomerName:   customerName(fact),
		CustomerEmail:  fact.CustomerEmail,
		CustomerAddr:   buildCustomerAddress(fact.ShippingAddress),
		IssueDate:      issueDate,
		DueDate:        issueDate.AddDate(0, 0, s.dueDays),
		Subtotal:       fact.TotalAmount,
		TaxRate:        s.taxRate,
		DiscountAmount: decimal.Zero,
		Status:         billingDomain.InvoiceIssued,
		Notes:          fmt.Sprintf("Invoice generated automatically for order %s", fact.OrderNumber),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	inv.CalculateAmounts()

	evt := s.outboxEvent(billingDomain.InvoiceCreatedEvent, inv)
	if err := s.repo.Create(ctx, inv, evt); err != nil {
		return nil, err
	}

	s.log.Info("✅ Invoice created",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("order_number", inv.OrderNumber),
	)
	return inv, nil
}

// UpdateInvoiceStatus aplica una transición validada y publica
// INVOICE_STATUS_UPDATED.
func (s *InvoiceService) UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, newStatus billingDomain.InvoiceStatus) (*billingDomain.Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := inv.Status
	if err := inv.UpdateStatus(newStatus); err != nil {
		return nil, err
	}

	evt := s.outboxEvent(billingDomain.InvoiceStatusUpdatedEvent, inv)
	if err := s.repo.Update(ctx, inv, evt); err != nil {
		return nil, err
	}

	sharedCache.AsyncCacheDelete(ctx, s.cache, billingDomain.CacheKeyByNumber(inv.InvoiceNumber), s.log)

	if newStatus == billingDomain.InvoicePaid && s.analytics != nil {
		s.logPaidInvoiceAsync(inv)
	}

	s.log.Info("🔄 Invoice status updated",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(newStatus)),
	)
	return inv, nil
}

// ApplyDiscount fija el descuento y recalcula importes. Rechazado con
// ErrInvoicePaid si la factura está pagada.
func (s *InvoiceService) ApplyDiscount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*billingDomain.Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := inv.ApplyDiscount(amount); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, inv); err != nil {
		return nil, err
	}

	sharedCache.AsyncCacheDelete(ctx, s.cache, billingDomain.CacheKeyByNumber(inv.InvoiceNumber), s.log)

	s.log.Info("💸 Discount applied",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("discount", amount.String()),
	)
	return inv, nil
}

// CancelInvoiceForOrder es la compensación ante ORDER_CANCELLED: cancela
// la factura del pedido salvo que ya esté pagada. Una factura pagada no se
// cancela en silencio; exige un reembolso explícito.
func (s *InvoiceService) CancelInvoiceForOrder(ctx context.Context, orderNumber string) error {
	inv, err := s.repo.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return err
	}

	if inv.Status == billingDomain.InvoicePaid {
		s.log.Warn("⚠️ Cannot cancel paid invoice",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.String("order_number", orderNumber),
		)
		return nil
	}

	if _, err := s.UpdateInvoiceStatus(ctx, inv.ID, billingDomain.InvoiceCancelled); err != nil {
		return err
	}

	s.log.Info("✅ Invoice cancelled for order", zap.String("order_number", orderNumber))
	return nil
}

// ---------- Lecturas ----------

func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*billingDomain.Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

// GetInvoiceByNumber intenta primero la caché de lecturas.
func (s *InvoiceService) GetInvoiceByNumber(ctx context.Context, number string) (*billingDomain.Invoice, error) {
	if s.cache != nil {
		var cached billingDomain.Invoice
		if ok, _ := s.cache.Get(ctx, billingDomain.CacheKeyByNumber(number), &cached); ok {
			return &cached, nil
		}
	}

	inv, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	sharedCache.AsyncCacheSet(ctx, s.cache, billingDomain.CacheKeyByNumber(number), inv, 60, s.log)
	return inv, nil
}

func (s *InvoiceService) GetInvoiceByOrderNumber(ctx context.Context, orderNumber string) (*billingDomain.Invoice, error) {
	return s.repo.GetByOrderNumber(ctx, orderNumber)
}

func (s *InvoiceService) ListInvoicesByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*billingDomain.Invoice, error) {
	return s.repo.ListByCustomer(ctx, customerID, limit, offset)
}

func (s *InvoiceService) ListInvoicesByStatus(ctx context.Context, status billingDomain.InvoiceStatus, limit, offset int) ([]*billingDomain.Invoice, error) {
	return s.repo.ListByStatus(ctx, status, limit, offset)
}

func (s *InvoiceService) ListOverdueInvoices(ctx context.Context) ([]*billingDomain.Invoice, error) {
	return s.repo.ListOverdue(ctx, time.Now().UTC())
}

// TotalRevenue devuelve la suma de las facturas pagadas emitidas en el
// periodo; cero si no hay ninguna.
func (s *InvoiceService) TotalRevenue(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	revenue, err := s.repo.Revenue(ctx, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	return revenue, nil
}

// ---------- helpers ----------

func (s *InvoiceService) nextInvoiceNumber(ctx context.Context) (string, error) {
	year := time.Now().UTC().Year()
	seq, err := s.repo.NextSequence(ctx, year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%06d", s.prefix, year, seq), nil
}

func (s *InvoiceService) outboxEvent(eventType string, inv *billingDomain.Invoice) sharedDomain.OutboxEvent {
	return sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "invoice",
		AggregateID:   inv.InvoiceNumber,
		EventType:     eventType,
		CorrelationID: inv.CustomerID,
		Payload:       ToFact(inv),
		CreatedAt:     time.Now().UTC(),
	}
}

func (s *InvoiceService) logPaidInvoiceAsync(inv *billingDomain.Invoice) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.analytics.LogPaidInvoices(ctx, []*billingDomain.Invoice{inv}); err != nil {
			s.log.Warn("Analytics sink failed", zap.String("invoice_number", inv.InvoiceNumber), zap.Error(err))
		}
	}()
}

func customerName(fact sharedEvents.OrderFact) string {
	if fact.ShippingAddress != nil && fact.ShippingAddress.FullName != "" {
		return fact.ShippingAddress.FullName
	}
	return "Customer"
}

// buildCustomerAddress aplana la dirección de envío a una sola cadena,
// tal como se imprime en la factura.
func buildCustomerAddress(addr *sharedEvents.AddressFact) string {
	if addr == nil {
		return ""
	}

	lines := []string{
		addr.FullName,
		strings.TrimSpace(addr.AddressLine1 + " " + addr.AddressLine2),
		strings.TrimSpace(fmt.Sprintf("%s, %s %s", addr.City, addr.State, addr.ZipCode)),
		addr.Country,
	}

	nonEmpty := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			nonEmpty = append(nonEmpty, l)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

// ToFact proyecta la factura al contrato de integración.
func ToFact(inv *billingDomain.Invoice) sharedEvents.InvoiceFact {
	return sharedEvents.InvoiceFact{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		OrderID:       inv.OrderID,
		OrderNumber:   inv.OrderNumber,
		CustomerID:    inv.CustomerID,
		CustomerEmail: inv.CustomerEmail,
		Status:        string(inv.Status),
		Subtotal:      inv.Subtotal,
		TaxAmount:     inv.TaxAmount,
		TotalAmount:   inv.TotalAmount,
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
	}
}
