package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davicafu/tiendalab/internal/order/application"
	"github.com/davicafu/tiendalab/internal/order/domain"
)

// OrderHandler encapsula los endpoints HTTP relacionados con Order.
type OrderHandler struct {
	service *application.OrderService
}

func NewOrderHandler(service *application.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// ---------------- Handlers ----------------

// CreateOrder endpoint POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req struct {
		CustomerID    string `json:"customer_id" binding:"required"`
		CustomerEmail string `json:"customer_email" binding:"required,email"`
		Items         []struct {
			ProductID   string `json:"product_id" binding:"required"`
			ProductName string `json:"product_name"`
			ProductSKU  string `json:"product_sku"`
			Quantity    int    `json:"quantity" binding:"required"`
			UnitPrice   string `json:"unit_price" binding:"required"`
		} `json:"items" binding:"required"`
		ShippingAddress *domain.ShippingAddress `json:"shipping_address"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		productID, err := uuid.Parse(it.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product_id"})
			return
		}
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit_price"})
			return
		}
		items = append(items, domain.OrderItem{
			ProductID:   productID,
			ProductName: it.ProductName,
			ProductSKU:  it.ProductSKU,
			Quantity:    it.Quantity,
			UnitPrice:   price,
		})
	}

	order, err := h.service.CreateOrder(c.Request.Context(), req.CustomerID, req.CustomerEmail, items, req.ShippingAddress)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyOrder) || errors.Is(err, domain.ErrInvalidOrder) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetOrder endpoint GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetOrderByNumber endpoint GET /orders/number/:number
func (h *OrderHandler) GetOrderByNumber(c *gin.Context) {
	order, err := h.service.GetOrderByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListOrders endpoint GET /orders?customer_id=...&status=...
func (h *OrderHandler) ListOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	if customerID := c.Query("customer_id"); customerID != "" {
		orders, err := h.service.ListOrdersByCustomer(c.Request.Context(), customerID, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, orders)
		return
	}

	status := c.Query("status")
	if status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "customer_id or status query param required"})
		return
	}
	orders, err := h.service.ListOrdersByStatus(c.Request.Context(), domain.OrderStatus(status), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// ConfirmOrder endpoint PUT /orders/:id/confirm
func (h *OrderHandler) ConfirmOrder(c *gin.Context) {
	h.applyTransition(c, h.service.ConfirmOrder)
}

// ShipOrder endpoint PUT /orders/:id/ship
func (h *OrderHandler) ShipOrder(c *gin.Context) {
	h.applyTransition(c, h.service.ShipOrder)
}

// DeliverOrder endpoint PUT /orders/:id/deliver
func (h *OrderHandler) DeliverOrder(c *gin.Context) {
	h.applyTransition(c, h.service.DeliverOrder)
}

// CancelOrder endpoint PUT /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	h.applyTransition(c, h.service.CancelOrder)
}

// ---------------- helpers ----------------

func (h *OrderHandler) applyTransition(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (*domain.Order, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := op(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
