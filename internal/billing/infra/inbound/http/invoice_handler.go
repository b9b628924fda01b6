package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davicafu/tiendalab/internal/billing/application"
	"github.com/davicafu/tiendalab/internal/billing/domain"
)

// InvoiceHandler encapsula los endpoints HTTP relacionados con Invoice.
// Las facturas nacen de eventos de pedido, así que aquí no hay creación:
// solo lecturas, transición de estado y descuento.
type InvoiceHandler struct {
	service *application.InvoiceService
}

func NewInvoiceHandler(service *application.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

// ---------------- Handlers ----------------

// GetInvoice endpoint GET /invoices/:id
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	inv, err := h.service.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// GetInvoiceByNumber endpoint GET /invoices/number/:number
func (h *InvoiceHandler) GetInvoiceByNumber(c *gin.Context) {
	inv, err := h.service.GetInvoiceByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// GetInvoiceByOrder endpoint GET /invoices/order/:number
func (h *InvoiceHandler) GetInvoiceByOrder(c *gin.Context) {
	inv, err := h.service.GetInvoiceByOrderNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// ListInvoices endpoint GET /invoices?customer_id=...&status=...
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	if customerID := c.Query("customer_id"); customerID != "" {
		invoices, err := h.service.ListInvoicesByCustomer(c.Request.Context(), customerID, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, invoices)
		return
	}

	status := c.Query("status")
	if status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "customer_id or status query param required"})
		return
	}
	invoices, err := h.service.ListInvoicesByStatus(c.Request.Context(), domain.InvoiceStatus(status), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, invoices)
}

// ListOverdue endpoint GET /invoices/overdue
func (h *InvoiceHandler) ListOverdue(c *gin.Context) {
	invoices, err := h.service.ListOverdueInvoices(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, invoices)
}

// UpdateStatus endpoint PUT /invoices/:id/status
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := h.service.UpdateInvoiceStatus(c.Request.Context(), id, domain.InvoiceStatus(req.Status))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// ApplyDiscount endpoint PUT /invoices/:id/discount
func (h *InvoiceHandler) ApplyDiscount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	var req struct {
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid discount amount"})
		return
	}

	inv, err := h.service.ApplyDiscount(c.Request.Context(), id, amount)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// Revenue endpoint GET /invoices/revenue?start=2025-01-01&end=2025-12-31
func (h *InvoiceHandler) Revenue(c *gin.Context) {
	start, err := time.Parse("2006-01-02", c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date, expected YYYY-MM-DD"})
		return
	}
	end, err := time.Parse("2006-01-02", c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date, expected YYYY-MM-DD"})
		return
	}

	total, err := h.service.TotalRevenue(c.Request.Context(), start, end.Add(24*time.Hour-time.Nanosecond))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"start": c.Query("start"), "end": c.Query("end"), "revenue": total})
}

// ---------------- helpers ----------------

func (h *InvoiceHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvoiceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvoicePaid):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidDiscount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
