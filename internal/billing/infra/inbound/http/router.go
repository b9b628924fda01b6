package http

import "github.com/gin-gonic/gin"

func RegisterInvoiceRoutes(r *gin.Engine, handler *InvoiceHandler) {
	invoices := r.Group("/invoices")
	{
		invoices.GET("/", handler.ListInvoices)
		invoices.GET("/overdue", handler.ListOverdue)
		invoices.GET("/revenue", handler.Revenue)
		invoices.GET("/:id", handler.GetInvoice)
		invoices.GET("/number/:number", handler.GetInvoiceByNumber)
		invoices.GET("/order/:number", handler.GetInvoiceByOrder)
		invoices.PUT("/:id/status", handler.UpdateStatus)
		invoices.PUT("/:id/discount", handler.ApplyDiscount)
	}
}
