package http

import "github.com/gin-gonic/gin"

func RegisterOrderRoutes(r *gin.Engine, handler *OrderHandler) {
	orders := r.Group("/orders")
	{
		orders.POST("/", handler.CreateOrder)
		orders.GET("/", handler.ListOrders)
		orders.GET("/:id", handler.GetOrder)
		orders.GET("/number/:number", handler.GetOrderByNumber)
		orders.PUT("/:id/confirm", handler.ConfirmOrder)
		orders.PUT("/:id/ship", handler.ShipOrder)
		orders.PUT("/:id/deliver", handler.DeliverOrder)
		orders.PUT("/:id/cancel", handler.CancelOrder)
	}
}
