package routes

import (
	"github.com/Rocket-Marketplace/payments-service/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterPaymentRoutes(r *gin.Engine, pc *controllers.PaymentController) {
	payments := r.Group("/payments")
	payments.POST("/process", pc.ProcessPayment)
	payments.GET("/stats", pc.GetPaymentStats)
	payments.GET("/order/:orderId", pc.GetPaymentsByOrder)
	payments.GET("/buyer/:buyerId", pc.GetPaymentsByBuyer)
	payments.GET("/:id", pc.GetPayment)
	payments.POST("/:id/refund", pc.RefundPayment)
	payments.PATCH("/:id/status", pc.UpdatePaymentStatus)
}
