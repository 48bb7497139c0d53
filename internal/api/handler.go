package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"payment-service/internal/models"
	"payment-service/internal/service"
	"payment-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Handler contains HTTP handlers
type Handler struct {
	paymentService *service.PaymentService
}

// NewHandler creates a new HTTP handler
func NewHandler(paymentService *service.PaymentService) *Handler {
	return &Handler{
		paymentService: paymentService,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/payments", h.createPayment)
		v1.POST("/payments/:id/process", h.processPayment)
		v1.GET("/payments/order/:orderId", h.getPaymentByOrder)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// CreatePaymentRequest is the manual payment creation body
type CreatePaymentRequest struct {
	OrderID string          `json:"orderId" binding:"required"`
	Amount  decimal.Decimal `json:"amount"`
}

// createPayment handles manual payment creation
func (h *Handler) createPayment(c *gin.Context) {
	var req CreatePaymentRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	payment, err := h.paymentService.CreatePayment(c.Request.Context(), req.OrderID, req.Amount)
	if err != nil {
		if errors.Is(err, models.ErrDuplicatePayment) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Payment already exists for this order",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create payment",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// processPayment triggers processing for a payment (manual retry path)
func (h *Handler) processPayment(c *gin.Context) {
	paymentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid payment ID",
		})
		return
	}

	payment, err := h.paymentService.ProcessPayment(c.Request.Context(), paymentID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Payment not found",
			})
		case errors.Is(err, models.ErrInvalidPaymentState):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Payment is not in pending status",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to process payment",
				"details": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, payment)
}

// getPaymentByOrder handles lookup by order id
func (h *Handler) getPaymentByOrder(c *gin.Context) {
	orderID := c.Param("orderId")

	payment, err := h.paymentService.GetPaymentByOrderID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, models.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Payment not found for order",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get payment",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, payment)
}

// requestIDMiddleware assigns a request id when the caller sends none
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
