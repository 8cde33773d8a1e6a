package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"triton-orders/internal/models"
	"triton-orders/internal/service"
	"triton-orders/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const exportFilename = "triton-all-orders.xlsx"

// Handler contains HTTP handlers
type Handler struct {
	orderService *service.OrderService
	recentLimit  int
}

// NewHandler creates a new HTTP handler
func NewHandler(orderService *service.OrderService, recentLimit int) *Handler {
	return &Handler{
		orderService: orderService,
		recentLimit:  recentLimit,
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

	api := router.Group("/api")
	{
		api.POST("/create-order", h.createOrder)
		api.GET("/pending-orders", h.pendingOrders)
		api.POST("/finish-order", h.finishOrder)
		api.GET("/stats", h.stats)
		api.GET("/download-orders", h.downloadOrders)
		api.GET("/recent-orders", h.recentOrders)
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

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	orderNumber, err := h.orderService.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid order",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create order",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Order added successfully",
		"orderNumber": orderNumber,
	})
}

// pendingOrders lists pending orders for the kitchen dashboard
func (h *Handler) pendingOrders(c *gin.Context) {
	c.JSON(http.StatusOK, h.orderService.ListPending(c.Request.Context()))
}

// finishOrder marks a pending order as completed
func (h *Handler) finishOrder(c *gin.Context) {
	var req struct {
		OrderNumber string `json:"orderNumber" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.orderService.CompleteOrder(c.Request.Context(), req.OrderNumber); err != nil {
		if errors.Is(err, models.ErrOrderNotFound) || errors.Is(err, models.ErrRowNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to finish order",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Order marked as finished",
		"orderNumber": req.OrderNumber,
	})
}

// stats serves the dashboard summary
func (h *Handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.orderService.Stats(c.Request.Context()))
}

// downloadOrders serves the whole ledger workbook as an attachment
func (h *Handler) downloadOrders(c *gin.Context) {
	data, err := h.orderService.ExportAll(c.Request.Context())
	if err != nil {
		if errors.Is(err, models.ErrRowNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Orders file not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to export orders",
		})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// recentOrders serves the latest orders, newest first
func (h *Handler) recentOrders(c *gin.Context) {
	c.JSON(http.StatusOK, h.orderService.Recent(c.Request.Context(), h.recentLimit))
}

// requestIDMiddleware ensures every request carries an X-Request-ID,
// reusing a valid incoming value and minting a UUID otherwise.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Set("request_id", id)
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
