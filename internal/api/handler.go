package api

import (
	"net/http"
	"strconv"
	"time"

	"inventory-service/internal/redisclient"
	"inventory-service/internal/service"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	auth    *service.AuthService
	catalog *service.CatalogService
	orders  *service.OrderService
	store   *store.Store
	redis   *redisclient.Client
}

// NewHandler creates a new HTTP handler
func NewHandler(
	auth *service.AuthService,
	catalog *service.CatalogService,
	orders *service.OrderService,
	st *store.Store,
	redis *redisclient.Client,
) *Handler {
	return &Handler{
		auth:    auth,
		catalog: catalog,
		orders:  orders,
		store:   st,
		redis:   redis,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/health", h.healthCheck)

	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)

	authed := api.Group("", h.Authenticate())
	{
		authed.GET("/auth/me", h.me)

		authed.GET("/items", h.listItems)
		authed.GET("/items/low-stock", AdminRequired(), h.listLowStockItems)
		authed.GET("/items/:id", h.getItem)
		authed.POST("/items", AdminRequired(), h.createItem)
		authed.PUT("/items/:id", AdminRequired(), h.updateItem)
		authed.DELETE("/items/:id", AdminRequired(), h.deleteItem)

		authed.GET("/categories", h.listCategories)

		authed.POST("/orders", h.placeOrder)
		authed.GET("/orders/my-orders", h.listMyOrders)
		authed.GET("/orders", AdminRequired(), h.listOrders)
		authed.PUT("/orders/:id/status", AdminRequired(), h.updateOrderStatus)
	}
}

// healthCheck reports service and dependency health
func (h *Handler) healthCheck(c *gin.Context) {
	database := "connected"
	status := http.StatusOK
	if err := h.store.Ping(c.Request.Context()); err != nil {
		database = "disconnected"
		status = http.StatusServiceUnavailable
	}

	redisState := "connected"
	if h.redis == nil {
		redisState = "disabled"
	} else if err := h.redis.Ping(c.Request.Context()); err != nil {
		redisState = "disconnected"
	}

	c.JSON(status, gin.H{
		"status":    statusWord(status),
		"database":  database,
		"redis":     redisState,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "degraded"
}

// idParam parses the :id path parameter
func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
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
