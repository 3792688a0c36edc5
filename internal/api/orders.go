package api

import (
	"errors"
	"net/http"

	"inventory-service/internal/service"
	"inventory-service/internal/store"

	"github.com/gin-gonic/gin"
)

// placeOrder runs the order placement workflow for the authenticated
// caller
func (h *Handler) placeOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "items and shipping_address are required"})
		return
	}

	order, err := h.orders.PlaceOrder(c.Request.Context(), CurrentUser(c), &req)
	if err != nil {
		var insufficient *store.InsufficientStockError
		switch {
		case errors.Is(err, service.ErrEmptyCart),
			errors.Is(err, service.ErrIncompleteAddress),
			errors.Is(err, service.ErrInvalidQuantity):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.As(err, &insufficient):
			c.JSON(http.StatusBadRequest, gin.H{"error": insufficient.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// listMyOrders serves the caller's own orders, newest first
func (h *Handler) listMyOrders(c *gin.Context) {
	orders, err := h.orders.ListMyOrders(c.Request.Context(), CurrentUser(c).ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// listOrders serves orders containing at least one of the calling
// admin's items
func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orders.ListOrdersForAdmin(c.Request.Context(), CurrentUser(c).ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// updateOrderStatus transitions an order's status; the order must
// contain at least one item the calling admin owns
func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), CurrentUser(c), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}
