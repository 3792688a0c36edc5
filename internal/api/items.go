package api

import (
	"errors"
	"net/http"

	"inventory-service/internal/service"

	"github.com/gin-gonic/gin"
)

// listItems serves the caller's catalog view: an admin's own items or
// the cross-admin available catalog for customers
func (h *Handler) listItems(c *gin.Context) {
	items, err := h.catalog.ListItems(c.Request.Context(), CurrentUser(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// getItem serves one item through the caller's view
func (h *Handler) getItem(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	item, err := h.catalog.GetItem(c.Request.Context(), CurrentUser(c), id)
	if err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

// createItem creates an item owned by the calling admin
func (h *Handler) createItem(c *gin.Context) {
	var req service.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, category, quantity and price are required"})
		return
	}

	item, err := h.catalog.CreateItem(c.Request.Context(), CurrentUser(c).ID, &req)
	if err != nil {
		if isItemValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": item})
}

// updateItem replaces the submitted fields of the calling admin's item
func (h *Handler) updateItem(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req service.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, category, quantity and price are required"})
		return
	}

	item, err := h.catalog.UpdateItem(c.Request.Context(), CurrentUser(c).ID, id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrItemNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		case isItemValidationError(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

// deleteItem removes the calling admin's item
func (h *Handler) deleteItem(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.catalog.DeleteItem(c.Request.Context(), CurrentUser(c).ID, id); err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item deleted"})
}

// listLowStockItems serves the calling admin's items at or below their
// minimum stock level
func (h *Handler) listLowStockItems(c *gin.Context) {
	items, err := h.catalog.ListLowStockItems(c.Request.Context(), CurrentUser(c).ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// listCategories serves the distinct categories within the caller's
// view
func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context(), CurrentUser(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func isItemValidationError(err error) bool {
	return errors.Is(err, service.ErrNegativePrice) ||
		errors.Is(err, service.ErrNegativeAmount)
}
