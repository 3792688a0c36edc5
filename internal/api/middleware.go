package api

import (
	"net/http"
	"strings"

	"inventory-service/internal/models"

	"github.com/gin-gonic/gin"
)

const userContextKey = "currentUser"

// Authenticate verifies the bearer token and loads the current user
// record from the store on every request. The role on the loaded
// record, not anything in the token, drives later privilege checks.
func (h *Handler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no token"})
			return
		}

		user, err := h.auth.VerifyToken(c.Request.Context(), header[len("Bearer "):])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// AdminRequired gates a route to admins, re-checked against the freshly
// loaded user record
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || user.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by Authenticate, or
// nil outside an authenticated route
func CurrentUser(c *gin.Context) *models.User {
	val, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := val.(*models.User)
	return user
}
