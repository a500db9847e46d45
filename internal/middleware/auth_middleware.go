package middleware

import (
	"errors"
	"net/http"

	"github.com/Baaaki/stockroom/internal/models"
	"github.com/Baaaki/stockroom/internal/session"
	"github.com/gin-gonic/gin"
)

// RequireSession resolves the session cookie against the store and
// loads the caller's identity into the request context. Without a live
// session the request stops here with 401, before any store access.
func RequireSession(cookieName string, store session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized",
			})
			c.Abort()
			return
		}

		data, err := store.Get(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{
					"error": "Unauthorized",
				})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Server error",
				})
			}
			c.Abort()
			return
		}

		// Handlers read identity from these keys only; the cookie is
		// never consulted again past this point.
		c.Set("user_id", data.UserID)
		c.Set("username", data.Username)
		c.Set("user_role", data.Role)

		c.Next()
	}
}

// RequireAdmin gates admin-only endpoints. Must run after RequireSession.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("user_role")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized",
			})
			c.Abort()
			return
		}

		if r, ok := role.(models.Role); !ok || r != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
