package handler

import (
	"errors"
	"net/http"

	"github.com/Baaaki/stockroom/internal/models"
	"github.com/Baaaki/stockroom/internal/service"
	"github.com/Baaaki/stockroom/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AdminHandler struct {
	authService *service.AuthService
}

func NewAdminHandler(authService *service.AuthService) *AdminHandler {
	return &AdminHandler{
		authService: authService,
	}
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// GetAllUsers returns every account for the admin user list.
// GET /api/users
func (h *AdminHandler) GetAllUsers(c *gin.Context) {
	users, err := h.authService.GetAllUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch users",
		})
		return
	}

	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, gin.H{
			"id":       u.ID,
			"username": u.Username,
			"role":     u.Role,
		})
	}

	c.JSON(http.StatusOK, out)
}

// UpdateUserRole switches an account between user and admin.
// PUT /api/users/:id/role
func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	var req UpdateRoleRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid role",
		})
		return
	}

	user, err := h.authService.UpdateRole(c.Param("id"), role, c.GetString("username"))
	if err != nil {
		h.respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User role updated",
		"user": gin.H{
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

// DeleteUser removes an account. The acting admin's own account is
// always refused.
// DELETE /api/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actorID := c.MustGet("user_id").(uuid.UUID)

	err := h.authService.DeleteUser(c.Param("id"), actorID, c.GetString("username"))
	if err != nil {
		h.respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User deleted",
	})
}

// GetAuditLog returns the recorded admin actions, oldest first.
// GET /api/admin/audit
func (h *AdminHandler) GetAuditLog(c *gin.Context) {
	entries, err := h.authService.AuditEntries()
	if err != nil {
		logger.Log.Error("Failed to read audit trail",
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to read audit log",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
	})
}

func (h *AdminHandler) respondUserError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, service.ErrSelfDelete):
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot delete yourself"})
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	default:
		logger.Log.Error("User management operation failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}
