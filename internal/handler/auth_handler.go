package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/Baaaki/stockroom/internal/service"
	"github.com/Baaaki/stockroom/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *service.AuthService
	cookieName  string
	cookieTTL   time.Duration
	secure      bool
}

func NewAuthHandler(authService *service.AuthService, cookieName string, cookieTTL time.Duration, secure bool) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookieName:  cookieName,
		cookieTTL:   cookieTTL,
		secure:      secure,
	}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates an account with the default user role.
// POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Log.Warn("Registration request parsing failed",
			zap.String("ip", c.ClientIP()),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	user, err := h.authService.Register(req.Username, req.Password)
	if err != nil {
		var vErr *service.ValidationError
		switch {
		case errors.Is(err, service.ErrUsernameAlreadyExists):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
		default:
			logger.Log.Error("Registration failed",
				zap.String("username", req.Username),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created",
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

// Login verifies credentials and sets the session cookie.
// POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
			return
		}
		logger.Log.Error("Login failed",
			zap.String("username", req.Username),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode) // CSRF protection
	c.SetCookie(
		h.cookieName,
		token,
		int(h.cookieTTL.Seconds()),
		"/",
		"", // current domain
		h.secure,
		true, // HttpOnly: no JS access to the token
	)

	c.JSON(http.StatusOK, gin.H{
		"message":  "Login successful",
		"username": user.Username,
		"role":     user.Role,
	})
}

// Logout destroys the server-side session and expires the cookie.
// POST /api/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	token, err := c.Cookie(h.cookieName)
	if err == nil && token != "" {
		if err := h.authService.Logout(c.Request.Context(), token); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", h.secure, true)

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out",
	})
}

// CurrentUser reports who the session belongs to. Mounted behind
// RequireSession, so reaching here means the session is live.
// GET /api/current-user
func (h *AuthHandler) CurrentUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"username": c.GetString("username"),
		"role":     c.MustGet("user_role"),
	})
}
