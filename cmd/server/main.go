package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/Baaaki/stockroom/internal/audit"
	"github.com/Baaaki/stockroom/internal/config"
	"github.com/Baaaki/stockroom/internal/database"
	"github.com/Baaaki/stockroom/internal/handler"
	"github.com/Baaaki/stockroom/internal/middleware"
	"github.com/Baaaki/stockroom/internal/models"
	"github.com/Baaaki/stockroom/internal/repository"
	"github.com/Baaaki/stockroom/internal/service"
	"github.com/Baaaki/stockroom/internal/session"
	"github.com/Baaaki/stockroom/internal/storage"
	"github.com/Baaaki/stockroom/pkg/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	log.Println("Config loaded successfully")

	if err := logger.Init(!cfg.IsProduction()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	database.Connect(cfg)
	database.Migrate()

	// One Redis client shared by sessions and the rate limiter
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	sessions := session.NewRedisStoreWithClient(redisClient, cfg.SessionTTL)

	// Blob storage for item images, exposed under /uploads
	blobs, err := storage.NewLocalBlobStore(cfg.UploadDir, "/uploads")
	if err != nil {
		log.Fatalf("Failed to initialize blob store: %v", err)
	}

	// Audit trail of admin mutations, pruned by retention on startup
	trail, err := audit.NewTrail(cfg.AuditPath)
	if err != nil {
		log.Fatalf("Failed to initialize audit trail: %v", err)
	}
	defer trail.Close()
	if err := trail.Prune(time.Now().Add(-cfg.AuditRetention)); err != nil {
		log.Printf("Audit prune failed: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(database.DB)
	itemRepo := repository.NewItemRepository(database.DB)

	// Initialize services
	authService := service.NewAuthService(userRepo, sessions, trail)
	itemService := service.NewItemService(itemRepo, blobs, trail)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	itemHandler := handler.NewItemHandler(itemService, blobs, cfg.DefaultImageURL)
	adminHandler := handler.NewAdminHandler(authService)

	rateLimiter := middleware.NewRateLimiter(redisClient, middleware.RateLimiterConfig{
		MaxRequests: cfg.RateLimitMaxRequests,
		Window:      cfg.RateLimitWindow,
		BlockTime:   cfg.RateLimitBlockTime,
	})

	// Setup Gin router
	router := gin.Default()
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.HSTSMiddleware(cfg.IsProduction()))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: true, // session cookie
	}))

	// Static assets: uploaded blobs and the browser client
	router.Static("/uploads", blobs.Dir())
	router.Static("/html", "./web/html")
	router.Static("/css", "./web/css")
	router.Static("/js", "./web/js")
	router.Static("/img", "./web/img")

	// Role-based landing redirect
	router.GET("/", func(c *gin.Context) {
		token, err := c.Cookie(cfg.SessionCookie)
		if err == nil && token != "" {
			if data, err := sessions.Get(c.Request.Context(), token); err == nil {
				if data.Role == models.RoleAdmin {
					c.Redirect(http.StatusFound, "/html/dashboard.html")
					return
				}
				c.Redirect(http.StatusFound, "/html/display.html")
				return
			}
		}
		c.Redirect(http.StatusFound, "/html/login.html")
	})

	api := router.Group("/api")

	// Public routes; credential endpoints carry the rate limit
	api.POST("/register", rateLimiter.Middleware(), authHandler.Register)
	api.POST("/login", rateLimiter.Middleware(), authHandler.Login)
	api.POST("/logout", authHandler.Logout)
	api.GET("/items", itemHandler.ListItems)

	// Session-guarded routes
	authed := api.Group("")
	authed.Use(middleware.RequireSession(cfg.SessionCookie, sessions))
	authed.GET("/current-user", authHandler.CurrentUser)

	// Admin-guarded routes
	admin := authed.Group("")
	admin.Use(middleware.RequireAdmin())
	{
		admin.POST("/items", itemHandler.CreateItem)
		admin.PUT("/items/:id", itemHandler.UpdateItem)
		admin.DELETE("/items/:id", itemHandler.DeleteItem)

		admin.GET("/users", adminHandler.GetAllUsers)
		admin.PUT("/users/:id/role", adminHandler.UpdateUserRole)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)

		admin.GET("/admin/audit", adminHandler.GetAuditLog)
	}

	// Start server
	log.Printf("Server starting on %s", cfg.ServerPort)
	if err := router.Run(cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
