package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Baaaki/stockroom/internal/audit"
	"github.com/Baaaki/stockroom/internal/handler"
	"github.com/Baaaki/stockroom/internal/middleware"
	"github.com/Baaaki/stockroom/internal/models"
	"github.com/Baaaki/stockroom/internal/repository"
	"github.com/Baaaki/stockroom/internal/service"
	"github.com/Baaaki/stockroom/internal/session"
	"github.com/Baaaki/stockroom/internal/testutil"
	"github.com/Baaaki/stockroom/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	testCookieName = "session_id"
	defaultImage   = "/img/placeholder.png"
)

// testEnv wires the full API surface against in-memory backends:
// sqlite for the stores, miniredis for sessions, a fake blob store and
// a temp-file audit trail.
type testEnv struct {
	db       *testutil.TestDatabase
	redis    *testutil.TestRedis
	sessions *session.RedisStore
	blobs    *testutil.MemoryBlobStore
	trail    *audit.Trail
	router   *gin.Engine

	userRepo *repository.UserRepository
	itemRepo *repository.ItemRepository
}

func newTestEnv(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)
	require.NoError(t, logger.Init(false))

	env := &testEnv{
		db:    testutil.SetupTestDatabase(t),
		redis: testutil.SetupTestRedis(t),
		blobs: testutil.NewMemoryBlobStore(),
	}
	t.Cleanup(func() {
		env.db.Teardown(t)
		env.redis.Teardown(t)
	})

	env.sessions = session.NewRedisStoreWithClient(env.redis.Client, time.Hour)

	trail, err := audit.NewTrail(filepath.Join(t.TempDir(), "audit.log"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = trail.Close() })
	env.trail = trail

	env.userRepo = repository.NewUserRepository(env.db.DB)
	env.itemRepo = repository.NewItemRepository(env.db.DB)

	authService := service.NewAuthService(env.userRepo, env.sessions, env.trail)
	itemService := service.NewItemService(env.itemRepo, env.blobs, env.trail)

	authHandler := handler.NewAuthHandler(authService, testCookieName, time.Hour, false)
	itemHandler := handler.NewItemHandler(itemService, env.blobs, defaultImage)
	adminHandler := handler.NewAdminHandler(authService)

	router := gin.New()
	api := router.Group("/api")
	api.POST("/register", authHandler.Register)
	api.POST("/login", authHandler.Login)
	api.POST("/logout", authHandler.Logout)
	api.GET("/items", itemHandler.ListItems)

	authed := api.Group("")
	authed.Use(middleware.RequireSession(testCookieName, env.sessions))
	authed.GET("/current-user", authHandler.CurrentUser)

	admin := authed.Group("")
	admin.Use(middleware.RequireAdmin())
	admin.POST("/items", itemHandler.CreateItem)
	admin.PUT("/items/:id", itemHandler.UpdateItem)
	admin.DELETE("/items/:id", itemHandler.DeleteItem)
	admin.GET("/users", adminHandler.GetAllUsers)
	admin.PUT("/users/:id/role", adminHandler.UpdateUserRole)
	admin.DELETE("/users/:id", adminHandler.DeleteUser)
	admin.GET("/admin/audit", adminHandler.GetAuditLog)

	env.router = router
	return env
}

// clean resets the stores between tests.
func (env *testEnv) clean(t *testing.T) {
	testutil.CleanDatabase(t, env.db.DB)
	env.redis.Server.FlushAll()
	env.blobs.Reset()
}

// createUser inserts a user fixture directly into the database.
func (env *testEnv) createUser(t *testing.T, username, password string, role models.Role) *models.User {
	user, err := testutil.CreateTestUser(username, password, role)
	require.NoError(t, err)
	require.NoError(t, env.db.DB.Create(user).Error)
	return user
}

// login performs a real login request and returns the session cookie.
func (env *testEnv) login(t *testing.T, username, password string) *http.Cookie {
	body, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, "login should succeed: %s", w.Body.String())

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == testCookieName {
			return cookie
		}
	}
	t.Fatal("login response carried no session cookie")
	return nil
}

// doJSON performs a JSON request, optionally authenticated.
func (env *testEnv) doJSON(method, url string, payload any, cookie *http.Cookie) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// doMultipart performs a multipart form request with an optional image part.
func (env *testEnv) doMultipart(t *testing.T, method, url string, fields map[string]string, imageName, imageContent string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if imageName != "" {
		part, err := mw.CreateFormFile("image", imageName)
		require.NoError(t, err)
		_, err = part.Write([]byte(imageContent))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out any) {
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}
