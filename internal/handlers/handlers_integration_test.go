package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"todoapp/internal/handlers"
	"todoapp/internal/middleware"
	"todoapp/internal/models"
	"todoapp/internal/repositories"
	"todoapp/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	testUserEmail    = "alice@example.com"
	testUserPassword = "password123"
)

// setupApp sets up a Fiber app for testing with in-memory SQLite and
// all handlers/services wired. The RabbitMQ client is nil; event
// publication is best-effort and must not be required.
func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	// Configure Viper for testing
	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	// Private in-memory database per test, foreign keys on so the
	// delete cascade behaves like the real schema.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	// Auto-migrate models
	if err := db.AutoMigrate(&models.User{}, &models.Todo{}, &models.Tag{}, &models.TodoTag{}); err != nil {
		t.Fatalf("Failed to auto-migrate database: %v", err)
	}

	// Seed the test user the way cmd/seed would
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(testUserPassword), bcrypt.DefaultCost)
	user := models.User{Email: testUserEmail, Username: "alice", Password: string(hashedPassword)}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to seed test user: %v", err)
	}

	// Initialize Repositories
	userRepo := repositories.NewGORMUserRepository(db)
	todoRepo := repositories.NewGORMTodoRepository(db)

	// Initialize Services
	authService := services.NewAuthService(userRepo, jwtSecret)
	todoService := services.NewTodoService(todoRepo, nil) // nil for RabbitMQ client

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(authService)
	todoHandler := handlers.NewTodoHandler(todoService)

	app := fiber.New()

	// API Routes
	api := app.Group("/api")

	// Authentication routes (public)
	authHandler.RegisterRoutes(api)

	// Protected routes (require JWT authentication)
	protectedRoutes := api.Group("", middleware.AuthRequired(authService))
	authHandler.RegisterProtectedRoutes(protectedRoutes)
	todoHandler.RegisterRoutes(protectedRoutes)

	// Health check, same as main
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return app, db
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

// login performs the login request and returns the bearer token.
func login(t *testing.T, app *fiber.App) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"email":    testUserEmail,
		"password": testUserPassword,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Login request failed: %v", err)
	}
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp struct {
		Success bool        `json:"success"`
		Token   string      `json:"token"`
		User    models.User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		t.Fatalf("Failed to decode login response: %v", err)
	}
	assert.True(t, loginResp.Success)
	assert.NotEmpty(t, loginResp.Token)
	assert.Equal(t, testUserEmail, loginResp.User.Email)
	return loginResp.Token
}

// doJSON sends an authenticated JSON request and returns the response.
func doJSON(t *testing.T, app *fiber.App, method, path, token string, payload interface{}) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

func TestHealthCheck(t *testing.T) {
	app, _ := setupApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "\"status\":\"healthy\"")
}

func TestLoginAndMe(t *testing.T) {
	app, _ := setupApp(t)

	// Wrong password: generic 401
	body, _ := json.Marshal(map[string]string{"email": testUserEmail, "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Malformed email: 400 before any lookup
	body, _ = json.Marshal(map[string]string{"email": "not-an-email", "password": "whatever"})
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Successful login, then /auth/me round trip
	token := login(t, app)

	resp = doJSON(t, app, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var meResp struct {
		Success bool        `json:"success"`
		User    models.User `json:"user"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&meResp))
	assert.Equal(t, testUserEmail, meResp.User.Email)
	resp.Body.Close()

	// Logout is stateless but must succeed
	resp = doJSON(t, app, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// /auth/me without a token
	resp = doJSON(t, app, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestTodoEndpointsRequireAuth(t *testing.T) {
	app, _ := setupApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/todos/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/todos/", "", map[string]interface{}{
		"title": "x", "url": "https://x.test", "tags": []string{"a"},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestTodoCRUDScenario(t *testing.T) {
	app, _ := setupApp(t)
	token := login(t, app)

	type todoResp struct {
		Success bool        `json:"success"`
		Todo    models.Todo `json:"todo"`
	}
	type listResp struct {
		Success bool          `json:"success"`
		Todos   []models.Todo `json:"todos"`
	}

	// Create with status/priority omitted: defaults apply
	resp := doJSON(t, app, http.MethodPost, "/api/todos/", token, map[string]interface{}{
		"title": "Read docs",
		"url":   "https://x.test",
		"tags":  []string{"work", "urgent"},
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var created todoResp
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	assert.Equal(t, "Read docs", created.Todo.Title)
	assert.Equal(t, models.StatusNotStarted, created.Todo.Status)
	assert.Equal(t, models.PriorityMedium, created.Todo.Priority)
	assert.ElementsMatch(t, []string{"work", "urgent"}, created.Todo.Tags)
	assert.NotZero(t, created.Todo.ID)

	// List round trip
	resp = doJSON(t, app, http.MethodGet, "/api/todos/", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var listed listResp
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()
	assert.Len(t, listed.Todos, 1)
	assert.ElementsMatch(t, []string{"work", "urgent"}, listed.Todos[0].Tags)

	// Update down to a single tag: pure replace of the linkage
	updateURL := fmt.Sprintf("/api/todos/%d", created.Todo.ID)
	resp = doJSON(t, app, http.MethodPut, updateURL, token, map[string]interface{}{
		"title":    "Read docs",
		"url":      "https://x.test",
		"status":   models.StatusInProgress,
		"priority": models.PriorityHigh,
		"tags":     []string{"work"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var updated todoResp
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	resp.Body.Close()
	assert.Equal(t, []string{"work"}, updated.Todo.Tags)
	assert.Equal(t, models.StatusInProgress, updated.Todo.Status)
	assert.Equal(t, created.Todo.RegisteredDate, updated.Todo.RegisteredDate)

	// Delete, then the list is empty again
	resp = doJSON(t, app, http.MethodDelete, updateURL, token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/todos/", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var after listResp
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&after))
	resp.Body.Close()
	assert.Len(t, after.Todos, 0)
}

func TestTodoValidation(t *testing.T) {
	app, _ := setupApp(t)
	token := login(t, app)

	// Missing title
	resp := doJSON(t, app, http.MethodPost, "/api/todos/", token, map[string]interface{}{
		"url":  "https://x.test",
		"tags": []string{"work"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// URL must start with http:// or https://
	resp = doJSON(t, app, http.MethodPost, "/api/todos/", token, map[string]interface{}{
		"title": "Read docs",
		"url":   "ftp://x.test",
		"tags":  []string{"work"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Empty tag list
	resp = doJSON(t, app, http.MethodPost, "/api/todos/", token, map[string]interface{}{
		"title": "Read docs",
		"url":   "https://x.test",
		"tags":  []string{},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Unknown status value
	resp = doJSON(t, app, http.MethodPost, "/api/todos/", token, map[string]interface{}{
		"title":  "Read docs",
		"url":    "https://x.test",
		"status": "paused",
		"tags":   []string{"work"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Nothing was persisted by any of the rejected requests
	resp = doJSON(t, app, http.MethodGet, "/api/todos/", token, nil)
	var listed struct {
		Todos []models.Todo `json:"todos"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()
	assert.Len(t, listed.Todos, 0)
}

func TestTodoNotFound(t *testing.T) {
	app, _ := setupApp(t)
	token := login(t, app)

	resp := doJSON(t, app, http.MethodPut, "/api/todos/9999", token, map[string]interface{}{
		"title": "Ghost",
		"url":   "https://x.test",
		"tags":  []string{"work"},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodDelete, "/api/todos/9999", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
