package middleware_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"librarian/internal/handlers"
	"librarian/internal/middleware"
	"librarian/internal/models"
	"librarian/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(authService *services.AuthService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(zerolog.Nop())})
	app.Get("/whoami", middleware.AuthRequired(authService), func(c *fiber.Ctx) error {
		return c.JSON(middleware.IdentityFrom(c))
	})
	app.Get("/admin", middleware.AuthRequired(authService), middleware.RequireRole(authService, models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func get(t *testing.T, app *fiber.App, path, authorization string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuthRequired(t *testing.T) {
	authService := services.NewAuthService(nil, nil, "test_jwt_secret")
	app := newApp(authService)

	identity := models.Identity{Email: "ichiro.sato@sigo-ri.co.jp", Name: "佐藤 一郎", Role: models.RoleUser}
	token, err := authService.IssueToken(identity)
	require.NoError(t, err)

	status, body := get(t, app, "/whoami", "Bearer "+token)
	require.Equal(t, http.StatusOK, status)
	var got models.Identity
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, identity, got)

	status, body = get(t, app, "/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"message":"missing credentials"}`, body)

	status, body = get(t, app, "/whoami", "Token "+token)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"message":"missing credentials"}`, body)

	status, body = get(t, app, "/whoami", "Bearer "+token+"x")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"message":"authentication failed"}`, body)
}

func TestRequireRole(t *testing.T) {
	authService := services.NewAuthService(nil, nil, "test_jwt_secret")
	app := newApp(authService)

	userToken, err := authService.IssueToken(models.Identity{Email: "yuko.tanaka@sigo-ri.co.jp", Role: models.RoleUser})
	require.NoError(t, err)
	adminToken, err := authService.IssueToken(models.Identity{Email: "taro.yamada@sigo-ri.co.jp", Role: models.RoleAdmin})
	require.NoError(t, err)

	status, body := get(t, app, "/admin", "Bearer "+userToken)
	assert.Equal(t, http.StatusForbidden, status)
	assert.JSONEq(t, `{"message":"insufficient permission"}`, body)

	status, body = get(t, app, "/admin", "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)

	// token is checked before role
	status, _ = get(t, app, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(reg)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(zerolog.Nop())})
	app.Use(metrics.Handler())
	app.Get("/books/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "missing" {
			return services.ErrBookNotFound
		}
		return c.SendString("ok")
	})

	status, _ := get(t, app, "/books/1", "")
	assert.Equal(t, http.StatusOK, status)
	status, body := get(t, app, "/books/missing", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"message":"Not Found"}`, body)

	expected := `
# HELP librarian_http_requests_total HTTP requests by method, route and status.
# TYPE librarian_http_requests_total counter
librarian_http_requests_total{method="GET",route="/books/:id",status="200"} 1
librarian_http_requests_total{method="GET",route="/books/:id",status="404"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "librarian_http_requests_total"))
	count, err := testutil.GatherAndCount(reg, "librarian_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
