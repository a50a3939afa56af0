package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"librarian/internal/app"
	"librarian/internal/config"
	"librarian/internal/database"
	"librarian/internal/models"
	"librarian/internal/repositories"
	"librarian/internal/security"
	"librarian/internal/seed"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.BookEvent
}

func (p *recordingPublisher) PublishBookEvent(_ context.Context, e models.BookEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type harness struct {
	app       *fiber.App
	publisher *recordingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := &config.Config{
		AppPort:        ":0",
		JWTSecret:      "test_jwt_secret",
		DatabaseDriver: config.DriverSQLite,
		SQLitePath:     "file::memory:",
		BcryptCost:     4,
		LogLevel:       "error",
	}

	db, err := database.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, cfg))

	seeder := seed.NewSeeder(repositories.NewGORMUserRepository(db), repositories.NewGORMBookRepository(db), security.NewPasswordHasher(cfg.BcryptCost), zerolog.Nop())
	_, err = seeder.Users(context.Background())
	require.NoError(t, err)

	pub := &recordingPublisher{}
	fiberApp := app.NewApp(app.Deps{
		Config:    cfg,
		DB:        db,
		Logger:    zerolog.Nop(),
		Publisher: pub,
		Registry:  prometheus.NewRegistry(),
	})
	return &harness{app: fiberApp, publisher: pub}
}

func (h *harness) call(t *testing.T, method, target, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (h *harness) login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := h.call(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, status, body)
	return body["token"].(string)
}

func (h *harness) createBook(t *testing.T, token string, payload map[string]any) map[string]any {
	t.Helper()
	status, body := h.call(t, http.MethodPost, "/api/books", token, payload)
	require.Equal(t, http.StatusOK, status, body)
	return body["book"].(map[string]any)
}

func TestLoginScenario(t *testing.T) {
	h := newHarness(t)

	status, body := h.call(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "hanako.suzuki@sigo-ri.co.jp",
		"password": "hanako123",
	})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "鈴木 花子", user["name"])
	assert.Equal(t, "hanako.suzuki@sigo-ri.co.jp", user["email"])
}

func TestSearchRejectsInvertedRange(t *testing.T) {
	h := newHarness(t)
	token := h.login(t, "hanako.suzuki@sigo-ri.co.jp", "hanako123")

	status, body := h.call(t, http.MethodGet, "/api/books?purchased_from=2024-05-01&purchased_to=2024-04-01", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["message"], "purchased_from")
}

func TestDeleteScenario(t *testing.T) {
	h := newHarness(t)
	userToken := h.login(t, "ichiro.sato@sigo-ri.co.jp", "ichiro123")
	adminToken := h.login(t, "taro.yamada@sigo-ri.co.jp", "taro123")

	id := h.createBook(t, userToken, map[string]any{"title": "門", "author": "夏目漱石"})["id"].(string)

	status, body := h.call(t, http.MethodDelete, "/api/books/"+id, userToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "insufficient permission", body["message"])

	status, body = h.call(t, http.MethodDelete, "/api/books/"+id, adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"message": "deleted"}, body)

	status, _ = h.call(t, http.MethodGet, "/api/books/"+id, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	types := make([]string, 0, len(h.publisher.events))
	for _, e := range h.publisher.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{models.EventBookCreated, models.EventBookDeleted}, types)
	assert.Equal(t, "taro.yamada@sigo-ri.co.jp", h.publisher.events[1].Actor)
}

func TestRoundTripAndOwnership(t *testing.T) {
	h := newHarness(t)
	token := h.login(t, "yuko.tanaka@sigo-ri.co.jp", "yuko123")
	other := h.login(t, "kenji.kobayashi@sigo-ri.co.jp", "kenji123")

	payload := map[string]any{
		"title":        "三四郎",
		"author":       "夏目漱石",
		"isbn":         "978-4-10-101004-9",
		"location":     "本棚C-3",
		"memo":         "付箋あり\n要返却",
		"registeredBy": "kenji.kobayashi@sigo-ri.co.jp",
	}
	created := h.createBook(t, token, payload)
	id := created["id"].(string)

	status, body := h.call(t, http.MethodGet, "/api/books/"+id, token, nil)
	require.Equal(t, http.StatusOK, status)
	book := body["book"].(map[string]any)
	for _, field := range []string{"title", "author", "isbn", "location", "memo"} {
		assert.Equal(t, payload[field], book[field], field)
	}
	assert.Equal(t, "yuko.tanaka@sigo-ri.co.jp", book["registeredBy"])
	assert.Equal(t, "2000-01-01", book["purchasedAt"])

	// identical payloads are not deduplicated
	second := h.createBook(t, token, payload)
	assert.NotEqual(t, id, second["id"])

	status, body = h.call(t, http.MethodPut, "/api/books/"+id, other, map[string]any{
		"title":        "三四郎",
		"author":       "夏目漱石",
		"purchasedAt":  "2022-02-22",
		"registeredBy": "kenji.kobayashi@sigo-ri.co.jp",
	})
	require.Equal(t, http.StatusOK, status, body)
	updated := body["book"].(map[string]any)
	assert.Equal(t, "yuko.tanaka@sigo-ri.co.jp", updated["registeredBy"])
	assert.Equal(t, "2022-02-22", updated["purchasedAt"])
	assert.Nil(t, updated["memo"])
	assert.NotEqual(t, created["updatedAt"], updated["updatedAt"])
}

func TestBoundaries(t *testing.T) {
	h := newHarness(t)
	token := h.login(t, "hanako.suzuki@sigo-ri.co.jp", "hanako123")

	exact := strings.Repeat("a", 255)
	status, _ := h.call(t, http.MethodPost, "/api/books", token, map[string]any{"title": exact, "author": exact})
	assert.Equal(t, http.StatusOK, status)

	status, body := h.call(t, http.MethodPost, "/api/books", token, map[string]any{"title": exact + "a", "author": "a"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["message"], "title")

	status, body = h.call(t, http.MethodPost, "/api/books", token, map[string]any{"title": "t", "author": exact + "a"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["message"], "author")

	cases := []struct {
		query string
		want  int
	}{
		{"page=1000", http.StatusOK},
		{"page=1001", http.StatusBadRequest},
		{"per_page=100", http.StatusOK},
		{"per_page=101", http.StatusBadRequest},
		{"page=&per_page=", http.StatusOK},
	}
	for _, c := range cases {
		status, _ := h.call(t, http.MethodGet, "/api/books?"+c.query, token, nil)
		assert.Equal(t, c.want, status, c.query)
	}
}

func TestSearchPaginationLaw(t *testing.T) {
	h := newHarness(t)
	token := h.login(t, "hanako.suzuki@sigo-ri.co.jp", "hanako123")

	dates := []string{"2024-01-01", "2024-02-01", "2024-02-01", "2023-06-15", "2024-03-10", "2022-12-24", "2024-02-01"}
	for i, d := range dates {
		h.createBook(t, token, map[string]any{"title": "Go本 " + d, "author": "著者", "purchasedAt": d, "memo": strings.Repeat("x", i)})
	}
	h.createBook(t, token, map[string]any{"title": "unrelated", "author": "someone"})

	query := url.Values{"keyword": {"Go本"}, "purchased_from": {"2023-01-01"}}

	status, first := h.call(t, http.MethodGet, "/api/books?"+query.Encode(), token, nil)
	require.Equal(t, http.StatusOK, status)
	total := int(first["total"].(float64))
	assert.Equal(t, 6, total)
	assert.Equal(t, float64(1), first["page"])
	assert.Equal(t, float64(10), first["per_page"])

	// idempotent
	_, again := h.call(t, http.MethodGet, "/api/books?"+query.Encode(), token, nil)
	assert.Equal(t, first, again)

	perPage := 4
	query.Set("per_page", "4")
	var ids []string
	var purchased []string
	for page := 1; page <= int(math.Ceil(float64(total)/float64(perPage))); page++ {
		query.Set("page", strconv.Itoa(page))
		status, body := h.call(t, http.MethodGet, "/api/books?"+query.Encode(), token, nil)
		require.Equal(t, http.StatusOK, status)
		for _, raw := range body["books"].([]any) {
			b := raw.(map[string]any)
			ids = append(ids, b["id"].(string))
			purchased = append(purchased, b["purchasedAt"].(string))
		}
	}

	assert.Len(t, ids, total)
	unique := map[string]bool{}
	for _, id := range ids {
		unique[id] = true
	}
	assert.Len(t, unique, total)
	for i := 1; i < len(purchased); i++ {
		assert.GreaterOrEqual(t, purchased[i-1], purchased[i])
	}

	query.Set("page", "3")
	status, empty := h.call(t, http.MethodGet, "/api/books?"+query.Encode(), token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, empty["books"])
	assert.Equal(t, float64(6), empty["total"])
}

func TestAmbientRoutes(t *testing.T) {
	h := newHarness(t)

	status, body := h.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	resp, err := h.app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	greeting, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "Hello from librarian!", string(greeting))

	resp, err = h.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	exposition, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(exposition), `librarian_http_requests_total{method="GET",route="/health",status="200"} 1`)

	status, body = h.call(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Cannot GET /api/nope", body["message"])
}
