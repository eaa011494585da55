package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(sessions *services.SessionService) *fiber.App {
	app := fiber.New()
	api := app.Group("/api", middleware.AuthRequired(sessions, nil))
	api.Get("/me", func(c *fiber.Ctx) error {
		return c.SendString(middleware.SessionFrom(c).UserID)
	})
	api.Get("/admin", middleware.AdminOnly(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func get(t *testing.T, app *fiber.App, path, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuthRequired(t *testing.T) {
	sessions := services.NewSessionService("secret")
	app := newApp(sessions)
	token, err := sessions.IssueToken("user-1", "", time.Now().Add(time.Hour).Unix())
	require.NoError(t, err)

	status, body := get(t, app, "/api/me", "Bearer "+token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user-1", body)

	status, _ = get(t, app, "/api/me", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = get(t, app, "/api/me", "Token "+token)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = get(t, app, "/api/me", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAdminOnly(t *testing.T) {
	sessions := services.NewSessionService("secret")
	app := newApp(sessions)

	customer, err := sessions.IssueToken("user-1", "customer", time.Now().Add(time.Hour).Unix())
	require.NoError(t, err)
	admin, err := sessions.IssueToken("ops-1", "admin", time.Now().Add(time.Hour).Unix())
	require.NoError(t, err)

	status, _ := get(t, app, "/api/admin", "Bearer "+customer)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := get(t, app, "/api/admin", "Bearer "+admin)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)
}
