package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

func newTestApp(t *testing.T, cronSecret string) (*fiber.App, *TokenManager) {
	t.Helper()
	tokens := NewTokenManager("test-secret", 5)
	hash := ""
	if cronSecret != "" {
		var err error
		hash, err = HashSecret(cronSecret, bcrypt.MinCost)
		require.NoError(t, err)
	}
	mw := NewAuthMiddleware(tokens, hash)

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.Status(apperrors.ToDomainError(err).HTTPStatus).SendString(err.Error())
	}})
	whoami := func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		return c.SendString(principal.SubjectID + ":" + string(principal.Role))
	}
	app.Get("/protected", mw.Handle, whoami)
	app.Get("/agents-only", mw.Handle, RequireRole(domain.RoleAgent, domain.RoleAdmin), whoami)
	app.Post("/trigger", mw.Trigger, whoami)
	return app, tokens
}

func bearer(t *testing.T, tokens *TokenManager, subject string, role domain.Role) string {
	t.Helper()
	token, _, err := tokens.GenerateToken(subject, role)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHandleRequiresBearerToken(t *testing.T) {
	app, tokens := newTestApp(t, "")

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"foreign signature", "Bearer " + mustToken(t, NewTokenManager("other", 5)), http.StatusUnauthorized},
		{"valid", bearer(t, tokens, "user-1", domain.RoleUser), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func mustToken(t *testing.T, tokens *TokenManager) string {
	t.Helper()
	token, _, err := tokens.GenerateToken("user-1", domain.RoleAdmin)
	require.NoError(t, err)
	return token
}

func TestRequireRole(t *testing.T) {
	app, tokens := newTestApp(t, "")

	req := httptest.NewRequest(http.MethodGet, "/agents-only", nil)
	req.Header.Set(fiber.HeaderAuthorization, bearer(t, tokens, "user-1", domain.RoleUser))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/agents-only", nil)
	req.Header.Set(fiber.HeaderAuthorization, bearer(t, tokens, "agent-1", domain.RoleAgent))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTriggerAcceptsCronSecretOrPrivilegedToken(t *testing.T) {
	app, tokens := newTestApp(t, "s3cret")

	cases := []struct {
		name    string
		headers map[string]string
		status  int
	}{
		{"nothing", nil, http.StatusUnauthorized},
		{"cron secret", map[string]string{CronSecretHeader: "s3cret"}, http.StatusOK},
		{"wrong cron secret", map[string]string{CronSecretHeader: "guess"}, http.StatusUnauthorized},
		{"scheduler token", map[string]string{fiber.HeaderAuthorization: bearer(t, tokens, "svc", domain.RoleScheduler)}, http.StatusOK},
		{"admin token", map[string]string{fiber.HeaderAuthorization: bearer(t, tokens, "root", domain.RoleAdmin)}, http.StatusOK},
		{"agent token", map[string]string{fiber.HeaderAuthorization: bearer(t, tokens, "agent-1", domain.RoleAgent)}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/trigger", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestTriggerWithoutConfiguredSecretRejectsSecret(t *testing.T) {
	app, _ := newTestApp(t, "")

	req := httptest.NewRequest(http.MethodPost, "/trigger", nil)
	req.Header.Set(CronSecretHeader, "anything")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
