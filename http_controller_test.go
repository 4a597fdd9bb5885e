package authflow_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/authflowhq/authflow"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*fiber.App, *memRepoManager, *recordingMailer) {
	t.Helper()

	repo := newMemRepoManager()
	mailer := &recordingMailer{}

	manager := authflow.NewManager(repo).
		WithMailer(mailer).
		WithLogger(testLogger{})

	cfg := &authflow.ModuleConfig{
		StorageDSN: "file::memory:?cache=shared",
		SigningKey: "controller-test-signing-key",
		Issuer:     "authflow-test",
	}
	require.NoError(t, cfg.Validate())

	tokens := authflow.NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		testLogger{},
	)

	controller := authflow.NewAuthController(manager, tokens, cfg).
		WithLogger(testLogger{})

	app := fiber.New()
	authflow.RegisterAuthRoutes(app.Group("/api/auth"), controller)

	return app, repo, mailer
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	defer resp.Body.Close()
	out := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func sessionCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func signupUser(t *testing.T, app *fiber.App, email string) {
	t.Helper()

	resp := doJSON(t, app, fiber.MethodPost, "/api/auth/signup",
		fmt.Sprintf(`{"name":"Ada","email":%q,"password":"pw123"}`, email))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestSignupEndpoint(t *testing.T) {
	app, _, mailer := newTestApp(t)

	resp := doJSON(t, app, fiber.MethodPost, "/api/auth/signup",
		`{"name":"Ada","email":"ada@x.com","password":"pw123"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ada@x.com", user["email"])
	assert.Equal(t, false, user["is_verified"])
	// The password hash never leaves as JSON.
	assert.NotContains(t, user, "PasswordHash")
	assert.NotContains(t, user, "password_hash")

	require.Len(t, mailer.Verifications, 1)

	// The same address again, any casing, is a conflict.
	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/signup",
		`{"name":"Ada","email":"ADA@x.com","password":"pw456"}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, false, body["success"])
}

func TestSignupEndpointRejectsInvalidBody(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := doJSON(t, app, fiber.MethodPost, "/api/auth/signup", `{"email":`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/signup",
		`{"name":"Ada","email":"not-an-email","password":"pw123"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestVerifyEmailEndpoint(t *testing.T) {
	app, _, mailer := newTestApp(t)
	signupUser(t, app, "ada@x.com")

	resp := doJSON(t, app, fiber.MethodPost, "/api/auth/verify-email",
		`{"email":"ada@x.com","otp":"000000"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	require.Len(t, mailer.Verifications, 1)
	otp := mailer.Verifications[0].OTP

	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/verify-email",
		fmt.Sprintf(`{"email":"ada@x.com","otp":%q}`, otp))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, user["is_verified"])
}

func TestLoginEndpointSetsSessionCookie(t *testing.T) {
	app, _, _ := newTestApp(t)
	signupUser(t, app, "ada@x.com")

	resp := doJSON(t, app, fiber.MethodPost, "/api/auth/login",
		`{"email":"ada@x.com","password":"wrong"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Nil(t, sessionCookie(resp, "auth_token"))
	resp.Body.Close()

	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/login",
		`{"email":"unknown@x.com","password":"pw123"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/login",
		`{"email":"ada@x.com","password":"pw123"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	cookie := sessionCookie(resp, "auth_token")
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
}

func TestCheckAuthEndpoint(t *testing.T) {
	app, _, _ := newTestApp(t)
	signupUser(t, app, "ada@x.com")

	// No cookie, no session.
	resp := doJSON(t, app, fiber.MethodGet, "/api/auth/check-auth", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, fiber.MethodGet, "/api/auth/check-auth", "",
		&http.Cookie{Name: "auth_token", Value: "garbage"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/login",
		`{"email":"ada@x.com","password":"pw123"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp, "auth_token")
	require.NotNil(t, cookie)
	resp.Body.Close()

	resp = doJSON(t, app, fiber.MethodGet, "/api/auth/check-auth", "",
		&http.Cookie{Name: "auth_token", Value: cookie.Value})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ada@x.com", user["email"])
}

func TestLogoutEndpointClearsCookie(t *testing.T) {
	app, _, _ := newTestApp(t)
	signupUser(t, app, "ada@x.com")

	resp := doJSON(t, app, fiber.MethodPost, "/api/auth/login",
		`{"email":"ada@x.com","password":"pw123"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp, "auth_token")
	require.NotNil(t, cookie)
	resp.Body.Close()

	// Logout requires a live session.
	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/logout", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/logout", "",
		&http.Cookie{Name: "auth_token", Value: cookie.Value})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	cleared := sessionCookie(resp, "auth_token")
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	resp.Body.Close()
}

func TestPasswordResetEndpoints(t *testing.T) {
	app, _, mailer := newTestApp(t)
	signupUser(t, app, "ada@x.com")

	// Unknown email responds identically and sends nothing.
	resp := doJSON(t, app, fiber.MethodPost, "/api/auth/forgot-password",
		`{"email":"nobody@x.com"}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, mailer.ResetLinks)
	resp.Body.Close()

	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/forgot-password",
		`{"email":"ada@x.com"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.Len(t, mailer.ResetLinks, 1)
	link := mailer.ResetLinks[0].Link
	parts := strings.Split(link, "/")
	token := parts[len(parts)-1]
	require.Len(t, token, 64)

	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/reset-password/"+token,
		`{"password":""}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/reset-password/"+token,
		`{"password":"newpw456"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The claimed token is spent.
	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/reset-password/"+token,
		`{"password":"again789"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/login",
		`{"email":"ada@x.com","password":"pw123"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/login",
		`{"email":"ada@x.com","password":"newpw456"}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
