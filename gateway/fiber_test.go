package gateway_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	session "github.com/DotRed108/go-session"
	"github.com/DotRed108/go-session/gateway"
)

func newGateApp(t *testing.T) (*fiber.App, *session.TokenCodec) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	codec := session.NewTokenCodec(&session.Keys{Private: priv, Public: pub}, "", nil)

	app := fiber.New()
	app.Use(gateway.New(gateway.Config{
		Verifier:     codec,
		AllowedPaths: []string{"/session/email"},
	}))

	app.Get("/feed", func(c *fiber.Ctx) error {
		if claims, ok := gateway.ClaimsFromCtx(c, "user"); ok {
			return c.SendString("hello " + claims.Subject())
		}
		return c.SendString("hello anonymous")
	})
	app.Post("/decks", func(c *fiber.Ctx) error {
		return c.SendString("created")
	})
	app.Post("/session/email", func(c *fiber.Ctx) error {
		return c.SendString("sent")
	})

	return app, codec
}

func TestGateway_ReadRequestsAlwaysPass(t *testing.T) {
	app, _ := newGateApp(t)

	res, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/feed", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestGateway_MutatingRequestsGet404(t *testing.T) {
	app, _ := newGateApp(t)

	res, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/decks", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestGateway_AllowedPathStaysOpen(t *testing.T) {
	app, _ := newGateApp(t)

	res, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/session/email", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestGateway_BearerTokenUnlocksMutations(t *testing.T) {
	app, codec := newGateApp(t)

	token, err := codec.Issue(session.PurposeAuth, "user@example.com", true)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, "/decks", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestGateway_RefreshTokenDoesNotUnlock(t *testing.T) {
	app, codec := newGateApp(t)

	token, err := codec.Issue(session.PurposeRefresh, "user@example.com", true)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, "/decks", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestGateway_CookieTokenParksClaims(t *testing.T) {
	app, codec := newGateApp(t)

	token, err := codec.Issue(session.PurposeAuth, "user@example.com", true)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodGet, "/feed", nil)
	req.AddCookie(&http.Cookie{Name: session.AuthTokenKey, Value: token})

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	body := make([]byte, 64)
	n, _ := res.Body.Read(body)
	assert.Contains(t, string(body[:n]), "user@example.com")
}
