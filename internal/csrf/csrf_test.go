package csrf

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuardedApp(g *Guard) *fiber.App {
	app := fiber.New()

	app.Get("/token", func(c *fiber.Ctx) error {
		token, err := g.Token(c)
		if err != nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(token)
	})

	app.Post("/check", func(c *fiber.Ctx) error {
		if err := g.ValidateForm(c); err != nil {
			return c.Status(fiber.StatusForbidden).SendString(err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	return app
}

func TestIssueToken_BindsCookie(t *testing.T) {
	g := NewGuard("csrf_token", time.Hour, false)
	app := newGuardedApp(g)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/token", nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	token := string(body)
	assert.Len(t, token, 64) // 32 bytes hex encoded

	setCookie := resp.Header.Get("Set-Cookie")
	assert.Contains(t, setCookie, "csrf_token="+token)
	// double-submit: the cookie must stay script-readable
	assert.NotContains(t, setCookie, "HttpOnly")
	assert.Contains(t, setCookie, "SameSite=Lax")
	assert.Contains(t, strings.ToLower(setCookie), "secure")
}

func TestIssueToken_DevModeDropsSecure(t *testing.T) {
	g := NewGuard("csrf_token", time.Hour, true)
	app := newGuardedApp(g)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/token", nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.NotContains(t, strings.ToLower(resp.Header.Get("Set-Cookie")), "secure")
}

func TestToken_ReusesExistingCookie(t *testing.T) {
	g := NewGuard("csrf_token", time.Hour, false)
	app := newGuardedApp(g)

	req := httptest.NewRequest(http.MethodGet, "/token", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "existing"})

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(body))
	assert.Empty(t, resp.Header.Get("Set-Cookie"), "no new token may be issued")
}

func TestValidateForm(t *testing.T) {
	// a valid token and the same token with one hex digit flipped
	const token = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	const flipped = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaab"

	testCases := []struct {
		name        string
		cookie      string
		submitted   string
		expectError string
	}{
		{
			name:        "missing cookie",
			cookie:      "",
			submitted:   token,
			expectError: ErrTokenMissing.Error(),
		},
		{
			name:        "missing submitted value",
			cookie:      token,
			submitted:   "",
			expectError: ErrTokenMissing.Error(),
		},
		{
			name:        "one byte difference",
			cookie:      token,
			submitted:   flipped,
			expectError: ErrTokenMismatch.Error(),
		},
		{
			name:      "matching values",
			cookie:    token,
			submitted: token,
		},
	}

	g := NewGuard("csrf_token", time.Hour, false)
	app := newGuardedApp(g)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			form := url.Values{}
			if tc.submitted != "" {
				form.Set(FormField, tc.submitted)
			}

			req := httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "csrf_token", Value: tc.cookie})
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			if tc.expectError == "" {
				assert.Equal(t, http.StatusNoContent, resp.StatusCode)
				return
			}

			assert.Equal(t, http.StatusForbidden, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tc.expectError, string(body))
		})
	}
}

func TestIsCSRFError(t *testing.T) {
	assert.True(t, IsCSRFError(ErrTokenMissing))
	assert.True(t, IsCSRFError(ErrTokenMismatch))
	assert.False(t, IsCSRFError(io.EOF))
	assert.False(t, IsCSRFError(nil))
}
