// Package csrf implements double-submit anti-forgery protection.
//
// A random 256-bit token is bound to a script-readable, same-site cookie and
// resubmitted with every state-changing form. Validity requires byte-for-byte
// equality of both values under constant-time comparison; no server-side
// per-token storage is needed.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// FormField is the form field name carrying the CSRF token.
const FormField = "csrf_token"

var (
	// ErrTokenMissing occurs when the cookie or the submitted value is absent.
	ErrTokenMissing = errors.New("csrf token missing")
	// ErrTokenMismatch occurs when the submitted value does not equal the cookie value.
	ErrTokenMismatch = errors.New("csrf token mismatch")
)

// IsCSRFError reports whether err belongs to this package's taxonomy.
func IsCSRFError(err error) bool {
	return errors.Is(err, ErrTokenMissing) || errors.Is(err, ErrTokenMismatch)
}

// Guard issues and validates double-submit CSRF tokens.
type Guard struct {
	cookieName string
	lifetime   time.Duration
	devMode    bool
}

// NewGuard creates a CSRF guard writing tokens to the named cookie.
func NewGuard(cookieName string, lifetime time.Duration, devMode bool) *Guard {
	return &Guard{
		cookieName: cookieName,
		lifetime:   lifetime,
		devMode:    devMode,
	}
}

// CookieName returns the name of the token cookie.
func (g *Guard) CookieName() string {
	return g.cookieName
}

// IssueToken generates a fresh random token, binds it to the token cookie and
// returns it so the caller can embed it in the next form submission. The
// cookie is intentionally script-readable (double-submit pattern) but
// same-site restricted and bounded in lifetime.
func (g *Guard) IssueToken(c *fiber.Ctx) (string, error) {
	// 32 bytes = 256 bits
	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	token := hex.EncodeToString(b)

	c.Cookie(&fiber.Cookie{
		Name:     g.cookieName,
		Value:    token,
		MaxAge:   int(g.lifetime.Seconds()),
		Secure:   !g.devMode,
		HTTPOnly: false,
		SameSite: "Lax",
	})

	return token, nil
}

// Token returns the token currently bound to the caller's cookie, issuing a
// new one if the cookie is absent.
func (g *Guard) Token(c *fiber.Ctx) (string, error) {
	if token := c.Cookies(g.cookieName); token != "" {
		return token, nil
	}

	return g.IssueToken(c)
}

// Validate compares the submitted value with the cookie-bound value. A
// missing cookie or a missing submitted value always fails; mismatches are
// detected with a constant-time comparison so response timing leaks nothing
// about the secret.
func (g *Guard) Validate(c *fiber.Ctx, submitted string) error {
	expected := c.Cookies(g.cookieName)
	if expected == "" {
		return ErrTokenMissing
	}

	if submitted == "" {
		return ErrTokenMissing
	}

	if subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) != 1 {
		return ErrTokenMismatch
	}

	return nil
}

// ValidateForm validates the token submitted in the csrf_token form field.
func (g *Guard) ValidateForm(c *fiber.Ctx) error {
	return g.Validate(c, c.FormValue(FormField))
}
