// Package session implements the opaque-token session layer.
//
// A session is a cryptographically random 256-bit token mapped to a small
// JSON record (user id, issued-at, expires-at) in a pluggable storage
// backend. Possession of a valid, unexpired token is the sole authentication
// factor; absent or expired tokens resolve to nil, never to an error.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage"
)

// Record is the stored session state for one token.
type Record struct {
	UserID    uint64    `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the record is past its expiry horizon at now.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Manager issues, validates and destroys sessions against a storage backend.
type Manager struct {
	storage    storage.Storage
	cookieName string
	expiry     time.Duration
	devMode    bool
}

// NewManager creates a session manager on top of the provided storage backend.
func NewManager(st storage.Storage, cookieName string, expiry time.Duration, devMode bool) *Manager {
	if st == nil {
		panic("storage is nil")
	}

	return &Manager{
		storage:    st,
		cookieName: cookieName,
		expiry:     expiry,
		devMode:    devMode,
	}
}

// GenerateToken generates a new secure random session token.
func GenerateToken() (string, error) {
	// 32 bytes = 256 bits
	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create issues a new session for the given user and persists the record
// with the configured expiry horizon. It returns the opaque token.
func (m *Manager) Create(userID uint64) (string, error) {
	token, err := GenerateToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	rec := Record{
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.expiry),
	}

	out, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}

	if err := m.storage.Set(token, out, m.expiry); err != nil {
		return "", err
	}

	return token, nil
}

// Validate resolves a token back to its session record. It returns nil (not
// an error) for an empty, unknown, malformed or expired token — callers must
// treat nil as "anonymous", not as a fault. Errors are reserved for storage
// failures.
func (m *Manager) Validate(token string) (*Record, error) {
	if token == "" {
		return nil, nil
	}

	data, err := m.storage.Get(token)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		// unreadable record, treat as absent
		return nil, nil
	}

	// storage backends without native TTL still honor the expiry horizon
	if rec.Expired(time.Now()) {
		_ = m.storage.Delete(token)
		return nil, nil
	}

	return &rec, nil
}

// Destroy deletes the session record. Destroying an already-absent session
// is not an error.
func (m *Manager) Destroy(token string) error {
	if token == "" {
		return nil
	}

	return m.storage.Delete(token)
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// ReadToken reads the session token from the request cookie.
func (m *Manager) ReadToken(c *fiber.Ctx) string {
	return c.Cookies(m.cookieName)
}

// SetCookie binds the token to the protected session cookie: not
// script-readable, transport-secured outside dev mode, same-site restricted.
func (m *Manager) SetCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     m.cookieName,
		Value:    token,
		MaxAge:   int(m.expiry.Seconds()),
		Secure:   !m.devMode,
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

// ClearCookie removes the session cookie from the client.
func (m *Manager) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		MaxAge:   -1,
		Secure:   !m.devMode,
		HTTPOnly: true,
		SameSite: "Lax",
	})
}
