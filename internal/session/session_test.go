package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStorage is a minimal in-memory implementation of storage.Storage for tests.
type testStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ storage.Storage = (*testStorage)(nil)

func newTestStorage() *testStorage {
	return &testStorage{data: make(map[string][]byte)}
}

func (s *testStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.data[key]
	out := make([]byte, len(v))
	copy(out, v)

	return out, nil
}

func (s *testStorage) Set(key string, val []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(val))
	copy(buf, val)
	s.data[key] = buf

	return nil
}

func (s *testStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)

	return nil
}

func (s *testStorage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]byte)

	return nil
}

func (s *testStorage) Close() error { return nil }

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	assert.Len(t, a, 64) // 32 bytes hex encoded

	b, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "two tokens must never collide")
}

func TestCreateAndValidate(t *testing.T) {
	st := newTestStorage()
	m := NewManager(st, "session", time.Hour, false)

	token, err := m.Create(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	rec, err := m.Validate(token)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, uint64(42), rec.UserID)
	assert.True(t, rec.IssuedAt.Before(rec.ExpiresAt))
}

func TestValidate_AnonymousCases(t *testing.T) {
	st := newTestStorage()
	m := NewManager(st, "session", time.Hour, false)

	testCases := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "unknown token", token: "deadbeef"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := m.Validate(tc.token)
			require.NoError(t, err, "anonymous must never be an error")
			assert.Nil(t, rec)
		})
	}
}

func TestValidate_MalformedRecord(t *testing.T) {
	st := newTestStorage()
	m := NewManager(st, "session", time.Hour, false)

	require.NoError(t, st.Set("broken", []byte("{not json"), time.Hour))

	rec, err := m.Validate("broken")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestValidate_ExpiredRecordIsDeleted(t *testing.T) {
	st := newTestStorage()
	m := NewManager(st, "session", time.Hour, false)

	// the test storage has no native TTL, so the expiry horizon in the
	// record itself must be honored
	now := time.Now()
	out, err := json.Marshal(Record{
		UserID:    7,
		IssuedAt:  now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, st.Set("stale", out, time.Hour))

	rec, err := m.Validate("stale")
	require.NoError(t, err)
	assert.Nil(t, rec)

	data, err := st.Get("stale")
	require.NoError(t, err)
	assert.Empty(t, data, "expired record must be removed from storage")
}

func TestDestroy_Idempotent(t *testing.T) {
	st := newTestStorage()
	m := NewManager(st, "session", time.Hour, false)

	token, err := m.Create(1)
	require.NoError(t, err)

	require.NoError(t, m.Destroy(token))
	require.NoError(t, m.Destroy(token), "destroying an absent session is not an error")
	require.NoError(t, m.Destroy(""))

	rec, err := m.Validate(token)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSetCookie_Flags(t *testing.T) {
	testCases := []struct {
		name         string
		devMode      bool
		expectSecure bool
	}{
		{name: "production sets secure", devMode: false, expectSecure: true},
		{name: "dev mode drops secure", devMode: true, expectSecure: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewManager(newTestStorage(), "session", time.Hour, tc.devMode)

			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				m.SetCookie(c, "tok123")
				return c.SendStatus(fiber.StatusNoContent)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			setCookie := resp.Header.Get("Set-Cookie")
			assert.Contains(t, setCookie, "session=tok123")
			assert.Contains(t, setCookie, "HttpOnly")
			assert.Contains(t, setCookie, "SameSite=Lax")
			assert.Equal(t, tc.expectSecure,
				strings.Contains(strings.ToLower(setCookie), "secure"))
		})
	}
}

func TestClearCookie(t *testing.T) {
	m := NewManager(newTestStorage(), "session", time.Hour, false)

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		m.ClearCookie(c)
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	setCookie := resp.Header.Get("Set-Cookie")
	assert.Contains(t, setCookie, "session=")
	assert.Contains(t, setCookie, "expires=", "clearing must expire the cookie")
}

func TestReadToken(t *testing.T) {
	m := NewManager(newTestStorage(), "session", time.Hour, false)

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(m.ReadToken(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "abc"})

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body := make([]byte, 3)
	_, _ = resp.Body.Read(body)
	assert.Equal(t, "abc", string(body))
}
