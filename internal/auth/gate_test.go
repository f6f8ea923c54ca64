package auth

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/db/models"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/session"
)

// testStorage is a minimal in-memory implementation of storage.Storage for tests.
type testStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ storage.Storage = (*testStorage)(nil)

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

	if s.data == nil {
		s.data = make(map[string][]byte)
	}

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

// newTestGate wires the identity resolver and the RBAC engine against an
// in-memory database and session store.
func newTestGate(t *testing.T, db *gorm.DB) (*Gate, *session.Manager) {
	t.Helper()

	sessions := session.NewManager(&testStorage{data: make(map[string][]byte)},
		"session", time.Hour, true)

	return NewGate(NewIdentity(db, sessions), NewService(db)), sessions
}

func signIn(t *testing.T, sessions *session.Manager, userID uint64) *http.Cookie {
	t.Helper()

	token, err := sessions.Create(userID)
	require.NoError(t, err)

	return &http.Cookie{Name: "session", Value: token}
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "allowed", Allowed.String())
	assert.Equal(t, "denied-authentication", DeniedAuthentication.String())
	assert.Equal(t, "denied-authorization", DeniedAuthorization.String())
	assert.Equal(t, "unknown", Decision(99).String())
}

func TestGateCheck(t *testing.T) {
	db := setupTestDB(t)
	gate, sessions := newTestGate(t, db)

	granted := seedUserWithRoles(t, db, "granted@example.com", map[string][]models.Permission{
		"catalog": {{Resource: "products", Action: "read", Active: true}},
	})
	denied := seedUserWithRoles(t, db, "denied@example.com", map[string][]models.Permission{
		"frontdesk": {{Resource: "appointments", Action: "read", Active: true}},
	})

	var decision Decision
	var actor *models.User

	app := fiber.New()
	app.Get("/probe", func(c *fiber.Ctx) error {
		var err error
		decision, actor, err = gate.Check(c, Perm{"products", "read"})
		require.NoError(t, err)
		return c.SendStatus(fiber.StatusNoContent)
	})

	probe := func(cookie *http.Cookie) {
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	// anonymous
	probe(nil)
	assert.Equal(t, DeniedAuthentication, decision)
	assert.Nil(t, actor)

	// authenticated without the permission
	probe(signIn(t, sessions, denied.ID))
	assert.Equal(t, DeniedAuthorization, decision)
	require.NotNil(t, actor)
	assert.Equal(t, denied.ID, actor.ID)

	// authenticated with the permission
	probe(signIn(t, sessions, granted.ID))
	assert.Equal(t, Allowed, decision)
	require.NotNil(t, actor)
	assert.Equal(t, granted.ID, actor.ID)
}

func TestGateCheck_DeactivatedUserIsAnonymous(t *testing.T) {
	db := setupTestDB(t)
	gate, sessions := newTestGate(t, db)

	u := seedUserWithRoles(t, db, "locked@example.com", map[string][]models.Permission{
		"catalog": {{Resource: "products", Action: "read", Active: true}},
	})

	cookie := signIn(t, sessions, u.ID)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", u.ID).
		Update("active", false).Error)

	app := fiber.New()
	var decision Decision
	app.Get("/probe", func(c *fiber.Ctx) error {
		var err error
		decision, _, err = gate.Check(c, Perm{"products", "read"})
		require.NoError(t, err)
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.AddCookie(cookie)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, DeniedAuthentication, decision,
		"a live session must not outrank deactivation")
}

func TestGate_PermissionsCachedPerRequest(t *testing.T) {
	db := setupTestDB(t)
	gate, sessions := newTestGate(t, db)

	u := seedUserWithRoles(t, db, "cached@example.com", map[string][]models.Permission{
		"catalog": {{Resource: "products", Action: "read", Active: true}},
	})

	app := fiber.New()
	app.Get("/probe", func(c *fiber.Ctx) error {
		first, _, err := gate.Check(c, Perm{"products", "read"})
		require.NoError(t, err)
		require.Equal(t, Allowed, first)

		// revoke everything mid-request
		require.NoError(t, db.Where("user_id = ?", u.ID).Delete(&models.UserRole{}).Error)

		second, _, err := gate.Check(c, Perm{"products", "read"})
		require.NoError(t, err)
		assert.Equal(t, Allowed, second, "the cached set must be reused within a request")

		gate.InvalidatePermissions(c)

		third, _, err := gate.Check(c, Perm{"products", "read"})
		require.NoError(t, err)
		assert.Equal(t, DeniedAuthorization, third,
			"invalidation must force a recompute against current rows")

		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.AddCookie(signIn(t, sessions, u.ID))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRequirePermission_Routing(t *testing.T) {
	db := setupTestDB(t)
	gate, sessions := newTestGate(t, db)

	granted := seedUserWithRoles(t, db, "ok@example.com", map[string][]models.Permission{
		"catalog": {{Resource: "products", Action: "read", Active: true}},
	})
	denied := seedUserWithRoles(t, db, "nope@example.com", map[string][]models.Permission{
		"frontdesk": {{Resource: "appointments", Action: "read", Active: true}},
	})

	app := fiber.New()
	app.Get("/guarded", RequirePermission(gate, Perm{"products", "read"}), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	testCases := []struct {
		name           string
		cookie         *http.Cookie
		expectStatus   int
		expectLocation string
	}{
		{
			name:           "anonymous routed to sign-in",
			cookie:         nil,
			expectStatus:   http.StatusFound,
			expectLocation: SignInPath,
		},
		{
			name:           "missing permission routed to denied",
			cookie:         signIn(t, sessions, denied.ID),
			expectStatus:   http.StatusFound,
			expectLocation: AccessDeniedPath,
		},
		{
			name:         "granted passes through",
			cookie:       signIn(t, sessions, granted.ID),
			expectStatus: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
			if tc.cookie != nil {
				req.AddCookie(tc.cookie)
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tc.expectStatus, resp.StatusCode)
			if tc.expectLocation != "" {
				assert.Equal(t, tc.expectLocation, resp.Header.Get("Location"))
			}
		})
	}
}

func TestRequireAnyPermission(t *testing.T) {
	db := setupTestDB(t)
	gate, sessions := newTestGate(t, db)

	u := seedUserWithRoles(t, db, "any@example.com", map[string][]models.Permission{
		"frontdesk": {{Resource: "appointments", Action: "read", Active: true}},
	})

	app := fiber.New()
	app.Get("/either",
		RequireAnyPermission(gate, Perm{"products", "read"}, Perm{"appointments", "read"}),
		func(c *fiber.Ctx) error { return c.SendString("ok") },
	)
	app.Get("/neither",
		RequireAnyPermission(gate, Perm{"admin", "users"}),
		func(c *fiber.Ctx) error { return c.SendString("ok") },
	)

	req := httptest.NewRequest(http.MethodGet, "/either", nil)
	req.AddCookie(signIn(t, sessions, u.ID))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/neither", nil)
	req.AddCookie(signIn(t, sessions, u.ID))
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, AccessDeniedPath, resp.Header.Get("Location"))
}
