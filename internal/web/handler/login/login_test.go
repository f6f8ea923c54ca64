package login

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/auth"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/config"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/csrf"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/db/models"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/ratelimit"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/session"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler"

	usercontroller "github.com/GoStudio-Admin/GoStudio-Admin/internal/db/controller/user"
)

// noOpViews is a minimal Fiber Views engine used for tests. It writes the
// "Error" field from the provided fiber.Map (if any) so tests can assert
// error messages rendered by handlers.
type noOpViews struct{}

func (noOpViews) Load() error { return nil }

func (noOpViews) Render(w io.Writer, name string, data interface{}, _ ...string) error {
	if m, ok := data.(fiber.Map); ok {
		if v, exists := m["Error"]; exists && v != nil {
			_, _ = io.WriteString(w, v.(string))
			return nil
		}
	}
	// write template name to have some content
	_, _ = io.WriteString(w, name)

	return nil
}

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

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "failed to open sqlite in-memory db")

	err = db.SetupJoinTable(&models.User{}, "Roles", &models.UserRole{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.UserRole{},
		&models.RolePermission{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

// newTestContext wires a full handler context with an in-memory security core.
// authLimit bounds the login attempts per identifier inside one minute.
func newTestContext(t *testing.T, db *gorm.DB, authLimit int) *handler.Context {
	t.Helper()

	sessions := session.NewManager(&testStorage{data: make(map[string][]byte)},
		"session", time.Hour, false)
	rbac := auth.NewService(db)

	return &handler.Context{
		Cfg:      &config.Config{Title: "Test Console"},
		DB:       db,
		Gate:     auth.NewGate(auth.NewIdentity(db, sessions), rbac),
		RBAC:     rbac,
		Sessions: sessions,
		CSRF:     csrf.NewGuard("csrf_token", time.Hour, false),
		Limiter: ratelimit.NewLimiter(ratelimit.NewMemoryStore(),
			ratelimit.Policy{Name: "api", Limit: 100, Window: time.Minute},
			ratelimit.Policy{Name: "auth", Limit: authLimit, Window: time.Minute}),
	}
}

func newLoginApp(t *testing.T, hc *handler.Context) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{Views: noOpViews{}})

	var s Service
	s.Init(app, hc)

	return app
}

const csrfToken = "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"

// performLogin posts the form with a matching CSRF cookie and field unless
// withCSRF is false.
func performLogin(t *testing.T, app *fiber.App, form url.Values, withCSRF bool) *http.Response {
	t.Helper()

	if withCSRF {
		form.Set(csrf.FormField, csrfToken)
	}

	req := httptest.NewRequest(http.MethodPost, Path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if withCSRF {
		req.AddCookie(&http.Cookie{Name: "csrf_token", Value: csrfToken})
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err, "app.Test failed")

	return resp
}

func TestGet_IssuesCSRFToken(t *testing.T) {
	hc := newTestContext(t, newTestDB(t), 100)
	app := newLoginApp(t, hc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, Path, nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Set-Cookie"), "csrf_token=")
}

func TestPost_MissingCSRF(t *testing.T) {
	hc := newTestContext(t, newTestDB(t), 100)
	app := newLoginApp(t, hc)

	resp := performLogin(t, app, url.Values{
		"email":    {"alice@example.com"},
		"password": {"whatever"},
	}, false)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), handler.MsgCSRFRejected)
}

func TestPost_InvalidCredentials(t *testing.T) {
	db := newTestDB(t)
	hc := newTestContext(t, db, 100)
	app := newLoginApp(t, hc)

	_, err := usercontroller.Create(db, "Alice", "alice@example.com", "correct", 0, 0)
	require.NoError(t, err)

	testCases := []struct {
		name string
		form url.Values
	}{
		{
			name: "unknown account",
			form: url.Values{"email": {"ghost@example.com"}, "password": {"whatever"}},
		},
		{
			name: "wrong password",
			form: url.Values{"email": {"alice@example.com"}, "password": {"wrong"}},
		},
		{
			name: "malformed email",
			form: url.Values{"email": {"not-an-email"}, "password": {"whatever"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := performLogin(t, app, tc.form, true)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			// one generic message for every failure mode
			body, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(body), "Invalid email or password")
		})
	}
}

func TestPost_InactiveAccount(t *testing.T) {
	db := newTestDB(t)
	hc := newTestContext(t, db, 100)
	app := newLoginApp(t, hc)

	u, err := usercontroller.Create(db, "Bob", "bob@example.com", "secret", 0, 0)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", u.ID).
		Update("active", false).Error)

	resp := performLogin(t, app, url.Values{
		"email":    {"bob@example.com"},
		"password": {"secret"},
	}, true)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Invalid email or password",
		"deactivation must not be distinguishable from bad credentials")
}

func TestPost_Success(t *testing.T) {
	db := newTestDB(t)
	hc := newTestContext(t, db, 100)
	app := newLoginApp(t, hc)

	_, err := usercontroller.Create(db, "Carol", "carol@example.com", "s3cr3t", 0, 0)
	require.NoError(t, err)

	resp := performLogin(t, app, url.Values{
		"email":    {"carol@example.com"},
		"password": {"s3cr3t"},
	}, true)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	setCookie := resp.Header.Get("Set-Cookie")
	assert.Contains(t, setCookie, "session=")
	assert.Contains(t, setCookie, "HttpOnly")
}

func TestPost_TOTPChallenge(t *testing.T) {
	db := newTestDB(t)
	hc := newTestContext(t, db, 100)
	app := newLoginApp(t, hc)

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Test Console",
		AccountName: "dora@example.com",
	})
	require.NoError(t, err)

	u, err := usercontroller.Create(db, "Dora", "dora@example.com", "secret", 0, 0)
	require.NoError(t, err)
	require.NoError(t, usercontroller.SetTOTPSecret(db, u.ID, key.Secret()))

	// correct password but no code
	resp := performLogin(t, app, url.Values{
		"email":    {"dora@example.com"},
		"password": {"secret"},
	}, true)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// correct password, wrong code
	resp = performLogin(t, app, url.Values{
		"email":     {"dora@example.com"},
		"password":  {"secret"},
		"totp_code": {"000000"},
	}, true)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Invalid authentication code")

	// correct password and a freshly generated code
	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)

	resp = performLogin(t, app, url.Values{
		"email":     {"dora@example.com"},
		"password":  {"secret"},
		"totp_code": {code},
	}, true)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestPost_RateLimited(t *testing.T) {
	db := newTestDB(t)
	hc := newTestContext(t, db, 2)
	app := newLoginApp(t, hc)

	form := url.Values{
		"email":    {"ghost@example.com"},
		"password": {"wrong"},
	}

	for i := 0; i < 2; i++ {
		resp := performLogin(t, app, form, true)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp := performLogin(t, app, form, true)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "rate limit exceeded")
}
