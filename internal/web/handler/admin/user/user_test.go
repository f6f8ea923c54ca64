package user

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage"
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
func newTestContext(t *testing.T, db *gorm.DB) *handler.Context {
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
			ratelimit.Policy{Name: "auth", Limit: 100, Window: time.Minute}),
	}
}

func newUserApp(t *testing.T, hc *handler.Context) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{Views: noOpViews{}})

	var s Service
	s.Init(app, hc)

	return app
}

// signInAdmin creates an administrator account with an open session and
// returns its session cookie.
func signInAdmin(t *testing.T, db *gorm.DB, hc *handler.Context) *http.Cookie {
	t.Helper()

	admin := &models.User{Name: "Root", Email: "root@example.com", Active: true, IsAdmin: true}
	require.NoError(t, db.Create(admin).Error)

	token, err := hc.Sessions.Create(admin.ID)
	require.NoError(t, err)

	return &http.Cookie{Name: "session", Value: token}
}

func seedRole(t *testing.T, db *gorm.DB, name string) *models.Role {
	t.Helper()

	r := &models.Role{Name: name}
	require.NoError(t, db.Create(r).Error)

	return r
}

const csrfToken = "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"

// performCreate posts the user creation form as the signed-in admin.
func performCreate(t *testing.T, app *fiber.App, sessionCookie *http.Cookie, form url.Values) *http.Response {
	t.Helper()

	form.Set(csrf.FormField, csrfToken)

	req := httptest.NewRequest(http.MethodPost, Path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(sessionCookie)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: csrfToken})

	resp, err := app.Test(req, -1)
	require.NoError(t, err, "app.Test failed")

	return resp
}

func TestCreate_MultiRoleAssignment(t *testing.T) {
	db := newTestDB(t)
	hc := newTestContext(t, db)
	app := newUserApp(t, hc)
	cookie := signInAdmin(t, db, hc)

	editor := seedRole(t, db, "editor")
	staff := seedRole(t, db, "staff")

	resp := performCreate(t, app, cookie, url.Values{
		"name":     {"Alice"},
		"email":    {"alice@example.com"},
		"password": {"changemenow"},
		"role_ids": {
			strconv.FormatUint(uint64(editor.ID), 10),
			strconv.FormatUint(uint64(staff.ID), 10),
		},
	})
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, Path, resp.Header.Get("Location"))

	created, err := usercontroller.GetByEmail(db, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, created.Roles, 2)
	assert.True(t, created.HasRole("editor"))
	assert.True(t, created.HasRole("staff"))
}

func TestCreate_RoleAssignmentFailureIsSurfaced(t *testing.T) {
	db := newTestDB(t)
	hc := newTestContext(t, db)
	app := newUserApp(t, hc)
	cookie := signInAdmin(t, db, hc)

	editor := seedRole(t, db, "editor")
	editorID := strconv.FormatUint(uint64(editor.ID), 10)

	// the duplicated role ID violates the assignment primary key, so the
	// wholesale reassignment after the account insert fails
	resp := performCreate(t, app, cookie, url.Values{
		"name":     {"Bob"},
		"email":    {"bob@example.com"},
		"password": {"changemenow"},
		"role_ids": {editorID, editorID},
	})
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode,
		"a failed role assignment must not report success")

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "assigning the selected roles failed")

	// the account itself exists and still holds the initially assigned role
	created, err := usercontroller.GetByEmail(db, "bob@example.com")
	require.NoError(t, err)
	require.Len(t, created.Roles, 1)
	assert.True(t, created.HasRole("editor"))
}
