package user

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to create test database")

	err = db.SetupJoinTable(&models.User{}, "Roles", &models.UserRole{})
	require.NoError(t, err, "failed to set up join table")

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

func seedRole(t *testing.T, db *gorm.DB, name string) *models.Role {
	t.Helper()

	r := &models.Role{Name: name}
	require.NoError(t, db.Create(r).Error)

	return r
}

func TestCreate(t *testing.T) {
	db := setupTestDB(t)
	staff := seedRole(t, db, "staff")

	testCases := []struct {
		name          string
		dbParam       *gorm.DB
		email         string
		roleID        uint
		expectedError error
	}{
		{
			name:          "nil database",
			dbParam:       nil,
			email:         "a@example.com",
			expectedError: ErrDBNil,
		},
		{
			name:          "empty email",
			dbParam:       db,
			email:         "",
			expectedError: ErrEmailEmpty,
		},
		{
			name:    "successful create with role",
			dbParam: db,
			email:   "alice@example.com",
			roleID:  staff.ID,
		},
		{
			name:          "duplicate email",
			dbParam:       db,
			email:         "alice@example.com",
			expectedError: ErrEmailExists,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			u, err := Create(tc.dbParam, "Test User", tc.email, "changeme", tc.roleID, 1)

			if tc.expectedError != nil {
				require.Error(t, err)
				require.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, u)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, u)
			assert.True(t, u.Active, "new users must be active")
			assert.NotEqual(t, "changeme", u.Password, "password must be stored hashed")
			assert.True(t, u.VerifyPassword("changeme"))
			require.Len(t, u.Roles, 1)
			assert.Equal(t, "staff", u.Roles[0].Name)
		})
	}
}

func TestGetByEmail(t *testing.T) {
	db := setupTestDB(t)

	created, err := Create(db, "Bob", "bob@example.com", "secret", 0, 0)
	require.NoError(t, err)

	u, err := GetByEmail(db, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	_, err = GetByEmail(db, "missing@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = GetByEmail(db, "")
	require.ErrorIs(t, err, ErrEmailEmpty)
}

func TestSetPassword(t *testing.T) {
	db := setupTestDB(t)

	u, err := Create(db, "Carol", "carol@example.com", "oldpass", 0, 0)
	require.NoError(t, err)

	require.NoError(t, SetPassword(db, u.ID, "newpass"))

	reloaded, err := Get(db, u.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.VerifyPassword("oldpass"))
	assert.True(t, reloaded.VerifyPassword("newpass"))

	require.ErrorIs(t, SetPassword(db, 999, "whatever"), ErrUserNotFound)
}

func TestSetActive_SelfAndAdminProtection(t *testing.T) {
	db := setupTestDB(t)

	adminRole := &models.Role{Name: models.AdminRoleName, IsSystem: true}
	require.NoError(t, db.Create(adminRole).Error)

	actor, err := Create(db, "Actor", "actor@example.com", "pw", 0, 0)
	require.NoError(t, err)

	adminMember, err := Create(db, "Root", "root@example.com", "pw", adminRole.ID, actor.ID)
	require.NoError(t, err)

	regular, err := Create(db, "Reg", "reg@example.com", "pw", 0, 0)
	require.NoError(t, err)

	// deactivating your own account is refused
	require.ErrorIs(t, SetActive(db, actor.ID, actor.ID, false), ErrSelfAction)

	// members of the admin role cannot be deactivated by anyone
	require.ErrorIs(t, SetActive(db, actor.ID, adminMember.ID, false), ErrAdminProtected)

	// a regular account can be deactivated and reactivated
	require.NoError(t, SetActive(db, actor.ID, regular.ID, false))
	reloaded, err := Get(db, regular.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Active)

	// re-activating yourself is allowed; only deactivation is self-protected
	require.NoError(t, SetActive(db, regular.ID, regular.ID, true))
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	staff := seedRole(t, db, "staff")

	actor, err := Create(db, "Actor", "actor@example.com", "pw", 0, 0)
	require.NoError(t, err)

	victim, err := Create(db, "Victim", "victim@example.com", "pw", staff.ID, actor.ID)
	require.NoError(t, err)

	require.ErrorIs(t, Delete(db, actor.ID, actor.ID), ErrSelfAction)
	require.ErrorIs(t, Delete(db, actor.ID, 999), ErrUserNotFound)

	require.NoError(t, Delete(db, actor.ID, victim.ID))

	_, err = Get(db, victim.ID)
	require.ErrorIs(t, err, ErrUserNotFound)

	// the role assignments must be gone with the account
	var count int64
	db.Model(&models.UserRole{}).Where("user_id = ?", victim.ID).Count(&count)
	assert.Zero(t, count)
}

func TestReplaceRoles_Wholesale(t *testing.T) {
	db := setupTestDB(t)
	staff := seedRole(t, db, "staff")
	editor := seedRole(t, db, "editor")
	viewer := seedRole(t, db, "viewer")

	u, err := Create(db, "Dora", "dora@example.com", "pw", staff.ID, 0)
	require.NoError(t, err)

	require.NoError(t, ReplaceRoles(db, u.ID, []uint{editor.ID, viewer.ID}, 1))

	reloaded, err := Get(db, u.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Roles, 2)
	assert.False(t, reloaded.HasRole("staff"), "old assignments must be gone")
	assert.True(t, reloaded.HasRole("editor"))
	assert.True(t, reloaded.HasRole("viewer"))

	// replacing with the empty set removes every assignment
	require.NoError(t, ReplaceRoles(db, u.ID, nil, 1))
	reloaded, err = Get(db, u.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Roles)

	require.ErrorIs(t, ReplaceRoles(db, 999, []uint{staff.ID}, 1), ErrUserNotFound)
}

func TestReplaceRoles_ConcurrentCallers(t *testing.T) {
	db := setupTestDB(t)

	// in-memory sqlite gives every connection its own database, so pin the
	// pool to the one connection that ran the migrations
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	u, err := Create(db, "Eve", "eve@example.com", "pw", 0, 0)
	require.NoError(t, err)

	const callers = 8

	sets := make([][]uint, callers)
	for i := 0; i < callers; i++ {
		first := seedRole(t, db, fmt.Sprintf("shift-%d", i))
		second := seedRole(t, db, fmt.Sprintf("desk-%d", i))
		sets[i] = []uint{first.ID, second.ID}
	}

	var wg sync.WaitGroup
	wg.Add(callers)

	for i := 0; i < callers; i++ {
		go func(roleIDs []uint) {
			defer wg.Done()
			assert.NoError(t, ReplaceRoles(db, u.ID, roleIDs, 1))
		}(sets[i])
	}

	wg.Wait()

	reloaded, err := Get(db, u.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Roles, 2, "exactly one caller's assignment must survive")

	got := []uint{reloaded.Roles[0].ID, reloaded.Roles[1].ID}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })

	var matched bool
	for _, want := range sets {
		if got[0] == want[0] && got[1] == want[1] {
			matched = true
			break
		}
	}
	assert.True(t, matched, "the surviving roles must all come from the same caller")
}
