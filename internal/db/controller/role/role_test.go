package role

import (
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

	err = db.AutoMigrate(
		&models.Role{},
		&models.Permission{},
		&models.UserRole{},
		&models.RolePermission{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func seedPermission(t *testing.T, db *gorm.DB, resource, action string) *models.Permission {
	t.Helper()

	p := &models.Permission{Resource: resource, Action: action, Active: true}
	require.NoError(t, db.Create(p).Error)

	return p
}

func TestCreate(t *testing.T) {
	db := setupTestDB(t)

	testCases := []struct {
		name          string
		dbParam       *gorm.DB
		roleName      string
		expectedError error
	}{
		{name: "nil database", dbParam: nil, roleName: "x", expectedError: ErrDBNil},
		{name: "empty name", dbParam: db, roleName: "", expectedError: ErrRoleNameEmpty},
		{name: "successful create", dbParam: db, roleName: "editor"},
		{name: "duplicate name", dbParam: db, roleName: "editor", expectedError: ErrRoleAlreadyExists},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := Create(tc.dbParam, tc.roleName, "desc")

			if tc.expectedError != nil {
				require.Error(t, err)
				require.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, r)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, r)
			assert.Equal(t, tc.roleName, r.Name)
			assert.NotZero(t, r.ID)
		})
	}
}

func TestSetPermissions_Wholesale(t *testing.T) {
	db := setupTestDB(t)

	read := seedPermission(t, db, "products", "read")
	create := seedPermission(t, db, "products", "create")
	manage := seedPermission(t, db, "pages", "manage")

	r, err := Create(db, "editor", "")
	require.NoError(t, err)

	require.NoError(t, SetPermissions(db, r.ID, []uint{read.ID, create.ID}))

	reloaded, err := Get(db, r.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Permissions, 2)

	// a second call replaces, never appends
	require.NoError(t, SetPermissions(db, r.ID, []uint{manage.ID}))

	reloaded, err = Get(db, r.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Permissions, 1)
	assert.Equal(t, manage.ID, reloaded.Permissions[0].ID)

	require.ErrorIs(t, SetPermissions(db, 999, []uint{read.ID}), ErrRoleNotFound)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)

	system := &models.Role{Name: "admin", IsSystem: true}
	require.NoError(t, db.Create(system).Error)

	perm := seedPermission(t, db, "pages", "read")

	regular, err := Create(db, "editor", "")
	require.NoError(t, err)
	require.NoError(t, SetPermissions(db, regular.ID, []uint{perm.ID}))
	require.NoError(t, db.Create(&models.UserRole{UserID: 1, RoleID: regular.ID}).Error)

	// system roles are protected
	require.ErrorIs(t, Delete(db, system.ID), ErrSystemRole)

	require.ErrorIs(t, Delete(db, 999), ErrRoleNotFound)

	// deleting a regular role removes its grants and assignments
	require.NoError(t, Delete(db, regular.ID))

	_, err = Get(db, regular.ID)
	require.ErrorIs(t, err, ErrRoleNotFound)

	var grants, assignments int64
	db.Model(&models.RolePermission{}).Where("role_id = ?", regular.ID).Count(&grants)
	db.Model(&models.UserRole{}).Where("role_id = ?", regular.ID).Count(&assignments)
	assert.Zero(t, grants)
	assert.Zero(t, assignments)

	// the permission itself survives the role's deletion
	var perms int64
	db.Model(&models.Permission{}).Count(&perms)
	assert.EqualValues(t, 1, perms)
}

func TestGetByName(t *testing.T) {
	db := setupTestDB(t)

	created, err := Create(db, "viewer", "read only")
	require.NoError(t, err)

	r, err := GetByName(db, "viewer")
	require.NoError(t, err)
	assert.Equal(t, created.ID, r.ID)

	_, err = GetByName(db, "missing")
	require.ErrorIs(t, err, ErrRoleNotFound)

	_, err = GetByName(db, "")
	require.ErrorIs(t, err, ErrRoleNameEmpty)
}
