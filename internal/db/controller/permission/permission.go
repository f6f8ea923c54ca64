// Package permission provides CRUD operations for managing permissions.
//
// Deleting a permission is guarded: while any role still references it the
// delete fails with a ReferencedError naming every blocking role, and the
// permission has to be soft-disabled via SetActive instead.
package permission

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/db/models"
)

var (
	// ErrPermissionNotFound is returned when a permission is not found.
	ErrPermissionNotFound = errors.New("permission not found")
	// ErrEmptyResourceOrAction is returned when resource or action is empty.
	ErrEmptyResourceOrAction = errors.New("permission resource and action cannot be empty")
	// ErrPermissionAlreadyExists is returned when the (resource, action) pair already exists.
	ErrPermissionAlreadyExists = errors.New("permission already exists")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// ReferencedError is returned by Delete when role_permissions rows still
// reference the permission. It names every blocking role so the caller can
// surface an actionable conflict message.
type ReferencedError struct {
	Roles []string
}

// Error implements the error interface.
func (e *ReferencedError) Error() string {
	return "permission is still assigned to roles: " + strings.Join(e.Roles, ", ")
}

// Get retrieves a permission by its ID.
func Get(db *gorm.DB, id uint) (*models.Permission, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var perm models.Permission
	result := db.First(&perm, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, result.Error
	}

	return &perm, nil
}

// GetByPair retrieves a permission by its (resource, action) pair.
func GetByPair(db *gorm.DB, resource, action string) (*models.Permission, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if resource == "" || action == "" {
		return nil, ErrEmptyResourceOrAction
	}

	var perm models.Permission
	result := db.Where("resource = ? AND action = ?", resource, action).First(&perm)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, result.Error
	}

	return &perm, nil
}

// GetAll retrieves all permissions ordered by resource then action.
func GetAll(db *gorm.DB) ([]models.Permission, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var perms []models.Permission
	result := db.Order("resource ASC, action ASC").Find(&perms)
	if result.Error != nil {
		return nil, result.Error
	}

	return perms, nil
}

// Create creates a new permission. The (resource, action) pair must be unique.
func Create(db *gorm.DB, resource, action, description string) (*models.Permission, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if resource == "" || action == "" {
		return nil, ErrEmptyResourceOrAction
	}

	var existing models.Permission
	result := db.Where("resource = ? AND action = ?", resource, action).First(&existing)
	if result.Error == nil {
		return nil, ErrPermissionAlreadyExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	perm := &models.Permission{
		Resource:    resource,
		Action:      action,
		Description: description,
		Active:      true,
	}

	result = db.Create(perm)
	if result.Error != nil {
		return nil, result.Error
	}

	return perm, nil
}

// SetActive soft-enables or soft-disables a permission in place of a hard delete.
func SetActive(db *gorm.DB, id uint, active bool) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Model(&models.Permission{}).Where("id = ?", id).Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPermissionNotFound
	}

	return nil
}

// referencingRoles names every role still granting the permission, ordered by name.
func referencingRoles(db *gorm.DB, id uint) ([]string, error) {
	var roleNames []string
	err := db.Table("roles").
		Select("roles.name").
		Joins("JOIN role_permissions ON role_permissions.role_id = roles.id").
		Where("role_permissions.permission_id = ?", id).
		Order("roles.name ASC").
		Pluck("roles.name", &roleNames).Error
	if err != nil {
		return nil, err
	}

	return roleNames, nil
}

// Delete hard-deletes a permission. If any role still references it the delete
// fails with a ReferencedError naming every blocking role and performs no
// write. The reference check and the delete run in one transaction, and the
// delete statement itself refuses to remove a permission a grant still points
// at, so a grant landing between the check and the delete cannot be orphaned.
func Delete(db *gorm.DB, id uint) error {
	if db == nil {
		return ErrDBNil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var perm models.Permission
		if err := tx.First(&perm, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPermissionNotFound
			}
			return err
		}

		roleNames, err := referencingRoles(tx, id)
		if err != nil {
			return err
		}

		if len(roleNames) > 0 {
			return &ReferencedError{Roles: roleNames}
		}

		result := tx.
			Where("id = ?", id).
			Where("NOT EXISTS (SELECT 1 FROM role_permissions WHERE role_permissions.permission_id = permissions.id)").
			Delete(&models.Permission{})
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			// a grant landed between the check and the delete
			roleNames, err = referencingRoles(tx, id)
			if err != nil {
				return err
			}

			if len(roleNames) == 0 {
				return ErrPermissionNotFound
			}

			return &ReferencedError{Roles: roleNames}
		}

		return nil
	})
}
