// Package user provides CRUD operations for managing user accounts and their
// role assignments.
//
// Two invariants are enforced here rather than in the handlers so no surface
// can bypass them: a user can never deactivate or delete their own account,
// and members of the admin role can not be deactivated at all.
package user

import (
	"errors"

	"gorm.io/gorm"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/db/models"
)

var (
	// ErrUserNotFound is returned when a user cannot be found in the database.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists is returned when attempting to create a user with an email that already exists.
	ErrEmailExists = errors.New("user with this email already exists")
	// ErrEmailEmpty is returned when attempting to create a user with an empty email.
	ErrEmailEmpty = errors.New("user email cannot be empty")
	// ErrSelfAction is returned when a user tries to deactivate or delete their own account.
	ErrSelfAction = errors.New("operating on your own account is not allowed")
	// ErrAdminProtected is returned when trying to deactivate a member of the admin role.
	ErrAdminProtected = errors.New("members of the admin role cannot be deactivated")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a user by ID with their current role assignments preloaded.
func Get(db *gorm.DB, id uint64) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var u models.User
	result := db.Preload("Roles").First(&u, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}

	return &u, nil
}

// GetByEmail retrieves a user by their unique email address.
func GetByEmail(db *gorm.DB, email string) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if email == "" {
		return nil, ErrEmailEmpty
	}

	var u models.User
	result := db.Preload("Roles").Where("email = ?", email).First(&u)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}

	return &u, nil
}

// GetAll retrieves all users with their roles preloaded, newest first.
func GetAll(db *gorm.DB) ([]models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var users []models.User
	result := db.Preload("Roles").Order("id DESC").Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}

	return users, nil
}

// Create creates a new active user with a hashed password and assigns the
// initial role inside the same transaction.
func Create(db *gorm.DB, name, email, password string, roleID uint, createdBy uint64) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if email == "" {
		return nil, ErrEmailEmpty
	}

	var existing models.User
	result := db.Where("email = ?", email).First(&existing)
	if result.Error == nil {
		return nil, ErrEmailExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	u := &models.User{
		Name:     name,
		Email:    email,
		Password: models.HashPassword(password),
		Active:   true,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}

		if roleID != 0 {
			return tx.Create(&models.UserRole{
				UserID:     u.ID,
				RoleID:     roleID,
				AssignedBy: createdBy,
			}).Error
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return Get(db, u.ID)
}

// Update updates name and email of an existing user.
func Update(db *gorm.DB, id uint64, name, email string) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if email == "" {
		return nil, ErrEmailEmpty
	}

	var u models.User
	result := db.First(&u, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}

	u.Name = name
	u.Email = email

	result = db.Save(&u)
	if result.Error != nil {
		return nil, result.Error
	}

	return &u, nil
}

// SetPassword replaces the password hash of a user.
func SetPassword(db *gorm.DB, id uint64, password string) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Model(&models.User{}).Where("id = ?", id).
		Update("password", models.HashPassword(password))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SetTOTPSecret stores (or clears) the TOTP enrollment secret of a user.
func SetTOTPSecret(db *gorm.DB, id uint64, secret string) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Model(&models.User{}).Where("id = ?", id).Update("totp_secret", secret)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SetActive activates or deactivates a user account on behalf of actorID.
// Deactivating your own account is refused, as is deactivating any member of
// the admin role regardless of the actor's privileges.
func SetActive(db *gorm.DB, actorID, id uint64, active bool) error {
	if db == nil {
		return ErrDBNil
	}

	if !active && actorID == id {
		return ErrSelfAction
	}

	target, err := Get(db, id)
	if err != nil {
		return err
	}

	if !active && target.HasRole(models.AdminRoleName) {
		return ErrAdminProtected
	}

	return db.Model(&models.User{}).Where("id = ?", id).Update("active", active).Error
}

// Delete removes a user and their role assignments. Deleting your own account
// is refused.
func Delete(db *gorm.DB, actorID, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	if actorID == id {
		return ErrSelfAction
	}

	var u models.User
	if err := db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.User{}, id).Error
	})
}

// ReplaceRoles reassigns the user's roles wholesale inside a single
// transaction: every existing user_roles row is removed and exactly one row
// per given role ID is inserted. Partial application is never observable.
func ReplaceRoles(db *gorm.DB, id uint64, roleIDs []uint, assignedBy uint64) error {
	if db == nil {
		return ErrDBNil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}

		for _, rid := range roleIDs {
			if err := tx.Create(&models.UserRole{
				UserID:     id,
				RoleID:     rid,
				AssignedBy: assignedBy,
			}).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
