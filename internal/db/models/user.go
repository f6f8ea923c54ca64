package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// User represents an administrator account in the console.
// Users authenticate with email and password (optionally a TOTP second factor)
// and receive permissions through their assigned roles.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey"`
	// Active indicates whether the user account is active and can log in.
	// Deactivated accounts fail identity resolution even while a session
	// for them still exists.
	Active bool
	// IsAdmin grants the universal permission set, bypassing role lookups.
	IsAdmin bool
	// Name is the user's display name.
	Name string `gorm:"size:100;not null"`
	// Email is the unique email address used for login.
	Email string `gorm:"unique;size:255;not null"`
	// Password is the Argon2id hashed password.
	Password string `gorm:"size:255"`
	// TOTPSecret holds the base32 secret of the optional TOTP second factor.
	// Empty means no second factor is enrolled.
	TOTPSecret string `gorm:"size:64"`
	// Roles are the roles currently assigned to this user.
	// The join rows live in user_roles and record who assigned them.
	Roles []Role `gorm:"many2many:user_roles"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete timestamp (nil if not deleted, managed by GORM).
	DeletedAt *time.Time
}

// TableName specifies the database table name for the User model.
// This overrides GORM's default pluralized table naming.
func (User) TableName() string {
	return "users"
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
// This function should be used when creating or updating user passwords.
// It uses the default Argon2id parameters for secure password hashing.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the user's stored hashed password.
// It uses constant-time comparison to prevent timing attacks.
// Returns true if the password matches, false otherwise.
func (u *User) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}

// HasRole reports whether the user currently holds the named role.
func (u *User) HasRole(name string) bool {
	for i := range u.Roles {
		if u.Roles[i].Name == name {
			return true
		}
	}

	return false
}
