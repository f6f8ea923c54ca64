package models

import "time"

// UserRole represents the many-to-many relationship between users and roles.
// Role management replaces these rows wholesale: after a reassignment the user
// holds exactly the newly assigned roles and none of the old ones.
type UserRole struct {
	// UserID is the ID of the user in this assignment.
	UserID uint64 `gorm:"primaryKey;column:user_id"`
	// RoleID is the ID of the role in this assignment.
	RoleID uint `gorm:"primaryKey;column:role_id"`
	// AssignedBy is the ID of the user who made this assignment (0 for seed data).
	AssignedBy uint64
	// AssignedAt is the timestamp when the role was assigned.
	AssignedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the database table name for the UserRole model.
// This overrides GORM's default pluralized table naming.
func (UserRole) TableName() string {
	return "user_roles"
}
