package models

import "time"

// Permission represents a specific permission in the authorization system.
// The (resource, action) pair is the atomic unit of permission and is unique
// together. Permissions are assigned to roles, never directly to users.
type Permission struct {
	// ID is the unique identifier for the permission.
	ID uint `gorm:"primaryKey"`
	// Resource is the resource this permission applies to (e.g., "products", "appointments").
	Resource string `gorm:"size:100;not null;uniqueIndex:idx_resource_action"`
	// Action is the action allowed on the resource (e.g., "create", "read", "update", "delete").
	Action string `gorm:"size:50;not null;uniqueIndex:idx_resource_action"`
	// Description provides a human-readable explanation of what this permission grants.
	Description string `gorm:"size:255"`
	// Active soft-disables the permission in place of a hard delete once referenced.
	// Inactive permissions are excluded from every effective permission set.
	Active bool `gorm:"default:true"`
	// CreatedAt is the timestamp when the permission was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the permission was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Permission model.
// This overrides GORM's default pluralized table naming.
func (Permission) TableName() string {
	return "permissions"
}

// Name returns the dotted display form of the permission, e.g. "products.read".
func (p Permission) Name() string {
	return p.Resource + "." + p.Action
}
