package auth

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/db/models"
)

// PermissionSet is a user's effective permission set: the union of the
// permissions of every role currently assigned to them, or the universal set
// for global administrators.
type PermissionSet struct {
	all   bool
	perms map[Perm]struct{}
}

// UniversalSet returns the set containing every permission.
func UniversalSet() PermissionSet {
	return PermissionSet{all: true}
}

// NewPermissionSet builds a set from explicit permissions.
func NewPermissionSet(perms ...Perm) PermissionSet {
	m := make(map[Perm]struct{}, len(perms))
	for _, p := range perms {
		m[p] = struct{}{}
	}

	return PermissionSet{perms: m}
}

// Has is the membership test for a (resource, action) pair.
func (s PermissionSet) Has(p Perm) bool {
	if s.all {
		return true
	}

	_, ok := s.perms[p]

	return ok
}

// Universal reports whether the set short-circuits to all permissions.
func (s PermissionSet) Universal() bool {
	return s.all
}

// Service provides the RBAC engine: effective permission computation and
// membership tests against current role/permission rows. There is no
// cross-request caching — a revoked permission is reflected at the next
// request.
type Service struct {
	db *gorm.DB
}

// NewService creates a new RBAC service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// EffectivePermissions computes the user's effective permission set. Global
// administrators receive the universal set without touching role rows;
// everyone else gets the union across their roles, with permissions marked
// inactive filtered out.
func (s *Service) EffectivePermissions(user *models.User) (PermissionSet, error) {
	if user.IsAdmin {
		return UniversalSet(), nil
	}

	var rows []models.Permission

	err := s.db.Table("permissions").
		Select("DISTINCT permissions.resource, permissions.action").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ? AND permissions.active = ?", user.ID, true).
		Find(&rows).Error
	if err != nil {
		return PermissionSet{}, fmt.Errorf("failed to compute effective permissions: %w", err)
	}

	set := PermissionSet{perms: make(map[Perm]struct{}, len(rows))}
	for _, row := range rows {
		set.perms[Perm{Resource: row.Resource, Action: row.Action}] = struct{}{}
	}

	return set, nil
}

// HasPermission checks if a user has a specific permission.
func (s *Service) HasPermission(user *models.User, p Perm) (bool, error) {
	set, err := s.EffectivePermissions(user)
	if err != nil {
		return false, err
	}

	return set.Has(p), nil
}
