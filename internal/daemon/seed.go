package daemon

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/auth"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/config"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/db/models"
)

// permissionDescriptions maps each seeded permission to its catalog text.
var permissionDescriptions = map[auth.Perm]string{
	auth.PermDashboardView:      "View the dashboard",
	auth.PermProductsRead:       "View products",
	auth.PermProductsCreate:     "Create products",
	auth.PermProductsUpdate:     "Edit products",
	auth.PermProductsDelete:     "Delete products",
	auth.PermCategoriesRead:     "View product categories",
	auth.PermCategoriesManage:   "Manage product categories",
	auth.PermAppointmentsRead:   "View appointments",
	auth.PermAppointmentsCreate: "Book appointments",
	auth.PermAppointmentsUpdate: "Edit appointments and their status",
	auth.PermAppointmentsDelete: "Delete appointments",
	auth.PermCustomersRead:      "View customer records",
	auth.PermCustomersManage:    "Manage customer records",
	auth.PermPagesRead:          "View site pages",
	auth.PermPagesManage:        "Manage site pages",
	auth.PermTestimonialsRead:   "View testimonials",
	auth.PermTestimonialsManage: "Manage testimonials",
	auth.PermAdminUsers:         "Manage user accounts",
	auth.PermAdminRoles:         "Manage roles",
	auth.PermAdminPermissions:   "Manage the permission catalog",
}

// seedRoles lists the built-in roles and their grants. The admin role carries
// no explicit grants: its members bypass permission checks entirely.
var seedRoles = []struct {
	name        string
	description string
	system      bool
	grants      []auth.Perm
}{
	{
		name:        models.AdminRoleName,
		description: "Full administrative access",
		system:      true,
	},
	{
		name:        "editor",
		description: "Manages catalog and site content",
		grants: []auth.Perm{
			auth.PermDashboardView,
			auth.PermProductsRead, auth.PermProductsCreate, auth.PermProductsUpdate, auth.PermProductsDelete,
			auth.PermCategoriesRead, auth.PermCategoriesManage,
			auth.PermPagesRead, auth.PermPagesManage,
			auth.PermTestimonialsRead, auth.PermTestimonialsManage,
		},
	},
	{
		name:        "staff",
		description: "Handles day-to-day bookings and customers",
		grants: []auth.Perm{
			auth.PermDashboardView,
			auth.PermProductsRead,
			auth.PermCategoriesRead,
			auth.PermAppointmentsRead, auth.PermAppointmentsCreate, auth.PermAppointmentsUpdate,
			auth.PermCustomersRead, auth.PermCustomersManage,
		},
	},
	{
		name:        "viewer",
		description: "Read-only access",
		grants: []auth.Perm{
			auth.PermDashboardView,
			auth.PermProductsRead,
			auth.PermCategoriesRead,
			auth.PermAppointmentsRead,
			auth.PermCustomersRead,
			auth.PermPagesRead,
			auth.PermTestimonialsRead,
		},
	},
}

// seed inserts the permission catalog, built-in roles and the initial admin
// account. It is idempotent: existing rows are left untouched, so operators
// can rename roles or disable permissions without the next start reverting it.
func seed(_ *config.Config, db *gorm.DB) error {
	if err := seedPermissions(db); err != nil {
		return err
	}

	if err := seedBuiltinRoles(db); err != nil {
		return err
	}

	return seedAdminUser(db)
}

func seedPermissions(db *gorm.DB) error {
	for _, p := range auth.All() {
		row := models.Permission{
			Resource:    p.Resource,
			Action:      p.Action,
			Description: permissionDescriptions[p],
			Active:      true,
		}

		err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
		if err != nil {
			return err
		}
	}

	return nil
}

func seedBuiltinRoles(db *gorm.DB) error {
	for _, r := range seedRoles {
		var existing models.Role

		err := db.Where("name = ?", r.name).First(&existing).Error
		if err == nil {
			continue
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		role := models.Role{
			Name:        r.name,
			Description: r.description,
			IsSystem:    r.system,
		}

		if err = db.Create(&role).Error; err != nil {
			return err
		}

		for _, p := range r.grants {
			var perm models.Permission

			err = db.Where("resource = ? AND action = ?", p.Resource, p.Action).First(&perm).Error
			if err != nil {
				return err
			}

			grant := models.RolePermission{RoleID: role.ID, PermissionID: perm.ID}
			if err = db.Create(&grant).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

func seedAdminUser(db *gorm.DB) error {
	var count int64

	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	// Default credentials, meant to be changed on first login.
	admin := models.User{
		Name:     "Administrator",
		Email:    "admin@localhost",
		Password: models.HashPassword("changeme"),
		Active:   true,
		IsAdmin:  true,
	}

	var adminRole models.Role
	if err := db.Where("name = ?", models.AdminRoleName).First(&adminRole).Error; err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}

		return tx.Create(&models.UserRole{
			UserID:     admin.ID,
			RoleID:     adminRole.ID,
			AssignedBy: admin.ID,
		}).Error
	})
}
