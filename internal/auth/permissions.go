package auth

// Perm is the atomic unit of permission: a (resource, action) pair.
type Perm struct {
	Resource string
	Action   string
}

// String returns the dotted display form, e.g. "products.read".
func (p Perm) String() string {
	return p.Resource + "." + p.Action
}

// Permission constants define the available permissions in the system.
// These are used for role-based access control (RBAC) to restrict access
// to specific resources and actions.
var (
	// PermDashboardView allows viewing the main dashboard.
	PermDashboardView = Perm{"dashboard", "view"}

	// PermProductsRead allows viewing products.
	PermProductsRead = Perm{"products", "read"}
	// PermProductsCreate allows creating products.
	PermProductsCreate = Perm{"products", "create"}
	// PermProductsUpdate allows editing products.
	PermProductsUpdate = Perm{"products", "update"}
	// PermProductsDelete allows deleting products.
	PermProductsDelete = Perm{"products", "delete"}

	// PermCategoriesRead allows viewing product categories.
	PermCategoriesRead = Perm{"categories", "read"}
	// PermCategoriesManage allows creating, editing and deleting categories.
	PermCategoriesManage = Perm{"categories", "manage"}

	// PermAppointmentsRead allows viewing appointments.
	PermAppointmentsRead = Perm{"appointments", "read"}
	// PermAppointmentsCreate allows booking appointments.
	PermAppointmentsCreate = Perm{"appointments", "create"}
	// PermAppointmentsUpdate allows editing appointments and their status.
	PermAppointmentsUpdate = Perm{"appointments", "update"}
	// PermAppointmentsDelete allows deleting appointments.
	PermAppointmentsDelete = Perm{"appointments", "delete"}

	// PermCustomersRead allows viewing customer records.
	PermCustomersRead = Perm{"customers", "read"}
	// PermCustomersManage allows creating, editing and deleting customers.
	PermCustomersManage = Perm{"customers", "manage"}

	// PermPagesRead allows viewing CMS pages.
	PermPagesRead = Perm{"pages", "read"}
	// PermPagesManage allows creating, editing, publishing and deleting CMS pages.
	PermPagesManage = Perm{"pages", "manage"}

	// PermTestimonialsRead allows viewing testimonials.
	PermTestimonialsRead = Perm{"testimonials", "read"}
	// PermTestimonialsManage allows approving, editing and deleting testimonials.
	PermTestimonialsManage = Perm{"testimonials", "manage"}

	// PermAdminUsers allows managing user accounts and their roles.
	PermAdminUsers = Perm{"admin", "users"}
	// PermAdminRoles allows managing roles and their permission grants.
	PermAdminRoles = Perm{"admin", "roles"}
	// PermAdminPermissions allows managing the permission catalog.
	PermAdminPermissions = Perm{"admin", "permissions"}
)

// All lists every permission known to the system, used for seeding.
func All() []Perm {
	return []Perm{
		PermDashboardView,
		PermProductsRead, PermProductsCreate, PermProductsUpdate, PermProductsDelete,
		PermCategoriesRead, PermCategoriesManage,
		PermAppointmentsRead, PermAppointmentsCreate, PermAppointmentsUpdate, PermAppointmentsDelete,
		PermCustomersRead, PermCustomersManage,
		PermPagesRead, PermPagesManage,
		PermTestimonialsRead, PermTestimonialsManage,
		PermAdminUsers, PermAdminRoles, PermAdminPermissions,
	}
}
