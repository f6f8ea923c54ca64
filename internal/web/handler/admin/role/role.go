// Package role provides handlers for managing roles and their permission
// grants in the admin area.
package role

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/auth"
	permissioncontroller "github.com/GoStudio-Admin/GoStudio-Admin/internal/db/controller/permission"
	rolecontroller "github.com/GoStudio-Admin/GoStudio-Admin/internal/db/controller/role"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/db/models"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/ratelimit"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/dashboard"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/navigation"
)

const (
	// Path is the base path for role management.
	Path = handler.RootPath + "admin/role"

	// TemplateList is the template for listing roles.
	TemplateList = "admin/role/list"
	// TemplateForm is the template for creating/updating a role.
	TemplateForm = "admin/role/form"
)

// roleForm is the typed, validated shape of the role form.
type roleForm struct {
	Name          string `form:"name"        validate:"required,max=100"`
	Description   string `form:"description" validate:"max=255"`
	PermissionIDs []uint `form:"permission_ids"`
}

// Service provides CRUD operations for roles.
type Service struct {
	handler.Service
	hc        *handler.Context
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, hc *handler.Context) {
	if app == nil || !hc.Valid() {
		log.Fatal().Msg(handler.ErrNilContextFatalLogMsg)
		return
	}

	s.hc = hc
	s.validator = validator.New()

	// Routes
	app.Get(Path,
		auth.RequirePermission(hc.Gate, auth.PermAdminRoles),
		s.List,
	)
	app.Get(Path+"/new",
		auth.RequirePermission(hc.Gate, auth.PermAdminRoles),
		s.New,
	)
	app.Post(Path,
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermAdminRoles),
		s.Create,
	)
	app.Get(Path+"/:id/edit",
		auth.RequirePermission(hc.Gate, auth.PermAdminRoles),
		s.Edit,
	)
	app.Post(Path+"/:id",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermAdminRoles),
		s.Update,
	)
	app.Post(Path+"/:id/delete",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermAdminRoles),
		s.Delete,
	)
}

func listNav() *navigation.Context {
	return navigation.NewContext("Roles", "admin", "role").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Roles", Path, true)
}

func (s *Service) renderListError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).Render(TemplateList, fiber.Map{
		"Navigation": listNav(),
		"Error":      msg,
	}, handler.BaseLayout)
}

// List shows all roles.
func (s *Service) List(c *fiber.Ctx) error {
	roles, err := rolecontroller.GetAll(s.hc.DB)
	if err != nil {
		log.Error().Err(err).Msg("query roles failed")

		return s.renderListError(c, fiber.StatusInternalServerError, "Failed to load roles")
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation": listNav(),
		"Roles":      roles,
		"CSRFToken":  token,
	}, handler.BaseLayout)
}

// New shows the creation form with the full permission catalog.
func (s *Service) New(c *fiber.Ctx) error {
	nav := navigation.NewContext("New Role", "admin", "role").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Roles", Path, false).
		AddBreadcrumb("New", Path+"/new", true)

	permissions, err := permissioncontroller.GetAll(s.hc.DB)
	if err != nil {
		log.Error().Err(err).Msg("failed to load permissions")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load permissions",
		}, handler.BaseLayout)
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	return c.Render(TemplateForm, fiber.Map{
		"Navigation":  nav,
		"Role":        models.Role{},
		"IsCreate":    true,
		"Permissions": permissions,
		"Granted":     map[uint]bool{},
		"CSRFToken":   token,
	}, handler.BaseLayout)
}

// Create creates a new role and its grants.
func (s *Service) Create(c *fiber.Ctx) error {
	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return s.renderListError(c, fiber.StatusForbidden, handler.MsgCSRFRejected)
	}

	var in roleForm
	if err := c.BodyParser(&in); err != nil {
		return s.renderListError(c, fiber.StatusBadRequest, "Invalid form data")
	}

	if err := s.validator.Struct(in); err != nil {
		return s.renderListError(c, fiber.StatusBadRequest, "Please correct the highlighted errors")
	}

	created, err := rolecontroller.Create(s.hc.DB, in.Name, in.Description)
	if err != nil {
		if errors.Is(err, rolecontroller.ErrRoleAlreadyExists) {
			return s.renderListError(c, fiber.StatusBadRequest, "A role with this name already exists")
		}

		log.Error().Err(err).Msg("create role failed")

		return s.renderListError(c, fiber.StatusBadRequest, "Failed to create role")
	}

	if len(in.PermissionIDs) > 0 {
		if err := rolecontroller.SetPermissions(s.hc.DB, created.ID, in.PermissionIDs); err != nil {
			log.Error().Err(err).Uint("role_id", created.ID).Msg("set permissions failed")

			return s.renderListError(c, fiber.StatusBadRequest, "Failed to assign permissions")
		}
	}

	return c.Redirect(Path)
}

// Edit shows the edit form for a role.
func (s *Service) Edit(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	target, err := rolecontroller.Get(s.hc.DB, uint(id))
	if err != nil {
		if errors.Is(err, rolecontroller.ErrRoleNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load role",
		}, handler.BaseLayout)
	}

	permissions, err := permissioncontroller.GetAll(s.hc.DB)
	if err != nil {
		log.Error().Err(err).Msg("failed to load permissions")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load permissions",
		}, handler.BaseLayout)
	}

	granted := make(map[uint]bool, len(target.Permissions))
	for i := range target.Permissions {
		granted[target.Permissions[i].ID] = true
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	nav := navigation.NewContext("Edit Role", "admin", "role").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Roles", Path, false).
		AddBreadcrumb("Edit", Path+"/"+strconv.Itoa(id)+"/edit", true)

	return c.Render(TemplateForm, fiber.Map{
		"Navigation":  nav,
		"Role":        target,
		"IsCreate":    false,
		"Permissions": permissions,
		"Granted":     granted,
		"CSRFToken":   token,
	}, handler.BaseLayout)
}

// Update updates a role and replaces its grants wholesale.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return c.Status(fiber.StatusForbidden).Render(TemplateForm, fiber.Map{
			"Error": handler.MsgCSRFRejected,
		}, handler.BaseLayout)
	}

	var in roleForm
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Invalid form data",
		}, handler.BaseLayout)
	}

	if err := s.validator.Struct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Please correct the highlighted errors",
		}, handler.BaseLayout)
	}

	if _, err := rolecontroller.Update(s.hc.DB, uint(id), in.Name, in.Description); err != nil {
		if errors.Is(err, rolecontroller.ErrRoleNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Failed to update role",
		}, handler.BaseLayout)
	}

	if err := rolecontroller.SetPermissions(s.hc.DB, uint(id), in.PermissionIDs); err != nil {
		log.Error().Err(err).Int("role_id", id).Msg("set permissions failed")

		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Failed to update permission grants",
		}, handler.BaseLayout)
	}

	// the actor may hold this role; recompute within this request
	s.hc.Gate.InvalidatePermissions(c)

	return c.Redirect(Path)
}

// Delete removes a role. System roles are protected by the controller.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return s.renderListError(c, fiber.StatusForbidden, handler.MsgCSRFRejected)
	}

	if err := rolecontroller.Delete(s.hc.DB, uint(id)); err != nil {
		switch {
		case errors.Is(err, rolecontroller.ErrSystemRole):
			return s.renderListError(c, fiber.StatusForbidden, "System roles cannot be deleted.")
		case errors.Is(err, rolecontroller.ErrRoleNotFound):
			return c.Redirect(Path)
		}

		log.Error().Err(err).Int("role_id", id).Msg("delete role failed")

		return s.renderListError(c, fiber.StatusBadRequest, "Failed to delete role")
	}

	return c.Redirect(Path)
}
