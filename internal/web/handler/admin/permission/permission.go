// Package permission provides handlers for the permission catalog in the
// admin area. Hard deletes are guarded: a permission still granted to any
// role cannot be removed and has to be disabled instead.
package permission

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/auth"
	permissioncontroller "github.com/GoStudio-Admin/GoStudio-Admin/internal/db/controller/permission"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/ratelimit"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/dashboard"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/navigation"
)

const (
	// Path is the base path for permission catalog management.
	Path = handler.RootPath + "admin/permission"

	// TemplateList is the template for the permission catalog.
	TemplateList = "admin/permission/list"
)

// permissionForm is the typed, validated shape of the permission form.
type permissionForm struct {
	Resource    string `form:"resource"    validate:"required,max=100"`
	Action      string `form:"action"      validate:"required,max=50"`
	Description string `form:"description" validate:"max=255"`
}

// Service manages the permission catalog.
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
		auth.RequirePermission(hc.Gate, auth.PermAdminPermissions),
		s.List,
	)
	app.Post(Path,
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermAdminPermissions),
		s.Create,
	)
	app.Post(Path+"/:id/active",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermAdminPermissions),
		s.SetActive,
	)
	app.Post(Path+"/:id/delete",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermAdminPermissions),
		s.Delete,
	)
}

func listNav() *navigation.Context {
	return navigation.NewContext("Permissions", "admin", "permission").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Permissions", Path, true)
}

func (s *Service) renderList(c *fiber.Ctx, status int, extra fiber.Map) error {
	permissions, err := permissioncontroller.GetAll(s.hc.DB)
	if err != nil {
		log.Error().Err(err).Msg("query permissions failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to load permissions",
		}, handler.BaseLayout)
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	data := fiber.Map{
		"Navigation":  listNav(),
		"Permissions": permissions,
		"CSRFToken":   token,
	}
	for k, v := range extra {
		data[k] = v
	}

	return c.Status(status).Render(TemplateList, data, handler.BaseLayout)
}

// List shows the permission catalog.
func (s *Service) List(c *fiber.Ctx) error {
	return s.renderList(c, fiber.StatusOK, nil)
}

// Create adds a new permission to the catalog.
func (s *Service) Create(c *fiber.Ctx) error {
	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return s.renderList(c, fiber.StatusForbidden, fiber.Map{"Error": handler.MsgCSRFRejected})
	}

	var in permissionForm
	if err := c.BodyParser(&in); err != nil {
		return s.renderList(c, fiber.StatusBadRequest, fiber.Map{"Error": "Invalid form data"})
	}

	if err := s.validator.Struct(in); err != nil {
		return s.renderList(c, fiber.StatusBadRequest, fiber.Map{
			"Error": "Please correct the highlighted errors",
		})
	}

	_, err := permissioncontroller.Create(s.hc.DB, in.Resource, in.Action, in.Description)
	if err != nil {
		if errors.Is(err, permissioncontroller.ErrPermissionAlreadyExists) {
			return s.renderList(c, fiber.StatusBadRequest, fiber.Map{
				"Error": "This resource/action pair already exists",
			})
		}

		log.Error().Err(err).Msg("create permission failed")

		return s.renderList(c, fiber.StatusBadRequest, fiber.Map{"Error": "Failed to create permission"})
	}

	return c.Redirect(Path)
}

// SetActive soft-enables or soft-disables a permission.
func (s *Service) SetActive(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return s.renderList(c, fiber.StatusForbidden, fiber.Map{"Error": handler.MsgCSRFRejected})
	}

	active := c.FormValue("active") == "true"

	if err := permissioncontroller.SetActive(s.hc.DB, uint(id), active); err != nil {
		if errors.Is(err, permissioncontroller.ErrPermissionNotFound) {
			return c.Redirect(Path)
		}

		log.Error().Err(err).Int("permission_id", id).Msg("set permission active failed")

		return s.renderList(c, fiber.StatusBadRequest, fiber.Map{"Error": "Failed to update permission"})
	}

	// grants referencing a disabled permission stay in place; effective
	// permission sets simply stop including it
	s.hc.Gate.InvalidatePermissions(c)

	return c.Redirect(Path)
}

// Delete hard-deletes a permission. If roles still reference it the delete
// is refused and the conflict names every blocking role.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return s.renderList(c, fiber.StatusForbidden, fiber.Map{"Error": handler.MsgCSRFRejected})
	}

	if err := permissioncontroller.Delete(s.hc.DB, uint(id)); err != nil {
		var refErr *permissioncontroller.ReferencedError
		if errors.As(err, &refErr) {
			return s.renderList(c, fiber.StatusConflict, fiber.Map{
				"Error": "Cannot delete: " + refErr.Error() + ". Disable it instead.",
			})
		}

		if errors.Is(err, permissioncontroller.ErrPermissionNotFound) {
			return c.Redirect(Path)
		}

		log.Error().Err(err).Int("permission_id", id).Msg("delete permission failed")

		return s.renderList(c, fiber.StatusBadRequest, fiber.Map{"Error": "Failed to delete permission"})
	}

	return c.Redirect(Path)
}
