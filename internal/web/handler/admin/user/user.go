// Package user provides handlers for managing console accounts in the admin
// area: creation, role assignment, activation and the TOTP second factor.
package user

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog/log"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/auth"
	rolecontroller "github.com/GoStudio-Admin/GoStudio-Admin/internal/db/controller/role"
	usercontroller "github.com/GoStudio-Admin/GoStudio-Admin/internal/db/controller/user"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/db/models"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/ratelimit"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/dashboard"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/navigation"
)

const (
	// Path is the base path for user management.
	Path = handler.RootPath + "admin/user"

	// TemplateList is the template for listing users.
	TemplateList = "admin/user/list"
	// TemplateForm is the template for creating/updating a user.
	TemplateForm = "admin/user/form"
)

// userForm is the typed, validated shape of the user form.
type userForm struct {
	Name     string `form:"name"     validate:"required,max=100"`
	Email    string `form:"email"    validate:"required,email,max=255"`
	Password string `form:"password" validate:"omitempty,min=8,max=255"`
	RoleIDs  []uint `form:"role_ids"`
}

// Service provides CRUD operations for users.
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
		auth.RequirePermission(hc.Gate, auth.PermAdminUsers),
		s.List,
	)
	app.Get(Path+"/new",
		auth.RequirePermission(hc.Gate, auth.PermAdminUsers),
		s.New,
	)
	app.Post(Path,
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermAdminUsers),
		s.Create,
	)
	app.Get(Path+"/:id/edit",
		auth.RequirePermission(hc.Gate, auth.PermAdminUsers),
		s.Edit,
	)
	app.Post(Path+"/:id",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermAdminUsers),
		s.Update,
	)
	app.Post(Path+"/:id/active",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermAdminUsers),
		s.SetActive,
	)
	app.Post(Path+"/:id/totp",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermAdminUsers),
		s.SetTOTP,
	)
	app.Post(Path+"/:id/delete",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermAdminUsers),
		s.Delete,
	)
}

func listNav() *navigation.Context {
	return navigation.NewContext("Users", "admin", "user").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Users", Path, true)
}

func (s *Service) renderListError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).Render(TemplateList, fiber.Map{
		"Navigation": listNav(),
		"Error":      msg,
	}, handler.BaseLayout)
}

// List shows all users with their roles.
func (s *Service) List(c *fiber.Ctx) error {
	users, err := usercontroller.GetAll(s.hc.DB)
	if err != nil {
		log.Error().Err(err).Msg("query users failed")

		return s.renderListError(c, fiber.StatusInternalServerError, "Failed to load users")
	}

	actor, err := s.hc.Gate.CurrentUser(c)
	if err != nil || actor == nil {
		return s.renderListError(c, fiber.StatusInternalServerError, handler.MsgInternalError)
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation":    listNav(),
		"Users":         users,
		"CurrentUserID": actor.ID,
		"CSRFToken":     token,
	}, handler.BaseLayout)
}

// New shows the creation form.
func (s *Service) New(c *fiber.Ctx) error {
	nav := navigation.NewContext("New User", "admin", "user").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Users", Path, false).
		AddBreadcrumb("New", Path+"/new", true)

	roles, err := rolecontroller.GetAll(s.hc.DB)
	if err != nil {
		log.Error().Err(err).Msg("failed to load roles")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load roles",
		}, handler.BaseLayout)
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	return c.Render(TemplateForm, fiber.Map{
		"Navigation":    nav,
		"User":          models.User{Active: true},
		"IsCreate":      true,
		"Roles":         roles,
		"AssignedRoles": map[uint]bool{},
		"CSRFToken":     token,
	}, handler.BaseLayout)
}

// Create creates a new user and assigns the selected roles.
func (s *Service) Create(c *fiber.Ctx) error {
	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return s.renderListError(c, fiber.StatusForbidden, handler.MsgCSRFRejected)
	}

	var in userForm
	if err := c.BodyParser(&in); err != nil {
		return s.renderListError(c, fiber.StatusBadRequest, "Invalid form data")
	}

	if in.Password == "" {
		return s.renderListError(c, fiber.StatusBadRequest, "Password is required for new users")
	}

	if err := s.validator.Struct(in); err != nil {
		return s.renderListError(c, fiber.StatusBadRequest, "Please correct the highlighted errors")
	}

	actor, err := s.hc.Gate.CurrentUser(c)
	if err != nil || actor == nil {
		return s.renderListError(c, fiber.StatusInternalServerError, handler.MsgInternalError)
	}

	var initialRole uint
	if len(in.RoleIDs) > 0 {
		initialRole = in.RoleIDs[0]
	}

	created, err := usercontroller.Create(s.hc.DB, in.Name, in.Email, in.Password, initialRole, actor.ID)
	if err != nil {
		if errors.Is(err, usercontroller.ErrEmailExists) {
			return s.renderListError(c, fiber.StatusBadRequest, "A user with this email already exists")
		}

		log.Error().Err(err).Msg("create user failed")

		return s.renderListError(c, fiber.StatusBadRequest, "Failed to create user")
	}

	if len(in.RoleIDs) > 1 {
		if err := usercontroller.ReplaceRoles(s.hc.DB, created.ID, in.RoleIDs, actor.ID); err != nil {
			log.Error().Err(err).Uint64("user_id", created.ID).Msg("assign roles failed")

			return s.renderListError(c, fiber.StatusBadRequest,
				"User created, but assigning the selected roles failed. Edit the user to retry.")
		}
	}

	return c.Redirect(Path)
}

// Edit shows the edit form for a user.
func (s *Service) Edit(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Redirect(Path)
	}

	target, err := usercontroller.Get(s.hc.DB, id)
	if err != nil {
		if errors.Is(err, usercontroller.ErrUserNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load user",
		}, handler.BaseLayout)
	}

	roles, err := rolecontroller.GetAll(s.hc.DB)
	if err != nil {
		log.Error().Err(err).Msg("failed to load roles")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load roles",
		}, handler.BaseLayout)
	}

	assigned := make(map[uint]bool, len(target.Roles))
	for i := range target.Roles {
		assigned[target.Roles[i].ID] = true
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	nav := navigation.NewContext("Edit User", "admin", "user").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Users", Path, false).
		AddBreadcrumb("Edit", Path+"/"+strconv.FormatUint(id, 10)+"/edit", true)

	return c.Render(TemplateForm, fiber.Map{
		"Navigation":    nav,
		"User":          target,
		"IsCreate":      false,
		"Roles":         roles,
		"AssignedRoles": assigned,
		"CSRFToken":     token,
	}, handler.BaseLayout)
}

// Update updates profile data, replaces the role assignments wholesale and
// optionally resets the password.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Redirect(Path)
	}

	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return c.Status(fiber.StatusForbidden).Render(TemplateForm, fiber.Map{
			"Error": handler.MsgCSRFRejected,
		}, handler.BaseLayout)
	}

	var in userForm
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

	actor, err := s.hc.Gate.CurrentUser(c)
	if err != nil || actor == nil {
		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": handler.MsgInternalError,
		}, handler.BaseLayout)
	}

	if _, err := usercontroller.Update(s.hc.DB, id, in.Name, in.Email); err != nil {
		if errors.Is(err, usercontroller.ErrUserNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Failed to update user",
		}, handler.BaseLayout)
	}

	if in.Password != "" {
		if err := usercontroller.SetPassword(s.hc.DB, id, in.Password); err != nil {
			log.Error().Err(err).Uint64("user_id", id).Msg("set password failed")
		}
	}

	if err := usercontroller.ReplaceRoles(s.hc.DB, id, in.RoleIDs, actor.ID); err != nil {
		log.Error().Err(err).Uint64("user_id", id).Msg("replace roles failed")

		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Failed to update role assignments",
		}, handler.BaseLayout)
	}

	// role changes apply to the actor's own account within this request too
	if actor.ID == id {
		s.hc.Gate.InvalidatePermissions(c)
	}

	return c.Redirect(Path)
}

// SetActive activates or deactivates an account. Self-deactivation and
// deactivating admin-role members are refused by the controller.
func (s *Service) SetActive(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Redirect(Path)
	}

	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return s.renderListError(c, fiber.StatusForbidden, handler.MsgCSRFRejected)
	}

	actor, err := s.hc.Gate.CurrentUser(c)
	if err != nil || actor == nil {
		return s.renderListError(c, fiber.StatusInternalServerError, handler.MsgInternalError)
	}

	active := c.FormValue("active") == "true"

	if err := usercontroller.SetActive(s.hc.DB, actor.ID, id, active); err != nil {
		switch {
		case errors.Is(err, usercontroller.ErrSelfAction):
			return s.renderListError(c, fiber.StatusBadRequest, "You cannot deactivate your own account.")
		case errors.Is(err, usercontroller.ErrAdminProtected):
			return s.renderListError(c, fiber.StatusForbidden, "Members of the admin role cannot be deactivated.")
		case errors.Is(err, usercontroller.ErrUserNotFound):
			return c.Redirect(Path)
		}

		log.Error().Err(err).Uint64("user_id", id).Msg("set active failed")

		return s.renderListError(c, fiber.StatusBadRequest, "Failed to update user")
	}

	return c.Redirect(Path)
}

// SetTOTP enrolls or removes the TOTP second factor for a user. Enrollment
// generates a fresh secret and shows it once for the authenticator setup.
func (s *Service) SetTOTP(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Redirect(Path)
	}

	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return s.renderListError(c, fiber.StatusForbidden, handler.MsgCSRFRejected)
	}

	target, err := usercontroller.Get(s.hc.DB, id)
	if err != nil {
		if errors.Is(err, usercontroller.ErrUserNotFound) {
			return c.Redirect(Path)
		}

		return s.renderListError(c, fiber.StatusInternalServerError, "Failed to load user")
	}

	if c.FormValue("enabled") != "true" {
		if err := usercontroller.SetTOTPSecret(s.hc.DB, id, ""); err != nil {
			log.Error().Err(err).Uint64("user_id", id).Msg("disable totp failed")

			return s.renderListError(c, fiber.StatusBadRequest, "Failed to disable two-factor authentication")
		}

		return c.Redirect(Path)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "GoStudio-Admin",
		AccountName: target.Email,
	})
	if err != nil {
		log.Error().Err(err).Msg("totp generation failed")

		return s.renderListError(c, fiber.StatusInternalServerError, handler.MsgInternalError)
	}

	if err := usercontroller.SetTOTPSecret(s.hc.DB, id, key.Secret()); err != nil {
		log.Error().Err(err).Uint64("user_id", id).Msg("enable totp failed")

		return s.renderListError(c, fiber.StatusBadRequest, "Failed to enable two-factor authentication")
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	// the provisioning URL is shown exactly once
	return c.Render(TemplateList, fiber.Map{
		"Navigation": listNav(),
		"Notice":     "Two-factor enabled for " + target.Email + ". Provisioning secret: " + key.Secret(),
		"TOTPURL":    key.URL(),
		"CSRFToken":  token,
	}, handler.BaseLayout)
}

// Delete removes a user. Deleting your own account is refused by the
// controller.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Redirect(Path)
	}

	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return s.renderListError(c, fiber.StatusForbidden, handler.MsgCSRFRejected)
	}

	actor, err := s.hc.Gate.CurrentUser(c)
	if err != nil || actor == nil {
		return s.renderListError(c, fiber.StatusInternalServerError, handler.MsgInternalError)
	}

	if err := usercontroller.Delete(s.hc.DB, actor.ID, id); err != nil {
		switch {
		case errors.Is(err, usercontroller.ErrSelfAction):
			return s.renderListError(c, fiber.StatusBadRequest, "You cannot delete your own account.")
		case errors.Is(err, usercontroller.ErrUserNotFound):
			return c.Redirect(Path)
		}

		log.Error().Err(err).Uint64("user_id", id).Msg("delete user failed")

		return s.renderListError(c, fiber.StatusBadRequest, "Failed to delete user")
	}

	return c.Redirect(Path)
}
