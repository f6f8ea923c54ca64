// Package page provides handlers for managing slug-addressed site pages.
package page

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/auth"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/db/models"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/ratelimit"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/dashboard"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/navigation"
)

const (
	// Path is the base path for page management.
	Path = handler.RootPath + "page"

	// TemplateList is the template for listing pages.
	TemplateList = "page/list"
	// TemplateForm is the template for creating/updating a page.
	TemplateForm = "page/form"
)

// pageForm is the typed, validated shape of the page form.
type pageForm struct {
	Title     string `form:"title" validate:"required,max=200"`
	Slug      string `form:"slug"  validate:"required,max=200"`
	Body      string `form:"body"`
	Published bool   `form:"published"`
}

// Service provides CRUD operations for pages.
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
		auth.RequirePermission(hc.Gate, auth.PermPagesRead),
		s.List,
	)
	app.Get(Path+"/new",
		auth.RequirePermission(hc.Gate, auth.PermPagesManage),
		s.New,
	)
	app.Post(Path,
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermPagesManage),
		s.Create,
	)
	app.Get(Path+"/:id/edit",
		auth.RequirePermission(hc.Gate, auth.PermPagesManage),
		s.Edit,
	)
	app.Post(Path+"/:id",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermPagesManage),
		s.Update,
	)
	app.Post(Path+"/:id/publish",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermPagesManage),
		s.TogglePublish,
	)
	app.Post(Path+"/:id/delete",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermPagesManage),
		s.Delete,
	)
}

func listNav() *navigation.Context {
	return navigation.NewContext("Pages", "content", "page").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Pages", Path, true)
}

// List shows all pages.
func (s *Service) List(c *fiber.Ctx) error {
	var pages []models.Page
	if err := s.hc.DB.Order("title ASC").Find(&pages).Error; err != nil {
		log.Error().Err(err).Msg("query pages failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to load pages",
		}, handler.BaseLayout)
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation": listNav(),
		"Pages":      pages,
		"CSRFToken":  token,
	}, handler.BaseLayout)
}

// New shows the creation form.
func (s *Service) New(c *fiber.Ctx) error {
	nav := navigation.NewContext("New Page", "content", "page").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Pages", Path, false).
		AddBreadcrumb("New", Path+"/new", true)

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	return c.Render(TemplateForm, fiber.Map{
		"Navigation": nav,
		"Page":       models.Page{},
		"IsCreate":   true,
		"CSRFToken":  token,
	}, handler.BaseLayout)
}

// Create creates a new page.
func (s *Service) Create(c *fiber.Ctx) error {
	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return c.Status(fiber.StatusForbidden).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      handler.MsgCSRFRejected,
		}, handler.BaseLayout)
	}

	var in pageForm
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Invalid form data",
		}, handler.BaseLayout)
	}

	if err := s.validator.Struct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Please correct the highlighted errors",
		}, handler.BaseLayout)
	}

	page := models.Page{
		Title:     in.Title,
		Slug:      in.Slug,
		Body:      in.Body,
		Published: in.Published,
	}

	if err := s.hc.DB.Create(&page).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to create page: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// Edit shows the edit form for a page.
func (s *Service) Edit(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	var page models.Page
	if err := s.hc.DB.First(&page, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load page",
		}, handler.BaseLayout)
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	nav := navigation.NewContext("Edit Page", "content", "page").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Pages", Path, false).
		AddBreadcrumb("Edit", Path+"/"+strconv.Itoa(id)+"/edit", true)

	return c.Render(TemplateForm, fiber.Map{
		"Navigation": nav,
		"Page":       page,
		"IsCreate":   false,
		"CSRFToken":  token,
	}, handler.BaseLayout)
}

// Update updates a page.
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

	var in pageForm
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

	var page models.Page
	if err := s.hc.DB.First(&page, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load page",
		}, handler.BaseLayout)
	}

	page.Title = in.Title
	page.Slug = in.Slug
	page.Body = in.Body
	page.Published = in.Published

	if err := s.hc.DB.Save(&page).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Failed to update page: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// TogglePublish flips the published flag from the list view.
func (s *Service) TogglePublish(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return c.Status(fiber.StatusForbidden).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      handler.MsgCSRFRejected,
		}, handler.BaseLayout)
	}

	err = s.hc.DB.Model(&models.Page{}).Where("id = ?", id).
		Update("published", gorm.Expr("NOT published")).Error
	if err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to update page: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// Delete removes a page.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return c.Status(fiber.StatusForbidden).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      handler.MsgCSRFRejected,
		}, handler.BaseLayout)
	}

	if err := s.hc.DB.Delete(&models.Page{}, id).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to delete page: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}
