// Package category provides handlers for managing product categories.
package category

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
	// Path is the base path for category management.
	Path = handler.RootPath + "category"

	// TemplateList is the template for listing categories.
	TemplateList = "category/list"
	// TemplateForm is the template for creating/updating a category.
	TemplateForm = "category/form"
)

// categoryForm is the typed, validated shape of the category form.
type categoryForm struct {
	Name        string `form:"name"        validate:"required,max=100"`
	Description string `form:"description" validate:"max=255"`
	Active      bool   `form:"active"`
}

// Service provides CRUD operations for categories.
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
		auth.RequirePermission(hc.Gate, auth.PermCategoriesRead),
		s.List,
	)
	app.Get(Path+"/new",
		auth.RequirePermission(hc.Gate, auth.PermCategoriesManage),
		s.New,
	)
	app.Post(Path,
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermCategoriesManage),
		s.Create,
	)
	app.Get(Path+"/:id/edit",
		auth.RequirePermission(hc.Gate, auth.PermCategoriesManage),
		s.Edit,
	)
	app.Post(Path+"/:id",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermCategoriesManage),
		s.Update,
	)
	app.Post(Path+"/:id/delete",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermCategoriesManage),
		s.Delete,
	)
}

func listNav() *navigation.Context {
	return navigation.NewContext("Categories", "catalog", "category").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Categories", Path, true)
}

// List shows all categories.
func (s *Service) List(c *fiber.Ctx) error {
	var categories []models.Category
	if err := s.hc.DB.Order("name ASC").Find(&categories).Error; err != nil {
		log.Error().Err(err).Msg("query categories failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to load categories",
		}, handler.BaseLayout)
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation": listNav(),
		"Categories": categories,
	}, handler.BaseLayout)
}

// New shows the creation form.
func (s *Service) New(c *fiber.Ctx) error {
	nav := navigation.NewContext("New Category", "catalog", "category").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Categories", Path, false).
		AddBreadcrumb("New", Path+"/new", true)

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	return c.Render(TemplateForm, fiber.Map{
		"Navigation": nav,
		"Category":   models.Category{Active: true},
		"IsCreate":   true,
		"CSRFToken":  token,
	}, handler.BaseLayout)
}

// Create creates a new category.
func (s *Service) Create(c *fiber.Ctx) error {
	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return c.Status(fiber.StatusForbidden).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      handler.MsgCSRFRejected,
		}, handler.BaseLayout)
	}

	var in categoryForm
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

	category := models.Category{
		Name:        in.Name,
		Description: in.Description,
		Active:      in.Active,
	}

	if err := s.hc.DB.Create(&category).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to create category: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// Edit shows the edit form for a category.
func (s *Service) Edit(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	var category models.Category
	if err := s.hc.DB.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load category",
		}, handler.BaseLayout)
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	nav := navigation.NewContext("Edit Category", "catalog", "category").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Categories", Path, false).
		AddBreadcrumb("Edit", Path+"/"+strconv.Itoa(id)+"/edit", true)

	return c.Render(TemplateForm, fiber.Map{
		"Navigation": nav,
		"Category":   category,
		"IsCreate":   false,
		"CSRFToken":  token,
	}, handler.BaseLayout)
}

// Update updates a category.
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

	var in categoryForm
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

	var category models.Category
	if err := s.hc.DB.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load category",
		}, handler.BaseLayout)
	}

	category.Name = in.Name
	category.Description = in.Description
	category.Active = in.Active

	if err := s.hc.DB.Save(&category).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Failed to update category: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// Delete removes a category. Products referencing it keep existing with the
// category cleared (the foreign key is SET NULL).
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

	err = s.hc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Category{}, id).Error
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to delete category: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}
