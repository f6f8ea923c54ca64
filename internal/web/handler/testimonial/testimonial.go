// Package testimonial provides handlers for curating customer testimonials.
package testimonial

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
	// Path is the base path for testimonial management.
	Path = handler.RootPath + "testimonial"

	// TemplateList is the template for listing testimonials.
	TemplateList = "testimonial/list"
	// TemplateForm is the template for creating/updating a testimonial.
	TemplateForm = "testimonial/form"
)

// testimonialForm is the typed, validated shape of the testimonial form.
type testimonialForm struct {
	Author   string `form:"author" validate:"required,max=200"`
	Quote    string `form:"quote"  validate:"required"`
	Rating   int    `form:"rating" validate:"min=1,max=5"`
	Approved bool   `form:"approved"`
}

// Service provides CRUD operations for testimonials.
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
		auth.RequirePermission(hc.Gate, auth.PermTestimonialsRead),
		s.List,
	)
	app.Get(Path+"/new",
		auth.RequirePermission(hc.Gate, auth.PermTestimonialsManage),
		s.New,
	)
	app.Post(Path,
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermTestimonialsManage),
		s.Create,
	)
	app.Get(Path+"/:id/edit",
		auth.RequirePermission(hc.Gate, auth.PermTestimonialsManage),
		s.Edit,
	)
	app.Post(Path+"/:id",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermTestimonialsManage),
		s.Update,
	)
	app.Post(Path+"/:id/approve",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermTestimonialsManage),
		s.ToggleApproved,
	)
	app.Post(Path+"/:id/delete",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermTestimonialsManage),
		s.Delete,
	)
}

func listNav() *navigation.Context {
	return navigation.NewContext("Testimonials", "content", "testimonial").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Testimonials", Path, true)
}

// List shows all testimonials, unapproved first.
func (s *Service) List(c *fiber.Ctx) error {
	var testimonials []models.Testimonial
	err := s.hc.DB.Order("approved ASC, id DESC").Find(&testimonials).Error
	if err != nil {
		log.Error().Err(err).Msg("query testimonials failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to load testimonials",
		}, handler.BaseLayout)
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation":   listNav(),
		"Testimonials": testimonials,
		"CSRFToken":    token,
	}, handler.BaseLayout)
}

// New shows the creation form.
func (s *Service) New(c *fiber.Ctx) error {
	nav := navigation.NewContext("New Testimonial", "content", "testimonial").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Testimonials", Path, false).
		AddBreadcrumb("New", Path+"/new", true)

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	return c.Render(TemplateForm, fiber.Map{
		"Navigation":  nav,
		"Testimonial": models.Testimonial{Rating: 5},
		"IsCreate":    true,
		"CSRFToken":   token,
	}, handler.BaseLayout)
}

// Create creates a new testimonial.
func (s *Service) Create(c *fiber.Ctx) error {
	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return c.Status(fiber.StatusForbidden).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      handler.MsgCSRFRejected,
		}, handler.BaseLayout)
	}

	var in testimonialForm
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

	testimonial := models.Testimonial{
		Author:   in.Author,
		Quote:    in.Quote,
		Rating:   in.Rating,
		Approved: in.Approved,
	}

	if err := s.hc.DB.Create(&testimonial).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to create testimonial: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// Edit shows the edit form for a testimonial.
func (s *Service) Edit(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	var testimonial models.Testimonial
	if err := s.hc.DB.First(&testimonial, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load testimonial",
		}, handler.BaseLayout)
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	nav := navigation.NewContext("Edit Testimonial", "content", "testimonial").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Testimonials", Path, false).
		AddBreadcrumb("Edit", Path+"/"+strconv.Itoa(id)+"/edit", true)

	return c.Render(TemplateForm, fiber.Map{
		"Navigation":  nav,
		"Testimonial": testimonial,
		"IsCreate":    false,
		"CSRFToken":   token,
	}, handler.BaseLayout)
}

// Update updates a testimonial.
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

	var in testimonialForm
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

	var testimonial models.Testimonial
	if err := s.hc.DB.First(&testimonial, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load testimonial",
		}, handler.BaseLayout)
	}

	testimonial.Author = in.Author
	testimonial.Quote = in.Quote
	testimonial.Rating = in.Rating
	testimonial.Approved = in.Approved

	if err := s.hc.DB.Save(&testimonial).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Failed to update testimonial: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// ToggleApproved flips the approved flag from the list view.
func (s *Service) ToggleApproved(c *fiber.Ctx) error {
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

	err = s.hc.DB.Model(&models.Testimonial{}).Where("id = ?", id).
		Update("approved", gorm.Expr("NOT approved")).Error
	if err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to update testimonial: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// Delete removes a testimonial.
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

	if err := s.hc.DB.Delete(&models.Testimonial{}, id).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to delete testimonial: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}
