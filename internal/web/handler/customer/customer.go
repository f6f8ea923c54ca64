// Package customer provides handlers for managing customer records.
package customer

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
	// Path is the base path for customer management.
	Path = handler.RootPath + "customer"

	// TemplateList is the template for listing customers.
	TemplateList = "customer/list"
	// TemplateForm is the template for creating/updating a customer.
	TemplateForm = "customer/form"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25
)

// customerForm is the typed, validated shape of the customer form.
type customerForm struct {
	Name  string `form:"name"  validate:"required,max=200"`
	Email string `form:"email" validate:"required,email,max=255"`
	Phone string `form:"phone" validate:"max=50"`
	Notes string `form:"notes"`
}

// Service provides CRUD operations for customers.
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
		auth.RequirePermission(hc.Gate, auth.PermCustomersRead),
		s.List,
	)
	app.Get(Path+"/new",
		auth.RequirePermission(hc.Gate, auth.PermCustomersManage),
		s.New,
	)
	app.Post(Path,
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermCustomersManage),
		s.Create,
	)
	app.Get(Path+"/:id/edit",
		auth.RequirePermission(hc.Gate, auth.PermCustomersManage),
		s.Edit,
	)
	app.Post(Path+"/:id",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermCustomersManage),
		s.Update,
	)
	app.Post(Path+"/:id/delete",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermCustomersManage),
		s.Delete,
	)
}

func listNav() *navigation.Context {
	return navigation.NewContext("Customers", "studio", "customer").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Customers", Path, true)
}

// List shows customers with simple pagination and search.
func (s *Service) List(c *fiber.Ctx) error {
	nav := listNav()

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > 100 {
		pageSize = DefaultPageSize
	}

	search := c.Query("search", "")

	var (
		customers  []models.Customer
		totalCount int64
		tx         = s.hc.DB.Model(&models.Customer{})
	)

	if search != "" {
		like := "%" + search + "%"
		tx = tx.Where("name LIKE ? OR email LIKE ? OR phone LIKE ?", like, like, like)
	}

	if err := tx.Count(&totalCount).Error; err != nil {
		log.Error().Err(err).Msg("count customers failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load customers",
			"Search":     search,
		}, handler.BaseLayout)
	}

	totalPages := int((totalCount + int64(pageSize) - 1) / int64(pageSize))
	if totalPages == 0 {
		totalPages = 1
	}

	if page > totalPages {
		page = totalPages
	}

	offset := (page - 1) * pageSize
	if err := tx.Order("id DESC").Limit(pageSize).Offset(offset).Find(&customers).Error; err != nil {
		log.Error().Err(err).Msg("query customers failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load customers",
			"Search":     search,
		}, handler.BaseLayout)
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation": nav,
		"Customers":  customers,
		"Search":     search,
		"Page":       page,
		"PageSize":   pageSize,
		"TotalItems": totalCount,
		"TotalPages": totalPages,
		"HasPrev":    page > 1,
		"HasNext":    page < totalPages,
		"PrevPage":   page - 1,
		"NextPage":   page + 1,
	}, handler.BaseLayout)
}

// New shows the creation form.
func (s *Service) New(c *fiber.Ctx) error {
	nav := navigation.NewContext("New Customer", "studio", "customer").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Customers", Path, false).
		AddBreadcrumb("New", Path+"/new", true)

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	return c.Render(TemplateForm, fiber.Map{
		"Navigation": nav,
		"Customer":   models.Customer{},
		"IsCreate":   true,
		"CSRFToken":  token,
	}, handler.BaseLayout)
}

// Create creates a new customer.
func (s *Service) Create(c *fiber.Ctx) error {
	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return c.Status(fiber.StatusForbidden).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      handler.MsgCSRFRejected,
		}, handler.BaseLayout)
	}

	var in customerForm
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

	customer := models.Customer{
		Name:  in.Name,
		Email: in.Email,
		Phone: in.Phone,
		Notes: in.Notes,
	}

	if err := s.hc.DB.Create(&customer).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to create customer: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// Edit shows the edit form for a customer.
func (s *Service) Edit(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	var customer models.Customer
	if err := s.hc.DB.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load customer",
		}, handler.BaseLayout)
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	nav := navigation.NewContext("Edit Customer", "studio", "customer").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Customers", Path, false).
		AddBreadcrumb("Edit", Path+"/"+strconv.Itoa(id)+"/edit", true)

	return c.Render(TemplateForm, fiber.Map{
		"Navigation": nav,
		"Customer":   customer,
		"IsCreate":   false,
		"CSRFToken":  token,
	}, handler.BaseLayout)
}

// Update updates a customer.
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

	var in customerForm
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

	var customer models.Customer
	if err := s.hc.DB.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load customer",
		}, handler.BaseLayout)
	}

	customer.Name = in.Name
	customer.Email = in.Email
	customer.Phone = in.Phone
	customer.Notes = in.Notes

	if err := s.hc.DB.Save(&customer).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Failed to update customer: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// Delete removes a customer together with their appointments.
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
		if err := tx.Where("customer_id = ?", id).Delete(&models.Appointment{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Customer{}, id).Error
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to delete customer: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}
