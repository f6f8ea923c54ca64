// Package product provides handlers for managing the product catalog.
package product

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
	// Path is the base path for product management.
	Path = handler.RootPath + "product"

	// TemplateList is the template for listing products.
	TemplateList = "product/list"
	// TemplateForm is the template for creating/updating a product.
	TemplateForm = "product/form"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25
)

// productForm is the typed, validated shape of the product form.
type productForm struct {
	Name        string `form:"name"        validate:"required,max=200"`
	Slug        string `form:"slug"        validate:"required,max=200"`
	Description string `form:"description"`
	PriceCents  int64  `form:"price_cents" validate:"min=0"`
	Stock       int    `form:"stock"       validate:"min=0"`
	Active      bool   `form:"active"`
	CategoryID  uint   `form:"category_id"`
}

// Service provides CRUD operations for products.
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
		auth.RequirePermission(hc.Gate, auth.PermProductsRead),
		s.List,
	)
	app.Get(Path+"/new",
		auth.RequirePermission(hc.Gate, auth.PermProductsCreate),
		s.New,
	)
	app.Post(Path,
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermProductsCreate),
		s.Create,
	)
	app.Get(Path+"/:id/edit",
		auth.RequirePermission(hc.Gate, auth.PermProductsUpdate),
		s.Edit,
	)
	app.Post(Path+"/:id",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermProductsUpdate),
		s.Update,
	)
	app.Post(Path+"/:id/delete",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermProductsDelete),
		s.Delete,
	)
}

func listNav() *navigation.Context {
	return navigation.NewContext("Products", "catalog", "product").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Products", Path, true)
}

// List shows products with simple pagination and search.
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
		products   []models.Product
		totalCount int64
		tx         = s.hc.DB.Model(&models.Product{})
	)

	if search != "" {
		like := "%" + search + "%"
		tx = tx.Where("name LIKE ? OR slug LIKE ?", like, like)
	}

	if err := tx.Count(&totalCount).Error; err != nil {
		log.Error().Err(err).Msg("count products failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load products",
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
	err := tx.Preload("Category").Order("id DESC").Limit(pageSize).Offset(offset).Find(&products).Error
	if err != nil {
		log.Error().Err(err).Msg("query products failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load products",
			"Search":     search,
		}, handler.BaseLayout)
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation": nav,
		"Products":   products,
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
	nav := navigation.NewContext("New Product", "catalog", "product").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Products", Path, false).
		AddBreadcrumb("New", Path+"/new", true)

	categories, err := s.activeCategories()
	if err != nil {
		log.Error().Err(err).Msg("failed to load categories")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load categories",
		}, handler.BaseLayout)
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	return c.Render(TemplateForm, fiber.Map{
		"Navigation":       nav,
		"Product":          models.Product{Active: true},
		"IsCreate":         true,
		"Categories":       categories,
		"SelectedCategory": uint(0),
		"CSRFToken":        token,
	}, handler.BaseLayout)
}

// Create creates a new product.
func (s *Service) Create(c *fiber.Ctx) error {
	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return c.Status(fiber.StatusForbidden).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      handler.MsgCSRFRejected,
		}, handler.BaseLayout)
	}

	var in productForm
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

	product := models.Product{
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
		Active:      in.Active,
	}
	if in.CategoryID != 0 {
		product.CategoryID = &in.CategoryID
	}

	if err := s.hc.DB.Create(&product).Error; err != nil {
		// Unique constraint errors etc.
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to create product: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// Edit shows the edit form for a product.
func (s *Service) Edit(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	var product models.Product
	if err := s.hc.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load product",
		}, handler.BaseLayout)
	}

	categories, err := s.activeCategories()
	if err != nil {
		log.Error().Err(err).Msg("failed to load categories")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load categories",
		}, handler.BaseLayout)
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	nav := navigation.NewContext("Edit Product", "catalog", "product").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Products", Path, false).
		AddBreadcrumb("Edit", Path+"/"+strconv.Itoa(id)+"/edit", true)

	var selectedCategory uint
	if product.CategoryID != nil {
		selectedCategory = *product.CategoryID
	}

	return c.Render(TemplateForm, fiber.Map{
		"Navigation":       nav,
		"Product":          product,
		"IsCreate":         false,
		"Categories":       categories,
		"SelectedCategory": selectedCategory,
		"CSRFToken":        token,
	}, handler.BaseLayout)
}

// Update updates a product.
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

	var in productForm
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

	var product models.Product
	if err := s.hc.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load product",
		}, handler.BaseLayout)
	}

	product.Name = in.Name
	product.Slug = in.Slug
	product.Description = in.Description
	product.PriceCents = in.PriceCents
	product.Stock = in.Stock
	product.Active = in.Active

	product.CategoryID = nil
	if in.CategoryID != 0 {
		product.CategoryID = &in.CategoryID
	}

	if err := s.hc.DB.Save(&product).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Failed to update product: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// Delete removes a product.
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

	if err := s.hc.DB.Delete(&models.Product{}, id).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to delete product: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

func (s *Service) activeCategories() ([]models.Category, error) {
	var categories []models.Category

	err := s.hc.DB.Where("active = ?", true).Order("name ASC").Find(&categories).Error
	if err != nil {
		return nil, err
	}

	return categories, nil
}
