// Package appointment provides handlers for managing studio bookings.
package appointment

import (
	"errors"
	"strconv"
	"time"

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
	// Path is the base path for appointment management.
	Path = handler.RootPath + "appointment"

	// TemplateList is the template for listing appointments.
	TemplateList = "appointment/list"
	// TemplateForm is the template for creating/updating an appointment.
	TemplateForm = "appointment/form"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25

	// scheduledAtLayout matches the value format of datetime-local inputs.
	scheduledAtLayout = "2006-01-02T15:04"
)

// appointmentForm is the typed, validated shape of the appointment form.
type appointmentForm struct {
	CustomerID  uint64 `form:"customer_id"  validate:"required"`
	Service     string `form:"service"      validate:"required,max=200"`
	ScheduledAt string `form:"scheduled_at" validate:"required"`
	Status      string `form:"status"       validate:"required"`
	Notes       string `form:"notes"`
}

// Service provides CRUD operations for appointments.
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
		auth.RequirePermission(hc.Gate, auth.PermAppointmentsRead),
		s.List,
	)
	app.Get(Path+"/new",
		auth.RequirePermission(hc.Gate, auth.PermAppointmentsCreate),
		s.New,
	)
	app.Post(Path,
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermAppointmentsCreate),
		s.Create,
	)
	app.Get(Path+"/:id/edit",
		auth.RequirePermission(hc.Gate, auth.PermAppointmentsUpdate),
		s.Edit,
	)
	app.Post(Path+"/:id",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermAppointmentsUpdate),
		s.Update,
	)
	app.Post(Path+"/:id/status",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermAppointmentsUpdate),
		s.SetStatus,
	)
	app.Post(Path+"/:id/delete",
		ratelimit.APIMiddleware(hc.Limiter),
		auth.RequirePermission(hc.Gate, auth.PermAppointmentsDelete),
		s.Delete,
	)
}

func listNav() *navigation.Context {
	return navigation.NewContext("Appointments", "studio", "appointment").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Appointments", Path, true)
}

// List shows appointments with pagination and an optional status filter.
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

	status := c.Query("status", "")

	var (
		appointments []models.Appointment
		totalCount   int64
		tx           = s.hc.DB.Model(&models.Appointment{})
	)

	if status != "" && models.ValidAppointmentStatus(models.AppointmentStatus(status)) {
		tx = tx.Where("status = ?", status)
	}

	if err := tx.Count(&totalCount).Error; err != nil {
		log.Error().Err(err).Msg("count appointments failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load appointments",
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
	err := tx.Preload("Customer").Order("scheduled_at DESC").
		Limit(pageSize).Offset(offset).Find(&appointments).Error
	if err != nil {
		log.Error().Err(err).Msg("query appointments failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load appointments",
		}, handler.BaseLayout)
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation":   nav,
		"Appointments": appointments,
		"Status":       status,
		"CSRFToken":    token,
		"Page":         page,
		"PageSize":     pageSize,
		"TotalItems":   totalCount,
		"TotalPages":   totalPages,
		"HasPrev":      page > 1,
		"HasNext":      page < totalPages,
		"PrevPage":     page - 1,
		"NextPage":     page + 1,
	}, handler.BaseLayout)
}

// New shows the booking form.
func (s *Service) New(c *fiber.Ctx) error {
	nav := navigation.NewContext("New Appointment", "studio", "appointment").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Appointments", Path, false).
		AddBreadcrumb("New", Path+"/new", true)

	customers, err := s.allCustomers()
	if err != nil {
		log.Error().Err(err).Msg("failed to load customers")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load customers",
		}, handler.BaseLayout)
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	return c.Render(TemplateForm, fiber.Map{
		"Navigation":  nav,
		"Appointment": models.Appointment{Status: models.AppointmentPending},
		"ScheduledAt": "",
		"IsCreate":    true,
		"Customers":   customers,
		"CSRFToken":   token,
	}, handler.BaseLayout)
}

// Create books a new appointment.
func (s *Service) Create(c *fiber.Ctx) error {
	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return c.Status(fiber.StatusForbidden).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      handler.MsgCSRFRejected,
		}, handler.BaseLayout)
	}

	var in appointmentForm
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

	scheduledAt, err := time.ParseInLocation(scheduledAtLayout, in.ScheduledAt, time.Local)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Invalid appointment time",
		}, handler.BaseLayout)
	}

	status := models.AppointmentStatus(in.Status)
	if !models.ValidAppointmentStatus(status) {
		status = models.AppointmentPending
	}

	appointment := models.Appointment{
		CustomerID:  in.CustomerID,
		Service:     in.Service,
		ScheduledAt: scheduledAt,
		Status:      status,
		Notes:       in.Notes,
	}

	if err := s.hc.DB.Create(&appointment).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to create appointment: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// Edit shows the edit form for an appointment.
func (s *Service) Edit(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	var appointment models.Appointment
	if err := s.hc.DB.Preload("Customer").First(&appointment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load appointment",
		}, handler.BaseLayout)
	}

	customers, err := s.allCustomers()
	if err != nil {
		log.Error().Err(err).Msg("failed to load customers")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load customers",
		}, handler.BaseLayout)
	}

	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	nav := navigation.NewContext("Edit Appointment", "studio", "appointment").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Appointments", Path, false).
		AddBreadcrumb("Edit", Path+"/"+strconv.Itoa(id)+"/edit", true)

	return c.Render(TemplateForm, fiber.Map{
		"Navigation":  nav,
		"Appointment": appointment,
		"ScheduledAt": appointment.ScheduledAt.Format(scheduledAtLayout),
		"IsCreate":    false,
		"Customers":   customers,
		"CSRFToken":   token,
	}, handler.BaseLayout)
}

// Update updates an appointment.
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

	var in appointmentForm
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

	scheduledAt, err := time.ParseInLocation(scheduledAtLayout, in.ScheduledAt, time.Local)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Invalid appointment time",
		}, handler.BaseLayout)
	}

	status := models.AppointmentStatus(in.Status)
	if !models.ValidAppointmentStatus(status) {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Unknown appointment status",
		}, handler.BaseLayout)
	}

	var appointment models.Appointment
	if err := s.hc.DB.First(&appointment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load appointment",
		}, handler.BaseLayout)
	}

	appointment.CustomerID = in.CustomerID
	appointment.Service = in.Service
	appointment.ScheduledAt = scheduledAt
	appointment.Status = status
	appointment.Notes = in.Notes

	if err := s.hc.DB.Save(&appointment).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Failed to update appointment: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// SetStatus updates only the lifecycle status, used by the quick actions on
// the list view.
func (s *Service) SetStatus(c *fiber.Ctx) error {
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

	status := models.AppointmentStatus(c.FormValue("status"))
	if !models.ValidAppointmentStatus(status) {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Unknown appointment status",
		}, handler.BaseLayout)
	}

	result := s.hc.DB.Model(&models.Appointment{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to update status: " + result.Error.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// Delete removes an appointment.
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

	if err := s.hc.DB.Delete(&models.Appointment{}, id).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to delete appointment: " + err.Error(),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

func (s *Service) allCustomers() ([]models.Customer, error) {
	var customers []models.Customer

	err := s.hc.DB.Order("name ASC").Find(&customers).Error
	if err != nil {
		return nil, err
	}

	return customers, nil
}
