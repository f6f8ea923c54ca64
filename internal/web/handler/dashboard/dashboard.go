// Package dashboard provides the console landing page with catalog,
// booking and content counters.
package dashboard

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/auth"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/db/models"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/navigation"
)

const (
	// Path is the path to the dashboard page.
	Path = handler.RootPath + "dashboard"

	// TemplateName is the name of the dashboard template.
	TemplateName = "dashboard/dashboard"

	// UpcomingLimit caps the upcoming appointments shown on the dashboard.
	UpcomingLimit = 10
)

// Counters holds the headline numbers of the dashboard.
type Counters struct {
	Products            int64
	Categories          int64
	Customers           int64
	PendingAppointments int64
	PublishedPages      int64
	PendingTestimonials int64
}

// Service is the dashboard handler service.
type Service struct {
	handler.Service
	hc *handler.Context
}

// Handler is the dashboard handler.
var Handler = Service{}

// Init initializes the dashboard handler.
func (s *Service) Init(app *fiber.App, hc *handler.Context) {
	if app == nil || !hc.Valid() {
		log.Fatal().Msg(handler.ErrNilContextFatalLogMsg)
		return
	}

	s.hc = hc

	// register routes with permission checks
	app.Get(Path,
		auth.RequirePermission(hc.Gate, auth.PermDashboardView),
		s.Get,
	)
}

// Get handles the dashboard page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	nav := navigation.NewContext("Dashboard", "dashboard", "dashboard").
		AddBreadcrumb("Home", Path, false).
		AddBreadcrumb("Dashboard", Path, true)

	var counters Counters

	type counterQuery struct {
		dst   *int64
		model interface{}
		where []interface{}
	}

	queries := []counterQuery{
		{&counters.Products, &models.Product{}, nil},
		{&counters.Categories, &models.Category{}, nil},
		{&counters.Customers, &models.Customer{}, nil},
		{&counters.PendingAppointments, &models.Appointment{},
			[]interface{}{"status = ?", models.AppointmentPending}},
		{&counters.PublishedPages, &models.Page{},
			[]interface{}{"published = ?", true}},
		{&counters.PendingTestimonials, &models.Testimonial{},
			[]interface{}{"approved = ?", false}},
	}

	for _, q := range queries {
		tx := s.hc.DB.Model(q.model)
		if q.where != nil {
			tx = tx.Where(q.where[0], q.where[1:]...)
		}

		if err := tx.Count(q.dst).Error; err != nil {
			log.Error().Err(err).Msg("dashboard counter query failed")

			return c.Status(fiber.StatusInternalServerError).Render(TemplateName, fiber.Map{
				"Navigation": nav,
				"Error":      "Failed to load dashboard data",
			}, handler.BaseLayout)
		}
	}

	var upcoming []models.Appointment
	err := s.hc.DB.Preload("Customer").
		Where("scheduled_at >= ? AND status IN ?",
			time.Now(),
			[]models.AppointmentStatus{models.AppointmentPending, models.AppointmentConfirmed}).
		Order("scheduled_at ASC").
		Limit(UpcomingLimit).
		Find(&upcoming).Error
	if err != nil {
		log.Error().Err(err).Msg("dashboard upcoming appointments query failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateName, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load dashboard data",
		}, handler.BaseLayout)
	}

	return c.Render(TemplateName, fiber.Map{
		"Navigation": nav,
		"Counters":   counters,
		"Upcoming":   upcoming,
	}, handler.BaseLayout)
}
