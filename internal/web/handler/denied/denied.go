// Package denied renders the access-denied page shown to authenticated
// users lacking a required permission.
package denied

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/navigation"
)

const (
	// Path is the path to the access-denied page.
	Path = "/denied"

	// TemplateName is the name of the denied template.
	TemplateName = "denied"
)

// Service is the denied handler service.
type Service struct {
	handler.Service
	hc *handler.Context
}

// Handler is the denied handler.
var Handler = Service{}

// Init initializes the denied handler.
func (s *Service) Init(app *fiber.App, hc *handler.Context) {
	if app == nil || !hc.Valid() {
		log.Fatal().Msg(handler.ErrNilContextFatalLogMsg)
		return
	}

	s.hc = hc

	app.Get(Path, s.Get)
}

// Get renders the access-denied page.
func (s *Service) Get(c *fiber.Ctx) error {
	nav := navigation.NewContext("Access Denied", "", "").
		AddBreadcrumb("Home", "/dashboard", false).
		AddBreadcrumb("Access Denied", Path, true)

	return c.Status(fiber.StatusForbidden).Render(TemplateName, fiber.Map{
		"Navigation": nav,
		"Title":      s.hc.Cfg.Title,
	}, handler.BaseLayout)
}
