// Package logout terminates the caller's session.
package logout

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/login"
)

// Service is the logout handler service.
type Service struct {
	handler.Service
	hc *handler.Context
}

// Handler is the logout handler.
var Handler = Service{}

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, hc *handler.Context) {
	if app == nil || !hc.Valid() {
		log.Fatal().Msg(handler.ErrNilContextFatalLogMsg)
		return
	}

	s.hc = hc

	// logout route (no permission required, logging out is always allowed)
	app.Get(handler.RootPath+"logout", s.Logout)
	app.Post(handler.RootPath+"logout", s.Logout)
}

// Logout destroys the server-side session record and clears the cookie.
// Logging out an already-absent session succeeds the same way.
func (s *Service) Logout(c *fiber.Ctx) error {
	token := s.hc.Sessions.ReadToken(c)
	if err := s.hc.Sessions.Destroy(token); err != nil {
		log.Error().Err(err).Msg("failed to delete session")
	}

	s.hc.Sessions.ClearCookie(c)

	return c.Redirect(login.Path)
}
