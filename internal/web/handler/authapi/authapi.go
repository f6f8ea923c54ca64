// Package authapi exposes the small JSON auth surface: the CSRF token
// endpoint for script clients and the identity echo endpoint.
package authapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler"
)

const (
	// Path is the base path of the auth API.
	Path = "/auth"
)

// Service is the auth API handler service.
type Service struct {
	handler.Service
	hc *handler.Context
}

// Handler is the auth API handler.
var Handler = Service{}

// Init initializes the auth API handler.
func (s *Service) Init(app *fiber.App, hc *handler.Context) {
	if app == nil || !hc.Valid() {
		log.Fatal().Msg(handler.ErrNilContextFatalLogMsg)
		return
	}

	s.hc = hc

	app.Get(Path+"/csrf", s.CSRFToken)
	app.Get(Path+"/me", s.Me)
}

// CSRFToken returns the caller's current CSRF token, issuing one when the
// cookie is absent. Script clients submit it alongside the cookie copy.
func (s *Service) CSRFToken(c *fiber.Ctx) error {
	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue csrf token")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": handler.MsgInternalError,
		})
	}

	return c.JSON(fiber.Map{"token": token})
}

// Me echoes the authenticated caller, or 401 for anonymous callers.
func (s *Service) Me(c *fiber.Ctx) error {
	user, err := s.hc.Gate.CurrentUser(c)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve current user")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": handler.MsgInternalError,
		})
	}

	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"authenticated": false,
		})
	}

	roles := make([]string, 0, len(user.Roles))
	for i := range user.Roles {
		roles = append(roles, user.Roles[i].Name)
	}

	return c.JSON(fiber.Map{
		"authenticated": true,
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"is_admin":      user.IsAdmin,
		"roles":         roles,
	})
}
