package web

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/auth"
)

// CurrentUserLocal is the fiber.Locals key templates read the signed-in user from.
const CurrentUserLocal = "CurrentUser"

// SessionMiddleware resolves the caller once per request and exposes the
// result to templates. It never denies: route-level permission checks do
// that. Signed-in users landing on the login page are sent to the dashboard.
func SessionMiddleware(gate *auth.Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		originalURL := strings.ToLower(c.OriginalURL())
		if strings.HasPrefix(originalURL, "/static") {
			return c.Next()
		}

		user, err := gate.CurrentUser(c)
		if err != nil {
			// identity resolution faults fall through to the route check
			log.Error().Err(err).Msg("failed to resolve session user")
			return c.Next()
		}

		if user != nil {
			c.Locals(CurrentUserLocal, user)

			if IsLoginPage(c) {
				return c.Redirect("/dashboard")
			}
		}

		return c.Next()
	}
}

// IsLoginPage checks if the current request is for the login page.
func IsLoginPage(c *fiber.Ctx) bool {
	originalURL := strings.ToLower(c.OriginalURL())
	return strings.HasPrefix(originalURL, auth.SignInPath)
}
