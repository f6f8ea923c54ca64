package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const (
	// SignInPath is where denied-for-authentication requests are routed.
	SignInPath = "/login"
	// AccessDeniedPath is the dedicated access-denied surface for
	// authenticated users lacking a permission.
	AccessDeniedPath = "/denied"
)

// RequirePermission creates Fiber middleware that requires a specific
// permission. Denials are surfaced per the gate's decision: anonymous
// callers are routed to sign-in, authenticated callers without the
// permission to the access-denied view. Internal faults become a uniform
// 500 with no detail leaked.
func RequirePermission(gate *Gate, p Perm) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision, _, err := gate.Check(c, p)
		if err != nil {
			log.Error().Err(err).Str("resource", p.Resource).Str("action", p.Action).
				Msg("authorization check failed")

			return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
		}

		switch decision {
		case Allowed:
			return c.Next()
		case DeniedAuthentication:
			return c.Redirect(SignInPath)
		case DeniedAuthorization:
			return c.Redirect(AccessDeniedPath)
		default:
			return c.Redirect(AccessDeniedPath)
		}
	}
}

// RequireAnyPermission creates Fiber middleware that requires at least one of
// the given permissions.
func RequireAnyPermission(gate *Gate, perms ...Perm) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := gate.CurrentUser(c)
		if err != nil {
			log.Error().Err(err).Msg("authorization check failed")

			return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
		}

		if user == nil {
			return c.Redirect(SignInPath)
		}

		set, err := gate.Permissions(c, user)
		if err != nil {
			log.Error().Err(err).Uint64("user_id", user.ID).Msg("authorization check failed")

			return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
		}

		for _, p := range perms {
			if set.Has(p) {
				return c.Next()
			}
		}

		log.Warn().Uint64("user_id", user.ID).Msg("denied: user lacks any required permission")

		return c.Redirect(AccessDeniedPath)
	}
}
