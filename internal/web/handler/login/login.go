// Package login provides the sign-in form with email/password and an
// optional TOTP second factor.
package login

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog/log"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/db/controller/user"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/ratelimit"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler"
)

const (
	// Path is the path to the login page.
	Path = "/login"

	// TemplateName is the name of the login template.
	TemplateName = "login"
)

// Service is the login handler service.
type Service struct {
	handler.Service
	hc        *handler.Context
	validator *validator.Validate
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, hc *handler.Context) {
	if app == nil || !hc.Valid() {
		log.Fatal().Msg(handler.ErrNilContextFatalLogMsg)
		return
	}

	s.hc = hc
	s.validator = validator.New()

	// register routes
	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RootPath, s.Get)
		router.Post(handler.RootPath, s.Post)
	})
}

// Get handles the login page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue csrf token")

		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	return c.Render(TemplateName, fiber.Map{
		"Title":     s.hc.Cfg.Title,
		"CSRFToken": token,
	})
}

// Post handles the login form submission. Failed credentials, unknown
// accounts and inactive accounts all render the same generic error so the
// response does not reveal which part was wrong.
func (s *Service) Post(c *fiber.Ctx) error {
	// stricter throttling for the credential surface, keyed by origin
	if err := s.hc.Limiter.Auth(ratelimit.ClientIdentifier(c, 0)); err != nil {
		var le *ratelimit.LimitError
		if errors.As(err, &le) {
			return c.Status(fiber.StatusTooManyRequests).Render(TemplateName, fiber.Map{
				"Title": s.hc.Cfg.Title,
				"Error": le.Error(),
			})
		}

		log.Error().Err(err).Msg("rate limit check failed")

		return c.Status(fiber.StatusInternalServerError).SendString(handler.MsgInternalError)
	}

	if err := s.hc.CSRF.ValidateForm(c); err != nil {
		return s.renderError(c, fiber.StatusForbidden, handler.MsgCSRFRejected)
	}

	var in struct {
		Email    string `form:"email"     validate:"required,email,max=255"`
		Password string `form:"password"  validate:"required,max=255"`
		TOTPCode string `form:"totp_code" validate:"omitempty,len=6,numeric"`
	}

	if err := c.BodyParser(&in); err != nil {
		return s.renderError(c, fiber.StatusBadRequest, "Invalid form data")
	}

	if err := s.validator.Struct(in); err != nil {
		return s.renderError(c, fiber.StatusUnauthorized, "Invalid email or password")
	}

	dbUser, err := user.GetByEmail(s.hc.DB, in.Email)
	if err != nil {
		if !errors.Is(err, user.ErrUserNotFound) {
			log.Error().Err(err).Msg("login lookup failed")
		}

		return s.renderError(c, fiber.StatusUnauthorized, "Invalid email or password")
	}

	if !dbUser.Active || !dbUser.VerifyPassword(in.Password) {
		log.Warn().Str("email", in.Email).Str("ip", c.IP()).Msg("failed login attempt")

		return s.renderError(c, fiber.StatusUnauthorized, "Invalid email or password")
	}

	// second factor, only for enrolled accounts
	if dbUser.TOTPSecret != "" {
		if in.TOTPCode == "" || !totp.Validate(in.TOTPCode, dbUser.TOTPSecret) {
			log.Warn().Uint64("user_id", dbUser.ID).Str("ip", c.IP()).Msg("failed totp challenge")

			return s.renderError(c, fiber.StatusUnauthorized, "Invalid authentication code")
		}
	}

	token, err := s.hc.Sessions.Create(dbUser.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to create session")

		return s.renderError(c, fiber.StatusInternalServerError, handler.MsgInternalError)
	}

	s.hc.Sessions.SetCookie(c, token)

	log.Info().Uint64("user_id", dbUser.ID).Str("ip", c.IP()).Msg("user logged in")

	return c.Redirect("/dashboard")
}

func (s *Service) renderError(c *fiber.Ctx, status int, msg string) error {
	token, err := s.hc.CSRF.Token(c)
	if err != nil {
		token = ""
	}

	return c.Status(status).Render(TemplateName, fiber.Map{
		"Title":     s.hc.Cfg.Title,
		"Error":     msg,
		"CSRFToken": token,
	})
}
