package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/db/models"
)

// Decision is the explicit outcome of the authorization gate. It is returned,
// not thrown, so each caller decides how to surface a denial (redirect,
// status code, UI message).
type Decision int

const (
	// Allowed means the caller may proceed.
	Allowed Decision = iota
	// DeniedAuthentication means no valid session resolved to a user.
	DeniedAuthentication
	// DeniedAuthorization means the user lacks the specific permission.
	DeniedAuthorization
)

// String implements fmt.Stringer.
func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case DeniedAuthentication:
		return "denied-authentication"
	case DeniedAuthorization:
		return "denied-authorization"
	default:
		return "unknown"
	}
}

const (
	localsUserKey    = "auth_current_user"
	localsPermSetKey = "auth_permission_set"
)

type resolvedUser struct {
	user *models.User
}

// Gate is the single composition point every protected entry point calls:
// it resolves the identity, resolves the effective permission set, and
// accepts or denies. Identity and permission set are resolved at most once
// per request and reused by all checks within it.
type Gate struct {
	identity *Identity
	rbac     *Service
}

// NewGate composes the identity resolver with the RBAC engine.
func NewGate(identity *Identity, rbac *Service) *Gate {
	return &Gate{identity: identity, rbac: rbac}
}

// CurrentUser resolves (and per-request caches) the calling user, or nil for
// anonymous callers.
func (g *Gate) CurrentUser(c *fiber.Ctx) (*models.User, error) {
	if cached, ok := c.Locals(localsUserKey).(*resolvedUser); ok {
		return cached.user, nil
	}

	user, err := g.identity.CurrentUser(c)
	if err != nil {
		return nil, err
	}

	c.Locals(localsUserKey, &resolvedUser{user: user})

	return user, nil
}

// Permissions returns the per-request cached effective permission set of the
// given user, computing it on first use.
func (g *Gate) Permissions(c *fiber.Ctx, user *models.User) (PermissionSet, error) {
	if cached, ok := c.Locals(localsPermSetKey).(*PermissionSet); ok {
		return *cached, nil
	}

	set, err := g.rbac.EffectivePermissions(user)
	if err != nil {
		return PermissionSet{}, err
	}

	c.Locals(localsPermSetKey, &set)

	return set, nil
}

// Check runs the composed authorization check for one permission. Every
// denial is audit-logged with the actor (when resolvable), the attempted
// resource and action; the log write never influences the outcome.
func (g *Gate) Check(c *fiber.Ctx, p Perm) (Decision, *models.User, error) {
	user, err := g.CurrentUser(c)
	if err != nil {
		return DeniedAuthentication, nil, err
	}

	if user == nil {
		log.Warn().
			Str("resource", p.Resource).
			Str("action", p.Action).
			Str("ip", c.IP()).
			Msg("denied: authentication required")

		return DeniedAuthentication, nil, nil
	}

	set, err := g.Permissions(c, user)
	if err != nil {
		return DeniedAuthorization, user, err
	}

	if !set.Has(p) {
		log.Warn().
			Uint64("user_id", user.ID).
			Str("resource", p.Resource).
			Str("action", p.Action).
			Msg("denied: user lacks required permission")

		return DeniedAuthorization, user, nil
	}

	return Allowed, user, nil
}

// InvalidatePermissions drops the per-request permission cache, used after a
// mutation that changes the caller's own grants within the same request.
func (g *Gate) InvalidatePermissions(c *fiber.Ctx) {
	c.Locals(localsPermSetKey, nil)
}
