// Package handler defines the shared plumbing every web handler package
// receives at route registration time.
package handler

import (
	"gorm.io/gorm"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/auth"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/config"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/csrf"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/ratelimit"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/session"
)

// Context bundles the collaborators shared by all handlers: configuration,
// persistence and the composed security core.
type Context struct {
	Cfg      *config.Config
	DB       *gorm.DB
	Gate     *auth.Gate
	RBAC     *auth.Service
	Sessions *session.Manager
	CSRF     *csrf.Guard
	Limiter  *ratelimit.Limiter
}

// Valid reports whether all mandatory collaborators are present.
func (hc *Context) Valid() bool {
	return hc != nil && hc.Cfg != nil && hc.DB != nil && hc.Gate != nil &&
		hc.Sessions != nil && hc.CSRF != nil && hc.Limiter != nil
}
