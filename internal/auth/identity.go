package auth

import (
	"errors"

	"gorm.io/gorm"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/db/models"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/session"
)

// Identity resolves the current user from the session cookie. "Not logged in"
// is never an error: an absent, expired or dangling session, or a deactivated
// account, all resolve to nil. Errors are reserved for storage faults.
type Identity struct {
	db       *gorm.DB
	sessions *session.Manager
}

// NewIdentity creates an identity resolver.
func NewIdentity(db *gorm.DB, sessions *session.Manager) *Identity {
	return &Identity{db: db, sessions: sessions}
}

// Sessions exposes the underlying session manager.
func (i *Identity) Sessions() *session.Manager {
	return i.sessions
}

// CurrentUser resolves the request's session cookie to a fully-loaded user
// including their current role assignments, or nil for anonymous callers.
func (i *Identity) CurrentUser(c CookieReader) (*models.User, error) {
	rec, err := i.sessions.Validate(c.Cookies(i.sessions.CookieName()))
	if err != nil {
		return nil, err
	}

	if rec == nil {
		return nil, nil
	}

	var u models.User
	result := i.db.Preload("Roles").First(&u, rec.UserID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			// session outlived the account
			return nil, nil
		}
		return nil, result.Error
	}

	// deactivated users fail identity resolution even with a live session
	if !u.Active {
		return nil, nil
	}

	return &u, nil
}

// CookieReader is the slice of the request context the resolver needs.
type CookieReader interface {
	Cookies(key string, defaultValue ...string) string
}
