package config

import (
	"time"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/logger"
)

// Session settings.
type Session struct {
	// CookieName is the name of the session cookie.
	CookieName string
	// ExpiryTime is the lifetime of a session after issuance.
	ExpiryTime time.Duration
}

func (s *Session) applyDefaults() {
	if s.CookieName == "" {
		s.CookieName = "session"
	}

	if s.ExpiryTime == 0 {
		s.ExpiryTime = 7 * 24 * time.Hour
	}
}

// CSRF settings for the double-submit token cookie.
type CSRF struct {
	// CookieName is the name of the script-readable token cookie.
	CookieName string
	// TokenLifetime bounds how long an issued token stays valid.
	TokenLifetime time.Duration
}

func (c *CSRF) applyDefaults() {
	if c.CookieName == "" {
		c.CookieName = "csrf_token"
	}

	if c.TokenLifetime == 0 {
		c.TokenLifetime = 24 * time.Hour
	}
}

// RateLimitPolicy describes one throttling policy.
type RateLimitPolicy struct {
	// Limit is the request ceiling inside one window.
	Limit int
	// Window is the length of the counting window.
	Window time.Duration
}

// RateLimit groups the throttling policies of the webserver.
type RateLimit struct {
	// API is the general policy applied to most mutating actions.
	API RateLimitPolicy
	// Auth is the stricter policy for authentication-sensitive flows.
	Auth RateLimitPolicy
}

func (r *RateLimit) applyDefaults() {
	if r.API.Limit == 0 {
		r.API.Limit = 100
	}

	if r.API.Window == 0 {
		r.API.Window = time.Minute
	}

	if r.Auth.Limit == 0 {
		r.Auth.Limit = 5
	}

	if r.Auth.Window == 0 {
		r.Auth.Window = time.Minute
	}
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
}

// Webserver implement webserver settings.
type Webserver struct {
	CleanPath      bool      // use clean path middleware to allow multi slash requests
	DisableRecover bool      // disable recover middleware
	Domain         string    // domain name for the webserver
	Port           int       // listening port for the webserver
	ShutDownTime   int       // wait time for shutdown
	URL            string    // base url for the webserver
	Session        Session   // session settings
	CSRF           CSRF      // csrf token settings
	RateLimit      RateLimit // request throttling settings
}
