// Package ratelimit throttles repeated operations per client identifier.
//
// Two named policies exist: "api" for general mutating actions and "auth"
// with a stricter ceiling for authentication-sensitive flows. Counters are
// kept in an injected CounterStore so a durable backend can replace the
// default in-process store without touching the callers.
package ratelimit

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Policy describes one throttling policy.
type Policy struct {
	// Name keys the buckets of this policy; identifiers never share budget
	// across policies.
	Name string
	// Limit is the request ceiling inside one window.
	Limit int
	// Window is the length of the counting window.
	Window time.Duration
}

// LimitError is returned when a policy ceiling was exceeded. It carries a
// human-readable retry hint.
type LimitError struct {
	Policy     string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, please wait %s before retrying",
		e.RetryAfter.Round(time.Second))
}

// Limiter applies the configured policies against a counter store.
type Limiter struct {
	store CounterStore
	api   Policy
	auth  Policy
}

// NewLimiter creates a limiter over the given store and policies.
func NewLimiter(store CounterStore, api, auth Policy) *Limiter {
	if store == nil {
		panic("counter store is nil")
	}

	return &Limiter{store: store, api: api, auth: auth}
}

// Check increments the bucket for (identifier, policy) and returns a
// LimitError once the count exceeds the policy ceiling inside the active
// window. One identifier's counter never affects another identifier's budget.
func (l *Limiter) Check(identifier string, p Policy) error {
	count, reset, err := l.store.Increment(p.Name+":"+identifier, p.Window)
	if err != nil {
		return err
	}

	if count > p.Limit {
		return &LimitError{Policy: p.Name, RetryAfter: reset}
	}

	return nil
}

// API applies the general policy to the identifier.
func (l *Limiter) API(identifier string) error {
	return l.Check(identifier, l.api)
}

// Auth applies the stricter authentication policy to the identifier.
func (l *Limiter) Auth(identifier string) error {
	return l.Check(identifier, l.auth)
}

// ClientIdentifier derives a stable throttling key for the caller: the
// authenticated user id when present, the network origin otherwise.
func ClientIdentifier(c *fiber.Ctx, userID uint64) string {
	if userID != 0 {
		return "user:" + strconv.FormatUint(userID, 10)
	}

	return "ip:" + c.IP()
}

// APIMiddleware creates Fiber middleware applying the general policy keyed
// by network origin.
func APIMiddleware(l *Limiter) fiber.Handler {
	return middleware(l, func(l *Limiter, id string) error { return l.API(id) })
}

// AuthMiddleware creates Fiber middleware applying the stricter
// authentication policy keyed by network origin.
func AuthMiddleware(l *Limiter) fiber.Handler {
	return middleware(l, func(l *Limiter, id string) error { return l.Auth(id) })
}

func middleware(l *Limiter, check func(*Limiter, string) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := check(l, ClientIdentifier(c, 0)); err != nil {
			var le *LimitError
			if errors.As(err, &le) {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(le.RetryAfter.Seconds())+1))
				return c.Status(fiber.StatusTooManyRequests).SendString(le.Error())
			}

			return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
		}

		return c.Next()
	}
}
