// Package auth implements the authorization core of the console: resolving
// the current user from their session, computing effective permission sets
// from role assignments, and gating every protected operation through a
// single composed check.
package auth
