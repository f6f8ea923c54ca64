package auth

import "errors"

var (
	// ErrAuthenticationRequired is returned when no valid session resolves to a user.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrAuthorizationDenied is returned when the authenticated user lacks the
	// specific resource:action permission.
	ErrAuthorizationDenied = errors.New("authorization denied")

	// ErrUserAccountDisabled is returned when attempting to authenticate a disabled user account.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrInvalidCredentials is returned when email and/or password are not valid.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidTOTPCode is returned when the submitted TOTP code does not verify.
	ErrInvalidTOTPCode = errors.New("invalid one-time code")
)
