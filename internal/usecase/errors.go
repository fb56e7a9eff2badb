package usecase

import "errors"

var (
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	// OAuth-only accounts fail password login with the same error so the
	// response does not reveal which credential class exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the account is deactivated.
	ErrInactiveAccount = errors.New("account is not active")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email is already registered")
	// ErrNicknameTaken indicates the nickname is already in use.
	ErrNicknameTaken = errors.New("nickname is already in use")
	// ErrInvalidRefreshToken indicates the refresh token does not exist, was rotated away, or failed validation.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrExpiredRefreshToken indicates the refresh token has expired.
	ErrExpiredRefreshToken = errors.New("refresh token expired")
	// ErrInvalidAccessToken indicates the access token is malformed or signature validation failed.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the access token has expired.
	ErrExpiredAccessToken = errors.New("access token expired")
	// ErrUserNotFound indicates no user exists for the supplied identifier.
	ErrUserNotFound = errors.New("user not found")
)
