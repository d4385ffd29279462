// Package common contains shared constants and sentinel errors used across
// Scorebook client components. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Transport-level errors.
	ErrUnavailable = errors.New("backend unavailable")
	ErrTimeout     = errors.New("request timed out")

	// Auth rejection errors.
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidOTP         = errors.New("invalid or expired one-time code")
	ErrTokenExpired       = errors.New("token expired")

	// Configuration / policy errors.
	ErrCloudNotConfigured = errors.New("cloud backend not configured")

	// Local storage errors.
	ErrStorageUnavailable = errors.New("local storage unavailable")
)
