// Package repository defines error types that are reused across the data
// access layer. These sentinel values allow higher layers such as the
// account service and the HTTP handlers to distinguish between failure
// scenarios without inspecting driver error strings. For example,
// ErrDuplicate signals a unique index violation (email, username or
// reset token) while ErrResetTokenInvalid covers both an unknown and an
// expired reset token, which callers must not be able to tell apart.
package repository

import "errors"

// ErrNotFound is returned when no row matches the requested account.
// Handlers translate this into an HTTP 404 response.
var ErrNotFound = errors.New("account not found")

// ErrDuplicate is returned when an insert or update violates one of the
// unique indexes (email, username, reset_token). Handlers translate this
// into an HTTP 409 response.
var ErrDuplicate = errors.New("duplicate value")

// ErrNoFields is returned when a profile update carries no mutable field.
// Handlers translate this into an HTTP 400 response.
var ErrNoFields = errors.New("no valid fields to update")

// ErrResetTokenInvalid is returned when a reset token is unknown, expired,
// or already consumed. A single error for all three cases keeps the
// responses indistinguishable to a caller probing for tokens.
var ErrResetTokenInvalid = errors.New("reset token invalid or expired")
