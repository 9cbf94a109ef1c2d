package service

import "errors"

// ErrEmailTaken is returned by Register when an account already uses the
// requested email, whether detected by the pre-check or by the store's
// unique index losing a concurrent race. Handlers translate this into an
// HTTP 409 response.
var ErrEmailTaken = errors.New("email already registered")

// ErrInvalidCredentials is returned by Authenticate for both an unknown
// email and a wrong password. One error, one message: a caller must not be
// able to tell which of the two fields was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")
