package auth

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials is what a client sees for either login failure, so the response does not
// reveal whether a student account exists for the email.
var ErrInvalidCredentials = errors.New("Invalid email or password")

var (
	ErrEmailPasswordRequired = errors.New("Email and password are required")
	ErrUnknownAccount        = fmt.Errorf("%w: no account for email", ErrInvalidCredentials)
	ErrWrongPassword         = fmt.Errorf("%w: password mismatch", ErrInvalidCredentials)
	ErrNotAuthenticated      = errors.New("Not authenticated")
)
