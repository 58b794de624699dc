package session

import (
	"errors"
	"net/http"

	"github.com/healthlens-dev/healthlens/internal/cli/client"
)

// ErrAuth is matched by every AuthError.
var ErrAuth = errors.New("authentication failed")

// AuthError is returned when the API rejects a credential exchange.
type AuthError struct {
	// Op is "login", "register" or "google-login".
	Op string
	// Message is the backend's reason, unchanged.
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is supports errors.Is(err, ErrAuth).
func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

// classify maps a failed credential exchange onto the session error taxonomy.
// Transport and schema errors pass through untouched.
func classify(op string, err error) error {
	var reqErr *client.RequestError
	if !errors.As(err, &reqErr) {
		return err
	}

	switch reqErr.StatusCode {
	case http.StatusUnprocessableEntity:
		return &client.ValidationError{Message: reqErr.Message}
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusConflict:
		return &AuthError{Op: op, Message: reqErr.Message, Err: err}
	default:
		return err
	}
}
