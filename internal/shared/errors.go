package shared

import (
	"errors"
	"net/http"

	"github.com/tickethub/tickethub-web/internal/apiclient"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionMissing occurs when a handler runs without the session middleware.
	ErrSessionMissing = errors.New("session missing")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

const genericMessage = "Ocurrió un error inesperado. Inténtalo de nuevo."

// UserSafeMessage turns err into text suitable for a flash banner. API
// validation messages are shown as-is; anything else is replaced by a
// generic message.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *apiclient.Error
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "Correo o contraseña incorrectos"
	case errors.As(err, &apiErr):
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized:
			return "Tu sesión expiró. Vuelve a iniciar sesión."
		case apiErr.StatusCode == http.StatusForbidden:
			return "No tienes permisos para realizar esta acción."
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.Message != "":
			return apiErr.Message
		}
	}
	return genericMessage
}
