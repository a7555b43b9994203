// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/tickethub/tickethub-web/internal/apiclient"
)

// ErrValidation marks a request the client must correct.
var ErrValidation = errors.New("validation failed")

// RespondError maps domain and API errors to HTTP responses using RFC7807.
// Client errors reported by the API keep their status and message; anything
// else is an opaque upstream failure.
func RespondError(w http.ResponseWriter, err error) {
	var apiErr *apiclient.Error
	switch {
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		Problem(w, apiErr.StatusCode, http.StatusText(apiErr.StatusCode), apiErr.Message)
	case errors.As(err, &apiErr):
		Problem(w, http.StatusBadGateway, "Upstream Error", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
