package httpadapter

import (
	"net/http"

	"github.com/mzhuravlev/ai-tutor-backend/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrModelsExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// clientErrorMessage keeps provider internals out of responses. Client
// level errors pass through as-is.
func clientErrorMessage(err error, status int) string {
	if status >= http.StatusInternalServerError {
		if status == http.StatusServiceUnavailable {
			return "all answer models are currently unavailable"
		}
		return "internal error"
	}
	return err.Error()
}
