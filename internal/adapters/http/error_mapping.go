package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/bpx-import-service/internal/core/domain"
)

// mapErrorToHTTPStatus checks ErrTemporary before the stage kinds so a
// retryable upstream failure during download or record writes yields 503.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrDownload):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentParse):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrRecordCreate):
		return http.StatusBadGateway
	case errors.Is(err, http.ErrHandlerTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
