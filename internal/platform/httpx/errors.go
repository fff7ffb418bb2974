// Package httpx provides HTTP response utilities.
package httpx

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

// RespondError maps classified domain errors to RFC7807 responses. Unclassified
// errors are logged and reported as 500 without detail.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch shared.KindOf(err) {
	case shared.ErrNotFound:
		Problem(w, http.StatusNotFound, "NOT_FOUND", "Not Found", shared.UserMessage(err))
	case shared.ErrForbidden:
		Problem(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", shared.UserMessage(err))
	case shared.ErrBadRequest:
		Problem(w, http.StatusBadRequest, "BAD_REQUEST", "Bad Request", shared.UserMessage(err))
	case shared.ErrConflict:
		Problem(w, http.StatusConflict, "CONFLICT", "Conflict", shared.UserMessage(err))
	default:
		if logger != nil {
			logger.Error("unhandled error", slog.Any("error", err))
		}
		Problem(w, http.StatusInternalServerError, "INTERNAL", "Internal Error", "")
	}
}
