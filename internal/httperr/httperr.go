// Package httperr turns domain rejections into HTTP responses.
package httperr

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/uvgride/grouprides/internal/domain"
	"github.com/uvgride/grouprides/pkg/response"
)

// RetryAfter is advertised to clients that hit lock contention.
var RetryAfter = time.Second

// Status returns the HTTP status for err.
func Status(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindContention:
		return http.StatusServiceUnavailable
	case domain.KindConflict:
		switch {
		case errors.Is(err, domain.ErrAlreadyMember), errors.Is(err, domain.ErrTripAlreadyGrouped):
			return http.StatusConflict
		case errors.Is(err, domain.ErrNotAMember):
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Write sends the response for err. Internal failures are logged and
// reported without detail.
func Write(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := Status(err)
	switch status {
	case http.StatusInternalServerError:
		logger.Error("Request failed", zap.Error(err))
		response.InternalError(w, "An unexpected error occurred")
	case http.StatusServiceUnavailable:
		response.Unavailable(w, domain.ReasonOf(err), domain.ErrBusy.Message, RetryAfter)
	default:
		var de *domain.Error
		errors.As(err, &de)
		response.Error(w, status, de.Reason, de.Message)
	}
}
