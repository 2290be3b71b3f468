package response

import (
	"errors"
	"net/http"

	"github.com/clockwise-hr/attendance-backend-go/internal/domain/attendance"
	"github.com/clockwise-hr/attendance-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Client errors: reported, never retried.
	case errors.Is(err, attendance.ErrNoActiveSession):
		Conflict(w, "You have not checked in yet")
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrRecordConflict):
		Conflict(w, "Attendance record was modified concurrently, please retry")

	// Transient infrastructure errors: the single in-service retry already
	// happened.
	case errors.Is(err, attendance.ErrStoreUnavailable):
		ServiceUnavailable(w, "Attendance store is temporarily unavailable", nil)

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
