package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/clockwise-hr/attendance-backend-go/internal/domain/attendance"
	"github.com/clockwise-hr/attendance-backend-go/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

type AttendanceHandler interface {
	CheckIn(w http.ResponseWriter, r *http.Request)
	CheckOut(w http.ResponseWriter, r *http.Request)
	GetStatus(w http.ResponseWriter, r *http.Request)
	GetMonthly(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.Service
}

func NewAttendanceHandler(attendanceService attendance.Service) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

// employeeIDFromClaims reads the authenticated employee identity. The auth
// middleware already verified presence, so a miss here is a server bug.
func employeeIDFromClaims(r *http.Request) (string, bool) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return "", false
	}
	employeeID, ok := claims["employee_id"].(string)
	return employeeID, ok && employeeID != ""
}

// CheckIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckIn(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDFromClaims(r)
	if !ok {
		response.Unauthorized(w, "Token carries no employee identity")
		return
	}

	var req attendance.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode check-in request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EmployeeID = employeeID

	result, err := h.attendanceService.CheckIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if result.AlreadyCheckedIn {
		response.SuccessWithMessage(w, "Already checked in", result)
		return
	}
	response.Created(w, "Check-in successful", result)
}

// CheckOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckOut(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDFromClaims(r)
	if !ok {
		response.Unauthorized(w, "Token carries no employee identity")
		return
	}

	var req attendance.CheckOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode check-out request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EmployeeID = employeeID

	result, err := h.attendanceService.CheckOut(r.Context(), req)
	if err != nil {
		// A failed persist still computed the employee's duration; include
		// it so the caller is never left in an unknown state.
		if errors.Is(err, attendance.ErrStoreUnavailable) && result.DurationText != "" {
			response.ServiceUnavailable(w, "Attendance store is temporarily unavailable", map[string]string{
				"total_seconds_today": strconv.FormatInt(result.TotalSecondsToday, 10),
				"duration_text":       result.DurationText,
			})
			return
		}
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetStatus implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetStatus(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDFromClaims(r)
	if !ok {
		response.Unauthorized(w, "Token carries no employee identity")
		return
	}

	req := attendance.StatusRequest{
		EmployeeID: employeeID,
		Timezone:   r.URL.Query().Get("timezone"),
	}

	result, err := h.attendanceService.GetStatus(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetMonthly implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetMonthly(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDFromClaims(r)
	if !ok {
		response.Unauthorized(w, "Token carries no employee identity")
		return
	}

	now := time.Now().UTC()
	year := now.Year()
	month := now.Month()

	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			response.BadRequest(w, "Invalid year", nil)
			return
		}
		year = parsed
	}
	if m := r.URL.Query().Get("month"); m != "" {
		parsed, err := strconv.Atoi(m)
		if err != nil {
			response.BadRequest(w, "Invalid month", nil)
			return
		}
		month = time.Month(parsed)
	}

	req := attendance.MonthlyRequest{
		EmployeeID: employeeID,
		Year:       year,
		Month:      month,
	}

	result, err := h.attendanceService.GetMonthly(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
