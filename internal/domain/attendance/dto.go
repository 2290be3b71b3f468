package attendance

import (
	"strings"
	"time"

	"github.com/clockwise-hr/attendance-backend-go/internal/pkg/validator"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

type CheckInRequest struct {
	EmployeeID string  `json:"employee_id"`
	Timezone   string  `json:"timezone"`
	Location   *string `json:"location,omitempty"`
}

func (r *CheckInRequest) Validate() error {
	var errs validator.ValidationErrors

	r.EmployeeID = validator.CanonicalEmployeeID(r.EmployeeID)
	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	} else if !validator.IsValidEmployeeID(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id must be 3-50 characters of letters, digits or dashes",
		})
	}

	// An unknown timezone is not an error: day-boundary resolution falls
	// back to UTC silently.

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type CheckInResponse struct {
	AttendanceID      string `json:"attendance_id"`
	AlreadyCheckedIn  bool   `json:"already_checked_in"`
	TotalSecondsToday int64  `json:"total_seconds_today"`
}

type CheckOutRequest struct {
	EmployeeID string  `json:"employee_id"`
	Timezone   string  `json:"timezone"`
	Location   *string `json:"location,omitempty"`
}

func (r *CheckOutRequest) Validate() error {
	var errs validator.ValidationErrors

	r.EmployeeID = validator.CanonicalEmployeeID(r.EmployeeID)
	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	} else if !validator.IsValidEmployeeID(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id must be 3-50 characters of letters, digits or dashes",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type CheckOutResponse struct {
	TotalSecondsToday int64     `json:"total_seconds_today"`
	Status            DayStatus `json:"status"`
	DurationText      string    `json:"duration_text"`
}

type StatusRequest struct {
	EmployeeID string
	Timezone   string
}

func (r *StatusRequest) Validate() error {
	var errs validator.ValidationErrors

	r.EmployeeID = validator.CanonicalEmployeeID(r.EmployeeID)
	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type StatusResponse struct {
	HasRecord         bool      `json:"has_record"`
	IsActive          bool      `json:"is_active"`
	TotalSecondsToday int64     `json:"total_seconds_today"`
	Status            DayStatus `json:"status"`
}

type MonthlyRequest struct {
	EmployeeID string
	Year       int
	Month      time.Month
}

func (r *MonthlyRequest) Validate() error {
	var errs validator.ValidationErrors

	r.EmployeeID = validator.CanonicalEmployeeID(r.EmployeeID)
	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if r.Year < 2000 || r.Year > 2100 {
		errs = append(errs, validator.ValidationError{
			Field:   "year",
			Message: "year must be between 2000 and 2100",
		})
	}

	if r.Month < time.January || r.Month > time.December {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: "month must be between 1 and 12",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type MonthlyDay struct {
	Date         string    `json:"date"`
	Checkin      *string   `json:"checkin,omitempty"`
	Checkout     *string   `json:"checkout,omitempty"`
	TotalSeconds int64     `json:"total_seconds"`
	Status       DayStatus `json:"status"`
	DurationText string    `json:"duration_text"`
	IsActive     bool      `json:"is_active"`
}

type MonthlyResponse struct {
	EmployeeID string       `json:"employee_id"`
	Year       int          `json:"year"`
	Month      int          `json:"month"`
	Days       []MonthlyDay `json:"days"`
}

// MapDayToMonthly converts a stored day record to its response row.
func MapDayToMonthly(day AttendanceDay) MonthlyDay {
	text := day.DurationText
	if strings.TrimSpace(text) == "" {
		text = "0 hour(s) 0 minute(s)"
	}
	return MonthlyDay{
		Date:         day.LocalDate,
		Checkin:      day.CheckinWallTime,
		Checkout:     day.CheckoutWallTime,
		TotalSeconds: day.AggregatedSeconds,
		Status:       day.Status,
		DurationText: text,
		IsActive:     day.State == StateOpen,
	}
}
