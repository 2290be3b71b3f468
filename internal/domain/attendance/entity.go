package attendance

import (
	"time"
)

// SessionState is the explicit lifecycle tag of an AttendanceDay. The state
// machine is open -> closed, re-entering open on every continuation
// check-in. It is stored, never inferred from nullable wall-time fields.
type SessionState string

const (
	StateOpen   SessionState = "open"
	StateClosed SessionState = "closed"
)

// DayStatus classifies a day's total worked duration.
type DayStatus string

const (
	StatusPresent DayStatus = "present"
	StatusHalfDay DayStatus = "half_day"
	StatusAbsent  DayStatus = "absent"
)

// AttendanceDay is the durable per-employee, per-local-date record. At most
// one row exists per (employee_id, local_date).
type AttendanceDay struct {
	ID                string
	BusinessID        string
	EmployeeID        string
	LocalDate         string
	CheckinWallTime   *string
	CheckoutWallTime  *string
	AggregatedSeconds int64
	DurationText      string
	Status            DayStatus
	State             SessionState
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Session is the in-memory representation of "employee is currently checked
// in". Owned exclusively by the session registry and never persisted
// directly; it is a cache over AttendanceDay plus a start-of-session marker.
type Session struct {
	EmployeeID     string
	LocalDate      string
	Timezone       string
	CheckinInstant time.Time
	BaseSeconds    int64
	RecordID       string
	BusinessID     string
}

// Thresholds hold the two duration cut-offs used to classify a day.
type Thresholds struct {
	Present time.Duration
	HalfDay time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Present: 9 * time.Hour,
		HalfDay: 4 * time.Hour,
	}
}

// Classify maps a day's total worked seconds to a status. Applied as the
// final status at check-out and as a provisional status while a session is
// still open.
func (t Thresholds) Classify(totalSeconds int64) DayStatus {
	total := time.Duration(totalSeconds) * time.Second
	switch {
	case total >= t.Present:
		return StatusPresent
	case total >= t.HalfDay:
		return StatusHalfDay
	default:
		return StatusAbsent
	}
}
