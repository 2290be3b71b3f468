package activity

import "time"

// EventType marks which side of a session an audit event records.
type EventType string

const (
	EventCheckIn  EventType = "check_in"
	EventCheckOut EventType = "check_out"
)

// Event is one raw check-in/check-out observation. One audit row per
// (employee_id, local_date) aggregates the latest pair for that date.
type Event struct {
	EmployeeID string
	LocalDate  string
	Type       EventType
	Timestamp  time.Time
	Location   *string
}
