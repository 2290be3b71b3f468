package attendance

import (
	"context"
	"time"
)

// RecordUpdate carries the mutable fields of an AttendanceDay for
// UpdateByID. Nil pointers leave the column untouched; ClearCheckout
// explicitly nulls the checkout wall time when a session reopens.
type RecordUpdate struct {
	CheckinWallTime   *string
	CheckoutWallTime  *string
	ClearCheckout     bool
	AggregatedSeconds *int64
	DurationText      *string
	Status            *DayStatus
	State             *SessionState
}

// RecordStore is the external keyed store holding one AttendanceDay per
// (employee_id, local_date). Implementations offer no cross-row
// transactions; callers must tolerate partial failure and enforce a
// per-call timeout.
type RecordStore interface {
	// FetchOne returns the day record or ErrAttendanceNotFound.
	FetchOne(ctx context.Context, employeeID, localDate string) (AttendanceDay, error)

	// Create inserts a new day record and returns it with ids populated.
	// A concurrent insert for the same (employee_id, local_date) surfaces
	// as ErrRecordConflict.
	Create(ctx context.Context, day AttendanceDay) (AttendanceDay, error)

	// UpdateByID applies the given fields to an existing record.
	UpdateByID(ctx context.Context, recordID string, upd RecordUpdate) error

	// ListMonth returns all day records for the employee in the given
	// calendar month, ordered by local date.
	ListMonth(ctx context.Context, employeeID string, year int, month time.Month) ([]AttendanceDay, error)

	// ListStaleOpen returns records still marked open whose local date is
	// before the given date, e.g. check-ins abandoned before a restart.
	ListStaleOpen(ctx context.Context, beforeDate string) ([]AttendanceDay, error)
}

// Service defines the caller-facing attendance operations.
type Service interface {
	// CheckIn opens (or idempotently re-reports) today's session.
	CheckIn(ctx context.Context, req CheckInRequest) (CheckInResponse, error)

	// CheckOut closes the open session and persists the aggregated total.
	CheckOut(ctx context.Context, req CheckOutRequest) (CheckOutResponse, error)

	// GetStatus reports today's totals, live-adding elapsed time while a
	// session is open. Read-only.
	GetStatus(ctx context.Context, req StatusRequest) (StatusResponse, error)

	// GetMonthly lists a month of day records with a live overlay for the
	// current day if a session is still open.
	GetMonthly(ctx context.Context, req MonthlyRequest) (MonthlyResponse, error)

	// CloseStale force-closes sessions open longer than maxAge, capping
	// their elapsed time at maxAge. It covers both in-memory sessions and
	// day records left open on a prior date, e.g. abandoned before a
	// restart. Returns the number of sessions closed.
	CloseStale(ctx context.Context, maxAge time.Duration) (int, error)
}
