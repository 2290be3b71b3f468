package attendance

import "errors"

// Attendance domain errors
var (
	// ErrNoActiveSession is a client error: check-out without an open
	// session. It is reported, never retried.
	ErrNoActiveSession = errors.New("you have not checked in yet")

	// ErrSessionAlreadyOpen marks the idempotent "already checked in" case.
	// Callers must treat it as success, not as a failure to surface.
	ErrSessionAlreadyOpen = errors.New("an attendance session is already open for this employee")

	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrRecordConflict     = errors.New("attendance record was modified concurrently")

	// ErrStoreUnavailable wraps record-store failures that survived the
	// single in-service retry.
	ErrStoreUnavailable = errors.New("attendance store is unavailable")
)
