package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clockwise-hr/attendance-backend-go/internal/domain/attendance"
	"github.com/clockwise-hr/attendance-backend-go/internal/pkg/clock"
	"github.com/clockwise-hr/attendance-backend-go/internal/pkg/timeutil"
)

// RecoveryCoordinator rebuilds an in-memory session from a durable day
// record that is still marked open, e.g. after a process restart. Every
// operation that needs a session and misses the registry goes through
// Recover, so recovery behaves identically at all call sites.
type RecoveryCoordinator struct {
	store    attendance.RecordStore
	registry *SessionRegistry
	clock    clock.Clock
}

func NewRecoveryCoordinator(store attendance.RecordStore, registry *SessionRegistry, clk clock.Clock) *RecoveryCoordinator {
	return &RecoveryCoordinator{
		store:    store,
		registry: registry,
		clock:    clk,
	}
}

// Recover fetches today's day record and, when it is open, reconstructs and
// registers the session. The caller must hold the employee's operation
// guard. Returns found=false when there is nothing to recover.
func (rc *RecoveryCoordinator) Recover(ctx context.Context, employeeID, localDate, tzName string) (attendance.Session, bool, error) {
	day, err := rc.fetchDay(ctx, employeeID, localDate)
	if err != nil {
		if errors.Is(err, attendance.ErrAttendanceNotFound) {
			return attendance.Session{}, false, nil
		}
		return attendance.Session{}, false, fmt.Errorf("failed to fetch day record for recovery: %w", err)
	}

	if day.State != attendance.StateOpen {
		return attendance.Session{}, false, nil
	}

	sess := attendance.Session{
		EmployeeID:     employeeID,
		LocalDate:      localDate,
		Timezone:       tzName,
		CheckinInstant: rc.reconstructCheckin(day, tzName),
		BaseSeconds:    day.AggregatedSeconds,
		RecordID:       day.ID,
		BusinessID:     day.BusinessID,
	}

	if err := rc.registry.Open(sess); err != nil {
		// Another operation on this employee recovered first.
		if existing, ok := rc.registry.Lookup(employeeID); ok {
			return existing, true, nil
		}
		return attendance.Session{}, false, fmt.Errorf("failed to register recovered session: %w", err)
	}

	slog.Info("recovered open attendance session",
		"employee_id", employeeID,
		"local_date", localDate,
		"base_seconds", sess.BaseSeconds)

	return sess, true, nil
}

// fetchDay reads today's record with the same single-retry policy the
// service applies to every store call.
func (rc *RecoveryCoordinator) fetchDay(ctx context.Context, employeeID, localDate string) (attendance.AttendanceDay, error) {
	day, err := rc.store.FetchOne(ctx, employeeID, localDate)
	if err == nil || !isTransient(err) {
		return day, err
	}
	slog.Warn("retrying day record fetch for recovery", "employee_id", employeeID, "error", err)
	day, err = rc.store.FetchOne(ctx, employeeID, localDate)
	if err != nil && isTransient(err) {
		return attendance.AttendanceDay{}, fmt.Errorf("%w: %v", attendance.ErrStoreUnavailable, err)
	}
	return day, err
}

// reconstructCheckin combines the stored local date and wall time back into
// a UTC instant. Ambiguity (missing or unparseable wall time) falls back to
// "now": elapsed time for the in-flight stretch restarts at zero, but the
// already-aggregated base is intact and the operation never fails.
func (rc *RecoveryCoordinator) reconstructCheckin(day attendance.AttendanceDay, tzName string) time.Time {
	now := rc.clock.Now().UTC()

	if day.CheckinWallTime == nil {
		slog.Warn("open day record has no check-in wall time, recovering with current instant",
			"employee_id", day.EmployeeID, "local_date", day.LocalDate)
		return now
	}

	instant, err := timeutil.CombineDateAndWall(day.LocalDate, *day.CheckinWallTime, tzName)
	if err != nil {
		slog.Warn("could not reconstruct check-in instant, recovering with current instant",
			"employee_id", day.EmployeeID, "local_date", day.LocalDate, "error", err)
		return now
	}

	// A reconstructed instant in the future would produce a negative
	// elapsed; the aggregator clamps that, so keep it as-is.
	return instant
}
