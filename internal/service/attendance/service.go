package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clockwise-hr/attendance-backend-go/internal/domain/activity"
	"github.com/clockwise-hr/attendance-backend-go/internal/domain/attendance"
	"github.com/clockwise-hr/attendance-backend-go/internal/pkg/clock"
	"github.com/clockwise-hr/attendance-backend-go/internal/pkg/timeutil"
	"github.com/google/uuid"
)

type AttendanceServiceImpl struct {
	store      attendance.RecordStore
	mirror     activity.Mirror
	registry   *SessionRegistry
	recovery   *RecoveryCoordinator
	clock      clock.Clock
	thresholds attendance.Thresholds
}

func NewAttendanceService(
	store attendance.RecordStore,
	mirror activity.Mirror,
	registry *SessionRegistry,
	clk clock.Clock,
	thresholds attendance.Thresholds,
) attendance.Service {
	return &AttendanceServiceImpl{
		store:      store,
		mirror:     mirror,
		registry:   registry,
		recovery:   NewRecoveryCoordinator(store, registry, clk),
		clock:      clk,
		thresholds: thresholds,
	}
}

// CheckIn implements attendance.Service.
//
// Duplicate check-ins are idempotent successes: the open session is
// reported back unchanged, no second session and no second day row.
func (s *AttendanceServiceImpl) CheckIn(ctx context.Context, req attendance.CheckInRequest) (attendance.CheckInResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.CheckInResponse{}, err
	}
	now := s.clock.Now().UTC()
	localDate := timeutil.LocalDate(now, req.Timezone)

	unlock := s.registry.LockKey(req.EmployeeID)
	defer unlock()

	sess, found, err := s.findSession(ctx, req.EmployeeID, localDate, req.Timezone)
	if err != nil {
		return attendance.CheckInResponse{}, err
	}
	if found {
		return attendance.CheckInResponse{
			AttendanceID:      sess.BusinessID,
			AlreadyCheckedIn:  true,
			TotalSecondsToday: timeutil.AggregateSeconds(sess.BaseSeconds, sess.CheckinInstant, now),
		}, nil
	}

	wall := timeutil.LocalWallTime(now, req.Timezone)
	day, err := s.openDayRecord(ctx, req.EmployeeID, localDate, wall)
	if err != nil {
		return attendance.CheckInResponse{}, err
	}

	sess = attendance.Session{
		EmployeeID:     req.EmployeeID,
		LocalDate:      localDate,
		Timezone:       req.Timezone,
		CheckinInstant: now,
		BaseSeconds:    day.AggregatedSeconds,
		RecordID:       day.ID,
		BusinessID:     day.BusinessID,
	}
	if err := s.registry.Open(sess); err != nil {
		// The operation guard makes this unreachable in practice; answer
		// idempotently if it ever races.
		if existing, ok := s.registry.Lookup(req.EmployeeID); ok {
			return attendance.CheckInResponse{
				AttendanceID:      existing.BusinessID,
				AlreadyCheckedIn:  true,
				TotalSecondsToday: timeutil.AggregateSeconds(existing.BaseSeconds, existing.CheckinInstant, now),
			}, nil
		}
		return attendance.CheckInResponse{}, fmt.Errorf("failed to open session: %w", err)
	}

	s.mirrorEvent(ctx, req.EmployeeID, localDate, activity.EventCheckIn, now, req.Location)

	return attendance.CheckInResponse{
		AttendanceID:      day.BusinessID,
		AlreadyCheckedIn:  false,
		TotalSecondsToday: day.AggregatedSeconds,
	}, nil
}

// openDayRecord creates today's row on the first check-in, or reopens the
// existing row for a continuation session (base seconds carried forward,
// checkout cleared).
func (s *AttendanceServiceImpl) openDayRecord(ctx context.Context, employeeID, localDate, wall string) (attendance.AttendanceDay, error) {
	day, err := s.fetchOne(ctx, employeeID, localDate)
	if err == nil {
		stateOpen := attendance.StateOpen
		upd := attendance.RecordUpdate{
			CheckinWallTime: &wall,
			ClearCheckout:   true,
			State:           &stateOpen,
		}
		if err := s.updateByID(ctx, day.ID, upd); err != nil {
			return attendance.AttendanceDay{}, err
		}
		day.CheckinWallTime = &wall
		day.CheckoutWallTime = nil
		day.State = attendance.StateOpen
		return day, nil
	}
	if !errors.Is(err, attendance.ErrAttendanceNotFound) {
		return attendance.AttendanceDay{}, err
	}

	created, err := s.create(ctx, attendance.AttendanceDay{
		BusinessID:      uuid.NewString(),
		EmployeeID:      employeeID,
		LocalDate:       localDate,
		CheckinWallTime: &wall,
		Status:          attendance.StatusAbsent,
		State:           attendance.StateOpen,
	})
	if err == nil {
		return created, nil
	}
	if errors.Is(err, attendance.ErrRecordConflict) {
		// Lost a create race (e.g. another instance); reuse the winner.
		day, ferr := s.fetchOne(ctx, employeeID, localDate)
		if ferr != nil {
			return attendance.AttendanceDay{}, ferr
		}
		return day, nil
	}
	return attendance.AttendanceDay{}, err
}

// CheckOut implements attendance.Service.
func (s *AttendanceServiceImpl) CheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.CheckOutResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.CheckOutResponse{}, err
	}
	now := s.clock.Now().UTC()
	localDate := timeutil.LocalDate(now, req.Timezone)

	unlock := s.registry.LockKey(req.EmployeeID)
	defer unlock()

	_, found, err := s.findSession(ctx, req.EmployeeID, localDate, req.Timezone)
	if err != nil {
		return attendance.CheckOutResponse{}, err
	}
	if !found {
		return attendance.CheckOutResponse{}, attendance.ErrNoActiveSession
	}

	sess, ok := s.registry.Close(req.EmployeeID)
	if !ok {
		return attendance.CheckOutResponse{}, attendance.ErrNoActiveSession
	}

	resp, err := s.closeSession(ctx, sess, now, req.Timezone, req.Location)
	if err != nil {
		// The session stays closed in memory and the computed totals ride
		// along with the error; persistence failed, the employee's time
		// did not vanish.
		return resp, err
	}
	return resp, nil
}

// closeSession aggregates, classifies and persists one session ending at
// the given instant, then mirrors the check-out event.
func (s *AttendanceServiceImpl) closeSession(ctx context.Context, sess attendance.Session, end time.Time, tzName string, location *string) (attendance.CheckOutResponse, error) {
	total := timeutil.AggregateSeconds(sess.BaseSeconds, sess.CheckinInstant, end)
	status := s.thresholds.Classify(total)
	text := timeutil.FormatDuration(total)
	wall := timeutil.LocalWallTime(end, tzName)

	resp := attendance.CheckOutResponse{
		TotalSecondsToday: total,
		Status:            status,
		DurationText:      text,
	}

	stateClosed := attendance.StateClosed
	upd := attendance.RecordUpdate{
		CheckoutWallTime:  &wall,
		AggregatedSeconds: &total,
		DurationText:      &text,
		Status:            &status,
		State:             &stateClosed,
	}
	if err := s.updateByID(ctx, sess.RecordID, upd); err != nil {
		slog.Error("failed to persist check-out, returning computed duration anyway",
			"employee_id", sess.EmployeeID,
			"local_date", sess.LocalDate,
			"total_seconds", total,
			"error", err)
		return resp, err
	}

	s.mirrorEvent(ctx, sess.EmployeeID, sess.LocalDate, activity.EventCheckOut, end, location)

	return resp, nil
}

// GetStatus implements attendance.Service.
func (s *AttendanceServiceImpl) GetStatus(ctx context.Context, req attendance.StatusRequest) (attendance.StatusResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.StatusResponse{}, err
	}
	now := s.clock.Now().UTC()
	localDate := timeutil.LocalDate(now, req.Timezone)

	unlock := s.registry.LockKey(req.EmployeeID)
	defer unlock()

	sess, found, err := s.findSession(ctx, req.EmployeeID, localDate, req.Timezone)
	if err != nil {
		return attendance.StatusResponse{}, err
	}
	if found {
		total := timeutil.AggregateSeconds(sess.BaseSeconds, sess.CheckinInstant, now)
		return attendance.StatusResponse{
			HasRecord:         true,
			IsActive:          true,
			TotalSecondsToday: total,
			Status:            s.thresholds.Classify(total),
		}, nil
	}

	day, err := s.fetchOne(ctx, req.EmployeeID, localDate)
	if err != nil {
		if errors.Is(err, attendance.ErrAttendanceNotFound) {
			return attendance.StatusResponse{
				HasRecord: false,
				Status:    attendance.StatusAbsent,
			}, nil
		}
		return attendance.StatusResponse{}, err
	}

	return attendance.StatusResponse{
		HasRecord:         true,
		IsActive:          false,
		TotalSecondsToday: day.AggregatedSeconds,
		Status:            day.Status,
	}, nil
}

// GetMonthly implements attendance.Service.
func (s *AttendanceServiceImpl) GetMonthly(ctx context.Context, req attendance.MonthlyRequest) (attendance.MonthlyResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.MonthlyResponse{}, err
	}
	now := s.clock.Now().UTC()

	days, err := s.listMonth(ctx, req.EmployeeID, req.Year, req.Month)
	if err != nil {
		return attendance.MonthlyResponse{}, err
	}

	rows := make([]attendance.MonthlyDay, 0, len(days))
	for _, day := range days {
		rows = append(rows, attendance.MapDayToMonthly(day))
	}

	// Live overlay: a same-day query reflects in-progress work without
	// persisting anything.
	if sess, ok := s.registry.Lookup(req.EmployeeID); ok {
		for i := range rows {
			if rows[i].Date != sess.LocalDate {
				continue
			}
			total := timeutil.AggregateSeconds(sess.BaseSeconds, sess.CheckinInstant, now)
			rows[i].TotalSeconds = total
			rows[i].Status = s.thresholds.Classify(total)
			rows[i].DurationText = timeutil.FormatDuration(total)
			rows[i].IsActive = true
			break
		}
	}

	return attendance.MonthlyResponse{
		EmployeeID: req.EmployeeID,
		Year:       req.Year,
		Month:      int(req.Month),
		Days:       rows,
	}, nil
}

// CloseStale implements attendance.Service. Sessions open longer than
// maxAge are closed with their elapsed time capped at maxAge, through the
// same aggregate/classify/persist path as a regular check-out. The sweep
// runs in two passes: the in-memory registry, then day records left open on
// a prior local date, which recovery never sees because it only inspects
// today's row.
func (s *AttendanceServiceImpl) CloseStale(ctx context.Context, maxAge time.Duration) (int, error) {
	now := s.clock.Now().UTC()
	closed := 0
	var firstErr error

	for _, candidate := range s.registry.Snapshot() {
		if now.Sub(candidate.CheckinInstant) < maxAge {
			continue
		}

		unlock := s.registry.LockKey(candidate.EmployeeID)
		sess, ok := s.registry.Lookup(candidate.EmployeeID)
		if !ok || !sess.CheckinInstant.Equal(candidate.CheckinInstant) {
			// Closed (or reopened) between snapshot and lock.
			unlock()
			continue
		}
		sess, _ = s.registry.Close(candidate.EmployeeID)

		end := sess.CheckinInstant.Add(maxAge)
		if _, err := s.closeSession(ctx, sess, end, sess.Timezone, nil); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			slog.Error("failed to close stale session",
				"employee_id", sess.EmployeeID,
				"local_date", sess.LocalDate,
				"error", err)
		} else {
			closed++
			slog.Info("closed stale attendance session",
				"employee_id", sess.EmployeeID,
				"local_date", sess.LocalDate,
				"open_since", sess.CheckinInstant)
		}
		unlock()
	}

	stale, err := s.listStaleOpen(ctx, timeutil.LocalDate(now, ""))
	if err != nil {
		if firstErr == nil {
			firstErr = err
		}
		slog.Error("failed to list stale open day records", "error", err)
		return closed, firstErr
	}
	for _, day := range stale {
		unlock := s.registry.LockKey(day.EmployeeID)
		if n, err := s.closeStaleRecord(ctx, day, now, maxAge); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			slog.Error("failed to close stale day record",
				"employee_id", day.EmployeeID,
				"local_date", day.LocalDate,
				"error", err)
		} else {
			closed += n
		}
		unlock()
	}

	return closed, firstErr
}

// closeStaleRecord force-closes one prior-date day record that is still
// marked open in the store. The caller holds the employee's operation
// guard; the record is refetched under it so a concurrent close is not
// repeated.
func (s *AttendanceServiceImpl) closeStaleRecord(ctx context.Context, day attendance.AttendanceDay, now time.Time, maxAge time.Duration) (int, error) {
	if sess, ok := s.registry.Lookup(day.EmployeeID); ok && sess.LocalDate == day.LocalDate {
		// Still tracked in memory; the registry pass owns it.
		return 0, nil
	}

	fresh, err := s.fetchOne(ctx, day.EmployeeID, day.LocalDate)
	if err != nil {
		if errors.Is(err, attendance.ErrAttendanceNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if fresh.State != attendance.StateOpen {
		return 0, nil
	}

	// The original timezone is not stored; the wall time reads as UTC,
	// which errs toward sweeping sooner rather than later.
	checkin := s.recovery.reconstructCheckin(fresh, "")
	end := checkin.Add(maxAge)
	if fresh.CheckinWallTime == nil {
		// No wall time to extend from; close with the aggregated base only.
		end = checkin
	} else if now.Sub(checkin) < maxAge {
		return 0, nil
	}

	sess := attendance.Session{
		EmployeeID:     fresh.EmployeeID,
		LocalDate:      fresh.LocalDate,
		CheckinInstant: checkin,
		BaseSeconds:    fresh.AggregatedSeconds,
		RecordID:       fresh.ID,
		BusinessID:     fresh.BusinessID,
	}
	if _, err := s.closeSession(ctx, sess, end, "", nil); err != nil {
		return 0, err
	}

	slog.Info("closed stale attendance day record",
		"employee_id", fresh.EmployeeID,
		"local_date", fresh.LocalDate)
	return 1, nil
}

// findSession looks the employee up in the registry and falls back to
// durable-state recovery on a miss. Callers hold the operation guard.
func (s *AttendanceServiceImpl) findSession(ctx context.Context, employeeID, localDate, tzName string) (attendance.Session, bool, error) {
	if sess, ok := s.registry.Lookup(employeeID); ok {
		return sess, true, nil
	}
	return s.recovery.Recover(ctx, employeeID, localDate, tzName)
}

// mirrorEvent writes the audit trail best-effort. Failures are logged and
// never fail the attendance operation.
func (s *AttendanceServiceImpl) mirrorEvent(ctx context.Context, employeeID, localDate string, eventType activity.EventType, at time.Time, location *string) {
	ev := activity.Event{
		EmployeeID: employeeID,
		LocalDate:  localDate,
		Type:       eventType,
		Timestamp:  at,
		Location:   location,
	}
	if err := s.mirror.Upsert(ctx, ev); err != nil {
		slog.Error("failed to mirror attendance event",
			"employee_id", employeeID,
			"local_date", localDate,
			"event_type", eventType,
			"error", err)
	}
}

// ---- store access with a single retry on transient failures ----

func isTransient(err error) bool {
	return !errors.Is(err, attendance.ErrAttendanceNotFound) &&
		!errors.Is(err, attendance.ErrRecordConflict)
}

func (s *AttendanceServiceImpl) fetchOne(ctx context.Context, employeeID, localDate string) (attendance.AttendanceDay, error) {
	day, err := s.store.FetchOne(ctx, employeeID, localDate)
	if err == nil || !isTransient(err) {
		return day, err
	}
	slog.Warn("retrying attendance store fetch", "employee_id", employeeID, "error", err)
	day, err = s.store.FetchOne(ctx, employeeID, localDate)
	if err != nil && isTransient(err) {
		return attendance.AttendanceDay{}, fmt.Errorf("%w: %v", attendance.ErrStoreUnavailable, err)
	}
	return day, err
}

func (s *AttendanceServiceImpl) create(ctx context.Context, day attendance.AttendanceDay) (attendance.AttendanceDay, error) {
	created, err := s.store.Create(ctx, day)
	if err == nil || !isTransient(err) {
		return created, err
	}
	slog.Warn("retrying attendance store create", "employee_id", day.EmployeeID, "error", err)
	created, err = s.store.Create(ctx, day)
	if err != nil && isTransient(err) {
		return attendance.AttendanceDay{}, fmt.Errorf("%w: %v", attendance.ErrStoreUnavailable, err)
	}
	return created, err
}

func (s *AttendanceServiceImpl) updateByID(ctx context.Context, recordID string, upd attendance.RecordUpdate) error {
	err := s.store.UpdateByID(ctx, recordID, upd)
	if err == nil || !isTransient(err) {
		return err
	}
	slog.Warn("retrying attendance store update", "record_id", recordID, "error", err)
	if err = s.store.UpdateByID(ctx, recordID, upd); err != nil && isTransient(err) {
		return fmt.Errorf("%w: %v", attendance.ErrStoreUnavailable, err)
	}
	return err
}

func (s *AttendanceServiceImpl) listMonth(ctx context.Context, employeeID string, year int, month time.Month) ([]attendance.AttendanceDay, error) {
	days, err := s.store.ListMonth(ctx, employeeID, year, month)
	if err == nil || !isTransient(err) {
		return days, err
	}
	slog.Warn("retrying attendance store list", "employee_id", employeeID, "error", err)
	days, err = s.store.ListMonth(ctx, employeeID, year, month)
	if err != nil && isTransient(err) {
		return nil, fmt.Errorf("%w: %v", attendance.ErrStoreUnavailable, err)
	}
	return days, err
}

func (s *AttendanceServiceImpl) listStaleOpen(ctx context.Context, beforeDate string) ([]attendance.AttendanceDay, error) {
	days, err := s.store.ListStaleOpen(ctx, beforeDate)
	if err == nil || !isTransient(err) {
		return days, err
	}
	slog.Warn("retrying stale open day listing", "error", err)
	days, err = s.store.ListStaleOpen(ctx, beforeDate)
	if err != nil && isTransient(err) {
		return nil, fmt.Errorf("%w: %v", attendance.ErrStoreUnavailable, err)
	}
	return days, err
}
