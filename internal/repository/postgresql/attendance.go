package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clockwise-hr/attendance-backend-go/internal/domain/attendance"
	"github.com/clockwise-hr/attendance-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type attendanceRepository struct {
	db      *database.DB
	timeout time.Duration
}

// NewAttendanceRepository returns a RecordStore backed by PostgreSQL. Every
// call carries the given timeout; a timeout surfaces as a transient failure,
// never as "no record".
func NewAttendanceRepository(db *database.DB, timeout time.Duration) attendance.RecordStore {
	return &attendanceRepository{
		db:      db,
		timeout: timeout,
	}
}

// FetchOne implements attendance.RecordStore.
func (a *attendanceRepository) FetchOne(ctx context.Context, employeeID, localDate string) (attendance.AttendanceDay, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	query := `
		SELECT id, business_id, employee_id, local_date,
			   checkin_time, checkout_time, aggregated_seconds, duration_text,
			   status, state, created_at, updated_at
		FROM attendance_days
		WHERE employee_id = $1
		  AND local_date = $2
	`

	var day attendance.AttendanceDay
	err := a.db.QueryRow(ctx, query, employeeID, localDate).Scan(
		&day.ID, &day.BusinessID, &day.EmployeeID, &day.LocalDate,
		&day.CheckinWallTime, &day.CheckoutWallTime, &day.AggregatedSeconds, &day.DurationText,
		&day.Status, &day.State, &day.CreatedAt, &day.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.AttendanceDay{}, attendance.ErrAttendanceNotFound
		}
		return attendance.AttendanceDay{}, fmt.Errorf("failed to fetch attendance day: %w", err)
	}

	return day, nil
}

// Create implements attendance.RecordStore.
func (a *attendanceRepository) Create(ctx context.Context, day attendance.AttendanceDay) (attendance.AttendanceDay, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	query := `
		INSERT INTO attendance_days (
			business_id, employee_id, local_date,
			checkin_time, checkout_time, aggregated_seconds, duration_text,
			status, state
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		) RETURNING id, created_at, updated_at
	`

	err := a.db.QueryRow(ctx, query,
		day.BusinessID,
		day.EmployeeID,
		day.LocalDate,
		day.CheckinWallTime,
		day.CheckoutWallTime,
		day.AggregatedSeconds,
		day.DurationText,
		day.Status,
		day.State,
	).Scan(&day.ID, &day.CreatedAt, &day.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// Another writer created the row for this (employee, date).
			return attendance.AttendanceDay{}, attendance.ErrRecordConflict
		}
		return attendance.AttendanceDay{}, fmt.Errorf("failed to create attendance day: %w", err)
	}

	return day, nil
}

// UpdateByID implements attendance.RecordStore.
func (a *attendanceRepository) UpdateByID(ctx context.Context, recordID string, upd attendance.RecordUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var sets []string
	var args []interface{}
	idx := 1

	addSet := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}

	if upd.CheckinWallTime != nil {
		addSet("checkin_time", *upd.CheckinWallTime)
	}
	if upd.ClearCheckout {
		sets = append(sets, "checkout_time = NULL")
	} else if upd.CheckoutWallTime != nil {
		addSet("checkout_time", *upd.CheckoutWallTime)
	}
	if upd.AggregatedSeconds != nil {
		addSet("aggregated_seconds", *upd.AggregatedSeconds)
	}
	if upd.DurationText != nil {
		addSet("duration_text", *upd.DurationText)
	}
	if upd.Status != nil {
		addSet("status", *upd.Status)
	}
	if upd.State != nil {
		addSet("state", *upd.State)
	}

	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`
		UPDATE attendance_days
		SET %s
		WHERE id = $%d
	`, strings.Join(sets, ", "), idx)
	args = append(args, recordID)

	tag, err := a.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update attendance day: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrAttendanceNotFound
	}

	return nil
}

// ListMonth implements attendance.RecordStore.
func (a *attendanceRepository) ListMonth(ctx context.Context, employeeID string, year int, month time.Month) ([]attendance.AttendanceDay, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	// local_date is stored as YYYY-MM-DD, so a prefix range covers the month.
	monthStart := fmt.Sprintf("%04d-%02d-01", year, int(month))
	nextYear, nextMonth := year, month+1
	if nextMonth > time.December {
		nextYear, nextMonth = year+1, time.January
	}
	monthEnd := fmt.Sprintf("%04d-%02d-01", nextYear, int(nextMonth))

	query := `
		SELECT id, business_id, employee_id, local_date,
			   checkin_time, checkout_time, aggregated_seconds, duration_text,
			   status, state, created_at, updated_at
		FROM attendance_days
		WHERE employee_id = $1
		  AND local_date >= $2
		  AND local_date < $3
		ORDER BY local_date ASC
	`

	rows, err := a.db.Query(ctx, query, employeeID, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance days: %w", err)
	}
	defer rows.Close()

	return scanDays(rows)
}

// ListStaleOpen implements attendance.RecordStore.
func (a *attendanceRepository) ListStaleOpen(ctx context.Context, beforeDate string) ([]attendance.AttendanceDay, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	query := `
		SELECT id, business_id, employee_id, local_date,
			   checkin_time, checkout_time, aggregated_seconds, duration_text,
			   status, state, created_at, updated_at
		FROM attendance_days
		WHERE state = 'open'
		  AND local_date < $1
		ORDER BY local_date ASC
	`

	rows, err := a.db.Query(ctx, query, beforeDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale open attendance days: %w", err)
	}
	defer rows.Close()

	return scanDays(rows)
}

func scanDays(rows pgx.Rows) ([]attendance.AttendanceDay, error) {
	var days []attendance.AttendanceDay
	for rows.Next() {
		var day attendance.AttendanceDay
		if err := rows.Scan(
			&day.ID, &day.BusinessID, &day.EmployeeID, &day.LocalDate,
			&day.CheckinWallTime, &day.CheckoutWallTime, &day.AggregatedSeconds, &day.DurationText,
			&day.Status, &day.State, &day.CreatedAt, &day.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attendance day: %w", err)
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance days: %w", err)
	}

	return days, nil
}
