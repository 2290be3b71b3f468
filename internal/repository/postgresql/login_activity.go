package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/clockwise-hr/attendance-backend-go/internal/domain/activity"
	"github.com/clockwise-hr/attendance-backend-go/internal/pkg/database"
)

type loginActivityRepository struct {
	db      *database.DB
	timeout time.Duration
}

// NewLoginActivityRepository returns the audit-trail mirror backed by
// PostgreSQL. One row per (employee_id, local_date), updated in place with
// the latest check-in/check-out pair.
func NewLoginActivityRepository(db *database.DB, timeout time.Duration) activity.Mirror {
	return &loginActivityRepository{
		db:      db,
		timeout: timeout,
	}
}

// Upsert implements activity.Mirror.
func (l *loginActivityRepository) Upsert(ctx context.Context, ev activity.Event) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var query string
	switch ev.Type {
	case activity.EventCheckIn:
		query = `
			INSERT INTO login_activity (employee_id, local_date, checkin_time, checkin_location)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (employee_id, local_date) DO UPDATE
			SET checkin_time     = EXCLUDED.checkin_time,
			    checkin_location = EXCLUDED.checkin_location,
			    updated_at       = NOW()
		`
	case activity.EventCheckOut:
		query = `
			INSERT INTO login_activity (employee_id, local_date, checkout_time, checkout_location)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (employee_id, local_date) DO UPDATE
			SET checkout_time     = EXCLUDED.checkout_time,
			    checkout_location = EXCLUDED.checkout_location,
			    updated_at        = NOW()
		`
	default:
		return fmt.Errorf("unknown activity event type: %q", ev.Type)
	}

	if _, err := l.db.Exec(ctx, query, ev.EmployeeID, ev.LocalDate, ev.Timestamp, ev.Location); err != nil {
		return fmt.Errorf("failed to upsert login activity: %w", err)
	}

	return nil
}
