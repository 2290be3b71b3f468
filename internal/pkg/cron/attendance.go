package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clockwise-hr/attendance-backend-go/internal/domain/attendance"
)

// AttendanceJobs holds the background maintenance jobs for the attendance
// core.
type AttendanceJobs struct {
	service attendance.Service
	maxAge  time.Duration
}

func NewAttendanceJobs(service attendance.Service, maxAge time.Duration) *AttendanceJobs {
	return &AttendanceJobs{
		service: service,
		maxAge:  maxAge,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob("sweep_stale_sessions", interval, j.SweepStaleSessions)
}

// SweepStaleSessions force-closes sessions left open past the configured
// maximum age, capping their duration so an abandoned check-in cannot
// accrue unbounded worked time.
func (j *AttendanceJobs) SweepStaleSessions(ctx context.Context) error {
	closed, err := j.service.CloseStale(ctx, j.maxAge)
	if err != nil {
		return fmt.Errorf("failed to sweep stale sessions: %w", err)
	}
	if closed > 0 {
		slog.Info("Cron: swept stale attendance sessions", "closed", closed, "max_age", j.maxAge)
	}
	return nil
}
