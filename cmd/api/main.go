package main

import (
	"fmt"
	"net/http"

	"github.com/clockwise-hr/attendance-backend-go/internal/config"
	attendanceDomain "github.com/clockwise-hr/attendance-backend-go/internal/domain/attendance"
	appHTTP "github.com/clockwise-hr/attendance-backend-go/internal/handler/http"
	"github.com/clockwise-hr/attendance-backend-go/internal/pkg/clock"
	"github.com/clockwise-hr/attendance-backend-go/internal/pkg/cron"
	"github.com/clockwise-hr/attendance-backend-go/internal/pkg/database"
	"github.com/clockwise-hr/attendance-backend-go/internal/pkg/jwt"
	"github.com/clockwise-hr/attendance-backend-go/internal/repository/postgresql"
	attendanceService "github.com/clockwise-hr/attendance-backend-go/internal/service/attendance"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	dsn := cfg.DatabaseURL()
	db, err := database.NewPostgreSQLDB(dsn)
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}

	recordStore := postgresql.NewAttendanceRepository(db, cfg.Attendance.StoreTimeout)
	activityMirror := postgresql.NewLoginActivityRepository(db, cfg.Attendance.StoreTimeout)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	registry := attendanceService.NewSessionRegistry()
	thresholds := attendanceDomain.Thresholds{
		Present: cfg.Attendance.PresentThreshold,
		HalfDay: cfg.Attendance.HalfDayThreshold,
	}
	attendanceSvc := attendanceService.NewAttendanceService(
		recordStore,
		activityMirror,
		registry,
		clock.System(),
		thresholds,
	)

	scheduler := cron.NewScheduler()
	attendanceJobs := cron.NewAttendanceJobs(attendanceSvc, cfg.Attendance.StaleSessionMaxAge)
	attendanceJobs.RegisterJobs(scheduler, cfg.Attendance.SweepInterval)
	scheduler.Start()
	defer scheduler.Stop()

	attendanceHandler := appHTTP.NewAttendanceHandler(attendanceSvc)

	router := appHTTP.NewRouter(
		JWTService,
		attendanceHandler,
		cfg.App.Env,
	)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	fmt.Printf("Server running at http://localhost%s\n", port)
	if err := http.ListenAndServe(port, router); err != nil {
		fmt.Println("Server error:", err)
	}
}
