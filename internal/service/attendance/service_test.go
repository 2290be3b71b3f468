package attendance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/clockwise-hr/attendance-backend-go/internal/domain/activity"
	"github.com/clockwise-hr/attendance-backend-go/internal/domain/attendance"
	"github.com/clockwise-hr/attendance-backend-go/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== FAKES =====

var errConnReset = errors.New("store: connection reset")

type fakeStore struct {
	mu     sync.Mutex
	byKey  map[string]*attendance.AttendanceDay
	byID   map[string]*attendance.AttendanceDay
	nextID int

	// failFetch etc. make the next N calls fail with a transient error.
	failFetch  int
	failCreate int
	failUpdate int
	failList   int

	fetchCalls  int
	createCalls int
	updateCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byKey: make(map[string]*attendance.AttendanceDay),
		byID:  make(map[string]*attendance.AttendanceDay),
	}
}

func storeKey(employeeID, localDate string) string {
	return employeeID + "|" + localDate
}

func (f *fakeStore) FetchOne(_ context.Context, employeeID, localDate string) (attendance.AttendanceDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.failFetch > 0 {
		f.failFetch--
		return attendance.AttendanceDay{}, errConnReset
	}
	day, ok := f.byKey[storeKey(employeeID, localDate)]
	if !ok {
		return attendance.AttendanceDay{}, attendance.ErrAttendanceNotFound
	}
	return *day, nil
}

func (f *fakeStore) Create(_ context.Context, day attendance.AttendanceDay) (attendance.AttendanceDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failCreate > 0 {
		f.failCreate--
		return attendance.AttendanceDay{}, errConnReset
	}
	key := storeKey(day.EmployeeID, day.LocalDate)
	if _, exists := f.byKey[key]; exists {
		return attendance.AttendanceDay{}, attendance.ErrRecordConflict
	}
	f.nextID++
	day.ID = fmt.Sprintf("rec-%d", f.nextID)
	stored := day
	f.byKey[key] = &stored
	f.byID[day.ID] = &stored
	return day, nil
}

func (f *fakeStore) UpdateByID(_ context.Context, recordID string, upd attendance.RecordUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.failUpdate > 0 {
		f.failUpdate--
		return errConnReset
	}
	day, ok := f.byID[recordID]
	if !ok {
		return attendance.ErrAttendanceNotFound
	}
	if upd.CheckinWallTime != nil {
		v := *upd.CheckinWallTime
		day.CheckinWallTime = &v
	}
	if upd.ClearCheckout {
		day.CheckoutWallTime = nil
	} else if upd.CheckoutWallTime != nil {
		v := *upd.CheckoutWallTime
		day.CheckoutWallTime = &v
	}
	if upd.AggregatedSeconds != nil {
		day.AggregatedSeconds = *upd.AggregatedSeconds
	}
	if upd.DurationText != nil {
		day.DurationText = *upd.DurationText
	}
	if upd.Status != nil {
		day.Status = *upd.Status
	}
	if upd.State != nil {
		day.State = *upd.State
	}
	return nil
}

func (f *fakeStore) ListMonth(_ context.Context, employeeID string, year int, month time.Month) ([]attendance.AttendanceDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList > 0 {
		f.failList--
		return nil, errConnReset
	}
	prefix := fmt.Sprintf("%04d-%02d-", year, int(month))
	var days []attendance.AttendanceDay
	for _, day := range f.byKey {
		if day.EmployeeID == employeeID && len(day.LocalDate) >= len(prefix) && day.LocalDate[:len(prefix)] == prefix {
			days = append(days, *day)
		}
	}
	return days, nil
}

func (f *fakeStore) ListStaleOpen(_ context.Context, beforeDate string) ([]attendance.AttendanceDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList > 0 {
		f.failList--
		return nil, errConnReset
	}
	var days []attendance.AttendanceDay
	for _, day := range f.byKey {
		if day.State == attendance.StateOpen && day.LocalDate < beforeDate {
			days = append(days, *day)
		}
	}
	return days, nil
}

func (f *fakeStore) get(t *testing.T, employeeID, localDate string) attendance.AttendanceDay {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	day, ok := f.byKey[storeKey(employeeID, localDate)]
	require.True(t, ok, "expected a day record for %s on %s", employeeID, localDate)
	return *day
}

func (f *fakeStore) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byKey)
}

// seed plants a pre-existing row, as if written by a previous process.
func (f *fakeStore) seed(day attendance.AttendanceDay) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	day.ID = fmt.Sprintf("rec-%d", f.nextID)
	stored := day
	f.byKey[storeKey(day.EmployeeID, day.LocalDate)] = &stored
	f.byID[day.ID] = &stored
}

type fakeMirror struct {
	mu     sync.Mutex
	events []activity.Event
	err    error
}

func (f *fakeMirror) Upsert(_ context.Context, ev activity.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeMirror) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// ===== HELPERS =====

// kolkataEvening is 2025-01-06T18:35:00Z, which is already 2025-01-07
// 00:05:00 in Asia/Kolkata.
var kolkataEvening = time.Date(2025, 1, 6, 18, 35, 0, 0, time.UTC)

const kolkataDate = "2025-01-07"

func newTestService(t *testing.T, at time.Time) (attendance.Service, *fakeStore, *fakeMirror, *clock.Fixed, *SessionRegistry) {
	t.Helper()
	store := newFakeStore()
	mirror := &fakeMirror{}
	clk := &clock.Fixed{Instant: at}
	registry := NewSessionRegistry()
	svc := NewAttendanceService(store, mirror, registry, clk, attendance.DefaultThresholds())
	return svc, store, mirror, clk, registry
}

func checkIn(t *testing.T, svc attendance.Service, employeeID string) attendance.CheckInResponse {
	t.Helper()
	resp, err := svc.CheckIn(context.Background(), attendance.CheckInRequest{
		EmployeeID: employeeID,
		Timezone:   "Asia/Kolkata",
	})
	require.NoError(t, err)
	return resp
}

func checkOut(t *testing.T, svc attendance.Service, employeeID string) attendance.CheckOutResponse {
	t.Helper()
	resp, err := svc.CheckOut(context.Background(), attendance.CheckOutRequest{
		EmployeeID: employeeID,
		Timezone:   "Asia/Kolkata",
	})
	require.NoError(t, err)
	return resp
}

// ===== CHECK-IN =====

func TestAttendanceService_CheckIn_CreatesDayAndSession(t *testing.T) {
	t.Parallel()
	svc, store, mirror, _, registry := newTestService(t, kolkataEvening)

	resp := checkIn(t, svc, "EMP001")

	assert.False(t, resp.AlreadyCheckedIn)
	assert.NotEmpty(t, resp.AttendanceID)
	assert.Equal(t, int64(0), resp.TotalSecondsToday)

	day := store.get(t, "EMP001", kolkataDate)
	assert.Equal(t, attendance.StateOpen, day.State)
	require.NotNil(t, day.CheckinWallTime)
	assert.Equal(t, "00:05:00", *day.CheckinWallTime)
	assert.Nil(t, day.CheckoutWallTime)

	_, found := registry.Lookup("EMP001")
	assert.True(t, found)
	assert.Equal(t, 1, mirror.count())
}

func TestAttendanceService_CheckIn_FilesUnderLocalDate(t *testing.T) {
	t.Parallel()
	svc, store, _, _, _ := newTestService(t, kolkataEvening)

	checkIn(t, svc, "EMP001")

	// 18:35 UTC on Jan 6 is already Jan 7 in Asia/Kolkata.
	day := store.get(t, "EMP001", "2025-01-07")
	assert.Equal(t, "2025-01-07", day.LocalDate)
}

func TestAttendanceService_CheckIn_Idempotent(t *testing.T) {
	t.Parallel()
	svc, store, _, clk, _ := newTestService(t, kolkataEvening)

	first := checkIn(t, svc, "EMP001")
	clk.Advance(10 * time.Minute)
	second := checkIn(t, svc, "EMP001")

	assert.False(t, first.AlreadyCheckedIn)
	assert.True(t, second.AlreadyCheckedIn)
	assert.Equal(t, first.AttendanceID, second.AttendanceID)
	assert.Equal(t, int64(600), second.TotalSecondsToday)
	assert.Equal(t, 1, store.rowCount())
	assert.Equal(t, 1, store.createCalls)
}

func TestAttendanceService_CheckIn_Continuation(t *testing.T) {
	t.Parallel()
	svc, store, _, clk, _ := newTestService(t, kolkataEvening)

	checkIn(t, svc, "EMP001")
	clk.Advance(30 * time.Minute)
	checkOut(t, svc, "EMP001")

	clk.Advance(2 * time.Hour)
	resp := checkIn(t, svc, "EMP001")

	assert.False(t, resp.AlreadyCheckedIn)
	assert.Equal(t, int64(1800), resp.TotalSecondsToday)
	assert.Equal(t, 1, store.rowCount())

	day := store.get(t, "EMP001", kolkataDate)
	assert.Equal(t, attendance.StateOpen, day.State)
	assert.Nil(t, day.CheckoutWallTime)
	assert.Equal(t, int64(1800), day.AggregatedSeconds)
}

func TestAttendanceService_CheckIn_MirrorFailureIsBestEffort(t *testing.T) {
	t.Parallel()
	svc, store, mirror, _, _ := newTestService(t, kolkataEvening)
	mirror.err = errors.New("mirror down")

	resp := checkIn(t, svc, "EMP001")

	assert.False(t, resp.AlreadyCheckedIn)
	assert.Equal(t, 1, store.rowCount())
}

func TestAttendanceService_CheckIn_TransientFetchRetriedOnce(t *testing.T) {
	t.Parallel()
	svc, store, _, _, _ := newTestService(t, kolkataEvening)
	store.failFetch = 1

	resp := checkIn(t, svc, "EMP001")

	assert.False(t, resp.AlreadyCheckedIn)
	assert.Equal(t, 3, store.fetchCalls) // recovery probe (failed+retried) + openDayRecord
}

func TestAttendanceService_CheckIn_StoreDownSurfacesTransientFailure(t *testing.T) {
	t.Parallel()
	svc, store, _, _, registry := newTestService(t, kolkataEvening)
	store.failFetch = 10

	_, err := svc.CheckIn(context.Background(), attendance.CheckInRequest{
		EmployeeID: "EMP001",
		Timezone:   "Asia/Kolkata",
	})

	assert.ErrorIs(t, err, attendance.ErrStoreUnavailable)
	_, found := registry.Lookup("EMP001")
	assert.False(t, found)
}

// ===== CHECK-OUT =====

func TestAttendanceService_CheckOut_PersistsAggregateAndStatus(t *testing.T) {
	t.Parallel()
	svc, store, mirror, clk, registry := newTestService(t, kolkataEvening)

	checkIn(t, svc, "EMP001")
	clk.Advance(5 * time.Hour)
	resp := checkOut(t, svc, "EMP001")

	assert.Equal(t, int64(5*3600), resp.TotalSecondsToday)
	assert.Equal(t, attendance.StatusHalfDay, resp.Status)
	assert.Equal(t, "5 hour(s) 0 minute(s)", resp.DurationText)

	day := store.get(t, "EMP001", kolkataDate)
	assert.Equal(t, attendance.StateClosed, day.State)
	assert.Equal(t, int64(5*3600), day.AggregatedSeconds)
	assert.Equal(t, attendance.StatusHalfDay, day.Status)
	require.NotNil(t, day.CheckoutWallTime)
	assert.Equal(t, "05:05:00", *day.CheckoutWallTime)

	_, found := registry.Lookup("EMP001")
	assert.False(t, found)
	assert.Equal(t, 2, mirror.count())
}

func TestAttendanceService_CheckOut_WithoutCheckIn(t *testing.T) {
	t.Parallel()
	svc, store, _, _, _ := newTestService(t, kolkataEvening)

	_, err := svc.CheckOut(context.Background(), attendance.CheckOutRequest{
		EmployeeID: "EMP001",
		Timezone:   "Asia/Kolkata",
	})

	assert.ErrorIs(t, err, attendance.ErrNoActiveSession)
	assert.Equal(t, 0, store.rowCount())
	assert.Equal(t, 0, store.createCalls)
	assert.Equal(t, 0, store.updateCalls)
}

func TestAttendanceService_AggregationAcrossSessions(t *testing.T) {
	t.Parallel()
	svc, store, _, clk, _ := newTestService(t, kolkataEvening)

	// Two 30-minute stretches with an arbitrary gap between them must sum
	// to exactly one hour, not overwrite each other.
	checkIn(t, svc, "EMP001")
	clk.Advance(30 * time.Minute)
	checkOut(t, svc, "EMP001")

	clk.Advance(47 * time.Minute)
	checkIn(t, svc, "EMP001")
	clk.Advance(30 * time.Minute)
	resp := checkOut(t, svc, "EMP001")

	assert.Equal(t, int64(3600), resp.TotalSecondsToday)
	assert.Equal(t, "1 hour(s) 0 minute(s)", resp.DurationText)

	day := store.get(t, "EMP001", kolkataDate)
	assert.Equal(t, int64(3600), day.AggregatedSeconds)
}

func TestAttendanceService_CheckOut_StoreFailureKeepsComputedDuration(t *testing.T) {
	t.Parallel()
	svc, store, _, clk, registry := newTestService(t, kolkataEvening)

	checkIn(t, svc, "EMP001")
	clk.Advance(time.Hour)
	store.failUpdate = 10

	resp, err := svc.CheckOut(context.Background(), attendance.CheckOutRequest{
		EmployeeID: "EMP001",
		Timezone:   "Asia/Kolkata",
	})

	assert.ErrorIs(t, err, attendance.ErrStoreUnavailable)
	assert.Equal(t, int64(3600), resp.TotalSecondsToday)
	assert.Equal(t, "1 hour(s) 0 minute(s)", resp.DurationText)

	// The session is not rolled back: the employee is checked out.
	_, found := registry.Lookup("EMP001")
	assert.False(t, found)
}

func TestAttendanceService_AggregateNeverDecreases(t *testing.T) {
	t.Parallel()
	svc, store, _, clk, _ := newTestService(t, kolkataEvening)

	checkIn(t, svc, "EMP001")
	clk.Advance(30 * time.Minute)
	checkOut(t, svc, "EMP001")

	checkIn(t, svc, "EMP001")
	// Clock skew: "now" moves backwards before the second check-out.
	clk.Advance(-10 * time.Minute)
	resp := checkOut(t, svc, "EMP001")

	assert.Equal(t, int64(1800), resp.TotalSecondsToday)
	day := store.get(t, "EMP001", kolkataDate)
	assert.Equal(t, int64(1800), day.AggregatedSeconds)
}

// ===== STATUS =====

func TestAttendanceService_GetStatus_LiveElapsed(t *testing.T) {
	t.Parallel()
	svc, _, _, clk, _ := newTestService(t, kolkataEvening)

	checkIn(t, svc, "EMP001")
	clk.Advance(5 * time.Hour)

	resp, err := svc.GetStatus(context.Background(), attendance.StatusRequest{
		EmployeeID: "EMP001",
		Timezone:   "Asia/Kolkata",
	})
	require.NoError(t, err)

	assert.True(t, resp.HasRecord)
	assert.True(t, resp.IsActive)
	assert.Equal(t, int64(5*3600), resp.TotalSecondsToday)
	assert.Equal(t, attendance.StatusHalfDay, resp.Status)
}

func TestAttendanceService_GetStatus_DoesNotPersist(t *testing.T) {
	t.Parallel()
	svc, store, _, clk, _ := newTestService(t, kolkataEvening)

	checkIn(t, svc, "EMP001")
	updatesAfterCheckIn := store.updateCalls
	clk.Advance(time.Hour)

	_, err := svc.GetStatus(context.Background(), attendance.StatusRequest{
		EmployeeID: "EMP001",
		Timezone:   "Asia/Kolkata",
	})
	require.NoError(t, err)

	assert.Equal(t, updatesAfterCheckIn, store.updateCalls)
}

func TestAttendanceService_GetStatus_NoRecord(t *testing.T) {
	t.Parallel()
	svc, _, _, _, _ := newTestService(t, kolkataEvening)

	resp, err := svc.GetStatus(context.Background(), attendance.StatusRequest{
		EmployeeID: "EMP001",
		Timezone:   "Asia/Kolkata",
	})
	require.NoError(t, err)

	assert.False(t, resp.HasRecord)
	assert.False(t, resp.IsActive)
	assert.Equal(t, int64(0), resp.TotalSecondsToday)
	assert.Equal(t, attendance.StatusAbsent, resp.Status)
}

func TestAttendanceService_GetStatus_ClosedDay(t *testing.T) {
	t.Parallel()
	svc, _, _, clk, _ := newTestService(t, kolkataEvening)

	checkIn(t, svc, "EMP001")
	clk.Advance(10 * time.Hour)
	checkOut(t, svc, "EMP001")

	resp, err := svc.GetStatus(context.Background(), attendance.StatusRequest{
		EmployeeID: "EMP001",
		Timezone:   "Asia/Kolkata",
	})
	require.NoError(t, err)

	assert.True(t, resp.HasRecord)
	assert.False(t, resp.IsActive)
	assert.Equal(t, int64(10*3600), resp.TotalSecondsToday)
	assert.Equal(t, attendance.StatusPresent, resp.Status)
}

// ===== RECOVERY =====

func openSeedDay(employeeID, localDate, wall string, baseSeconds int64) attendance.AttendanceDay {
	w := wall
	return attendance.AttendanceDay{
		BusinessID:        "biz-" + employeeID,
		EmployeeID:        employeeID,
		LocalDate:         localDate,
		CheckinWallTime:   &w,
		AggregatedSeconds: baseSeconds,
		Status:            attendance.StatusAbsent,
		State:             attendance.StateOpen,
	}
}

func TestAttendanceService_Recovery_StatusAfterRestart(t *testing.T) {
	t.Parallel()
	// One hour after the stored 00:05:00 Kolkata check-in.
	svc, store, _, _, registry := newTestService(t, kolkataEvening.Add(time.Hour))
	store.seed(openSeedDay("EMP001", kolkataDate, "00:05:00", 1800))

	resp, err := svc.GetStatus(context.Background(), attendance.StatusRequest{
		EmployeeID: "EMP001",
		Timezone:   "Asia/Kolkata",
	})
	require.NoError(t, err)

	assert.True(t, resp.IsActive)
	assert.Equal(t, int64(1800+3600), resp.TotalSecondsToday)

	sess, found := registry.Lookup("EMP001")
	require.True(t, found)
	assert.Equal(t, int64(1800), sess.BaseSeconds)
	assert.True(t, sess.CheckinInstant.Equal(kolkataEvening))
}

func TestAttendanceService_Recovery_CheckOutAfterRestart(t *testing.T) {
	t.Parallel()
	svc, store, _, _, _ := newTestService(t, kolkataEvening.Add(time.Hour))
	store.seed(openSeedDay("EMP001", kolkataDate, "00:05:00", 1800))

	resp := checkOut(t, svc, "EMP001")

	assert.Equal(t, int64(1800+3600), resp.TotalSecondsToday)
	day := store.get(t, "EMP001", kolkataDate)
	assert.Equal(t, attendance.StateClosed, day.State)
	assert.Equal(t, int64(1800+3600), day.AggregatedSeconds)
}

func TestAttendanceService_Recovery_CheckInAfterRestartIsIdempotent(t *testing.T) {
	t.Parallel()
	svc, store, _, _, _ := newTestService(t, kolkataEvening.Add(time.Hour))
	store.seed(openSeedDay("EMP001", kolkataDate, "00:05:00", 0))

	resp := checkIn(t, svc, "EMP001")

	assert.True(t, resp.AlreadyCheckedIn)
	assert.Equal(t, int64(3600), resp.TotalSecondsToday)
	assert.Equal(t, 1, store.rowCount())
}

func TestAttendanceService_Recovery_AmbiguousWallTimeFallsBackToNow(t *testing.T) {
	t.Parallel()
	svc, store, _, _, _ := newTestService(t, kolkataEvening.Add(time.Hour))
	day := openSeedDay("EMP001", kolkataDate, "", 1800)
	day.CheckinWallTime = nil
	store.seed(day)

	// Elapsed restarts at zero, the base survives and nothing fails.
	resp := checkOut(t, svc, "EMP001")
	assert.Equal(t, int64(1800), resp.TotalSecondsToday)
}

// ===== MONTHLY =====

func TestAttendanceService_GetMonthly_WithLiveOverlay(t *testing.T) {
	t.Parallel()
	svc, store, _, clk, _ := newTestService(t, kolkataEvening)

	closedWallIn, closedWallOut := "09:00:00", "18:00:00"
	store.seed(attendance.AttendanceDay{
		BusinessID:        "biz-old",
		EmployeeID:        "EMP001",
		LocalDate:         "2025-01-03",
		CheckinWallTime:   &closedWallIn,
		CheckoutWallTime:  &closedWallOut,
		AggregatedSeconds: 32400,
		DurationText:      "9 hour(s) 0 minute(s)",
		Status:            attendance.StatusPresent,
		State:             attendance.StateClosed,
	})

	checkIn(t, svc, "EMP001")
	clk.Advance(4 * time.Hour)

	resp, err := svc.GetMonthly(context.Background(), attendance.MonthlyRequest{
		EmployeeID: "EMP001",
		Year:       2025,
		Month:      time.January,
	})
	require.NoError(t, err)
	require.Len(t, resp.Days, 2)

	byDate := make(map[string]attendance.MonthlyDay)
	for _, d := range resp.Days {
		byDate[d.Date] = d
	}

	closed := byDate["2025-01-03"]
	assert.False(t, closed.IsActive)
	assert.Equal(t, int64(32400), closed.TotalSeconds)
	assert.Equal(t, attendance.StatusPresent, closed.Status)

	live := byDate[kolkataDate]
	assert.True(t, live.IsActive)
	assert.Equal(t, int64(4*3600), live.TotalSeconds)
	assert.Equal(t, attendance.StatusHalfDay, live.Status)
	assert.Equal(t, "4 hour(s) 0 minute(s)", live.DurationText)
}

func TestAttendanceService_GetMonthly_Empty(t *testing.T) {
	t.Parallel()
	svc, _, _, _, _ := newTestService(t, kolkataEvening)

	resp, err := svc.GetMonthly(context.Background(), attendance.MonthlyRequest{
		EmployeeID: "EMP001",
		Year:       2025,
		Month:      time.June,
	})
	require.NoError(t, err)

	assert.Empty(t, resp.Days)
}

// ===== STALE SWEEP =====

func TestAttendanceService_CloseStale(t *testing.T) {
	t.Parallel()
	svc, store, _, clk, registry := newTestService(t, kolkataEvening)

	checkIn(t, svc, "EMP001")
	clk.Advance(17 * time.Hour)
	checkIn(t, svc, "EMP002")

	closed, err := svc.CloseStale(context.Background(), 16*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	// The stale session is capped at the max age, not the full 17 hours.
	day := store.get(t, "EMP001", kolkataDate)
	assert.Equal(t, attendance.StateClosed, day.State)
	assert.Equal(t, int64(16*3600), day.AggregatedSeconds)
	assert.Equal(t, attendance.StatusPresent, day.Status)

	_, found := registry.Lookup("EMP001")
	assert.False(t, found)

	// The young session survives untouched.
	_, found = registry.Lookup("EMP002")
	assert.True(t, found)
}

func TestAttendanceService_CloseStale_AbandonedBeforeRestart(t *testing.T) {
	t.Parallel()
	// Empty registry, as after a restart; the only trace of the session is
	// the open row on a prior date.
	svc, store, _, _, registry := newTestService(t, kolkataEvening)
	store.seed(openSeedDay("EMP001", "2025-01-05", "09:00:00", 1800))

	closed, err := svc.CloseStale(context.Background(), 16*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	day := store.get(t, "EMP001", "2025-01-05")
	assert.Equal(t, attendance.StateClosed, day.State)
	assert.Equal(t, int64(1800+16*3600), day.AggregatedSeconds)
	assert.Equal(t, attendance.StatusPresent, day.Status)
	require.NotNil(t, day.CheckoutWallTime)
	assert.Equal(t, "01:00:00", *day.CheckoutWallTime)

	// Nothing was recovered into memory along the way.
	_, found := registry.Lookup("EMP001")
	assert.False(t, found)
}

func TestAttendanceService_CloseStale_YoungPriorDateRowSurvives(t *testing.T) {
	t.Parallel()
	// Checked in just before midnight UTC; the row's date is yesterday but
	// the session is still well under the max age.
	now := time.Date(2025, 1, 7, 0, 30, 0, 0, time.UTC)
	svc, store, _, _, _ := newTestService(t, now)
	store.seed(openSeedDay("EMP001", "2025-01-06", "23:45:00", 0))

	closed, err := svc.CloseStale(context.Background(), 16*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, closed)

	day := store.get(t, "EMP001", "2025-01-06")
	assert.Equal(t, attendance.StateOpen, day.State)
}

func TestAttendanceService_CloseStale_AbandonedRowWithoutWallTime(t *testing.T) {
	t.Parallel()
	svc, store, _, _, _ := newTestService(t, kolkataEvening)
	day := openSeedDay("EMP001", "2025-01-04", "", 3600)
	day.CheckinWallTime = nil
	store.seed(day)

	closed, err := svc.CloseStale(context.Background(), 16*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	// Nothing reliable to extend from, so the aggregated base stands.
	swept := store.get(t, "EMP001", "2025-01-04")
	assert.Equal(t, attendance.StateClosed, swept.State)
	assert.Equal(t, int64(3600), swept.AggregatedSeconds)
	assert.Equal(t, attendance.StatusAbsent, swept.Status)
}

func TestAttendanceService_CloseStale_NothingToDo(t *testing.T) {
	t.Parallel()
	svc, _, _, clk, _ := newTestService(t, kolkataEvening)

	checkIn(t, svc, "EMP001")
	clk.Advance(time.Hour)

	closed, err := svc.CloseStale(context.Background(), 16*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, closed)
}
