package timeutil

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	WallLayout = "15:04:05"
)

// LocalDate converts a UTC instant into the calendar date of the given IANA
// timezone. An empty or unparseable zone name falls back to the UTC date.
// This is what files a 00:05 check-in in a positive-offset zone under the
// correct local day instead of the previous UTC day.
func LocalDate(nowUTC time.Time, tzName string) string {
	return nowUTC.In(location(tzName)).Format(DateLayout)
}

// LocalWallTime renders the local time-of-day for the given zone.
func LocalWallTime(nowUTC time.Time, tzName string) string {
	return nowUTC.In(location(tzName)).Format(WallLayout)
}

// CombineDateAndWall rebuilds a UTC instant from a stored local date and
// wall-clock time. Used to reconstruct a check-in instant after a restart.
// During a DST transition the zone's canonical reading of that wall time
// wins; callers treat parse failures as ambiguity and fall back to "now".
func CombineDateAndWall(localDate, wall, tzName string) (time.Time, error) {
	loc := location(tzName)
	t, err := time.ParseInLocation(DateLayout+" "+WallLayout, localDate+" "+wall, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to combine date %q and wall time %q: %w", localDate, wall, err)
	}
	return t.UTC(), nil
}

// AggregateSeconds adds one session's elapsed time to the seconds already
// accumulated for the day. A negative delta (clock skew, out-of-order
// events) counts as zero elapsed; the base is always preserved.
func AggregateSeconds(baseSeconds int64, start, end time.Time) int64 {
	elapsed := int64(end.Sub(start) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	return baseSeconds + elapsed
}

// FormatDuration renders a total like "8 hour(s) 30 minute(s)".
func FormatDuration(totalSeconds int64) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	return fmt.Sprintf("%d hour(s) %d minute(s)", hours, minutes)
}

func location(tzName string) *time.Location {
	if tzName == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return time.UTC
	}
	return loc
}
