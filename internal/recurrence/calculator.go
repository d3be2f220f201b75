// Package recurrence computes future fire times for recurring notification
// rules. Next is pure and deterministic: no I/O, no clock reads.
package recurrence

import (
	"time"

	"github.com/hrplatform/go-notification-engine/internal/domain"
)

// Next returns the first occurrence of the schedule strictly after now, and
// false when the schedule has no further occurrences. A rule that fires
// exactly at now rolls to the following occurrence; it never fires twice.
//
// Month-end policy: a monthly day of 29-31 falling in a shorter month is
// clamped to the last day of that month rather than skipping it.
//
// Schedules with missing or malformed frequency parameters are a creation-time
// validation error; here they simply yield no occurrence.
func Next(s domain.Schedule, now time.Time) (time.Time, bool) {
	if s.EndDate != nil && now.After(*s.EndDate) {
		return time.Time{}, false
	}
	if s.StartDate.After(now) {
		return s.StartDate, true
	}

	var candidate time.Time
	var ok bool
	switch s.Frequency {
	case domain.FrequencyDaily:
		candidate, ok = nextDaily(s, now)
	case domain.FrequencyWeekly:
		candidate, ok = nextOnWeekdays(now, s.WeeklyDays, s.WeeklyTime)
	case domain.FrequencyMonthly:
		candidate, ok = nextMonthly(s, now)
	case domain.FrequencyCustom:
		if len(s.CustomTimes) == 0 {
			return time.Time{}, false
		}
		// Only the first configured time is honored; custom rules carry a
		// single time of day.
		candidate, ok = nextOnWeekdays(now, s.CustomDays, s.CustomTimes[0])
	default:
		return time.Time{}, false
	}

	if !ok {
		return time.Time{}, false
	}
	// An occurrence past the end date is no occurrence at all; this is how
	// rules with a validity window eventually deactivate.
	if s.EndDate != nil && candidate.After(*s.EndDate) {
		return time.Time{}, false
	}
	return candidate, true
}

func nextDaily(s domain.Schedule, now time.Time) (time.Time, bool) {
	hour, minute, err := domain.ParseClock(s.DailyTime)
	if err != nil {
		return time.Time{}, false
	}

	candidate := at(now, hour, minute)
	if !candidate.After(now) {
		candidate = at(now.AddDate(0, 0, 1), hour, minute)
	}
	return candidate, true
}

// nextOnWeekdays finds the earliest configured weekday at the given time of
// day strictly after now. Offsets 0..7 cover the same-day-but-not-yet-passed
// case and the full-week wrap for a rule whose only day is today.
func nextOnWeekdays(now time.Time, days []string, clock string) (time.Time, bool) {
	hour, minute, err := domain.ParseClock(clock)
	if err != nil {
		return time.Time{}, false
	}

	configured := make(map[time.Weekday]bool, len(days))
	for _, name := range days {
		d, err := domain.ParseWeekday(name)
		if err != nil {
			return time.Time{}, false
		}
		configured[d] = true
	}
	if len(configured) == 0 {
		return time.Time{}, false
	}

	for offset := 0; offset <= 7; offset++ {
		day := now.AddDate(0, 0, offset)
		if !configured[day.Weekday()] {
			continue
		}
		candidate := at(day, hour, minute)
		if candidate.After(now) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

func nextMonthly(s domain.Schedule, now time.Time) (time.Time, bool) {
	hour, minute, err := domain.ParseClock(s.MonthlyTime)
	if err != nil {
		return time.Time{}, false
	}
	if s.MonthlyDay < 1 {
		return time.Time{}, false
	}

	day := clampDayOfMonth(now.Year(), now.Month(), s.MonthlyDay)
	candidate := time.Date(now.Year(), now.Month(), day, hour, minute, 0, 0, now.Location())
	if candidate.After(now) {
		return candidate, true
	}

	firstOfNext := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
	day = clampDayOfMonth(firstOfNext.Year(), firstOfNext.Month(), s.MonthlyDay)
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day, hour, minute, 0, 0, now.Location()), true
}

// at places a time of day on the calendar date of t
func at(t time.Time, hour, minute int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
}

// clampDayOfMonth clamps day to the number of days in the given month
func clampDayOfMonth(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}
