package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrplatform/go-notification-engine/internal/domain"
)

var start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// 2025-03-04 is a Tuesday
func tuesday(hour, minute int) time.Time {
	return time.Date(2025, 3, 4, hour, minute, 0, 0, time.UTC)
}

func daily(clock string) domain.Schedule {
	return domain.Schedule{Frequency: domain.FrequencyDaily, DailyTime: clock, StartDate: start}
}

func TestNext_Daily(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before today's time fires today",
			now:  tuesday(8, 30),
			want: tuesday(9, 0),
		},
		{
			name: "after today's time rolls to tomorrow",
			now:  tuesday(9, 1),
			want: time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at today's time rolls to tomorrow",
			now:  tuesday(9, 0),
			want: time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Next(daily("09:00"), tt.now)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.After(tt.now), "next fire time must be strictly after now")
		})
	}
}

func TestNext_Weekly(t *testing.T) {
	sched := domain.Schedule{
		Frequency:  domain.FrequencyWeekly,
		WeeklyDays: []string{"monday", "thursday"},
		WeeklyTime: "08:00",
		StartDate:  start,
	}

	// Tuesday 10:00 -> Thursday 08:00 of the same week
	got, ok := Next(sched, tuesday(10, 0))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 6, 8, 0, 0, 0, time.UTC), got)

	// Thursday 07:59 -> Thursday 08:00, same day
	got, ok = Next(sched, time.Date(2025, 3, 6, 7, 59, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 6, 8, 0, 0, 0, time.UTC), got)

	// Thursday 08:00 exactly -> next Monday
	got, ok = Next(sched, time.Date(2025, 3, 6, 8, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), got)
}

func TestNext_WeeklySingleDayAlreadyPassedWrapsFullWeek(t *testing.T) {
	sched := domain.Schedule{
		Frequency:  domain.FrequencyWeekly,
		WeeklyDays: []string{"tuesday"},
		WeeklyTime: "08:00",
		StartDate:  start,
	}

	got, ok := Next(sched, tuesday(10, 0))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC), got)
}

func TestNext_Monthly(t *testing.T) {
	sched := domain.Schedule{
		Frequency:   domain.FrequencyMonthly,
		MonthlyDay:  15,
		MonthlyTime: "12:00",
		StartDate:   start,
	}

	// Before this month's day
	got, ok := Next(sched, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC), got)

	// After this month's day rolls to next month
	got, ok = Next(sched, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC), got)
}

func TestNext_MonthlyClampsToShortMonths(t *testing.T) {
	sched := domain.Schedule{
		Frequency:   domain.FrequencyMonthly,
		MonthlyDay:  31,
		MonthlyTime: "09:00",
		StartDate:   start,
	}

	// Feb 1: day 31 clamps to Feb 28 in a non-leap year
	got, ok := Next(sched, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 2, 28, 9, 0, 0, 0, time.UTC), got)

	// Jan 31 09:00 already fired: rolls into clamped Feb 28
	got, ok = Next(sched, time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 2, 28, 9, 0, 0, 0, time.UTC), got)

	// Leap year February clamps to the 29th
	got, ok = Next(sched, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC), got)

	// December rolls over the year boundary
	got, ok = Next(sched, time.Date(2025, 12, 31, 10, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC), got)
}

func TestNext_CustomUsesFirstConfiguredTime(t *testing.T) {
	sched := domain.Schedule{
		Frequency:   domain.FrequencyCustom,
		CustomDays:  []string{"wednesday"},
		CustomTimes: []string{"14:00", "18:00"},
		StartDate:   start,
	}

	got, ok := Next(sched, tuesday(10, 0))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 5, 14, 0, 0, 0, time.UTC), got)

	// 18:00 is never considered: Wednesday 15:00 skips to next Wednesday
	got, ok = Next(sched, time.Date(2025, 3, 5, 15, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC), got)
}

func TestNext_EndDateInPastYieldsNothing(t *testing.T) {
	end := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	schedules := []domain.Schedule{
		{Frequency: domain.FrequencyDaily, DailyTime: "09:00", StartDate: start, EndDate: &end},
		{Frequency: domain.FrequencyWeekly, WeeklyDays: []string{"monday"}, WeeklyTime: "09:00", StartDate: start, EndDate: &end},
		{Frequency: domain.FrequencyMonthly, MonthlyDay: 1, MonthlyTime: "09:00", StartDate: start, EndDate: &end},
		{Frequency: domain.FrequencyCustom, CustomDays: []string{"monday"}, CustomTimes: []string{"09:00"}, StartDate: start, EndDate: &end},
	}

	for _, sched := range schedules {
		_, ok := Next(sched, tuesday(10, 0))
		assert.False(t, ok, "frequency %s", sched.Frequency)
	}
}

func TestNext_OccurrencePastEndDateYieldsNothing(t *testing.T) {
	// End date is later today, but the daily time already fired: tomorrow's
	// occurrence falls outside the window.
	end := tuesday(23, 59)
	sched := domain.Schedule{Frequency: domain.FrequencyDaily, DailyTime: "09:00", StartDate: start, EndDate: &end}

	_, ok := Next(sched, tuesday(10, 0))
	assert.False(t, ok)
}

func TestNext_StartDateInFutureReturnsStartDate(t *testing.T) {
	futureStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sched := domain.Schedule{Frequency: domain.FrequencyDaily, DailyTime: "09:00", StartDate: futureStart}

	got, ok := Next(sched, tuesday(10, 0))
	require.True(t, ok)
	assert.Equal(t, futureStart, got)
}

func TestNext_MalformedScheduleYieldsNothing(t *testing.T) {
	schedules := []domain.Schedule{
		{Frequency: domain.FrequencyDaily, StartDate: start},
		{Frequency: domain.FrequencyWeekly, WeeklyTime: "09:00", StartDate: start},
		{Frequency: domain.FrequencyWeekly, WeeklyDays: []string{"someday"}, WeeklyTime: "09:00", StartDate: start},
		{Frequency: domain.FrequencyCustom, CustomDays: []string{"monday"}, StartDate: start},
		{Frequency: "yearly", StartDate: start},
	}

	for _, sched := range schedules {
		_, ok := Next(sched, tuesday(10, 0))
		assert.False(t, ok, "frequency %s", sched.Frequency)
	}
}

// Folding Next over its own output must produce a strictly increasing
// sequence until the schedule runs out.
func TestNext_FoldedSequenceIsStrictlyIncreasing(t *testing.T) {
	end := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	schedules := map[string]domain.Schedule{
		"daily":   {Frequency: domain.FrequencyDaily, DailyTime: "07:30", StartDate: start, EndDate: &end},
		"weekly":  {Frequency: domain.FrequencyWeekly, WeeklyDays: []string{"monday", "friday"}, WeeklyTime: "18:15", StartDate: start, EndDate: &end},
		"monthly": {Frequency: domain.FrequencyMonthly, MonthlyDay: 31, MonthlyTime: "06:00", StartDate: start, EndDate: &end},
		"custom":  {Frequency: domain.FrequencyCustom, CustomDays: []string{"saturday"}, CustomTimes: []string{"10:00"}, StartDate: start, EndDate: &end},
	}

	for name, sched := range schedules {
		t.Run(name, func(t *testing.T) {
			now := tuesday(10, 0)
			steps := 0
			for {
				next, ok := Next(sched, now)
				if !ok {
					break
				}
				require.True(t, next.After(now), "step %d: %v not after %v", steps, next, now)
				now = next
				steps++
				require.Less(t, steps, 200, "sequence did not terminate")
			}
			assert.Greater(t, steps, 0)
		})
	}
}
