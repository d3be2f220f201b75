package domain

import (
	"fmt"
	"time"
)

// Frequency represents how often a recurring item fires
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

// Schedule holds the recurrence policy of a recurring item: the frequency,
// its frequency-specific parameters and the validity window. Times of day are
// stored as "HH:MM" strings, weekdays as lowercase English names.
type Schedule struct {
	Frequency   Frequency  `json:"frequency" bson:"frequency"`
	DailyTime   string     `json:"daily_time,omitempty" bson:"dailyTime,omitempty"`
	WeeklyDays  []string   `json:"weekly_days,omitempty" bson:"weeklyDays,omitempty"`
	WeeklyTime  string     `json:"weekly_time,omitempty" bson:"weeklyTime,omitempty"`
	MonthlyDay  int        `json:"monthly_day,omitempty" bson:"monthlyDay,omitempty"`
	MonthlyTime string     `json:"monthly_time,omitempty" bson:"monthlyTime,omitempty"`
	CustomDays  []string   `json:"custom_days,omitempty" bson:"customDays,omitempty"`
	CustomTimes []string   `json:"custom_times,omitempty" bson:"customTimes,omitempty"`
	StartDate   time.Time  `json:"start_date" bson:"startDate"`
	EndDate     *time.Time `json:"end_date,omitempty" bson:"endDate,omitempty"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday maps a lowercase English day name to a time.Weekday
func ParseWeekday(name string) (time.Weekday, error) {
	d, ok := weekdayNames[name]
	if !ok {
		return 0, fmt.Errorf("invalid weekday %q", name)
	}
	return d, nil
}

// ParseClock parses an "HH:MM" time-of-day string
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// Validate rejects malformed schedules. Rules must be rejected here, at
// creation time, because the fire-time calculator has undefined behavior on
// schedules missing their frequency parameters.
func (s Schedule) Validate() error {
	if s.StartDate.IsZero() {
		return fmt.Errorf("start date is required")
	}
	if s.EndDate != nil && s.EndDate.Before(s.StartDate) {
		return fmt.Errorf("end date precedes start date")
	}

	switch s.Frequency {
	case FrequencyDaily:
		if _, _, err := ParseClock(s.DailyTime); err != nil {
			return fmt.Errorf("daily schedule: %w", err)
		}
	case FrequencyWeekly:
		if len(s.WeeklyDays) == 0 {
			return fmt.Errorf("weekly schedule requires at least one weekday")
		}
		for _, d := range s.WeeklyDays {
			if _, err := ParseWeekday(d); err != nil {
				return fmt.Errorf("weekly schedule: %w", err)
			}
		}
		if _, _, err := ParseClock(s.WeeklyTime); err != nil {
			return fmt.Errorf("weekly schedule: %w", err)
		}
	case FrequencyMonthly:
		if s.MonthlyDay < 1 || s.MonthlyDay > 31 {
			return fmt.Errorf("monthly schedule requires a day of month between 1 and 31")
		}
		if _, _, err := ParseClock(s.MonthlyTime); err != nil {
			return fmt.Errorf("monthly schedule: %w", err)
		}
	case FrequencyCustom:
		if len(s.CustomDays) == 0 {
			return fmt.Errorf("custom schedule requires at least one weekday")
		}
		for _, d := range s.CustomDays {
			if _, err := ParseWeekday(d); err != nil {
				return fmt.Errorf("custom schedule: %w", err)
			}
		}
		if len(s.CustomTimes) == 0 {
			return fmt.Errorf("custom schedule requires at least one time of day")
		}
		for _, t := range s.CustomTimes {
			if _, _, err := ParseClock(t); err != nil {
				return fmt.Errorf("custom schedule: %w", err)
			}
		}
	default:
		return fmt.Errorf("unknown frequency %q", s.Frequency)
	}

	return nil
}
