package leave

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// DayCountPolicy selects how requested days are counted. The chosen policy is
// used both for the stored days_requested and for the balance check.
type DayCountPolicy string

const (
	DayCountCalendar DayCountPolicy = "calendar"
	DayCountBusiness DayCountPolicy = "business"
)

func ParseDayCountPolicy(s string) (DayCountPolicy, error) {
	switch p := DayCountPolicy(s); p {
	case DayCountCalendar, DayCountBusiness:
		return p, nil
	}
	return "", fmt.Errorf("unknown day count policy %q", s)
}

// Count applies the policy to an already parsed range.
func (p DayCountPolicy) Count(start, end time.Time, halfDay bool) (float64, error) {
	if p == DayCountBusiness {
		return BusinessDays(start, end, halfDay)
	}
	return CalendarDays(start, end, halfDay)
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ComputeDays parses both dates and returns the inclusive calendar day count,
// or 0.5 for a half day that starts and ends on the same date.
func ComputeDays(startDate, endDate string, halfDay bool) (float64, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return 0, err
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return 0, err
	}
	return CalendarDays(start, end, halfDay)
}

func CalendarDays(start, end time.Time, halfDay bool) (float64, error) {
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return 0, ErrInvalidDateRange
	}
	if halfDay && start.Equal(end) {
		return 0.5, nil
	}
	return float64(daysBetween(start, end) + 1), nil
}

// BusinessDays counts Monday to Friday over the same inclusive range.
func BusinessDays(start, end time.Time, halfDay bool) (float64, error) {
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return 0, ErrInvalidDateRange
	}
	if halfDay && start.Equal(end) {
		if isWeekend(start) {
			return 0, nil
		}
		return 0.5, nil
	}

	total := daysBetween(start, end) + 1
	fullWeeks := total / 7
	count := fullWeeks * 5

	// Remaining days after whole weeks start on the same weekday as start.
	day := start.AddDate(0, 0, fullWeeks*7)
	for i := 0; i < total%7; i++ {
		if !isWeekend(day) {
			count++
		}
		day = day.AddDate(0, 0, 1)
	}
	return float64(count), nil
}

// daysBetween counts whole days between two UTC midnights. Unix seconds are
// used because time.Duration overflows past roughly 292 years.
func daysBetween(start, end time.Time) int {
	return int((end.Unix() - start.Unix()) / 86400)
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
