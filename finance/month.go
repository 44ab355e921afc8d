package finance

import (
	"fmt"
	"time"
)

const monthKeyLayout = "2006-01"

// MonthKey returns the YYYY-MM key of t in UTC
func MonthKey(t time.Time) string {
	return t.UTC().Format(monthKeyLayout)
}

// ParseMonthKey returns the first instant of the month in UTC
func ParseMonthKey(key string) (time.Time, error) {
	t, err := time.Parse(monthKeyLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	return t, nil
}

// PreviousMonthKey returns the calendar month before key
func PreviousMonthKey(key string) (string, error) {
	t, err := ParseMonthKey(key)
	if err != nil {
		return "", err
	}
	return MonthKey(t.AddDate(0, -1, 0)), nil
}

// NextMonthKey returns the calendar month after key
func NextMonthKey(key string) (string, error) {
	t, err := ParseMonthKey(key)
	if err != nil {
		return "", err
	}
	return MonthKey(t.AddDate(0, 1, 0)), nil
}

// QuarterKey returns YYYY-Qn for t in UTC
func QuarterKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
}

// YearKey returns YYYY for t in UTC
func YearKey(t time.Time) string {
	return fmt.Sprintf("%d", t.UTC().Year())
}
