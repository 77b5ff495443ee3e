package util

import (
	"fmt"
	"time"
)

// InWindow reports whether t falls inside the clock window [start, end),
// both given as HH:MM strings. A window whose end precedes its start wraps
// past midnight. Empty start and end admit every time, as do equal ones.
func InWindow(t time.Time, start, end string) (bool, error) {
	if start == "" && end == "" {
		return true, nil
	}
	s, err := clockMinutes(start)
	if err != nil {
		return false, fmt.Errorf("window start: %w", err)
	}
	e, err := clockMinutes(end)
	if err != nil {
		return false, fmt.Errorf("window end: %w", err)
	}
	if s == e {
		return true, nil
	}
	now := t.Hour()*60 + t.Minute()
	if s < e {
		return now >= s && now < e, nil
	}
	return now >= s || now < e, nil
}

func clockMinutes(s string) (int, error) {
	c, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	return c.Hour()*60 + c.Minute(), nil
}
