// Package schedule evaluates recurring weekly blocking windows.
package schedule

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/eliteGoblin/focusd/site_block/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ShouldBlock reports whether now falls inside any enabled schedule
// window. Windows are half-open: [start, end). The scan short-circuits
// on the first match; the result is order-independent because it is a
// boolean OR over the collection. A window with start >= end never
// matches (no wraparound across midnight).
func ShouldBlock(schedules []domain.Schedule, now time.Time) bool {
	minute := now.Hour()*60 + now.Minute()
	day := int(now.Weekday())

	for _, s := range schedules {
		if !s.Enabled {
			continue
		}
		if !containsDay(s.Days, day) {
			continue
		}
		if minute >= s.StartMinutes() && minute < s.EndMinutes() {
			return true
		}
	}
	return false
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

// Validate checks a schedule's field ranges: hours in [0,23], minutes in
// [0,59], at least one weekday in [0,6]. A start at or after the end is
// deliberately allowed; such a window simply never matches.
func Validate(s domain.Schedule) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	return nil
}
