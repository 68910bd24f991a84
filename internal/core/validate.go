package core

import (
	"errors"
	"fmt"
)

// ErrInvalidRepeat marks a (repeat_type, repeat_info) pair that was rejected
// at task creation or modification time.
var ErrInvalidRepeat = errors.New("invalid repeat configuration")

// ErrEmptyName is returned when a definition is created without a display name.
var ErrEmptyName = errors.New("task name must not be empty")

// ValidateRepeat checks that repeatInfo is well formed for repeatType.
// The occurrence predicate also tolerates malformed records by never
// matching them, but rejecting early keeps undefined combinations (most
// importantly a non-positive interval divisor) out of storage entirely.
func ValidateRepeat(repeatType RepeatType, repeatInfo int) error {
	switch repeatType {
	case RepeatNone:
		return nil
	case RepeatMonthly:
		if repeatInfo < 1 || repeatInfo > 31 {
			return fmt.Errorf("%w: monthly day %d out of range 1-31", ErrInvalidRepeat, repeatInfo)
		}
		return nil
	case RepeatMonthlyDay:
		if _, ok := weekdayFromDigit(repeatInfo % 10); !ok {
			return fmt.Errorf("%w: monthly_day weekday digit in %d", ErrInvalidRepeat, repeatInfo)
		}
		week := (repeatInfo / 10) % 10
		if week < 1 || week > 5 {
			return fmt.Errorf("%w: monthly_day week ordinal in %d", ErrInvalidRepeat, repeatInfo)
		}
		return nil
	case RepeatSpecifiedDays:
		if repeatInfo <= 0 {
			return fmt.Errorf("%w: specified_days needs at least one weekday digit", ErrInvalidRepeat)
		}
		for info := repeatInfo; info > 0; info /= 10 {
			if _, ok := weekdayFromDigit(info % 10); !ok {
				return fmt.Errorf("%w: specified_days digit in %d", ErrInvalidRepeat, repeatInfo)
			}
		}
		return nil
	case RepeatWithInterval:
		if repeatInfo <= 0 {
			return fmt.Errorf("%w: interval must be positive, got %d", ErrInvalidRepeat, repeatInfo)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown repeat type %q", ErrInvalidRepeat, repeatType)
	}
}
