package core

import (
	"time"
)

// RepeatType selects how a task definition's repeat_info is interpreted.
type RepeatType string

const (
	// RepeatNone schedules a single occurrence on the definition's start date.
	RepeatNone RepeatType = "none"
	// RepeatMonthly repeats on a fixed day of every month; repeat_info is the
	// day-of-month (1-31). A value of 31 simply never matches in shorter months.
	RepeatMonthly RepeatType = "monthly"
	// RepeatMonthlyDay repeats on the Nth weekday of every month; repeat_info
	// is a two-digit composite WN (W = ordinal week, N = weekday digit).
	RepeatMonthlyDay RepeatType = "monthly_day"
	// RepeatSpecifiedDays repeats on a set of weekdays; each decimal digit of
	// repeat_info encodes one weekday (1=Monday .. 6=Saturday, 7=Sunday).
	RepeatSpecifiedDays RepeatType = "specified_days"
	// RepeatWithInterval repeats every repeat_info days counted from the
	// definition's start date.
	RepeatWithInterval RepeatType = "interval"
)

// Valid reports whether rt is a known repeat type.
func (rt RepeatType) Valid() bool {
	switch rt {
	case RepeatNone, RepeatMonthly, RepeatMonthlyDay, RepeatSpecifiedDays, RepeatWithInterval:
		return true
	}
	return false
}

// InstanceState describes the completion lifecycle of a task instance.
type InstanceState string

const (
	StateNotStarted InstanceState = "not_started"
	StateStarted    InstanceState = "started"
	StateFinished   InstanceState = "finished"
	StateSkipped    InstanceState = "skipped"
)

// TaskData is the persisted record of a recurring task definition.
type TaskData struct {
	ID int64
	// Name is the display name. It is copied into instances at
	// materialization time and never used for instance identity.
	Name string
	// ScheduledStart is the first occurrence. After creation only its
	// time-of-day matters, except for RepeatNone where the full date is
	// the single occurrence.
	ScheduledStart time.Time
	State          string
	Comment        string
	RepeatType     RepeatType
	RepeatInfo     int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// InstanceData is the persisted record of one occurrence of a task
// definition on one date. Its ID is derived from (parent id, date) and
// doubles as the storage primary key.
type InstanceData struct {
	ID             string
	ParentID       int64
	Name           string
	ScheduledStart time.Time
	StartTime      *time.Time
	FinishTime     *time.Time
	TimeSpent      time.Duration
	Comment        string
	State          InstanceState
	CreatedAt      time.Time
}
