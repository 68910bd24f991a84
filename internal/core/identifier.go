package core

import (
	"fmt"
)

// InstanceID derives the storage identity of "this task, on this day".
// It is a pure function of the definition id and the civil date, so
// re-querying a date always resolves to the same row. The display name is
// deliberately excluded: renaming a definition must never mint a second
// identifier for an already-materialized date.
//
// The fixed-width date keeps the format injective over (id, date) pairs,
// which matters because the string doubles as the primary key for the
// instance table.
func InstanceID(taskID int64, day Date) string {
	return fmt.Sprintf("%d-%04d-%02d-%02d", taskID, day.Year, int(day.Month), day.Day)
}
