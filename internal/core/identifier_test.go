package core

import (
	"testing"
	"time"
)

func TestInstanceID_Format(t *testing.T) {
	id := InstanceID(42, Date{Year: 2023, Month: time.August, Day: 5})
	if id != "42-2023-08-05" {
		t.Errorf("expected 42-2023-08-05, got %q", id)
	}
}

func TestInstanceID_DistinctDates(t *testing.T) {
	seen := make(map[string]Date)
	for m := time.January; m <= time.December; m++ {
		for d := 1; d <= 28; d++ {
			date := Date{Year: 2023, Month: m, Day: d}
			id := InstanceID(7, date)
			if prev, ok := seen[id]; ok {
				t.Fatalf("identifier %q collides for %v and %v", id, prev, date)
			}
			seen[id] = date
		}
	}
}

func TestInstanceID_DistinctTasks(t *testing.T) {
	date := Date{Year: 2023, Month: time.January, Day: 1}
	if InstanceID(1, date) == InstanceID(2, date) {
		t.Error("different tasks must derive different identifiers")
	}
	// Concatenation of id digits must not collide with another id either:
	// 1 on 2023-01-01 vs 12 on any date.
	if InstanceID(1, date) == InstanceID(12, date) {
		t.Error("identifier is not injective over task ids")
	}
}
