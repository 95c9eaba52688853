package clock

import (
	"testing"
	"time"
)

func TestTodayUsesInjectedNow(t *testing.T) {
	fixed := time.Date(2024, 1, 10, 23, 59, 59, 0, time.Local)
	s := NewWithNow(func() time.Time { return fixed })

	if got := s.Today(); got != "2024-01-10" {
		t.Fatalf("Today() = %q, want 2024-01-10", got)
	}
}

func TestAddDays(t *testing.T) {
	tests := []struct {
		date string
		days int
		want string
	}{
		{"2024-01-10", -1, "2024-01-09"},
		{"2024-01-01", -1, "2023-12-31"},
		{"2024-02-28", 1, "2024-02-29"}, // 闰年
		{"2023-02-28", 1, "2023-03-01"},
		{"2024-12-31", 1, "2025-01-01"},
		{"not-a-date", 1, "not-a-date"},
	}

	for _, tt := range tests {
		if got := AddDays(tt.date, tt.days); got != tt.want {
			t.Errorf("AddDays(%q, %d) = %q, want %q", tt.date, tt.days, got, tt.want)
		}
	}
}

func TestIsAdjacent(t *testing.T) {
	if !IsAdjacent("2024-01-31", "2024-02-01") {
		t.Error("expected 2024-01-31 -> 2024-02-01 to be adjacent")
	}
	if IsAdjacent("2024-01-01", "2024-01-03") {
		t.Error("expected 2024-01-01 -> 2024-01-03 to not be adjacent")
	}
}

func TestWeekStart(t *testing.T) {
	// 2024-01-10 是周三，所在周的周日是 2024-01-07
	if got := WeekStart("2024-01-10"); got != "2024-01-07" {
		t.Fatalf("WeekStart(2024-01-10) = %q, want 2024-01-07", got)
	}
	// 周日自身
	if got := WeekStart("2024-01-07"); got != "2024-01-07" {
		t.Fatalf("WeekStart(2024-01-07) = %q, want 2024-01-07", got)
	}
}
