package streak

import "testing"

func dateSet(days ...string) map[string]bool {
	set := make(map[string]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return set
}

func TestCurrentStopsAtFirstGap(t *testing.T) {
	// D-4, D-3, D-2, D 有记录，D-1 空缺，今天是 D
	dates := dateSet("2024-01-06", "2024-01-07", "2024-01-08", "2024-01-10")

	if got := Current(dates, "2024-01-10"); got != 1 {
		t.Fatalf("Current = %d, want 1", got)
	}
}

func TestCurrentUnbrokenRun(t *testing.T) {
	dates := dateSet("2024-01-07", "2024-01-08", "2024-01-09", "2024-01-10")

	if got := Current(dates, "2024-01-10"); got != 4 {
		t.Fatalf("Current = %d, want 4", got)
	}
}

func TestCurrentEmptyToday(t *testing.T) {
	dates := dateSet("2024-01-08", "2024-01-09")

	if got := Current(dates, "2024-01-10"); got != 0 {
		t.Fatalf("Current = %d, want 0 when today has no achievement", got)
	}
}

func TestLongest(t *testing.T) {
	tests := []struct {
		name  string
		dates map[string]bool
		want  int
	}{
		{"empty", dateSet(), 0},
		{"single day", dateSet("2024-01-05"), 1},
		{"two runs", dateSet("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-05", "2024-01-06"), 3},
		{"across month boundary", dateSet("2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Longest(tt.dates); got != tt.want {
				t.Fatalf("Longest = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWeeklyGrid(t *testing.T) {
	// 2024-01-10 是周三；窗口两周：01-07 起和 2023-12-31 起
	dates := dateSet(
		"2023-12-31", "2024-01-01", "2024-01-02", "2024-01-03",
		"2024-01-04", "2024-01-05", "2024-01-06", // 第一周全满
		"2024-01-08", "2024-01-10",
	)

	grid := WeeklyGrid(dates, "2024-01-10", 2)
	if len(grid) != 2 {
		t.Fatalf("len(grid) = %d, want 2", len(grid))
	}

	if grid[0].StartDate != "2023-12-31" || !grid[0].Perfect {
		t.Errorf("first week = %+v, want perfect week starting 2023-12-31", grid[0])
	}

	if grid[1].StartDate != "2024-01-07" {
		t.Errorf("second week starts %s, want 2024-01-07", grid[1].StartDate)
	}
	if grid[1].Perfect {
		t.Error("second week should not be perfect")
	}
	if !grid[1].Days[1] || grid[1].Days[2] || !grid[1].Days[3] {
		t.Errorf("second week days = %v, want Mon and Wed only", grid[1].Days)
	}
}
