package streak

import (
	"sort"

	"OnTrack/internal/clock"
)

// 纯函数的连胜计算。输入统一为"有成就的日期集合"，
// 跳过指令在这里不生效：连胜只看有没有记录，不看 work 是否在追踪。

// Current 从 asOf 起向前逐日回溯，遇到第一个空缺日期即停。
// 复杂度 O(连胜长度)。
func Current(dates map[string]bool, asOf string) int {
	count := 0
	for day := asOf; dates[day]; day = clock.Yesterday(day) {
		count++
	}
	return count
}

// Longest 收集全部日期升序扫描，找最长的逐日相邻区间。
// 单个孤立日期算长度 1。
func Longest(dates map[string]bool) int {
	if len(dates) == 0 {
		return 0
	}

	sorted := make([]string, 0, len(dates))
	for day := range dates {
		sorted = append(sorted, day)
	}
	sort.Strings(sorted)

	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if clock.IsAdjacent(sorted[i-1], sorted[i]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	return longest
}

// Week 周日起始的一周完成情况
type Week struct {
	StartDate string
	Days      [7]bool
	Perfect   bool // 七天全部有成就
}

// WeeklyGrid 生成滚动窗口的周网格：以 asOf 所在周为最后一周，向前共 weeks 周。
func WeeklyGrid(dates map[string]bool, asOf string, weeks int) []Week {
	if weeks <= 0 {
		return nil
	}

	lastWeekStart := clock.WeekStart(asOf)
	grid := make([]Week, 0, weeks)

	for i := weeks - 1; i >= 0; i-- {
		start := clock.AddDays(lastWeekStart, -7*i)
		w := Week{StartDate: start, Perfect: true}
		for day := 0; day < 7; day++ {
			done := dates[clock.AddDays(start, day)]
			w.Days[day] = done
			if !done {
				w.Perfect = false
			}
		}
		grid = append(grid, w)
	}

	return grid
}
