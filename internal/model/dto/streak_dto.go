package dto

// ========== Streak 相关 DTO ==========

// StreakData 连胜状态响应
type StreakData struct {
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	AsOf          string `json:"as_of"` // 计算基准日期
}

// WeekData 周网格中的一周，周日起始
type WeekData struct {
	StartDate string  `json:"start_date"`
	Days      [7]bool `json:"days"`
	Perfect   bool    `json:"perfect"`
}

// WeeklyGridData 周网格响应
type WeeklyGridData struct {
	Weeks []WeekData `json:"weeks"`
}
