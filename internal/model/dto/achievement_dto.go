package dto

// ========== Achievement 相关 DTO ==========

// CreateAchievementRequest 记录一条成就请求
type CreateAchievementRequest struct {
	Date string `json:"date"` // YYYY-MM-DD，缺省为当天
	Text string `json:"text"`
}

// UpdateAchievementTextRequest 修改成就文本请求，日期与 ID 不变
type UpdateAchievementTextRequest struct {
	Text string `json:"text"`
}

// AchievementData 单条成就响应数据
type AchievementData struct {
	ID      int64  `json:"id"`
	WorkID  int64  `json:"work_id"`
	Date    string `json:"date"`
	Text    string `json:"text"`
	Pending bool   `json:"pending"`
}
