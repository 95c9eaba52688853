package model

// PopupKind 弹窗类型的封闭枚举。
// 三种日切弹窗互斥由仲裁流程的短路顺序保证，
// 两种边沿触发弹窗独立于日切流程。
type PopupKind string

const (
	PopupWelcomeFirstDay       PopupKind = "welcome_first_day"
	PopupWastedDay             PopupKind = "wasted_day"
	PopupYesterdayCompleted    PopupKind = "yesterday_completed"
	PopupAllWorksFulfilled     PopupKind = "all_works_fulfilled"
	PopupFirstAchievementToday PopupKind = "first_achievement_today"
)

// Popup 一次待展示的弹窗事件
type Popup struct {
	Kind       PopupKind `json:"kind"`
	Date       string    `json:"date"`                  // 触发该弹窗的日历日期
	DaysWasted int       `json:"days_wasted,omitempty"` // 仅 wasted_day 使用
}
