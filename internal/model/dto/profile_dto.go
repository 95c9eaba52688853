package dto

// ========== Profile 相关 DTO ==========

// ProfileData 档案响应数据
type ProfileData struct {
	ID               int64  `json:"id"`
	DisplayName      string `json:"display_name"`
	Birthday         string `json:"birthday,omitempty"`
	RegistrationDate string `json:"registration_date"`
	CurrentStreak    int    `json:"current_streak"`
	LongestStreak    int    `json:"longest_streak"`
	HasAccess        bool   `json:"has_access"` // 试用/订阅闸门
	TrialEndAt       string `json:"trial_end_at,omitempty"`
	Subscribed       bool   `json:"subscribed"`
}

// UpdateProfileRequest 档案编辑请求，注册日期不可修改
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Birthday    *string `json:"birthday"`
}
