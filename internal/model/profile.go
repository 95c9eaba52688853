package model

import "time"

// Profile 用户档案模型
// RegistrationDate 是档案存在的第一天，写入后不可再变更
type Profile struct {
	BaseModel
	UserID           string     `gorm:"uniqueIndex;type:varchar(64);not null" json:"user_id"`
	DisplayName      string     `gorm:"type:varchar(64);not null;default:''" json:"display_name"`
	Birthday         *time.Time `gorm:"type:date" json:"birthday,omitempty"`
	RegistrationDate string     `gorm:"type:varchar(10);not null" json:"registration_date"` // YYYY-MM-DD

	// 连胜缓存，可由成就记录重算；LongestStreak 只增不减
	CurrentStreak int `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak int `gorm:"not null;default:0" json:"longest_streak"`

	// 试用与订阅
	TrialStartAt *time.Time `gorm:"type:timestamptz" json:"trial_start_at,omitempty"`
	TrialEndAt   *time.Time `gorm:"type:timestamptz" json:"trial_end_at,omitempty"`
	Subscribed   bool       `gorm:"not null;default:false" json:"subscribed"`
}

// TableName 指定表名
func (Profile) TableName() string {
	return "profiles"
}

// HasAccess 试用/订阅闸门产出的访问布尔值
func (p *Profile) HasAccess(now time.Time) bool {
	if p.Subscribed {
		return true
	}
	if p.TrialEndAt != nil && now.Before(*p.TrialEndAt) {
		return true
	}
	return false
}
