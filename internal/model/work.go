package model

// SkipKind 跳过指令枚举
type SkipKind string

const (
	SkipNone         SkipKind = "none"          // 正常追踪
	SkipFromTomorrow SkipKind = "from_tomorrow" // 自生效日期起暂停
	SkipIndefinite   SkipKind = "indefinite"    // 无限期暂停
)

// Work 被追踪的习惯类别模型
type Work struct {
	BaseModel
	ProfileID   int64    `gorm:"not null;index:idx_works_profile" json:"profile_id"`
	Name        string   `gorm:"type:varchar(64);not null" json:"name"`
	Color       string   `gorm:"type:varchar(16);not null;default:''" json:"color"`
	Description string   `gorm:"type:varchar(255);not null;default:''" json:"description"`
	SkipKind    SkipKind `gorm:"type:varchar(16);not null;default:'none'" json:"skip_kind"`
	SkipDate    string   `gorm:"type:varchar(10);not null;default:''" json:"skip_date"` // from_tomorrow 的生效日期

	// 乐观创建时的客户端幂等键，服务端原样回写
	IdempotencyKey string `gorm:"uniqueIndex;type:varchar(36);not null;default:''" json:"idempotency_key"`
}

// TableName 指定表名
func (Work) TableName() string {
	return "works"
}

// IsActiveOn 判断 work 在指定日期是否处于追踪状态。
// from_tomorrow 的生效日期在设置时即保证晚于当天，所以设置当天永远不会被追溯跳过。
func (w *Work) IsActiveOn(date string) bool {
	switch w.SkipKind {
	case SkipIndefinite:
		return false
	case SkipFromTomorrow:
		return w.SkipDate == "" || date < w.SkipDate
	default:
		return true
	}
}
