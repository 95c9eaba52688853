package model

// Achievement 单条成就记录，挂在一个 Work 的某个日历日期下。
// 日期创建后不可变，同一天同一个 Work 可以有多条记录。
type Achievement struct {
	BaseModel
	WorkID int64  `gorm:"not null;index:idx_achievements_work_date" json:"work_id"`
	Date   string `gorm:"type:varchar(10);not null;index:idx_achievements_work_date" json:"date"` // YYYY-MM-DD，设备本地
	Text   string `gorm:"type:varchar(500);not null;default:''" json:"text"`

	// 乐观创建时的客户端幂等键，服务端原样回写，
	// 本地临时 ID 兑换为服务端 ID 时按它匹配
	IdempotencyKey string `gorm:"uniqueIndex;type:varchar(36);not null;default:''" json:"idempotency_key"`
}

// TableName 指定表名
func (Achievement) TableName() string {
	return "achievements"
}
