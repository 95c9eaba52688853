package model

import "encoding/json"

// 实时变更事件。远端写入成功后发布，订阅方据此触发去抖动的全量拉取。

type ChangeEventType string

const (
	ChangeInsert ChangeEventType = "insert"
	ChangeUpdate ChangeEventType = "update"
	ChangeDelete ChangeEventType = "delete"
)

// 事件表名
const (
	TableProfiles     = "profiles"
	TableWorks        = "works"
	TableAchievements = "achievements"
)

// ChangeEvent 单条表变更事件。
// profiles/works 事件携带 ProfileID，可以在路由层按档案过滤；
// achievements 表没有直接的 profile 外键，只带 WorkID，
// 订阅方需用本地维护的 work id 集合做客户端过滤。
type ChangeEvent struct {
	MessageID  string          `json:"message_id"`
	Table      string          `json:"table"`
	EventType  ChangeEventType `json:"event_type"`
	ProfileID  int64           `json:"profile_id,omitempty"`
	WorkID     int64           `json:"work_id,omitempty"`
	Old        json.RawMessage `json:"old,omitempty"`
	New        json.RawMessage `json:"new,omitempty"`
	OccurredAt string          `json:"occurred_at"` // RFC3339
}
