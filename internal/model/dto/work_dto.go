package dto

// ========== Work 相关 DTO ==========

// CreateWorkRequest 新建 work 请求
type CreateWorkRequest struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// UpdateWorkRequest 更新 work 请求，nil 字段不变
type UpdateWorkRequest struct {
	Name        *string `json:"name"`
	Color       *string `json:"color"`
	Description *string `json:"description"`
}

// SetSkipRequest 设置跳过指令请求
type SetSkipRequest struct {
	Kind string `json:"kind"` // none, from_tomorrow, indefinite
}

// WorkData 单个 work 的响应数据
type WorkData struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
	SkipKind    string `json:"skip_kind"`
	SkipDate    string `json:"skip_date,omitempty"`
	ActiveToday bool   `json:"active_today"`
	Pending     bool   `json:"pending"` // 仍持有客户端临时 ID，尚未被服务端确认
}
