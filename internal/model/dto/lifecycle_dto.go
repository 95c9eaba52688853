package dto

// ========== 生命周期信号 DTO ==========

// LifecycleSignalRequest 宿主应用上报的前后台切换信号
type LifecycleSignalRequest struct {
	Signal string `json:"signal"` // foreground, background
}

// PopupPollData 弹窗轮询响应，Popups 为空表示无事可展示
type PopupPollData struct {
	Popups []PopupData `json:"popups"`
}

// PopupData 单个弹窗
type PopupData struct {
	Kind       string `json:"kind"`
	Date       string `json:"date"`
	DaysWasted int    `json:"days_wasted,omitempty"`
}
