package dto

// ── 公共时段模块 DTO ──

// CreateSlotRequest 创建时段请求，时间为 12 小时制 "08:30 AM"
type CreateSlotRequest struct {
	Label     string `json:"label"      binding:"required,max=50"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time"   binding:"required"`
}

// UpdateSlotRequest 更新时段请求
type UpdateSlotRequest struct {
	Label     *string `json:"label"      binding:"omitempty,max=50"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

// SlotResponse 时段信息响应
type SlotResponse struct {
	ID        int64  `json:"id"`
	Label     string `json:"label"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}
