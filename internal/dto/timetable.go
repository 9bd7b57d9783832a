package dto

// ── 课表模块 DTO ──

// ProposeEntryRequest 新建/编辑课表条目请求
// 空科目名与空时段列表由业务层拒绝，以返回可区分的错误码
type ProposeEntryRequest struct {
	Subject string  `json:"subject"`
	SlotIDs []int64 `json:"slot_ids"`
}

// TimetableEntryResponse 课表条目响应
type TimetableEntryResponse struct {
	ID        int64         `json:"id"`
	DayOfWeek string        `json:"day_of_week"`
	Subject   *SubjectBrief `json:"subject,omitempty"`
	StartTime string        `json:"start_time"`
	EndTime   string        `json:"end_time"`
	SlotIDs   []int         `json:"slot_ids"`
}

// TimetableDayResponse 某个星期几的课表
type TimetableDayResponse struct {
	DayOfWeek string                   `json:"day_of_week"`
	Entries   []TimetableEntryResponse `json:"entries"`
}
