package dto

// ── 考勤模块 DTO ──

// MarkSlotsRequest 按时段打卡请求
type MarkSlotsRequest struct {
	SubjectID int64   `json:"subject_id" binding:"required"`
	SlotIDs   []int64 `json:"slot_ids"   binding:"required,min=1,dive,gt=0"`
	Date      string  `json:"date"       binding:"required"` // YYYY-MM-DD
	Status    string  `json:"status"     binding:"required,oneof=PRESENT ABSENT"`
}

// MarkEntryRequest 按课表条目打卡请求（滑动打卡）
type MarkEntryRequest struct {
	EntryID int64  `json:"entry_id" binding:"required"`
	Date    string `json:"date"     binding:"required"`
	Status  string `json:"status"   binding:"required,oneof=PRESENT ABSENT"`
}

// UpdateStatusRequest 修改某日出勤状态请求
type UpdateStatusRequest struct {
	Date   string `json:"date"   binding:"required"`
	Status string `json:"status" binding:"required,oneof=PRESENT ABSENT"`
}

// ManualHistoryRequest 手动补录历史请求
type ManualHistoryRequest struct {
	Date string `json:"date" binding:"required"`
	Note string `json:"note" binding:"max=500"`
}

// ManualOverrideRequest 手动校正计数请求，Date 为空时取当天
type ManualOverrideRequest struct {
	Attended int    `json:"attended"`
	Total    int    `json:"total"`
	Note     string `json:"note" binding:"max=500"`
	Date     string `json:"date"`
}

// MarkResultResponse 打卡结果
type MarkResultResponse struct {
	SubjectID       int64  `json:"subject_id"`
	Action          string `json:"action"` // marked | flipped | unchanged | skipped
	Date            string `json:"date"`
	Status          string `json:"status"`
	AttendedClasses int    `json:"attended_classes"`
	TotalClasses    int    `json:"total_classes"`
}

// AttendanceRecordResponse 考勤流水响应
type AttendanceRecordResponse struct {
	ID        int64   `json:"id"`
	SubjectID int64   `json:"subject_id"`
	SlotID    int64   `json:"slot_id"`
	Date      string  `json:"date"`
	Status    string  `json:"status"`
	Note      *string `json:"note,omitempty"`
	Manual    bool    `json:"manual"`
}

// StatusOnResponse 某日出勤状态，Status 为空表示未打卡
type StatusOnResponse struct {
	SubjectID int64   `json:"subject_id"`
	Date      string  `json:"date"`
	Status    *string `json:"status"`
}

// PercentageResponse 基于流水的出勤率
type PercentageResponse struct {
	SubjectID  int64   `json:"subject_id"`
	Percentage float64 `json:"percentage"`
}

// OverrideResponse 手动校正审计记录
type OverrideResponse struct {
	ID           int64  `json:"id"`
	SubjectID    int64  `json:"subject_id"`
	PrevAttended int    `json:"prev_attended"`
	PrevTotal    int    `json:"prev_total"`
	NewAttended  int    `json:"new_attended"`
	NewTotal     int    `json:"new_total"`
	Note         string `json:"note"`
	Date         string `json:"date"`
	CreatedAt    string `json:"created_at"`
}
