package dto

// ── 科目模块 DTO ──

// CreateSubjectRequest 创建科目请求
// Threshold 为空时使用配置的默认阈值
type CreateSubjectRequest struct {
	Name      string `json:"name"      binding:"max=100"`
	Type      string `json:"type"      binding:"omitempty,max=30"`
	Threshold *int   `json:"threshold"`
}

// UpdateSubjectRequest 更新科目请求（计数只能通过手动校正修改）
type UpdateSubjectRequest struct {
	Name      *string `json:"name"      binding:"omitempty,max=100"`
	Type      *string `json:"type"      binding:"omitempty,max=30"`
	Threshold *int    `json:"threshold"`
}

// SubjectResponse 科目信息响应
type SubjectResponse struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Threshold        int     `json:"threshold"`
	AttendedClasses  int     `json:"attended_classes"`
	TotalClasses     int     `json:"total_classes"`
	Percentage       float64 `json:"percentage"`        // 基于缓存计数
	LedgerPercentage float64 `json:"ledger_percentage"` // 基于考勤流水，仅详情接口返回
	BelowThreshold   bool    `json:"below_threshold"`
	ClassesNeeded    int     `json:"classes_needed"`   // 连续出勤多少节可回到阈值
	ClassesCanMiss   int     `json:"classes_can_miss"` // 在不低于阈值的前提下还可缺勤多少节
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

// SubjectBrief 科目简要信息（嵌入课表条目响应）
type SubjectBrief struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
