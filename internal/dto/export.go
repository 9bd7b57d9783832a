package dto

// ── 导入导出模块 DTO ──

// SubjectRecord 导入导出使用的科目元组
type SubjectRecord struct {
	Name      string
	Type      string
	Threshold int
	Attended  int
	Total     int
}

// ImportSubjectsResponse 批量导入科目响应
type ImportSubjectsResponse struct {
	Total   int                  `json:"total"`
	Success int                  `json:"success"`
	Failed  int                  `json:"failed"`
	Errors  []ImportSubjectError `json:"errors,omitempty"`
}

// ImportSubjectError 导入错误详情
type ImportSubjectError struct {
	Row    int    `json:"row"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}
