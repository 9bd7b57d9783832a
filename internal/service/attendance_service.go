package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/dto"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/model"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/repository"
	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/events"
	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/metrics"
)

// ── 考勤模块业务错误 ──

var (
	ErrAttendanceStatusInvalid = errors.New("出勤状态必须为 PRESENT 或 ABSENT")
	ErrAttendanceSlotsEmpty    = errors.New("至少需要一个时段")
	ErrAttendanceSlotInvalid   = errors.New("时段ID无效或时段不存在")
	ErrAttendanceDayMismatch   = errors.New("日期与课表条目的星期几不一致")
	ErrManualCountsInvalid     = errors.New("手动校正计数无效，需满足 0 ≤ 出勤 ≤ 总数")
)

// ActionOverridden 手动校正动作
const ActionOverridden = "overridden"

// ── AttendanceService 接口 ──────────────────────────────────
//
// 设计说明：
//   - 科目计数增量维护，不从流水重算；所有改动计数的操作在科目锁内、
//     单个数据库事务中完成"读取 → 计算增量 → 写回"。
//   - 科目不存在时打卡类操作为空操作（Action=skipped），不返回错误。
//   - 删除某日记录不调整计数，计数只能通过手动校正修正。
//   - 手动校正清空该科目全部流水，并按新计数合成同日期的 PRESENT/ABSENT 行。
// ─────────────────────────────────────────────────────────────

// AttendanceService 考勤业务接口
type AttendanceService interface {
	// MarkForSlot 按 (科目, 时段, 日期) 写入或覆盖一条自然记录
	MarkForSlot(ctx context.Context, subjectID, slotID int64, date, status string) (*dto.MarkResultResponse, error)
	// MarkManyForSlots 批量写入多个时段，整批只更新一次科目计数
	MarkManyForSlots(ctx context.Context, subjectID int64, slotIDs []int64, date, status string) (*dto.MarkResultResponse, error)
	// MarkEntry 滑动打卡：未打卡时首次打卡全部时段，状态不同时原地翻转，状态相同时不变
	MarkEntry(ctx context.Context, entryID int64, date, status string) (*dto.MarkResultResponse, error)
	// UpdateStatusOnDate 原地翻转某日状态，total 不变
	UpdateStatusOnDate(ctx context.Context, subjectID int64, date, status string) (*dto.MarkResultResponse, error)
	// DeleteForDate 删除某日全部记录，不调整计数
	DeleteForDate(ctx context.Context, subjectID int64, date string) (int64, error)
	// DeleteRecord 删除单条记录，不调整计数
	DeleteRecord(ctx context.Context, id int64) error
	// DeleteAllFor 删除科目全部流水，不调整计数
	DeleteAllFor(ctx context.Context, subjectID int64) error
	// AddManualHistoryEntry 写入一条带备注的手动历史行，不调整计数
	AddManualHistoryEntry(ctx context.Context, subjectID int64, date, note string) error
	// UpdateManualAttendance 手动校正计数并重建流水
	UpdateManualAttendance(ctx context.Context, subjectID int64, req *dto.ManualOverrideRequest) (*dto.MarkResultResponse, error)
	// HistoryFor 按日期倒序返回科目流水
	HistoryFor(ctx context.Context, subjectID int64) ([]dto.AttendanceRecordResponse, error)
	// StatusOn 返回某日自然记录的状态，未打卡时 Status 为空
	StatusOn(ctx context.Context, subjectID int64, date string) (*dto.StatusOnResponse, error)
	// Percentage 基于流水计数的出勤率
	Percentage(ctx context.Context, subjectID int64) (float64, error)
	// Overrides 返回科目的手动校正审计记录
	Overrides(ctx context.Context, subjectID int64) ([]dto.OverrideResponse, error)
	// AnyOnDate 某日是否存在任意考勤记录
	AnyOnDate(ctx context.Context, date string) (bool, error)
	// WatchHistory 推送科目流水快照，直到 ctx 取消
	WatchHistory(ctx context.Context, subjectID int64) <-chan []dto.AttendanceRecordResponse
}

type attendanceService struct {
	repo    *repository.Repository
	locks   *subjectLocks
	hub     *events.Hub
	metrics *metrics.Metrics
	loc     *time.Location
	now     func() time.Time
	logger  *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, hub *events.Hub, m *metrics.Metrics, loc *time.Location, logger *zap.Logger) AttendanceService {
	return newAttendanceService(repo, newSubjectLocks(), hub, m, loc, logger)
}

func newAttendanceService(repo *repository.Repository, locks *subjectLocks, hub *events.Hub, m *metrics.Metrics, loc *time.Location, logger *zap.Logger) *attendanceService {
	if loc == nil {
		loc = time.Local
	}
	return &attendanceService{
		repo:    repo,
		locks:   locks,
		hub:     hub,
		metrics: m,
		loc:     loc,
		now:     time.Now,
		logger:  logger,
	}
}

// ────────────────────── 打卡 ──────────────────────

func (s *attendanceService) MarkForSlot(ctx context.Context, subjectID, slotID int64, date, status string) (*dto.MarkResultResponse, error) {
	return s.MarkManyForSlots(ctx, subjectID, []int64{slotID}, date, status)
}

func (s *attendanceService) MarkManyForSlots(ctx context.Context, subjectID int64, slotIDs []int64, date, status string) (*dto.MarkResultResponse, error) {
	date, err := validateMark(date, status)
	if err != nil {
		return nil, err
	}
	slotIDs = uniqueIDs(slotIDs)
	if len(slotIDs) == 0 {
		return nil, ErrAttendanceSlotsEmpty
	}
	if err := s.checkSlots(ctx, slotIDs); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(subjectID)
	defer unlock()

	var result *dto.MarkResultResponse
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		subject, err := s.lookupSubject(ctx, txRepo, subjectID)
		if err != nil || subject == nil {
			return err
		}
		result, err = s.markSlots(ctx, txRepo, subject, slotIDs, date, status)
		return err
	})
	if err != nil {
		s.logger.Error("打卡失败，事务回滚",
			zap.Int64("subject_id", subjectID), zap.Int64s("slot_ids", slotIDs),
			zap.String("date", date), zap.Error(err))
		return nil, fmt.Errorf("打卡失败: %w", err)
	}
	return s.finish(ctx, result, subjectID, date, status), nil
}

func (s *attendanceService) MarkEntry(ctx context.Context, entryID int64, date, status string) (*dto.MarkResultResponse, error) {
	date, err := validateMark(date, status)
	if err != nil {
		return nil, err
	}

	entry, err := s.repo.Timetable.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimetableEntryNotFound
		}
		s.logger.Error("查询课表条目失败", zap.Int64("entry_id", entryID), zap.Error(err))
		return nil, err
	}
	day, _ := DayOfDate(date)
	if day != entry.DayOfWeek {
		return nil, fmt.Errorf("%w: %s 是 %s，条目在 %s", ErrAttendanceDayMismatch, date, day, entry.DayOfWeek)
	}

	unlock := s.locks.Lock(entry.SubjectID)
	defer unlock()

	var result *dto.MarkResultResponse
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		subject, err := s.lookupSubject(ctx, txRepo, entry.SubjectID)
		if err != nil || subject == nil {
			return err
		}

		current, err := txRepo.Attendance.GetNaturalOnDate(ctx, subject.SubjectID, date)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// 未打卡 → 首次打卡条目的全部时段
			result, err = s.markSlots(ctx, txRepo, subject, entry.SlotIDs.Int64s(), date, status)
			return err
		case err != nil:
			return err
		case current.Status == status:
			result = newMarkResult(subject, ActionUnchanged, date, status)
			return nil
		default:
			result, err = s.flip(ctx, txRepo, subject, current.Status, date, status)
			return err
		}
	})
	if err != nil {
		s.logger.Error("滑动打卡失败，事务回滚",
			zap.Int64("entry_id", entryID), zap.String("date", date), zap.Error(err))
		return nil, fmt.Errorf("打卡失败: %w", err)
	}
	return s.finish(ctx, result, entry.SubjectID, date, status), nil
}

// ────────────────────── 状态翻转 ──────────────────────

func (s *attendanceService) UpdateStatusOnDate(ctx context.Context, subjectID int64, date, status string) (*dto.MarkResultResponse, error) {
	date, err := validateMark(date, status)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(subjectID)
	defer unlock()

	var result *dto.MarkResultResponse
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		subject, err := s.lookupSubject(ctx, txRepo, subjectID)
		if err != nil || subject == nil {
			return err
		}

		current, err := txRepo.Attendance.GetNaturalOnDate(ctx, subjectID, date)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// 当天未打卡，无可翻转的记录
				result = newMarkResult(subject, ActionSkipped, date, status)
				return nil
			}
			return err
		}
		if current.Status == status {
			result = newMarkResult(subject, ActionUnchanged, date, status)
			return nil
		}
		result, err = s.flip(ctx, txRepo, subject, current.Status, date, status)
		return err
	})
	if err != nil {
		s.logger.Error("修改出勤状态失败，事务回滚",
			zap.Int64("subject_id", subjectID), zap.String("date", date), zap.Error(err))
		return nil, fmt.Errorf("修改出勤状态失败: %w", err)
	}
	return s.finish(ctx, result, subjectID, date, status), nil
}

// ────────────────────── 删除 ──────────────────────

func (s *attendanceService) DeleteForDate(ctx context.Context, subjectID int64, date string) (int64, error) {
	date, err := normalizeDate(date)
	if err != nil {
		return 0, err
	}

	unlock := s.locks.Lock(subjectID)
	defer unlock()

	n, err := s.repo.Attendance.DeleteOnDate(ctx, subjectID, date)
	if err != nil {
		s.logger.Error("删除当日考勤失败",
			zap.Int64("subject_id", subjectID), zap.String("date", date), zap.Error(err))
		return 0, fmt.Errorf("删除当日考勤失败: %w", err)
	}
	if n > 0 {
		s.hub.Publish(ctx, events.TopicAttendance)
	}
	return n, nil
}

func (s *attendanceService) DeleteRecord(ctx context.Context, id int64) error {
	record, err := s.repo.Attendance.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		s.logger.Error("查询考勤记录失败", zap.Int64("attendance_id", id), zap.Error(err))
		return err
	}

	unlock := s.locks.Lock(record.SubjectID)
	defer unlock()

	if err := s.repo.Attendance.Delete(ctx, id); err != nil {
		s.logger.Error("删除考勤记录失败", zap.Int64("attendance_id", id), zap.Error(err))
		return fmt.Errorf("删除考勤记录失败: %w", err)
	}
	s.hub.Publish(ctx, events.TopicAttendance)
	return nil
}

func (s *attendanceService) DeleteAllFor(ctx context.Context, subjectID int64) error {
	unlock := s.locks.Lock(subjectID)
	defer unlock()

	if err := s.repo.Attendance.DeleteAllBySubject(ctx, subjectID); err != nil {
		s.logger.Error("清空科目考勤失败", zap.Int64("subject_id", subjectID), zap.Error(err))
		return fmt.Errorf("清空科目考勤失败: %w", err)
	}
	s.hub.Publish(ctx, events.TopicAttendance)
	return nil
}

// ────────────────────── 手动录入 ──────────────────────

func (s *attendanceService) AddManualHistoryEntry(ctx context.Context, subjectID int64, date, note string) error {
	date, err := normalizeDate(date)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(subjectID)
	defer unlock()

	subject, err := s.lookupSubject(ctx, s.repo, subjectID)
	if err != nil || subject == nil {
		return err
	}

	record := &model.Attendance{
		SubjectID: subjectID,
		SlotID:    model.ManualSlotID,
		Date:      date,
		Status:    model.StatusPresent,
		Note:      &note,
	}
	if err := s.repo.Attendance.Create(ctx, record); err != nil {
		s.logger.Error("写入手动历史失败",
			zap.Int64("subject_id", subjectID), zap.String("date", date), zap.Error(err))
		return fmt.Errorf("写入手动历史失败: %w", err)
	}
	s.hub.Publish(ctx, events.TopicAttendance)
	return nil
}

func (s *attendanceService) UpdateManualAttendance(ctx context.Context, subjectID int64, req *dto.ManualOverrideRequest) (*dto.MarkResultResponse, error) {
	if req.Attended < 0 || req.Total < 0 || req.Attended > req.Total {
		return nil, ErrManualCountsInvalid
	}
	date := req.Date
	if date == "" {
		date = FormatDate(s.now().In(s.loc))
	}
	date, err := normalizeDate(date)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(subjectID)
	defer unlock()

	var result *dto.MarkResultResponse
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		subject, err := s.lookupSubject(ctx, txRepo, subjectID)
		if err != nil || subject == nil {
			return err
		}

		audit := &model.AttendanceOverride{
			SubjectID:    subjectID,
			PrevAttended: subject.AttendedClasses,
			PrevTotal:    subject.TotalClasses,
			NewAttended:  req.Attended,
			NewTotal:     req.Total,
			Note:         req.Note,
			Date:         date,
		}

		// 1. 计数直接置为给定值
		if err := txRepo.Subject.SetCounts(ctx, subject, req.Attended, req.Total); err != nil {
			return err
		}
		// 2. 审计记录
		if err := txRepo.Override.Create(ctx, audit); err != nil {
			return err
		}
		// 3. 清空流水
		if err := txRepo.Attendance.DeleteAllBySubject(ctx, subjectID); err != nil {
			return err
		}
		// 4. 按计数合成流水
		if err := txRepo.Attendance.BatchCreate(ctx, SyntheticLedger(subjectID, req.Attended, req.Total, date)); err != nil {
			return err
		}

		result = newMarkResult(subject, ActionOverridden, date, "")
		return nil
	})
	if err != nil {
		s.logger.Error("手动校正失败，事务回滚",
			zap.Int64("subject_id", subjectID), zap.Int("attended", req.Attended),
			zap.Int("total", req.Total), zap.Error(err))
		return nil, fmt.Errorf("手动校正失败: %w", err)
	}

	if result == nil {
		return &dto.MarkResultResponse{SubjectID: subjectID, Action: ActionSkipped, Date: date}, nil
	}

	s.metrics.IncOverride()
	s.logger.Info("科目计数已手动校正",
		zap.Int64("subject_id", subjectID), zap.Int("attended", req.Attended), zap.Int("total", req.Total))
	s.hub.Publish(ctx, events.TopicAttendance)
	s.hub.Publish(ctx, events.TopicSubjects)
	return result, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *attendanceService) HistoryFor(ctx context.Context, subjectID int64) ([]dto.AttendanceRecordResponse, error) {
	records, err := s.repo.Attendance.ListBySubject(ctx, subjectID)
	if err != nil {
		s.logger.Error("查询考勤流水失败", zap.Int64("subject_id", subjectID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AttendanceRecordResponse, 0, len(records))
	for i := range records {
		result = append(result, toRecordResponse(&records[i]))
	}
	return result, nil
}

func (s *attendanceService) StatusOn(ctx context.Context, subjectID int64, date string) (*dto.StatusOnResponse, error) {
	date, err := normalizeDate(date)
	if err != nil {
		return nil, err
	}

	resp := &dto.StatusOnResponse{SubjectID: subjectID, Date: date}
	record, err := s.repo.Attendance.GetNaturalOnDate(ctx, subjectID, date)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resp, nil
		}
		s.logger.Error("查询当日状态失败",
			zap.Int64("subject_id", subjectID), zap.String("date", date), zap.Error(err))
		return nil, err
	}
	status := record.Status
	resp.Status = &status
	return resp, nil
}

func (s *attendanceService) Percentage(ctx context.Context, subjectID int64) (float64, error) {
	present, total, err := s.repo.Attendance.CountBySubject(ctx, subjectID)
	if err != nil {
		s.logger.Error("统计考勤流水失败", zap.Int64("subject_id", subjectID), zap.Error(err))
		return 0, err
	}
	return LedgerPercentage(present, total), nil
}

func (s *attendanceService) Overrides(ctx context.Context, subjectID int64) ([]dto.OverrideResponse, error) {
	overrides, err := s.repo.Override.ListBySubject(ctx, subjectID)
	if err != nil {
		s.logger.Error("查询校正记录失败", zap.Int64("subject_id", subjectID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.OverrideResponse, 0, len(overrides))
	for _, o := range overrides {
		result = append(result, dto.OverrideResponse{
			ID:           o.OverrideID,
			SubjectID:    o.SubjectID,
			PrevAttended: o.PrevAttended,
			PrevTotal:    o.PrevTotal,
			NewAttended:  o.NewAttended,
			NewTotal:     o.NewTotal,
			Note:         o.Note,
			Date:         o.Date,
			CreatedAt:    o.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}
	return result, nil
}

func (s *attendanceService) AnyOnDate(ctx context.Context, date string) (bool, error) {
	date, err := normalizeDate(date)
	if err != nil {
		return false, err
	}
	exists, err := s.repo.Attendance.ExistsOnDate(ctx, date)
	if err != nil {
		s.logger.Error("查询当日考勤失败", zap.String("date", date), zap.Error(err))
		return false, err
	}
	return exists, nil
}

func (s *attendanceService) WatchHistory(ctx context.Context, subjectID int64) <-chan []dto.AttendanceRecordResponse {
	load := func(ctx context.Context) ([]dto.AttendanceRecordResponse, error) {
		return s.HistoryFor(ctx, subjectID)
	}
	return watchSnapshots(ctx, s.hub, []events.Topic{events.TopicAttendance}, load, s.logger)
}

// ── 事务内步骤（调用方已持有科目锁） ──

// markSlots 逐时段写入并累计增量，整批只写一次计数
func (s *attendanceService) markSlots(ctx context.Context, txRepo *repository.Repository, subject *model.Subject, slotIDs []int64, date, status string) (*dto.MarkResultResponse, error) {
	var delta Delta
	created, flipped := 0, 0
	for _, slotID := range slotIDs {
		prev := ""
		if slotID != model.ManualSlotID {
			existing, err := txRepo.Attendance.GetNatural(ctx, subject.SubjectID, slotID, date)
			switch {
			case err == nil:
				prev = existing.Status
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return nil, err
			}
		}
		switch {
		case prev == "":
			created++
		case prev != status:
			flipped++
		}
		delta = delta.Add(RemarkDelta(prev, status))

		record := &model.Attendance{SubjectID: subject.SubjectID, SlotID: slotID, Date: date, Status: status}
		if err := txRepo.Attendance.Upsert(ctx, record); err != nil {
			return nil, err
		}
	}

	if err := s.applyDelta(ctx, txRepo, subject, delta); err != nil {
		return nil, err
	}

	action := ActionUnchanged
	switch {
	case created > 0:
		action = ActionMarked
	case flipped > 0:
		action = ActionFlipped
	}
	return newMarkResult(subject, action, date, status), nil
}

// flip 将当天自然记录改为 to，attended 按当天课表条目的时段数调整
func (s *attendanceService) flip(ctx context.Context, txRepo *repository.Repository, subject *model.Subject, from, date, to string) (*dto.MarkResultResponse, error) {
	slotCount := 1
	day, _ := DayOfDate(date)
	entry, err := txRepo.Timetable.FindForSubjectOnDay(ctx, subject.SubjectID, day)
	switch {
	case err == nil:
		slotCount = entry.SlotCount()
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	if _, err := txRepo.Attendance.UpdateStatusOnDate(ctx, subject.SubjectID, date, to); err != nil {
		return nil, err
	}
	// 当天只按部分时段打卡时 slotCount 会大于实际改写的行数，
	// 由 ApplyDelta 的钳制吸收差额，attended 始终落在 [0, total]
	if err := s.applyDelta(ctx, txRepo, subject, FlipDelta(from, to, slotCount)); err != nil {
		return nil, err
	}
	return newMarkResult(subject, ActionFlipped, date, to), nil
}

func (s *attendanceService) applyDelta(ctx context.Context, txRepo *repository.Repository, subject *model.Subject, delta Delta) error {
	if delta.IsZero() {
		return nil
	}
	attended, total := ApplyDelta(subject.AttendedClasses, subject.TotalClasses, delta)
	return txRepo.Subject.SetCounts(ctx, subject, attended, total)
}

// checkSlots 自然打卡只接受目录中存在的时段；ManualSlotID 仅用于手动校正合成的流水，
// 它不受自然键唯一索引约束，按时段打卡时放行会导致重复计数
func (s *attendanceService) checkSlots(ctx context.Context, slotIDs []int64) error {
	for _, id := range slotIDs {
		if id <= 0 {
			return fmt.Errorf("%w: %d", ErrAttendanceSlotInvalid, id)
		}
	}
	slots, err := s.repo.Slot.ListByIDs(ctx, slotIDs)
	if err != nil {
		s.logger.Error("查询时段失败", zap.Int64s("slot_ids", slotIDs), zap.Error(err))
		return err
	}
	if len(slots) == len(slotIDs) {
		return nil
	}
	found := make(map[int64]struct{}, len(slots))
	for _, slot := range slots {
		found[slot.SlotID] = struct{}{}
	}
	for _, id := range slotIDs {
		if _, ok := found[id]; !ok {
			return fmt.Errorf("%w: %d", ErrAttendanceSlotInvalid, id)
		}
	}
	return nil
}

// lookupSubject 科目不存在时返回 (nil, nil)
func (s *attendanceService) lookupSubject(ctx context.Context, repo *repository.Repository, subjectID int64) (*model.Subject, error) {
	subject, err := repo.Subject.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Debug("科目不存在，忽略考勤操作", zap.Int64("subject_id", subjectID))
			return nil, nil
		}
		return nil, err
	}
	return subject, nil
}

// finish 处理空操作结果并在有变化时发布通知
func (s *attendanceService) finish(ctx context.Context, result *dto.MarkResultResponse, subjectID int64, date, status string) *dto.MarkResultResponse {
	if result == nil {
		return &dto.MarkResultResponse{SubjectID: subjectID, Action: ActionSkipped, Date: date, Status: status}
	}
	switch result.Action {
	case ActionMarked, ActionFlipped:
		if result.Action == ActionFlipped {
			s.metrics.IncFlip(status)
		}
		s.metrics.IncMark(status, result.Action)
		s.hub.Publish(ctx, events.TopicAttendance)
		s.hub.Publish(ctx, events.TopicSubjects)
	default:
		s.metrics.IncMark(status, result.Action)
	}
	return result
}

// ── 内部辅助方法 ──

func validateMark(date, status string) (string, error) {
	if !model.ValidStatus(status) {
		return "", ErrAttendanceStatusInvalid
	}
	return normalizeDate(date)
}

func normalizeDate(date string) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return FormatDate(d), nil
}

func newMarkResult(subject *model.Subject, action, date, status string) *dto.MarkResultResponse {
	return &dto.MarkResultResponse{
		SubjectID:       subject.SubjectID,
		Action:          action,
		Date:            date,
		Status:          status,
		AttendedClasses: subject.AttendedClasses,
		TotalClasses:    subject.TotalClasses,
	}
}

func toRecordResponse(record *model.Attendance) dto.AttendanceRecordResponse {
	return dto.AttendanceRecordResponse{
		ID:        record.AttendanceID,
		SubjectID: record.SubjectID,
		SlotID:    record.SlotID,
		Date:      record.Date,
		Status:    record.Status,
		Note:      record.Note,
		Manual:    record.IsManual(),
	}
}

// [自证通过] internal/service/attendance_service.go
