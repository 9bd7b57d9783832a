package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/dto"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/model"
)

// ── 测试辅助 ──

type timetableFixture struct {
	svc    TimetableService
	mocks  *mockRepos
	s1, s2 int64 // 08:30-09:20, 09:20-10:10
	s3     int64 // 10:30-11:20，与 s2 间隔 20 分钟
	s4     int64 // 11:41-12:30，与 s3 间隔 21 分钟
	s5     int64 // 09:00-09:50，与 s1 相交
}

func setupTestTimetableService() *timetableFixture {
	repo, mocks := newMockRepository()
	f := &timetableFixture{
		svc:   NewTimetableService(repo, nil, nil, 20*time.Minute, zap.NewNop()),
		mocks: mocks,
	}
	f.s1 = mocks.slots.seed("Period 1", "08:30 AM", "09:20 AM")
	f.s2 = mocks.slots.seed("Period 2", "09:20 AM", "10:10 AM")
	f.s3 = mocks.slots.seed("Period 3", "10:30 AM", "11:20 AM")
	f.s4 = mocks.slots.seed("Period 4", "11:41 AM", "12:30 PM")
	f.s5 = mocks.slots.seed("Extra", "09:00 AM", "09:50 AM")
	mocks.subjects.seed("Algebra", 75, 0, 0)
	mocks.subjects.seed("Physics", 75, 0, 0)
	return f
}

func propose(subject string, slots ...int64) *dto.ProposeEntryRequest {
	return &dto.ProposeEntryRequest{Subject: subject, SlotIDs: slots}
}

// ── ProposeEntry 测试 ──

func TestTimetableService_ProposeEntry_Success(t *testing.T) {
	f := setupTestTimetableService()

	entry, err := f.svc.ProposeEntry(context.Background(), "monday", propose("algebra", f.s2, f.s1))
	if err != nil {
		t.Fatalf("ProposeEntry 应成功: %v", err)
	}
	if entry.DayOfWeek != "Monday" {
		t.Errorf("期望星期几规范为 Monday，实际=%s", entry.DayOfWeek)
	}
	if entry.StartTime != "08:30 AM" || entry.EndTime != "10:10 AM" {
		t.Errorf("期望区间 08:30 AM-10:10 AM，实际=%s-%s", entry.StartTime, entry.EndTime)
	}
	if len(entry.SlotIDs) != 2 || entry.SlotIDs[0] != int(f.s1) || entry.SlotIDs[1] != int(f.s2) {
		t.Errorf("期望时段按开始时间排序为 [%d %d]，实际=%v", f.s1, f.s2, entry.SlotIDs)
	}
	if entry.Subject == nil || entry.Subject.Name != "Algebra" {
		t.Errorf("期望科目解析为 Algebra，实际=%+v", entry.Subject)
	}
}

func TestTimetableService_ProposeEntry_GapOfTwentyMinutesAccepted(t *testing.T) {
	f := setupTestTimetableService()

	entry, err := f.svc.ProposeEntry(context.Background(), "Tuesday", propose("Algebra", f.s3, f.s2))
	if err != nil {
		t.Fatalf("间隔 20 分钟应被接受: %v", err)
	}
	if entry.StartTime != "09:20 AM" || entry.EndTime != "11:20 AM" {
		t.Errorf("期望区间 09:20 AM-11:20 AM，实际=%s-%s", entry.StartTime, entry.EndTime)
	}
}

func TestTimetableService_ProposeEntry_GapOfTwentyOneMinutesRejected(t *testing.T) {
	f := setupTestTimetableService()

	_, err := f.svc.ProposeEntry(context.Background(), "Tuesday", propose("Algebra", f.s3, f.s4))
	if !errors.Is(err, ErrTimetableSlotsNotContiguous) {
		t.Errorf("期望 ErrTimetableSlotsNotContiguous，实际: %v", err)
	}
}

func TestTimetableService_ProposeEntry_ValidationOrder(t *testing.T) {
	f := setupTestTimetableService()
	ctx := context.Background()

	if _, err := f.svc.ProposeEntry(ctx, "Funday", propose("", 999)); !errors.Is(err, ErrInvalidDay) {
		t.Errorf("非法星期几应最先被拒绝，实际: %v", err)
	}
	if _, err := f.svc.ProposeEntry(ctx, "Monday", propose("  ", 999)); !errors.Is(err, ErrTimetableSubjectBlank) {
		t.Errorf("空科目应先于时段检查，实际: %v", err)
	}
	if _, err := f.svc.ProposeEntry(ctx, "Monday", propose("Algebra")); !errors.Is(err, ErrTimetableSlotsEmpty) {
		t.Errorf("期望 ErrTimetableSlotsEmpty，实际: %v", err)
	}
	if _, err := f.svc.ProposeEntry(ctx, "Monday", propose("Chemistry", 999)); !errors.Is(err, ErrTimetableSubjectNotFound) {
		t.Errorf("未知科目应先于未知时段报告，实际: %v", err)
	}
	if _, err := f.svc.ProposeEntry(ctx, "Monday", propose("Algebra", f.s1, 999)); !errors.Is(err, ErrTimetableSlotNotFound) {
		t.Errorf("期望 ErrTimetableSlotNotFound，实际: %v", err)
	}
}

func TestTimetableService_ProposeEntry_OverlapConflict(t *testing.T) {
	f := setupTestTimetableService()
	ctx := context.Background()

	if _, err := f.svc.ProposeEntry(ctx, "Monday", propose("Algebra", f.s1)); err != nil {
		t.Fatalf("首个条目应成功: %v", err)
	}
	// s5 09:00-09:50 与 s1 08:30-09:20 相交，但不共享时段
	_, err := f.svc.ProposeEntry(ctx, "Monday", propose("Physics", f.s5))
	if !errors.Is(err, ErrTimetableConflict) {
		t.Errorf("期望时间重叠冲突，实际: %v", err)
	}
}

func TestTimetableService_ProposeEntry_SharedSlotConflict(t *testing.T) {
	f := setupTestTimetableService()
	ctx := context.Background()

	if _, err := f.svc.ProposeEntry(ctx, "Monday", propose("Algebra", f.s1, f.s2)); err != nil {
		t.Fatalf("首个条目应成功: %v", err)
	}
	_, err := f.svc.ProposeEntry(ctx, "Monday", propose("Physics", f.s2))
	if !errors.Is(err, ErrTimetableConflict) {
		t.Errorf("期望共享时段冲突，实际: %v", err)
	}
}

func TestTimetableService_ProposeEntry_ConcurrentSameDay(t *testing.T) {
	for round := 0; round < 20; round++ {
		f := setupTestTimetableService()
		ctx := context.Background()
		reqs := []*dto.ProposeEntryRequest{
			propose("Algebra", f.s1, f.s2),
			propose("Physics", f.s5),
		}

		start := make(chan struct{})
		errs := make([]error, len(reqs))
		var wg sync.WaitGroup
		for i, req := range reqs {
			wg.Add(1)
			go func(i int, req *dto.ProposeEntryRequest) {
				defer wg.Done()
				<-start
				_, errs[i] = f.svc.ProposeEntry(ctx, "Monday", req)
			}(i, req)
		}
		close(start)
		wg.Wait()

		succeeded, conflicted := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrTimetableConflict):
				conflicted++
			default:
				t.Fatalf("第 %d 轮出现意外错误: %v", round, err)
			}
		}
		if succeeded != 1 || conflicted != 1 {
			t.Fatalf("第 %d 轮期望一成功一冲突，实际成功=%d 冲突=%d", round, succeeded, conflicted)
		}
		if entries, _ := f.svc.EntriesForDay(ctx, "Monday"); len(entries) != 1 {
			t.Fatalf("第 %d 轮周一期望 1 个条目，实际=%d", round, len(entries))
		}
	}
}

func TestTimetableService_ProposeEntry_TouchingEntriesDoNotConflict(t *testing.T) {
	f := setupTestTimetableService()
	ctx := context.Background()

	if _, err := f.svc.ProposeEntry(ctx, "Monday", propose("Algebra", f.s1)); err != nil {
		t.Fatalf("首个条目应成功: %v", err)
	}
	// s2 从 09:20 开始，恰好接在 s1 结束之后
	if _, err := f.svc.ProposeEntry(ctx, "Monday", propose("Physics", f.s2)); err != nil {
		t.Errorf("首尾相接的条目不应冲突: %v", err)
	}
}

func TestTimetableService_ProposeEntry_OtherDayNoConflict(t *testing.T) {
	f := setupTestTimetableService()
	ctx := context.Background()

	if _, err := f.svc.ProposeEntry(ctx, "Monday", propose("Algebra", f.s1)); err != nil {
		t.Fatalf("首个条目应成功: %v", err)
	}
	if _, err := f.svc.ProposeEntry(ctx, "Wednesday", propose("Physics", f.s1)); err != nil {
		t.Errorf("不同日期不应冲突: %v", err)
	}
}

// ── EditEntry 测试 ──

func TestTimetableService_EditEntry_ExcludesSelf(t *testing.T) {
	f := setupTestTimetableService()
	ctx := context.Background()

	created, err := f.svc.ProposeEntry(ctx, "Monday", propose("Algebra", f.s1, f.s2))
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}

	edited, err := f.svc.EditEntry(ctx, created.ID, "Monday", propose("Algebra", f.s2))
	if err != nil {
		t.Fatalf("编辑自身不应与自身冲突: %v", err)
	}
	if edited.ID != created.ID {
		t.Errorf("替换编辑应保持 ID=%d，实际=%d", created.ID, edited.ID)
	}

	entries, _ := f.svc.EntriesForDay(ctx, "Monday")
	if len(entries) != 1 {
		t.Fatalf("期望当天 1 个条目，实际=%d", len(entries))
	}
	if entries[0].StartTime != "09:20 AM" {
		t.Errorf("期望编辑后开始时间 09:20 AM，实际=%s", entries[0].StartTime)
	}
}

func TestTimetableService_EditEntry_ConflictWithOther(t *testing.T) {
	f := setupTestTimetableService()
	ctx := context.Background()

	a, _ := f.svc.ProposeEntry(ctx, "Monday", propose("Algebra", f.s1))
	if _, err := f.svc.ProposeEntry(ctx, "Monday", propose("Physics", f.s3)); err != nil {
		t.Fatalf("创建应成功: %v", err)
	}

	_, err := f.svc.EditEntry(ctx, a.ID, "Monday", propose("Algebra", f.s3))
	if !errors.Is(err, ErrTimetableConflict) {
		t.Errorf("期望与其他条目冲突，实际: %v", err)
	}
}

func TestTimetableService_EditEntry_NotFound(t *testing.T) {
	f := setupTestTimetableService()

	_, err := f.svc.EditEntry(context.Background(), 42, "Monday", propose("Algebra", f.s1))
	if !errors.Is(err, ErrTimetableEntryNotFound) {
		t.Errorf("期望 ErrTimetableEntryNotFound，实际: %v", err)
	}
}

// ── 查询与删除测试 ──

func TestTimetableService_EntriesForDay_SortedByStart(t *testing.T) {
	f := setupTestTimetableService()
	ctx := context.Background()

	if _, err := f.svc.ProposeEntry(ctx, "Friday", propose("Physics", f.s3)); err != nil {
		t.Fatalf("创建应成功: %v", err)
	}
	if _, err := f.svc.ProposeEntry(ctx, "Friday", propose("Algebra", f.s1)); err != nil {
		t.Fatalf("创建应成功: %v", err)
	}

	entries, err := f.svc.EntriesForDay(ctx, "fri")
	if err != nil {
		t.Fatalf("EntriesForDay 应成功: %v", err)
	}
	if len(entries) != 2 || entries[0].Subject.Name != "Algebra" {
		t.Errorf("期望按开始时间排序 Algebra 在前，实际=%+v", entries)
	}
}

func TestTimetableService_Week_AllSevenDays(t *testing.T) {
	f := setupTestTimetableService()
	ctx := context.Background()
	_, _ = f.svc.ProposeEntry(ctx, "Sunday", propose("Algebra", f.s1))

	week, err := f.svc.Week(ctx)
	if err != nil {
		t.Fatalf("Week 应成功: %v", err)
	}
	if len(week) != 7 || week[0].DayOfWeek != "Monday" || week[6].DayOfWeek != "Sunday" {
		t.Fatalf("期望周一至周日 7 天，实际=%+v", week)
	}
	if len(week[6].Entries) != 1 || len(week[0].Entries) != 0 {
		t.Errorf("期望仅周日有 1 个条目，实际=%+v", week)
	}
}

func TestTimetableService_EntryForSubjectOnDate(t *testing.T) {
	f := setupTestTimetableService()
	ctx := context.Background()

	created, _ := f.svc.ProposeEntry(ctx, "Monday", propose("Algebra", f.s1, f.s2))

	// 2024-01-01 为周一
	entry, err := f.svc.EntryForSubjectOnDate(ctx, created.Subject.ID, "2024-01-01")
	if err != nil || entry == nil {
		t.Fatalf("期望找到周一条目，err=%v", err)
	}
	if entry.ID != created.ID {
		t.Errorf("期望条目 ID=%d，实际=%d", created.ID, entry.ID)
	}

	entry, err = f.svc.EntryForSubjectOnDate(ctx, created.Subject.ID, "2024-01-02")
	if err != nil || entry != nil {
		t.Errorf("周二无条目应返回 nil，实际=%+v err=%v", entry, err)
	}
}

func TestTimetableService_DeleteEntry(t *testing.T) {
	f := setupTestTimetableService()
	ctx := context.Background()

	created, _ := f.svc.ProposeEntry(ctx, "Monday", propose("Algebra", f.s1))
	if err := f.svc.DeleteEntry(ctx, created.ID); err != nil {
		t.Fatalf("DeleteEntry 应成功: %v", err)
	}
	if err := f.svc.DeleteEntry(ctx, created.ID); !errors.Is(err, ErrTimetableEntryNotFound) {
		t.Errorf("重复删除期望 ErrTimetableEntryNotFound，实际: %v", err)
	}
}

// ── 校验规则单元测试 ──

func TestCheckContiguity(t *testing.T) {
	slots := []model.Slot{
		{SlotID: 1, Label: "A", StartTime: "08:30 AM", EndTime: "09:20 AM"},
		{SlotID: 2, Label: "B", StartTime: "09:40 AM", EndTime: "10:30 AM"},
	}
	if err := checkContiguity(slots, 20*time.Minute); err != nil {
		t.Errorf("间隔 20 分钟应通过: %v", err)
	}
	if err := checkContiguity(slots, 19*time.Minute); !errors.Is(err, ErrTimetableSlotsNotContiguous) {
		t.Errorf("上限 19 分钟时应拒绝，实际: %v", err)
	}
	if err := checkContiguity(slots[:1], 0); err != nil {
		t.Errorf("单个时段总是连续: %v", err)
	}
}

func TestFindConflict(t *testing.T) {
	existing := []model.TimetableEntry{
		{EntryID: 1, StartTime: "08:30 AM", EndTime: "10:10 AM", SlotIDs: model.IntArray{1, 2}},
	}

	overlap := &model.TimetableEntry{StartTime: "10:00 AM", EndTime: "10:50 AM", SlotIDs: model.IntArray{9}}
	if findConflict(overlap, existing, 0) == nil {
		t.Error("时间相交应冲突")
	}
	if findConflict(overlap, existing, 1) != nil {
		t.Error("排除自身后不应冲突")
	}

	touching := &model.TimetableEntry{StartTime: "10:10 AM", EndTime: "11:00 AM", SlotIDs: model.IntArray{3}}
	if findConflict(touching, existing, 0) != nil {
		t.Error("首尾相接不应冲突")
	}

	shared := &model.TimetableEntry{StartTime: "01:00 PM", EndTime: "02:00 PM", SlotIDs: model.IntArray{2}}
	if findConflict(shared, existing, 0) == nil {
		t.Error("共享时段 ID 应冲突")
	}
}
