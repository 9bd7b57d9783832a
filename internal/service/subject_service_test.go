package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/dto"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/model"
	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/events"
)

// ── 测试辅助 ──

func setupTestSubjectService() (SubjectService, *mockRepos) {
	repo, mocks := newMockRepository()
	return NewSubjectService(repo, nil, 75, zap.NewNop()), mocks
}

func intPtr(v int) *int { return &v }

// ── Create 测试 ──

func TestSubjectService_Create_Defaults(t *testing.T) {
	svc, _ := setupTestSubjectService()

	subject, err := svc.Create(context.Background(), &dto.CreateSubjectRequest{Name: "  Algebra "})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if subject.Name != "Algebra" {
		t.Errorf("期望名称去除首尾空白，实际=%q", subject.Name)
	}
	if subject.Type != model.SubjectTypeCore {
		t.Errorf("期望默认类型 Core，实际=%s", subject.Type)
	}
	if subject.Threshold != 75 {
		t.Errorf("期望默认阈值 75，实际=%d", subject.Threshold)
	}
	if subject.AttendedClasses != 0 || subject.TotalClasses != 0 {
		t.Errorf("期望计数从 0 开始，实际=%d/%d", subject.AttendedClasses, subject.TotalClasses)
	}
}

func TestSubjectService_Create_Validation(t *testing.T) {
	svc, mocks := setupTestSubjectService()
	mocks.subjects.seed("Algebra", 75, 0, 0)
	ctx := context.Background()

	if _, err := svc.Create(ctx, &dto.CreateSubjectRequest{Name: " "}); !errors.Is(err, ErrSubjectNameBlank) {
		t.Errorf("期望 ErrSubjectNameBlank，实际: %v", err)
	}
	if _, err := svc.Create(ctx, &dto.CreateSubjectRequest{Name: "ALGEBRA"}); !errors.Is(err, ErrSubjectNameExists) {
		t.Errorf("名称不区分大小写唯一，期望 ErrSubjectNameExists，实际: %v", err)
	}
	if _, err := svc.Create(ctx, &dto.CreateSubjectRequest{Name: "Physics", Threshold: intPtr(0)}); !errors.Is(err, ErrSubjectThresholdInvalid) {
		t.Errorf("阈值 0 期望 ErrSubjectThresholdInvalid，实际: %v", err)
	}
	if _, err := svc.Create(ctx, &dto.CreateSubjectRequest{Name: "Physics", Threshold: intPtr(101)}); !errors.Is(err, ErrSubjectThresholdInvalid) {
		t.Errorf("阈值 101 期望 ErrSubjectThresholdInvalid，实际: %v", err)
	}
}

// ── Get / List 测试 ──

func TestSubjectService_Get_Derived(t *testing.T) {
	svc, mocks := setupTestSubjectService()
	id := mocks.subjects.seed("Algebra", 75, 6, 10)

	subject, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get 应成功: %v", err)
	}
	if !approxEqual(subject.Percentage, 60) {
		t.Errorf("期望出勤率 60，实际=%v", subject.Percentage)
	}
	if !subject.BelowThreshold {
		t.Error("60% 低于 75% 阈值，期望 BelowThreshold=true")
	}
	// (6+x)/(10+x) >= 0.75 ⇒ x >= 6
	if subject.ClassesNeeded != 6 {
		t.Errorf("期望还需出勤 6 节，实际=%d", subject.ClassesNeeded)
	}
	if subject.ClassesCanMiss != 0 {
		t.Errorf("期望可缺勤 0 节，实际=%d", subject.ClassesCanMiss)
	}
}

func TestSubjectService_Get_NotFound(t *testing.T) {
	svc, _ := setupTestSubjectService()

	if _, err := svc.Get(context.Background(), 404); !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("期望 ErrSubjectNotFound，实际: %v", err)
	}
}

func TestSubjectService_List_OrderedByName(t *testing.T) {
	svc, mocks := setupTestSubjectService()
	mocks.subjects.seed("physics", 75, 0, 0)
	mocks.subjects.seed("Algebra", 75, 0, 0)

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Algebra" {
		t.Errorf("期望按名称排序 Algebra 在前，实际=%+v", list)
	}
}

// ── Update 测试 ──

func TestSubjectService_Update_KeepsCounters(t *testing.T) {
	svc, mocks := setupTestSubjectService()
	id := mocks.subjects.seed("Algebra", 75, 3, 4)

	name := "algebra"
	updated, err := svc.Update(context.Background(), id, &dto.UpdateSubjectRequest{Name: &name, Threshold: intPtr(80)})
	if err != nil {
		t.Fatalf("改名为自身的大小写变体应成功: %v", err)
	}
	if updated.Name != "algebra" || updated.Threshold != 80 {
		t.Errorf("期望 algebra/80，实际=%s/%d", updated.Name, updated.Threshold)
	}
	if got := mocks.subjects.get(id); got.AttendedClasses != 3 || got.TotalClasses != 4 {
		t.Errorf("更新不应修改计数，实际=%d/%d", got.AttendedClasses, got.TotalClasses)
	}
}

func TestSubjectService_Update_NameTaken(t *testing.T) {
	svc, mocks := setupTestSubjectService()
	id := mocks.subjects.seed("Algebra", 75, 0, 0)
	mocks.subjects.seed("Physics", 75, 0, 0)

	name := "PHYSICS"
	if _, err := svc.Update(context.Background(), id, &dto.UpdateSubjectRequest{Name: &name}); !errors.Is(err, ErrSubjectNameExists) {
		t.Errorf("期望 ErrSubjectNameExists，实际: %v", err)
	}
}

// ── Delete 测试 ──

func TestSubjectService_Delete_Cascades(t *testing.T) {
	svc, mocks := setupTestSubjectService()
	ctx := context.Background()
	id := mocks.subjects.seed("Algebra", 75, 1, 1)
	other := mocks.subjects.seed("Physics", 75, 1, 1)
	_ = mocks.attendance.Create(ctx, &model.Attendance{SubjectID: id, SlotID: 1, Date: "2024-01-01", Status: model.StatusPresent})
	_ = mocks.attendance.Create(ctx, &model.Attendance{SubjectID: other, SlotID: 1, Date: "2024-01-01", Status: model.StatusPresent})
	_ = mocks.timetable.Create(ctx, &model.TimetableEntry{DayOfWeek: "Monday", SubjectID: id, SlotIDs: model.IntArray{1}})
	_ = mocks.overrides.Create(ctx, &model.AttendanceOverride{SubjectID: id})

	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if len(mocks.attendance.bySubject(id)) != 0 {
		t.Error("期望级联删除考勤流水")
	}
	if len(mocks.attendance.bySubject(other)) != 1 {
		t.Error("其他科目的流水不应受影响")
	}
	if entries, _ := mocks.timetable.ListAll(ctx); len(entries) != 0 {
		t.Error("期望级联删除课表条目")
	}
	if overrides, _ := mocks.overrides.ListBySubject(ctx, id); len(overrides) != 0 {
		t.Error("期望级联删除校正记录")
	}
	if err := svc.Delete(ctx, id); !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("重复删除期望 ErrSubjectNotFound，实际: %v", err)
	}
}

// ── Watch 测试 ──

func TestSubjectService_WatchSubjects(t *testing.T) {
	repo, _ := newMockRepository()
	hub := events.NewHub(zap.NewNop())
	svc := NewSubjectService(repo, hub, 75, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := svc.WatchSubjects(ctx)

	select {
	case snapshot := <-ch:
		if len(snapshot) != 0 {
			t.Fatalf("初始快照应为空，实际=%d", len(snapshot))
		}
	case <-time.After(time.Second):
		t.Fatal("未收到初始快照")
	}

	// 等待订阅建立后再写入
	deadline := time.Now().Add(time.Second)
	for hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := svc.Create(ctx, &dto.CreateSubjectRequest{Name: "Algebra"}); err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}

	select {
	case snapshot := <-ch:
		if len(snapshot) != 1 || snapshot[0].Name != "Algebra" {
			t.Errorf("期望快照包含 Algebra，实际=%+v", snapshot)
		}
	case <-time.After(time.Second):
		t.Fatal("未收到变更后的快照")
	}

	cancel()
	for range ch {
	}
}
