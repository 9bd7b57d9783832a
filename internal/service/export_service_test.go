package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/model"
)

// ── 测试辅助 ──

func setupTestExportService() (ExportService, *mockRepos) {
	repo, mocks := newMockRepository()
	svc := NewExportService(repo, nil, 75, time.UTC, zap.NewNop()).(*exportService)
	svc.now = func() time.Time { return time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC) } // 周三
	return svc, mocks
}

// ── 科目导出 / 导入测试 ──

func TestExportService_ExportSubjectsCSV(t *testing.T) {
	svc, mocks := setupTestExportService()
	mocks.subjects.seed("Algebra", 75, 10, 12)

	buf, filename, err := svc.ExportSubjectsCSV(context.Background())
	if err != nil {
		t.Fatalf("导出应成功: %v", err)
	}
	if filename != "attendance_2024-03-06.csv" {
		t.Errorf("文件名不符合预期: %s", filename)
	}
	want := "Subject,Type,Threshold,Attended,Total,Percentage\nAlgebra,Core,75,10,12,83.33\n"
	if buf.String() != want {
		t.Errorf("CSV 内容不符合预期:\n%s", buf.String())
	}
}

func TestExportService_CSVRoundTrip(t *testing.T) {
	src, srcMocks := setupTestExportService()
	srcMocks.subjects.seed("Algebra", 75, 10, 12)
	buf, _, err := src.ExportSubjectsCSV(context.Background())
	if err != nil {
		t.Fatalf("导出应成功: %v", err)
	}

	dst, dstMocks := setupTestExportService()
	resp, err := dst.ImportSubjects(context.Background(), buf, FormatCSV)
	if err != nil {
		t.Fatalf("导入应成功: %v", err)
	}
	if resp.Total != 1 || resp.Success != 1 || resp.Failed != 0 {
		t.Fatalf("期望 1 行全部成功，实际=%+v", resp)
	}

	subjects, _ := dstMocks.subjects.List(context.Background())
	got := subjects[0]
	if got.Name != "Algebra" || got.Type != "Core" || got.Threshold != 75 ||
		got.AttendedClasses != 10 || got.TotalClasses != 12 {
		t.Errorf("往返后科目不一致: %+v", got)
	}
	// 导入的计数按合成流水落地
	present, total, _ := dstMocks.attendance.CountBySubject(context.Background(), got.SubjectID)
	if present != 10 || total != 12 {
		t.Errorf("期望合成流水 10/12，实际=%d/%d", present, total)
	}
}

func TestExportService_ExcelRoundTrip(t *testing.T) {
	src, srcMocks := setupTestExportService()
	srcMocks.subjects.seed("Algebra", 80, 3, 4)
	srcMocks.subjects.seed("Physics", 60, 0, 0)

	buf, filename, err := src.ExportSubjectsExcel(context.Background())
	if err != nil {
		t.Fatalf("导出应成功: %v", err)
	}
	if !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("文件名应以 .xlsx 结尾: %s", filename)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("导出的文件应可被 excelize 打开: %v", err)
	}
	if f.GetSheetName(0) != "Attendance" {
		t.Errorf("期望工作表 Attendance，实际=%s", f.GetSheetName(0))
	}
	_ = f.Close()

	records, err := src.ParseSubjects(bytes.NewReader(buf.Bytes()), FormatExcel)
	if err != nil {
		t.Fatalf("解析应成功: %v", err)
	}
	if len(records) != 2 || records[0].Name != "Algebra" || records[0].Threshold != 80 ||
		records[0].Attended != 3 || records[0].Total != 4 {
		t.Errorf("解析结果不符合预期: %+v", records)
	}
}

func TestExportService_ParseSubjects_MalformedFieldsDefault(t *testing.T) {
	svc, _ := setupTestExportService()

	input := "Subject,Type,Threshold,Attended,Total\nChemistry,,abc,,7\nBiology\n,,,,\n"
	records, err := svc.ParseSubjects(strings.NewReader(input), FormatCSV)
	if err != nil {
		t.Fatalf("解析应成功: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("全空行应被忽略，期望 2 条，实际=%d", len(records))
	}
	if records[0].Type != "" || records[0].Threshold != 0 || records[0].Attended != 0 || records[0].Total != 7 {
		t.Errorf("格式错误的字段应为空串/0: %+v", records[0])
	}
	if records[1].Name != "Biology" || records[1].Total != 0 {
		t.Errorf("缺失字段应为 0: %+v", records[1])
	}
}

func TestExportService_ParseSubjects_Errors(t *testing.T) {
	svc, _ := setupTestExportService()

	if _, err := svc.ParseSubjects(strings.NewReader("a,b"), "pdf"); !errors.Is(err, ErrImportFormatInvalid) {
		t.Errorf("期望 ErrImportFormatInvalid，实际: %v", err)
	}
	if _, err := svc.ParseSubjects(strings.NewReader("Subject,Type\n"), FormatCSV); !errors.Is(err, ErrImportNoData) {
		t.Errorf("只有表头期望 ErrImportNoData，实际: %v", err)
	}
	if _, err := svc.ParseSubjects(strings.NewReader("not a zip"), FormatExcel); !errors.Is(err, ErrImportFileInvalid) {
		t.Errorf("期望 ErrImportFileInvalid，实际: %v", err)
	}
}

func TestExportService_ImportSubjects_RowErrors(t *testing.T) {
	svc, mocks := setupTestExportService()
	mocks.subjects.seed("Algebra", 75, 0, 0)

	input := strings.Join([]string{
		"Subject,Type,Threshold,Attended,Total",
		"algebra,Core,75,1,1",      // 与已有科目重名
		",Core,75,1,1",             // 名称为空
		"Physics,Lab,150,2,3",      // 阈值越界 → 默认阈值
		"PHYSICS,Core,75,1,1",      // 文件内重名
		"Chemistry,Elective,70,5,3", // 出勤大于总数
	}, "\n")

	resp, err := svc.ImportSubjects(context.Background(), strings.NewReader(input), FormatCSV)
	if err != nil {
		t.Fatalf("导入应成功: %v", err)
	}
	if resp.Total != 5 || resp.Success != 1 || resp.Failed != 4 {
		t.Fatalf("期望 5 行中 1 成功 4 失败，实际=%+v", resp)
	}
	wantRows := []int{2, 3, 5, 6}
	for i, e := range resp.Errors {
		if e.Row != wantRows[i] {
			t.Errorf("第 %d 个错误期望行号 %d，实际=%d (%s)", i, wantRows[i], e.Row, e.Reason)
		}
	}

	physics, err := mocks.subjects.GetByName(context.Background(), "physics")
	if err != nil {
		t.Fatalf("Physics 应已导入: %v", err)
	}
	if physics.Threshold != 75 || physics.Type != "Lab" {
		t.Errorf("越界阈值应回退为默认 75，实际=%+v", physics)
	}
}

// ── 课表导出测试 ──

func seedTimetable(m *mockRepos) {
	ctx := context.Background()
	algebra := m.subjects.seed("Algebra", 75, 0, 0)
	physics := m.subjects.seed("Physics", 75, 0, 0)
	p1 := m.slots.seed("Period 1", "08:30 AM", "09:20 AM")
	p2 := m.slots.seed("Period 2", "09:20 AM", "10:10 AM")
	_ = m.timetable.Create(ctx, &model.TimetableEntry{
		DayOfWeek: "Monday", SubjectID: algebra,
		StartTime: "08:30 AM", EndTime: "10:10 AM", SlotIDs: model.IntArray{int(p1), int(p2)},
	})
	_ = m.timetable.Create(ctx, &model.TimetableEntry{
		DayOfWeek: "Friday", SubjectID: physics,
		StartTime: "09:20 AM", EndTime: "10:10 AM", SlotIDs: model.IntArray{int(p2)},
	})
}

func TestExportService_ExportTimetableExcel(t *testing.T) {
	svc, mocks := setupTestExportService()
	seedTimetable(mocks)

	buf, _, err := svc.ExportTimetableExcel(context.Background())
	if err != nil {
		t.Fatalf("导出应成功: %v", err)
	}
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("导出的文件应可打开: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Timetable")
	if err != nil {
		t.Fatalf("读取工作表失败: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("期望表头 + 2 个时段行，实际=%d", len(rows))
	}
	if rows[0][2] != "Monday" || rows[0][8] != "Sunday" {
		t.Errorf("表头应为 Monday..Sunday，实际=%v", rows[0])
	}
	// 行：Period 1 / Period 2；列 C=Monday，G=Friday
	if rows[1][2] != "Algebra" || rows[2][2] != "Algebra" {
		t.Errorf("周一两节均应为 Algebra，实际=%v / %v", rows[1], rows[2])
	}
	if rows[2][6] != "Physics" || rows[1][6] != "-" {
		t.Errorf("周五第 2 节应为 Physics、第 1 节空闲，实际=%v / %v", rows[1], rows[2])
	}
}

func TestExportService_ExportTimetableICS(t *testing.T) {
	svc, mocks := setupTestExportService()
	seedTimetable(mocks)

	buf, filename, err := svc.ExportTimetableICS(context.Background(), "2024-03-06")
	if err != nil {
		t.Fatalf("导出应成功: %v", err)
	}
	if filename != "timetable_2024-03-04.ics" {
		t.Errorf("文件名应以所在周周一命名，实际=%s", filename)
	}

	cal, err := ics.ParseCalendar(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("导出的日历应可解析: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("期望 2 个事件，实际=%d", len(events))
	}

	start, err := events[0].GetStartAt()
	if err != nil {
		t.Fatalf("读取开始时间失败: %v", err)
	}
	want := time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Errorf("周一事件期望开始于 %s，实际=%s", want, start)
	}
	if rule := events[0].GetProperty(ics.ComponentPropertyRrule); rule == nil || rule.Value != "FREQ=WEEKLY;BYDAY=MO" {
		t.Errorf("期望每周一重复，实际=%+v", rule)
	}
	if rule := events[1].GetProperty(ics.ComponentPropertyRrule); rule == nil || rule.Value != "FREQ=WEEKLY;BYDAY=FR" {
		t.Errorf("期望每周五重复，实际=%+v", rule)
	}
}

func TestExportService_ExportTimetableICS_Errors(t *testing.T) {
	svc, mocks := setupTestExportService()

	if _, _, err := svc.ExportTimetableICS(context.Background(), ""); !errors.Is(err, ErrExportTimetableEmpty) {
		t.Errorf("空课表期望 ErrExportTimetableEmpty，实际: %v", err)
	}
	seedTimetable(mocks)
	if _, _, err := svc.ExportTimetableICS(context.Background(), "March 4"); !errors.Is(err, ErrExportWeekOfMalformed) {
		t.Errorf("期望 ErrExportWeekOfMalformed，实际: %v", err)
	}
}

func TestWeekStart(t *testing.T) {
	sunday := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	if got := weekStart(sunday); got.Day() != 4 {
		t.Errorf("周日所在周的周一应为 3 月 4 日，实际=%s", got)
	}
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	if got := weekStart(monday); !got.Equal(monday) {
		t.Errorf("周一应返回自身，实际=%s", got)
	}
}
