package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/dto"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/model"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/repository"
	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/events"
)

// ── 导入导出模块业务错误 ──

var (
	ErrExportGenerateFail    = errors.New("生成导出文件失败")
	ErrImportFormatInvalid   = errors.New("不支持的导入格式，仅支持 csv / xlsx")
	ErrImportFileInvalid     = errors.New("无法解析导入文件")
	ErrImportNoData          = errors.New("导入文件无数据行（第一行为表头）")
	ErrImportTooManyRows     = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrExportTimetableEmpty  = errors.New("课表为空，无可导出的条目")
	ErrExportWeekOfMalformed = errors.New("week_of 日期格式错误，应为 YYYY-MM-DD")
)

// 导入文件格式
const (
	FormatCSV   = "csv"
	FormatExcel = "xlsx"
)

const (
	maxImportRows      = 1000
	subjectsSheetName  = "Attendance"
	timetableSheetName = "Timetable"
	icsProductService  = "Attendance Tracker"
)

// subjectsHeader 科目导入导出的列顺序
var subjectsHeader = []string{"Subject", "Type", "Threshold", "Attended", "Total", "Percentage"}

// ExportService 导入导出业务接口
//
// 设计说明：
//   - 科目以 (名称, 类型, 阈值, 出勤, 总数) 元组导出，百分比导出时按计数重新计算
//   - 导入时缺失或格式错误的字段按空串/0 处理，再逐行预校验，合格行在单个事务中写入
//   - 导入的计数按手动校正同样的方式合成流水，保证流水出勤率与计数一致
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportSubjectsCSV 导出全部科目为 CSV
	ExportSubjectsCSV(ctx context.Context) (*bytes.Buffer, string, error)
	// ExportSubjectsExcel 导出全部科目为 Excel
	ExportSubjectsExcel(ctx context.Context) (*bytes.Buffer, string, error)
	// ParseSubjects 解析 csv / xlsx 文件为科目元组
	ParseSubjects(reader io.Reader, format string) ([]dto.SubjectRecord, error)
	// ImportSubjects 解析并导入科目
	ImportSubjects(ctx context.Context, reader io.Reader, format string) (*dto.ImportSubjectsResponse, error)
	// ExportTimetableExcel 导出周课表网格（行=时段，列=周一至周日）
	ExportTimetableExcel(ctx context.Context) (*bytes.Buffer, string, error)
	// ExportTimetableICS 以 weekOf 所在周为起点导出每周重复的日历事件
	ExportTimetableICS(ctx context.Context, weekOf string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo             *repository.Repository
	hub              *events.Hub
	defaultThreshold int
	loc              *time.Location
	now              func() time.Time
	logger           *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, hub *events.Hub, defaultThreshold int, loc *time.Location, logger *zap.Logger) ExportService {
	if loc == nil {
		loc = time.Local
	}
	return &exportService{
		repo:             repo,
		hub:              hub,
		defaultThreshold: defaultThreshold,
		loc:              loc,
		now:              time.Now,
		logger:           logger,
	}
}

// ────────────────────── 科目导出 ──────────────────────

func (s *exportService) ExportSubjectsCSV(ctx context.Context) (*bytes.Buffer, string, error) {
	records, err := s.subjectRecords(ctx)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	_ = w.Write(subjectsHeader)
	for _, r := range records {
		_ = w.Write([]string{
			r.Name,
			r.Type,
			strconv.Itoa(r.Threshold),
			strconv.Itoa(r.Attended),
			strconv.Itoa(r.Total),
			fmt.Sprintf("%.2f", recordPercentage(r)),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		s.logger.Error("写入 CSV 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	return buf, s.filename("attendance", "csv"), nil
}

func (s *exportService) ExportSubjectsExcel(ctx context.Context) (*bytes.Buffer, string, error) {
	records, err := s.subjectRecords(ctx)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, _ := f.NewSheet(subjectsSheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	f.SetColWidth(subjectsSheetName, "A", "A", 24)
	f.SetColWidth(subjectsSheetName, "B", "F", 12)
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, h := range subjectsHeader {
		f.SetCellValue(subjectsSheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(subjectsSheetName, "A1", cell(colName(len(subjectsHeader)-1), 1), headerStyle)

	for i, r := range records {
		row := i + 2
		f.SetCellValue(subjectsSheetName, cell("A", row), r.Name)
		f.SetCellValue(subjectsSheetName, cell("B", row), r.Type)
		f.SetCellValue(subjectsSheetName, cell("C", row), r.Threshold)
		f.SetCellValue(subjectsSheetName, cell("D", row), r.Attended)
		f.SetCellValue(subjectsSheetName, cell("E", row), r.Total)
		f.SetCellValue(subjectsSheetName, cell("F", row), roundPercentage(recordPercentage(r)))
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, s.filename("attendance", "xlsx"), nil
}

// ────────────────────── 科目导入 ──────────────────────

// ParseSubjects 第一行视为表头跳过；列按固定顺序读取，全空行忽略
func (s *exportService) ParseSubjects(reader io.Reader, format string) ([]dto.SubjectRecord, error) {
	var rows [][]string
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatCSV:
		r := csv.NewReader(reader)
		r.FieldsPerRecord = -1
		r.TrimLeadingSpace = true
		all, err := r.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrImportFileInvalid, err)
		}
		rows = all
	case FormatExcel, "excel":
		f, err := excelize.OpenReader(reader)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrImportFileInvalid, err)
		}
		defer f.Close()
		all, err := f.GetRows(f.GetSheetName(0))
		if err != nil {
			return nil, fmt.Errorf("%w: 读取工作表失败: %v", ErrImportFileInvalid, err)
		}
		rows = all
	default:
		return nil, ErrImportFormatInvalid
	}

	if len(rows) < 2 {
		return nil, ErrImportNoData
	}

	var records []dto.SubjectRecord
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		records = append(records, dto.SubjectRecord{
			Name:      strings.TrimSpace(field(row, 0)),
			Type:      strings.TrimSpace(field(row, 1)),
			Threshold: intField(row, 2),
			Attended:  intField(row, 3),
			Total:     intField(row, 4),
		})
	}

	if len(records) == 0 {
		return nil, ErrImportNoData
	}
	if len(records) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return records, nil
}

func (s *exportService) ImportSubjects(ctx context.Context, reader io.Reader, format string) (*dto.ImportSubjectsResponse, error) {
	records, err := s.ParseSubjects(reader, format)
	if err != nil {
		return nil, err
	}

	resp := &dto.ImportSubjectsResponse{Total: len(records)}
	fail := func(row int, name, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportSubjectError{Row: row, Name: name, Reason: reason})
	}

	// 第一阶段：数据预校验（不接触数据库写操作）
	type validatedRow struct {
		row     int
		subject model.Subject
	}
	var validRows []validatedRow
	seen := make(map[string]bool)

	for i, r := range records {
		row := i + 2 // 第 1 行为表头
		if r.Name == "" {
			fail(row, "", "科目名称为空")
			continue
		}
		key := strings.ToLower(r.Name)
		if seen[key] {
			fail(row, r.Name, "文件内科目名称重复")
			continue
		}
		if _, err := s.repo.Subject.GetByName(ctx, r.Name); err == nil {
			fail(row, r.Name, "科目名称已存在")
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("按名称查询科目失败", zap.String("name", r.Name), zap.Error(err))
			return nil, err
		}
		if r.Attended < 0 || r.Total < 0 || r.Attended > r.Total {
			fail(row, r.Name, fmt.Sprintf("计数无效: 出勤 %d / 总数 %d", r.Attended, r.Total))
			continue
		}

		threshold := r.Threshold
		if !validThreshold(threshold) {
			threshold = s.defaultThreshold
		}
		seen[key] = true
		validRows = append(validRows, validatedRow{
			row: row,
			subject: model.Subject{
				Name:            r.Name,
				Type:            normalizeSubjectType(r.Type),
				Threshold:       threshold,
				AttendedClasses: r.Attended,
				TotalClasses:    r.Total,
			},
		})
	}

	if len(validRows) == 0 {
		return resp, nil
	}

	// 第二阶段：在事务中创建所有通过校验的科目，并按计数合成流水
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)
	date := FormatDate(s.now().In(s.loc))

	for _, vr := range validRows {
		subject := vr.subject
		err := txRepo.Subject.Create(ctx, &subject)
		if err == nil {
			err = txRepo.Attendance.BatchCreate(ctx,
				SyntheticLedger(subject.SubjectID, subject.AttendedClasses, subject.TotalClasses, date))
		}
		if err != nil {
			// 事务中任一写入失败则全部回滚
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("导入科目写入失败，事务回滚", zap.Int("row", vr.row), zap.Error(err))
			return nil, fmt.Errorf("第 %d 行写入数据库失败，已回滚全部导入: %w", vr.row, err)
		}
		resp.Success++
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.logger.Info("科目导入完成",
		zap.Int("total", resp.Total), zap.Int("success", resp.Success), zap.Int("failed", resp.Failed))
	s.hub.Publish(ctx, events.TopicSubjects)
	s.hub.Publish(ctx, events.TopicAttendance)
	return resp, nil
}

// ────────────────────── 课表导出 ──────────────────────

// ExportTimetableExcel 输出格式：
//   - Sheet "Timetable"
//   - 行头：时段标签 + 时间区间（按开始时间排序）
//   - 列头：Monday ~ Sunday
//   - 单元格：覆盖该时段的课表条目的科目名称，空闲为 "-"
func (s *exportService) ExportTimetableExcel(ctx context.Context) (*bytes.Buffer, string, error) {
	slots, err := s.repo.Slot.List(ctx)
	if err != nil {
		s.logger.Error("查询时段失败", zap.Error(err))
		return nil, "", err
	}
	entries, err := s.repo.Timetable.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询课表失败", zap.Error(err))
		return nil, "", err
	}
	sortSlotsByStart(slots)

	// "day:slotID" → 科目名称
	cellIndex := make(map[string]string)
	for _, e := range entries {
		name := "-"
		if e.Subject != nil {
			name = e.Subject.Name
		}
		for _, slotID := range e.SlotIDs {
			cellIndex[fmt.Sprintf("%s:%d", e.DayOfWeek, slotID)] = name
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, _ := f.NewSheet(timetableSheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(timetableSheetName, "A", "A", 12)
	f.SetColWidth(timetableSheetName, "B", "B", 20)
	f.SetColWidth(timetableSheetName, "C", colName(1+len(Weekdays)), 18)
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 表头
	f.SetCellValue(timetableSheetName, "A1", "Slot")
	f.SetCellValue(timetableSheetName, "B1", "Time")
	for i, wd := range Weekdays {
		f.SetCellValue(timetableSheetName, cell(colName(2+i), 1), wd.String())
	}
	f.SetCellStyle(timetableSheetName, "A1", cell(colName(1+len(Weekdays)), 1), headerStyle)

	// 数据行
	for i, slot := range slots {
		row := i + 2
		f.SetCellValue(timetableSheetName, cell("A", row), slot.Label)
		f.SetCellValue(timetableSheetName, cell("B", row), fmt.Sprintf("%s-%s", slot.StartTime, slot.EndTime))
		for j, wd := range Weekdays {
			text, ok := cellIndex[fmt.Sprintf("%s:%d", wd.String(), slot.SlotID)]
			if !ok {
				text = "-"
			}
			f.SetCellValue(timetableSheetName, cell(colName(2+j), row), text)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, s.filename("timetable", "xlsx"), nil
}

// ExportTimetableICS 每个课表条目生成一个按周重复的 VEVENT，
// 首次发生日期为 weekOf 所在周（周一起）中对应的星期几
func (s *exportService) ExportTimetableICS(ctx context.Context, weekOf string) (*bytes.Buffer, string, error) {
	anchor := s.now().In(s.loc)
	if weekOf != "" {
		d, err := ParseDate(weekOf)
		if err != nil {
			return nil, "", ErrExportWeekOfMalformed
		}
		anchor = d
	}
	monday := weekStart(time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, s.loc))

	entries, err := s.repo.Timetable.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询课表失败", zap.Error(err))
		return nil, "", err
	}
	if len(entries) == 0 {
		return nil, "", ErrExportTimetableEmpty
	}

	cal := ics.NewCalendarFor(icsProductService)
	cal.SetMethod(ics.MethodPublish)
	cal.SetXWRCalName("Timetable")
	cal.SetXWRTimezone(s.loc.String())

	stamp := s.now().UTC()
	for _, e := range entries {
		wd, ok := weekdayNames[strings.ToLower(e.DayOfWeek)]
		if !ok {
			s.logger.Warn("课表条目星期几无效，跳过", zap.Int64("entry_id", e.EntryID), zap.String("day", e.DayOfWeek))
			continue
		}
		day := monday.AddDate(0, 0, (int(wd)+6)%7)
		start := day.Add(time.Duration(parseTimeOr(e.StartTime, StartOfDay)) * time.Minute)
		end := day.Add(time.Duration(parseTimeOr(e.EndTime, EndOfDay)) * time.Minute)

		summary := fmt.Sprintf("Subject #%d", e.SubjectID)
		if e.Subject != nil {
			summary = e.Subject.Name
		}

		event := cal.AddEvent(fmt.Sprintf("timetable-entry-%d@attendance-tracker", e.EntryID))
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(summary)
		event.SetDescription(fmt.Sprintf("%s %s-%s", e.DayOfWeek, e.StartTime, e.EndTime))
		event.AddRrule("FREQ=WEEKLY;BYDAY=" + icsDay(wd))
	}

	buf := new(bytes.Buffer)
	if err := cal.SerializeTo(buf); err != nil {
		s.logger.Error("写入 iCalendar 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("timetable_%s.ics", FormatDate(monday)), nil
}

// ── 内部辅助方法 ──

func (s *exportService) subjectRecords(ctx context.Context) ([]dto.SubjectRecord, error) {
	subjects, err := s.repo.Subject.List(ctx)
	if err != nil {
		s.logger.Error("列出科目失败", zap.Error(err))
		return nil, err
	}
	records := make([]dto.SubjectRecord, 0, len(subjects))
	for _, sub := range subjects {
		records = append(records, dto.SubjectRecord{
			Name:      sub.Name,
			Type:      sub.Type,
			Threshold: sub.Threshold,
			Attended:  sub.AttendedClasses,
			Total:     sub.TotalClasses,
		})
	}
	return records, nil
}

func (s *exportService) filename(prefix, ext string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, FormatDate(s.now().In(s.loc)), ext)
}

func recordPercentage(r dto.SubjectRecord) float64 {
	if r.Total <= 0 {
		return 0
	}
	return float64(r.Attended) / float64(r.Total) * 100
}

func roundPercentage(p float64) float64 {
	v, _ := strconv.ParseFloat(fmt.Sprintf("%.2f", p), 64)
	return v
}

func field(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

// intField 缺失或格式错误时返回 0
func intField(row []string, idx int) int {
	v := strings.TrimSpace(field(row, idx))
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return int(f)
	}
	return 0
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// weekStart 返回 t 所在周的周一零点
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

func icsDay(wd time.Weekday) string {
	return strings.ToUpper(wd.String()[:2])
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// [自证通过] internal/service/export_service.go
