package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/model"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/repository"
	pkgerrors "github.com/Dheirav/Attendance-Tracker-Mobile/pkg/errors"
)

// ── 测试用 Repository 聚合 ──

type mockRepos struct {
	subjects   *mockSubjectRepo
	slots      *mockSlotRepo
	timetable  *mockTimetableRepo
	attendance *mockAttendanceRepo
	overrides  *mockOverrideRepo
}

// newMockRepository 返回未持有数据库连接的聚合，Transaction 直接在 mock 上执行
func newMockRepository() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		subjects:   newMockSubjectRepo(),
		slots:      newMockSlotRepo(),
		attendance: newMockAttendanceRepo(),
		overrides:  newMockOverrideRepo(),
	}
	m.timetable = newMockTimetableRepo(m.subjects)
	repo := &repository.Repository{
		Subject:    m.subjects,
		Slot:       m.slots,
		Timetable:  m.timetable,
		Attendance: m.attendance,
		Override:   m.overrides,
	}
	return repo, m
}

// ── Mock SubjectRepository ──

type mockSubjectRepo struct {
	mu       sync.Mutex
	subjects map[int64]*model.Subject
	nextID   int64
}

func newMockSubjectRepo() *mockSubjectRepo {
	return &mockSubjectRepo{subjects: make(map[int64]*model.Subject)}
}

// seed 直接写入一个科目，返回其 ID
func (m *mockSubjectRepo) seed(name string, threshold, attended, total int) int64 {
	s := &model.Subject{
		Name:            name,
		Type:            model.SubjectTypeCore,
		Threshold:       threshold,
		AttendedClasses: attended,
		TotalClasses:    total,
	}
	_ = m.Create(context.Background(), s)
	return s.SubjectID
}

func (m *mockSubjectRepo) get(id int64) model.Subject {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subjects[id]; ok {
		return *s
	}
	return model.Subject{}
}

func (m *mockSubjectRepo) Create(_ context.Context, subject *model.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	subject.SubjectID = m.nextID
	subject.CreatedAt = time.Now()
	subject.UpdatedAt = subject.CreatedAt
	cp := *subject
	m.subjects[cp.SubjectID] = &cp
	return nil
}

func (m *mockSubjectRepo) BatchCreate(ctx context.Context, subjects []model.Subject) error {
	for i := range subjects {
		if err := m.Create(ctx, &subjects[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockSubjectRepo) GetByID(_ context.Context, id int64) (*model.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subjects[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) GetByName(_ context.Context, name string) (*model.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subjects {
		if strings.EqualFold(s.Name, name) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) List(_ context.Context) ([]model.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]model.Subject, 0, len(m.subjects))
	for _, s := range m.subjects {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result, nil
}

func (m *mockSubjectRepo) Update(_ context.Context, subject *model.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.subjects[subject.SubjectID]
	if !ok {
		return nil
	}
	stored.Name = subject.Name
	stored.Type = subject.Type
	stored.Threshold = subject.Threshold
	stored.UpdatedAt = time.Now()
	return nil
}

func (m *mockSubjectRepo) SetCounts(_ context.Context, subject *model.Subject, attended, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.subjects[subject.SubjectID]
	if !ok || stored.AttendedClasses != subject.AttendedClasses || stored.TotalClasses != subject.TotalClasses {
		return pkgerrors.ErrOptimisticLock
	}
	stored.AttendedClasses = attended
	stored.TotalClasses = total
	subject.AttendedClasses = attended
	subject.TotalClasses = total
	return nil
}

func (m *mockSubjectRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subjects, id)
	return nil
}

// ── Mock SlotRepository ──

type mockSlotRepo struct {
	mu     sync.Mutex
	slots  map[int64]*model.Slot
	nextID int64
}

func newMockSlotRepo() *mockSlotRepo {
	return &mockSlotRepo{slots: make(map[int64]*model.Slot)}
}

func (m *mockSlotRepo) seed(label, start, end string) int64 {
	s := &model.Slot{Label: label, StartTime: start, EndTime: end}
	_ = m.Create(context.Background(), s)
	return s.SlotID
}

func (m *mockSlotRepo) Create(_ context.Context, slot *model.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	slot.SlotID = m.nextID
	cp := *slot
	m.slots[cp.SlotID] = &cp
	return nil
}

func (m *mockSlotRepo) BatchCreate(ctx context.Context, slots []model.Slot) error {
	for i := range slots {
		if err := m.Create(ctx, &slots[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockSlotRepo) GetByID(_ context.Context, id int64) (*model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSlotRepo) ListByIDs(_ context.Context, ids []int64) ([]model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Slot
	for _, id := range ids {
		if s, ok := m.slots[id]; ok {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockSlotRepo) List(_ context.Context) ([]model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]model.Slot, 0, len(m.slots))
	for _, s := range m.slots {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SlotID < result[j].SlotID })
	return result, nil
}

func (m *mockSlotRepo) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.slots)), nil
}

func (m *mockSlotRepo) Update(_ context.Context, slot *model.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *slot
	m.slots[cp.SlotID] = &cp
	return nil
}

func (m *mockSlotRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, id)
	return nil
}

// ── Mock TimetableRepository ──

type mockTimetableRepo struct {
	mu       sync.Mutex
	entries  map[int64]*model.TimetableEntry
	nextID   int64
	subjects *mockSubjectRepo
}

func newMockTimetableRepo(subjects *mockSubjectRepo) *mockTimetableRepo {
	return &mockTimetableRepo{entries: make(map[int64]*model.TimetableEntry), subjects: subjects}
}

// withSubject 模拟 Preload("Subject")
func (m *mockTimetableRepo) withSubject(e model.TimetableEntry) model.TimetableEntry {
	if s, err := m.subjects.GetByID(context.Background(), e.SubjectID); err == nil {
		e.Subject = s
	}
	return e
}

func (m *mockTimetableRepo) Create(_ context.Context, entry *model.TimetableEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.EntryID == 0 {
		m.nextID++
		entry.EntryID = m.nextID
	} else if entry.EntryID > m.nextID {
		m.nextID = entry.EntryID
	}
	cp := *entry
	cp.Subject = nil
	cp.SlotIDs = append(model.IntArray(nil), entry.SlotIDs...)
	m.entries[cp.EntryID] = &cp
	return nil
}

func (m *mockTimetableRepo) GetByID(_ context.Context, id int64) (*model.TimetableEntry, error) {
	m.mu.Lock()
	e, ok := m.entries[id]
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m.withSubject(*e)
	return &cp, nil
}

func (m *mockTimetableRepo) sorted(filter func(*model.TimetableEntry) bool) []model.TimetableEntry {
	m.mu.Lock()
	var result []model.TimetableEntry
	for _, e := range m.entries {
		if filter(e) {
			result = append(result, *e)
		}
	}
	m.mu.Unlock()
	sort.Slice(result, func(i, j int) bool { return result[i].EntryID < result[j].EntryID })
	for i := range result {
		result[i] = m.withSubject(result[i])
	}
	return result
}

func (m *mockTimetableRepo) ListByDay(_ context.Context, day string) ([]model.TimetableEntry, error) {
	return m.sorted(func(e *model.TimetableEntry) bool { return e.DayOfWeek == day }), nil
}

func (m *mockTimetableRepo) ListAll(_ context.Context) ([]model.TimetableEntry, error) {
	return m.sorted(func(*model.TimetableEntry) bool { return true }), nil
}

func (m *mockTimetableRepo) FindForSubjectOnDay(_ context.Context, subjectID int64, day string) (*model.TimetableEntry, error) {
	list := m.sorted(func(e *model.TimetableEntry) bool { return e.SubjectID == subjectID && e.DayOfWeek == day })
	if len(list) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &list[0], nil
}

func (m *mockTimetableRepo) ExistsReferencingSlot(_ context.Context, slotID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.SlotIDs.Contains(int(slotID)) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTimetableRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *mockTimetableRepo) DeleteBySubject(_ context.Context, subjectID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.entries {
		if e.SubjectID == subjectID {
			delete(m.entries, id)
		}
	}
	return nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	mu      sync.Mutex
	records map[int64]*model.Attendance
	nextID  int64
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{records: make(map[int64]*model.Attendance)}
}

func isNatural(r *model.Attendance) bool {
	return r.Note == nil && r.SlotID != model.ManualSlotID
}

// bySubject 返回某科目的全部记录（按 ID 升序）
func (m *mockAttendanceRepo) bySubject(subjectID int64) []model.Attendance {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Attendance
	for _, r := range m.records {
		if r.SubjectID == subjectID {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AttendanceID < result[j].AttendanceID })
	return result
}

func (m *mockAttendanceRepo) insertLocked(record *model.Attendance) {
	m.nextID++
	record.AttendanceID = m.nextID
	record.CreatedAt = time.Now()
	cp := *record
	m.records[cp.AttendanceID] = &cp
}

func (m *mockAttendanceRepo) Upsert(_ context.Context, record *model.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record.Note = nil
	for _, r := range m.records {
		if isNatural(r) && r.SubjectID == record.SubjectID && r.SlotID == record.SlotID && r.Date == record.Date {
			r.Status = record.Status
			record.AttendanceID = r.AttendanceID
			return nil
		}
	}
	m.insertLocked(record)
	return nil
}

func (m *mockAttendanceRepo) Create(_ context.Context, record *model.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertLocked(record)
	return nil
}

func (m *mockAttendanceRepo) BatchCreate(_ context.Context, records []model.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range records {
		m.insertLocked(&records[i])
	}
	return nil
}

func (m *mockAttendanceRepo) GetByID(_ context.Context, id int64) (*model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) GetNatural(_ context.Context, subjectID, slotID int64, date string) (*model.Attendance, error) {
	for _, r := range m.bySubject(subjectID) {
		if isNatural(&r) && r.SlotID == slotID && r.Date == date {
			return &r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) GetNaturalOnDate(_ context.Context, subjectID int64, date string) (*model.Attendance, error) {
	list := m.bySubject(subjectID)
	for i := len(list) - 1; i >= 0; i-- {
		if isNatural(&list[i]) && list[i].Date == date {
			return &list[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) ListNaturalOnDate(_ context.Context, subjectID int64, date string) ([]model.Attendance, error) {
	var result []model.Attendance
	for _, r := range m.bySubject(subjectID) {
		if isNatural(&r) && r.Date == date {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SlotID < result[j].SlotID })
	return result, nil
}

func (m *mockAttendanceRepo) ListBySubject(_ context.Context, subjectID int64) ([]model.Attendance, error) {
	result := m.bySubject(subjectID)
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date > result[j].Date
		}
		return result[i].AttendanceID > result[j].AttendanceID
	})
	return result, nil
}

func (m *mockAttendanceRepo) CountBySubject(_ context.Context, subjectID int64) (int64, int64, error) {
	var present, total int64
	for _, r := range m.bySubject(subjectID) {
		total++
		if r.Status == model.StatusPresent {
			present++
		}
	}
	return present, total, nil
}

func (m *mockAttendanceRepo) ExistsOnDate(_ context.Context, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Date == date {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAttendanceRepo) UpdateStatusOnDate(_ context.Context, subjectID int64, date, status string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.records {
		if isNatural(r) && r.SubjectID == subjectID && r.Date == date {
			r.Status = status
			n++
		}
	}
	return n, nil
}

func (m *mockAttendanceRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *mockAttendanceRepo) DeleteOnDate(_ context.Context, subjectID int64, date string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.records {
		if r.SubjectID == subjectID && r.Date == date {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func (m *mockAttendanceRepo) DeleteAllBySubject(_ context.Context, subjectID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.records {
		if r.SubjectID == subjectID {
			delete(m.records, id)
		}
	}
	return nil
}

// ── Mock OverrideRepository ──

type mockOverrideRepo struct {
	mu        sync.Mutex
	overrides []model.AttendanceOverride
	nextID    int64
}

func newMockOverrideRepo() *mockOverrideRepo {
	return &mockOverrideRepo{}
}

func (m *mockOverrideRepo) Create(_ context.Context, o *model.AttendanceOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	o.OverrideID = m.nextID
	o.CreatedAt = time.Now()
	m.overrides = append(m.overrides, *o)
	return nil
}

func (m *mockOverrideRepo) ListBySubject(_ context.Context, subjectID int64) ([]model.AttendanceOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AttendanceOverride
	for i := len(m.overrides) - 1; i >= 0; i-- {
		if m.overrides[i].SubjectID == subjectID {
			result = append(result, m.overrides[i])
		}
	}
	return result, nil
}

func (m *mockOverrideRepo) DeleteBySubject(_ context.Context, subjectID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.overrides[:0]
	for _, o := range m.overrides {
		if o.SubjectID != subjectID {
			kept = append(kept, o)
		}
	}
	m.overrides = kept
	return nil
}
