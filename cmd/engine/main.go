package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	otelapi "go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"OnTrack/config"
	"OnTrack/internal/cache"
	"OnTrack/internal/celebrate"
	"OnTrack/internal/clock"
	"OnTrack/internal/handler"
	"OnTrack/internal/ledger"
	"OnTrack/internal/lifecycle"
	"OnTrack/internal/middleware"
	"OnTrack/internal/queue"
	"OnTrack/internal/remote"
	"OnTrack/internal/router"
	"OnTrack/internal/service"
	"OnTrack/internal/syncer"
	"OnTrack/pkg/logger"
	"OnTrack/pkg/metrics"
	"OnTrack/pkg/otel"
	"OnTrack/pkg/snowflake"
	"OnTrack/pkg/token"
	"OnTrack/storage"
	"OnTrack/storage/database"
)

func main() {
	config.MustValidate()

	// 日志部分
	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	// 初始化存储层，记得关闭外部连接
	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	if err := token.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize token package", zap.Error(err))
	} // token 在中间件前初始化，middleware 依赖 token

	if err := middleware.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize middlewares", zap.Error(err))
	}

	// 链路追踪与指标
	if config.Cfg.TracingEnabled {
		shutdownOtel, err := otel.InitOpenTelemetry(ctx, otel.Config{
			ServiceName:  config.Cfg.ServiceName,
			Environment:  config.Cfg.Environment,
			OTLPEndpoint: config.Cfg.TracingEndpoint,
			SampleRatio:  config.Cfg.TracingSampler,
		})
		if err != nil {
			logger.Logger.Warn("Failed to initialize OpenTelemetry, tracing disabled", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownOtel(shutdownCtx); err != nil {
					logger.Logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
				}
			}()
		}
	}
	if err := metrics.InitMetrics(); err != nil {
		logger.Logger.Warn("Failed to initialize engine metrics", zap.Error(err))
	}
	if err := middleware.InitMetrics(otelapi.Meter("ontrack-http")); err != nil {
		logger.Logger.Warn("Failed to initialize HTTP metrics", zap.Error(err))
	}

	// 引擎组装：账本 -> 网关 -> 同步 -> 服务 -> 仲裁 -> 日切探测
	clk := clock.New()
	gateway := remote.New(database.DB(), config.Cfg.TrialDays)
	profiles := service.NewProfileService(gateway, clk)

	profile, err := profiles.Ensure(ctx, config.Cfg.EngineUserID)
	if err != nil {
		logger.Logger.Fatal("Failed to ensure engine profile", zap.Error(err))
	}

	store := ledger.New()
	producer := queue.NewProducer()
	sync := syncer.New(store, gateway, producer, profile.ID,
		time.Duration(config.Cfg.SyncDebounceMillis)*time.Millisecond)

	shown := cache.NewPopupShown()
	shown.Restore(ctx)
	arbiter := celebrate.New(store, shown)

	streaks := service.NewStreakService(store, clk, gateway, profile.ID, config.Cfg.WeeklyGridWeeks)
	streaks.Seed(profile.LongestStreak)

	works := service.NewWorkService(store, sync, clk)
	achievements := service.NewAchievementService(store, sync, clk)

	var engine *service.Engine
	detector := lifecycle.New(clk, lifecycle.Config{
		TickInterval:      time.Duration(config.Cfg.TickIntervalSeconds) * time.Second,
		BackgroundRefresh: time.Duration(config.Cfg.BackgroundRefreshMinutes) * time.Minute,
	}, lifecycle.Hooks{
		OnDayChange:       func(ctx context.Context, today string) { engine.OnDayChange(ctx, today) },
		OnStaleForeground: func(ctx context.Context) { engine.OnStaleForeground(ctx) },
	})
	engine = service.NewEngine(store, sync, detector, arbiter, streaks, clk, profile.RegistrationDate)

	engine.Start(ctx)
	defer engine.Stop()
	go detector.Run(ctx)

	logger.Logger.Info("Engine starting",
		zap.String("service", config.Cfg.ServiceName),
		zap.String("port", config.Cfg.ServerPort),
		zap.String("environment", config.Cfg.Environment),
		zap.String("user", config.Cfg.EngineUserID),
		zap.String("registration_date", profile.RegistrationDate),
	)

	addr := net.JoinHostPort(config.Cfg.ServerHost, config.Cfg.ServerPort)
	serverOpts := []hertzconfig.Option{server.WithHostPorts(addr)}
	var tracingMW app.HandlerFunc
	if config.Cfg.TracingEnabled {
		tracerOpt, mw := middleware.NewServerTracerConfig()
		serverOpts = append(serverOpts, tracerOpt)
		tracingMW = mw
	}
	h := server.Default(serverOpts...)
	if tracingMW != nil {
		h.Use(tracingMW)
	}

	hd := handler.New(engine, works, achievements, profiles, config.Cfg.EngineUserID)
	router.Register(h, hd)

	// 优雅关闭：在单独的 goroutine 中监听关闭信号并调用 Shutdown
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}

		// 把挂起的乐观推送清完再退出
		works.Flush()
		achievements.Flush()
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	h.Spin()

	logger.Logger.Info("Engine shutting down gracefully")
}
