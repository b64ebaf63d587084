package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"NewsPulse/internal/app"
	"NewsPulse/internal/config"
	"NewsPulse/internal/scheduler"
)

func main() {
	// 1. 加载配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	// 2. 初始化日志
	logrusLogger := app.NewLogger(cfg.Log)
	logrusLogger.Info("配置文件加载成功")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 连接各数据库实例、建表、组装服务
	application, err := app.New(ctx, cfg, logrusLogger)
	if err != nil {
		logrusLogger.Fatalf("初始化失败: %v", err)
	}
	defer application.Close()

	// 4. 定时抓取（cron 为空则不启用）
	if cfg.Ingest.Cron != "" {
		sched, err := scheduler.New(cfg.Ingest.Cron, cfg.Ingest.Jobs, application.Ingest, logrusLogger)
		if err != nil {
			logrusLogger.Fatalf("定时任务配置错误: %v", err)
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
	}

	// 5. 启动服务（从配置读取端口）
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: application.Router(),
	}
	go func() {
		logrusLogger.Infof("服务启动成功，端口：%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrusLogger.Fatalf("启动服务失败: %v", err)
		}
	}()

	<-ctx.Done()
	logrusLogger.Info("收到退出信号，正在关闭服务…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrusLogger.WithError(err).Error("关闭HTTP服务失败")
	}
}
