package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	https_server "StoreSupport/api/http"
	"StoreSupport/internal/config"
	"StoreSupport/internal/initial"
	"StoreSupport/internal/modules/conversation/infrastructure/llm"
	"StoreSupport/pkg/zlog"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置与日志
	conf := config.GetConfig()
	zlog.Init(zlog.Options{LogPath: conf.LogConfig.LogPath, Level: conf.LogConfig.Level})
	defer func() { _ = zlog.Sync() }()

	// 2. 基础设施
	db, err := initial.NewGormDB(conf)
	if err != nil {
		zlog.Fatal("数据库初始化失败", zap.Error(err))
	}
	rdb := initial.InitRedis(conf.RedisConfig)
	defer func() { _ = rdb.Close() }()

	models, err := llm.NewModelsFromConfig(context.Background(), conf)
	if err != nil {
		zlog.Fatal("模型初始化失败", zap.Error(err))
	}

	srv, err := https_server.NewServer(https_server.Deps{Conf: conf, DB: db, Redis: rdb, Models: models})
	if err != nil {
		zlog.Fatal("服务初始化失败", zap.Error(err))
	}
	if err := srv.StartBackground(); err != nil {
		zlog.Fatal("后台任务启动失败", zap.Error(err))
	}

	// 3. 启动 HTTP 服务
	addr := fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.GE, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		zlog.Info(fmt.Sprintf("服务器正在启动，监听地址: %s", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("服务器启动失败: " + err.Error())
		}
	}()

	// 4. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("正在关闭服务器...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		zlog.Warn("http shutdown", zap.Error(err))
	}
	srv.Shutdown()
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	zlog.Info("服务器已关闭")
}
