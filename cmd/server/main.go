package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-relief-hub/internal/api"
	"go-relief-hub/internal/app"
	"go-relief-hub/pkg/config"
	"go-relief-hub/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 初始化配置
	if err := config.Init(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.GlobalConfig

	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.ProductionMode); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Server.Mode == "release" || cfg.Log.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化数据库、工作池、hub和通知渠道
	a, err := app.New(ctx, cfg, true)
	if err != nil {
		logger.L.Fatal("Failed to initialize application", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(a.RouterDeps()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.L.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Error("HTTP server stopped unexpectedly", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.L.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("HTTP server shutdown failed", zap.Error(err))
	}
	// 排空工作池中未完成的渲染和通知
	if err := a.Close(); err != nil {
		logger.L.Error("Failed to release resources", zap.Error(err))
	}
}
