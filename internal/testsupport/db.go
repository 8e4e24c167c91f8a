// Package testsupport 为各包测试提供隔离的数据库、任务池和测试数据
package testsupport

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go-relief-hub/internal/worker"
	"go-relief-hub/pkg/config"
	"go-relief-hub/pkg/db"

	"gorm.io/gorm"
)

// NewDB 在测试临时目录中打开已迁移的sqlite数据库
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "relief.db") + "?_busy_timeout=5000"
	conn, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return conn
}

// NewPool 启动一个小任务池, 测试结束时停止. 调用Wait等待提交后任务完成
func NewPool(t testing.TB) *worker.Pool {
	t.Helper()

	pool := worker.NewPool(&worker.Config{MaxWorkers: 2, QueueSize: 16, TaskTimeout: 10 * time.Second})
	pool.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pool.Stop(ctx)
	})
	return pool
}

// InitJWT 为令牌工具配置签名密钥
func InitJWT(t testing.TB) {
	t.Helper()
	saved := config.GlobalConfig.JWT
	config.GlobalConfig.JWT = config.JWTConfig{Secret: "test-secret", Expiration: time.Hour}
	t.Cleanup(func() { config.GlobalConfig.JWT = saved })
}
