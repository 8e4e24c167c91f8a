// Package app 按配置组装数据库、工作池、通知渠道和各个服务
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-relief-hub/internal/api"
	"go-relief-hub/internal/interfaces"
	"go-relief-hub/internal/notify"
	"go-relief-hub/internal/render"
	"go-relief-hub/internal/repository"
	"go-relief-hub/internal/service"
	"go-relief-hub/internal/storage"
	"go-relief-hub/internal/websocket"
	"go-relief-hub/internal/worker"
	"go-relief-hub/pkg/config"
	"go-relief-hub/pkg/db"
	"go-relief-hub/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	DB   *gorm.DB
	Pool *worker.Pool
	Hub  interfaces.ConnectionManager

	Users         *repository.UserRepository
	ExportJobs    *repository.ExportJobRepository
	Geo           *repository.GeoRepository
	Auth          *service.AuthService
	Groups        *service.GroupService
	FlashUpdates  *service.FlashUpdateService
	Export        *service.ExportService
	Share         *service.ShareService
	Subscriptions *service.SubscriptionService

	mediaDir   string
	staleAfter time.Duration
	closers    []func() error
}

// New 打开数据库并组装全部服务. withHub为false时不创建实时推送hub, 供命令行工具使用.
func New(ctx context.Context, cfg config.Config, withHub bool) (*App, error) {
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn); err != nil {
		return nil, err
	}
	logger.L.Info("Database connected and migrated", zap.String("driver", cfg.Database.Driver))

	a := &App{DB: conn}
	a.closers = append(a.closers, func() error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	store, err := storage.New(cfg.Export)
	if err != nil {
		a.Close()
		return nil, err
	}
	switch s := store.(type) {
	case *storage.MinioStore:
		if err := s.EnsureBucket(ctx); err != nil {
			a.Close()
			return nil, err
		}
	case *storage.LocalStore:
		a.mediaDir = s.BasePath()
	}

	if withHub {
		hub, err := websocket.CreateHub(cfg.Messaging)
		if err != nil {
			a.Close()
			return nil, err
		}
		stop, err := websocket.StartHub(hub)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Hub = hub
		a.closers = append(a.closers, func() error { stop(); return nil })
	}

	a.Users = repository.NewUserRepository(conn)
	groups := repository.NewGroupRepository(conn)
	members := repository.NewGroupMemberRepository(conn)
	flashUpdates := repository.NewFlashUpdateRepository(conn)
	subscriptions := repository.NewShareSubscriptionRepository(conn)
	a.ExportJobs = repository.NewExportJobRepository(conn)
	a.Geo = repository.NewGeoRepository(conn)

	msgCfg := cfg.Messaging
	if a.Hub == nil {
		msgCfg.Provider = withoutProvider(msgCfg.Provider, "hub")
	}
	notifier, closeNotifier, err := notify.New(msgCfg, notify.NewDirectory(a.Users, members), a.Hub)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeNotifier)

	poolCfg := &worker.Config{
		MaxWorkers:  cfg.Worker.MaxWorkers,
		QueueSize:   cfg.Worker.QueueSize,
		TaskTimeout: cfg.Worker.TaskTimeout,
	}
	if err := poolCfg.Validate(); err != nil {
		a.Close()
		return nil, fmt.Errorf("invalid worker config: %w", err)
	}
	a.Pool = worker.NewPool(poolCfg)
	a.Pool.Start()
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a.Pool.Stop(ctx)
		return nil
	})

	uow := db.NewUnitOfWork(conn, a.Pool)
	renderers := render.DefaultRegistry()
	if cfg.Export.PDFFontPath != "" {
		pdf, err := render.NewUTF8PDFRenderer(cfg.Export.PDFFontPath)
		if err != nil {
			a.Close()
			return nil, err
		}
		renderers["pdf"] = pdf
	}

	a.Auth = service.NewAuthService(a.Users)
	a.Groups = service.NewGroupService(groups, members, a.Users)
	a.Subscriptions = service.NewSubscriptionService(subscriptions, groups)
	a.Export = service.NewExportService(uow, a.ExportJobs, flashUpdates, renderers, store)
	a.Share = service.NewShareService(uow, repository.NewShareEventRepository(conn), subscriptions, flashUpdates,
		a.Users, groups, notifier, renderers, store)
	a.FlashUpdates = service.NewFlashUpdateService(uow, flashUpdates, a.Geo, a.Share)

	if err := a.Subscriptions.Seed(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("seed share subscriptions: %w", err)
	}
	// 上次运行遗留的pending任务不会再被渲染
	a.staleAfter = staleExportAge(poolCfg)
	if _, err := a.ReapStaleExports(ctx, 0); err != nil {
		a.Close()
		return nil, fmt.Errorf("reap stale export jobs: %w", err)
	}
	return a, nil
}

// ReapStaleExports 把超过maxAge仍为pending的导出任务标记为失败; maxAge<=0 时使用任务超时
func (a *App) ReapStaleExports(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		maxAge = a.staleAfter
	}
	return a.Export.ReapStale(ctx, maxAge)
}

func (a *App) RouterDeps() api.Deps {
	return api.Deps{
		Users:         a.Users,
		Auth:          a.Auth,
		Groups:        a.Groups,
		FlashUpdates:  a.FlashUpdates,
		Export:        a.Export,
		Share:         a.Share,
		Subscriptions: a.Subscriptions,
		Hub:           a.Hub,
		MediaDir:      a.mediaDir,
	}
}

// Close 按创建的逆序释放资源: 先排空工作池, 再关闭通知渠道、hub和数据库
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// 超过单个任务超时仍为pending的导出任务视为已丢失
func staleExportAge(cfg *worker.Config) time.Duration {
	if cfg.TaskTimeout > 0 {
		return cfg.TaskTimeout
	}
	return worker.DefaultConfig().TaskTimeout
}

// 没有hub时去掉 "hub" 渠道
func withoutProvider(providers, drop string) string {
	var kept []string
	for _, p := range strings.Split(providers, ",") {
		if p = strings.TrimSpace(p); p != "" && p != drop {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ",")
}
