package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-relief-hub/internal/model"
	"go-relief-hub/internal/render"
	"go-relief-hub/internal/repository"
	"go-relief-hub/internal/storage"
	"go-relief-hub/pkg/db"
	"go-relief-hub/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExportService 跟踪导出任务: 请求立即返回, 渲染在事务提交后异步进行
type ExportService struct {
	uow          *db.UnitOfWork
	jobs         *repository.ExportJobRepository
	flashUpdates *repository.FlashUpdateRepository
	artifacts    *artifactBuilder
}

func NewExportService(
	uow *db.UnitOfWork,
	jobs *repository.ExportJobRepository,
	flashUpdates *repository.FlashUpdateRepository,
	renderers render.Registry,
	store storage.ArtifactStore,
) *ExportService {
	return &ExportService{
		uow:          uow,
		jobs:         jobs,
		flashUpdates: flashUpdates,
		artifacts: &artifactBuilder{
			flashUpdates: flashUpdates,
			renderers:    renderers,
			store:        store,
			now:          time.Now,
		},
	}
}

// 渲染任务只在内存中排队, 进程退出后不会再执行
const abandonedExportReason = "export abandoned: rendering did not finish before the worker stopped"

// ReapStale 把创建超过maxAge仍为pending的任务标记为失败, 让之后的请求能新建任务
func (s *ExportService) ReapStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	n, err := s.jobs.FailStale(ctx, s.artifacts.now().Add(-maxAge), abandonedExportReason)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.L.Warn("Failed stale export jobs", zap.Int64("count", n), zap.Duration("maxAge", maxAge))
	}
	return n, nil
}

// RequestExport 返回该 (主体, 类型) 当前未失败的任务, 没有则新建一个pending任务.
// created 表示本次调用是否新建了任务.
func (s *ExportService) RequestExport(ctx context.Context, subjectID uint, kind string) (job *model.ExportJob, created bool, err error) {
	if _, err := s.artifacts.renderers.Lookup(kind); err != nil {
		return nil, false, NewValidationError("kind", err.Error())
	}

	exists, err := s.flashUpdates.Exists(ctx, subjectID)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, notFound("flash update", subjectID)
	}

	err = s.uow.Do(ctx, func(tx *db.Tx) error {
		jobs := s.jobs.WithTx(tx.DB)
		existing, err := jobs.FindActive(ctx, subjectID, kind)
		if err != nil {
			return err
		}
		if existing != nil {
			job = existing
			return nil
		}

		key := model.ExportActiveKey(subjectID, kind)
		job = &model.ExportJob{
			ID:        uuid.NewString(),
			SubjectID: subjectID,
			Kind:      kind,
			Status:    model.ExportStatusPending,
			ActiveKey: &key,
		}
		if err := jobs.Create(ctx, job); err != nil {
			return err
		}
		created = true

		jobID := job.ID
		tx.OnCommit("export:render", func(ctx context.Context) {
			s.render(ctx, jobID, subjectID, kind)
		})
		return nil
	})

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// 并发请求先提交了, 返回它创建的任务
		existing, ferr := s.jobs.FindActive(ctx, subjectID, kind)
		if ferr != nil {
			return nil, false, ferr
		}
		if existing == nil {
			return nil, false, fmt.Errorf("export job for %s vanished after conflict", model.ExportActiveKey(subjectID, kind))
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if created {
		logger.L.Info("Export job created",
			zap.String("job_id", job.ID), zap.Uint("subject_id", subjectID), zap.String("kind", kind))
	}
	return job, created, nil
}

// Poll 只读取当前状态, 不会等待渲染
func (s *ExportService) Poll(ctx context.Context, jobID string) (*model.ExportJob, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, notFound("export job", jobID)
	}
	return job, nil
}

func (s *ExportService) ListForSubject(ctx context.Context, subjectID uint) ([]model.ExportJob, error) {
	return s.jobs.ListBySubject(ctx, subjectID)
}

// render 每个任务只执行一次, 失败不重试
func (s *ExportService) render(ctx context.Context, jobID string, subjectID uint, kind string) {
	log := logger.L.With(zap.String("job_id", jobID), zap.Uint("subject_id", subjectID), zap.String("kind", kind))

	_, url, err := s.artifacts.build(ctx, subjectID, kind, "exports/"+jobID)
	if err != nil {
		log.Error("Export render failed", zap.Error(err))
		// 渲染可能已用尽任务超时, 状态写入使用独立的上下文
		ok, merr := s.jobs.MarkFailed(context.WithoutCancel(ctx), jobID, summarize(err))
		if merr != nil {
			log.Error("Failed to mark export job failed", zap.Error(merr))
		} else if !ok {
			log.Warn("Export job was no longer pending")
		}
		return
	}

	ok, err := s.jobs.MarkReady(context.WithoutCancel(ctx), jobID, url)
	if err != nil {
		log.Error("Failed to mark export job ready", zap.Error(err))
		return
	}
	if !ok {
		log.Warn("Export job was no longer pending")
		return
	}
	log.Info("Export job ready", zap.String("url", url))
}
