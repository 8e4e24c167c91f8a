package db

import (
	"context"

	"gorm.io/gorm"
)

// Scheduler 执行提交后的异步任务, worker.Pool 实现该接口
type Scheduler interface {
	Schedule(name string, task func(ctx context.Context))
}

type commitHook struct {
	name string
	fn   func(ctx context.Context)
}

// Tx 是一次事务的句柄, 可登记提交后回调
type Tx struct {
	DB    *gorm.DB
	hooks []commitHook
}

// OnCommit 登记事务提交后才执行的任务; 事务回滚时任务被丢弃
func (t *Tx) OnCommit(name string, fn func(ctx context.Context)) {
	t.hooks = append(t.hooks, commitHook{name: name, fn: fn})
}

// UnitOfWork 把事务边界与提交后回调队列绑定在一起
type UnitOfWork struct {
	db        *gorm.DB
	scheduler Scheduler
}

func NewUnitOfWork(db *gorm.DB, scheduler Scheduler) *UnitOfWork {
	return &UnitOfWork{db: db, scheduler: scheduler}
}

// Do 在事务中执行fn, 成功提交后按登记顺序调度回调
func (u *UnitOfWork) Do(ctx context.Context, fn func(tx *Tx) error) error {
	tx := &Tx{}
	err := u.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		tx.DB = gtx
		return fn(tx)
	})
	if err != nil {
		return err
	}

	for _, h := range tx.hooks {
		u.scheduler.Schedule(h.name, h.fn)
	}
	return nil
}
