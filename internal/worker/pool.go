// Package worker 在请求之外执行提交后的渲染和通知任务
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go-relief-hub/pkg/logger"

	"go.uber.org/zap"
)

var ErrPoolStopped = errors.New("worker pool is stopped")

// 任务池配置
type Config struct {
	MaxWorkers  int           // 最大工作协程数
	QueueSize   int           // 任务队列长度
	TaskTimeout time.Duration // 单个任务超时
}

// 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxWorkers:  4,
		QueueSize:   256,
		TaskTimeout: 2 * time.Minute,
	}
}

// 校验配置
func (cfg *Config) Validate() error {
	if cfg.MaxWorkers < 1 {
		return errors.New("max workers must be greater than 0")
	}
	if cfg.QueueSize < 1 {
		return errors.New("queue size must be greater than 0")
	}
	if cfg.TaskTimeout < 0 {
		return errors.New("task timeout must be greater than or equal to 0")
	}
	return nil
}

type task struct {
	name string
	fn   func(ctx context.Context)
}

// Pool 由固定数量的协程消费带缓冲的任务队列.
// 已调度的任务不会丢弃: 队列满时另起协程排队, Stop会等待所有已调度任务.
type Pool struct {
	maxWorkers  int
	taskTimeout time.Duration

	tasks   chan task
	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
	pending sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	completed atomic.Int64
	panicked  atomic.Int64
}

func NewPool(cfg *Config) *Pool {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		maxWorkers:  cfg.MaxWorkers,
		taskTimeout: cfg.TaskTimeout,
		tasks:       make(chan task, cfg.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// 启动工作协程
func (p *Pool) Start() {
	for i := 0; i < p.maxWorkers; i++ {
		p.workers.Add(1)
		go p.worker()
	}
}

// Schedule 实现 db.Scheduler
func (p *Pool) Schedule(name string, fn func(ctx context.Context)) {
	if err := p.Submit(name, fn); err != nil {
		logger.L.Error("Dropping task, pool stopped", zap.String("task", name), zap.Error(err))
	}
}

// Submit 排队执行fn, Stop之后返回ErrPoolStopped
func (p *Pool) Submit(name string, fn func(ctx context.Context)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}

	p.pending.Add(1)
	t := task{name: name, fn: fn}
	select {
	case p.tasks <- t:
	default:
		logger.L.Warn("Worker queue full, running task in dedicated goroutine", zap.String("task", name))
		go p.run(t)
	}
	return nil
}

func (p *Pool) worker() {
	defer p.workers.Done()
	for t := range p.tasks {
		p.run(t)
	}
}

func (p *Pool) run(t task) {
	defer p.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			logger.L.Error("Task panicked", zap.String("task", t.name), zap.Any("panic", r))
		}
	}()

	ctx := p.ctx
	if p.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(p.ctx, p.taskTimeout)
		defer cancel()
	}

	start := time.Now()
	t.fn(ctx)
	p.completed.Add(1)
	logger.L.Debug("Task finished", zap.String("task", t.name), zap.Duration("took", time.Since(start)))
}

// Wait 阻塞到目前已调度的任务全部完成
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Stop 拒绝新任务, 排空队列并等待运行中的任务或ctx结束
func (p *Pool) Stop(ctx context.Context) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.pending.Wait()
		p.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.L.Warn("Worker pool stop timed out")
	}
	p.cancel()
}

// 返回诊断用的计数
func (p *Pool) Metrics() map[string]int64 {
	return map[string]int64{
		"queued":    int64(len(p.tasks)),
		"completed": p.completed.Load(),
		"panicked":  p.panicked.Load(),
	}
}
