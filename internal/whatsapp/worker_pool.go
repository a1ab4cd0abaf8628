package whatsapp

import (
	"context"
	"sync"

	"despesas_bot/internal/logger"
)

// Task 一条入站消息的完整处理（分类、存储、回复）
type Task struct {
	Ctx     context.Context
	Handle  func(ctx context.Context)
	OnPanic func(ctx context.Context, recovered interface{}) // 可选，panic 恢复后调用
}

// WorkerPool 消息处理工作池
type WorkerPool struct {
	taskQueue chan Task
	wg        sync.WaitGroup
	workers   int
	mu        sync.RWMutex
	closed    bool
	onDrop    func()
}

// NewWorkerPool 创建工作池
// workers: worker 协程数量
// queueSize: 任务队列大小
// onDrop: 队列满丢弃任务时调用，可为 nil
func NewWorkerPool(workers int, queueSize int, onDrop func()) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	pool := &WorkerPool{
		taskQueue: make(chan Task, queueSize),
		workers:   workers,
		onDrop:    onDrop,
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	logger.L().Infof("Worker pool started with %d workers, queue size %d", workers, queueSize)
	return pool
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	logger.L().Debugf("Worker %d started", id)

	for task := range p.taskQueue {
		p.run(id, task)
	}

	logger.L().Debugf("Worker %d stopped", id)
}

func (p *WorkerPool) run(id int, task Task) {
	ctx := task.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.L().Errorf("Worker %d: handler panic recovered: %v", id, r)
			if task.OnPanic != nil {
				task.OnPanic(ctx, r)
			}
		}
	}()

	task.Handle(ctx)
}

// Submit 提交任务，队列已满或已关闭时丢弃并返回 false
func (p *WorkerPool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		logger.L().Debugf("Worker pool is shut down, task dropped")
		return false
	}

	select {
	case p.taskQueue <- task:
		return true
	default:
		logger.L().Warnf("Worker pool queue is full, task dropped")
		if p.onDrop != nil {
			p.onDrop()
		}
		return false
	}
}

// Shutdown 停止接收任务并等待已排队任务完成，可重复调用
func (p *WorkerPool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.taskQueue)
	p.mu.Unlock()

	logger.L().Info("Shutting down worker pool...")
	p.wg.Wait()
	logger.L().Info("Worker pool shut down successfully")
}
