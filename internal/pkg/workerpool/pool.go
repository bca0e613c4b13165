package workerpool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// Config Worker Pool 配置
type Config struct {
	Workers int // worker 数量
}

// DefaultConfig 默认配置。文档分块是 CPU 密集型任务，
// worker 数量不宜设得过大。
func DefaultConfig() *Config {
	return &Config{Workers: 8}
}

// Statistics 统计信息
type Statistics struct {
	mu sync.RWMutex

	Submitted int64
	Completed int64
	Failed    int64
}

func (s *Statistics) incSubmitted() {
	s.mu.Lock()
	s.Submitted++
	s.mu.Unlock()
}

func (s *Statistics) incCompleted() {
	s.mu.Lock()
	s.Completed++
	s.mu.Unlock()
}

func (s *Statistics) incFailed() {
	s.mu.Lock()
	s.Failed++
	s.mu.Unlock()
}

func (s *Statistics) Get() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Statistics{
		Submitted: s.Submitted,
		Completed: s.Completed,
		Failed:    s.Failed,
	}
}

// Pool 基于 ants 的 Worker Pool，用于文档批量分块等并行任务
type Pool struct {
	pool   *ants.Pool
	stats  *Statistics
	logger *zap.Logger
}

// New 创建 Worker Pool
func New(config *Config, logger *zap.Logger) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}

	antsPool, err := ants.NewPool(config.Workers,
		ants.WithPanicHandler(func(err interface{}) {
			logger.Error("worker panic", zap.Any("error", err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	return &Pool{
		pool:   antsPool,
		stats:  &Statistics{},
		logger: logger,
	}, nil
}

// Submit 提交任务
func (p *Pool) Submit(task func()) error {
	if p.pool.IsClosed() {
		return ErrPoolClosed
	}

	p.stats.incSubmitted()
	err := p.pool.Submit(func() {
		task()
		p.stats.incCompleted()
	})
	if err != nil {
		p.stats.incFailed()
	}
	return err
}

// Running 获取运行中的 worker 数量
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Free 获取空闲 worker 数量
func (p *Pool) Free() int {
	return p.pool.Free()
}

// Stats 获取统计信息
func (p *Pool) Stats() Statistics {
	return p.stats.Get()
}

// Shutdown 关闭，不再接受新任务
func (p *Pool) Shutdown() {
	p.pool.Release()
}
