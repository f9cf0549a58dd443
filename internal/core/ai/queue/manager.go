package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"recipe-aggregator/internal/core/ai/provider"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/pkg/common"

	"go.uber.org/zap"
)

var (
	ErrQueueFull   = errors.New("generation queue is full")
	ErrQueueClosed = errors.New("generation queue is closed")
)

// job 隊列中的一筆生成請求
type job struct {
	ctx    context.Context
	req    *provider.Request
	result chan result
}

// result 處理結果
type result struct {
	resp *provider.Response
	err  error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
}

// Manager 以固定數量的 worker 送出生成請求，本身也是一個 provider.Provider
type Manager struct {
	provider  provider.Provider
	queue     chan *job
	done      chan struct{}
	workers   int
	maxSize   int
	processed int64
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewManager 創建隊列並啟動 worker
func NewManager(cfg config.QueueConfig, p provider.Provider) *Manager {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = 1
	}

	m := &Manager{
		provider: p,
		queue:    make(chan *job, maxSize),
		done:     make(chan struct{}),
		workers:  workers,
		maxSize:  maxSize,
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.work(i)
	}

	common.LogInfo("生成隊列已啟動", zap.Int("workers", workers), zap.Int("max_queue_size", maxSize))
	return m
}

func (m *Manager) work(id int) {
	defer m.wg.Done()
	for {
		select {
		case j := <-m.queue:
			// 排隊期間呼叫端已放棄
			if err := j.ctx.Err(); err != nil {
				j.result <- result{err: err}
				continue
			}
			resp, err := m.provider.Generate(j.ctx, j.req)
			atomic.AddInt64(&m.processed, 1)
			j.result <- result{resp: resp, err: err}
		case <-m.done:
			common.LogDebug("生成 worker 結束", zap.Int("worker", id))
			return
		}
	}
}

// Generate 將請求放入隊列並等待結果；隊列已滿時立即回傳 ErrQueueFull
func (m *Manager) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	j := &job{ctx: ctx, req: req, result: make(chan result, 1)}

	select {
	case <-m.done:
		return nil, ErrQueueClosed
	default:
	}

	select {
	case m.queue <- j:
	default:
		common.LogWarn("生成隊列已滿", zap.Int("queue_length", len(m.queue)), zap.Int("max_queue_size", m.maxSize))
		return nil, ErrQueueFull
	}

	select {
	case res := <-j.result:
		return res.resp, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.done:
		return nil, ErrQueueClosed
	}
}

func (m *Manager) GetModel() string {
	return m.provider.GetModel()
}

func (m *Manager) GetTimeout() time.Duration {
	return m.provider.GetTimeout()
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() Status {
	return Status{
		QueueLength:    len(m.queue),
		ProcessedCount: int(atomic.LoadInt64(&m.processed)),
		MaxQueueSize:   m.maxSize,
		Workers:        m.workers,
	}
}

// Close 停止 worker 並關閉底層 provider
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
		err = m.provider.Close()
	})
	return err
}
