package whatsapp

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 令牌桶，限制回复发送频率，避免账号被 WhatsApp 限流
type RateLimiter struct {
	tokens    chan struct{}
	stopCh    chan struct{}
	interval  time.Duration
	closeOnce sync.Once
}

// NewRateLimiter 创建速率限制器
// ratePerSecond: 每秒允许发送的消息数，小于 1 时按 1 处理
func NewRateLimiter(ratePerSecond int) *RateLimiter {
	if ratePerSecond < 1 {
		ratePerSecond = 1
	}

	limiter := &RateLimiter{
		tokens:   make(chan struct{}, ratePerSecond),
		stopCh:   make(chan struct{}),
		interval: time.Second / time.Duration(ratePerSecond),
	}

	for i := 0; i < ratePerSecond; i++ {
		limiter.tokens <- struct{}{}
	}

	go limiter.refill()

	return limiter
}

// Wait 阻塞直到拿到令牌、ctx 取消或限制器关闭
func (r *RateLimiter) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.stopCh:
		return errLimiterClosed
	case <-r.tokens:
		return nil
	}
}

func (r *RateLimiter) refill() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			select {
			case r.tokens <- struct{}{}:
			default:
			}
		}
	}
}

// Close 停止补充令牌，可重复调用
func (r *RateLimiter) Close() {
	r.closeOnce.Do(func() { close(r.stopCh) })
}
