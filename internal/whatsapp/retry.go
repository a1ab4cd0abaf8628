package whatsapp

import (
	"context"
	"errors"
	"time"

	"go.mau.fi/whatsmeow"
)

const (
	defaultReconnectInitial = 2 * time.Second
	defaultReconnectMax     = 2 * time.Minute
	reconnectJitterStep     = 250 * time.Millisecond
)

// ErrReconnectExhausted 超过最大重连次数
var ErrReconnectExhausted = errors.New("whatsapp reconnect attempts exhausted")

// ReconnectPolicy 指数退避重连策略
type ReconnectPolicy struct {
	Initial     time.Duration // 第一次重连前等待
	Max         time.Duration // 单次等待上限
	MaxAttempts int           // 0 表示不限次数
}

// Delay 计算第 attempt 次重连（从 1 开始）前的等待时间
// initial * 2^(attempt-1)，封顶 Max，再加上基于 seed 的固定抖动（不超过基础等待）
func (p ReconnectPolicy) Delay(attempt int, seed int64) time.Duration {
	initial := p.Initial
	if initial <= 0 {
		initial = defaultReconnectInitial
	}
	limit := p.Max
	if limit <= 0 {
		limit = defaultReconnectMax
	}
	if attempt < 1 {
		attempt = 1
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= limit {
			delay = limit
			break
		}
	}
	if delay > limit {
		delay = limit
	}

	// 抖动不超过基础等待
	jitter := reconnectJitter(seed)
	if jitter > delay {
		jitter = delay
	}
	return delay + jitter
}

// Exhausted 第 attempt 次重连是否超出上限
func (p ReconnectPolicy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt > p.MaxAttempts
}

func reconnectJitter(seed int64) time.Duration {
	if seed < 0 {
		seed = -seed
	}
	return time.Duration(seed%4+1) * reconnectJitterStep
}

// shouldRetryConnect 判断连接错误是否值得重试
func shouldRetryConnect(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, whatsmeow.ErrNotLoggedIn):
		return false
	case errors.Is(err, whatsmeow.ErrAlreadyConnected):
		return false
	}
	return true
}

// sleepContext 等待 d 或 ctx 取消，取消时返回 ctx.Err()
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// reconnectLoop 按策略重试 connect，直到成功、不可重试或 ctx 取消
func reconnectLoop(ctx context.Context, policy ReconnectPolicy, seed int64, connect func() error, onAttempt func(attempt int, delay time.Duration)) error {
	for attempt := 1; ; attempt++ {
		if policy.Exhausted(attempt) {
			return ErrReconnectExhausted
		}

		delay := policy.Delay(attempt, seed)
		if onAttempt != nil {
			onAttempt(attempt, delay)
		}
		if err := sleepContext(ctx, delay); err != nil {
			return err
		}

		err := connect()
		if err == nil {
			return nil
		}
		if !shouldRetryConnect(err) {
			return err
		}
	}
}
