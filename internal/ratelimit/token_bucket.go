package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket 令牌桶限流器，按每分钟请求数匀速补充令牌
type TokenBucket struct {
	rate           float64 // 每秒生成的令牌数
	capacity       float64 // 桶的容量
	tokens         float64 // 当前令牌数
	lastRefillTime time.Time
	mutex          sync.Mutex
	now            func() time.Time
}

// Option 令牌桶配置项
type Option func(*TokenBucket)

// WithClock 替换时间源，测试中使用
func WithClock(now func() time.Time) Option {
	return func(tb *TokenBucket) {
		if now != nil {
			tb.now = now
		}
	}
}

// NewTokenBucket 创建限流器。qpm <= 0 时返回 nil，表示不限流。
// capacity <= 0 时取 qpm 的一半，至少为 1。
func NewTokenBucket(qpm int, capacity int, opts ...Option) *TokenBucket {
	if qpm <= 0 {
		return nil
	}
	if capacity <= 0 {
		capacity = qpm / 2
		if capacity <= 0 {
			capacity = 1
		}
	}

	tb := &TokenBucket{
		rate:     float64(qpm) / 60.0,
		capacity: float64(capacity),
		tokens:   float64(capacity), // 初始填满
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(tb)
	}
	tb.lastRefillTime = tb.now()
	return tb
}

// refill 根据经过的时间填充令牌，调用方持有锁
func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()
	if elapsed <= 0 {
		return
	}
	tb.lastRefillTime = now

	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
}

// Allow 消耗一个令牌，没有可用令牌时返回 false。nil 限流器总是放行。
func (tb *TokenBucket) Allow() bool {
	if tb == nil {
		return true
	}
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// RetryAfter 距离下一个令牌可用还需等待的时间
func (tb *TokenBucket) RetryAfter() time.Duration {
	if tb == nil {
		return 0
	}
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		return 0
	}
	return time.Duration((1.0 - tb.tokens) / tb.rate * float64(time.Second))
}

// Wait 阻塞直到有令牌可用或 ctx 结束
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(tb.RetryAfter()):
		}
	}
}
