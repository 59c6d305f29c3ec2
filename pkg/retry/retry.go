// Package retry 提供一个可复用的出站调用重试策略：固定次数 + 均匀分布的随机等待。
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// ErrExhausted 表示所有尝试均已失败。
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy 描述重试行为。零值表示只尝试一次、不等待。
type Policy struct {
	MaxAttempts int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
	// Retryable 判断错误是否值得重试，为 nil 时所有错误都重试。
	Retryable func(error) bool
	// Sleep 可在测试中替换；默认实现会响应 ctx 取消。
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry 在每次等待前回调，用于记录日志。
	OnRetry func(attempt int, wait time.Duration, err error)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent 包装一个不应再重试的错误。
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Backoff 返回 [MinBackoff, MaxBackoff] 区间内均匀分布的等待时长。
func (p Policy) Backoff() time.Duration {
	lo, hi := p.MinBackoff, p.MaxBackoff
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi <= 0 {
		return 0
	}
	if lo < 0 {
		lo = 0
	}
	span := int64(hi - lo)
	if span == 0 {
		return lo
	}
	return lo + time.Duration(rand.Int64N(span+1))
}

// Do 执行 op，失败时按策略等待后重试。
// 成功返回 nil；不可重试的错误原样返回；次数用尽返回包装了 ErrExhausted 与最后一次错误的错误。
func (p Policy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		wait := p.Backoff()
		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, err)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
