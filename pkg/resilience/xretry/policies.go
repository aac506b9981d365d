package xretry

import "context"

var _ RetryPolicy = (*FixedRetryPolicy)(nil)

// FixedRetryPolicy 最多尝试固定次数（包含首次），IsRetryable 的错误才会继续。
// maxAttempts 为 1 时等同不重试。
type FixedRetryPolicy struct {
	maxAttempts int
}

// NewFixedRetry 创建固定次数重试策略，maxAttempts 最小为 1
func NewFixedRetry(maxAttempts int) *FixedRetryPolicy {
	return &FixedRetryPolicy{maxAttempts: max(maxAttempts, 1)}
}

// MaxAttempts 实现 RetryPolicy
func (p *FixedRetryPolicy) MaxAttempts() int { return p.maxAttempts }

// ShouldRetry 实现 RetryPolicy，ctx 结束后不再重试
func (p *FixedRetryPolicy) ShouldRetry(ctx context.Context, attempt int, err error) bool {
	return ctx.Err() == nil && attempt < p.maxAttempts && IsRetryable(err)
}
