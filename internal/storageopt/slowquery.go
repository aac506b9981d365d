package storageopt

import (
	"context"
	"time"
)

// SlowQueryHook 慢查询回调钩子，在请求路径上同步执行，应保持轻量。
type SlowQueryHook[T any] func(ctx context.Context, info T)

// SlowQueryOptions 慢查询检测配置。
type SlowQueryOptions[T any] struct {
	// Threshold 慢查询阈值，为 0 时禁用检测。
	Threshold time.Duration

	// Hook 触发时调用，可为 nil（只计数）。
	Hook SlowQueryHook[T]
}

// SlowQueryDetector 慢查询检测器。
type SlowQueryDetector[T any] struct {
	options SlowQueryOptions[T]
	counter SlowQueryCounter
}

// NewSlowQueryDetector 创建慢查询检测器，负阈值视为禁用。
func NewSlowQueryDetector[T any](opts SlowQueryOptions[T]) *SlowQueryDetector[T] {
	if opts.Threshold < 0 {
		opts.Threshold = 0
	}
	return &SlowQueryDetector[T]{options: opts}
}

// MaybeSlowQuery 在 duration >= Threshold 时计数并调用钩子，返回是否触发。
// nil 接收者返回 false。
func (d *SlowQueryDetector[T]) MaybeSlowQuery(ctx context.Context, info T, duration time.Duration) bool {
	if d == nil || d.options.Threshold == 0 || duration < d.options.Threshold {
		return false
	}
	d.counter.Inc()
	if d.options.Hook != nil {
		d.options.Hook(ctx, info)
	}
	return true
}

// Threshold 返回当前阈值。
func (d *SlowQueryDetector[T]) Threshold() time.Duration {
	if d == nil {
		return 0
	}
	return d.options.Threshold
}

// Count 返回已触发的慢查询次数。
func (d *SlowQueryDetector[T]) Count() int64 {
	if d == nil {
		return 0
	}
	return d.counter.Count()
}
