package xquerybatch

import (
	"context"
	"time"

	"github.com/omeyang/xfeed/pkg/batch/xbatch"
	"github.com/omeyang/xfeed/pkg/config/xconf"
	"github.com/omeyang/xfeed/pkg/observability/xlog"
	"github.com/omeyang/xfeed/pkg/observability/xmetrics"
)

// DefaultChunkSize 每个事务默认包含的查询数
const DefaultChunkSize = 10

// SlowChunkInfo 慢事务块信息
type SlowChunkInfo struct {
	// Queries 块内查询数
	Queries int
	// Duration 事务耗时（单次尝试）
	Duration time.Duration
}

// SlowHook 慢事务块回调，在执行路径上同步调用
type SlowHook func(ctx context.Context, info SlowChunkInfo)

type options struct {
	chunkSize     int
	concurrency   int
	slowThreshold time.Duration
	slowHook      SlowHook
	batchOpts     []xbatch.Option
	logger        xlog.Logger
	observer      xmetrics.Observer
}

// Option 定义 Batcher 的配置函数
type Option func(*options)

// WithChunkSize 设置默认块大小，调用时传入的 chunkSize <= 0 时使用，默认 10
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithConcurrency 设置并发执行的事务块数，默认 1（顺序执行）
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithSlowThreshold 设置慢事务阈值，0 表示关闭检测
func WithSlowThreshold(d time.Duration) Option {
	return func(o *options) {
		o.slowThreshold = d
	}
}

// WithSlowHook 设置慢事务回调
func WithSlowHook(h SlowHook) Option {
	return func(o *options) {
		o.slowHook = h
	}
}

// WithBatchOptions 追加底层 xbatch 处理器的选项，例如重试次数与间隔。
// 块大小由 ExecuteQueries 决定，此处的 WithBatchSize 会被覆盖。
func WithBatchOptions(opts ...xbatch.Option) Option {
	return func(o *options) {
		o.batchOpts = append(o.batchOpts, opts...)
	}
}

// WithSettings 按 batch 配置节设置块大小、并发数、慢事务阈值以及每块的重试与退避
func WithSettings(s xconf.BatchSettings) Option {
	return func(o *options) {
		WithChunkSize(s.QueryChunkSize)(o)
		WithConcurrency(s.Concurrency)(o)
		WithSlowThreshold(s.SlowThreshold)(o)
		WithBatchOptions(xbatch.WithSettings(s))(o)
	}
}

// WithLogger 设置日志记录器
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObserver 设置观测器
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}
