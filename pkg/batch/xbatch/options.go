package xbatch

import (
	"time"

	"github.com/omeyang/xfeed/pkg/config/xconf"
	"github.com/omeyang/xfeed/pkg/observability/xlog"
	"github.com/omeyang/xfeed/pkg/observability/xmetrics"
	"github.com/omeyang/xfeed/pkg/resilience/xretry"
)

const (
	// DefaultBatchSize 默认块大小
	DefaultBatchSize = 100
	// DefaultMaxRetries 默认最大重试次数（不含首次执行）
	DefaultMaxRetries = 3
	// DefaultRetryDelay 默认重试间隔
	DefaultRetryDelay = time.Second
	// DefaultConcurrency 默认并发块数
	DefaultConcurrency = 5
)

// ProgressFunc 进度回调，done 为累计已处理的元素数
type ProgressFunc func(done, total int)

// ErrorFunc 块失败回调，每次失败都会调用，attempt 从 1 开始
type ErrorFunc func(err error, chunkIndex, attempt int)

// Options 批处理配置
type Options struct {
	BatchSize   int
	MaxRetries  int
	RetryDelay  time.Duration
	Concurrency int
	Backoff     xretry.BackoffPolicy
	OnProgress  ProgressFunc
	OnError     ErrorFunc
	Logger      xlog.Logger
	Observer    xmetrics.Observer
}

// Option 配置函数
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		BatchSize:   DefaultBatchSize,
		MaxRetries:  DefaultMaxRetries,
		RetryDelay:  DefaultRetryDelay,
		Concurrency: DefaultConcurrency,
	}
}

// WithBatchSize 设置块大小，<= 0 时忽略
func WithBatchSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.BatchSize = n
		}
	}
}

// WithMaxRetries 设置每块的最大重试次数，总执行次数为 n+1，负数时忽略
func WithMaxRetries(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.MaxRetries = n
		}
	}
}

// WithRetryDelay 设置固定重试间隔，负数时忽略
func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) {
		if d >= 0 {
			o.RetryDelay = d
		}
	}
}

// WithBackoff 使用自定义退避策略替代固定间隔
func WithBackoff(b xretry.BackoffPolicy) Option {
	return func(o *Options) {
		o.Backoff = b
	}
}

// WithSettings 按 batch 配置节设置块大小、重试次数、退避与并发数。
// 配置应已通过 [xconf.Settings.Validate]，无法识别的 backoff 名称保留固定间隔。
func WithSettings(s xconf.BatchSettings) Option {
	return func(o *Options) {
		WithBatchSize(s.Size)(o)
		WithMaxRetries(s.MaxRetries)(o)
		WithRetryDelay(s.RetryDelay)(o)
		WithConcurrency(s.Concurrency)(o)
		if b, err := xretry.ParseBackoff(s.Backoff, o.RetryDelay, s.MaxRetryDelay); err == nil {
			o.Backoff = b
		}
	}
}

// WithConcurrency 设置 ProcessParallel 的并发块数，<= 0 时忽略
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithOnProgress 设置进度回调
func WithOnProgress(f ProgressFunc) Option {
	return func(o *Options) {
		o.OnProgress = f
	}
}

// WithOnError 设置块失败回调
func WithOnError(f ErrorFunc) Option {
	return func(o *Options) {
		o.OnError = f
	}
}

// WithLogger 设置日志记录器
func WithLogger(l xlog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithObserver 设置可观测性观察者
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *Options) {
		o.Observer = obs
	}
}
