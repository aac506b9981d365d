package xloader

import (
	"time"

	"github.com/omeyang/xfeed/pkg/observability/xlog"
	"github.com/omeyang/xfeed/pkg/observability/xmetrics"
)

// DefaultWait 默认收集窗口
const DefaultWait = 2 * time.Millisecond

type options[K comparable, V any] struct {
	wait     time.Duration
	maxBatch int
	def      func(K) V
	logger   xlog.Logger
	observer xmetrics.Observer
}

// Option 配置函数
type Option[K comparable, V any] func(*options[K, V])

// WithWait 设置收集窗口，默认 2ms，负数时忽略
func WithWait[K comparable, V any](d time.Duration) Option[K, V] {
	return func(o *options[K, V]) {
		if d >= 0 {
			o.wait = d
		}
	}
}

// WithMaxBatch 设置单批最大键数，达到后立即派发；0 表示不限制
func WithMaxBatch[K comparable, V any](n int) Option[K, V] {
	return func(o *options[K, V]) {
		if n >= 0 {
			o.maxBatch = n
		}
	}
}

// WithDefault 设置结果中缺失键的取值，默认零值
func WithDefault[K comparable, V any](f func(K) V) Option[K, V] {
	return func(o *options[K, V]) {
		o.def = f
	}
}

// WithLogger 设置日志记录器
func WithLogger[K comparable, V any](l xlog.Logger) Option[K, V] {
	return func(o *options[K, V]) {
		o.logger = l
	}
}

// WithObserver 设置可观测性观察者
func WithObserver[K comparable, V any](obs xmetrics.Observer) Option[K, V] {
	return func(o *options[K, V]) {
		o.observer = obs
	}
}
