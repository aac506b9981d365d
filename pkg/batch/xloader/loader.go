package xloader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omeyang/xfeed/pkg/observability/xlog"
	"github.com/omeyang/xfeed/pkg/observability/xmetrics"
)

const componentName = "xloader"

// BatchFunc 批量查询函数，返回以键索引的结果。
// 结果中缺失的键取默认值，不视为错误。
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Thunk 共享的未决结果，调用时阻塞到结果就绪或 ctx 结束。
// ctx 只控制本次等待，不会取消批量查询。
type Thunk[V any] func(ctx context.Context) (V, error)

// LoaderStats 加载统计
type LoaderStats struct {
	// Batches 派发的批次数
	Batches uint64
	// Keys 送入批量查询的键总数
	Keys uint64
	// Hits 由记忆表或进行中批次直接满足的 Load 次数
	Hits uint64
}

// result 单个键的结果，done 关闭后 val 与 err 不再变化
type result[V any] struct {
	done chan struct{}
	val  V
	err  error
}

func newResult[V any]() *result[V] {
	return &result[V]{done: make(chan struct{})}
}

func (r *result[V]) resolve(v V, err error) {
	r.val, r.err = v, err
	close(r.done)
}

func (r *result[V]) thunk() Thunk[V] {
	return func(ctx context.Context) (V, error) {
		if ctx == nil {
			ctx = context.Background()
		}
		select {
		case <-r.done:
			return r.val, r.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}
}

// batch 收集中的批次，index 记录键在 keys 中的位置
type batch[K comparable, V any] struct {
	keys    []K
	results []*result[V]
	index   map[K]int
	timer   *time.Timer
}

// Loader 请求级批量加载器，可并发使用
type Loader[K comparable, V any] struct {
	ctx   context.Context
	fetch BatchFunc[K, V]
	opts  options[K, V]

	mu      sync.Mutex
	memo    map[K]*result[V]
	pending *batch[K, V]

	batches atomic.Uint64
	keys    atomic.Uint64
	hits    atomic.Uint64
}

// New 创建 Loader。ctx 为请求 context，取消后 Loader 失效。
// fetch 为 nil 时所有 Load 返回 ErrNilFetch。
func New[K comparable, V any](ctx context.Context, fetch BatchFunc[K, V], opts ...Option[K, V]) *Loader[K, V] {
	if ctx == nil {
		ctx = context.Background()
	}
	o := options[K, V]{wait: DefaultWait}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	l := &Loader[K, V]{
		ctx:   ctx,
		fetch: fetch,
		opts:  o,
		memo:  make(map[K]*result[V]),
	}
	context.AfterFunc(ctx, l.abort)
	return l
}

// Load 加载单个键
func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, error) {
	return l.LoadThunk(key)(ctx)
}

// LoadMany 加载多个键，结果与 keys 一一对应。
// 任一键失败时返回 nil 与第一个错误。
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) ([]V, error) {
	thunks := make([]Thunk[V], len(keys))
	for i, k := range keys {
		thunks[i] = l.LoadThunk(k)
	}
	values := make([]V, len(keys))
	for i, t := range thunks {
		v, err := t(ctx)
		if err != nil {
			return nil, fmt.Errorf("xloader: load key %v: %w", keys[i], err)
		}
		values[i] = v
	}
	return values, nil
}

// LoadThunk 登记 key 并返回其共享结果，不阻塞。
func (l *Loader[K, V]) LoadThunk(key K) Thunk[V] {
	if l.fetch == nil {
		return failed[V](ErrNilFetch)
	}
	if err := l.ctx.Err(); err != nil {
		return failed[V](err)
	}

	l.mu.Lock()
	if r, ok := l.memo[key]; ok {
		l.mu.Unlock()
		l.hits.Add(1)
		return r.thunk()
	}

	// Clear 之后再次 Load 的键可能仍在收集中的批次里，直接复用其结果
	if b := l.pending; b != nil {
		if i, ok := b.index[key]; ok {
			r := b.results[i]
			l.memo[key] = r
			l.mu.Unlock()
			l.hits.Add(1)
			return r.thunk()
		}
	}

	r := newResult[V]()
	l.memo[key] = r
	if l.pending == nil {
		b := &batch[K, V]{index: make(map[K]int)}
		b.timer = time.AfterFunc(l.opts.wait, func() { l.dispatch(b) })
		l.pending = b
	}
	b := l.pending
	b.index[key] = len(b.keys)
	b.keys = append(b.keys, key)
	b.results = append(b.results, r)

	full := l.opts.maxBatch > 0 && len(b.keys) >= l.opts.maxBatch
	if full {
		l.pending = nil
	}
	l.mu.Unlock()

	if full {
		b.timer.Stop()
		go l.run(b)
	}
	return r.thunk()
}

// Dispatch 立即派发收集中的批次，阻塞到该批次完成。没有待处理的键时直接返回。
func (l *Loader[K, V]) Dispatch() {
	l.mu.Lock()
	b := l.pending
	l.pending = nil
	l.mu.Unlock()

	if b == nil {
		return
	}
	b.timer.Stop()
	l.run(b)
}

// Prime 写入已知结果，key 已存在时不覆盖并返回 false
func (l *Loader[K, V]) Prime(key K, value V) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.memo[key]; ok {
		return false
	}
	r := newResult[V]()
	r.resolve(value, nil)
	l.memo[key] = r
	return true
}

// Clear 从记忆表移除 key，进行中的批次仍会完成。
// 之后的 Load 在 key 所在批次尚未派发时复用该批次的结果，否则重新查询。
func (l *Loader[K, V]) Clear(key K) {
	l.mu.Lock()
	delete(l.memo, key)
	l.mu.Unlock()
}

// ClearAll 清空记忆表
func (l *Loader[K, V]) ClearAll() {
	l.mu.Lock()
	l.memo = make(map[K]*result[V])
	l.mu.Unlock()
}

// Stats 返回统计快照
func (l *Loader[K, V]) Stats() LoaderStats {
	return LoaderStats{
		Batches: l.batches.Load(),
		Keys:    l.keys.Load(),
		Hits:    l.hits.Load(),
	}
}

// =============================================================================
// 内部实现
// =============================================================================

// dispatch 由窗口定时器触发，批次已被其他路径派发时忽略
func (l *Loader[K, V]) dispatch(b *batch[K, V]) {
	l.mu.Lock()
	if l.pending != b {
		l.mu.Unlock()
		return
	}
	l.pending = nil
	l.mu.Unlock()
	l.run(b)
}

// abort 在请求 context 取消时让收集中的批次失败
func (l *Loader[K, V]) abort() {
	l.mu.Lock()
	b := l.pending
	l.pending = nil
	l.mu.Unlock()

	if b == nil {
		return
	}
	b.timer.Stop()
	l.fail(b, l.ctx.Err())
}

func (l *Loader[K, V]) run(b *batch[K, V]) {
	if len(b.keys) == 0 {
		return
	}
	l.batches.Add(1)
	l.keys.Add(uint64(len(b.keys)))

	if err := l.ctx.Err(); err != nil {
		l.fail(b, err)
		return
	}

	ctx, span := xmetrics.Start(l.ctx, l.opts.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: "fetch",
		Kind:      xmetrics.KindInternal,
		Attrs:     []xmetrics.Attr{xmetrics.Int("loader.keys", len(b.keys))},
	})
	values, err := l.safeFetch(ctx, b.keys)
	if err != nil {
		span.End(xmetrics.Result{Status: xmetrics.StatusError, Err: err})
		l.log().Warn(ctx, "batch load failed",
			xlog.Component(componentName), xlog.Count(int64(len(b.keys))), xlog.Err(err))
		l.fail(b, err)
		return
	}
	span.End(xmetrics.Result{Status: xmetrics.StatusOK})

	for i, k := range b.keys {
		v, ok := values[k]
		if !ok && l.opts.def != nil {
			v = l.opts.def(k)
		}
		b.results[i].resolve(v, nil)
	}
}

// fail 以 err 结束批次内所有结果，并将这些键移出记忆表
func (l *Loader[K, V]) fail(b *batch[K, V], err error) {
	l.mu.Lock()
	for i, k := range b.keys {
		if l.memo[k] == b.results[i] {
			delete(l.memo, k)
		}
	}
	l.mu.Unlock()

	var zero V
	for _, r := range b.results {
		r.resolve(zero, err)
	}
}

func (l *Loader[K, V]) safeFetch(ctx context.Context, keys []K) (values map[K]V, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			values = nil
			err = fmt.Errorf("%w: %v", ErrFetchPanic, rec)
		}
	}()
	return l.fetch(ctx, keys)
}

func (l *Loader[K, V]) log() xlog.Logger {
	if l.opts.logger != nil {
		return l.opts.logger
	}
	return xlog.Default()
}

func failed[V any](err error) Thunk[V] {
	return func(context.Context) (V, error) {
		var zero V
		return zero, err
	}
}
