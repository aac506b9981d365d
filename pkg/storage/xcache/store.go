package xcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/omeyang/xfeed/pkg/observability/xlog"
	"github.com/omeyang/xfeed/pkg/observability/xmetrics"
)

// DefaultTTL Store 默认 TTL
const DefaultTTL = 5 * time.Minute

const componentName = "xcache"

// =============================================================================
// Store 配置
// =============================================================================

// StoreOption 定义 Store 的配置函数
type StoreOption func(*Store)

// WithDefaultTTL 设置默认 TTL，Set 传入 ttl <= 0 时使用，默认 5 分钟
func WithDefaultTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithLogger 设置日志记录器，默认使用 xlog.Default()
func WithLogger(l xlog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// WithObserver 设置可观测性观察者
func WithObserver(o xmetrics.Observer) StoreOption {
	return func(s *Store) {
		s.observer = o
	}
}

// WithClock 设置时钟，用于过期判定
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSingleflight 开启同一 Store 内的并发未命中合并，默认关闭
func WithSingleflight(enabled bool) StoreOption {
	return func(s *Store) {
		if enabled {
			s.flight = &singleflight.Group{}
		} else {
			s.flight = nil
		}
	}
}

// WithMaxKeyLength 设置完整键（含命名空间）的最大长度，默认 DefaultMaxKeyLength，<= 0 表示不限制
func WithMaxKeyLength(n int) StoreOption {
	return func(s *Store) {
		s.maxKeyLength = n
	}
}

// =============================================================================
// Store
// =============================================================================

// Stats 命中统计
type Stats struct {
	Hits   uint64
	Misses uint64
	Errors uint64
}

// HitRatio 返回命中率，没有读取时为 0
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Store 绑定命名空间的缓存视图，可并发使用。
//
// 多个 Store 可以共享同一个 Backend，键始终带有命名空间前缀。
// 统计数据属于单个 Store 实例。
type Store struct {
	backend      Backend
	namespace    string
	defaultTTL   time.Duration
	maxKeyLength int
	logger       xlog.Logger
	observer     xmetrics.Observer
	now          func() time.Time
	flight       *singleflight.Group

	hits     atomic.Uint64
	misses   atomic.Uint64
	errCount atomic.Uint64
}

type envelope struct {
	V   json.RawMessage `json:"v"`
	Exp int64           `json:"exp"`
}

// NewStore 创建 Store
func NewStore(backend Backend, namespace string, opts ...StoreOption) (*Store, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	if strings.TrimSpace(namespace) == "" {
		return nil, ErrEmptyNamespace
	}
	s := &Store{
		backend:      backend,
		namespace:    namespace,
		defaultTTL:   DefaultTTL,
		maxKeyLength: DefaultMaxKeyLength,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Namespace 返回命名空间
func (s *Store) Namespace() string { return s.namespace }

// DefaultTTL 返回默认 TTL
func (s *Store) DefaultTTL() time.Duration { return s.defaultTTL }

// FullKey 返回 key 在后端中的完整键
func (s *Store) FullKey(key string) string {
	return shortenKey(s.namespace+":"+key, s.maxKeyLength)
}

// Get 读取 key 并解码到 dst，返回是否命中。
//
// 键不存在、已过期、载荷损坏或后端出错时返回 false。
func (s *Store) Get(ctx context.Context, key string, dst any) bool {
	ctx, span := s.start(ctx, "get")
	hit := s.get(ctx, key, dst)
	span.End(xmetrics.Result{Status: xmetrics.StatusOK, Attrs: []xmetrics.Attr{xmetrics.Bool(xmetrics.AttrHit, hit)}})
	return hit
}

func (s *Store) get(ctx context.Context, key string, dst any) bool {
	hit, err := s.lookup(ctx, key, dst)
	switch {
	case err != nil:
		s.misses.Add(1)
		s.errCount.Add(1)
		s.log().Warn(ctx, "cache get failed", s.attrs(key, xlog.Err(err))...)
	case hit:
		s.hits.Add(1)
	default:
		s.misses.Add(1)
	}
	return hit
}

// lookup 读取并解码，不计入统计。只有后端错误（非 ErrNotFound）才返回 error。
func (s *Store) lookup(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := s.backend.Get(ctx, s.FullKey(key))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.log().Debug(ctx, "cache payload corrupt", s.attrs(key, xlog.Err(err))...)
		return false, nil
	}
	if env.Exp <= s.now().UnixMilli() {
		return false, nil
	}
	if err := json.Unmarshal(env.V, dst); err != nil {
		s.log().Debug(ctx, "cache value decode failed", s.attrs(key, xlog.Err(err))...)
		return false, nil
	}
	return true, nil
}

// Set 编码 value 并写入，ttl <= 0 时使用默认 TTL。
// 编码或后端失败只记录日志并计入 Errors，不向调用方返回。
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	ctx, span := s.start(ctx, "set")
	err := s.set(ctx, key, value, ttl)
	if err != nil {
		s.errCount.Add(1)
		s.log().Warn(ctx, "cache set failed", s.attrs(key, xlog.Err(err))...)
	}
	span.End(result(err))
}

func (s *Store) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("xcache: marshal value: %w", err)
	}
	data, err := json.Marshal(envelope{V: v, Exp: s.now().Add(ttl).UnixMilli()})
	if err != nil {
		return fmt.Errorf("xcache: marshal envelope: %w", err)
	}
	return s.backend.Set(ctx, s.FullKey(key), data, ttl)
}

// Delete 删除 keys，返回实际删除的数量
func (s *Store) Delete(ctx context.Context, keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	ctx, span := s.start(ctx, "delete")
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.FullKey(k)
	}
	n, err := s.backend.Delete(ctx, full...)
	if err != nil {
		s.errCount.Add(1)
	}
	span.End(result(err))
	return n, err
}

// ClearPattern 删除命名空间内匹配 pattern 的键，pattern 相对于命名空间。
//
//	store.ClearPattern(ctx, "u/42:*")  // 删除 {namespace}:u/42:* 下的全部键
func (s *Store) ClearPattern(ctx context.Context, pattern string) (int, error) {
	ctx, span := s.start(ctx, "clear_pattern")
	n, err := s.clearPattern(ctx, pattern)
	if err != nil {
		s.errCount.Add(1)
		s.log().Warn(ctx, "cache clear failed", xlog.Namespace(s.namespace), slog.String("pattern", pattern), xlog.Err(err))
	} else {
		s.log().Debug(ctx, "cache cleared", xlog.Namespace(s.namespace), slog.String("pattern", pattern), xlog.Count(int64(n)))
	}
	span.End(result(err))
	return n, err
}

func (s *Store) clearPattern(ctx context.Context, pattern string) (int, error) {
	keys, err := s.backend.Keys(ctx, EscapePattern(s.namespace)+":"+pattern)
	if err != nil {
		return 0, fmt.Errorf("xcache: scan %q: %w", pattern, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return s.backend.Delete(ctx, keys...)
}

// Clear 删除命名空间内的全部键
func (s *Store) Clear(ctx context.Context) (int, error) {
	return s.ClearPattern(ctx, "*")
}

// Keys 返回命名空间内匹配 pattern 的完整键
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	return s.backend.Keys(ctx, EscapePattern(s.namespace)+":"+pattern)
}

// Stats 返回统计快照
func (s *Store) Stats() Stats {
	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Errors: s.errCount.Load(),
	}
}

// ResetStats 清零统计
func (s *Store) ResetStats() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.errCount.Store(0)
}

// =============================================================================
// GetOrSet
// =============================================================================

// GetOrSet 读取 key，未命中时调用 fetcher 并在成功后写入。
//
// fetcher 的错误（包括 ctx 取消与超时）原样返回，不写入任何内容。
// 开启 singleflight 时，同一 Store 内同一 key 的并发未命中只调用一次 fetcher；
// fetcher 在脱离调用方取消链的 ctx 中执行，每个等待者仍可按自己的 ctx 提前返回。
func GetOrSet[T any](ctx context.Context, s *Store, key string, fetcher func(ctx context.Context) (T, error), ttl time.Duration) (T, error) {
	var zero T
	if s == nil {
		return zero, ErrNilStore
	}
	if fetcher == nil {
		return zero, ErrNilFetcher
	}

	var cached T
	if s.Get(ctx, key, &cached) {
		return cached, nil
	}

	if s.flight == nil {
		return fetchAndStore(ctx, s, key, fetcher, ttl)
	}

	ch := s.flight.DoChan(s.FullKey(key), func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		// 前一轮合并可能已经回填
		var v T
		if hit, _ := s.lookup(fctx, key, &v); hit {
			return v, nil
		}
		return fetchAndStore(fctx, s, key, fetcher, ttl)
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	}
}

func fetchAndStore[T any](ctx context.Context, s *Store, key string, fetcher func(ctx context.Context) (T, error), ttl time.Duration) (T, error) {
	v, err := fetcher(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	s.Set(ctx, key, v, ttl)
	return v, nil
}

// =============================================================================
// 内部辅助
// =============================================================================

func (s *Store) log() xlog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return xlog.Default()
}

func (s *Store) start(ctx context.Context, op string) (context.Context, xmetrics.Span) {
	return xmetrics.Start(ctx, s.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: op,
		Kind:      xmetrics.KindClient,
		Attrs:     []xmetrics.Attr{xmetrics.String(xmetrics.AttrNamespace, s.namespace)},
	})
}

func (s *Store) attrs(key string, extra ...slog.Attr) []slog.Attr {
	return append([]slog.Attr{xlog.Namespace(s.namespace), xlog.CacheKey(key)}, extra...)
}

func result(err error) xmetrics.Result {
	if err != nil {
		return xmetrics.Result{Status: xmetrics.StatusError, Err: err}
	}
	return xmetrics.Result{Status: xmetrics.StatusOK}
}
