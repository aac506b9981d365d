package xcache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// =============================================================================
// Memory 后端配置
// =============================================================================

const (
	defaultNumCounters int64 = 1e5
	defaultMaxCost     int64 = 64 << 20
	defaultBufferItems int64 = 64
)

type memoryOptions struct {
	numCounters int64
	maxCost     int64
	bufferItems int64
	now         func() time.Time
}

// MemoryOption 定义内存后端的配置函数
type MemoryOption func(*memoryOptions)

// WithNumCounters 设置频率计数器数量，建议为预期键数量的 10 倍，默认 1e5
func WithNumCounters(n int64) MemoryOption {
	return func(o *memoryOptions) {
		if n > 0 {
			o.numCounters = n
		}
	}
}

// WithMaxCost 设置最大容量（字节），默认 64MB
func WithMaxCost(n int64) MemoryOption {
	return func(o *memoryOptions) {
		if n > 0 {
			o.maxCost = n
		}
	}
}

// WithMemoryClock 设置键索引判定过期使用的时钟，主要用于测试
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(o *memoryOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// =============================================================================
// Memory 后端实现
// =============================================================================

// MemoryBackend 基于 ristretto 的进程内缓存后端。
//
// ristretto 不支持按模式遍历，后端额外维护一份键索引（键 → 过期时刻），
// Keys 遍历索引并剔除已过期或已被淘汰的键。
// 每次写入后调用 Wait，保证写入对随后的读取立即可见。
type MemoryBackend struct {
	cache  *ristretto.Cache[string, []byte]
	now    func() time.Time
	closed atomic.Bool

	mu    sync.Mutex
	index map[string]time.Time
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend 创建内存后端，使用完毕后需调用 Close 释放 ristretto 的后台 goroutine
func NewMemoryBackend(opts ...MemoryOption) (*MemoryBackend, error) {
	o := &memoryOptions{
		numCounters: defaultNumCounters,
		maxCost:     defaultMaxCost,
		bufferItems: defaultBufferItems,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters:        o.numCounters,
		MaxCost:            o.maxCost,
		BufferItems:        o.bufferItems,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &MemoryBackend{
		cache: cache,
		now:   o.now,
		index: make(map[string]time.Time),
	}, nil
}

// Get 实现 Backend
func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// Set 实现 Backend。
// ristretto 的准入策略可能拒绝写入，此时返回 nil，随后的读取按未命中处理。
func (m *MemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	cost := max(int64(len(value)), 1)
	if !m.cache.SetWithTTL(key, value, cost, ttl) {
		return nil
	}
	m.cache.Wait()

	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.index[key] = exp
	m.mu.Unlock()
	return nil
}

// Delete 实现 Backend
func (m *MemoryBackend) Delete(ctx context.Context, keys ...string) (int, error) {
	if err := m.check(ctx); err != nil {
		return 0, err
	}
	deleted := 0
	for _, k := range keys {
		if _, ok := m.cache.Get(k); ok {
			deleted++
		}
		m.cache.Del(k)
	}
	m.cache.Wait()

	m.mu.Lock()
	for _, k := range keys {
		delete(m.index, k)
	}
	m.mu.Unlock()
	return deleted, nil
}

// Keys 实现 Backend，结果按字典序返回
func (m *MemoryBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for k, exp := range m.index {
		if !exp.IsZero() && !now.Before(exp) {
			delete(m.index, k)
			continue
		}
		if _, ok := m.cache.Get(k); !ok {
			delete(m.index, k)
			continue
		}
		if matchGlob(pattern, k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len 返回索引中的键数量（可能包含尚未清理的过期键）
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.index)
}

// Close 关闭后端，可重复调用
func (m *MemoryBackend) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	m.cache.Close()
	m.mu.Lock()
	m.index = make(map[string]time.Time)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) check(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}

// =============================================================================
// glob 匹配
// =============================================================================

// matchGlob 按 Redis 的 glob 语义匹配：'*' 匹配任意长度（包括 '/'），
// '?' 匹配单个字节，'\' 转义下一个字节。
func matchGlob(pattern, s string) bool {
	p, i := 0, 0
	starP, starI := -1, 0
	for i < len(s) {
		if p < len(pattern) {
			switch c := pattern[p]; c {
			case '*':
				starP, starI = p, i
				p++
				continue
			case '?':
				p++
				i++
				continue
			case '\\':
				if p+1 < len(pattern) && pattern[p+1] == s[i] {
					p += 2
					i++
					continue
				}
			default:
				if c == s[i] {
					p++
					i++
					continue
				}
			}
		}
		if starP < 0 {
			return false
		}
		starI++
		p, i = starP+1, starI
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// EscapePattern 转义 s 中的 glob 元字符，使其在模式中按字面匹配
func EscapePattern(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			if b == nil {
				b = append(make([]byte, 0, len(s)+4), s[:i]...)
			}
			b = append(b, '\\')
		}
		if b != nil {
			b = append(b, s[i])
		}
	}
	if b == nil {
		return s
	}
	return string(b)
}
