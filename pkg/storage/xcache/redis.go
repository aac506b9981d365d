package xcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xfeed/internal/storageopt"
	"github.com/omeyang/xfeed/pkg/resilience/xbreaker"
)

const (
	defaultScanCount   = 500
	defaultDeleteBatch = 500
)

// =============================================================================
// Redis 后端配置
// =============================================================================

// RedisOption 定义 Redis 后端的配置函数
type RedisOption func(*RedisBackend)

// WithBreaker 为所有 Redis 调用加上熔断保护。
//
// 熔断打开后调用立即失败，Store 将其计入 Errors 并按未命中处理。
// 建议配合 [BreakerSuccessPolicy] 创建熔断器，避免未命中被计为失败。
func WithBreaker(b *xbreaker.Breaker) RedisOption {
	return func(r *RedisBackend) {
		r.breaker = b
	}
}

// WithScanCount 设置 SCAN 每轮的 COUNT 提示，默认 500
func WithScanCount(n int64) RedisOption {
	return func(r *RedisBackend) {
		if n > 0 {
			r.scanCount = n
		}
	}
}

// WithDeleteBatch 设置每个 DEL 管道批次的键数量，默认 500
func WithDeleteBatch(n int) RedisOption {
	return func(r *RedisBackend) {
		if n > 0 {
			r.deleteBatch = n
		}
	}
}

// BreakerSuccessPolicy 返回将 ErrNotFound 视为成功的熔断判定策略
func BreakerSuccessPolicy() xbreaker.SuccessPolicy {
	return xbreaker.SuccessFunc(func(err error) bool {
		return err == nil || errors.Is(err, ErrNotFound)
	})
}

// =============================================================================
// Redis 后端实现
// =============================================================================

// RedisBackend 基于 go-redis 的缓存后端。
//
// 同时支持单机、哨兵与集群客户端；集群模式下 Keys 会遍历所有主节点。
type RedisBackend struct {
	client      redis.UniversalClient
	breaker     *xbreaker.Breaker
	scanCount   int64
	deleteBatch int
	health      storageopt.HealthCounter
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend 创建 Redis 后端。
// client 的生命周期由调用方管理。
func NewRedisBackend(client redis.UniversalClient, opts ...RedisOption) (*RedisBackend, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	r := &RedisBackend{
		client:      client,
		scanCount:   defaultScanCount,
		deleteBatch: defaultDeleteBatch,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Client 返回底层客户端
func (r *RedisBackend) Client() redis.UniversalClient {
	return r.client
}

// Get 实现 Backend
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.guard(ctx, func() error {
		v, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		value = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set 实现 Backend
func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.guard(ctx, func() error {
		return r.client.Set(ctx, key, value, ttl).Err()
	})
}

// Delete 实现 Backend。
//
// 每个键单独发送 DEL，按批次走管道，集群模式下不会触发 CROSSSLOT。
func (r *RedisBackend) Delete(ctx context.Context, keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	var deleted int64
	for start := 0; start < len(keys); start += r.deleteBatch {
		end := min(start+r.deleteBatch, len(keys))
		batch := keys[start:end]
		err := r.guard(ctx, func() error {
			cmds, err := r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
				for _, k := range batch {
					p.Del(ctx, k)
				}
				return nil
			})
			if err != nil {
				return err
			}
			for _, cmd := range cmds {
				if ic, ok := cmd.(*redis.IntCmd); ok {
					deleted += ic.Val()
				}
			}
			return nil
		})
		if err != nil {
			return int(deleted), fmt.Errorf("xcache: delete batch [%d:%d]: %w", start, end, err)
		}
	}
	return int(deleted), nil
}

// Keys 实现 Backend，使用 SCAN MATCH 增量遍历，不使用 KEYS
func (r *RedisBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	err := r.guard(ctx, func() error {
		if cc, ok := r.client.(*redis.ClusterClient); ok {
			var mu sync.Mutex
			return cc.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
				found, err := scanAll(ctx, node, pattern, r.scanCount)
				if err != nil {
					return err
				}
				mu.Lock()
				keys = append(keys, found...)
				mu.Unlock()
				return nil
			})
		}
		found, err := scanAll(ctx, r.client, pattern, r.scanCount)
		keys = found
		return err
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Ping 检查连通性并记录健康计数
func (r *RedisBackend) Ping(ctx context.Context) error {
	r.health.IncPing()
	if err := r.client.Ping(ctx).Err(); err != nil {
		r.health.IncPingError()
		return err
	}
	return nil
}

// HealthStats 返回 Ping 次数与失败次数
func (r *RedisBackend) HealthStats() (pings, failures int64) {
	return r.health.PingCount(), r.health.PingErrors()
}

func (r *RedisBackend) guard(ctx context.Context, fn func() error) error {
	if r.breaker == nil {
		return fn()
	}
	return r.breaker.Do(ctx, fn)
}

func scanAll(ctx context.Context, c redis.Cmdable, pattern string, count int64) ([]string, error) {
	var keys []string
	iter := c.Scan(ctx, 0, pattern, count).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
