package xcache

import (
	"context"
	"time"
)

//go:generate mockgen -source=backend.go -destination=backend_mock_test.go -package=xcache

// Backend 缓存后端接口。
//
// 实现必须可并发使用。键为已包含命名空间的完整键。
type Backend interface {
	// Get 读取原始字节，键不存在时返回 ErrNotFound。
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入原始字节，ttl <= 0 表示不过期。
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete 删除键，返回实际删除的数量。
	Delete(ctx context.Context, keys ...string) (int, error)

	// Keys 返回匹配 glob 模式的键。
	// 模式支持 '*'（任意长度）、'?'（单个字符）与 '\' 转义。
	Keys(ctx context.Context, pattern string) ([]string, error)
}
