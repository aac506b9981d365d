package xcache

import "errors"

var (
	// ErrNotFound 键不存在，由 Backend.Get 在未命中时返回
	ErrNotFound = errors.New("xcache: key not found")

	// ErrNilBackend 后端为 nil
	ErrNilBackend = errors.New("xcache: nil backend")

	// ErrNilClient Redis 客户端为 nil
	ErrNilClient = errors.New("xcache: nil redis client")

	// ErrNilStore Store 为 nil
	ErrNilStore = errors.New("xcache: nil store")

	// ErrEmptyNamespace 命名空间为空
	ErrEmptyNamespace = errors.New("xcache: empty namespace")

	// ErrNilFetcher fetcher 为 nil
	ErrNilFetcher = errors.New("xcache: nil fetcher")

	// ErrClosed 后端已关闭
	ErrClosed = errors.New("xcache: backend closed")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("xcache: invalid config")
)
