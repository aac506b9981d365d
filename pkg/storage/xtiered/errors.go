package xtiered

import "errors"

var (
	// ErrNilBackend 后端为空
	ErrNilBackend = errors.New("xtiered: nil backend")
	// ErrNilRouter 路由器为空
	ErrNilRouter = errors.New("xtiered: nil router")
	// ErrNilFetcher fetcher 为空
	ErrNilFetcher = errors.New("xtiered: nil fetcher")
	// ErrUnknownTier 层不存在或不可缓存
	ErrUnknownTier = errors.New("xtiered: unknown tier")
	// ErrEmptyUserID 用户 ID 为空
	ErrEmptyUserID = errors.New("xtiered: empty user id")
)
