package xctx

import "errors"

// =============================================================================
// Context Key 类型定义
// =============================================================================

// contextKey 使用包私有的 string 类型，调试时可读，且不会与其他包冲突。
type contextKey string

const (
	keyRequestID = contextKey("xctx:request_id")
	keyUserID    = contextKey("xctx:user_id")
)

// 日志属性 Key 常量（下划线分隔，与 OpenTelemetry 语义约定一致）
const (
	KeyRequestID = "request_id"
	KeyUserID    = "user_id"

	// requestFieldCount 请求字段数量（用于 slog 属性预分配）
	requestFieldCount = 2
)

// =============================================================================
// 错误定义
// =============================================================================

var (
	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xctx: nil context")

	// ErrMissingRequestID request_id 缺失
	ErrMissingRequestID = errors.New("xctx: missing request_id")

	// ErrMissingUserID user_id 缺失
	ErrMissingUserID = errors.New("xctx: missing user_id")
)
