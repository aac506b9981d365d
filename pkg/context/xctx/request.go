package xctx

import (
	"context"

	"github.com/google/uuid"
)

// =============================================================================
// RequestID 操作
// =============================================================================

// WithRequestID 将 request ID 注入 context
//
// 如果 ctx 为 nil，返回 ErrNilContext。
func WithRequestID(ctx context.Context, requestID string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, keyRequestID, requestID), nil
}

// RequestID 从 context 提取 request ID，不存在返回空字符串
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(keyRequestID).(string); ok {
		return v
	}
	return ""
}

// RequireRequestID 从 context 获取 request ID，不存在则返回 ErrMissingRequestID。
func RequireRequestID(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", ErrNilContext
	}
	v := RequestID(ctx)
	if v == "" {
		return "", ErrMissingRequestID
	}
	return v, nil
}

// EnsureRequestID 确保 context 中存在 request ID。
// 已存在时原样返回；否则生成 UUIDv4 并注入。
func EnsureRequestID(ctx context.Context) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if RequestID(ctx) != "" {
		return ctx, nil
	}
	return WithRequestID(ctx, NewRequestID())
}

// NewRequestID 生成新的请求标识。
func NewRequestID() string {
	return uuid.NewString()
}

// =============================================================================
// UserID 操作
// =============================================================================

// WithUserID 将当前用户 ID 注入 context
//
// 空字符串表示匿名请求，同样会被写入（覆盖上游的值）。
func WithUserID(ctx context.Context, userID string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, keyUserID, userID), nil
}

// UserID 从 context 提取用户 ID，不存在返回空字符串
func UserID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(keyUserID).(string); ok {
		return v
	}
	return ""
}

// RequireUserID 从 context 获取用户 ID，不存在或为空时返回 ErrMissingUserID。
func RequireUserID(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", ErrNilContext
	}
	v := UserID(ctx)
	if v == "" {
		return "", ErrMissingUserID
	}
	return v, nil
}
