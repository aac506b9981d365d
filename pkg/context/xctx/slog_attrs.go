package xctx

import (
	"context"
	"log/slog"
)

// AppendRequestAttrs 将 context 中的请求信息追加到现有切片。
// 只追加非空字段，传入预分配切片可避免热路径分配。
func AppendRequestAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	if ctx == nil {
		return attrs
	}
	if v := RequestID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyRequestID, v))
	}
	if v := UserID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyUserID, v))
	}
	return attrs
}

// RequestAttrs 从 context 提取请求信息，转换为 slog.Attr 切片。
// 都为空时返回 nil。
func RequestAttrs(ctx context.Context) []slog.Attr {
	attrs := AppendRequestAttrs(make([]slog.Attr, 0, requestFieldCount), ctx)
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}
