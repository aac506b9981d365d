package xlog

import (
	"context"
	"log/slog"
)

// Logger 组件使用的日志接口。
//
// 每个方法都接收 ctx，请求 ID 等字段由 EnrichHandler 从 ctx 注入；
// 属性只接受 slog.Attr，字段名统一由 attrs.go 中的构造函数提供。
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// Stack 以 Error 级别记录，并附带当前 goroutine 的调用栈
	Stack(ctx context.Context, msg string, attrs ...slog.Attr)

	With(attrs ...slog.Attr) Logger
	WithGroup(name string) Logger
}

// LoggerWithLevel 可在运行时调整级别的 Logger，由 Builder.Build 返回
type LoggerWithLevel interface {
	Logger

	SetLevel(level Level)
	GetLevel() Level
	Enabled(ctx context.Context, level Level) bool
}
