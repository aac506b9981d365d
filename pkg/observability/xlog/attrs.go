package xlog

import (
	"log/slog"
	"time"
)

// =============================================================================
// 常用属性 Key 常量
// =============================================================================

const (
	KeyError     = "error"
	KeyStack     = "stack"
	KeyDuration  = "duration"
	KeyCount     = "count"
	KeyComponent = "component"
	KeyOperation = "operation"

	// 缓存与批处理领域字段
	KeyNamespace = "namespace"
	KeyCacheKey  = "cache_key"
	KeyTier      = "tier"
	KeyChunk     = "chunk"
	KeyAttempt   = "attempt"
)

// =============================================================================
// 便捷属性构造函数
// =============================================================================

// Err 创建错误属性
//
// 如果 err 为 nil，返回空属性（会被 slog 忽略）。
//
//	if err != nil {
//	    logger.Error(ctx, "operation failed", xlog.Err(err))
//	}
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性，输出人类可读格式（如 "1.5s"）
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation 创建操作名属性
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Count 创建计数属性
func Count(n int64) slog.Attr {
	return slog.Int64(KeyCount, n)
}

// Namespace 缓存命名空间
func Namespace(ns string) slog.Attr {
	return slog.String(KeyNamespace, ns)
}

// CacheKey 缓存键（不含命名空间前缀）
func CacheKey(key string) slog.Attr {
	return slog.String(KeyCacheKey, key)
}

// Tier 缓存层级名称
func Tier(name string) slog.Attr {
	return slog.String(KeyTier, name)
}

// Chunk 批处理分块序号
func Chunk(index int) slog.Attr {
	return slog.Int(KeyChunk, index)
}

// Attempt 第几次尝试（从 1 开始）
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}
