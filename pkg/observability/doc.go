// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，自动注入请求上下文
//   - xmetrics: 统一可观测性接口（指标、追踪），默认 OpenTelemetry 实现
//
// 设计原则：
//   - 组件通过选项注入 Logger/Observer，未注入时静默
//   - 遵循 OpenTelemetry 语义规范
package observability
