// Package xbreaker 提供熔断器功能，防止后端故障时持续打满请求。
//
// 基于 [sony/gobreaker/v2]，提供 TripPolicy 抽象简化熔断策略配置。
//
// # 熔断器状态
//
//   - StateClosed：正常状态，请求正常通过
//   - StateOpen：熔断状态，请求直接失败
//   - StateHalfOpen：探测状态，允许部分请求通过
//
// # 与 xretry 组合
//
// 熔断器错误包装为 [BreakerError]，其 Retryable() 返回 false，
// 外层的 xretry 不会对熔断拒绝进行退避重试。
//
// [sony/gobreaker/v2]: https://github.com/sony/gobreaker
package xbreaker
