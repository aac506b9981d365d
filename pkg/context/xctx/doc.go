// Package xctx 提供轻量级的请求上下文管理。
//
// 一次入站请求在进入数据访问层之前，会在 context 中携带：
//   - request_id : 请求标识（缺失时由 EnsureRequestID 生成 UUID）
//   - user_id    : 当前用户标识（匿名请求为空）
//
// 这两个字段决定了请求级加载器（xloader）的隔离边界，也会被 xlog 的
// EnrichHandler 自动注入到每条日志中。
//
// # 命名约定
//
//	WithXxx(ctx, value)    - 注入：将 value 写入 context
//	Xxx(ctx)               - 读取：从 context 读取值，缺失时返回零值
//	RequireXxx(ctx)        - 强制读取：值必须存在，缺失时返回错误
//	EnsureXxx(ctx)         - 确保存在：若已存在则返回，否则自动生成
//
// # 哨兵错误
//
//	ErrNilContext        - context 为 nil
//	ErrMissingRequestID  - request_id 缺失
//	ErrMissingUserID     - user_id 缺失
package xctx
