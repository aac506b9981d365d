// Package context 提供请求级上下文相关的子包。
//
// 子包列表：
//   - xctx: Context 增强，注入/提取请求 ID、用户 ID，并为日志提供属性
//
// 设计原则：
//   - 所有请求级信息通过 context.Context 传递，不使用全局变量
//   - 读取函数对 nil ctx 安全，缺失时返回零值
package context
