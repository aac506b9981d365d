// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xcache: 带命名空间和 TTL 的键值缓存，支持 Redis 和内存后端
//   - xtiered: 按查询特征分层的列表缓存路由
//   - xquerybatch: 在只读事务内分组执行数据库查询
//
// 设计原则：
//   - 缓存故障不影响主流程，只计入统计
//   - 内置可观测性（日志、指标、追踪）
package storage
