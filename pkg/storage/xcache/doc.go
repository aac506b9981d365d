// Package xcache 提供带命名空间的 TTL 键值缓存。
//
// # 组成
//
//   - [Backend]：底层存储接口，提供 Redis（[NewRedisBackend]）与进程内（[NewMemoryBackend]）两种实现
//   - [Store]：绑定命名空间的缓存视图，负责 JSON 编解码、过期判定与命中统计
//   - [GenerateKey]：由业务参数生成确定性的缓存键
//   - [GetOrSet]：cache-aside 读取，未命中时调用 fetcher 并回填
//
// # 键布局
//
// 后端中的完整键始终为 {namespace}:{key}。[GenerateKey] 生成的 key 布局为
//
//	[prefix:]baseKey[:field1=v1&field2=v2]
//
// 参数按字段名排序，切片值排序后以逗号连接，因此参数顺序不影响键。
// 字段名、值与切片元素按查询串规则转义，不同的参数组合不会得到相同的键。
// 超过最大长度的键保留最后一个 ':' 之前的部分，其余替换为 "#" 加 16 位十六进制 xxhash64。
//
// # 值格式
//
// Store 写入的值是 JSON 信封：
//
//	{"v": <value>, "exp": <unix 毫秒>}
//
// 后端 TTL 与 exp 指向同一时刻。exp 已过期的信封按未命中处理，即使后端仍持有该键。
//
// # 错误语义
//
// Get 与 Set 从不返回错误：后端不可用计入 Errors 并记录 Warn 日志，
// 损坏的载荷按未命中处理并记录 Debug 日志。
// [GetOrSet] 的 fetcher 错误原样返回，且不会写入缓存。
//
// # 缓存击穿
//
// 默认情况下并发未命中各自调用 fetcher。
// 通过 [WithSingleflight] 可开启同一 Store 内的 singleflight 合并。
package xcache
